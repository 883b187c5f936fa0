package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/spinhall/tournament-engine/middleware"
	"github.com/spinhall/tournament-engine/models"
	"github.com/spinhall/tournament-engine/repositories"
	"github.com/spinhall/tournament-engine/services"
)

const maxBannerBytes = 5 << 20 // 5MB

type TournamentHandler struct {
	tournaments   services.TournamentService
	registrations services.RegistrationService
}

func NewTournamentHandler(ts services.TournamentService, rs services.RegistrationService) *TournamentHandler {
	return &TournamentHandler{
		tournaments:   ts,
		registrations: rs,
	}
}

// CreateHandler handles POST /tournaments.
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to create tournament")
		return
	}

	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournaments.CreateTournament(r.Context(), currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler handles GET /tournaments/{tournamentID}.
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournaments.GetTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments. Without a status filter it returns
// tournaments that are upcoming, open for registration or running.
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var filter repositories.ListTournamentsFilter
	query := r.URL.Query()

	if statusStr := query.Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		if !status.Valid() {
			badRequestResponse(w, r, errors.New("invalid status query parameter"))
			return
		}
		filter.Statuses = []models.TournamentStatus{status}
	}
	if gameType := query.Get("game_type"); gameType != "" {
		filter.GameType = &gameType
	}
	if formatStr := query.Get("format"); formatStr != "" {
		format := models.TournamentFormat(formatStr)
		if !format.Valid() {
			badRequestResponse(w, r, errors.New("invalid format query parameter"))
			return
		}
		filter.Format = &format
	}
	filter.Limit = 20
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		} else {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		} else {
			badRequestResponse(w, r, errors.New("invalid offset query parameter"))
			return
		}
	}

	var tournaments []models.Tournament
	var err error
	if len(filter.Statuses) == 0 && filter.GameType == nil && filter.Format == nil && filter.Offset == 0 {
		tournaments, err = h.tournaments.ListActiveTournaments(r.Context())
	} else {
		tournaments, err = h.tournaments.ListTournaments(r.Context(), filter)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RegisterHandler handles POST /tournaments/{tournamentID}/register.
func (h *TournamentHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to register")
		return
	}
	id, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.registrations.Register(r.Context(), id, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// OpenRegistrationHandler handles POST /tournaments/{tournamentID}/open.
func (h *TournamentHandler) OpenRegistrationHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournaments.OpenRegistration(r.Context(), id, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": models.StatusRegistration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartHandler handles POST /tournaments/{tournamentID}/start.
func (h *TournamentHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournaments.StartTournament(r.Context(), id, &currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": models.StatusInProgress}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CancelHandler handles POST /tournaments/{tournamentID}/cancel.
func (h *TournamentHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournaments.CancelTournament(r.Context(), id, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": models.StatusCancelled}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StandingsHandler handles GET /tournaments/{tournamentID}/standings.
func (h *TournamentHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.tournaments.GetStandings(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// HistoryHandler handles GET /users/{userID}/tournaments.
func (h *TournamentHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournaments, err := h.tournaments.GetTournamentHistory(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadBannerHandler handles PUT /tournaments/{tournamentID}/banner with a
// multipart form carrying the image under the "banner" field.
func (h *TournamentHandler) UploadBannerHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBannerBytes)
	if err := r.ParseMultipartForm(maxBannerBytes); err != nil {
		badRequestResponse(w, r, errors.New("failed to parse multipart form, banner must be under 5MB"))
		return
	}
	file, header, err := r.FormFile("banner")
	if err != nil {
		badRequestResponse(w, r, errors.New("banner file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "image/jpeg" && contentType != "image/png" && contentType != "image/webp" {
		badRequestResponse(w, r, errors.New("banner must be a jpeg, png or webp image"))
		return
	}

	url, err := h.tournaments.UpdateBanner(r.Context(), id, currentUserID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"banner_url": url}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
