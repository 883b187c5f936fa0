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

type MatchHandler struct {
	matches services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matches: ms}
}

// RecordResultHandler handles POST /matches/{matchID}/result.
func (h *MatchHandler) RecordResultHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.GetUserIDFromContext(r.Context()); err != nil {
		unauthorizedResponse(w, r, "authentication required to report results")
		return
	}
	id, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.MatchResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.WinnerParticipantID < 1 {
		badRequestResponse(w, r, errors.New("winner_participant_id is required"))
		return
	}
	if input.Score1 < 0 || input.Score2 < 0 {
		badRequestResponse(w, r, errors.New("scores cannot be negative"))
		return
	}

	match, err := h.matches.RecordResult(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler handles GET /matches/{matchID}.
func (h *MatchHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matches.GetMatch(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListByTournamentHandler handles GET /tournaments/{tournamentID}/matches with
// optional round, bracket and status filters.
func (h *MatchHandler) ListByTournamentHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var filter repositories.ListMatchesFilter
	query := r.URL.Query()
	if roundStr := query.Get("round"); roundStr != "" {
		if round, err := strconv.Atoi(roundStr); err == nil && round > 0 {
			filter.Round = &round
		} else {
			badRequestResponse(w, r, errors.New("invalid round query parameter"))
			return
		}
	}
	if bracketStr := query.Get("bracket"); bracketStr != "" {
		bracket := models.MatchBracket(bracketStr)
		filter.Bracket = &bracket
	}
	if statusStr := query.Get("status"); statusStr != "" {
		status := models.MatchStatus(statusStr)
		filter.Status = &status
	}

	matches, err := h.matches.ListByTournament(r.Context(), tournamentID, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
