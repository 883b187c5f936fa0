package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/spinhall/tournament-engine/brackets"
	"github.com/spinhall/tournament-engine/economy"
	"github.com/spinhall/tournament-engine/models"
	"github.com/spinhall/tournament-engine/repositories"
	"github.com/spinhall/tournament-engine/storage"
)

type PrizeInput struct {
	Position     int     `json:"position"`
	RewardType   string  `json:"reward_type"`
	RewardAmount *int64  `json:"reward_amount,omitempty"`
	RewardItemID *string `json:"reward_item_id,omitempty"`
	Description  string  `json:"description"`
}

type CreateTournamentInput struct {
	Name            string       `json:"name"`
	Description     *string      `json:"description,omitempty"`
	Format          string       `json:"format"`
	GameType        string       `json:"game_type"`
	StartTime       time.Time    `json:"start_time"`
	MaxParticipants int          `json:"max_participants"`
	EntryFee        int64        `json:"entry_fee"`
	Rules           *string      `json:"rules,omitempty"`
	Prizes          []PrizeInput `json:"prizes,omitempty"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, creatorID int, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	ListActiveTournaments(ctx context.Context) ([]models.Tournament, error)
	GetTournamentHistory(ctx context.Context, userID int) ([]models.Tournament, error)
	GetStandings(ctx context.Context, tournamentID int) ([]*models.Participant, error)
	ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error)

	OpenRegistration(ctx context.Context, tournamentID, callerID int) error
	StartTournament(ctx context.Context, tournamentID int, callerID *int) error
	StartDueTournaments(ctx context.Context) error
	CancelTournament(ctx context.Context, tournamentID, callerID int) error
	UpdateBanner(ctx context.Context, tournamentID, callerID int, contentType string, file io.Reader) (string, error)
}

type tournamentService struct {
	transactor      repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	roundRepo       repositories.RoundRepository
	prizeRepo       repositories.PrizeRepository
	ledger          economy.Ledger
	notifier        economy.Notifier
	uploader        storage.FileUploader
	payoutRatio     float64
	logger          *slog.Logger
}

func NewTournamentService(
	transactor repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	roundRepo repositories.RoundRepository,
	prizeRepo repositories.PrizeRepository,
	ledger economy.Ledger,
	notifier economy.Notifier,
	uploader storage.FileUploader,
	payoutRatio float64,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		transactor:      transactor,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		roundRepo:       roundRepo,
		prizeRepo:       prizeRepo,
		ledger:          ledger,
		notifier:        notifier,
		uploader:        uploader,
		payoutRatio:     payoutRatio,
		logger:          logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, creatorID int, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	format := models.TournamentFormat(input.Format)
	if !format.Valid() {
		return nil, ErrTournamentInvalidFormat
	}
	if input.MaxParticipants < 2 {
		return nil, ErrTournamentInvalidCapacity
	}
	if input.EntryFee < 0 {
		return nil, ErrTournamentInvalidEntryFee
	}

	prizePool := int64(float64(input.EntryFee*int64(input.MaxParticipants)) * s.payoutRatio)
	prizes, err := validatePrizes(input.Prizes, prizePool)
	if err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		Name:            input.Name,
		Description:     input.Description,
		Format:          format,
		GameType:        input.GameType,
		Status:          models.StatusUpcoming,
		StartTime:       input.StartTime,
		MaxParticipants: input.MaxParticipants,
		EntryFee:        input.EntryFee,
		PrizePool:       prizePool,
		Rules:           input.Rules,
		CreatedBy:       creatorID,
	}

	err = s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.Create(ctx, exec, tournament); err != nil {
			return err
		}
		return s.prizeRepo.CreateBatch(ctx, exec, tournament.ID, prizes)
	})
	if err != nil {
		return nil, err
	}
	tournament.Prizes = prizes

	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("format", string(format)),
		slog.Int64("prize_pool", prizePool))
	s.notifier.NotifyGlobal("tournament_created", tournament)
	return tournament, nil
}

func validatePrizes(inputs []PrizeInput, prizePool int64) ([]models.Prize, error) {
	prizes := make([]models.Prize, 0, len(inputs))
	seen := make(map[int]struct{}, len(inputs))
	var monetaryTotal int64

	for _, in := range inputs {
		rewardType := models.RewardType(in.RewardType)
		if in.Position < 1 || !rewardType.Valid() {
			return nil, ErrPrizeInvalid
		}
		if _, dup := seen[in.Position]; dup {
			return nil, ErrPrizeInvalid
		}
		seen[in.Position] = struct{}{}

		if rewardType.Monetary() {
			if in.RewardAmount == nil || *in.RewardAmount <= 0 {
				return nil, ErrPrizeInvalid
			}
			monetaryTotal += *in.RewardAmount
		} else if in.RewardItemID == nil || *in.RewardItemID == "" {
			return nil, ErrPrizeInvalid
		}

		prizes = append(prizes, models.Prize{
			Position:     in.Position,
			RewardType:   rewardType,
			RewardAmount: in.RewardAmount,
			RewardItemID: in.RewardItemID,
			Description:  in.Description,
		})
	}

	if monetaryTotal > prizePool {
		return nil, ErrPrizeExceedsPool
	}
	return prizes, nil
}

// GetTournament assembles the full view: the row plus prizes, participants
// and matches fetched in parallel.
func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.BannerKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*tournament.BannerKey)
		tournament.BannerURL = &url
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		prizes, err := s.prizeRepo.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load prizes for tournament %d: %w", id, err)
		}
		tournament.Prizes = prizes
		return nil
	})
	g.Go(func() error {
		participants, err := s.participantRepo.ListByTournament(gCtx, nil, id, nil)
		if err != nil {
			return fmt.Errorf("failed to load participants for tournament %d: %w", id, err)
		}
		tournament.Participants = make([]models.Participant, len(participants))
		for i, p := range participants {
			tournament.Participants[i] = *p
		}
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, nil, id, repositories.ListMatchesFilter{})
		if err != nil {
			return fmt.Errorf("failed to load matches for tournament %d: %w", id, err)
		}
		tournament.Matches = make([]models.Match, len(matches))
		for i, m := range matches {
			tournament.Matches[i] = *m
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, filter)
}

func (s *tournamentService) ListActiveTournaments(ctx context.Context) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{
		Statuses: []models.TournamentStatus{
			models.StatusUpcoming,
			models.StatusRegistration,
			models.StatusInProgress,
		},
	})
}

func (s *tournamentService) GetTournamentHistory(ctx context.Context, userID int) ([]models.Tournament, error) {
	return s.tournamentRepo.ListByParticipantUser(ctx, userID)
}

func (s *tournamentService) GetStandings(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID, nil)
	if err != nil {
		return nil, err
	}
	return rankParticipants(participants), nil
}

func (s *tournamentService) ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, nil, tournamentID, repositories.ListMatchesFilter{})
}

func (s *tournamentService) OpenRegistration(ctx context.Context, tournamentID, callerID int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if tournament.CreatedBy != callerID {
		return ErrForbiddenOperation
	}
	won, err := s.tournamentRepo.TryOpenRegistration(ctx, nil, tournamentID)
	if err != nil {
		return err
	}
	if !won {
		return ErrRegistrationClosed
	}
	return nil
}

// StartTournament flips the tournament to in_progress, builds the first
// round and activates the roster — all in one transaction. The status flip
// is conditional, so concurrent starters (explicit start, last-slot
// registration, scheduler) resolve to exactly one bracket build.
func (s *tournamentService) StartTournament(ctx context.Context, tournamentID int, callerID *int) error {
	var started *models.Tournament

	err := s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if callerID != nil && tournament.CreatedBy != *callerID {
			return ErrForbiddenOperation
		}
		if tournament.Status.Terminal() || tournament.Status == models.StatusInProgress {
			return ErrTournamentAlreadyStarted
		}

		won, err := s.tournamentRepo.TryBeginStart(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if !won {
			return ErrTournamentAlreadyStarted
		}

		// Past the status flip this transaction owns the start; any failure
		// below rolls the flip back.
		registered := models.ParticipantRegistered
		participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID, &registered)
		if err != nil {
			return err
		}
		if len(participants) < 2 {
			return ErrNotEnoughPlayers
		}

		generator, err := brackets.NewGenerator(tournament.Format)
		if err != nil {
			return err
		}
		bracket, err := generator.Generate(participants)
		if err != nil {
			if errors.Is(err, brackets.ErrNotEnoughParticipants) {
				return ErrNotEnoughPlayers
			}
			return err
		}

		if tournament.Format == models.FormatSwiss {
			if err := s.tournamentRepo.SetSwissRounds(ctx, exec, tournamentID, brackets.SwissRoundCount(len(participants))); err != nil {
				return err
			}
		}

		if err := s.participantRepo.ActivateRegistered(ctx, exec, tournamentID); err != nil {
			return err
		}

		scheduled := tournament.StartTime
		if _, err := insertPairings(ctx, exec, s.matchRepo, tournamentID, bracket.Pairings, &scheduled); err != nil {
			return err
		}
		if err := s.roundRepo.Create(ctx, exec, tournamentID, 1); err != nil {
			return err
		}

		if bracket.ByeParticipantID != nil {
			byeID := *bracket.ByeParticipantID
			if err := s.participantRepo.SetCurrentRound(ctx, exec, byeID, 2); err != nil {
				return err
			}
			// A swiss bye is a free win; elimination byes only skip the round.
			if tournament.Format == models.FormatSwiss {
				if err := s.participantRepo.AddWin(ctx, exec, byeID, matchWinPoints); err != nil {
					return err
				}
			}
		}

		started = tournament
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("tournament started",
		slog.Int("tournament_id", tournamentID),
		slog.String("format", string(started.Format)))
	s.notifier.NotifyGlobal("tournament_started", map[string]interface{}{
		"tournament_id": tournamentID,
		"name":          started.Name,
	})
	s.notifier.NotifyTournament(tournamentID, "bracket_generated", nil)
	return nil
}

// StartDueTournaments is invoked by the scheduler: any tournament whose
// start time has passed gets started. Losing the start race or lacking
// players is fine here; those tournaments are skipped, not failed.
func (s *tournamentService) StartDueTournaments(ctx context.Context) error {
	due, err := s.tournamentRepo.ListDueForStart(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to list due tournaments: %w", err)
	}
	for _, tournament := range due {
		err := s.StartTournament(ctx, tournament.ID, nil)
		switch {
		case err == nil:
		case errors.Is(err, ErrTournamentAlreadyStarted):
		case errors.Is(err, ErrNotEnoughPlayers):
			s.logger.Warn("due tournament lacks players, leaving open",
				slog.Int("tournament_id", tournament.ID))
		default:
			s.logger.Error("failed to start due tournament",
				slog.Int("tournament_id", tournament.ID), slog.Any("error", err))
		}
	}
	return nil
}

// CancelTournament is only valid before the bracket exists. Entry fees are
// refunded best-effort; a failed refund is logged for manual follow-up
// rather than blocking the cancellation.
func (s *tournamentService) CancelTournament(ctx context.Context, tournamentID, callerID int) error {
	var refunds []*models.Participant
	var entryFee int64

	err := s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.CreatedBy != callerID {
			return ErrForbiddenOperation
		}
		if tournament.Status != models.StatusUpcoming && tournament.Status != models.StatusRegistration {
			return ErrTournamentNotCancelable
		}
		participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID, nil)
		if err != nil {
			return err
		}
		refunds = participants
		entryFee = tournament.EntryFee
		return s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.StatusCancelled)
	})
	if err != nil {
		return err
	}

	if entryFee > 0 {
		for _, p := range refunds {
			key := fmt.Sprintf("refund-%d-%d", tournamentID, p.UserID)
			if err := s.ledger.Credit(ctx, p.UserID, entryFee, economy.CurrencyCoins, key); err != nil {
				s.logger.Error("entry fee refund failed",
					slog.Int("tournament_id", tournamentID),
					slog.Int("user_id", p.UserID), slog.Any("error", err))
			}
		}
	}
	s.notifier.NotifyGlobal("tournament_cancelled", map[string]interface{}{"tournament_id": tournamentID})
	return nil
}

func (s *tournamentService) UpdateBanner(ctx context.Context, tournamentID, callerID int, contentType string, file io.Reader) (string, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return "", ErrTournamentNotFound
		}
		return "", err
	}
	if tournament.CreatedBy != callerID {
		return "", ErrForbiddenOperation
	}
	if s.uploader == nil {
		return "", fmt.Errorf("banner storage is not configured")
	}

	key := fmt.Sprintf("tournaments/%d/banner-%s", tournamentID, uuid.NewString())
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return "", fmt.Errorf("failed to upload banner: %w", err)
	}
	if err := s.tournamentRepo.UpdateBannerKey(ctx, tournamentID, &result.Key); err != nil {
		return "", err
	}
	if tournament.BannerKey != nil {
		if delErr := s.uploader.Delete(ctx, *tournament.BannerKey); delErr != nil {
			s.logger.Warn("failed to delete previous banner",
				slog.String("key", *tournament.BannerKey), slog.Any("error", delErr))
		}
	}
	return result.Location, nil
}
