package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spinhall/tournament-engine/economy"
	"github.com/spinhall/tournament-engine/models"
	"github.com/spinhall/tournament-engine/repositories"
)

type MatchResultInput struct {
	WinnerParticipantID int `json:"winner_participant_id"`
	Score1              int `json:"score1"`
	Score2              int `json:"score2"`
}

type MatchService interface {
	RecordResult(ctx context.Context, matchID int, input MatchResultInput) (*models.Match, error)
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, filter repositories.ListMatchesFilter) ([]*models.Match, error)
}

type matchService struct {
	transactor      repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	advancement     AdvancementService
	notifier        economy.Notifier
	logger          *slog.Logger
}

func NewMatchService(
	transactor repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	advancement AdvancementService,
	notifier economy.Notifier,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		transactor:      transactor,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		advancement:     advancement,
		notifier:        notifier,
		logger:          logger,
	}
}

// RecordResult scores a match and updates both players' standings in one
// transaction. The score write is conditional on the match still being
// unfinished, so a second report of the same match fails cleanly instead
// of double-counting.
func (s *matchService) RecordResult(ctx context.Context, matchID int, input MatchResultInput) (*models.Match, error) {
	var match *models.Match

	err := s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		switch match.Status {
		case models.MatchCompleted:
			return ErrMatchAlreadyCompleted
		case models.MatchCancelled:
			return ErrMatchCancelled
		}
		if !match.HasPlayer(input.WinnerParticipantID) {
			return ErrMatchInvalidWinner
		}

		tournament, err := s.tournamentRepo.GetByID(ctx, exec, match.TournamentID)
		if err != nil {
			return err
		}
		if tournament.Status != models.StatusInProgress {
			return ErrTournamentNotInProgress
		}

		now := time.Now()
		err = s.matchRepo.RecordResult(ctx, exec, matchID, input.WinnerParticipantID, input.Score1, input.Score2, now)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchAlreadyScored) {
				return ErrMatchAlreadyCompleted
			}
			return err
		}
		match.WinnerID = &input.WinnerParticipantID
		match.Score1 = &input.Score1
		match.Score2 = &input.Score2
		match.Status = models.MatchCompleted
		match.CompletedAt = &now

		if err := s.participantRepo.AddWin(ctx, exec, input.WinnerParticipantID, matchWinPoints); err != nil {
			return err
		}
		loserID := match.LoserID()
		if loserID != nil {
			if err := s.participantRepo.AddLoss(ctx, exec, *loserID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyTournament(match.TournamentID, "match_completed", map[string]interface{}{
		"match_id":  match.ID,
		"winner_id": input.WinnerParticipantID,
		"score1":    input.Score1,
		"score2":    input.Score2,
	})

	if err := s.advancement.OnMatchCompleted(ctx, match.TournamentID, match.Round); err != nil {
		// The round is advanced by whichever result report sees it finished;
		// a lost race here is not an error for the reporter.
		if !errors.Is(err, ErrRoundAlreadyAdvanced) {
			s.logger.Error("round advancement failed",
				slog.Int("tournament_id", match.TournamentID),
				slog.Int("round", match.Round), slog.Any("error", err))
		}
	}
	return match, nil
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int, filter repositories.ListMatchesFilter) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, nil, tournamentID, filter)
}
