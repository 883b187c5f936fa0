package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spinhall/tournament-engine/economy"
	"github.com/spinhall/tournament-engine/models"
	"github.com/spinhall/tournament-engine/repositories"
)

type RegistrationService interface {
	Register(ctx context.Context, tournamentID, userID int) (*models.Participant, error)
}

type registrationService struct {
	transactor      repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	tournaments     TournamentService
	ledger          economy.Ledger
	notifier        economy.Notifier
	logger          *slog.Logger
}

func NewRegistrationService(
	transactor repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	tournaments TournamentService,
	ledger economy.Ledger,
	notifier economy.Notifier,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		transactor:      transactor,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		tournaments:     tournaments,
		ledger:          ledger,
		notifier:        notifier,
		logger:          logger,
	}
}

// Register debits the entry fee, then claims a slot and inserts the
// participant row in one transaction. The slot claim is a conditional
// increment, so concurrent registrations for the last slot resolve to one
// winner; the debit is compensated with a credit if the claim fails.
func (s *registrationService) Register(ctx context.Context, tournamentID, userID int) (*models.Participant, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Status != models.StatusUpcoming && tournament.Status != models.StatusRegistration {
		return nil, ErrRegistrationClosed
	}
	if existing, err := s.participantRepo.FindByTournamentAndUser(ctx, tournamentID, userID); err == nil && existing != nil {
		return nil, ErrAlreadyRegistered
	} else if err != nil && !errors.Is(err, repositories.ErrParticipantNotFound) {
		return nil, err
	}

	if tournament.EntryFee > 0 {
		key := fmt.Sprintf("entry-%d-%d", tournamentID, userID)
		if err := s.ledger.Debit(ctx, userID, tournament.EntryFee, economy.CurrencyCoins, key); err != nil {
			if errors.Is(err, economy.ErrInsufficientFunds) {
				return nil, ErrInsufficientFunds
			}
			return nil, fmt.Errorf("failed to debit entry fee: %w", err)
		}
	}

	var participant *models.Participant
	var filledLastSlot bool

	err = s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		// The first signup opens registration. The flip is conditional, so
		// concurrent first signups and an explicit open resolve cleanly.
		if tournament.Status == models.StatusUpcoming {
			if _, err := s.tournamentRepo.TryOpenRegistration(ctx, exec, tournamentID); err != nil {
				return err
			}
		}

		current, max, err := s.tournamentRepo.IncrementParticipants(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentCapacityOrState) {
				return ErrTournamentFull
			}
			return err
		}
		filledLastSlot = current == max

		participant = &models.Participant{
			TournamentID: tournamentID,
			UserID:       userID,
			Status:       models.ParticipantRegistered,
			Seed:         current,
		}
		if err := s.participantRepo.Create(ctx, exec, participant); err != nil {
			if errors.Is(err, repositories.ErrParticipantDuplicate) {
				return ErrAlreadyRegistered
			}
			return err
		}
		return nil
	})
	if err != nil {
		if tournament.EntryFee > 0 {
			key := fmt.Sprintf("entry-refund-%d-%d", tournamentID, userID)
			if refundErr := s.ledger.Credit(ctx, userID, tournament.EntryFee, economy.CurrencyCoins, key); refundErr != nil {
				s.logger.Error("entry fee compensation failed",
					slog.Int("tournament_id", tournamentID),
					slog.Int("user_id", userID), slog.Any("error", refundErr))
			}
		}
		return nil, err
	}

	s.notifier.NotifyTournament(tournamentID, "participant_registered", map[string]interface{}{
		"tournament_id": tournamentID,
		"user_id":       userID,
		"seed":          participant.Seed,
	})

	if filledLastSlot {
		err := s.tournaments.StartTournament(ctx, tournamentID, nil)
		if err != nil && !errors.Is(err, ErrTournamentAlreadyStarted) {
			s.logger.Error("auto-start after capacity fill failed",
				slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		}
	}
	return participant, nil
}
