package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spinhall/tournament-engine/economy"
	"github.com/spinhall/tournament-engine/models"
	"github.com/spinhall/tournament-engine/repositories"
)

// PrizeService settles a finished tournament: final positions inside the
// completion transaction, reward delivery after it commits.
type PrizeService interface {
	Finalize(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, championID int, participants []*models.Participant) error
	Distribute(ctx context.Context, tournamentID int) error
}

type prizeService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	prizeRepo       repositories.PrizeRepository
	ledger          economy.Ledger
	inventory       economy.Inventory
	badges          economy.BadgeService
	notifier        economy.Notifier
	logger          *slog.Logger
}

func NewPrizeService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	prizeRepo repositories.PrizeRepository,
	ledger economy.Ledger,
	inventory economy.Inventory,
	badges economy.BadgeService,
	notifier economy.Notifier,
	logger *slog.Logger,
) PrizeService {
	return &prizeService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		prizeRepo:       prizeRepo,
		ledger:          ledger,
		inventory:       inventory,
		badges:          badges,
		notifier:        notifier,
		logger:          logger,
	}
}

// Finalize writes final positions and flips the tournament to completed. The
// champion takes position 1 regardless of points; everyone else is ranked by
// standings. Runs inside the caller's advancement transaction.
func (s *prizeService) Finalize(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, championID int, participants []*models.Participant) error {
	rest := make([]*models.Participant, 0, len(participants))
	var champion *models.Participant
	for _, p := range participants {
		if p.ID == championID {
			champion = p
			continue
		}
		rest = append(rest, p)
	}
	if champion == nil {
		return fmt.Errorf("champion participant %d is not in tournament %d", championID, tournament.ID)
	}

	if err := s.participantRepo.SetFinalPosition(ctx, exec, champion.ID, 1, models.ParticipantWinner); err != nil {
		return err
	}
	for i, p := range rankParticipants(rest) {
		status := p.Status
		if status != models.ParticipantDisqualified {
			status = models.ParticipantEliminated
		}
		if err := s.participantRepo.SetFinalPosition(ctx, exec, p.ID, i+2, status); err != nil {
			return err
		}
	}

	if err := s.tournamentRepo.Complete(ctx, exec, tournament.ID, championID, time.Now()); err != nil {
		if errors.Is(err, repositories.ErrTournamentCompleteDenied) {
			return ErrTournamentNotInProgress
		}
		return err
	}
	return nil
}

// Distribute hands out the configured prizes for a completed tournament.
// Each ledger credit carries an idempotency key, so re-running distribution
// after a partial failure cannot pay anyone twice.
func (s *prizeService) Distribute(ctx context.Context, tournamentID int) error {
	prizes, err := s.prizeRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to load prizes for tournament %d: %w", tournamentID, err)
	}
	if len(prizes) == 0 {
		return nil
	}
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID, nil)
	if err != nil {
		return err
	}
	byPosition := make(map[int]*models.Participant, len(participants))
	for _, p := range participants {
		if p.Position != nil {
			byPosition[*p.Position] = p
		}
	}

	var firstErr error
	for _, prize := range prizes {
		recipient, ok := byPosition[prize.Position]
		if !ok {
			// Fewer finishers than configured positions; nothing to pay.
			continue
		}
		if err := s.deliver(ctx, tournamentID, prize, recipient.UserID); err != nil {
			s.logger.Error("prize delivery failed",
				slog.Int("tournament_id", tournamentID),
				slog.Int("position", prize.Position),
				slog.Int("user_id", recipient.UserID),
				slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.notifier.NotifyUser(recipient.UserID,
			fmt.Sprintf("You placed #%d and won: %s", prize.Position, prize.Description))
	}
	return firstErr
}

func (s *prizeService) deliver(ctx context.Context, tournamentID int, prize models.Prize, userID int) error {
	switch prize.RewardType {
	case models.RewardCoins:
		return s.creditWithRetry(ctx, tournamentID, prize, userID, economy.CurrencyCoins)
	case models.RewardGems:
		return s.creditWithRetry(ctx, tournamentID, prize, userID, economy.CurrencyGems)
	case models.RewardItem:
		return s.inventory.GrantItem(ctx, userID, *prize.RewardItemID, 1)
	case models.RewardCrateKey:
		return s.inventory.GrantCrateKey(ctx, userID, *prize.RewardItemID, 1)
	case models.RewardBadge:
		return s.badges.GrantBadge(ctx, userID, *prize.RewardItemID)
	default:
		return fmt.Errorf("unknown reward type %q for prize %d", prize.RewardType, prize.ID)
	}
}

func (s *prizeService) creditWithRetry(ctx context.Context, tournamentID int, prize models.Prize, userID int, currency economy.Currency) error {
	key := fmt.Sprintf("prize-%d-%d", tournamentID, prize.Position)
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = s.ledger.Credit(ctx, userID, *prize.RewardAmount, currency, key); err == nil {
			return nil
		}
	}
	return err
}
