package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spinhall/tournament-engine/models"
)

var ErrRoundNotFound = errors.New("tournament round not found")

// RoundRepository tracks the advancement marker for each (tournament, round).
// The open -> advanced transition is conditional at the store level, so when
// two match completions race to close the same round only one of them wins.
type RoundRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournamentID, round int) error
	Get(ctx context.Context, exec SQLExecutor, tournamentID, round int) (*models.TournamentRound, error)

	// TryAdvance reports whether this caller won the open -> advanced swap.
	TryAdvance(ctx context.Context, exec SQLExecutor, tournamentID, round int) (bool, error)
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRoundRepository) Create(ctx context.Context, exec SQLExecutor, tournamentID, round int) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_rounds (tournament_id, round, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (tournament_id, round) DO NOTHING`
	_, err := executor.ExecContext(ctx, query, tournamentID, round, models.RoundOpen)
	if err != nil {
		return fmt.Errorf("failed to create round marker for tournament %d round %d: %w", tournamentID, round, err)
	}
	return nil
}

func (r *postgresRoundRepository) Get(ctx context.Context, exec SQLExecutor, tournamentID, round int) (*models.TournamentRound, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT tournament_id, round, status, created_at
		FROM tournament_rounds
		WHERE tournament_id = $1 AND round = $2`

	tr := &models.TournamentRound{}
	err := executor.QueryRowContext(ctx, query, tournamentID, round).
		Scan(&tr.TournamentID, &tr.Round, &tr.Status, &tr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to scan round marker for tournament %d round %d: %w", tournamentID, round, err)
	}
	return tr, nil
}

func (r *postgresRoundRepository) TryAdvance(ctx context.Context, exec SQLExecutor, tournamentID, round int) (bool, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournament_rounds
		SET status = $1
		WHERE tournament_id = $2 AND round = $3 AND status = $4`

	result, err := executor.ExecContext(ctx, query,
		models.RoundAdvanced, tournamentID, round, models.RoundOpen)
	if err != nil {
		return false, fmt.Errorf("failed to advance round marker for tournament %d round %d: %w", tournamentID, round, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected == 1, nil
}
