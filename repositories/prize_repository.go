package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/spinhall/tournament-engine/models"
)

var ErrPrizePositionConflict = errors.New("duplicate prize position for this tournament")

type PrizeRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, tournamentID int, prizes []models.Prize) error
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Prize, error)
}

type postgresPrizeRepository struct {
	db *sql.DB
}

func NewPostgresPrizeRepository(db *sql.DB) PrizeRepository {
	return &postgresPrizeRepository{db: db}
}

func (r *postgresPrizeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPrizeRepository) CreateBatch(ctx context.Context, exec SQLExecutor, tournamentID int, prizes []models.Prize) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_prizes
			(tournament_id, position, reward_type, reward_amount, reward_item_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	for i := range prizes {
		prizes[i].TournamentID = tournamentID
		err := executor.QueryRowContext(ctx, query,
			tournamentID, prizes[i].Position, prizes[i].RewardType,
			prizes[i].RewardAmount, prizes[i].RewardItemID, prizes[i].Description,
		).Scan(&prizes[i].ID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				return ErrPrizePositionConflict
			}
			return fmt.Errorf("failed to insert prize for position %d: %w", prizes[i].Position, err)
		}
	}
	return nil
}

func (r *postgresPrizeRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.Prize, error) {
	query := `
		SELECT id, tournament_id, position, reward_type, reward_amount, reward_item_id, description
		FROM tournament_prizes
		WHERE tournament_id = $1
		ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prizes := make([]models.Prize, 0)
	for rows.Next() {
		var p models.Prize
		if scanErr := rows.Scan(
			&p.ID, &p.TournamentID, &p.Position, &p.RewardType,
			&p.RewardAmount, &p.RewardItemID, &p.Description,
		); scanErr != nil {
			return nil, scanErr
		}
		prizes = append(prizes, p)
	}
	return prizes, rows.Err()
}
