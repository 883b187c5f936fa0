package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/spinhall/tournament-engine/models"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchAlreadyScored = errors.New("match result already recorded or match cancelled")
	ErrMatchInvalidRef    = errors.New("match references an invalid tournament or participant")
)

type ListMatchesFilter struct {
	Round   *int
	Bracket *models.MatchBracket
	Status  *models.MatchStatus
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, m *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter ListMatchesFilter) ([]*models.Match, error)
	CountUnfinished(ctx context.Context, exec SQLExecutor, tournamentID int, round int) (int, error)

	// RecordResult completes a match atomically: it only fires while the
	// match is still pending or in progress, so a second recording attempt
	// reports ErrMatchAlreadyScored and changes nothing.
	RecordResult(ctx context.Context, exec SQLExecutor, id int, winnerID int, score1, score2 int, completedAt time.Time) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, round, match_number, bracket, player1_id, player2_id,
	winner_id, score1, score2, status, scheduled_time, completed_at, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }, m *models.Match) error {
	return row.Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.MatchNumber, &m.Bracket,
		&m.Player1ID, &m.Player2ID, &m.WinnerID, &m.Score1, &m.Score2,
		&m.Status, &m.ScheduledTime, &m.CompletedAt, &m.CreatedAt,
	)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_matches
			(tournament_id, round, match_number, bracket, player1_id, player2_id, status, scheduled_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		m.TournamentID, m.Round, m.MatchNumber, m.Bracket,
		m.Player1ID, m.Player2ID, m.Status, m.ScheduledTime,
	).Scan(&m.ID, &m.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + ` FROM tournament_matches WHERE id = $1`

	m := &models.Match{}
	err := scanMatch(executor.QueryRowContext(ctx, query, id), m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter ListMatchesFilter) ([]*models.Match, error) {
	executor := r.getExecutor(exec)

	var query strings.Builder
	query.WriteString(`SELECT` + matchColumns + ` FROM tournament_matches WHERE tournament_id = $1`)
	args := []interface{}{tournamentID}

	if filter.Round != nil {
		query.WriteString(" AND round = $" + strconv.Itoa(len(args)+1))
		args = append(args, *filter.Round)
	}
	if filter.Bracket != nil {
		query.WriteString(" AND bracket = $" + strconv.Itoa(len(args)+1))
		args = append(args, *filter.Bracket)
	}
	if filter.Status != nil {
		query.WriteString(" AND status = $" + strconv.Itoa(len(args)+1))
		args = append(args, *filter.Status)
	}
	query.WriteString(" ORDER BY round ASC, bracket ASC, match_number ASC")

	rows, err := executor.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m := &models.Match{}
		if scanErr := scanMatch(rows, m); scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) CountUnfinished(ctx context.Context, exec SQLExecutor, tournamentID int, round int) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT COUNT(*) FROM tournament_matches
		WHERE tournament_id = $1 AND round = $2 AND status IN ($3, $4)`

	var count int
	err := executor.QueryRowContext(ctx, query,
		tournamentID, round, models.MatchPending, models.MatchInProgress,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished matches for tournament %d round %d: %w", tournamentID, round, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) RecordResult(ctx context.Context, exec SQLExecutor, id int, winnerID int, score1, score2 int, completedAt time.Time) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournament_matches
		SET winner_id = $1, score1 = $2, score2 = $3, status = $4, completed_at = $5
		WHERE id = $6 AND status IN ($7, $8)`

	result, err := executor.ExecContext(ctx, query,
		winnerID, score1, score2, models.MatchCompleted, completedAt,
		id, models.MatchPending, models.MatchInProgress)
	if err != nil {
		return fmt.Errorf("failed to record result for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchAlreadyScored)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		return ErrMatchInvalidRef
	}
	return err
}
