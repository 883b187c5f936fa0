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
	ErrTournamentNotFound        = errors.New("tournament not found")
	ErrTournamentNameConflict    = errors.New("tournament name conflict for this creator")
	ErrTournamentStartConflict   = errors.New("tournament already started or closed")
	ErrTournamentCapacityOrState = errors.New("tournament is full or not accepting registrations")
	ErrTournamentCompleteDenied  = errors.New("tournament is not in progress")
)

type ListTournamentsFilter struct {
	Statuses []models.TournamentStatus
	GameType *string
	Format   *models.TournamentFormat
	Limit    int
	Offset   int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	ListByParticipantUser(ctx context.Context, userID int) ([]models.Tournament, error)
	ListDueForStart(ctx context.Context, now time.Time) ([]models.Tournament, error)

	// IncrementParticipants atomically claims one registration slot. It only
	// succeeds while the tournament accepts signups and has room; the returned
	// counts let the caller detect the registration that filled the last slot.
	IncrementParticipants(ctx context.Context, exec SQLExecutor, id int) (current, max int, err error)

	// TryBeginStart is the compare-and-swap behind exactly-once tournament
	// start: it flips upcoming/registration to in_progress and reports whether
	// this caller won the transition.
	TryBeginStart(ctx context.Context, exec SQLExecutor, id int) (bool, error)

	// TryOpenRegistration flips upcoming to registration. Losing the swap
	// means registration is already open or the tournament has moved on.
	TryOpenRegistration(ctx context.Context, exec SQLExecutor, id int) (bool, error)

	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	SetSwissRounds(ctx context.Context, exec SQLExecutor, id int, rounds int) error
	Complete(ctx context.Context, exec SQLExecutor, id int, winnerParticipantID int, endTime time.Time) error
	UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, description, format, game_type, status, start_time, end_time,
	max_participants, current_participants, entry_fee, prize_pool, rules,
	swiss_rounds, winner_participant_id, created_by, banner_key, created_at, updated_at`

func scanTournament(row interface{ Scan(...interface{}) error }, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Format, &t.GameType, &t.Status,
		&t.StartTime, &t.EndTime, &t.MaxParticipants, &t.CurrentParticipants,
		&t.EntryFee, &t.PrizePool, &t.Rules, &t.SwissRounds,
		&t.WinnerParticipantID, &t.CreatedBy, &t.BannerKey, &t.CreatedAt, &t.UpdatedAt,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournaments (
			name, description, format, game_type, status, start_time,
			max_participants, entry_fee, prize_pool, rules, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		t.Name, t.Description, t.Format, t.GameType, t.Status, t.StartTime,
		t.MaxParticipants, t.EntryFee, t.PrizePool, t.Rules, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	err := scanTournament(executor.QueryRowContext(ctx, query, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	var query strings.Builder
	query.WriteString(`SELECT` + tournamentColumns + ` FROM tournaments WHERE 1=1`)

	args := []interface{}{}
	argID := 1

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query.WriteString(" AND status = ANY($" + strconv.Itoa(argID) + ")")
		args = append(args, pq.Array(statuses))
		argID++
	}
	if filter.GameType != nil {
		query.WriteString(" AND game_type = $" + strconv.Itoa(argID))
		args = append(args, *filter.GameType)
		argID++
	}
	if filter.Format != nil {
		query.WriteString(" AND format = $" + strconv.Itoa(argID))
		args = append(args, *filter.Format)
		argID++
	}

	query.WriteString(" ORDER BY start_time ASC, created_at DESC")

	if filter.Limit > 0 {
		query.WriteString(" LIMIT $" + strconv.Itoa(argID))
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query.WriteString(" OFFSET $" + strconv.Itoa(argID))
		args = append(args, filter.Offset)
	}

	return r.queryTournaments(ctx, query.String(), args...)
}

func (r *postgresTournamentRepository) ListByParticipantUser(ctx context.Context, userID int) ([]models.Tournament, error) {
	query := `
		SELECT
			t.id, t.name, t.description, t.format, t.game_type, t.status, t.start_time, t.end_time,
			t.max_participants, t.current_participants, t.entry_fee, t.prize_pool, t.rules,
			t.swiss_rounds, t.winner_participant_id, t.created_by, t.banner_key, t.created_at, t.updated_at
		FROM tournaments t
		JOIN tournament_participants p ON p.tournament_id = t.id
		WHERE p.user_id = $1
		ORDER BY t.start_time DESC`
	return r.queryTournaments(ctx, query, userID)
}

func (r *postgresTournamentRepository) ListDueForStart(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	query := `
		SELECT` + tournamentColumns + `
		FROM tournaments
		WHERE status IN ($1, $2) AND start_time <= $3
		ORDER BY start_time ASC`
	return r.queryTournaments(ctx, query, models.StatusUpcoming, models.StatusRegistration, now)
}

func (r *postgresTournamentRepository) queryTournaments(ctx context.Context, query string, args ...interface{}) ([]models.Tournament, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) IncrementParticipants(ctx context.Context, exec SQLExecutor, id int) (int, int, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET current_participants = current_participants + 1, updated_at = NOW()
		WHERE id = $1
		  AND status IN ($2, $3)
		  AND current_participants < max_participants
		RETURNING current_participants, max_participants`

	var current, max int
	err := executor.QueryRowContext(ctx, query, id, models.StatusUpcoming, models.StatusRegistration).
		Scan(&current, &max)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, ErrTournamentCapacityOrState
		}
		return 0, 0, fmt.Errorf("failed to claim registration slot for tournament %d: %w", id, err)
	}
	return current, max, nil
}

func (r *postgresTournamentRepository) TryBeginStart(ctx context.Context, exec SQLExecutor, id int) (bool, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4)`

	result, err := executor.ExecContext(ctx, query,
		models.StatusInProgress, id, models.StatusUpcoming, models.StatusRegistration)
	if err != nil {
		return false, fmt.Errorf("failed to begin start of tournament %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected == 1, nil
}

func (r *postgresTournamentRepository) TryOpenRegistration(ctx context.Context, exec SQLExecutor, id int) (bool, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	result, err := executor.ExecContext(ctx, query,
		models.StatusRegistration, id, models.StatusUpcoming)
	if err != nil {
		return false, fmt.Errorf("failed to open registration for tournament %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected == 1, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetSwissRounds(ctx context.Context, exec SQLExecutor, id int, rounds int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET swiss_rounds = $1, updated_at = NOW() WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, rounds, id)
	if err != nil {
		return fmt.Errorf("failed to set swiss rounds for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Complete(ctx context.Context, exec SQLExecutor, id int, winnerParticipantID int, endTime time.Time) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET status = $1, winner_participant_id = $2, end_time = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`
	result, err := executor.ExecContext(ctx, query,
		models.StatusCompleted, winnerParticipantID, endTime, id, models.StatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to complete tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentCompleteDenied)
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	query := `UPDATE tournaments SET banner_key = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, bannerKey, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament banner key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23505" && pqErr.Constraint == "tournaments_created_by_name_key" {
			return ErrTournamentNameConflict
		}
	}
	return err
}
