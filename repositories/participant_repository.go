package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/spinhall/tournament-engine/models"
)

var (
	ErrParticipantNotFound   = errors.New("participant not found")
	ErrParticipantDuplicate  = errors.New("user is already registered for this tournament")
	ErrParticipantInvalidRef = errors.New("participant references an invalid tournament")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error)
	FindByTournamentAndUser(ctx context.Context, tournamentID, userID int) (*models.Participant, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error)

	ActivateRegistered(ctx context.Context, exec SQLExecutor, tournamentID int) error
	AddWin(ctx context.Context, exec SQLExecutor, id int, points int) error
	AddLoss(ctx context.Context, exec SQLExecutor, id int) error
	SetCurrentRound(ctx context.Context, exec SQLExecutor, id int, round int) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error
	SetFinalPosition(ctx context.Context, exec SQLExecutor, id int, position int, status models.ParticipantStatus) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const participantColumns = `
	id, tournament_id, user_id, seed, current_round, status,
	points, wins, losses, position, registered_at`

func scanParticipant(row interface{ Scan(...interface{}) error }, p *models.Participant) error {
	return row.Scan(
		&p.ID, &p.TournamentID, &p.UserID, &p.Seed, &p.CurrentRound, &p.Status,
		&p.Points, &p.Wins, &p.Losses, &p.Position, &p.RegisteredAt,
	)
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_participants
			(tournament_id, user_id, seed, current_round, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, registered_at`

	err := executor.QueryRowContext(ctx, query,
		p.TournamentID, p.UserID, p.Seed, p.CurrentRound, p.Status,
	).Scan(&p.ID, &p.RegisteredAt)

	return r.handleParticipantError(err)
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + participantColumns + ` FROM tournament_participants WHERE id = $1`

	p := &models.Participant{}
	err := scanParticipant(executor.QueryRowContext(ctx, query, id), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) FindByTournamentAndUser(ctx context.Context, tournamentID, userID int) (*models.Participant, error) {
	query := `SELECT` + participantColumns + `
		FROM tournament_participants WHERE tournament_id = $1 AND user_id = $2`

	p := &models.Participant{}
	err := scanParticipant(r.db.QueryRowContext(ctx, query, tournamentID, userID), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant for tournament %d user %d: %w", tournamentID, userID, err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error) {
	executor := r.getExecutor(exec)

	var query strings.Builder
	query.WriteString(`SELECT` + participantColumns + ` FROM tournament_participants WHERE tournament_id = $1`)
	args := []interface{}{tournamentID}
	if status != nil {
		query.WriteString(" AND status = $" + strconv.Itoa(len(args)+1))
		args = append(args, *status)
	}
	query.WriteString(" ORDER BY seed ASC")

	rows, err := executor.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p := &models.Participant{}
		if scanErr := scanParticipant(rows, p); scanErr != nil {
			return nil, scanErr
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *postgresParticipantRepository) ActivateRegistered(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournament_participants
		SET status = $1, current_round = 1
		WHERE tournament_id = $2 AND status = $3`
	_, err := executor.ExecContext(ctx, query,
		models.ParticipantActive, tournamentID, models.ParticipantRegistered)
	if err != nil {
		return fmt.Errorf("failed to activate participants of tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresParticipantRepository) AddWin(ctx context.Context, exec SQLExecutor, id int, points int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournament_participants SET wins = wins + 1, points = points + $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, points, id)
	if err != nil {
		return fmt.Errorf("failed to record win for participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) AddLoss(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournament_participants SET losses = losses + 1 WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to record loss for participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) SetCurrentRound(ctx context.Context, exec SQLExecutor, id int, round int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournament_participants SET current_round = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, round, id)
	if err != nil {
		return fmt.Errorf("failed to set current round for participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournament_participants SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status for participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) SetFinalPosition(ctx context.Context, exec SQLExecutor, id int, position int, status models.ParticipantStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournament_participants SET position = $1, status = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, position, status, id)
	if err != nil {
		return fmt.Errorf("failed to set final position for participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournament_participants_tournament_id_user_id_key" {
				return ErrParticipantDuplicate
			}
		case "23503":
			return ErrParticipantInvalidRef
		}
	}
	return err
}
