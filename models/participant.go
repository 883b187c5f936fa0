package models

import "time"

// ParticipantStatus mirrors the participant_status ENUM in the database.
type ParticipantStatus string

const (
	ParticipantRegistered   ParticipantStatus = "registered"
	ParticipantActive       ParticipantStatus = "active"
	ParticipantEliminated   ParticipantStatus = "eliminated"
	ParticipantWinner       ParticipantStatus = "winner"
	ParticipantDisqualified ParticipantStatus = "disqualified"
)

// Participant is one user's entry in one tournament. Seed is the registration
// order and doubles as the bracket placement order. CurrentRound moves ahead
// of the played rounds when the participant receives a bye.
type Participant struct {
	ID           int               `json:"id"`
	TournamentID int               `json:"tournament_id"`
	UserID       int               `json:"user_id"`
	Seed         int               `json:"seed"`
	CurrentRound int               `json:"current_round"`
	Status       ParticipantStatus `json:"status"`
	Points       int               `json:"points"`
	Wins         int               `json:"wins"`
	Losses       int               `json:"losses"`
	Position     *int              `json:"position,omitempty"`
	RegisteredAt time.Time         `json:"registered_at"`
}

// InPlay reports whether the participant can still be paired into matches.
func (p *Participant) InPlay() bool {
	return p.Status == ParticipantActive
}
