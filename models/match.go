package models

import "time"

// MatchStatus mirrors the match_status ENUM in the database.
type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchCancelled  MatchStatus = "cancelled"
)

// MatchBracket tags which bracket a match belongs to. Single elimination,
// round robin and swiss only ever use BracketWinners; double elimination adds
// the losers bracket and a single grand final.
type MatchBracket string

const (
	BracketWinners    MatchBracket = "winners"
	BracketLosers     MatchBracket = "losers"
	BracketGrandFinal MatchBracket = "grand_final"
)

// Match is one pairing inside a tournament round. Player IDs reference
// participant rows, not user rows. A completed match is immutable; disputes
// go through an admin path outside this service.
type Match struct {
	ID            int          `json:"id"`
	TournamentID  int          `json:"tournament_id"`
	Round         int          `json:"round"`
	MatchNumber   int          `json:"match_number"`
	Bracket       MatchBracket `json:"bracket"`
	Player1ID     int          `json:"player1_id"`
	Player2ID     int          `json:"player2_id"`
	WinnerID      *int         `json:"winner_id,omitempty"`
	Score1        *int         `json:"score1,omitempty"`
	Score2        *int         `json:"score2,omitempty"`
	Status        MatchStatus  `json:"status"`
	ScheduledTime *time.Time   `json:"scheduled_time,omitempty"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// HasPlayer reports whether the participant plays in this match.
func (m *Match) HasPlayer(participantID int) bool {
	return m.Player1ID == participantID || m.Player2ID == participantID
}

// LoserID returns the participant that lost a completed match.
func (m *Match) LoserID() *int {
	if m.WinnerID == nil {
		return nil
	}
	loser := m.Player1ID
	if *m.WinnerID == m.Player1ID {
		loser = m.Player2ID
	}
	return &loser
}

// RoundStatus marks the advancement state of one (tournament, round) pair.
// The transition open -> advanced is the compare-and-swap that makes round
// advancement fire exactly once across service instances.
type RoundStatus string

const (
	RoundOpen     RoundStatus = "open"
	RoundAdvanced RoundStatus = "advanced"
)

type TournamentRound struct {
	TournamentID int         `json:"tournament_id"`
	Round        int         `json:"round"`
	Status       RoundStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}
