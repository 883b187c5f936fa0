package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	StatusUpcoming     TournamentStatus = "upcoming"
	StatusRegistration TournamentStatus = "registration"
	StatusInProgress   TournamentStatus = "in_progress"
	StatusCompleted    TournamentStatus = "completed"
	StatusCancelled    TournamentStatus = "cancelled"
)

// TournamentFormat mirrors the tournament_format ENUM in the database.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatDoubleElimination TournamentFormat = "double_elimination"
	FormatRoundRobin        TournamentFormat = "round_robin"
	FormatSwiss             TournamentFormat = "swiss"
)

// Tournament is one competitive event over a mini-game. The prize pool is
// derived once at creation from the entry fee, capacity and payout ratio;
// it is stored rather than recomputed so later config changes cannot move it.
type Tournament struct {
	ID                  int              `json:"id"`
	Name                string           `json:"name"`
	Description         *string          `json:"description,omitempty"`
	Format              TournamentFormat `json:"format"`
	GameType            string           `json:"game_type"`
	Status              TournamentStatus `json:"status"`
	StartTime           time.Time        `json:"start_time"`
	EndTime             *time.Time       `json:"end_time,omitempty"`
	MaxParticipants     int              `json:"max_participants"`
	CurrentParticipants int              `json:"current_participants"`
	EntryFee            int64            `json:"entry_fee"`
	PrizePool           int64            `json:"prize_pool"`
	Rules               *string          `json:"rules,omitempty"`
	// SwissRounds is fixed at start from the initial roster (ceil(log2 n) * 2)
	// and is zero for every other format.
	SwissRounds         int        `json:"swiss_rounds,omitempty"`
	WinnerParticipantID *int       `json:"winner_participant_id,omitempty"`
	CreatedBy           int        `json:"created_by"`
	BannerKey           *string    `json:"-"`
	BannerURL           *string    `json:"banner_url,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	// Optional linked data, populated by services rather than scans.
	Prizes       []Prize       `json:"prizes,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
	Matches      []Match       `json:"matches,omitempty"`
}

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusRegistration, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from the status.
func (s TournamentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatSingleElimination, FormatDoubleElimination, FormatRoundRobin, FormatSwiss:
		return true
	}
	return false
}
