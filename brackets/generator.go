package brackets

import (
	"errors"
	"fmt"

	"github.com/spinhall/tournament-engine/models"
)

var ErrNotEnoughParticipants = errors.New("not enough participants to generate a bracket (minimum 2)")

// Pairing is one proposed match. The caller persists pairings as match rows;
// nothing in this package touches storage.
type Pairing struct {
	Round       int
	MatchNumber int
	Bracket     models.MatchBracket
	Player1ID   int
	Player2ID   int
}

// Bracket is the output of first-round generation. ByeParticipantID is set
// when the roster is odd: that participant advances without a match row.
type Bracket struct {
	Pairings         []Pairing
	ByeParticipantID *int
}

// Generator produces the first round of matches for one tournament format.
// Later rounds come from the advancement helpers, which need match history.
type Generator interface {
	Generate(participants []*models.Participant) (*Bracket, error)
	Format() models.TournamentFormat
}

// NewGenerator returns the generator for the given format.
func NewGenerator(format models.TournamentFormat) (Generator, error) {
	switch format {
	case models.FormatSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.FormatDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	case models.FormatRoundRobin:
		return NewRoundRobinGenerator(), nil
	case models.FormatSwiss:
		return NewSwissGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported tournament format %q", format)
	}
}

// pairSequential pairs ids in order (1v2, 3v4, ...) into the given round and
// bracket. An odd trailing id becomes the bye.
func pairSequential(ids []int, round int, bracket models.MatchBracket) ([]Pairing, *int) {
	pairings := make([]Pairing, 0, len(ids)/2)
	for i := 0; i+1 < len(ids); i += 2 {
		pairings = append(pairings, Pairing{
			Round:       round,
			MatchNumber: len(pairings) + 1,
			Bracket:     bracket,
			Player1ID:   ids[i],
			Player2ID:   ids[i+1],
		})
	}
	if len(ids)%2 == 1 {
		bye := ids[len(ids)-1]
		return pairings, &bye
	}
	return pairings, nil
}

// PairKey normalizes a participant pair so either ordering maps to the same
// history entry.
func PairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
