package brackets

import "github.com/spinhall/tournament-engine/models"

// RoundRobinGenerator schedules every unordered pair exactly once. All
// n(n-1)/2 matches are tagged round 1; the tournament completes when the
// last of them does, so there is no advancement phase.
type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() *RoundRobinGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Format() models.TournamentFormat {
	return models.FormatRoundRobin
}

func (g *RoundRobinGenerator) Generate(participants []*models.Participant) (*Bracket, error) {
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}

	n := len(participants)
	pairings := make([]Pairing, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairings = append(pairings, Pairing{
				Round:       1,
				MatchNumber: len(pairings) + 1,
				Bracket:     models.BracketWinners,
				Player1ID:   participants[i].ID,
				Player2ID:   participants[j].ID,
			})
		}
	}
	return &Bracket{Pairings: pairings}, nil
}

// RoundRobinMatchCount is the total schedule size for n participants.
func RoundRobinMatchCount(n int) int {
	return n * (n - 1) / 2
}
