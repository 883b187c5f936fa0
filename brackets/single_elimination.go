package brackets

import (
	"math"
	"math/rand"

	"github.com/spinhall/tournament-engine/models"
)

// SingleEliminationGenerator shuffles the roster and pairs it sequentially.
// With an odd count the last unpaired participant receives a bye.
type SingleEliminationGenerator struct {
	rng *rand.Rand
}

func NewSingleEliminationGenerator() *SingleEliminationGenerator {
	return &SingleEliminationGenerator{}
}

// NewSeededSingleEliminationGenerator fixes the shuffle order, mainly for tests.
func NewSeededSingleEliminationGenerator(seed int64) *SingleEliminationGenerator {
	return &SingleEliminationGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *SingleEliminationGenerator) Format() models.TournamentFormat {
	return models.FormatSingleElimination
}

func (g *SingleEliminationGenerator) Generate(participants []*models.Participant) (*Bracket, error) {
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}

	ids := make([]int, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	shuffle := rand.Shuffle
	if g.rng != nil {
		shuffle = g.rng.Shuffle
	}
	shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	pairings, bye := pairSequential(ids, 1, models.BracketWinners)
	return &Bracket{Pairings: pairings, ByeParticipantID: bye}, nil
}

// RoundCount is the number of rounds a single elimination bracket needs for
// n participants: ceil(log2 n).
func RoundCount(n int) int {
	if n < 2 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(n))))
}

// PairWinners builds the next single-elimination round from the survivors of
// the previous one, already ordered (winners in match order, bye holder last).
// A single survivor means the bracket is decided and no pairings are returned.
func PairWinners(survivorIDs []int, round int) ([]Pairing, *int) {
	if len(survivorIDs) < 2 {
		return nil, nil
	}
	return pairSequential(survivorIDs, round, models.BracketWinners)
}
