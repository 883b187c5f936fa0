package brackets

import (
	"math/rand"
	"sort"

	"github.com/spinhall/tournament-engine/models"
)

// DoubleEliminationGenerator produces a round 1 identical to single
// elimination; every match is tagged with the winners bracket. The losers
// bracket is not laid out up front — it fills lazily as losses occur, one
// wave per round, via PairLosersPool.
type DoubleEliminationGenerator struct {
	rng *rand.Rand
}

func NewDoubleEliminationGenerator() *DoubleEliminationGenerator {
	return &DoubleEliminationGenerator{}
}

func NewSeededDoubleEliminationGenerator(seed int64) *DoubleEliminationGenerator {
	return &DoubleEliminationGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DoubleEliminationGenerator) Format() models.TournamentFormat {
	return models.FormatDoubleElimination
}

func (g *DoubleEliminationGenerator) Generate(participants []*models.Participant) (*Bracket, error) {
	se := &SingleEliminationGenerator{rng: g.rng}
	bracket, err := se.Generate(participants)
	if err != nil {
		return nil, err
	}
	return bracket, nil
}

// LosersPoolEntry is one participant still alive in the losers bracket,
// carried with enough state to order the pool deterministically.
type LosersPoolEntry struct {
	ParticipantID int
	Points        int
	Seed          int
}

// PairLosersPool pairs the losers pool for one wave: survivors of the
// previous losers round together with the players just dropped from the
// winners bracket. The pool is ordered by (points desc, seed asc) and paired
// sequentially; an odd pool leaves one entry waiting with a bye into the next
// wave.
func PairLosersPool(pool []LosersPoolEntry, round int) ([]Pairing, *int) {
	ordered := make([]LosersPoolEntry, len(pool))
	copy(ordered, pool)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Points != ordered[j].Points {
			return ordered[i].Points > ordered[j].Points
		}
		return ordered[i].Seed < ordered[j].Seed
	})

	ids := make([]int, len(ordered))
	for i, e := range ordered {
		ids[i] = e.ParticipantID
	}
	return pairSequential(ids, round, models.BracketLosers)
}

// GrandFinal builds the single deciding match once exactly one finalist
// remains in each bracket. There is no bracket reset: one match settles the
// tournament regardless of which side the loss would come from.
func GrandFinal(winnersFinalistID, losersFinalistID, round int) Pairing {
	return Pairing{
		Round:       round,
		MatchNumber: 1,
		Bracket:     models.BracketGrandFinal,
		Player1ID:   winnersFinalistID,
		Player2ID:   losersFinalistID,
	}
}
