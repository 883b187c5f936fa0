package brackets

import (
	"math"
	"sort"

	"github.com/spinhall/tournament-engine/models"
)

// SwissGenerator pairs round 1 in seed order (1v2, 3v4, ...). There is no
// result history yet, so seeding is the only signal.
type SwissGenerator struct{}

func NewSwissGenerator() *SwissGenerator {
	return &SwissGenerator{}
}

func (g *SwissGenerator) Format() models.TournamentFormat {
	return models.FormatSwiss
}

func (g *SwissGenerator) Generate(participants []*models.Participant) (*Bracket, error) {
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}

	ordered := make([]*models.Participant, len(participants))
	copy(ordered, participants)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Seed < ordered[j].Seed
	})

	ids := make([]int, len(ordered))
	for i, p := range ordered {
		ids[i] = p.ID
	}
	pairings, bye := pairSequential(ids, 1, models.BracketWinners)
	return &Bracket{Pairings: pairings, ByeParticipantID: bye}, nil
}

// SwissRoundCount is the fixed number of swiss rounds for n participants,
// computed once at tournament start: ceil(log2 n) * 2.
func SwissRoundCount(n int) int {
	if n < 2 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(n)))) * 2
}

// SwissStanding is the per-participant score snapshot used for pairing.
type SwissStanding struct {
	ParticipantID int
	Points        int
	Wins          int
	Seed          int
}

// PairSwissRound pairs one later swiss round. Standings are sorted by
// (points desc, wins desc, seed asc); with an odd roster the bottom
// participant sits out with a bye. Each remaining participant is matched to
// the nearest lower-ranked opponent it has not met; when every candidate is a
// rematch the nearest one is accepted rather than failing the round. Since
// the scan runs down the sorted order, "nearest" is exactly the nearest score
// bracket with seed as the deterministic tie-break.
func PairSwissRound(standings []SwissStanding, played map[[2]int]struct{}, round int) ([]Pairing, *int) {
	ordered := make([]SwissStanding, len(standings))
	copy(ordered, standings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Points != ordered[j].Points {
			return ordered[i].Points > ordered[j].Points
		}
		if ordered[i].Wins != ordered[j].Wins {
			return ordered[i].Wins > ordered[j].Wins
		}
		return ordered[i].Seed < ordered[j].Seed
	})

	var bye *int
	if len(ordered)%2 == 1 {
		id := ordered[len(ordered)-1].ParticipantID
		bye = &id
		ordered = ordered[:len(ordered)-1]
	}

	used := make([]bool, len(ordered))
	pairings := make([]Pairing, 0, len(ordered)/2)
	for i := range ordered {
		if used[i] {
			continue
		}
		opponent := -1
		for j := i + 1; j < len(ordered); j++ {
			if used[j] {
				continue
			}
			if _, met := played[PairKey(ordered[i].ParticipantID, ordered[j].ParticipantID)]; !met {
				opponent = j
				break
			}
		}
		if opponent == -1 {
			// Every remaining candidate is a rematch; take the nearest.
			for j := i + 1; j < len(ordered); j++ {
				if !used[j] {
					opponent = j
					break
				}
			}
		}
		if opponent == -1 {
			break
		}
		used[i], used[opponent] = true, true
		pairings = append(pairings, Pairing{
			Round:       round,
			MatchNumber: len(pairings) + 1,
			Bracket:     models.BracketWinners,
			Player1ID:   ordered[i].ParticipantID,
			Player2ID:   ordered[opponent].ParticipantID,
		})
	}
	return pairings, bye
}
