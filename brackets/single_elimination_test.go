package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinhall/tournament-engine/models"
)

func makeParticipants(n int) []*models.Participant {
	out := make([]*models.Participant, n)
	for i := 0; i < n; i++ {
		out[i] = &models.Participant{
			ID:     100 + i,
			UserID: 1000 + i,
			Seed:   i + 1,
			Status: models.ParticipantActive,
		}
	}
	return out
}

func collectPlayers(t *testing.T, pairings []Pairing) map[int]int {
	t.Helper()
	counts := make(map[int]int)
	for _, p := range pairings {
		require.NotEqual(t, p.Player1ID, p.Player2ID, "a participant cannot play itself")
		counts[p.Player1ID]++
		counts[p.Player2ID]++
	}
	return counts
}

func TestSingleEliminationGenerate(t *testing.T) {
	t.Run("even roster pairs everyone with no bye", func(t *testing.T) {
		gen := NewSeededSingleEliminationGenerator(42)
		bracket, err := gen.Generate(makeParticipants(8))
		require.NoError(t, err)

		assert.Len(t, bracket.Pairings, 4)
		assert.Nil(t, bracket.ByeParticipantID)

		counts := collectPlayers(t, bracket.Pairings)
		assert.Len(t, counts, 8)
		for id, c := range counts {
			assert.Equalf(t, 1, c, "participant %d paired %d times", id, c)
		}
	})

	t.Run("odd roster leaves exactly one bye", func(t *testing.T) {
		gen := NewSeededSingleEliminationGenerator(7)
		bracket, err := gen.Generate(makeParticipants(5))
		require.NoError(t, err)

		assert.Len(t, bracket.Pairings, 2)
		require.NotNil(t, bracket.ByeParticipantID)

		counts := collectPlayers(t, bracket.Pairings)
		assert.Len(t, counts, 4)
		assert.NotContains(t, counts, *bracket.ByeParticipantID)
	})

	t.Run("round numbering and bracket tag", func(t *testing.T) {
		gen := NewSeededSingleEliminationGenerator(1)
		bracket, err := gen.Generate(makeParticipants(4))
		require.NoError(t, err)

		for i, p := range bracket.Pairings {
			assert.Equal(t, 1, p.Round)
			assert.Equal(t, i+1, p.MatchNumber)
			assert.Equal(t, models.BracketWinners, p.Bracket)
		}
	})

	t.Run("rejects fewer than two participants", func(t *testing.T) {
		gen := NewSingleEliminationGenerator()
		_, err := gen.Generate(makeParticipants(1))
		assert.ErrorIs(t, err, ErrNotEnoughParticipants)

		_, err = gen.Generate(nil)
		assert.ErrorIs(t, err, ErrNotEnoughParticipants)
	})
}

func TestRoundCount(t *testing.T) {
	cases := map[int]int{2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4, 16: 4, 17: 5}
	for n, want := range cases {
		assert.Equalf(t, want, RoundCount(n), "RoundCount(%d)", n)
	}
	assert.Equal(t, 0, RoundCount(1))
}

func TestPairWinners(t *testing.T) {
	t.Run("even survivors pair in order", func(t *testing.T) {
		pairings, bye := PairWinners([]int{11, 22, 33, 44}, 3)
		require.Len(t, pairings, 2)
		assert.Nil(t, bye)

		assert.Equal(t, 11, pairings[0].Player1ID)
		assert.Equal(t, 22, pairings[0].Player2ID)
		assert.Equal(t, 33, pairings[1].Player1ID)
		assert.Equal(t, 44, pairings[1].Player2ID)
		assert.Equal(t, 3, pairings[0].Round)
	})

	t.Run("odd survivors give the last one a bye", func(t *testing.T) {
		pairings, bye := PairWinners([]int{11, 22, 33}, 2)
		require.Len(t, pairings, 1)
		require.NotNil(t, bye)
		assert.Equal(t, 33, *bye)
	})

	t.Run("a single survivor ends the bracket", func(t *testing.T) {
		pairings, bye := PairWinners([]int{11}, 4)
		assert.Empty(t, pairings)
		assert.Nil(t, bye)
	})
}
