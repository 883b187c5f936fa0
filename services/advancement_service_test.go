package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinhall/tournament-engine/models"
	"github.com/spinhall/tournament-engine/repositories"
)

func matchesInRound(t *testing.T, env *testEnv, tournamentID, round int) []*models.Match {
	t.Helper()
	matches, err := env.matches.ListByTournament(context.Background(), tournamentID, repositories.ListMatchesFilter{Round: &round})
	require.NoError(t, err)
	return matches
}

func assertCompleted(t *testing.T, env *testEnv, tournamentID int) *models.Tournament {
	t.Helper()
	got, err := env.tournaments.GetTournament(context.Background(), tournamentID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.WinnerParticipantID)
	require.NotNil(t, got.EndTime)

	winners := 0
	positions := make(map[int]bool)
	for _, p := range got.Participants {
		require.NotNilf(t, p.Position, "participant %d missing final position", p.ID)
		assert.Falsef(t, positions[*p.Position], "duplicate final position %d", *p.Position)
		positions[*p.Position] = true
		if p.Status == models.ParticipantWinner {
			winners++
			assert.Equal(t, 1, *p.Position)
			assert.Equal(t, *got.WinnerParticipantID, p.ID)
		}
	}
	assert.Equal(t, 1, winners, "exactly one participant carries the winner status")
	return got
}

func TestSingleEliminationFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("four players, two rounds to a champion", func(t *testing.T) {
		env := newTestEnv()
		tournament := startedTournament(t, env, models.FormatSingleElimination, 4)

		require.Len(t, matchesInRound(t, env, tournament.ID, 1), 2)
		require.NoError(t, env.finishRound(ctx, tournament.ID, 1, nil))

		require.Len(t, matchesInRound(t, env, tournament.ID, 2), 1, "two winners meet in the final")
		require.NoError(t, env.finishRound(ctx, tournament.ID, 2, nil))

		got := assertCompleted(t, env, tournament.ID)
		final := matchesInRound(t, env, tournament.ID, 2)[0]
		require.NotNil(t, final.WinnerID)
		assert.Equal(t, *final.WinnerID, *got.WinnerParticipantID)
		assert.Equal(t, 1, env.notifier.countEvents("tournament_completed"))
	})

	t.Run("five players, the bye holder rejoins the field", func(t *testing.T) {
		env := newTestEnv()
		tournament := startedTournament(t, env, models.FormatSingleElimination, 5)

		require.Len(t, matchesInRound(t, env, tournament.ID, 1), 2)
		require.NoError(t, env.finishRound(ctx, tournament.ID, 1, nil))

		require.Len(t, matchesInRound(t, env, tournament.ID, 2), 1)
		require.NoError(t, env.finishRound(ctx, tournament.ID, 2, nil))

		require.Len(t, matchesInRound(t, env, tournament.ID, 3), 1)
		require.NoError(t, env.finishRound(ctx, tournament.ID, 3, nil))

		assertCompleted(t, env, tournament.ID)
	})

	t.Run("losers are eliminated as rounds close", func(t *testing.T) {
		env := newTestEnv()
		tournament := startedTournament(t, env, models.FormatSingleElimination, 4)
		require.NoError(t, env.finishRound(ctx, tournament.ID, 1, nil))

		got, _ := env.tournaments.GetTournament(ctx, tournament.ID)
		eliminated := 0
		for _, p := range got.Participants {
			if p.Status == models.ParticipantEliminated {
				eliminated++
			}
		}
		assert.Equal(t, 2, eliminated)
	})

	t.Run("advancement fires exactly once per round", func(t *testing.T) {
		env := newTestEnv()
		tournament := startedTournament(t, env, models.FormatSingleElimination, 4)
		require.NoError(t, env.finishRound(ctx, tournament.ID, 1, nil))

		err := env.advancement.OnMatchCompleted(ctx, tournament.ID, 1)
		assert.ErrorIs(t, err, ErrRoundAlreadyAdvanced)
		assert.Len(t, matchesInRound(t, env, tournament.ID, 2), 1, "no duplicate round two")
	})
}

func TestDoubleEliminationFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("four players fight through both brackets to a grand final", func(t *testing.T) {
		env := newTestEnv()
		tournament := startedTournament(t, env, models.FormatDoubleElimination, 4)

		// Wave 1: two winners bracket matches.
		round1 := matchesInRound(t, env, tournament.ID, 1)
		require.Len(t, round1, 2)
		require.NoError(t, env.finishRound(ctx, tournament.ID, 1, nil))

		// Wave 2: winners final plus the first losers match.
		round2 := matchesInRound(t, env, tournament.ID, 2)
		require.Len(t, round2, 2)
		brackets2 := map[models.MatchBracket]int{}
		for _, m := range round2 {
			brackets2[m.Bracket]++
		}
		assert.Equal(t, 1, brackets2[models.BracketWinners])
		assert.Equal(t, 1, brackets2[models.BracketLosers])
		require.NoError(t, env.finishRound(ctx, tournament.ID, 2, nil))

		// Wave 3: losers final between the winners-final loser and the
		// losers-bracket survivor. A first loss is not an elimination.
		round3 := matchesInRound(t, env, tournament.ID, 3)
		require.Len(t, round3, 1)
		assert.Equal(t, models.BracketLosers, round3[0].Bracket)
		require.NoError(t, env.finishRound(ctx, tournament.ID, 3, nil))

		// Wave 4: one finalist per bracket, single grand final.
		require.Len(t, matchesInRound(t, env, tournament.ID, 4), 1)
		assert.Equal(t, models.BracketGrandFinal, matchesInRound(t, env, tournament.ID, 4)[0].Bracket)
		require.NoError(t, env.finishRound(ctx, tournament.ID, 4, nil))

		got := assertCompleted(t, env, tournament.ID)
		grandFinal := matchesInRound(t, env, tournament.ID, 4)[0]
		require.NotNil(t, grandFinal.WinnerID)
		assert.Equal(t, *grandFinal.WinnerID, *got.WinnerParticipantID)
	})

	t.Run("a second loss eliminates", func(t *testing.T) {
		env := newTestEnv()
		tournament := startedTournament(t, env, models.FormatDoubleElimination, 4)
		require.NoError(t, env.finishRound(ctx, tournament.ID, 1, nil))
		require.NoError(t, env.finishRound(ctx, tournament.ID, 2, nil))

		got, _ := env.tournaments.GetTournament(ctx, tournament.ID)
		for _, p := range got.Participants {
			if p.Losses >= 2 {
				assert.Equal(t, models.ParticipantEliminated, p.Status)
			} else {
				assert.Truef(t, p.InPlay(), "participant %d with %d losses must stay in play", p.ID, p.Losses)
			}
		}
	})
}

func TestRoundRobinFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("completes when the full schedule is played", func(t *testing.T) {
		env := newTestEnv()
		tournament := startedTournament(t, env, models.FormatRoundRobin, 4)

		schedule := matchesInRound(t, env, tournament.ID, 1)
		require.Len(t, schedule, 6)

		// Lowest participant ID wins every match, producing a strict order.
		winner := func(m *models.Match) int {
			if m.Player1ID < m.Player2ID {
				return m.Player1ID
			}
			return m.Player2ID
		}
		require.NoError(t, env.finishRound(ctx, tournament.ID, 1, winner))

		got := assertCompleted(t, env, tournament.ID)
		champion := *got.WinnerParticipantID
		for _, p := range got.Participants {
			if p.ID == champion {
				assert.Equal(t, 3, p.Wins, "the champion beat everyone")
			}
		}
	})
}

func TestSwissFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("plays the fixed round count then settles on standings", func(t *testing.T) {
		env := newTestEnv()
		tournament := startedTournament(t, env, models.FormatSwiss, 4)

		got, _ := env.tournaments.GetTournament(ctx, tournament.ID)
		totalRounds := got.SwissRounds
		require.Equal(t, 4, totalRounds)

		winner := func(m *models.Match) int {
			if m.Player1ID < m.Player2ID {
				return m.Player1ID
			}
			return m.Player2ID
		}
		for round := 1; round <= totalRounds; round++ {
			require.Lenf(t, matchesInRound(t, env, tournament.ID, round), 2, "round %d", round)
			require.NoError(t, env.finishRound(ctx, tournament.ID, round, winner))
		}

		finished := assertCompleted(t, env, tournament.ID)
		champion := *finished.WinnerParticipantID
		for _, p := range finished.Participants {
			if p.ID == champion {
				assert.Equal(t, totalRounds, p.Wins)
			}
		}
	})

	t.Run("round two avoids round one rematches", func(t *testing.T) {
		env := newTestEnv()
		tournament := startedTournament(t, env, models.FormatSwiss, 8)

		round1 := matchesInRound(t, env, tournament.ID, 1)
		require.Len(t, round1, 4)
		played := make(map[[2]int]bool)
		for _, m := range round1 {
			a, b := m.Player1ID, m.Player2ID
			if a > b {
				a, b = b, a
			}
			played[[2]int{a, b}] = true
		}
		require.NoError(t, env.finishRound(ctx, tournament.ID, 1, nil))

		for _, m := range matchesInRound(t, env, tournament.ID, 2) {
			a, b := m.Player1ID, m.Player2ID
			if a > b {
				a, b = b, a
			}
			assert.Falsef(t, played[[2]int{a, b}], "rematch %d vs %d in round two", a, b)
		}
	})

	t.Run("odd roster rotates a scoring bye", func(t *testing.T) {
		env := newTestEnv()
		tournament := startedTournament(t, env, models.FormatSwiss, 5)
		require.NoError(t, env.finishRound(ctx, tournament.ID, 1, nil))

		// Round one played 2 matches; 2 winners plus the bye hold one win each.
		got, _ := env.tournaments.GetTournament(ctx, tournament.ID)
		withWin := 0
		for _, p := range got.Participants {
			if p.Wins >= 1 {
				withWin++
			}
		}
		assert.Equal(t, 4, withWin, "two match winners and two byes carry wins")
	})
}
