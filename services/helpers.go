package services

import (
	"context"
	"sort"
	"time"

	"github.com/spinhall/tournament-engine/brackets"
	"github.com/spinhall/tournament-engine/models"
	"github.com/spinhall/tournament-engine/repositories"
)

// matchWinPoints is the fixed score a match win is worth in standings.
const matchWinPoints = 3

func insertPairings(ctx context.Context, exec repositories.SQLExecutor, matchRepo repositories.MatchRepository, tournamentID int, pairings []brackets.Pairing, scheduledTime *time.Time) ([]*models.Match, error) {
	created := make([]*models.Match, 0, len(pairings))
	for _, pairing := range pairings {
		match := &models.Match{
			TournamentID:  tournamentID,
			Round:         pairing.Round,
			MatchNumber:   pairing.MatchNumber,
			Bracket:       pairing.Bracket,
			Player1ID:     pairing.Player1ID,
			Player2ID:     pairing.Player2ID,
			Status:        models.MatchPending,
			ScheduledTime: scheduledTime,
		}
		if err := matchRepo.Create(ctx, exec, match); err != nil {
			return nil, err
		}
		created = append(created, match)
	}
	return created, nil
}

// rankParticipants orders participants for final standings: points desc,
// wins desc, losses asc, seed asc as the stable tie-break.
func rankParticipants(participants []*models.Participant) []*models.Participant {
	ranked := make([]*models.Participant, len(participants))
	copy(ranked, participants)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Points != ranked[j].Points {
			return ranked[i].Points > ranked[j].Points
		}
		if ranked[i].Wins != ranked[j].Wins {
			return ranked[i].Wins > ranked[j].Wins
		}
		if ranked[i].Losses != ranked[j].Losses {
			return ranked[i].Losses < ranked[j].Losses
		}
		return ranked[i].Seed < ranked[j].Seed
	})
	return ranked
}

// playedPairs collects every pairing that has occurred, in either ordering.
func playedPairs(matches []*models.Match) map[[2]int]struct{} {
	played := make(map[[2]int]struct{}, len(matches))
	for _, m := range matches {
		played[brackets.PairKey(m.Player1ID, m.Player2ID)] = struct{}{}
	}
	return played
}

func participantsByID(participants []*models.Participant) map[int]*models.Participant {
	byID := make(map[int]*models.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}
	return byID
}
