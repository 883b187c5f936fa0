package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/spinhall/tournament-engine/brackets"
	"github.com/spinhall/tournament-engine/economy"
	"github.com/spinhall/tournament-engine/models"
	"github.com/spinhall/tournament-engine/repositories"
)

// AdvancementService closes out a finished round: eliminations, the next
// round's pairings, and tournament completion when a champion emerges.
type AdvancementService interface {
	OnMatchCompleted(ctx context.Context, tournamentID, round int) error
}

type advancementService struct {
	transactor      repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	roundRepo       repositories.RoundRepository
	prizes          PrizeService
	notifier        economy.Notifier
	logger          *slog.Logger
}

func NewAdvancementService(
	transactor repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	roundRepo repositories.RoundRepository,
	prizes PrizeService,
	notifier economy.Notifier,
	logger *slog.Logger,
) AdvancementService {
	return &advancementService{
		transactor:      transactor,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		roundRepo:       roundRepo,
		prizes:          prizes,
		notifier:        notifier,
		logger:          logger,
	}
}

// OnMatchCompleted checks whether the round is finished and, if so, advances
// it. The open -> advanced flip on the round marker is conditional, so when
// several result reports see the round finished at the same time only one of
// them builds the next round.
func (s *advancementService) OnMatchCompleted(ctx context.Context, tournamentID, round int) error {
	unfinished, err := s.matchRepo.CountUnfinished(ctx, nil, tournamentID, round)
	if err != nil {
		return err
	}
	if unfinished > 0 {
		return nil
	}
	// Late duplicate reports for an already-closed round stop here instead
	// of opening a transaction; the conditional flip below still guards the
	// race between two reports that both pass this check.
	marker, err := s.roundRepo.Get(ctx, nil, tournamentID, round)
	if err != nil && !errors.Is(err, repositories.ErrRoundNotFound) {
		return err
	}
	if marker != nil && marker.Status == models.RoundAdvanced {
		return ErrRoundAlreadyAdvanced
	}

	var completed *completionResult

	err = s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if tournament.Status != models.StatusInProgress {
			return ErrRoundAlreadyAdvanced
		}

		won, err := s.roundRepo.TryAdvance(ctx, exec, tournamentID, round)
		if err != nil {
			return err
		}
		if !won {
			return ErrRoundAlreadyAdvanced
		}

		participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID, nil)
		if err != nil {
			return err
		}
		matches, err := s.matchRepo.ListByTournament(ctx, exec, tournamentID, repositories.ListMatchesFilter{})
		if err != nil {
			return err
		}

		switch tournament.Format {
		case models.FormatSingleElimination:
			completed, err = s.advanceSingleElimination(ctx, exec, tournament, round, participants, matches)
		case models.FormatDoubleElimination:
			completed, err = s.advanceDoubleElimination(ctx, exec, tournament, round, participants, matches)
		case models.FormatRoundRobin:
			completed, err = s.completeByStandings(ctx, exec, tournament, participants)
		case models.FormatSwiss:
			completed, err = s.advanceSwiss(ctx, exec, tournament, round, participants, matches)
		default:
			err = fmt.Errorf("unsupported tournament format %q", tournament.Format)
		}
		return err
	})
	if err != nil {
		return err
	}

	if completed != nil {
		s.logger.Info("tournament completed",
			slog.Int("tournament_id", tournamentID),
			slog.Int("champion_participant_id", completed.championID))
		s.notifier.NotifyTournament(tournamentID, "tournament_completed", map[string]interface{}{
			"tournament_id":           tournamentID,
			"champion_participant_id": completed.championID,
		})
		if err := s.prizes.Distribute(ctx, tournamentID); err != nil {
			s.logger.Error("prize distribution failed",
				slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		}
	} else {
		s.notifier.NotifyTournament(tournamentID, "round_advanced", map[string]interface{}{
			"tournament_id": tournamentID,
			"round":         round + 1,
		})
	}
	return nil
}

type completionResult struct {
	championID int
}

// roundMatches filters one round's matches, ordered by bracket and match
// number so winner ordering is deterministic.
func roundMatches(matches []*models.Match, round int) []*models.Match {
	out := make([]*models.Match, 0, len(matches))
	for _, m := range matches {
		if m.Round == round {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Bracket != out[j].Bracket {
			return out[i].Bracket < out[j].Bracket
		}
		return out[i].MatchNumber < out[j].MatchNumber
	})
	return out
}

func (s *advancementService) advanceSingleElimination(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	round int,
	participants []*models.Participant,
	matches []*models.Match,
) (*completionResult, error) {
	byID := participantsByID(participants)
	played := make(map[int]struct{})
	survivors := make([]int, 0, len(participants))

	for _, m := range roundMatches(matches, round) {
		played[m.Player1ID] = struct{}{}
		played[m.Player2ID] = struct{}{}
		if m.Status != models.MatchCompleted || m.WinnerID == nil {
			continue
		}
		survivors = append(survivors, *m.WinnerID)
		if loserID := m.LoserID(); loserID != nil {
			if err := s.participantRepo.UpdateStatus(ctx, exec, *loserID, models.ParticipantEliminated); err != nil {
				return nil, err
			}
		}
	}
	// A bye holder sat this round out and rejoins the field behind the
	// winners.
	for _, p := range participants {
		if _, ok := played[p.ID]; ok {
			continue
		}
		if p.InPlay() && p.CurrentRound > round {
			survivors = append(survivors, p.ID)
		}
	}

	if len(survivors) == 1 {
		return s.complete(ctx, exec, tournament, survivors[0], participants)
	}

	pairings, byeID := brackets.PairWinners(survivors, round+1)
	if err := s.insertNextRound(ctx, exec, tournament, round+1, pairings); err != nil {
		return nil, err
	}
	for _, id := range survivors {
		next := round + 1
		if byeID != nil && id == *byeID {
			next = round + 2
		}
		if byID[id] != nil && byID[id].CurrentRound != next {
			if err := s.participantRepo.SetCurrentRound(ctx, exec, id, next); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

// advanceDoubleElimination runs both brackets in lockstep waves. Bracket
// membership falls out of the loss count: zero losses is the winners
// bracket, one is the losers bracket, two is out of the tournament.
func (s *advancementService) advanceDoubleElimination(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	round int,
	participants []*models.Participant,
	matches []*models.Match,
) (*completionResult, error) {
	thisRound := roundMatches(matches, round)
	for _, m := range thisRound {
		if m.Bracket == models.BracketGrandFinal && m.Status == models.MatchCompleted && m.WinnerID != nil {
			return s.complete(ctx, exec, tournament, *m.WinnerID, participants)
		}
	}

	played := make(map[int]struct{})
	for _, m := range thisRound {
		played[m.Player1ID] = struct{}{}
		played[m.Player2ID] = struct{}{}
	}

	var winnersPool []int
	var losersPool []brackets.LosersPoolEntry
	for _, p := range participants {
		if !p.InPlay() {
			continue
		}
		switch {
		case p.Losses == 0:
			winnersPool = append(winnersPool, p.ID)
		case p.Losses == 1:
			losersPool = append(losersPool, brackets.LosersPoolEntry{
				ParticipantID: p.ID,
				Points:        p.Points,
				Seed:          p.Seed,
			})
		default:
			if err := s.participantRepo.UpdateStatus(ctx, exec, p.ID, models.ParticipantEliminated); err != nil {
				return nil, err
			}
		}
	}
	// Winners still standing are ordered by their match this wave; bye
	// holders go to the back.
	winnersPool = orderByRoundResults(winnersPool, thisRound)

	if len(winnersPool) == 1 && len(losersPool) == 1 {
		final := brackets.GrandFinal(winnersPool[0], losersPool[0].ParticipantID, round+1)
		if err := s.insertNextRound(ctx, exec, tournament, round+1, []brackets.Pairing{final}); err != nil {
			return nil, err
		}
		for _, id := range []int{winnersPool[0], losersPool[0].ParticipantID} {
			if err := s.participantRepo.SetCurrentRound(ctx, exec, id, round+1); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	if len(winnersPool)+len(losersPool) == 1 {
		championID := 0
		if len(winnersPool) == 1 {
			championID = winnersPool[0]
		} else {
			championID = losersPool[0].ParticipantID
		}
		return s.complete(ctx, exec, tournament, championID, participants)
	}

	wbPairings, wbBye := brackets.PairWinners(winnersPool, round+1)
	lbPairings, lbBye := brackets.PairLosersPool(losersPool, round+1)
	next := append(wbPairings, lbPairings...)
	if err := s.insertNextRound(ctx, exec, tournament, round+1, next); err != nil {
		return nil, err
	}

	advance := func(id int, bye *int) error {
		target := round + 1
		if bye != nil && id == *bye {
			target = round + 2
		}
		return s.participantRepo.SetCurrentRound(ctx, exec, id, target)
	}
	for _, id := range winnersPool {
		if err := advance(id, wbBye); err != nil {
			return nil, err
		}
	}
	for _, entry := range losersPool {
		if err := advance(entry.ParticipantID, lbBye); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// orderByRoundResults returns ids reordered so match winners come first, in
// match order, followed by ids that did not play this round.
func orderByRoundResults(ids []int, thisRound []*models.Match) []int {
	inPool := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		inPool[id] = struct{}{}
	}
	ordered := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, m := range thisRound {
		if m.WinnerID == nil {
			continue
		}
		if _, ok := inPool[*m.WinnerID]; ok {
			ordered = append(ordered, *m.WinnerID)
			seen[*m.WinnerID] = struct{}{}
		}
	}
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			ordered = append(ordered, id)
		}
	}
	return ordered
}

func (s *advancementService) advanceSwiss(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	round int,
	participants []*models.Participant,
	matches []*models.Match,
) (*completionResult, error) {
	totalRounds := tournament.SwissRounds
	if round >= totalRounds {
		ranked := rankParticipants(participants)
		return s.complete(ctx, exec, tournament, ranked[0].ID, participants)
	}

	standings := make([]brackets.SwissStanding, 0, len(participants))
	for _, p := range participants {
		if !p.InPlay() {
			continue
		}
		standings = append(standings, brackets.SwissStanding{
			ParticipantID: p.ID,
			Points:        p.Points,
			Wins:          p.Wins,
			Seed:          p.Seed,
		})
	}

	pairings, byeID := brackets.PairSwissRound(standings, playedPairs(matches), round+1)
	if err := s.insertNextRound(ctx, exec, tournament, round+1, pairings); err != nil {
		return nil, err
	}
	for _, st := range standings {
		if err := s.participantRepo.SetCurrentRound(ctx, exec, st.ParticipantID, round+1); err != nil {
			return nil, err
		}
	}
	// The odd player out scores the round as a free win.
	if byeID != nil {
		if err := s.participantRepo.AddWin(ctx, exec, *byeID, matchWinPoints); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (s *advancementService) completeByStandings(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	participants []*models.Participant,
) (*completionResult, error) {
	ranked := rankParticipants(participants)
	return s.complete(ctx, exec, tournament, ranked[0].ID, participants)
}

func (s *advancementService) insertNextRound(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, round int, pairings []brackets.Pairing) error {
	if _, err := insertPairings(ctx, exec, s.matchRepo, tournament.ID, pairings, nil); err != nil {
		return err
	}
	return s.roundRepo.Create(ctx, exec, tournament.ID, round)
}

func (s *advancementService) complete(
	ctx context.Context,
	exec repositories.SQLExecutor,
	tournament *models.Tournament,
	championID int,
	participants []*models.Participant,
) (*completionResult, error) {
	if err := s.prizes.Finalize(ctx, exec, tournament, championID, participants); err != nil {
		return nil, err
	}
	return &completionResult{championID: championID}, nil
}
