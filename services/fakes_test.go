package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spinhall/tournament-engine/economy"
	"github.com/spinhall/tournament-engine/models"
	"github.com/spinhall/tournament-engine/repositories"
	"github.com/spinhall/tournament-engine/storage"
)

// The fakes below back the service tests with an in-memory store. Every
// repository method takes the store lock, which gives each operation the
// same atomicity the SQL statements have in production.

type fakeStore struct {
	mu sync.Mutex

	tournaments  map[int]*models.Tournament
	participants map[int]*models.Participant
	matches      map[int]*models.Match
	rounds       map[[2]int]*models.TournamentRound
	prizes       map[int][]models.Prize

	nextTournamentID  int
	nextParticipantID int
	nextMatchID       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tournaments:       make(map[int]*models.Tournament),
		participants:      make(map[int]*models.Participant),
		matches:           make(map[int]*models.Match),
		rounds:            make(map[[2]int]*models.TournamentRound),
		prizes:            make(map[int][]models.Prize),
		nextTournamentID:  1,
		nextParticipantID: 1,
		nextMatchID:       1,
	}
}

// fakeTransactor serializes transactions and restores a snapshot of the
// store when fn fails, mirroring commit/rollback semantics.
type fakeTransactor struct {
	store *fakeStore
	txMu  *sync.Mutex
}

func (t fakeTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	t.txMu.Lock()
	defer t.txMu.Unlock()

	snap := t.store.snapshot()
	if err := fn(nil); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	tournaments  map[int]models.Tournament
	participants map[int]models.Participant
	matches      map[int]models.Match
	rounds       map[[2]int]models.TournamentRound
	prizes       map[int][]models.Prize

	nextTournamentID  int
	nextParticipantID int
	nextMatchID       int
}

func (s *fakeStore) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := storeSnapshot{
		tournaments:       make(map[int]models.Tournament, len(s.tournaments)),
		participants:      make(map[int]models.Participant, len(s.participants)),
		matches:           make(map[int]models.Match, len(s.matches)),
		rounds:            make(map[[2]int]models.TournamentRound, len(s.rounds)),
		prizes:            make(map[int][]models.Prize, len(s.prizes)),
		nextTournamentID:  s.nextTournamentID,
		nextParticipantID: s.nextParticipantID,
		nextMatchID:       s.nextMatchID,
	}
	for id, t := range s.tournaments {
		snap.tournaments[id] = *t
	}
	for id, p := range s.participants {
		snap.participants[id] = *p
	}
	for id, m := range s.matches {
		snap.matches[id] = *m
	}
	for key, r := range s.rounds {
		snap.rounds[key] = *r
	}
	for id, prizes := range s.prizes {
		snap.prizes[id] = append([]models.Prize(nil), prizes...)
	}
	return snap
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tournaments = make(map[int]*models.Tournament, len(snap.tournaments))
	for id, t := range snap.tournaments {
		cp := t
		s.tournaments[id] = &cp
	}
	s.participants = make(map[int]*models.Participant, len(snap.participants))
	for id, p := range snap.participants {
		cp := p
		s.participants[id] = &cp
	}
	s.matches = make(map[int]*models.Match, len(snap.matches))
	for id, m := range snap.matches {
		cp := m
		s.matches[id] = &cp
	}
	s.rounds = make(map[[2]int]*models.TournamentRound, len(snap.rounds))
	for key, r := range snap.rounds {
		cp := r
		s.rounds[key] = &cp
	}
	s.prizes = snap.prizes
	s.nextTournamentID = snap.nextTournamentID
	s.nextParticipantID = snap.nextParticipantID
	s.nextMatchID = snap.nextMatchID
}

// --- tournament repository ---

type fakeTournamentRepo struct{ store *fakeStore }

func (r *fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t.ID = r.store.nextTournamentID
	r.store.nextTournamentID++
	t.CreatedAt = time.Now()
	cp := *t
	r.store.tournaments[t.ID] = &cp
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Tournament
	for _, t := range r.store.tournaments {
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if t.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) ListByParticipantUser(ctx context.Context, userID int) ([]models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Tournament
	for _, p := range r.store.participants {
		if p.UserID == userID {
			if t, ok := r.store.tournaments[p.TournamentID]; ok {
				out = append(out, *t)
			}
		}
	}
	return out, nil
}

func (r *fakeTournamentRepo) ListDueForStart(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Tournament
	for _, t := range r.store.tournaments {
		if (t.Status == models.StatusUpcoming || t.Status == models.StatusRegistration) && !t.StartTime.After(now) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTournamentRepo) IncrementParticipants(ctx context.Context, exec repositories.SQLExecutor, id int) (int, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return 0, 0, repositories.ErrTournamentCapacityOrState
	}
	if t.Status != models.StatusUpcoming && t.Status != models.StatusRegistration {
		return 0, 0, repositories.ErrTournamentCapacityOrState
	}
	if t.CurrentParticipants >= t.MaxParticipants {
		return 0, 0, repositories.ErrTournamentCapacityOrState
	}
	t.CurrentParticipants++
	return t.CurrentParticipants, t.MaxParticipants, nil
}

func (r *fakeTournamentRepo) TryBeginStart(ctx context.Context, exec repositories.SQLExecutor, id int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return false, repositories.ErrTournamentNotFound
	}
	if t.Status != models.StatusUpcoming && t.Status != models.StatusRegistration {
		return false, nil
	}
	t.Status = models.StatusInProgress
	return true, nil
}

func (r *fakeTournamentRepo) TryOpenRegistration(ctx context.Context, exec repositories.SQLExecutor, id int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return false, repositories.ErrTournamentNotFound
	}
	if t.Status != models.StatusUpcoming {
		return false, nil
	}
	t.Status = models.StatusRegistration
	return true, nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) SetSwissRounds(ctx context.Context, exec repositories.SQLExecutor, id int, rounds int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.SwissRounds = rounds
	return nil
}

func (r *fakeTournamentRepo) Complete(ctx context.Context, exec repositories.SQLExecutor, id int, winnerParticipantID int, endTime time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.Status != models.StatusInProgress {
		return repositories.ErrTournamentCompleteDenied
	}
	t.Status = models.StatusCompleted
	t.WinnerParticipantID = &winnerParticipantID
	t.EndTime = &endTime
	return nil
}

func (r *fakeTournamentRepo) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BannerKey = bannerKey
	return nil
}

// --- participant repository ---

type fakeParticipantRepo struct{ store *fakeStore }

func (r *fakeParticipantRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.participants {
		if existing.TournamentID == p.TournamentID && existing.UserID == p.UserID {
			return repositories.ErrParticipantDuplicate
		}
	}
	p.ID = r.store.nextParticipantID
	r.store.nextParticipantID++
	p.RegisteredAt = time.Now()
	cp := *p
	r.store.participants[p.ID] = &cp
	return nil
}

func (r *fakeParticipantRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Participant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeParticipantRepo) FindByTournamentAndUser(ctx context.Context, tournamentID, userID int) (*models.Participant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.participants {
		if p.TournamentID == tournamentID && p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.Participant
	for id := 1; id < r.store.nextParticipantID; id++ {
		p, ok := r.store.participants[id]
		if !ok || p.TournamentID != tournamentID {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeParticipantRepo) ActivateRegistered(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.participants {
		if p.TournamentID == tournamentID && p.Status == models.ParticipantRegistered {
			p.Status = models.ParticipantActive
			p.CurrentRound = 1
		}
	}
	return nil
}

func (r *fakeParticipantRepo) AddWin(ctx context.Context, exec repositories.SQLExecutor, id int, points int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Wins++
	p.Points += points
	return nil
}

func (r *fakeParticipantRepo) AddLoss(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Losses++
	return nil
}

func (r *fakeParticipantRepo) SetCurrentRound(ctx context.Context, exec repositories.SQLExecutor, id int, round int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.CurrentRound = round
	return nil
}

func (r *fakeParticipantRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.ParticipantStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Status = status
	return nil
}

func (r *fakeParticipantRepo) SetFinalPosition(ctx context.Context, exec repositories.SQLExecutor, id int, position int, status models.ParticipantStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Position = &position
	p.Status = status
	return nil
}

// --- match repository ---

type fakeMatchRepo struct{ store *fakeStore }

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m.ID = r.store.nextMatchID
	r.store.nextMatchID++
	m.CreatedAt = time.Now()
	if m.Status == "" {
		m.Status = models.MatchPending
	}
	cp := *m
	r.store.matches[m.ID] = &cp
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, filter repositories.ListMatchesFilter) ([]*models.Match, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.Match
	for id := 1; id < r.store.nextMatchID; id++ {
		m, ok := r.store.matches[id]
		if !ok || m.TournamentID != tournamentID {
			continue
		}
		if filter.Round != nil && m.Round != *filter.Round {
			continue
		}
		if filter.Bracket != nil && m.Bracket != *filter.Bracket {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeMatchRepo) CountUnfinished(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, round int) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, m := range r.store.matches {
		if m.TournamentID == tournamentID && m.Round == round &&
			(m.Status == models.MatchPending || m.Status == models.MatchInProgress) {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) RecordResult(ctx context.Context, exec repositories.SQLExecutor, id int, winnerID int, score1, score2 int, completedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if m.Status != models.MatchPending && m.Status != models.MatchInProgress {
		return repositories.ErrMatchAlreadyScored
	}
	m.WinnerID = &winnerID
	m.Score1 = &score1
	m.Score2 = &score2
	m.Status = models.MatchCompleted
	m.CompletedAt = &completedAt
	return nil
}

// --- round repository ---

type fakeRoundRepo struct{ store *fakeStore }

func (r *fakeRoundRepo) Create(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := [2]int{tournamentID, round}
	if _, exists := r.store.rounds[key]; exists {
		return nil
	}
	r.store.rounds[key] = &models.TournamentRound{
		TournamentID: tournamentID,
		Round:        round,
		Status:       models.RoundOpen,
		CreatedAt:    time.Now(),
	}
	return nil
}

func (r *fakeRoundRepo) Get(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int) (*models.TournamentRound, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rd, ok := r.store.rounds[[2]int{tournamentID, round}]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	cp := *rd
	return &cp, nil
}

func (r *fakeRoundRepo) TryAdvance(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rd, ok := r.store.rounds[[2]int{tournamentID, round}]
	if !ok || rd.Status != models.RoundOpen {
		return false, nil
	}
	rd.Status = models.RoundAdvanced
	return true, nil
}

// --- prize repository ---

type fakePrizeRepo struct{ store *fakeStore }

func (r *fakePrizeRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, prizes []models.Prize) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored := make([]models.Prize, len(prizes))
	for i, p := range prizes {
		p.ID = i + 1
		p.TournamentID = tournamentID
		stored[i] = p
	}
	r.store.prizes[tournamentID] = stored
	return nil
}

func (r *fakePrizeRepo) ListByTournament(ctx context.Context, tournamentID int) ([]models.Prize, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]models.Prize(nil), r.store.prizes[tournamentID]...), nil
}

// --- economy fakes ---

type ledgerCall struct {
	UserID   int
	Amount   int64
	Currency economy.Currency
	Key      string
}

type fakeLedger struct {
	mu       sync.Mutex
	balances map[int]int64
	debits   []ledgerCall
	credits  []ledgerCall

	failCredits bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[int]int64)}
}

func (l *fakeLedger) setBalance(userID int, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = amount
}

func (l *fakeLedger) Debit(ctx context.Context, userID int, amount int64, currency economy.Currency, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[userID] < amount {
		return economy.ErrInsufficientFunds
	}
	l.balances[userID] -= amount
	l.debits = append(l.debits, ledgerCall{userID, amount, currency, key})
	return nil
}

func (l *fakeLedger) Credit(ctx context.Context, userID int, amount int64, currency economy.Currency, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failCredits {
		return fmt.Errorf("ledger unavailable")
	}
	l.balances[userID] += amount
	l.credits = append(l.credits, ledgerCall{userID, amount, currency, key})
	return nil
}

func (l *fakeLedger) creditTotal() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total int64
	for _, c := range l.credits {
		total += c.Amount
	}
	return total
}

type grantCall struct {
	UserID int
	ItemID string
	Qty    int
}

type fakeInventory struct {
	mu     sync.Mutex
	items  []grantCall
	crates []grantCall
}

func (f *fakeInventory) GrantItem(ctx context.Context, userID int, itemID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, grantCall{userID, itemID, qty})
	return nil
}

func (f *fakeInventory) GrantCrateKey(ctx context.Context, userID int, crateID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crates = append(f.crates, grantCall{userID, crateID, qty})
	return nil
}

type fakeBadges struct {
	mu     sync.Mutex
	badges []grantCall
}

func (f *fakeBadges) GrantBadge(ctx context.Context, userID int, badgeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.badges = append(f.badges, grantCall{UserID: userID, ItemID: badgeID})
	return nil
}

type notification struct {
	Kind         string
	UserID       int
	TournamentID int
	Event        string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (f *fakeNotifier) NotifyUser(userID int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, notification{Kind: "user", UserID: userID, Event: message})
}

func (f *fakeNotifier) NotifyGlobal(event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, notification{Kind: "global", Event: event})
}

func (f *fakeNotifier) NotifyTournament(tournamentID int, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, notification{Kind: "tournament", TournamentID: tournamentID, Event: event})
}

func (f *fakeNotifier) countKind(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (f *fakeNotifier) countEvents(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

type fakeUploader struct{}

func (fakeUploader) Upload(ctx context.Context, key, contentType string, body io.Reader) (*storage.UploadResult, error) {
	return &storage.UploadResult{Key: key, Location: "https://cdn.test/" + key}, nil
}

func (fakeUploader) Delete(ctx context.Context, key string) error { return nil }

func (fakeUploader) GetPublicURL(key string) string { return "https://cdn.test/" + key }

// --- environment assembling everything ---

type testEnv struct {
	store    *fakeStore
	ledger   *fakeLedger
	invent   *fakeInventory
	badges   *fakeBadges
	notifier *fakeNotifier

	tournaments   TournamentService
	registrations RegistrationService
	matches       MatchService
	advancement   AdvancementService
	prizesSvc     PrizeService
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	ledger := newFakeLedger()
	invent := &fakeInventory{}
	badges := &fakeBadges{}
	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tournamentRepo := &fakeTournamentRepo{store: store}
	participantRepo := &fakeParticipantRepo{store: store}
	matchRepo := &fakeMatchRepo{store: store}
	roundRepo := &fakeRoundRepo{store: store}
	prizeRepo := &fakePrizeRepo{store: store}
	transactor := fakeTransactor{store: store, txMu: &sync.Mutex{}}

	prizesSvc := NewPrizeService(tournamentRepo, participantRepo, prizeRepo, ledger, invent, badges, notifier, logger)
	advancement := NewAdvancementService(transactor, tournamentRepo, participantRepo, matchRepo, roundRepo, prizesSvc, notifier, logger)
	tournaments := NewTournamentService(transactor, tournamentRepo, participantRepo, matchRepo, roundRepo, prizeRepo, ledger, notifier, fakeUploader{}, 0.90, logger)
	registrations := NewRegistrationService(transactor, tournamentRepo, participantRepo, tournaments, ledger, notifier, logger)
	matches := NewMatchService(transactor, tournamentRepo, participantRepo, matchRepo, advancement, notifier, logger)

	return &testEnv{
		store:         store,
		ledger:        ledger,
		invent:        invent,
		badges:        badges,
		notifier:      notifier,
		tournaments:   tournaments,
		registrations: registrations,
		matches:       matches,
		advancement:   advancement,
		prizesSvc:     prizesSvc,
	}
}

func (e *testEnv) seedTournament(format models.TournamentFormat, maxParticipants int, entryFee int64) *models.Tournament {
	t := &models.Tournament{
		Name:            "Test Cup",
		Format:          format,
		GameType:        "chess",
		Status:          models.StatusRegistration,
		StartTime:       time.Now().Add(time.Hour),
		MaxParticipants: maxParticipants,
		EntryFee:        entryFee,
		PrizePool:       int64(float64(entryFee*int64(maxParticipants)) * 0.90),
		CreatedBy:       1,
	}
	_ = (&fakeTournamentRepo{store: e.store}).Create(context.Background(), nil, t)
	return t
}

func (e *testEnv) seedParticipants(tournamentID, n int) []*models.Participant {
	out := make([]*models.Participant, 0, n)
	repo := &fakeParticipantRepo{store: e.store}
	for i := 0; i < n; i++ {
		p := &models.Participant{
			TournamentID: tournamentID,
			UserID:       100 + i,
			Seed:         i + 1,
			Status:       models.ParticipantRegistered,
		}
		_ = repo.Create(context.Background(), nil, p)
		out = append(out, p)
	}
	e.store.mu.Lock()
	e.store.tournaments[tournamentID].CurrentParticipants = n
	e.store.mu.Unlock()
	return out
}

// finishRound records a result for every unfinished match in the round,
// picking the winner with pickWinner (player1 wins when nil).
func (e *testEnv) finishRound(ctx context.Context, tournamentID, round int, pickWinner func(*models.Match) int) error {
	matchRepo := &fakeMatchRepo{store: e.store}
	pending := models.MatchPending
	matches, err := matchRepo.ListByTournament(ctx, nil, tournamentID, repositories.ListMatchesFilter{Round: &round, Status: &pending})
	if err != nil {
		return err
	}
	for _, m := range matches {
		winner := m.Player1ID
		if pickWinner != nil {
			winner = pickWinner(m)
		}
		if _, err := e.matches.RecordResult(ctx, m.ID, MatchResultInput{
			WinnerParticipantID: winner,
			Score1:              2,
			Score2:              1,
		}); err != nil {
			return err
		}
	}
	return nil
}
