package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto-gladiators-backend/cache"
	"auto-gladiators-backend/catalog"
	"auto-gladiators-backend/combat"
	"auto-gladiators-backend/models"
	"auto-gladiators-backend/realtime"
)

// memStore is an in-memory Store for orchestrator tests. Reads hand out
// copies the way the gorm-backed store does.
type memStore struct {
	mu           sync.Mutex
	tournaments  map[string]models.Tournament
	participants map[string][]models.TournamentParticipant
	matches      map[string]models.Match
	stats        map[string]models.PlayerStats
}

func newMemStore() *memStore {
	return &memStore{
		tournaments:  make(map[string]models.Tournament),
		participants: make(map[string][]models.TournamentParticipant),
		matches:      make(map[string]models.Match),
		stats:        make(map[string]models.PlayerStats),
	}
}

func (s *memStore) Tournament(_ context.Context, id string) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *memStore) SaveTournament(_ context.Context, t *models.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tournaments[t.ID] = *t
	return nil
}

func (s *memStore) Participants(_ context.Context, tournamentID string) ([]models.TournamentParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TournamentParticipant(nil), s.participants[tournamentID]...), nil
}

func (s *memStore) ActiveParticipants(_ context.Context, tournamentID string) ([]models.TournamentParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TournamentParticipant
	for _, p := range s.participants[tournamentID] {
		if p.Status == models.ParticipantActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) SaveParticipant(_ context.Context, p *models.TournamentParticipant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.participants[p.TournamentID]
	for i := range list {
		if list[i].PlayerID == p.PlayerID {
			list[i] = *p
			return nil
		}
	}
	s.participants[p.TournamentID] = append(list, *p)
	return nil
}

func (s *memStore) CreateMatches(_ context.Context, matches []*models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range matches {
		s.matches[m.ID] = *m
	}
	return nil
}

func (s *memStore) SaveMatch(_ context.Context, m *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = *m
	return nil
}

func (s *memStore) PlayerStats(_ context.Context, playerID string) (*models.PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[playerID]
	if !ok {
		st = models.PlayerStats{PlayerID: playerID, Gold: 100}
		s.stats[playerID] = st
	}
	return &st, nil
}

func (s *memStore) SavePlayerStats(_ context.Context, st *models.PlayerStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[st.PlayerID] = *st
	return nil
}

func (s *memStore) allMatches() []models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	return out
}

// recordingNotifier captures every frame the orchestrator pushes.
type recordingNotifier struct {
	mu        sync.Mutex
	broadcast []realtime.Message
	personal  map[string][]realtime.Message
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{personal: make(map[string][]realtime.Message)}
}

func (n *recordingNotifier) Broadcast(_ string, msg realtime.Message, _ string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcast = append(n.broadcast, msg)
	return 1
}

func (n *recordingNotifier) SendToPlayer(playerID string, msg realtime.Message) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.personal[playerID] = append(n.personal[playerID], msg)
	return true
}

func (n *recordingNotifier) SendMatchUpdate(matchID, player1ID, player2ID string, data any) int {
	msg := realtime.MatchUpdate(matchID, data)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.personal[player1ID] = append(n.personal[player1ID], msg)
	n.personal[player2ID] = append(n.personal[player2ID], msg)
	return 2
}

func (n *recordingNotifier) broadcastTypes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.broadcast))
	for _, msg := range n.broadcast {
		out = append(out, msg["type"].(string))
	}
	return out
}

func (n *recordingNotifier) personalTypes(playerID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, msg := range n.personal[playerID] {
		out = append(out, msg["type"].(string))
	}
	return out
}

var heroRotation = []string{"warrior", "mage", "archer", "assassin", "paladin", "necromancer"}

// seedTournament creates an active tournament with n joined participants.
func seedTournament(t *testing.T, store *memStore, id string, n, entryFee int) {
	t.Helper()
	started := time.Now().UTC()
	store.tournaments[id] = models.Tournament{
		ID:             id,
		Name:           "Test Cup",
		Status:         models.TournamentActive,
		MaxPlayers:     n,
		CurrentPlayers: n,
		EntryFee:       entryFee,
		PrizePool:      entryFee * n,
		TournamentType: "elimination",
		StartedAt:      &started,
	}
	for i := 0; i < n; i++ {
		hero := catalog.HeroByID(heroRotation[i%len(heroRotation)])
		require.NotNil(t, hero)
		store.participants[id] = append(store.participants[id], models.TournamentParticipant{
			TournamentID:  id,
			PlayerID:      fmt.Sprintf("p%d", i+1),
			HeroID:        hero.ID,
			CurrentHealth: hero.Stats.Health,
			MaxHealth:     hero.Stats.Health,
			MaxMana:       100,
			Status:        models.ParticipantActive,
			JoinedAt:      started.Add(time.Duration(i) * time.Second),
		})
	}
}

func newTestOrchestrator(store *memStore, notifier *recordingNotifier, pause time.Duration) *Orchestrator {
	var seq int64
	return NewOrchestrator(
		store,
		cache.NewWithClient(nil, zerolog.Nop()),
		notifier,
		NewEconomy(),
		zerolog.Nop(),
		WithRoundPause(pause),
		WithPairingRand(rand.New(rand.NewSource(1))),
		WithEngineFactory(func() *combat.Engine {
			return combat.NewEngine(rand.New(rand.NewSource(atomic.AddInt64(&seq, 1))))
		}),
	)
}

func waitForFinish(t *testing.T, o *Orchestrator, tournamentID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !o.Running(tournamentID)
	}, 10*time.Second, 5*time.Millisecond, "tournament did not finish")
}

func TestStartTournamentValidation(t *testing.T) {
	store := newMemStore()
	o := newTestOrchestrator(store, newRecordingNotifier(), time.Millisecond)
	ctx := context.Background()

	assert.Error(t, o.StartTournament(ctx, "missing"))

	store.tournaments["waiting"] = models.Tournament{ID: "waiting", Status: models.TournamentWaiting}
	assert.Error(t, o.StartTournament(ctx, "waiting"))

	seedTournament(t, store, "lonely", 1, 0)
	assert.Error(t, o.StartTournament(ctx, "lonely"))
}

func TestStartTournamentRejectsDoubleStart(t *testing.T) {
	store := newMemStore()
	seedTournament(t, store, "t1", 4, 0)
	o := newTestOrchestrator(store, newRecordingNotifier(), time.Hour)

	require.NoError(t, o.StartTournament(context.Background(), "t1"))
	assert.Error(t, o.StartTournament(context.Background(), "t1"))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Shutdown(shutdownCtx))
	assert.False(t, o.Running("t1"))
}

func TestTournamentRunsToCompletion(t *testing.T) {
	store := newMemStore()
	seedTournament(t, store, "t1", 8, 50)
	notifier := newRecordingNotifier()
	o := newTestOrchestrator(store, notifier, time.Millisecond)

	require.NoError(t, o.StartTournament(context.Background(), "t1"))
	waitForFinish(t, o, "t1")

	tournament := store.tournaments["t1"]
	assert.Equal(t, models.TournamentCompleted, tournament.Status)
	require.NotNil(t, tournament.CompletedAt)
	assert.Equal(t, 3, tournament.CurrentRound)

	// 4 + 2 + 1 matches in a full 8-player bracket, all decided.
	matches := store.allMatches()
	require.Len(t, matches, 7)
	for _, m := range matches {
		assert.Equal(t, models.MatchCompleted, m.Status)
		require.NotNil(t, m.WinnerID)
		assert.NotEmpty(t, m.BattleLog)
	}

	participants := store.participants["t1"]
	require.Len(t, participants, 8)
	seen := make(map[int]string)
	var champion *models.TournamentParticipant
	for i := range participants {
		p := &participants[i]
		require.NotNil(t, p.Placement, "player %s has no placement", p.PlayerID)
		assert.NotContains(t, seen, *p.Placement)
		seen[*p.Placement] = p.PlayerID
		if *p.Placement == 1 {
			champion = p
			assert.Equal(t, models.ParticipantActive, p.Status)
			assert.Nil(t, p.EliminatedAt)
		} else {
			assert.Equal(t, models.ParticipantEliminated, p.Status)
			assert.NotNil(t, p.EliminatedAt)
		}

		want := NewEconomy().CalculateTournamentReward(*p.Placement, 8, 50)
		assert.Equal(t, want.Gold, p.PrizeWon)
		stats := store.stats[p.PlayerID]
		assert.Equal(t, 100+want.Gold, stats.Gold)
	}
	require.NotNil(t, champion)

	championStats := store.stats[champion.PlayerID]
	require.Len(t, championStats.Achievements, 1)
	assert.Equal(t, "tournament_victory", championStats.Achievements[0].Type)

	types := notifier.broadcastTypes()
	require.NotEmpty(t, types)
	assert.Equal(t, "tournament_started", types[0])
	assert.Equal(t, "tournament_completed", types[len(types)-1])
	counts := make(map[string]int)
	for _, tp := range types {
		counts[tp]++
	}
	assert.Equal(t, 3, counts["round_started"])
	assert.Equal(t, 7, counts["match_result"])
	assert.Equal(t, 2, counts["round_completed"])
	assert.Equal(t, 1, counts["tournament_completed"])

	// Round barrier: every result of round N lands before round N+1 opens.
	var perRound []int
	for _, tp := range types {
		switch tp {
		case "round_started":
			perRound = append(perRound, 0)
		case "match_result":
			require.NotEmpty(t, perRound)
			perRound[len(perRound)-1]++
		}
	}
	assert.Equal(t, []int{4, 2, 1}, perRound)

	final := notifier.broadcast[len(notifier.broadcast)-1]
	winner, ok := final["winner"].(realtime.TournamentWinner)
	require.True(t, ok)
	require.NotNil(t, winner.PlayerID)
	assert.Equal(t, champion.PlayerID, *winner.PlayerID)

	// Every player was told their match was starting and how it went.
	for i := range participants {
		personal := notifier.personalTypes(participants[i].PlayerID)
		assert.Contains(t, personal, "match_starting")
		assert.Contains(t, personal, "match_update")
		assert.Contains(t, personal, "match_completed")
	}
}

func TestOddFieldGetsByeRound(t *testing.T) {
	store := newMemStore()
	seedTournament(t, store, "t1", 3, 0)
	notifier := newRecordingNotifier()
	o := newTestOrchestrator(store, notifier, time.Millisecond)

	require.NoError(t, o.StartTournament(context.Background(), "t1"))
	waitForFinish(t, o, "t1")

	byes := 0
	for i := 1; i <= 3; i++ {
		for _, tp := range notifier.personalTypes(fmt.Sprintf("p%d", i)) {
			if tp == "bye_round" {
				byes++
			}
		}
	}
	assert.GreaterOrEqual(t, byes, 1)

	assert.Equal(t, models.TournamentCompleted, store.tournaments["t1"].Status)
	placements := make(map[int]bool)
	for _, p := range store.participants["t1"] {
		require.NotNil(t, p.Placement)
		placements[*p.Placement] = true
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, placements)
}

func TestEndTournamentIsIdempotent(t *testing.T) {
	store := newMemStore()
	seedTournament(t, store, "t1", 2, 25)
	notifier := newRecordingNotifier()
	o := newTestOrchestrator(store, notifier, time.Millisecond)

	require.NoError(t, o.StartTournament(context.Background(), "t1"))
	waitForFinish(t, o, "t1")

	goldBefore := map[string]int{
		"p1": store.stats["p1"].Gold,
		"p2": store.stats["p2"].Gold,
	}
	completions := 0
	for _, tp := range notifier.broadcastTypes() {
		if tp == "tournament_completed" {
			completions++
		}
	}
	require.Equal(t, 1, completions)

	o.endTournament(context.Background(), "t1")

	assert.Equal(t, goldBefore["p1"], store.stats["p1"].Gold)
	assert.Equal(t, goldBefore["p2"], store.stats["p2"].Gold)
	completions = 0
	for _, tp := range notifier.broadcastTypes() {
		if tp == "tournament_completed" {
			completions++
		}
	}
	assert.Equal(t, 1, completions)
}

func TestWinnerCarriesHealthBetweenRounds(t *testing.T) {
	store := newMemStore()
	seedTournament(t, store, "t1", 2, 0)
	o := newTestOrchestrator(store, newRecordingNotifier(), time.Millisecond)

	require.NoError(t, o.StartTournament(context.Background(), "t1"))
	waitForFinish(t, o, "t1")

	for _, p := range store.participants["t1"] {
		if p.Status == models.ParticipantActive {
			// The survivor keeps whatever health the duel left them with.
			assert.Greater(t, p.CurrentHealth, 0)
			assert.LessOrEqual(t, p.CurrentHealth, p.MaxHealth)
		} else {
			assert.Zero(t, p.CurrentHealth)
		}
	}
}

func TestRankParticipantsOrdering(t *testing.T) {
	base := time.Now().UTC()
	early := base.Add(-2 * time.Minute)
	late := base.Add(-1 * time.Minute)

	ps := []models.TournamentParticipant{
		{PlayerID: "first-out", Status: models.ParticipantEliminated, EliminatedAt: &early, JoinedAt: base},
		{PlayerID: "survivor", Status: models.ParticipantActive, JoinedAt: base.Add(3 * time.Second)},
		{PlayerID: "finalist", Status: models.ParticipantEliminated, EliminatedAt: &late, JoinedAt: base.Add(time.Second)},
		{PlayerID: "same-time", Status: models.ParticipantEliminated, EliminatedAt: &early, JoinedAt: base.Add(-time.Hour)},
	}

	ranked := rankParticipants(ps)
	require.Len(t, ranked, 4)
	assert.Equal(t, "survivor", ranked[0].PlayerID)
	assert.Equal(t, "finalist", ranked[1].PlayerID)
	// Equal elimination times fall back to join order.
	assert.Equal(t, "same-time", ranked[2].PlayerID)
	assert.Equal(t, "first-out", ranked[3].PlayerID)
}
