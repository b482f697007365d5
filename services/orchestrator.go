package services

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"auto-gladiators-backend/cache"
	"auto-gladiators-backend/catalog"
	"auto-gladiators-backend/combat"
	"auto-gladiators-backend/models"
	"auto-gladiators-backend/realtime"
)

// Notifier is the realtime fan-out surface the orchestrator pushes
// progression events through. Satisfied by *realtime.Manager.
type Notifier interface {
	Broadcast(tournamentID string, msg realtime.Message, excludePlayer string) int
	SendToPlayer(playerID string, msg realtime.Message) bool
	SendMatchUpdate(matchID, player1ID, player2ID string, data any) int
}

// EngineFactory builds the combat engine for one match. Production seeds
// from the clock; deterministic tests inject fixed seeds.
type EngineFactory func() *combat.Engine

// Orchestrator drives elimination tournaments: it pairs active
// participants each round, runs the round's matches concurrently, waits for
// all of them, and repeats until one player stands.
type Orchestrator struct {
	store    Store
	cache    *cache.Cache
	notifier Notifier
	economy  *Economy
	log      zerolog.Logger

	newEngine  EngineFactory
	roundPause time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// OrchestratorOption tweaks orchestrator construction.
type OrchestratorOption func(*Orchestrator)

// WithEngineFactory overrides the per-match engine source.
func WithEngineFactory(f EngineFactory) OrchestratorOption {
	return func(o *Orchestrator) { o.newEngine = f }
}

// WithRoundPause overrides the pause between rounds.
func WithRoundPause(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.roundPause = d }
}

// WithPairingRand overrides the shuffle source used for round pairings.
func WithPairingRand(r *rand.Rand) OrchestratorOption {
	return func(o *Orchestrator) { o.rng = r }
}

func NewOrchestrator(store Store, c *cache.Cache, notifier Notifier, economy *Economy, log zerolog.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		cache:      c,
		notifier:   notifier,
		economy:    economy,
		log:        log,
		roundPause: 3 * time.Second,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		active:     make(map[string]context.CancelFunc),
	}
	o.newEngine = func() *combat.Engine {
		o.rngMu.Lock()
		seed := o.rng.Int63()
		o.rngMu.Unlock()
		return combat.NewEngine(rand.New(rand.NewSource(seed)))
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartTournament validates the tournament and launches its run loop in the
// background. Starting an already running tournament is an error.
func (o *Orchestrator) StartTournament(ctx context.Context, tournamentID string) error {
	o.mu.Lock()
	if _, running := o.active[tournamentID]; running {
		o.mu.Unlock()
		return eris.Errorf("tournament %s is already running", tournamentID)
	}
	o.mu.Unlock()

	tournament, err := o.store.Tournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if tournament.Status != models.TournamentActive {
		return eris.Errorf("tournament %s is not active", tournamentID)
	}

	participants, err := o.store.ActiveParticipants(ctx, tournamentID)
	if err != nil {
		return err
	}
	if len(participants) < 2 {
		return eris.Errorf("tournament %s needs at least 2 participants", tournamentID)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	if _, running := o.active[tournamentID]; running {
		o.mu.Unlock()
		cancel()
		return eris.Errorf("tournament %s is already running", tournamentID)
	}
	o.active[tournamentID] = cancel
	o.mu.Unlock()

	state := o.snapshotState(tournament, participants, nil)
	o.cache.SetTournamentState(ctx, tournamentID, state)
	o.notifier.Broadcast(tournamentID, realtime.TournamentStarted(state), "")
	o.cache.PublishTournamentEvent(ctx, tournamentID, realtime.TournamentStarted(state))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			o.mu.Lock()
			delete(o.active, tournamentID)
			o.mu.Unlock()
			cancel()
		}()
		o.run(runCtx, tournamentID)
	}()

	o.log.Info().
		Str("tournament_id", tournamentID).
		Int("participants", len(participants)).
		Msg("tournament started")
	return nil
}

// Running reports whether a tournament's run loop is live.
func (o *Orchestrator) Running(tournamentID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.active[tournamentID]
	return ok
}

// Shutdown cancels every run loop and waits for them to drain, bounded by
// the context deadline.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	for _, cancel := range o.active {
		cancel()
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "orchestrator shutdown")
	}
}

func (o *Orchestrator) run(ctx context.Context, tournamentID string) {
	round := 1
	for {
		if ctx.Err() != nil {
			return
		}
		participants, err := o.store.ActiveParticipants(ctx, tournamentID)
		if err != nil {
			o.log.Error().Err(err).Str("tournament_id", tournamentID).Msg("load participants failed")
			return
		}
		if len(participants) < 2 {
			o.endTournament(ctx, tournamentID)
			return
		}

		matches, err := o.startRound(ctx, tournamentID, round, participants)
		if err != nil {
			o.log.Error().Err(err).
				Str("tournament_id", tournamentID).
				Int("round", round).
				Msg("round setup failed")
			return
		}

		var wg sync.WaitGroup
		for _, match := range matches {
			wg.Add(1)
			go func(m *models.Match) {
				defer wg.Done()
				o.runMatch(ctx, m)
			}(match)
		}
		wg.Wait()

		remaining, err := o.store.ActiveParticipants(ctx, tournamentID)
		if err != nil {
			o.log.Error().Err(err).Str("tournament_id", tournamentID).Msg("load remaining failed")
			return
		}
		if len(remaining) <= 1 {
			o.endTournament(ctx, tournamentID)
			return
		}

		o.notifier.Broadcast(tournamentID, realtime.RoundCompleted(round, len(remaining)), "")

		select {
		case <-ctx.Done():
			return
		case <-time.After(o.roundPause):
		}
		round++
	}
}

// startRound pairs the active participants, persists the round's matches
// and announces them. An odd participant receives a bye.
func (o *Orchestrator) startRound(ctx context.Context, tournamentID string, round int, participants []models.TournamentParticipant) ([]*models.Match, error) {
	shuffled := append([]models.TournamentParticipant(nil), participants...)
	o.rngMu.Lock()
	o.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	o.rngMu.Unlock()

	var matches []*models.Match
	for i := 0; i+1 < len(shuffled); i += 2 {
		matches = append(matches, &models.Match{
			ID:           uuid.NewString(),
			TournamentID: tournamentID,
			RoundNumber:  round,
			MatchNumber:  i/2 + 1,
			Player1ID:    shuffled[i].PlayerID,
			Player2ID:    shuffled[i+1].PlayerID,
			Status:       models.MatchPending,
		})
	}
	if err := o.store.CreateMatches(ctx, matches); err != nil {
		return nil, err
	}

	if len(shuffled)%2 == 1 {
		bye := shuffled[len(shuffled)-1]
		o.notifier.SendToPlayer(bye.PlayerID, realtime.ByeRound())
	}

	tournament, err := o.store.Tournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	tournament.CurrentRound = round
	if err := o.store.SaveTournament(ctx, tournament); err != nil {
		return nil, err
	}

	matchViews := make([]realtime.Message, 0, len(matches))
	for _, m := range matches {
		matchViews = append(matchViews, realtime.Message{
			"id":         m.ID,
			"player1_id": m.Player1ID,
			"player2_id": m.Player2ID,
			"status":     m.Status,
		})
	}
	state := o.snapshotState(tournament, participants, matchViews)
	o.cache.SetTournamentState(ctx, tournamentID, state)
	o.appendBracketRound(ctx, tournamentID, round, matchViews)
	o.notifier.Broadcast(tournamentID, realtime.RoundStarted(round, matchViews), "")

	return matches, nil
}

// appendBracketRound grows the cached bracket so late-joining sockets can
// replay earlier rounds without touching the database.
func (o *Orchestrator) appendBracketRound(ctx context.Context, tournamentID string, round int, matchViews []realtime.Message) {
	var bracket map[string]any
	o.cache.GetBracket(ctx, tournamentID, &bracket)
	if bracket == nil {
		bracket = map[string]any{"tournament_id": tournamentID}
	}
	rounds, _ := bracket["rounds"].([]any)
	bracket["rounds"] = append(rounds, realtime.Message{
		"round_number": round,
		"matches":      matchViews,
	})
	o.cache.SetBracket(ctx, tournamentID, bracket)
}

// runMatch simulates one duel end to end: announce, fight, persist and
// notify. The loser is eliminated with a timestamp so placements can be
// derived later.
func (o *Orchestrator) runMatch(ctx context.Context, match *models.Match) {
	fail := func(err error, msg string) {
		o.log.Error().Err(err).Str("match_id", match.ID).Msg(msg)
		match.Status = models.MatchError
		if saveErr := o.store.SaveMatch(ctx, match); saveErr != nil {
			o.log.Error().Err(saveErr).Str("match_id", match.ID).Msg("save errored match failed")
		}
	}

	now := time.Now().UTC()
	match.Status = models.MatchActive
	match.StartedAt = &now
	if err := o.store.SaveMatch(ctx, match); err != nil {
		fail(err, "activate match failed")
		return
	}

	p1, f1, err := o.buildFighter(ctx, match.TournamentID, match.Player1ID)
	if err != nil {
		fail(err, "prepare player1 failed")
		return
	}
	p2, f2, err := o.buildFighter(ctx, match.TournamentID, match.Player2ID)
	if err != nil {
		fail(err, "prepare player2 failed")
		return
	}

	o.notifier.SendToPlayer(match.Player1ID, realtime.MatchStarting(match.ID, realtime.Opponent{
		HeroID:   p2.HeroID,
		HeroName: f2.HeroName,
	}))
	o.notifier.SendToPlayer(match.Player2ID, realtime.MatchStarting(match.ID, realtime.Opponent{
		HeroID:   p1.HeroID,
		HeroName: f1.HeroName,
	}))

	o.cache.SetMatchState(ctx, match.ID, realtime.Message{
		"match_id":   match.ID,
		"status":     models.MatchActive,
		"player1_id": match.Player1ID,
		"player2_id": match.Player2ID,
	})

	result, err := o.newEngine().Simulate(f1, f2)
	if err != nil {
		fail(err, "simulation failed")
		return
	}

	done := time.Now().UTC()
	match.Status = models.MatchCompleted
	match.CompletedAt = &done
	match.WinnerID = &result.WinnerID
	match.BattleLog = result.Log
	match.Duration = int(result.Duration)
	if err := o.store.SaveMatch(ctx, match); err != nil {
		fail(err, "save match result failed")
		return
	}
	o.cache.DeleteMatchState(ctx, match.ID)

	o.notifier.SendMatchUpdate(match.ID, match.Player1ID, match.Player2ID, realtime.Message{
		"battle_log":  result.Log,
		"winner_id":   result.WinnerID,
		"duration":    result.Duration,
		"final_stats": result.FinalStats,
	})

	p1Final := result.FinalStats[match.Player1ID].Health
	p2Final := result.FinalStats[match.Player2ID].Health
	o.settleFighter(ctx, p1, f1, p1Final, result.WinnerID == match.Player1ID, done)
	o.settleFighter(ctx, p2, f2, p2Final, result.WinnerID == match.Player2ID, done)

	o.notifier.SendToPlayer(match.Player1ID, realtime.MatchCompleted(match.ID, winLoss(result.WinnerID == match.Player1ID), p1Final))
	o.notifier.SendToPlayer(match.Player2ID, realtime.MatchCompleted(match.ID, winLoss(result.WinnerID == match.Player2ID), p2Final))

	broadcast := realtime.MatchResult(match.ID, result.WinnerID, match.RoundNumber)
	o.notifier.Broadcast(match.TournamentID, broadcast, "")
	o.cache.PublishTournamentEvent(ctx, match.TournamentID, broadcast)
}

func winLoss(won bool) string {
	if won {
		return "win"
	}
	return "loss"
}

// buildFighter assembles the combat-side participant for a tournament
// entry, folding in permanent item bonuses and the health and mana carried
// from earlier rounds.
func (o *Orchestrator) buildFighter(ctx context.Context, tournamentID, playerID string) (*models.TournamentParticipant, *combat.Participant, error) {
	participants, err := o.store.Participants(ctx, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	var entry *models.TournamentParticipant
	for i := range participants {
		if participants[i].PlayerID == playerID {
			entry = &participants[i]
			break
		}
	}
	if entry == nil {
		return nil, nil, eris.Errorf("player %s is not in tournament %s", playerID, tournamentID)
	}

	hero := catalog.HeroByID(entry.HeroID)
	if hero == nil {
		return nil, nil, eris.Errorf("unknown hero %s", entry.HeroID)
	}

	playerStats, err := o.store.PlayerStats(ctx, playerID)
	if err != nil {
		return nil, nil, err
	}

	stats := hero.CombatStats(o.economy.StatBonuses(playerStats))
	if entry.CurrentHealth > 0 && entry.CurrentHealth < stats.MaxHealth {
		stats.Health = entry.CurrentHealth
	}
	if entry.CurrentMana > 0 {
		stats.Mana = min(entry.CurrentMana, stats.MaxMana)
	}

	fighter, err := combat.NewParticipant(playerID, hero.ID, hero.Name, stats, hero.PassiveKind, hero.UltimateKind)
	if err != nil {
		return nil, nil, err
	}
	return entry, fighter, nil
}

// settleFighter writes the post-match state back to the tournament entry.
// Winners carry their remaining health and mana into the next round.
func (o *Orchestrator) settleFighter(ctx context.Context, entry *models.TournamentParticipant, fighter *combat.Participant, finalHealth int, won bool, at time.Time) {
	entry.CurrentHealth = finalHealth
	entry.MaxHealth = fighter.Stats.MaxHealth
	entry.CurrentMana = fighter.Stats.Mana
	if !won {
		entry.Status = models.ParticipantEliminated
		eliminated := at
		entry.EliminatedAt = &eliminated
	}
	if err := o.store.SaveParticipant(ctx, entry); err != nil {
		o.log.Error().Err(err).Str("player_id", entry.PlayerID).Msg("save participant failed")
	}
}

// endTournament assigns placements, pays out rewards and announces the
// champion. Idempotent: a completed tournament is left untouched.
func (o *Orchestrator) endTournament(ctx context.Context, tournamentID string) {
	tournament, err := o.store.Tournament(ctx, tournamentID)
	if err != nil {
		o.log.Error().Err(err).Str("tournament_id", tournamentID).Msg("load tournament failed")
		return
	}
	if tournament.Status == models.TournamentCompleted {
		return
	}

	participants, err := o.store.Participants(ctx, tournamentID)
	if err != nil {
		o.log.Error().Err(err).Str("tournament_id", tournamentID).Msg("load participants failed")
		return
	}
	ranked := rankParticipants(participants)

	now := time.Now().UTC()
	tournament.Status = models.TournamentCompleted
	tournament.CompletedAt = &now
	if err := o.store.SaveTournament(ctx, tournament); err != nil {
		o.log.Error().Err(err).Str("tournament_id", tournamentID).Msg("complete tournament failed")
		return
	}

	for i := range ranked {
		p := &ranked[i]
		placement := i + 1
		if p.Placement == nil {
			p.Placement = &placement
		}

		stats, err := o.store.PlayerStats(ctx, p.PlayerID)
		if err != nil {
			o.log.Error().Err(err).Str("player_id", p.PlayerID).Msg("load stats for payout failed")
			continue
		}
		summary := o.economy.AwardTournamentRewards(stats, *p.Placement, len(ranked), tournament.EntryFee)
		p.PrizeWon = summary.GoldEarned
		if *p.Placement == 1 {
			stats.Achievements = append(stats.Achievements, models.Achievement{
				Type:     "tournament_victory",
				EarnedAt: now,
			})
		}
		if err := o.store.SavePlayerStats(ctx, stats); err != nil {
			o.log.Error().Err(err).Str("player_id", p.PlayerID).Msg("save payout failed")
		}
		if err := o.store.SaveParticipant(ctx, p); err != nil {
			o.log.Error().Err(err).Str("player_id", p.PlayerID).Msg("save placement failed")
		}
	}

	winner := realtime.TournamentWinner{}
	if len(ranked) > 0 {
		winner.PlayerID = &ranked[0].PlayerID
		winner.HeroID = &ranked[0].HeroID
	}
	done := realtime.TournamentCompleted(winner)
	o.notifier.Broadcast(tournamentID, done, "")
	o.cache.PublishTournamentEvent(ctx, tournamentID, done)

	state := realtime.Message{
		"status":       models.TournamentCompleted,
		"completed_at": now.Format(time.RFC3339),
	}
	if winner.PlayerID != nil {
		state["winner_id"] = *winner.PlayerID
	}
	o.cache.SetTournamentState(ctx, tournamentID, state)

	o.log.Info().Str("tournament_id", tournamentID).Msg("tournament completed")
}

// rankParticipants orders entries best placement first: the survivor, then
// eliminated players latest first, ties broken by join order.
func rankParticipants(participants []models.TournamentParticipant) []models.TournamentParticipant {
	ranked := append([]models.TournamentParticipant(nil), participants...)
	sortParticipants(ranked)
	return ranked
}

func sortParticipants(ps []models.TournamentParticipant) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		aActive := a.Status == models.ParticipantActive
		bActive := b.Status == models.ParticipantActive
		if aActive != bActive {
			return aActive
		}
		switch {
		case a.EliminatedAt == nil && b.EliminatedAt != nil:
			return true
		case a.EliminatedAt != nil && b.EliminatedAt == nil:
			return false
		case a.EliminatedAt != nil && b.EliminatedAt != nil && !a.EliminatedAt.Equal(*b.EliminatedAt):
			return a.EliminatedAt.After(*b.EliminatedAt)
		}
		return a.JoinedAt.Before(b.JoinedAt)
	})
}

func (o *Orchestrator) snapshotState(t *models.Tournament, participants []models.TournamentParticipant, matches []realtime.Message) realtime.Message {
	views := make([]realtime.Message, 0, len(participants))
	for _, p := range participants {
		views = append(views, realtime.Message{
			"player_id":      p.PlayerID,
			"hero_id":        p.HeroID,
			"current_health": p.CurrentHealth,
			"max_health":     p.MaxHealth,
			"status":         p.Status,
		})
	}
	state := realtime.Message{
		"tournament_id": t.ID,
		"status":        t.Status,
		"current_round": t.CurrentRound,
		"participants":  views,
	}
	if t.StartedAt != nil {
		state["started_at"] = t.StartedAt.UTC().Format(time.RFC3339)
	}
	if matches != nil {
		state["matches"] = matches
	}
	return state
}
