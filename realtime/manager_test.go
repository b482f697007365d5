package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto-gladiators-backend/cache"
)

type fakeConn struct {
	mu         sync.Mutex
	frames     []Message
	failWrites bool
	closed     bool
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return eris.New("broken pipe")
	}
	f.frames = append(f.frames, v.(Message))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.frames))
	for _, fr := range f.frames {
		out = append(out, fr["type"].(string))
	}
	return out
}

func newTestManager() *Manager {
	return NewManager(nil, zerolog.Nop())
}

func TestSendToPlayer(t *testing.T) {
	m := newTestManager()
	conn := &fakeConn{}
	m.Connect(conn, "p1", "")

	require.True(t, m.SendToPlayer("p1", ByeRound()))
	assert.Equal(t, []string{"bye_round"}, conn.types())

	assert.False(t, m.SendToPlayer("ghost", Pong()))
}

func TestBroadcastSkipsExcludedPlayer(t *testing.T) {
	m := newTestManager()
	c1, c2, c3 := &fakeConn{}, &fakeConn{}, &fakeConn{}
	m.Connect(c1, "p1", "t1")
	m.Connect(c2, "p2", "t1")
	m.Connect(c3, "p3", "other")

	sent := m.Broadcast("t1", RoundCompleted(1, 4), "p2")
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"round_completed"}, c1.types())
	assert.Empty(t, c2.types())
	assert.Empty(t, c3.types())
}

func TestBroadcastEvictsFailedSockets(t *testing.T) {
	m := newTestManager()
	good, bad := &fakeConn{}, &fakeConn{failWrites: true}
	m.Connect(good, "p1", "t1")
	m.Connect(bad, "p2", "t1")

	sent := m.Broadcast("t1", RoundStarted(1, nil), "")
	assert.Equal(t, 1, sent)

	// The broken socket is gone; the next broadcast only sees the healthy one.
	assert.Equal(t, 1, m.Broadcast("t1", RoundCompleted(1, 2), ""))
	assert.False(t, m.SendToPlayer("p2", Pong()))
}

func TestReconnectSupersedesOldSocket(t *testing.T) {
	m := newTestManager()
	old := &fakeConn{}
	m.Connect(old, "p1", "t1")

	fresh := &fakeConn{}
	m.Connect(fresh, "p1", "t1")

	// The stale socket is only unrouted, never torn down here; its own read
	// loop owns the close.
	assert.False(t, old.closed)
	require.True(t, m.SendToPlayer("p1", Pong()))
	assert.Empty(t, old.types())
	assert.Equal(t, []string{"pong"}, fresh.types())

	stats := m.Stats()
	assert.Equal(t, 1, stats["total_connections"])
	assert.Equal(t, 1, stats["players_connected"])
}

func TestDisconnectIsIdempotent(t *testing.T) {
	m := newTestManager()
	conn := &fakeConn{}
	id := m.Connect(conn, "p1", "t1")

	m.Disconnect(id)
	m.Disconnect(id)

	stats := m.Stats()
	assert.Equal(t, 0, stats["total_connections"])
	assert.Equal(t, 0, stats["tournament_rooms"])
}

func TestJoinAndLeaveRoom(t *testing.T) {
	m := newTestManager()
	conn := &fakeConn{}
	id := m.Connect(conn, "p1", "")

	assert.Zero(t, m.Broadcast("t1", Pong(), ""))

	require.True(t, m.JoinRoom(id, "t1"))
	assert.Equal(t, 1, m.Broadcast("t1", Pong(), ""))

	// Joining a second room leaves the first.
	require.True(t, m.JoinRoom(id, "t2"))
	assert.Zero(t, m.Broadcast("t1", Pong(), ""))
	assert.Equal(t, 1, m.Broadcast("t2", Pong(), ""))

	m.LeaveRoom(id, "t2")
	assert.Zero(t, m.Broadcast("t2", Pong(), ""))

	assert.False(t, m.JoinRoom("ghost", "t1"))
}

func TestHandlePingAnswersPong(t *testing.T) {
	m := newTestManager()
	conn := &fakeConn{}
	id := m.Connect(conn, "p1", "")

	m.HandlePing(id)
	assert.Equal(t, []string{"pong"}, conn.types())

	m.HandlePing("ghost")
}

func TestSendMatchUpdateTargetsBothFighters(t *testing.T) {
	m := newTestManager()
	c1, c2 := &fakeConn{}, &fakeConn{}
	m.Connect(c1, "p1", "t1")
	m.Connect(c2, "p2", "t1")

	sent := m.SendMatchUpdate("m1", "p1", "p2", Message{"tick": 1})
	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"match_update"}, c1.types())
	assert.Equal(t, []string{"match_update"}, c2.types())

	// One fighter offline still delivers to the other.
	m.Disconnect(m.players["p2"])
	assert.Equal(t, 1, m.SendMatchUpdate("m1", "p1", "p2", nil))
}

func TestReapIdleDropsStaleConnections(t *testing.T) {
	m := newTestManager()
	stale, fresh := &fakeConn{}, &fakeConn{}
	staleID := m.Connect(stale, "p1", "t1")
	m.Connect(fresh, "p2", "t1")

	m.mu.Lock()
	m.conns[staleID].lastPing = time.Now().UTC().Add(-10 * time.Minute)
	m.mu.Unlock()

	assert.Equal(t, 1, m.ReapIdle(5*time.Minute))
	assert.True(t, stale.closed)

	stats := m.Stats()
	assert.Equal(t, 1, stats["total_connections"])
}

func TestReapIdlePurgesCachedSession(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	m := NewManager(cache.NewWithClient(client, zerolog.Nop()), zerolog.Nop())

	staleID := m.Connect(&fakeConn{}, "p1", "t1")
	require.True(t, srv.Exists("player:p1:session"))

	m.mu.Lock()
	m.conns[staleID].lastPing = time.Now().UTC().Add(-10 * time.Minute)
	m.mu.Unlock()

	require.Equal(t, 1, m.ReapIdle(5*time.Minute))
	assert.False(t, srv.Exists("player:p1:session"))
}

func TestSendToPlayerPublishesWhenOffline(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	m := NewManager(cache.NewWithClient(client, zerolog.Nop()), zerolog.Nop())

	ctx := context.Background()
	sub := client.Subscribe(ctx, cache.PlayerChannel("offline"))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	assert.False(t, m.SendToPlayer("offline", Pong()))

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(recvCtx)
	require.NoError(t, err)
	assert.Contains(t, msg.Payload, "pong")
}
