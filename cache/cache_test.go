package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewWithClient(client, zerolog.Nop()), mr
}

type snapshot struct {
	Status string `json:"status"`
	Round  int    `json:"round"`
}

func TestTournamentStateRoundTrip(t *testing.T) {
	c, mr := testCache(t)
	ctx := context.Background()

	require.True(t, c.SetTournamentState(ctx, "t1", snapshot{Status: "active", Round: 2}))

	var got snapshot
	require.True(t, c.GetTournamentState(ctx, "t1", &got))
	assert.Equal(t, snapshot{Status: "active", Round: 2}, got)

	mr.FastForward(TournamentStateTTL + 1)
	assert.False(t, c.GetTournamentState(ctx, "t1", &got))
}

func TestGetReportsMissForAbsentKey(t *testing.T) {
	c, _ := testCache(t)

	var got snapshot
	assert.False(t, c.GetMatchState(context.Background(), "missing", &got))
}

func TestMatchStateDeletedAfterCompletion(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	require.True(t, c.SetMatchState(ctx, "m1", snapshot{Status: "active"}))
	c.DeleteMatchState(ctx, "m1")

	var got snapshot
	assert.False(t, c.GetMatchState(ctx, "m1", &got))
}

func TestRoomMembership(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	c.AddRoomPlayer(ctx, "t1", "p1")
	c.AddRoomPlayer(ctx, "t1", "p2")
	c.AddRoomPlayer(ctx, "t1", "p2")

	players := c.RoomPlayers(ctx, "t1")
	assert.ElementsMatch(t, []string{"p1", "p2"}, players)

	c.RemoveRoomPlayer(ctx, "t1", "p1")
	assert.ElementsMatch(t, []string{"p2"}, c.RoomPlayers(ctx, "t1"))
}

func TestDisconnectedCacheIsInert(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	assert.False(t, c.Connected())

	c = &Cache{log: zerolog.Nop()}
	assert.False(t, c.Connected())
	assert.False(t, c.SetTournamentState(ctx, "t1", snapshot{}))

	var got snapshot
	assert.False(t, c.GetTournamentState(ctx, "t1", &got))
	assert.Nil(t, c.RoomPlayers(ctx, "t1"))
	c.AddRoomPlayer(ctx, "t1", "p1")
	c.DeleteMatchState(ctx, "m1")
	require.NoError(t, c.Close())
}

func TestPublishReachesSubscriber(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	// miniredis records publishes even without a live subscriber; just
	// make sure the call does not error out through the nil-safe path.
	c.PublishTournamentEvent(ctx, "t1", snapshot{Status: "active"})
	c.PublishPlayerEvent(ctx, "p1", snapshot{Status: "idle"})
}
