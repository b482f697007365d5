package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache TTLs. Sessions and rooms outlive any single tournament run.
const (
	TournamentStateTTL = time.Hour
	MatchStateTTL      = 30 * time.Minute
	PlayerSessionTTL   = 2 * time.Hour
	RoomTTL            = 2 * time.Hour
)

// Cache is a nil-safe Redis wrapper. When the connection cannot be
// established the service keeps running against the database alone: writes
// become no-ops and reads report a miss.
type Cache struct {
	client *redis.Client
	log    zerolog.Logger
}

// New connects to Redis at url. Connection failure is downgraded to a
// warning, not an error.
func New(url string, log zerolog.Logger) *Cache {
	c := &Cache{log: log}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Warn().Err(err).Msg("invalid redis url, running without cache")
		return c
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, running without cache")
		_ = client.Close()
		return c
	}

	c.client = client
	log.Info().Msg("redis connection established")
	return c
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client, log zerolog.Logger) *Cache {
	return &Cache{client: client, log: log}
}

// Connected reports whether a live Redis backend is attached.
func (c *Cache) Connected() bool {
	return c != nil && c.client != nil
}

func (c *Cache) Close() error {
	if !c.Connected() {
		return nil
	}
	return c.client.Close()
}

func tournamentStateKey(id string) string { return fmt.Sprintf("tournament:%s:state", id) }
func bracketKey(id string) string         { return fmt.Sprintf("tournament:%s:bracket", id) }
func roomKey(id string) string            { return fmt.Sprintf("tournament:%s:players", id) }
func matchKey(id string) string           { return fmt.Sprintf("match:%s:state", id) }
func sessionKey(id string) string         { return fmt.Sprintf("player:%s:session", id) }

// TournamentChannel is the pub/sub channel carrying one tournament's events.
func TournamentChannel(id string) string { return fmt.Sprintf("tournament:%s:events", id) }

// PlayerChannel is the pub/sub channel carrying one player's events.
func PlayerChannel(id string) string { return fmt.Sprintf("player:%s:events", id) }

func (c *Cache) setJSON(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if !c.Connected() {
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("cache marshal failed")
		return false
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("cache set failed")
		return false
	}
	return true
}

// getJSON reports a miss for absent keys and for any backend or decode
// error, so callers always fall through to the database.
func (c *Cache) getJSON(ctx context.Context, key string, dest any) bool {
	if !c.Connected() {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("cache get failed")
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("cache decode failed")
		return false
	}
	return true
}

func (c *Cache) del(ctx context.Context, key string) {
	if !c.Connected() {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("cache delete failed")
	}
}

// SetTournamentState caches a tournament snapshot for reconnect recovery.
func (c *Cache) SetTournamentState(ctx context.Context, tournamentID string, state any) bool {
	return c.setJSON(ctx, tournamentStateKey(tournamentID), state, TournamentStateTTL)
}

func (c *Cache) GetTournamentState(ctx context.Context, tournamentID string, dest any) bool {
	return c.getJSON(ctx, tournamentStateKey(tournamentID), dest)
}

func (c *Cache) DeleteTournamentState(ctx context.Context, tournamentID string) {
	c.del(ctx, tournamentStateKey(tournamentID))
}

// SetBracket caches the derived bracket view alongside the raw state.
func (c *Cache) SetBracket(ctx context.Context, tournamentID string, bracket any) bool {
	return c.setJSON(ctx, bracketKey(tournamentID), bracket, TournamentStateTTL)
}

func (c *Cache) GetBracket(ctx context.Context, tournamentID string, dest any) bool {
	return c.getJSON(ctx, bracketKey(tournamentID), dest)
}

func (c *Cache) SetMatchState(ctx context.Context, matchID string, state any) bool {
	return c.setJSON(ctx, matchKey(matchID), state, MatchStateTTL)
}

func (c *Cache) GetMatchState(ctx context.Context, matchID string, dest any) bool {
	return c.getJSON(ctx, matchKey(matchID), dest)
}

// DeleteMatchState drops a finished match from the cache.
func (c *Cache) DeleteMatchState(ctx context.Context, matchID string) {
	c.del(ctx, matchKey(matchID))
}

func (c *Cache) SetPlayerSession(ctx context.Context, playerID string, session any) bool {
	return c.setJSON(ctx, sessionKey(playerID), session, PlayerSessionTTL)
}

func (c *Cache) GetPlayerSession(ctx context.Context, playerID string, dest any) bool {
	return c.getJSON(ctx, sessionKey(playerID), dest)
}

func (c *Cache) DeletePlayerSession(ctx context.Context, playerID string) {
	c.del(ctx, sessionKey(playerID))
}

// AddRoomPlayer tracks tournament room membership for broadcast targeting.
func (c *Cache) AddRoomPlayer(ctx context.Context, tournamentID, playerID string) {
	if !c.Connected() {
		return
	}
	key := roomKey(tournamentID)
	pipe := c.client.Pipeline()
	pipe.SAdd(ctx, key, playerID)
	pipe.Expire(ctx, key, RoomTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("room add failed")
	}
}

func (c *Cache) RemoveRoomPlayer(ctx context.Context, tournamentID, playerID string) {
	if !c.Connected() {
		return
	}
	if err := c.client.SRem(ctx, roomKey(tournamentID), playerID).Err(); err != nil {
		c.log.Error().Err(err).Str("tournament_id", tournamentID).Msg("room remove failed")
	}
}

func (c *Cache) RoomPlayers(ctx context.Context, tournamentID string) []string {
	if !c.Connected() {
		return nil
	}
	members, err := c.client.SMembers(ctx, roomKey(tournamentID)).Result()
	if err != nil {
		c.log.Error().Err(err).Str("tournament_id", tournamentID).Msg("room read failed")
		return nil
	}
	return members
}

// PublishTournamentEvent mirrors a tournament broadcast onto pub/sub so
// sibling instances can relay it to their own sockets.
func (c *Cache) PublishTournamentEvent(ctx context.Context, tournamentID string, event any) {
	c.publish(ctx, TournamentChannel(tournamentID), event)
}

func (c *Cache) PublishPlayerEvent(ctx context.Context, playerID string, event any) {
	c.publish(ctx, PlayerChannel(playerID), event)
}

func (c *Cache) publish(ctx context.Context, channel string, event any) {
	if !c.Connected() {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		c.log.Error().Err(err).Str("channel", channel).Msg("publish marshal failed")
		return
	}
	if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
		c.log.Error().Err(err).Str("channel", channel).Msg("publish failed")
	}
}
