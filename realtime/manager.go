package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"auto-gladiators-backend/cache"
)

// Conn is the write side of one player socket. Satisfied by
// *websocket.Conn; tests plug in fakes.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

type connection struct {
	id           string
	playerID     string
	tournamentID string
	conn         Conn
	connectedAt  time.Time
	lastPing     time.Time

	// writeMu serializes frames; websocket conns reject concurrent writers.
	writeMu sync.Mutex
}

func (c *connection) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Manager tracks live sockets, one per player, grouped into tournament
// rooms. A player reconnecting supersedes their previous socket. All state
// lives behind one mutex; write failures evict the connection.
type Manager struct {
	mu      sync.Mutex
	conns   map[string]*connection
	players map[string]string
	rooms   map[string]map[string]struct{}

	cache *cache.Cache
	log   zerolog.Logger
}

func NewManager(c *cache.Cache, log zerolog.Logger) *Manager {
	return &Manager{
		conns:   make(map[string]*connection),
		players: make(map[string]string),
		rooms:   make(map[string]map[string]struct{}),
		cache:   c,
		log:     log,
	}
}

// Connect registers a socket for a player and returns the connection id.
// tournamentID may be empty for lobby-level sockets.
func (m *Manager) Connect(conn Conn, playerID, tournamentID string) string {
	now := time.Now().UTC()
	c := &connection{
		id:           uuid.NewString(),
		playerID:     playerID,
		tournamentID: tournamentID,
		conn:         conn,
		connectedAt:  now,
		lastPing:     now,
	}

	m.mu.Lock()
	if oldID, ok := m.players[playerID]; ok {
		// The stale socket only loses its routing; its own read loop
		// notices the peer going away and cleans up.
		m.removeLocked(oldID)
	}
	m.conns[c.id] = c
	m.players[playerID] = c.id
	if tournamentID != "" {
		m.joinRoomLocked(c, tournamentID)
	}
	m.mu.Unlock()

	m.cache.SetPlayerSession(context.Background(), playerID, Message{
		"connection_id": c.id,
		"tournament_id": tournamentID,
		"status":        "connected",
		"connected_at":  now.Format(time.RFC3339),
	})

	m.log.Info().
		Str("player_id", playerID).
		Str("connection_id", c.id).
		Str("tournament_id", tournamentID).
		Msg("player connected")
	return c.id
}

// Disconnect unregisters a connection. Safe to call more than once.
func (m *Manager) Disconnect(connectionID string) {
	m.mu.Lock()
	c, ok := m.conns[connectionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.removeLocked(connectionID)
	m.mu.Unlock()

	m.cache.SetPlayerSession(context.Background(), c.playerID, Message{
		"status":          "disconnected",
		"disconnected_at": time.Now().UTC().Format(time.RFC3339),
	})

	m.log.Info().
		Str("player_id", c.playerID).
		Str("connection_id", connectionID).
		Msg("player disconnected")
}

// removeLocked drops a connection from every index. It never closes the
// socket itself; owners of the read loop do that.
func (m *Manager) removeLocked(connectionID string) {
	c, ok := m.conns[connectionID]
	if !ok {
		return
	}
	if c.tournamentID != "" {
		m.leaveRoomLocked(c, c.tournamentID)
	}
	delete(m.conns, connectionID)
	if m.players[c.playerID] == connectionID {
		delete(m.players, c.playerID)
	}
}

func (m *Manager) joinRoomLocked(c *connection, tournamentID string) {
	room, ok := m.rooms[tournamentID]
	if !ok {
		room = make(map[string]struct{})
		m.rooms[tournamentID] = room
	}
	room[c.id] = struct{}{}
	c.tournamentID = tournamentID
	m.cache.AddRoomPlayer(context.Background(), tournamentID, c.playerID)
}

func (m *Manager) leaveRoomLocked(c *connection, tournamentID string) {
	if room, ok := m.rooms[tournamentID]; ok {
		delete(room, c.id)
		if len(room) == 0 {
			delete(m.rooms, tournamentID)
		}
	}
	if c.tournamentID == tournamentID {
		c.tournamentID = ""
	}
	m.cache.RemoveRoomPlayer(context.Background(), tournamentID, c.playerID)
}

// JoinRoom moves a connection into a tournament room.
func (m *Manager) JoinRoom(connectionID, tournamentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[connectionID]
	if !ok {
		return false
	}
	if c.tournamentID != "" && c.tournamentID != tournamentID {
		m.leaveRoomLocked(c, c.tournamentID)
	}
	m.joinRoomLocked(c, tournamentID)
	return true
}

// LeaveRoom removes a connection from its tournament room.
func (m *Manager) LeaveRoom(connectionID, tournamentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conns[connectionID]; ok {
		m.leaveRoomLocked(c, tournamentID)
	}
}

// SendToPlayer delivers a message to a player's live socket. Without a
// local socket the frame goes out on the player's pub/sub channel instead,
// for whichever instance holds the connection. A failed write evicts the
// connection.
func (m *Manager) SendToPlayer(playerID string, msg Message) bool {
	m.mu.Lock()
	connID, ok := m.players[playerID]
	c := m.conns[connID]
	m.mu.Unlock()

	if !ok || c == nil {
		m.cache.PublishPlayerEvent(context.Background(), playerID, msg)
		return false
	}
	if err := c.write(msg); err != nil {
		m.log.Warn().Err(err).Str("player_id", playerID).Msg("personal send failed")
		m.Disconnect(connID)
		return false
	}
	return true
}

// Broadcast sends a message to every socket in a tournament room, skipping
// excludePlayer when set. Returns the number of sockets reached.
func (m *Manager) Broadcast(tournamentID string, msg Message, excludePlayer string) int {
	m.mu.Lock()
	targets := make([]*connection, 0, len(m.rooms[tournamentID]))
	for connID := range m.rooms[tournamentID] {
		c, ok := m.conns[connID]
		if !ok {
			continue
		}
		if excludePlayer != "" && c.playerID == excludePlayer {
			continue
		}
		targets = append(targets, c)
	}
	m.mu.Unlock()

	sent := 0
	var failed []string
	for _, c := range targets {
		if err := c.write(msg); err != nil {
			m.log.Warn().Err(err).Str("connection_id", c.id).Msg("broadcast send failed")
			failed = append(failed, c.id)
			continue
		}
		sent++
	}
	for _, connID := range failed {
		m.Disconnect(connID)
	}
	return sent
}

// SendMatchUpdate pushes a match frame to both fighters.
func (m *Manager) SendMatchUpdate(matchID, player1ID, player2ID string, data any) int {
	sent := 0
	msg := MatchUpdate(matchID, data)
	if m.SendToPlayer(player1ID, msg) {
		sent++
	}
	if m.SendToPlayer(player2ID, msg) {
		sent++
	}
	return sent
}

// HandlePing refreshes the keepalive timestamp and answers with a pong.
func (m *Manager) HandlePing(connectionID string) {
	m.mu.Lock()
	c, ok := m.conns[connectionID]
	if ok {
		c.lastPing = time.Now().UTC()
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := c.write(Pong()); err != nil {
		m.log.Warn().Err(err).Str("connection_id", connectionID).Msg("pong failed")
		m.Disconnect(connectionID)
	}
}

// ReapIdle evicts connections whose last ping is older than maxIdle and
// returns how many were dropped. Reaped players lose their cached session
// outright; a dead peer has nothing worth recovering.
func (m *Manager) ReapIdle(maxIdle time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxIdle)

	m.mu.Lock()
	var stale []*connection
	for _, c := range m.conns {
		if c.lastPing.Before(cutoff) {
			stale = append(stale, c)
			_ = c.conn.Close()
		}
	}
	m.mu.Unlock()

	for _, c := range stale {
		m.Disconnect(c.id)
		m.cache.DeletePlayerSession(context.Background(), c.playerID)
	}
	return len(stale)
}

// Stats summarizes live connection state for the monitoring endpoint.
func (m *Manager) Stats() Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	rooms := make(map[string]int, len(m.rooms))
	for tournamentID, room := range m.rooms {
		rooms[tournamentID] = len(room)
	}
	return Message{
		"total_connections": len(m.conns),
		"tournament_rooms":  len(m.rooms),
		"players_connected": len(m.players),
		"rooms_detail":      rooms,
	}
}
