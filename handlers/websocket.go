package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"auto-gladiators-backend/cache"
	"auto-gladiators-backend/models"
	"auto-gladiators-backend/realtime"
)

// WebSocketHandler hosts the tournament and player sockets.
type WebSocketHandler struct {
	DB      *gorm.DB
	Cache   *cache.Cache
	Manager *realtime.Manager
	Log     zerolog.Logger
}

func NewWebSocketHandler(db *gorm.DB, c *cache.Cache, manager *realtime.Manager, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{DB: db, Cache: c, Manager: manager, Log: log}
}

// SetupWebSocketRoutes mounts the realtime endpoints. The stats endpoint is
// plain HTTP and registered before the upgrade guard.
func SetupWebSocketRoutes(app *fiber.App, h *WebSocketHandler) {
	app.Get("/ws/stats", h.Stats)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/tournament/:id", websocket.New(h.TournamentSocket))
	app.Get("/ws/player", websocket.New(h.PlayerSocket))
}

// Stats reports live connection counts plus cache health.
func (h *WebSocketHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"connections":     h.Manager.Stats(),
		"redis_connected": h.Cache.Connected(),
	})
}

// TournamentSocket streams one tournament's progression to a participant.
// The current state is replayed on connect so reconnects recover mid-round.
func (h *WebSocketHandler) TournamentSocket(conn *websocket.Conn) {
	defer conn.Close()

	tournamentID := conn.Params("id")
	playerID := conn.Query("player_id")
	if playerID == "" {
		_ = conn.WriteJSON(realtime.ErrorMessage("player_id query parameter is required"))
		return
	}

	var tournament models.Tournament
	if err := h.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		_ = conn.WriteJSON(realtime.ErrorMessage("Tournament not found"))
		return
	}

	var participant models.TournamentParticipant
	err := h.DB.Where("tournament_id = ? AND player_id = ?", tournamentID, playerID).
		First(&participant).Error
	if err != nil {
		_ = conn.WriteJSON(realtime.ErrorMessage("Not a tournament participant"))
		return
	}

	connID := h.Manager.Connect(conn, playerID, tournamentID)
	defer h.Manager.Disconnect(connID)

	h.sendTournamentState(playerID, &tournament)
	h.readLoop(conn, connID, func(msg map[string]any) {
		h.handleTournamentMessage(connID, playerID, tournamentID, msg)
	})
}

// PlayerSocket is the lobby-level socket: personal notifications plus
// explicit room joins.
func (h *WebSocketHandler) PlayerSocket(conn *websocket.Conn) {
	defer conn.Close()

	playerID := conn.Query("player_id")
	if playerID == "" {
		_ = conn.WriteJSON(realtime.ErrorMessage("player_id query parameter is required"))
		return
	}

	// Snapshot the previous session before Connect overwrites it, so a
	// reconnect can tell the client what it was doing.
	var prevSession map[string]any
	h.Cache.GetPlayerSession(context.Background(), playerID, &prevSession)

	connID := h.Manager.Connect(conn, playerID, "")
	defer h.Manager.Disconnect(connID)

	h.sendPlayerState(playerID, prevSession)
	h.readLoop(conn, connID, func(msg map[string]any) {
		h.handlePlayerMessage(connID, msg)
	})
}

// readLoop pumps client frames until the peer goes away. Malformed JSON is
// answered with an error frame, not a disconnect.
func (h *WebSocketHandler) readLoop(conn *websocket.Conn, connID string, handle func(map[string]any)) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = conn.WriteJSON(realtime.ErrorMessage("Invalid JSON format"))
			continue
		}
		handle(msg)
	}
}

func (h *WebSocketHandler) handleTournamentMessage(connID, playerID, tournamentID string, msg map[string]any) {
	msgType, _ := msg["type"].(string)
	switch msgType {
	case realtime.ClientPing:
		h.Manager.HandlePing(connID)
	case "request_bracket":
		var bracket map[string]any
		if h.Cache.GetBracket(context.Background(), tournamentID, &bracket) {
			h.Manager.SendToPlayer(playerID, realtime.Message{
				"type": "tournament_bracket",
				"data": bracket,
			})
		}
	case realtime.ClientReadyForMatch:
		h.Cache.SetPlayerSession(context.Background(), playerID, realtime.Message{
			"status":        "ready_for_match",
			"tournament_id": tournamentID,
			"ready_at":      time.Now().UTC().Format(time.RFC3339),
		})
		h.Manager.Broadcast(tournamentID, realtime.Message{
			"type":      "player_ready",
			"player_id": playerID,
		}, "")
	default:
		h.Log.Debug().Str("type", msgType).Msg("unknown tournament message")
	}
}

func (h *WebSocketHandler) handlePlayerMessage(connID string, msg map[string]any) {
	msgType, _ := msg["type"].(string)
	switch msgType {
	case realtime.ClientPing:
		h.Manager.HandlePing(connID)
	case realtime.ClientJoinTournament:
		if tournamentID, _ := msg["tournament_id"].(string); tournamentID != "" {
			h.Manager.JoinRoom(connID, tournamentID)
		}
	case realtime.ClientLeaveTournament:
		if tournamentID, _ := msg["tournament_id"].(string); tournamentID != "" {
			h.Manager.LeaveRoom(connID, tournamentID)
		}
	default:
		h.Log.Debug().Str("type", msgType).Msg("unknown player message")
	}
}

// sendTournamentState replays the current snapshot, cache first with a
// database fallback that re-primes the cache.
func (h *WebSocketHandler) sendTournamentState(playerID string, tournament *models.Tournament) {
	ctx := context.Background()

	var cached map[string]any
	if h.Cache.GetTournamentState(ctx, tournament.ID, &cached) {
		h.Manager.SendToPlayer(playerID, realtime.Message{
			"type": "tournament_state",
			"data": cached,
		})
		return
	}

	var participants []models.TournamentParticipant
	if err := h.DB.Where("tournament_id = ?", tournament.ID).
		Order("joined_at asc").
		Find(&participants).Error; err != nil {
		h.Log.Error().Err(err).Str("tournament_id", tournament.ID).Msg("state fallback failed")
		return
	}

	views := make([]realtime.Message, 0, len(participants))
	for _, p := range participants {
		views = append(views, realtime.Message{
			"player_id":      p.PlayerID,
			"hero_id":        p.HeroID,
			"current_health": p.CurrentHealth,
			"max_health":     p.MaxHealth,
			"status":         p.Status,
			"placement":      p.Placement,
		})
	}
	state := realtime.Message{
		"tournament": realtime.Message{
			"id":              tournament.ID,
			"name":            tournament.Name,
			"status":          tournament.Status,
			"current_players": tournament.CurrentPlayers,
			"max_players":     tournament.MaxPlayers,
			"created_at":      tournament.CreatedAt.UTC().Format(time.RFC3339),
		},
		"participants": views,
	}
	if tournament.StartedAt != nil {
		state["tournament"].(realtime.Message)["started_at"] = tournament.StartedAt.UTC().Format(time.RFC3339)
	}

	h.Cache.SetTournamentState(ctx, tournament.ID, state)
	h.Manager.SendToPlayer(playerID, realtime.Message{
		"type": "tournament_state",
		"data": state,
	})
}

// sendPlayerState pushes the player's profile, open tournaments and the
// session state that was cached before this connect.
func (h *WebSocketHandler) sendPlayerState(playerID string, prevSession map[string]any) {
	var player models.Player
	if err := h.DB.First(&player, "id = ?", playerID).Error; err != nil {
		// Profiles are mirrored lazily; an unknown id still gets a socket.
		player = models.Player{ID: playerID}
	}

	var tournaments []models.Tournament
	err := h.DB.
		Joins("JOIN tournament_participants tp ON tp.tournament_id = tournaments.id").
		Where("tp.player_id = ? AND tournaments.status IN ?", playerID,
			[]string{models.TournamentWaiting, models.TournamentActive}).
		Find(&tournaments).Error
	if err != nil {
		h.Log.Error().Err(err).Str("player_id", playerID).Msg("load active tournaments failed")
	}

	views := make([]realtime.Message, 0, len(tournaments))
	for _, t := range tournaments {
		views = append(views, realtime.Message{
			"id":              t.ID,
			"name":            t.Name,
			"status":          t.Status,
			"current_players": t.CurrentPlayers,
			"max_players":     t.MaxPlayers,
		})
	}

	data := realtime.Message{
		"player": realtime.Message{
			"id":       player.ID,
			"username": player.Username,
		},
		"active_tournaments": views,
	}

	if prevSession != nil {
		data["last_session"] = prevSession
	}

	h.Manager.SendToPlayer(playerID, realtime.Message{
		"type": "player_state",
		"data": data,
	})
}
