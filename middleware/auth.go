package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// PlayerContextMiddleware extracts the player identity set by the gateway.
// Auth itself lives at the edge; this service trusts X-Player-ID.
func PlayerContextMiddleware(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		playerID := c.Get("X-Player-ID")
		if playerID == "" {
			log.Warn().Str("path", c.Path()).Msg("missing X-Player-ID on secured route")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-Player-ID — request must come through gateway with auth context",
			})
		}

		c.Locals("player_id", playerID)
		if username := c.Get("X-Player-Username"); username != "" {
			c.Locals("player_username", username)
		}
		return c.Next()
	}
}
