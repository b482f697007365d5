package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"auto-gladiators-backend/realtime"
)

const (
	reapInterval = time.Minute
	maxIdle      = 5 * time.Minute
)

// SessionReaper periodically drops websocket connections that stopped
// pinging, so dead peers don't hold room slots.
type SessionReaper struct {
	Manager *realtime.Manager
	Log     zerolog.Logger
}

func NewSessionReaper(manager *realtime.Manager, log zerolog.Logger) *SessionReaper {
	return &SessionReaper{Manager: manager, Log: log}
}

// Run blocks until the context is cancelled. Start it in its own goroutine.
func (r *SessionReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := r.Manager.ReapIdle(maxIdle); dropped > 0 {
				r.Log.Info().Int("dropped", dropped).Msg("idle websocket connections reaped")
			}
		}
	}
}
