package models

import (
	"time"

	"auto-gladiators-backend/combat"
)

// Match statuses. Monotonic: pending -> active -> completed|error.
const (
	MatchPending   = "pending"
	MatchActive    = "active"
	MatchCompleted = "completed"
	MatchError     = "error"
)

// Match records one head-to-head battle inside a tournament round. The battle
// log is the simulator's chronological event stream, stored as JSON.
type Match struct {
	ID           string         `json:"id" gorm:"primaryKey;type:uuid"`
	TournamentID string         `json:"tournament_id" gorm:"not null;index"`
	RoundNumber  int            `json:"round_number" gorm:"not null;index"`
	MatchNumber  int            `json:"match_number" gorm:"not null"`
	Player1ID    string         `json:"player1_id" gorm:"not null;type:uuid"`
	Player2ID    string         `json:"player2_id" gorm:"not null;type:uuid"`
	WinnerID     *string        `json:"winner_id,omitempty" gorm:"type:uuid"`
	Status       string         `json:"status" gorm:"default:'pending';index"`
	BattleLog    []combat.Event `json:"battle_log" gorm:"serializer:json"`
	Duration     int            `json:"match_duration"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}
