package models

import "time"

// Tournament lifecycle statuses. Transitions are one-directional:
// waiting -> active -> completed.
const (
	TournamentWaiting   = "waiting"
	TournamentActive    = "active"
	TournamentCompleted = "completed"
)

// Participant statuses. An eliminated participant never reverts to active.
const (
	ParticipantActive     = "active"
	ParticipantEliminated = "eliminated"
)

// Tournament represents one elimination bracket and its occupancy.
type Tournament struct {
	ID             string     `json:"id" gorm:"primaryKey;type:uuid"`
	Name           string     `json:"name" gorm:"default:'Tournament'"`
	Status         string     `json:"status" gorm:"default:'waiting';index"`
	MaxPlayers     int        `json:"max_players" gorm:"default:8"`
	CurrentPlayers int        `json:"current_players" gorm:"default:0"`
	EntryFee       int        `json:"entry_fee" gorm:"default:0"`
	PrizePool      int        `json:"prize_pool" gorm:"default:0"`
	TournamentType string     `json:"tournament_type" gorm:"default:'elimination'"`
	CurrentRound   int        `json:"current_round" gorm:"default:0"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime;index"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	Participants []TournamentParticipant `json:"participants,omitempty" gorm:"foreignKey:TournamentID"`
	Matches      []Match                 `json:"matches,omitempty" gorm:"foreignKey:TournamentID"`
}

// TournamentParticipant is tournament-scoped membership of a player. Health
// and mana carry across rounds; the combat result application step is the
// only writer of those columns once the tournament is active.
type TournamentParticipant struct {
	TournamentID  string     `json:"tournament_id" gorm:"primaryKey;type:uuid"`
	PlayerID      string     `json:"player_id" gorm:"primaryKey;type:uuid"`
	HeroID        string     `json:"hero_id" gorm:"not null"`
	CurrentHealth int        `json:"current_health" gorm:"not null"`
	MaxHealth     int        `json:"max_health" gorm:"not null"`
	CurrentMana   int        `json:"current_mana" gorm:"default:0"`
	MaxMana       int        `json:"max_mana" gorm:"default:100"`
	Status        string     `json:"status" gorm:"default:'active';index"`
	EliminatedAt  *time.Time `json:"eliminated_at,omitempty"`
	Placement     *int       `json:"placement,omitempty"`
	PrizeWon      int        `json:"prize_won" gorm:"default:0"`
	JoinedAt      time.Time  `json:"joined_at" gorm:"autoCreateTime"`
}
