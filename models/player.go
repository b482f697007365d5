package models

import "time"

// Player is owned by the external auth service; we only mirror the columns
// the game needs. Credentials never live here.
type Player struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	IsActive  bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Stats *PlayerStats `json:"stats,omitempty" gorm:"foreignKey:PlayerID"`
}

// OwnedItem is one entry of a player's inventory, denormalized from the shop
// catalog at purchase/award time.
type OwnedItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	Rarity     string    `json:"rarity,omitempty"`
	EarnedFrom string    `json:"earned_from,omitempty"`
	EarnedAt   time.Time `json:"earned_at,omitempty"`
}

// Achievement is a career milestone entry, kept as loose JSON.
type Achievement struct {
	Type     string    `json:"type"`
	EarnedAt time.Time `json:"earned_at,omitempty"`
}

// PlayerStats is the mutable player ledger: gold, career win/loss totals and
// the permanent item inventory that feeds pre-match stat bonuses.
type PlayerStats struct {
	PlayerID            string        `json:"player_id" gorm:"primaryKey;type:uuid"`
	Gold                int           `json:"gold" gorm:"default:100"`
	TotalWins           int           `json:"total_wins" gorm:"default:0"`
	TotalLosses         int           `json:"total_losses" gorm:"default:0"`
	CurrentSeasonWins   int           `json:"current_season_wins" gorm:"default:0"`
	CurrentSeasonLosses int           `json:"current_season_losses" gorm:"default:0"`
	Items               []OwnedItem   `json:"items" gorm:"serializer:json"`
	Achievements        []Achievement `json:"achievements" gorm:"serializer:json"`
	CreatedAt           time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}
