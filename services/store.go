package services

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"auto-gladiators-backend/models"
)

// ErrNotFound is returned by store lookups for missing rows.
var ErrNotFound = eris.New("record not found")

// Store is the persistence surface the tournament orchestrator runs
// against. Production wires GormStore; tests use an in-memory fake.
type Store interface {
	Tournament(ctx context.Context, id string) (*models.Tournament, error)
	SaveTournament(ctx context.Context, t *models.Tournament) error

	Participants(ctx context.Context, tournamentID string) ([]models.TournamentParticipant, error)
	ActiveParticipants(ctx context.Context, tournamentID string) ([]models.TournamentParticipant, error)
	SaveParticipant(ctx context.Context, p *models.TournamentParticipant) error

	CreateMatches(ctx context.Context, matches []*models.Match) error
	SaveMatch(ctx context.Context, m *models.Match) error

	PlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error)
	SavePlayerStats(ctx context.Context, s *models.PlayerStats) error
}

// GormStore backs the Store interface with the shared Postgres handle.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (g *GormStore) Tournament(ctx context.Context, id string) (*models.Tournament, error) {
	var t models.Tournament
	err := g.DB.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "load tournament")
	}
	return &t, nil
}

func (g *GormStore) SaveTournament(ctx context.Context, t *models.Tournament) error {
	if err := g.DB.WithContext(ctx).Save(t).Error; err != nil {
		return eris.Wrap(err, "save tournament")
	}
	return nil
}

func (g *GormStore) Participants(ctx context.Context, tournamentID string) ([]models.TournamentParticipant, error) {
	var out []models.TournamentParticipant
	err := g.DB.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("joined_at asc").
		Find(&out).Error
	if err != nil {
		return nil, eris.Wrap(err, "load participants")
	}
	return out, nil
}

func (g *GormStore) ActiveParticipants(ctx context.Context, tournamentID string) ([]models.TournamentParticipant, error) {
	var out []models.TournamentParticipant
	err := g.DB.WithContext(ctx).
		Where("tournament_id = ? AND status = ?", tournamentID, models.ParticipantActive).
		Order("joined_at asc").
		Find(&out).Error
	if err != nil {
		return nil, eris.Wrap(err, "load active participants")
	}
	return out, nil
}

func (g *GormStore) SaveParticipant(ctx context.Context, p *models.TournamentParticipant) error {
	if err := g.DB.WithContext(ctx).Save(p).Error; err != nil {
		return eris.Wrap(err, "save participant")
	}
	return nil
}

func (g *GormStore) CreateMatches(ctx context.Context, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	if err := g.DB.WithContext(ctx).Create(matches).Error; err != nil {
		return eris.Wrap(err, "create matches")
	}
	return nil
}

func (g *GormStore) SaveMatch(ctx context.Context, m *models.Match) error {
	if err := g.DB.WithContext(ctx).Save(m).Error; err != nil {
		return eris.Wrap(err, "save match")
	}
	return nil
}

// PlayerStats loads a player ledger, creating the default row on first
// touch so new players start with seed gold.
func (g *GormStore) PlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	var stats models.PlayerStats
	err := g.DB.WithContext(ctx).First(&stats, "player_id = ?", playerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = models.PlayerStats{PlayerID: playerID, Gold: 100}
		if err := g.DB.WithContext(ctx).Create(&stats).Error; err != nil {
			return nil, eris.Wrap(err, "create player stats")
		}
		return &stats, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "load player stats")
	}
	return &stats, nil
}

func (g *GormStore) SavePlayerStats(ctx context.Context, s *models.PlayerStats) error {
	if err := g.DB.WithContext(ctx).Save(s).Error; err != nil {
		return eris.Wrap(err, "save player stats")
	}
	return nil
}
