package services

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"auto-gladiators-backend/cache"
	"auto-gladiators-backend/catalog"
	"auto-gladiators-backend/models"
)

// TournamentService owns the tournament lobby endpoints: create, browse,
// join and leave. A tournament that fills up flips to active and is handed
// to the orchestrator.
type TournamentService struct {
	DB           *gorm.DB
	Cache        *cache.Cache
	Orchestrator *Orchestrator
	Log          zerolog.Logger
}

func NewTournamentService(db *gorm.DB, c *cache.Cache, orchestrator *Orchestrator, log zerolog.Logger) *TournamentService {
	return &TournamentService{DB: db, Cache: c, Orchestrator: orchestrator, Log: log}
}

type createTournamentRequest struct {
	Name           string `json:"name"`
	MaxPlayers     int    `json:"max_players"`
	EntryFee       int    `json:"entry_fee"`
	TournamentType string `json:"tournament_type"`
}

func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	var req createTournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.Name == "" {
		req.Name = "Tournament"
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = 8
	}
	if req.MaxPlayers < 2 || req.MaxPlayers > 16 {
		return c.Status(400).JSON(fiber.Map{"error": "max_players must be between 2 and 16"})
	}
	if req.EntryFee < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "entry_fee must not be negative"})
	}
	if req.TournamentType == "" {
		req.TournamentType = "elimination"
	}
	if req.TournamentType != "elimination" {
		return c.Status(400).JSON(fiber.Map{"error": "unsupported tournament_type"})
	}

	tournament := models.Tournament{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Status:         models.TournamentWaiting,
		MaxPlayers:     req.MaxPlayers,
		EntryFee:       req.EntryFee,
		PrizePool:      req.EntryFee * req.MaxPlayers,
		TournamentType: req.TournamentType,
	}
	if err := s.DB.Create(&tournament).Error; err != nil {
		s.Log.Error().Err(err).Msg("create tournament failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to create tournament"})
	}

	return c.Status(201).JSON(tournament)
}

func (s *TournamentService) ListTournaments(c *fiber.Ctx) error {
	query := s.DB.Model(&models.Tournament{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var tournaments []models.Tournament
	if err := query.Order("created_at desc").Find(&tournaments).Error; err != nil {
		s.Log.Error().Err(err).Msg("list tournaments failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to list tournaments"})
	}
	return c.JSON(tournaments)
}

func (s *TournamentService) GetTournament(c *fiber.Ctx) error {
	var tournament models.Tournament
	err := s.DB.First(&tournament, "id = ?", c.Params("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	if err != nil {
		s.Log.Error().Err(err).Msg("load tournament failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to load tournament"})
	}
	return c.JSON(tournament)
}

type joinTournamentRequest struct {
	HeroID string `json:"hero_id"`
}

// JoinTournament registers the caller with their chosen hero. The join that
// fills the bracket flips the tournament to active and starts the run loop.
func (s *TournamentService) JoinTournament(c *fiber.Ctx) error {
	playerID, ok := c.Locals("player_id").(string)
	if !ok || playerID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing player context"})
	}

	var req joinTournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	hero := catalog.HeroByID(req.HeroID)
	if hero == nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid hero selection"})
	}

	tournamentID := c.Params("id")
	var participant models.TournamentParticipant
	var launch bool

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var tournament models.Tournament
		if err := tx.First(&tournament, "id = ?", tournamentID).Error; err != nil {
			return err
		}
		if tournament.Status != models.TournamentWaiting {
			return errTournamentClosed
		}
		if tournament.CurrentPlayers >= tournament.MaxPlayers {
			return errTournamentFull
		}

		var existing models.TournamentParticipant
		err := tx.Where("tournament_id = ? AND player_id = ?", tournamentID, playerID).
			First(&existing).Error
		if err == nil {
			return errAlreadyJoined
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		participant = models.TournamentParticipant{
			TournamentID:  tournamentID,
			PlayerID:      playerID,
			HeroID:        hero.ID,
			CurrentHealth: hero.Stats.Health,
			MaxHealth:     hero.Stats.Health,
			CurrentMana:   0,
			MaxMana:       100,
			Status:        models.ParticipantActive,
			JoinedAt:      time.Now().UTC(),
		}
		if err := tx.Create(&participant).Error; err != nil {
			return err
		}

		tournament.CurrentPlayers++
		if tournament.CurrentPlayers >= tournament.MaxPlayers {
			tournament.Status = models.TournamentActive
			now := time.Now().UTC()
			tournament.StartedAt = &now
			launch = true
		}
		return tx.Save(&tournament).Error
	})

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	case errors.Is(err, errTournamentClosed):
		return c.Status(400).JSON(fiber.Map{"error": "Tournament is not accepting new players"})
	case errors.Is(err, errTournamentFull):
		return c.Status(400).JSON(fiber.Map{"error": "Tournament is full"})
	case errors.Is(err, errAlreadyJoined):
		return c.Status(400).JSON(fiber.Map{"error": "Already joined this tournament"})
	case err != nil:
		s.Log.Error().Err(err).Str("tournament_id", tournamentID).Msg("join failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to join tournament"})
	}

	if launch {
		if err := s.Orchestrator.StartTournament(c.Context(), tournamentID); err != nil {
			s.Log.Error().Err(err).Str("tournament_id", tournamentID).Msg("start tournament failed")
		}
	}
	return c.JSON(participant)
}

// LeaveTournament withdraws the caller while the lobby is still open.
func (s *TournamentService) LeaveTournament(c *fiber.Ctx) error {
	playerID, ok := c.Locals("player_id").(string)
	if !ok || playerID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing player context"})
	}
	tournamentID := c.Params("id")

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var tournament models.Tournament
		if err := tx.First(&tournament, "id = ?", tournamentID).Error; err != nil {
			return err
		}
		if tournament.Status != models.TournamentWaiting {
			return errTournamentClosed
		}

		var participant models.TournamentParticipant
		err := tx.Where("tournament_id = ? AND player_id = ?", tournamentID, playerID).
			First(&participant).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errNotParticipant
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&participant).Error; err != nil {
			return err
		}
		tournament.CurrentPlayers--
		return tx.Save(&tournament).Error
	})

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	case errors.Is(err, errTournamentClosed):
		return c.Status(400).JSON(fiber.Map{"error": "Cannot leave tournament that has already started"})
	case errors.Is(err, errNotParticipant):
		return c.Status(404).JSON(fiber.Map{"error": "Not participating in this tournament"})
	case err != nil:
		s.Log.Error().Err(err).Str("tournament_id", tournamentID).Msg("leave failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to leave tournament"})
	}

	return c.JSON(fiber.Map{"message": "Successfully left tournament"})
}

func (s *TournamentService) GetParticipants(c *fiber.Ctx) error {
	tournamentID := c.Params("id")

	var tournament models.Tournament
	err := s.DB.First(&tournament, "id = ?", tournamentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	if err != nil {
		s.Log.Error().Err(err).Msg("load tournament failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to load tournament"})
	}

	var participants []models.TournamentParticipant
	if err := s.DB.Where("tournament_id = ?", tournamentID).
		Order("joined_at asc").
		Find(&participants).Error; err != nil {
		s.Log.Error().Err(err).Msg("load participants failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to load participants"})
	}
	return c.JSON(participants)
}

// Sentinel errors carried out of join/leave transactions.
var (
	errTournamentClosed = errors.New("tournament closed")
	errTournamentFull   = errors.New("tournament full")
	errAlreadyJoined    = errors.New("already joined")
	errNotParticipant   = errors.New("not a participant")
)
