package services

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"auto-gladiators-backend/cache"
	"auto-gladiators-backend/models"
)

// MatchService serves match history and live match state.
type MatchService struct {
	DB    *gorm.DB
	Cache *cache.Cache
	Log   zerolog.Logger
}

func NewMatchService(db *gorm.DB, c *cache.Cache, log zerolog.Logger) *MatchService {
	return &MatchService{DB: db, Cache: c, Log: log}
}

// GetTournamentMatches lists a tournament's matches, optionally filtered by
// round via ?round_number=.
func (s *MatchService) GetTournamentMatches(c *fiber.Ctx) error {
	tournamentID := c.Params("tournament_id")

	var tournament models.Tournament
	err := s.DB.First(&tournament, "id = ?", tournamentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	if err != nil {
		s.Log.Error().Err(err).Msg("load tournament failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to load tournament"})
	}

	query := s.DB.Where("tournament_id = ?", tournamentID)
	if roundStr := c.Query("round_number"); roundStr != "" {
		round, err := strconv.Atoi(roundStr)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "round_number must be an integer"})
		}
		query = query.Where("round_number = ?", round)
	}

	var matches []models.Match
	if err := query.Order("round_number, match_number").Find(&matches).Error; err != nil {
		s.Log.Error().Err(err).Msg("list matches failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to list matches"})
	}
	return c.JSON(matches)
}

// GetMatch returns one match; live matches answer from the cache first.
func (s *MatchService) GetMatch(c *fiber.Ctx) error {
	matchID := c.Params("id")

	var cached map[string]any
	if s.Cache.GetMatchState(c.Context(), matchID, &cached) {
		return c.JSON(cached)
	}

	var match models.Match
	err := s.DB.First(&match, "id = ?", matchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "Match not found"})
	}
	if err != nil {
		s.Log.Error().Err(err).Msg("load match failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to load match"})
	}
	return c.JSON(match)
}

// GetPlayerMatches lists matches the player fought on either side,
// optionally narrowed to one tournament.
func (s *MatchService) GetPlayerMatches(c *fiber.Ctx) error {
	playerID := c.Params("player_id")

	query := s.DB.Where("player1_id = ? OR player2_id = ?", playerID, playerID)
	if tournamentID := c.Query("tournament_id"); tournamentID != "" {
		query = query.Where("tournament_id = ?", tournamentID)
	}

	var matches []models.Match
	if err := query.Order("started_at desc").Find(&matches).Error; err != nil {
		s.Log.Error().Err(err).Msg("list player matches failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to list matches"})
	}
	return c.JSON(matches)
}

// GetMyMatches is GetPlayerMatches for the authenticated caller.
func (s *MatchService) GetMyMatches(c *fiber.Ctx) error {
	playerID, ok := c.Locals("player_id").(string)
	if !ok || playerID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing player context"})
	}

	query := s.DB.Where("player1_id = ? OR player2_id = ?", playerID, playerID)
	if tournamentID := c.Query("tournament_id"); tournamentID != "" {
		query = query.Where("tournament_id = ?", tournamentID)
	}

	var matches []models.Match
	if err := query.Order("started_at desc").Find(&matches).Error; err != nil {
		s.Log.Error().Err(err).Msg("list my matches failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to list matches"})
	}
	return c.JSON(matches)
}
