package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"auto-gladiators-backend/catalog"
	"auto-gladiators-backend/models"
)

// PlayerService serves the hero roster, the item shop and player
// progression data.
type PlayerService struct {
	DB      *gorm.DB
	Store   Store
	Economy *Economy
	Log     zerolog.Logger
}

func NewPlayerService(db *gorm.DB, store Store, economy *Economy, log zerolog.Logger) *PlayerService {
	return &PlayerService{DB: db, Store: store, Economy: economy, Log: log}
}

func (s *PlayerService) GetHeroes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"heroes": catalog.Heroes()})
}

func (s *PlayerService) GetHero(c *fiber.Ctx) error {
	hero := catalog.HeroByID(c.Params("id"))
	if hero == nil {
		return c.Status(404).JSON(fiber.Map{"error": "Hero not found"})
	}
	return c.JSON(hero.View())
}

// shopItemView decorates a catalog entry with caller-specific availability.
type shopItemView struct {
	catalog.ShopItem
	Available     bool `json:"available"`
	OwnedQuantity int  `json:"owned_quantity"`
}

// GetShopItems lists the store with per-caller availability, filterable by
// ?category= and ?rarity=.
func (s *PlayerService) GetShopItems(c *fiber.Ctx) error {
	playerID, ok := c.Locals("player_id").(string)
	if !ok || playerID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing player context"})
	}

	stats, err := s.Store.PlayerStats(c.Context(), playerID)
	if err != nil {
		s.Log.Error().Err(err).Str("player_id", playerID).Msg("load stats failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to load player stats"})
	}

	category := c.Query("category")
	rarity := c.Query("rarity")

	owned := make(map[string]int, len(stats.Items))
	for _, it := range stats.Items {
		owned[it.ID]++
	}

	var views []shopItemView
	for _, item := range catalog.ShopItems() {
		if category != "" && item.Category != category {
			continue
		}
		if rarity != "" && item.Rarity != rarity {
			continue
		}
		quantity := owned[item.ID]
		available := stats.Gold >= item.Price &&
			s.Economy.MeetsRequirements(&item, stats) &&
			(item.MaxQuantity == 0 || quantity < item.MaxQuantity)
		views = append(views, shopItemView{
			ShopItem:      item,
			Available:     available,
			OwnedQuantity: quantity,
		})
	}
	return c.JSON(views)
}

func (s *PlayerService) GetShopCategories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"categories": []fiber.Map{
			{"id": "ability_upgrade", "name": "Ability Upgrades", "description": "Enhance your hero's abilities"},
			{"id": "stat_boost", "name": "Stat Boosts", "description": "Permanent stat improvements"},
			{"id": "consumable", "name": "Consumables", "description": "Single-use items for tournaments"},
		},
	})
}

func (s *PlayerService) GetShopRarities(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"rarities": []fiber.Map{
			{"id": "common", "name": "Common", "color": "#ffffff"},
			{"id": "rare", "name": "Rare", "color": "#0099ff"},
			{"id": "epic", "name": "Epic", "color": "#9933ff"},
			{"id": "legendary", "name": "Legendary", "color": "#ff9900"},
		},
	})
}

type purchaseRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// PurchaseItem buys one or more copies of a shop item. Failures come back
// as success=false with the unchanged balance, not as HTTP errors.
func (s *PlayerService) PurchaseItem(c *fiber.Ctx) error {
	playerID, ok := c.Locals("player_id").(string)
	if !ok || playerID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing player context"})
	}

	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	item := catalog.ShopItemByID(req.ItemID)
	if item == nil {
		return c.Status(404).JSON(fiber.Map{"error": "Item not found"})
	}

	stats, err := s.Store.PlayerStats(c.Context(), playerID)
	if err != nil {
		s.Log.Error().Err(err).Str("player_id", playerID).Msg("load stats failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to load player stats"})
	}

	deny := func(message string) error {
		return c.JSON(fiber.Map{
			"success":            false,
			"message":            message,
			"new_gold_balance":   stats.Gold,
			"item_purchased":     item,
			"quantity_purchased": 0,
		})
	}

	totalCost := item.Price * req.Quantity
	if stats.Gold < totalCost {
		return deny(fmt.Sprintf("Insufficient gold. Need %d, have %d", totalCost, stats.Gold))
	}
	if !s.Economy.MeetsRequirements(item, stats) {
		return deny("Requirements not met for this item")
	}

	owned := 0
	for _, it := range stats.Items {
		if it.ID == item.ID {
			owned++
		}
	}
	if item.MaxQuantity > 0 && owned+req.Quantity > item.MaxQuantity {
		return deny(fmt.Sprintf("Cannot purchase %d. Max quantity: %d, owned: %d", req.Quantity, item.MaxQuantity, owned))
	}

	stats.Gold -= totalCost
	now := time.Now().UTC()
	for i := 0; i < req.Quantity; i++ {
		stats.Items = append(stats.Items, models.OwnedItem{
			ID:         item.ID,
			Name:       item.Name,
			Rarity:     item.Rarity,
			EarnedFrom: "shop",
			EarnedAt:   now,
		})
	}
	if err := s.Store.SavePlayerStats(c.Context(), stats); err != nil {
		s.Log.Error().Err(err).Str("player_id", playerID).Msg("save purchase failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to save purchase"})
	}

	return c.JSON(fiber.Map{
		"success":            true,
		"message":            fmt.Sprintf("Successfully purchased %dx %s", req.Quantity, item.Name),
		"new_gold_balance":   stats.Gold,
		"item_purchased":     item,
		"quantity_purchased": req.Quantity,
	})
}

// GetInventory returns the caller's items with their summed catalog value.
func (s *PlayerService) GetInventory(c *fiber.Ctx) error {
	playerID, ok := c.Locals("player_id").(string)
	if !ok || playerID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing player context"})
	}

	stats, err := s.Store.PlayerStats(c.Context(), playerID)
	if err != nil {
		s.Log.Error().Err(err).Str("player_id", playerID).Msg("load stats failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to load player stats"})
	}

	totalValue := 0
	for _, owned := range stats.Items {
		if item := catalog.ShopItemByID(owned.ID); item != nil {
			totalValue += item.Price
		}
	}

	items := stats.Items
	if items == nil {
		items = []models.OwnedItem{}
	}
	return c.JSON(fiber.Map{
		"items":        items,
		"total_value":  totalValue,
		"stat_bonuses": s.Economy.StatBonuses(stats),
	})
}

// GetMyStats returns the caller's ledger, creating it on first touch.
func (s *PlayerService) GetMyStats(c *fiber.Ctx) error {
	playerID, ok := c.Locals("player_id").(string)
	if !ok || playerID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing player context"})
	}

	stats, err := s.Store.PlayerStats(c.Context(), playerID)
	if err != nil {
		s.Log.Error().Err(err).Str("player_id", playerID).Msg("load stats failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to load player stats"})
	}
	return c.JSON(stats)
}

// GetPlayerStats returns another player's ledger without auto-creating it.
func (s *PlayerService) GetPlayerStats(c *fiber.Ctx) error {
	var stats models.PlayerStats
	err := s.DB.First(&stats, "player_id = ?", c.Params("player_id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "Player stats not found"})
	}
	if err != nil {
		s.Log.Error().Err(err).Msg("load stats failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to load player stats"})
	}
	return c.JSON(stats)
}

// GetPlayer returns a mirrored player profile.
func (s *PlayerService) GetPlayer(c *fiber.Ctx) error {
	var player models.Player
	err := s.DB.First(&player, "id = ?", c.Params("player_id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "Player not found"})
	}
	if err != nil {
		s.Log.Error().Err(err).Msg("load player failed")
		return c.Status(500).JSON(fiber.Map{"error": "failed to load player"})
	}
	return c.JSON(player)
}
