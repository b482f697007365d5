package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto-gladiators-backend/models"
)

func TestCalculateTournamentReward(t *testing.T) {
	e := NewEconomy()

	// Full 8-player bracket with no entry fee pays the raw table.
	r := e.CalculateTournamentReward(1, 8, 0)
	assert.Equal(t, 200, r.Gold)
	require.Len(t, r.BonusItems, 1)
	assert.Equal(t, "victory_token", r.BonusItems[0].ID)

	r = e.CalculateTournamentReward(4, 8, 0)
	assert.Equal(t, 75, r.Gold)
	assert.Empty(t, r.BonusItems)

	// Half-size bracket halves the base payout.
	r = e.CalculateTournamentReward(1, 4, 0)
	assert.Equal(t, 100, r.Gold)

	// Entry fees feed a pot bonus, split down to third place.
	r = e.CalculateTournamentReward(1, 8, 50)
	assert.Equal(t, 200+320, r.Gold)
	r = e.CalculateTournamentReward(2, 8, 50)
	assert.Equal(t, 150+160, r.Gold)
	r = e.CalculateTournamentReward(5, 8, 50)
	assert.Equal(t, 50+106, r.Gold)

	// Placements beyond the table clamp to last place.
	r = e.CalculateTournamentReward(12, 8, 0)
	assert.Equal(t, 10, r.Gold)
	assert.Equal(t, 8, r.Placement)
}

func TestAwardTournamentRewards(t *testing.T) {
	e := NewEconomy()

	stats := &models.PlayerStats{PlayerID: "p1", Gold: 100}
	summary := e.AwardTournamentRewards(stats, 1, 8, 0)
	assert.Equal(t, 200, summary.GoldEarned)
	assert.Equal(t, 300, stats.Gold)
	assert.Equal(t, 1, stats.TotalWins)
	assert.Zero(t, stats.TotalLosses)
	require.Len(t, stats.Items, 1)
	assert.Equal(t, "tournament", stats.Items[0].EarnedFrom)

	loser := &models.PlayerStats{PlayerID: "p2", Gold: 100}
	summary = e.AwardTournamentRewards(loser, 6, 8, 0)
	assert.Equal(t, 30, summary.GoldEarned)
	assert.Equal(t, 1, loser.TotalLosses)
	assert.Zero(t, loser.TotalWins)
	assert.Empty(t, loser.Items)
}

func TestAwardMatchReward(t *testing.T) {
	e := NewEconomy()
	stats := &models.PlayerStats{Gold: 0}

	assert.Equal(t, 25, e.AwardMatchReward(stats, true, false))
	assert.Equal(t, 75, e.AwardMatchReward(stats, true, true))
	assert.Equal(t, 5, e.AwardMatchReward(stats, false, false))
	assert.Equal(t, 105, stats.Gold)
}

func TestPurchaseRules(t *testing.T) {
	e := NewEconomy()

	stats := &models.PlayerStats{Gold: 100}
	item, err := e.Purchase(stats, "health_boost_1")
	require.NoError(t, err)
	assert.Equal(t, "health_boost_1", item.ID)
	assert.Equal(t, 20, stats.Gold)
	require.Len(t, stats.Items, 1)

	_, err = e.Purchase(stats, "health_boost_1")
	assert.ErrorIs(t, err, ErrInsufficientGold)

	_, err = e.Purchase(stats, "no_such_item")
	assert.ErrorIs(t, err, ErrUnknownItem)

	// Progression gate: 5 wins required for the major damage boost.
	rich := &models.PlayerStats{Gold: 1000}
	_, err = e.Purchase(rich, "damage_boost_2")
	assert.ErrorIs(t, err, ErrRequirementsNotMet)
	rich.TotalWins = 5
	_, err = e.Purchase(rich, "damage_boost_2")
	require.NoError(t, err)

	// Quantity cap: mana_efficiency allows a single copy.
	vet := &models.PlayerStats{Gold: 1000, TotalWins: 10}
	_, err = e.Purchase(vet, "mana_efficiency")
	require.NoError(t, err)
	_, err = e.Purchase(vet, "mana_efficiency")
	assert.ErrorIs(t, err, ErrItemLimitReached)
}

func TestStatBonusesResolveFromCatalog(t *testing.T) {
	e := NewEconomy()

	stats := &models.PlayerStats{
		Items: []models.OwnedItem{
			{ID: "health_boost_1"},
			{ID: "health_boost_1"},
			{ID: "attack_boost_1"},
			{ID: "armor_boost_1"},
			{ID: "speed_boost_1"},
			// Trophies and consumables add nothing.
			{ID: "victory_token"},
			{ID: "healing_potion"},
		},
	}

	b := e.StatBonuses(stats)
	assert.Equal(t, 50, b.Health)
	assert.Equal(t, 10, b.Attack)
	assert.Equal(t, 8, b.Armor)
	assert.Equal(t, 5, b.Speed)

	assert.Zero(t, e.StatBonuses(nil))
}
