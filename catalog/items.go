package catalog

// ItemEffects holds every effect field a shop item can carry. Zero values
// drop out of the JSON so each item only shows its own effects.
type ItemEffects struct {
	DamageMultiplier  float64 `json:"damage_multiplier,omitempty"`
	CooldownReduction float64 `json:"cooldown_reduction,omitempty"`
	ManaCostReduction float64 `json:"mana_cost_reduction,omitempty"`
	AppliesTo         string  `json:"applies_to,omitempty"`
	HealthBonus       int     `json:"health_bonus,omitempty"`
	AttackBonus       int     `json:"attack_bonus,omitempty"`
	ArmorBonus        int     `json:"armor_bonus,omitempty"`
	SpeedBonus        int     `json:"speed_bonus,omitempty"`
	Permanent         bool    `json:"permanent,omitempty"`
	HealAmount        int     `json:"heal_amount,omitempty"`
	ManaRestore       int     `json:"mana_restore,omitempty"`
	SpeedMultiplier   float64 `json:"speed_multiplier,omitempty"`
	DamageReduction   float64 `json:"damage_reduction,omitempty"`
	Duration          int     `json:"duration,omitempty"`
	SingleUse         bool    `json:"single_use,omitempty"`
	CombatItem        bool    `json:"combat_item,omitempty"`
}

// ItemRequirements gate purchase on player progression.
type ItemRequirements struct {
	MinWins             int `json:"min_wins,omitempty"`
	MinGoldSpent        int `json:"min_gold_spent,omitempty"`
	TournamentVictories int `json:"tournament_victories,omitempty"`
}

// ShopItem is a static store entry.
type ShopItem struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Category     string            `json:"category"`
	Price        int               `json:"price"`
	Rarity       string            `json:"rarity"`
	Effects      ItemEffects       `json:"effects"`
	Requirements *ItemRequirements `json:"requirements"`
	MaxQuantity  int               `json:"max_quantity"`
}

// StatBonuses is the sum of permanent stat effects across owned items.
type StatBonuses struct {
	Health int `json:"health"`
	Attack int `json:"attack"`
	Armor  int `json:"armor"`
	Speed  int `json:"speed"`
}

var shopItems = []ShopItem{
	{
		ID:          "damage_boost_1",
		Name:        "Minor Damage Boost",
		Description: "Increases all ability damage by 10%",
		Category:    "ability_upgrade",
		Price:       50,
		Rarity:      "common",
		Effects:     ItemEffects{DamageMultiplier: 1.1, AppliesTo: "all_abilities"},
		MaxQuantity: 3,
	},
	{
		ID:           "damage_boost_2",
		Name:         "Major Damage Boost",
		Description:  "Increases all ability damage by 25%",
		Category:     "ability_upgrade",
		Price:        150,
		Rarity:       "rare",
		Effects:      ItemEffects{DamageMultiplier: 1.25, AppliesTo: "all_abilities"},
		Requirements: &ItemRequirements{MinWins: 5},
		MaxQuantity:  2,
	},
	{
		ID:          "cooldown_reduction_1",
		Name:        "Swift Casting",
		Description: "Reduces ultimate ability cooldown by 15%",
		Category:    "ability_upgrade",
		Price:       75,
		Rarity:      "common",
		Effects:     ItemEffects{CooldownReduction: 0.15, AppliesTo: "ultimate"},
		MaxQuantity: 2,
	},
	{
		ID:           "mana_efficiency",
		Name:         "Mana Efficiency",
		Description:  "Ultimate abilities cost 20% less mana",
		Category:     "ability_upgrade",
		Price:        100,
		Rarity:       "rare",
		Effects:      ItemEffects{ManaCostReduction: 0.2, AppliesTo: "ultimate"},
		Requirements: &ItemRequirements{MinWins: 3},
		MaxQuantity:  1,
	},
	{
		ID:          "health_boost_1",
		Name:        "Vitality Potion",
		Description: "Permanently increases max health by 25",
		Category:    "stat_boost",
		Price:       80,
		Rarity:      "common",
		Effects:     ItemEffects{HealthBonus: 25, Permanent: true},
		MaxQuantity: 5,
	},
	{
		ID:          "attack_boost_1",
		Name:        "Strength Elixir",
		Description: "Permanently increases attack by 10",
		Category:    "stat_boost",
		Price:       90,
		Rarity:      "common",
		Effects:     ItemEffects{AttackBonus: 10, Permanent: true},
		MaxQuantity: 5,
	},
	{
		ID:          "speed_boost_1",
		Name:        "Agility Serum",
		Description: "Permanently increases speed by 5",
		Category:    "stat_boost",
		Price:       70,
		Rarity:      "common",
		Effects:     ItemEffects{SpeedBonus: 5, Permanent: true},
		MaxQuantity: 4,
	},
	{
		ID:          "armor_boost_1",
		Name:        "Defensive Ward",
		Description: "Permanently increases armor by 8",
		Category:    "stat_boost",
		Price:       85,
		Rarity:      "common",
		Effects:     ItemEffects{ArmorBonus: 8, Permanent: true},
		MaxQuantity: 4,
	},
	{
		ID:           "legendary_might",
		Name:         "Legendary Might",
		Description:  "Massive boost: +50 health, +20 attack, +10 speed",
		Category:     "stat_boost",
		Price:        500,
		Rarity:       "legendary",
		Effects:      ItemEffects{HealthBonus: 50, AttackBonus: 20, SpeedBonus: 10, Permanent: true},
		Requirements: &ItemRequirements{MinWins: 15, MinGoldSpent: 1000},
		MaxQuantity:  1,
	},
	{
		ID:          "healing_potion",
		Name:        "Healing Potion",
		Description: "Restores 50 health during combat (single use)",
		Category:    "consumable",
		Price:       30,
		Rarity:      "common",
		Effects:     ItemEffects{HealAmount: 50, SingleUse: true, CombatItem: true},
		MaxQuantity: 10,
	},
	{
		ID:          "mana_potion",
		Name:        "Mana Potion",
		Description: "Instantly fills mana bar (single use)",
		Category:    "consumable",
		Price:       40,
		Rarity:      "common",
		Effects:     ItemEffects{ManaRestore: 100, SingleUse: true, CombatItem: true},
		MaxQuantity: 8,
	},
	{
		ID:           "berserker_rage",
		Name:         "Berserker Rage",
		Description:  "Doubles attack speed for 10 seconds (single use)",
		Category:     "consumable",
		Price:        120,
		Rarity:       "epic",
		Effects:      ItemEffects{SpeedMultiplier: 2.0, Duration: 10, SingleUse: true, CombatItem: true},
		Requirements: &ItemRequirements{MinWins: 8},
		MaxQuantity:  3,
	},
	{
		ID:           "divine_protection",
		Name:         "Divine Protection",
		Description:  "Reduces all damage taken by 50% for 15 seconds",
		Category:     "consumable",
		Price:        200,
		Rarity:       "legendary",
		Effects:      ItemEffects{DamageReduction: 0.5, Duration: 15, SingleUse: true, CombatItem: true},
		Requirements: &ItemRequirements{MinWins: 12, TournamentVictories: 2},
		MaxQuantity:  2,
	},
}

var itemIndex = func() map[string]*ShopItem {
	idx := make(map[string]*ShopItem, len(shopItems))
	for i := range shopItems {
		idx[shopItems[i].ID] = &shopItems[i]
	}
	return idx
}()

// ShopItems returns the full store listing.
func ShopItems() []ShopItem {
	return append([]ShopItem(nil), shopItems...)
}

// ShopItemByID looks up a store entry, nil when unknown.
func ShopItemByID(id string) *ShopItem {
	return itemIndex[id]
}

// ItemsByCategory filters the store by category.
func ItemsByCategory(category string) []ShopItem {
	var out []ShopItem
	for _, it := range shopItems {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out
}

// AffordableItems lists every item priced at or under the given balance.
func AffordableItems(gold int) []ShopItem {
	var out []ShopItem
	for _, it := range shopItems {
		if it.Price <= gold {
			out = append(out, it)
		}
	}
	return out
}
