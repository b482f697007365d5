package catalog

import "auto-gladiators-backend/combat"

// Ability is one named hero ability as shown to clients.
type Ability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HeroStats are the base combat stats before item bonuses.
type HeroStats struct {
	Health int `json:"health"`
	Attack int `json:"attack"`
	Armor  int `json:"armor"`
	Speed  int `json:"speed"`
}

// Hero is a static roster entry. The kind fields carry the resolved combat
// behavior so the simulator never parses names at battle time.
type Hero struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Avatar      string    `json:"avatar"`
	Description string    `json:"description"`
	Stats       HeroStats `json:"stats"`
	Passive     Ability   `json:"-"`
	Ultimate    Ability   `json:"-"`

	PassiveKind  combat.PassiveKind  `json:"-"`
	UltimateKind combat.UltimateKind `json:"-"`
}

// Abilities groups both abilities for JSON responses.
type Abilities struct {
	Passive  Ability `json:"passive"`
	Ultimate Ability `json:"ultimate"`
}

// heroView is the wire shape of a hero, matching what the shipped frontend
// consumes.
type heroView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Avatar      string    `json:"avatar"`
	Description string    `json:"description"`
	Stats       HeroStats `json:"stats"`
	Abilities   Abilities `json:"abilities"`
}

var heroes = []Hero{
	{
		ID:          "warrior",
		Name:        "Warrior",
		Type:        "Strength",
		Avatar:      "⚔️",
		Description: "A mighty melee fighter with high health and armor. Excels in close combat and can withstand heavy damage.",
		Stats:       HeroStats{Health: 120, Attack: 15, Armor: 8, Speed: 6},
		Passive:     Ability{Name: "Warrior Training", Description: "Gains damage reduction when health is low"},
		Ultimate:    Ability{Name: "Berserker", Description: "Increase attack speed when low HP"},
	},
	{
		ID:          "mage",
		Name:        "Mage",
		Type:        "Intelligence",
		Avatar:      "🔮",
		Description: "A powerful spellcaster with devastating magical abilities. High damage but fragile.",
		Stats:       HeroStats{Health: 80, Attack: 25, Armor: 3, Speed: 7},
		Passive:     Ability{Name: "Arcane Mastery", Description: "Generates mana faster during combat"},
		Ultimate:    Ability{Name: "Fireball", Description: "Launch a burning projectile"},
	},
	{
		ID:          "archer",
		Name:        "Archer",
		Type:        "Agility",
		Avatar:      "🏹",
		Description: "A swift ranged attacker with high accuracy and mobility. Strikes from a distance with precision.",
		Stats:       HeroStats{Health: 90, Attack: 20, Armor: 5, Speed: 9},
		Passive:     Ability{Name: "Eagle Eye", Description: "Chance for critical strikes with precision"},
		Ultimate:    Ability{Name: "Multi-Shot", Description: "Fire multiple arrows"},
	},
	{
		ID:          "assassin",
		Name:        "Assassin",
		Type:        "Agility",
		Avatar:      "🗡️",
		Description: "A stealthy killer with high critical strike chance. Fast attacks and deadly precision.",
		Stats:       HeroStats{Health: 70, Attack: 22, Armor: 4, Speed: 10},
		Passive:     Ability{Name: "Shadow Step", Description: "Chance to dodge attacks with shadow movement"},
		Ultimate:    Ability{Name: "Backstab", Description: "Critical hit from behind"},
	},
	{
		ID:          "paladin",
		Name:        "Paladin",
		Type:        "Strength",
		Avatar:      "🛡️",
		Description: "A holy warrior with healing abilities and strong defenses. Balanced offense and defense.",
		Stats:       HeroStats{Health: 110, Attack: 18, Armor: 7, Speed: 5},
		Passive:     Ability{Name: "Divine Blessing", Description: "Slowly regenerates health when critically wounded"},
		Ultimate:    Ability{Name: "Holy Strike", Description: "Divine damage with healing"},
	},
	{
		ID:          "necromancer",
		Name:        "Necromancer",
		Type:        "Intelligence",
		Avatar:      "💀",
		Description: "A dark sorcerer who commands death magic. Can drain life and summon undead minions.",
		Stats:       HeroStats{Health: 85, Attack: 20, Armor: 4, Speed: 6},
		Passive:     Ability{Name: "Dark Aura", Description: "Drains enemy health over time in close proximity"},
		Ultimate:    Ability{Name: "Death Coil", Description: "Damages enemy or heals self"},
	},
}

var heroIndex map[string]*Hero

func init() {
	heroIndex = make(map[string]*Hero, len(heroes))
	for i := range heroes {
		h := &heroes[i]
		h.PassiveKind, _ = combat.ParsePassive(h.Passive.Name)
		h.UltimateKind, _ = combat.ParseUltimate(h.Ultimate.Name)
		heroIndex[h.ID] = h
	}
}

// Heroes returns the full roster in wire form.
func Heroes() []any {
	out := make([]any, 0, len(heroes))
	for i := range heroes {
		out = append(out, heroes[i].View())
	}
	return out
}

// HeroByID looks up a roster entry, nil when unknown.
func HeroByID(id string) *Hero {
	return heroIndex[id]
}

// ValidHeroID reports whether the id names a roster entry.
func ValidHeroID(id string) bool {
	_, ok := heroIndex[id]
	return ok
}

// View returns the client-facing shape of the hero.
func (h *Hero) View() any {
	return heroView{
		ID:          h.ID,
		Name:        h.Name,
		Type:        h.Type,
		Avatar:      h.Avatar,
		Description: h.Description,
		Stats:       h.Stats,
		Abilities:   Abilities{Passive: h.Passive, Ultimate: h.Ultimate},
	}
}

// CombatStats converts base stats plus item bonuses into a fresh combat
// stat block.
func (h *Hero) CombatStats(bonus StatBonuses) combat.Stats {
	return combat.Stats{
		Health:    h.Stats.Health + bonus.Health,
		MaxHealth: h.Stats.Health + bonus.Health,
		Attack:    h.Stats.Attack + bonus.Attack,
		Armor:     h.Stats.Armor + bonus.Armor,
		Speed:     h.Stats.Speed + bonus.Speed,
		MaxMana:   100,
	}
}
