package combat

// PassiveKind tags a passive ability. Hero catalog names are resolved to a
// kind once at load time so the tick loop never string-matches.
type PassiveKind int

const (
	PassiveNone PassiveKind = iota
	// PassiveWarriorTraining reduces incoming damage while below 30% health.
	PassiveWarriorTraining
	// PassiveArcaneMastery generates 15 mana every simulated second.
	PassiveArcaneMastery
	// PassiveEagleEye grants a 20% critical strike chance on basic attacks.
	PassiveEagleEye
	// PassiveShadowStep grants a 15% chance to dodge basic attacks.
	PassiveShadowStep
	// PassiveDivineBlessing heals 3 health per second while below 25% health.
	PassiveDivineBlessing
	// PassiveDarkAura is an always-on aura flag consumed by attack resolution.
	PassiveDarkAura
)

// UltimateKind tags an ultimate ability, castable only at full mana.
type UltimateKind int

const (
	UltimateNone UltimateKind = iota
	UltimateBerserker
	UltimateFireball
	UltimateMultiShot
	UltimateBackstab
	UltimateHolyStrike
	UltimateDeathCoil
)

var passiveByName = map[string]PassiveKind{
	"Warrior Training": PassiveWarriorTraining,
	"Arcane Mastery":   PassiveArcaneMastery,
	"Eagle Eye":        PassiveEagleEye,
	"Shadow Step":      PassiveShadowStep,
	"Divine Blessing":  PassiveDivineBlessing,
	"Dark Aura":        PassiveDarkAura,
}

var ultimateByName = map[string]UltimateKind{
	"Berserker":   UltimateBerserker,
	"Fireball":    UltimateFireball,
	"Multi-Shot":  UltimateMultiShot,
	"Backstab":    UltimateBackstab,
	"Holy Strike": UltimateHolyStrike,
	"Death Coil":  UltimateDeathCoil,
}

var passiveNames = map[PassiveKind]string{
	PassiveWarriorTraining: "Warrior Training",
	PassiveArcaneMastery:   "Arcane Mastery",
	PassiveEagleEye:        "Eagle Eye",
	PassiveShadowStep:      "Shadow Step",
	PassiveDivineBlessing:  "Divine Blessing",
	PassiveDarkAura:        "Dark Aura",
}

var ultimateNames = map[UltimateKind]string{
	UltimateBerserker:  "Berserker",
	UltimateFireball:   "Fireball",
	UltimateMultiShot:  "Multi-Shot",
	UltimateBackstab:   "Backstab",
	UltimateHolyStrike: "Holy Strike",
	UltimateDeathCoil:  "Death Coil",
}

// ParsePassive resolves a catalog passive name to its kind.
func ParsePassive(name string) (PassiveKind, bool) {
	k, ok := passiveByName[name]
	return k, ok
}

// ParseUltimate resolves a catalog ultimate name to its kind.
func ParseUltimate(name string) (UltimateKind, bool) {
	k, ok := ultimateByName[name]
	return k, ok
}

func (k PassiveKind) String() string  { return passiveNames[k] }
func (k UltimateKind) String() string { return ultimateNames[k] }
