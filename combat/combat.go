package combat

import (
	"fmt"
	"math/rand"

	"github.com/rotisserie/eris"
)

const (
	timeStep      = 0.1  // simulation step in seconds
	maxCombatTime = 60.0 // hard ceiling before tie-break

	dodgeChance  = 0.15
	critChance   = 0.20
	critBonus    = 1.5
	manaPerHit   = 10
	reducedRatio = 0.7
)

// Stats is the mutable combat state of one participant.
type Stats struct {
	Health    int `json:"health"`
	MaxHealth int `json:"max_health"`
	Attack    int `json:"attack"`
	Armor     int `json:"armor"`
	Speed     int `json:"speed"`
	Mana      int `json:"mana"`
	MaxMana   int `json:"max_mana"`
}

// Participant is one side of a duel. Build it with NewParticipant so the
// ability kinds are resolved before the loop runs.
type Participant struct {
	PlayerID string
	HeroID   string
	HeroName string
	Stats    Stats
	Passive  PassiveKind
	Ultimate UltimateKind
	Alive    bool
}

// NewParticipant assembles a duel participant. Stat bonuses from owned items
// are expected to be folded into stats by the caller.
func NewParticipant(playerID, heroID, heroName string, stats Stats, passive PassiveKind, ultimate UltimateKind) (*Participant, error) {
	if stats.MaxHealth <= 0 {
		return nil, eris.Errorf("participant %s has no health pool", playerID)
	}
	if stats.Health <= 0 {
		stats.Health = stats.MaxHealth
	}
	if stats.MaxMana <= 0 {
		stats.MaxMana = 100
	}
	return &Participant{
		PlayerID: playerID,
		HeroID:   heroID,
		HeroName: heroName,
		Stats:    stats,
		Passive:  passive,
		Ultimate: ultimate,
		Alive:    true,
	}, nil
}

// Event is one battle log entry. Fields are populated per event type, the
// rest stay zero and drop out of the JSON.
type Event struct {
	Type           string  `json:"type"`
	Message        string  `json:"message,omitempty"`
	Attacker       string  `json:"attacker,omitempty"`
	Defender       string  `json:"defender,omitempty"`
	Participant    string  `json:"participant,omitempty"`
	Caster         string  `json:"caster,omitempty"`
	Name           string  `json:"name,omitempty"`
	Effect         string  `json:"effect,omitempty"`
	Result         string  `json:"result,omitempty"`
	Damage         int     `json:"damage,omitempty"`
	DefenderHealth int     `json:"defender_health,omitempty"`
	Winner         string  `json:"winner,omitempty"`
	Duration       float64 `json:"duration,omitempty"`
	Timestamp      float64 `json:"timestamp"`
}

// FinalHealth is the post-battle pool of one participant.
type FinalHealth struct {
	Health    int `json:"health"`
	MaxHealth int `json:"max_health"`
}

// Result is the outcome of a finished duel.
type Result struct {
	WinnerID   string                 `json:"winner_id"`
	WinnerName string                 `json:"winner_name"`
	Duration   float64                `json:"duration"`
	Log        []Event                `json:"battle_log"`
	FinalStats map[string]FinalHealth `json:"final_stats"`
}

// Engine runs headless duels on a 100ms simulated clock. All randomness
// flows through the injected source, so a seeded engine replays exactly.
type Engine struct {
	rng *rand.Rand
	log []Event
}

func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{rng: rng}
}

// AttackInterval returns the seconds between basic attacks for a speed
// value, floored at half a second.
func AttackInterval(speed int) float64 {
	interval := 3.0 - float64(speed)/10.0
	if interval < 0.5 {
		return 0.5
	}
	return interval
}

// Simulate runs a full duel between p1 and p2 and returns the result. The
// participants are mutated in place; both must come from NewParticipant.
func (e *Engine) Simulate(p1, p2 *Participant) (*Result, error) {
	if p1 == nil || p2 == nil {
		return nil, eris.New("both participants are required")
	}
	if p1.PlayerID == p2.PlayerID {
		return nil, eris.Errorf("player %s cannot fight themselves", p1.PlayerID)
	}

	e.log = e.log[:0]
	clock := 0.0

	e.emit(Event{
		Type:      "battle_start",
		Message:   fmt.Sprintf("Battle begins! %s vs %s", p1.HeroName, p2.HeroName),
		Timestamp: clock,
	})

	p1Interval := AttackInterval(p1.Stats.Speed)
	p2Interval := AttackInterval(p2.Stats.Speed)
	e.emit(Event{
		Type:      "combat_info",
		Message:   fmt.Sprintf("%s attacks every %.1fs | %s attacks every %.1fs", p1.HeroName, p1Interval, p2.HeroName, p2Interval),
		Timestamp: clock,
	})

	p1Next := p1Interval
	p2Next := p2Interval
	ticks := 0

	for p1.Alive && p2.Alive && clock < maxCombatTime {
		ticks++
		clock = float64(ticks) * timeStep

		if ticks%10 == 0 {
			e.tickPassive(p1, clock)
			e.tickPassive(p2, clock)
		}

		if clock >= p1Next && p1.Alive {
			e.act(p1, p2, clock)
			p1Next = clock + p1Interval
		}
		if clock >= p2Next && p2.Alive {
			e.act(p2, p1, clock)
			p2Next = clock + p2Interval
		}
	}

	winnerID, winnerName := e.decideWinner(p1, p2)

	e.emit(Event{
		Type:      "battle_end",
		Winner:    winnerName,
		Duration:  clock,
		Timestamp: clock,
	})

	return &Result{
		WinnerID:   winnerID,
		WinnerName: winnerName,
		Duration:   clock,
		Log:        append([]Event(nil), e.log...),
		FinalStats: map[string]FinalHealth{
			p1.PlayerID: {Health: p1.Stats.Health, MaxHealth: p1.Stats.MaxHealth},
			p2.PlayerID: {Health: p2.Stats.Health, MaxHealth: p2.Stats.MaxHealth},
		},
	}, nil
}

// act spends one attack slot: an ultimate at full mana, a basic attack
// otherwise.
func (e *Engine) act(attacker, defender *Participant, clock float64) {
	if attacker.Stats.Mana >= attacker.Stats.MaxMana {
		e.castUltimate(attacker, defender, clock)
		return
	}
	e.basicAttack(attacker, defender, clock)
}

func (e *Engine) basicAttack(attacker, defender *Participant, clock float64) {
	if defender.Passive == PassiveShadowStep && e.rng.Float64() < dodgeChance {
		e.emit(Event{
			Type:      "attack",
			Attacker:  attacker.HeroName,
			Defender:  defender.HeroName,
			Result:    "dodged",
			Timestamp: clock,
		})
		return
	}

	damage := baseDamage(attacker.Stats.Attack, defender.Stats.Armor)
	result := "hit"
	if attacker.Passive == PassiveEagleEye && e.rng.Float64() < critChance {
		damage = int(float64(damage) * critBonus)
		result = "critical"
	}
	if defender.Passive == PassiveWarriorTraining && belowRatio(defender, 0.3) {
		damage = int(float64(damage) * reducedRatio)
		result += "_reduced"
	}

	applyDamage(defender, damage)
	attacker.Stats.Mana = min(attacker.Stats.MaxMana, attacker.Stats.Mana+manaPerHit)
	if !defender.Alive {
		result += "_defeated"
	}

	e.emit(Event{
		Type:           "attack",
		Attacker:       attacker.HeroName,
		Defender:       defender.HeroName,
		Result:         result,
		Damage:         damage,
		DefenderHealth: defender.Stats.Health,
		Timestamp:      clock,
	})
}

func (e *Engine) castUltimate(caster, target *Participant, clock float64) {
	name := caster.Ultimate.String()
	var effect string

	switch caster.Ultimate {
	case UltimateBerserker:
		if belowRatio(caster, 0.5) {
			caster.Stats.Speed += 3
			effect = "attack_speed_increased"
		} else {
			effect = "no_effect_high_hp"
		}
	case UltimateFireball:
		damage := int(float64(caster.Stats.Attack) * 1.5)
		applyDamage(target, damage)
		effect = fmt.Sprintf("magical_damage_%d", damage)
	case UltimateMultiShot:
		total := 0
		for i := 0; i < 3; i++ {
			damage := baseDamage(caster.Stats.Attack, target.Stats.Armor)
			applyDamage(target, damage)
			total += damage
		}
		effect = fmt.Sprintf("multi_attack_damage_%d", total)
	case UltimateBackstab:
		damage := int(float64(caster.Stats.Attack) * 2.0)
		applyDamage(target, damage)
		effect = fmt.Sprintf("critical_damage_%d", damage)
	case UltimateHolyStrike:
		damage := baseDamage(caster.Stats.Attack, target.Stats.Armor)
		applyDamage(target, damage)
		heal := damage / 2
		caster.Stats.Health = min(caster.Stats.MaxHealth, caster.Stats.Health+heal)
		effect = fmt.Sprintf("damage_%d_heal_%d", damage, heal)
	case UltimateDeathCoil:
		if belowRatio(caster, 0.5) {
			caster.Stats.Health = min(caster.Stats.MaxHealth, caster.Stats.Health+30)
			effect = "self_heal_30"
		} else {
			applyDamage(target, 35)
			effect = "enemy_damage_35"
		}
	default:
		effect = "no_ultimate"
	}

	caster.Stats.Mana = 0
	e.emit(Event{
		Type:      "ultimate",
		Caster:    caster.HeroName,
		Name:      name,
		Effect:    effect,
		Timestamp: clock,
	})
}

// tickPassive applies per-second passive effects. Threshold passives only
// log when they are actually in effect.
func (e *Engine) tickPassive(p *Participant, clock float64) {
	var effect string

	switch p.Passive {
	case PassiveWarriorTraining:
		if belowRatio(p, 0.3) {
			effect = "damage_reduction_active"
		}
	case PassiveArcaneMastery:
		p.Stats.Mana = min(p.Stats.MaxMana, p.Stats.Mana+15)
		effect = "mana_generated_+15"
	case PassiveEagleEye:
		effect = "critical_chance_active"
	case PassiveShadowStep:
		effect = "dodge_chance_active"
	case PassiveDivineBlessing:
		if belowRatio(p, 0.25) {
			p.Stats.Health = min(p.Stats.MaxHealth, p.Stats.Health+3)
			effect = "healed_+3"
		}
	case PassiveDarkAura:
		effect = "dark_aura_active"
	}

	if effect == "" {
		return
	}
	e.emit(Event{
		Type:        "passive",
		Participant: p.HeroName,
		Name:        p.Passive.String(),
		Effect:      effect,
		Timestamp:   clock,
	})
}

// decideWinner breaks the timeout case by remaining health, then by coin
// flip on an exact tie.
func (e *Engine) decideWinner(p1, p2 *Participant) (string, string) {
	switch {
	case p1.Alive && !p2.Alive:
		return p1.PlayerID, p1.HeroName
	case p2.Alive && !p1.Alive:
		return p2.PlayerID, p2.HeroName
	case p1.Stats.Health > p2.Stats.Health:
		return p1.PlayerID, p1.HeroName
	case p2.Stats.Health > p1.Stats.Health:
		return p2.PlayerID, p2.HeroName
	}
	if e.rng.Intn(2) == 0 {
		return p1.PlayerID, p1.HeroName
	}
	return p2.PlayerID, p2.HeroName
}

func (e *Engine) emit(ev Event) {
	e.log = append(e.log, ev)
}

// baseDamage applies the armor curve and floors the result at 1.
func baseDamage(attack, armor int) int {
	reduction := float64(armor) / float64(armor+100)
	damage := int(float64(attack) * (1 - reduction))
	if damage < 1 {
		return 1
	}
	return damage
}

func applyDamage(p *Participant, damage int) {
	p.Stats.Health -= damage
	if p.Stats.Health <= 0 {
		p.Stats.Health = 0
		p.Alive = false
	}
}

func belowRatio(p *Participant, ratio float64) bool {
	return float64(p.Stats.Health) < float64(p.Stats.MaxHealth)*ratio
}
