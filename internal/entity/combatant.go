package entity

import (
	"math"

	"github.com/google/uuid"

	"github.com/talgya/battlemind/internal/data"
)

// Roster is the shared registry backing Nearby queries and the
// distance-to-player computation. The simulation owns one roster; every
// Combatant holds a reference to it.
type Roster struct {
	members []*Combatant
}

// NewRoster creates an empty roster.
func NewRoster() *Roster { return &Roster{} }

// Add registers a combatant.
func (r *Roster) Add(c *Combatant) {
	r.members = append(r.members, c)
	c.roster = r
}

// Remove unregisters a combatant.
func (r *Roster) Remove(c *Combatant) {
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return
		}
	}
}

// Members returns all registered combatants.
func (r *Roster) Members() []*Combatant { return r.members }

// Player returns the registered player combatant, or nil.
func (r *Roster) Player() *Combatant {
	for _, m := range r.members {
		if m.Kind == KindPlayer {
			return m
		}
	}
	return nil
}

// Kind is a combatant's static role classification.
type Kind uint8

const (
	KindNormal Kind = iota
	KindElite
	KindMiniboss
	KindBoss
	KindPlayer
)

// Combatant is the reference implementation of the capability contract,
// used by the arena harness and tests.
type Combatant struct {
	EntityID   uuid.UUID
	EntityName string
	TeamName   string
	Kind       Kind
	Prio       int

	Pos       Vec2
	HP        float64
	MaxHP     float64
	MP        float64
	MaxMP     float64
	SP        float64
	Lvl       int
	CombatLvl float64
	Damage    float64
	MoveSpeed float64

	SkillSet    map[string]Skill
	Consumables map[string]int
	Genes       map[string]data.GeneProfile

	group string
	role  string

	emotion      Emotion
	emotionPower float64
	effects      map[string]int
	effectTags   map[string]bool

	now            float64
	skillLastUsed  map[string]float64
	damageBoost    float64
	lastSuccess    bool
	lastManaSpent  float64
	lastDamage     float64

	roster *Roster
}

// NewCombatant creates a combatant with sane defaults. Register it with a
// roster before running perception queries.
func NewCombatant(name, team string, kind Kind, pos Vec2) *Combatant {
	return &Combatant{
		EntityID:      uuid.New(),
		EntityName:    name,
		TeamName:      team,
		Kind:          kind,
		Prio:          priorityForKind(kind),
		Pos:           pos,
		HP:            100,
		MaxHP:         100,
		MP:            50,
		MaxMP:         50,
		SP:            100,
		Lvl:           1,
		CombatLvl:     1,
		Damage:        10,
		MoveSpeed:     2,
		SkillSet:      map[string]Skill{},
		Consumables:   map[string]int{},
		Genes:         map[string]data.GeneProfile{},
		emotion:       EmotionNeutral,
		emotionPower:  1.0,
		effects:       map[string]int{},
		effectTags:    map[string]bool{},
		skillLastUsed: map[string]float64{},
	}
}

func priorityForKind(k Kind) int {
	switch k {
	case KindPlayer:
		return 0
	case KindBoss:
		return 1
	case KindMiniboss:
		return 2
	case KindElite:
		return 3
	default:
		return 4
	}
}

// AdvanceTime moves the combatant's clock forward and resets the per-tick
// outcome trackers. The simulation calls this once per tick before the
// controller runs.
func (c *Combatant) AdvanceTime(dt float64) {
	c.now += dt
	c.lastSuccess = false
	c.lastManaSpent = 0
	c.lastDamage = 0
}

func (c *Combatant) ID() uuid.UUID  { return c.EntityID }
func (c *Combatant) Name() string   { return c.EntityName }
func (c *Combatant) Team() string   { return c.TeamName }
func (c *Combatant) IsPlayer() bool { return c.Kind == KindPlayer }
func (c *Combatant) IsBoss() bool   { return c.Kind == KindBoss }
func (c *Combatant) Priority() int  { return c.Prio }

func (c *Combatant) Position() Vec2       { return c.Pos }
func (c *Combatant) Health() float64      { return c.HP }
func (c *Combatant) MaxHealth() float64   { return c.MaxHP }
func (c *Combatant) Mana() float64        { return c.MP }
func (c *Combatant) MaxMana() float64     { return c.MaxMP }
func (c *Combatant) Stamina() float64     { return c.SP }
func (c *Combatant) Level() int           { return c.Lvl }
func (c *Combatant) CombatLevel() float64 { return c.CombatLvl }
func (c *Combatant) DamageOutput() float64 {
	return c.Damage + c.damageBoost
}
func (c *Combatant) Alive() bool { return c.HP > 0 }

// DistanceToPlayer returns the distance to the registered player, or +Inf
// when no player exists.
func (c *Combatant) DistanceToPlayer() float64 {
	if c.roster == nil {
		return math.Inf(1)
	}
	p := c.roster.Player()
	if p == nil || p == c {
		return math.Inf(1)
	}
	return Distance(c.Pos, p.Pos)
}

func (c *Combatant) Skills() map[string]Skill { return c.SkillSet }

// SkillReady reports whether the skill's cooldown has elapsed.
func (c *Combatant) SkillReady(id string) bool {
	s, ok := c.SkillSet[id]
	if !ok {
		return false
	}
	last, used := c.skillLastUsed[id]
	return !used || c.now-last >= s.Cooldown
}

func (c *Combatant) HasConsumable(kind string) bool { return c.Consumables[kind] > 0 }

// HasHealingAbility reports whether any known skill carries a healing tag.
func (c *Combatant) HasHealingAbility() bool {
	for _, s := range c.SkillSet {
		for _, tag := range s.Tags {
			if tag == "heal" || tag == "restore" || tag == "regeneration" {
				return true
			}
		}
	}
	return false
}

func (c *Combatant) HasEffectTag(tag string) bool { return c.effectTags[tag] }

// AddEffect attaches a durational effect handle. Handles are reference
// counted so overlapping genes sharing an effect do not cancel each other.
func (c *Combatant) AddEffect(id string) {
	c.effects[id]++
	c.effectTags[id] = true
}

func (c *Combatant) RemoveEffect(id string) {
	if c.effects[id] == 0 {
		return
	}
	c.effects[id]--
	if c.effects[id] == 0 {
		delete(c.effects, id)
		delete(c.effectTags, id)
	}
}

func (c *Combatant) GroupID() string        { return c.group }
func (c *Combatant) SetGroupID(id string)   { c.group = id }
func (c *Combatant) Role() string           { return c.role }
func (c *Combatant) SetRole(role string)    { c.role = role }

// Nearby returns other living combatants within radius. With enemyOnly set,
// only combatants on a different team are returned.
func (c *Combatant) Nearby(radius float64, enemyOnly bool) []Entity {
	if c.roster == nil {
		return nil
	}
	var out []Entity
	for _, m := range c.roster.members {
		if m == c || !m.Alive() {
			continue
		}
		if enemyOnly && m.TeamName == c.TeamName {
			continue
		}
		if Distance(c.Pos, m.Pos) <= radius {
			out = append(out, m)
		}
	}
	return out
}

// Attack deals the combatant's damage output to the target.
func (c *Combatant) Attack(target Entity) {
	if target == nil || !target.Alive() {
		return
	}
	dmg := c.DamageOutput()
	if t, ok := target.(*Combatant); ok {
		t.HP = math.Max(0, t.HP-dmg)
	}
	c.lastDamage += dmg
	c.lastSuccess = true
}

// UseSkill spends the skill's resources and starts its cooldown. Healing
// skills restore health immediately; other intents only record resource use —
// their combat effects belong to the surrounding simulation.
func (c *Combatant) UseSkill(id string) bool {
	s, ok := c.SkillSet[id]
	if !ok || !c.SkillReady(id) {
		return false
	}
	if c.MP < s.ManaCost || c.SP < s.StaminaCost {
		return false
	}
	c.MP -= s.ManaCost
	c.SP -= s.StaminaCost
	c.lastManaSpent += s.ManaCost
	c.skillLastUsed[id] = c.now

	for _, tag := range s.Tags {
		switch tag {
		case "heal", "restore", "regeneration":
			c.Heal(c.MaxHP * 0.25)
		case "attack", "damage", "aoe":
			if enemies := c.Nearby(15, true); len(enemies) > 0 {
				c.Attack(enemies[0])
			}
		}
	}
	c.lastSuccess = true
	return true
}

// UseItem consumes one item of the given kind. Healing items restore a
// quarter of max health.
func (c *Combatant) UseItem(kind string) bool {
	if c.Consumables[kind] <= 0 {
		return false
	}
	c.Consumables[kind]--
	if kind == "HEAL" {
		c.Heal(c.MaxHP * 0.25)
	}
	c.lastSuccess = true
	return true
}

// MoveInDirection moves one step along dir scaled by movement speed.
func (c *Combatant) MoveInDirection(dir Vec2) {
	c.Pos = c.Pos.Add(dir.Normalized().Scale(c.MoveSpeed))
}

func (c *Combatant) Emotion() Emotion          { return c.emotion }
func (c *Combatant) SetEmotion(e Emotion)      { c.emotion = e }
func (c *Combatant) EmotionPower() float64     { return c.emotionPower }
func (c *Combatant) SetEmotionPower(p float64) { c.emotionPower = p }

func (c *Combatant) GeneticProfile() map[string]data.GeneProfile { return c.Genes }

func (c *Combatant) LastActionSuccess() bool  { return c.lastSuccess }
func (c *Combatant) LastManaSpent() float64   { return c.lastManaSpent }
func (c *Combatant) LastDamageDealt() float64 { return c.lastDamage }

// Heal restores health, clamped to max.
func (c *Combatant) Heal(amount float64) {
	c.HP = math.Min(c.MaxHP, c.HP+amount)
}

// RestoreMana restores mana, clamped to max.
func (c *Combatant) RestoreMana(amount float64) {
	c.MP = math.Min(c.MaxMP, c.MP+amount)
}

// AddDamageBoost raises damage output by a flat amount.
func (c *Combatant) AddDamageBoost(amount float64) {
	c.damageBoost += amount
}
