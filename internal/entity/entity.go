// Package entity defines the capability contract between the AI core and the
// surrounding simulation, plus the Combatant implementation used by the
// arena harness and tests. The contract is deliberately narrow: the core
// never reaches past it into movement, rendering, or inventory internals.
package entity

import (
	"math"

	"github.com/google/uuid"

	"github.com/talgya/battlemind/internal/data"
)

// Vec2 is a 2D world position or direction.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Len returns the vector length.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Normalized returns a unit vector in v's direction, or the zero vector.
func (v Vec2) Normalized() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Distance returns the Euclidean distance between two positions.
func Distance(a, b Vec2) float64 { return a.Sub(b).Len() }

// Emotion is an entity's current emotional state label.
type Emotion string

const (
	EmotionNeutral    Emotion = "NEUTRAL"
	EmotionRage       Emotion = "RAGE"
	EmotionFear       Emotion = "FEAR"
	EmotionConfidence Emotion = "CONFIDENCE"
)

// Skill describes one skill an entity knows: proficiency, resource costs,
// cooldown in seconds, and intent tags ("heal", "attack", "defense", ...).
type Skill struct {
	Level       float64
	ManaCost    float64
	StaminaCost float64
	Cooldown    float64
	Tags        []string
}

// Entity is the capability contract the AI core consumes. Implementations
// that lack a capability return the zero/empty result rather than being
// undefined — callers skip the corresponding behavior branch.
type Entity interface {
	ID() uuid.UUID
	Name() string
	Team() string

	// Static classification used by the update scheduler.
	IsPlayer() bool
	IsBoss() bool
	Priority() int

	// Combat snapshot.
	Position() Vec2
	Health() float64
	MaxHealth() float64
	Mana() float64
	MaxMana() float64
	Stamina() float64
	Level() int
	CombatLevel() float64
	DamageOutput() float64
	Alive() bool
	DistanceToPlayer() float64

	// Skills and items.
	Skills() map[string]Skill
	SkillReady(id string) bool
	HasConsumable(kind string) bool
	HasHealingAbility() bool

	// Effects ledger.
	HasEffectTag(tag string) bool
	AddEffect(id string)
	RemoveEffect(id string)

	// Group membership, assigned by the coordinator.
	GroupID() string
	SetGroupID(id string)
	Role() string
	SetRole(role string)

	// Perception.
	Nearby(radius float64, enemyOnly bool) []Entity

	// Action entry points.
	Attack(target Entity)
	UseSkill(id string) bool
	UseItem(kind string) bool
	MoveInDirection(dir Vec2)

	// Emotion state.
	Emotion() Emotion
	SetEmotion(e Emotion)
	EmotionPower() float64
	SetEmotionPower(p float64)

	// Genetics.
	GeneticProfile() map[string]data.GeneProfile

	// Per-tick outcome trackers consumed by reward shaping. Reset each tick
	// by the simulation before actions run.
	LastActionSuccess() bool
	LastManaSpent() float64
	LastDamageDealt() float64

	// Direct stat adjustments used by gene immediate effects.
	Heal(amount float64)
	RestoreMana(amount float64)
	AddDamageBoost(amount float64)
}
