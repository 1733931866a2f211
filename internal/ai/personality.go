// Package ai assembles the per-entity decision controller: personality
// derivation, tiered update dispatch, threat assessment, behavior tree
// construction, and the wiring between memory, learning, pattern
// recognition, emotion synthesis, and group tactics.
package ai

import (
	"math/rand"

	"github.com/talgya/battlemind/internal/behavior"
	"github.com/talgya/battlemind/internal/entity"
	"github.com/talgya/battlemind/internal/memory"
)

// Profile is an entity's personality, each trait in [0, 1].
type Profile struct {
	Aggression   float64
	Caution      float64
	Intelligence float64
	Loyalty      float64
}

// DeriveProfile computes a starting personality from the entity's combat
// stats, with effect-tag adjustments for berserk and fear states. Loyalty
// is rolled once at creation.
func DeriveProfile(e entity.Entity, rng *rand.Rand) Profile {
	p := Profile{
		Aggression: clampRange(e.DamageOutput()/100, 0.3, 0.9),
		Caution:    clampRange(1-behavior.HealthRatio(e), 0.1, 0.9),
		Loyalty:    0.2 + rng.Float64()*0.75,
	}

	intelligence := 0.5
	if magic, ok := e.Skills()["magic"]; ok {
		intelligence = magic.Level
	}
	p.Intelligence = clampRange(intelligence, 0.4, 1.0)

	if e.HasEffectTag("berserk") {
		p.Aggression += 0.3
		p.Caution -= 0.2
	}
	if e.HasEffectTag("fear") {
		p.Aggression -= 0.2
		p.Caution += 0.3
	}

	p.clamp()
	return p
}

// Adapt shifts personality traits from recent remembered outcomes: repeated
// attack failures blunt aggression, repeated successes sharpen it, and low
// health raises caution. Each shift is recorded as a personality-change
// event. Returns whether any trait moved.
func (p *Profile) Adapt(e entity.Entity, mem *memory.Subsystem, now float64) bool {
	changed := false

	if mem.CountFailures("ATTACK") > 3 {
		p.Aggression -= 0.15
		mem.Record(now, memory.Event{
			Type:    memory.EventPersonalityChange,
			Action:  "ATTACK",
			Payload: map[string]any{"trait": "aggression", "delta": -0.15},
		}, 0.8)
		changed = true
	}
	if mem.CountSuccesses("ATTACK") > 5 {
		p.Aggression += 0.1
		mem.Record(now, memory.Event{
			Type:    memory.EventPersonalityChange,
			Action:  "ATTACK",
			Payload: map[string]any{"trait": "aggression", "delta": 0.1},
		}, 0.8)
		changed = true
	}
	if behavior.HealthRatio(e) < 0.4 {
		p.Caution += 0.2
		mem.Record(now, memory.Event{
			Type:    memory.EventPersonalityChange,
			Payload: map[string]any{"trait": "caution", "delta": 0.2},
		}, 0.8)
		changed = true
	}

	if changed {
		p.clamp()
	}
	return changed
}

func (p *Profile) clamp() {
	p.Aggression = clampRange(p.Aggression, 0, 1)
	p.Caution = clampRange(p.Caution, 0, 1)
	p.Intelligence = clampRange(p.Intelligence, 0, 1)
	p.Loyalty = clampRange(p.Loyalty, 0, 1)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
