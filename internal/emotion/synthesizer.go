// Package emotion implements the emotion-genetic synthesizer: genes
// triggered by the entity's current emotion, an emotion-power multiplier
// derived from active genes, and probabilistic contagion to nearby allies.
package emotion

import (
	"math"
	"math/rand"

	"github.com/talgya/battlemind/internal/config"
	"github.com/talgya/battlemind/internal/entity"
)

// geneTriggers maps an emotion label to the genes it can activate.
var geneTriggers = map[entity.Emotion][]string{
	entity.EmotionRage:       {"BERSERKER_GENE", "ADRENALINE_RUSH"},
	entity.EmotionFear:       {"QUICK_ESCAPE", "PANIC_DODGE"},
	entity.EmotionConfidence: {"TACTICAL_INSIGHT", "LEADERSHIP_AURA"},
}

// Synthesizer runs gene activation and emotion contagion for one entity.
type Synthesizer struct {
	e   entity.Entity
	cfg config.EmotionConfig
	rng *rand.Rand

	// Active gene → durational effect handles attached on its behalf.
	active map[string][]string
	power  float64
}

// New creates a synthesizer for e.
func New(e entity.Entity, cfg config.EmotionConfig, rng *rand.Rand) *Synthesizer {
	return &Synthesizer{
		e:      e,
		cfg:    cfg,
		rng:    rng,
		active: map[string][]string{},
		power:  1.0,
	}
}

// Update runs one synthesis step: (de)activate genes against the current
// emotion, recompute emotion power, and roll for contagion.
func (s *Synthesizer) Update(dt float64) {
	current := s.e.Emotion()
	triggered := geneTriggers[current]

	for _, geneID := range triggered {
		if _, known := s.e.GeneticProfile()[geneID]; known {
			s.activate(geneID)
		}
	}

	for geneID := range s.active {
		if !contains(triggered, geneID) {
			s.deactivate(geneID)
		}
	}

	s.recomputePower(current)

	if s.rng.Float64() < s.cfg.SpreadChance*dt {
		s.Spread()
	}
}

// activate applies a gene's one-shot effects and attaches its durational
// effects. Already-active genes are left alone.
func (s *Synthesizer) activate(geneID string) {
	if _, on := s.active[geneID]; on {
		return
	}
	gene, ok := s.e.GeneticProfile()[geneID]
	if !ok {
		return
	}

	for effect, value := range gene.ImmediateEffects {
		switch effect {
		case "heal":
			s.e.Heal(value)
		case "damage_boost":
			s.e.AddDamageBoost(value)
		case "mana_regen":
			s.e.RestoreMana(value)
		}
	}

	for _, handle := range gene.Effects {
		s.e.AddEffect(handle)
	}
	s.active[geneID] = gene.Effects
}

// deactivate removes a gene's durational effects.
func (s *Synthesizer) deactivate(geneID string) {
	handles, on := s.active[geneID]
	if !on {
		return
	}
	for _, handle := range handles {
		s.e.RemoveEffect(handle)
	}
	delete(s.active, geneID)
}

// recomputePower rebuilds the emotion-power multiplier from active genes
// whose modifier targets the current emotion.
func (s *Synthesizer) recomputePower(current entity.Emotion) {
	s.power = 1.0
	for geneID := range s.active {
		gene, ok := s.e.GeneticProfile()[geneID]
		if !ok || gene.EmotionModifier == nil {
			continue
		}
		if entity.Emotion(gene.EmotionModifier.Emotion) == current {
			s.power *= gene.EmotionModifier.Multiplier
		}
	}
	s.e.SetEmotionPower(s.power)
}

// Spread attempts to pass the current emotion to each nearby same-team
// ally, each with chance 0.3 × emotion power. A receiving ally's own power
// is boosted toward the ceiling.
func (s *Synthesizer) Spread() {
	for _, other := range s.e.Nearby(s.cfg.ContagionRadius, false) {
		if other.Team() != s.e.Team() {
			continue
		}
		if s.rng.Float64() < 0.3*s.power {
			other.SetEmotion(s.e.Emotion())
			other.SetEmotionPower(math.Min(s.cfg.PowerCeiling, s.power*1.2))
		}
	}
}

// Power returns the current emotion-power multiplier.
func (s *Synthesizer) Power() float64 { return s.power }

// ActiveGenes returns the identifiers of currently active genes.
func (s *Synthesizer) ActiveGenes() []string {
	out := make([]string, 0, len(s.active))
	for id := range s.active {
		out = append(out, id)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
