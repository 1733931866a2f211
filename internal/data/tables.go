// Package data loads the read-only game data tables consumed by the AI core:
// genetic profiles, abilities, and effects. Each table is a key → record
// mapping in YAML. A missing or unreadable file degrades to an empty table
// and is logged — external data is never fatal to the engine.
package data

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// GeneProfile describes one gene: what it does the instant it activates,
// the durational effect handles it attaches, and how it amplifies an emotion.
type GeneProfile struct {
	// One-shot effects applied on activation: heal, damage_boost, mana_regen.
	ImmediateEffects map[string]float64 `yaml:"immediate_effects"`

	// Durational effect handles added to the entity's effect ledger while the
	// gene stays active.
	Effects []string `yaml:"effects"`

	EmotionModifier *EmotionModifier `yaml:"emotion_modifier"`
}

// EmotionModifier multiplies emotion power while the named emotion is current.
type EmotionModifier struct {
	Emotion    string  `yaml:"emotion"`
	Multiplier float64 `yaml:"multiplier"`
}

// Ability describes one ability record from the abilities table. Tags merge
// with per-skill tags when matching tactical intent.
type Ability struct {
	Tags        []string `yaml:"tags"`
	ManaCost    float64  `yaml:"mana_cost"`
	StaminaCost float64  `yaml:"stamina_cost"`
	Cooldown    float64  `yaml:"cooldown"`
}

// Effect describes one durational effect record.
type Effect struct {
	Tags     []string `yaml:"tags"`
	Duration float64  `yaml:"duration"`
}

// Tables bundles the three data tables used by the engine.
type Tables struct {
	GeneticProfiles map[string]GeneProfile
	Abilities       map[string]Ability
	Effects         map[string]Effect
}

// LoadTables reads all three tables. Individual load failures degrade that
// table to empty; LoadTables itself never fails.
func LoadTables(geneticPath, abilitiesPath, effectsPath string) *Tables {
	t := &Tables{
		GeneticProfiles: map[string]GeneProfile{},
		Abilities:       map[string]Ability{},
		Effects:         map[string]Effect{},
	}
	loadInto(geneticPath, &t.GeneticProfiles)
	loadInto(abilitiesPath, &t.Abilities)
	loadInto(effectsPath, &t.Effects)
	return t
}

// loadInto unmarshals the YAML mapping at path into dst, leaving dst empty on
// any failure.
func loadInto[T any](path string, dst *map[string]T) {
	records, err := loadMap[T](path)
	if err != nil {
		slog.Warn("data table unavailable, using empty table", "path", path, "error", err)
		return
	}
	*dst = records
}

func loadMap[T any](path string) (map[string]T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}

	records := map[string]T{}
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse table %s: %w", path, err)
	}
	return records, nil
}
