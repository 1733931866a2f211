// Package config provides configuration loading and access for the AI engine.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all tunable parameters of the decision engine. Every value has
// a working default; a config file only overrides what it names.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Tiers    TierConfig     `yaml:"tiers"`
	Memory   MemoryConfig   `yaml:"memory"`
	Learning LearningConfig `yaml:"learning"`
	Pattern  PatternConfig  `yaml:"pattern"`
	Emotion  EmotionConfig  `yaml:"emotion"`
	Tactics  TacticsConfig  `yaml:"tactics"`
	Data     DataConfig     `yaml:"data"`
}

// EngineConfig holds tick loop parameters.
type EngineConfig struct {
	TickIntervalMS    int `yaml:"tick_interval_ms"`
	CoordinationEvery int `yaml:"coordination_every"` // Ticks between group coordination passes
}

// TierConfig holds update scheduling parameters.
type TierConfig struct {
	NearDistance float64 `yaml:"near_distance"` // Distance-to-player cutoff for FULL/LIGHT tiers
}

// MemoryConfig holds memory subsystem capacities and decay rates.
type MemoryConfig struct {
	ShortTermCapacity int     `yaml:"short_term_capacity"`
	LongTermCapacity  int     `yaml:"long_term_capacity"`
	DecayRate         float64 `yaml:"decay_rate"`           // Per-tick short-term weight decay
	LongTermDecayRate float64 `yaml:"long_term_decay_rate"` // Exponential importance decay per second of age
}

// LearningConfig holds tabular reinforcement learning parameters.
type LearningConfig struct {
	LearningRate   float64 `yaml:"learning_rate"`
	DiscountFactor float64 `yaml:"discount_factor"`
	Exploration    float64 `yaml:"exploration"`       // Initial epsilon
	EpsilonDecay   float64 `yaml:"epsilon_decay"`     // Multiplicative decay per update
	EpsilonFloor   float64 `yaml:"epsilon_floor"`
	ReplayCapacity int     `yaml:"replay_capacity"`
}

// PatternConfig holds situation recognition parameters.
type PatternConfig struct {
	MatchThreshold float64 `yaml:"match_threshold"`
}

// EmotionConfig holds emotion-genetic synthesis parameters.
type EmotionConfig struct {
	ContagionRadius float64 `yaml:"contagion_radius"`
	SpreadChance    float64 `yaml:"spread_chance"` // Base per-second chance of attempting spread
	PowerCeiling    float64 `yaml:"power_ceiling"`
}

// TacticsConfig holds group coordination parameters.
type TacticsConfig struct {
	ThreatRadius    float64            `yaml:"threat_radius"`
	StrategyWeights map[string]float64 `yaml:"strategy_weights"`
}

// DataConfig holds paths of the external data tables. A missing file degrades
// to an empty table, never an error.
type DataConfig struct {
	GeneticProfiles string `yaml:"genetic_profiles"`
	Abilities       string `yaml:"abilities"`
	Effects         string `yaml:"effects"`
}

// Default returns the embedded default configuration.
func Default() *Config {
	var cfg Config
	// The embedded defaults are part of the build; a parse failure here is a
	// programming error, not a runtime condition.
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return &cfg
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
