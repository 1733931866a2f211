package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsAreComplete(t *testing.T) {
	cfg := Default()

	if cfg.Engine.TickIntervalMS != 100 {
		t.Errorf("tick interval = %d, want 100", cfg.Engine.TickIntervalMS)
	}
	if cfg.Tiers.NearDistance != 1000 {
		t.Errorf("near distance = %v, want 1000", cfg.Tiers.NearDistance)
	}
	if cfg.Memory.ShortTermCapacity != 10 || cfg.Memory.LongTermCapacity != 100 {
		t.Errorf("memory capacities = %d/%d, want 10/100",
			cfg.Memory.ShortTermCapacity, cfg.Memory.LongTermCapacity)
	}
	if cfg.Learning.LearningRate != 0.1 || cfg.Learning.DiscountFactor != 0.95 {
		t.Errorf("learning rate/discount = %v/%v, want 0.1/0.95",
			cfg.Learning.LearningRate, cfg.Learning.DiscountFactor)
	}
	if cfg.Learning.EpsilonDecay != 0.999 || cfg.Learning.EpsilonFloor != 0.01 {
		t.Errorf("epsilon decay/floor = %v/%v, want 0.999/0.01",
			cfg.Learning.EpsilonDecay, cfg.Learning.EpsilonFloor)
	}
	if cfg.Pattern.MatchThreshold != 0.7 {
		t.Errorf("match threshold = %v, want 0.7", cfg.Pattern.MatchThreshold)
	}
	if cfg.Emotion.PowerCeiling != 2.0 {
		t.Errorf("power ceiling = %v, want 2.0", cfg.Emotion.PowerCeiling)
	}
	if len(cfg.Tactics.StrategyWeights) == 0 {
		t.Error("no default strategy weights")
	}
}

func TestLoadOverlaysOnlyNamedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	overlay := []byte("learning:\n  learning_rate: 0.5\n")
	if err := os.WriteFile(path, overlay, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Learning.LearningRate != 0.5 {
		t.Errorf("overridden learning rate = %v, want 0.5", cfg.Learning.LearningRate)
	}
	if cfg.Learning.DiscountFactor != 0.95 {
		t.Errorf("untouched discount = %v, want default 0.95", cfg.Learning.DiscountFactor)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.TickIntervalMS != Default().Engine.TickIntervalMS {
		t.Error("empty path did not return defaults")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("missing config file should error")
	}
}
