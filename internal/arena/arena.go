// Package arena generates the combat arena: a bounded field with
// noise-derived elevation and hazard layers, and spawn point selection that
// keeps squads out of hazards and apart from each other.
package arena

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/battlemind/internal/entity"
)

// GenConfig holds arena generation parameters.
type GenConfig struct {
	Width     float64 // World units
	Height    float64
	Seed      int64   // 0 = random
	HazardLvl float64 // Hazard noise threshold (0.0-1.0)
	CellSize  float64 // Sampling resolution for the noise layers
}

// DefaultGenConfig returns a mid-size arena.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:     200,
		Height:    200,
		Seed:      0,
		HazardLvl: 0.8,
		CellSize:  5,
	}
}

// Arena is the generated combat field.
type Arena struct {
	cfg       GenConfig
	elevation opensimplex.Noise
	hazard    opensimplex.Noise
	rng       *rand.Rand
}

// Generate creates an arena from cfg. Generation is deterministic per seed.
func Generate(cfg GenConfig) *Arena {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Arena{
		cfg:       cfg,
		elevation: opensimplex.NewNormalized(seed),
		hazard:    opensimplex.NewNormalized(seed + 1),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Elevation samples the elevation layer at a position, in [0, 1].
func (a *Arena) Elevation(p entity.Vec2) float64 {
	return a.elevation.Eval2(p.X/a.cfg.CellSize, p.Y/a.cfg.CellSize)
}

// Hazardous reports whether the hazard layer exceeds the threshold at p.
func (a *Arena) Hazardous(p entity.Vec2) bool {
	return a.hazard.Eval2(p.X/a.cfg.CellSize, p.Y/a.cfg.CellSize) > a.cfg.HazardLvl
}

// Contains reports whether p lies inside the arena bounds.
func (a *Arena) Contains(p entity.Vec2) bool {
	return p.X >= 0 && p.X <= a.cfg.Width && p.Y >= 0 && p.Y <= a.cfg.Height
}

// SpawnPoint finds a hazard-free position at least minApart away from every
// taken position. Falls back to the arena center when sampling keeps
// landing in hazards.
func (a *Arena) SpawnPoint(taken []entity.Vec2, minApart float64) entity.Vec2 {
	for attempt := 0; attempt < 100; attempt++ {
		p := entity.Vec2{
			X: a.rng.Float64() * a.cfg.Width,
			Y: a.rng.Float64() * a.cfg.Height,
		}
		if a.Hazardous(p) {
			continue
		}
		clear := true
		for _, t := range taken {
			if entity.Distance(p, t) < minApart {
				clear = false
				break
			}
		}
		if clear {
			return p
		}
	}
	return entity.Vec2{X: a.cfg.Width / 2, Y: a.cfg.Height / 2}
}

// SquadSpawns places n squad members clustered around one spawn point,
// spaced by the noise-free jitter radius.
func (a *Arena) SquadSpawns(n int, taken []entity.Vec2, minApart float64) []entity.Vec2 {
	anchor := a.SpawnPoint(taken, minApart)
	out := make([]entity.Vec2, 0, n)
	for i := 0; i < n; i++ {
		p := entity.Vec2{
			X: anchor.X + (a.rng.Float64()*2-1)*3,
			Y: anchor.Y + (a.rng.Float64()*2-1)*3,
		}
		if !a.Contains(p) || a.Hazardous(p) {
			p = anchor
		}
		out = append(out, p)
	}
	return out
}
