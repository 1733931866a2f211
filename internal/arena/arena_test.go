package arena

import (
	"testing"

	"github.com/talgya/battlemind/internal/entity"
)

func TestGenerationIsDeterministicPerSeed(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 7
	a := Generate(cfg)
	b := Generate(cfg)

	p := entity.Vec2{X: 42, Y: 17}
	if a.Elevation(p) != b.Elevation(p) {
		t.Error("same seed produced different elevation")
	}
	if a.SpawnPoint(nil, 10) != b.SpawnPoint(nil, 10) {
		t.Error("same seed produced different spawn points")
	}
}

func TestSpawnPointAvoidsHazardsAndTaken(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 11
	a := Generate(cfg)

	var taken []entity.Vec2
	for i := 0; i < 5; i++ {
		p := a.SpawnPoint(taken, 15)
		if a.Hazardous(p) && p != (entity.Vec2{X: cfg.Width / 2, Y: cfg.Height / 2}) {
			t.Errorf("spawn %d landed in a hazard at %+v", i, p)
		}
		for _, prev := range taken {
			if entity.Distance(p, prev) < 15 {
				t.Errorf("spawn %d too close to %+v", i, prev)
			}
		}
		taken = append(taken, p)
	}
}

func TestSquadSpawnsStayInBounds(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 13
	a := Generate(cfg)

	spawns := a.SquadSpawns(6, nil, 10)
	if len(spawns) != 6 {
		t.Fatalf("spawn count = %d, want 6", len(spawns))
	}
	for i, p := range spawns {
		if !a.Contains(p) {
			t.Errorf("spawn %d out of bounds: %+v", i, p)
		}
	}
}
