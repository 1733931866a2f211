// Command arenasim runs a headless combat arena: two squads and a boss
// driven by the adaptive decision engine, with results persisted to SQLite
// and exported as CSV.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/talgya/battlemind/internal/arena"
	"github.com/talgya/battlemind/internal/config"
	"github.com/talgya/battlemind/internal/data"
	"github.com/talgya/battlemind/internal/engine"
	"github.com/talgya/battlemind/internal/entity"
	"github.com/talgya/battlemind/internal/persistence"
	"github.com/talgya/battlemind/internal/tactics"
	"github.com/talgya/battlemind/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (empty = embedded defaults)")
	dbPath := flag.String("db", "data/arena.db", "SQLite database path")
	outDir := flag.String("out", "out", "CSV output directory")
	ticks := flag.Int("ticks", 3000, "number of ticks to simulate")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(*dbPath), 0755)
	db, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", *dbPath)

	// ── Data tables ───────────────────────────────────────────────────
	tables := data.LoadTables(cfg.Data.GeneticProfiles, cfg.Data.Abilities, cfg.Data.Effects)
	slog.Info("data tables loaded",
		"genes", len(tables.GeneticProfiles),
		"abilities", len(tables.Abilities),
		"effects", len(tables.Effects),
	)

	// ── Arena ─────────────────────────────────────────────────────────
	genCfg := arena.DefaultGenConfig()
	genCfg.Seed = *seed
	field := arena.Generate(genCfg)

	// ── Coordinator and simulation ────────────────────────────────────
	coord := tactics.NewCoordinator(cfg.Tactics, uint64(*seed))
	if err := db.LoadWeights(coord); err != nil {
		slog.Warn("could not restore strategy weights", "error", err)
	}
	sim := engine.NewSimulation(cfg, coord, rng)

	spawnSquads(sim, field, tables, rng)

	// ── Run ───────────────────────────────────────────────────────────
	eng := engine.NewEngine(time.Duration(cfg.Engine.TickIntervalMS) * time.Millisecond)
	sim.Attach(eng)

	slog.Info("arena run starting", "ticks", *ticks, "seed", *seed)
	start := time.Now()
	eng.RunFor(*ticks)
	slog.Info("arena run finished", "ticks", eng.Tick, "elapsed", time.Since(start))

	report(sim)

	// ── Persist and export ────────────────────────────────────────────
	if err := db.SaveRun(eng.Tick, coord); err != nil {
		slog.Error("failed to save run", "error", err)
		os.Exit(1)
	}
	snapshots := make([]persistence.LearningSnapshot, 0)
	for _, c := range sim.Controllers() {
		snapshots = append(snapshots, persistence.LearningSnapshot{
			Tick:       eng.Tick,
			EntityName: c.Entity().Name(),
			Epsilon:    c.Learner().Epsilon(),
			States:     c.Learner().States(),
		})
	}
	if err := db.SaveSnapshots(snapshots); err != nil {
		slog.Error("failed to save learning snapshots", "error", err)
	}

	writer, err := telemetry.NewWriter(*outDir)
	if err != nil {
		slog.Error("failed to create telemetry writer", "error", err)
		os.Exit(1)
	}
	if err := writer.WriteOutcomes(coord.Outcomes()); err != nil {
		slog.Error("failed to write outcomes", "error", err)
	}
	if err := writer.WriteWeights(coord.Weights()); err != nil {
		slog.Error("failed to write weights", "error", err)
	}
	if err := writer.WriteLearning(sim.Controllers()); err != nil {
		slog.Error("failed to write learning telemetry", "error", err)
	}
	slog.Info("telemetry written", "dir", *outDir)
}

// spawnSquads builds the standard scenario: a player stand-in, two opposed
// squads, and a boss. Squads get tactical groups and a formation; the
// relation matrix marks squad alpha as allied with the player's side.
func spawnSquads(sim *engine.Simulation, field *arena.Arena, tables *data.Tables, rng *rand.Rand) {
	coord := sim.Coordinator()
	var taken []entity.Vec2

	playerPos := field.SpawnPoint(taken, 20)
	taken = append(taken, playerPos)
	player := entity.NewCombatant("player", "blue", entity.KindPlayer, playerPos)
	player.MaxHP, player.HP = 200, 200
	player.Lvl, player.CombatLvl, player.Damage = 10, 10, 35
	sim.AddCombatant(player, "")

	alphaSpawns := field.SquadSpawns(4, taken, 20)
	taken = append(taken, alphaSpawns[0])
	for i, pos := range alphaSpawns {
		c := squadMember(fmt.Sprintf("alpha-%d", i+1), "blue", pos, tables, rng)
		sim.AddCombatant(c, "squad-alpha")
	}

	bravoSpawns := field.SquadSpawns(4, taken, 20)
	taken = append(taken, bravoSpawns[0])
	for i, pos := range bravoSpawns {
		c := squadMember(fmt.Sprintf("bravo-%d", i+1), "red", pos, tables, rng)
		sim.AddCombatant(c, "squad-bravo")
	}

	bossPos := field.SpawnPoint(taken, 30)
	boss := entity.NewCombatant("warlord", "red", entity.KindBoss, bossPos)
	boss.MaxHP, boss.HP = 500, 500
	boss.Lvl, boss.CombatLvl, boss.Damage = 15, 15, 40
	boss.SkillSet["slam"] = entity.Skill{Level: 0.9, StaminaCost: 20, Cooldown: 3, Tags: []string{"attack", "aoe"}}
	boss.Genes = geneSubset(tables, "BERSERKER_GENE", "ADRENALINE_RUSH")
	boss.SetEmotion(entity.EmotionRage)
	sim.AddCombatant(boss, "warband")

	coord.SetRelation("squad-alpha", "squad-bravo", tactics.RelationEnemy)
	coord.SetRelation("squad-alpha", "warband", tactics.RelationEnemy)
	coord.SetRelation("squad-bravo", "warband", tactics.RelationAlly)
	coord.SetFormation("squad-alpha", tactics.FormationPhalanx)
	coord.SetFormation("squad-bravo", tactics.FormationSkirmish)
	coord.SetFormation("warband", tactics.FormationAmbush)
}

// squadMember rolls one elite-or-normal squad combatant with a small skill
// kit and a couple of genes.
func squadMember(name, team string, pos entity.Vec2, tables *data.Tables, rng *rand.Rand) *entity.Combatant {
	kind := entity.KindNormal
	if rng.Float64() < 0.25 {
		kind = entity.KindElite
	}
	c := entity.NewCombatant(name, team, kind, pos)
	c.Lvl = 3 + rng.Intn(5)
	c.CombatLvl = float64(c.Lvl)
	c.Damage = 15 + rng.Float64()*20
	c.Consumables["HEAL"] = 2
	c.SkillSet["strike"] = entity.Skill{Level: 0.6, StaminaCost: 10, Cooldown: 1, Tags: []string{"attack"}}
	if rng.Float64() < 0.4 {
		c.SkillSet["mend"] = entity.Skill{Level: 0.5, ManaCost: 15, Cooldown: 5, Tags: []string{"heal"}}
	}
	if rng.Float64() < 0.3 {
		c.SkillSet["magic"] = entity.Skill{Level: 0.4 + rng.Float64()*0.5, ManaCost: 10, Cooldown: 2, Tags: []string{"attack"}}
	}
	c.Genes = geneSubset(tables, "QUICK_ESCAPE", "TACTICAL_INSIGHT")
	return c
}

// geneSubset picks the named genes out of the loaded table, skipping any
// that the data files do not define.
func geneSubset(tables *data.Tables, ids ...string) map[string]data.GeneProfile {
	out := map[string]data.GeneProfile{}
	for _, id := range ids {
		if g, ok := tables.GeneticProfiles[id]; ok {
			out[id] = g
		}
	}
	return out
}

// report logs the end-of-run state of every combatant.
func report(sim *engine.Simulation) {
	for _, c := range sim.Controllers() {
		e := c.Entity()
		slog.Info("combatant",
			"name", e.Name(),
			"team", e.Team(),
			"alive", e.Alive(),
			"health", fmt.Sprintf("%.0f/%.0f", e.Health(), e.MaxHealth()),
			"epsilon", fmt.Sprintf("%.3f", c.Learner().Epsilon()),
			"states", c.Learner().States(),
		)
	}
	for _, g := range sim.Coordinator().Groups() {
		slog.Info("group",
			"id", g,
			"strategy", sim.Coordinator().GroupStrategy(g),
			"threat", fmt.Sprintf("%.2f", sim.Coordinator().GroupThreat(g)),
		)
	}
}
