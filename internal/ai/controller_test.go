package ai

import (
	"math"
	"math/rand"
	"testing"

	"github.com/talgya/battlemind/internal/behavior"
	"github.com/talgya/battlemind/internal/config"
	"github.com/talgya/battlemind/internal/entity"
	"github.com/talgya/battlemind/internal/memory"
	"github.com/talgya/battlemind/internal/tactics"
)

func TestDeriveProfileClampsTraits(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	weak := entity.NewCombatant("weak", "red", entity.KindNormal, entity.Vec2{})
	weak.Damage = 0
	p := DeriveProfile(weak, rng)
	if p.Aggression != 0.3 {
		t.Errorf("zero-damage aggression = %v, want floor 0.3", p.Aggression)
	}
	if p.Caution != 0.1 {
		t.Errorf("full-health caution = %v, want floor 0.1", p.Caution)
	}

	monster := entity.NewCombatant("monster", "red", entity.KindNormal, entity.Vec2{})
	monster.Damage = 500
	monster.HP = 1
	p = DeriveProfile(monster, rng)
	if p.Aggression != 0.9 {
		t.Errorf("huge-damage aggression = %v, want cap 0.9", p.Aggression)
	}
	if p.Caution != 0.9 {
		t.Errorf("near-death caution = %v, want cap 0.9", p.Caution)
	}

	if p.Loyalty < 0.2 || p.Loyalty > 0.95 {
		t.Errorf("loyalty = %v, want within [0.2, 0.95]", p.Loyalty)
	}
}

func TestDeriveProfileIntelligenceFromMagicSkill(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	plain := entity.NewCombatant("plain", "red", entity.KindNormal, entity.Vec2{})
	if p := DeriveProfile(plain, rng); p.Intelligence != 0.5 {
		t.Errorf("default intelligence = %v, want 0.5", p.Intelligence)
	}

	mage := entity.NewCombatant("mage", "red", entity.KindNormal, entity.Vec2{})
	mage.SkillSet["magic"] = entity.Skill{Level: 0.85}
	if p := DeriveProfile(mage, rng); p.Intelligence != 0.85 {
		t.Errorf("mage intelligence = %v, want 0.85", p.Intelligence)
	}

	dull := entity.NewCombatant("dull", "red", entity.KindNormal, entity.Vec2{})
	dull.SkillSet["magic"] = entity.Skill{Level: 0.1}
	if p := DeriveProfile(dull, rng); p.Intelligence != 0.4 {
		t.Errorf("low-magic intelligence = %v, want floor 0.4", p.Intelligence)
	}
}

func TestDeriveProfileEffectTagAdjustments(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	berserk := entity.NewCombatant("berserk", "red", entity.KindNormal, entity.Vec2{})
	berserk.Damage = 50
	berserk.AddEffect("berserk")
	p := DeriveProfile(berserk, rng)
	if p.Aggression != 0.8 { // 0.5 base + 0.3
		t.Errorf("berserk aggression = %v, want 0.8", p.Aggression)
	}

	afraid := entity.NewCombatant("afraid", "red", entity.KindNormal, entity.Vec2{})
	afraid.Damage = 50
	afraid.AddEffect("fear")
	p = DeriveProfile(afraid, rng)
	if p.Aggression != 0.3 { // 0.5 base - 0.2
		t.Errorf("fearful aggression = %v, want 0.3", p.Aggression)
	}
}

func TestAdaptationShiftsTraitsFromOutcomes(t *testing.T) {
	cfg := config.Default()
	rng := rand.New(rand.NewSource(4))
	e := entity.NewCombatant("npc", "red", entity.KindNormal, entity.Vec2{})
	ctrl := NewController(e, cfg, nil, rng)

	before := ctrl.Profile.Aggression
	for i := 0; i < 4; i++ {
		ctrl.mem.RecordOutcome(float64(i), "ATTACK", memory.OutcomeFailure)
	}
	if !ctrl.Profile.Adapt(e, ctrl.mem, 5) {
		t.Fatal("adaptation did not trigger after repeated attack failures")
	}
	if ctrl.Profile.Aggression >= before {
		t.Errorf("aggression = %v, want below %v", ctrl.Profile.Aggression, before)
	}
}

func TestTierClassification(t *testing.T) {
	const near = 1000.0

	player := entity.NewCombatant("player", "blue", entity.KindPlayer, entity.Vec2{})
	boss := entity.NewCombatant("boss", "red", entity.KindBoss, entity.Vec2{})
	if TierFor(player, near) != TierFull {
		t.Error("player must always be FULL")
	}
	if TierFor(boss, near) != TierFull {
		t.Error("boss must always be FULL")
	}

	// Entities without a player in roster are infinitely far away. Even
	// elites fall all the way to MINIMAL out of player range.
	elite := entity.NewCombatant("elite", "red", entity.KindElite, entity.Vec2{})
	if got := TierFor(elite, near); got != TierMinimal {
		t.Errorf("distant elite tier = %v, want MINIMAL", got)
	}
	normal := entity.NewCombatant("grunt", "red", entity.KindNormal, entity.Vec2{})
	if got := TierFor(normal, near); got != TierMinimal {
		t.Errorf("distant normal tier = %v, want MINIMAL", got)
	}

	// With a nearby player, both move one tier up.
	roster := entity.NewRoster()
	p := entity.NewCombatant("player", "blue", entity.KindPlayer, entity.Vec2{})
	nearElite := entity.NewCombatant("elite", "red", entity.KindElite, entity.Vec2{X: 50})
	nearNormal := entity.NewCombatant("grunt", "red", entity.KindNormal, entity.Vec2{X: 50})
	roster.Add(p)
	roster.Add(nearElite)
	roster.Add(nearNormal)

	if got := TierFor(nearElite, near); got != TierFull {
		t.Errorf("near elite tier = %v, want FULL", got)
	}
	if got := TierFor(nearNormal, near); got != TierLight {
		t.Errorf("near normal tier = %v, want LIGHT", got)
	}
}

// treeShape flattens a tree into node names for structural comparison.
func treeShape(n behavior.Node) []string {
	switch node := n.(type) {
	case *behavior.Selector:
		out := []string{"Selector"}
		for _, c := range node.Children {
			out = append(out, treeShape(c)...)
		}
		return out
	case *behavior.Sequence:
		out := []string{"Sequence"}
		for _, c := range node.Children {
			out = append(out, treeShape(c)...)
		}
		return out
	default:
		return []string{n.Name()}
	}
}

func TestTreeConstructionIsDeterministic(t *testing.T) {
	p := Profile{Aggression: 0.8, Caution: 0.3, Intelligence: 0.6}

	a := treeShape(buildTree(p, 15))
	b := treeShape(buildTree(p, 15))
	if len(a) != len(b) {
		t.Fatalf("shapes differ in size: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("node %d differs: %q vs %q", i, a[i], b[i])
		}
	}

	// Profiles on opposite sides of the aggression cutoff produce
	// different orderings.
	timid := treeShape(buildTree(Profile{Aggression: 0.2, Caution: 0.3}, 15))
	if a[2] == timid[2] {
		t.Error("aggressive and timid profiles produced the same branch order")
	}
}

func TestCautiousTreeHealsBeforeFighting(t *testing.T) {
	p := Profile{Aggression: 0.5, Caution: 0.8, Intelligence: 0.5}
	tree := behavior.New(buildTree(p, 15))

	roster := entity.NewRoster()
	e := entity.NewCombatant("cautious", "blue", entity.KindNormal, entity.Vec2{})
	enemy := entity.NewCombatant("enemy", "red", entity.KindNormal, entity.Vec2{X: 5})
	roster.Add(e)
	roster.Add(enemy)

	e.HP = 35 // Ratio 0.35, below the 0.45 threshold caution 0.8 gives
	e.Consumables["HEAL"] = 1

	if got := tree.Execute(e); got != behavior.Success {
		t.Fatalf("tree = %v, want Success", got)
	}
	if e.HP != 60 {
		t.Errorf("HP = %v, want 60 (healed, not fighting)", e.HP)
	}
	if enemy.HP != 100 {
		t.Errorf("enemy HP = %v: cautious profile attacked while hurt", enemy.HP)
	}
}

func TestAggressiveTreeAttacksFirst(t *testing.T) {
	p := Profile{Aggression: 0.9, Caution: 0.5, Intelligence: 0.5}
	tree := behavior.New(buildTree(p, 15))

	roster := entity.NewRoster()
	e := entity.NewCombatant("brute", "blue", entity.KindNormal, entity.Vec2{})
	enemy := entity.NewCombatant("enemy", "red", entity.KindNormal, entity.Vec2{X: 5})
	roster.Add(e)
	roster.Add(enemy)

	e.HP = 35
	e.Consumables["HEAL"] = 1

	if got := tree.Execute(e); got != behavior.Success {
		t.Fatalf("tree = %v, want Success", got)
	}
	if enemy.HP == 100 {
		t.Error("aggressive profile did not attack")
	}
	if e.Consumables["HEAL"] != 1 {
		t.Error("aggressive profile healed before attacking")
	}
}

func TestFullUpdateRunsWithoutCoordinator(t *testing.T) {
	cfg := config.Default()
	rng := rand.New(rand.NewSource(7))

	roster := entity.NewRoster()
	player := entity.NewCombatant("player", "blue", entity.KindPlayer, entity.Vec2{})
	enemy := entity.NewCombatant("enemy", "red", entity.KindNormal, entity.Vec2{X: 5})
	roster.Add(player)
	roster.Add(enemy)

	ctrl := NewController(player, cfg, nil, rng)
	for i := 0; i < 50; i++ {
		player.AdvanceTime(0.1)
		enemy.AdvanceTime(0.1)
		ctrl.Update(0.1)
	}

	if ctrl.Learner().States() == 0 {
		t.Error("learning never discovered a state")
	}
	if len(ctrl.Memory().Events()) == 0 {
		t.Error("memory recorded nothing")
	}
}

func TestGroupOrdersRespectDisobedience(t *testing.T) {
	cfg := config.Default()
	coord := tactics.NewCoordinator(cfg.Tactics, 1)

	leader := entity.NewCombatant("leader", "red", entity.KindNormal, entity.Vec2{X: 10})
	coord.Register(leader, "g")
	leader.SetRole(tactics.RoleLeader)

	// The standard-attack defender order walks toward the leader, so a
	// follower's position moves; a vetoed order leaves it in place.
	obedient := entity.NewCombatant("soldier", "red", entity.KindNormal, entity.Vec2{})
	coord.Register(obedient, "g")
	obCtrl := NewController(obedient, cfg, coord, rand.New(rand.NewSource(8)))
	obCtrl.Profile.Intelligence = 1.0
	obedient.SetRole(tactics.RoleDefender)
	for i := 0; i < 100; i++ {
		obCtrl.followGroupOrders()
	}
	if obedient.Position() == (entity.Vec2{}) {
		t.Error("obedient entity never followed a movement order")
	}

	rebel := entity.NewCombatant("rebel", "red", entity.KindNormal, entity.Vec2{})
	rebel.AddEffect("disobedience")
	coord.Register(rebel, "g")
	rbCtrl := NewController(rebel, cfg, coord, rand.New(rand.NewSource(9)))
	rbCtrl.Profile.Intelligence = 1.0
	rebel.SetRole(tactics.RoleDefender)
	for i := 0; i < 100; i++ {
		rbCtrl.followGroupOrders()
	}
	if rebel.Position() != (entity.Vec2{}) {
		t.Error("disobedient entity followed movement orders")
	}
}

func TestThreatScalesWithEnemyEmotion(t *testing.T) {
	cfg := config.Default()
	rng := rand.New(rand.NewSource(10))

	roster := entity.NewRoster()
	assessor := entity.NewCombatant("assessor", "blue", entity.KindNormal, entity.Vec2{})
	enemy := entity.NewCombatant("enemy", "red", entity.KindNormal, entity.Vec2{})
	enemy.CombatLvl, enemy.Damage = 10, 50 // Contribution 10*(1+0.5)*1 = 15
	roster.Add(assessor)
	roster.Add(enemy)
	ctrl := NewController(assessor, cfg, nil, rng)

	enemy.SetEmotion(entity.EmotionRage)
	if got := ctrl.AssessThreat(); math.Abs(got-22.5) > 1e-9 {
		t.Errorf("threat from raging enemy = %v, want 22.5", got)
	}

	// The assessor's own mood must not color the reading.
	enemy.SetEmotion(entity.EmotionNeutral)
	assessor.SetEmotion(entity.EmotionRage)
	if got := ctrl.AssessThreat(); math.Abs(got-15) > 1e-9 {
		t.Errorf("threat read by raging assessor = %v, want 15", got)
	}

	enemy.SetEmotion(entity.EmotionFear)
	if got := ctrl.AssessThreat(); math.Abs(got-12) > 1e-9 {
		t.Errorf("threat from fearful enemy = %v, want 12", got)
	}
}

// tacticalFixture builds a controller whose entity knows one skill of each
// intent. Long cooldowns make the chosen skill observable via SkillReady.
func tacticalFixture(seed int64) (*Controller, *entity.Combatant) {
	e := entity.NewCombatant("npc", "red", entity.KindNormal, entity.Vec2{})
	for id, tag := range map[string]string{
		"mend": "heal", "ward": "defense", "rally": "buff", "strike": "attack",
	} {
		e.SkillSet[id] = entity.Skill{Cooldown: 100, Tags: []string{tag}}
	}
	return NewController(e, config.Default(), nil, rand.New(rand.NewSource(seed))), e
}

func TestTacticalAbilityPriorities(t *testing.T) {
	used := func(e *entity.Combatant, id string) bool { return !e.SkillReady(id) }

	// Badly hurt: heal outranks everything.
	ctrl, e := tacticalFixture(11)
	e.HP = 35
	ctrl.useTacticalAbility(20)
	if !used(e, "mend") {
		t.Error("entity at 35% health did not heal")
	}

	// Heavy threat at decent health: defense.
	ctrl, e = tacticalFixture(12)
	ctrl.useTacticalAbility(20)
	if !used(e, "ward") {
		t.Error("entity under threat 20 did not raise a defense")
	}

	// Calm and healthy: buff.
	ctrl, e = tacticalFixture(13)
	ctrl.useTacticalAbility(0)
	if !used(e, "rally") {
		t.Error("calm healthy entity did not buff")
	}

	// Moderately hurt but calm: too low for a buff, not low enough to
	// heal, so the attack skill fires.
	ctrl, e = tacticalFixture(14)
	e.HP = 65
	ctrl.useTacticalAbility(0)
	if used(e, "rally") {
		t.Error("entity at 65% health spent its buff")
	}
	if used(e, "mend") {
		t.Error("entity at 65% health healed early")
	}
	if !used(e, "strike") {
		t.Error("entity at 65% health did not fall through to attack")
	}
}

func TestThreatRadiusComesFromConfig(t *testing.T) {
	roster := entity.NewRoster()
	assessor := entity.NewCombatant("assessor", "blue", entity.KindNormal, entity.Vec2{})
	enemy := entity.NewCombatant("enemy", "red", entity.KindNormal, entity.Vec2{X: 5})
	enemy.CombatLvl = 5
	roster.Add(assessor)
	roster.Add(enemy)

	wide := config.Default()
	if got := NewController(assessor, wide, nil, rand.New(rand.NewSource(15))).AssessThreat(); got == 0 {
		t.Error("enemy at distance 5 invisible under the default radius")
	}

	narrow := config.Default()
	narrow.Tactics.ThreatRadius = 3
	if got := NewController(assessor, narrow, nil, rand.New(rand.NewSource(16))).AssessThreat(); got != 0 {
		t.Errorf("threat = %v under radius 3 with nearest enemy at 5, want 0", got)
	}
}

func TestTreeRebuildRates(t *testing.T) {
	cfg := config.Default()
	const trials = 10000

	// Baseline roll only: ~10%.
	ctrl := NewController(entity.NewCombatant("a", "red", entity.KindNormal, entity.Vec2{}), cfg, nil, rand.New(rand.NewSource(17)))
	count := 0
	for i := 0; i < trials; i++ {
		if ctrl.maybeRebuildTree(false) {
			count++
		}
	}
	rate := float64(count) / trials
	if rate < 0.08 || rate > 0.12 {
		t.Errorf("steady-state rebuild rate = %v, want ~0.10", rate)
	}

	// After adaptation the extra 30% roll stacks on the baseline:
	// 1 - 0.9*0.7 = 0.37.
	ctrl = NewController(entity.NewCombatant("b", "red", entity.KindNormal, entity.Vec2{}), cfg, nil, rand.New(rand.NewSource(18)))
	count = 0
	for i := 0; i < trials; i++ {
		if ctrl.maybeRebuildTree(true) {
			count++
		}
	}
	rate = float64(count) / trials
	if rate < 0.34 || rate > 0.40 {
		t.Errorf("post-adaptation rebuild rate = %v, want ~0.37", rate)
	}
}
