package learning

import (
	"math"
	"math/rand"
	"testing"

	"github.com/talgya/battlemind/internal/config"
	"github.com/talgya/battlemind/internal/entity"
)

func testConfig() config.LearningConfig {
	return config.LearningConfig{
		LearningRate:   0.1,
		DiscountFactor: 0.95,
		Exploration:    0.2,
		EpsilonDecay:   0.999,
		EpsilonFloor:   0.01,
		ReplayCapacity: 1000,
	}
}

func TestLearnMatchesClosedForm(t *testing.T) {
	c := New(testConfig(), rand.New(rand.NewSource(1)))
	s := StateKey{Health: 10}
	next := StateKey{Health: 8}
	a := Action{Kind: ActionAttack}

	// Unknown next state: max_a' Q(s',·) = 0.
	c.Learn(s, a, 1.0, next)
	if got, want := c.QValue(s, a), 0.1*1.0; math.Abs(got-want) > 1e-12 {
		t.Fatalf("after first update Q = %v, want %v", got, want)
	}

	// Seed the next state so the bootstrap term participates.
	c.Learn(next, a, 2.0, StateKey{Health: 6})
	nextMax := c.QValue(next, a)

	prev := c.QValue(s, a)
	c.Learn(s, a, 1.0, next)
	want := (1-0.1)*prev + 0.1*(1.0+0.95*nextMax)
	if got := c.QValue(s, a); math.Abs(got-want) > 1e-12 {
		t.Errorf("after second update Q = %v, want %v", got, want)
	}
}

func TestEpsilonDecaysMonotonicallyToFloor(t *testing.T) {
	c := New(testConfig(), rand.New(rand.NewSource(2)))
	e := entity.NewCombatant("learner", "blue", entity.KindNormal, entity.Vec2{})

	prev := c.Epsilon()
	for i := 0; i < 5000; i++ {
		c.Update(e, false)
		eps := c.Epsilon()
		if eps > prev {
			t.Fatalf("epsilon increased at step %d: %v -> %v", i, prev, eps)
		}
		if eps < 0.01 {
			t.Fatalf("epsilon fell through floor at step %d: %v", i, eps)
		}
		prev = eps
	}
	if math.Abs(prev-0.01) > 1e-9 {
		t.Errorf("epsilon after 5000 steps = %v, want floor 0.01", prev)
	}
}

func TestChooseActionExploitsBestValue(t *testing.T) {
	cfg := testConfig()
	cfg.Exploration = 0 // Pure exploitation
	c := New(cfg, rand.New(rand.NewSource(3)))

	s := StateKey{Health: 10}
	actions := []Action{{Kind: ActionAttack}, {Kind: ActionDefend}, {Kind: ActionFlee}}
	c.ensure(s, actions)
	c.q[s][Action{Kind: ActionFlee}] = 2.0
	c.q[s][Action{Kind: ActionAttack}] = 1.0

	if got := c.ChooseAction(s, actions); got.Kind != ActionFlee {
		t.Errorf("chose %v, want FLEE", got)
	}
}

func TestActionSpaceIncludesSkillsSorted(t *testing.T) {
	e := entity.NewCombatant("caster", "blue", entity.KindNormal, entity.Vec2{})
	e.SkillSet["zeta"] = entity.Skill{}
	e.SkillSet["alpha"] = entity.Skill{}

	actions := ActionsFor(e)
	if len(actions) != len(baseActions)+2 {
		t.Fatalf("action space size = %d, want %d", len(actions), len(baseActions)+2)
	}
	if actions[len(actions)-2].Skill != "alpha" || actions[len(actions)-1].Skill != "zeta" {
		t.Errorf("skill actions not sorted: %v", actions[len(baseActions):])
	}
}

func TestStateDiscretization(t *testing.T) {
	e := entity.NewCombatant("npc", "blue", entity.KindNormal, entity.Vec2{X: 37, Y: -5})
	e.HP = 73.4

	s := StateFor(e, true)
	if s.Health != 734 {
		t.Errorf("health key = %d, want 734", s.Health)
	}
	if s.BucketX != 3 {
		t.Errorf("bucket x = %d, want 3", s.BucketX)
	}
	if !s.EnemyNear {
		t.Error("enemy proximity lost")
	}
}

func TestReplayLogIsBounded(t *testing.T) {
	cfg := testConfig()
	cfg.ReplayCapacity = 5
	c := New(cfg, rand.New(rand.NewSource(4)))
	e := entity.NewCombatant("npc", "blue", entity.KindNormal, entity.Vec2{})

	for i := 0; i < 20; i++ {
		c.Update(e, false)
	}
	if got := len(c.Replay()); got > 5 {
		t.Errorf("replay length = %d, want <= 5", got)
	}
}

func TestRewardShaping(t *testing.T) {
	c := New(testConfig(), rand.New(rand.NewSource(5)))
	e := entity.NewCombatant("npc", "blue", entity.KindNormal, entity.Vec2{})
	c.lastHealth = e.HP

	// Alive, nothing else: survival bonus only.
	if got := c.Reward(e); math.Abs(got-0.1) > 1e-12 {
		t.Errorf("idle reward = %v, want 0.1", got)
	}

	// Death dominates.
	e.HP = 0
	if got := c.Reward(e); got > -10 {
		t.Errorf("death reward = %v, want <= -10", got)
	}
}
