// Package learning implements the tabular reinforcement-learning loop:
// a per-entity Q-table over discretized combat states, epsilon-greedy action
// selection, temporal-difference updates, and a bounded replay log.
package learning

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/talgya/battlemind/internal/behavior"
	"github.com/talgya/battlemind/internal/config"
	"github.com/talgya/battlemind/internal/entity"
)

// ActionKind is the closed base action set. Skill casts carry the skill
// identifier alongside the kind instead of being spliced into strings.
type ActionKind uint8

const (
	ActionAttack ActionKind = iota
	ActionDefend
	ActionUseItem
	ActionFlee
	ActionCastSpell
	ActionCastSkill
)

// Action identifies one selectable action.
type Action struct {
	Kind  ActionKind
	Skill string // Set only for ActionCastSkill
}

// String renders the action identifier for logs and telemetry.
func (a Action) String() string {
	switch a.Kind {
	case ActionAttack:
		return "ATTACK"
	case ActionDefend:
		return "DEFEND"
	case ActionUseItem:
		return "USE_ITEM"
	case ActionFlee:
		return "FLEE"
	case ActionCastSpell:
		return "CAST_SPELL"
	case ActionCastSkill:
		return "CAST_" + a.Skill
	}
	return fmt.Sprintf("ACTION_%d", a.Kind)
}

// baseActions is the fixed portion of every state's action space.
var baseActions = []Action{
	{Kind: ActionAttack},
	{Kind: ActionDefend},
	{Kind: ActionUseItem},
	{Kind: ActionFlee},
	{Kind: ActionCastSpell},
}

// StateKey is the discretized combat state: health/stamina/mana rounded to
// the nearest 0.1, position bucketed by 10 world units, enemy proximity,
// and the current emotion label.
type StateKey struct {
	Health    int // Tenths
	Stamina   int
	Mana      int
	BucketX   int
	BucketY   int
	EnemyNear bool
	Emotion   entity.Emotion
}

// StateFor discretizes an entity's current snapshot.
func StateFor(e entity.Entity, enemyNear bool) StateKey {
	pos := e.Position()
	return StateKey{
		Health:    int(math.Round(e.Health() * 10)),
		Stamina:   int(math.Round(e.Stamina() * 10)),
		Mana:      int(math.Round(e.Mana() * 10)),
		BucketX:   int(pos.X / 10),
		BucketY:   int(pos.Y / 10),
		EnemyNear: enemyNear,
		Emotion:   e.Emotion(),
	}
}

// Transition is one replay log entry.
type Transition struct {
	State  StateKey
	Action Action
	Reward float64
	Next   StateKey
}

// Controller runs the learning loop for one entity.
type Controller struct {
	alpha        float64
	gamma        float64
	epsilon      float64
	epsilonDecay float64
	epsilonFloor float64

	q      map[StateKey]map[Action]float64
	replay []Transition
	cap    int
	rng    *rand.Rand

	lastState  StateKey
	lastAction Action
	hasLast    bool
	lastHealth float64
}

// New creates a learning controller seeded from cfg.
func New(cfg config.LearningConfig, rng *rand.Rand) *Controller {
	return &Controller{
		alpha:        cfg.LearningRate,
		gamma:        cfg.DiscountFactor,
		epsilon:      cfg.Exploration,
		epsilonDecay: cfg.EpsilonDecay,
		epsilonFloor: cfg.EpsilonFloor,
		q:            map[StateKey]map[Action]float64{},
		cap:          cfg.ReplayCapacity,
		rng:          rng,
	}
}

// ActionsFor returns the action space for an entity: the base set plus one
// cast action per known skill, in sorted skill order so tie-breaking is
// deterministic.
func ActionsFor(e entity.Entity) []Action {
	actions := make([]Action, len(baseActions))
	copy(actions, baseActions)

	ids := make([]string, 0, len(e.Skills()))
	for id := range e.Skills() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		actions = append(actions, Action{Kind: ActionCastSkill, Skill: id})
	}
	return actions
}

// ensure initializes the value row for a state over the given action space.
func (c *Controller) ensure(state StateKey, actions []Action) map[Action]float64 {
	row, ok := c.q[state]
	if !ok {
		row = make(map[Action]float64, len(actions))
		c.q[state] = row
	}
	for _, a := range actions {
		if _, ok := row[a]; !ok {
			row[a] = 0
		}
	}
	return row
}

// ChooseAction picks epsilon-greedily from the action space: explore
// uniformly with probability epsilon, otherwise exploit the highest-valued
// action with ties broken by iteration order over actions.
func (c *Controller) ChooseAction(state StateKey, actions []Action) Action {
	row := c.ensure(state, actions)

	if c.rng.Float64() < c.epsilon {
		return actions[c.rng.Intn(len(actions))]
	}

	best := actions[0]
	bestValue := math.Inf(-1)
	for _, a := range actions {
		if v := row[a]; v > bestValue {
			bestValue = v
			best = a
		}
	}
	return best
}

// Learn applies the TD update for one transition:
// Q(s,a) ← (1-α)·Q(s,a) + α·(r + γ·max_a' Q(s',a')).
func (c *Controller) Learn(s StateKey, a Action, reward float64, next StateKey) {
	row := c.ensure(s, []Action{a})
	maxNext := 0.0
	if nextRow, ok := c.q[next]; ok {
		maxNext = math.Inf(-1)
		for _, v := range nextRow {
			if v > maxNext {
				maxNext = v
			}
		}
		if math.IsInf(maxNext, -1) {
			maxNext = 0
		}
	}
	row[a] = (1-c.alpha)*row[a] + c.alpha*(reward+c.gamma*maxNext)
}

// Update runs one learning step: score the previous transition, update the
// table, record it to the replay log, then choose and perform the next
// action. Exploration decays monotonically toward its floor.
func (c *Controller) Update(e entity.Entity, enemyNear bool) Action {
	current := StateFor(e, enemyNear)
	actions := ActionsFor(e)
	c.ensure(current, actions)

	if c.hasLast {
		reward := c.Reward(e)
		c.addReplay(Transition{State: c.lastState, Action: c.lastAction, Reward: reward, Next: current})
		c.Learn(c.lastState, c.lastAction, reward, current)
	}

	action := c.ChooseAction(current, actions)
	c.lastState = current
	c.lastAction = action
	c.hasLast = true
	c.lastHealth = e.Health()

	c.Perform(e, action)

	c.epsilon = math.Max(c.epsilonFloor, c.epsilon*c.epsilonDecay)
	return action
}

// Reward shapes the learning signal from the entity's last-tick outcome:
// staying alive, landing actions, losing health, dying, and mana
// efficiency.
func (c *Controller) Reward(e entity.Entity) float64 {
	reward := 0.0

	if e.Health() > 0 {
		reward += 0.1
	}
	if e.LastActionSuccess() {
		reward += 1.0
	}
	if lost := c.lastHealth - e.Health(); lost > 0 {
		reward -= 0.5 * lost
	}
	if e.Health() <= 0 {
		reward -= 10.0
	}
	if dealt := e.LastDamageDealt(); dealt > 0 {
		if e.LastManaSpent()/dealt < 0.5 {
			reward += 0.3
		}
	}
	return reward
}

// Perform dispatches an action against the capability contract.
func (c *Controller) Perform(e entity.Entity, a Action) {
	switch a.Kind {
	case ActionAttack:
		if target := behavior.NearestEnemy(e, 15); target != nil {
			e.Attack(target)
		}
	case ActionDefend:
		e.AddEffect("guard")
	case ActionUseItem:
		e.UseItem("HEAL")
	case ActionFlee:
		if threat := behavior.NearestEnemy(e, 15); threat != nil {
			away := e.Position().Sub(threat.Position()).Normalized()
			e.MoveInDirection(away)
		}
	case ActionCastSpell:
		// Generic cast: first ready skill in sorted order.
		ids := make([]string, 0, len(e.Skills()))
		for id := range e.Skills() {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if e.UseSkill(id) {
				return
			}
		}
	case ActionCastSkill:
		e.UseSkill(a.Skill)
	}
}

func (c *Controller) addReplay(t Transition) {
	if c.cap > 0 && len(c.replay) >= c.cap {
		c.replay = c.replay[1:]
	}
	c.replay = append(c.replay, t)
}

// Epsilon returns the current exploration rate.
func (c *Controller) Epsilon() float64 { return c.epsilon }

// QValue returns the learned value for (state, action).
func (c *Controller) QValue(s StateKey, a Action) float64 { return c.q[s][a] }

// States returns the number of discovered states.
func (c *Controller) States() int { return len(c.q) }

// Replay returns the bounded transition log for potential batch reuse. The
// base design records it without feeding it back into the table.
func (c *Controller) Replay() []Transition { return c.replay }
