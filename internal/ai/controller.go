package ai

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/talgya/battlemind/internal/behavior"
	"github.com/talgya/battlemind/internal/config"
	"github.com/talgya/battlemind/internal/emotion"
	"github.com/talgya/battlemind/internal/entity"
	"github.com/talgya/battlemind/internal/learning"
	"github.com/talgya/battlemind/internal/memory"
	"github.com/talgya/battlemind/internal/pattern"
	"github.com/talgya/battlemind/internal/tactics"
)

// Tier is the per-update work level an entity receives.
type Tier uint8

const (
	TierFull Tier = iota
	TierLight
	TierMinimal
)

func (t Tier) String() string {
	switch t {
	case TierFull:
		return "FULL"
	case TierLight:
		return "LIGHT"
	case TierMinimal:
		return "MINIMAL"
	}
	return "UNKNOWN"
}

// defaultThreatRadius bounds perception when the config carries no radius.
const defaultThreatRadius = 15.0

// Controller runs the complete decision loop for one entity.
type Controller struct {
	e   entity.Entity
	cfg *config.Config
	rng *rand.Rand

	Profile Profile
	tree    *behavior.Tree
	mem     *memory.Subsystem
	learner *learning.Controller
	recog   *pattern.Recognizer
	synth   *emotion.Synthesizer
	coord   *tactics.Coordinator

	now         float64
	lastThreat  float64
	lastAction  learning.Action
	pendingWish bool // A help request is outstanding
}

// NewController wires the full subsystem stack for one entity. The
// coordinator is shared; everything else is per-entity.
func NewController(e entity.Entity, cfg *config.Config, coord *tactics.Coordinator, rng *rand.Rand) *Controller {
	c := &Controller{
		e:       e,
		cfg:     cfg,
		rng:     rng,
		mem:     memory.New(cfg.Memory.ShortTermCapacity, cfg.Memory.LongTermCapacity, cfg.Memory.LongTermDecayRate),
		learner: learning.New(cfg.Learning, rng),
		recog:   pattern.NewRecognizer(),
		coord:   coord,
	}
	c.synth = emotion.New(e, cfg.Emotion, rng)
	c.Profile = DeriveProfile(e, rng)
	c.tree = behavior.New(buildTree(c.Profile, c.threatRadius()))
	return c
}

// threatRadius is the configured perception radius for threat assessment
// and target choice.
func (c *Controller) threatRadius() float64 {
	if c.cfg.Tactics.ThreatRadius > 0 {
		return c.cfg.Tactics.ThreatRadius
	}
	return defaultThreatRadius
}

// Entity returns the controlled entity.
func (c *Controller) Entity() entity.Entity { return c.e }

// Memory exposes the memory subsystem for persistence and inspection.
func (c *Controller) Memory() *memory.Subsystem { return c.mem }

// Learner exposes the learning controller for persistence and telemetry.
func (c *Controller) Learner() *learning.Controller { return c.learner }

// Recognizer exposes the pattern store.
func (c *Controller) Recognizer() *pattern.Recognizer { return c.recog }

// LastThreat returns the most recent threat assessment.
func (c *Controller) LastThreat() float64 { return c.lastThreat }

// TierFor classifies how much work an entity gets this update: players and
// bosses always receive full treatment, mid-priority entities degrade with
// distance from the player, and everything else runs light or minimal.
func TierFor(e entity.Entity, nearDistance float64) Tier {
	near := e.DistanceToPlayer() < nearDistance
	switch {
	case e.IsPlayer() || e.IsBoss():
		return TierFull
	case e.Priority() <= 3: // Miniboss and elite
		if near {
			return TierFull
		}
		return TierMinimal
	default:
		if near {
			return TierLight
		}
		return TierMinimal
	}
}

// Update advances the controller by dt seconds at the tier the entity's
// priority and distance warrant.
func (c *Controller) Update(dt float64) {
	if !c.e.Alive() {
		return
	}
	c.now += dt

	tier := TierFor(c.e, c.cfg.Tiers.NearDistance)
	switch tier {
	case TierFull:
		c.fullUpdate(dt)
	case TierLight:
		c.lightUpdate(dt)
	case TierMinimal:
		c.minimalUpdate(dt)
	}
}

// fullUpdate runs every subsystem: memory decay, emotion synthesis, threat
// assessment, personality adaptation with possible tree rebuild, pattern
// recall, the learning step, tactical ability use, healing, tree execution,
// and group orders.
func (c *Controller) fullUpdate(dt float64) {
	c.mem.Decay(c.cfg.Memory.DecayRate)
	c.mem.ForgetOld(c.now)

	c.synth.Update(dt)

	threat := c.AssessThreat()
	c.lastThreat = threat
	c.mem.Record(c.now, memory.Event{
		Type:    memory.EventThreatAssessment,
		Payload: map[string]any{"threat": threat},
	}, threatImportance(threat))

	// Personality drifts from experience; a drifted profile usually wants a
	// different tree shape, so adaptation rolls a second rebuild on top of
	// the baseline per-update one.
	adapted := c.Profile.Adapt(c.e, c.mem, c.now)
	c.maybeRebuildTree(adapted)

	enemyNear := len(c.e.Nearby(c.threatRadius(), true)) > 0

	if action, ok := c.recallResponse(enemyNear, threat); ok {
		c.mem.Record(c.now, memory.Event{
			Type:    memory.EventAIUpdate,
			Action:  action,
			Payload: map[string]any{"source": "recall"},
		}, 0.3)
	}

	c.learningStep(enemyNear)

	if c.rng.Float64() < 0.2*dt*(0.5+c.Profile.Intelligence) {
		c.useTacticalAbility(threat)
	}

	if behavior.HealthRatio(c.e) < healingThreshold(c.Profile) {
		c.tryHeal()
	}

	status := c.tree.Execute(c.e)
	c.mem.Record(c.now, memory.Event{
		Type:    memory.EventBehaviorExecution,
		Payload: map[string]any{"status": status.String()},
	}, 0.2)

	c.followGroupOrders()
}

// lightUpdate runs a reduced stack: threat assessment, emotion synthesis, a
// health-gated healing check, and the behavior tree. No learning, no
// adaptation, no group orders.
func (c *Controller) lightUpdate(dt float64) {
	c.mem.Decay(c.cfg.Memory.DecayRate)
	c.synth.Update(dt)
	c.lastThreat = c.AssessThreat()
	if behavior.HealthRatio(c.e) < healingThreshold(c.Profile) {
		c.tryHeal()
	}
	c.tree.Execute(c.e)
}

// minimalUpdate keeps distant low-priority entities barely alive: heal when
// critical, otherwise occasionally wander.
func (c *Controller) minimalUpdate(dt float64) {
	if behavior.HealthRatio(c.e) < 0.3 {
		c.tryHeal()
		return
	}
	if c.rng.Float64() < 0.05 {
		dir := entity.Vec2{X: c.rng.Float64()*2 - 1, Y: c.rng.Float64()*2 - 1}
		c.e.MoveInDirection(dir.Normalized())
	}
}

// maybeRebuildTree rolls the baseline 10% per-update rebuild, and a second
// 30% rebuild when the personality just shifted. Returns whether a rebuild
// happened.
func (c *Controller) maybeRebuildTree(adapted bool) bool {
	rebuilt := c.rng.Float64() < 0.1
	if adapted && c.rng.Float64() < 0.3 {
		rebuilt = true
	}
	if rebuilt {
		c.tree = behavior.New(buildTree(c.Profile, c.threatRadius()))
	}
	return rebuilt
}

// AssessThreat sums the distance-decayed threat of nearby living enemies.
// Each enemy's score is scaled by that enemy's emotion and visible effects:
// a raging enemy reads as more dangerous, a fearful or stealthed one less.
func (c *Controller) AssessThreat() float64 {
	total := 0.0
	for _, enemy := range c.e.Nearby(c.threatRadius(), true) {
		if !enemy.Alive() {
			continue
		}
		score := tactics.ThreatContribution(c.e, enemy)
		switch enemy.Emotion() {
		case entity.EmotionRage:
			score *= 1.5
		case entity.EmotionConfidence:
			score *= 1.2
		case entity.EmotionFear:
			score *= 0.8
		}
		if enemy.HasEffectTag("stealth") {
			score *= 0.5
		}
		if enemy.HasEffectTag("taunt") {
			score *= 1.8
		}
		total += score
	}
	return total
}

// threatImportance maps raw threat onto the memory importance scale.
func threatImportance(threat float64) float64 {
	importance := threat / 10
	if importance > 1 {
		importance = 1
	}
	return importance
}

// recallResponse answers "have I seen this situation before": the
// exact-match association store is consulted first, then the fuzzy pattern
// index as fallback.
func (c *Controller) recallResponse(enemyNear bool, threat float64) (string, bool) {
	situation := c.describeSituation(enemyNear, threat)
	key := situationKey(situation)

	if assoc, ok := c.mem.Recall(key); ok {
		return assoc.Action, true
	}
	if response, _, ok := c.recog.Recognize(situation, c.cfg.Pattern.MatchThreshold); ok {
		if action, ok := response.(string); ok {
			return action, true
		}
	}
	return "", false
}

// describeSituation snapshots the features that identify a combat moment.
func (c *Controller) describeSituation(enemyNear bool, threat float64) pattern.Situation {
	return pattern.Situation{
		"enemy_near":    enemyNear,
		"health_bucket": int(behavior.HealthRatio(c.e) * 10),
		"threat_bucket": int(threat),
		"emotion":       string(c.e.Emotion()),
		"in_group":      c.e.GroupID() != "",
	}
}

// situationKey renders a situation into the stable string key the
// exact-match store uses.
func situationKey(s pattern.Situation) string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for _, k := range keys {
		out += fmt.Sprintf("%s=%v;", k, s[k])
	}
	return out
}

// learningStep runs one reinforcement update and feeds the observed outcome
// back into memory and the pattern store.
func (c *Controller) learningStep(enemyNear bool) {
	action := c.learner.Update(c.e, enemyNear)
	c.lastAction = action

	outcome := memory.OutcomeFailure
	if c.e.LastActionSuccess() {
		outcome = memory.OutcomeSuccess
	}
	c.mem.RecordOutcome(c.now, action.String(), outcome)

	situation := c.describeSituation(enemyNear, c.lastThreat)
	c.mem.LearnFromExperience(situationKey(situation), action.String(), outcome)
	if outcome == memory.OutcomeSuccess {
		c.recog.Add(situation, action.String())
	}
}

// useTacticalAbility picks the most pressing ready ability: heal when badly
// hurt, defense under heavy threat, a buff only in calm moments at good
// health, and otherwise an attack skill.
func (c *Controller) useTacticalAbility(threat float64) {
	if behavior.HealthRatio(c.e) < 0.4 && useByTag(c.e, "heal") {
		return
	}
	if threat > 15 && useByTag(c.e, "defense") {
		return
	}
	if threat < 5 && behavior.HealthRatio(c.e) > 0.7 && useByTag(c.e, "buff") {
		return
	}
	useByTag(c.e, "attack")
}

// tryHeal escalates: consumable first, then a healing skill, then a help
// request to allied groups.
func (c *Controller) tryHeal() {
	if c.e.HasConsumable("HEAL") && c.e.UseItem("HEAL") {
		c.pendingWish = false
		return
	}
	if useByTag(c.e, "heal") {
		c.pendingWish = false
		return
	}
	if c.coord != nil && c.e.GroupID() != "" && !c.pendingWish {
		if c.coord.RequestHelp(c.e, "HEALING") {
			c.pendingWish = true
			slog.Debug("healing help requested", "entity", c.e.Name(), "group", c.e.GroupID())
		}
	}
}

// followGroupOrders executes the coordinator's current order for this
// entity. Discipline scales with intelligence; a disobedience effect makes
// the entity ignore orders entirely.
func (c *Controller) followGroupOrders() {
	if c.coord == nil || c.e.GroupID() == "" {
		return
	}
	if c.e.HasEffectTag("disobedience") {
		return
	}
	discipline := c.Profile.Intelligence * 0.7
	if c.rng.Float64() < discipline {
		action := c.coord.GroupAction(c.e)
		c.coord.ExecuteAction(c.e, action, c.rng)
	}
}

// healingThreshold: cautious entities start healing earlier.
func healingThreshold(p Profile) float64 {
	return 0.25 + 0.25*p.Caution
}

// buildTree shapes the behavior tree from personality: aggressive profiles
// put attacking before self-preservation, everyone else checks health
// first. The caution trait moves the low-health cutoff.
func buildTree(p Profile, radius float64) behavior.Node {
	low := healingThreshold(p)

	healBranch := &behavior.Sequence{Children: []behavior.Node{
		behavior.CheckLowHealth(low),
		&behavior.Selector{Children: []behavior.Node{
			behavior.UseHealingItem(),
			behavior.UseSkillByTag("heal"),
			behavior.FleeFromEnemies(radius),
		}},
	}}

	attackBranch := &behavior.Sequence{Children: []behavior.Node{
		behavior.CheckEnemyNearby(radius),
		&behavior.Selector{Children: []behavior.Node{
			behavior.UseSkillByTag("attack"),
			behavior.AttackNearestEnemy(radius),
		}},
	}}

	if p.Aggression > 0.7 {
		return &behavior.Selector{Children: []behavior.Node{
			attackBranch,
			healBranch,
			behavior.Idle(),
		}}
	}
	return &behavior.Selector{Children: []behavior.Node{
		healBranch,
		attackBranch,
		behavior.Idle(),
	}}
}

func useByTag(e entity.Entity, tag string) bool {
	ids := make([]string, 0, len(e.Skills()))
	for id := range e.Skills() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		skill := e.Skills()[id]
		if !hasTag(skill.Tags, tag) {
			continue
		}
		if !e.SkillReady(id) || e.Mana() < skill.ManaCost || e.Stamina() < skill.StaminaCost {
			continue
		}
		if e.UseSkill(id) {
			return true
		}
	}
	return false
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
