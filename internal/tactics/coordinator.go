// Package tactics implements multi-agent coordination: the shared group
// registry, the symmetric relation matrix, adaptive strategy selection,
// role assignment, and formation templates.
//
// The coordinator is an explicitly constructed service shared by reference
// between controllers. Internal state is synchronized with one lock per
// group plus a registry lock, so concurrent controllers touching the same
// group serialize while distinct groups proceed independently.
package tactics

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/talgya/battlemind/internal/config"
	"github.com/talgya/battlemind/internal/entity"
)

// Relation classifies how two groups regard each other.
type Relation string

const (
	RelationAlly    Relation = "ALLY"
	RelationNeutral Relation = "NEUTRAL"
	RelationEnemy   Relation = "ENEMY"
)

// Strategy is a group-level tactical plan.
type Strategy string

const (
	StrategyFlanking  Strategy = "FLANKING_MANEUVER"
	StrategyDefensive Strategy = "DEFENSIVE_FORMATION"
	StrategyStandard  Strategy = "STANDARD_ATTACK"
	StrategyAmbush    Strategy = "AMBUSH"
	StrategySupport   Strategy = "SUPPORT_MISSION"
)

// Tactical roles assigned within a group.
const (
	RoleLeader     = "LEADER"
	RoleAssault    = "ASSAULT"
	RoleSupport    = "SUPPORT"
	RoleDefender   = "DEFENDER"
	RoleUnassigned = "UNASSIGNED"
)

// Weight bounds for adaptive strategy weights.
const (
	weightFloor = 0.2
	weightCeil  = 3.0
)

// Outcome is one logged combat result feeding strategy adaptation.
type Outcome struct {
	Tick     uint64   `csv:"tick"`
	GroupID  string   `csv:"group_id"`
	Strategy Strategy `csv:"strategy"`
	Success  bool     `csv:"success"`
}

// Coordinator is the shared coordination service.
type Coordinator struct {
	cfg config.TacticsConfig

	mu         sync.RWMutex
	groups     map[string][]entity.Entity
	groupLocks map[string]*sync.Mutex
	relations  map[string]map[string]Relation
	strategies map[string]Strategy
	formations map[string]Formation
	threat     map[string]float64

	wmu     sync.Mutex
	weights map[Strategy]float64

	lmu       sync.Mutex
	combatLog []Outcome

	src xrand.Source
}

// NewCoordinator creates a coordinator with the configured base strategy
// weights. The seed drives strategy sampling.
func NewCoordinator(cfg config.TacticsConfig, seed uint64) *Coordinator {
	weights := map[Strategy]float64{
		StrategyFlanking:  0.3,
		StrategyDefensive: 0.2,
		StrategyStandard:  0.4,
		StrategyAmbush:    0.1,
	}
	for name, w := range cfg.StrategyWeights {
		weights[Strategy(name)] = clampWeight(w)
	}
	return &Coordinator{
		cfg:        cfg,
		groups:     map[string][]entity.Entity{},
		groupLocks: map[string]*sync.Mutex{},
		relations:  map[string]map[string]Relation{},
		strategies: map[string]Strategy{},
		formations: map[string]Formation{},
		threat:     map[string]float64{},
		weights:    weights,
		src:        xrand.NewSource(seed),
	}
}

// Register adds an entity to a group, creating the group on first sight.
// Registration is idempotent.
func (c *Coordinator) Register(e entity.Entity, groupID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, member := range c.groups[groupID] {
		if member.ID() == e.ID() {
			return
		}
	}
	c.groups[groupID] = append(c.groups[groupID], e)
	e.SetGroupID(groupID)
	e.SetRole(RoleUnassigned)

	if _, ok := c.groupLocks[groupID]; !ok {
		c.groupLocks[groupID] = &sync.Mutex{}
	}
	if _, ok := c.relations[groupID]; !ok {
		c.relations[groupID] = map[string]Relation{}
	}
}

// Unregister removes an entity from its group. Relation, formation, and
// strategy data persist independently of member churn.
func (c *Coordinator) Unregister(e entity.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	groupID := e.GroupID()
	members := c.groups[groupID]
	for i, member := range members {
		if member.ID() == e.ID() {
			c.groups[groupID] = append(members[:i], members[i+1:]...)
			e.SetGroupID("")
			return
		}
	}
}

// SetRelation sets the symmetric relation between two groups.
func (c *Coordinator) SetRelation(a, b string, rel Relation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.relations[a]; !ok {
		c.relations[a] = map[string]Relation{}
	}
	if _, ok := c.relations[b]; !ok {
		c.relations[b] = map[string]Relation{}
	}
	c.relations[a][b] = rel
	c.relations[b][a] = rel
}

// GetRelation returns the relation between two groups; unseen pairs default
// to ENEMY.
func (c *Coordinator) GetRelation(a, b string) Relation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if rels, ok := c.relations[a]; ok {
		if rel, ok := rels[b]; ok {
			return rel
		}
	}
	return RelationEnemy
}

// SetFormation assigns a formation template to a group.
func (c *Coordinator) SetFormation(groupID string, f Formation) bool {
	if _, ok := formationOffsets[f]; !ok {
		return false
	}
	c.mu.Lock()
	c.formations[groupID] = f
	c.mu.Unlock()
	return true
}

// GetFormation returns the group's active formation, if any.
func (c *Coordinator) GetFormation(groupID string) (Formation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.formations[groupID]
	return f, ok
}

// Members returns a snapshot of a group's membership.
func (c *Coordinator) Members(groupID string) []entity.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]entity.Entity, len(c.groups[groupID]))
	copy(out, c.groups[groupID])
	return out
}

// Groups returns all group identifiers in sorted order.
func (c *Coordinator) Groups() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.groups))
	for id := range c.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GroupStrategy returns the group's current strategy, defaulting to the
// standard attack.
func (c *Coordinator) GroupStrategy(groupID string) Strategy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.strategies[groupID]; ok {
		return s
	}
	return StrategyStandard
}

// GroupThreat returns the last computed aggregate threat for a group.
func (c *Coordinator) GroupThreat(groupID string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.threat[groupID]
}

// lockFor returns the group's mutex, creating it on demand.
func (c *Coordinator) lockFor(groupID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.groupLocks[groupID]
	if !ok {
		l = &sync.Mutex{}
		c.groupLocks[groupID] = l
	}
	return l
}

// UpdateGroupBehavior recomputes one group's aggregate threat, samples a
// strategy from the adaptive weights, and reassigns member roles.
func (c *Coordinator) UpdateGroupBehavior(groupID string) error {
	lock := c.lockFor(groupID)
	lock.Lock()
	defer lock.Unlock()

	members := c.Members(groupID)
	if len(members) == 0 {
		return fmt.Errorf("group %s has no members", groupID)
	}

	threat := c.AssessThreat(groupID)
	c.mu.Lock()
	c.threat[groupID] = threat
	c.mu.Unlock()

	strategy := c.selectStrategy(groupID)
	c.mu.Lock()
	c.strategies[groupID] = strategy
	c.mu.Unlock()

	assignRoles(members)
	return nil
}

// AssessThreat sums, over every enemy-related group's living members, the
// distance-decayed threat each poses to each member of this group:
// combat_level × (1 + damage_output/100) × max(0.1, 1 − distance/50).
func (c *Coordinator) AssessThreat(groupID string) float64 {
	members := c.Members(groupID)

	c.mu.RLock()
	var hostiles []entity.Entity
	for otherID, rel := range c.relations[groupID] {
		if rel != RelationEnemy {
			continue
		}
		hostiles = append(hostiles, c.groups[otherID]...)
	}
	// Unlisted groups default to ENEMY.
	for otherID, others := range c.groups {
		if otherID == groupID {
			continue
		}
		if _, listed := c.relations[groupID][otherID]; !listed {
			hostiles = append(hostiles, others...)
		}
	}
	c.mu.RUnlock()

	total := 0.0
	for _, member := range members {
		for _, enemy := range hostiles {
			if !enemy.Alive() {
				continue
			}
			total += ThreatContribution(member, enemy)
		}
	}
	return total
}

// ThreatContribution is one enemy's distance-decayed threat toward one
// member.
func ThreatContribution(member, enemy entity.Entity) float64 {
	score := enemy.CombatLevel() * (1 + enemy.DamageOutput()/100)
	distance := entity.Distance(member.Position(), enemy.Position())
	decay := 1 - distance/50
	if decay < 0.1 {
		decay = 0.1
	}
	return score * decay
}

// selectStrategy samples among the available strategies using the adaptive
// weights. The ambush strategy is only available once a formation is set.
func (c *Coordinator) selectStrategy(groupID string) Strategy {
	available := []Strategy{StrategyFlanking, StrategyDefensive, StrategyStandard}
	if _, ok := c.GetFormation(groupID); ok {
		available = append(available, StrategyAmbush)
	}

	c.wmu.Lock()
	weights := make([]float64, len(available))
	for i, s := range available {
		weights[i] = c.weights[s]
	}
	sampler := sampleuv.NewWeighted(weights, c.src)
	idx, ok := sampler.Take()
	c.wmu.Unlock()

	if !ok {
		return StrategyStandard
	}
	return available[idx]
}

// assignRoles gives LEADER to the highest-level living member and sorts the
// rest into assault, support, and defender roles from their combat
// snapshot.
func assignRoles(members []entity.Entity) {
	var leader entity.Entity
	for _, m := range members {
		if !m.Alive() {
			continue
		}
		if leader == nil || m.Level() > leader.Level() {
			leader = m
		}
	}
	if leader != nil {
		leader.SetRole(RoleLeader)
	}

	for _, m := range members {
		if m == leader {
			continue
		}
		ratio := healthRatio(m)
		switch {
		case ratio > 0.8 && m.DamageOutput() > 30:
			m.SetRole(RoleAssault)
		case ratio > 0.5 && m.HasHealingAbility():
			m.SetRole(RoleSupport)
		default:
			m.SetRole(RoleDefender)
		}
	}
}

// healthRatio falls back to 1.0 when max health is unset.
func healthRatio(e entity.Entity) float64 {
	max := e.MaxHealth()
	if max <= 0 {
		return 1.0
	}
	return e.Health() / max
}

// LogOutcome records a combat result and adapts the strategy's weight:
// ×1.2 on success, ×0.8 on failure, clamped to [0.2, 3.0].
func (c *Coordinator) LogOutcome(tick uint64, groupID string, strategy Strategy, success bool) {
	c.lmu.Lock()
	c.combatLog = append(c.combatLog, Outcome{
		Tick: tick, GroupID: groupID, Strategy: strategy, Success: success,
	})
	c.lmu.Unlock()

	c.wmu.Lock()
	defer c.wmu.Unlock()
	w := c.weights[strategy]
	if success {
		w *= 1.2
	} else {
		w *= 0.8
	}
	c.weights[strategy] = clampWeight(w)
}

// Weight returns the adaptive weight of a strategy.
func (c *Coordinator) Weight(s Strategy) float64 {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.weights[s]
}

// SetWeight restores a persisted strategy weight, clamped to bounds.
func (c *Coordinator) SetWeight(s Strategy, w float64) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.weights[s] = clampWeight(w)
}

// Weights returns a snapshot of all strategy weights.
func (c *Coordinator) Weights() map[Strategy]float64 {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	out := make(map[Strategy]float64, len(c.weights))
	for s, w := range c.weights {
		out[s] = w
	}
	return out
}

// Outcomes returns a snapshot of the combat log.
func (c *Coordinator) Outcomes() []Outcome {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	out := make([]Outcome, len(c.combatLog))
	copy(out, c.combatLog)
	return out
}

// RequestHelp flips the nearest allied group's strategy to a support
// mission. Returns false when no living ally is in reach.
func (c *Coordinator) RequestHelp(requester entity.Entity, kind string) bool {
	c.mu.RLock()
	rels := c.relations[requester.GroupID()]
	var closest string
	best := -1.0
	for otherID, rel := range rels {
		if rel != RelationAlly {
			continue
		}
		for _, ally := range c.groups[otherID] {
			if !ally.Alive() {
				continue
			}
			d := entity.Distance(requester.Position(), ally.Position())
			if best < 0 || d < best {
				best = d
				closest = otherID
			}
		}
	}
	c.mu.RUnlock()

	if closest == "" {
		return false
	}

	c.mu.Lock()
	c.strategies[closest] = StrategySupport
	c.mu.Unlock()
	slog.Debug("help requested", "kind", kind, "from", requester.GroupID(), "answered_by", closest)
	return true
}

// CoordinateAll updates every group's behavior. A failure or panic inside
// one group's update is logged and isolated so the remaining groups still
// update this tick.
func (c *Coordinator) CoordinateAll(tick uint64) {
	for _, groupID := range c.Groups() {
		c.coordinateGroup(tick, groupID)
	}
}

func (c *Coordinator) coordinateGroup(tick uint64, groupID string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("group coordination panicked", "group", groupID, "tick", tick, "panic", r)
		}
	}()
	if err := c.UpdateGroupBehavior(groupID); err != nil {
		slog.Debug("group coordination skipped", "group", groupID, "error", err)
	}
}

func clampWeight(w float64) float64 {
	if w < weightFloor {
		return weightFloor
	}
	if w > weightCeil {
		return weightCeil
	}
	return w
}
