package tactics

import (
	"math/rand"

	"github.com/talgya/battlemind/internal/entity"
)

// Formation is a named spatial template a group can adopt.
type Formation string

const (
	FormationPhalanx  Formation = "PHALANX"
	FormationAmbush   Formation = "AMBUSH"
	FormationSkirmish Formation = "SKIRMISH"
)

// roleActions maps each (strategy, role) pair to a named group action.
// Unassigned roles idle until the next coordination pass assigns them.
var roleActions = map[Strategy]map[string]string{
	StrategyFlanking: {
		RoleLeader:   "coordinate_flank",
		RoleAssault:  "flank_left",
		RoleSupport:  "suppressing_fire",
		RoleDefender: "cover_flank",
	},
	StrategyDefensive: {
		RoleLeader:   "call_reinforcements",
		RoleAssault:  "hold_position",
		RoleSupport:  "heal_allies",
		RoleDefender: "protect_leader",
	},
	StrategyStandard: {
		RoleLeader:   "direct_attack",
		RoleAssault:  "charge_enemy",
		RoleSupport:  "ranged_support",
		RoleDefender: "guard_support",
	},
	StrategyAmbush: {
		RoleLeader:   "set_ambush",
		RoleAssault:  "hidden_attack",
		RoleSupport:  "disable_escape",
		RoleDefender: "cover_ambush",
	},
	StrategySupport: {
		RoleLeader:   "move_to_support",
		RoleAssault:  "engage_threat",
		RoleSupport:  "support_allies",
		RoleDefender: "protect_support",
	},
}

// GroupAction returns the named action an entity should take under its
// group's current strategy and its assigned role.
func (c *Coordinator) GroupAction(e entity.Entity) string {
	strategy := c.GroupStrategy(e.GroupID())
	if actions, ok := roleActions[strategy]; ok {
		if action, ok := actions[e.Role()]; ok {
			return action
		}
	}
	return "idle"
}

// ExecuteAction carries out a named group action against the entity's
// capability contract. Unknown actions are treated as idle.
func (c *Coordinator) ExecuteAction(e entity.Entity, action string, rng *rand.Rand) {
	switch action {
	case "charge_enemy", "direct_attack", "coordinate_flank", "hidden_attack", "engage_threat":
		if target := nearestEnemy(e, 15); target != nil {
			e.Attack(target)
		}
	case "flank_left":
		if target := nearestEnemy(e, 15); target != nil {
			toward := target.Position().Sub(e.Position()).Normalized()
			// Perpendicular left of the approach vector.
			e.MoveInDirection(entity.Vec2{X: -toward.Y, Y: toward.X})
		}
	case "suppressing_fire", "ranged_support":
		useSkillByTag(e, "attack")
	case "heal_allies", "support_allies":
		if !useSkillByTag(e, "heal") {
			e.UseItem("HEAL")
		}
	case "call_reinforcements":
		c.RequestHelp(e, "COMBAT")
	case "protect_leader", "guard_support", "protect_support", "move_to_support":
		c.moveTowardLeader(e)
	case "set_ambush", "cover_ambush", "disable_escape":
		c.moveToFormationSlot(e, rng)
	case "hold_position", "cover_flank", "idle":
		// Stay put.
	}
}

// moveTowardLeader steps the entity toward its group leader when one exists
// and is not the entity itself.
func (c *Coordinator) moveTowardLeader(e entity.Entity) {
	for _, member := range c.Members(e.GroupID()) {
		if member.Role() == RoleLeader && member.ID() != e.ID() && member.Alive() {
			e.MoveInDirection(member.Position().Sub(e.Position()).Normalized())
			return
		}
	}
}

// moveToFormationSlot steps the entity toward its slot in the group's
// active formation, anchored on the leader's position.
func (c *Coordinator) moveToFormationSlot(e entity.Entity, rng *rand.Rand) {
	formation, ok := c.GetFormation(e.GroupID())
	if !ok {
		return
	}
	var leader entity.Entity
	for _, member := range c.Members(e.GroupID()) {
		if member.Role() == RoleLeader && member.Alive() {
			leader = member
			break
		}
	}
	if leader == nil {
		return
	}
	slot := FormationOffset(formation, e.Role(), leader.Position(), rng)
	delta := slot.Sub(e.Position())
	if delta.Len() < 0.5 {
		return
	}
	e.MoveInDirection(delta.Normalized())
}

// FormationOffset resolves a role's slot within a formation, anchored on
// the leader. Hidden and scatter slots jitter so ambushers do not stack.
func FormationOffset(f Formation, role string, anchor entity.Vec2, rng *rand.Rand) entity.Vec2 {
	offsets, ok := formationOffsets[f]
	if !ok {
		return anchor
	}
	offset, ok := offsets[role]
	if !ok {
		return anchor
	}
	slot := anchor.Add(offset)
	if jitter, ok := formationJitter[f][role]; ok && rng != nil {
		slot.X += (rng.Float64()*2 - 1) * jitter
		slot.Y += (rng.Float64()*2 - 1) * jitter
	}
	return slot
}

// formationOffsets positions each role relative to the leader.
var formationOffsets = map[Formation]map[string]entity.Vec2{
	FormationPhalanx: {
		RoleLeader:   {X: 0, Y: 0},
		RoleDefender: {X: 0, Y: 2},
		RoleSupport:  {X: 0, Y: -1},
		RoleAssault:  {X: 3, Y: 0},
	},
	FormationAmbush: {
		RoleLeader:   {X: 0, Y: 5},
		RoleDefender: {X: -2, Y: 0},
		RoleSupport:  {X: 1, Y: 5},
		RoleAssault:  {X: 0, Y: 0},
	},
	FormationSkirmish: {
		RoleLeader:   {X: 0, Y: -3},
		RoleDefender: {X: 0, Y: 2},
		RoleSupport:  {X: -4, Y: 0},
		RoleAssault:  {X: 4, Y: 0},
	},
}

// formationJitter randomizes slots that represent hiding or scattering.
var formationJitter = map[Formation]map[string]float64{
	FormationAmbush: {
		RoleAssault: 3.0,
	},
	FormationSkirmish: {
		RoleSupport: 2.0,
		RoleAssault: 2.0,
	},
}

func nearestEnemy(e entity.Entity, radius float64) entity.Entity {
	var closest entity.Entity
	best := radius
	for _, other := range e.Nearby(radius, true) {
		d := entity.Distance(e.Position(), other.Position())
		if closest == nil || d < best {
			best = d
			closest = other
		}
	}
	return closest
}

func useSkillByTag(e entity.Entity, tag string) bool {
	for id, skill := range e.Skills() {
		for _, t := range skill.Tags {
			if t == tag && e.SkillReady(id) {
				return e.UseSkill(id)
			}
		}
	}
	return false
}
