package engine

import (
	"log/slog"
	"math/rand"

	"github.com/talgya/battlemind/internal/ai"
	"github.com/talgya/battlemind/internal/config"
	"github.com/talgya/battlemind/internal/entity"
	"github.com/talgya/battlemind/internal/tactics"
)

// Simulation owns the roster, one controller per combatant, and the shared
// coordinator. It schedules per-tick updates and the periodic group
// coordination pass.
type Simulation struct {
	cfg    *config.Config
	rng    *rand.Rand
	roster *entity.Roster
	coord  *tactics.Coordinator

	controllers map[*entity.Combatant]*ai.Controller
	order       []*entity.Combatant // Update order, registration sequence
}

// NewSimulation creates an empty simulation around a shared coordinator.
func NewSimulation(cfg *config.Config, coord *tactics.Coordinator, rng *rand.Rand) *Simulation {
	return &Simulation{
		cfg:         cfg,
		rng:         rng,
		roster:      entity.NewRoster(),
		coord:       coord,
		controllers: map[*entity.Combatant]*ai.Controller{},
	}
}

// Roster returns the shared combatant registry.
func (s *Simulation) Roster() *entity.Roster { return s.roster }

// Coordinator returns the shared tactics coordinator.
func (s *Simulation) Coordinator() *tactics.Coordinator { return s.coord }

// AddCombatant registers a combatant, builds its controller, and optionally
// joins it to a tactical group.
func (s *Simulation) AddCombatant(c *entity.Combatant, groupID string) *ai.Controller {
	s.roster.Add(c)
	ctrl := ai.NewController(c, s.cfg, s.coord, s.rng)
	s.controllers[c] = ctrl
	s.order = append(s.order, c)
	if groupID != "" {
		s.coord.Register(c, groupID)
	}
	return ctrl
}

// RemoveCombatant drops a combatant from the roster, its group, and the
// update schedule.
func (s *Simulation) RemoveCombatant(c *entity.Combatant) {
	s.coord.Unregister(c)
	s.roster.Remove(c)
	delete(s.controllers, c)
	for i, o := range s.order {
		if o == c {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Controllers returns each combatant's controller in update order.
func (s *Simulation) Controllers() []*ai.Controller {
	out := make([]*ai.Controller, 0, len(s.order))
	for _, c := range s.order {
		if ctrl, ok := s.controllers[c]; ok {
			out = append(out, ctrl)
		}
	}
	return out
}

// Step advances every combatant by dt seconds and runs group coordination
// on its configured cadence.
func (s *Simulation) Step(tick uint64, dt float64) {
	for _, c := range s.order {
		c.AdvanceTime(dt)
	}

	for _, c := range s.order {
		if ctrl, ok := s.controllers[c]; ok {
			ctrl.Update(dt)
		}
	}

	every := s.cfg.Engine.CoordinationEvery
	if every > 0 && tick%uint64(every) == 0 {
		s.coord.CoordinateAll(tick)
	}

	s.reapDead(tick)
}

// reapDead unregisters dead combatants from tactical groups so role
// assignment and threat sums stop counting them. Corpses stay on the
// roster; perception already filters on liveness. Each death feeds the
// combat log: a failure for the fallen member's group, a success for the
// nearest hostile group, which is what drives strategy weight adaptation.
func (s *Simulation) reapDead(tick uint64) {
	for _, c := range s.order {
		if c.Alive() || c.GroupID() == "" {
			continue
		}
		groupID := c.GroupID()
		slog.Info("combatant down", "name", c.Name(), "group", groupID, "tick", tick)

		s.coord.LogOutcome(tick, groupID, s.coord.GroupStrategy(groupID), false)
		if winner, ok := s.nearestHostileGroup(c); ok {
			s.coord.LogOutcome(tick, winner, s.coord.GroupStrategy(winner), true)
		}
		s.coord.Unregister(c)
	}
}

// nearestHostileGroup finds the hostile group whose living member stands
// closest to the fallen combatant.
func (s *Simulation) nearestHostileGroup(c *entity.Combatant) (string, bool) {
	best := -1.0
	winner := ""
	for _, groupID := range s.coord.Groups() {
		if groupID == c.GroupID() || s.coord.GetRelation(c.GroupID(), groupID) != tactics.RelationEnemy {
			continue
		}
		for _, m := range s.coord.Members(groupID) {
			if !m.Alive() {
				continue
			}
			d := entity.Distance(c.Position(), m.Position())
			if best < 0 || d < best {
				best = d
				winner = groupID
			}
		}
	}
	return winner, winner != ""
}

// Attach wires the simulation into an engine's tick callback.
func (s *Simulation) Attach(e *Engine) {
	e.OnTick = s.Step
}
