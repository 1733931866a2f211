// Package memory implements the per-entity event memory: a bounded,
// weight-decaying short-term log, an importance-gated long-term log, and an
// exact-match store of situation → response associations.
package memory

import (
	"math"
)

// EventType labels a recorded event.
type EventType string

const (
	EventAIUpdate          EventType = "AI_UPDATE"
	EventThreatAssessment  EventType = "THREAT_ASSESSMENT"
	EventBehaviorExecution EventType = "BEHAVIOR_EXECUTION"
	EventPersonalityChange EventType = "PERSONALITY_CHANGE"
	EventActionResult      EventType = "ACTION_RESULT"
)

// Outcome marks whether an action-result event succeeded.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// Event is one remembered experience. Weight starts at 1.0 and decays;
// events at weight ≤ 0.1 no longer count toward success/failure tallies but
// stay in the buffer until evicted.
type Event struct {
	Time    float64
	Type    EventType
	Action  string
	Outcome Outcome
	Payload map[string]any
	Weight  float64
}

// Association is a learned exact-match response to a situation.
type Association struct {
	Action  string
	Outcome Outcome
}

// Subsystem is the complete memory of one entity.
type Subsystem struct {
	capacity int
	events   []Event // FIFO ring, oldest first

	longCapacity  int
	longDecayRate float64
	longTerm      []Event // importance carried in Weight

	associations map[string]Association

	successTotal int
	failureTotal int
}

// ImportanceThreshold gates promotion into the long-term log.
const ImportanceThreshold = 0.7

// countingFloor excludes decayed events from tallies and prunes long-term
// entries.
const countingFloor = 0.1

// New creates a memory subsystem with the given capacities. The long-term
// decay rate is the exponential importance decay per second of age.
func New(shortCapacity, longCapacity int, longDecayRate float64) *Subsystem {
	if shortCapacity <= 0 {
		shortCapacity = 10
	}
	if longCapacity <= 0 {
		longCapacity = 100
	}
	return &Subsystem{
		capacity:      shortCapacity,
		longCapacity:  longCapacity,
		longDecayRate: longDecayRate,
		associations:  map[string]Association{},
	}
}

// Record appends an event to the short-term log with initial weight 1.0,
// evicting the oldest entry on overflow. Importance above the threshold
// additionally promotes the event into the long-term log.
func (s *Subsystem) Record(now float64, ev Event, importance float64) {
	ev.Time = now
	ev.Weight = 1.0
	if len(s.events) >= s.capacity {
		s.events = s.events[1:]
	}
	s.events = append(s.events, ev)

	if importance > ImportanceThreshold {
		long := ev
		long.Weight = importance
		if len(s.longTerm) >= s.longCapacity {
			s.longTerm = s.longTerm[1:]
		}
		s.longTerm = append(s.longTerm, long)
	}
}

// RecordOutcome records an action result with default importance.
func (s *Subsystem) RecordOutcome(now float64, action string, outcome Outcome) {
	s.Record(now, Event{Type: EventActionResult, Action: action, Outcome: outcome}, 0.5)
}

// CountSuccesses tallies undecayed success events, optionally filtered by
// action. An empty action matches everything.
func (s *Subsystem) CountSuccesses(action string) int {
	return s.countOutcome(action, OutcomeSuccess)
}

// CountFailures tallies undecayed failure events, optionally filtered by
// action.
func (s *Subsystem) CountFailures(action string) int {
	return s.countOutcome(action, OutcomeFailure)
}

func (s *Subsystem) countOutcome(action string, want Outcome) int {
	n := 0
	for _, ev := range s.events {
		if ev.Outcome != want || ev.Weight <= countingFloor {
			continue
		}
		if action != "" && ev.Action != action {
			continue
		}
		n++
	}
	return n
}

// Decay multiplies every short-term weight by (1-rate).
func (s *Subsystem) Decay(rate float64) {
	for i := range s.events {
		s.events[i].Weight *= 1 - rate
	}
}

// ForgetOld applies exponential importance decay to the long-term log by
// elapsed age and prunes entries that fall below the counting floor.
func (s *Subsystem) ForgetOld(now float64) {
	kept := s.longTerm[:0]
	for _, ev := range s.longTerm {
		age := now - ev.Time
		if age < 0 {
			age = 0
		}
		ev.Weight *= math.Exp(-s.longDecayRate * age)
		ev.Time = now
		if ev.Weight >= countingFloor {
			kept = append(kept, ev)
		}
	}
	s.longTerm = kept
}

// LearnFromExperience stores an exact-match association for the situation
// key and updates the lifetime outcome tallies.
func (s *Subsystem) LearnFromExperience(situation, action string, outcome Outcome) {
	s.associations[situation] = Association{Action: action, Outcome: outcome}
	if outcome == OutcomeSuccess {
		s.successTotal++
	} else {
		s.failureTotal++
	}
}

// Recall returns the exact-match association for a situation key, if any.
func (s *Subsystem) Recall(situation string) (Association, bool) {
	a, ok := s.associations[situation]
	return a, ok
}

// Events returns the short-term log, oldest first.
func (s *Subsystem) Events() []Event { return s.events }

// LongTerm returns the long-term log.
func (s *Subsystem) LongTerm() []Event { return s.longTerm }

// Totals returns lifetime success and failure counts from learned
// experience.
func (s *Subsystem) Totals() (successes, failures int) {
	return s.successTotal, s.failureTotal
}
