// Package behavior implements the hierarchical action evaluator: composite
// Selector/Sequence nodes over condition and action leaves, re-evaluated
// every tick against the entity capability contract.
package behavior

import (
	"github.com/talgya/battlemind/internal/entity"
)

// Status is the result of ticking a node.
type Status uint8

const (
	Success Status = iota
	Failure
	Running
)

// String returns the status name for event payloads and logs.
func (s Status) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	case Running:
		return "RUNNING"
	}
	return "UNKNOWN"
}

// Node is one node of a behavior tree.
type Node interface {
	Name() string
	Tick(e entity.Entity) Status
}

// Selector tries children in order and succeeds on the first success.
// It fails only when every child fails.
type Selector struct {
	Children []Node
}

func NewSelector(children ...Node) *Selector { return &Selector{Children: children} }

func (s *Selector) Name() string { return "Selector" }

func (s *Selector) Tick(e entity.Entity) Status {
	for _, c := range s.Children {
		switch c.Tick(e) {
		case Success:
			return Success
		case Running:
			return Running
		}
	}
	return Failure
}

// Sequence requires every child to succeed and fails on the first failure.
type Sequence struct {
	Children []Node
}

func NewSequence(children ...Node) *Sequence { return &Sequence{Children: children} }

func (s *Sequence) Name() string { return "Sequence" }

func (s *Sequence) Tick(e entity.Entity) Status {
	for _, c := range s.Children {
		switch c.Tick(e) {
		case Failure:
			return Failure
		case Running:
			return Running
		}
	}
	return Success
}

// Parallel ticks every child. It fails on any failure and reports Running
// while any child is still running.
type Parallel struct {
	Children []Node
}

func (p *Parallel) Name() string { return "Parallel" }

func (p *Parallel) Tick(e entity.Entity) Status {
	anyRunning := false
	for _, c := range p.Children {
		switch c.Tick(e) {
		case Failure:
			return Failure
		case Running:
			anyRunning = true
		}
	}
	if anyRunning {
		return Running
	}
	return Success
}

// Inverter flips Success and Failure, passing Running through.
type Inverter struct {
	Child Node
}

func (i *Inverter) Name() string { return "Inverter" }

func (i *Inverter) Tick(e entity.Entity) Status {
	switch i.Child.Tick(e) {
	case Success:
		return Failure
	case Failure:
		return Success
	}
	return Running
}

// Condition succeeds when its predicate holds.
type Condition struct {
	Label string
	Check func(e entity.Entity) bool
}

func (c *Condition) Name() string { return c.Label }

func (c *Condition) Tick(e entity.Entity) Status {
	if c.Check(e) {
		return Success
	}
	return Failure
}

// Action invokes a named action against the capability contract. The action
// function reports its own status so leaves can signal Running.
type Action struct {
	Label string
	Run   func(e entity.Entity) Status
}

func (a *Action) Name() string { return a.Label }

func (a *Action) Tick(e entity.Entity) Status { return a.Run(e) }

// Tree wraps a root node with a blackboard for values shared between leaves
// within one controller.
type Tree struct {
	root       Node
	blackboard map[string]any
}

// New creates a tree over root.
func New(root Node) *Tree {
	return &Tree{root: root, blackboard: map[string]any{}}
}

// Execute ticks the tree once. A nil root fails.
func (t *Tree) Execute(e entity.Entity) Status {
	if t == nil || t.root == nil {
		return Failure
	}
	return t.root.Tick(e)
}

// Root returns the current root node.
func (t *Tree) Root() Node { return t.root }

// Set stores a blackboard value.
func (t *Tree) Set(key string, value any) { t.blackboard[key] = value }

// Get reads a blackboard value.
func (t *Tree) Get(key string) (any, bool) {
	v, ok := t.blackboard[key]
	return v, ok
}
