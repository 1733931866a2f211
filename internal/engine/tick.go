// Package engine provides the tick-based decision loop: a real-time driver
// with pause and speed control, and the simulation that schedules entity
// updates and group coordination.
package engine

import (
	"log/slog"
	"time"
)

// Engine drives the simulation forward in real time.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Speed    float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // Base tick interval
	Running  bool

	// OnTick runs every tick with the tick counter and the simulated
	// seconds the tick covers.
	OnTick func(tick uint64, dt float64)
}

// NewEngine creates an engine ticking at the given interval.
func NewEngine(interval time.Duration) *Engine {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Engine{
		Speed:    1.0,
		Interval: interval,
	}
}

// Run starts the loop. Blocks until Stop is called.
func (e *Engine) Run() {
	e.Running = true
	slog.Info("decision engine started", "tick", e.Tick, "interval", e.Interval, "speed", e.Speed)

	for e.Running {
		if e.Speed <= 0 {
			// Paused — sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.Step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("decision engine stopped", "tick", e.Tick)
}

// RunFor advances exactly n ticks without pacing, for headless runs and
// fast-forward.
func (e *Engine) RunFor(n int) {
	for i := 0; i < n; i++ {
		e.Step()
	}
}

// Stop halts the loop.
func (e *Engine) Stop() {
	e.Running = false
}

// Step advances the simulation by one tick.
func (e *Engine) Step() {
	e.Tick++
	if e.OnTick != nil {
		e.OnTick(e.Tick, e.Interval.Seconds())
	}
}
