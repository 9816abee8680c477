// internal/clock/clock.go
//
// Session clock: a countdown (classic) or stopwatch (journey) driven by
// discrete ticks and modelled as an explicit state machine.
//
// Countdown:  idle ─start→ running ─expire→ expiring ─settle→ expired
// Stopwatch:  idle ─start→ running ─complete→ completed   (also idle → completed)
//
// The counter moves by one per Tick, and only while the machine is running
// and the clock is not paused. Pause is orthogonal to the lifecycle so the
// help overlay can be opened before the first keystroke.
//
// A Clock is not synchronized; the owning session guards it. Scheduling of
// ticks lives in Scheduler so a reset can cancel them with the clock.

package clock

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// Kind selects countdown or stopwatch behavior.
type Kind int

const (
	Countdown Kind = iota
	Stopwatch
)

func (k Kind) String() string {
	if k == Stopwatch {
		return "stopwatch"
	}
	return "countdown"
}

// Lifecycle states.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateExpiring  = "expiring"
	StateExpired   = "expired"
	StateCompleted = "completed"
)

// Events.
const (
	eventStart    = "start"
	eventExpire   = "expire"
	eventSettle   = "settle"
	eventComplete = "complete"
)

// TickResult reports what a Tick did.
type TickResult int

const (
	TickIgnored  TickResult = iota // not running, or paused
	TickAdvanced                   // counter moved
	TickExpired                    // countdown reached zero and entered expiring
)

// Clock is one session's timer.
type Clock struct {
	kind    Kind
	machine *fsm.FSM
	counter int
	paused  bool
}

// NewCountdown returns an idle countdown with budget ticks remaining.
func NewCountdown(budget int) *Clock {
	return &Clock{
		kind:    Countdown,
		counter: budget,
		machine: fsm.NewFSM(StateIdle, fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateRunning},
			{Name: eventExpire, Src: []string{StateRunning}, Dst: StateExpiring},
			{Name: eventSettle, Src: []string{StateExpiring}, Dst: StateExpired},
		}, fsm.Callbacks{}),
	}
}

// NewStopwatch returns an idle stopwatch at zero.
func NewStopwatch() *Clock {
	return &Clock{
		kind: Stopwatch,
		machine: fsm.NewFSM(StateIdle, fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateRunning},
			{Name: eventComplete, Src: []string{StateIdle, StateRunning}, Dst: StateCompleted},
		}, fsm.Callbacks{}),
	}
}

func (c *Clock) fire(event string) error {
	if err := c.machine.Event(context.Background(), event); err != nil {
		return fmt.Errorf("clock %s: %s from %s: %w", c.kind, event, c.machine.Current(), err)
	}
	return nil
}

// Kind returns countdown or stopwatch.
func (c *Clock) Kind() Kind { return c.kind }

// State returns the current lifecycle state.
func (c *Clock) State() string { return c.machine.Current() }

// Running reports whether the clock is in the running state.
func (c *Clock) Running() bool { return c.machine.Is(StateRunning) }

// Started reports whether the clock has left idle.
func (c *Clock) Started() bool { return !c.machine.Is(StateIdle) }

// Terminal reports whether the clock can never advance again.
func (c *Clock) Terminal() bool {
	return c.machine.Is(StateExpiring) || c.machine.Is(StateExpired) || c.machine.Is(StateCompleted)
}

// Paused reports whether ticks are currently suppressed.
func (c *Clock) Paused() bool { return c.paused }

// Remaining is the countdown counter (0 for a stopwatch).
func (c *Clock) Remaining() int {
	if c.kind == Countdown {
		return c.counter
	}
	return 0
}

// Elapsed is the stopwatch counter (0 for a countdown).
func (c *Clock) Elapsed() int {
	if c.kind == Stopwatch {
		return c.counter
	}
	return 0
}

// Start moves idle → running. It reports false when the clock had already started.
func (c *Clock) Start() bool {
	if !c.machine.Can(eventStart) {
		return false
	}
	return c.fire(eventStart) == nil
}

// Pause suppresses ticks until Resume.
func (c *Clock) Pause() { c.paused = true }

// Resume re-enables ticks.
func (c *Clock) Resume() { c.paused = false }

// Tick advances the counter by one if the clock is running and not paused.
func (c *Clock) Tick() TickResult {
	if c.paused || !c.machine.Is(StateRunning) {
		return TickIgnored
	}
	if c.kind == Stopwatch {
		c.counter++
		return TickAdvanced
	}
	if c.counter > 0 {
		c.counter--
	}
	if c.counter == 0 {
		if err := c.fire(eventExpire); err != nil {
			return TickIgnored
		}
		return TickExpired
	}
	return TickAdvanced
}

// Settle ends a countdown's expiry grace: expiring → expired.
func (c *Clock) Settle() error { return c.fire(eventSettle) }

// Complete stops a stopwatch permanently.
func (c *Clock) Complete() error { return c.fire(eventComplete) }
