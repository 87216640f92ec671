// Package dissolve implements the dual-pattern crossfade engine of
// §4.6: per-LED crossfade state, schedule compilation, and
// continuous dual-pattern blending.
package dissolve

import (
	"time"

	"github.com/lacylights-led/ledengine/internal/color"
)

// PatternState is a fully qualified pattern reference: scene, effect
// and palette selection that together determine a rendered image.
type PatternState struct {
	SceneID   int
	EffectID  int
	PaletteID int
}

// Transition is one entry of a dissolve schedule: for LEDs in
// [LEDStart, LEDEnd] that don't already have an assignment, crossfade
// starts DelayMs after activation and runs for DurationMs.
type Transition struct {
	DelayMs   int
	DurationMs int
	LEDStart  int
	LEDEnd    int
}

// Schedule is an ordered list of transitions, applied first-assignment
// wins per LED.
type Schedule []Transition

// State is the DissolveEngine's lifecycle state (§4.6 "States").
type State int

const (
	// StateCompleted is both the initial and terminal state.
	StateCompleted State = iota
	// StateCrossfading means a dissolve is in progress.
	StateCrossfading
)

type ledPlan struct {
	instant   bool
	startAbs  time.Time
	duration  time.Duration
}

// PatternRenderer resolves a PatternState to a rendered, not-yet
// master-brightness-adjusted framebuffer. The DissolveEngine borrows
// this from SceneManager to render each side of a crossfade (§3
// "Ownership and lifecycle").
type PatternRenderer interface {
	RenderPattern(p PatternState, now time.Time) []color.RGB
}

// Engine is the dual-pattern dissolve state machine. Zero value is a
// valid, completed (inactive) engine.
type Engine struct {
	state State

	old, new PatternState
	ledCount int
	perLED   []ledPlan // len == ledCount; nil when not crossfading
}

// NewEngine returns an inactive (COMPLETED) dissolve engine.
func NewEngine() *Engine {
	return &Engine{state: StateCompleted}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// IsActive reports whether a crossfade is in progress.
func (e *Engine) IsActive() bool {
	return e.state == StateCrossfading
}

// Patterns returns the old and new pattern references of the current
// (or most recently completed) activation.
func (e *Engine) Patterns() (old, new PatternState) {
	return e.old, e.new
}

// Start activates a crossfade from old to new using schedule,
// clamping every transition's LED range to [0, ledCount-1] and
// assigning each LED its earliest-listed transition. If the schedule
// produces no LED with a positive duration, the engine completes
// immediately without ever rendering a blended frame.
func (e *Engine) Start(old, new PatternState, schedule Schedule, ledCount int, now time.Time) {
	e.old = old
	e.new = new
	e.ledCount = ledCount

	plans := make([]ledPlan, ledCount)
	assigned := make([]bool, ledCount)
	anyScheduled := false

	for _, tr := range schedule {
		ledStart, ledEnd := tr.LEDStart, tr.LEDEnd
		if ledStart < 0 {
			ledStart = 0
		}
		if ledEnd > ledCount-1 {
			ledEnd = ledCount - 1
		}
		if ledStart > ledEnd {
			continue
		}
		if tr.DurationMs <= 0 || tr.DelayMs < 0 {
			continue
		}
		for i := ledStart; i <= ledEnd; i++ {
			if assigned[i] {
				continue
			}
			assigned[i] = true
			plans[i] = ledPlan{
				startAbs: now.Add(time.Duration(tr.DelayMs) * time.Millisecond),
				duration: time.Duration(tr.DurationMs) * time.Millisecond,
			}
			anyScheduled = true
		}
	}

	for i := range plans {
		if !assigned[i] {
			plans[i] = ledPlan{instant: true}
		}
	}

	if !anyScheduled {
		e.perLED = nil
		e.state = StateCompleted
		return
	}

	e.perLED = plans
	e.state = StateCrossfading
}

// progressAt computes p_i for LED i at time now, per §4.6 step 4.
func (e *Engine) progressAt(i int, now time.Time) float64 {
	if i < 0 || i >= len(e.perLED) {
		return 1.0
	}
	plan := e.perLED[i]
	if plan.instant {
		return 1.0
	}
	if now.Before(plan.startAbs) {
		return 0.0
	}
	end := plan.startAbs.Add(plan.duration)
	if !now.Before(end) {
		return 1.0
	}
	return now.Sub(plan.startAbs).Seconds() / plan.duration.Seconds()
}

func (e *Engine) allComplete(now time.Time) bool {
	for i := range e.perLED {
		if e.progressAt(i, now) < 1.0 {
			return false
		}
	}
	return true
}

// RenderFrame renders one crossfade frame: both patterns are rendered
// independently through renderer (so both keep animating), then
// blended per LED by the schedule's progress. If every LED has
// reached p=1.0, the engine transitions to COMPLETED at the end of
// the frame. RenderFrame is a no-op returning nil when the engine is
// not active.
func (e *Engine) RenderFrame(renderer PatternRenderer, now time.Time) []color.RGB {
	if !e.IsActive() {
		return nil
	}

	fbOld := renderer.RenderPattern(e.old, now)
	fbNew := renderer.RenderPattern(e.new, now)

	out := make([]color.RGB, e.ledCount)
	for i := range out {
		var a, b color.RGB
		if i < len(fbOld) {
			a = fbOld[i]
		}
		if i < len(fbNew) {
			b = fbNew[i]
		}
		out[i] = color.Lerp(a, b, e.progressAt(i, now))
	}

	if e.allComplete(now) {
		e.state = StateCompleted
	}
	return out
}
