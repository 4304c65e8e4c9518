// Package race implements the key-press race engine: lifecycle, press
// deduplication and timing statistics. It has no I/O of its own; a Presenter
// supplied by the caller receives every render request.
package race

import (
	"fmt"
	"math"
	"time"

	"github.com/verte-zerg/keyrace/internal/affirm"
)

// DefaultTarget is the number of distinct presses needed to finish a race.
const DefaultTarget uint32 = 1000

const finishedRateEpsilon = 0.000001

// State is the race lifecycle state.
type State int

const (
	// Idle means no race is armed.
	Idle State = iota
	// Running means presses are being counted.
	Running
	// Finished means the target was reached; the result is frozen.
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Clock is a monotonic time source.
type Clock interface {
	Now() time.Time
}

// Rand is a uniform random source over [0, 1).
type Rand interface {
	Float64() float64
}

// Presenter receives render requests from the engine.
type Presenter interface {
	RenderFull(state State, snap Snapshot)
	RenderProgress(snap Snapshot)
	RenderFinished(totalSeconds float64, affirmation string)
}

// Options configures an Engine. Zero fields fall back to defaults.
type Options struct {
	Target       uint32
	Clock        Clock
	Rand         Rand
	Presenter    Presenter
	Affirmations []string
}

// Engine owns race state. It is not safe for concurrent use; callers serialize
// every call through one event loop.
type Engine struct {
	target       uint32
	clock        Clock
	rnd          Rand
	presenter    Presenter
	affirmations []string
	tracker      *KeyTracker

	state     State
	count     uint32
	startedAt time.Time
	lastTotal float64
}

// New constructs an idle engine.
func New(opts Options) *Engine {
	e := &Engine{
		target:       opts.Target,
		clock:        opts.Clock,
		rnd:          opts.Rand,
		presenter:    opts.Presenter,
		affirmations: opts.Affirmations,
		tracker:      NewKeyTracker(),
		state:        Idle,
	}
	if e.target == 0 {
		e.target = DefaultTarget
	}
	if e.clock == nil {
		e.clock = systemClock{}
	}
	if e.rnd == nil {
		e.rnd = affirm.NewRand()
	}
	if e.presenter == nil {
		e.presenter = nopPresenter{}
	}
	if len(e.affirmations) == 0 {
		e.affirmations = affirm.Default()
	}
	return e
}

// SetPresenter replaces the render target. Used by adapters that build the
// engine before the presenter exists.
func (e *Engine) SetPresenter(p Presenter) {
	if p == nil {
		p = nopPresenter{}
	}
	e.presenter = p
}

// Start arms a new race. It is a no-op while a race is running.
func (e *Engine) Start() {
	if e.state == Running {
		return
	}
	e.clearRace()
	e.state = Running
	e.presenter.RenderFull(e.state, e.Snapshot())
}

// Reset returns to Idle from any state.
func (e *Engine) Reset() {
	e.clearRace()
	e.state = Idle
	e.presenter.RenderFull(e.state, e.Snapshot())
}

func (e *Engine) clearRace() {
	e.count = 0
	e.startedAt = time.Time{}
	e.tracker.Clear()
}

// KeyDown feeds a raw key-down event. It reports whether the event was
// counted as a press in a running race.
func (e *Engine) KeyDown(key string, repeat bool) bool {
	if _, ok := e.tracker.KeyDown(key, repeat); !ok {
		return false
	}
	return e.RecordDistinctPress()
}

// KeyUp feeds a raw key-up event.
func (e *Engine) KeyUp(key string) {
	e.tracker.KeyUp(key)
}

// Blur feeds a focus-loss event.
func (e *Engine) Blur() {
	e.tracker.Blur()
}

// RecordDistinctPress counts one press. Presses outside a running race are
// dropped. The race clock starts at the first counted press.
func (e *Engine) RecordDistinctPress() bool {
	if e.state != Running {
		return false
	}
	if e.startedAt.IsZero() {
		e.startedAt = e.clock.Now()
	}
	if e.count < math.MaxUint32 {
		e.count++
	}
	if e.count >= e.target {
		e.finish()
		return true
	}
	e.presenter.RenderProgress(e.Snapshot())
	return true
}

func (e *Engine) finish() {
	total := e.sinceStart().Seconds()
	e.lastTotal = total
	e.state = Finished
	e.presenter.RenderFinished(total, affirm.Pick(e.rnd, e.affirmations))
}

func (e *Engine) sinceStart() time.Duration {
	d := e.clock.Now().Sub(e.startedAt)
	if d < 0 {
		return 0
	}
	return d
}

// ElapsedSeconds returns the live race duration, 0 before the first press.
func (e *Engine) ElapsedSeconds() float64 {
	if e.startedAt.IsZero() {
		return 0
	}
	return e.sinceStart().Seconds()
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Count returns the number of presses counted in the current race.
func (e *Engine) Count() uint32 {
	return e.count
}

// Target returns the number of presses required to finish.
func (e *Engine) Target() uint32 {
	return e.target
}

// LastTotalSeconds returns the duration of the most recently finished race.
func (e *Engine) LastTotalSeconds() float64 {
	return e.lastTotal
}

// Tracker exposes the key tracker for inspection.
func (e *Engine) Tracker() *KeyTracker {
	return e.tracker
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

type nopPresenter struct{}

func (nopPresenter) RenderFull(State, Snapshot)     {}
func (nopPresenter) RenderProgress(Snapshot)        {}
func (nopPresenter) RenderFinished(float64, string) {}
