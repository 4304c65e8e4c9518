package race

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

type renderCall struct {
	kind        string
	state       State
	snap        Snapshot
	total       float64
	affirmation string
}

type recordingPresenter struct {
	calls []renderCall
}

func (p *recordingPresenter) RenderFull(state State, snap Snapshot) {
	p.calls = append(p.calls, renderCall{kind: "full", state: state, snap: snap})
}

func (p *recordingPresenter) RenderProgress(snap Snapshot) {
	p.calls = append(p.calls, renderCall{kind: "progress", snap: snap})
}

func (p *recordingPresenter) RenderFinished(total float64, affirmation string) {
	p.calls = append(p.calls, renderCall{kind: "finished", total: total, affirmation: affirmation})
}

func (p *recordingPresenter) last() renderCall {
	if len(p.calls) == 0 {
		return renderCall{}
	}
	return p.calls[len(p.calls)-1]
}

func newTestEngine(target uint32) (*Engine, *fakeClock, *recordingPresenter) {
	clock := newFakeClock()
	presenter := &recordingPresenter{}
	e := New(Options{
		Target:       target,
		Clock:        clock,
		Rand:         fixedRand(0.5),
		Presenter:    presenter,
		Affirmations: []string{"one", "two", "three", "four"},
	})
	return e, clock, presenter
}

func TestNewDefaults(t *testing.T) {
	e := New(Options{})
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, DefaultTarget, e.Target())
	assert.Equal(t, uint32(0), e.Count())
	assert.Zero(t, e.ElapsedSeconds())
}

func TestScenarioTargetThree(t *testing.T) {
	e, clock, presenter := newTestEngine(3)
	e.Start()
	require.Equal(t, Running, e.State())

	clock.Advance(2 * time.Second)
	assert.True(t, e.KeyDown("A", false))
	assert.Equal(t, uint32(1), e.Count())
	assert.False(t, e.startedAt.IsZero(), "first counted press sets the start time")

	assert.False(t, e.KeyDown("A", true))
	assert.Equal(t, uint32(1), e.Count())

	e.KeyUp("A")
	clock.Advance(500 * time.Millisecond)
	assert.True(t, e.KeyDown("A", false))
	assert.Equal(t, uint32(2), e.Count())

	clock.Advance(500 * time.Millisecond)
	assert.True(t, e.KeyDown("B", false))
	assert.Equal(t, uint32(3), e.Count())
	assert.Equal(t, Finished, e.State())

	last := presenter.last()
	assert.Equal(t, "finished", last.kind)
	assert.InDelta(t, 1.0, last.total, 1e-9, "idle time before the first press is excluded")
	assert.Equal(t, "three", last.affirmation)
	assert.InDelta(t, 1.0, e.LastTotalSeconds(), 1e-9)
}

func TestRecordWhileFinishedIsNoop(t *testing.T) {
	e, _, presenter := newTestEngine(3)
	e.Start()
	for _, k := range []string{"a", "b", "c"} {
		e.KeyDown(k, false)
	}
	require.Equal(t, Finished, e.State())
	calls := len(presenter.calls)

	assert.False(t, e.RecordDistinctPress())
	assert.False(t, e.KeyDown("d", false))
	assert.Equal(t, uint32(3), e.Count())
	assert.Equal(t, Finished, e.State())
	assert.Len(t, presenter.calls, calls, "dropped presses emit nothing")
}

func TestRecordWhileIdleIsNoop(t *testing.T) {
	e, clock, _ := newTestEngine(3)
	clock.Advance(time.Second)
	assert.False(t, e.RecordDistinctPress())
	assert.Equal(t, uint32(0), e.Count())
	assert.True(t, e.startedAt.IsZero())
}

func TestStartIsIdempotentWhileRunning(t *testing.T) {
	e, clock, presenter := newTestEngine(10)
	e.Start()
	e.KeyDown("a", false)
	clock.Advance(time.Second)
	started := e.startedAt
	calls := len(presenter.calls)

	e.Start()
	assert.Equal(t, Running, e.State())
	assert.Equal(t, uint32(1), e.Count())
	assert.Equal(t, started, e.startedAt)
	assert.Len(t, presenter.calls, calls)
}

func TestStartClearsTracker(t *testing.T) {
	e, _, _ := newTestEngine(10)
	e.KeyDown("a", false)
	require.True(t, e.Tracker().Held("a"))

	e.Start()
	assert.False(t, e.Tracker().Held("a"))
	assert.True(t, e.KeyDown("a", false))
}

func TestResetFromFinished(t *testing.T) {
	e, _, presenter := newTestEngine(1)
	e.Start()
	e.KeyDown("a", false)
	require.Equal(t, Finished, e.State())

	e.Reset()
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, uint32(0), e.Count())
	assert.True(t, e.startedAt.IsZero())
	assert.Equal(t, 0, e.Tracker().Len())

	last := presenter.last()
	assert.Equal(t, "full", last.kind)
	assert.Equal(t, Idle, last.state)
}

func TestResetWhileRunning(t *testing.T) {
	e, _, _ := newTestEngine(5)
	e.Start()
	e.KeyDown("a", false)
	e.Reset()
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, uint32(0), e.Count())
}

func TestStartFromFinishedRestarts(t *testing.T) {
	e, _, _ := newTestEngine(1)
	e.Start()
	e.KeyDown("a", false)
	require.Equal(t, Finished, e.State())

	e.Start()
	assert.Equal(t, Running, e.State())
	assert.Equal(t, uint32(0), e.Count())
}

func TestProgressRenders(t *testing.T) {
	e, clock, presenter := newTestEngine(4)
	e.Start()
	assert.Equal(t, "full", presenter.last().kind)
	assert.Equal(t, Running, presenter.last().state)

	e.KeyDown("a", false)
	clock.Advance(time.Second)
	e.KeyDown("b", false)

	last := presenter.last()
	assert.Equal(t, "progress", last.kind)
	assert.Equal(t, uint32(2), last.snap.Count)
	assert.InDelta(t, 50.0, last.snap.Percent, 1e-9)
	assert.InDelta(t, 1.0, last.snap.ElapsedSeconds, 1e-9)
	assert.InDelta(t, 2.0, last.snap.Rate, 1e-9)
}

func TestFinishExactlyAtTarget(t *testing.T) {
	e, _, presenter := newTestEngine(2)
	e.Start()
	e.KeyDown("a", false)
	e.KeyDown("b", false)
	e.KeyDown("c", false)

	assert.Equal(t, uint32(2), e.Count())
	finished := 0
	for _, c := range presenter.calls {
		if c.kind == "finished" {
			finished++
		}
	}
	assert.Equal(t, 1, finished, "finish fires exactly once per race")
}

func TestSaturatingCount(t *testing.T) {
	e, _, _ := newTestEngine(1)
	e.state = Running
	e.count = ^uint32(0) - 1
	e.target = ^uint32(0)

	assert.True(t, e.RecordDistinctPress())
	assert.Equal(t, ^uint32(0), e.Count())
	assert.Equal(t, Finished, e.State())

	e.state = Running
	e.RecordDistinctPress()
	assert.Equal(t, ^uint32(0), e.Count())
}

func TestSnapshotZero(t *testing.T) {
	e, _, _ := newTestEngine(1000)
	snap := e.Snapshot()
	assert.Equal(t, uint32(0), snap.Count)
	assert.Equal(t, uint32(1000), snap.Target)
	assert.Zero(t, snap.Percent)
	assert.Zero(t, snap.ElapsedSeconds)
	assert.Zero(t, snap.Rate)
	assert.Equal(t, "Count: 0/1000 • 0.0% • 0.00 s • 0.0 keys/s", snap.Message())
}

func TestSnapshotFrozenAfterFinish(t *testing.T) {
	e, clock, _ := newTestEngine(2)
	e.Start()
	e.KeyDown("a", false)
	clock.Advance(4 * time.Second)
	e.KeyDown("b", false)
	require.Equal(t, Finished, e.State())

	clock.Advance(time.Minute)
	snap := e.Snapshot()
	assert.True(t, snap.Finished)
	assert.InDelta(t, 4.0, snap.ElapsedSeconds, 1e-9)
	assert.InDelta(t, 0.5, snap.Rate, 1e-9)
	assert.Equal(t, "Finished! 2 keypresses in 4.00 s • 0.5 keys/s", snap.Message())
}

func TestSnapshotFinishedZeroDurationUsesEpsilon(t *testing.T) {
	e, _, _ := newTestEngine(1)
	e.Start()
	e.KeyDown("a", false)
	require.Equal(t, Finished, e.State())

	snap := e.Snapshot()
	assert.Zero(t, snap.ElapsedSeconds)
	assert.InDelta(t, 1/finishedRateEpsilon, snap.Rate, 1e-3)
}

func TestElapsedNeverNegative(t *testing.T) {
	e, clock, _ := newTestEngine(10)
	e.Start()
	e.KeyDown("a", false)
	clock.Advance(-time.Second)
	assert.Zero(t, e.ElapsedSeconds())
}

func TestBlurUnblocksHeldKey(t *testing.T) {
	e, _, _ := newTestEngine(10)
	e.Start()
	require.True(t, e.KeyDown("a", false))
	require.False(t, e.KeyDown("a", false))

	e.Blur()
	assert.True(t, e.KeyDown("a", false))
	assert.Equal(t, uint32(2), e.Count())
}

func TestUIState(t *testing.T) {
	e, _, _ := newTestEngine(2)

	ui := e.UIState()
	assert.Equal(t, "Start", ui.StartLabel)
	assert.False(t, ui.StartDisabled)
	assert.False(t, ui.ResetDisabled)
	assert.False(t, ui.OverlayVisible)

	e.Start()
	e.KeyDown("a", false)
	ui = e.UIState()
	assert.Equal(t, "Racing...", ui.StartLabel)
	assert.True(t, ui.StartDisabled)
	assert.True(t, ui.ResetDisabled)
	assert.False(t, ui.OverlayVisible)
	assert.InDelta(t, 50.0, ui.ProgressPercent, 1e-9)
	assert.Contains(t, ui.StatsText, "Count: 1/2")

	e.KeyDown("b", false)
	ui = e.UIState()
	assert.Equal(t, "Start", ui.StartLabel)
	assert.False(t, ui.StartDisabled)
	assert.True(t, ui.OverlayVisible)
	assert.Contains(t, ui.StatsText, "Finished!")

	e.Reset()
	assert.False(t, e.UIState().OverlayVisible)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "finished", Finished.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestSetPresenterNil(t *testing.T) {
	e, _, _ := newTestEngine(2)
	e.SetPresenter(nil)
	assert.NotPanics(t, func() {
		e.Start()
		e.KeyDown("a", false)
		e.KeyDown("b", false)
	})
}
