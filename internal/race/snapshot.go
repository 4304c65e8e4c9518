package race

import (
	"fmt"
	"math"
)

// Snapshot is a read-only view of race progress.
type Snapshot struct {
	Count          uint32
	Target         uint32
	Percent        float64
	ElapsedSeconds float64
	Rate           float64
	Finished       bool
}

// Message formats the stats line shown under the progress bar.
func (s Snapshot) Message() string {
	if s.Finished {
		return fmt.Sprintf("Finished! %d keypresses in %.2f s • %.1f keys/s", s.Target, s.ElapsedSeconds, s.Rate)
	}
	return fmt.Sprintf("Count: %d/%d • %.1f%% • %.2f s • %.1f keys/s", s.Count, s.Target, s.Percent, s.ElapsedSeconds, s.Rate)
}

// Snapshot computes the current stats. A finished race reports its frozen
// duration instead of the live clock.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Count:   e.count,
		Target:  e.target,
		Percent: float64(e.count) / float64(e.target) * 100,
	}
	if e.state == Finished {
		snap.Finished = true
		snap.ElapsedSeconds = e.lastTotal
		snap.Rate = float64(e.target) / math.Max(e.lastTotal, finishedRateEpsilon)
		return snap
	}
	snap.ElapsedSeconds = e.ElapsedSeconds()
	if snap.ElapsedSeconds > 0 {
		snap.Rate = float64(e.count) / snap.ElapsedSeconds
	}
	return snap
}

// UIState is the presentation state derived from the engine. Adapters apply
// it to their controls without inspecting engine internals.
type UIState struct {
	StartLabel      string
	StartDisabled   bool
	ResetDisabled   bool
	OverlayVisible  bool
	ProgressPercent float64
	StatsText       string
}

// UIState derives the control and display state.
func (e *Engine) UIState() UIState {
	snap := e.Snapshot()
	running := e.state == Running
	ui := UIState{
		StartLabel:      "Start",
		StartDisabled:   running,
		ResetDisabled:   running,
		OverlayVisible:  e.state == Finished,
		ProgressPercent: snap.Percent,
		StatsText:       snap.Message(),
	}
	if running {
		ui.StartLabel = "Racing..."
	}
	return ui
}
