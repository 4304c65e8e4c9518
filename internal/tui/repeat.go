package tui

import "time"

// DefaultRepeatWindow is the gap below which a repeated key is treated as
// terminal auto-repeat rather than a new press.
const DefaultRepeatWindow = 60 * time.Millisecond

// keyEvent is one terminal key message translated for the race engine.
type keyEvent struct {
	key     string
	repeat  bool
	release string
}

// releaseFilter synthesizes key-up events. Terminals only report key-downs,
// so a different key arriving means the previous one was let go, and the
// same key arriving faster than the window is auto-repeat.
type releaseFilter struct {
	window time.Duration
	last   string
	lastAt time.Time
}

func newReleaseFilter(window time.Duration) *releaseFilter {
	if window < 0 {
		window = 0
	}
	return &releaseFilter{window: window}
}

// Observe translates a key-down seen at time at.
func (f *releaseFilter) Observe(key string, at time.Time) keyEvent {
	ev := keyEvent{key: key}
	switch {
	case f.last == "":
	case f.last != key:
		ev.release = f.last
	case f.window > 0 && at.Sub(f.lastAt) <= f.window:
		ev.repeat = true
	default:
		ev.release = key
	}
	f.last = key
	f.lastAt = at
	return ev
}

// Reset forgets the previous key. Used when focus is lost and when a race
// starts, since the engine clears its own held set at those points.
func (f *releaseFilter) Reset() {
	f.last = ""
	f.lastAt = time.Time{}
}
