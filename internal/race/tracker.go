package race

// DistinctPress is emitted once per physical press-release cycle.
type DistinctPress struct {
	Key string
}

// KeyTracker turns a raw key stream into distinct presses. It ignores
// auto-repeat and keys that are still held from an earlier counted press.
type KeyTracker struct {
	pressed map[string]struct{}
}

// NewKeyTracker returns an empty tracker.
func NewKeyTracker() *KeyTracker {
	return &KeyTracker{pressed: map[string]struct{}{}}
}

// KeyDown records a key-down event and reports whether it is a distinct press.
func (t *KeyTracker) KeyDown(key string, repeat bool) (DistinctPress, bool) {
	if repeat {
		return DistinctPress{}, false
	}
	if _, held := t.pressed[key]; held {
		return DistinctPress{}, false
	}
	t.pressed[key] = struct{}{}
	return DistinctPress{Key: key}, true
}

// KeyUp releases key. Unknown keys are ignored.
func (t *KeyTracker) KeyUp(key string) {
	delete(t.pressed, key)
}

// Blur forgets every held key. Focus loss can swallow key-up events, and a
// key stuck in the set would never count again.
func (t *KeyTracker) Blur() {
	clear(t.pressed)
}

// Clear is the explicit reset used when a race starts or resets.
func (t *KeyTracker) Clear() {
	t.Blur()
}

// Held reports whether key is currently down.
func (t *KeyTracker) Held(key string) bool {
	_, ok := t.pressed[key]
	return ok
}

// Len returns the number of held keys.
func (t *KeyTracker) Len() int {
	return len(t.pressed)
}
