package tui

import (
	"strings"
	"testing"
)

func plainTokens(labels ...string) []styledToken {
	out := make([]styledToken, len(labels))
	for i, label := range labels {
		out[i] = styledToken{s: label, width: len([]rune(label))}
	}
	return out
}

func TestWrapStyledTokensBreaksLines(t *testing.T) {
	got := wrapStyledTokens(plainTokens("a", "b", "enter", "c"), 5)
	want := "a b\nenter\nc"
	if got != want {
		t.Fatalf("unexpected wrap:\n%q\nwant\n%q", got, want)
	}
}

func TestWrapStyledTokensOversizedToken(t *testing.T) {
	got := wrapStyledTokens(plainTokens("backspace", "x"), 4)
	if got != "backspace\nx" {
		t.Fatalf("unexpected wrap %q", got)
	}
}

func TestWrapStyledTokensNoWidth(t *testing.T) {
	got := wrapStyledTokens(plainTokens("a", "b"), 0)
	if got != "a b" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPushTrailKeepsRecent(t *testing.T) {
	var trail []trailEntry
	for i := 0; i < trailLimit+5; i++ {
		trail = pushTrail(trail, trailEntry{key: string(rune('a' + i%26)), counted: true})
	}
	if len(trail) != trailLimit {
		t.Fatalf("expected %d entries, got %d", trailLimit, len(trail))
	}
	if trail[0].key != string(rune('a'+5)) {
		t.Fatalf("expected oldest entries dropped, got %q first", trail[0].key)
	}
}

func TestBuildStyledTokensLabels(t *testing.T) {
	tokens := buildStyledTokens([]trailEntry{{key: " ", counted: true}, {key: "ctrl+a"}})
	if tokens[0].width != 1 || !strings.Contains(tokens[0].s, "␣") {
		t.Fatalf("expected space glyph, got %+v", tokens[0])
	}
	if tokens[1].s != ignoredKeyStyle.Render("ctrl+a") {
		t.Fatalf("expected ignored style for uncounted key")
	}
	if tokens[1].width != 6 {
		t.Fatalf("expected width 6, got %d", tokens[1].width)
	}
}
