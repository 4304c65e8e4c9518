package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// trailLimit bounds how many recent key events are shown under the bar.
const trailLimit = 40

type trailEntry struct {
	key     string
	counted bool
}

type styledToken struct {
	s     string
	width int
}

func pushTrail(trail []trailEntry, entry trailEntry) []trailEntry {
	trail = append(trail, entry)
	if len(trail) > trailLimit {
		trail = append(trail[:0], trail[len(trail)-trailLimit:]...)
	}
	return trail
}

func trailLabel(key string) string {
	switch key {
	case " ":
		return "␣"
	case "":
		return "?"
	default:
		return key
	}
}

func buildStyledTokens(trail []trailEntry) []styledToken {
	out := make([]styledToken, 0, len(trail))
	for _, entry := range trail {
		label := trailLabel(entry.key)
		style := ignoredKeyStyle
		if entry.counted {
			style = countedKeyStyle
		}
		out = append(out, styledToken{
			s:     style.Render(label),
			width: runewidth.StringWidth(label),
		})
	}
	return out
}

func renderStyledTokens(tokens []styledToken) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = tok.s
	}
	return strings.Join(parts, " ")
}

// wrapStyledTokens lays tokens out space-separated, breaking lines so no line
// is wider than width. A token wider than width gets a line of its own.
func wrapStyledTokens(tokens []styledToken, width int) string {
	if width <= 0 {
		return renderStyledTokens(tokens)
	}
	var lines []string
	line := make([]styledToken, 0, len(tokens))
	lineWidth := 0
	for _, tok := range tokens {
		next := tok.width
		if len(line) > 0 {
			next += 1
		}
		if len(line) > 0 && lineWidth+next > width {
			lines = append(lines, renderStyledTokens(line))
			line = line[:0]
			lineWidth = 0
			next = tok.width
		}
		line = append(line, tok)
		lineWidth += next
	}
	if len(line) > 0 {
		lines = append(lines, renderStyledTokens(line))
	}
	return strings.Join(lines, "\n")
}
