// Package replay drives the race engine from a timed event script, for
// reproducing races without a terminal.
package replay

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Op is a script event kind.
type Op int

const (
	// OpStart arms a race.
	OpStart Op = iota
	// OpReset returns to idle.
	OpReset
	// OpBlur drops window focus.
	OpBlur
	// OpDown is a fresh key-down.
	OpDown
	// OpRepeat is an auto-repeat key-down.
	OpRepeat
	// OpUp releases a key.
	OpUp
)

var opNames = map[string]Op{
	"start":  OpStart,
	"reset":  OpReset,
	"blur":   OpBlur,
	"down":   OpDown,
	"repeat": OpRepeat,
	"up":     OpUp,
}

var opLabels = []string{"start", "reset", "blur", "down", "repeat", "up"}

func (o Op) String() string {
	if o >= 0 && int(o) < len(opLabels) {
		return opLabels[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

func (o Op) needsKey() bool {
	return o == OpDown || o == OpRepeat || o == OpUp
}

// spaceKey is how a space bar press is written in scripts.
const spaceKey = "<space>"

// Event is one scripted input at AtMs milliseconds after the script base.
type Event struct {
	AtMs int64
	Op   Op
	Key  string
	Line int
}

// ParseFile reads a script from path.
func ParseFile(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only file.
			_ = cerr
		}
	}()
	return Parse(file)
}

// Parse reads one event per line: "<ms> <op> [key]". Blank lines and lines
// starting with # are skipped. Times must not decrease.
func Parse(r io.Reader) ([]Event, error) {
	var events []Event
	var lastMs int64
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ev, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if ev.AtMs < lastMs {
			return nil, fmt.Errorf("line %d: time %d ms is before %d ms", lineNo, ev.AtMs, lastMs)
		}
		lastMs = ev.AtMs
		ev.Line = lineNo
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func parseLine(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Event{}, fmt.Errorf("expected \"<ms> <op> [key]\", got %q", line)
	}
	at, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || at < 0 {
		return Event{}, fmt.Errorf("invalid time %q", fields[0])
	}
	op, ok := opNames[strings.ToLower(fields[1])]
	if !ok {
		return Event{}, fmt.Errorf("unknown op %q", fields[1])
	}
	ev := Event{AtMs: at, Op: op}
	switch {
	case op.needsKey() && len(fields) != 3:
		return Event{}, fmt.Errorf("%s needs exactly one key", op)
	case !op.needsKey() && len(fields) != 2:
		return Event{}, fmt.Errorf("%s takes no key", op)
	}
	if op.needsKey() {
		ev.Key = fields[2]
		if ev.Key == spaceKey {
			ev.Key = " "
		}
	}
	return ev, nil
}
