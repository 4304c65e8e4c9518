package replay

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/keyrace/internal/race"
	"github.com/verte-zerg/keyrace/internal/store"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

const finishScript = `
# three distinct presses, one auto-repeat
0 start
100 down a
150 repeat a
200 up a
300 down b
400 down a
`

func mustParse(t *testing.T, script string) []Event {
	t.Helper()
	events, err := Parse(strings.NewReader(script))
	require.NoError(t, err)
	return events
}

func TestParse(t *testing.T) {
	events := mustParse(t, finishScript)
	require.Len(t, events, 6)
	assert.Equal(t, Event{AtMs: 0, Op: OpStart, Line: 3}, events[0])
	assert.Equal(t, Event{AtMs: 150, Op: OpRepeat, Key: "a", Line: 5}, events[2])

	events = mustParse(t, "5 DOWN <space>\n")
	assert.Equal(t, " ", events[0].Key)
	assert.Equal(t, OpDown, events[0].Op)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"unknown op":     "0 jump",
		"missing key":    "0 down",
		"extra key":      "0 start a",
		"bad time":       "x start",
		"negative time":  "-5 start",
		"too short":      "0",
		"time backwards": "10 start\n5 down a",
	}
	for name, script := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(script))
			assert.Error(t, err)
		})
	}
}

func TestParseReportsLine(t *testing.T) {
	_, err := Parse(strings.NewReader("0 start\n\n3 hop"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "repeat", OpRepeat.String())
	assert.Equal(t, "op(42)", Op(42).String())
}

func TestRunFinishes(t *testing.T) {
	res, err := Run(context.Background(), mustParse(t, finishScript), Options{
		Target:       3,
		Rand:         fixedRand(0),
		Affirmations: []string{"Nice!", "Great!"},
	})
	require.NoError(t, err)

	assert.Equal(t, race.Finished, res.State)
	assert.Equal(t, 1, res.Finished)
	assert.True(t, res.Snapshot.Finished)
	assert.InDelta(t, 0.3, res.Snapshot.ElapsedSeconds, 1e-9)
	assert.InDelta(t, 10.0, res.Snapshot.Rate, 1e-6)

	require.Len(t, res.Lines, 4)
	assert.Contains(t, res.Lines[0], "running")
	assert.Contains(t, res.Lines[1], "Count: 1/3")
	assert.Contains(t, res.Lines[2], "Count: 2/3")
	assert.Contains(t, res.Lines[3], "finished 0.300 s  Nice!")
	assert.True(t, strings.HasPrefix(res.Lines[3], "   400 ms"))
}

func TestRunHeldKeyCountsOnce(t *testing.T) {
	script := "0 start\n10 down a\n20 down a\n30 down a\n"
	res, err := Run(context.Background(), mustParse(t, script), Options{Target: 10})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), res.Snapshot.Count)
	assert.Equal(t, race.Running, res.State)
}

func TestRunBlurReleasesKeys(t *testing.T) {
	script := "0 start\n10 down a\n20 blur\n30 down a\n"
	res, err := Run(context.Background(), mustParse(t, script), Options{Target: 10})
	require.NoError(t, err)
	assert.Equal(t, uint32(2), res.Snapshot.Count)
}

func TestRunIgnoresPressesWhileIdle(t *testing.T) {
	script := "0 down a\n10 up a\n20 reset\n"
	res, err := Run(context.Background(), mustParse(t, script), Options{Target: 10})
	require.NoError(t, err)
	assert.Equal(t, race.Idle, res.State)
	assert.Equal(t, uint32(0), res.Snapshot.Count)
	require.Len(t, res.Lines, 1)
	assert.Contains(t, res.Lines[0], "idle")
}

func TestRunSavesFinishedRaces(t *testing.T) {
	st, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	script := finishScript + "500 start\n600 down x\n700 up x\n800 down x\n900 down y\n"

	res, err := Run(context.Background(), mustParse(t, script), Options{Target: 3, Store: st})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Finished)

	races, err := st.ListRaces(context.Background())
	require.NoError(t, err)
	require.Len(t, races, 2)
	assert.Equal(t, int64(300), races[0].DurationMs)
	assert.Equal(t, int64(300), races[1].DurationMs)

	aggs, err := st.ListKeyAggregatesForRaces(context.Background(), []int64{races[0].RaceID})
	require.NoError(t, err)
	byKey := map[string]int{}
	for _, agg := range aggs {
		byKey[agg.Key] = agg.Presses
	}
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, byKey)
}

func TestRunHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, mustParse(t, finishScript), Options{Target: 3})
	assert.ErrorIs(t, err, context.Canceled)
}
