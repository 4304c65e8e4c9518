package replay

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/keyrace/internal/model"
	"github.com/verte-zerg/keyrace/internal/race"
	"github.com/verte-zerg/keyrace/internal/store"
)

// Options configures a replay.
type Options struct {
	Target       uint32
	Affirmations []string
	Rand         race.Rand
	// Base is the wall time of script time 0; zero means the Unix epoch.
	Base time.Time
	// Store receives every finished race when set.
	Store *store.Store
}

// Result is the outcome of a replay.
type Result struct {
	State    race.State
	Snapshot race.Snapshot
	// Lines holds every presenter call as text, in order.
	Lines    []string
	Finished int
}

type scriptClock struct {
	base time.Time
	ms   int64
}

func (c *scriptClock) Now() time.Time {
	return c.base.Add(time.Duration(c.ms) * time.Millisecond)
}

type textPresenter struct {
	clock *scriptClock
	lines []string
	done  *finished
}

type finished struct {
	seconds     float64
	affirmation string
}

func (p *textPresenter) add(format string, args ...any) {
	p.lines = append(p.lines, fmt.Sprintf("%6d ms  ", p.clock.ms)+fmt.Sprintf(format, args...))
}

func (p *textPresenter) RenderFull(state race.State, snap race.Snapshot) {
	p.add("%-8s %s", state, snap.Message())
}

func (p *textPresenter) RenderProgress(snap race.Snapshot) {
	p.add("%-8s %s", "progress", snap.Message())
}

func (p *textPresenter) RenderFinished(totalSeconds float64, affirmation string) {
	p.done = &finished{seconds: totalSeconds, affirmation: affirmation}
	p.add("%-8s %.3f s  %s", "finished", totalSeconds, affirmation)
}

// Run feeds events to a fresh engine in order.
func Run(ctx context.Context, events []Event, opts Options) (Result, error) {
	clock := &scriptClock{base: opts.Base}
	if clock.base.IsZero() {
		clock.base = time.Unix(0, 0).UTC()
	}
	presenter := &textPresenter{clock: clock}
	engine := race.New(race.Options{
		Target:       opts.Target,
		Clock:        clock,
		Rand:         opts.Rand,
		Presenter:    presenter,
		Affirmations: opts.Affirmations,
	})

	var res Result
	tallies := map[string]int{}
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		clock.ms = ev.AtMs
		switch ev.Op {
		case OpStart:
			if engine.State() != race.Running {
				clear(tallies)
			}
			engine.Start()
		case OpReset:
			engine.Reset()
		case OpBlur:
			engine.Blur()
		case OpDown, OpRepeat:
			if engine.KeyDown(ev.Key, ev.Op == OpRepeat) {
				tallies[ev.Key]++
			}
		case OpUp:
			engine.KeyUp(ev.Key)
		default:
			return Result{}, fmt.Errorf("line %d: unsupported op %s", ev.Line, ev.Op)
		}
		if presenter.done == nil {
			continue
		}
		res.Finished++
		if opts.Store != nil {
			if err := saveRace(ctx, opts.Store, clock.Now(), engine.Target(), *presenter.done, tallies); err != nil {
				return Result{}, fmt.Errorf("line %d: failed to save race: %w", ev.Line, err)
			}
		}
		logrus.WithFields(logrus.Fields{
			"line":    ev.Line,
			"seconds": presenter.done.seconds,
		}).Debug("replayed race finished")
		presenter.done = nil
	}

	res.State = engine.State()
	res.Snapshot = engine.Snapshot()
	res.Lines = presenter.lines
	return res, nil
}

func saveRace(ctx context.Context, st *store.Store, endedAt time.Time, target uint32, done finished, tallies map[string]int) error {
	durationMs := int64(math.Round(done.seconds * 1000))
	result := model.RaceResult{
		StartedAt:   endedAt.Add(-time.Duration(durationMs) * time.Millisecond),
		EndedAt:     endedAt,
		Target:      int(target),
		Presses:     int(target),
		DurationMs:  durationMs,
		Affirmation: done.affirmation,
	}
	keys := make([]model.KeyStats, 0, len(tallies))
	for k, n := range tallies {
		keys = append(keys, model.KeyStats{Key: k, Presses: n})
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Key < keys[j].Key
	})
	_, err := st.InsertRace(ctx, result, keys)
	return err
}
