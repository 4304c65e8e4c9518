package store

import (
	"context"
	"testing"
	"time"

	"github.com/verte-zerg/keyrace/internal/model"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	st, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func insertRace(t *testing.T, st *Store, end time.Time, target int, durationMs int64, keys []model.KeyStats) int64 {
	t.Helper()
	race := model.RaceResult{
		StartedAt:   end.Add(-time.Duration(durationMs) * time.Millisecond),
		EndedAt:     end,
		Target:      target,
		Presses:     target,
		DurationMs:  durationMs,
		Affirmation: "Godlike!",
	}
	id, err := st.InsertRace(context.Background(), race, keys)
	if err != nil {
		t.Fatalf("insert race: %v", err)
	}
	return id
}

func TestInsertAndListRaces(t *testing.T) {
	st := openMemory(t)
	base := time.Unix(1_700_000_000, 0).UTC()
	first := insertRace(t, st, base, 10, 4000, []model.KeyStats{{Key: "a", Presses: 6}, {Key: "b", Presses: 4}})
	second := insertRace(t, st, base.Add(time.Minute), 10, 3000, nil)

	races, err := st.ListRaces(context.Background())
	if err != nil {
		t.Fatalf("list races: %v", err)
	}
	if len(races) != 2 {
		t.Fatalf("expected 2 races, got %d", len(races))
	}
	if races[0].RaceID != first || races[1].RaceID != second {
		t.Fatalf("unexpected order: %+v", races)
	}
	if !races[0].EndedAt.Equal(base) {
		t.Fatalf("unexpected ended_at: %v", races[0].EndedAt)
	}
	if races[0].DurationMs != 4000 || races[0].Target != 10 || races[0].Presses != 10 {
		t.Fatalf("unexpected race fields: %+v", races[0])
	}
}

func TestBestRace(t *testing.T) {
	st := openMemory(t)
	ctx := context.Background()

	if _, ok, err := st.BestRace(ctx, 10); err != nil || ok {
		t.Fatalf("expected no best race, got ok=%v err=%v", ok, err)
	}

	base := time.Unix(1_700_000_000, 0).UTC()
	insertRace(t, st, base, 10, 5000, nil)
	fast := insertRace(t, st, base.Add(time.Minute), 10, 2500, nil)
	insertRace(t, st, base.Add(2*time.Minute), 20, 1000, nil)

	best, ok, err := st.BestRace(ctx, 10)
	if err != nil {
		t.Fatalf("best race: %v", err)
	}
	if !ok || best.RaceID != fast {
		t.Fatalf("expected race %d, got %+v (ok=%v)", fast, best, ok)
	}
}

func TestListKeyAggregatesForRaces(t *testing.T) {
	st := openMemory(t)
	base := time.Unix(1_700_000_000, 0).UTC()
	a := insertRace(t, st, base, 5, 1000, []model.KeyStats{{Key: "a", Presses: 3}, {Key: "b", Presses: 2}})
	b := insertRace(t, st, base.Add(time.Second), 5, 1000, []model.KeyStats{{Key: "a", Presses: 5}})

	aggs, err := st.ListKeyAggregatesForRaces(context.Background(), []int64{a, b})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	byKey := map[string]model.KeyAggregate{}
	for _, agg := range aggs {
		byKey[agg.Key] = agg
	}
	if byKey["a"].Presses != 8 || byKey["a"].Races != 2 {
		t.Fatalf("unexpected aggregate for a: %+v", byKey["a"])
	}
	if byKey["b"].Presses != 2 || byKey["b"].Races != 1 {
		t.Fatalf("unexpected aggregate for b: %+v", byKey["b"])
	}

	empty, err := st.ListKeyAggregatesForRaces(context.Background(), nil)
	if err != nil || empty != nil {
		t.Fatalf("expected nil result for no ids, got %v err=%v", empty, err)
	}
}

func TestMemoryStoresAreIndependent(t *testing.T) {
	one := openMemory(t)
	two := openMemory(t)
	insertRace(t, one, time.Unix(0, 0).UTC(), 3, 100, nil)

	races, err := two.ListRaces(context.Background())
	if err != nil {
		t.Fatalf("list races: %v", err)
	}
	if len(races) != 0 {
		t.Fatalf("expected separate in-memory databases, got %d races", len(races))
	}
}
