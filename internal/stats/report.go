package stats

import (
	"context"

	"github.com/verte-zerg/keyrace/internal/model"
	"github.com/verte-zerg/keyrace/internal/store"
)

// Report contains precomputed data for history rendering.
type Report struct {
	Races         []model.RaceAggregate
	WindowRaceIDs []int64
	KeyAggsAll    []model.KeyAggregate
	KeyAggsWindow []model.KeyAggregate
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	races, err := st.ListRaces(ctx)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(races) > cfg.Last {
		races = races[len(races)-cfg.Last:]
	}

	allIDs := raceIDs(races)
	windowIDs := lastRaceIDs(races, cfg.CurveWindow)
	keyAggsAll, err := st.ListKeyAggregatesForRaces(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	keyAggsWindow, err := st.ListKeyAggregatesForRaces(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Races:         races,
		WindowRaceIDs: windowIDs,
		KeyAggsAll:    keyAggsAll,
		KeyAggsWindow: keyAggsWindow,
	}, nil
}

func raceIDs(races []model.RaceAggregate) []int64 {
	ids := make([]int64, len(races))
	for i, r := range races {
		ids[i] = r.RaceID
	}
	return ids
}

func lastRaceIDs(races []model.RaceAggregate, window int) []int64 {
	if window <= 0 || len(races) <= window {
		return raceIDs(races)
	}
	return raceIDs(races[len(races)-window:])
}
