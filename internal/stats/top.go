package stats

import "github.com/verte-zerg/keyrace/internal/model"

// TopKeysByFrequency returns the n most pressed keys.
func TopKeysByFrequency(aggs []model.KeyAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	sorted := SortKeysByPresses(aggs)
	n = min(n, len(sorted))
	out := make([]string, 0, n)
	for _, agg := range sorted[:n] {
		out = append(out, agg.Key)
	}
	return out
}
