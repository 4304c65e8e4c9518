// Package stats contains race statistics and text reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/keyrace/internal/model"
)

const sparkChars = " .:-=+*#%@"

// RaceMetrics computes keys per second and keys per minute for a race.
func RaceMetrics(presses int, durationMs int64) (kps, kpm float64) {
	if durationMs <= 0 {
		return 0, 0
	}
	seconds := float64(durationMs) / 1000.0
	kps = float64(presses) / seconds
	return kps, kps * 60
}

// Summary aggregates a set of races.
type Summary struct {
	Races      int
	TotalKeys  int
	BestMs     int64
	AvgMs      float64
	BestKPS    float64
	AvgKPS     float64
	LastKPS    float64
	LastMs     int64
	TotalSpent int64
}

// Summarize computes aggregate numbers over races.
func Summarize(races []model.RaceAggregate) Summary {
	var s Summary
	if len(races) == 0 {
		return s
	}
	var kpsSum float64
	for i, r := range races {
		kps, _ := RaceMetrics(r.Presses, r.DurationMs)
		kpsSum += kps
		s.TotalKeys += r.Presses
		s.TotalSpent += r.DurationMs
		if i == 0 || r.DurationMs < s.BestMs {
			s.BestMs = r.DurationMs
		}
		if kps > s.BestKPS {
			s.BestKPS = kps
		}
	}
	last := races[len(races)-1]
	s.Races = len(races)
	s.AvgMs = float64(s.TotalSpent) / float64(len(races))
	s.AvgKPS = kpsSum / float64(len(races))
	s.LastMs = last.DurationMs
	s.LastKPS, _ = RaceMetrics(last.Presses, last.DurationMs)
	return s
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := minMax(values)
	if math.Abs(hi-lo) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(len(sparkChars)-1)))
		idx = clampInt(idx, 0, len(sparkChars)-1)
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RateSeries returns keys per second for each race.
func RateSeries(races []model.RaceAggregate) []float64 {
	out := make([]float64, len(races))
	for i, r := range races {
		out[i], _ = RaceMetrics(r.Presses, r.DurationMs)
	}
	return out
}

// RenderSummary prints a summary block for races.
func RenderSummary(w io.Writer, races []model.RaceAggregate) error {
	if len(races) == 0 {
		_, err := fmt.Fprintln(w, "No races yet.")
		return err
	}
	s := Summarize(races)
	lines := []string{
		"Summary",
		fmt.Sprintf("Races: %d", s.Races),
		fmt.Sprintf("Keys: %s", humanize.Comma(int64(s.TotalKeys))),
		fmt.Sprintf("Best: %s (%.1f keys/s)", FormatDurationMs(s.BestMs), s.BestKPS),
		fmt.Sprintf("Average: %s (%.1f keys/s)", FormatDurationMs(int64(math.Round(s.AvgMs))), s.AvgKPS),
		fmt.Sprintf("Rate trend: %s", Sparkline(RateSeries(races))),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurve prints the per-race rate with its moving average.
func RenderCurve(w io.Writer, races []model.RaceAggregate, window, width, height int, forceColor bool) error {
	if len(races) == 0 {
		return nil
	}
	rates := RateSeries(races)
	series := []Series{
		{Name: "Rate", Values: rates},
		{Name: fmt.Sprintf("Avg(%d)", window), Values: MovingAverage(rates, window)},
	}
	if forceColor {
		return PlotSeriesWithColor(w, "Keys/s per race", series, width, height)
	}
	return PlotSeries(w, "Keys/s per race", series, width, height)
}

// RenderKeyTable prints per-key press totals, most pressed first.
func RenderKeyTable(w io.Writer, aggs []model.KeyAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No key stats found.")
		return err
	}
	rows := KeyRows(aggs)
	lines := formatTable([]string{"Key", "Presses", "Share", "Races"}, rows, map[int]bool{1: true, 2: true, 3: true})
	if _, err := fmt.Fprintln(w, "Per-Key"); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// KeyRows formats key aggregates as table rows sorted by presses.
func KeyRows(aggs []model.KeyAggregate) [][]string {
	sorted := SortKeysByPresses(aggs)
	total := 0
	for _, agg := range sorted {
		total += agg.Presses
	}
	rows := make([][]string, 0, len(sorted))
	for _, agg := range sorted {
		share := 0.0
		if total > 0 {
			share = float64(agg.Presses) / float64(total) * 100
		}
		rows = append(rows, []string{
			KeyLabel(agg.Key),
			humanize.Comma(int64(agg.Presses)),
			fmt.Sprintf("%.1f%%", share),
			fmt.Sprintf("%d", agg.Races),
		})
	}
	return rows
}

// SortKeysByPresses returns a copy sorted by presses, then key.
func SortKeysByPresses(aggs []model.KeyAggregate) []model.KeyAggregate {
	out := append([]model.KeyAggregate(nil), aggs...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Presses == out[j].Presses {
			return out[i].Key < out[j].Key
		}
		return out[i].Presses > out[j].Presses
	})
	return out
}

// KeyLabel makes whitespace keys visible.
func KeyLabel(key string) string {
	switch key {
	case " ":
		return "<space>"
	case "":
		return "<none>"
	default:
		return key
	}
}

// FormatDurationMs renders milliseconds as seconds with three decimals.
func FormatDurationMs(ms int64) string {
	return fmt.Sprintf("%.3f s", float64(ms)/1000.0)
}

func minMax(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
