// Package model defines shared data structures.
package model

import "time"

// Config defines race settings resolved from flags and the config file.
type Config struct {
	Target           int
	RepeatWindowMs   int
	AffirmationsPath string
	LogFile          string
	LogLevel         string
}

// StatsConfig defines options for the race history view.
type StatsConfig struct {
	Last        int
	CurveWindow int
}

// RaceResult captures a finished race.
type RaceResult struct {
	StartedAt   time.Time
	EndedAt     time.Time
	Target      int
	Presses     int
	DurationMs  int64
	Affirmation string
}

// KeyStats stores per-key distinct press counts for a race.
type KeyStats struct {
	Key     string
	Presses int
}

// KeyAggregate aggregates key stats across races.
type KeyAggregate struct {
	Key     string
	Presses int
	Races   int
}

// RaceAggregate summarizes a race for reporting.
type RaceAggregate struct {
	RaceID     int64
	EndedAt    time.Time
	Target     int
	Presses    int
	DurationMs int64
}
