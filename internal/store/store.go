// Package store keeps the race history of the running process in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/keyrace/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// timeLayout is fixed width so text comparison orders timestamps.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for race data.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and applies migrations. MemoryPath keeps
// everything in process memory.
func Open(path string) (*Store, error) {
	if path != MemoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Every new connection to :memory: is a fresh database.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS races (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			target INTEGER NOT NULL,
			presses INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			affirmation TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS race_key_stats (
			race_id INTEGER NOT NULL,
			key TEXT NOT NULL,
			presses INTEGER NOT NULL,
			PRIMARY KEY (race_id, key)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_races_ended_at ON races(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRace stores a finished race and its per-key press counts.
func (s *Store) InsertRace(ctx context.Context, race model.RaceResult, keys []model.KeyStats) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO races (started_at, ended_at, target, presses, duration_ms, affirmation)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		race.StartedAt.UTC().Format(timeLayout),
		race.EndedAt.UTC().Format(timeLayout),
		race.Target,
		race.Presses,
		race.DurationMs,
		race.Affirmation,
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(keys) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO race_key_stats (race_id, key, presses) VALUES (?, ?, ?)`)
		if perr != nil {
			err = perr
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, ks := range keys {
			if _, err = stmt.ExecContext(ctx, id, ks.Key, ks.Presses); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListRaces returns finished races ordered by end time, oldest first.
func (s *Store) ListRaces(ctx context.Context) ([]model.RaceAggregate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, ended_at, target, presses, duration_ms
		FROM races
		ORDER BY ended_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var races []model.RaceAggregate
	for rows.Next() {
		agg, err := scanRace(rows)
		if err != nil {
			return nil, err
		}
		races = append(races, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return races, nil
}

// BestRace returns the fastest race for target. ok is false when none exist.
func (s *Store) BestRace(ctx context.Context, target int) (agg model.RaceAggregate, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, ended_at, target, presses, duration_ms
		FROM races
		WHERE target = ?
		ORDER BY duration_ms ASC, id ASC
		LIMIT 1`, target)
	agg, err = scanRace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RaceAggregate{}, false, nil
	}
	if err != nil {
		return model.RaceAggregate{}, false, err
	}
	return agg, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRace(row rowScanner) (model.RaceAggregate, error) {
	var agg model.RaceAggregate
	var endedAt string
	if err := row.Scan(&agg.RaceID, &endedAt, &agg.Target, &agg.Presses, &agg.DurationMs); err != nil {
		return model.RaceAggregate{}, err
	}
	parsed, err := time.Parse(timeLayout, endedAt)
	if err != nil {
		return model.RaceAggregate{}, fmt.Errorf("invalid ended_at %q: %w", endedAt, err)
	}
	agg.EndedAt = parsed
	return agg, nil
}

// ListKeyAggregatesForRaces aggregates per-key presses across races.
func (s *Store) ListKeyAggregatesForRaces(ctx context.Context, raceIDs []int64) ([]model.KeyAggregate, error) {
	if len(raceIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(raceIDs))
	args := make([]any, len(raceIDs))
	for i, id := range raceIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT key, SUM(presses) AS presses, COUNT(DISTINCT race_id) AS races
		FROM race_key_stats
		WHERE race_id IN (%s)
		GROUP BY key`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.KeyAggregate
	for rows.Next() {
		var agg model.KeyAggregate
		if err := rows.Scan(&agg.Key, &agg.Presses, &agg.Races); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
