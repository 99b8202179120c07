// Package sqlite persists emitted track snapshots for offline analysis
// and reporting. The store is an observation log, not tracker state:
// tracking always restarts from scratch, the log only records what was
// emitted.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/sightline/internal/vision"
)

// Store wraps the sqlite database holding recording runs and their
// track observations.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies any pending
// schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// The store is written from a single recorder goroutine; a single
	// connection avoids SQLITE_BUSY between writer and report readers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun registers a recording run before its first observation.
func (s *Store) BeginRun(runID, source string, startedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, source, started_unix_nanos) VALUES (?, ?, ?)`,
		runID, source, startedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// InsertEmission records one tracker emission for a run. The whole
// emission lands in one transaction so readers never see half a frame.
func (s *Store) InsertEmission(runID string, at time.Time, tracks []vision.TrackSnapshot) error {
	if len(tracks) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin emission tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO track_observations (run_id, track_id, category, ts_unix_nanos, x, y, w, h)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare observation insert: %w", err)
	}
	defer stmt.Close()

	nanos := at.UnixNano()
	for _, t := range tracks {
		if _, err := stmt.Exec(runID, t.ID, string(t.Category), nanos, t.X, t.Y, t.W, t.H); err != nil {
			return fmt.Errorf("insert observation for track %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit emission: %w", err)
	}
	return nil
}

// LatestRunID returns the most recently started run, or an error if the
// store is empty.
func (s *Store) LatestRunID() (string, error) {
	var runID string
	err := s.db.QueryRow(
		`SELECT run_id FROM runs ORDER BY started_unix_nanos DESC LIMIT 1`,
	).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no recording runs in store")
	}
	if err != nil {
		return "", fmt.Errorf("query latest run: %w", err)
	}
	return runID, nil
}

// Observation is one recorded track snapshot.
type Observation struct {
	TrackID     uint32
	Category    string
	TSUnixNanos int64
	X, Y, W, H  int
}

// MidX returns the observation's centroid X.
func (o Observation) MidX() float64 { return float64(o.X) + float64(o.W)/2 }

// MidY returns the observation's centroid Y.
func (o Observation) MidY() float64 { return float64(o.Y) + float64(o.H)/2 }

// TrackPath is the ordered observation history of one track in a run.
type TrackPath struct {
	TrackID      uint32
	Category     string
	Observations []Observation
}

// TrackPaths returns every track of a run with its observations in time
// order.
func (s *Store) TrackPaths(runID string) ([]TrackPath, error) {
	rows, err := s.db.Query(`
		SELECT track_id, category, ts_unix_nanos, x, y, w, h
		FROM track_observations
		WHERE run_id = ?
		ORDER BY track_id, ts_unix_nanos
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query track observations: %w", err)
	}
	defer rows.Close()

	var paths []TrackPath
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.TrackID, &o.Category, &o.TSUnixNanos, &o.X, &o.Y, &o.W, &o.H); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		if n := len(paths); n == 0 || paths[n-1].TrackID != o.TrackID {
			paths = append(paths, TrackPath{TrackID: o.TrackID, Category: o.Category})
		}
		p := &paths[len(paths)-1]
		p.Observations = append(p.Observations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return paths, nil
}

// ObservationCount returns the number of observations recorded for a
// run.
func (s *Store) ObservationCount(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM track_observations WHERE run_id = ?`, runID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return n, nil
}
