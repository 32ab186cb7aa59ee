// Package storage provides SQLite-based persistence for run summaries.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/tui-traffic/internal/sim"
)

// Store manages the SQLite database connection for run history.
type Store struct {
	db *sql.DB
}

// RunRecord is the stored summary of one simulation run.
type RunRecord struct {
	ID           int64
	RunID        string // UUID assigned on save
	SceneID      string
	Seed         int64
	Preset       string
	Ticks        uint64
	Spawned      int
	Exited       int
	MeanSpeed    float64
	MeanTransit  float64 // seconds
	Throughput   float64 // exits per simulated minute
	StoppedShare float64
	TracePath    string
	CreatedAt    time.Time
}

// NewRunRecord summarises a finished run.
func NewRunRecord(sceneID string, seed int64, preset string, stats sim.Stats) RunRecord {
	return RunRecord{
		SceneID:      sceneID,
		Seed:         seed,
		Preset:       preset,
		Ticks:        stats.Ticks,
		Spawned:      stats.Spawned,
		Exited:       stats.Exited,
		MeanSpeed:    stats.MeanSpeed(),
		MeanTransit:  stats.MeanTransit(),
		Throughput:   stats.Throughput(),
		StoppedShare: stats.StoppedShare(),
	}
}

// SceneSummary aggregates every stored run of one scene.
type SceneSummary struct {
	SceneID        string
	Runs           int
	BestThroughput float64
	AvgThroughput  float64
	LastRun        time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			scene_id TEXT NOT NULL,
			seed INTEGER NOT NULL,
			preset TEXT NOT NULL DEFAULT '',
			ticks INTEGER NOT NULL,
			spawned INTEGER NOT NULL DEFAULT 0,
			exited INTEGER NOT NULL DEFAULT 0,
			mean_speed REAL NOT NULL DEFAULT 0,
			mean_transit REAL NOT NULL DEFAULT 0,
			throughput REAL NOT NULL DEFAULT 0,
			stopped_share REAL NOT NULL DEFAULT 0,
			trace_path TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_runs_scene_id ON runs(scene_id);
		CREATE INDEX IF NOT EXISTS idx_runs_top ON runs(scene_id, throughput DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun records a run. A RunID is generated when the record has none.
// Returns the record as stored.
func (s *Store) SaveRun(rec RunRecord) (RunRecord, error) {
	if rec.RunID == "" {
		rec.RunID = uuid.NewString()
	}

	var tracePath sql.NullString
	if rec.TracePath != "" {
		tracePath = sql.NullString{String: rec.TracePath, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO runs
		 (run_id, scene_id, seed, preset, ticks, spawned, exited,
		  mean_speed, mean_transit, throughput, stopped_share, trace_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.SceneID, rec.Seed, rec.Preset, int64(rec.Ticks), rec.Spawned, rec.Exited,
		rec.MeanSpeed, rec.MeanTransit, rec.Throughput, rec.StoppedShare, tracePath,
	)
	if err != nil {
		return rec, fmt.Errorf("storage: cannot save run: %w", err)
	}

	rec.ID, err = result.LastInsertId()
	if err != nil {
		return rec, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return rec, nil
}

const runColumns = `id, run_id, scene_id, seed, preset, ticks, spawned, exited,
	mean_speed, mean_transit, throughput, stopped_share, trace_path, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		rec       RunRecord
		ticks     int64
		tracePath sql.NullString
		createdAt any
	)
	err := row.Scan(
		&rec.ID, &rec.RunID, &rec.SceneID, &rec.Seed, &rec.Preset, &ticks,
		&rec.Spawned, &rec.Exited, &rec.MeanSpeed, &rec.MeanTransit,
		&rec.Throughput, &rec.StoppedShare, &tracePath, &createdAt,
	)
	if err != nil {
		return rec, err
	}
	rec.Ticks = uint64(ticks)
	rec.TracePath = tracePath.String
	rec.CreatedAt = parseTime(createdAt)
	return rec, nil
}

// parseTime handles both time.Time and string datetime values.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func (s *Store) queryRuns(query string, args ...any) ([]RunRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		runs = append(runs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return runs, nil
}

// TopRuns retrieves the N runs of a scene with the highest throughput.
func (s *Store) TopRuns(sceneID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryRuns(
		`SELECT `+runColumns+`
		 FROM runs
		 WHERE scene_id = ?
		 ORDER BY throughput DESC, id ASC
		 LIMIT ?`,
		sceneID, limit,
	)
}

// RecentRuns retrieves the most recent runs, newest first. An empty sceneID
// matches every scene.
func (s *Store) RecentRuns(sceneID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if sceneID == "" {
		return s.queryRuns(
			`SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`,
			limit,
		)
	}
	return s.queryRuns(
		`SELECT `+runColumns+` FROM runs WHERE scene_id = ? ORDER BY id DESC LIMIT ?`,
		sceneID, limit,
	)
}

// RunByID retrieves a run by its UUID. Returns nil if no such run exists.
func (s *Store) RunByID(runID string) (*RunRecord, error) {
	rec, err := scanRun(s.db.QueryRow(
		`SELECT `+runColumns+` FROM runs WHERE run_id = ?`,
		runID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query run: %w", err)
	}
	return &rec, nil
}

// BestThroughput returns the highest throughput recorded for a scene.
// Returns 0 if no runs exist.
func (s *Store) BestThroughput(sceneID string) (float64, error) {
	var best sql.NullFloat64
	err := s.db.QueryRow(
		"SELECT MAX(throughput) FROM runs WHERE scene_id = ?",
		sceneID,
	).Scan(&best)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot query best throughput: %w", err)
	}
	if !best.Valid {
		return 0, nil
	}
	return best.Float64, nil
}

// ClearRuns deletes all runs of a scene.
func (s *Store) ClearRuns(sceneID string) error {
	_, err := s.db.Exec("DELETE FROM runs WHERE scene_id = ?", sceneID)
	if err != nil {
		return fmt.Errorf("storage: cannot clear runs: %w", err)
	}
	return nil
}

// SceneSummaries aggregates runs per scene, ordered by scene ID.
func (s *Store) SceneSummaries() ([]SceneSummary, error) {
	rows, err := s.db.Query(
		`SELECT scene_id, COUNT(*), MAX(throughput), AVG(throughput), MAX(created_at)
		 FROM runs
		 GROUP BY scene_id
		 ORDER BY scene_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get scene summaries: %w", err)
	}
	defer rows.Close()

	var out []SceneSummary
	for rows.Next() {
		var sum SceneSummary
		var lastRun any
		if err := rows.Scan(&sum.SceneID, &sum.Runs, &sum.BestThroughput, &sum.AvgThroughput, &lastRun); err != nil {
			return nil, fmt.Errorf("storage: cannot scan summary row: %w", err)
		}
		sum.LastRun = parseTime(lastRun)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return out, nil
}
