package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sunsetd/backend/models"
)

// History records orchestrator runs and publications in SQLite for the API
// and for operators. It is observability only: the lock marker file, not
// these rows, decides whether a publish already happened.
type History struct {
	db *sql.DB
}

func NewHistory(dbPath string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &History{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    started_at      TEXT NOT NULL,
    finished_at     TEXT NOT NULL,
    location        TEXT NOT NULL,
    cameras         INTEGER NOT NULL,
    windows         INTEGER NOT NULL,
    attempted       INTEGER NOT NULL,
    fetched         INTEGER NOT NULL,
    skipped         INTEGER NOT NULL,
    failed          INTEGER NOT NULL,
    near_duplicates INTEGER NOT NULL DEFAULT 0,
    publications    TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

CREATE TABLE IF NOT EXISTS publications (
    id        TEXT PRIMARY KEY,
    camera_id TEXT NOT NULL,
    profile   TEXT NOT NULL,
    date      TEXT NOT NULL,
    receipt   TEXT NOT NULL,
    posted_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pub_camera_date ON publications(camera_id, date);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func (h *History) RecordRun(rec models.RunRecord) error {
	pubs, err := json.Marshal(rec.Publications)
	if err != nil {
		return fmt.Errorf("marshaling publications: %w", err)
	}

	_, err = h.db.Exec(`INSERT OR REPLACE INTO runs
		(id, started_at, finished_at, location, cameras, windows,
		 attempted, fetched, skipped, failed, near_duplicates, publications)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.StartedAt.Format(time.RFC3339),
		rec.FinishedAt.Format(time.RFC3339),
		rec.Location, rec.Cameras, rec.Windows,
		rec.Stats.Attempted, rec.Stats.Fetched, rec.Stats.Skipped,
		rec.Stats.Failed, rec.Stats.NearDuplicates, string(pubs))
	return err
}

func (h *History) RecordPublication(rec models.PublicationRecord) error {
	_, err := h.db.Exec(`INSERT OR REPLACE INTO publications
		(id, camera_id, profile, date, receipt, posted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CameraID, rec.Profile, rec.Date, rec.Receipt,
		rec.PostedAt.Format(time.RFC3339))
	return err
}

// ListRuns returns the most recent runs, newest first.
func (h *History) ListRuns(limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.Query(`SELECT id, started_at, finished_at, location,
		cameras, windows, attempted, fetched, skipped, failed,
		near_duplicates, publications
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID.
func (h *History) GetRun(id string) (models.RunRecord, error) {
	row := h.db.QueryRow(`SELECT id, started_at, finished_at, location,
		cameras, windows, attempted, fetched, skipped, failed,
		near_duplicates, publications
		FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return models.RunRecord{}, fmt.Errorf("run not found: %s", id)
	}
	return rec, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (models.RunRecord, error) {
	var rec models.RunRecord
	var started, finished, pubs string
	err := row.Scan(&rec.ID, &started, &finished, &rec.Location,
		&rec.Cameras, &rec.Windows,
		&rec.Stats.Attempted, &rec.Stats.Fetched, &rec.Stats.Skipped,
		&rec.Stats.Failed, &rec.Stats.NearDuplicates, &pubs)
	if err != nil {
		return rec, err
	}
	rec.StartedAt, _ = time.Parse(time.RFC3339, started)
	rec.FinishedAt, _ = time.Parse(time.RFC3339, finished)
	if err := json.Unmarshal([]byte(pubs), &rec.Publications); err != nil {
		rec.Publications = nil
	}
	return rec, nil
}

func (h *History) Close() error {
	return h.db.Close()
}
