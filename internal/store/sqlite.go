package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"uav-testgen/internal/fingerprint"
	"uav-testgen/internal/ledger"
	"uav-testgen/internal/obstacle"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return fmt.Errorf("enable WAL: %w", err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveCampaign(ctx context.Context, c Campaign) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO campaigns (id, name, mission, budget, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			mission = excluded.mission,
			budget = excluded.budget,
			started_at = excluded.started_at
	`, c.ID, c.Name, c.Mission, c.Budget, c.StartedAt.UnixMilli())
	return err
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, id string) (Campaign, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Campaign{}, false, err
	}
	c := Campaign{ID: id}
	var started int64
	err = db.QueryRowContext(ctx, `SELECT name, mission, budget, started_at FROM campaigns WHERE id = ?`, id).
		Scan(&c.Name, &c.Mission, &c.Budget, &started)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, false, nil
		}
		return Campaign{}, false, err
	}
	c.StartedAt = time.UnixMilli(started).UTC()
	return c, true, nil
}

func (s *SQLiteStore) SaveConfiguration(ctx context.Context, campaignID, fp, path string, cfg obstacle.Configuration) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO configurations (campaign_id, fingerprint, path, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(campaign_id, fingerprint) DO UPDATE SET
			path = excluded.path,
			payload = excluded.payload
	`, campaignID, fp, path, fingerprint.Canonical(cfg))
	return err
}

func (s *SQLiteStore) Configurations(ctx context.Context, campaignID string) ([]SavedConfiguration, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT fingerprint, path, payload FROM configurations
		WHERE campaign_id = ? ORDER BY rowid
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SavedConfiguration
	for rows.Next() {
		var sc SavedConfiguration
		var payload string
		if err := rows.Scan(&sc.Fingerprint, &sc.Path, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &sc.Config); err != nil {
			return nil, fmt.Errorf("decode configuration %s: %w", sc.Fingerprint, err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveRecord(ctx context.Context, campaignID string, rec ledger.Record) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	obs, err := json.Marshal(rec.Obstacles)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO records (campaign_id, iteration, phase, seed, distance, flight_time,
			config_path, trajectory_path, obstacles, crash_adjacent, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, campaignID, rec.Iteration, rec.Phase, rec.Seed, rec.Distance, rec.Time,
		rec.ConfigPath, rec.TrajectoryPath, string(obs), rec.CrashAdjacent, rec.Timestamp.UnixMilli())
	return err
}

func (s *SQLiteStore) Records(ctx context.Context, campaignID string) ([]ledger.Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT iteration, phase, seed, distance, flight_time, config_path, trajectory_path,
			obstacles, crash_adjacent, ts
		FROM records WHERE campaign_id = ? ORDER BY rowid
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Record
	for rows.Next() {
		var r ledger.Record
		var obs string
		var ts int64
		if err := rows.Scan(&r.Iteration, &r.Phase, &r.Seed, &r.Distance, &r.Time, &r.ConfigPath,
			&r.TrajectoryPath, &obs, &r.CrashAdjacent, &ts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(obs), &r.Obstacles); err != nil {
			return nil, fmt.Errorf("decode obstacles of iteration %d: %w", r.Iteration, err)
		}
		r.Timestamp = time.UnixMilli(ts).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Directory returns a fingerprint set persisted in the fingerprints table.
func (s *SQLiteStore) Directory(campaignID string) fingerprint.Directory {
	return &sqliteDirectory{store: s, campaignID: campaignID}
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

type sqliteDirectory struct {
	store      *SQLiteStore
	campaignID string
}

func (d *sqliteDirectory) Contains(ctx context.Context, fp string) (bool, error) {
	db, err := d.store.getDB()
	if err != nil {
		return false, err
	}
	var one int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM fingerprints WHERE campaign_id = ? AND fingerprint = ?`,
		d.campaignID, fp).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (d *sqliteDirectory) Add(ctx context.Context, fp string) error {
	db, err := d.store.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT OR IGNORE INTO fingerprints (campaign_id, fingerprint) VALUES (?, ?)`,
		d.campaignID, fp)
	return err
}

func (d *sqliteDirectory) Len(ctx context.Context) (int, error) {
	db, err := d.store.getDB()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fingerprints WHERE campaign_id = ?`, d.campaignID).Scan(&n)
	return n, err
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS campaigns (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			mission TEXT NOT NULL,
			budget INTEGER NOT NULL,
			started_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS fingerprints (
			campaign_id TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			PRIMARY KEY (campaign_id, fingerprint)
		);
		CREATE TABLE IF NOT EXISTS configurations (
			campaign_id TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			path TEXT NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (campaign_id, fingerprint)
		);
		CREATE TABLE IF NOT EXISTS records (
			campaign_id TEXT NOT NULL,
			iteration INTEGER NOT NULL,
			phase TEXT NOT NULL,
			seed INTEGER NOT NULL,
			distance REAL NOT NULL,
			flight_time REAL NOT NULL,
			config_path TEXT NOT NULL,
			trajectory_path TEXT NOT NULL,
			obstacles TEXT NOT NULL,
			crash_adjacent INTEGER NOT NULL,
			ts INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS records_campaign ON records (campaign_id, iteration);
	`)
	return err
}
