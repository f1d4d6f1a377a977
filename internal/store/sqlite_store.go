package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, registered as "sqlite"
)

// SQLiteStore is the production Store implementation, grounded on the
// teacher's internal/dashboard/database.go (WAL-mode sqlite with a simple
// CREATE TABLE IF NOT EXISTS migration), updated to the pure-Go
// modernc.org/sqlite driver the teacher's go.mod had already moved to.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the sqlite database at path
// and ensures its schema exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS counters (
		key   TEXT PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS active_hubs (
		hub_id          TEXT PRIMARY KEY,
		label           TEXT NOT NULL,
		last_updated_at INTEGER NOT NULL
	);
	`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) IncrementCounter(ctx context.Context, key string, delta int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO counters (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = value + excluded.value
	`, key, delta)
	if err != nil {
		return 0, fmt.Errorf("store: increment %s: %w", key, err)
	}

	var value int64
	if err := tx.QueryRowContext(ctx, `SELECT value FROM counters WHERE key = ?`, key).Scan(&value); err != nil {
		return 0, fmt.Errorf("store: read counter %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) UpsertActiveHub(ctx context.Context, entry ActiveHubEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO active_hubs (hub_id, label, last_updated_at) VALUES (?, ?, ?)
		ON CONFLICT(hub_id) DO UPDATE SET label = excluded.label, last_updated_at = excluded.last_updated_at
	`, entry.HubID, entry.Label, entry.LastUpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: upsert active hub %s: %w", entry.HubID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteActiveHub(ctx context.Context, hubID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM active_hubs WHERE hub_id = ?`, hubID)
	if err != nil {
		return fmt.Errorf("store: delete active hub %s: %w", hubID, err)
	}
	return nil
}

func (s *SQLiteStore) ListActiveHubs(ctx context.Context) ([]ActiveHubEntry, error) {
	horizon := time.Now().Add(-ActiveHubHorizon).UnixMilli()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM active_hubs WHERE last_updated_at < ?`, horizon); err != nil {
		return nil, fmt.Errorf("store: prune active hubs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT hub_id, label, last_updated_at FROM active_hubs`)
	if err != nil {
		return nil, fmt.Errorf("store: list active hubs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []ActiveHubEntry
	for rows.Next() {
		var e ActiveHubEntry
		var lastUpdatedMs int64
		if err := rows.Scan(&e.HubID, &e.Label, &lastUpdatedMs); err != nil {
			return nil, fmt.Errorf("store: scan active hub: %w", err)
		}
		e.LastUpdatedAt = time.UnixMilli(lastUpdatedMs)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
