package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ Slots = (*SQLiteSlots)(nil)

// SQLiteSlots implements Slots on a single-table SQLite database. Each slot
// is one row holding a JSON blob; reads and writes are synchronous, and the
// single application writer needs no further locking.
type SQLiteSlots struct {
	db *sql.DB
}

// NewSQLiteSlots opens (or creates) the database at dbPath, enables WAL
// mode, and runs the schema migration.
func NewSQLiteSlots(dbPath string) (*SQLiteSlots, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	s := &SQLiteSlots{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating: %w", err)
	}
	return s, nil
}

func (s *SQLiteSlots) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS slots (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteSlots) Close() error {
	return s.db.Close()
}

// Get reads a slot. A missing row is SlotEmpty; a row whose blob is not
// valid JSON is SlotCorrupt; read errors are reported as corrupt too, so
// callers degrade the same way.
func (s *SQLiteSlots) Get(key string) LoadResult {
	var raw []byte
	err := s.db.QueryRow(`SELECT value FROM slots WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return LoadResult{State: SlotEmpty}
	}
	if err != nil {
		return LoadResult{State: SlotCorrupt, Err: err}
	}
	return loaded(raw)
}

// Put JSON-encodes value and upserts it under key, stamping updated_at.
func (s *SQLiteSlots) Put(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding slot %s: %w", key, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing slot %s: %w", key, err)
	}
	return nil
}

// Delete removes a slot; deleting an absent slot is a no-op.
func (s *SQLiteSlots) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM slots WHERE key = ?`, key)
	return err
}
