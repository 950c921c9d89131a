// Package sqlite implements ports.SlotStore on a single-file SQLite
// database. It suits desktop installs that want save slots in one
// portable file instead of a directory tree.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aretw0/vine/pkg/domain"
)

// Snapshots are stored as JSON payloads; scene and timestamp columns are
// denormalized so save browsers can query slot metadata without decoding.
const schema = `
CREATE TABLE IF NOT EXISTS saves (
	project_id TEXT    NOT NULL,
	slot       INTEGER NOT NULL,
	scene_id   TEXT    NOT NULL,
	scene_name TEXT    NOT NULL DEFAULT '',
	saved_at   TIMESTAMP NOT NULL,
	payload    BLOB    NOT NULL,
	PRIMARY KEY (project_id, slot)
);
`

// Store implements ports.SlotStore over a *sql.DB.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	store, err := NewFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewFromDB wraps an existing connection and applies the schema.
func NewFromDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save upserts the snapshot into its slot.
func (s *Store) Save(ctx context.Context, projectID string, slot int, snap *domain.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO saves (project_id, slot, scene_id, scene_name, saved_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, slot) DO UPDATE SET
			scene_id   = excluded.scene_id,
			scene_name = excluded.scene_name,
			saved_at   = excluded.saved_at,
			payload    = excluded.payload`,
		projectID, slot, snap.SceneID, snap.SceneName, snap.SavedAt, payload)
	if err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	return nil
}

// Load retrieves a snapshot. A missing row is an empty slot.
func (s *Store) Load(ctx context.Context, projectID string, slot int) (*domain.Snapshot, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM saves WHERE project_id = ? AND slot = ?`,
		projectID, slot).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read slot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete empties a slot. Deleting an empty slot is a no-op.
func (s *Store) Delete(ctx context.Context, projectID string, slot int) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM saves WHERE project_id = ? AND slot = ?`,
		projectID, slot); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

// List returns the occupied slots for a project, ascending.
func (s *Store) List(ctx context.Context, projectID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot FROM saves WHERE project_id = ? ORDER BY slot ASC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	slots := make([]int, 0)
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return slots, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
