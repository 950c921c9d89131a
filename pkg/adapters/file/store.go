// Package file implements ports.SlotStore on the local filesystem. Each
// snapshot is one JSON file under <base>/<projectID>/slot-<n>.json, written
// atomically so a crash mid-save never leaves a corrupt slot behind.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/vine/pkg/domain"
)

// Store persists snapshots as JSON files in a configured directory.
type Store struct {
	BasePath string
}

// New creates a Store rooted at basePath. If basePath is empty, it
// defaults to ".vine/saves".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".vine", "saves")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) slotPath(projectID string, slot int) string {
	return filepath.Join(s.BasePath, projectID, fmt.Sprintf("slot-%d.json", slot))
}

// Save writes the snapshot atomically: temp file in the destination
// directory, fsync, close, rename.
func (s *Store) Save(ctx context.Context, projectID string, slot int, snap *domain.Snapshot) error {
	if projectID == "" {
		return fmt.Errorf("projectID cannot be empty")
	}
	if slot < 0 {
		return fmt.Errorf("slot must be non-negative, got %d", slot)
	}

	dir := filepath.Join(s.BasePath, projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure save directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	// Temp file lives in the same directory so the rename stays on one
	// filesystem.
	tmp, err := os.CreateTemp(dir, fmt.Sprintf("tmp-slot-%d-*.json", slot))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	dest := s.slotPath(projectID, slot)
	// Windows os.Rename also refuses to replace an existing file; the
	// remove+rename window is acceptable against the alternative of a
	// partially written slot.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("replace existing slot: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("rename temp file into slot: %w", err)
	}
	return nil
}

// Load reads a snapshot back. A missing file is an empty slot.
func (s *Store) Load(ctx context.Context, projectID string, slot int) (*domain.Snapshot, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID cannot be empty")
	}

	data, err := os.ReadFile(s.slotPath(projectID, slot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSlotEmpty
		}
		return nil, fmt.Errorf("read slot file: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal slot file: %w", err)
	}
	return &snap, nil
}

// Delete removes the slot file. Deleting an empty slot is a no-op.
func (s *Store) Delete(ctx context.Context, projectID string, slot int) error {
	if projectID == "" {
		return fmt.Errorf("projectID cannot be empty")
	}

	err := os.Remove(s.slotPath(projectID, slot))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete slot file: %w", err)
	}
	return nil
}

// List returns the occupied slots for a project, ascending. Files that do
// not match the slot naming scheme are ignored.
func (s *Store) List(ctx context.Context, projectID string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.BasePath, projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("list slots: %w", err)
	}

	slots := make([]int, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "slot-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "slot-"), ".json"))
		if err != nil {
			continue
		}
		slots = append(slots, n)
	}
	sort.Ints(slots)
	return slots, nil
}
