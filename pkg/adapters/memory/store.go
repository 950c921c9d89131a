package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/vine/pkg/domain"
)

// Store implements ports.SlotStore in memory.
// Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[int]*domain.Snapshot
}

// NewStore creates an empty in-memory slot store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]map[int]*domain.Snapshot),
	}
}

// Save persists a snapshot. The snapshot is cloned so later mutation by
// the caller cannot reach stored data.
func (s *Store) Save(ctx context.Context, projectID string, slot int, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots, ok := s.data[projectID]
	if !ok {
		slots = make(map[int]*domain.Snapshot)
		s.data[projectID] = slots
	}
	slots[slot] = snap.Clone()
	return nil
}

// Load retrieves a snapshot. The stored copy is cloned on the way out for
// the same isolation reason.
func (s *Store) Load(ctx context.Context, projectID string, slot int) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.data[projectID][slot]
	if !ok {
		return nil, domain.ErrSlotEmpty
	}
	return snap.Clone(), nil
}

// Delete empties a slot. Deleting an empty slot is a no-op.
func (s *Store) Delete(ctx context.Context, projectID string, slot int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[projectID], slot)
	return nil
}

// List returns the occupied slots for a project, ascending.
func (s *Store) List(ctx context.Context, projectID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slots := make([]int, 0, len(s.data[projectID]))
	for slot := range s.data[projectID] {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots, nil
}
