package session

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/vine/pkg/domain"
)

// memSlots is the in-process fallback store used after a backend write
// failure. Snapshots are cloned on the way in and out.
type memSlots struct {
	mu   sync.RWMutex
	data map[string]*domain.Snapshot
}

func newMemSlots() *memSlots {
	return &memSlots{data: make(map[string]*domain.Snapshot)}
}

func (m *memSlots) Save(_ context.Context, projectID string, slot int, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[slotKey(projectID, slot)] = snap.Clone()
	return nil
}

func (m *memSlots) Load(_ context.Context, projectID string, slot int) (*domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.data[slotKey(projectID, slot)]
	if !ok {
		return nil, domain.ErrSlotEmpty
	}
	return snap.Clone(), nil
}

func (m *memSlots) Delete(_ context.Context, projectID string, slot int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, slotKey(projectID, slot))
	return nil
}

func (m *memSlots) List(_ context.Context, projectID string) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var slots []int
	for _, snap := range m.data {
		if snap.ProjectID == projectID {
			slots = append(slots, snap.Slot)
		}
	}
	sort.Ints(slots)
	return slots, nil
}
