package middleware_test

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string]*domain.Snapshot
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]*domain.Snapshot)}
}

func (s *MockStore) key(projectID string, slot int) string {
	return fmt.Sprintf("%s/%d", projectID, slot)
}

func (s *MockStore) Save(ctx context.Context, projectID string, slot int, snap *domain.Snapshot) error {
	s.data[s.key(projectID, slot)] = snap
	return nil
}

func (s *MockStore) Load(ctx context.Context, projectID string, slot int) (*domain.Snapshot, error) {
	snap, ok := s.data[s.key(projectID, slot)]
	if !ok {
		return nil, domain.ErrSlotEmpty
	}
	return snap, nil
}

func (s *MockStore) Delete(ctx context.Context, projectID string, slot int) error {
	delete(s.data, s.key(projectID, slot))
	return nil
}

func (s *MockStore) List(ctx context.Context, projectID string) ([]int, error) {
	var slots []int
	for k, snap := range s.data {
		if k == s.key(projectID, snap.Slot) {
			slots = append(slots, snap.Slot)
		}
	}
	sort.Ints(slots)
	return slots, nil
}

var _ ports.SlotStore = (*MockStore)(nil)
