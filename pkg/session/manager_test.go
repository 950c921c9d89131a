package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/ports"
	"github.com/aretw0/vine/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FlakyStore accepts writes until broken, then rejects every one.
type FlakyStore struct {
	mu     sync.Mutex
	broken bool
	data   map[string]*domain.Snapshot
}

func NewFlakyStore() *FlakyStore {
	return &FlakyStore{data: make(map[string]*domain.Snapshot)}
}

func (s *FlakyStore) Break() {
	s.mu.Lock()
	s.broken = true
	s.mu.Unlock()
}

func (s *FlakyStore) key(projectID string, slot int) string {
	return projectID + "/" + string(rune('0'+slot))
}

func (s *FlakyStore) Save(_ context.Context, projectID string, slot int, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken {
		return errors.New("disk full")
	}
	s.data[s.key(projectID, slot)] = snap
	return nil
}

func (s *FlakyStore) Load(_ context.Context, projectID string, slot int) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.data[s.key(projectID, slot)]
	if !ok {
		return nil, domain.ErrSlotEmpty
	}
	return snap, nil
}

func (s *FlakyStore) Delete(_ context.Context, projectID string, slot int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, s.key(projectID, slot))
	return nil
}

func (s *FlakyStore) List(_ context.Context, projectID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var slots []int
	for _, snap := range s.data {
		if snap.ProjectID == projectID {
			slots = append(slots, snap.Slot)
		}
	}
	return slots, nil
}

var _ ports.SlotStore = (*FlakyStore)(nil)

func snapAt(slot int, sceneID string) *domain.Snapshot {
	return &domain.Snapshot{
		Slot:      slot,
		ProjectID: "demo",
		SceneID:   sceneID,
		SavedAt:   time.Unix(2000, 0),
		Vars:      map[string]any{"gold": 12},
	}
}

func TestManager_FallbackOnWriteFailure(t *testing.T) {
	store := NewFlakyStore()
	mgr := session.NewManager(store)
	ctx := context.Background()

	// Healthy path hits the backend.
	require.NoError(t, mgr.Save(ctx, snapAt(0, "intro")))
	assert.False(t, mgr.Degraded())

	// A failing write must not surface to the player.
	store.Break()
	require.NoError(t, mgr.Save(ctx, snapAt(1, "forest")))
	assert.True(t, mgr.Degraded())

	// The degraded save is readable.
	snap, err := mgr.Load(ctx, "demo", 1)
	require.NoError(t, err)
	assert.Equal(t, "forest", snap.SceneID)

	// Pre-failure slots still load from the backend.
	snap, err = mgr.Load(ctx, "demo", 0)
	require.NoError(t, err)
	assert.Equal(t, "intro", snap.SceneID)
}

func TestManager_ListMergesWhenDegraded(t *testing.T) {
	store := NewFlakyStore()
	mgr := session.NewManager(store)
	ctx := context.Background()

	require.NoError(t, mgr.Save(ctx, snapAt(2, "intro")))
	store.Break()
	require.NoError(t, mgr.Save(ctx, snapAt(0, "forest")))

	slots, err := mgr.List(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, slots)
}

func TestManager_LoadEmptySlot(t *testing.T) {
	mgr := session.NewManager(NewFlakyStore())

	_, err := mgr.Load(context.Background(), "demo", 7)
	assert.ErrorIs(t, err, domain.ErrSlotEmpty)
}

func TestManager_DeleteWhenDegraded(t *testing.T) {
	store := NewFlakyStore()
	mgr := session.NewManager(store)
	ctx := context.Background()

	store.Break()
	require.NoError(t, mgr.Save(ctx, snapAt(3, "intro")))
	require.NoError(t, mgr.Delete(ctx, "demo", 3))

	_, err := mgr.Load(ctx, "demo", 3)
	assert.ErrorIs(t, err, domain.ErrSlotEmpty)
}

func TestManager_ConcurrentSaves(t *testing.T) {
	store := NewFlakyStore()
	mgr := session.NewManager(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, mgr.Save(ctx, snapAt(5, "intro")))
		}()
	}
	wg.Wait()

	snap, err := mgr.Load(ctx, "demo", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Slot)
}
