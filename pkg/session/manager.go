package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"log/slog"

	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates save-slot access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused slot locks.
//
// Writes go to the configured SlotStore. If a write fails the Manager flips
// into degraded mode: the failed snapshot and every later one land in an
// in-memory fallback store, and reads consult the fallback before the
// backend. Player progress survives the process even when the disk does not.
type Manager struct {
	store    ports.SlotStore
	fallback ports.SlotStore

	mu       sync.Mutex            // Global lock for the map and the degraded flag
	locks    map[string]*lockEntry // Map of active slot locks
	degraded bool

	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithFallback overrides the in-memory store used after a backend write
// failure. Mostly useful in tests.
func WithFallback(store ports.SlotStore) Option {
	return func(m *Manager) {
		m.fallback = store
	}
}

// NewManager creates a slot Manager on top of the given persistence store.
// A nil store starts the Manager directly in degraded (in-memory) mode.
func NewManager(store ports.SlotStore, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		fallback: newMemSlots(),
		locks:    make(map[string]*lockEntry),
		logger:   logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = m.fallback
	}
	return m
}

func slotKey(projectID string, slot int) string {
	return fmt.Sprintf("%s/%d", projectID, slot)
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after
// unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// Degraded reports whether the Manager has switched to in-memory saves.
func (m *Manager) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

func (m *Manager) setDegraded() {
	m.mu.Lock()
	m.degraded = true
	m.mu.Unlock()
}

// Save persists a snapshot into a slot. A backend write failure is absorbed:
// the Manager logs it, switches to the in-memory fallback and stores the
// snapshot there, so Save only errors when even the fallback rejects it.
func (m *Manager) Save(ctx context.Context, snap *domain.Snapshot) error {
	return m.WithLock(ctx, snap.ProjectID, snap.Slot, func(ctx context.Context) error {
		if m.Degraded() {
			return m.fallback.Save(ctx, snap.ProjectID, snap.Slot, snap)
		}
		if err := m.store.Save(ctx, snap.ProjectID, snap.Slot, snap); err != nil {
			m.logger.Warn("Save backend failed, switching to in-memory slots",
				"project_id", snap.ProjectID,
				"slot", snap.Slot,
				"err", err,
			)
			m.setDegraded()
			return m.fallback.Save(ctx, snap.ProjectID, snap.Slot, snap)
		}
		return nil
	})
}

// Load retrieves the snapshot in a slot. In degraded mode the in-memory
// fallback wins, but slots written before the backend failed are still
// served from the backend.
func (m *Manager) Load(ctx context.Context, projectID string, slot int) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, projectID, slot, func(ctx context.Context) error {
		var err error
		if m.Degraded() {
			snap, err = m.fallback.Load(ctx, projectID, slot)
			if err == nil || err != domain.ErrSlotEmpty {
				return err
			}
		}
		snap, err = m.store.Load(ctx, projectID, slot)
		return err
	})
	return snap, err
}

// Delete empties a slot in whichever stores currently hold data for it.
func (m *Manager) Delete(ctx context.Context, projectID string, slot int) error {
	return m.WithLock(ctx, projectID, slot, func(ctx context.Context) error {
		if m.Degraded() {
			if err := m.fallback.Delete(ctx, projectID, slot); err != nil {
				return err
			}
			// Best effort: the backend may have recovered, or may still
			// hold a pre-failure copy of the slot.
			if err := m.store.Delete(ctx, projectID, slot); err != nil {
				m.logger.Warn("Delete on degraded backend failed",
					"project_id", projectID,
					"slot", slot,
					"err", err,
				)
			}
			return nil
		}
		return m.store.Delete(ctx, projectID, slot)
	})
}

// List returns the occupied slot numbers for a project, ascending. In
// degraded mode it merges backend and fallback slots.
func (m *Manager) List(ctx context.Context, projectID string) ([]int, error) {
	if !m.Degraded() {
		return m.store.List(ctx, projectID)
	}

	slots, err := m.fallback.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	backend, err := m.store.List(ctx, projectID)
	if err != nil {
		m.logger.Warn("List on degraded backend failed", "project_id", projectID, "err", err)
		return slots, nil
	}

	seen := make(map[int]bool, len(slots))
	for _, s := range slots {
		seen[s] = true
	}
	for _, s := range backend {
		if !seen[s] {
			slots = append(slots, s)
			seen[s] = true
		}
	}
	sort.Ints(slots)
	return slots, nil
}

// Store returns the underlying slot store.
func (m *Manager) Store() ports.SlotStore {
	return m.store
}

// WithLock executes a function while holding the lock for one slot.
func (m *Manager) WithLock(ctx context.Context, projectID string, slot int, fn func(context.Context) error) error {
	key := slotKey(projectID, slot)
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	return fn(ctx)
}
