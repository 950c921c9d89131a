package ports

import (
	"context"

	"github.com/aretw0/vine/pkg/domain"
)

// SlotStore defines the interface for persisting save slots. Slots are
// keyed by project id plus a small non-negative slot number.
type SlotStore interface {
	// Save persists a snapshot into a slot, overwriting any previous
	// occupant.
	Save(ctx context.Context, projectID string, slot int, snap *domain.Snapshot) error

	// Load retrieves the snapshot in a slot.
	// Returns domain.ErrSlotEmpty if the slot holds nothing.
	Load(ctx context.Context, projectID string, slot int) (*domain.Snapshot, error)

	// Delete empties a slot. Deleting an empty slot is not an error.
	Delete(ctx context.Context, projectID string, slot int) error

	// List returns the occupied slot numbers for a project, ascending.
	List(ctx context.Context, projectID string) ([]int, error)
}
