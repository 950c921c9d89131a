package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/ports"
)

// SlotStoreContractTest is a reusable test suite that verifies an adapter
// complies with ports.SlotStore. Callers pass a fresh, empty store.
func SlotStoreContractTest(t *testing.T, store ports.SlotStore) {
	t.Helper()
	ctx := context.Background()
	const project = "contract-project"

	snap := func(slot int, scene string) *domain.Snapshot {
		return &domain.Snapshot{
			Slot:      slot,
			ProjectID: project,
			SceneID:   scene,
			SceneName: scene,
			SavedAt:   time.Now().UTC().Truncate(time.Second),
			Index:     2,
			Vars:      map[string]any{"gold": float64(12), "name": "rin"},
			Stack:     []domain.Frame{{SceneID: "caller", Index: 4}},
			Stage:     domain.NewStageState(),
			Music:     domain.NewMusicState(),
		}
	}

	t.Run("Load_EmptySlot", func(t *testing.T) {
		_, err := store.Load(ctx, project, 0)
		if !errors.Is(err, domain.ErrSlotEmpty) {
			t.Errorf("empty slot: got err %v, want domain.ErrSlotEmpty", err)
		}
	})

	t.Run("Save_Load_RoundTrip", func(t *testing.T) {
		in := snap(1, "forest")
		if err := store.Save(ctx, project, 1, in); err != nil {
			t.Fatalf("save: %v", err)
		}
		out, err := store.Load(ctx, project, 1)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if out.SceneID != in.SceneID || out.Index != in.Index {
			t.Errorf("round trip mismatch: got scene=%s index=%d", out.SceneID, out.Index)
		}
		if len(out.Stack) != 1 || out.Stack[0].SceneID != "caller" || out.Stack[0].Index != 4 {
			t.Errorf("stack not preserved: %+v", out.Stack)
		}
		if out.Vars["name"] != "rin" {
			t.Errorf("vars not preserved: %+v", out.Vars)
		}
	})

	t.Run("Save_Overwrites", func(t *testing.T) {
		if err := store.Save(ctx, project, 2, snap(2, "old")); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := store.Save(ctx, project, 2, snap(2, "new")); err != nil {
			t.Fatalf("save: %v", err)
		}
		out, err := store.Load(ctx, project, 2)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if out.SceneID != "new" {
			t.Errorf("slot not overwritten: got %s", out.SceneID)
		}
	})

	t.Run("List_Ascending", func(t *testing.T) {
		if err := store.Save(ctx, project, 7, snap(7, "late")); err != nil {
			t.Fatalf("save: %v", err)
		}
		slots, err := store.List(ctx, project)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		last := -1
		found := map[int]bool{}
		for _, s := range slots {
			if s <= last {
				t.Errorf("slots not strictly ascending: %v", slots)
				break
			}
			last = s
			found[s] = true
		}
		for _, want := range []int{1, 2, 7} {
			if !found[want] {
				t.Errorf("slot %d missing from list %v", want, slots)
			}
		}
	})

	t.Run("List_IsolatedByProject", func(t *testing.T) {
		slots, err := store.List(ctx, "some-other-project")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(slots) != 0 {
			t.Errorf("projects should not share slots, got %v", slots)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Save(ctx, project, 3, snap(3, "doomed")); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := store.Delete(ctx, project, 3); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := store.Load(ctx, project, 3); !errors.Is(err, domain.ErrSlotEmpty) {
			t.Errorf("deleted slot: got err %v, want domain.ErrSlotEmpty", err)
		}
		// Idempotent.
		if err := store.Delete(ctx, project, 3); err != nil {
			t.Errorf("deleting an empty slot should not error: %v", err)
		}
	})
}
