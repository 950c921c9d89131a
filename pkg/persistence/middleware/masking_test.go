package middleware_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/persistence/middleware"
)

func TestMaskingMiddleware_MasksMatchingVars(t *testing.T) {
	underlying := NewMockStore()
	mw := middleware.NewMaskingMiddleware([]string{`^v_player_`, `secret`})
	store := mw(underlying)

	ctx := context.Background()
	snap := &domain.Snapshot{
		Slot:      1,
		ProjectID: "story",
		SceneID:   "intro",
		Vars: map[string]any{
			"v_player_name": "Rin",
			"v_secret_code": "4711",
			"v_trust":       3,
		},
		History: []domain.HistoryEntry{
			{Kind: "dialogue", Text: "What is your name?", At: time.Now()},
			{Kind: "input", Text: "Rin", At: time.Now()},
		},
	}

	if err := store.Save(ctx, "story", 1, snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stored, err := underlying.Load(ctx, "story", 1)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Vars["v_player_name"] != "***" {
		t.Errorf("Expected v_player_name masked, got %v", stored.Vars["v_player_name"])
	}
	if stored.Vars["v_secret_code"] != "***" {
		t.Errorf("Expected v_secret_code masked, got %v", stored.Vars["v_secret_code"])
	}
	if stored.Vars["v_trust"] != 3 {
		t.Errorf("Expected v_trust untouched, got %v", stored.Vars["v_trust"])
	}
	if stored.History[0].Text != "What is your name?" {
		t.Errorf("Expected dialogue history untouched, got %q", stored.History[0].Text)
	}
	if stored.History[1].Text != "***" {
		t.Errorf("Expected typed input scrubbed, got %q", stored.History[1].Text)
	}

	// The caller's snapshot must not be mutated.
	if snap.Vars["v_player_name"] != "Rin" {
		t.Errorf("Caller snapshot was mutated: %v", snap.Vars["v_player_name"])
	}
	if snap.History[1].Text != "Rin" {
		t.Errorf("Caller history was mutated: %q", snap.History[1].Text)
	}
}

func TestMaskingMiddleware_NoMatchLeavesHistory(t *testing.T) {
	underlying := NewMockStore()
	store := middleware.NewMaskingMiddleware([]string{`^v_player_`})(underlying)

	ctx := context.Background()
	snap := &domain.Snapshot{
		Slot:      2,
		ProjectID: "story",
		Vars:      map[string]any{"v_trust": 1},
		History:   []domain.HistoryEntry{{Kind: "input", Text: "go east"}},
	}
	if err := store.Save(ctx, "story", 2, snap); err != nil {
		t.Fatal(err)
	}

	stored, _ := underlying.Load(ctx, "story", 2)
	if stored.History[0].Text != "go east" {
		t.Errorf("Expected input history untouched when nothing masked, got %q", stored.History[0].Text)
	}
}
