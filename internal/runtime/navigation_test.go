package runtime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vine/internal/runtime"
	"github.com/aretw0/vine/pkg/domain"
)

func TestNavigation_EntryConditionsRedirectToFallback(t *testing.T) {
	rec := &hookRecorder{}
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "j1", Type: domain.CmdJump, TargetSceneID: "vault"},
			}},
			{
				ID:              "vault",
				Conditions:      []domain.Condition{{VariableID: "v_key", Operator: domain.OpIsTrue}},
				FallbackSceneID: "locked_out",
				Commands:        []domain.Command{dialogueCmd("d1", "Treasure!")},
			},
			{ID: "locked_out", Commands: []domain.Command{
				dialogueCmd("d2", "The door holds fast."),
			}},
		},
	}
	s, _ := startSession(t, p, runtime.WithHooks(rec.hooks()))

	st := s.State()
	assert.Equal(t, "locked_out", st.SceneID)
	assert.Equal(t, "The door holds fast.", st.UI.Dialogue)
	assert.Contains(t, rec.all(), "enter:locked_out:jump")
}

func TestNavigation_RefusalCycleFailsOpenIntoTarget(t *testing.T) {
	refuse := []domain.Condition{{VariableID: "v_never", Operator: domain.OpIsTrue}}
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "j1", Type: domain.CmdJump, TargetSceneID: "a"},
			}},
			{ID: "a", Conditions: refuse, FallbackSceneID: "b",
				Commands: []domain.Command{dialogueCmd("d1", "Inside A.")}},
			{ID: "b", Conditions: refuse, FallbackSceneID: "a",
				Commands: []domain.Command{dialogueCmd("d2", "Inside B.")}},
		},
	}
	s, _ := startSession(t, p)

	st := s.State()
	assert.Equal(t, "a", st.SceneID)
	assert.Equal(t, "Inside A.", st.UI.Dialogue)
}

func TestNavigation_NextDeclaredSkipsRefusingScene(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{dialogueCmd("d0", "Moving on.")}},
			{
				ID:         "gated",
				Conditions: []domain.Condition{{VariableID: "v_vip", Operator: domain.OpIsTrue}},
				Commands:   []domain.Command{dialogueCmd("d1", "VIP only.")},
			},
			{ID: "open", Commands: []domain.Command{dialogueCmd("d2", "Welcome all.")}},
		},
	}
	s, _ := startSession(t, p)
	ctx := context.Background()

	require.NoError(t, s.Advance(ctx))
	st := s.State()
	assert.Equal(t, "open", st.SceneID)
	assert.Equal(t, "Welcome all.", st.UI.Dialogue)
}

func TestNavigation_CallAndReturn(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				dialogueCmd("d1", "Before."),
				{ID: "c1", Type: domain.CmdCallScene, TargetSceneID: "aside"},
				dialogueCmd("d2", "After."),
			}},
			{ID: "aside", Commands: []domain.Command{
				dialogueCmd("d3", "An aside."),
				{ID: "r1", Type: domain.CmdReturnToCaller},
			}},
		},
	}
	s, _ := startSession(t, p)
	ctx := context.Background()

	require.NoError(t, s.Advance(ctx))
	st := s.State()
	assert.Equal(t, "aside", st.SceneID)
	assert.Equal(t, "An aside.", st.UI.Dialogue)
	require.Len(t, st.Stack, 1)
	assert.Equal(t, "intro", st.Stack[0].SceneID)
	assert.Equal(t, 2, st.Stack[0].Index)

	require.NoError(t, s.Advance(ctx))
	st = s.State()
	assert.Equal(t, "intro", st.SceneID)
	assert.Equal(t, 2, st.Index)
	assert.Equal(t, "After.", st.UI.Dialogue)
	assert.Empty(t, st.Stack)
}

func TestNavigation_EndOfCalledScenePopsFrame(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "c1", Type: domain.CmdCallScene, TargetSceneID: "aside"},
				dialogueCmd("d2", "Back home."),
			}},
			{ID: "aside", Commands: []domain.Command{
				dialogueCmd("d3", "Brief detour."),
			}},
		},
	}
	s, _ := startSession(t, p)
	ctx := context.Background()

	require.Equal(t, "aside", s.State().SceneID)
	require.NoError(t, s.Advance(ctx))

	st := s.State()
	assert.Equal(t, "intro", st.SceneID)
	assert.Equal(t, "Back home.", st.UI.Dialogue)
	assert.Empty(t, st.Stack)
}

func TestNavigation_ReturnWithEmptyStackAdvances(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "r1", Type: domain.CmdReturnToCaller},
				dialogueCmd("d1", "Still here."),
			}},
		},
	}
	s, _ := startSession(t, p)

	st := s.State()
	assert.Equal(t, "intro", st.SceneID)
	assert.Equal(t, "Still here.", st.UI.Dialogue)
}

func TestNavigation_UnknownLabelFallsThrough(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "jl1", Type: domain.CmdJumpToLabel, LabelID: "nowhere"},
				dialogueCmd("d1", "Fell through."),
			}},
		},
	}
	s, _ := startSession(t, p)
	assert.Equal(t, "Fell through.", s.State().UI.Dialogue)
}

func TestNavigation_LabelLoopCountsUp(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Variables: []domain.Variable{
			{ID: "v_n", Name: "n", Type: domain.VarNumber, Default: 0},
		},
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "top", Type: domain.CmdLabel, LabelID: "top"},
				{ID: "inc", Type: domain.CmdSetVariable, VariableID: "v_n", Operator: domain.OpAdd, Value: 1},
				{ID: "b1", Type: domain.CmdBranchStart, BranchID: "b1",
					Conditions: []domain.Condition{{VariableID: "v_n", Operator: domain.OpLt, Value: 3}}},
				{ID: "again", Type: domain.CmdJumpToLabel, LabelID: "top"},
				{ID: "b1end", Type: domain.CmdBranchEnd, BranchID: "b1"},
				dialogueCmd("done", "Counted to {n}."),
			}},
		},
	}
	s, _ := startSession(t, p)

	st := s.State()
	assert.Equal(t, float64(3), st.Vars["v_n"])
	assert.Equal(t, "Counted to 3.", st.UI.Dialogue)
}

func TestNavigation_JumpClearsCallStack(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "c1", Type: domain.CmdCallScene, TargetSceneID: "aside"},
			}},
			{ID: "aside", Commands: []domain.Command{
				dialogueCmd("d1", "In the aside."),
				{ID: "j1", Type: domain.CmdJump, TargetSceneID: "elsewhere"},
			}},
			{ID: "elsewhere", Commands: []domain.Command{
				dialogueCmd("d2", "Free."),
			}},
		},
	}
	s, _ := startSession(t, p)
	ctx := context.Background()

	require.Len(t, s.State().Stack, 1)
	require.NoError(t, s.Advance(ctx))

	st := s.State()
	assert.Equal(t, "elsewhere", st.SceneID)
	assert.Empty(t, st.Stack, "a hard jump abandons pending returns")
}

func TestNavigation_SceneEntryClearsTransientUI(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				dialogueCmd("d1", "Old line."),
				{ID: "j1", Type: domain.CmdJump, TargetSceneID: "blank"},
			}},
			{ID: "blank", Commands: []domain.Command{
				{ID: "w1", Type: domain.CmdWait, DurationMs: 1000},
			}},
		},
	}
	s, _ := startSession(t, p)
	ctx := context.Background()

	require.Equal(t, "Old line.", s.State().UI.Dialogue)
	require.NoError(t, s.Advance(ctx))

	st := s.State()
	assert.Equal(t, "blank", st.SceneID)
	assert.Equal(t, "", st.UI.Dialogue)
	assert.Equal(t, "", st.UI.Speaker)
}

func TestNavigation_ScreenLabelJumpReturnsToRecordedScene(t *testing.T) {
	rec := &hookRecorder{}
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "hub", Commands: []domain.Command{
				{ID: "scr", Type: domain.CmdShowScreen, ScreenID: "menu"},
				{ID: "btn", Type: domain.CmdShowButtonOverlay, OverlayID: "b_stats", Text: "Stats", LabelID: "l_stats"},
				{ID: "j1", Type: domain.CmdJump, TargetSceneID: "other"},
				{ID: "lbl", Type: domain.CmdLabel, LabelID: "l_stats"},
				dialogueCmd("ds", "Stats!"),
			}},
			{ID: "other", Commands: []domain.Command{
				dialogueCmd("do", "Elsewhere."),
			}},
		},
	}
	s, _ := startSession(t, p, runtime.WithHooks(rec.hooks()))
	ctx := context.Background()

	st := s.State()
	require.Equal(t, "other", st.SceneID)
	require.Equal(t, "menu", st.UI.ActiveScreenID)
	require.Equal(t, "hub", st.UI.ScreenReturnSceneID)
	require.Len(t, st.Stage.ButtonOverlays, 1)

	// The button's label lives in the scene that opened the screen, not in
	// the scene the loop has since moved to.
	require.NoError(t, s.UIAction(ctx, "b_stats"))
	st = s.State()
	assert.Equal(t, "hub", st.SceneID)
	assert.Equal(t, "Stats!", st.UI.Dialogue)
	assert.Equal(t, "menu", st.UI.ActiveScreenID, "the screen stays open across the jump")
	assert.Contains(t, rec.all(), "enter:hub:jump")
}

func TestNavigation_HideScreenClearsRecord(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "scr", Type: domain.CmdShowScreen, ScreenID: "map"},
				dialogueCmd("d1", "Pick a place."),
				{ID: "hs", Type: domain.CmdHideScreen},
				dialogueCmd("d2", "Closed."),
			}},
		},
	}
	s, _ := startSession(t, p)
	ctx := context.Background()

	require.Equal(t, "map", s.State().UI.ActiveScreenID)
	require.NoError(t, s.Advance(ctx))

	st := s.State()
	assert.Equal(t, "", st.UI.ActiveScreenID)
	assert.Equal(t, "", st.UI.ScreenReturnSceneID)
}

func TestNavigation_StoryEndsAfterLastScene(t *testing.T) {
	rec := &hookRecorder{}
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "finale", Commands: []domain.Command{dialogueCmd("d1", "The end.")}},
		},
	}
	s, _ := startSession(t, p, runtime.WithHooks(rec.hooks()))
	ctx := context.Background()

	require.NoError(t, s.Advance(ctx))
	assert.Equal(t, domain.StatusEnded, s.State().Status)
	assert.Contains(t, rec.all(), "leave:finale:end")

	// Terminal sessions ignore further input.
	require.NoError(t, s.Advance(ctx))
	assert.Equal(t, domain.StatusEnded, s.State().Status)
}

func TestNavigation_StartSceneHonorsExplicitID(t *testing.T) {
	p := &domain.Project{
		ID:           "demo",
		StartSceneID: "second",
		Scenes: []domain.Scene{
			{ID: "first", Commands: []domain.Command{dialogueCmd("d1", "Wrong door.")}},
			{ID: "second", Commands: []domain.Command{dialogueCmd("d2", "Right door.")}},
		},
	}
	s, _ := startSession(t, p)
	assert.Equal(t, "second", s.State().SceneID)
	assert.Equal(t, "Right door.", s.State().UI.Dialogue)
}
