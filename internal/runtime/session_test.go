package runtime_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vine/internal/runtime"
	"github.com/aretw0/vine/internal/testutils"
	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/ports"
)

type staticLoader struct {
	project *domain.Project
}

func (l staticLoader) Load(context.Context) (*domain.Project, error) {
	return l.project, nil
}

// catalog is a map-backed asset resolver for tests.
type catalog map[string]ports.AssetMetadata

func (c catalog) ResolveURL(assetID string, _ ports.AssetKind) (string, bool) {
	if _, ok := c[assetID]; !ok {
		return "", false
	}
	return "assets/" + assetID, true
}

func (c catalog) Metadata(assetID string, _ ports.AssetKind) (ports.AssetMetadata, bool) {
	meta, ok := c[assetID]
	return meta, ok
}

// hookRecorder captures lifecycle events as compact strings.
type hookRecorder struct {
	mu     sync.Mutex
	events []string
}

func (h *hookRecorder) add(s string) {
	h.mu.Lock()
	h.events = append(h.events, s)
	h.mu.Unlock()
}

func (h *hookRecorder) all() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func (h *hookRecorder) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, e *domain.StepEvent) {
			h.add("dispatch:" + string(e.CommandType) + ":" + e.CommandID)
		},
		OnSceneEnter: func(_ context.Context, e *domain.SceneEvent) {
			h.add("enter:" + e.SceneID + ":" + e.Reason)
		},
		OnSceneLeave: func(_ context.Context, e *domain.SceneEvent) {
			h.add("leave:" + e.SceneID + ":" + e.Reason)
		},
		OnHandlerError: func(_ context.Context, e *domain.ErrorEvent) {
			h.add("error:" + e.CommandID)
		},
		OnBranchAnomaly: func(_ context.Context, e *domain.StepEvent) {
			h.add("anomaly:" + e.CommandID)
		},
		OnSave: func(_ context.Context, e *domain.SlotEvent) {
			h.add("save")
		},
		OnLoad: func(_ context.Context, e *domain.SlotEvent) {
			h.add("load")
		},
	}
}

func newEngine(p *domain.Project, opts ...runtime.Option) (*runtime.Engine, *testutils.FakeClock) {
	fc := testutils.NewFakeClock(time.Unix(1000, 0))
	base := []runtime.Option{
		runtime.WithClock(fc),
		runtime.WithRand(rand.New(rand.NewSource(7))),
	}
	return runtime.NewEngine(staticLoader{p}, append(base, opts...)...), fc
}

func startSession(t *testing.T, p *domain.Project, opts ...runtime.Option) (*runtime.Session, *testutils.FakeClock) {
	t.Helper()
	eng, fc := newEngine(p, opts...)
	s, err := eng.NewSession(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Close)
	return s, fc
}

func dialogueCmd(id, text string) domain.Command {
	return domain.Command{ID: id, Type: domain.CmdDialogue, Text: text}
}

func TestSession_DialogueAdvanceJump(t *testing.T) {
	rec := &hookRecorder{}
	p := &domain.Project{
		ID: "demo",
		Variables: []domain.Variable{
			{ID: "v_name", Name: "playerName", Type: domain.VarString, Default: "Rin"},
		},
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				dialogueCmd("d1", "Hello, {playerName}."),
				dialogueCmd("d2", "Ready?"),
				{ID: "j1", Type: domain.CmdJump, TargetSceneID: "forest"},
			}},
			{ID: "forest", Commands: []domain.Command{
				dialogueCmd("f1", "The forest is quiet."),
			}},
		},
	}
	s, _ := startSession(t, p, runtime.WithHooks(rec.hooks()))
	ctx := context.Background()

	st := s.State()
	assert.Equal(t, domain.StatusWaitingForInput, st.Status)
	assert.Equal(t, "Hello, Rin.", st.UI.Dialogue)
	assert.Equal(t, domain.Signature{SceneID: "intro", Index: 0, CommandID: "d1"}, st.LastDispatched)

	require.NoError(t, s.Advance(ctx))
	assert.Equal(t, "Ready?", s.State().UI.Dialogue)

	require.NoError(t, s.Advance(ctx))
	st = s.State()
	assert.Equal(t, "forest", st.SceneID)
	assert.Equal(t, 0, st.Index)
	assert.Equal(t, "The forest is quiet.", st.UI.Dialogue)
	assert.Empty(t, st.Stack)

	events := rec.all()
	assert.Contains(t, events, "dispatch:jump:j1")
	assert.Contains(t, events, "leave:intro:jump")
	assert.Contains(t, events, "enter:forest:jump")

	// History keeps every line shown so far.
	assert.Len(t, st.History, 3)
	assert.Equal(t, "The forest is quiet.", st.History[2].Text)
}

func TestSession_StepIsSingleAndIdempotent(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "s1", Type: domain.CmdSetVariable, VariableID: "v_gold", Operator: domain.OpAdd, Value: 1},
				dialogueCmd("d1", "hi"),
			}},
		},
	}
	eng, _ := newEngine(p)
	s, err := eng.NewSession(context.Background())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	ctx := context.Background()

	// One Step executes exactly one command.
	require.NoError(t, s.Step(ctx))
	st := s.State()
	assert.Equal(t, 1, st.Index)
	assert.Equal(t, float64(1), st.Vars["v_gold"])
	assert.NotEqual(t, domain.StatusWaitingForInput, st.Status)

	// The next Step dispatches the dialogue and suspends.
	require.NoError(t, s.Step(ctx))
	assert.Equal(t, domain.StatusWaitingForInput, s.State().Status)

	// Stepping a suspended session changes nothing.
	require.NoError(t, s.Step(ctx))
	require.NoError(t, s.Step(ctx))
	st = s.State()
	assert.Equal(t, 1, st.Index)
	assert.Equal(t, float64(1), st.Vars["v_gold"])
}

func TestSession_BranchSkip(t *testing.T) {
	mkProject := func(gold float64) *domain.Project {
		return &domain.Project{
			ID: "demo",
			Variables: []domain.Variable{
				{ID: "v_gold", Name: "gold", Type: domain.VarNumber, Default: gold},
			},
			Scenes: []domain.Scene{
				{ID: "intro", Commands: []domain.Command{
					{ID: "b1", Type: domain.CmdBranchStart, BranchID: "rich", Conditions: []domain.Condition{
						{VariableID: "v_gold", Operator: domain.OpGte, Value: 10},
					}},
					dialogueCmd("inside", "You can afford it."),
					{ID: "b1end", Type: domain.CmdBranchEnd, BranchID: "rich"},
					dialogueCmd("after", "Moving on."),
				}},
			},
		}
	}

	t.Run("false conditions skip to after the matching end", func(t *testing.T) {
		s, _ := startSession(t, mkProject(5))
		st := s.State()
		// Visited indices 0 then 3: the span body never dispatched.
		assert.Equal(t, 3, st.Index)
		assert.Equal(t, "Moving on.", st.UI.Dialogue)
		assert.Len(t, st.History, 1)
	})

	t.Run("true conditions fall into the span", func(t *testing.T) {
		s, _ := startSession(t, mkProject(25))
		st := s.State()
		assert.Equal(t, 1, st.Index)
		assert.Equal(t, "You can afford it.", st.UI.Dialogue)
	})
}

func TestSession_BranchWithoutEndAdvancesOne(t *testing.T) {
	rec := &hookRecorder{}
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "b1", Type: domain.CmdBranchStart, BranchID: "orphan", Conditions: []domain.Condition{
					{VariableID: "v_missing", Operator: domain.OpIsTrue},
				}},
				dialogueCmd("next", "Still here."),
			}},
		},
	}
	s, _ := startSession(t, p, runtime.WithHooks(rec.hooks()))

	st := s.State()
	assert.Equal(t, "Still here.", st.UI.Dialogue)
	assert.Contains(t, rec.all(), "anomaly:b1")
}

func TestSession_ConditionsSkipCommand(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Variables: []domain.Variable{
			{ID: "v_met", Name: "metRin", Type: domain.VarBoolean, Default: false},
		},
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "d1", Type: domain.CmdDialogue, Text: "Good to see you again.", Conditions: []domain.Condition{
					{VariableID: "v_met", Operator: domain.OpIsTrue},
				}},
				dialogueCmd("d2", "Nice to meet you."),
			}},
		},
	}
	s, _ := startSession(t, p)

	st := s.State()
	assert.Equal(t, "Nice to meet you.", st.UI.Dialogue)
	// The skipped command never reached the history.
	assert.Len(t, st.History, 1)
}

func TestSession_ChoiceFlow(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Variables: []domain.Variable{
			{ID: "v_gold", Name: "gold", Type: domain.VarNumber, Default: 3},
			{ID: "v_brave", Name: "brave", Type: domain.VarBoolean, Default: false},
		},
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "c1", Type: domain.CmdChoice, Text: "What do you do?", Options: []domain.ChoiceOption{
					{ID: "o_fight", Text: "Fight", LabelID: "l_fight", Set: []domain.Mutation{
						{VariableID: "v_brave", Operator: domain.OpSet, Value: true},
					}},
					{ID: "o_bribe", Text: "Bribe ({gold} gold)", Conditions: []domain.Condition{
						{VariableID: "v_gold", Operator: domain.OpGte, Value: 10},
					}},
					{ID: "o_flee", Text: "Flee", TargetSceneID: "fields"},
				}},
				dialogueCmd("d_after", "You hesitate."),
				{ID: "l_fight", Type: domain.CmdLabel, LabelID: "l_fight"},
				dialogueCmd("d_fight", "You draw your sword."),
			}},
			{ID: "fields", Commands: []domain.Command{dialogueCmd("d_flee", "You run.")}},
		},
	}
	s, _ := startSession(t, p)
	ctx := context.Background()

	st := s.State()
	require.Equal(t, domain.StatusWaitingForInput, st.Status)
	require.Len(t, st.UI.Choices, 2, "the gated option stays hidden")
	assert.Equal(t, "o_fight", st.UI.Choices[0].ID)
	assert.Equal(t, "What do you do?", st.UI.Dialogue)

	// A generic advance must not dismiss a pending choice.
	require.NoError(t, s.Advance(ctx))
	assert.Equal(t, domain.StatusWaitingForInput, s.State().Status)

	assert.ErrorIs(t, s.Choose(ctx, "o_bribe"), domain.ErrUnknownOption)

	require.NoError(t, s.Choose(ctx, "o_fight"))
	st = s.State()
	assert.Equal(t, true, st.Vars["v_brave"])
	assert.Equal(t, "You draw your sword.", st.UI.Dialogue)
	assert.Empty(t, st.UI.Choices)
	assert.Equal(t, "Fight", st.History[len(st.History)-2].Text)

	assert.ErrorIs(t, s.Choose(ctx, "o_fight"), domain.ErrNoPendingInput)
}

func TestSession_ChoiceWithNoVisibleOptionsSkips(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "c1", Type: domain.CmdChoice, Options: []domain.ChoiceOption{
					{ID: "o1", Text: "Secret", Conditions: []domain.Condition{
						{VariableID: "v_missing", Operator: domain.OpIsTrue},
					}},
				}},
				dialogueCmd("d1", "Nothing to decide."),
			}},
		},
	}
	s, _ := startSession(t, p)
	assert.Equal(t, "Nothing to decide.", s.State().UI.Dialogue)
}

func TestSession_TextInput(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Variables: []domain.Variable{
			{ID: "v_age", Name: "age", Type: domain.VarNumber},
		},
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "t1", Type: domain.CmdTextInput, Prompt: "How old are you?", VariableID: "v_age"},
				dialogueCmd("d1", "You are {age}."),
			}},
		},
	}
	s, _ := startSession(t, p)
	ctx := context.Background()

	st := s.State()
	assert.Equal(t, "How old are you?", st.UI.Prompt)
	assert.Equal(t, "v_age", st.UI.InputVariableID)

	// Only a text submission resumes the loop.
	require.NoError(t, s.Advance(ctx))
	assert.Equal(t, domain.StatusWaitingForInput, s.State().Status)

	require.NoError(t, s.SubmitText(ctx, "17"))
	st = s.State()
	assert.Equal(t, float64(17), st.Vars["v_age"], "declared number coerces the submission")
	assert.Equal(t, "", st.UI.Prompt)
	assert.Equal(t, "You are 17.", st.UI.Dialogue)

	assert.ErrorIs(t, s.SubmitText(ctx, "again"), domain.ErrNoPendingInput)
}

func TestSession_SetVariableAddOnAbsent(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "s1", Type: domain.CmdSetVariable, VariableID: "v_score", Operator: domain.OpAdd, Value: 5},
				dialogueCmd("d1", "done"),
			}},
		},
	}
	s, _ := startSession(t, p)
	// Absent treats as zero: the result is exactly the operand.
	assert.Equal(t, float64(5), s.State().Vars["v_score"])
}

func TestSession_EndGame(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "e1", Type: domain.CmdEndGame},
				dialogueCmd("d1", "never shown"),
			}},
			{ID: "extra", Commands: []domain.Command{dialogueCmd("x1", "never shown either")}},
		},
	}
	s, _ := startSession(t, p)
	ctx := context.Background()

	assert.Equal(t, domain.StatusEnded, s.State().Status)

	// Terminal state ignores further events.
	require.NoError(t, s.Advance(ctx))
	require.NoError(t, s.Step(ctx))
	assert.Equal(t, domain.StatusEnded, s.State().Status)
	assert.Empty(t, s.State().UI.Dialogue)
}

func TestSession_PanickingHookIsRecovered(t *testing.T) {
	rec := &hookRecorder{}
	hooks := rec.hooks()
	hooks.OnDispatch = func(_ context.Context, e *domain.StepEvent) {
		if e.CommandID == "boom" {
			panic("hook exploded")
		}
	}
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "boom", Type: domain.CmdSetVariable, VariableID: "v_x", Operator: domain.OpSet, Value: 1},
				dialogueCmd("d1", "Recovered."),
			}},
		},
	}
	s, _ := startSession(t, p, runtime.WithHooks(hooks))

	st := s.State()
	assert.Equal(t, "Recovered.", st.UI.Dialogue)
	// The failing command was skipped wholesale.
	_, wrote := st.Vars["v_x"]
	assert.False(t, wrote)
	assert.Contains(t, rec.all(), "error:boom")
}

func TestSession_UnknownCommandTypeSkipped(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "weird", Type: domain.CommandType("dance")},
				dialogueCmd("d1", "Still standing."),
			}},
		},
	}
	s, _ := startSession(t, p)
	assert.Equal(t, "Still standing.", s.State().UI.Dialogue)
}

func TestSession_ClosedSessionRejectsEvents(t *testing.T) {
	p := &domain.Project{
		ID:     "demo",
		Scenes: []domain.Scene{{ID: "intro", Commands: []domain.Command{dialogueCmd("d1", "hi")}}},
	}
	s, _ := startSession(t, p)
	s.Close()

	ctx := context.Background()
	assert.ErrorIs(t, s.Advance(ctx), domain.ErrSessionClosed)
	assert.ErrorIs(t, s.Step(ctx), domain.ErrSessionClosed)
	assert.ErrorIs(t, s.Choose(ctx, "x"), domain.ErrSessionClosed)
	assert.ErrorIs(t, s.SubmitText(ctx, "x"), domain.ErrSessionClosed)
	assert.ErrorIs(t, s.Save(ctx, 0), domain.ErrSessionClosed)
}

func TestSession_InterpolationLeavesUnknownVerbatim(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Variables: []domain.Variable{
			{ID: "v_name", Name: "playerName", Type: domain.VarString, Default: "Rin"},
		},
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				dialogueCmd("d1", "{playerName} meets {stranger}."),
			}},
		},
	}
	s, _ := startSession(t, p)
	assert.Equal(t, "Rin meets {stranger}.", s.State().UI.Dialogue)
}

func TestSession_PresenterSeesPatches(t *testing.T) {
	var mu sync.Mutex
	var patches []domain.StatePatch
	presenter := ports.PresenterFunc(func(patch domain.StatePatch, state *domain.PlayerState) {
		mu.Lock()
		defer mu.Unlock()
		if state == nil {
			t.Error("presenter received nil state")
		}
		patches = append(patches, patch)
	})

	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "s1", Type: domain.CmdSetVariable, VariableID: "v_gold", Operator: domain.OpSet, Value: 9},
				dialogueCmd("d1", "hello"),
			}},
		},
	}
	s, _ := startSession(t, p, runtime.WithPresenter(presenter))
	_ = s

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, patches, 2)
	assert.Equal(t, map[string]any{"v_gold": 9}, patches[0].Vars)
	require.NotNil(t, patches[1].UI)
	assert.Equal(t, "hello", patches[1].UI.Dialogue)
}
