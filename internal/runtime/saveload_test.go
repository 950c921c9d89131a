package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vine/internal/runtime"
	"github.com/aretw0/vine/pkg/domain"
)

func savePointProject() *domain.Project {
	return &domain.Project{
		ID: "demo",
		Variables: []domain.Variable{
			{ID: "v_gold", Name: "gold", Type: domain.VarNumber, Default: 0},
		},
		Scenes: []domain.Scene{
			{ID: "intro", Name: "Intro", Commands: []domain.Command{
				{ID: "sv1", Type: domain.CmdSetVariable, VariableID: "v_gold", Operator: domain.OpSet, Value: 5},
				dialogueCmd("d1", "You have {gold} gold."),
				dialogueCmd("d2", "Later."),
				dialogueCmd("d3", "Done."),
			}},
		},
	}
}

func TestSaveLoad_RoundTripRestoresWaitingLine(t *testing.T) {
	rec := &hookRecorder{}
	s, _ := startSession(t, savePointProject(), runtime.WithHooks(rec.hooks()))
	ctx := context.Background()

	require.Equal(t, "You have 5 gold.", s.State().UI.Dialogue)
	require.NoError(t, s.Save(ctx, 1))

	require.NoError(t, s.Advance(ctx))
	require.NoError(t, s.Advance(ctx))
	require.Equal(t, "Done.", s.State().UI.Dialogue)
	require.Len(t, s.State().History, 3)

	require.NoError(t, s.Load(ctx, 1))

	st := s.State()
	assert.Equal(t, "intro", st.SceneID)
	assert.Equal(t, 1, st.Index)
	assert.Equal(t, domain.StatusWaitingForInput, st.Status)
	assert.Equal(t, "You have 5 gold.", st.UI.Dialogue)
	assert.Equal(t, float64(5), st.Vars["v_gold"])
	assert.Len(t, st.History, 1, "replaying the saved line must not duplicate it")
	assert.Contains(t, rec.all(), "save")
	assert.Contains(t, rec.all(), "load")

	// The restored session keeps playing normally.
	require.NoError(t, s.Advance(ctx))
	assert.Equal(t, "Later.", s.State().UI.Dialogue)
}

func TestSaveLoad_CommandsRederivedFromProject(t *testing.T) {
	eng, _ := newEngine(savePointProject())
	ctx := context.Background()

	s, err := eng.NewSession(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx))
	t.Cleanup(s.Close)

	require.NoError(t, s.Save(ctx, 0))

	// Strip the serialized command list, as a codec that stores only the
	// scene id would. Load must re-derive the list from the document.
	mgr := eng.Slots()
	snap, err := mgr.Load(ctx, "demo", 0)
	require.NoError(t, err)
	snap.Commands = nil
	require.NoError(t, mgr.Save(ctx, snap))

	require.NoError(t, s.Load(ctx, 0))
	st := s.State()
	assert.Equal(t, "intro", st.SceneID)
	assert.Equal(t, 1, st.Index)
	assert.Equal(t, "You have 5 gold.", st.UI.Dialogue)
}

func TestSaveLoad_SlotLifecycle(t *testing.T) {
	s, _ := startSession(t, savePointProject())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, 0))
	require.NoError(t, s.Save(ctx, 2))

	slots, err := s.Slots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, slots)

	require.NoError(t, s.DeleteSlot(ctx, 0))
	slots, err = s.Slots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, slots)

	err = s.Load(ctx, 5)
	assert.ErrorIs(t, err, domain.ErrSlotEmpty)
}

func TestSaveLoad_EngineResumesSavedSession(t *testing.T) {
	eng, _ := newEngine(savePointProject())
	ctx := context.Background()

	s1, err := eng.NewSession(ctx)
	require.NoError(t, err)
	require.NoError(t, s1.Start(ctx))
	require.NoError(t, s1.Advance(ctx))
	require.Equal(t, "Later.", s1.State().UI.Dialogue)
	require.NoError(t, s1.Save(ctx, 3))
	s1.Close()

	s2, err := eng.LoadSession(ctx, 3)
	require.NoError(t, err)
	t.Cleanup(s2.Close)

	st := s2.State()
	assert.Equal(t, "intro", st.SceneID)
	assert.Equal(t, 2, st.Index)
	assert.Equal(t, "Later.", st.UI.Dialogue)
	assert.Equal(t, float64(5), st.Vars["v_gold"])
	assert.NotEqual(t, s1.ID(), s2.ID())
}

func TestSaveLoad_LoadSessionEmptySlot(t *testing.T) {
	eng, _ := newEngine(savePointProject())
	_, err := eng.LoadSession(context.Background(), 9)
	assert.ErrorIs(t, err, domain.ErrSlotEmpty)
}

func TestSaveLoad_SaveDuringWaitReArmsTimer(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "w1", Type: domain.CmdWait, DurationMs: 2000},
				dialogueCmd("d1", "After the pause."),
			}},
		},
	}
	s, fc := startSession(t, p)
	ctx := context.Background()

	require.Equal(t, domain.StatusTransitioning, s.State().Status)
	require.NoError(t, s.Save(ctx, 1))

	fc.Advance(2 * time.Second)
	require.Equal(t, "After the pause.", s.State().UI.Dialogue)

	// Loading mid-wait re-dispatches the wait command and starts a fresh
	// timer; the old elapsed time does not count.
	require.NoError(t, s.Load(ctx, 1))
	assert.Equal(t, domain.StatusTransitioning, s.State().Status)

	fc.Advance(2 * time.Second)
	assert.Equal(t, "After the pause.", s.State().UI.Dialogue)
}

func TestSaveLoad_ChoicesRebuiltOnLoad(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Variables: []domain.Variable{
			{ID: "v_path", Name: "path", Type: domain.VarString, Default: ""},
		},
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "ch1", Type: domain.CmdChoice, Options: []domain.ChoiceOption{
					{ID: "o_a", Text: "Left", Set: []domain.Mutation{{VariableID: "v_path", Operator: domain.OpSet, Value: "left"}}},
					{ID: "o_b", Text: "Right", Set: []domain.Mutation{{VariableID: "v_path", Operator: domain.OpSet, Value: "right"}}},
				}},
				dialogueCmd("d1", "You went {path}."),
			}},
		},
	}
	s, _ := startSession(t, p)
	ctx := context.Background()

	require.Len(t, s.State().UI.Choices, 2)
	require.NoError(t, s.Save(ctx, 1))

	require.NoError(t, s.Choose(ctx, "o_a"))
	require.Equal(t, "You went left.", s.State().UI.Dialogue)

	require.NoError(t, s.Load(ctx, 1))
	st := s.State()
	require.Len(t, st.UI.Choices, 2, "the pending choice comes back")
	assert.Equal(t, "", st.Vars["v_path"], "the earlier pick is rolled back")

	require.NoError(t, s.Choose(ctx, "o_b"))
	assert.Equal(t, "You went right.", s.State().UI.Dialogue)
}

func TestSaveLoad_MusicOffsetStamped(t *testing.T) {
	p := &domain.Project{
		ID: "demo",
		Scenes: []domain.Scene{
			{ID: "intro", Commands: []domain.Command{
				{ID: "pm1", Type: domain.CmdPlayMusic, AssetID: "bgm_theme"},
				dialogueCmd("d1", "Listening."),
			}},
		},
	}
	eng, fc := newEngine(p)
	ctx := context.Background()

	s, err := eng.NewSession(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx))
	t.Cleanup(s.Close)

	fc.Advance(3 * time.Second)
	require.NoError(t, s.Save(ctx, 1))

	stored, err := eng.Slots().Load(ctx, "demo", 1)
	require.NoError(t, err)
	assert.Equal(t, "bgm_theme", stored.Music.Music.AssetID)
	assert.Equal(t, int64(3000), stored.Music.Music.OffsetMs)

	// Loading restores the channel bookkeeping.
	require.NoError(t, s.Load(ctx, 1))
	assert.Equal(t, "bgm_theme", s.State().Music.Music.AssetID)
}

// brokenStore refuses every write, standing in for a full disk.
type brokenStore struct{}

func (brokenStore) Save(context.Context, string, int, *domain.Snapshot) error {
	return errors.New("disk full")
}

func (brokenStore) Load(context.Context, string, int) (*domain.Snapshot, error) {
	return nil, domain.ErrSlotEmpty
}

func (brokenStore) Delete(context.Context, string, int) error { return nil }

func (brokenStore) List(context.Context, string) ([]int, error) { return nil, nil }

func TestSaveLoad_BackendFailureFallsBackInMemory(t *testing.T) {
	s, _ := startSession(t, savePointProject(), runtime.WithSlotStore(brokenStore{}))
	ctx := context.Background()

	// The player never sees the disk error.
	require.NoError(t, s.Save(ctx, 1))

	require.NoError(t, s.Advance(ctx))
	require.NoError(t, s.Load(ctx, 1))
	assert.Equal(t, "You have 5 gold.", s.State().UI.Dialogue)
}
