package runtime

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/vine/internal/audio"
	"github.com/aretw0/vine/internal/eval"
	"github.com/aretw0/vine/internal/sched"
	"github.com/aretw0/vine/pkg/domain"
)

// maxStepsPerPump bounds one resume of the cooperative loop. An authored
// cycle with no wait in it would otherwise spin the goroutine forever; the
// loop parks instead and logs the runaway.
const maxStepsPerPump = 10000

// Session is one playthrough. All public methods are safe for concurrent
// use; internally a single mutex serializes the loop, timer callbacks, and
// input events, preserving the interpreter's single-threaded model.
type Session struct {
	id      string
	eng     *Engine
	project *domain.Project
	logger  *slog.Logger

	mu    sync.Mutex
	state *domain.PlayerState
	sched *sched.Scheduler
	audio *audio.Manager
	eval  *eval.Evaluator
	mut   *eval.Mutator

	// epoch invalidates scheduled callbacks that were claimed before a
	// scene transition but ran after it.
	epoch int64

	// waitFire is armed by a skippable wait: calling it resumes the loop
	// early, racing the timer with exactly-once semantics.
	waitFire func()

	// pendingMovie marks a blocking playMovie waiting for FinishMovie.
	pendingMovie bool

	closed bool
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Project returns the story document the session executes. Callers must
// treat it as read-only.
func (s *Session) Project() *domain.Project {
	return s.project
}

// State returns a deep copy of the live player state.
func (s *Session) State() *domain.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Status returns the current loop status.
func (s *Session) Status() domain.ExecutionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status
}

// Close stops the session: timers are canceled and audio stops. Further
// calls on the session return ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.waitFire = nil
	s.sched.CancelAll()
	s.audio.StopAll()
}

// Start begins cooperative execution from the idle state, running until
// the loop suspends on a wait, transition, or input request.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state.Status != domain.StatusIdle {
		return nil
	}
	s.pumpLocked(ctx)
	return nil
}

// Step advances exactly one logical step. Calling it while the loop is
// suspended, or again with unchanged position, is an idempotent no-op.
func (s *Session) Step(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	switch s.state.Status {
	case domain.StatusWaitingForInput, domain.StatusTransitioning, domain.StatusEnded:
		return nil
	}
	s.stepLocked(ctx)
	return nil
}

// Advance is the generic "player clicked" event. It resumes a waiting
// dialogue, skips a skippable wait, and is ignored whenever a more
// specific event (choose, submit, finish movie) is required.
func (s *Session) Advance(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}

	if s.state.Status == domain.StatusTransitioning {
		// A skippable wait armed waitFire; the scheduler claim makes the
		// race against the timer fire exactly once. Must run unlocked:
		// the resume path re-acquires the session lock.
		fire := s.waitFire
		s.waitFire = nil
		s.mu.Unlock()
		if fire != nil {
			fire()
		}
		return nil
	}
	defer s.mu.Unlock()

	switch s.state.Status {
	case domain.StatusIdle:
		s.pumpLocked(ctx)
	case domain.StatusWaitingForInput:
		if s.pendingMovie || len(s.state.UI.Choices) > 0 || s.state.UI.InputVariableID != "" {
			return nil
		}
		s.state.Status = domain.StatusExecuting
		s.state.Index++
		s.pumpLocked(ctx)
	}
	return nil
}

// Choose picks one of the pending choice options by id: its Set mutations
// apply, then its target resolves like a jump.
func (s *Session) Choose(ctx context.Context, optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state.Status != domain.StatusWaitingForInput || len(s.state.UI.Choices) == 0 {
		return domain.ErrNoPendingInput
	}

	var opt *domain.ChoiceOption
	for i := range s.state.UI.Choices {
		if s.state.UI.Choices[i].ID == optionID {
			opt = &s.state.UI.Choices[i]
			break
		}
	}
	if opt == nil {
		return domain.ErrUnknownOption
	}

	s.logger.Debug("choice picked", "option_id", opt.ID, "text", opt.Text)
	s.state.PushHistory(domain.HistoryEntry{Kind: "choice", Text: opt.Text, At: s.eng.clock.Now()})

	ui := s.state.UI.Clone()
	ui.Choices = nil
	s.applyPatch(domain.StatePatch{UI: &ui, Vars: s.applyMutations(opt.Set)})

	s.state.Status = domain.StatusExecuting
	s.navigateTarget(ctx, opt.TargetSceneID, opt.LabelID, "choice")
	s.pumpLocked(ctx)
	return nil
}

// SubmitText answers a pending text-input request. The value is coerced
// by the target variable's declared type.
func (s *Session) SubmitText(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state.Status != domain.StatusWaitingForInput || s.state.UI.InputVariableID == "" {
		return domain.ErrNoPendingInput
	}

	varID := s.state.UI.InputVariableID
	val := s.mut.Apply(domain.Mutation{VariableID: varID, Operator: domain.OpSet, Value: text}, s.state.Vars[varID])
	s.state.PushHistory(domain.HistoryEntry{Kind: "input", Text: text, At: s.eng.clock.Now()})

	ui := s.state.UI.Clone()
	ui.Prompt = ""
	ui.InputVariableID = ""
	s.applyPatch(domain.StatePatch{UI: &ui, Vars: map[string]any{varID: val}})

	s.state.Status = domain.StatusExecuting
	s.state.Index++
	s.pumpLocked(ctx)
	return nil
}

// UIAction activates a button overlay by action id (falling back to the
// overlay id). Buttons behave like ambient choices: Set mutations apply,
// then the target resolves. Buttons work in any non-terminal status.
func (s *Session) UIAction(ctx context.Context, actionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state.Status == domain.StatusEnded {
		return nil
	}

	var btn *domain.ButtonOverlay
	for i := range s.state.Stage.ButtonOverlays {
		b := &s.state.Stage.ButtonOverlays[i]
		if b.ActionID == actionID || b.ID == actionID {
			btn = b
			break
		}
	}
	if btn == nil {
		return domain.ErrUnknownOption
	}

	s.logger.Debug("ui action", "action_id", actionID)
	s.applyPatch(domain.StatePatch{Vars: s.applyMutations(btn.Set)})

	if btn.TargetSceneID != "" || btn.LabelID != "" {
		s.state.Status = domain.StatusExecuting
		s.navigateTarget(ctx, btn.TargetSceneID, btn.LabelID, "action")
	}
	s.pumpLocked(ctx)
	return nil
}

// FinishMovie is the presentation's movie-completed event. It clears the
// movie from the stage and, when the movie was blocking, resumes the loop.
func (s *Session) FinishMovie(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}

	if s.state.Stage.MovieID == "" && !s.pendingMovie {
		return nil
	}
	stage := s.state.Stage.Clone()
	stage.MovieID = ""
	stage.MovieURL = ""
	s.applyPatch(domain.StatePatch{Stage: &stage})

	if s.pendingMovie {
		s.pendingMovie = false
		s.state.Status = domain.StatusExecuting
		s.state.Index++
		s.pumpLocked(ctx)
	}
	return nil
}

// Save captures the session into a numbered slot. Audio offsets are
// stamped first so a later load resumes tracks near their position. A
// failing backend degrades to in-memory slots rather than surfacing.
func (s *Session) Save(ctx context.Context, slot int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	music := s.audio.StampOffsets()
	s.applyPatch(domain.StatePatch{Music: &music})

	sceneName := ""
	if sc := s.project.Scene(s.state.SceneID); sc != nil {
		sceneName = sc.DisplayName()
	}
	snap := domain.SnapshotOf(slot, sceneName, s.state, s.eng.clock.Now())
	s.mu.Unlock()

	err := s.eng.slots.Save(ctx, snap)
	s.emitSlot(ctx, domain.EventSave, slot, snap.SceneID, err != nil)
	if err != nil {
		s.logger.Error("save failed", "slot", slot, "err", err)
		return err
	}
	s.logger.Info("session saved", "slot", slot, "scene_id", snap.SceneID)
	return nil
}

// Load restores the session from a numbered slot, replacing the live
// state. The interrupted command re-dispatches on resume, which rebuilds
// the waiting UI without persisting any presentation internals.
func (s *Session) Load(ctx context.Context, slot int) error {
	snap, err := s.eng.slots.Load(ctx, s.project.ID, slot)
	if err != nil {
		s.emitSlot(ctx, domain.EventLoad, slot, "", true)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}

	s.sched.CancelAll()
	s.epoch++
	s.waitFire = nil
	s.pendingMovie = false

	s.state = snap.Restore(s.project)
	s.state.Music = s.audio.Restore(s.state.Music)

	// Full-state refresh for the presentation layer.
	stage := s.state.Stage.Clone()
	ui := s.state.UI.Clone()
	music := s.state.Music.Clone()
	vars := make(map[string]any, len(s.state.Vars))
	for k, v := range s.state.Vars {
		vars[k] = v
	}
	s.applyPatch(domain.StatePatch{Stage: &stage, UI: &ui, Music: &music, Vars: vars})

	s.logger.Info("session loaded", "slot", slot, "scene_id", s.state.SceneID, "index", s.state.Index)
	s.emitSlot(ctx, domain.EventLoad, slot, s.state.SceneID, false)
	s.emitScene(ctx, domain.EventSceneEnter, s.state.SceneID, "load")

	s.pumpLocked(ctx)
	return nil
}

// Slots lists the occupied save slots for this project.
func (s *Session) Slots(ctx context.Context) ([]int, error) {
	return s.eng.slots.List(ctx, s.project.ID)
}

// DeleteSlot empties a save slot.
func (s *Session) DeleteSlot(ctx context.Context, slot int) error {
	return s.eng.slots.Delete(ctx, s.project.ID, slot)
}

// applyPatch applies a state patch and notifies the presenter. Callers
// hold the session lock.
func (s *Session) applyPatch(p domain.StatePatch) {
	if p.Empty() {
		return
	}
	s.state.Apply(p)
	if s.eng.presenter != nil {
		s.eng.presenter.ApplyPatch(p, s.state)
	}
}

// applyMutations folds a Set list into a vars patch. Sequential mutations
// of the same variable compound within the list.
func (s *Session) applyMutations(muts []domain.Mutation) map[string]any {
	if len(muts) == 0 {
		return nil
	}
	vars := make(map[string]any, len(muts))
	for _, m := range muts {
		cur, ok := vars[m.VariableID]
		if !ok {
			cur = s.state.Vars[m.VariableID]
		}
		vars[m.VariableID] = s.mut.Apply(m, cur)
	}
	return vars
}

// guarded wraps a scheduled callback with the session lock and the epoch
// check, so callbacks claimed before a scene transition but running after
// it become no-ops. Callers hold the session lock.
func (s *Session) guarded(fn func()) func() {
	epoch := s.epoch
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.epoch != epoch {
			return
		}
		fn()
	}
}

// after schedules fn on the session scheduler, guarded. Callers hold the
// session lock; fn runs with it held.
func (s *Session) after(d time.Duration, fn func()) {
	s.sched.After(d, s.guarded(fn))
}

// pumpLocked resumes cooperative execution until the loop suspends.
func (s *Session) pumpLocked(ctx context.Context) {
	for steps := 0; ; steps++ {
		if s.closed {
			return
		}
		switch s.state.Status {
		case domain.StatusWaitingForInput, domain.StatusTransitioning, domain.StatusEnded:
			return
		}
		if steps >= maxStepsPerPump {
			s.logger.Warn("step budget exhausted, parking session",
				"scene_id", s.state.SceneID, "index", s.state.Index)
			s.state.Status = domain.StatusWaitingForInput
			return
		}
		if !s.stepLocked(ctx) {
			return
		}
	}
}
