package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/vine/pkg/domain"
)

// stepMode tells the loop what to do after a handler ran.
type stepMode int

const (
	// modeAdvance applies the patch and moves to the next command.
	modeAdvance stepMode = iota
	// modeStay applies the patch and leaves position alone; the handler
	// already repositioned the loop (jump, call, return).
	modeStay
	// modeWait applies the patch and suspends until an input event.
	modeWait
	// modeDelay applies the patch and schedules after() on the session
	// scheduler. Blocking unless the command is async.
	modeDelay
	// modeEnded applies the patch and terminates the story.
	modeEnded
)

// stepResult is one handler's outcome.
type stepResult struct {
	patch domain.StatePatch
	mode  stepMode

	// modeDelay parameters. after runs under the session lock when the
	// timer fires; skippable lets a plain advance race the timer.
	delay     time.Duration
	after     func()
	skippable bool
}

func advance(patch domain.StatePatch) stepResult {
	return stepResult{patch: patch, mode: modeAdvance}
}

func stay() stepResult {
	return stepResult{mode: modeStay}
}

func wait(patch domain.StatePatch) stepResult {
	return stepResult{patch: patch, mode: modeWait}
}

// stepLocked executes one logical step. It returns true when the loop may
// continue pumping and false when it suspended or suppressed the step.
func (s *Session) stepLocked(ctx context.Context) bool {
	cmd := s.state.Current()
	if cmd == nil {
		return s.endOfList(ctx)
	}

	sig := domain.Signature{SceneID: s.state.SceneID, Index: s.state.Index, CommandID: cmd.ID}
	if sig == s.state.LastDispatched {
		s.logger.Debug("duplicate step suppressed",
			"scene_id", sig.SceneID, "index", sig.Index, "command_id", sig.CommandID)
		return false
	}

	// Branch markers own their condition evaluation: a false branchStart
	// skips the whole span, not just the marker.
	if cmd.Type == domain.CmdBranchStart {
		return s.branchStep(ctx, cmd)
	}

	if len(cmd.Conditions) > 0 && !s.eval.All(cmd.Conditions, s.state.Vars) {
		s.logger.Debug("command skipped by conditions",
			"command_id", cmd.ID, "type", string(cmd.Type), "index", s.state.Index)
		s.state.Index++
		return true
	}

	s.state.Status = domain.StatusExecuting
	s.state.LastDispatched = sig

	res, panicked := s.runHandler(ctx, cmd)
	if panicked {
		// A failing command is logged and skipped, never a stuck session.
		s.state.Index++
		return true
	}
	return s.applyResult(ctx, cmd, res)
}

// runHandler dispatches one command with panic recovery around both the
// dispatch hook and the handler itself.
func (s *Session) runHandler(ctx context.Context, cmd *domain.Command) (res stepResult, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("command handler panicked",
				"type", string(cmd.Type), "command_id", cmd.ID,
				"scene_id", s.state.SceneID, "index", s.state.Index, "err", r)
			s.emitHandlerError(ctx, cmd, fmt.Sprintf("%v", r))
			panicked = true
		}
	}()

	s.emitStep(ctx, domain.EventDispatch, cmd)
	return s.dispatch(ctx, cmd), false
}

// branchStep evaluates a branchStart. True conditions drop into the span;
// false conditions resume after the matching branchEnd. A span with no
// matching end is an authoring defect: advance one command and keep going.
func (s *Session) branchStep(ctx context.Context, cmd *domain.Command) bool {
	if s.eval.All(cmd.Conditions, s.state.Vars) {
		s.state.Index++
		return true
	}

	for i := s.state.Index + 1; i < len(s.state.Commands); i++ {
		c := &s.state.Commands[i]
		if c.Type == domain.CmdBranchEnd && c.BranchID == cmd.BranchID {
			s.state.Index = i + 1
			return true
		}
	}

	s.logger.Warn("branch has no matching end, advancing past marker",
		"branch_id", cmd.BranchID, "scene_id", s.state.SceneID, "index", s.state.Index)
	s.emitStep(ctx, domain.EventBranchAnomaly, cmd)
	s.state.Index++
	return true
}

// endOfList applies the end-of-scene policy: resume the calling frame,
// else flow into the next declared scene, else end the story.
func (s *Session) endOfList(ctx context.Context) bool {
	if len(s.state.Stack) > 0 {
		s.popFrame(ctx)
		return true
	}

	idx := s.project.SceneIndex(s.state.SceneID)
	if idx >= 0 && idx+1 < len(s.project.Scenes) {
		next := s.resolveEntryScene(s.project.Scenes[idx+1].ID)
		if next != nil {
			s.enterScene(ctx, next, "next", false)
			return true
		}
	}

	s.endStory(ctx)
	return false
}

// dispatch routes one command to its handler.
func (s *Session) dispatch(ctx context.Context, cmd *domain.Command) stepResult {
	switch cmd.Type {
	case domain.CmdDialogue:
		return s.handleDialogue(cmd)
	case domain.CmdClearDialogue:
		return s.handleClearDialogue(cmd)
	case domain.CmdChoice:
		return s.handleChoice(cmd)
	case domain.CmdTextInput:
		return s.handleTextInput(cmd)
	case domain.CmdSetVariable:
		return s.handleSetVariable(cmd)
	case domain.CmdWait:
		return s.handleWait(cmd)
	case domain.CmdLabel, domain.CmdGroup, domain.CmdBranchEnd:
		// Markers: no runtime effect beyond occupying an index.
		return advance(domain.StatePatch{})
	case domain.CmdJump:
		return s.handleJump(ctx, cmd)
	case domain.CmdJumpToLabel:
		return s.handleJumpToLabel(ctx, cmd)
	case domain.CmdCallScene:
		return s.handleCallScene(ctx, cmd)
	case domain.CmdReturnToCaller:
		return s.handleReturnToCaller(ctx, cmd)
	case domain.CmdEndGame:
		return stepResult{mode: modeEnded}

	case domain.CmdSetBackground:
		return s.handleSetBackground(cmd)
	case domain.CmdShowCharacter:
		return s.handleShowCharacter(cmd)
	case domain.CmdHideCharacter:
		return s.handleHideCharacter(cmd)
	case domain.CmdHideAllCharacters:
		return s.handleHideAllCharacters(cmd)
	case domain.CmdPlayMovie:
		return s.handlePlayMovie(cmd)

	case domain.CmdPlayMusic:
		return s.handlePlayMusic(cmd)
	case domain.CmdStopMusic:
		return s.handleStopMusic(cmd)
	case domain.CmdPlaySoundEffect:
		return s.handlePlaySoundEffect(cmd)

	case domain.CmdShakeScreen:
		return s.handleShakeScreen(cmd)
	case domain.CmdFlashScreen:
		return s.handleFlashScreen(cmd)
	case domain.CmdTintScreen:
		return s.handleTintScreen(cmd)
	case domain.CmdPanZoom:
		return s.handlePanZoom(cmd)

	case domain.CmdShowTextOverlay:
		return s.handleShowTextOverlay(cmd)
	case domain.CmdHideTextOverlay:
		return s.handleHideTextOverlay(cmd)
	case domain.CmdShowImageOverlay:
		return s.handleShowImageOverlay(cmd)
	case domain.CmdHideImageOverlay:
		return s.handleHideImageOverlay(cmd)
	case domain.CmdShowButtonOverlay:
		return s.handleShowButtonOverlay(cmd)
	case domain.CmdHideButtonOverlay:
		return s.handleHideButtonOverlay(cmd)
	case domain.CmdShowScreen:
		return s.handleShowScreen(cmd)
	case domain.CmdHideScreen:
		return s.handleHideScreen(cmd)

	default:
		s.logger.Warn("unknown command type skipped",
			"type", string(cmd.Type), "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}
}

// applyResult applies a handler outcome to the loop.
func (s *Session) applyResult(ctx context.Context, cmd *domain.Command, res stepResult) bool {
	s.applyPatch(res.patch)

	switch res.mode {
	case modeStay:
		return true

	case modeWait:
		s.state.Status = domain.StatusWaitingForInput
		return false

	case modeEnded:
		s.endStory(ctx)
		return false

	case modeDelay:
		if cmd.Async {
			// Fire-and-forget: the callback still runs and applies its
			// own patch, but the loop does not wait for it.
			if res.after != nil {
				s.after(res.delay, res.after)
			}
			s.state.Index++
			return true
		}
		s.state.Status = domain.StatusTransitioning
		resume := func() {
			if res.after != nil {
				res.after()
			}
			s.state.Status = domain.StatusExecuting
			s.state.Index++
			s.pumpLocked(context.Background())
		}
		if res.skippable {
			s.waitFire = s.sched.Race(res.delay, s.guarded(resume))
		} else {
			s.after(res.delay, resume)
		}
		return false

	default: // modeAdvance
		s.state.Index++
		return true
	}
}
