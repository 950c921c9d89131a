package runtime

import (
	"context"

	"github.com/aretw0/vine/pkg/domain"
)

// maxEntryHops bounds the entry-condition resolution chain. A cycle of
// mutually-refusing scenes fails open into the original target instead of
// spinning.
const maxEntryHops = 50

// resolveEntryScene resolves direct navigation to a scene id through entry
// conditions: a refusing scene redirects to its fallback, else to the next
// scene in declaration order. Dangling ids return nil; exhausted chains
// fail open into whatever scene the chain stopped at.
func (s *Session) resolveEntryScene(targetID string) *domain.Scene {
	target := s.project.Scene(targetID)
	if target == nil {
		s.logger.Warn("navigation target does not exist", "scene_id", targetID)
		return nil
	}

	sc := target
	for hop := 0; hop < maxEntryHops; hop++ {
		if s.eval.All(sc.Conditions, s.state.Vars) {
			if sc != target {
				s.logger.Debug("entry conditions redirected navigation",
					"requested", targetID, "resolved", sc.ID, "hops", hop)
			}
			return sc
		}

		var next *domain.Scene
		if sc.FallbackSceneID != "" {
			next = s.project.Scene(sc.FallbackSceneID)
			if next == nil {
				s.logger.Warn("fallback scene does not exist",
					"scene_id", sc.ID, "fallback", sc.FallbackSceneID)
			}
		}
		if next == nil {
			if idx := s.project.SceneIndex(sc.ID); idx >= 0 && idx+1 < len(s.project.Scenes) {
				next = &s.project.Scenes[idx+1]
			}
		}
		if next == nil {
			s.logger.Warn("no scene accepts entry, failing open into refusing scene",
				"requested", targetID, "resolved", sc.ID)
			return sc
		}
		sc = next
	}

	s.logger.Warn("entry resolution exceeded hop limit, failing open into target",
		"scene_id", targetID, "max_hops", maxEntryHops)
	return target
}

// enterScene transitions the loop into a scene: pending timers die, the
// command list is captured, and the dispatch signature resets so the first
// command runs fresh. Transient UI and screen effects do not cross scenes.
func (s *Session) enterScene(ctx context.Context, sc *domain.Scene, reason string, clearStack bool) {
	if s.state.SceneID != "" {
		s.emitScene(ctx, domain.EventSceneLeave, s.state.SceneID, reason)
	}

	s.sched.CancelAll()
	s.epoch++
	s.waitFire = nil
	s.pendingMovie = false

	if clearStack {
		s.state.Stack = nil
	}
	s.state.SceneID = sc.ID
	s.state.Commands = sc.Commands
	s.state.Index = 0
	s.state.LastDispatched = domain.Signature{}
	s.state.Status = domain.StatusExecuting

	ui := s.state.UI.Clone()
	ui.Speaker = ""
	ui.Dialogue = ""
	ui.Choices = nil
	ui.Prompt = ""
	ui.InputVariableID = ""
	stage := s.state.Stage.Clone()
	stage.Shake = 0
	stage.Flash = ""
	s.applyPatch(domain.StatePatch{UI: &ui, Stage: &stage})

	s.logger.Debug("scene entered", "scene_id", sc.ID, "reason", reason)
	s.emitScene(ctx, domain.EventSceneEnter, sc.ID, reason)
}

// popFrame resumes the calling scene at the command after the call site.
func (s *Session) popFrame(ctx context.Context) {
	n := len(s.state.Stack)
	frame := s.state.Stack[n-1]
	s.state.Stack = s.state.Stack[:n-1]

	s.emitScene(ctx, domain.EventSceneLeave, s.state.SceneID, "return")

	s.sched.CancelAll()
	s.epoch++
	s.waitFire = nil
	s.pendingMovie = false

	s.state.SceneID = frame.SceneID
	s.state.Commands = frame.Commands
	s.state.Index = frame.Index
	s.state.LastDispatched = domain.Signature{}
	s.state.Status = domain.StatusExecuting

	ui := s.state.UI.Clone()
	ui.Speaker = ""
	ui.Dialogue = ""
	ui.Choices = nil
	ui.Prompt = ""
	ui.InputVariableID = ""
	s.applyPatch(domain.StatePatch{UI: &ui})

	s.logger.Debug("returned to caller", "scene_id", frame.SceneID, "index", frame.Index)
	s.emitScene(ctx, domain.EventSceneEnter, frame.SceneID, "return")
}

// navigateTarget resolves a choice/button style target: a scene id wins
// over a label, and neither means fall through to the next command.
func (s *Session) navigateTarget(ctx context.Context, targetSceneID, labelID, reason string) {
	if targetSceneID != "" {
		if sc := s.resolveEntryScene(targetSceneID); sc != nil {
			s.enterScene(ctx, sc, reason, true)
			return
		}
		s.state.Index++
		return
	}
	if labelID != "" {
		if !s.jumpLabel(ctx, labelID) {
			s.state.Index++
		}
		return
	}
	s.state.Index++
}

// jumpLabel repositions the loop at a label marker. The scan targets the
// current scene, or the recorded caller scene when a screen overlay is
// open and execution moved on. Unknown labels report false; the caller
// falls through.
func (s *Session) jumpLabel(ctx context.Context, labelID string) bool {
	sceneID := s.state.SceneID
	commands := s.state.Commands

	if rs := s.state.UI.ScreenReturnSceneID; s.state.UI.ActiveScreenID != "" && rs != "" && rs != sceneID {
		if sc := s.project.Scene(rs); sc != nil {
			sceneID = sc.ID
			commands = sc.Commands
		}
	}

	idx := findLabel(commands, labelID)
	if idx < 0 {
		s.logger.Warn("label not found", "label_id", labelID, "scene_id", sceneID)
		return false
	}

	if sceneID != s.state.SceneID {
		// Crossing back into the recorded scene is a full transition.
		s.emitScene(ctx, domain.EventSceneLeave, s.state.SceneID, "jump")
		s.sched.CancelAll()
		s.epoch++
		s.waitFire = nil
		s.pendingMovie = false
		s.state.SceneID = sceneID
		s.state.Commands = commands
		s.state.LastDispatched = domain.Signature{}
		s.emitScene(ctx, domain.EventSceneEnter, sceneID, "jump")
	}

	// Landing on the marker itself is fine: dispatching it moves the
	// signature, so a label that is jumped to repeatedly keeps stepping.
	s.state.Index = idx
	s.state.Status = domain.StatusExecuting
	return true
}

// findLabel returns the index of a label command, or -1. Labels are local
// to one command list; there is no cross-scene label table.
func findLabel(commands []domain.Command, labelID string) int {
	for i := range commands {
		c := &commands[i]
		if c.Type != domain.CmdLabel {
			continue
		}
		if c.LabelID == labelID || c.Name == labelID || c.ID == labelID {
			return i
		}
	}
	return -1
}

// endStory terminates the playthrough: timers die, audio stops, and the
// status goes terminal.
func (s *Session) endStory(ctx context.Context) {
	s.sched.CancelAll()
	s.epoch++
	s.waitFire = nil
	s.pendingMovie = false
	s.audio.StopAll()
	s.state.Status = domain.StatusEnded

	s.logger.Info("story ended", "scene_id", s.state.SceneID, "index", s.state.Index)
	s.emitScene(ctx, domain.EventSceneLeave, s.state.SceneID, "end")
}
