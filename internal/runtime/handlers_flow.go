package runtime

import (
	"context"
	"time"

	"github.com/aretw0/vine/internal/eval"
	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/ports"
)

// speakerName resolves a character id to the display name shown in the
// dialogue window.
func (s *Session) speakerName(characterID string) string {
	if characterID == "" {
		return ""
	}
	if s.eng.assets != nil {
		if meta, ok := s.eng.assets.Metadata(characterID, ports.AssetCharacter); ok && meta.Name != "" {
			return meta.Name
		}
	}
	return characterID
}

func (s *Session) handleDialogue(cmd *domain.Command) stepResult {
	text := eval.Interpolate(cmd.Text, s.project, s.state.Vars)
	speaker := s.speakerName(cmd.CharacterID)

	// Re-dispatch after a load replays the line; only log it once.
	if n := len(s.state.History); n == 0 || s.state.History[n-1].Kind != "dialogue" ||
		s.state.History[n-1].Text != text || s.state.History[n-1].Speaker != speaker {
		s.state.PushHistory(domain.HistoryEntry{
			Kind: "dialogue", Speaker: speaker, Text: text, At: s.eng.clock.Now(),
		})
	}

	ui := s.state.UI.Clone()
	ui.Speaker = speaker
	ui.Dialogue = text

	patch := domain.StatePatch{UI: &ui}
	if cmd.VoiceAssetID != "" {
		music := s.audio.PlaySFX(cmd.VoiceAssetID, nil)
		patch.Music = &music
	}
	return wait(patch)
}

func (s *Session) handleClearDialogue(*domain.Command) stepResult {
	ui := s.state.UI.Clone()
	ui.Speaker = ""
	ui.Dialogue = ""
	return advance(domain.StatePatch{UI: &ui})
}

func (s *Session) handleChoice(cmd *domain.Command) stepResult {
	visible := make([]domain.ChoiceOption, 0, len(cmd.Options))
	for _, opt := range cmd.Options {
		if !s.eval.All(opt.Conditions, s.state.Vars) {
			continue
		}
		opt.Text = eval.Interpolate(opt.Text, s.project, s.state.Vars)
		visible = append(visible, opt)
	}
	if len(visible) == 0 {
		s.logger.Warn("choice has no visible options, skipping",
			"command_id", cmd.ID, "scene_id", s.state.SceneID)
		return advance(domain.StatePatch{})
	}

	ui := s.state.UI.Clone()
	ui.Choices = visible
	if cmd.Text != "" {
		ui.Speaker = s.speakerName(cmd.CharacterID)
		ui.Dialogue = eval.Interpolate(cmd.Text, s.project, s.state.Vars)
	}
	return wait(domain.StatePatch{UI: &ui})
}

func (s *Session) handleTextInput(cmd *domain.Command) stepResult {
	if cmd.VariableID == "" {
		s.logger.Warn("textInput has no target variable, skipping", "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}
	ui := s.state.UI.Clone()
	ui.Prompt = eval.Interpolate(cmd.Prompt, s.project, s.state.Vars)
	ui.InputVariableID = cmd.VariableID
	return wait(domain.StatePatch{UI: &ui})
}

func (s *Session) handleSetVariable(cmd *domain.Command) stepResult {
	if cmd.VariableID == "" {
		s.logger.Warn("setVariable has no target variable, skipping", "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}
	val := s.mut.Apply(cmd.Mutation(), s.state.Vars[cmd.VariableID])
	s.logger.Debug("variable mutated",
		"variable_id", cmd.VariableID, "operator", string(cmd.Operator), "value", val)
	return advance(domain.StatePatch{Vars: map[string]any{cmd.VariableID: val}})
}

func (s *Session) handleWait(cmd *domain.Command) stepResult {
	if cmd.DurationMs <= 0 || cmd.Async {
		return advance(domain.StatePatch{})
	}
	return stepResult{
		mode:      modeDelay,
		delay:     time.Duration(cmd.DurationMs) * time.Millisecond,
		skippable: cmd.Skippable,
	}
}

func (s *Session) handleJump(ctx context.Context, cmd *domain.Command) stepResult {
	if cmd.TargetSceneID == "" {
		s.logger.Warn("jump has no target scene, skipping", "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}
	sc := s.resolveEntryScene(cmd.TargetSceneID)
	if sc == nil {
		return advance(domain.StatePatch{})
	}
	s.enterScene(ctx, sc, "jump", true)
	return stay()
}

func (s *Session) handleJumpToLabel(ctx context.Context, cmd *domain.Command) stepResult {
	if cmd.LabelID == "" {
		s.logger.Warn("jumpToLabel has no label, skipping", "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}
	if !s.jumpLabel(ctx, cmd.LabelID) {
		return advance(domain.StatePatch{})
	}
	return stay()
}

func (s *Session) handleCallScene(ctx context.Context, cmd *domain.Command) stepResult {
	if cmd.TargetSceneID == "" {
		s.logger.Warn("callScene has no target scene, skipping", "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}
	sc := s.resolveEntryScene(cmd.TargetSceneID)
	if sc == nil {
		return advance(domain.StatePatch{})
	}
	s.state.Stack = append(s.state.Stack, domain.Frame{
		SceneID:  s.state.SceneID,
		Commands: s.state.Commands,
		Index:    s.state.Index + 1,
	})
	s.enterScene(ctx, sc, "call", false)
	return stay()
}

func (s *Session) handleReturnToCaller(ctx context.Context, cmd *domain.Command) stepResult {
	if len(s.state.Stack) == 0 {
		s.logger.Warn("returnToCaller with empty stack, skipping", "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}
	s.popFrame(ctx)
	return stay()
}
