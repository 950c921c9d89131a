package dsl

import "github.com/aretw0/vine/pkg/domain"

// SceneBuilder provides a fluent API for appending commands to one scene.
// Every command method returns the builder, so a scene reads top to bottom
// like its YAML form.
type SceneBuilder struct {
	scene domain.Scene

	pendingConds []domain.Condition
	pendingAsync bool
}

// Name sets the scene's display name.
func (s *SceneBuilder) Name(name string) *SceneBuilder {
	s.scene.Name = name
	return s
}

// Gate sets entry conditions: direct navigation into the scene fails over
// to the fallback (or the next scene) when they do not hold.
func (s *SceneBuilder) Gate(conds ...domain.Condition) *SceneBuilder {
	s.scene.Conditions = append(s.scene.Conditions, conds...)
	return s
}

// Fallback sets the scene entered when the gate rejects.
func (s *SceneBuilder) Fallback(sceneID string) *SceneBuilder {
	s.scene.FallbackSceneID = sceneID
	return s
}

// If guards the next appended command with the given conditions.
func (s *SceneBuilder) If(conds ...domain.Condition) *SceneBuilder {
	s.pendingConds = append(s.pendingConds, conds...)
	return s
}

// Async marks the next appended command as non-blocking.
func (s *SceneBuilder) Async() *SceneBuilder {
	s.pendingAsync = true
	return s
}

// Cmd appends a raw command, for shapes the named helpers do not cover.
func (s *SceneBuilder) Cmd(c domain.Command) *SceneBuilder {
	return s.add(c)
}

// Say appends a dialogue line spoken by a character.
func (s *SceneBuilder) Say(characterID, text string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdDialogue, CharacterID: characterID, Text: text})
}

// Narrate appends an unattributed dialogue line.
func (s *SceneBuilder) Narrate(text string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdDialogue, Text: text})
}

// ClearDialogue empties the dialogue box.
func (s *SceneBuilder) ClearDialogue() *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdClearDialogue})
}

// Choice appends a choice menu.
func (s *SceneBuilder) Choice(opts ...*OptionBuilder) *SceneBuilder {
	c := domain.Command{Type: domain.CmdChoice}
	for _, o := range opts {
		c.Options = append(c.Options, o.opt)
	}
	return s.add(c)
}

// Ask appends a textInput prompt storing the answer in a variable.
func (s *SceneBuilder) Ask(prompt, variableID string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdTextInput, Prompt: prompt, VariableID: variableID})
}

// SetVar appends a variable mutation.
func (s *SceneBuilder) SetVar(variableID string, op domain.MutationOp, value any) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdSetVariable, VariableID: variableID, Operator: op, Value: value})
}

// RollVar appends a random mutation in [min, max].
func (s *SceneBuilder) RollVar(variableID string, min, max int) *SceneBuilder {
	return s.add(domain.Command{
		Type:       domain.CmdSetVariable,
		VariableID: variableID,
		Operator:   domain.OpRandom,
		Min:        &min,
		Max:        &max,
	})
}

// Wait suspends the loop for the duration.
func (s *SceneBuilder) Wait(ms int) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdWait, DurationMs: ms})
}

// WaitSkippable suspends like Wait but lets an advance cut it short.
func (s *SceneBuilder) WaitSkippable(ms int) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdWait, DurationMs: ms, Skippable: true})
}

// Label marks a jump target inside the scene.
func (s *SceneBuilder) Label(labelID string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdLabel, LabelID: labelID})
}

// Jump navigates to another scene.
func (s *SceneBuilder) Jump(sceneID string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdJump, TargetSceneID: sceneID})
}

// JumpToLabel jumps to a label in the current scene.
func (s *SceneBuilder) JumpToLabel(labelID string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdJumpToLabel, LabelID: labelID})
}

// Call enters another scene, returning here afterwards.
func (s *SceneBuilder) Call(sceneID string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdCallScene, TargetSceneID: sceneID})
}

// Return pops back to the calling scene.
func (s *SceneBuilder) Return() *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdReturnToCaller})
}

// BranchStart opens a conditional block; pair with BranchEnd.
func (s *SceneBuilder) BranchStart(branchID string, conds ...domain.Condition) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdBranchStart, BranchID: branchID, Conditions: conds})
}

// BranchEnd closes a conditional block.
func (s *SceneBuilder) BranchEnd(branchID string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdBranchEnd, BranchID: branchID})
}

// Group appends an authoring marker with no runtime effect.
func (s *SceneBuilder) Group(name string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdGroup, Name: name})
}

// End terminates the story.
func (s *SceneBuilder) End() *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdEndGame})
}

// Background swaps the backdrop.
func (s *SceneBuilder) Background(assetID string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdSetBackground, AssetID: assetID})
}

// ShowCharacter puts a character sprite on stage.
func (s *SceneBuilder) ShowCharacter(characterID, outfitID, position string) *SceneBuilder {
	return s.add(domain.Command{
		Type:        domain.CmdShowCharacter,
		CharacterID: characterID,
		OutfitID:    outfitID,
		Position:    position,
	})
}

// HideCharacter removes one character sprite.
func (s *SceneBuilder) HideCharacter(characterID string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdHideCharacter, CharacterID: characterID})
}

// HideAllCharacters clears the stage.
func (s *SceneBuilder) HideAllCharacters() *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdHideAllCharacters})
}

// Movie plays a full-screen movie; the loop waits for the finished event
// unless marked Async.
func (s *SceneBuilder) Movie(assetID string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdPlayMovie, AssetID: assetID})
}

// Music starts the music channel.
func (s *SceneBuilder) Music(assetID string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdPlayMusic, AssetID: assetID})
}

// StopMusic silences the music channel.
func (s *SceneBuilder) StopMusic() *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdStopMusic})
}

// Sfx fires a one-shot sound effect.
func (s *SceneBuilder) Sfx(assetID string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdPlaySoundEffect, AssetID: assetID})
}

// Shake rattles the screen.
func (s *SceneBuilder) Shake(intensity float64, durationMs int) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdShakeScreen, Intensity: intensity, DurationMs: durationMs})
}

// Flash blinks the screen in a color.
func (s *SceneBuilder) Flash(color string, durationMs int) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdFlashScreen, Color: color, DurationMs: durationMs})
}

// Tint overlays a persistent color wash.
func (s *SceneBuilder) Tint(color string) *SceneBuilder {
	return s.add(domain.Command{Type: domain.CmdTintScreen, Color: color})
}

func (s *SceneBuilder) add(c domain.Command) *SceneBuilder {
	if len(s.pendingConds) > 0 {
		c.Conditions = append(c.Conditions, s.pendingConds...)
		s.pendingConds = nil
	}
	if s.pendingAsync {
		c.Async = true
		s.pendingAsync = false
	}
	s.scene.Commands = append(s.scene.Commands, c)
	return s
}
