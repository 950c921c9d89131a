package runtime

import (
	"time"

	"github.com/aretw0/vine/internal/eval"
	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/ports"
)

// resolveAsset resolves an asset id against the catalog. Without a catalog
// the engine runs in id-only mode and every reference passes through; with
// one, a miss is a dangling reference the caller degrades on.
func (s *Session) resolveAsset(assetID string, kind ports.AssetKind) (string, ports.AssetMetadata, bool) {
	if s.eng.assets == nil {
		return "", ports.AssetMetadata{}, true
	}
	url, ok := s.eng.assets.ResolveURL(assetID, kind)
	if !ok {
		return "", ports.AssetMetadata{}, false
	}
	meta, _ := s.eng.assets.Metadata(assetID, kind)
	return url, meta, true
}

// transition wraps a stage patch in the command's transition timing: a
// duration turns the step into a scheduled delay, which blocks unless the
// command is async.
func transition(cmd *domain.Command, patch domain.StatePatch) stepResult {
	if cmd.DurationMs <= 0 {
		return advance(patch)
	}
	return stepResult{
		patch: patch,
		mode:  modeDelay,
		delay: time.Duration(cmd.DurationMs) * time.Millisecond,
	}
}

func (s *Session) handleSetBackground(cmd *domain.Command) stepResult {
	stage := s.state.Stage.Clone()
	if cmd.AssetID == "" {
		stage.BackgroundID = ""
		stage.BackgroundURL = ""
		return transition(cmd, domain.StatePatch{Stage: &stage})
	}

	url, _, ok := s.resolveAsset(cmd.AssetID, ports.AssetBackground)
	if !ok {
		s.logger.Warn("background asset not in catalog, skipping",
			"asset_id", cmd.AssetID, "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}
	stage.BackgroundID = cmd.AssetID
	stage.BackgroundURL = url
	return transition(cmd, domain.StatePatch{Stage: &stage})
}

func (s *Session) handleShowCharacter(cmd *domain.Command) stepResult {
	if cmd.CharacterID == "" {
		s.logger.Warn("showCharacter has no character id, skipping", "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}

	// The outfit layer is the art asset; a bare character id is its own
	// default layer.
	layerID := cmd.OutfitID
	if layerID == "" {
		layerID = cmd.AssetID
	}
	if layerID == "" {
		layerID = cmd.CharacterID
	}
	url, meta, ok := s.resolveAsset(layerID, ports.AssetCharacter)
	if !ok {
		s.logger.Warn("character layer not in catalog, skipping",
			"character_id", cmd.CharacterID, "layer_id", layerID, "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}

	stage := s.state.Stage.Clone()
	stage.Characters[cmd.CharacterID] = domain.CharacterState{
		CharacterID: cmd.CharacterID,
		OutfitID:    cmd.OutfitID,
		URL:         url,
		IsVideo:     meta.IsVideo,
		Position:    cmd.Position,
		Transition:  cmd.Transition,
	}
	return transition(cmd, domain.StatePatch{Stage: &stage})
}

func (s *Session) handleHideCharacter(cmd *domain.Command) stepResult {
	if cmd.CharacterID == "" {
		s.logger.Warn("hideCharacter has no character id, skipping", "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}
	stage := s.state.Stage.Clone()
	delete(stage.Characters, cmd.CharacterID)
	return transition(cmd, domain.StatePatch{Stage: &stage})
}

func (s *Session) handleHideAllCharacters(cmd *domain.Command) stepResult {
	stage := s.state.Stage.Clone()
	stage.Characters = make(map[string]domain.CharacterState)
	return transition(cmd, domain.StatePatch{Stage: &stage})
}

func (s *Session) handlePlayMovie(cmd *domain.Command) stepResult {
	if cmd.AssetID == "" {
		s.logger.Warn("playMovie has no asset, skipping", "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}
	url, _, ok := s.resolveAsset(cmd.AssetID, ports.AssetMovie)
	if !ok {
		s.logger.Warn("movie asset not in catalog, skipping",
			"asset_id", cmd.AssetID, "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}

	stage := s.state.Stage.Clone()
	stage.MovieID = cmd.AssetID
	stage.MovieURL = url
	patch := domain.StatePatch{Stage: &stage}

	if cmd.Async {
		return advance(patch)
	}
	// Blocking movie: suspend until the presentation reports completion.
	s.pendingMovie = true
	return wait(patch)
}

func (s *Session) handleShakeScreen(cmd *domain.Command) stepResult {
	intensity := cmd.Intensity
	if intensity <= 0 {
		intensity = 1
	}
	durationMs := cmd.DurationMs
	if durationMs <= 0 {
		durationMs = 500
	}

	stage := s.state.Stage.Clone()
	stage.Shake = intensity
	return stepResult{
		patch: domain.StatePatch{Stage: &stage},
		mode:  modeDelay,
		delay: time.Duration(durationMs) * time.Millisecond,
		after: func() {
			st := s.state.Stage.Clone()
			st.Shake = 0
			s.applyPatch(domain.StatePatch{Stage: &st})
		},
	}
}

func (s *Session) handleFlashScreen(cmd *domain.Command) stepResult {
	color := cmd.Color
	if color == "" {
		color = "#FFFFFF"
	}
	durationMs := cmd.DurationMs
	if durationMs <= 0 {
		durationMs = 300
	}

	stage := s.state.Stage.Clone()
	stage.Flash = color
	return stepResult{
		patch: domain.StatePatch{Stage: &stage},
		mode:  modeDelay,
		delay: time.Duration(durationMs) * time.Millisecond,
		after: func() {
			st := s.state.Stage.Clone()
			st.Flash = ""
			s.applyPatch(domain.StatePatch{Stage: &st})
		},
	}
}

func (s *Session) handleTintScreen(cmd *domain.Command) stepResult {
	// Tint persists until replaced; the duration is the ramp the
	// presentation animates over.
	stage := s.state.Stage.Clone()
	stage.Tint = cmd.Color
	return transition(cmd, domain.StatePatch{Stage: &stage})
}

func (s *Session) handlePanZoom(cmd *domain.Command) stepResult {
	scale := cmd.Scale
	if scale <= 0 {
		scale = 1
	}
	stage := s.state.Stage.Clone()
	stage.Pan = domain.PanZoom{X: cmd.X, Y: cmd.Y, Scale: scale}
	return transition(cmd, domain.StatePatch{Stage: &stage})
}

// overlayID picks the overlay identity: the explicit id or the command id.
func overlayID(cmd *domain.Command) string {
	if cmd.OverlayID != "" {
		return cmd.OverlayID
	}
	return cmd.ID
}

func (s *Session) handleShowTextOverlay(cmd *domain.Command) stepResult {
	id := overlayID(cmd)
	overlay := domain.TextOverlay{
		ID:    id,
		Text:  eval.Interpolate(cmd.Text, s.project, s.state.Vars),
		Style: cmd.Style,
	}

	stage := s.state.Stage.Clone()
	replaced := false
	for i := range stage.TextOverlays {
		if stage.TextOverlays[i].ID == id {
			stage.TextOverlays[i] = overlay
			replaced = true
			break
		}
	}
	if !replaced {
		stage.TextOverlays = append(stage.TextOverlays, overlay)
	}
	return advance(domain.StatePatch{Stage: &stage})
}

func (s *Session) handleHideTextOverlay(cmd *domain.Command) stepResult {
	stage := s.state.Stage.Clone()
	stage.TextOverlays = filterTextOverlays(stage.TextOverlays, cmd.OverlayID)
	return advance(domain.StatePatch{Stage: &stage})
}

func (s *Session) handleShowImageOverlay(cmd *domain.Command) stepResult {
	if cmd.AssetID == "" {
		s.logger.Warn("showImageOverlay has no asset, skipping", "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}
	url, _, ok := s.resolveAsset(cmd.AssetID, ports.AssetImage)
	if !ok {
		s.logger.Warn("image asset not in catalog, skipping",
			"asset_id", cmd.AssetID, "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}

	id := overlayID(cmd)
	overlay := domain.ImageOverlay{ID: id, AssetID: cmd.AssetID, URL: url, Style: cmd.Style}

	stage := s.state.Stage.Clone()
	replaced := false
	for i := range stage.ImageOverlays {
		if stage.ImageOverlays[i].ID == id {
			stage.ImageOverlays[i] = overlay
			replaced = true
			break
		}
	}
	if !replaced {
		stage.ImageOverlays = append(stage.ImageOverlays, overlay)
	}
	return advance(domain.StatePatch{Stage: &stage})
}

func (s *Session) handleHideImageOverlay(cmd *domain.Command) stepResult {
	stage := s.state.Stage.Clone()
	stage.ImageOverlays = filterImageOverlays(stage.ImageOverlays, cmd.OverlayID)
	return advance(domain.StatePatch{Stage: &stage})
}

// handleShowButtonOverlay creates one button per option, or a single
// button from the flat fields when the command has no option list.
func (s *Session) handleShowButtonOverlay(cmd *domain.Command) stepResult {
	var buttons []domain.ButtonOverlay
	if len(cmd.Options) > 0 {
		for _, opt := range cmd.Options {
			if !s.eval.All(opt.Conditions, s.state.Vars) {
				continue
			}
			buttons = append(buttons, domain.ButtonOverlay{
				ID:            opt.ID,
				Text:          eval.Interpolate(opt.Text, s.project, s.state.Vars),
				ActionID:      opt.ID,
				TargetSceneID: opt.TargetSceneID,
				LabelID:       opt.LabelID,
				Set:           opt.Set,
				Style:         cmd.Style,
			})
		}
	} else {
		id := overlayID(cmd)
		actionID := cmd.ActionID
		if actionID == "" {
			actionID = id
		}
		buttons = append(buttons, domain.ButtonOverlay{
			ID:            id,
			Text:          eval.Interpolate(cmd.Text, s.project, s.state.Vars),
			ActionID:      actionID,
			TargetSceneID: cmd.TargetSceneID,
			LabelID:       cmd.LabelID,
			Style:         cmd.Style,
		})
	}

	stage := s.state.Stage.Clone()
	for _, b := range buttons {
		replaced := false
		for i := range stage.ButtonOverlays {
			if stage.ButtonOverlays[i].ID == b.ID {
				stage.ButtonOverlays[i] = b
				replaced = true
				break
			}
		}
		if !replaced {
			stage.ButtonOverlays = append(stage.ButtonOverlays, b)
		}
	}
	return advance(domain.StatePatch{Stage: &stage})
}

func (s *Session) handleHideButtonOverlay(cmd *domain.Command) stepResult {
	stage := s.state.Stage.Clone()
	stage.ButtonOverlays = filterButtonOverlays(stage.ButtonOverlays, cmd.OverlayID)
	return advance(domain.StatePatch{Stage: &stage})
}

func (s *Session) handleShowScreen(cmd *domain.Command) stepResult {
	if cmd.ScreenID == "" {
		s.logger.Warn("showScreen has no screen id, skipping", "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}
	ui := s.state.UI.Clone()
	ui.ActiveScreenID = cmd.ScreenID
	// Label jumps issued from the open screen resolve against the scene
	// that was current here.
	ui.ScreenReturnSceneID = s.state.SceneID
	return advance(domain.StatePatch{UI: &ui})
}

func (s *Session) handleHideScreen(*domain.Command) stepResult {
	ui := s.state.UI.Clone()
	ui.ActiveScreenID = ""
	ui.ScreenReturnSceneID = ""
	return advance(domain.StatePatch{UI: &ui})
}

// An empty id hides every overlay of that family.
func filterTextOverlays(in []domain.TextOverlay, id string) []domain.TextOverlay {
	if id == "" {
		return nil
	}
	out := in[:0]
	for _, o := range in {
		if o.ID != id {
			out = append(out, o)
		}
	}
	return out
}

func filterImageOverlays(in []domain.ImageOverlay, id string) []domain.ImageOverlay {
	if id == "" {
		return nil
	}
	out := in[:0]
	for _, o := range in {
		if o.ID != id {
			out = append(out, o)
		}
	}
	return out
}

func filterButtonOverlays(in []domain.ButtonOverlay, id string) []domain.ButtonOverlay {
	if id == "" {
		return nil
	}
	out := in[:0]
	for _, o := range in {
		if o.ID != id {
			out = append(out, o)
		}
	}
	return out
}
