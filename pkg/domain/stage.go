package domain

import "time"

// CharacterState is one on-stage character: the resolved outfit layer plus
// placement and the transition it entered with.
type CharacterState struct {
	CharacterID string `json:"characterId" yaml:"characterId"`
	OutfitID    string `json:"outfitId,omitempty" yaml:"outfitId,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	IsVideo     bool   `json:"isVideo,omitempty" yaml:"isVideo,omitempty"`
	Position    string `json:"position,omitempty" yaml:"position,omitempty"`
	Transition  string `json:"transition,omitempty" yaml:"transition,omitempty"`
}

// TextOverlay is a transient text element layered on the stage.
type TextOverlay struct {
	ID    string         `json:"id" yaml:"id"`
	Text  string         `json:"text" yaml:"text"`
	Style map[string]any `json:"style,omitempty" yaml:"style,omitempty"`
}

// ImageOverlay is a transient image element layered on the stage.
type ImageOverlay struct {
	ID      string         `json:"id" yaml:"id"`
	AssetID string         `json:"assetId" yaml:"assetId"`
	URL     string         `json:"url,omitempty" yaml:"url,omitempty"`
	Style   map[string]any `json:"style,omitempty" yaml:"style,omitempty"`
}

// ButtonOverlay is a clickable stage element. Activating it behaves like a
// choice pick: Set mutations apply, then the target resolves.
type ButtonOverlay struct {
	ID            string         `json:"id" yaml:"id"`
	Text          string         `json:"text" yaml:"text"`
	ActionID      string         `json:"actionId,omitempty" yaml:"actionId,omitempty"`
	TargetSceneID string         `json:"targetSceneId,omitempty" yaml:"targetSceneId,omitempty"`
	LabelID       string         `json:"labelId,omitempty" yaml:"labelId,omitempty"`
	Set           []Mutation     `json:"set,omitempty" yaml:"set,omitempty"`
	Style         map[string]any `json:"style,omitempty" yaml:"style,omitempty"`
}

// PanZoom is the camera transform. Scale 1 is the resting view.
type PanZoom struct {
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Scale float64 `json:"scale" yaml:"scale"`
}

// StageState is the renderable snapshot of the stage: background, on-stage
// characters, overlays, and screen-effect parameters.
type StageState struct {
	BackgroundID  string `json:"backgroundId,omitempty" yaml:"backgroundId,omitempty"`
	BackgroundURL string `json:"backgroundUrl,omitempty" yaml:"backgroundUrl,omitempty"`

	// MovieID is non-empty while a full-screen movie plays; the loop waits
	// for the presentation's finished event unless the command was async.
	MovieID  string `json:"movieId,omitempty" yaml:"movieId,omitempty"`
	MovieURL string `json:"movieUrl,omitempty" yaml:"movieUrl,omitempty"`

	Characters map[string]CharacterState `json:"characters,omitempty" yaml:"characters,omitempty"`

	TextOverlays   []TextOverlay   `json:"textOverlays,omitempty" yaml:"textOverlays,omitempty"`
	ImageOverlays  []ImageOverlay  `json:"imageOverlays,omitempty" yaml:"imageOverlays,omitempty"`
	ButtonOverlays []ButtonOverlay `json:"buttonOverlays,omitempty" yaml:"buttonOverlays,omitempty"`

	// Screen effects. Shake and Flash are transient: the scheduler clears
	// them with a follow-up patch when their duration elapses.
	Tint  string  `json:"tint,omitempty" yaml:"tint,omitempty"`
	Flash string  `json:"flash,omitempty" yaml:"flash,omitempty"`
	Shake float64 `json:"shake,omitempty" yaml:"shake,omitempty"`
	Pan   PanZoom `json:"pan" yaml:"pan"`
}

// NewStageState returns an empty stage at the resting camera.
func NewStageState() StageState {
	return StageState{
		Characters: make(map[string]CharacterState),
		Pan:        PanZoom{Scale: 1},
	}
}

// Clone deep-copies the stage maps and overlay lists.
func (s StageState) Clone() StageState {
	out := s
	out.Characters = make(map[string]CharacterState, len(s.Characters))
	for k, v := range s.Characters {
		out.Characters[k] = v
	}
	out.TextOverlays = append([]TextOverlay(nil), s.TextOverlays...)
	out.ImageOverlays = append([]ImageOverlay(nil), s.ImageOverlays...)
	out.ButtonOverlays = append([]ButtonOverlay(nil), s.ButtonOverlays...)
	return out
}

// UIState is the dialogue window plus any open screen overlay.
type UIState struct {
	// Speaker is the display name of the speaking character, empty for
	// narration. Dialogue holds the interpolated line.
	Speaker  string `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Dialogue string `json:"dialogue,omitempty" yaml:"dialogue,omitempty"`

	// Choices is the condition-filtered visible option list while a choice
	// command waits.
	Choices []ChoiceOption `json:"choices,omitempty" yaml:"choices,omitempty"`

	// Prompt and InputVariableID are set while a textInput command waits.
	Prompt          string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	InputVariableID string `json:"inputVariableId,omitempty" yaml:"inputVariableId,omitempty"`

	// ActiveScreenID is the open screen overlay, if any.
	// ScreenReturnSceneID records the scene that opened it: label jumps
	// issued from the screen resolve against that scene.
	ActiveScreenID      string `json:"activeScreenId,omitempty" yaml:"activeScreenId,omitempty"`
	ScreenReturnSceneID string `json:"screenReturnSceneId,omitempty" yaml:"screenReturnSceneId,omitempty"`
}

// Clone deep-copies the choice list.
func (u UIState) Clone() UIState {
	out := u
	out.Choices = append([]ChoiceOption(nil), u.Choices...)
	return out
}

// Audio channel names. Music and ambient are singleton channels; sound
// effects go through the bounded pool.
const (
	ChannelMusic   = "music"
	ChannelAmbient = "ambient"
)

// ChannelState is the bookkeeping for one singleton audio channel.
type ChannelState struct {
	AssetID   string    `json:"assetId,omitempty" yaml:"assetId,omitempty"`
	Volume    float64   `json:"volume" yaml:"volume"`
	Loop      bool      `json:"loop" yaml:"loop"`
	Paused    bool      `json:"paused,omitempty" yaml:"paused,omitempty"`
	StartedAt time.Time `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`

	// OffsetMs is the playback position captured at save time so a load
	// can resume near where the track was.
	OffsetMs int64 `json:"offsetMs,omitempty" yaml:"offsetMs,omitempty"`
}

// SFXInstance is one fire-and-forget effect admitted to the pool.
type SFXInstance struct {
	ID        string    `json:"id" yaml:"id"`
	AssetID   string    `json:"assetId" yaml:"assetId"`
	StartedAt time.Time `json:"startedAt" yaml:"startedAt"`
}

// MusicState is the audio snapshot the presentation renders and the save
// codec captures.
type MusicState struct {
	Music   ChannelState  `json:"music" yaml:"music"`
	Ambient ChannelState  `json:"ambient" yaml:"ambient"`
	Effects []SFXInstance `json:"effects,omitempty" yaml:"effects,omitempty"`
}

// NewMusicState returns silent channels at full volume.
func NewMusicState() MusicState {
	return MusicState{
		Music:   ChannelState{Volume: 1},
		Ambient: ChannelState{Volume: 1},
	}
}

// Channel returns the named singleton channel, defaulting to music.
func (m *MusicState) Channel(name string) *ChannelState {
	if name == ChannelAmbient {
		return &m.Ambient
	}
	return &m.Music
}

// Clone deep-copies the effect pool bookkeeping.
func (m MusicState) Clone() MusicState {
	out := m
	out.Effects = append([]SFXInstance(nil), m.Effects...)
	return out
}
