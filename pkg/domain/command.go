package domain

// CommandType discriminates the command union. The interpreter's dispatch
// switch must cover every constant below; the validator rejects documents
// carrying a type tag outside this set.
type CommandType string

// Flow and text commands.
const (
	CmdDialogue       CommandType = "dialogue"
	CmdClearDialogue  CommandType = "clearDialogue"
	CmdChoice         CommandType = "choice"
	CmdTextInput      CommandType = "textInput"
	CmdSetVariable    CommandType = "setVariable"
	CmdWait           CommandType = "wait"
	CmdLabel          CommandType = "label"
	CmdJump           CommandType = "jump"
	CmdJumpToLabel    CommandType = "jumpToLabel"
	CmdCallScene      CommandType = "callScene"
	CmdReturnToCaller CommandType = "returnToCaller"
	CmdBranchStart    CommandType = "branchStart"
	CmdBranchEnd      CommandType = "branchEnd"
	CmdGroup          CommandType = "group"
	CmdEndGame        CommandType = "endGame"
)

// Stage commands.
const (
	CmdSetBackground     CommandType = "setBackground"
	CmdShowCharacter     CommandType = "showCharacter"
	CmdHideCharacter     CommandType = "hideCharacter"
	CmdHideAllCharacters CommandType = "hideAllCharacters"
	CmdPlayMovie         CommandType = "playMovie"
)

// Audio commands.
const (
	CmdPlayMusic       CommandType = "playMusic"
	CmdStopMusic       CommandType = "stopMusic"
	CmdPlaySoundEffect CommandType = "playSoundEffect"
)

// Screen-effect commands.
const (
	CmdShakeScreen CommandType = "shakeScreen"
	CmdFlashScreen CommandType = "flashScreen"
	CmdTintScreen  CommandType = "tintScreen"
	CmdPanZoom     CommandType = "panZoom"
)

// Overlay and screen commands.
const (
	CmdShowTextOverlay   CommandType = "showTextOverlay"
	CmdHideTextOverlay   CommandType = "hideTextOverlay"
	CmdShowImageOverlay  CommandType = "showImageOverlay"
	CmdHideImageOverlay  CommandType = "hideImageOverlay"
	CmdShowButtonOverlay CommandType = "showButtonOverlay"
	CmdHideButtonOverlay CommandType = "hideButtonOverlay"
	CmdShowScreen        CommandType = "showScreen"
	CmdHideScreen        CommandType = "hideScreen"
)

// CommandTypes lists every known command kind. Used by the validator and by
// the compiler to reject unknown type tags at parse time.
var CommandTypes = []CommandType{
	CmdDialogue, CmdClearDialogue, CmdChoice, CmdTextInput, CmdSetVariable,
	CmdWait, CmdLabel, CmdJump, CmdJumpToLabel, CmdCallScene,
	CmdReturnToCaller, CmdBranchStart, CmdBranchEnd, CmdGroup, CmdEndGame,
	CmdSetBackground, CmdShowCharacter, CmdHideCharacter,
	CmdHideAllCharacters, CmdPlayMovie,
	CmdPlayMusic, CmdStopMusic, CmdPlaySoundEffect,
	CmdShakeScreen, CmdFlashScreen, CmdTintScreen, CmdPanZoom,
	CmdShowTextOverlay, CmdHideTextOverlay, CmdShowImageOverlay,
	CmdHideImageOverlay, CmdShowButtonOverlay, CmdHideButtonOverlay,
	CmdShowScreen, CmdHideScreen,
}

// KnownCommandType reports whether t is part of the closed command set.
func KnownCommandType(t CommandType) bool {
	for _, k := range CommandTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Command is one record in a scene's ordered command list. It is a flat
// tagged variant: Type selects the kind, and each kind reads its own subset
// of the payload fields below. Field names are the wire contract shared
// with the authoring tool. Commands are immutable once a session holds
// them; the interpreter never writes to a Command.
type Command struct {
	ID         string      `json:"id" yaml:"id" mapstructure:"id"`
	Type       CommandType `json:"type" yaml:"type" mapstructure:"type"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty" mapstructure:"conditions"`

	// Async runs the command's handler and applies its immediate patch but
	// does not hold the loop for its delay/callback; the timer still fires
	// and applies its own later patch.
	Async bool `json:"async,omitempty" yaml:"async,omitempty" mapstructure:"async"`

	// Dialogue: Text is the line, CharacterID the speaker (empty for
	// narration), VoiceAssetID an optional voice-over clip.
	Text         string `json:"text,omitempty" yaml:"text,omitempty" mapstructure:"text"`
	CharacterID  string `json:"characterId,omitempty" yaml:"characterId,omitempty" mapstructure:"characterId"`
	VoiceAssetID string `json:"voiceAssetId,omitempty" yaml:"voiceAssetId,omitempty" mapstructure:"voiceAssetId"`

	// Choice / textInput.
	Options []ChoiceOption `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`
	Prompt  string         `json:"prompt,omitempty" yaml:"prompt,omitempty" mapstructure:"prompt"`

	// SetVariable payload, also reused by choice-option Set entries.
	VariableID string     `json:"variableId,omitempty" yaml:"variableId,omitempty" mapstructure:"variableId"`
	Operator   MutationOp `json:"operator,omitempty" yaml:"operator,omitempty" mapstructure:"operator"`
	Value      any        `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	Min        *int       `json:"min,omitempty" yaml:"min,omitempty" mapstructure:"min"`
	Max        *int       `json:"max,omitempty" yaml:"max,omitempty" mapstructure:"max"`

	// Flow targets.
	TargetSceneID string `json:"targetSceneId,omitempty" yaml:"targetSceneId,omitempty" mapstructure:"targetSceneId"`
	LabelID       string `json:"labelId,omitempty" yaml:"labelId,omitempty" mapstructure:"labelId"`
	BranchID      string `json:"branchId,omitempty" yaml:"branchId,omitempty" mapstructure:"branchId"`

	// Group / label display name. Markers only; no runtime effect.
	Name string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`

	// Stage payload: AssetID references a background, character outfit
	// layer, movie, or audio source depending on Type.
	AssetID    string `json:"assetId,omitempty" yaml:"assetId,omitempty" mapstructure:"assetId"`
	OutfitID   string `json:"outfitId,omitempty" yaml:"outfitId,omitempty" mapstructure:"outfitId"`
	Position   string `json:"position,omitempty" yaml:"position,omitempty" mapstructure:"position"`
	Transition string `json:"transition,omitempty" yaml:"transition,omitempty" mapstructure:"transition"`

	// Audio payload.
	Channel string   `json:"channel,omitempty" yaml:"channel,omitempty" mapstructure:"channel"`
	FadeMs  int      `json:"fadeMs,omitempty" yaml:"fadeMs,omitempty" mapstructure:"fadeMs"`
	Volume  *float64 `json:"volume,omitempty" yaml:"volume,omitempty" mapstructure:"volume"`
	Loop    *bool    `json:"loop,omitempty" yaml:"loop,omitempty" mapstructure:"loop"`

	// Timing and screen effects.
	DurationMs int     `json:"durationMs,omitempty" yaml:"durationMs,omitempty" mapstructure:"durationMs"`
	Skippable  bool    `json:"skippable,omitempty" yaml:"skippable,omitempty" mapstructure:"skippable"`
	Intensity  float64 `json:"intensity,omitempty" yaml:"intensity,omitempty" mapstructure:"intensity"`
	Color      string  `json:"color,omitempty" yaml:"color,omitempty" mapstructure:"color"`
	X          float64 `json:"x,omitempty" yaml:"x,omitempty" mapstructure:"x"`
	Y          float64 `json:"y,omitempty" yaml:"y,omitempty" mapstructure:"y"`
	Scale      float64 `json:"scale,omitempty" yaml:"scale,omitempty" mapstructure:"scale"`

	// Overlays and screens.
	OverlayID string         `json:"overlayId,omitempty" yaml:"overlayId,omitempty" mapstructure:"overlayId"`
	ActionID  string         `json:"actionId,omitempty" yaml:"actionId,omitempty" mapstructure:"actionId"`
	Style     map[string]any `json:"style,omitempty" yaml:"style,omitempty" mapstructure:"style"`
	ScreenID  string         `json:"screenId,omitempty" yaml:"screenId,omitempty" mapstructure:"screenId"`
}

// Mutation extracts the variable-mutation payload of a setVariable command.
func (c Command) Mutation() Mutation {
	return Mutation{
		VariableID: c.VariableID,
		Operator:   c.Operator,
		Value:      c.Value,
		Min:        c.Min,
		Max:        c.Max,
	}
}

// ChoiceOption is one selectable entry of a choice command. Options with
// unsatisfied conditions are hidden, not disabled. Picking an option first
// applies its Set mutations, then navigates to its target (scene or label).
type ChoiceOption struct {
	ID            string      `json:"id" yaml:"id" mapstructure:"id"`
	Text          string      `json:"text" yaml:"text" mapstructure:"text"`
	TargetSceneID string      `json:"targetSceneId,omitempty" yaml:"targetSceneId,omitempty" mapstructure:"targetSceneId"`
	LabelID       string      `json:"labelId,omitempty" yaml:"labelId,omitempty" mapstructure:"labelId"`
	Conditions    []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty" mapstructure:"conditions"`
	Set           []Mutation  `json:"set,omitempty" yaml:"set,omitempty" mapstructure:"set"`
}

// MutationOp is a variable-mutation operator.
type MutationOp string

const (
	OpSet      MutationOp = "set"
	OpAdd      MutationOp = "add"
	OpSubtract MutationOp = "subtract"
	OpRandom   MutationOp = "random"
)

// Mutation is one variable write: applied by setVariable commands and by
// choice-option Set lists.
type Mutation struct {
	VariableID string     `json:"variableId" yaml:"variableId" mapstructure:"variableId"`
	Operator   MutationOp `json:"operator" yaml:"operator" mapstructure:"operator"`
	Value      any        `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	Min        *int       `json:"min,omitempty" yaml:"min,omitempty" mapstructure:"min"`
	Max        *int       `json:"max,omitempty" yaml:"max,omitempty" mapstructure:"max"`
}
