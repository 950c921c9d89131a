package domain

import "time"

// ExecutionStatus defines the current mode of the interpreter loop.
type ExecutionStatus string

const (
	StatusIdle            ExecutionStatus = "idle"             // Session created, no step taken yet
	StatusExecuting       ExecutionStatus = "executing"        // A step is in flight
	StatusWaitingForInput ExecutionStatus = "waiting_input"    // Halted until an external UI event
	StatusTransitioning   ExecutionStatus = "transitioning"    // Halted until a scheduled callback fires
	StatusEnded           ExecutionStatus = "ended"            // Terminal; presentation returns to title
)

// Frame is one saved call/return entry: enough to resume the caller scene
// at the command after the call site.
type Frame struct {
	SceneID  string    `json:"sceneId" yaml:"sceneId"`
	Commands []Command `json:"commands,omitempty" yaml:"commands,omitempty"`
	Index    int       `json:"index" yaml:"index"`
}

// Signature identifies one dispatch: the re-entrancy guard skips a step
// whose signature matches the previous dispatch, so re-invoking the loop
// with unchanged state is an idempotent no-op.
type Signature struct {
	SceneID   string `json:"sceneId"`
	Index     int    `json:"index"`
	CommandID string `json:"commandId"`
}

// Zero reports whether no dispatch has been recorded.
func (s Signature) Zero() bool {
	return s == Signature{}
}

// HistoryEntry is one line of the bounded dialogue/choice backlog.
type HistoryEntry struct {
	Kind    string    `json:"kind" yaml:"kind"` // "dialogue", "choice", "input"
	Speaker string    `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Text    string    `json:"text" yaml:"text"`
	At      time.Time `json:"at" yaml:"at"`
}

// HistoryCap bounds the backlog; older entries are dropped first.
const HistoryCap = 100

// PlayerState is the live session snapshot. It is owned exclusively by the
// interpreter loop: handlers and timers mutate it only through StatePatch
// application, never in place.
type PlayerState struct {
	ProjectID string `json:"projectId"`

	// SceneID and Commands are the resolved execution context; Commands is
	// captured at scene entry so mid-run document edits cannot shift a
	// running session.
	SceneID  string    `json:"sceneId"`
	Commands []Command `json:"commands,omitempty"`
	Index    int       `json:"index"`

	// Stack holds call/return frames pushed by callScene and popped by
	// returnToCaller or end-of-list.
	Stack []Frame `json:"stack,omitempty"`

	// Vars maps variable id to its scalar session value.
	Vars map[string]any `json:"vars"`

	Stage StageState `json:"stage"`
	UI    UIState    `json:"ui"`
	Music MusicState `json:"music"`

	History []HistoryEntry `json:"history,omitempty"`

	Status ExecutionStatus `json:"status"`

	// LastDispatched is the re-entrancy guard signature.
	LastDispatched Signature `json:"lastDispatched"`
}

// NewPlayerState creates a clean session state for a project, positioned
// before the first command of the start scene.
func NewPlayerState(p *Project) *PlayerState {
	st := &PlayerState{
		ProjectID: p.ID,
		Vars:      p.DefaultVars(),
		Stage:     NewStageState(),
		Music:     NewMusicState(),
		Status:    StatusIdle,
	}
	if start := p.StartScene(); start != nil {
		st.SceneID = start.ID
		st.Commands = start.Commands
	}
	return st
}

// Current returns the command at the live index, or nil when the index is
// past the end of the list.
func (s *PlayerState) Current() *Command {
	if s.Index < 0 || s.Index >= len(s.Commands) {
		return nil
	}
	return &s.Commands[s.Index]
}

// PushHistory appends an entry, evicting the oldest past HistoryCap.
func (s *PlayerState) PushHistory(e HistoryEntry) {
	s.History = append(s.History, e)
	if n := len(s.History) - HistoryCap; n > 0 {
		s.History = s.History[n:]
	}
}

// Clone deep-copies the state so snapshots cannot alias live session data.
func (s *PlayerState) Clone() *PlayerState {
	if s == nil {
		return nil
	}
	out := *s
	out.Commands = append([]Command(nil), s.Commands...)
	out.Stack = make([]Frame, len(s.Stack))
	for i, f := range s.Stack {
		out.Stack[i] = Frame{
			SceneID:  f.SceneID,
			Commands: append([]Command(nil), f.Commands...),
			Index:    f.Index,
		}
	}
	out.Vars = make(map[string]any, len(s.Vars))
	for k, v := range s.Vars {
		out.Vars[k] = v
	}
	out.Stage = s.Stage.Clone()
	out.UI = s.UI.Clone()
	out.Music = s.Music.Clone()
	out.History = append([]HistoryEntry(nil), s.History...)
	return &out
}
