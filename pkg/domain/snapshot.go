package domain

import "time"

// Snapshot is the save-slot payload: the JSON-serializable PlayerState
// subset plus slot metadata. Commands may be empty in old snapshots; the
// loader re-derives the list from the scene document in that case.
type Snapshot struct {
	Slot      int       `json:"slot"`
	ProjectID string    `json:"projectId"`
	SceneID   string    `json:"sceneId"`
	SceneName string    `json:"sceneName,omitempty"`
	SavedAt   time.Time `json:"savedAt"`

	Commands []Command      `json:"commands,omitempty"`
	Index    int            `json:"index"`
	Stack    []Frame        `json:"stack,omitempty"`
	Vars     map[string]any `json:"vars"`
	Stage    StageState     `json:"stage"`
	UI       UIState        `json:"ui"`
	Music    MusicState     `json:"music"`
	History  []HistoryEntry `json:"history,omitempty"`
}

// SnapshotOf captures a save payload from live state. The music offsets are
// expected to be stamped by the audio manager before the snapshot is
// persisted; everything else is deep-copied here.
func SnapshotOf(slot int, sceneName string, st *PlayerState, at time.Time) *Snapshot {
	c := st.Clone()
	return &Snapshot{
		Slot:      slot,
		ProjectID: c.ProjectID,
		SceneID:   c.SceneID,
		SceneName: sceneName,
		SavedAt:   at,
		Commands:  c.Commands,
		Index:     c.Index,
		Stack:     c.Stack,
		Vars:      c.Vars,
		Stage:     c.Stage,
		UI:        c.UI,
		Music:     c.Music,
		History:   c.History,
	}
}

// Clone returns a deep copy of the snapshot.
func (sn *Snapshot) Clone() *Snapshot {
	c := *sn
	c.Commands = append([]Command(nil), sn.Commands...)
	c.Stack = append([]Frame(nil), sn.Stack...)
	c.Vars = make(map[string]any, len(sn.Vars))
	for k, v := range sn.Vars {
		c.Vars[k] = v
	}
	c.Stage = sn.Stage.Clone()
	c.UI = sn.UI.Clone()
	c.Music = sn.Music.Clone()
	c.History = append([]HistoryEntry(nil), sn.History...)
	return &c
}

// Restore rebuilds a PlayerState from the snapshot. When the snapshot
// carries no command list, commands come from the project's current scene
// document (forward-compatibility path); a scene missing from the document
// leaves Commands empty, which the loop treats as end-of-list.
func (sn *Snapshot) Restore(p *Project) *PlayerState {
	st := &PlayerState{
		ProjectID: sn.ProjectID,
		SceneID:   sn.SceneID,
		Commands:  append([]Command(nil), sn.Commands...),
		Index:     sn.Index,
		Stack:     append([]Frame(nil), sn.Stack...),
		Vars:      make(map[string]any, len(sn.Vars)),
		Stage:     sn.Stage.Clone(),
		UI:        sn.UI.Clone(),
		Music:     sn.Music.Clone(),
		History:   append([]HistoryEntry(nil), sn.History...),
		Status:    StatusIdle,
	}
	for k, v := range sn.Vars {
		st.Vars[k] = v
	}
	if len(st.Commands) == 0 && p != nil {
		if sc := p.Scene(sn.SceneID); sc != nil {
			st.Commands = append([]Command(nil), sc.Commands...)
		}
	}
	if st.Stage.Characters == nil {
		st.Stage.Characters = make(map[string]CharacterState)
	}
	if st.Stage.Pan == (PanZoom{}) {
		st.Stage.Pan = PanZoom{Scale: 1}
	}
	return st
}
