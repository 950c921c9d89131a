// Package dto holds the wire views shared by the transport adapters. The
// HTTP API and the MCP playtest surface render the same session picture;
// building it in one place keeps the two from drifting.
package dto

import (
	"github.com/aretw0/vine/pkg/domain"
)

// SessionView is the client-facing projection of a running session: what a
// presentation needs to draw a frame, without interpreter internals
// (command lists, dispatch guard).
type SessionView struct {
	SessionID string                 `json:"sessionId"`
	ProjectID string                 `json:"projectId"`
	SceneID   string                 `json:"sceneId"`
	Status    domain.ExecutionStatus `json:"status"`

	Speaker        string       `json:"speaker,omitempty"`
	Dialogue       string       `json:"dialogue,omitempty"`
	Choices        []ChoiceView `json:"choices,omitempty"`
	Prompt         string       `json:"prompt,omitempty"`
	ActiveScreenID string       `json:"activeScreenId,omitempty"`

	Stage domain.StageState `json:"stage"`
	Music domain.MusicState `json:"music"`
	Vars  map[string]any    `json:"vars,omitempty"`

	History []domain.HistoryEntry `json:"history,omitempty"`
}

// ChoiceView is one selectable option. The authoring fields (conditions,
// targets, mutations) stay server-side; a client only ever picks by id.
type ChoiceView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// NewSessionView projects a state snapshot into the wire shape. The caller
// passes a cloned or otherwise stable state; the view aliases its maps and
// slices rather than copying them again.
func NewSessionView(sessionID string, st *domain.PlayerState) SessionView {
	v := SessionView{
		SessionID:      sessionID,
		ProjectID:      st.ProjectID,
		SceneID:        st.SceneID,
		Status:         st.Status,
		Speaker:        st.UI.Speaker,
		Dialogue:       st.UI.Dialogue,
		Prompt:         st.UI.Prompt,
		ActiveScreenID: st.UI.ActiveScreenID,
		Stage:          st.Stage,
		Music:          st.Music,
		Vars:           st.Vars,
		History:        st.History,
	}
	if len(st.UI.Choices) > 0 {
		v.Choices = make([]ChoiceView, len(st.UI.Choices))
		for i, opt := range st.UI.Choices {
			v.Choices[i] = ChoiceView{ID: opt.ID, Text: opt.Text}
		}
	}
	return v
}
