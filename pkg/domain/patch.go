package domain

// StatePatch is the unit of mutation. Handlers and scheduled callbacks
// never touch PlayerState directly; they return a patch and the loop
// applies it. Merge is shallow and path-addressed: each non-nil sub-object
// replaces its slot wholesale (handlers copy the current sub-state first,
// so untouched fields survive), and Vars merges key by key. Sub-objects
// absent from the patch are untouched.
type StatePatch struct {
	Stage *StageState    `json:"stage,omitempty"`
	UI    *UIState       `json:"ui,omitempty"`
	Music *MusicState    `json:"music,omitempty"`
	Vars  map[string]any `json:"vars,omitempty"`
}

// Empty reports whether the patch carries no changes.
func (p StatePatch) Empty() bool {
	return p.Stage == nil && p.UI == nil && p.Music == nil && len(p.Vars) == 0
}

// Apply merges the patch into the state.
func (s *PlayerState) Apply(p StatePatch) {
	if p.Stage != nil {
		s.Stage = *p.Stage
	}
	if p.UI != nil {
		s.UI = *p.UI
	}
	if p.Music != nil {
		s.Music = *p.Music
	}
	if len(p.Vars) > 0 {
		if s.Vars == nil {
			s.Vars = make(map[string]any, len(p.Vars))
		}
		for k, v := range p.Vars {
			s.Vars[k] = v
		}
	}
}
