package domain

// Scene is a named, ordered command list. Entry conditions gate direct
// navigation into the scene; when they fail, the navigation resolver tries
// FallbackSceneID, then the next scene in declaration order.
type Scene struct {
	ID              string      `json:"id" yaml:"id" mapstructure:"id"`
	Name            string      `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Conditions      []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty" mapstructure:"conditions"`
	FallbackSceneID string      `json:"fallbackSceneId,omitempty" yaml:"fallbackSceneId,omitempty" mapstructure:"fallbackSceneId"`
	Commands        []Command   `json:"commands" yaml:"commands" mapstructure:"commands"`
}

// DisplayName returns Name, falling back to the id for unnamed scenes.
func (s *Scene) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// VariableType is the declared type of a story variable.
type VariableType string

const (
	VarNumber  VariableType = "number"
	VarString  VariableType = "string"
	VarBoolean VariableType = "boolean"
)

// Variable declares a story variable. Session values are keyed by ID; Name
// exists for authoring display, interpolation, and expression conditions,
// never as the runtime lookup key.
type Variable struct {
	ID      string       `json:"id" yaml:"id" mapstructure:"id"`
	Name    string       `json:"name" yaml:"name" mapstructure:"name"`
	Type    VariableType `json:"type" yaml:"type" mapstructure:"type"`
	Default any          `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
}

// Project is the immutable story document a session executes: scenes in
// declaration order (order is semantic for the next-scene policy), variable
// declarations, and the designated start scene.
type Project struct {
	ID           string     `json:"id" yaml:"id" mapstructure:"id"`
	Title        string     `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
	StartSceneID string     `json:"startSceneId,omitempty" yaml:"startSceneId,omitempty" mapstructure:"startSceneId"`
	Scenes       []Scene    `json:"scenes" yaml:"scenes" mapstructure:"scenes"`
	Variables    []Variable `json:"variables,omitempty" yaml:"variables,omitempty" mapstructure:"variables"`
}

// Scene returns the scene with the given id, or nil.
func (p *Project) Scene(id string) *Scene {
	for i := range p.Scenes {
		if p.Scenes[i].ID == id {
			return &p.Scenes[i]
		}
	}
	return nil
}

// SceneIndex returns the declaration-order position of a scene id, or -1.
func (p *Project) SceneIndex(id string) int {
	for i := range p.Scenes {
		if p.Scenes[i].ID == id {
			return i
		}
	}
	return -1
}

// StartScene resolves the starting scene: the explicit StartSceneID if it
// exists, otherwise the first declared scene. Returns nil for an empty
// project.
func (p *Project) StartScene() *Scene {
	if p.StartSceneID != "" {
		if s := p.Scene(p.StartSceneID); s != nil {
			return s
		}
	}
	if len(p.Scenes) == 0 {
		return nil
	}
	return &p.Scenes[0]
}

// Variable returns the declaration for a variable id, or nil.
func (p *Project) Variable(id string) *Variable {
	for i := range p.Variables {
		if p.Variables[i].ID == id {
			return &p.Variables[i]
		}
	}
	return nil
}

// VariableByName returns the declaration matching a display name, or nil.
// Used by interpolation and expression conditions.
func (p *Project) VariableByName(name string) *Variable {
	for i := range p.Variables {
		if p.Variables[i].Name == name {
			return &p.Variables[i]
		}
	}
	return nil
}

// DefaultVars builds the initial variable map from the declarations.
func (p *Project) DefaultVars() map[string]any {
	vars := make(map[string]any, len(p.Variables))
	for _, v := range p.Variables {
		if v.Default != nil {
			vars[v.ID] = v.Default
		}
	}
	return vars
}
