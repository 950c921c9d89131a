package dsl

import (
	"fmt"

	"github.com/aretw0/vine/pkg/adapters/memory"
	"github.com/aretw0/vine/pkg/domain"
)

// StoryBuilder accumulates scenes and variable declarations in authoring
// order.
type StoryBuilder struct {
	project domain.Project
	scenes  []*SceneBuilder
	byID    map[string]*SceneBuilder
}

// NewStory creates a builder for a project with the given id.
func NewStory(id string) *StoryBuilder {
	return &StoryBuilder{
		project: domain.Project{ID: id},
		byID:    make(map[string]*SceneBuilder),
	}
}

// Title sets the display title.
func (b *StoryBuilder) Title(title string) *StoryBuilder {
	b.project.Title = title
	return b
}

// Start designates the start scene. Without it the first declared scene
// starts the story.
func (b *StoryBuilder) Start(sceneID string) *StoryBuilder {
	b.project.StartSceneID = sceneID
	return b
}

// Var declares a story variable.
func (b *StoryBuilder) Var(id, name string, typ domain.VariableType, def any) *StoryBuilder {
	b.project.Variables = append(b.project.Variables, domain.Variable{
		ID:      id,
		Name:    name,
		Type:    typ,
		Default: def,
	})
	return b
}

// Scene returns the builder for a scene id, creating it on first use.
// Scenes keep their creation order; order is semantic for fall-through.
func (b *StoryBuilder) Scene(id string) *SceneBuilder {
	if sb, ok := b.byID[id]; ok {
		return sb
	}
	sb := &SceneBuilder{scene: domain.Scene{ID: id}}
	b.scenes = append(b.scenes, sb)
	b.byID[id] = sb
	return sb
}

// Build assembles the project document. Commands missing an id get a
// generated one, scene-scoped, so the interpreter's dispatch signatures
// stay distinct.
func (b *StoryBuilder) Build() (*domain.Project, error) {
	if len(b.scenes) == 0 {
		return nil, fmt.Errorf("story %q has no scenes", b.project.ID)
	}

	p := b.project
	p.Scenes = make([]domain.Scene, len(b.scenes))
	for i, sb := range b.scenes {
		sc := sb.scene
		sc.Commands = append([]domain.Command(nil), sb.scene.Commands...)
		for j := range sc.Commands {
			if sc.Commands[j].ID == "" {
				sc.Commands[j].ID = fmt.Sprintf("%s_c%d", sc.ID, j+1)
			}
		}
		p.Scenes[i] = sc
	}

	if p.StartSceneID != "" && p.Scene(p.StartSceneID) == nil {
		return nil, fmt.Errorf("start scene %q is not declared", p.StartSceneID)
	}

	return &p, nil
}

// Loader builds the project and wraps it in an in-memory StoryLoader,
// ready for vine.WithLoader.
func (b *StoryBuilder) Loader() (*memory.Loader, error) {
	p, err := b.Build()
	if err != nil {
		return nil, err
	}
	return memory.NewLoader(p), nil
}
