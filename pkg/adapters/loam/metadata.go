package loam

import (
	"github.com/aretw0/vine/pkg/domain"
)

// ProjectDocID is the reserved document id for the library header. A
// document stored as project.md (or any file whose frontmatter sets
// project: true) carries the project metadata instead of a scene.
const ProjectDocID = "project"

// Meta is the frontmatter shape shared by every document in a story
// library. It uses "mapstructure" tags to match the Frontmatter/YAML keys.
//
// Loam gives us one typed shape per repository, so the header document and
// the scene documents decode through the same struct; the loader tells
// them apart by the reserved id or the Project flag. Scene files use the
// scene fields, the header file uses the project fields, and unused keys
// simply stay zero.
type Meta struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`

	// Order fixes the scene sequence across files. Declaration order is
	// semantic in a single-document project; a directory of files has no
	// declaration order, so authors state it here. Ties sort by id.
	Order int `json:"order" mapstructure:"order"`

	// Start marks the scene the story opens on when the header does not
	// name one.
	Start bool `json:"start" mapstructure:"start"`

	FallbackSceneID string             `json:"fallbackSceneId" mapstructure:"fallbackSceneId"`
	Conditions      []domain.Condition `json:"conditions" mapstructure:"conditions"`

	// Header-only fields.
	Project      bool              `json:"project" mapstructure:"project"`
	Title        string            `json:"title" mapstructure:"title"`
	StartSceneID string            `json:"startSceneId" mapstructure:"startSceneId"`
	Variables    []domain.Variable `json:"variables" mapstructure:"variables"`
}
