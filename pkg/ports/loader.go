package ports

import (
	"context"

	"github.com/aretw0/vine/pkg/domain"
)

// StoryLoader defines how the engine retrieves the project document.
// This allows the storage layer (single file, Loam library, Memory) to be
// decoupled from the interpreter.
type StoryLoader interface {
	// Load returns the full project document. Implementations return
	// domain.ErrProjectNotFound when the source holds no project.
	Load(ctx context.Context) (*domain.Project, error)
}

// Watchable defines an interface for loaders that can notify about backend
// changes. This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying story
	// changes. It abstracts away the specific event details, signaling only
	// that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
