package ports

import "github.com/aretw0/vine/pkg/domain"

// Presenter is the driven side of the presentation adapter: the session
// pushes every applied state patch to it. It never calls back into the
// session except by delivering user input events through the session's
// own methods.
type Presenter interface {
	// ApplyPatch runs after a patch lands. state is the post-application
	// snapshot; it is a live reference valid only for the duration of the
	// call, so implementations copy whatever they keep.
	ApplyPatch(patch domain.StatePatch, state *domain.PlayerState)
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(patch domain.StatePatch, state *domain.PlayerState)

// ApplyPatch implements Presenter.
func (f PresenterFunc) ApplyPatch(patch domain.StatePatch, state *domain.PlayerState) {
	f(patch, state)
}
