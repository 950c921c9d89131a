// Package memory provides in-memory implementations of the story loader
// and the slot store. They back tests, embedded stories constructed in
// code, and ephemeral sessions that should not touch disk.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/vine/internal/compiler"
	"github.com/aretw0/vine/pkg/domain"
)

// Loader implements ports.StoryLoader over a project held in memory. It
// also implements ports.Watchable: Replace swaps the project and signals
// watchers, which is how dev tooling exercises hot reload without a
// filesystem.
type Loader struct {
	mu       sync.RWMutex
	proj     *domain.Project
	watchers []chan struct{}
}

// NewLoader wraps an already-built project. The loader hands the same
// pointer to every caller; treat the project as immutable once passed in.
func NewLoader(p *domain.Project) *Loader {
	return &Loader{proj: p}
}

// NewLoaderFromBytes parses a raw JSON or YAML project document. Parsing
// happens here so a malformed document fails at construction, not at the
// first Load.
func NewLoaderFromBytes(data []byte) (*Loader, error) {
	proj, err := compiler.NewParser().ParseProject(data)
	if err != nil {
		return nil, err
	}
	return &Loader{proj: proj}, nil
}

// Load implements ports.StoryLoader.
func (l *Loader) Load(ctx context.Context) (*domain.Project, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.proj == nil {
		return nil, domain.ErrProjectNotFound
	}
	return l.proj, nil
}

// Replace swaps the project and notifies watchers. A watcher that has not
// drained its previous signal is not notified again; one pending reload is
// enough.
func (l *Loader) Replace(p *domain.Project) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.proj = p
	for _, ch := range l.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch implements ports.Watchable. The channel is closed when ctx ends.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	l.watchers = append(l.watchers, ch)
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, w := range l.watchers {
			if w == ch {
				l.watchers = append(l.watchers[:i], l.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}
