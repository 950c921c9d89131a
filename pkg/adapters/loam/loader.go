// Package loam loads a story from a Loam-managed library: one markdown
// document per scene (frontmatter header, command list body) plus an
// optional project document carrying the story header. It implements
// ports.StoryLoader and ports.Watchable.
package loam

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/vine/internal/compiler"
	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/pkg/domain"
)

// Loader assembles a domain.Project from a Loam repository.
type Loader struct {
	repo      *loam.TypedRepository[Meta]
	parser    *compiler.Parser
	logger    *slog.Logger
	defaultID string
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for load and watch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// WithProjectID sets the project id used when the library has no header
// document naming one.
func WithProjectID(id string) Option {
	return func(ld *Loader) {
		ld.defaultID = id
	}
}

// New creates a loader over an already-initialized typed repository.
func New(repo *loam.TypedRepository[Meta], opts ...Option) *Loader {
	l := &Loader{
		repo:   repo,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.parser = compiler.NewParser(compiler.WithLogger(l.logger))
	return l
}

// Open initializes a read-only Loam repository at path and returns a
// loader over it. The directory name doubles as the project id when the
// library carries no header document.
func Open(path string, opts ...Option) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve library path: %w", err)
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("open story library: %w", err)
	}

	l := New(loam.NewTypedRepository[Meta](repo), opts...)
	if l.defaultID == "" {
		l.defaultID = filepath.Base(absPath)
	}
	return l, nil
}

// Load implements ports.StoryLoader. It lists every document in the
// library, splits off the header, parses each scene body, and returns the
// scenes ordered by (order, id).
func (l *Loader) Load(ctx context.Context) (*domain.Project, error) {
	docs, err := l.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list story library: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.ErrProjectNotFound
	}

	proj := &domain.Project{}

	type entry struct {
		order int
		start bool
		scene domain.Scene
	}
	entries := make([]entry, 0, len(docs))
	source := make(map[string]string)

	for _, doc := range docs {
		meta := doc.Data
		docID := trimExtension(doc.ID)

		if docID == ProjectDocID || meta.Project {
			if meta.ID != "" {
				proj.ID = meta.ID
			}
			proj.Title = meta.Title
			proj.StartSceneID = meta.StartSceneID
			proj.Variables = meta.Variables
			continue
		}

		id := meta.ID
		if id == "" {
			id = docID
		}
		if prev, ok := source[id]; ok {
			return nil, fmt.Errorf("scene id %q is defined by both %q and %q", id, prev, doc.ID)
		}
		source[id] = doc.ID

		commands, err := l.parser.ParseCommands(id, []byte(doc.Content))
		if err != nil {
			return nil, fmt.Errorf("scene %q: %w", id, err)
		}

		entries = append(entries, entry{
			order: meta.Order,
			start: meta.Start,
			scene: domain.Scene{
				ID:              id,
				Name:            meta.Name,
				Conditions:      meta.Conditions,
				FallbackSceneID: meta.FallbackSceneID,
				Commands:        commands,
			},
		})
	}

	if len(entries) == 0 {
		return nil, domain.ErrNoScenes
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].order != entries[j].order {
			return entries[i].order < entries[j].order
		}
		return entries[i].scene.ID < entries[j].scene.ID
	})

	proj.Scenes = make([]domain.Scene, 0, len(entries))
	for _, e := range entries {
		if e.start && proj.StartSceneID == "" {
			proj.StartSceneID = e.scene.ID
		}
		proj.Scenes = append(proj.Scenes, e.scene)
	}

	if proj.ID == "" {
		proj.ID = l.defaultID
	}

	// Scene bodies were normalized per file; this pass covers the header
	// fields (variable types, entry conditions) and is idempotent.
	l.parser.NormalizeProject(proj)

	l.logger.Debug("story library loaded",
		"project", proj.ID,
		"scenes", len(proj.Scenes),
	)
	return proj, nil
}

// Watch implements ports.Watchable. Loam debounces filesystem events on
// its own; this collapses the per-document stream into a single "reload
// needed" signal.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("watch story library: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				l.logger.Debug("library changed", "doc", evt.ID)
				select {
				case ch <- struct{}{}:
				default:
					// A reload is already pending.
				}
			}
		}
	}()

	return ch, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
