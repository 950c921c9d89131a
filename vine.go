package vine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/internal/runtime"
	"github.com/aretw0/vine/internal/validator"
	loamadapter "github.com/aretw0/vine/pkg/adapters/loam"
	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/ports"
	"github.com/aretw0/vine/pkg/session"
)

// Session is a single playthrough of a story. See the methods on the
// runtime session for the full surface: Start, Advance, Choose,
// SubmitText, UIAction, FinishMovie, Save, Load, Close.
type Session = runtime.Session

// Issue is a validation finding reported by Validate.
type Issue = validator.Issue

// Severity grades a validation issue.
type Severity = validator.Severity

// Validation severities. Errors make a story unplayable; warnings are
// authoring smells.
const (
	SeverityError   = validator.SeverityError
	SeverityWarning = validator.SeverityWarning
)

// Engine is the high-level entry point for the vine library. It wraps the
// internal interpreter runtime and provides a simplified API for hosts.
type Engine struct {
	rt     *runtime.Engine
	loader ports.StoryLoader
	logger *slog.Logger
	rtOpts []runtime.Option
	Name   string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a custom StoryLoader, bypassing the default loam
// library initialization.
func WithLoader(l ports.StoryLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHooks registers lifecycle callbacks on every session the engine
// mints.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.rtOpts = append(e.rtOpts, runtime.WithHooks(hooks))
	}
}

// WithSlotStore installs the save-slot backend.
func WithSlotStore(store ports.SlotStore) Option {
	return func(e *Engine) {
		e.rtOpts = append(e.rtOpts, runtime.WithSlotStore(store))
	}
}

// WithAssetResolver installs the asset catalog used to resolve asset
// references to URLs and display names.
func WithAssetResolver(r ports.AssetResolver) Option {
	return func(e *Engine) {
		e.rtOpts = append(e.rtOpts, runtime.WithAssetResolver(r))
	}
}

// WithAudioOutput installs the playback device backing the audio channels.
func WithAudioOutput(out ports.AudioOutput) Option {
	return func(e *Engine) {
		e.rtOpts = append(e.rtOpts, runtime.WithAudioOutput(out))
	}
}

// WithPresenter installs the presentation callback notified after every
// applied state patch.
func WithPresenter(p ports.Presenter) Option {
	return func(e *Engine) {
		e.rtOpts = append(e.rtOpts, runtime.WithPresenter(p))
	}
}

// WithClock substitutes the time source. Tests drive waits and fades
// through a fake clock.
func WithClock(c ports.Clock) Option {
	return func(e *Engine) {
		e.rtOpts = append(e.rtOpts, runtime.WithClock(c))
	}
}

// WithRand pins the random source behind the random variable mutation.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.rtOpts = append(e.rtOpts, runtime.WithRand(r))
	}
}

// WithSFXPoolCapacity bounds the concurrent sound-effect pool.
func WithSFXPoolCapacity(n int) Option {
	return func(e *Engine) {
		e.rtOpts = append(e.rtOpts, runtime.WithSFXPoolCapacity(n))
	}
}

// WithFadeTick sets the audio fade-ramp resolution.
func WithFadeTick(d time.Duration) Option {
	return func(e *Engine) {
		e.rtOpts = append(e.rtOpts, runtime.WithFadeTick(d))
	}
}

// New initializes a vine Engine. By default it opens a loam story library
// at the given path; when WithLoader is provided, libraryPath can be empty
// and the library initialization is skipped.
func New(libraryPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{logger: logging.NewNop()}

	for _, opt := range opts {
		opt(eng)
	}

	logger := eng.logger

	if eng.loader == nil {
		if libraryPath == "" {
			return nil, fmt.Errorf("library path is required when no custom loader is provided")
		}
		absPath, err := filepath.Abs(libraryPath)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)
		logger = logger.With("story", eng.Name)

		loader, err := loamadapter.Open(absPath, loamadapter.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("open story library: %w", err)
		}
		eng.loader = loader
	} else if libraryPath != "" {
		eng.Name = filepath.Base(libraryPath)
		logger = logger.With("story", eng.Name)
	}

	rtOpts := append([]runtime.Option{runtime.WithLogger(logger)}, eng.rtOpts...)
	eng.rt = runtime.NewEngine(eng.loader, rtOpts...)
	return eng, nil
}

// NewSession loads the story document and creates a fresh playthrough
// positioned before the first command of the start scene.
func (e *Engine) NewSession(ctx context.Context) (*Session, error) {
	return e.rt.NewSession(ctx)
}

// LoadSession creates a session and immediately restores it from a save
// slot.
func (e *Engine) LoadSession(ctx context.Context, slot int) (*Session, error) {
	return e.rt.LoadSession(ctx, slot)
}

// LoadProject loads and returns the story document without starting a
// session. Validation and graph tooling use this.
func (e *Engine) LoadProject(ctx context.Context) (*domain.Project, error) {
	return e.rt.LoadProject(ctx)
}

// Validate loads the story document and runs the structural lint over it:
// dangling references, unbalanced branch markers, uncompilable expression
// conditions, unreachable scenes.
func (e *Engine) Validate(ctx context.Context) ([]Issue, error) {
	project, err := e.rt.LoadProject(ctx)
	if err != nil {
		return nil, err
	}
	return validator.Validate(project), nil
}

// Slots exposes the save-slot manager, for surfaces that list or delete
// slots without a live session.
func (e *Engine) Slots() *session.Manager {
	return e.rt.Slots()
}

// Watch returns a channel that signals when the underlying story changes.
// Returns an error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan struct{}, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("story loader does not support watching")
}

// Loader returns the underlying StoryLoader used by the engine.
func (e *Engine) Loader() ports.StoryLoader {
	return e.loader
}
