package runtime

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/aretw0/vine/internal/audio"
	"github.com/aretw0/vine/internal/eval"
	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/internal/sched"
	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/ports"
	"github.com/aretw0/vine/pkg/session"
)

// Engine binds a story loader to the infrastructure ports and mints
// sessions. It is safe for concurrent use; each Session serializes its own
// loop internally.
type Engine struct {
	loader    ports.StoryLoader
	slots     *session.Manager
	assets    ports.AssetResolver
	output    ports.AudioOutput
	presenter ports.Presenter
	clock     ports.Clock
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	rng       *rand.Rand
	sfxPool   int
	fadeTick  time.Duration
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Sessions derive their own loggers
// from it, tagged with the session id.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHooks installs lifecycle callbacks. Hooks run synchronously on the
// loop's goroutine and must not call back into the session.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithClock substitutes the time source used by schedulers, fades, and
// save timestamps. Tests drive a fake clock through this.
func WithClock(c ports.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithRand pins the random source backing the random mutation operator.
// Intended for tests and replays; with more than one live session the
// source is shared, so production engines should leave it unset.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithAssetResolver installs the asset catalog. Without one the engine
// runs in id-only mode: asset references pass through unresolved and
// nothing is treated as dangling.
func WithAssetResolver(r ports.AssetResolver) Option {
	return func(e *Engine) { e.assets = r }
}

// WithAudioOutput installs the playback device. Without one the audio
// manager keeps channel bookkeeping only.
func WithAudioOutput(out ports.AudioOutput) Option {
	return func(e *Engine) { e.output = out }
}

// WithSlotStore installs the save-slot backend. Without one saves live in
// process memory only.
func WithSlotStore(store ports.SlotStore) Option {
	return func(e *Engine) {
		e.slots = session.NewManager(store, session.WithLogger(e.logger))
	}
}

// WithPresenter installs the presentation callback notified after every
// applied state patch.
func WithPresenter(p ports.Presenter) Option {
	return func(e *Engine) { e.presenter = p }
}

// WithSFXPoolCapacity bounds the concurrent sound-effect pool.
func WithSFXPoolCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.sfxPool = n
		}
	}
}

// WithFadeTick sets the audio fade-ramp resolution.
func WithFadeTick(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.fadeTick = d
		}
	}
}

// NewEngine creates an Engine over a story loader.
func NewEngine(loader ports.StoryLoader, opts ...Option) *Engine {
	e := &Engine{
		loader: loader,
		clock:  sched.SystemClock(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.slots == nil {
		e.slots = session.NewManager(nil, session.WithLogger(e.logger))
	}
	return e
}

// Slots exposes the save-slot manager, for surfaces that list or delete
// slots without a live session.
func (e *Engine) Slots() *session.Manager {
	return e.slots
}

// LoadProject loads and returns the story document without starting a
// session. Validation tooling uses this.
func (e *Engine) LoadProject(ctx context.Context) (*domain.Project, error) {
	project, err := e.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	return project, nil
}

// NewSession loads the story document and creates a fresh playthrough
// positioned before the first command of the start scene.
func (e *Engine) NewSession(ctx context.Context) (*Session, error) {
	project, err := e.LoadProject(ctx)
	if err != nil {
		return nil, err
	}
	if project.StartScene() == nil {
		return nil, domain.ErrNoScenes
	}
	return e.newSession(project), nil
}

// LoadSession creates a session and immediately restores it from a save
// slot.
func (e *Engine) LoadSession(ctx context.Context, slot int) (*Session, error) {
	s, err := e.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Load(ctx, slot); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (e *Engine) newSession(project *domain.Project) *Session {
	id := uuid.NewString()
	logger := e.logger.With("session_id", id)

	rng := e.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(e.clock.Now().UnixNano()))
	}

	evalOpts := []eval.Option{eval.WithLogger(logger)}
	if e.assets != nil {
		evalOpts = append(evalOpts, eval.WithNameResolver(assetNameResolver(e.assets)))
	}

	audioOpts := []audio.Option{
		audio.WithClock(e.clock),
		audio.WithLogger(logger),
	}
	if e.output != nil {
		audioOpts = append(audioOpts, audio.WithOutput(e.output))
	}
	if e.assets != nil {
		audioOpts = append(audioOpts, audio.WithResolver(e.assets))
	}
	if e.sfxPool > 0 {
		audioOpts = append(audioOpts, audio.WithPoolCapacity(e.sfxPool))
	}
	if e.fadeTick > 0 {
		audioOpts = append(audioOpts, audio.WithFadeTick(e.fadeTick))
	}

	return &Session{
		id:      id,
		eng:     e,
		project: project,
		logger:  logger,
		state:   domain.NewPlayerState(project),
		sched:   sched.New(e.clock, logger),
		audio:   audio.New(audioOpts...),
		eval:    eval.New(project, evalOpts...),
		mut:     eval.NewMutator(project, rng, logger),
	}
}

// assetNameResolver adapts the catalog to the evaluator's display-name
// lookup: the first section that knows the id wins.
func assetNameResolver(assets ports.AssetResolver) eval.NameResolver {
	kinds := []ports.AssetKind{
		ports.AssetCharacter, ports.AssetBackground, ports.AssetAudio,
		ports.AssetMovie, ports.AssetImage,
	}
	return func(assetID string) string {
		for _, kind := range kinds {
			if meta, ok := assets.Metadata(assetID, kind); ok && meta.Name != "" {
				return meta.Name
			}
		}
		return ""
	}
}
