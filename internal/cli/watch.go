package cli

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/vine"
	"github.com/aretw0/vine/internal/presentation/tui"
	"github.com/aretw0/vine/internal/validator"
	"github.com/aretw0/vine/pkg/adapters/memory"
	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/player"
	"github.com/aretw0/vine/pkg/ports"
)

// autosaveSlot is where watch mode parks progress across reloads. Dev
// saves live in a process-local memory store, so the slot never collides
// with a player's real saves.
const autosaveSlot = 0

// RunWatch plays the story in development mode, rebuilding the engine and
// resuming the playthrough whenever the story files change. Saves are
// ephemeral here: progress carries across reloads, not process restarts.
func RunWatch(opts RunOptions) error {
	logger := createLogger(opts.Debug)
	tui.PrintBanner(vine.Version)

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	// One player for the whole loop: restarting iterations must not leave
	// ghost readers competing for stdin.
	p := createPlayer(opts, logger)

	// Ephemeral dev saves; a process restart starts the story over.
	store := memory.NewStore()

	logger.Info("Starting Watcher", "path", opts.LibraryPath)
	printSystemMessage("Watching '%s' for changes.", opts.LibraryPath)

	first := true
	for {
		again, err := runWatchIteration(sigCtx, opts, p, store, first, logger)
		if !again {
			return err
		}
		first = false
		logger.Info("Watcher restarting")
	}
}

func runWatchIteration(parentCtx *SignalContext, opts RunOptions, p *player.Player, store ports.SlotStore, first bool, logger *slog.Logger) (bool, error) {
	// A child context cancelled by reload, without cancelling the parent
	// signal context.
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	engine, err := createEngine(opts, logger,
		vine.WithSlotStore(store),
		vine.WithPresenter(p.Presenter()),
	)
	if err != nil {
		logger.Error("Engine initialization failed", "err", err)
		printSystemMessage("Story failed to load: %v", err)
		select {
		case <-parentCtx.Done():
			return false, nil
		case <-time.After(2 * time.Second):
			return true, nil
		}
	}

	watchCh, watchErr := engine.Watch(ctx)
	if watchErr != nil {
		logger.Warn("Hot reload unavailable", "err", watchErr)
	}

	// Lint on every reload. Hard errors park the watcher until the next
	// change instead of letting the interpreter paper over them.
	issues, err := engine.Validate(ctx)
	if err != nil {
		logger.Error("Story failed to parse", "err", err)
		printSystemMessage("Story failed to parse: %v", err)
		return awaitChange(parentCtx, ctx, watchCh)
	}
	for _, issue := range issues {
		printSystemMessage("%s", issue)
	}
	if validator.HasErrors(issues) {
		printSystemMessage("Story has errors; waiting for a fix...")
		return awaitChange(parentCtx, ctx, watchCh)
	}

	sess, resumed, err := resumeOrStart(ctx, engine, first)
	if err != nil {
		logger.Error("Session initialization failed", "err", err)
		printSystemMessage("Session failed to start: %v", err)
		return awaitChange(parentCtx, ctx, watchCh)
	}
	defer sess.Close()
	if resumed {
		printSystemMessage("Resuming at '%s'.", sess.State().SceneID)
	}

	// Reload trigger: one change event cancels this iteration.
	reloadCh := make(chan struct{}, 1)
	go func() {
		if watchCh == nil {
			return
		}
		select {
		case <-ctx.Done():
		case _, ok := <-watchCh:
			if ok {
				printSystemMessage("Change detected, reloading.")
				// Let the editor finish its write burst.
				time.Sleep(100 * time.Millisecond)
				reloadCh <- struct{}{}
				cancel()
			}
		}
	}()

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- p.Run(runCtx, sess)
	}()

	select {
	case <-parentCtx.Done():
		runCancel()
		<-doneCh
		logCompletion(sess.State().SceneID, context.Canceled, opts.Debug, true, false, parentCtx.Signal())
		logger.Info("Stopping watcher (signal received)", "signal", parentCtx.Signal())
		return false, nil

	case <-reloadCh:
		runCancel()
		<-doneCh
		autosave(parentCtx, sess, store, logger)
		return true, nil

	case runErr := <-doneCh:
		return handleWatchCompletion(ctx, parentCtx, sess, store, runErr, watchCh, opts.Debug, logger)
	}
}

// autosave parks the playthrough for the next iteration. An ended session
// clears the autosave instead, so the reload starts the story over.
func autosave(ctx context.Context, sess *vine.Session, store ports.SlotStore, logger *slog.Logger) {
	projectID := sess.State().ProjectID
	if sess.Status() == domain.StatusEnded {
		if err := store.Delete(ctx, projectID, autosaveSlot); err != nil {
			logger.Warn("Autosave cleanup failed", "err", err)
		}
		return
	}
	if err := sess.Save(ctx, autosaveSlot); err != nil {
		logger.Warn("Autosave failed, reload will start over", "err", err)
	}
}

// resumeOrStart restores the autosave, falling back to a fresh session
// when the snapshot no longer hydrates against the edited story.
func resumeOrStart(ctx context.Context, engine *vine.Engine, first bool) (*vine.Session, bool, error) {
	if !first {
		sess, err := engine.LoadSession(ctx, autosaveSlot)
		if err == nil {
			return sess, true, nil
		}
		if !errors.Is(err, domain.ErrSlotEmpty) {
			printSystemMessage("Progress did not survive the reload (%v); starting over.", err)
		}
	}

	sess, err := engine.NewSession(ctx)
	return sess, false, err
}

func handleWatchCompletion(ctx context.Context, parentCtx *SignalContext, sess *vine.Session, store ports.SlotStore, runErr error, watchCh <-chan struct{}, debug bool, logger *slog.Logger) (bool, error) {
	sceneID := sess.State().SceneID

	// Shutdown can race the run result onto doneCh first.
	if parentCtx.Err() != nil {
		logCompletion(sceneID, context.Canceled, debug, true, false, parentCtx.Signal())
		return false, nil
	}

	if runErr != nil {
		// A cancelled context here is the reload goroutine's doing.
		if errors.Is(runErr, context.Canceled) {
			autosave(parentCtx, sess, store, logger)
			return true, nil
		}
		if isInterrupted(runErr) {
			return false, nil
		}
		logger.Error("Runtime error", "err", runErr)
		printSystemMessage("Story crashed: %v", runErr)
		return awaitChange(parentCtx, ctx, watchCh)
	}

	if sess.Status() != domain.StatusEnded {
		// The player quit (or stdin drained) mid-story: leave the watcher.
		return false, nil
	}

	// The story finished. Clear the autosave so the next change replays
	// from the top, then park.
	autosave(parentCtx, sess, store, logger)
	logCompletion(sceneID, nil, debug, false, false, nil)
	printSystemMessage("Waiting for changes...")
	return awaitChange(parentCtx, ctx, watchCh)
}

// awaitChange parks until the next story change or a shutdown signal.
func awaitChange(parentCtx *SignalContext, ctx context.Context, watchCh <-chan struct{}) (bool, error) {
	if watchCh == nil {
		return false, nil
	}
	select {
	case <-parentCtx.Done():
		return false, nil
	case _, ok := <-watchCh:
		if !ok {
			return false, nil
		}
		printSystemMessage("Change detected, reloading.")
		time.Sleep(100 * time.Millisecond)
		return true, nil
	case <-ctx.Done():
		return true, nil
	}
}
