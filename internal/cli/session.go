package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/vine"
	"github.com/aretw0/vine/internal/presentation/tui"
	"github.com/aretw0/vine/pkg/adapters/beep"
	"github.com/aretw0/vine/pkg/player"
)

// RunSession plays one story in the terminal, start to finish.
func RunSession(opts RunOptions, cfg Config) error {
	logger := createLogger(opts.Debug)

	if !opts.Headless {
		tui.PrintBanner(vine.Version)
	}

	store, err := createStore(cfg, logger)
	if err != nil {
		return err
	}

	p := createPlayer(opts, logger)

	engineOpts := []vine.Option{
		vine.WithSlotStore(store),
		vine.WithPresenter(p.Presenter()),
	}
	if opts.Audio {
		// No audio device is a degraded run, not a dead one.
		if out, audioErr := beep.NewOutput(beep.WithLogger(logger)); audioErr != nil {
			logger.Warn("Audio unavailable", "err", audioErr)
			printSystemMessage("Audio unavailable: %v", audioErr)
		} else {
			defer out.Close()
			engineOpts = append(engineOpts, vine.WithAudioOutput(out))
		}
	}

	engine, err := createEngine(opts, logger, engineOpts...)
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	sess, err := openSession(sigCtx, engine, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	runErr := p.Run(sigCtx, sess)

	// If the context was canceled (signal received), ensure runErr
	// reflects it if it doesn't already.
	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}

	logCompletion(sess.State().SceneID, runErr, opts.Debug, true, opts.Headless, sigCtx.Signal())

	return handleExecutionError(runErr)
}

// createPlayer builds the terminal player: markdown rendering interactive,
// bare lines headless.
func createPlayer(opts RunOptions, logger *slog.Logger) *player.Player {
	playerOpts := []player.Option{
		player.WithLogger(logger),
		player.WithHeadless(opts.Headless),
	}
	if !opts.Headless {
		if render, err := tui.NewMarkdownRenderer(); err == nil {
			playerOpts = append(playerOpts, player.WithRenderer(render))
		} else {
			logger.Warn("Markdown renderer unavailable", "err", err)
		}
	}
	return player.New(playerOpts...)
}

// openSession creates a fresh playthrough or restores one from a slot.
func openSession(ctx context.Context, engine *vine.Engine, opts RunOptions) (*vine.Session, error) {
	if opts.Slot >= 0 {
		sess, err := engine.LoadSession(ctx, opts.Slot)
		if err != nil {
			return nil, fmt.Errorf("load slot %d: %w", opts.Slot, err)
		}
		if !opts.Headless {
			printSystemMessage("Resuming slot %d at '%s'.", opts.Slot, sess.State().SceneID)
		}
		return sess, nil
	}
	sess, err := engine.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}
