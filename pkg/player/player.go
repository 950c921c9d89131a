package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/vine"
	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/ports"
)

// RenderFunc transforms dialogue text before it is printed; the CLI plugs a
// glamour markdown renderer in here. The alias keeps any compatible function
// type assignable.
type RenderFunc = func(string) (string, error)

// pollInterval is the repaint fallback while the session is transitioning
// and no Presenter is wired to wake the loop.
const pollInterval = 50 * time.Millisecond

// Player drives one session over line-oriented IO. It owns the read loop,
// the rendering of dialogue, menus and stage directions, and the in-band
// command space (save, load, history, quit).
type Player struct {
	in       io.Reader
	out      io.Writer
	logger   *slog.Logger
	render   RenderFunc
	headless bool

	updates  chan struct{}
	lines    chan lineResult
	pumpOnce sync.Once
}

// Option configures the Player.
type Option func(*Player)

// WithInput sets the input stream. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(p *Player) { p.in = r }
}

// WithOutput sets the output stream. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(p *Player) { p.out = w }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Player) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRenderer sets the dialogue renderer (e.g. markdown to ANSI).
func WithRenderer(r RenderFunc) Option {
	return func(p *Player) { p.render = r }
}

// WithHeadless strips prompts, stage directions and system chatter: only
// dialogue, choices and input prompts are printed, one per line. Meant for
// scripted playthroughs where stdin is a prepared answer file.
func WithHeadless(headless bool) Option {
	return func(p *Player) { p.headless = headless }
}

// New creates a Player bound to stdin/stdout unless configured otherwise.
func New(opts ...Option) *Player {
	p := &Player{
		in:      os.Stdin,
		out:     os.Stdout,
		logger:  logging.NewNop(),
		updates: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Presenter returns a hook for the engine's WithPresenter option. Each
// applied patch wakes the render loop, so timer-driven changes (waits,
// fades, async effects) repaint without polling.
func (p *Player) Presenter() ports.Presenter {
	return ports.PresenterFunc(func(_ domain.StatePatch, _ *domain.PlayerState) {
		select {
		case p.updates <- struct{}{}:
		default:
		}
	})
}

// Run executes the session until it ends, the player quits, or input is
// exhausted. A canceled context is returned as the context's error; EOF and
// an in-band quit end the run cleanly.
func (p *Player) Run(ctx context.Context, sess *vine.Session) error {
	p.startPump()

	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	var mark renderMark
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		st := sess.State()
		p.paint(st, &mark)

		switch st.Status {
		case domain.StatusEnded:
			p.system("The End.")
			return nil

		case domain.StatusTransitioning:
			quit, err := p.awaitTransition(ctx, sess, &mark)
			if err != nil || quit {
				return err
			}

		case domain.StatusWaitingForInput:
			quit, err := p.handleWait(ctx, sess, st, &mark)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil || quit {
				return err
			}

		default:
			// Idle or mid-step: nudge the loop and let the next paint
			// pick up the result.
			if err := sess.Step(ctx); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
		}
	}
}

// awaitTransition parks until a patch lands, the poll interval elapses, or
// the user types. An empty line skips a skippable wait; commands still work
// so a save can happen mid-fade.
func (p *Player) awaitTransition(ctx context.Context, sess *vine.Session, mark *renderMark) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-p.updates:
		return false, nil
	case <-time.After(pollInterval):
		return false, nil
	case res, ok := <-p.lines:
		if !ok {
			// Input is drained but timers are still running; let them
			// finish. The next state that needs a line ends the run.
			p.lines = nil
			return false, nil
		}
		if res.err != nil {
			return false, nil
		}
		line, err := SanitizeInput(strings.TrimSpace(res.text))
		if err != nil {
			return false, nil
		}
		handled, quit := p.command(ctx, sess, line, false, mark)
		if quit {
			return true, nil
		}
		if !handled && line == "" {
			if err := sess.Advance(ctx); err != nil && !errors.Is(err, domain.ErrNoPendingInput) {
				return false, err
			}
		}
		return false, nil
	}
}

// handleWait services one suspended-for-input state: a movie marker, a
// choice menu, a text prompt, or a plain dialogue wait.
func (p *Player) handleWait(ctx context.Context, sess *vine.Session, st *domain.PlayerState, mark *renderMark) (bool, error) {
	hasChoices := len(st.UI.Choices) > 0
	hasPrompt := st.UI.Prompt != "" || st.UI.InputVariableID != ""
	hasMovie := st.Stage.MovieID != "" && !hasChoices && !hasPrompt

	// A terminal cannot decode video; in headless mode the movie resolves
	// immediately, interactively it waits for a keypress.
	if hasMovie && p.headless {
		return false, sess.FinishMovie(ctx)
	}

	line, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}

	handled, quit := p.command(ctx, sess, line, hasPrompt, mark)
	if quit {
		return true, nil
	}
	if handled {
		return false, nil
	}

	switch {
	case hasMovie:
		return false, sess.FinishMovie(ctx)

	case hasPrompt:
		return false, sess.SubmitText(ctx, line)

	case hasChoices:
		id := line
		if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(st.UI.Choices) {
			id = st.UI.Choices[n-1].ID
		}
		if err := sess.Choose(ctx, id); err != nil {
			if errors.Is(err, domain.ErrUnknownOption) {
				p.system("No option %q. Pick a number from the menu.", line)
				return false, nil
			}
			if errors.Is(err, domain.ErrNoPendingInput) {
				return false, nil
			}
			return false, err
		}
		return false, nil

	default:
		if err := sess.Advance(ctx); err != nil && !errors.Is(err, domain.ErrNoPendingInput) {
			return false, err
		}
		return false, nil
	}
}

// command interprets the in-band control words. With slashOnly set (inside
// a text prompt) only slash-prefixed forms are commands, so a player can
// legitimately be named "history". Returns handled=false for lines the
// session should consume.
func (p *Player) command(ctx context.Context, sess *vine.Session, line string, slashOnly bool, mark *renderMark) (handled, quit bool) {
	word := line
	slashed := strings.HasPrefix(line, "/")
	if slashed {
		word = strings.TrimPrefix(line, "/")
	}
	if slashOnly && !slashed {
		return false, false
	}

	fields := strings.Fields(word)
	if len(fields) == 0 {
		return false, false
	}

	switch fields[0] {
	case "q", "quit", "exit":
		return true, true

	case "save":
		slot, err := commandSlot(fields)
		if err != nil {
			p.system("Usage: save <slot>")
			return true, false
		}
		if err := sess.Save(ctx, slot); err != nil {
			p.system("Save failed: %v", err)
			return true, false
		}
		p.system("Saved slot %d.", slot)
		return true, false

	case "load":
		slot, err := commandSlot(fields)
		if err != nil {
			p.system("Usage: load <slot>")
			return true, false
		}
		if err := sess.Load(ctx, slot); err != nil {
			if errors.Is(err, domain.ErrSlotEmpty) {
				p.system("Slot %d is empty.", slot)
			} else {
				p.system("Load failed: %v", err)
			}
			return true, false
		}
		*mark = renderMark{} // force a full repaint of the restored scene
		p.system("Loaded slot %d.", slot)
		return true, false

	case "slots":
		slots, err := sess.Slots(ctx)
		if err != nil {
			p.system("Slots unavailable: %v", err)
			return true, false
		}
		if len(slots) == 0 {
			p.system("No saves yet.")
			return true, false
		}
		parts := make([]string, len(slots))
		for i, s := range slots {
			parts[i] = strconv.Itoa(s)
		}
		p.system("Saved slots: %s", strings.Join(parts, ", "))
		return true, false

	case "history":
		p.printHistory(sess.State().History)
		return true, false

	case "help", "h", "?":
		p.printHelp()
		return true, false
	}

	if slashed {
		p.system("Unknown command %q. Try /help.", fields[0])
		return true, false
	}
	return false, false
}

func commandSlot(fields []string) (int, error) {
	if len(fields) != 2 {
		return 0, errors.New("missing slot")
	}
	return strconv.Atoi(fields[1])
}

// readLine reads one sanitized line, re-prompting on rejected input.
func (p *Player) readLine(ctx context.Context) (string, error) {
	for {
		if p.lines == nil {
			return "", io.EOF
		}
		if !p.headless {
			fmt.Fprint(p.out, "> ")
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-p.lines:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(p.out, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}
