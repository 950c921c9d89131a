package player

import (
	"fmt"
	"strings"

	"github.com/aretw0/vine/pkg/domain"
)

// renderMark remembers what is already on screen so repaints only emit
// deltas.
type renderMark struct {
	sig       domain.Signature
	menuSig   domain.Signature
	promptSig domain.Signature
	backdrop  string
	movie     string
	music     string
	ambient   string
	screen    string
}

// paint prints whatever changed since the last paint: stage directions,
// the live dialogue line, a choice menu, or a text prompt.
func (p *Player) paint(st *domain.PlayerState, mark *renderMark) {
	if !p.headless {
		p.paintStage(st, mark)
	}

	// Dialogue prints once per dispatch, and only while the waiting
	// command is the dialogue itself: the UI keeps stale lines around
	// until a clearDialogue.
	if cur := st.Current(); cur != nil && cur.Type == domain.CmdDialogue &&
		st.Status == domain.StatusWaitingForInput &&
		st.UI.Dialogue != "" && st.LastDispatched != mark.sig {
		p.speak(st.UI.Speaker, st.UI.Dialogue)
	}
	mark.sig = st.LastDispatched

	if len(st.UI.Choices) > 0 && st.Status == domain.StatusWaitingForInput &&
		mark.menuSig != st.LastDispatched {
		for i, opt := range st.UI.Choices {
			fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt.Text)
		}
		mark.menuSig = st.LastDispatched
	}

	if (st.UI.Prompt != "" || st.UI.InputVariableID != "") &&
		st.Status == domain.StatusWaitingForInput &&
		mark.promptSig != st.LastDispatched {
		if st.UI.Prompt != "" {
			p.speak("", st.UI.Prompt)
		}
		mark.promptSig = st.LastDispatched
	}
}

func (p *Player) paintStage(st *domain.PlayerState, mark *renderMark) {
	if bg := st.Stage.BackgroundID; bg != mark.backdrop {
		if bg != "" {
			p.direction("backdrop: %s", bg)
		}
		mark.backdrop = bg
	}
	if mv := st.Stage.MovieID; mv != mark.movie {
		if mv != "" {
			p.direction("movie: %s (enter to continue)", mv)
		}
		mark.movie = mv
	}
	if m := st.Music.Music.AssetID; m != mark.music {
		if m == "" {
			p.direction("music stops")
		} else {
			p.direction("music: %s", m)
		}
		mark.music = m
	}
	if a := st.Music.Ambient.AssetID; a != mark.ambient {
		if a != "" {
			p.direction("ambient: %s", a)
		}
		mark.ambient = a
	}
	if sc := st.UI.ActiveScreenID; sc != mark.screen {
		if sc != "" {
			p.direction("screen: %s", sc)
		}
		mark.screen = sc
	}
}

// speak prints one line of dialogue, rendered if a renderer is set.
func (p *Player) speak(speaker, text string) {
	line := text
	if p.render != nil {
		if out, err := p.render(text); err == nil {
			line = strings.TrimSpace(out)
		}
	}
	if speaker != "" {
		fmt.Fprintf(p.out, "%s: %s\n", speaker, line)
		return
	}
	fmt.Fprintln(p.out, line)
}

// direction prints a bracketed stage direction.
func (p *Player) direction(format string, args ...any) {
	fmt.Fprintf(p.out, "  [%s]\n", fmt.Sprintf(format, args...))
}

// system prints player chatter (save confirmations, help). Suppressed in
// headless mode.
func (p *Player) system(format string, args ...any) {
	if p.headless {
		return
	}
	fmt.Fprintf(p.out, ">>> %s\n", fmt.Sprintf(format, args...))
}

func (p *Player) printHistory(entries []domain.HistoryEntry) {
	if len(entries) == 0 {
		p.system("History is empty.")
		return
	}
	for _, e := range entries {
		switch e.Kind {
		case "choice":
			fmt.Fprintf(p.out, "  * %s\n", e.Text)
		case "input":
			fmt.Fprintf(p.out, "  > %s\n", e.Text)
		default:
			if e.Speaker != "" {
				fmt.Fprintf(p.out, "  %s: %s\n", e.Speaker, e.Text)
			} else {
				fmt.Fprintf(p.out, "  %s\n", e.Text)
			}
		}
	}
}

func (p *Player) printHelp() {
	help := []string{
		"enter        advance dialogue (or skip a skippable wait)",
		"<number>     pick a choice from the menu",
		"save <n>     save to slot n",
		"load <n>     load slot n",
		"slots        list occupied save slots",
		"history      show the dialogue backlog",
		"quit         leave the story",
		"",
		"Inside a text prompt, prefix commands with '/' (e.g. /save 1);",
		"everything else is taken literally as your answer.",
	}
	for _, line := range help {
		fmt.Fprintf(p.out, "  %s\n", line)
	}
}
