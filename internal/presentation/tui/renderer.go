package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// RenderFunc turns a markdown fragment into terminal-styled text.
type RenderFunc func(string) (string, error)

// NewMarkdownRenderer builds a glamour renderer for dialogue lines and
// prompts. Style follows the terminal's background; width follows the
// terminal but is capped so long narration stays readable on wide screens.
func NewMarkdownRenderer() (RenderFunc, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(renderWidth()),
	)
	if err != nil {
		return nil, err
	}
	return func(content string) (string, error) {
		return r.Render(content)
	}, nil
}

func renderWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	if width > 100 {
		return 100
	}
	if width < 40 {
		return 40
	}
	return width
}
