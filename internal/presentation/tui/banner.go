package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner renders the startup banner with a green-to-teal gradient,
// degrading to plain text on dumb terminals.
func PrintBanner(version string) {
	p := termenv.ColorProfile()

	lines := []string{
		` __   __ ___  _  _  ___ `,
		` \ \ / /|_ _|| \| || __|`,
		`  \ V /  | | | .  || _| `,
		`   \_/  |___||_|\_||___|`,
	}

	// Vine greens, darkening toward the roots.
	colors := []string{"#a3e635", "#4ade80", "#2dd4bf", "#0d9488"}

	var b strings.Builder
	for i, line := range lines {
		c := colors[i%len(colors)]
		b.WriteString(termenv.String(line).Foreground(p.Color(c)).String())
		b.WriteString("\n")
	}
	b.WriteString(termenv.String("  scene command interpreter " + strings.TrimSpace(version)).
		Foreground(p.Color("#6b7280")).Faint().String())
	b.WriteString("\n")

	fmt.Print(b.String())
}
