// Package graph renders a project's scene graph as Mermaid flowchart text,
// ready to paste into any Mermaid-aware viewer or docs page.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/vine/pkg/domain"
)

// Overlay marks playthrough state on the exported graph: visited scenes get
// a muted fill, the current scene a highlighted one.
type Overlay struct {
	VisitedScenes []string
	CurrentScene  string
}

// GenerateMermaid renders p as a top-down Mermaid flowchart. Node shapes
// encode a scene's role: the start scene is a circle, condition-gated scenes
// are parallelograms, everything else a rectangle. Edges follow static
// navigation only: jumps (labelled with their guard, if any), scene calls and
// fallback routing as dotted arrows, choice options labelled with the option
// text, and declaration-order fall-through.
func GenerateMermaid(p *domain.Project, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var startID string
	if s := p.StartScene(); s != nil {
		startID = s.ID
	}

	for i := range p.Scenes {
		sc := &p.Scenes[i]
		id := sanitizeMermaidID(sc.ID)
		name := escapeLabel(sc.DisplayName())
		switch {
		case sc.ID == startID:
			sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", id, name))
		case len(sc.Conditions) > 0:
			sb.WriteString(fmt.Sprintf("    %s[/\"%s\"/]\n", id, name))
		default:
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, name))
		}
	}

	for i := range p.Scenes {
		sc := &p.Scenes[i]
		from := sanitizeMermaidID(sc.ID)

		for j := range sc.Commands {
			c := &sc.Commands[j]
			switch c.Type {
			case domain.CmdJump:
				if c.TargetSceneID == "" {
					continue
				}
				if guard := conditionLabel(c.Conditions); guard != "" {
					sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", from, guard, sanitizeMermaidID(c.TargetSceneID)))
				} else {
					sb.WriteString(fmt.Sprintf("    %s --> %s\n", from, sanitizeMermaidID(c.TargetSceneID)))
				}
			case domain.CmdCallScene:
				if c.TargetSceneID == "" {
					continue
				}
				sb.WriteString(fmt.Sprintf("    %s -. \"call\" .-> %s\n", from, sanitizeMermaidID(c.TargetSceneID)))
			case domain.CmdChoice:
				for _, opt := range c.Options {
					// Label targets stay inside the scene and draw no edge.
					if opt.TargetSceneID == "" {
						continue
					}
					sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", from, escapeLabel(opt.Text), sanitizeMermaidID(opt.TargetSceneID)))
				}
			}
		}

		if sc.FallbackSceneID != "" {
			sb.WriteString(fmt.Sprintf("    %s -. \"fallback\" .-> %s\n", from, sanitizeMermaidID(sc.FallbackSceneID)))
		}
		if fallsThrough(sc) && i+1 < len(p.Scenes) {
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", from, sanitizeMermaidID(p.Scenes[i+1].ID)))
		}
	}

	if overlay != nil {
		sb.WriteString("    classDef visited fill:#dcfce7,stroke:#22c55e;\n")
		sb.WriteString("    classDef current fill:#bbf7d0,stroke:#15803d,stroke-width:2px;\n")
		for _, v := range overlay.VisitedScenes {
			if v == overlay.CurrentScene {
				continue
			}
			sb.WriteString(fmt.Sprintf("    class %s visited\n", sanitizeMermaidID(v)))
		}
		if overlay.CurrentScene != "" {
			sb.WriteString(fmt.Sprintf("    class %s current\n", sanitizeMermaidID(overlay.CurrentScene)))
		}
	}

	return sb.String()
}

// fallsThrough mirrors the interpreter's end-of-scene rule: execution runs
// past the last command into the next scene unless that command is an
// unconditional endGame, jump or returnToCaller.
func fallsThrough(sc *domain.Scene) bool {
	if len(sc.Commands) == 0 {
		return true
	}
	last := sc.Commands[len(sc.Commands)-1]
	if len(last.Conditions) > 0 {
		return true
	}
	switch last.Type {
	case domain.CmdEndGame, domain.CmdJump, domain.CmdReturnToCaller:
		return false
	}
	return true
}

func conditionLabel(conds []domain.Condition) string {
	if len(conds) == 0 {
		return ""
	}
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		switch {
		case c.Expression != "":
			parts = append(parts, c.Expression)
		case c.Operator == domain.OpIsTrue:
			parts = append(parts, c.VariableID)
		case c.Operator == domain.OpIsFalse:
			parts = append(parts, "!"+c.VariableID)
		default:
			parts = append(parts, fmt.Sprintf("%s %s %v", c.VariableID, c.Operator, c.Value))
		}
	}
	return escapeLabel(strings.Join(parts, " & "))
}

// sanitizeMermaidID rewrites characters Mermaid treats as syntax inside a
// node id.
func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
