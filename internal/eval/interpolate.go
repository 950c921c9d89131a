package eval

import (
	"regexp"

	"github.com/aretw0/vine/pkg/domain"
)

// placeholderRe matches {variableName} spans in authored text. The brace
// syntax is the authoring contract, so interpolation is a scan-and-replace
// rather than a template engine.
var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// Interpolate replaces {variableName} with the variable's display value.
// Lookup is by declared name first, then by id. Unknown names are left
// verbatim so a typo is visible in playtests instead of vanishing.
func Interpolate(text string, project *domain.Project, vars map[string]any) string {
	if text == "" || len(vars) == 0 {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(span string) string {
		name := span[1 : len(span)-1]
		if project != nil {
			if decl := project.VariableByName(name); decl != nil {
				if v, ok := vars[decl.ID]; ok {
					return AsString(v)
				}
				return span
			}
		}
		if v, ok := vars[name]; ok {
			return AsString(v)
		}
		return span
	})
}
