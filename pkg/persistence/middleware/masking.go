package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/ports"
)

type maskingMiddleware struct {
	next     ports.SlotStore
	patterns []*regexp.Regexp
}

// NewMaskingMiddleware creates a middleware that blanks the values of
// variables whose id matches any of the patterns before a snapshot is
// persisted. Typed player input (textInput answers) often carries personal
// data; masking keeps it out of save files while the live session still
// holds the real value.
func NewMaskingMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SlotStore) ports.SlotStore {
		return &maskingMiddleware{next: next, patterns: patterns}
	}
}

func (m *maskingMiddleware) Save(ctx context.Context, projectID string, slot int, snap *domain.Snapshot) error {
	// Copy before masking so the caller's snapshot is untouched.
	cloned := *snap
	cloned.Vars = make(map[string]any, len(snap.Vars))
	for k, v := range snap.Vars {
		cloned.Vars[k] = v
	}

	masked := make(map[string]bool)
	for k := range cloned.Vars {
		for _, p := range m.patterns {
			if p.MatchString(k) {
				cloned.Vars[k] = "***"
				masked[k] = true
				break
			}
		}
	}

	// Typed answers echo into the history backlog too, and which input fed
	// which variable is not traceable after the fact. When anything was
	// masked, scrub every typed line.
	if len(masked) > 0 {
		cloned.History = append([]domain.HistoryEntry(nil), snap.History...)
		for i := range cloned.History {
			if cloned.History[i].Kind == "input" {
				cloned.History[i].Text = "***"
			}
		}
	}

	return m.next.Save(ctx, projectID, slot, &cloned)
}

func (m *maskingMiddleware) Load(ctx context.Context, projectID string, slot int) (*domain.Snapshot, error) {
	return m.next.Load(ctx, projectID, slot)
}

func (m *maskingMiddleware) Delete(ctx context.Context, projectID string, slot int) error {
	return m.next.Delete(ctx, projectID, slot)
}

func (m *maskingMiddleware) List(ctx context.Context, projectID string) ([]int, error) {
	return m.next.List(ctx, projectID)
}
