package eval

import (
	"log/slog"
	"math/rand"
	"strings"

	"github.com/aretw0/vine/pkg/domain"
)

// Mutator applies variable mutations with type-directed coercion. The rng
// backs the random operator and is injectable so tests and replays are
// deterministic.
type Mutator struct {
	project *domain.Project
	rng     *rand.Rand
	log     *slog.Logger
}

// NewMutator creates a Mutator over a project's declarations. A nil rng
// falls back to a time-seeded source at the call site of the engine, so
// the zero value here is never used blind.
func NewMutator(project *domain.Project, rng *rand.Rand, log *slog.Logger) *Mutator {
	if log == nil {
		log = slog.Default()
	}
	return &Mutator{project: project, rng: rng, log: log}
}

// Apply computes the new value for a mutation against the current session
// value. It never errors: invalid operator/type pairs downgrade to set and
// the downgrade is logged as an authoring defect.
func (m *Mutator) Apply(mut domain.Mutation, current any) any {
	decl := m.decl(mut.VariableID)

	op := mut.Operator
	if op == "" {
		op = domain.OpSet
	}

	// add/subtract/random require a numeric variable; a non-numeric
	// declared type normalizes the operation to set rather than erroring.
	if op != domain.OpSet && decl != nil && decl.Type != domain.VarNumber {
		m.log.Warn("mutation operator downgraded to set on non-numeric variable",
			"variable", mut.VariableID, "operator", string(op), "type", string(decl.Type))
		op = domain.OpSet
	}

	switch op {
	case domain.OpAdd:
		return AsNumber(current) + AsNumber(mut.Value)
	case domain.OpSubtract:
		return AsNumber(current) - AsNumber(mut.Value)
	case domain.OpRandom:
		return m.random(mut.Min, mut.Max)
	default:
		return m.coerce(decl, mut.Value)
	}
}

// random draws an integer uniformly in [min,max] inclusive, defaulting to
// [0,100]. Reversed bounds are normalized.
func (m *Mutator) random(minP, maxP *int) int {
	lo, hi := 0, 100
	if minP != nil {
		lo = *minP
	}
	if maxP != nil {
		hi = *maxP
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + m.rng.Intn(hi-lo+1)
}

// coerce converts an operand by the declared type. Undeclared variables
// store the operand as-is.
func (m *Mutator) coerce(decl *domain.Variable, v any) any {
	if decl == nil {
		return v
	}
	switch decl.Type {
	case domain.VarNumber:
		return AsNumber(v)
	case domain.VarBoolean:
		return coerceBool(v)
	case domain.VarString:
		return AsString(v)
	default:
		return v
	}
}

// coerceBool follows the authoring contract: booleans pass through,
// "true"/"1" and "false"/"0"/"" map explicitly, everything else takes
// generic truthiness.
func coerceBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1":
			return true
		case "false", "0", "":
			return false
		}
	}
	return Truthy(v)
}

func (m *Mutator) decl(id string) *domain.Variable {
	if m.project == nil {
		return nil
	}
	return m.project.Variable(id)
}
