package eval

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/pkg/domain"
)

// NameResolver maps an internal asset id to its display name. It lets
// authors write human-readable conditions ("mood contains Rainy Forest")
// against variables that hold internal asset ids.
type NameResolver func(assetID string) string

// Evaluator evaluates condition lists against a variable map. It is safe
// for concurrent use; compiled expression programs are cached per source.
type Evaluator struct {
	project *domain.Project
	log     *slog.Logger
	resolve NameResolver

	mu       sync.Mutex
	programs map[string]*vm.Program
	// badExprs remembers sources that failed to compile so the authoring
	// defect is logged once, not per step.
	badExprs map[string]bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger for evaluation warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.log = l
		}
	}
}

// WithNameResolver enables display-name comparison for asset ids.
func WithNameResolver(r NameResolver) Option {
	return func(e *Evaluator) { e.resolve = r }
}

// New creates an Evaluator bound to a project's variable declarations.
func New(project *domain.Project, opts ...Option) *Evaluator {
	e := &Evaluator{
		project:  project,
		log:      logging.NewNop(),
		programs: make(map[string]*vm.Program),
		badExprs: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// All evaluates a condition list, AND-combined. An empty list is true.
func (e *Evaluator) All(conds []domain.Condition, vars map[string]any) bool {
	for _, c := range conds {
		if !e.one(c, vars) {
			return false
		}
	}
	return true
}

func (e *Evaluator) one(c domain.Condition, vars map[string]any) bool {
	if c.Operator == domain.OpExpression {
		return e.expression(c.Expression, vars)
	}

	val, ok := vars[c.VariableID]
	if !ok {
		// Undefined variable fails the whole predicate, whatever the
		// operator.
		return false
	}

	switch c.Operator {
	case domain.OpIsTrue:
		return Truthy(val)
	case domain.OpIsFalse:
		return !Truthy(val)
	case domain.OpEq:
		return e.equals(val, c.Value)
	case domain.OpNeq:
		return !e.equals(val, c.Value)
	case domain.OpGt:
		return AsNumber(val) > AsNumber(c.Value)
	case domain.OpLt:
		return AsNumber(val) < AsNumber(c.Value)
	case domain.OpGte:
		return AsNumber(val) >= AsNumber(c.Value)
	case domain.OpLte:
		return AsNumber(val) <= AsNumber(c.Value)
	case domain.OpContains:
		return e.stringMatch(val, c.Value, strings.Contains)
	case domain.OpStartsWith:
		return e.stringMatch(val, c.Value, strings.HasPrefix)
	default:
		e.log.Warn("unknown condition operator", "operator", string(c.Operator), "variable", c.VariableID)
		return false
	}
}

// equals compares numerically when both sides are numeric, otherwise as
// case-insensitive strings (with the asset display-name alternative).
func (e *Evaluator) equals(val, operand any) bool {
	if IsNumeric(val) && IsNumeric(operand) {
		return AsNumber(val) == AsNumber(operand)
	}
	return e.stringMatch(val, operand, func(hay, needle string) bool { return hay == needle })
}

// stringMatch folds both sides, tries the raw value, then the display name
// of the value when it is an asset id the resolver knows.
func (e *Evaluator) stringMatch(val, operand any, match func(hay, needle string) bool) bool {
	hay := strings.ToLower(AsString(val))
	needle := strings.ToLower(AsString(operand))
	if match(hay, needle) {
		return true
	}
	if e.resolve != nil {
		if name := e.resolve(AsString(val)); name != "" {
			return match(strings.ToLower(name), needle)
		}
	}
	return false
}

// expression compiles (once) and runs an expr program over the variable
// display names. Compile and run failures evaluate false; compile failures
// are logged a single time per source.
func (e *Evaluator) expression(src string, vars map[string]any) bool {
	src = strings.TrimSpace(src)
	if src == "" {
		return true
	}

	prog := e.program(src)
	if prog == nil {
		return false
	}

	result, err := vm.Run(prog, e.exprEnv(vars))
	if err != nil {
		e.log.Debug("expression evaluation failed", "expression", src, "err", err)
		return false
	}
	b, ok := result.(bool)
	return ok && b
}

func (e *Evaluator) program(src string) *vm.Program {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prog, ok := e.programs[src]; ok {
		return prog
	}
	if e.badExprs[src] {
		return nil
	}
	prog, err := expr.Compile(src)
	if err != nil {
		e.badExprs[src] = true
		e.log.Warn("invalid condition expression", "expression", src, "err", err)
		return nil
	}
	e.programs[src] = prog
	return prog
}

// exprEnv keys session values by declared variable name. Variables without
// a session value are left out so references to them fail the run, which
// matches the undefined-variable rule.
func (e *Evaluator) exprEnv(vars map[string]any) map[string]any {
	env := make(map[string]any, len(vars))
	if e.project != nil {
		for _, decl := range e.project.Variables {
			if v, ok := vars[decl.ID]; ok {
				env[decl.Name] = v
			}
		}
	}
	// Ids are addressable too, for stories that skip display names.
	for k, v := range vars {
		if _, taken := env[k]; !taken {
			env[k] = v
		}
	}
	return env
}
