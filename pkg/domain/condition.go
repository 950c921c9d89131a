package domain

// ConditionOp is a predicate operator over one variable.
type ConditionOp string

const (
	OpIsTrue     ConditionOp = "isTrue"
	OpIsFalse    ConditionOp = "isFalse"
	OpEq         ConditionOp = "eq"
	OpNeq        ConditionOp = "neq"
	OpGt         ConditionOp = "gt"
	OpLt         ConditionOp = "lt"
	OpGte        ConditionOp = "gte"
	OpLte        ConditionOp = "lte"
	OpContains   ConditionOp = "contains"
	OpStartsWith ConditionOp = "startsWith"

	// OpExpression evaluates Expression as an expr program over the
	// variable names. A compile or run failure makes the condition false.
	OpExpression ConditionOp = "expression"
)

// Condition is one predicate. A command, scene entry, branch, or choice
// option carries a list of these, AND-combined; an empty list is true.
// A condition referencing an undefined variable evaluates to false.
type Condition struct {
	VariableID string      `json:"variableId,omitempty" yaml:"variableId,omitempty" mapstructure:"variableId"`
	Operator   ConditionOp `json:"operator" yaml:"operator" mapstructure:"operator"`
	Value      any         `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`

	// Expression is the source text for OpExpression conditions; variables
	// are addressed by declared name.
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty" mapstructure:"expression"`
}
