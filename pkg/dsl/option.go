package dsl

import "github.com/aretw0/vine/pkg/domain"

// OptionBuilder configures one entry of a choice menu.
type OptionBuilder struct {
	opt domain.ChoiceOption
}

// Opt starts an option with its id and display text.
func Opt(id, text string) *OptionBuilder {
	return &OptionBuilder{opt: domain.ChoiceOption{ID: id, Text: text}}
}

// To targets a scene.
func (o *OptionBuilder) To(sceneID string) *OptionBuilder {
	o.opt.TargetSceneID = sceneID
	return o
}

// ToLabel targets a label in the current scene.
func (o *OptionBuilder) ToLabel(labelID string) *OptionBuilder {
	o.opt.LabelID = labelID
	return o
}

// When hides the option unless the conditions hold.
func (o *OptionBuilder) When(conds ...domain.Condition) *OptionBuilder {
	o.opt.Conditions = append(o.opt.Conditions, conds...)
	return o
}

// Set applies a variable mutation when the option is picked, before
// navigation.
func (o *OptionBuilder) Set(variableID string, op domain.MutationOp, value any) *OptionBuilder {
	o.opt.Set = append(o.opt.Set, domain.Mutation{VariableID: variableID, Operator: op, Value: value})
	return o
}

// Cond builds a variable comparison condition.
func Cond(variableID string, op domain.ConditionOp, value any) domain.Condition {
	return domain.Condition{VariableID: variableID, Operator: op, Value: value}
}

// Expr builds an expression condition; variables are addressed by their
// declared display name.
func Expr(source string) domain.Condition {
	return domain.Condition{Operator: domain.OpExpression, Expression: source}
}
