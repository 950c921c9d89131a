package compiler

import (
	"fmt"
	"strings"

	"github.com/aretw0/vine/pkg/domain"
)

// typeByLower maps lowercased type tags back onto the canonical enum, so
// "PlayMusic" and "playmusic" both decode to playMusic.
var typeByLower = func() map[string]domain.CommandType {
	m := make(map[string]domain.CommandType, len(domain.CommandTypes))
	for _, t := range domain.CommandTypes {
		m[strings.ToLower(string(t))] = t
	}
	return m
}()

// conditionOpAliases folds authoring shorthand into canonical operators.
var conditionOpAliases = map[string]domain.ConditionOp{
	"==": domain.OpEq,
	"=":  domain.OpEq,
	"!=": domain.OpNeq,
	"<>": domain.OpNeq,
	">":  domain.OpGt,
	"<":  domain.OpLt,
	">=": domain.OpGte,
	"<=": domain.OpLte,
}

var conditionOpByLower = func() map[string]domain.ConditionOp {
	ops := []domain.ConditionOp{
		domain.OpIsTrue, domain.OpIsFalse, domain.OpEq, domain.OpNeq,
		domain.OpGt, domain.OpLt, domain.OpGte, domain.OpLte,
		domain.OpContains, domain.OpStartsWith, domain.OpExpression,
	}
	m := make(map[string]domain.ConditionOp, len(ops))
	for _, op := range ops {
		m[strings.ToLower(string(op))] = op
	}
	return m
}()

var mutationOpAliases = map[string]domain.MutationOp{
	"=":  domain.OpSet,
	"+":  domain.OpAdd,
	"+=": domain.OpAdd,
	"-":  domain.OpSubtract,
	"-=": domain.OpSubtract,
}

var variableTypeByLower = map[string]domain.VariableType{
	"number":  domain.VarNumber,
	"string":  domain.VarString,
	"boolean": domain.VarBoolean,
	"bool":    domain.VarBoolean,
}

// NormalizeProject canonicalizes a project assembled outside ParseProject
// (the per-file library loader builds scenes one document at a time). It
// is idempotent.
func (p *Parser) NormalizeProject(proj *domain.Project) {
	for i := range proj.Variables {
		v := &proj.Variables[i]
		if t, ok := variableTypeByLower[strings.ToLower(string(v.Type))]; ok {
			v.Type = t
		}
	}
	for i := range proj.Scenes {
		sc := &proj.Scenes[i]
		normalizeConditions(sc.Conditions)
		sc.Commands = p.normalizeCommands(sc.ID, sc.Commands)
	}
}

// normalizeCommands canonicalizes each command in place and drops the ones
// with an unknown type tag. Generated ids use the pre-drop index so they
// stay stable for a given document.
func (p *Parser) normalizeCommands(sceneID string, in []domain.Command) []domain.Command {
	out := in[:0]
	for idx := range in {
		cmd := in[idx]

		t, ok := canonicalType(cmd.Type)
		if !ok {
			p.logger.Warn("dropping command with unknown type",
				"scene_id", sceneID, "type", string(cmd.Type), "index", idx,
				"err", domain.ErrUnknownCommand)
			continue
		}
		cmd.Type = t

		if cmd.ID == "" {
			cmd.ID = fmt.Sprintf("s:%s:%d", sceneID, idx)
		}

		normalizeConditions(cmd.Conditions)
		cmd.Operator = canonicalMutationOp(cmd.Operator)

		for i := range cmd.Options {
			opt := &cmd.Options[i]
			if opt.ID == "" {
				opt.ID = fmt.Sprintf("%s:o%d", cmd.ID, i)
			}
			normalizeConditions(opt.Conditions)
			for j := range opt.Set {
				opt.Set[j].Operator = canonicalMutationOp(opt.Set[j].Operator)
			}
		}

		out = append(out, cmd)
	}
	return out
}

func canonicalType(t domain.CommandType) (domain.CommandType, bool) {
	if t == "" {
		return "", false
	}
	canon, ok := typeByLower[strings.ToLower(string(t))]
	return canon, ok
}

// normalizeConditions rewrites operator shorthand. Operators outside the
// known set are left untouched for the validator to flag; the evaluator
// treats them as false.
func normalizeConditions(conds []domain.Condition) {
	for i := range conds {
		op := string(conds[i].Operator)
		if alias, ok := conditionOpAliases[op]; ok {
			conds[i].Operator = alias
			continue
		}
		if canon, ok := conditionOpByLower[strings.ToLower(op)]; ok {
			conds[i].Operator = canon
		}
	}
}

func canonicalMutationOp(op domain.MutationOp) domain.MutationOp {
	if op == "" {
		return op
	}
	if alias, ok := mutationOpAliases[string(op)]; ok {
		return alias
	}
	switch strings.ToLower(string(op)) {
	case "set":
		return domain.OpSet
	case "add":
		return domain.OpAdd
	case "subtract":
		return domain.OpSubtract
	case "random":
		return domain.OpRandom
	}
	return op
}
