// Package validator lints a story document for the defects the runtime
// only papers over at play time: broken references, unmatched branch
// markers, expressions that cannot compile. The interpreter fails open on
// all of these; the validator is where authors get hard answers.
package validator

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/aretw0/vine/pkg/domain"
)

// Severity splits issues into the ones that should block serving a story
// and the ones that are merely suspicious.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one lint finding, located as precisely as the check allows.
type Issue struct {
	Severity  Severity
	SceneID   string
	CommandID string
	Message   string
}

func (i Issue) String() string {
	loc := i.SceneID
	if i.CommandID != "" {
		loc += "/" + i.CommandID
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: [%s] %s", i.Severity, loc, i.Message)
}

// HasErrors reports whether any issue is error-severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate lints a project document. It never mutates the project and
// returns all findings, worst first not guaranteed; callers filter by
// severity.
func Validate(proj *domain.Project) []Issue {
	if proj == nil || len(proj.Scenes) == 0 {
		return []Issue{{Severity: SeverityError, Message: "project has no scenes"}}
	}

	v := &visitor{
		proj:      proj,
		sceneIDs:  make(map[string]bool, len(proj.Scenes)),
		declared:  make(map[string]bool, len(proj.Variables)),
		checkedEx: make(map[string]bool),
	}

	for _, decl := range proj.Variables {
		v.declared[decl.ID] = true
	}

	for i := range proj.Scenes {
		id := proj.Scenes[i].ID
		if id == "" {
			v.errorf("", "", "scene %d has no id", i)
			continue
		}
		if v.sceneIDs[id] {
			v.errorf(id, "", "duplicate scene id")
		}
		v.sceneIDs[id] = true
	}

	if proj.StartSceneID != "" && !v.sceneIDs[proj.StartSceneID] {
		v.errorf("", "", "start scene %q does not exist", proj.StartSceneID)
	}

	for i := range proj.Scenes {
		v.scene(&proj.Scenes[i])
	}
	v.reachability()

	return v.issues
}

type visitor struct {
	proj     *domain.Project
	issues   []Issue
	sceneIDs map[string]bool
	declared map[string]bool
	// checkedEx dedupes expression compiles; the same source appearing in
	// twenty commands is one finding.
	checkedEx map[string]bool
}

func (v *visitor) errorf(scene, cmd, format string, args ...any) {
	v.issues = append(v.issues, Issue{Severity: SeverityError, SceneID: scene, CommandID: cmd, Message: fmt.Sprintf(format, args...)})
}

func (v *visitor) warnf(scene, cmd, format string, args ...any) {
	v.issues = append(v.issues, Issue{Severity: SeverityWarning, SceneID: scene, CommandID: cmd, Message: fmt.Sprintf(format, args...)})
}

func (v *visitor) scene(sc *domain.Scene) {
	if sc.FallbackSceneID != "" && !v.sceneIDs[sc.FallbackSceneID] {
		v.errorf(sc.ID, "", "fallback scene %q does not exist", sc.FallbackSceneID)
	}
	v.conditions(sc.ID, "", sc.Conditions)

	labels := labelSet(sc.Commands)
	cmdIDs := make(map[string]bool, len(sc.Commands))

	for i := range sc.Commands {
		cmd := &sc.Commands[i]

		if cmd.ID != "" {
			if cmdIDs[cmd.ID] {
				v.warnf(sc.ID, cmd.ID, "duplicate command id")
			}
			cmdIDs[cmd.ID] = true
		}

		if !domain.KnownCommandType(cmd.Type) {
			v.errorf(sc.ID, cmd.ID, "unknown command type %q", string(cmd.Type))
			continue
		}

		v.conditions(sc.ID, cmd.ID, cmd.Conditions)
		v.command(sc, cmd, labels)
	}

	v.branchPairing(sc)
}

func (v *visitor) command(sc *domain.Scene, cmd *domain.Command, labels map[string]bool) {
	switch cmd.Type {
	case domain.CmdJump, domain.CmdCallScene:
		if cmd.TargetSceneID == "" {
			v.errorf(sc.ID, cmd.ID, "%s has no target scene", string(cmd.Type))
		} else {
			v.sceneRef(sc.ID, cmd.ID, cmd.TargetSceneID)
		}

	case domain.CmdJumpToLabel:
		if cmd.LabelID == "" {
			v.errorf(sc.ID, cmd.ID, "jumpToLabel has no label")
		} else if !labels[cmd.LabelID] {
			v.errorf(sc.ID, cmd.ID, "label %q not found in scene", cmd.LabelID)
		}

	case domain.CmdChoice:
		if len(cmd.Options) == 0 {
			v.warnf(sc.ID, cmd.ID, "choice has no options")
		}
		for _, opt := range cmd.Options {
			v.conditions(sc.ID, cmd.ID, opt.Conditions)
			v.target(sc.ID, cmd.ID, opt.TargetSceneID, opt.LabelID, labels)
			for _, m := range opt.Set {
				v.variableRef(sc.ID, cmd.ID, m.VariableID)
			}
		}

	case domain.CmdShowButtonOverlay:
		v.target(sc.ID, cmd.ID, cmd.TargetSceneID, cmd.LabelID, labels)
		for _, opt := range cmd.Options {
			v.conditions(sc.ID, cmd.ID, opt.Conditions)
			v.target(sc.ID, cmd.ID, opt.TargetSceneID, opt.LabelID, labels)
		}

	case domain.CmdSetVariable:
		if cmd.VariableID == "" {
			v.errorf(sc.ID, cmd.ID, "setVariable has no variable")
		} else {
			v.variableRef(sc.ID, cmd.ID, cmd.VariableID)
		}

	case domain.CmdTextInput:
		if cmd.VariableID == "" {
			v.errorf(sc.ID, cmd.ID, "textInput has no variable")
		} else {
			v.variableRef(sc.ID, cmd.ID, cmd.VariableID)
		}

	case domain.CmdDialogue:
		if cmd.Text == "" {
			v.warnf(sc.ID, cmd.ID, "dialogue has no text")
		}
	}
}

// target validates a scene-or-label navigation pair as used by choice
// options and button overlays. Both empty is legal (fall through).
func (v *visitor) target(sceneID, cmdID, targetSceneID, labelID string, labels map[string]bool) {
	if targetSceneID != "" {
		v.sceneRef(sceneID, cmdID, targetSceneID)
		return
	}
	if labelID != "" && !labels[labelID] {
		v.errorf(sceneID, cmdID, "label %q not found in scene", labelID)
	}
}

func (v *visitor) sceneRef(sceneID, cmdID, target string) {
	if !v.sceneIDs[target] {
		v.errorf(sceneID, cmdID, "scene %q does not exist", target)
	}
}

func (v *visitor) variableRef(sceneID, cmdID, varID string) {
	if varID != "" && !v.declared[varID] {
		v.warnf(sceneID, cmdID, "variable %q is not declared", varID)
	}
}

func (v *visitor) conditions(sceneID, cmdID string, conds []domain.Condition) {
	for _, c := range conds {
		if c.Operator == domain.OpExpression {
			v.expression(sceneID, cmdID, c.Expression)
			continue
		}
		v.variableRef(sceneID, cmdID, c.VariableID)
	}
}

// expression compiles the source the same way the evaluator will; a
// compile failure at play time silently evaluates false, so it is an
// error here.
func (v *visitor) expression(sceneID, cmdID, src string) {
	if src == "" || v.checkedEx[src] {
		return
	}
	v.checkedEx[src] = true
	if _, err := expr.Compile(src); err != nil {
		v.errorf(sceneID, cmdID, "expression does not compile: %v", err)
	}
}

// branchPairing checks that every branchStart finds a branchEnd with the
// same id later in the list. The runtime tolerates the mismatch by
// skipping a single command, which almost never matches author intent.
func (v *visitor) branchPairing(sc *domain.Scene) {
	ends := make(map[string][]int)
	for i := range sc.Commands {
		if sc.Commands[i].Type == domain.CmdBranchEnd {
			ends[sc.Commands[i].BranchID] = append(ends[sc.Commands[i].BranchID], i)
		}
	}

	matched := make(map[int]bool)
	for i := range sc.Commands {
		cmd := &sc.Commands[i]
		if cmd.Type != domain.CmdBranchStart {
			continue
		}
		found := false
		for _, j := range ends[cmd.BranchID] {
			if j > i {
				matched[j] = true
				found = true
				break
			}
		}
		if !found {
			v.errorf(sc.ID, cmd.ID, "branchStart %q has no matching branchEnd", cmd.BranchID)
		}
	}

	for id, idxs := range ends {
		for _, j := range idxs {
			if !matched[j] {
				v.warnf(sc.ID, sc.Commands[j].ID, "branchEnd %q has no preceding branchStart", id)
			}
		}
	}
}

// reachability walks the static scene graph from the start scene. A scene
// is linked by explicit targets, its fallback, and declaration-order
// fall-through, except when its list ends in a command that always
// diverts.
func (v *visitor) reachability() {
	start := v.proj.StartScene()
	if start == nil {
		return
	}

	visited := make(map[string]bool)
	queue := []string{start.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		sc := v.proj.Scene(id)
		if sc == nil {
			continue
		}
		for _, next := range v.edges(sc) {
			if !visited[next] {
				queue = append(queue, next)
			}
		}
	}

	for i := range v.proj.Scenes {
		if !visited[v.proj.Scenes[i].ID] {
			v.warnf(v.proj.Scenes[i].ID, "", "scene is unreachable from the start scene")
		}
	}
}

func (v *visitor) edges(sc *domain.Scene) []string {
	var out []string
	add := func(id string) {
		if id != "" {
			out = append(out, id)
		}
	}

	add(sc.FallbackSceneID)
	for i := range sc.Commands {
		cmd := &sc.Commands[i]
		add(cmd.TargetSceneID)
		for _, opt := range cmd.Options {
			add(opt.TargetSceneID)
		}
	}

	if fallsThrough(sc) {
		if idx := v.proj.SceneIndex(sc.ID); idx >= 0 && idx+1 < len(v.proj.Scenes) {
			add(v.proj.Scenes[idx+1].ID)
		}
	}
	return out
}

// fallsThrough approximates whether execution can run off the end of the
// scene into the next declared one. A trailing unconditional diverter
// (endGame, jump, returnToCaller) means it cannot.
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

func labelSet(commands []domain.Command) map[string]bool {
	labels := make(map[string]bool)
	for i := range commands {
		c := &commands[i]
		if c.Type != domain.CmdLabel {
			continue
		}
		if c.LabelID != "" {
			labels[c.LabelID] = true
		}
		if c.Name != "" {
			labels[c.Name] = true
		}
		if c.ID != "" {
			labels[c.ID] = true
		}
	}
	return labels
}
