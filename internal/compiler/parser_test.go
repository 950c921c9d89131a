package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vine/internal/compiler"
	"github.com/aretw0/vine/pkg/domain"
)

const projectYAML = `
id: demo
title: Demo
startSceneId: intro
variables:
  - id: v_gold
    name: gold
    type: Number
    default: 10
scenes:
  - id: intro
    name: Intro
    commands:
      - type: setVariable
        variableId: v_gold
        operator: "+"
        value: 5
      - id: d1
        type: Dialogue
        text: "Hello."
        conditions:
          - variableId: v_gold
            operator: ">="
            value: 10
      - type: choice
        options:
          - text: "Fight"
            conditions:
              - variableId: v_gold
                operator: "=="
                value: 15
            set:
              - variableId: v_gold
                operator: "-"
                value: 1
  - id: gate
    conditions:
      - variableId: v_gold
        operator: ">"
        value: 5
    fallbackSceneId: intro
    commands: []
`

func TestParseProject_YAML(t *testing.T) {
	p := compiler.NewParser()
	proj, err := p.ParseProject([]byte(projectYAML))
	require.NoError(t, err)

	assert.Equal(t, "demo", proj.ID)
	assert.Equal(t, "intro", proj.StartSceneID)
	require.Len(t, proj.Scenes, 2)

	require.Len(t, proj.Variables, 1)
	assert.Equal(t, domain.VarNumber, proj.Variables[0].Type, "type tag is case-insensitive")

	intro := proj.Scenes[0]
	require.Len(t, intro.Commands, 3)

	set := intro.Commands[0]
	assert.Equal(t, "s:intro:0", set.ID, "unnamed commands get stable generated ids")
	assert.Equal(t, domain.OpAdd, set.Operator)

	d1 := intro.Commands[1]
	assert.Equal(t, "d1", d1.ID)
	assert.Equal(t, domain.CmdDialogue, d1.Type)
	require.Len(t, d1.Conditions, 1)
	assert.Equal(t, domain.OpGte, d1.Conditions[0].Operator)

	choice := intro.Commands[2]
	assert.Equal(t, "s:intro:2", choice.ID)
	require.Len(t, choice.Options, 1)
	opt := choice.Options[0]
	assert.Equal(t, "s:intro:2:o0", opt.ID)
	assert.Equal(t, domain.OpEq, opt.Conditions[0].Operator)
	assert.Equal(t, domain.OpSubtract, opt.Set[0].Operator)

	gate := proj.Scenes[1]
	require.Len(t, gate.Conditions, 1)
	assert.Equal(t, domain.OpGt, gate.Conditions[0].Operator)
	assert.Equal(t, "intro", gate.FallbackSceneID)
}

func TestParseProject_JSON(t *testing.T) {
	doc := []byte(`
	{"id":"j1","scenes":[{"id":"only","commands":[
		{"type":"dialogue","text":"hi"},
		{"type":"wait","durationMs":500,"skippable":true}
	]}]}`)

	p := compiler.NewParser()
	proj, err := p.ParseProject(doc)
	require.NoError(t, err)

	require.Len(t, proj.Scenes, 1)
	cmds := proj.Scenes[0].Commands
	require.Len(t, cmds, 2)
	assert.Equal(t, "s:only:0", cmds[0].ID)
	assert.Equal(t, 500, cmds[1].DurationMs)
	assert.True(t, cmds[1].Skippable)
}

func TestParseProject_UnknownCommandTypeDropped(t *testing.T) {
	doc := []byte(`
id: demo
scenes:
  - id: x
    commands:
      - type: dialogue
        text: one
      - type: dance
        text: nope
      - type: dialogue
        text: two
`)
	p := compiler.NewParser()
	proj, err := p.ParseProject(doc)
	require.NoError(t, err)

	cmds := proj.Scenes[0].Commands
	require.Len(t, cmds, 2)
	assert.Equal(t, "s:x:0", cmds[0].ID)
	assert.Equal(t, "s:x:2", cmds[1].ID, "generated ids keep the authored index across drops")
}

func TestParseProject_NoScenes(t *testing.T) {
	p := compiler.NewParser()
	_, err := p.ParseProject([]byte(`id: empty`))
	assert.ErrorIs(t, err, domain.ErrNoScenes)
}

func TestParseProject_Malformed(t *testing.T) {
	p := compiler.NewParser()
	_, err := p.ParseProject([]byte("\t{ not valid"))
	assert.Error(t, err)
}

func TestParseCommands_SceneBody(t *testing.T) {
	body := []byte(`
- type: PlayMusic
  assetId: bgm_forest
  volume: 1
- type: wait
  durationMs: 250
`)
	p := compiler.NewParser()
	cmds, err := p.ParseCommands("forest", body)
	require.NoError(t, err)
	require.Len(t, cmds, 2)

	assert.Equal(t, domain.CmdPlayMusic, cmds[0].Type)
	assert.Equal(t, "s:forest:0", cmds[0].ID)
	require.NotNil(t, cmds[0].Volume)
	assert.Equal(t, 1.0, *cmds[0].Volume, "weak typing lifts the int into the float field")

	assert.Equal(t, domain.CmdWait, cmds[1].Type)
	assert.Equal(t, 250, cmds[1].DurationMs)
}

func TestParseCommands_ExpressionConditionPassesThrough(t *testing.T) {
	body := []byte(`
- type: branchStart
  branchId: b1
  conditions:
    - operator: expression
      expression: "gold > 5 and path == 'left'"
- type: branchEnd
  branchId: b1
`)
	p := compiler.NewParser()
	cmds, err := p.ParseCommands("intro", body)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	require.Len(t, cmds[0].Conditions, 1)
	assert.Equal(t, domain.OpExpression, cmds[0].Conditions[0].Operator)
	assert.Equal(t, "gold > 5 and path == 'left'", cmds[0].Conditions[0].Expression)
}
