package loam

import (
	"context"
	"testing"

	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vine/internal/testutils"
	"github.com/aretw0/vine/pkg/domain"
)

func TestLoad_AssemblesProjectFromLibrary(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	testutils.SeedLibrary(t, dir, map[string]string{
		"project.md": `---
project: true
id: demo
title: Demo Story
startSceneId: intro
variables:
  - id: v_gold
    name: gold
    type: Number
    default: 10
---
`,
		"market.md": `---
order: 2
name: Market
fallbackSceneId: intro
conditions:
  - variableId: v_gold
    operator: ">="
    value: 5
---
- type: dialogue
  characterId: c_vendor
  text: "Fresh fruit!"
`,
		"intro.md": `---
order: 1
---
- type: Dialogue
  text: "A new day."
- type: jump
  targetSceneId: market
`,
	})

	loader := New(loam.NewTypedRepository[Meta](repo))
	proj, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "demo", proj.ID)
	assert.Equal(t, "Demo Story", proj.Title)
	assert.Equal(t, "intro", proj.StartSceneID)

	require.Len(t, proj.Variables, 1)
	assert.Equal(t, domain.VarNumber, proj.Variables[0].Type)

	// Order from frontmatter, not from directory listing.
	require.Len(t, proj.Scenes, 2)
	assert.Equal(t, "intro", proj.Scenes[0].ID)
	assert.Equal(t, "market", proj.Scenes[1].ID)

	market := proj.Scenes[1]
	assert.Equal(t, "Market", market.Name)
	assert.Equal(t, "intro", market.FallbackSceneID)
	require.Len(t, market.Conditions, 1)
	assert.Equal(t, domain.OpGte, market.Conditions[0].Operator)

	intro := proj.Scenes[0]
	require.Len(t, intro.Commands, 2)
	assert.Equal(t, domain.CmdDialogue, intro.Commands[0].Type)
	assert.Equal(t, "s:intro:0", intro.Commands[0].ID)
	assert.Equal(t, "A new day.", intro.Commands[0].Text)
	assert.Equal(t, domain.CmdJump, intro.Commands[1].Type)
	assert.Equal(t, "market", intro.Commands[1].TargetSceneID)
}

func TestLoad_StartFlagAndDefaultID(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	testutils.SeedLibrary(t, dir, map[string]string{
		"finale.md": `---
order: 2
start: true
---
- type: dialogue
  text: "The end."
`,
		"opening.md": `---
order: 1
---
- type: dialogue
  text: "A beginning."
`,
	})

	loader := New(loam.NewTypedRepository[Meta](repo), WithProjectID("fallback-id"))
	proj, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "fallback-id", proj.ID)
	assert.Equal(t, "finale", proj.StartSceneID)
	require.Len(t, proj.Scenes, 2)
	assert.Equal(t, "opening", proj.Scenes[0].ID)
}

func TestLoad_HeaderStartWinsOverFlag(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	testutils.SeedLibrary(t, dir, map[string]string{
		"project.md": `---
project: true
id: demo
startSceneId: opening
---
`,
		"finale.md": `---
start: true
---
- type: dialogue
  text: "The end."
`,
		"opening.md": `---
---
- type: dialogue
  text: "A beginning."
`,
	})

	loader := New(loam.NewTypedRepository[Meta](repo))
	proj, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "opening", proj.StartSceneID)
}

func TestLoad_EmptyLibrary(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t)

	loader := New(loam.NewTypedRepository[Meta](repo))
	_, err := loader.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestLoad_HeaderWithoutScenes(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	testutils.SeedLibrary(t, dir, map[string]string{
		"project.md": `---
project: true
id: demo
---
`,
	})

	loader := New(loam.NewTypedRepository[Meta](repo))
	_, err := loader.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrNoScenes)
}

func TestLoad_DuplicateSceneID(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	testutils.SeedLibrary(t, dir, map[string]string{
		"town.md": `---
---
- type: dialogue
  text: "One."
`,
		"plaza.md": `---
id: town
---
- type: dialogue
  text: "Two."
`,
	})

	loader := New(loam.NewTypedRepository[Meta](repo))
	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"town"`)
}

func TestLoad_SceneParseErrorNamesScene(t *testing.T) {
	dir, repo := testutils.SetupTestRepo(t)
	testutils.SeedLibrary(t, dir, map[string]string{
		"broken.md": `---
---
- { type: dialogue
`,
	})

	loader := New(loam.NewTypedRepository[Meta](repo))
	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scene "broken"`)
}
