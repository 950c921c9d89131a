package project_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vine/pkg/adapters/project"
	"github.com/aretw0/vine/pkg/domain"
)

const storyYAML = `
title: File Story
startSceneId: intro
variables:
  - id: v_gold
    name: gold
    type: number
    default: 3
scenes:
  - id: intro
    commands:
      - type: dialogue
        text: "Hello from disk."
      - type: jump
        targetSceneId: end
  - id: end
    commands:
      - type: endGame
`

func writeStory(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileLoader_LoadYAML(t *testing.T) {
	path := writeStory(t, "mystory.yaml", storyYAML)

	loader := project.NewLoader(path)
	proj, err := loader.Load(context.Background())
	require.NoError(t, err)

	// No id in the document, so the file name provides one.
	assert.Equal(t, "mystory", proj.ID)
	assert.Equal(t, "File Story", proj.Title)
	require.Len(t, proj.Scenes, 2)
	assert.Equal(t, domain.VarNumber, proj.Variables[0].Type)
	assert.Equal(t, domain.CmdEndGame, proj.Scenes[1].Commands[0].Type)
}

func TestFileLoader_LoadJSON(t *testing.T) {
	path := writeStory(t, "inline.json", `{
		"id": "inline",
		"startSceneId": "a",
		"scenes": [{"id": "a", "commands": [{"type": "dialogue", "text": "hi"}]}]
	}`)

	loader := project.NewLoader(path)
	proj, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "inline", proj.ID)
}

func TestFileLoader_MissingFile(t *testing.T) {
	loader := project.NewLoader(filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := loader.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestFileLoader_ParseErrorNamesFile(t *testing.T) {
	path := writeStory(t, "broken.yaml", "scenes: [")
	loader := project.NewLoader(path)
	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}

func TestFileLoader_WatchSignalsOnWrite(t *testing.T) {
	path := writeStory(t, "story.yaml", storyYAML)
	loader := project.NewLoader(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := loader.Watch(ctx)
	require.NoError(t, err)

	// Give the watcher a beat to register before the write.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(storyYAML+"\n"), 0o644))

	select {
	case <-ch:
		// Signaled.
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for watch signal")
	}
}

func TestFileLoader_WatchIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "story.yaml")
	require.NoError(t, os.WriteFile(path, []byte(storyYAML), 0o644))

	loader := project.NewLoader(path)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := loader.Watch(ctx)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case <-ch:
		t.Fatal("unrelated file should not signal a reload")
	case <-time.After(300 * time.Millisecond):
		// Quiet, as expected.
	}
}
