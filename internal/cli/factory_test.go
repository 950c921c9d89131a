package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/pkg/adapters/file"
	"github.com/aretw0/vine/pkg/adapters/memory"
	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/ports"
)

const storyDoc = `
id: factory-demo
title: Factory Demo
startSceneId: intro
scenes:
  - id: intro
    commands:
      - type: dialogue
        text: Hello.
      - type: endGame
`

func writeStory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "story.yaml")
	require.NoError(t, os.WriteFile(path, []byte(storyDoc), 0o644))
	return path
}

func TestCreateEngine_SingleDocument(t *testing.T) {
	engine, err := createEngine(RunOptions{LibraryPath: writeStory(t)}, logging.NewNop())
	require.NoError(t, err)

	proj, err := engine.LoadProject(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "factory-demo", proj.ID)
	assert.Equal(t, "intro", proj.StartSceneID)
}

func TestCreateEngine_MissingPath(t *testing.T) {
	_, err := createEngine(RunOptions{LibraryPath: filepath.Join(t.TempDir(), "absent")}, logging.NewNop())
	assert.Error(t, err)
}

func TestFindManifest(t *testing.T) {
	dir := t.TempDir()
	story := filepath.Join(dir, "story.yaml")
	require.NoError(t, os.WriteFile(story, []byte(storyDoc), 0o644))

	// No manifest yet.
	assert.Nil(t, findManifest(story, false, logging.NewNop()))

	manifest := filepath.Join(dir, "assets.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("characters:\n  c_nar:\n    name: Narrator\n"), 0o644))

	resolver := findManifest(story, false, logging.NewNop())
	require.NotNil(t, resolver)
	meta, ok := resolver.Metadata("c_nar", ports.AssetCharacter)
	assert.True(t, ok)
	assert.Equal(t, "Narrator", meta.Name)

	// A corrupt manifest is skipped, not fatal.
	require.NoError(t, os.WriteFile(manifest, []byte("characters: [broken"), 0o644))
	assert.Nil(t, findManifest(story, false, logging.NewNop()))
}

func TestCreateStore_Backends(t *testing.T) {
	logger := logging.NewNop()

	store, err := createStore(Config{Store: "memory"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)

	store, err = createStore(Config{Store: "file", SaveDir: t.TempDir()}, logger)
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, store)

	_, err = createStore(Config{Store: "cassette-tape"}, logger)
	assert.Error(t, err)
}

func TestCreateStore_EncryptionWrap(t *testing.T) {
	cfg := Config{Store: "memory", SaveKey: "letmein"}
	store, err := createStore(cfg, logging.NewNop())
	require.NoError(t, err)

	snap := &domain.Snapshot{Slot: 1, ProjectID: "demo", SceneID: "vault", Index: 2}
	require.NoError(t, store.Save(t.Context(), "demo", 1, snap))

	got, err := store.Load(t.Context(), "demo", 1)
	require.NoError(t, err)
	assert.Equal(t, "vault", got.SceneID, "wrapped store round-trips through encryption")

	slots, err := store.List(t.Context(), "demo")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, slots)
}
