package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vine/pkg/adapters/catalog"
	"github.com/aretw0/vine/pkg/ports"
)

const manifest = `
characters:
  c_guard:
    name: Gate Guard
backgrounds:
  bg_forest:
    url: art/forest.png
audio:
  m_theme:
    url: audio/theme.ogg
    loop: true
  sfx_door:
    url: /opt/shared/sfx/door.wav
movies:
  mv_intro:
    url: https://cdn.example.com/intro.mp4
`

func openTestCatalog(t *testing.T) (*catalog.Catalog, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "assets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	c, err := catalog.Open(path)
	require.NoError(t, err)
	return c, dir
}

func TestCatalog_ResolveURL(t *testing.T) {
	c, dir := openTestCatalog(t)

	url, ok := c.ResolveURL("bg_forest", ports.AssetBackground)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "art", "forest.png"), url, "relative locations resolve against the manifest dir")

	url, ok = c.ResolveURL("sfx_door", ports.AssetAudio)
	assert.True(t, ok)
	assert.Equal(t, "/opt/shared/sfx/door.wav", url, "absolute paths pass through")

	url, ok = c.ResolveURL("mv_intro", ports.AssetMovie)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/intro.mp4", url, "full URLs pass through")

	_, ok = c.ResolveURL("c_guard", ports.AssetCharacter)
	assert.False(t, ok, "entries without a location are a miss")

	_, ok = c.ResolveURL("bg_missing", ports.AssetBackground)
	assert.False(t, ok)

	_, ok = c.ResolveURL("bg_forest", ports.AssetAudio)
	assert.False(t, ok, "lookups stay inside the requested section")
}

func TestCatalog_Metadata(t *testing.T) {
	c, _ := openTestCatalog(t)

	meta, ok := c.Metadata("c_guard", ports.AssetCharacter)
	assert.True(t, ok)
	assert.Equal(t, "Gate Guard", meta.Name)

	meta, ok = c.Metadata("m_theme", ports.AssetAudio)
	assert.True(t, ok)
	assert.True(t, meta.Loop)
	assert.False(t, meta.IsVideo)

	meta, ok = c.Metadata("mv_intro", ports.AssetMovie)
	assert.True(t, ok)
	assert.True(t, meta.IsVideo, "movie entries are video even without the flag")

	_, ok = c.Metadata("nobody", ports.AssetCharacter)
	assert.False(t, ok)
}

func TestCatalog_OpenErrors(t *testing.T) {
	_, err := catalog.Open(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "assets.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("characters: [not, a, map"), 0o644))
	_, err = catalog.Open(bad)
	assert.Error(t, err)
}
