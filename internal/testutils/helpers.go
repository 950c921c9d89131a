package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo creates a temporary directory and initializes a loam
// repository in it, returning the absolute path and the repository. Loam
// prefers absolute paths, so the tmp dir is resolved before Init.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "resolve temp dir")

	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "init loam repo")

	return absPath, repo
}

// SeedLibrary writes story files (name → content) into a library dir.
// Nested names create their directories.
func SeedLibrary(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}
