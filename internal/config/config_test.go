package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "NumberOne-AI", cfg.GitHub.Org)
	assert.Equal(t, "dem2", cfg.GitHub.AppRepo)
	assert.Equal(t, "dem2-infra", cfg.GitHub.InfraRepo)
	assert.Equal(t, "tusdi", cfg.Preview.NamespacePrefix)
	assert.Equal(t, "repos", cfg.ReposDir)
	assert.Equal(t, 7474, cfg.Neo4j.HTTPPort)
}

func TestRepoPath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("/ws", "repos", "dem2"), cfg.RepoPath("/ws", "dem2"))
}

func TestFindWorkspaceRoot(t *testing.T) {
	t.Run("walks up to compose file", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, ComposeFileName), []byte("services: {}\n"), 0o644))
		nested := filepath.Join(root, "repos", "dem2", "services")
		require.NoError(t, os.MkdirAll(nested, 0o755))

		cfg := Default()
		found, err := cfg.FindWorkspaceRoot(nested)
		require.NoError(t, err)
		assert.Equal(t, root, found)
	})

	t.Run("explicit root wins", func(t *testing.T) {
		cfg := Default()
		cfg.WorkspaceRoot = "/explicit"
		found, err := cfg.FindWorkspaceRoot(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "/explicit", found)
	})

	t.Run("not found", func(t *testing.T) {
		cfg := Default()
		_, err := cfg.FindWorkspaceRoot(t.TempDir())
		assert.Error(t, err)
	})
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/workspace")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "workspace"), got)

	got, err = expandPath("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)

	got, err = expandPath("")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}
