package neo4j

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCompose(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docker-compose.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscoverConn(t *testing.T) {
	t.Run("list environment", func(t *testing.T) {
		path := writeCompose(t, `
services:
  neo4j:
    image: neo4j:5
    environment:
      - NEO4J_AUTH=neo4j/devpassword
    ports:
      - "17474:7474"
      - "7687:7687"
`)
		cfg, err := DiscoverConn(path, "neo4j")
		require.NoError(t, err)
		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, 17474, cfg.HTTPPort)
		assert.Equal(t, "neo4j", cfg.Username)
		assert.Equal(t, "devpassword", cfg.Password)
	})

	t.Run("map environment", func(t *testing.T) {
		path := writeCompose(t, `
services:
  neo4j:
    environment:
      NEO4J_AUTH: admin/secret
    ports:
      - "7474:7474"
`)
		cfg, err := DiscoverConn(path, "neo4j")
		require.NoError(t, err)
		assert.Equal(t, 7474, cfg.HTTPPort)
		assert.Equal(t, "admin", cfg.Username)
		assert.Equal(t, "secret", cfg.Password)
	})

	t.Run("defaults when auth missing", func(t *testing.T) {
		path := writeCompose(t, `
services:
  neo4j:
    image: neo4j:5
`)
		cfg, err := DiscoverConn(path, "neo4j")
		require.NoError(t, err)
		assert.Equal(t, 7474, cfg.HTTPPort)
		assert.Equal(t, "neo4j", cfg.Username)
		assert.Equal(t, "neo4j", cfg.Password)
	})

	t.Run("bind address prefix", func(t *testing.T) {
		path := writeCompose(t, `
services:
  neo4j:
    ports:
      - "127.0.0.1:8474:7474"
`)
		cfg, err := DiscoverConn(path, "neo4j")
		require.NoError(t, err)
		assert.Equal(t, 8474, cfg.HTTPPort)
	})

	t.Run("no neo4j service", func(t *testing.T) {
		path := writeCompose(t, `
services:
  postgres:
    image: postgres:16
`)
		_, err := DiscoverConn(path, "neo4j")
		assert.Error(t, err)
	})
}

func TestParseAuth(t *testing.T) {
	tests := []struct {
		auth         string
		wantUser     string
		wantPassword string
	}{
		{"neo4j/secret", "neo4j", "secret"},
		{"admin/a/b", "admin", "a/b"},
		{"justpassword", "neo4j", "justpassword"},
		{"", "neo4j", "neo4j"},
	}
	for _, tt := range tests {
		user, pass := parseAuth(tt.auth)
		assert.Equal(t, tt.wantUser, user, tt.auth)
		assert.Equal(t, tt.wantPassword, pass, tt.auth)
	}
}
