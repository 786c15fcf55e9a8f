package envfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numberone-ai/machina-tools/internal/kube"
)

func TestEscapeValue(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"plain", "hello", "'hello'"},
		{"empty", "", "''"},
		{"spaces", "a b c", "'a b c'"},
		{"double quotes", `say "hi"`, `'say "hi"'`},
		{"single quote", "it's", `$'it\'s'`},
		{"quote and backslash", `it's a \`, `$'it\'s a \\'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeValue(tt.value))
		})
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantName  string
		wantValue string
		wantOK    bool
	}{
		{"plain", "FOO=bar", "FOO", "bar", true},
		{"export prefix", "export FOO=bar", "FOO", "bar", true},
		{"single quoted", "FOO='a b'", "FOO", "a b", true},
		{"double quoted", `FOO="a \"b\""`, "FOO", `a "b"`, true},
		{"ansi-c quoted", `FOO=$'it\'s'`, "FOO", "it's", true},
		{"empty value", "FOO=", "FOO", "", true},
		{"comment", "# FOO=bar", "", "", false},
		{"blank", "   ", "", "", false},
		{"no equals", "FOO", "", "", false},
		{"invalid name", "FOO-BAR=x", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, value, ok := parseLine(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantName, name)
				assert.Equal(t, tt.wantValue, value)
			}
		})
	}
}

func strPtr(s string) *string { return &s }

func TestWriteGroupsAndPermissions(t *testing.T) {
	result := &kube.ImportResult{
		Namespace:  "tusdi-preview-92",
		Deployment: "backend",
		Container:  "app",
		Vars: map[string]kube.EnvVar{
			"PLAIN":  {Name: "PLAIN", Value: strPtr("x"), Source: "direct"},
			"CM_VAL": {Name: "CM_VAL", Value: strPtr("from-cm"), Source: "configmap", SourceName: "app-config"},
			"SECRET": {Name: "SECRET", Value: strPtr("s3cret"), Source: "secret", SourceName: "app-secrets"},
			"BROKEN": {Name: "BROKEN", Source: "secret", SourceName: "app-secrets", Err: "key missing"},
		},
		Warnings: []string{"optional ref skipped"},
	}

	path := filepath.Join(t.TempDir(), ".env.test")
	require.NoError(t, Write(result, path, WriteOptions{Comments: true, Metadata: true}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "# Namespace: tusdi-preview-92")
	assert.Contains(t, text, "#   - optional ref skipped")
	assert.Contains(t, text, "# From ConfigMap: app-config")
	assert.Contains(t, text, "# From Secret: app-secrets")
	assert.Contains(t, text, "export PLAIN='x'")
	assert.Contains(t, text, "export CM_VAL='from-cm'")
	assert.Contains(t, text, "# export BROKEN=  # Error: key missing")

	// Sources appear in sorted order.
	cm := strings.Index(text, "# From ConfigMap")
	direct := strings.Index(text, "# Direct values")
	secret := strings.Index(text, "# From Secret")
	assert.True(t, cm < direct && direct < secret)
}

func TestWriteRoundTrip(t *testing.T) {
	result := &kube.ImportResult{
		Namespace:  "ns",
		Deployment: "d",
		Container:  "c",
		Vars: map[string]kube.EnvVar{
			"A": {Name: "A", Value: strPtr("plain"), Source: "direct"},
			"B": {Name: "B", Value: strPtr("with 'quote'"), Source: "direct"},
		},
	}

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, Write(result, path, WriteOptions{Comments: true, Metadata: true}))

	parsed, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "plain", "B": "with 'quote'"}, parsed)
}

func TestCompare(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.env")
	newPath := filepath.Join(dir, "new.env")

	require.NoError(t, os.WriteFile(oldPath, []byte(
		"export SAME='x'\nexport GONE='old'\nexport CHANGED='before'\n",
	), 0o600))
	require.NoError(t, os.WriteFile(newPath, []byte(
		"export SAME='x'\nexport FRESH='new'\nexport CHANGED='after'\n",
	), 0o600))

	result, err := Compare(oldPath, newPath)
	require.NoError(t, err)

	require.Len(t, result.Removed, 1)
	assert.Equal(t, "GONE", result.Removed[0].Name)

	require.Len(t, result.Added, 1)
	assert.Equal(t, "FRESH", result.Added[0].Name)

	require.Len(t, result.Changed, 1)
	assert.Equal(t, "CHANGED", result.Changed[0].Name)
	assert.Equal(t, "before", *result.Changed[0].OldValue)
	assert.Equal(t, "after", *result.Changed[0].NewValue)

	require.Len(t, result.Identical, 1)
	assert.Equal(t, "SAME", result.Identical[0].Name)
}

func TestCompareMissingFile(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "a.env")
	require.NoError(t, os.WriteFile(existing, []byte("A=1\n"), 0o600))

	_, err := Compare(existing, filepath.Join(dir, "nope.env"))
	assert.Error(t, err)
}
