package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numberone-ai/machina-tools/internal/preview"
)

func TestKindAndIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		flags   identifierFlags
		want    preview.Kind
		wantID  string
		wantErr bool
	}{
		{"tag", identifierFlags{tag: "preview-x"}, preview.KindGitTag, "preview-x", false},
		{"app", identifierFlags{app: "preview-pr-91"}, preview.KindArgoApp, "preview-pr-91", false},
		{"namespace", identifierFlags{namespace: "tusdi-preview-92"}, preview.KindGkeNamespace, "tusdi-preview-92", false},
		{"infra branch", identifierFlags{infraBranch: "preview/x"}, preview.KindInfraBranch, "preview/x", false},
		{"pr", identifierFlags{pr: "421"}, preview.KindPullRequest, "421", false},
		{"branch", identifierFlags{branch: "feature/x"}, preview.KindGitBranch, "feature/x", false},
		{"none", identifierFlags{}, "", "", true},
		{"two", identifierFlags{tag: "preview-x", pr: "421"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, id, err := tt.flags.kindAndIdentifier()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestParseForwardSpec(t *testing.T) {
	spec, err := parseForwardSpec("backend:8000")
	require.NoError(t, err)
	assert.Equal(t, forwardSpec{Service: "backend", Mapping: "8000"}, spec)

	spec, err = parseForwardSpec("neo4j:7474:7474")
	require.NoError(t, err)
	assert.Equal(t, forwardSpec{Service: "neo4j", Mapping: "7474:7474"}, spec)

	_, err = parseForwardSpec("backend")
	assert.Error(t, err)
	_, err = parseForwardSpec(":8000")
	assert.Error(t, err)
}
