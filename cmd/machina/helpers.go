package main

import (
	"path/filepath"

	"github.com/numberone-ai/machina-tools/internal/preview"
)

// workspacePaths resolves the workspace root and the three repo checkouts.
type workspacePaths struct {
	Root      string
	AppRepo   string
	WebUIRepo string
	InfraRepo string
}

func resolveWorkspace() (workspacePaths, error) {
	root, err := cfg.FindWorkspaceRoot(workDir)
	if err != nil {
		return workspacePaths{}, err
	}
	return workspacePaths{
		Root:      root,
		AppRepo:   cfg.RepoPath(root, cfg.GitHub.AppRepo),
		WebUIRepo: cfg.RepoPath(root, cfg.GitHub.WebUIRepo),
		InfraRepo: cfg.RepoPath(root, cfg.GitHub.InfraRepo),
	}, nil
}

func composeFilePath(root string) string {
	return filepath.Join(root, "docker-compose.yaml")
}

// resolverConfig builds the preview resolver configuration from the
// loaded config and workspace layout.
func resolverConfig(ws workspacePaths) preview.Config {
	return preview.Config{
		AppRepoPath:     ws.AppRepo,
		InfraRepoPath:   ws.InfraRepo,
		AppRepo:         cfg.GitHub.AppRepo,
		InfraRepo:       cfg.GitHub.InfraRepo,
		NamespacePrefix: cfg.Preview.NamespacePrefix,
	}
}

func environmentConfig(ws workspacePaths) preview.EnvConfig {
	return preview.EnvConfig{
		Config:        resolverConfig(ws),
		Org:           cfg.GitHub.Org,
		WebUIRepo:     cfg.GitHub.WebUIRepo,
		WebUIRepoPath: ws.WebUIRepo,
		ArgoCDBaseURL: cfg.Preview.ArgoCDBaseURL,
	}
}

func newResolver(ws workspacePaths) *preview.Resolver {
	return preview.NewResolver(
		resolverConfig(ws),
		preview.NewGitProvider(),
		preview.NewPullRequestProvider(cfg.GitHub.Org),
		preview.NewClusterProvider(),
	)
}
