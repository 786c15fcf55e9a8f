// Package config loads machina configuration from ~/.config/machina/config.toml.
//
// All values the original shell workflows hard-coded (repository names, the
// GitHub organization, the preview namespace prefix) live here so they can be
// overridden per workspace.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// GitHubConfig identifies the organization and repositories that make up the
// workspace.
type GitHubConfig struct {
	Org       string `toml:"org"`
	AppRepo   string `toml:"app_repo"`   // backend application repository
	WebUIRepo string `toml:"webui_repo"` // frontend repository
	InfraRepo string `toml:"infra_repo"` // infrastructure repository (preview branches live here)
}

// PreviewConfig holds preview-environment conventions.
type PreviewConfig struct {
	NamespacePrefix string `toml:"namespace_prefix"` // GKE preview namespaces: <prefix>-preview-<N>
	ArgoCDBaseURL   string `toml:"argocd_base_url"`
}

// StackConfig holds docker compose stack settings.
type StackConfig struct {
	ProjectPrefix  string `toml:"project_prefix"`  // compose container name prefix to strip in status output
	HealthTimeout  int    `toml:"health_timeout"`  // seconds to wait for services to become healthy
	BackendBaseURL string `toml:"backend_base_url"`
}

// Neo4jConfig holds Neo4j fallbacks used when compose discovery fails.
type Neo4jConfig struct {
	HTTPPort int    `toml:"http_port"`
	Database string `toml:"database"`
}

// Config holds the machina configuration.
type Config struct {
	// WorkspaceRoot overrides workspace discovery. When empty, the root is
	// found by walking up from the working directory to the compose file.
	WorkspaceRoot string `toml:"workspace_root"`
	// ReposDir is the directory containing repository checkouts,
	// relative to the workspace root.
	ReposDir string `toml:"repos_dir"`

	GitHub  GitHubConfig  `toml:"github"`
	Preview PreviewConfig `toml:"preview"`
	Stack   StackConfig   `toml:"stack"`
	Neo4j   Neo4jConfig   `toml:"neo4j"`
}

// ComposeFileName is the compose file that marks the workspace root.
const ComposeFileName = "docker-compose.yaml"

// Default returns the default configuration.
func Default() Config {
	return Config{
		ReposDir: "repos",
		GitHub: GitHubConfig{
			Org:       "NumberOne-AI",
			AppRepo:   "dem2",
			WebUIRepo: "dem2-webui",
			InfraRepo: "dem2-infra",
		},
		Preview: PreviewConfig{
			NamespacePrefix: "tusdi",
			ArgoCDBaseURL:   "https://argo.n1-machina.dev",
		},
		Stack: StackConfig{
			ProjectPrefix:  "machina-meta-",
			HealthTimeout:  300,
			BackendBaseURL: "http://localhost:8000",
		},
		Neo4j: Neo4jConfig{
			HTTPPort: 7474,
			Database: "neo4j",
		},
	}
}

// RepoPath returns the checkout path for a repository name.
func (c *Config) RepoPath(workspaceRoot, repo string) string {
	return filepath.Join(workspaceRoot, c.ReposDir, repo)
}

// configPath returns the path to the config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "machina", "config.toml"), nil
}

// Load reads the config file, returning defaults when it doesn't exist.
func Load() (Config, error) {
	cfg := Default()

	path, err := configPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.WorkspaceRoot != "" {
		expanded, err := expandPath(cfg.WorkspaceRoot)
		if err != nil {
			return cfg, err
		}
		cfg.WorkspaceRoot = expanded
	}

	return cfg, nil
}

// FindWorkspaceRoot locates the workspace root directory. An explicitly
// configured root wins; otherwise walk up from startDir until the compose
// file is found.
func (c *Config) FindWorkspaceRoot(startDir string) (string, error) {
	if c.WorkspaceRoot != "" {
		return c.WorkspaceRoot, nil
	}

	dir := startDir
	for {
		if _, err := os.Stat(filepath.Join(dir, ComposeFileName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find workspace root (no %s above %s)", ComposeFileName, startDir)
		}
		dir = parent
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		return os.UserHomeDir()
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
