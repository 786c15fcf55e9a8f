package preview

import (
	"context"
	"fmt"

	"github.com/numberone-ai/machina-tools/internal/argocd"
	"github.com/numberone-ai/machina-tools/internal/git"
	"github.com/numberone-ai/machina-tools/internal/github"
	"github.com/numberone-ai/machina-tools/internal/log"
)

// EnvConfig extends the resolver configuration with everything needed to
// inspect and tear down a resolved environment.
type EnvConfig struct {
	Config

	Org           string
	WebUIRepo     string
	WebUIRepoPath string
	ArgoCDBaseURL string
}

// Environment is a resolved preview environment plus the configuration to
// operate on it.
type Environment struct {
	Resolved
	cfg EnvConfig
}

// NewEnvironment pairs a resolution with operating configuration.
func NewEnvironment(res Resolved, cfg EnvConfig) *Environment {
	return &Environment{Resolved: res, cfg: cfg}
}

// ArgoAppName derives the ArgoCD application name. When an infra PR exists
// for preview/<id> the app is preview-pr-<N>; otherwise preview-<id> is the
// fallback and the returned PR number is zero.
func (e *Environment) ArgoAppName(ctx context.Context) (string, int) {
	num, err := github.FindPRByBranch(ctx, e.cfg.Org, e.cfg.InfraRepo, "preview/"+e.PreviewID)
	if err == nil && num > 0 {
		return fmt.Sprintf("preview-pr-%d", num), num
	}
	return "preview-" + e.PreviewID, 0
}

// TagStatus reports a repository's preview tag for this environment.
type TagStatus struct {
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
	Commit string `json:"commit,omitempty"`
	Date   string `json:"date,omitempty"`
}

// RepoInfo reports one application repository.
type RepoInfo struct {
	Name string              `json:"name"`
	Tag  TagStatus           `json:"tag"`
	PR   *github.PullRequest `json:"pr"`
}

// BranchStatus reports the infra preview branch.
type BranchStatus struct {
	Name     string `json:"name"`
	Exists   bool   `json:"exists"`
	Location string `json:"location,omitempty"`
}

// InfraInfo reports the infrastructure repository.
type InfraInfo struct {
	Branch BranchStatus        `json:"branch"`
	PR     *github.PullRequest `json:"pr"`
}

// ArgoInfo reports the ArgoCD deployment.
type ArgoInfo struct {
	AppName      string `json:"app_name"`
	InfraPR      int    `json:"infra_pr_number,omitempty"`
	URL          string `json:"url"`
	SyncStatus   string `json:"sync_status,omitempty"`
	HealthStatus string `json:"health_status,omitempty"`
	CLIAvailable bool   `json:"available"`
}

// Summary reports which artifacts still exist for the environment.
type Summary struct {
	HasAppTag      bool `json:"has_app_tag"`
	HasWebUITag    bool `json:"has_webui_tag"`
	HasInfraBranch bool `json:"has_infra_branch"`
	Clean          bool `json:"is_clean"`
}

// Info is the full collected state of a preview environment.
type Info struct {
	PreviewID  string    `json:"preview_id"`
	Kind       Kind      `json:"kind"`
	Identifier string    `json:"identifier"`
	Via        Via       `json:"via"`
	Backend    RepoInfo  `json:"backend"`
	Frontend   RepoInfo  `json:"frontend"`
	Infra      InfraInfo `json:"infra"`
	ArgoCD     ArgoInfo  `json:"argocd"`
	Summary    Summary   `json:"summary"`
}

// CollectInfo gathers the environment's current state from git, GitHub, and
// ArgoCD. Missing collaborators degrade to empty sections, never errors.
func (e *Environment) CollectInfo(ctx context.Context) *Info {
	info := &Info{
		PreviewID:  e.PreviewID,
		Kind:       e.Kind,
		Identifier: e.Identifier,
		Via:        e.Via,
	}

	info.Backend = e.collectRepo(ctx, e.cfg.AppRepo, e.cfg.AppRepoPath)
	info.Frontend = e.collectRepo(ctx, e.cfg.WebUIRepo, e.cfg.WebUIRepoPath)
	info.Infra = e.collectInfra(ctx)
	info.ArgoCD = e.collectArgo(ctx)

	info.Summary = Summary{
		HasAppTag:      info.Backend.Tag.Exists,
		HasWebUITag:    info.Frontend.Tag.Exists,
		HasInfraBranch: info.Infra.Branch.Exists,
	}
	info.Summary.Clean = !info.Summary.HasAppTag && !info.Summary.HasWebUITag && !info.Summary.HasInfraBranch

	return info
}

func (e *Environment) collectRepo(ctx context.Context, repoName, repoPath string) RepoInfo {
	tagName := "preview-" + e.PreviewID
	tag := git.TagExists(ctx, repoPath, tagName)

	ri := RepoInfo{
		Name: repoName,
		Tag: TagStatus{
			Name:   tagName,
			Exists: tag.Exists,
			Commit: shortCommit(tag.Commit),
			Date:   tag.Date,
		},
	}

	// Preview IDs of the form pr-<N> carry an application PR number.
	var prNum int
	if _, err := fmt.Sscanf(e.PreviewID, "pr-%d", &prNum); err == nil && prNum > 0 {
		if pr, err := github.GetPullRequest(ctx, e.cfg.Org, repoName, prNum); err == nil {
			ri.PR = pr
		}
	}
	return ri
}

func (e *Environment) collectInfra(ctx context.Context) InfraInfo {
	branchName := "preview/" + e.PreviewID
	branch := git.BranchExists(ctx, e.cfg.InfraRepoPath, branchName)

	ii := InfraInfo{
		Branch: BranchStatus{
			Name:     branchName,
			Exists:   branch.Exists,
			Location: string(branch.Location),
		},
	}

	if err := github.CheckGH(); err == nil {
		if prs, err := github.ListPRsForBranch(ctx, e.cfg.Org, e.cfg.InfraRepo, branchName, 1); err == nil && len(prs) > 0 {
			ii.PR = &prs[0]
		}
	}
	return ii
}

func (e *Environment) collectArgo(ctx context.Context) ArgoInfo {
	appName, infraPR := e.ArgoAppName(ctx)

	ai := ArgoInfo{
		AppName:      appName,
		InfraPR:      infraPR,
		URL:          e.cfg.ArgoCDBaseURL + "/applications/" + appName,
		CLIAvailable: argocd.Available(),
	}

	if ai.CLIAvailable {
		if app, err := argocd.GetApplication(ctx, appName); err == nil && app != nil {
			ai.SyncStatus = app.Status.Sync.Status
			ai.HealthStatus = app.Status.Health.Status
		}
	}
	return ai
}

// DeleteResult summarizes a teardown. Tag entries are "tag (repo)".
type DeleteResult struct {
	ClosedPR    int
	TagsRemoved []string
	TagsSkipped []string
	ArgoApp     string
	ArgoURL     string
}

// Delete tears down the preview environment: closes the infra PR (which
// triggers ArgoCD's automatic cleanup) and removes the preview tags from both
// application repositories. Progress goes to the context logger.
func (e *Environment) Delete(ctx context.Context) *DeleteResult {
	l := log.FromContext(ctx)
	result := &DeleteResult{}

	branchName := "preview/" + e.PreviewID
	if err := github.CheckGH(); err == nil {
		l.Printf("Looking up PR for %s branch in %s...\n", branchName, e.cfg.InfraRepo)
		num, err := github.FindPRByBranch(ctx, e.cfg.Org, e.cfg.InfraRepo, branchName)
		if err == nil && num > 0 {
			l.Printf("Found PR #%d, closing to remove preview environment...\n", num)
			comment := "Closing preview environment: " + e.PreviewID
			if err := github.ClosePR(ctx, e.cfg.Org, e.cfg.InfraRepo, num, comment); err != nil {
				l.Printf("Warning: could not close PR #%d (may already be closed): %v\n", num, err)
			} else {
				result.ClosedPR = num
			}
		} else {
			l.Printf("No open PR found for %s\n", branchName)
		}
	} else {
		l.Printf("Warning: gh CLI not available, skipping PR closure\n")
	}

	tag := "preview-" + e.PreviewID
	repos := []struct{ name, path string }{
		{e.cfg.AppRepo, e.cfg.AppRepoPath},
		{e.cfg.WebUIRepo, e.cfg.WebUIRepoPath},
	}
	for _, repo := range repos {
		l.Printf("Processing %s...\n", repo.name)

		entry := fmt.Sprintf("%s (%s)", tag, repo.name)
		if !git.TagExists(ctx, repo.path, tag).Exists {
			l.Printf("Tag doesn't exist in %s\n", repo.name)
			result.TagsSkipped = append(result.TagsSkipped, entry)
			continue
		}
		if out, err := git.DeleteTag(ctx, repo.path, tag); err != nil {
			l.Printf("Warning: %v\n", err)
			result.TagsSkipped = append(result.TagsSkipped, entry)
		} else {
			if out != "" {
				l.Println(out)
			}
			result.TagsRemoved = append(result.TagsRemoved, entry)
		}
	}

	result.ArgoApp, _ = e.ArgoAppName(ctx)
	result.ArgoURL = e.cfg.ArgoCDBaseURL + "/applications/" + result.ArgoApp
	return result
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
