package preview

import (
	"context"

	"github.com/numberone-ai/machina-tools/internal/argocd"
	"github.com/numberone-ai/machina-tools/internal/git"
	"github.com/numberone-ai/machina-tools/internal/github"
	"github.com/numberone-ai/machina-tools/internal/kube"
)

// GitProvider supplies local git metadata for the workspace checkouts.
// All lookups are snapshots of whatever the checkout currently has fetched.
type GitProvider interface {
	TagExists(ctx context.Context, repoPath, tag string) git.TagInfo
	BranchExists(ctx context.Context, repoPath, branch string) git.BranchInfo
	RemotePreviewBranches(ctx context.Context, repoPath string) []string
	PreviewTagsByRecency(ctx context.Context, repoPath string) []string
	IsAncestor(ctx context.Context, repoPath, tag, branch string) bool
	RefExists(ctx context.Context, repoPath, ref string) bool
}

// PullRequestProvider supplies GitHub pull request metadata.
type PullRequestProvider interface {
	// Available reports whether the provider's backing tool can be used.
	// A non-nil error fails resolution fast for kinds that need PR lookups.
	Available() error
	// Get returns the PR by number, or nil when it doesn't exist.
	Get(ctx context.Context, repo string, number int) (*github.PullRequest, error)
	// FindByBranch returns the number of the PR whose head branch matches,
	// or 0 when none exists.
	FindByBranch(ctx context.Context, repo, branch string) (int, error)
}

// Application is a deployed application as seen by the cluster provider.
type Application struct {
	Name      string
	Namespace string
}

// ClusterProvider supplies Kubernetes/ArgoCD deployment metadata.
// Both lookups are best-effort: a nil result means "nothing discoverable",
// never an error.
type ClusterProvider interface {
	NamespaceAnnotations(ctx context.Context, namespace string) map[string]string
	ListApplications(ctx context.Context) []Application
}

// gitProvider backs GitProvider with local git invocations.
type gitProvider struct{}

// NewGitProvider returns a GitProvider backed by the git CLI.
func NewGitProvider() GitProvider { return gitProvider{} }

func (gitProvider) TagExists(ctx context.Context, repoPath, tag string) git.TagInfo {
	return git.TagExists(ctx, repoPath, tag)
}

func (gitProvider) BranchExists(ctx context.Context, repoPath, branch string) git.BranchInfo {
	return git.BranchExists(ctx, repoPath, branch)
}

func (gitProvider) RemotePreviewBranches(ctx context.Context, repoPath string) []string {
	return git.RemotePreviewBranches(ctx, repoPath)
}

func (gitProvider) PreviewTagsByRecency(ctx context.Context, repoPath string) []string {
	return git.PreviewTagsByRecency(ctx, repoPath)
}

func (gitProvider) IsAncestor(ctx context.Context, repoPath, tag, branch string) bool {
	return git.IsAncestor(ctx, repoPath, tag, branch)
}

func (gitProvider) RefExists(ctx context.Context, repoPath, ref string) bool {
	return git.RefExists(ctx, repoPath, ref)
}

// prProvider backs PullRequestProvider with the gh CLI.
type prProvider struct {
	org string
}

// NewPullRequestProvider returns a PullRequestProvider backed by the gh CLI
// for the given organization.
func NewPullRequestProvider(org string) PullRequestProvider {
	return prProvider{org: org}
}

func (p prProvider) Available() error {
	return github.CheckGH()
}

func (p prProvider) Get(ctx context.Context, repo string, number int) (*github.PullRequest, error) {
	return github.GetPullRequest(ctx, p.org, repo, number)
}

func (p prProvider) FindByBranch(ctx context.Context, repo, branch string) (int, error) {
	return github.FindPRByBranch(ctx, p.org, repo, branch)
}

// clusterProvider backs ClusterProvider with kubectl and the argocd CLI.
type clusterProvider struct{}

// NewClusterProvider returns a ClusterProvider backed by kubectl and argocd.
func NewClusterProvider() ClusterProvider { return clusterProvider{} }

func (clusterProvider) NamespaceAnnotations(ctx context.Context, namespace string) map[string]string {
	return kube.NamespaceAnnotations(ctx, namespace)
}

func (clusterProvider) ListApplications(ctx context.Context) []Application {
	apps, err := argocd.ListApplications(ctx)
	if err != nil || apps == nil {
		return nil
	}
	out := make([]Application, 0, len(apps))
	for _, a := range apps {
		out = append(out, Application{Name: a.Metadata.Name, Namespace: a.Spec.Destination.Namespace})
	}
	return out
}
