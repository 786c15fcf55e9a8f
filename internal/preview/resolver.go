package preview

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/numberone-ai/machina-tools/internal/log"
)

var (
	tagPattern    = regexp.MustCompile(`^preview-(.+)$`)
	branchPattern = regexp.MustCompile(`^preview/(.+)$`)
	appPattern    = regexp.MustCompile(`^preview-pr-(\d+)$`)
)

// Config carries the workspace conventions the resolver depends on.
// Everything here is explicit so resolution can be exercised against
// arbitrary workspaces in tests.
type Config struct {
	AppRepoPath   string // local checkout of the application repo (tags live here)
	InfraRepoPath string // local checkout of the infrastructure repo (preview branches live here)

	AppRepo   string // application repo name on GitHub
	InfraRepo string // infrastructure repo name on GitHub

	NamespacePrefix string // GKE preview namespaces: <prefix>-preview-<N>
}

// Resolver maps identifiers of any supported kind to canonical preview IDs.
// All external state is reached through the injected providers; the resolver
// itself performs no I/O and keeps no state between calls.
type Resolver struct {
	cfg     Config
	git     GitProvider
	prs     PullRequestProvider
	cluster ClusterProvider
}

// NewResolver constructs a Resolver from explicit configuration and lookup
// providers.
func NewResolver(cfg Config, git GitProvider, prs PullRequestProvider, cluster ClusterProvider) *Resolver {
	return &Resolver{cfg: cfg, git: git, prs: prs, cluster: cluster}
}

// Resolve maps an identifier to a preview environment. Each kind has an
// independent strategy; the only shared contract is the output shape.
// Resolution is read-only and recomputed from live state on every call.
func (r *Resolver) Resolve(ctx context.Context, kind Kind, identifier string) (*Resolved, error) {
	switch kind {
	case KindGitTag:
		return r.resolveGitTag(identifier)
	case KindArgoApp:
		return r.resolveArgoApp(ctx, identifier)
	case KindGkeNamespace:
		return r.resolveNamespace(ctx, identifier)
	case KindInfraBranch:
		return r.resolveInfraBranch(identifier)
	case KindPullRequest:
		return r.resolvePullRequest(ctx, identifier)
	case KindGitBranch:
		return r.resolveGitBranch(ctx, identifier)
	default:
		return nil, resolutionErrorf("unknown identifier kind: %s", kind)
	}
}

// resolveGitTag strips the preview- prefix. No external calls.
func (r *Resolver) resolveGitTag(identifier string) (*Resolved, error) {
	m := tagPattern.FindStringSubmatch(identifier)
	if m == nil {
		return nil, resolutionErrorf("git tag must start with 'preview-'")
	}
	return &Resolved{PreviewID: m[1], Kind: KindGitTag, Identifier: identifier, Via: ViaTagPrefix}, nil
}

// resolveInfraBranch strips the preview/ prefix. No external calls.
func (r *Resolver) resolveInfraBranch(identifier string) (*Resolved, error) {
	m := branchPattern.FindStringSubmatch(identifier)
	if m == nil {
		return nil, resolutionErrorf("infra branch must start with 'preview/'")
	}
	return &Resolved{PreviewID: m[1], Kind: KindInfraBranch, Identifier: identifier, Via: ViaBranchPrefix}, nil
}

// resolveArgoApp parses preview-pr-<N> and requires infra PR #N's head branch
// to be a preview branch.
func (r *Resolver) resolveArgoApp(ctx context.Context, identifier string) (*Resolved, error) {
	m := appPattern.FindStringSubmatch(identifier)
	if m == nil {
		return nil, resolutionErrorf("ArgoCD app must be in format 'preview-pr-NUMBER'")
	}

	if err := r.prs.Available(); err != nil {
		return nil, &DependencyError{Tool: "gh", Reason: "ArgoCD app resolution needs PR lookups"}
	}

	num, _ := strconv.Atoi(m[1])
	pr, err := r.prs.Get(ctx, r.cfg.InfraRepo, num)
	if err != nil || pr == nil {
		return nil, resolutionErrorf("could not resolve ArgoCD app %q to preview ID", identifier)
	}

	bm := branchPattern.FindStringSubmatch(pr.HeadRef)
	if bm == nil {
		return nil, resolutionErrorf("infra PR #%d branch is not a preview branch", num)
	}

	return &Resolved{PreviewID: bm[1], Kind: KindArgoApp, Identifier: identifier, Via: ViaInfraPRBranch}, nil
}

// resolveNamespace is a best-effort cascade that always yields some preview
// ID. Fallbacks here are alternate success paths, not error paths.
func (r *Resolver) resolveNamespace(ctx context.Context, identifier string) (*Resolved, error) {
	done := func(id string, via Via) (*Resolved, error) {
		return &Resolved{PreviewID: id, Kind: KindGkeNamespace, Identifier: identifier, Via: via}, nil
	}

	// Tier a: <prefix>-preview-<N> carries the infra PR number directly.
	nsPattern := regexp.MustCompile(`^` + regexp.QuoteMeta(r.cfg.NamespacePrefix) + `-preview-(\d+)$`)
	if m := nsPattern.FindStringSubmatch(identifier); m != nil {
		num, _ := strconv.Atoi(m[1])
		if err := r.prs.Available(); err != nil {
			log.FromContext(ctx).Printf("Warning: gh CLI not available, using PR number as preview ID\n")
			return done(m[1], ViaNamespacePRNumber)
		}
		if id, ok := r.previewIDFromInfraPR(ctx, num); ok {
			return done(id, ViaInfraPRBranch)
		}
		return done(m[1], ViaNamespacePRNumber)
	}

	// Tier b: discover the ArgoCD application, first from the namespace's own
	// annotations, then by scanning all applications for this destination.
	app, via := r.appFromAnnotations(ctx, identifier)
	if app == "" {
		via = ViaAppScan
		for _, a := range r.cluster.ListApplications(ctx) {
			if a.Namespace == identifier {
				app = a.Name
				break
			}
		}
	}

	// Tier c: derive the ID from the app name, or fall back to the namespace.
	if app != "" {
		if m := appPattern.FindStringSubmatch(app); m != nil {
			num, _ := strconv.Atoi(m[1])
			if r.prs.Available() == nil {
				if id, ok := r.previewIDFromInfraPR(ctx, num); ok {
					return done(id, via)
				}
			}
			return done(m[1], via)
		}
		return done(app, ViaAppName)
	}

	return done(identifier, ViaNamespaceName)
}

// appFromAnnotations looks for an ArgoCD application reference in the
// namespace's annotations.
func (r *Resolver) appFromAnnotations(ctx context.Context, namespace string) (string, Via) {
	annotations := r.cluster.NamespaceAnnotations(ctx, namespace)
	for key, value := range annotations {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "argocd") && strings.Contains(lower, "app") {
			return value, ViaNamespaceAnnotation
		}
		if key == "app.kubernetes.io/instance" {
			return value, ViaNamespaceAnnotation
		}
	}
	return "", ViaNamespaceAnnotation
}

// previewIDFromInfraPR returns the preview ID derived from infra PR #num's
// head branch, when that branch is a preview branch.
func (r *Resolver) previewIDFromInfraPR(ctx context.Context, num int) (string, bool) {
	pr, err := r.prs.Get(ctx, r.cfg.InfraRepo, num)
	if err != nil || pr == nil {
		return "", false
	}
	m := branchPattern.FindStringSubmatch(pr.HeadRef)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// resolvePullRequest maps an application-repo PR number to a preview ID via
// the two-tier ancestor search.
func (r *Resolver) resolvePullRequest(ctx context.Context, identifier string) (*Resolved, error) {
	num, err := strconv.Atoi(identifier)
	if err != nil || num <= 0 {
		return nil, resolutionErrorf("PR number must be numeric")
	}

	if err := r.prs.Available(); err != nil {
		return nil, &DependencyError{Tool: "gh", Reason: "PR resolution needs PR lookups"}
	}

	// The PR may be an infra PR already, which names the preview directly.
	if pr, err := r.prs.Get(ctx, r.cfg.InfraRepo, num); err == nil && pr != nil {
		if m := branchPattern.FindStringSubmatch(pr.HeadRef); m != nil {
			return &Resolved{PreviewID: m[1], Kind: KindPullRequest, Identifier: identifier, Via: ViaInfraPRBranch}, nil
		}
	}

	pr, err := r.prs.Get(ctx, r.cfg.AppRepo, num)
	if err != nil || pr == nil {
		return nil, resolutionErrorf("could not find preview environment for PR #%d", num)
	}

	id, via, ok := r.ancestorSearch(ctx, pr.HeadRef)
	if !ok {
		return nil, resolutionErrorf("could not find preview environment for PR #%d", num)
	}
	return &Resolved{PreviewID: id, Kind: KindPullRequest, Identifier: identifier, Via: via}, nil
}

// resolveGitBranch maps an application branch name to a preview ID. The
// branch must have a PR; the ancestor search then works off origin/<branch>.
func (r *Resolver) resolveGitBranch(ctx context.Context, identifier string) (*Resolved, error) {
	if err := r.prs.Available(); err != nil {
		return nil, &DependencyError{Tool: "gh", Reason: "git branch resolution needs PR lookups"}
	}

	num, err := r.prs.FindByBranch(ctx, r.cfg.AppRepo, identifier)
	if err != nil || num == 0 {
		return nil, resolutionErrorf("could not find PR for branch %q", identifier)
	}

	if !r.git.RefExists(ctx, r.cfg.AppRepoPath, "origin/"+identifier) {
		return nil, resolutionErrorf("could not find preview environment for branch %q", identifier)
	}

	id, via, ok := r.ancestorSearch(ctx, identifier)
	if !ok {
		return nil, resolutionErrorf("could not find preview environment for branch %q", identifier)
	}
	return &Resolved{PreviewID: id, Kind: KindGitBranch, Identifier: identifier, Via: via}, nil
}

// ancestorSearch finds the preview whose snapshot tag is an ancestor of the
// application branch. Tier one walks the existing remote infra preview
// branches in listing order and takes the first whose preview-<branch> tag is
// an ancestor; the order is whatever the branch listing produced, so callers
// must not rely on determinism when several branches qualify. Tier two walks
// all preview tags newest-first and takes the first ancestor, which is
// deterministic for a fixed repository state.
func (r *Resolver) ancestorSearch(ctx context.Context, appBranch string) (string, Via, bool) {
	target := "origin/" + appBranch

	for _, infraBranch := range r.git.RemotePreviewBranches(ctx, r.cfg.InfraRepoPath) {
		tag := "preview-" + infraBranch
		if !r.git.TagExists(ctx, r.cfg.AppRepoPath, tag).Exists {
			continue
		}
		if r.git.IsAncestor(ctx, r.cfg.AppRepoPath, tag, target) {
			return infraBranch, ViaBranchSearch, true
		}
	}

	for _, tag := range r.git.PreviewTagsByRecency(ctx, r.cfg.AppRepoPath) {
		if r.git.IsAncestor(ctx, r.cfg.AppRepoPath, tag, target) {
			return strings.TrimPrefix(tag, "preview-"), ViaTagFallback, true
		}
	}

	return "", "", false
}

// String implements fmt.Stringer for diagnostics.
func (res *Resolved) String() string {
	return fmt.Sprintf("%s (%s %q via %s)", res.PreviewID, res.Kind, res.Identifier, res.Via)
}
