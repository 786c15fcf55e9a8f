package preview

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numberone-ai/machina-tools/internal/git"
	"github.com/numberone-ai/machina-tools/internal/github"
)

const (
	appPath   = "/ws/repos/dem2"
	infraPath = "/ws/repos/dem2-infra"
)

// fakeGit is an in-memory GitProvider. Every lookup increments calls so
// tests can assert that the pure strategies stay offline.
type fakeGit struct {
	tags          map[string]git.TagInfo // "<repoPath>:<tag>"
	branches      map[string]git.BranchInfo
	remotePreview []string
	tagsByRecency []string
	ancestors     map[string]bool // "<tag>-><branch>"
	refs          map[string]bool
	calls         int
}

func (f *fakeGit) TagExists(_ context.Context, repoPath, tag string) git.TagInfo {
	f.calls++
	return f.tags[repoPath+":"+tag]
}

func (f *fakeGit) BranchExists(_ context.Context, repoPath, branch string) git.BranchInfo {
	f.calls++
	return f.branches[repoPath+":"+branch]
}

func (f *fakeGit) RemotePreviewBranches(_ context.Context, _ string) []string {
	f.calls++
	return f.remotePreview
}

func (f *fakeGit) PreviewTagsByRecency(_ context.Context, _ string) []string {
	f.calls++
	return f.tagsByRecency
}

func (f *fakeGit) IsAncestor(_ context.Context, _, tag, branch string) bool {
	f.calls++
	return f.ancestors[tag+"->"+branch]
}

func (f *fakeGit) RefExists(_ context.Context, _, ref string) bool {
	f.calls++
	return f.refs[ref]
}

// fakePRs is an in-memory PullRequestProvider.
type fakePRs struct {
	unavailable bool
	prs         map[string]*github.PullRequest // "<repo>#<number>"
	byBranch    map[string]int                 // "<repo>:<branch>"
	calls       int
}

func (f *fakePRs) Available() error {
	if f.unavailable {
		return errors.New("gh not found")
	}
	return nil
}

func (f *fakePRs) Get(_ context.Context, repo string, number int) (*github.PullRequest, error) {
	f.calls++
	return f.prs[key(repo, number)], nil
}

func (f *fakePRs) FindByBranch(_ context.Context, repo, branch string) (int, error) {
	f.calls++
	return f.byBranch[repo+":"+branch], nil
}

func key(repo string, number int) string {
	return repo + "#" + strconv.Itoa(number)
}

// fakeCluster is an in-memory ClusterProvider.
type fakeCluster struct {
	annotations map[string]map[string]string
	apps        []Application
}

func (f *fakeCluster) NamespaceAnnotations(_ context.Context, namespace string) map[string]string {
	return f.annotations[namespace]
}

func (f *fakeCluster) ListApplications(_ context.Context) []Application {
	return f.apps
}

func testConfig() Config {
	return Config{
		AppRepoPath:     appPath,
		InfraRepoPath:   infraPath,
		AppRepo:         "dem2",
		InfraRepo:       "dem2-infra",
		NamespacePrefix: "tusdi",
	}
}

func infraPR(number int, headRef string) *github.PullRequest {
	return &github.PullRequest{Number: number, State: "OPEN", HeadRef: headRef}
}

func newTestResolver(g *fakeGit, p *fakePRs, c *fakeCluster) *Resolver {
	if g == nil {
		g = &fakeGit{}
	}
	if p == nil {
		p = &fakePRs{}
	}
	if c == nil {
		c = &fakeCluster{}
	}
	return NewResolver(testConfig(), g, p, c)
}

func TestResolveGitTag(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		want       string
		wantErr    bool
	}{
		{"simple slug", "preview-docproc-extraction-pipeline", "docproc-extraction-pipeline", false},
		{"nested dashes", "preview-checkout-flow", "checkout-flow", false},
		{"missing prefix", "feature-x", "", true},
		{"prefix only", "preview-", "", true},
		{"slash form rejected", "preview/checkout-flow", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGit{}
			p := &fakePRs{}
			r := newTestResolver(g, p, nil)

			res, err := r.Resolve(context.Background(), KindGitTag, tt.identifier)
			if tt.wantErr {
				var resErr *ResolutionError
				require.ErrorAs(t, err, &resErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.PreviewID)
			assert.Equal(t, KindGitTag, res.Kind)
			assert.Equal(t, tt.identifier, res.Identifier)
			assert.Equal(t, ViaTagPrefix, res.Via)
			assert.Zero(t, g.calls, "pure string match must not hit git")
			assert.Zero(t, p.calls, "pure string match must not hit gh")
		})
	}
}

func TestResolveInfraBranch(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		want       string
		wantErr    bool
	}{
		{"simple", "preview/checkout-flow", "checkout-flow", false},
		{"nested slug", "preview/docproc-extraction-pipeline", "docproc-extraction-pipeline", false},
		{"dash form rejected", "preview-x", "", true},
		{"missing prefix", "main", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGit{}
			r := newTestResolver(g, nil, nil)

			res, err := r.Resolve(context.Background(), KindInfraBranch, tt.identifier)
			if tt.wantErr {
				var resErr *ResolutionError
				require.ErrorAs(t, err, &resErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.PreviewID)
			assert.Equal(t, ViaBranchPrefix, res.Via)
			assert.Zero(t, g.calls)
		})
	}
}

func TestResolveArgoApp(t *testing.T) {
	t.Run("pr head branch names the preview", func(t *testing.T) {
		p := &fakePRs{prs: map[string]*github.PullRequest{
			key("dem2-infra", 91): infraPR(91, "preview/checkout-flow"),
		}}
		r := newTestResolver(nil, p, nil)

		res, err := r.Resolve(context.Background(), KindArgoApp, "preview-pr-91")
		require.NoError(t, err)
		assert.Equal(t, "checkout-flow", res.PreviewID)
		assert.Equal(t, ViaInfraPRBranch, res.Via)
	})

	t.Run("idempotent for fixed external state", func(t *testing.T) {
		p := &fakePRs{prs: map[string]*github.PullRequest{
			key("dem2-infra", 91): infraPR(91, "preview/checkout-flow"),
		}}
		r := newTestResolver(nil, p, nil)

		first, err := r.Resolve(context.Background(), KindArgoApp, "preview-pr-91")
		require.NoError(t, err)
		second, err := r.Resolve(context.Background(), KindArgoApp, "preview-pr-91")
		require.NoError(t, err)
		assert.Equal(t, first.PreviewID, second.PreviewID)
	})

	t.Run("malformed name", func(t *testing.T) {
		r := newTestResolver(nil, nil, nil)
		_, err := r.Resolve(context.Background(), KindArgoApp, "preview-checkout-flow")
		var resErr *ResolutionError
		require.ErrorAs(t, err, &resErr)
	})

	t.Run("missing pr", func(t *testing.T) {
		r := newTestResolver(nil, &fakePRs{}, nil)
		_, err := r.Resolve(context.Background(), KindArgoApp, "preview-pr-91")
		var resErr *ResolutionError
		require.ErrorAs(t, err, &resErr)
	})

	t.Run("non-preview head branch", func(t *testing.T) {
		p := &fakePRs{prs: map[string]*github.PullRequest{
			key("dem2-infra", 91): infraPR(91, "feature/oops"),
		}}
		r := newTestResolver(nil, p, nil)
		_, err := r.Resolve(context.Background(), KindArgoApp, "preview-pr-91")
		var resErr *ResolutionError
		require.ErrorAs(t, err, &resErr)
	})

	t.Run("gh unavailable fails fast", func(t *testing.T) {
		p := &fakePRs{unavailable: true}
		r := newTestResolver(nil, p, nil)
		_, err := r.Resolve(context.Background(), KindArgoApp, "preview-pr-91")
		var depErr *DependencyError
		require.ErrorAs(t, err, &depErr)
		assert.Zero(t, p.calls, "availability must be checked before any lookup")
	})
}

func TestResolveNamespace(t *testing.T) {
	t.Run("prefixed namespace resolves through infra pr", func(t *testing.T) {
		p := &fakePRs{prs: map[string]*github.PullRequest{
			key("dem2-infra", 92): infraPR(92, "preview/billing-v2"),
		}}
		r := newTestResolver(nil, p, nil)

		res, err := r.Resolve(context.Background(), KindGkeNamespace, "tusdi-preview-92")
		require.NoError(t, err)
		assert.Equal(t, "billing-v2", res.PreviewID)
		assert.Equal(t, ViaInfraPRBranch, res.Via)
	})

	t.Run("prefixed namespace falls back to pr number", func(t *testing.T) {
		r := newTestResolver(nil, &fakePRs{}, nil)

		res, err := r.Resolve(context.Background(), KindGkeNamespace, "tusdi-preview-92")
		require.NoError(t, err)
		assert.Equal(t, "92", res.PreviewID)
		assert.Equal(t, ViaNamespacePRNumber, res.Via)
	})

	t.Run("prefixed namespace degrades without gh", func(t *testing.T) {
		r := newTestResolver(nil, &fakePRs{unavailable: true}, nil)

		res, err := r.Resolve(context.Background(), KindGkeNamespace, "tusdi-preview-92")
		require.NoError(t, err)
		assert.Equal(t, "92", res.PreviewID)
	})

	t.Run("annotation names the argocd app", func(t *testing.T) {
		p := &fakePRs{prs: map[string]*github.PullRequest{
			key("dem2-infra", 91): infraPR(91, "preview/checkout-flow"),
		}}
		c := &fakeCluster{annotations: map[string]map[string]string{
			"some-ns": {"argocd.argoproj.io/app-name": "preview-pr-91"},
		}}
		r := newTestResolver(nil, p, c)

		res, err := r.Resolve(context.Background(), KindGkeNamespace, "some-ns")
		require.NoError(t, err)
		assert.Equal(t, "checkout-flow", res.PreviewID)
		assert.Equal(t, ViaNamespaceAnnotation, res.Via)
	})

	t.Run("instance annotation is recognized", func(t *testing.T) {
		c := &fakeCluster{annotations: map[string]map[string]string{
			"some-ns": {"app.kubernetes.io/instance": "legacy-app"},
		}}
		r := newTestResolver(nil, nil, c)

		res, err := r.Resolve(context.Background(), KindGkeNamespace, "some-ns")
		require.NoError(t, err)
		assert.Equal(t, "legacy-app", res.PreviewID)
		assert.Equal(t, ViaAppName, res.Via)
	})

	t.Run("app scan by destination namespace", func(t *testing.T) {
		p := &fakePRs{prs: map[string]*github.PullRequest{
			key("dem2-infra", 91): infraPR(91, "preview/checkout-flow"),
		}}
		c := &fakeCluster{apps: []Application{
			{Name: "preview-pr-90", Namespace: "other-ns"},
			{Name: "preview-pr-91", Namespace: "scan-ns"},
		}}
		r := newTestResolver(nil, p, c)

		res, err := r.Resolve(context.Background(), KindGkeNamespace, "scan-ns")
		require.NoError(t, err)
		assert.Equal(t, "checkout-flow", res.PreviewID)
		assert.Equal(t, ViaAppScan, res.Via)
	})

	t.Run("app name without pr pattern is used verbatim", func(t *testing.T) {
		c := &fakeCluster{apps: []Application{
			{Name: "standalone-app", Namespace: "scan-ns"},
		}}
		r := newTestResolver(nil, nil, c)

		res, err := r.Resolve(context.Background(), KindGkeNamespace, "scan-ns")
		require.NoError(t, err)
		assert.Equal(t, "standalone-app", res.PreviewID)
		assert.Equal(t, ViaAppName, res.Via)
	})

	t.Run("never fails - identity fallback", func(t *testing.T) {
		inputs := []string{"some-random-ns", "", "tusdi-preview-", "kube-system", "x y z"}
		for _, ns := range inputs {
			r := newTestResolver(nil, &fakePRs{unavailable: true}, nil)
			res, err := r.Resolve(context.Background(), KindGkeNamespace, ns)
			require.NoError(t, err, "namespace %q must always resolve", ns)
			assert.Equal(t, ns, res.PreviewID)
			assert.Equal(t, ViaNamespaceName, res.Via)
		}
	})
}

func TestResolvePullRequest(t *testing.T) {
	t.Run("non-numeric identifier", func(t *testing.T) {
		r := newTestResolver(nil, nil, nil)
		_, err := r.Resolve(context.Background(), KindPullRequest, "abc")
		var resErr *ResolutionError
		require.ErrorAs(t, err, &resErr)
	})

	t.Run("gh unavailable fails fast", func(t *testing.T) {
		r := newTestResolver(nil, &fakePRs{unavailable: true}, nil)
		_, err := r.Resolve(context.Background(), KindPullRequest, "421")
		var depErr *DependencyError
		require.ErrorAs(t, err, &depErr)
	})

	t.Run("infra pr direct hit", func(t *testing.T) {
		p := &fakePRs{prs: map[string]*github.PullRequest{
			key("dem2-infra", 101): infraPR(101, "preview/checkout-flow"),
		}}
		r := newTestResolver(nil, p, nil)

		res, err := r.Resolve(context.Background(), KindPullRequest, "101")
		require.NoError(t, err)
		assert.Equal(t, "checkout-flow", res.PreviewID)
		assert.Equal(t, ViaInfraPRBranch, res.Via)
	})

	t.Run("branch search finds ancestor tag", func(t *testing.T) {
		p := &fakePRs{prs: map[string]*github.PullRequest{
			key("dem2", 421): infraPR(421, "feature/x"),
		}}
		g := &fakeGit{
			remotePreview: []string{"billing-v2", "checkout-flow"},
			tags: map[string]git.TagInfo{
				appPath + ":preview-billing-v2":    {Exists: true},
				appPath + ":preview-checkout-flow": {Exists: true},
			},
			ancestors: map[string]bool{
				"preview-checkout-flow->origin/feature/x": true,
			},
		}
		r := newTestResolver(g, p, nil)

		res, err := r.Resolve(context.Background(), KindPullRequest, "421")
		require.NoError(t, err)
		assert.Equal(t, "checkout-flow", res.PreviewID)
		assert.Equal(t, ViaBranchSearch, res.Via)
	})

	t.Run("branch without local tag is skipped", func(t *testing.T) {
		p := &fakePRs{prs: map[string]*github.PullRequest{
			key("dem2", 421): infraPR(421, "feature/x"),
		}}
		g := &fakeGit{
			remotePreview: []string{"stale-branch", "checkout-flow"},
			tags: map[string]git.TagInfo{
				// no tag for stale-branch
				appPath + ":preview-checkout-flow": {Exists: true},
			},
			ancestors: map[string]bool{
				"preview-stale-branch->origin/feature/x":  true,
				"preview-checkout-flow->origin/feature/x": true,
			},
		}
		r := newTestResolver(g, p, nil)

		res, err := r.Resolve(context.Background(), KindPullRequest, "421")
		require.NoError(t, err)
		assert.Equal(t, "checkout-flow", res.PreviewID)
	})

	t.Run("tag fallback prefers newest", func(t *testing.T) {
		p := &fakePRs{prs: map[string]*github.PullRequest{
			key("dem2", 421): infraPR(421, "feature/x"),
		}}
		g := &fakeGit{
			tagsByRecency: []string{"preview-newest", "preview-checkout-flow", "preview-oldest"},
			ancestors: map[string]bool{
				"preview-checkout-flow->origin/feature/x": true,
				"preview-oldest->origin/feature/x":        true,
			},
		}
		r := newTestResolver(g, p, nil)

		res, err := r.Resolve(context.Background(), KindPullRequest, "421")
		require.NoError(t, err)
		assert.Equal(t, "checkout-flow", res.PreviewID, "first ancestor in newest-first order wins")
		assert.Equal(t, ViaTagFallback, res.Via)
	})

	t.Run("no preview anywhere", func(t *testing.T) {
		p := &fakePRs{prs: map[string]*github.PullRequest{
			key("dem2", 421): infraPR(421, "feature/x"),
		}}
		r := newTestResolver(&fakeGit{}, p, nil)

		_, err := r.Resolve(context.Background(), KindPullRequest, "421")
		var resErr *ResolutionError
		require.ErrorAs(t, err, &resErr)
	})

	t.Run("pr not found in either repo", func(t *testing.T) {
		r := newTestResolver(&fakeGit{}, &fakePRs{}, nil)
		_, err := r.Resolve(context.Background(), KindPullRequest, "421")
		var resErr *ResolutionError
		require.ErrorAs(t, err, &resErr)
	})
}

func TestResolveGitBranch(t *testing.T) {
	t.Run("no pr for branch", func(t *testing.T) {
		r := newTestResolver(&fakeGit{}, &fakePRs{}, nil)
		_, err := r.Resolve(context.Background(), KindGitBranch, "feature/x")
		var resErr *ResolutionError
		require.ErrorAs(t, err, &resErr)
	})

	t.Run("gh unavailable fails fast", func(t *testing.T) {
		r := newTestResolver(nil, &fakePRs{unavailable: true}, nil)
		_, err := r.Resolve(context.Background(), KindGitBranch, "feature/x")
		var depErr *DependencyError
		require.ErrorAs(t, err, &depErr)
	})

	t.Run("branch search finds ancestor tag", func(t *testing.T) {
		p := &fakePRs{byBranch: map[string]int{"dem2:feature/x": 421}}
		g := &fakeGit{
			remotePreview: []string{"checkout-flow"},
			tags: map[string]git.TagInfo{
				appPath + ":preview-checkout-flow": {Exists: true},
			},
			ancestors: map[string]bool{
				"preview-checkout-flow->origin/feature/x": true,
			},
			refs: map[string]bool{"origin/feature/x": true},
		}
		r := newTestResolver(g, p, nil)

		res, err := r.Resolve(context.Background(), KindGitBranch, "feature/x")
		require.NoError(t, err)
		assert.Equal(t, "checkout-flow", res.PreviewID)
		assert.Equal(t, ViaBranchSearch, res.Via)
	})

	t.Run("missing remote ref fails", func(t *testing.T) {
		p := &fakePRs{byBranch: map[string]int{"dem2:feature/x": 421}}
		g := &fakeGit{
			remotePreview: []string{"checkout-flow"},
			tags: map[string]git.TagInfo{
				appPath + ":preview-checkout-flow": {Exists: true},
			},
			ancestors: map[string]bool{
				"preview-checkout-flow->origin/feature/x": true,
			},
			// origin/feature/x was never fetched
		}
		r := newTestResolver(g, p, nil)

		_, err := r.Resolve(context.Background(), KindGitBranch, "feature/x")
		var resErr *ResolutionError
		require.ErrorAs(t, err, &resErr)
	})

	t.Run("tag fallback", func(t *testing.T) {
		p := &fakePRs{byBranch: map[string]int{"dem2:feature/x": 421}}
		g := &fakeGit{
			tagsByRecency: []string{"preview-checkout-flow"},
			ancestors: map[string]bool{
				"preview-checkout-flow->origin/feature/x": true,
			},
			refs: map[string]bool{"origin/feature/x": true},
		}
		r := newTestResolver(g, p, nil)

		res, err := r.Resolve(context.Background(), KindGitBranch, "feature/x")
		require.NoError(t, err)
		assert.Equal(t, "checkout-flow", res.PreviewID)
		assert.Equal(t, ViaTagFallback, res.Via)
	})
}

func TestResolveSingleQualifyingBranchIsDeterministic(t *testing.T) {
	// When exactly one infra preview branch has an ancestor tag, PullRequest
	// and GitBranch must both select it regardless of listing order.
	g := func() *fakeGit {
		return &fakeGit{
			remotePreview: []string{"unrelated-a", "checkout-flow", "unrelated-b"},
			tags: map[string]git.TagInfo{
				appPath + ":preview-unrelated-a":   {Exists: true},
				appPath + ":preview-checkout-flow": {Exists: true},
				appPath + ":preview-unrelated-b":   {Exists: true},
			},
			ancestors: map[string]bool{
				"preview-checkout-flow->origin/feature/x": true,
			},
			refs: map[string]bool{"origin/feature/x": true},
		}
	}

	p := &fakePRs{
		prs:      map[string]*github.PullRequest{key("dem2", 421): infraPR(421, "feature/x")},
		byBranch: map[string]int{"dem2:feature/x": 421},
	}

	byPR, err := newTestResolver(g(), p, nil).Resolve(context.Background(), KindPullRequest, "421")
	require.NoError(t, err)
	byBranch, err := newTestResolver(g(), p, nil).Resolve(context.Background(), KindGitBranch, "feature/x")
	require.NoError(t, err)

	assert.Equal(t, "checkout-flow", byPR.PreviewID)
	assert.Equal(t, byPR.PreviewID, byBranch.PreviewID)
}

func TestResolveUnknownKind(t *testing.T) {
	r := newTestResolver(nil, nil, nil)
	_, err := r.Resolve(context.Background(), Kind("bogus"), "x")
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
}
