// Package preview resolves workspace identifiers to canonical preview
// environment IDs and manages preview environment lifecycle.
//
// A preview environment is an ephemeral per-branch deployment of the full
// application stack. One canonical preview ID keys everything belonging to
// it: git tags (preview-<id>) in the application repos, the infrastructure
// branch (preview/<id>), and indirectly the ArgoCD application name.
package preview

import "fmt"

// Kind enumerates the identifier forms that can name a preview environment.
type Kind string

const (
	KindGitTag       Kind = "git-tag"
	KindArgoApp      Kind = "argocd-app"
	KindGkeNamespace Kind = "gke-namespace"
	KindInfraBranch  Kind = "infra-branch"
	KindPullRequest  Kind = "pr"
	KindGitBranch    Kind = "git-branch"
)

// Via names the strategy tier that produced a resolution. Useful for the
// info command's diagnostics and for testing each fallback in isolation.
type Via string

const (
	ViaTagPrefix           Via = "tag-prefix"            // preview-<id> string match
	ViaBranchPrefix        Via = "branch-prefix"         // preview/<id> string match
	ViaInfraPRBranch       Via = "infra-pr-branch"       // infra PR head branch preview/<id>
	ViaNamespacePRNumber   Via = "namespace-pr-number"   // <prefix>-preview-<N> with N as the ID
	ViaNamespaceAnnotation Via = "namespace-annotation"  // ArgoCD app from namespace annotations
	ViaAppScan             Via = "argocd-app-scan"       // ArgoCD app matched by destination namespace
	ViaAppName             Via = "argocd-app-name"       // ArgoCD app name used verbatim
	ViaNamespaceName       Via = "namespace-name"        // namespace name used verbatim
	ViaBranchSearch        Via = "preview-branch-search" // remote infra branch with ancestor tag
	ViaTagFallback         Via = "preview-tag-fallback"  // newest preview tag that is an ancestor
)

// Resolved is the outcome of a successful resolution. Immutable once
// constructed.
type Resolved struct {
	PreviewID  string `json:"preview_id"`
	Kind       Kind   `json:"kind"`
	Identifier string `json:"identifier"`
	Via        Via    `json:"via"`
}

// ResolutionError indicates an identifier could not be mapped to a preview
// ID: malformed format, missing PR, missing ancestor tag, or no matching
// branch.
type ResolutionError struct {
	Reason string
}

func (e *ResolutionError) Error() string {
	return e.Reason
}

func resolutionErrorf(format string, args ...any) error {
	return &ResolutionError{Reason: fmt.Sprintf(format, args...)}
}

// DependencyError indicates a required external CLI is not on the execution
// path.
type DependencyError struct {
	Tool   string
	Reason string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s required: %s", e.Tool, e.Reason)
}
