// Package git wraps local git invocations for the workspace repositories.
package git

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/numberone-ai/machina-tools/internal/cmd"
)

// ErrGitNotFound indicates git is not installed or not in PATH.
var ErrGitNotFound = fmt.Errorf("git not found: please install git (https://git-scm.com)")

// CheckGit verifies that git is available in PATH.
func CheckGit() error {
	if !cmd.Available("git") {
		return ErrGitNotFound
	}
	return nil
}

// TagInfo describes a git tag lookup.
type TagInfo struct {
	Exists bool
	Commit string
	Date   string
}

// BranchLocation indicates where a branch ref was found.
type BranchLocation string

const (
	LocationLocal  BranchLocation = "LOCAL"
	LocationRemote BranchLocation = "REMOTE"
)

// BranchInfo describes a git branch lookup.
type BranchInfo struct {
	Exists   bool
	Location BranchLocation
}

func runGit(ctx context.Context, dir string, args ...string) error {
	return cmd.RunContext(ctx, dir, "git", args...)
}

func outputGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	return cmd.OutputContext(ctx, dir, "git", args...)
}

// repoMissing reports whether the checkout directory doesn't exist.
// Lookups against a missing checkout yield "not found" rather than errors,
// matching how operators use partially cloned workspaces.
func repoMissing(repoPath string) bool {
	_, err := os.Stat(repoPath)
	return err != nil
}

// TagExists checks whether a tag exists in a repository, returning its commit
// and author date when found.
func TagExists(ctx context.Context, repoPath, tag string) TagInfo {
	if repoMissing(repoPath) {
		return TagInfo{}
	}

	out, err := outputGit(ctx, repoPath, "rev-parse", tag)
	if err != nil {
		return TagInfo{}
	}
	info := TagInfo{Exists: true, Commit: strings.TrimSpace(string(out))}

	if out, err := outputGit(ctx, repoPath, "log", "-1", "--format=%ai", tag); err == nil {
		info.Date = strings.TrimSpace(string(out))
	}
	return info
}

// BranchExists checks whether a branch exists locally or on origin.
func BranchExists(ctx context.Context, repoPath, branch string) BranchInfo {
	if repoMissing(repoPath) {
		return BranchInfo{}
	}

	if err := runGit(ctx, repoPath, "show-ref", "--verify", "--quiet", "refs/heads/"+branch); err == nil {
		return BranchInfo{Exists: true, Location: LocationLocal}
	}
	if err := runGit(ctx, repoPath, "show-ref", "--verify", "--quiet", "refs/remotes/origin/"+branch); err == nil {
		return BranchInfo{Exists: true, Location: LocationRemote}
	}
	return BranchInfo{}
}

// RemotePreviewBranches lists remote preview branches with the
// "origin/preview/" prefix stripped. Order is whatever git's branch listing
// produces; callers must not rely on it.
func RemotePreviewBranches(ctx context.Context, repoPath string) []string {
	if repoMissing(repoPath) {
		return nil
	}

	out, err := outputGit(ctx, repoPath, "branch", "-r")
	if err != nil {
		return nil
	}

	var branches []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "origin/preview/") {
			branches = append(branches, strings.Replace(line, "origin/preview/", "", 1))
		}
	}
	return branches
}

// PreviewTagsByRecency lists preview-* tags sorted by creation date,
// newest first.
func PreviewTagsByRecency(ctx context.Context, repoPath string) []string {
	if repoMissing(repoPath) {
		return nil
	}

	out, err := outputGit(ctx, repoPath, "tag", "-l", "preview-*", "--sort=-creatordate")
	if err != nil {
		return nil
	}

	var tags []string
	for _, line := range strings.Split(string(out), "\n") {
		if tag := strings.TrimSpace(line); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// IsAncestor reports whether tag is an ancestor of branch.
func IsAncestor(ctx context.Context, repoPath, tag, branch string) bool {
	return runGit(ctx, repoPath, "merge-base", "--is-ancestor", tag, branch) == nil
}

// RefExists reports whether a ref resolves in the repository.
func RefExists(ctx context.Context, repoPath, ref string) bool {
	if repoMissing(repoPath) {
		return false
	}
	return runGit(ctx, repoPath, "rev-parse", "--verify", "--quiet", ref) == nil
}

// DeleteTag removes a tag locally and from origin. Returns the combined
// command output for display. A tag missing on the remote is not an error.
func DeleteTag(ctx context.Context, repoPath, tag string) (string, error) {
	var b strings.Builder

	out, err := outputGit(ctx, repoPath, "tag", "-d", tag)
	if err != nil {
		return "", fmt.Errorf("delete local tag %s: %w", tag, err)
	}
	b.Write(out)

	out, err = outputGit(ctx, repoPath, "push", "origin", ":refs/tags/"+tag)
	if err == nil {
		b.Write(out)
	}
	return strings.TrimSpace(b.String()), nil
}

// ListFiles returns the git-tracked files of a repository.
func ListFiles(ctx context.Context, repoPath string) ([]string, error) {
	out, err := outputGit(ctx, repoPath, "ls-files")
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}
	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		if f := strings.TrimSpace(line); f != "" {
			files = append(files, f)
		}
	}
	return files, nil
}
