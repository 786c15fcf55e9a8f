package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/numberone-ai/machina-tools/internal/git"
	"github.com/numberone-ai/machina-tools/internal/log"
	"github.com/numberone-ai/machina-tools/internal/output"
	"github.com/numberone-ai/machina-tools/internal/preview"
)

// identifierFlags holds the six mutually exclusive ways to name a
// preview environment.
type identifierFlags struct {
	tag         string
	app         string
	namespace   string
	infraBranch string
	pr          string
	branch      string
}

func (f *identifierFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tag, "git-tag", "", "Git tag (preview-<id>)")
	cmd.Flags().StringVar(&f.app, "argocd-app", "", "ArgoCD application name (preview-pr-<N>)")
	cmd.Flags().StringVar(&f.namespace, "gke-namespace", "", "GKE namespace")
	cmd.Flags().StringVar(&f.infraBranch, "infra-branch", "", "Infra branch (preview/<id>)")
	cmd.Flags().StringVar(&f.pr, "pr", "", "Application repo PR number")
	cmd.Flags().StringVar(&f.branch, "git-branch", "", "Application repo branch name")
	cmd.MarkFlagsMutuallyExclusive("git-tag", "argocd-app", "gke-namespace", "infra-branch", "pr", "git-branch")
}

// kindAndIdentifier returns the selected kind, enforcing that exactly
// one identifier flag was given.
func (f *identifierFlags) kindAndIdentifier() (preview.Kind, string, error) {
	type option struct {
		kind  preview.Kind
		value string
	}
	options := []option{
		{preview.KindGitTag, f.tag},
		{preview.KindArgoApp, f.app},
		{preview.KindGkeNamespace, f.namespace},
		{preview.KindInfraBranch, f.infraBranch},
		{preview.KindPullRequest, f.pr},
		{preview.KindGitBranch, f.branch},
	}

	var selected *option
	for i := range options {
		if options[i].value == "" {
			continue
		}
		if selected != nil {
			return "", "", fmt.Errorf("exactly one of --git-tag, --argocd-app, --gke-namespace, --infra-branch, --pr, --git-branch is required")
		}
		selected = &options[i]
	}
	if selected == nil {
		return "", "", fmt.Errorf("exactly one of --git-tag, --argocd-app, --gke-namespace, --infra-branch, --pr, --git-branch is required")
	}
	return selected.kind, selected.value, nil
}

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "preview",
		Short:   "Inspect and tear down preview environments",
		GroupID: GroupPreview,
	}
	cmd.AddCommand(newPreviewInfoCmd())
	cmd.AddCommand(newPreviewDeleteCmd())
	return cmd
}

func newPreviewInfoCmd() *cobra.Command {
	var (
		ids    identifierFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the state of a preview environment",
		Long: `Resolve a preview environment from any identifier and show its
current state: git tags, infra branch, pull requests, and the ArgoCD
application.

Examples:
  machina preview info --git-tag preview-checkout-flow
  machina preview info --pr 421
  machina preview info --gke-namespace tusdi-preview-92 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kind, identifier, err := ids.kindAndIdentifier()
			if err != nil {
				return err
			}
			if err := git.CheckGit(); err != nil {
				return err
			}

			ws, err := resolveWorkspace()
			if err != nil {
				return err
			}

			resolved, err := newResolver(ws).Resolve(ctx, kind, identifier)
			if err != nil {
				return err
			}
			log.FromContext(ctx).Debug("resolved preview", "id", resolved.PreviewID, "via", string(resolved.Via))

			env := preview.NewEnvironment(*resolved, environmentConfig(ws))
			info := env.CollectInfo(ctx)

			return renderInfo(output.FromContext(ctx).Writer(), info, format)
		},
	}

	ids.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "terminal", "Output format: terminal, json, markdown")
	return cmd
}

func newPreviewDeleteCmd() *cobra.Command {
	var (
		ids    identifierFlags
		dryRun bool
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Tear down a preview environment",
		Long: `Close the infra pull request and remove preview tags from the
application repositories. The ArgoCD application follows the closed PR
and is cleaned up by the cluster, not deleted directly.

Examples:
  machina preview delete --git-tag preview-checkout-flow
  machina preview delete --pr 421 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)
			out := output.FromContext(ctx)

			kind, identifier, err := ids.kindAndIdentifier()
			if err != nil {
				return err
			}
			if err := git.CheckGit(); err != nil {
				return err
			}

			ws, err := resolveWorkspace()
			if err != nil {
				return err
			}

			resolved, err := newResolver(ws).Resolve(ctx, kind, identifier)
			if err != nil {
				return err
			}

			env := preview.NewEnvironment(*resolved, environmentConfig(ws))

			if dryRun {
				info := env.CollectInfo(ctx)
				out.Printf("Would tear down preview %q:\n", resolved.PreviewID)
				printTeardownPlan(out, info)
				return nil
			}

			if !yes {
				out.Printf("Tearing down preview %q (use --dry-run to preview). Continue? [y/N] ", resolved.PreviewID)
				var answer string
				fmt.Fscanln(cmd.InOrStdin(), &answer)
				if answer != "y" && answer != "Y" && answer != "yes" {
					l.Println("Aborted")
					return nil
				}
			}

			result := env.Delete(ctx)
			printDeleteResult(out, result)
			return nil
		},
	}

	ids.register(cmd)
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "Show what would be removed without removing it")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func printTeardownPlan(out *output.Printer, info *preview.Info) {
	if info.Infra.PR != nil && info.Infra.PR.State == "OPEN" {
		out.Printf("  - close infra PR #%d (%s)\n", info.Infra.PR.Number, info.Infra.PR.Title)
	}
	if info.Backend.Tag.Exists {
		out.Printf("  - delete tag %s in %s\n", info.Backend.Tag.Name, info.Backend.Name)
	}
	if info.Frontend.Tag.Exists {
		out.Printf("  - delete tag %s in %s\n", info.Frontend.Tag.Name, info.Frontend.Name)
	}
	if !info.Infra.Branch.Exists && !info.Backend.Tag.Exists && !info.Frontend.Tag.Exists {
		out.Println("  (nothing to do, environment already clean)")
	}
}

func printDeleteResult(out *output.Printer, result *preview.DeleteResult) {
	if result.ClosedPR > 0 {
		out.Printf("Closed infra PR #%d\n", result.ClosedPR)
	}
	for _, tag := range result.TagsRemoved {
		out.Printf("Removed %s\n", tag)
	}
	for _, tag := range result.TagsSkipped {
		out.Printf("Skipped %s (not present)\n", tag)
	}
	if result.ArgoApp != "" {
		out.Printf("ArgoCD app %s will follow the closed PR: %s\n", result.ArgoApp, result.ArgoURL)
	}
}
