package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/numberone-ai/machina-tools/internal/envfile"
	"github.com/numberone-ai/machina-tools/internal/kube"
	"github.com/numberone-ai/machina-tools/internal/log"
	"github.com/numberone-ai/machina-tools/internal/output"
	"github.com/numberone-ai/machina-tools/internal/ui"
)

func newKubeEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kubeenv",
		Short:   "Import and compare Kubernetes environment variables",
		GroupID: GroupData,
	}
	cmd.AddCommand(newKubeEnvImportCmd())
	cmd.AddCommand(newKubeEnvCompareCmd())
	return cmd
}

func newKubeEnvImportCmd() *cobra.Command {
	var (
		namespace  string
		deployment string
		container  string
		outFile    string
		noComments bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Write a deployment's environment to a sourceable .env file",
		Long: `Resolve a deployment's environment variables, including ConfigMap
and Secret references, and write them to a local .env file with 0600
permissions.

Examples:
  machina kubeenv import -n tusdi-preview-92 -d backend
  machina kubeenv import -n tusdi-preview-92 -d backend -c app -o backend.env`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)

			if err := kube.CheckKubectl(); err != nil {
				return err
			}

			result, err := kube.ImportEnvironment(ctx, namespace, deployment, container)
			if err != nil {
				return err
			}

			for _, warning := range result.Warnings {
				l.Printf("Warning: %s\n", warning)
			}
			for _, e := range result.Errors {
				l.Printf("Error: %s\n", e)
			}

			path := outFile
			if path == "" {
				path = fmt.Sprintf(".env.%s.%s", result.Namespace, result.Deployment)
			}

			opts := envfile.WriteOptions{Comments: !noComments, Metadata: !noComments}
			if err := envfile.Write(result, path, opts); err != nil {
				return err
			}

			l.Printf("Wrote %d variables to %s\n", len(result.Vars), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Kubernetes namespace")
	cmd.Flags().StringVarP(&deployment, "deployment", "d", "", "Deployment name")
	cmd.Flags().StringVarP(&container, "container", "c", "", "Container name (defaults to the first container)")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Output file (defaults to .env.<namespace>.<deployment>)")
	cmd.Flags().BoolVar(&noComments, "no-comments", false, "Omit provenance comments and metadata")
	cmd.MarkFlagRequired("namespace")
	cmd.MarkFlagRequired("deployment")
	return cmd
}

func newKubeEnvCompareCmd() *cobra.Command {
	var (
		asJSON      bool
		noIdentical bool
	)

	cmd := &cobra.Command{
		Use:   "compare <old> <new>",
		Short: "Diff two .env files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			result, err := envfile.Compare(args[0], args[1])
			if err != nil {
				return err
			}
			if noIdentical {
				result.Identical = nil
			}

			if asJSON {
				enc := json.NewEncoder(out.Writer())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			printDiffSection(out, ui.ErrorStyle.Render("Removed"), result.Removed, true, false)
			printDiffSection(out, ui.SuccessStyle.Render("Added"), result.Added, false, true)
			printDiffSection(out, ui.WarningStyle.Render("Changed"), result.Changed, true, true)
			if !noIdentical {
				printDiffSection(out, ui.MutedStyle.Render("Identical"), result.Identical, false, false)
			}

			out.Printf("\n%d removed, %d added, %d changed, %d identical\n",
				len(result.Removed), len(result.Added), len(result.Changed), len(result.Identical))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&noIdentical, "no-identical", false, "Hide identical variables")
	return cmd
}

// truncateValue shortens long values for terminal display.
func truncateValue(value *string) string {
	const maxLen = 50
	if value == nil {
		return "(none)"
	}
	v := *value
	if len(v) > maxLen {
		v = v[:maxLen-3] + "..."
	}
	return fmt.Sprintf("%q", v)
}

func printDiffSection(out *output.Printer, title string, items []envfile.VarDiff, showOld, showNew bool) {
	if len(items) == 0 {
		return
	}
	out.Printf("%s (%d):\n", title, len(items))
	for _, item := range items {
		switch {
		case showOld && showNew:
			out.Printf("  %s: %s -> %s\n", item.Name, truncateValue(item.OldValue), truncateValue(item.NewValue))
		case showOld:
			out.Printf("  %s: %s\n", item.Name, truncateValue(item.OldValue))
		case showNew:
			out.Printf("  %s: %s\n", item.Name, truncateValue(item.NewValue))
		default:
			out.Printf("  %s\n", item.Name)
		}
	}
	out.Println("")
}
