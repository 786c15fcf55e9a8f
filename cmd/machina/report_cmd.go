package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/numberone-ai/machina-tools/internal/git"
	"github.com/numberone-ai/machina-tools/internal/output"
	"github.com/numberone-ai/machina-tools/internal/report"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Generate workspace inventory reports",
		GroupID: GroupReport,
	}
	cmd.AddCommand(newReportLanguagesCmd())
	cmd.AddCommand(newReportRoutesCmd())
	return cmd
}

func newReportLanguagesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "Count files and lines per language, repo, and component",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			fmtValue, err := report.ParseFormat(format)
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

			repos := []string{cfg.GitHub.AppRepo, cfg.GitHub.WebUIRepo, cfg.GitHub.InfraRepo}
			scan, err := report.ScanLanguages(ctx, filepath.Join(ws.Root, cfg.ReposDir), repos)
			if err != nil {
				return err
			}
			return report.WriteLanguageReport(output.FromContext(ctx).Writer(), scan, fmtValue)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, markdown")
	return cmd
}

func newReportRoutesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Inventory the HTTP routes exposed by the services",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			fmtValue, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			ws, err := resolveWorkspace()
			if err != nil {
				return err
			}

			services := []report.ServiceSpec{
				{Name: cfg.GitHub.AppRepo, Framework: "fastapi", Dir: ws.AppRepo},
				{Name: cfg.GitHub.WebUIRepo, Framework: "next", Dir: filepath.Join(ws.WebUIRepo, "app")},
			}
			scan, err := report.ScanRoutes(ctx, services)
			if err != nil {
				return err
			}
			return report.WriteRouteReport(output.FromContext(ctx).Writer(), scan, fmtValue)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, markdown")
	return cmd
}
