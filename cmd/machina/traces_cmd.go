package main

import (
	"github.com/spf13/cobra"

	"github.com/numberone-ai/machina-tools/internal/output"
	"github.com/numberone-ai/machina-tools/internal/traces"
)

func newTracesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "traces <dir>",
		Short:   "Analyze LLM trace timing from a directory of JSONL logs",
		GroupID: GroupReport,
		Long: `Read JSONL LLM trace files and report where each invocation spent
its time: inside model calls versus tool use and orchestration.

Examples:
  machina traces logs/llm-traces-20260821
  machina traces logs/llm-traces-20260821 --format markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			fmtValue, err := traces.ParseFormat(format)
			if err != nil {
				return err
			}

			invocations, err := traces.LoadDir(ctx, args[0])
			if err != nil {
				return err
			}

			analysis := traces.Analyze(invocations)
			return traces.Write(output.FromContext(ctx).Writer(), analysis, fmtValue)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, markdown")
	return cmd
}
