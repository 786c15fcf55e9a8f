package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/numberone-ai/machina-tools/internal/config"
	"github.com/numberone-ai/machina-tools/internal/log"
	"github.com/numberone-ai/machina-tools/internal/output"
)

var (
	// Global flags
	verbose bool
	quiet   bool

	// Shared state injected into commands
	cfg     *config.Config
	workDir string
)

// Command group IDs for organizing help output
const (
	GroupPreview = "preview"
	GroupStack   = "stack"
	GroupData    = "data"
	GroupReport  = "report"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "machina",
	Short: "Operator CLI for the machina multi-repo workspace",
	Long: `machina is the operator CLI for the machina workspace.

It inspects and tears down preview environments, manages the local
docker compose stack, queries Neo4j, imports Kubernetes environment
variables, and generates workspace reports.`,
	SilenceUsage:               true,
	SilenceErrors:              true,
	SuggestionsMinimumDistance: 2, // Enable typo suggestions
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose && quiet {
			return fmt.Errorf("--verbose and --quiet are mutually exclusive")
		}

		// Flags are parsed by the time this hook runs, so the logger and
		// printer are attached here rather than in Execute.
		ctx := cmd.Context()
		ctx = log.WithLogger(ctx, log.New(os.Stderr, verbose, quiet))
		ctx = output.WithPrinter(ctx, os.Stdout)
		cmd.SetContext(ctx)
		return nil
	},
	// Run is not set - shows help when no subcommand provided
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Load config
	loadedCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cfg = &loadedCfg

	// Get working directory
	workDir, err = os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "machina: failed to get working directory: %v\n", err)
		os.Exit(1)
	}

	// Create context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Store context for commands to use
	rootCmd.SetContext(ctx)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Run 'machina -h' for help")
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show external commands being executed")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	// Version flag
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Add command groups for organized help output
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupPreview, Title: "Preview Environment Commands:"},
		&cobra.Group{ID: GroupStack, Title: "Dev Stack Commands:"},
		&cobra.Group{ID: GroupData, Title: "Data Commands:"},
		&cobra.Group{ID: GroupReport, Title: "Report Commands:"},
	)

	// Preview environment commands
	rootCmd.AddCommand(newPreviewCmd())

	// Dev stack commands
	rootCmd.AddCommand(newStackCmd())
	rootCmd.AddCommand(newForwardCmd())

	// Data commands
	rootCmd.AddCommand(newNeo4jCmd())
	rootCmd.AddCommand(newKubeEnvCmd())

	// Report commands
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newTracesCmd())
}
