package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/numberone-ai/machina-tools/internal/compose"
	"github.com/numberone-ai/machina-tools/internal/log"
	"github.com/numberone-ai/machina-tools/internal/output"
	"github.com/numberone-ai/machina-tools/internal/ui"
)

// failureLogTail is how many log lines to show per failing service.
const failureLogTail = 20

func newStackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stack",
		Short:   "Manage the local docker compose stack",
		GroupID: GroupStack,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return compose.CheckDocker()
		},
	}
	cmd.AddCommand(newStackUpCmd())
	cmd.AddCommand(newStackStatusCmd())
	cmd.AddCommand(newStackDownCmd())
	return cmd
}

func sanityEndpoints() []compose.Endpoint {
	return []compose.Endpoint{
		{Name: "Backend API", URL: cfg.Stack.BackendBaseURL + "/api/v1/health"},
		{Name: "Frontend", URL: "http://localhost:3000"},
		{Name: "Neo4j", URL: fmt.Sprintf("http://localhost:%d", cfg.Neo4j.HTTPPort)},
	}
}

func newStackUpCmd() *cobra.Command {
	var timeout int

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Start the stack and wait for it to become healthy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)
			out := output.FromContext(ctx)

			ws, err := resolveWorkspace()
			if err != nil {
				return err
			}
			stack := &compose.Stack{Dir: ws.Root}

			if err := stack.Up(ctx); err != nil {
				return err
			}

			wait := time.Duration(timeout) * time.Second
			l.Printf("Waiting up to %s for services to become healthy...\n", wait)

			failed, err := stack.WaitHealthy(ctx, wait)
			if err != nil {
				out.Printf("%s services did not become healthy: %s\n",
					ui.ErrorStyle.Render("✗"), strings.Join(failed, ", "))
				for _, svc := range failed {
					logs, logErr := stack.Logs(ctx, svc, failureLogTail)
					if logErr != nil {
						continue
					}
					out.Printf("\nRecent logs for %s:\n%s\n", svc, logs)
				}
				return fmt.Errorf("stack unhealthy after %s", wait)
			}

			results := compose.ProbeEndpoints(ctx, sanityEndpoints())
			printCheckResults(out, results)

			for _, r := range results {
				if !r.Passed {
					return fmt.Errorf("sanity checks failed")
				}
			}
			out.Println(ui.SuccessStyle.Render("Stack is up."))
			return nil
		},
	}

	cmd.Flags().IntVarP(&timeout, "timeout", "t", 0, "Seconds to wait for healthy services (0 = config default)")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if timeout == 0 {
			timeout = cfg.Stack.HealthTimeout
		}
	}
	return cmd
}

func newStackStatusCmd() *cobra.Command {
	var probes bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show service health for the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			ws, err := resolveWorkspace()
			if err != nil {
				return err
			}
			stack := &compose.Stack{Dir: ws.Root}

			services, err := stack.Ps(ctx)
			if err != nil {
				return err
			}
			if len(services) == 0 {
				out.Println("No services running.")
				return nil
			}

			rows := make([][]string, 0, len(services))
			for _, svc := range services {
				name := strings.TrimPrefix(svc.Name, cfg.Stack.ProjectPrefix)
				health := svc.Health
				if health == "" {
					health = "-"
				}
				symbol := ui.StatusSymbol(svc.State)
				if !svc.Healthy() {
					symbol = ui.StatusSymbol("error")
				}
				rows = append(rows, []string{symbol, name, svc.State, health, svc.Status})
			}
			out.Print(ui.RenderTable([]string{"", "SERVICE", "STATE", "HEALTH", "STATUS"}, rows))

			if probes {
				printCheckResults(out, compose.ProbeEndpoints(ctx, sanityEndpoints()))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&probes, "probes", false, "Also run HTTP endpoint probes")
	return cmd
}

func newStackDownCmd() *cobra.Command {
	var removeVolumes bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ws, err := resolveWorkspace()
			if err != nil {
				return err
			}
			stack := &compose.Stack{Dir: ws.Root}

			if err := stack.Down(ctx, removeVolumes); err != nil {
				return err
			}
			log.FromContext(ctx).Println("Stack stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&removeVolumes, "volumes", false, "Also remove data volumes")
	return cmd
}

func printCheckResults(out *output.Printer, results []compose.CheckResult) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		symbol := ui.StatusSymbol("error")
		if r.Passed {
			symbol = ui.StatusSymbol("ok")
		}
		rows = append(rows, []string{symbol, r.Name, r.URL, r.Message})
	}
	out.Print(ui.RenderTable([]string{"", "CHECK", "URL", "RESULT"}, rows))
}
