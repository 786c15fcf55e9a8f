package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/numberone-ai/machina-tools/internal/kube"
	"github.com/numberone-ai/machina-tools/internal/log"
)

// restartDelay is how long to wait before restarting a dropped forward.
const restartDelay = 2 * time.Second

// forwardSpec is one "service:local:remote" or "service:port" argument.
type forwardSpec struct {
	Service string
	Mapping string
}

func parseForwardSpec(arg string) (forwardSpec, error) {
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return forwardSpec{}, fmt.Errorf("invalid forward %q, expected service:port or service:local:remote", arg)
	}
	return forwardSpec{Service: parts[0], Mapping: parts[1]}, nil
}

func newForwardCmd() *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:     "forward <service:port> [service:port...]",
		Short:   "Port-forward services, restarting dropped connections",
		GroupID: GroupStack,
		Long: `Run kubectl port-forward for each service concurrently. A forward
that drops (pod restart, network blip) is restarted after a short delay
until the command is interrupted.

Examples:
  machina forward -n tusdi-preview-92 backend:8000
  machina forward -n tusdi-preview-92 backend:8000 neo4j:7474:7474 neo4j:7687:7687`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)

			if err := kube.CheckKubectl(); err != nil {
				return err
			}

			specs := make([]forwardSpec, 0, len(args))
			for _, arg := range args {
				spec, err := parseForwardSpec(arg)
				if err != nil {
					return err
				}
				specs = append(specs, spec)
			}

			g, ctx := errgroup.WithContext(ctx)
			for _, spec := range specs {
				spec := spec
				g.Go(func() error {
					for {
						l.Printf("Forwarding %s (%s) in %s\n", spec.Service, spec.Mapping, namespace)
						err := kube.PortForward(ctx, namespace, spec.Service, spec.Mapping)
						if ctx.Err() != nil {
							return nil
						}
						l.Printf("Forward for %s dropped: %v, restarting in %s\n", spec.Service, err, restartDelay)

						select {
						case <-ctx.Done():
							return nil
						case <-time.After(restartDelay):
						}
					}
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Kubernetes namespace")
	cmd.MarkFlagRequired("namespace")
	return cmd
}
