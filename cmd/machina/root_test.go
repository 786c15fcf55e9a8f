package main

import (
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numberone-ai/machina-tools/internal/log"
)

// runRoot executes the root command with args and returns captured stderr.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	oldStderr := os.Stderr
	os.Stderr = w

	// Clear flag state left over from earlier Execute calls on the shared
	// rootCmd so mutually-exclusive checks only see flags set by this run.
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) { f.Changed = false })

	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	os.Stderr = oldStderr
	require.NoError(t, w.Close())
	captured, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(captured), execErr
}

func TestVerboseFlagEchoesCommands(t *testing.T) {
	scratch := &cobra.Command{
		Use: "logcheck",
		RunE: func(cmd *cobra.Command, args []string) error {
			l := log.FromContext(cmd.Context())
			l.Command("git", "rev-parse", "HEAD")
			l.Println("lookup done")
			return nil
		},
	}
	rootCmd.AddCommand(scratch)
	t.Cleanup(func() {
		rootCmd.RemoveCommand(scratch)
		rootCmd.SetArgs([]string{})
		verbose = false
		quiet = false
	})

	t.Run("verbose echoes external commands", func(t *testing.T) {
		verbose = false
		quiet = false
		stderr, err := runRoot(t, "--verbose", "logcheck")
		require.NoError(t, err)
		assert.Contains(t, stderr, "$ git rev-parse HEAD")
		assert.Contains(t, stderr, "lookup done")
	})

	t.Run("default does not echo", func(t *testing.T) {
		verbose = false
		quiet = false
		stderr, err := runRoot(t, "logcheck")
		require.NoError(t, err)
		assert.NotContains(t, stderr, "$ git")
		assert.Contains(t, stderr, "lookup done")
	})

	t.Run("quiet suppresses log output", func(t *testing.T) {
		verbose = false
		quiet = false
		stderr, err := runRoot(t, "--quiet", "logcheck")
		require.NoError(t, err)
		assert.Empty(t, stderr)
	})
}
