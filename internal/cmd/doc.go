// Package cmd provides helpers for executing external commands with proper
// error handling.
//
// This package wraps [os/exec.Cmd] to capture stderr and include it in error
// messages, making command failures more informative for users.
//
// # Design Notes
//
// machina shells out to the git/gh/kubectl/argocd/docker CLIs rather than
// using Go client libraries. This approach is simpler, more reliable, and
// ensures compatibility with user configurations (SSH keys, kubeconfig
// contexts, credential helpers, etc.).
package cmd
