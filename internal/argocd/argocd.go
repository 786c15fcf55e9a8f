// Package argocd wraps the argocd CLI for application lookups.
//
// ArgoCD 2.6+ may answer queries for deleted applications with
// PermissionDenied instead of NotFound to prevent enumeration, so a failed
// "app get" does not distinguish "gone" from "forbidden". Callers treat both
// as "no status available".
package argocd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/numberone-ai/machina-tools/internal/cmd"
)

// ErrArgoCDNotFound indicates the argocd CLI is not installed or not in PATH.
var ErrArgoCDNotFound = fmt.Errorf("argocd not found: please install the ArgoCD CLI (https://argo-cd.readthedocs.io)")

// Application is the subset of an ArgoCD application we consume.
type Application struct {
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Spec struct {
		Destination struct {
			Namespace string `json:"namespace"`
		} `json:"destination"`
	} `json:"spec"`
	Status struct {
		Sync struct {
			Status string `json:"status"`
		} `json:"sync"`
		Health struct {
			Status string `json:"status"`
		} `json:"health"`
	} `json:"status"`
}

// Available reports whether the argocd CLI is usable.
func Available() bool {
	return cmd.Available("argocd")
}

// CheckArgoCD verifies that the argocd CLI is available.
func CheckArgoCD() error {
	if !Available() {
		return ErrArgoCDNotFound
	}
	return nil
}

// GetApplication fetches one application. Returns nil without error when the
// app can't be retrieved (missing, deleted, or permission-denied).
func GetApplication(ctx context.Context, name string) (*Application, error) {
	if !Available() {
		return nil, nil
	}

	out, err := cmd.OutputContext(ctx, "", "argocd", "app", "get", name, "-o", "json")
	if err != nil {
		return nil, nil
	}

	var app Application
	if err := json.Unmarshal(out, &app); err != nil {
		return nil, fmt.Errorf("parse argocd output: %w", err)
	}
	return &app, nil
}

// ListApplications lists all applications. Returns nil without error when the
// CLI is unavailable or the call fails.
func ListApplications(ctx context.Context) ([]Application, error) {
	if !Available() {
		return nil, nil
	}

	out, err := cmd.OutputContext(ctx, "", "argocd", "app", "list", "-o", "json")
	if err != nil {
		return nil, nil
	}

	var apps []Application
	if err := json.Unmarshal(out, &apps); err != nil {
		return nil, fmt.Errorf("parse argocd output: %w", err)
	}
	return apps, nil
}

// DeleteApplication deletes an application without prompting.
func DeleteApplication(ctx context.Context, name string) error {
	if err := CheckArgoCD(); err != nil {
		return err
	}
	return cmd.RunContext(ctx, "", "argocd", "app", "delete", name, "--yes")
}
