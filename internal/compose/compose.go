// Package compose wraps the docker compose CLI for the local dev stack.
package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/numberone-ai/machina-tools/internal/cmd"
)

// ErrDockerNotFound is returned when the docker CLI is not installed.
var ErrDockerNotFound = errors.New("docker not found in PATH, install it from https://docs.docker.com/get-docker/")

// CheckDocker verifies docker is available.
func CheckDocker() error {
	if _, err := exec.LookPath("docker"); err != nil {
		return ErrDockerNotFound
	}
	return nil
}

// Service is one docker compose service's state as reported by
// `docker compose ps --format json`.
type Service struct {
	Name   string `json:"Name"`
	Svc    string `json:"Service"`
	State  string `json:"State"`
	Health string `json:"Health"`
	Status string `json:"Status"`
}

// Healthy reports whether the service is running and, when it defines a
// health check, that the check passes.
func (s Service) Healthy() bool {
	if s.State != "running" {
		return false
	}
	return s.Health == "" || s.Health == "healthy"
}

// Starting reports whether the service's health check has not settled yet.
func (s Service) Starting() bool {
	return s.State == "running" && s.Health == "starting"
}

// Stack runs docker compose commands in a workspace.
type Stack struct {
	// Dir is the directory holding the compose file.
	Dir string
}

// Ps lists the stack's services. Compose emits one JSON object per line.
func (s *Stack) Ps(ctx context.Context) ([]Service, error) {
	out, err := cmd.OutputContext(ctx, s.Dir, "docker", "compose", "ps", "-a", "--format", "json")
	if err != nil {
		return nil, fmt.Errorf("docker compose ps: %w", err)
	}
	return parseServices(out)
}

func parseServices(out []byte) ([]Service, error) {
	var services []Service
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var svc Service
		if err := json.Unmarshal([]byte(line), &svc); err != nil {
			return nil, fmt.Errorf("parsing compose ps output: %w", err)
		}
		services = append(services, svc)
	}
	return services, nil
}

// Up starts the stack in the background.
func (s *Stack) Up(ctx context.Context) error {
	if err := cmd.RunContext(ctx, s.Dir, "docker", "compose", "up", "-d"); err != nil {
		return fmt.Errorf("docker compose up: %w", err)
	}
	return nil
}

// Down stops the stack. With removeVolumes the data volumes go too.
func (s *Stack) Down(ctx context.Context, removeVolumes bool) error {
	args := []string{"compose", "down"}
	if removeVolumes {
		args = append(args, "-v")
	}
	if err := cmd.RunContext(ctx, s.Dir, "docker", args...); err != nil {
		return fmt.Errorf("docker compose down: %w", err)
	}
	return nil
}

// Logs returns the last tail lines of a service's logs.
func (s *Stack) Logs(ctx context.Context, service string, tail int) (string, error) {
	out, err := cmd.OutputContext(ctx, s.Dir, "docker",
		"compose", "logs", "--no-color", "--tail", fmt.Sprint(tail), service)
	if err != nil {
		return "", fmt.Errorf("docker compose logs %s: %w", service, err)
	}
	return string(out), nil
}
