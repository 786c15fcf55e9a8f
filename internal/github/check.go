package github

import (
	"fmt"

	"github.com/numberone-ai/machina-tools/internal/cmd"
)

// ErrGHNotFound indicates gh CLI is not installed or not in PATH.
var ErrGHNotFound = fmt.Errorf("gh not found: please install GitHub CLI (https://cli.github.com)")

// CheckGH verifies that the gh CLI is available.
func CheckGH() error {
	if !cmd.Available("gh") {
		return ErrGHNotFound
	}
	return nil
}
