package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/numberone-ai/machina-tools/internal/preview"
	"github.com/numberone-ai/machina-tools/internal/ui"
)

// renderInfo writes the preview environment state in the requested format.
func renderInfo(w io.Writer, info *preview.Info, format string) error {
	switch format {
	case "terminal":
		renderInfoTerminal(w, info)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "markdown":
		renderInfoMarkdown(w, info)
		return nil
	default:
		return fmt.Errorf("unknown format %q (terminal, json, markdown)", format)
	}
}

func renderInfoTerminal(w io.Writer, info *preview.Info) {
	fmt.Fprintln(w, ui.Header("Preview environment: "+info.PreviewID))
	fmt.Fprintln(w, ui.KV("Resolved from", fmt.Sprintf("%s %q (%s)", info.Kind, info.Identifier, info.Via)))
	fmt.Fprintln(w)

	for _, repo := range []preview.RepoInfo{info.Backend, info.Frontend} {
		fmt.Fprintln(w, ui.Bold.Render(repo.Name))
		if repo.Tag.Exists {
			fmt.Fprintf(w, "  %s tag %s (%s, %s)\n", ui.StatusSymbol("ok"), repo.Tag.Name, repo.Tag.Commit, repo.Tag.Date)
		} else {
			fmt.Fprintf(w, "  %s tag %s missing\n", ui.StatusSymbol("missing"), repo.Tag.Name)
		}
		if repo.PR != nil {
			fmt.Fprintf(w, "  %s PR #%d %s (%s)\n", ui.StatusSymbol(repo.PR.State), repo.PR.Number, repo.PR.Title, repo.PR.State)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, ui.Bold.Render("Infrastructure"))
	if info.Infra.Branch.Exists {
		fmt.Fprintf(w, "  %s branch %s (%s)\n", ui.StatusSymbol("ok"), info.Infra.Branch.Name, info.Infra.Branch.Location)
	} else {
		fmt.Fprintf(w, "  %s branch %s missing\n", ui.StatusSymbol("missing"), info.Infra.Branch.Name)
	}
	if info.Infra.PR != nil {
		fmt.Fprintf(w, "  %s PR #%d %s (%s)\n", ui.StatusSymbol(info.Infra.PR.State), info.Infra.PR.Number, info.Infra.PR.Title, info.Infra.PR.State)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, ui.Bold.Render("ArgoCD"))
	fmt.Fprintf(w, "  app %s\n", info.ArgoCD.AppName)
	fmt.Fprintf(w, "  %s\n", info.ArgoCD.URL)
	if info.ArgoCD.CLIAvailable {
		fmt.Fprintf(w, "  %s sync %s, health %s\n",
			ui.StatusSymbol(info.ArgoCD.HealthStatus), info.ArgoCD.SyncStatus, info.ArgoCD.HealthStatus)
	} else {
		fmt.Fprintln(w, "  "+ui.MutedStyle.Render("argocd CLI not available, status unknown"))
	}
	fmt.Fprintln(w)

	if info.Summary.Clean {
		fmt.Fprintln(w, ui.SuccessStyle.Render("Environment is clean: no tags or infra branch remain."))
	} else {
		var remaining []string
		if info.Summary.HasAppTag {
			remaining = append(remaining, "backend tag")
		}
		if info.Summary.HasWebUITag {
			remaining = append(remaining, "frontend tag")
		}
		if info.Summary.HasInfraBranch {
			remaining = append(remaining, "infra branch")
		}
		fmt.Fprintln(w, ui.WarningStyle.Render("Remaining: "+strings.Join(remaining, ", ")))
	}
}

func renderInfoMarkdown(w io.Writer, info *preview.Info) {
	fmt.Fprintf(w, "# Preview environment `%s`\n\n", info.PreviewID)
	fmt.Fprintf(w, "Resolved from %s `%s` via %s.\n\n", info.Kind, info.Identifier, info.Via)

	fmt.Fprintln(w, "| Artifact | Status |")
	fmt.Fprintln(w, "| --- | --- |")
	for _, repo := range []preview.RepoInfo{info.Backend, info.Frontend} {
		status := "missing"
		if repo.Tag.Exists {
			status = fmt.Sprintf("`%s` at %s (%s)", repo.Tag.Name, repo.Tag.Commit, repo.Tag.Date)
		}
		fmt.Fprintf(w, "| %s tag | %s |\n", repo.Name, status)
		if repo.PR != nil {
			fmt.Fprintf(w, "| %s PR | [#%d](%s) %s |\n", repo.Name, repo.PR.Number, repo.PR.URL, repo.PR.State)
		}
	}

	branchStatus := "missing"
	if info.Infra.Branch.Exists {
		branchStatus = fmt.Sprintf("`%s` (%s)", info.Infra.Branch.Name, info.Infra.Branch.Location)
	}
	fmt.Fprintf(w, "| infra branch | %s |\n", branchStatus)
	if info.Infra.PR != nil {
		fmt.Fprintf(w, "| infra PR | [#%d](%s) %s |\n", info.Infra.PR.Number, info.Infra.PR.URL, info.Infra.PR.State)
	}

	argoStatus := "status unknown (argocd CLI not available)"
	if info.ArgoCD.CLIAvailable {
		argoStatus = fmt.Sprintf("sync %s, health %s", info.ArgoCD.SyncStatus, info.ArgoCD.HealthStatus)
	}
	fmt.Fprintf(w, "| ArgoCD [`%s`](%s) | %s |\n\n", info.ArgoCD.AppName, info.ArgoCD.URL, argoStatus)

	if info.Summary.Clean {
		fmt.Fprintln(w, "Environment is clean.")
	}
}
