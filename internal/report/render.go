package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/numberone-ai/machina-tools/internal/ui"
)

// Format selects the output rendering for reports.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, FormatJSON, FormatMarkdown:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown format %q (table, json, markdown)", s)
	}
}

// WriteLanguageReport renders the language scan.
func WriteLanguageReport(w io.Writer, report *LanguageReport, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	sections := []struct {
		title string
		data  map[string]Totals
	}{
		{"By language", report.ByLanguage},
		{"By repository", report.ByRepo},
		{"By component", report.ByComponent},
	}

	for _, section := range sections {
		rows := make([][]string, 0, len(section.data))
		for _, key := range sortedByLines(section.data) {
			t := section.data[key]
			rows = append(rows, []string{key, fmt.Sprint(t.Files), fmt.Sprint(t.Lines)})
		}

		if format == FormatMarkdown {
			fmt.Fprintf(w, "## %s\n\n", section.title)
			writeMarkdownTable(w, []string{"Name", "Files", "Lines"}, rows)
			fmt.Fprintln(w)
		} else {
			fmt.Fprintln(w, ui.Header(section.title))
			fmt.Fprint(w, ui.RenderTable([]string{"NAME", "FILES", "LINES"}, rows))
			fmt.Fprintln(w)
		}
	}

	total := fmt.Sprintf("Total: %d files, %d lines", report.Total.Files, report.Total.Lines)
	if format == FormatMarkdown {
		fmt.Fprintf(w, "**%s**\n", total)
	} else {
		fmt.Fprintln(w, ui.Bold.Render(total))
	}
	return nil
}

// WriteRouteReport renders the route inventory.
func WriteRouteReport(w io.Writer, report *RouteReport, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	rows := make([][]string, 0, len(report.Routes))
	for _, route := range report.Routes {
		rows = append(rows, []string{route.Service, route.Method, route.Path, route.File})
	}

	if format == FormatMarkdown {
		fmt.Fprint(w, "## Routes\n\n")
		writeMarkdownTable(w, []string{"Service", "Method", "Path", "File"}, rows)
		return nil
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No routes found")
		return nil
	}
	fmt.Fprint(w, ui.RenderTable([]string{"SERVICE", "METHOD", "PATH", "FILE"}, rows))
	return nil
}

// writeMarkdownTable emits a pipe table.
func writeMarkdownTable(w io.Writer, headers []string, rows [][]string) {
	fmt.Fprintln(w, "| "+strings.Join(headers, " | ")+" |")

	separators := make([]string, len(headers))
	for i := range separators {
		separators[i] = "---"
	}
	fmt.Fprintln(w, "| "+strings.Join(separators, " | ")+" |")

	for _, row := range rows {
		cells := make([]string, len(headers))
		for i := range headers {
			if i < len(row) {
				cells[i] = strings.ReplaceAll(row[i], "|", `\|`)
			}
		}
		fmt.Fprintln(w, "| "+strings.Join(cells, " | ")+" |")
	}
}
