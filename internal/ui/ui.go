// Package ui provides shared terminal output components.
//
// This package centralizes color definitions and rendering helpers so
// every command's output looks consistent.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Colors used throughout the CLI output.
var (
	// Primary is the main accent color (cyan/teal)
	Primary lipgloss.TerminalColor = lipgloss.Color("62")

	// Success is used for checkmarks and positive outcomes (green)
	Success lipgloss.TerminalColor = lipgloss.Color("82")

	// Error is used for error messages (red)
	Error lipgloss.TerminalColor = lipgloss.Color("196")

	// Warning is used for degraded or pending states (yellow)
	Warning lipgloss.TerminalColor = lipgloss.Color("220")

	// Muted is used for secondary text (gray)
	Muted lipgloss.TerminalColor = lipgloss.Color("240")
)

// Common styles
var (
	Bold = lipgloss.NewStyle().Bold(true)

	HeaderStyle = lipgloss.NewStyle().Foreground(Primary).Bold(true)

	SuccessStyle = lipgloss.NewStyle().Foreground(Success)

	ErrorStyle = lipgloss.NewStyle().Foreground(Error)

	WarningStyle = lipgloss.NewStyle().Foreground(Warning)

	MutedStyle = lipgloss.NewStyle().Foreground(Muted)
)

// RenderTable creates a formatted table with proper column alignment.
// Headers and rows are rendered using lipgloss/table which automatically
// calculates column widths based on content. No borders are rendered.
func RenderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	var output strings.Builder

	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})

	output.WriteString(t.String())
	output.WriteString("\n")

	return output.String()
}

// Header renders a section heading.
func Header(text string) string {
	return HeaderStyle.Render(text)
}

// KV renders a single "label: value" line with a muted label.
func KV(label, value string) string {
	return MutedStyle.Render(label+":") + " " + value
}

// StatusSymbol maps common health/sync states to a colored symbol.
func StatusSymbol(state string) string {
	switch strings.ToLower(state) {
	case "healthy", "synced", "running", "open", "ok":
		return SuccessStyle.Render("✓")
	case "progressing", "pending", "outofsync":
		return WarningStyle.Render("~")
	case "degraded", "missing", "error", "failed":
		return ErrorStyle.Render("✗")
	default:
		return MutedStyle.Render("·")
	}
}
