package traces

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/numberone-ai/machina-tools/internal/ui"
)

// Summary aggregates a set of durations.
type Summary struct {
	Count  int           `json:"count"`
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	Median time.Duration `json:"median"`
	Total  time.Duration `json:"total"`
}

func summarize(values []time.Duration) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := append([]time.Duration(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, v := range sorted {
		total += v
	}

	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return Summary{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   total / time.Duration(len(sorted)),
		Median: median,
		Total:  total,
	}
}

// AgentStats is one agent's call timing.
type AgentStats struct {
	Agent string  `json:"agent"`
	Calls Summary `json:"calls"`
}

// Report is the full timing analysis.
type Report struct {
	Invocations []InvocationStats `json:"invocations"`
	Duration    Summary           `json:"duration"`
	LLMTime     Summary           `json:"llm_time"`
	ToolTime    Summary           `json:"tool_time"`
	Agents      []AgentStats      `json:"agents"`
}

// InvocationStats is the per-invocation view in the report.
type InvocationStats struct {
	ID            string        `json:"id"`
	PrimaryAgent  string        `json:"primary_agent"`
	Calls         int           `json:"calls"`
	Duration      time.Duration `json:"duration"`
	LLMTime       time.Duration `json:"llm_time"`
	ToolTime      time.Duration `json:"tool_time"`
	LLMPercentage float64       `json:"llm_percentage"`
	Query         string        `json:"query,omitempty"`
}

// Analyze builds the timing report for a set of invocations.
func Analyze(invocations []*Invocation) *Report {
	report := &Report{}

	var durations, llmTimes, toolTimes []time.Duration
	agentCalls := map[string][]time.Duration{}

	for _, inv := range invocations {
		stats := InvocationStats{
			ID:            inv.ID,
			PrimaryAgent:  inv.PrimaryAgent(),
			Calls:         len(inv.Calls),
			Duration:      inv.TotalDuration(),
			LLMTime:       inv.LLMTime(),
			ToolTime:      inv.ToolTime(),
			LLMPercentage: inv.LLMPercentage(),
			Query:         inv.UserQuery(),
		}
		report.Invocations = append(report.Invocations, stats)

		durations = append(durations, stats.Duration)
		llmTimes = append(llmTimes, stats.LLMTime)
		toolTimes = append(toolTimes, stats.ToolTime)
		for _, c := range inv.Calls {
			agentCalls[c.AgentName] = append(agentCalls[c.AgentName], c.Duration())
		}
	}

	report.Duration = summarize(durations)
	report.LLMTime = summarize(llmTimes)
	report.ToolTime = summarize(toolTimes)

	agents := make([]string, 0, len(agentCalls))
	for agent := range agentCalls {
		agents = append(agents, agent)
	}
	sort.Strings(agents)
	for _, agent := range agents {
		report.Agents = append(report.Agents, AgentStats{Agent: agent, Calls: summarize(agentCalls[agent])})
	}
	return report
}

// Format selects the output rendering.
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

func fmtDur(d time.Duration) string {
	return d.Round(10 * time.Millisecond).String()
}

// Write renders the report.
func Write(w io.Writer, report *Report, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	rows := make([][]string, 0, len(report.Invocations))
	for _, inv := range report.Invocations {
		rows = append(rows, []string{
			inv.ID,
			inv.PrimaryAgent,
			fmt.Sprint(inv.Calls),
			fmtDur(inv.Duration),
			fmtDur(inv.LLMTime),
			fmtDur(inv.ToolTime),
			fmt.Sprintf("%.1f%%", inv.LLMPercentage),
		})
	}
	headers := []string{"INVOCATION", "AGENT", "CALLS", "DURATION", "LLM", "TOOLS", "LLM %"}

	agentRows := make([][]string, 0, len(report.Agents))
	for _, a := range report.Agents {
		agentRows = append(agentRows, []string{
			a.Agent,
			fmt.Sprint(a.Calls.Count),
			fmtDur(a.Calls.Mean),
			fmtDur(a.Calls.Median),
			fmtDur(a.Calls.Max),
			fmtDur(a.Calls.Total),
		})
	}
	agentHeaders := []string{"AGENT", "CALLS", "MEAN", "MEDIAN", "MAX", "TOTAL"}

	if format == FormatMarkdown {
		fmt.Fprint(w, "## Invocations\n\n")
		writeMarkdownTable(w, headers, rows)
		fmt.Fprint(w, "\n## Agents\n\n")
		writeMarkdownTable(w, agentHeaders, agentRows)
		fmt.Fprintf(w, "\nTotal wall time %s, LLM time %s, tool time %s across %d invocations.\n",
			fmtDur(report.Duration.Total), fmtDur(report.LLMTime.Total),
			fmtDur(report.ToolTime.Total), report.Duration.Count)
		return nil
	}

	fmt.Fprintln(w, ui.Header("Invocations"))
	fmt.Fprint(w, ui.RenderTable(headers, rows))
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.Header("Agents"))
	fmt.Fprint(w, ui.RenderTable(agentHeaders, agentRows))
	fmt.Fprintf(w, "\nTotal wall time %s, LLM time %s, tool time %s across %d invocations.\n",
		fmtDur(report.Duration.Total), fmtDur(report.LLMTime.Total),
		fmtDur(report.ToolTime.Total), report.Duration.Count)
	return nil
}

// writeMarkdownTable emits a pipe table.
func writeMarkdownTable(w io.Writer, headers []string, rows [][]string) {
	fmt.Fprint(w, "| ")
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(w, " | ")
		}
		fmt.Fprint(w, h)
	}
	fmt.Fprintln(w, " |")

	fmt.Fprint(w, "|")
	for range headers {
		fmt.Fprint(w, " --- |")
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		fmt.Fprint(w, "| ")
		for i := range headers {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			if i < len(row) {
				fmt.Fprint(w, row[i])
			}
		}
		fmt.Fprintln(w, " |")
	}
}
