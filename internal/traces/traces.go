// Package traces analyzes LLM call trace logs.
//
// Traces are JSONL files: one record per request or response event,
// keyed by invocation, agent, and call number. The analysis pairs
// requests with responses and reports where each invocation spent its
// time, split between model calls and everything else (tool use,
// orchestration).
package traces

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/numberone-ai/machina-tools/internal/log"
)

// Record is one JSONL trace line.
type Record struct {
	// Event is "request" or "response".
	Event        string  `json:"event"`
	InvocationID string  `json:"invocation_id"`
	SessionID    string  `json:"session_id"`
	AgentName    string  `json:"agent_name"`
	CallNum      int     `json:"call_num"`
	Model        string  `json:"model"`
	Timestamp    float64 `json:"timestamp"`
	Query        string  `json:"query,omitempty"`
}

// Call is one paired LLM request/response.
type Call struct {
	AgentName    string
	CallNum      int
	Model        string
	RequestTime  float64
	ResponseTime float64
	Query        string
}

// Duration is the call's wall time.
func (c Call) Duration() time.Duration {
	return secondsToDuration(c.ResponseTime - c.RequestTime)
}

// Invocation is one complete agent run, possibly spanning several calls.
type Invocation struct {
	ID        string
	SessionID string
	Timestamp float64
	Calls     []Call
}

func secondsToDuration(s float64) time.Duration {
	if s < 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

// StartTime is the earlier of the invocation timestamp and the first
// request.
func (inv *Invocation) StartTime() float64 {
	start := inv.Timestamp
	for _, c := range inv.Calls {
		if start == 0 || c.RequestTime < start {
			start = c.RequestTime
		}
	}
	return start
}

// EndTime is the last response.
func (inv *Invocation) EndTime() float64 {
	end := inv.Timestamp
	for _, c := range inv.Calls {
		if c.ResponseTime > end {
			end = c.ResponseTime
		}
	}
	return end
}

// TotalDuration is the invocation's wall time.
func (inv *Invocation) TotalDuration() time.Duration {
	return secondsToDuration(inv.EndTime() - inv.StartTime())
}

// LLMTime is the summed duration of all model calls.
func (inv *Invocation) LLMTime() time.Duration {
	var total time.Duration
	for _, c := range inv.Calls {
		total += c.Duration()
	}
	return total
}

// ToolTime is everything that was not a model call.
func (inv *Invocation) ToolTime() time.Duration {
	tool := inv.TotalDuration() - inv.LLMTime()
	if tool < 0 {
		return 0
	}
	return tool
}

// LLMPercentage is the share of wall time spent inside model calls.
func (inv *Invocation) LLMPercentage() float64 {
	total := inv.TotalDuration()
	if total == 0 {
		return 0
	}
	return float64(inv.LLMTime()) / float64(total) * 100
}

// PrimaryAgent is the agent with the most calls, ties broken by name.
func (inv *Invocation) PrimaryAgent() string {
	if len(inv.Calls) == 0 {
		return "unknown"
	}
	counts := map[string]int{}
	for _, c := range inv.Calls {
		counts[c.AgentName]++
	}
	best := ""
	for agent, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && agent < best) {
			best = agent
		}
	}
	return best
}

// UserQuery is the first call's recorded query, if any.
func (inv *Invocation) UserQuery() string {
	calls := append([]Call(nil), inv.Calls...)
	sort.Slice(calls, func(i, j int) bool { return calls[i].CallNum < calls[j].CallNum })
	for _, c := range calls {
		if c.Query != "" {
			return c.Query
		}
	}
	return ""
}

// ParseRecords reads JSONL records from r. Malformed lines are counted
// and skipped, not fatal.
func ParseRecords(r io.Reader) (records []Record, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, scanner.Err()
}

// Collect pairs records into invocations. Requests open a call,
// responses close it; responses without a matching request still count
// as zero-duration calls so nothing disappears from the report.
func Collect(records []Record) []*Invocation {
	byID := map[string]*Invocation{}
	var order []string

	callFor := func(inv *Invocation, rec Record) *Call {
		for i := range inv.Calls {
			if inv.Calls[i].AgentName == rec.AgentName && inv.Calls[i].CallNum == rec.CallNum {
				return &inv.Calls[i]
			}
		}
		return nil
	}

	for _, rec := range records {
		if rec.InvocationID == "" {
			continue
		}
		inv, ok := byID[rec.InvocationID]
		if !ok {
			inv = &Invocation{ID: rec.InvocationID, SessionID: rec.SessionID, Timestamp: rec.Timestamp}
			byID[rec.InvocationID] = inv
			order = append(order, rec.InvocationID)
		}

		call := callFor(inv, rec)
		switch rec.Event {
		case "request":
			if call == nil {
				inv.Calls = append(inv.Calls, Call{
					AgentName:    rec.AgentName,
					CallNum:      rec.CallNum,
					Model:        rec.Model,
					RequestTime:  rec.Timestamp,
					ResponseTime: rec.Timestamp,
					Query:        rec.Query,
				})
			} else {
				call.RequestTime = rec.Timestamp
				if call.Query == "" {
					call.Query = rec.Query
				}
			}
		case "response":
			if call == nil {
				inv.Calls = append(inv.Calls, Call{
					AgentName:    rec.AgentName,
					CallNum:      rec.CallNum,
					Model:        rec.Model,
					RequestTime:  rec.Timestamp,
					ResponseTime: rec.Timestamp,
				})
			} else {
				call.ResponseTime = rec.Timestamp
			}
		}
	}

	invocations := make([]*Invocation, 0, len(order))
	for _, id := range order {
		invocations = append(invocations, byID[id])
	}
	sort.Slice(invocations, func(i, j int) bool {
		return invocations[i].StartTime() < invocations[j].StartTime()
	})
	return invocations
}

// LoadDir reads every .jsonl file under dir and collects the combined
// invocations.
func LoadDir(ctx context.Context, dir string) ([]*Invocation, error) {
	var records []Record

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".jsonl") {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		recs, skipped, err := ParseRecords(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if skipped > 0 {
			log.FromContext(ctx).Printf("Warning: skipped %d malformed lines in %s\n", skipped, path)
		}
		records = append(records, recs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no trace records found under %s", dir)
	}
	return Collect(records), nil
}
