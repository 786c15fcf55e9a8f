package neo4j

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/numberone-ai/machina-tools/internal/ui"
)

// Format selects how query results are rendered.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatCount Format = "count"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, FormatJSON, FormatCSV, FormatCount:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown format %q (table, json, csv, count)", s)
	}
}

// WriteResult renders a query result to w in the requested format.
func WriteResult(w io.Writer, result *Result, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatCSV:
		return writeCSV(w, result)
	case FormatCount:
		return writeCount(w, result)
	default:
		return writeTable(w, result)
	}
}

// writeJSON emits an array of objects keyed by column name.
func writeJSON(w io.Writer, result *Result) error {
	rows := make([]map[string]any, 0, len(result.Data))
	for _, item := range result.Data {
		obj := map[string]any{}
		for i, col := range result.Columns {
			if i < len(item.Row) {
				obj[col] = item.Row[i]
			}
		}
		rows = append(rows, obj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func writeCSV(w io.Writer, result *Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Columns); err != nil {
		return err
	}
	for _, item := range result.Data {
		record := make([]string, len(result.Columns))
		for i := range result.Columns {
			if i < len(item.Row) {
				record[i] = cellString(item.Row[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeCount prints the single cell of a count-style query, or the row
// count when the result has a different shape.
func writeCount(w io.Writer, result *Result) error {
	if len(result.Data) == 1 && len(result.Data[0].Row) == 1 {
		_, err := fmt.Fprintln(w, cellString(result.Data[0].Row[0]))
		return err
	}
	_, err := fmt.Fprintln(w, len(result.Data))
	return err
}

func writeTable(w io.Writer, result *Result) error {
	if len(result.Data) == 0 {
		_, err := fmt.Fprintln(w, "No results")
		return err
	}
	rows := make([][]string, 0, len(result.Data))
	for _, item := range result.Data {
		record := make([]string, len(result.Columns))
		for i := range result.Columns {
			if i < len(item.Row) {
				record[i] = cellString(item.Row[i])
			}
		}
		rows = append(rows, record)
	}
	_, err := io.WriteString(w, ui.RenderTable(result.Columns, rows))
	return err
}

// cellString renders a result cell for tabular output. Strings pass
// through unchanged; structured values fall back to compact JSON.
func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		s := fmt.Sprintf("%v", val)
		return s
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return strings.TrimSpace(string(data))
	}
}
