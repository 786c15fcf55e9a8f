// Package envfile reads and writes shell-sourceable .env files.
//
// Values are written as `export NAME='value'` lines grouped by where they
// came from (direct, ConfigMap, Secret). Parsing accepts the common .env
// dialects: optional `export ` prefix, unquoted, single-quoted,
// double-quoted, and ANSI-C `$'...'` quoted values.
package envfile

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/numberone-ai/machina-tools/internal/kube"
)

// EscapeValue quotes a value for an `export NAME=value` line. Values
// without single quotes are wrapped in single quotes; anything else uses
// ANSI-C quoting so embedded quotes and backslashes survive sourcing.
func EscapeValue(value string) string {
	if !strings.Contains(value, "'") {
		return "'" + value + "'"
	}
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "'", `\'`)
	return "$'" + escaped + "'"
}

// WriteOptions controls how Write renders the file.
type WriteOptions struct {
	// Comments adds per-source comment headers and commented-out lines
	// for variables that failed to resolve.
	Comments bool
	// Metadata adds the file-level provenance header.
	Metadata bool
}

// Write renders an import result to path with 0600 permissions. The file
// is grouped by source so a reader can tell which ConfigMap or Secret a
// value came from.
func Write(result *kube.ImportResult, path string, opts WriteOptions) error {
	var lines []string

	if opts.Metadata {
		lines = append(lines, metadataHeader(result, path)...)
	}
	lines = append(lines, exportLines(result, opts.Comments)...)

	content := strings.Join(lines, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	// WriteFile only applies the mode on create; fix up pre-existing files.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	return nil
}

func metadataHeader(result *kube.ImportResult, path string) []string {
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	lines := []string{
		"# Environment variables imported from Kubernetes",
		"# Namespace: " + result.Namespace,
		"# Deployment: " + result.Deployment,
		"# Container: " + result.Container,
		"# Generated: " + time.Now().UTC().Format(time.RFC3339),
		"#",
		"# Usage: source " + base,
		"#",
	}
	if len(result.Warnings) > 0 {
		lines = append(lines, "# Warnings:")
		for _, w := range result.Warnings {
			lines = append(lines, "#   - "+w)
		}
		lines = append(lines, "#")
	}
	if len(result.Errors) > 0 {
		lines = append(lines, "# Errors (some variables may be missing):")
		for _, e := range result.Errors {
			lines = append(lines, "#   - "+e)
		}
		lines = append(lines, "#")
	}
	lines = append(lines, "")
	return lines
}

// sourceKey groups variables for output: "direct", "configmap:<name>",
// "secret:<name>".
func sourceKey(v kube.EnvVar) string {
	if (v.Source == "configmap" || v.Source == "secret") && v.SourceName != "" {
		return v.Source + ":" + v.SourceName
	}
	return v.Source
}

func sourceComment(key string) string {
	switch {
	case key == "direct":
		return "# Direct values"
	case strings.HasPrefix(key, "configmap:"):
		return "# From ConfigMap: " + strings.TrimPrefix(key, "configmap:")
	case strings.HasPrefix(key, "secret:"):
		return "# From Secret: " + strings.TrimPrefix(key, "secret:")
	default:
		return "# Source: " + key
	}
}

func exportLines(result *kube.ImportResult, comments bool) []string {
	groups := map[string][]kube.EnvVar{}
	for _, v := range result.Vars {
		key := sourceKey(v)
		groups[key] = append(groups[key], v)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var lines []string
	for _, key := range keys {
		vars := groups[key]
		sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })

		if comments {
			lines = append(lines, sourceComment(key))
		}
		for _, v := range vars {
			if v.Value != nil {
				lines = append(lines, "export "+v.Name+"="+EscapeValue(*v.Value))
			} else if comments {
				reason := v.Err
				if reason == "" {
					reason = "unknown error"
				}
				lines = append(lines, "# export "+v.Name+"=  # Error: "+reason)
			}
		}
		lines = append(lines, "")
	}
	return lines
}

// Parse reads a .env file into a name -> value map. Comments and
// non-assignment lines are skipped.
func Parse(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	vars := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		name, value, ok := parseLine(line)
		if ok {
			vars[name] = value
		}
	}
	return vars, nil
}

func parseLine(line string) (name, value string, ok bool) {
	s := strings.TrimSpace(line)
	if s == "" || strings.HasPrefix(s, "#") {
		return "", "", false
	}
	s = strings.TrimPrefix(s, "export ")

	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(s[:eq])
	if !validName(name) {
		return "", "", false
	}
	return name, unquote(s[eq+1:]), true
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func unquote(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	switch {
	case len(raw) >= 3 && strings.HasPrefix(raw, "$'") && strings.HasSuffix(raw, "'"):
		inner := raw[2 : len(raw)-1]
		inner = strings.ReplaceAll(inner, `\'`, "'")
		return strings.ReplaceAll(inner, `\\`, `\`)
	case len(raw) >= 2 && strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'"):
		return raw[1 : len(raw)-1]
	case len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`):
		inner := raw[1 : len(raw)-1]
		inner = strings.ReplaceAll(inner, `\"`, `"`)
		return strings.ReplaceAll(inner, `\\`, `\`)
	default:
		return raw
	}
}
