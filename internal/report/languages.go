// Package report builds workspace inventory reports: which languages the
// repos are written in and which HTTP routes the services expose.
package report

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/numberone-ai/machina-tools/internal/git"
	"github.com/numberone-ai/machina-tools/internal/log"
)

// languageByExtension maps file extensions to display names. Files whose
// extension is missing here are counted under "Other".
var languageByExtension = map[string]string{
	".py":      "Python",
	".pyi":     "Python",
	".ts":      "TypeScript",
	".tsx":     "TypeScript (JSX)",
	".js":      "JavaScript",
	".jsx":     "JavaScript (JSX)",
	".mjs":     "JavaScript",
	".cjs":     "JavaScript",
	".go":      "Go",
	".rs":      "Rust",
	".c":       "C",
	".h":       "C Header",
	".cpp":     "C++",
	".java":    "Java",
	".kt":      "Kotlin",
	".rb":      "Ruby",
	".php":     "PHP",
	".lua":     "Lua",
	".swift":   "Swift",
	".dart":    "Dart",
	".sh":      "Shell",
	".bash":    "Bash",
	".zsh":     "Zsh",
	".nix":     "Nix",
	".sql":     "SQL",
	".cypher":  "Cypher",
	".cql":     "Cypher",
	".graphql": "GraphQL",
	".gql":     "GraphQL",
	".proto":   "Protobuf",
	".prisma":  "Prisma",
	".tf":      "Terraform",
	".tfvars":  "Terraform",
	".json":    "JSON",
	".yaml":    "YAML",
	".yml":     "YAML",
	".toml":    "TOML",
	".xml":     "XML",
	".csv":     "CSV",
	".md":      "Markdown",
	".rst":     "reStructuredText",
	".txt":     "Text",
	".html":    "HTML",
	".htm":     "HTML",
	".css":     "CSS",
	".scss":    "SCSS",
	".svg":     "SVG",
	".svelte":  "Svelte",
	".vue":     "Vue",
	".ini":     "INI",
	".cfg":     "Config",
	".conf":    "Config",
	".env":     "Environment",
	".lock":    "Lock File",
	".ipynb":   "Jupyter Notebook",
}

// languageByFilename handles extensionless well-known files.
var languageByFilename = map[string]string{
	"Dockerfile":    "Dockerfile",
	"Makefile":      "Makefile",
	"makefile":      "Makefile",
	"justfile":      "Just",
	"Justfile":      "Just",
	".gitignore":    "Gitignore",
	".dockerignore": "Dockerignore",
	".env":          "Environment",
	".env.example":  "Environment",
}

// FileStats is one scanned file.
type FileStats struct {
	Repo      string `json:"repo"`
	Path      string `json:"path"`
	Language  string `json:"language"`
	Component string `json:"component"`
	Lines     int    `json:"lines"`
}

// Totals is an aggregate over some grouping of files.
type Totals struct {
	Files int `json:"files"`
	Lines int `json:"lines"`
}

// LanguageReport is the full scan result.
type LanguageReport struct {
	ByLanguage  map[string]Totals `json:"by_language"`
	ByRepo      map[string]Totals `json:"by_repo"`
	ByComponent map[string]Totals `json:"by_component"`
	Total       Totals            `json:"total"`
}

// languageFor classifies a file by name, then extension.
func languageFor(path string) string {
	base := filepath.Base(path)
	if lang, ok := languageByFilename[base]; ok {
		return lang
	}
	if lang, ok := languageByExtension[strings.ToLower(filepath.Ext(base))]; ok {
		return lang
	}
	return "Other"
}

// componentFor buckets a repo-relative path by its leading directories.
// Monorepo layouts with services/ or packages/ trees get one component
// per service or package.
func componentFor(repo, relPath string) string {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	if len(parts) == 1 {
		return repo + "/root"
	}
	first := parts[0]
	if (first == "services" || first == "packages") && len(parts) > 2 {
		return repo + "/" + first + "/" + parts[1]
	}
	return repo + "/" + first
}

func countLines(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines++
	}
	return lines
}

// ScanLanguages walks the git-tracked files of each repo under reposDir
// and aggregates per language, repo, and component. Repos that are not
// checked out are skipped with a log line.
func ScanLanguages(ctx context.Context, reposDir string, repos []string) (*LanguageReport, error) {
	report := &LanguageReport{
		ByLanguage:  map[string]Totals{},
		ByRepo:      map[string]Totals{},
		ByComponent: map[string]Totals{},
	}

	for _, repo := range repos {
		repoPath := filepath.Join(reposDir, repo)
		files, err := git.ListFiles(ctx, repoPath)
		if err != nil {
			log.FromContext(ctx).Printf("Skipping %s: %v\n", repo, err)
			continue
		}

		for _, rel := range files {
			stats := FileStats{
				Repo:      repo,
				Path:      rel,
				Language:  languageFor(rel),
				Component: componentFor(repo, rel),
				Lines:     countLines(filepath.Join(repoPath, rel)),
			}
			report.add(stats)
		}
	}
	return report, nil
}

func (r *LanguageReport) add(f FileStats) {
	bump := func(m map[string]Totals, key string) {
		t := m[key]
		t.Files++
		t.Lines += f.Lines
		m[key] = t
	}
	bump(r.ByLanguage, f.Language)
	bump(r.ByRepo, f.Repo)
	bump(r.ByComponent, f.Component)
	r.Total.Files++
	r.Total.Lines += f.Lines
}

// sortedByLines returns map keys ordered by descending line count, with
// name as the tie-breaker so output is stable.
func sortedByLines(m map[string]Totals) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]].Lines != m[keys[j]].Lines {
			return m[keys[i]].Lines > m[keys[j]].Lines
		}
		return keys[i] < keys[j]
	})
	return keys
}
