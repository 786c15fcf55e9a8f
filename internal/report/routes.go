package report

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Route is one discovered HTTP route.
type Route struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	File    string `json:"file"`
}

// RouteReport is the full route inventory, ordered by service, path,
// then method.
type RouteReport struct {
	Routes []Route `json:"routes"`
}

var (
	// @router.get("/path") with either quote style.
	fastapiDecorator = regexp.MustCompile(`@router\.(get|post|put|delete|patch|head|options)\s*\(\s*["']([^"']+)["']`)

	// APIRouter(prefix="/api/v1/foo")
	fastapiPrefix = regexp.MustCompile(`APIRouter\s*\([^)]*prefix\s*=\s*["']([^"']+)["']`)

	// export async function GET( in a Next.js route handler.
	nextHandler = regexp.MustCompile(`export\s+(?:async\s+)?function\s+(GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS)\s*\(`)

	// Route groups like /(dashboard) disappear from the URL.
	nextRouteGroup = regexp.MustCompile(`/\([^)]+\)`)
)

// ScanFastAPIRoutes walks a service's Python sources for @router
// decorators. Router prefixes declared in the same file are prepended.
func ScanFastAPIRoutes(ctx context.Context, service, dir string) ([]Route, error) {
	var routes []Route

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == "node_modules" || name == ".venv" || name == "__pycache__" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".py") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(dir, path)

		prefix := ""
		if m := fastapiPrefix.FindSubmatch(content); m != nil {
			prefix = string(m[1])
		}
		for _, m := range fastapiDecorator.FindAllSubmatch(content, -1) {
			routes = append(routes, Route{
				Service: service,
				Method:  strings.ToUpper(string(m[1])),
				Path:    joinRoutePath(prefix, string(m[2])),
				File:    rel,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return routes, nil
}

// ScanNextRoutes walks a Next.js App Router tree. route.ts/route.tsx
// files yield one route per exported HTTP handler; page.tsx files yield
// a PAGE entry.
func ScanNextRoutes(ctx context.Context, service, appDir string) ([]Route, error) {
	var routes []Route

	err := filepath.WalkDir(appDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		isRoute := name == "route.ts" || name == "route.tsx"
		isPage := name == "page.tsx"
		if !isRoute && !isPage {
			return nil
		}

		rel, _ := filepath.Rel(appDir, path)
		urlPath := urlPathFor(rel)

		if isPage {
			routes = append(routes, Route{Service: service, Method: "PAGE", Path: urlPath, File: rel})
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		for _, m := range nextHandler.FindAllSubmatch(content, -1) {
			routes = append(routes, Route{Service: service, Method: string(m[1]), Path: urlPath, File: rel})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return routes, nil
}

// urlPathFor maps an App Router file path to its URL, dropping route
// groups.
func urlPathFor(rel string) string {
	dir := filepath.ToSlash(filepath.Dir(rel))
	urlPath := "/"
	if dir != "." {
		urlPath = "/" + dir
	}
	urlPath = nextRouteGroup.ReplaceAllString(urlPath, "")
	if urlPath == "" {
		urlPath = "/"
	}
	return urlPath
}

func joinRoutePath(prefix, path string) string {
	if prefix == "" {
		return path
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(path, "/")
}

// ServiceSpec names a service to scan.
type ServiceSpec struct {
	Name string
	// Framework is "fastapi" or "next".
	Framework string
	// Dir is the source root: the repo subtree for FastAPI, the app/
	// directory for Next.js.
	Dir string
}

// ScanRoutes runs every service scanner and returns a combined, sorted
// inventory. Missing directories are skipped.
func ScanRoutes(ctx context.Context, services []ServiceSpec) (*RouteReport, error) {
	report := &RouteReport{}

	for _, svc := range services {
		if _, err := os.Stat(svc.Dir); err != nil {
			continue
		}

		var routes []Route
		var err error
		switch svc.Framework {
		case "next":
			routes, err = ScanNextRoutes(ctx, svc.Name, svc.Dir)
		default:
			routes, err = ScanFastAPIRoutes(ctx, svc.Name, svc.Dir)
		}
		if err != nil {
			return nil, err
		}
		report.Routes = append(report.Routes, routes...)
	}

	sort.Slice(report.Routes, func(i, j int) bool {
		a, b := report.Routes[i], report.Routes[j]
		if a.Service != b.Service {
			return a.Service < b.Service
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Method < b.Method
	})
	return report, nil
}
