// Package project locates a scan target's project root, which is recorded
// as the project_root metadata by internal/persistence and
// internal/baseline, and derives a human-readable label for it.
package project

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"github.com/viant/afs"
	"golang.org/x/mod/modfile"
)

// Info is the detected project root plus a best-effort label for it.
type Info struct {
	Type     string
	RootPath string
	Label    string
}

var moduleNameRegex = regexp.MustCompile(`module\s+([^\s]+)`)

// Detector searches upward from a file or directory for a project root
// marker. Markers are checked in order; the first match at a given
// directory level wins.
type Detector struct {
	fs      afs.Service
	markers []string
}

// New builds a Detector covering the common polyglot project markers.
func New(fs afs.Service) *Detector {
	return &Detector{
		fs: fs,
		markers: []string{
			"go.mod",
			"pyproject.toml",
			"requirements.txt",
			"package.json",
			"Cargo.toml",
			".git",
		},
	}
}

// Detect walks up from path (file or directory) to the nearest marker,
// falling back to path itself (or its parent directory, if path is a file)
// when no marker is found.
func (d *Detector) Detect(ctx context.Context, path string) (Info, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Info{}, err
	}

	startDir := absPath
	if fi, err := os.Stat(absPath); err == nil && !fi.IsDir() {
		startDir = filepath.Dir(absPath)
	}

	rootPath, markerType := d.findRoot(startDir)
	info := Info{Type: "unknown", RootPath: absPath}
	if rootPath != "" {
		info.RootPath = rootPath
		info.Type = markerType
	}
	info.Label = d.label(ctx, info)
	return info, nil
}

func (d *Detector) findRoot(startDir string) (string, string) {
	dir := startDir
	for {
		for _, marker := range d.markers {
			markerPath := filepath.Join(dir, marker)
			if _, err := os.Stat(markerPath); err == nil {
				return dir, markerKind(marker)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ""
		}
		dir = parent
	}
}

func markerKind(marker string) string {
	switch marker {
	case "go.mod":
		return "go"
	case "pyproject.toml", "requirements.txt":
		return "python"
	case "package.json":
		return "javascript"
	case "Cargo.toml":
		return "rust"
	case ".git":
		return "git"
	default:
		return "unknown"
	}
}

func (d *Detector) label(ctx context.Context, info Info) string {
	switch info.Type {
	case "go":
		if name := d.goModuleName(ctx, filepath.Join(info.RootPath, "go.mod")); name != "" {
			return name
		}
	}
	return filepath.Base(info.RootPath)
}

// goModuleName extracts the module path from go.mod, used as a fallback
// project label even for non-Go scan targets that happen to embed one
// (e.g. a polyglot monorepo).
func (d *Detector) goModuleName(ctx context.Context, goModPath string) string {
	content, err := d.fs.DownloadWithURL(ctx, goModPath)
	if err == nil && len(content) > 0 {
		if mod, err := modfile.Parse(goModPath, content, nil); err == nil && mod != nil && mod.Module != nil {
			return mod.Module.Mod.Path
		}
		if matches := moduleNameRegex.FindSubmatch(content); len(matches) == 2 {
			return string(matches[1])
		}
	}
	return ""
}
