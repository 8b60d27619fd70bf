// Package discover finds the source files a scan should analyze, walking a
// project tree with afs.Service.
package discover

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

// defaultSkipDirs are directory names never descended into regardless of
// extension matching.
var defaultSkipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	".git":         true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
}

// Options configures a Walk.
type Options struct {
	// Extensions restricts matches to these file extensions (with the
	// leading dot, e.g. ".py"); empty means ".py" only.
	Extensions []string
	// SkipDirs adds directory names to skip beyond the defaults.
	SkipDirs []string
}

// Walk lists every source file under root matching opts, in the order
// afs.Service.Walk visits them (implementation-defined, not necessarily
// lexical — callers needing a stable order should sort the result).
func Walk(ctx context.Context, fs afs.Service, root string, opts Options) ([]string, error) {
	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = []string{".py"}
	}
	skip := map[string]bool{}
	for d := range defaultSkipDirs {
		skip[d] = true
	}
	for _, d := range opts.SkipDirs {
		skip[d] = true
	}

	var files []string
	visitor := storage.OnVisit(func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		if info.IsDir() {
			return !skip[info.Name()], nil
		}
		if !hasExtension(info.Name(), extensions) {
			return true, nil
		}
		files = append(files, url.Join(url.Join(baseURL, parent), info.Name()))
		return true, nil
	})

	if err := fs.Walk(ctx, root, visitor); err != nil {
		return nil, err
	}
	return files, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := filepath.Ext(name)
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
