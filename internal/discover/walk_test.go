package discover_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/nsss/nsss/internal/discover"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func baseNames(t *testing.T, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	sort.Strings(out)
	return out
}

func TestWalkFindsPyFilesAndSkipsVendorDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app.py"), "x = 1\n")
	writeFile(t, filepath.Join(root, "pkg", "util.py"), "y = 2\n")
	writeFile(t, filepath.Join(root, "vendor", "dep.py"), "z = 3\n")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "thing.py"), "w = 4\n")
	writeFile(t, filepath.Join(root, "README.md"), "# hi\n")

	files, err := discover.Walk(context.Background(), afs.New(), root, discover.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py", "util.py"}, baseNames(t, files))
}

func TestWalkHonorsCustomExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeFile(t, filepath.Join(root, "app.py"), "x = 1\n")

	files, err := discover.Walk(context.Background(), afs.New(), root, discover.Options{Extensions: []string{".go"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, baseNames(t, files))
}

func TestWalkHonorsAdditionalSkipDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.py"), "x = 1\n")
	writeFile(t, filepath.Join(root, "generated", "skip.py"), "y = 2\n")

	files, err := discover.Walk(context.Background(), afs.New(), root, discover.Options{SkipDirs: []string{"generated"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.py"}, baseNames(t, files))
}
