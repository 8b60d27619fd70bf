package project_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/nsss/nsss/internal/project"
)

func TestDetectFindsNearestGoModAndUsesModulePath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/widget\n\ngo 1.21\n"), 0644))
	sub := filepath.Join(root, "pkg", "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))
	target := filepath.Join(sub, "file.go")
	require.NoError(t, os.WriteFile(target, []byte("package sub\n"), 0644))

	info, err := project.New(afs.New()).Detect(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, "go", info.Type)
	assert.Equal(t, root, info.RootPath)
	assert.Equal(t, "example.com/widget", info.Label)
}

func TestDetectPrefersNearestMarkerOverFartherOnes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git"), []byte(""), 0644))
	inner := filepath.Join(root, "service")
	require.NoError(t, os.MkdirAll(inner, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(inner, "requirements.txt"), []byte("flask\n"), 0644))

	info, err := project.New(afs.New()).Detect(context.Background(), inner)
	require.NoError(t, err)
	assert.Equal(t, "python", info.Type)
	assert.Equal(t, inner, info.RootPath)
	assert.Equal(t, filepath.Base(inner), info.Label)
}

func TestDetectFallsBackToPathWhenNoMarkerFound(t *testing.T) {
	root := t.TempDir()
	empty := filepath.Join(root, "isolated", "leaf")
	require.NoError(t, os.MkdirAll(empty, 0755))

	info, err := project.New(afs.New()).Detect(context.Background(), empty)
	require.NoError(t, err)
	assert.Equal(t, "unknown", info.Type)
	assert.Equal(t, empty, info.RootPath)
}
