package persistence_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/nsss/nsss/internal/persistence"
)

func TestManifestStoreRecordThenIsFresh(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	filePath := root + "/app.py"
	require.NoError(t, os.WriteFile(filePath, []byte("x = 1\n"), 0644))

	store := persistence.NewManifestStore(ctx, afs.New(), root, "1.0")
	_, ok := store.Record(ctx, filePath, persistence.CachePath(root, persistence.GraphCacheFilename), 1)
	require.True(t, ok)

	assert.True(t, store.IsFresh(ctx, filePath))
}

func TestManifestStoreRecordMissingFileFails(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := persistence.NewManifestStore(ctx, afs.New(), root, "1.0")

	_, ok := store.Record(ctx, root+"/missing.py", "cache.jsonl", 1)
	assert.False(t, ok)
}

func TestManifestStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	filePath := root + "/app.py"
	require.NoError(t, os.WriteFile(filePath, []byte("x = 1\n"), 0644))

	first := persistence.NewManifestStore(ctx, afs.New(), root, "1.0")
	_, ok := first.Record(ctx, filePath, "cache.jsonl", 1)
	require.True(t, ok)

	second := persistence.NewManifestStore(ctx, afs.New(), root, "1.0")
	entry, found := second.Entry(filePath)
	require.True(t, found)
	assert.Equal(t, "cache.jsonl", entry.CachePath)
}

func TestFileHashMissingFileReturnsFalse(t *testing.T) {
	_, ok := persistence.FileHash(context.Background(), afs.New(), t.TempDir()+"/missing.py")
	assert.False(t, ok)
}

func TestCachePathIsKeyedByProjectHashNotFilePath(t *testing.T) {
	root := t.TempDir()
	a := persistence.CachePath(root, persistence.GraphCacheFilename)
	b := persistence.CachePath(root, persistence.GraphCacheFilename)
	assert.Equal(t, a, b, "cache path depends only on project root, not the file being cached")
}
