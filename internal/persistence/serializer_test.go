package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/nsss/nsss/internal/ir"
	"github.com/nsss/nsss/internal/persistence"
)

func TestSerializerSaveThenLoadPreservesMeta(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	path := t.TempDir() + "/graph_v1.jsonl"
	s := persistence.NewSerializer("1.0")

	g := buildGraph()
	saved, err := s.Save(ctx, fs, g, path, persistence.MetaOptions{
		ProjectRoot: "/proj",
		CommitHash:  "deadbeef",
		FilePath:    "app.py",
		Timestamp:   1234,
	})
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", saved.CommitHash)

	loaded, meta, err := s.Load(ctx, fs, path)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", meta.CommitHash)
	assert.Equal(t, "app.py", meta.FilePath)
	assert.Len(t, loaded.Nodes, len(g.Nodes))
	assert.Len(t, loaded.Edges, len(g.Edges))
	assert.Len(t, loaded.Symbols, len(g.Symbols))
}

func TestSerializerSaveDefaultsMissingCommitHashToUnknown(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	path := t.TempDir() + "/graph_v1.jsonl"
	s := persistence.NewSerializer("1.0")

	saved, err := s.Save(ctx, fs, ir.NewGraph("app.py"), path, persistence.MetaOptions{})
	require.NoError(t, err)
	assert.Equal(t, "unknown", saved.CommitHash)
}

func TestSerializerLoadRejectsVersionMismatch(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	path := t.TempDir() + "/graph_v1.jsonl"

	_, err := persistence.NewSerializer("1.0").Save(ctx, fs, ir.NewGraph("app.py"), path, persistence.MetaOptions{})
	require.NoError(t, err)

	_, _, err = persistence.NewSerializer("2.0").Load(ctx, fs, path)
	assert.Error(t, err)
}

func TestSerializerLoadMissingFileErrors(t *testing.T) {
	_, _, err := persistence.NewSerializer("1.0").Load(context.Background(), afs.New(), t.TempDir()+"/missing.jsonl")
	assert.Error(t, err)
}
