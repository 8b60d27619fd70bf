package persistence_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/nsss/nsss/internal/ir"
	"github.com/nsss/nsss/internal/persistence"
)

func buildGraph() *ir.Graph {
	g := ir.NewGraph("app.py")
	mod := g.AddNode(ir.Node{ID: "mod", Kind: ir.KindModule})
	call := g.AddNode(ir.Node{ID: "call", Kind: ir.KindCall, Attrs: map[string]any{"name": "os.system"}})
	g.AddEdge(ir.Edge{FromID: mod, ToID: call, Type: ir.EdgeFlow})
	g.AddSymbolDef("cmd", ir.SymbolVar, ir.ModuleScopeID, call)
	return g
}

func TestSaveThenLoadIRGraphRoundTrips(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	svc := persistence.NewService(afs.New(), "1.0")

	g := buildGraph()
	cachePath, err := svc.SaveIRGraph(ctx, g, root+"/app.py", root)
	require.NoError(t, err)
	assert.NotEmpty(t, cachePath)

	reloaded, meta, err := svc.LoadIRGraph(ctx, root)
	require.NoError(t, err)
	assert.Len(t, reloaded.Nodes, len(g.Nodes))
	assert.Len(t, reloaded.Edges, len(g.Edges))
	assert.Len(t, reloaded.Symbols, len(g.Symbols))
	assert.Equal(t, "1.0", meta.Version)
}

func TestSaveRecordsManifestFreshness(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	svc := persistence.NewService(afs.New(), "1.0")

	filePath := root + "/app.py"
	require.NoError(t, os.WriteFile(filePath, []byte("os.system(cmd)\n"), 0644))

	_, err := svc.SaveIRGraph(ctx, buildGraph(), filePath, root)
	require.NoError(t, err)

	assert.True(t, svc.IsFresh(ctx, filePath, root))

	require.NoError(t, os.WriteFile(filePath, []byte("os.system(other)\n"), 0644))
	assert.False(t, svc.IsFresh(ctx, filePath, root), "changed file content should invalidate freshness")
}

func TestLoadMissingCacheReturnsError(t *testing.T) {
	svc := persistence.NewService(afs.New(), "1.0")
	_, _, err := svc.LoadIRGraph(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestProjectHashIsStablePerPath(t *testing.T) {
	a := persistence.ProjectHash("/some/project")
	b := persistence.ProjectHash("/some/project")
	c := persistence.ProjectHash("/some/other")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestReadGitCommitHashMissingRepoReturnsEmpty(t *testing.T) {
	hash := persistence.ReadGitCommitHash(context.Background(), afs.New(), t.TempDir())
	assert.Empty(t, hash)
}
