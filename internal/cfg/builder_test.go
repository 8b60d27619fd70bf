package cfg_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsss/nsss/internal/cfg"
	"github.com/nsss/nsss/internal/ir"
)

func build(t *testing.T, code string) (*ir.Graph, map[string]*cfg.Graph) {
	t.Helper()
	g, err := ir.NewBuilder().Build(context.Background(), "f.py", code)
	require.NoError(t, err)
	return g, cfg.Build(g)
}

func TestBuildIfElseProducesTrueFalseEdges(t *testing.T) {
	_, cfgs := build(t, `def f(x):
    if x:
        y = 1
    else:
        y = 2
    return y
`)
	require.Len(t, cfgs, 2) // module scope + f's scope

	var fScope *cfg.Graph
	for _, g := range cfgs {
		if len(g.Blocks) > 1 {
			fScope = g
		}
	}
	require.NotNil(t, fScope)

	var sawTrue, sawFalse bool
	for _, e := range fScope.Edges {
		switch e.Label {
		case cfg.LabelTrue:
			sawTrue = true
		case cfg.LabelFalse:
			sawFalse = true
		}
	}
	assert.True(t, sawTrue, "expected a True edge out of the if guard")
	assert.True(t, sawFalse, "expected a False edge out of the if guard")
}

func TestBuildExpressionNodesAreNotLeaders(t *testing.T) {
	// A Call's arguments and the Name nodes inside it must not fragment the
	// enclosing statement into spurious single-node blocks: only nodes that
	// are themselves flow-edge endpoints (or scope containers) become
	// blocks.
	_, cfgs := build(t, "os.system(cmd)\n")
	var moduleScope *cfg.Graph
	for _, g := range cfgs {
		moduleScope = g
	}
	require.NotNil(t, moduleScope)
	assert.Len(t, moduleScope.Blocks, 1, "a single statement should produce a single block")
}

func TestBuildEmptyFunctionGetsEntryBlock(t *testing.T) {
	_, cfgs := build(t, `def f():
    pass
`)
	require.Len(t, cfgs, 2)
	for _, g := range cfgs {
		assert.NotEmpty(t, g.Blocks, "every scope must have at least an entry block")
	}
}

func TestBuildWhileLoopsBackToGuard(t *testing.T) {
	_, cfgs := build(t, `def f(x):
    while x:
        x = x - 1
`)
	var fScope *cfg.Graph
	for _, g := range cfgs {
		if len(g.Blocks) > 1 {
			fScope = g
		}
	}
	require.NotNil(t, fScope)

	// the loop body's block must have a Next edge back to the while guard's
	// block (its own predecessor), forming a cycle.
	var foundBackEdge bool
	for i := range fScope.Blocks {
		for _, e := range fScope.Successors(i) {
			if e.ToBlock <= i {
				foundBackEdge = true
			}
		}
	}
	assert.True(t, foundBackEdge, "expected a back edge in the loop's CFG")
}
