package ssa_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsss/nsss/internal/cfg"
	"github.com/nsss/nsss/internal/ir"
	"github.com/nsss/nsss/internal/ssa"
)

func buildSSA(t *testing.T, code string) (*ir.Graph, map[string]*cfg.Graph, map[string]*ssa.SSA) {
	t.Helper()
	g, err := ir.NewBuilder().Build(context.Background(), "f.py", code)
	require.NoError(t, err)
	cfgs := cfg.Build(g)
	return g, cfgs, ssa.Build(g, cfgs)
}

func TestRenameGivesEachDefinitionAFreshVersion(t *testing.T) {
	_, _, ssas := buildSSA(t, `def f():
    x = 1
    x = 2
    return x
`)
	var s *ssa.SSA
	for scopeID, candidate := range ssas {
		if len(candidate.NodeVersion) > 0 && scopeID != ir.ModuleScopeID {
			s = candidate
		}
	}
	require.NotNil(t, s)

	versions := map[string]bool{}
	for _, v := range s.NodeVersion {
		versions[v] = true
	}
	assert.GreaterOrEqual(t, len(versions), 2, "two distinct defs of x should get two distinct versions")
}

func TestJoinInsertsPhi(t *testing.T) {
	_, _, ssas := buildSSA(t, `def f(cond):
    if cond:
        x = 1
    else:
        x = 2
    return x
`)
	var s *ssa.SSA
	for _, candidate := range ssas {
		if len(candidate.Phis) > 0 {
			s = candidate
		}
	}
	require.NotNil(t, s, "expected a phi node at the join after the if/else")
	assert.Equal(t, "x", s.Phis[0].Symbol)
	assert.Len(t, s.Phis[0].Operands, 2, "phi should have one operand per predecessor branch")
}

func TestUseNestedInsideExpressionIsVersioned(t *testing.T) {
	// A read of a name inside a Call argument (not a bare statement) must
	// still get an SSA version recorded against it.
	g, cfgs, ssas := buildSSA(t, `def f(cmd):
    x = cmd
    os.system(x)
`)
	var scopeID string
	for id, cg := range cfgs {
		if len(cg.Blocks) > 0 && id != ir.ModuleScopeID {
			scopeID = id
		}
	}
	s := ssas[scopeID]
	require.NotNil(t, s)

	var foundUseVersion bool
	for key := range s.NodeVersion {
		// versionKey is "{nodeID}#{symbol}"; a "#x" key on a Name node (not
		// the Assign that defines x) confirms a use site got versioned too.
		n, ok := g.Node(strings.TrimSuffix(key, "#x"))
		if ok && strings.HasSuffix(key, "#x") && n.Kind == ir.KindName {
			foundUseVersion = true
		}
	}
	assert.True(t, foundUseVersion, "expected at least one versioned use of x")
}

func TestDominatorsEntryDominatesItself(t *testing.T) {
	_, cfgs, _ := buildSSA(t, "x = 1\n")
	for _, cg := range cfgs {
		idom := ssa.Dominators(cg)
		assert.Equal(t, cg.EntryID, idom[cg.EntryID])
	}
}
