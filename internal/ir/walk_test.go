package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nsss/nsss/internal/ir"
)

func TestDescendantsFollowsIDAttrs(t *testing.T) {
	g := ir.NewGraph("f.py")
	leaf := g.AddNode(ir.Node{ID: "leaf", Kind: ir.KindLiteral})
	other := g.AddNode(ir.Node{ID: "other", Kind: ir.KindLiteral})
	call := g.AddNode(ir.Node{ID: "call", Kind: ir.KindCall, Attrs: map[string]any{
		"callee_id": leaf,
		"arg_ids":   []string{other},
	}})

	got := ir.Descendants(g, call)
	assert.Equal(t, []string{call, other, leaf}, got)
}

func TestDescendantsBreaksCycles(t *testing.T) {
	g := ir.NewGraph("f.py")
	a := g.AddNode(ir.Node{ID: "a", Kind: ir.KindName, Attrs: map[string]any{"next_id": "b"}})
	_ = g.AddNode(ir.Node{ID: "b", Kind: ir.KindName, Attrs: map[string]any{"next_id": "a"}})

	got := ir.Descendants(g, a)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestDescendantsMissingRoot(t *testing.T) {
	g := ir.NewGraph("f.py")
	assert.Empty(t, ir.Descendants(g, "nope"))
}
