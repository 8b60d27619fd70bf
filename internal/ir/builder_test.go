package ir_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsss/nsss/internal/ir"
)

type buildCase struct {
	description string
	code        string
	assert      func(t *testing.T, g *ir.Graph)
}

func TestBuilderBuild(t *testing.T) {
	tests := []buildCase{
		{
			description: "module with a single assignment",
			code:        "x = 1\n",
			assert: func(t *testing.T, g *ir.Graph) {
				var sawAssign bool
				for _, n := range g.Nodes {
					if n.Kind == ir.KindAssign {
						sawAssign = true
					}
				}
				assert.True(t, sawAssign, "expected an Assign node")
			},
		},
		{
			description: "function definition introduces a child scope and a param symbol",
			code: `def handler(request):
    return request
`,
			assert: func(t *testing.T, g *ir.Graph) {
				var fn *ir.Node
				for i := range g.Nodes {
					if g.Nodes[i].Kind == ir.KindFunction {
						fn = &g.Nodes[i]
					}
				}
				require.NotNil(t, fn)
				assert.Equal(t, "handler", fn.Attrs["name"])

				var found bool
				for _, sym := range g.Symbols {
					if sym.Name == "request" && sym.Kind == ir.SymbolParam {
						found = true
					}
				}
				assert.True(t, found, "expected a param symbol for request")
			},
		},
		{
			description: "if/else with a Return in each branch yields two Return nodes",
			code: `def f(x):
    if x:
        return 1
    else:
        return 2
`,
			assert: func(t *testing.T, g *ir.Graph) {
				var returns int
				for _, n := range g.Nodes {
					if n.Kind == ir.KindReturn {
						returns++
					}
				}
				assert.Equal(t, 2, returns)
			},
		},
		{
			description: "import with alias records a symbol def under the alias name",
			code:        "import subprocess as sp\n",
			assert: func(t *testing.T, g *ir.Graph) {
				var found bool
				for _, sym := range g.Symbols {
					if sym.Name == "sp" && sym.Kind == ir.SymbolImport {
						found = true
					}
				}
				assert.True(t, found)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			g, err := ir.NewBuilder().Build(context.Background(), "example.py", tc.code)
			require.NoError(t, err)
			require.NoError(t, g.Validate())
			tc.assert(t, g)
		})
	}
}

func TestBuilderSyntaxError(t *testing.T) {
	_, err := ir.NewBuilder().Build(context.Background(), "bad.py", "def f(:\n")
	require.Error(t, err)
	var syntaxErr *ir.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestGraphAddEdgeDeduplicates(t *testing.T) {
	g := ir.NewGraph("f.py")
	a := g.AddNode(ir.Node{ID: "a", Kind: ir.KindLiteral})
	b := g.AddNode(ir.Node{ID: "b", Kind: ir.KindLiteral})

	g.AddEdge(ir.Edge{FromID: a, ToID: b, Type: ir.EdgeFlow})
	g.AddEdge(ir.Edge{FromID: a, ToID: b, Type: ir.EdgeFlow})

	assert.Len(t, g.Edges, 1)
}
