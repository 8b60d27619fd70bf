// Package dyntag tags IR nodes that sit in a "dynamic area" of the
// program: calls whose effect a static analyzer cannot fully reason about,
// because the call evaluates code at runtime (eval/exec/compile),
// resolves a module or attribute by name (__import__/importlib.import_module,
// getattr/setattr), calls the result of another call, or expands keyword
// arguments from a mapping it cannot enumerate.
package dyntag

import "github.com/nsss/nsss/internal/ir"

var dynamicCalleeNames = map[string]bool{
	"eval": true, "exec": true, "compile": true, "__import__": true,
	"getattr": true, "setattr": true,
}

var dynamicAttrNames = map[string]bool{
	"import_module": true,
}

const (
	TagDynamic     = "dynamic"
	TagUnscannable = "unscannable"
)

// Tag walks every node in g and applies dynamic/unscannable tags in place.
func Tag(g *ir.Graph) {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if isUnsupported(n) {
			addTags(n, TagDynamic, TagUnscannable)
			continue
		}
		if n.Kind != ir.KindCall {
			continue
		}

		calleeID, _ := n.Attrs["callee_id"].(string)
		callee, ok := g.Node(calleeID)
		if calleeID == "" || !ok {
			addTags(n, TagDynamic, TagUnscannable)
			continue
		}
		if callee.Kind != ir.KindName && callee.Kind != ir.KindAttribute {
			addTags(n, TagDynamic, TagUnscannable)
			continue
		}
		if callee.Kind == ir.KindName {
			name, _ := callee.Attrs["name"].(string)
			if dynamicCalleeNames[name] {
				addTags(n, TagDynamic, TagUnscannable)
				continue
			}
		}
		if callee.Kind == ir.KindAttribute {
			attr, _ := callee.Attrs["attr"].(string)
			if dynamicAttrNames[attr] {
				addTags(n, TagDynamic, TagUnscannable)
				continue
			}
		}
		if hasDynamicKwargs(n) {
			addTags(n, TagDynamic)
		}
	}
}

func isUnsupported(n *ir.Node) bool {
	v, _ := n.Attrs["unsupported"].(bool)
	return v
}

func hasDynamicKwargs(n *ir.Node) bool {
	v, _ := n.Attrs["has_keyword_expansion"].(bool)
	return v
}

func addTags(n *ir.Node, tags ...string) {
	for _, t := range tags {
		n.AddTag(t)
	}
}
