package ir

import (
	"sort"
	"strings"
)

// Descendants returns rootID followed by every node reachable from it via
// attrs referencing child expressions (keys ending "_id" for a single
// reference, "_ids" for a slice of references). Traversal order sorts attr
// keys at each node so the result is identical across runs regardless of
// Go's randomized map iteration order.
func Descendants(g *Graph, rootID string) []string {
	var out []string
	seen := map[string]bool{}

	var visit func(id string)
	visit = func(id string) {
		if id == "" || seen[id] {
			return
		}
		n, ok := g.Node(id)
		if !ok {
			return
		}
		seen[id] = true
		out = append(out, id)

		keys := make([]string, 0, len(n.Attrs))
		for k := range n.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch {
			case strings.HasSuffix(k, "_ids"):
				if ids, ok := n.Attrs[k].([]string); ok {
					for _, cid := range ids {
						visit(cid)
					}
				}
			case strings.HasSuffix(k, "_id"):
				if cid, ok := n.Attrs[k].(string); ok {
					visit(cid)
				}
			}
		}
	}

	visit(rootID)
	return out
}
