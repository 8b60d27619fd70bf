package cfg

import "github.com/nsss/nsss/internal/ir"

// isIntraprocedural excludes "call" edges: those describe invocation
// targets for an (out-of-scope) call graph, not intraprocedural control
// flow, so they never split or join basic blocks here.
func isIntraprocedural(t ir.EdgeType) bool {
	return t != ir.EdgeCall
}

// isContainerKind reports whether n is a scope-owning container node, kept
// as a statement even when it has no flow edges (so an empty module still
// gets an entry block). Function and Class nodes sit in their enclosing
// scope; Build gives an empty body scope its own entry block.
func isContainerKind(n *ir.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case ir.KindModule, ir.KindFunction, ir.KindClass:
		return true
	default:
		return false
	}
}

// Build partitions g's nodes by scope id and returns one CFG per scope:
// the module top-level and each function/lambda body.
func Build(g *ir.Graph) map[string]*Graph {
	order := map[string][]string{}
	for _, n := range g.Nodes {
		order[n.ScopeID] = append(order[n.ScopeID], n.ID)
	}

	byID := map[string]*ir.Node{}
	for i := range g.Nodes {
		byID[g.Nodes[i].ID] = &g.Nodes[i]
	}

	out := make(map[string]*Graph, len(order))
	for scopeID, nodeIDs := range order {
		out[scopeID] = buildScope(scopeID, nodeIDs, g, byID)
	}
	// A function or class whose body adds no nodes (e.g. only `pass`) still
	// gets a CFG for its body scope ("{scope}:scope:{name}") with one empty block.
	for _, n := range g.Nodes {
		name, _ := n.Attrs["name"].(string)
		bodyScope := n.ScopeID + ":scope:" + name
		if (n.Kind == ir.KindFunction || n.Kind == ir.KindClass) && (out[bodyScope] == nil || len(out[bodyScope].Blocks) == 0) {
			cg := newGraph(bodyScope)
			cg.addBlock(&Block{ScopeID: bodyScope})
			out[bodyScope] = cg
		}
	}
	return out
}

func buildScope(scopeID string, nodeIDs []string, g *ir.Graph, byID map[string]*ir.Node) *Graph {
	inScope := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		inScope[id] = true
	}

	var edges []ir.Edge
	outEdges := map[string][]ir.Edge{}
	inEdges := map[string][]ir.Edge{}
	for _, e := range g.Edges {
		if !isIntraprocedural(e.Type) || !inScope[e.FromID] || !inScope[e.ToID] {
			continue
		}
		edges = append(edges, e)
		outEdges[e.FromID] = append(outEdges[e.FromID], e)
		inEdges[e.ToID] = append(inEdges[e.ToID], e)
	}

	isLeader := func(id, first string) bool {
		if id == first {
			return true
		}
		ins := inEdges[id]
		if len(ins) != 1 {
			return true
		}
		pe := ins[0]
		if pe.Type != ir.EdgeFlow {
			return true
		}
		if len(outEdges[pe.FromID]) != 1 {
			return true
		}
		return false
	}

	// Pure-expression IR nodes (Call arguments, Name loads, literals, ...)
	// never appear as flow-edge endpoints; only the statement nodes the
	// builder actually threads into the flow spine should become blocks.
	// A container node (Module/Function/Class) is always kept even without
	// flow edges, so an empty module still gets an entry block.
	var stmtIDs []string
	for _, id := range nodeIDs {
		if len(inEdges[id])+len(outEdges[id]) > 0 || isContainerKind(byID[id]) {
			stmtIDs = append(stmtIDs, id)
		}
	}

	cg := newGraph(scopeID)
	var first string
	if len(stmtIDs) > 0 {
		first = stmtIDs[0]
	}

	var current *Block
	for _, id := range stmtIDs {
		if current == nil || isLeader(id, first) {
			if current != nil {
				cg.addBlock(current)
			}
			current = &Block{ScopeID: scopeID}
		}
		current.NodeIDs = append(current.NodeIDs, id)
	}
	if current != nil {
		cg.addBlock(current)
	}

	blockOf := map[string]int{}
	for _, b := range cg.Blocks {
		for _, id := range b.NodeIDs {
			blockOf[id] = b.ID
		}
	}

	if len(cg.Blocks) > 0 {
		cg.EntryID = blockOf[first]
	}

	seen := map[string]bool{}
	for _, e := range edges {
		fromBlock, ok1 := blockOf[e.FromID]
		toBlock, ok2 := blockOf[e.ToID]
		if !ok1 || !ok2 || fromBlock == toBlock {
			continue
		}
		label := labelFor(e, byID[e.FromID])
		key := edgeKey(fromBlock, toBlock, label)
		if seen[key] {
			continue
		}
		seen[key] = true
		cg.addEdge(Edge{FromBlock: fromBlock, ToBlock: toBlock, Label: label, GuardID: e.GuardID})
	}

	return cg
}

func labelFor(e ir.Edge, from *ir.Node) Label {
	async := from != nil
	if from != nil {
		isAsync, _ := from.Attrs["is_async"].(bool)
		async = isAsync
	}
	switch e.Type {
	case ir.EdgeTrue:
		return LabelTrue
	case ir.EdgeFalse:
		return LabelFalse
	case ir.EdgeException, ir.EdgeBreak:
		if async {
			return LabelAsyncStop
		}
		return LabelStop
	case ir.EdgeContinue, ir.EdgeFlow:
		if async {
			return LabelAsyncNext
		}
		return LabelNext
	default:
		return LabelNext
	}
}

func edgeKey(from, to int, label Label) string {
	return itoa(from) + ">" + itoa(to) + ":" + string(label)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
