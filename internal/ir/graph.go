package ir

import (
	"fmt"
	"strings"

	"github.com/minio/highwayhash"
)

// dedupKeySeed is a fixed 32-byte key for the highwayhash-based in-memory
// dedup key. It is never persisted and carries no security weight; it only
// needs to be stable within a process so identical (from,to,type) triples
// hash identically during a single graph build.
var dedupKeySeed = [32]byte{}

// Graph owns a parsed file's nodes, edges, and symbol table exclusively.
// Internally it is arena-indexed (nodes/edges are stored in slices and
// looked up by index) so the dominator/SSA passes that consume it can use
// cheap integer indices; ids are retained only for external serialization
// and cross-stage lookups.
type Graph struct {
	File    string
	Nodes   []Node
	Edges   []Edge
	Symbols []Symbol

	nodeIndex   map[string]int
	symbolIndex map[symbolKey]int
	edgeSeen    map[uint64]struct{}
	seq         int
}

// NewGraph returns an empty graph scoped to a single file.
func NewGraph(file string) *Graph {
	return &Graph{
		File:        file,
		nodeIndex:   make(map[string]int),
		symbolIndex: make(map[symbolKey]int),
		edgeSeen:    make(map[uint64]struct{}),
	}
}

// NextSeq returns the next parse-order sequence number, used to build
// stable node ids.
func (g *Graph) NextSeq() int {
	g.seq++
	return g.seq
}

// AddNode appends a node and indexes it by id. Returns the node's id.
func (g *Graph) AddNode(n Node) string {
	if n.Attrs == nil {
		n.Attrs = map[string]any{}
	}
	g.nodeIndex[n.ID] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	return n.ID
}

// Node looks up a node by id, returning (node, true) if found. The pointer
// is only valid until the next AddNode call reallocates the backing slice.
func (g *Graph) Node(id string) (*Node, bool) {
	idx, ok := g.nodeIndex[id]
	if !ok {
		return nil, false
	}
	return &g.Nodes[idx], true
}

// AddEdge appends an edge, deduplicating on (from, to, type) via a fast
// highwayhash key. This is an in-memory memoization aid only; it is never
// part of any persisted fingerprint or hash.
func (g *Graph) AddEdge(e Edge) {
	key := g.edgeDedupKey(e)
	if _, dup := g.edgeSeen[key]; dup {
		return
	}
	g.edgeSeen[key] = struct{}{}
	g.Edges = append(g.Edges, e)
}

func (g *Graph) edgeDedupKey(e Edge) uint64 {
	buf := make([]byte, 0, len(e.FromID)+len(e.ToID)+len(e.Type)+1)
	buf = append(buf, e.FromID...)
	buf = append(buf, 0)
	buf = append(buf, e.ToID...)
	buf = append(buf, 0)
	buf = append(buf, e.Type...)
	sum := highwayhash.Sum64(buf, dedupKeySeed[:])
	return sum
}

// AddSymbolDef records a definition site for (scopeID, name), creating the
// symbol if it does not already exist.
func (g *Graph) AddSymbolDef(name string, kind SymbolKind, scopeID, nodeID string) *Symbol {
	sym := g.symbol(name, kind, scopeID)
	sym.Defs = append(sym.Defs, nodeID)
	return sym
}

// AddSymbolUse records a use site for (scopeID, name), creating the symbol
// if it does not already exist (e.g. a use of a builtin or global).
func (g *Graph) AddSymbolUse(name string, kind SymbolKind, scopeID, nodeID string) *Symbol {
	sym := g.symbol(name, kind, scopeID)
	sym.Uses = append(sym.Uses, nodeID)
	return sym
}

func (g *Graph) symbol(name string, kind SymbolKind, scopeID string) *Symbol {
	key := symbolKey{scopeID: scopeID, name: name}
	if idx, ok := g.symbolIndex[key]; ok {
		return &g.Symbols[idx]
	}
	g.symbolIndex[key] = len(g.Symbols)
	g.Symbols = append(g.Symbols, Symbol{Name: name, Kind: kind, ScopeID: scopeID})
	return &g.Symbols[len(g.Symbols)-1]
}

// Validate checks the graph's structural invariants: every edge endpoint
// exists, every parent_id exists, and every scope_id is either the module
// scope or a child-scope string.
func (g *Graph) Validate() error {
	for _, e := range g.Edges {
		if _, ok := g.nodeIndex[e.FromID]; !ok {
			return fmt.Errorf("ir: edge from unknown node %q", e.FromID)
		}
		if _, ok := g.nodeIndex[e.ToID]; !ok {
			return fmt.Errorf("ir: edge to unknown node %q", e.ToID)
		}
	}
	for _, n := range g.Nodes {
		if n.ParentID != "" {
			if _, ok := g.nodeIndex[n.ParentID]; !ok {
				return fmt.Errorf("ir: node %q has unknown parent %q", n.ID, n.ParentID)
			}
		}
		if n.ScopeID != "" && n.ScopeID != ModuleScopeID && !strings.HasPrefix(n.ScopeID, ModuleScopeID+":") {
			return fmt.Errorf("ir: node %q has scope id %q outside the module scope", n.ID, n.ScopeID)
		}
	}
	return nil
}
