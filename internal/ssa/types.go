// Package ssa rewrites a per-scope CFG into static single assignment form:
// a dominator tree, φ-nodes at the iterated dominance frontier, and a
// rename pass that gives every definition a fresh version and every use a
// binding to the version reaching it.
package ssa

import "fmt"

// Phi is a φ-node inserted at the head of a join block for one variable.
// Operands maps a predecessor block id to the version reaching the join
// from that predecessor.
type Phi struct {
	Block    int
	Symbol   string
	Result   string
	Operands map[int]string
}

// DefKind distinguishes an ordinary IR-node definition from a φ-node
// definition in VersionDefs.
type DefKind int

const (
	DefNode DefKind = iota
	DefPhi
)

// DefSite is what VersionDefs points a version at: either the IR node that
// produced it, or the φ-node that did.
type DefSite struct {
	Kind   DefKind
	NodeID string
	Phi    *Phi
}

// SSA is the renamed form of one scope's CFG.
type SSA struct {
	ScopeID     string
	NodeVersion map[string]string   // versionKey(nodeID, symbol) -> version
	VersionDefs map[string]*DefSite // version -> defining site
	Phis        []*Phi
}

// versionKey disambiguates multi-target definitions and distinct uses: a
// single Assign node can bind more than one symbol (tuple unpacking), so a
// bare node id is not a unique key on its own.
func versionKey(nodeID, symbol string) string {
	return nodeID + "#" + symbol
}

// NodeVersionKey is the exported form of versionKey, for callers (the taint
// engine) that need to look a node+symbol pair up in SSA.NodeVersion.
func NodeVersionKey(nodeID, symbol string) string {
	return versionKey(nodeID, symbol)
}

func newVersionLabel(symbol string, n int) string {
	return fmt.Sprintf("%s_%d", symbol, n)
}

func phiVersionLabel(symbol string) string {
	return fmt.Sprintf("%s_phi", symbol)
}
