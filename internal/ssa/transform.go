package ssa

import (
	"sort"

	"github.com/nsss/nsss/internal/cfg"
	"github.com/nsss/nsss/internal/ir"
)

// Build computes SSA form for every scope that has a CFG, using the IR
// graph's symbol table to find per-scope definitions and uses.
func Build(g *ir.Graph, cfgs map[string]*cfg.Graph) map[string]*SSA {
	out := make(map[string]*SSA, len(cfgs))
	for scopeID, cg := range cfgs {
		out[scopeID] = transformScope(scopeID, cg, g)
	}
	return out
}

func transformScope(scopeID string, cg *cfg.Graph, g *ir.Graph) *SSA {
	s := &SSA{ScopeID: scopeID, NodeVersion: map[string]string{}, VersionDefs: map[string]*DefSite{}}
	if len(cg.Blocks) == 0 {
		return s
	}

	blockOf := map[string]int{}
	for _, b := range cg.Blocks {
		for _, id := range b.NodeIDs {
			blockOf[id] = b.ID
		}
	}

	defsByNode := map[string][]string{}   // node id -> symbol names it defines
	usesByNode := map[string]string{}     // node id -> symbol name it uses
	defBlocksBySymbol := map[string][]int{}
	for _, sym := range g.Symbols {
		if sym.ScopeID != scopeID {
			continue
		}
		for _, nodeID := range sym.Defs {
			defsByNode[nodeID] = append(defsByNode[nodeID], sym.Name)
			if b, ok := blockOf[nodeID]; ok && !contains(defBlocksBySymbol[sym.Name], b) {
				defBlocksBySymbol[sym.Name] = append(defBlocksBySymbol[sym.Name], b)
			}
		}
		for _, nodeID := range sym.Uses {
			usesByNode[nodeID] = sym.Name
		}
	}

	idom := Dominators(cg)
	df := DominanceFrontier(cg, idom)

	hasPhi := map[string]map[int]*Phi{} // symbol -> blockID -> phi
	for symbol, defBlocks := range defBlocksBySymbol {
		worklist := append([]int(nil), defBlocks...)
		inWorklist := map[int]bool{}
		for _, b := range worklist {
			inWorklist[b] = true
		}
		for len(worklist) > 0 {
			b := worklist[0]
			worklist = worklist[1:]
			for _, d := range df[b] {
				if hasPhi[symbol] != nil && hasPhi[symbol][d] != nil {
					continue
				}
				phi := &Phi{Block: d, Symbol: symbol, Operands: map[int]string{}}
				if hasPhi[symbol] == nil {
					hasPhi[symbol] = map[int]*Phi{}
				}
				hasPhi[symbol][d] = phi
				s.Phis = append(s.Phis, phi)
				cg.Block(d).PhiNodes = append(cg.Block(d).PhiNodes, cfg.PhiPlaceholder{Symbol: symbol})
				if !inWorklist[d] {
					inWorklist[d] = true
					worklist = append(worklist, d)
				}
			}
		}
	}

	domTree := map[int][]int{}
	for b, p := range idom {
		if b == cg.EntryID {
			continue
		}
		domTree[p] = append(domTree[p], b)
	}
	for _, children := range domTree {
		sort.Ints(children)
	}

	counters := map[string]int{}
	stacks := map[string][]string{}
	push := func(symbol, version string) {
		stacks[symbol] = append(stacks[symbol], version)
	}
	pop := func(symbol string) {
		st := stacks[symbol]
		stacks[symbol] = st[:len(st)-1]
	}
	top := func(symbol string) (string, bool) {
		st := stacks[symbol]
		if len(st) == 0 {
			return "", false
		}
		return st[len(st)-1], true
	}
	fresh := func(symbol string) string {
		counters[symbol]++
		return newVersionLabel(symbol, counters[symbol])
	}

	var rename func(blockID int)
	rename = func(blockID int) {
		pushedHere := map[string]int{}

		block := cg.Block(blockID)
		for symbol, byBlock := range hasPhi {
			phi, ok := byBlock[blockID]
			if !ok {
				continue
			}
			version := phiVersionLabel(symbol)
			phi.Result = version
			s.VersionDefs[version] = &DefSite{Kind: DefPhi, Phi: phi}
			push(symbol, version)
			pushedHere[symbol]++
		}

		for _, nodeID := range block.NodeIDs {
			// A use can sit anywhere in the statement's expression tree (a
			// Call argument, a BinOp operand, ...), not just on the top-level
			// node itself, so every reachable child is checked too.
			for _, useID := range ir.Descendants(g, nodeID) {
				symbol, ok := usesByNode[useID]
				if !ok {
					continue
				}
				if v, ok := top(symbol); ok {
					s.NodeVersion[versionKey(useID, symbol)] = v
				}
			}
			for _, symbol := range defsByNode[nodeID] {
				version := fresh(symbol)
				s.NodeVersion[versionKey(nodeID, symbol)] = version
				s.VersionDefs[version] = &DefSite{Kind: DefNode, NodeID: nodeID}
				push(symbol, version)
				pushedHere[symbol]++
			}
		}

		for _, e := range cg.Successors(blockID) {
			succ := cg.Block(e.ToBlock)
			for _, ph := range succ.PhiNodes {
				phi := hasPhi[ph.Symbol][succ.ID]
				if v, ok := top(ph.Symbol); ok {
					phi.Operands[blockID] = v
				}
			}
		}

		for _, child := range domTree[blockID] {
			rename(child)
		}

		for symbol, n := range pushedHere {
			for i := 0; i < n; i++ {
				pop(symbol)
			}
		}
	}
	rename(cg.EntryID)

	return s
}
