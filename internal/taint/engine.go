// Package taint implements a worklist-based inter-procedural-free taint
// analysis: explicit propagation through SSA versions and φ-nodes, implicit
// (control-flow) propagation through branch-dominated regions, and backward
// path reconstruction for every tainted sink argument.
package taint

import (
	"sort"

	"github.com/nsss/nsss/internal/cfg"
	"github.com/nsss/nsss/internal/ir"
	"github.com/nsss/nsss/internal/ssa"
)

// Analyze finds taint flows within one scope (a function body or the
// module top level), given the CFG and SSA form already computed for it.
func Analyze(g *ir.Graph, scopeID string, cg *cfg.Graph, s *ssa.SSA, config *Configuration) []Flow {
	e := &engine{g: g, scopeID: scopeID, cg: cg, ssa: s, config: config}
	e.index()
	return e.run()
}

type engine struct {
	g       *ir.Graph
	scopeID string
	cg      *cfg.Graph
	ssa     *ssa.SSA
	config  *Configuration

	byID       map[string]*ir.Node
	usesSymbol map[string]string   // node id -> symbol name it reads
	defsByNode map[string][]string // node id -> symbol names it defines
	blockOf    map[string]int      // top-level statement node id -> owning block id
}

type controlKey struct {
	block  int
	source string
}

type taintedArg struct {
	Version string
	Source  string
}

func (e *engine) index() {
	e.byID = make(map[string]*ir.Node, len(e.g.Nodes))
	for i := range e.g.Nodes {
		e.byID[e.g.Nodes[i].ID] = &e.g.Nodes[i]
	}

	e.usesSymbol = map[string]string{}
	e.defsByNode = map[string][]string{}
	for _, sym := range e.g.Symbols {
		if sym.ScopeID != e.scopeID {
			continue
		}
		for _, id := range sym.Uses {
			e.usesSymbol[id] = sym.Name
		}
		for _, id := range sym.Defs {
			e.defsByNode[id] = append(e.defsByNode[id], sym.Name)
		}
	}

	e.blockOf = map[string]int{}
	for _, b := range e.cg.Blocks {
		for _, id := range b.NodeIDs {
			e.blockOf[id] = b.ID
		}
	}
}

func (e *engine) run() []Flow {
	provenance := map[string]string{}
	sourceVersions := map[string]bool{}
	implicitVersions := map[string]bool{}
	versionUses := map[string][]string{}
	var worklist []string

	// 1. sources, plus the use index every propagation step consults.
	for _, b := range e.cg.Blocks {
		for _, stmtID := range b.NodeIDs {
			stmt := e.byID[stmtID]
			if stmt == nil {
				continue
			}
			for _, ver := range e.usedVersions(stmtID) {
				versionUses[ver] = append(versionUses[ver], stmtID)
			}
			if name := e.getSourceName(stmt); name != "" {
				for _, ver := range e.definedVersions(stmtID) {
					if _, tainted := provenance[ver]; !tainted {
						provenance[ver] = name
						sourceVersions[ver] = true
						worklist = append(worklist, ver)
					}
				}
			}
		}
	}

	controlTainted := map[controlKey]bool{}
	regionCache := map[int][]int{}

	// 2. explicit + implicit propagation.
	for len(worklist) > 0 {
		ver := worklist[0]
		worklist = worklist[1:]
		source := provenance[ver]
		isImplicit := implicitVersions[ver]

		for _, stmtID := range versionUses[ver] {
			stmt := e.byID[stmtID]
			if stmt == nil || e.isSanitizerStmt(stmt) {
				continue
			}
			for _, newVer := range e.definedVersions(stmtID) {
				if _, tainted := provenance[newVer]; !tainted {
					provenance[newVer] = source
					if isImplicit {
						implicitVersions[newVer] = true
					}
					worklist = append(worklist, newVer)
				}
			}

			if blockID, ok := e.blockOf[stmtID]; ok && e.isControlStmt(stmtID, blockID) {
				e.applyControlTaint(blockID, source, provenance, &worklist, controlTainted, regionCache, implicitVersions)
			}
		}

		for _, phi := range e.ssa.Phis {
			if !phiHasOperand(phi, ver) {
				continue
			}
			if _, tainted := provenance[phi.Result]; !tainted {
				provenance[phi.Result] = source
				if isImplicit {
					implicitVersions[phi.Result] = true
				}
				worklist = append(worklist, phi.Result)
			}
		}
	}

	// 3. sinks, with backward path reconstruction per tainted argument.
	var flows []Flow
	for _, b := range e.cg.Blocks {
		for _, stmtID := range b.NodeIDs {
			stmt := e.byID[stmtID]
			if stmt == nil {
				continue
			}
			sinkName := e.getSinkName(stmt)
			if sinkName == "" {
				continue
			}
			for _, arg := range e.taintedArgs(stmtID, provenance) {
				for _, path := range e.backwardPaths(arg.Version, provenance, sourceVersions) {
					flows = append(flows, Flow{
						Source:   arg.Source,
						Sink:     sinkName,
						Path:     path,
						Implicit: anyImplicit(path, implicitVersions),
						SinkSpan: stmt.Span,
					})
				}
			}
		}
	}
	return flows
}

// isControlStmt treats the final node of a block as its branch guard: only
// the last statement in a basic block can own the labeled successor edges
// that leave it.
func (e *engine) isControlStmt(stmtID string, blockID int) bool {
	if len(e.cg.Successors(blockID)) == 0 {
		return false
	}
	block := e.cg.Block(blockID)
	if block == nil || len(block.NodeIDs) == 0 {
		return false
	}
	return block.NodeIDs[len(block.NodeIDs)-1] == stmtID
}

func (e *engine) applyControlTaint(
	blockID int,
	source string,
	provenance map[string]string,
	worklist *[]string,
	controlTainted map[controlKey]bool,
	regionCache map[int][]int,
	implicitVersions map[string]bool,
) {
	succEdges := e.cg.Successors(blockID)
	if len(succEdges) == 0 {
		return
	}
	region, ok := regionCache[blockID]
	if !ok {
		succs := make([]int, 0, len(succEdges))
		for _, se := range succEdges {
			succs = append(succs, se.ToBlock)
		}
		region = e.computeControlRegion(succs)
		regionCache[blockID] = region
	}

	for _, regionBlockID := range region {
		key := controlKey{block: regionBlockID, source: source}
		if controlTainted[key] {
			continue
		}
		controlTainted[key] = true
		block := e.cg.Block(regionBlockID)
		if block == nil {
			continue
		}
		for _, stmtID := range block.NodeIDs {
			for _, newVer := range e.definedVersions(stmtID) {
				if _, tainted := provenance[newVer]; !tainted {
					provenance[newVer] = source
					implicitVersions[newVer] = true
					*worklist = append(*worklist, newVer)
				}
			}
		}
	}
}

// computeControlRegion computes the implicit-taint control region: the
// union of what is reachable from each successor, minus the join point
// common to all of them. join is computed first (full reachability, no
// stop set), then each successor's reachable set is recomputed stopping
// at the join.
func (e *engine) computeControlRegion(succs []int) []int {
	if len(succs) == 0 {
		return nil
	}
	reachableSets := make([]map[int]bool, len(succs))
	for i, s := range succs {
		reachableSets[i] = e.collectReachable(s, nil)
	}
	join := reachableSets[0]
	for _, rs := range reachableSets[1:] {
		join = intersectSets(join, rs)
	}

	region := map[int]bool{}
	for _, s := range succs {
		for b := range e.collectReachable(s, join) {
			region[b] = true
		}
	}
	out := make([]int, 0, len(region))
	for b := range region {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

func (e *engine) collectReachable(start int, stop map[int]bool) map[int]bool {
	visited := map[int]bool{}
	stack := []int{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] || stop[n] {
			continue
		}
		visited[n] = true
		for _, se := range e.cg.Successors(n) {
			if !visited[se.ToBlock] {
				stack = append(stack, se.ToBlock)
			}
		}
	}
	return visited
}

func intersectSets(a, b map[int]bool) map[int]bool {
	out := map[int]bool{}
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func phiHasOperand(phi *ssa.Phi, ver string) bool {
	for _, v := range phi.Operands {
		if v == ver {
			return true
		}
	}
	return false
}

// definedVersions returns the SSA versions nodeID defines, in the order its
// symbols were bound (tuple-unpacking assignments define more than one).
func (e *engine) definedVersions(nodeID string) []string {
	var out []string
	for _, sym := range e.defsByNode[nodeID] {
		if v, ok := e.ssa.NodeVersion[ssa.NodeVersionKey(nodeID, sym)]; ok {
			out = append(out, v)
		}
	}
	return out
}

// usedVersions returns the SSA versions read anywhere inside nodeID's
// expression tree, in a deterministic (sorted-attr-key) traversal order.
func (e *engine) usedVersions(nodeID string) []string {
	var out []string
	for _, d := range ir.Descendants(e.g, nodeID) {
		sym, ok := e.usesSymbol[d]
		if !ok {
			continue
		}
		if v, ok := e.ssa.NodeVersion[ssa.NodeVersionKey(d, sym)]; ok {
			out = append(out, v)
		}
	}
	return out
}

func (e *engine) taintedArgs(stmtID string, provenance map[string]string) []taintedArg {
	var out []taintedArg
	for _, ver := range e.usedVersions(stmtID) {
		if src, ok := provenance[ver]; ok {
			out = append(out, taintedArg{Version: ver, Source: src})
		}
	}
	return out
}

func (e *engine) backwardPaths(startVer string, provenance map[string]string, sourceVersions map[string]bool) [][]string {
	var paths [][]string
	visiting := map[string]bool{}
	var path []string

	var dfs func(ver string)
	dfs = func(ver string) {
		if visiting[ver] {
			return
		}
		if _, ok := provenance[ver]; !ok {
			return
		}
		visiting[ver] = true
		path = append(path, ver)

		switch {
		case sourceVersions[ver]:
			paths = append(paths, reversedCopy(path))
		default:
			site := e.ssa.VersionDefs[ver]
			switch {
			case site == nil:
				paths = append(paths, reversedCopy(path))
			case site.Kind == ssa.DefNode:
				var taintedUsed []string
				for _, u := range e.usedVersions(site.NodeID) {
					if _, ok := provenance[u]; ok {
						taintedUsed = append(taintedUsed, u)
					}
				}
				if len(taintedUsed) == 0 {
					paths = append(paths, reversedCopy(path))
				} else {
					for _, u := range taintedUsed {
						dfs(u)
					}
				}
			case site.Kind == ssa.DefPhi:
				var taintedOperands []string
				for _, o := range sortedPhiOperands(site.Phi) {
					if _, ok := provenance[o]; ok {
						taintedOperands = append(taintedOperands, o)
					}
				}
				if len(taintedOperands) == 0 {
					paths = append(paths, reversedCopy(path))
				} else {
					for _, o := range taintedOperands {
						dfs(o)
					}
				}
			default:
				paths = append(paths, reversedCopy(path))
			}
		}

		path = path[:len(path)-1]
		delete(visiting, ver)
	}

	dfs(startVer)
	return paths
}

func sortedPhiOperands(phi *ssa.Phi) []string {
	keys := make([]int, 0, len(phi.Operands))
	for k := range phi.Operands {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, phi.Operands[k])
	}
	return out
}

func reversedCopy(path []string) []string {
	out := make([]string, len(path))
	for i, v := range path {
		out[len(path)-1-i] = v
	}
	return out
}

func anyImplicit(path []string, implicitVersions map[string]bool) bool {
	for _, v := range path {
		if implicitVersions[v] {
			return true
		}
	}
	return false
}

// getSourceName/getSinkName/isSanitizerStmt check a statement's callee
// name against the relevant name set: an Assign whose RHS is a Call, or a
// bare Call used as a statement.

func (e *engine) getSourceName(stmt *ir.Node) string {
	return e.matchCallStmt(stmt, e.config.Sources)
}

func (e *engine) getSinkName(stmt *ir.Node) string {
	return e.matchCallStmt(stmt, e.config.Sinks)
}

func (e *engine) isSanitizerStmt(stmt *ir.Node) bool {
	if stmt.Kind != ir.KindAssign {
		return false
	}
	call := e.callValueOf(stmt)
	if call == nil {
		return false
	}
	return e.checkCall(call, e.config.Sanitizers) != ""
}

func (e *engine) matchCallStmt(stmt *ir.Node, candidates map[string]bool) string {
	switch stmt.Kind {
	case ir.KindAssign:
		call := e.callValueOf(stmt)
		if call == nil {
			return ""
		}
		return e.checkCall(call, candidates)
	case ir.KindCall:
		return e.checkCall(stmt, candidates)
	default:
		return ""
	}
}

func (e *engine) callValueOf(stmt *ir.Node) *ir.Node {
	valueID, _ := stmt.Attrs["value_id"].(string)
	if valueID == "" {
		return nil
	}
	val, ok := e.byID[valueID]
	if !ok || val.Kind != ir.KindCall {
		return nil
	}
	return val
}

func (e *engine) checkCall(call *ir.Node, candidates map[string]bool) string {
	name := e.calleeName(call)
	if name == "" || !candidates[name] {
		return ""
	}
	return name
}

// calleeName builds the call's syntactic dotted callee path (no alias
// resolution), exactly as written at the call site.
func (e *engine) calleeName(call *ir.Node) string {
	calleeID, _ := call.Attrs["callee_id"].(string)
	if calleeID == "" {
		return ""
	}
	callee, ok := e.byID[calleeID]
	if !ok {
		return ""
	}
	switch callee.Kind {
	case ir.KindName:
		name, _ := callee.Attrs["name"].(string)
		return name
	case ir.KindAttribute:
		return e.formatAttribute(callee)
	default:
		return ""
	}
}

func (e *engine) formatAttribute(n *ir.Node) string {
	switch n.Kind {
	case ir.KindAttribute:
		objectID, _ := n.Attrs["object_id"].(string)
		attr, _ := n.Attrs["attr"].(string)
		if objectID == "" || attr == "" {
			return ""
		}
		base, ok := e.byID[objectID]
		if !ok {
			return ""
		}
		baseName := e.formatAttribute(base)
		if baseName == "" {
			return ""
		}
		return baseName + "." + attr
	case ir.KindName:
		name, _ := n.Attrs["name"].(string)
		return name
	default:
		return ""
	}
}
