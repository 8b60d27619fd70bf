package ir

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Builder walks a tree-sitter parse tree for a single Python source file and
// produces an IR Graph: a deterministic recursive descent that emits nodes
// in source order and threads control flow as a set of "open" exit points
// rather than a single predecessor, so that branches (if/elif/else, loop
// bodies, except handlers) can fan back in to whatever statement follows
// them without a synthetic join node.
type Builder struct {
	parser *sitter.Parser
}

// NewBuilder returns a Builder configured for the Python grammar.
func NewBuilder() *Builder {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Builder{parser: p}
}

// Build parses source and returns its IR graph.
func (b *Builder) Build(ctx context.Context, file, source string) (*Graph, error) {
	clean := StripComments(source)
	tree, err := b.parser.ParseCtx(ctx, nil, []byte(clean))
	if err != nil {
		return nil, fmt.Errorf("ir: parse %s: %w", file, err)
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, firstSyntaxError(file, root)
	}

	g := NewGraph(file)
	w := &walker{g: g, src: []byte(clean), file: file, scope: NewScopeStack()}

	modID := w.newNode(KindModule, root, w.scope.Current(), "")
	w.walkBody(root, modID, w.scope.Current(), []string{modID}, EdgeFlow, "")
	return g, g.Validate()
}

func firstSyntaxError(file string, n *sitter.Node) error {
	var find func(n *sitter.Node) *sitter.Node
	find = func(n *sitter.Node) *sitter.Node {
		if n.IsError() || n.IsMissing() {
			return n
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if found := find(n.Child(i)); found != nil {
				return found
			}
		}
		return nil
	}
	bad := find(n)
	if bad == nil {
		return &SyntaxError{File: file, Message: "unspecified parse error"}
	}
	pt := bad.StartPoint()
	return &SyntaxError{File: file, Line: int(pt.Row) + 1, Column: int(pt.Column), Message: "unexpected or missing token near " + bad.Type()}
}

// walker carries the mutable state threaded through one file's recursive
// descent: the graph under construction, the original source bytes, and
// the active scope stack.
type walker struct {
	g     *Graph
	src   []byte
	file  string
	scope *ScopeStack
}

// ends is the set of open exit node ids a statement or statement-sequence
// leaves behind for whatever follows it to flow from. An empty slice means
// the spine is closed (return/raise/an unconditional break or continue).
type ends = []string

func (w *walker) span(n *sitter.Node) Span {
	start, end := n.StartPoint(), n.EndPoint()
	return Span{File: w.file, StartLine: int(start.Row) + 1, StartCol: int(start.Column), EndLine: int(end.Row) + 1, EndCol: int(end.Column)}
}

func (w *walker) idx(id string) int {
	return w.g.nodeIndex[id]
}

func (w *walker) attrs(id string) map[string]any {
	return w.g.Nodes[w.idx(id)].Attrs
}

func (w *walker) newNode(kind Kind, n *sitter.Node, scopeID, parentID string) string {
	sp := w.span(n)
	id := NodeID(kind, w.file, sp.StartLine, sp.StartCol, w.g.NextSeq())
	w.g.AddNode(Node{ID: id, Kind: kind, Span: sp, ParentID: parentID, ScopeID: scopeID, Attrs: map[string]any{}})
	return id
}

func (w *walker) text(n *sitter.Node) string {
	return n.Content(w.src)
}

// walkExprList walks every named child of n as an expression under parentID
// and returns their node ids, so callers can attach them to the statement
// node as a "*_ids" attr that ir.Descendants (and SSA's rename) will follow.
func (w *walker) walkExprList(n *sitter.Node, parentID, scopeID string) []string {
	ids := make([]string, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ids = append(ids, w.walkExpr(n.NamedChild(i), parentID, scopeID))
	}
	return ids
}

func (w *walker) linkAll(from ends, to, guardID string, typ EdgeType) {
	for _, f := range from {
		if f == "" || to == "" {
			continue
		}
		w.g.AddEdge(Edge{FromID: f, ToID: to, Type: typ, GuardID: guardID})
	}
}

// walkBody walks a block-like node's statements, linking ins into the first
// statement with firstType/guardID and chaining the rest with plain flow
// edges. Returns the open ends left after the last statement.
func (w *walker) walkBody(n *sitter.Node, parentID, scopeID string, ins ends, firstType EdgeType, guardID string) ends {
	if n == nil {
		return ins
	}
	cur := ins
	skipFirst := w.bodyHasDocstring(n) && IsDocstringSlot(w.g.Nodes[w.idx(parentID)].Kind)
	first := true
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		if i == 0 && skipFirst {
			continue
		}
		typ, gid := EdgeFlow, ""
		if first {
			typ, gid = firstType, guardID
			first = false
		}
		cur = w.walkStatement(n.NamedChild(i), parentID, scopeID, cur, typ, gid)
	}
	return cur
}

func (w *walker) bodyHasDocstring(n *sitter.Node) bool {
	if n.NamedChildCount() == 0 {
		return false
	}
	first := n.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return false
	}
	inner := first.NamedChild(0)
	return inner.Type() == "string" && looksLikeDocstring(w.text(inner))
}

// walkStatement dispatches on tree-sitter node type, emits one or more IR
// nodes/edges for the statement (linking ins in via inType/inGuard), and
// returns the open ends the next statement should flow from.
func (w *walker) walkStatement(n *sitter.Node, parentID, scopeID string, ins ends, inType EdgeType, inGuard string) ends {
	switch n.Type() {
	case "if_statement":
		return w.walkIf(n, parentID, scopeID, ins, inType, inGuard)
	case "while_statement":
		return w.walkWhile(n, parentID, scopeID, ins, inType, inGuard)
	case "for_statement":
		return w.walkFor(n, parentID, scopeID, ins, inType, inGuard)
	case "try_statement":
		return w.walkTry(n, parentID, scopeID, ins, inType, inGuard)
	case "with_statement":
		return w.walkWith(n, parentID, scopeID, ins, inType, inGuard)
	case "match_statement":
		return w.walkMatch(n, parentID, scopeID, ins, inType, inGuard)
	case "function_definition":
		return w.walkFunction(n, parentID, scopeID, ins, inType, inGuard)
	case "class_definition":
		return w.walkClass(n, parentID, scopeID, ins, inType, inGuard)
	case "decorated_definition":
		return w.walkDecorated(n, parentID, scopeID, ins, inType, inGuard)
	case "return_statement":
		id := w.newNode(KindReturn, n, scopeID, parentID)
		w.linkAll(ins, id, inGuard, inType)
		if n.NamedChildCount() > 0 {
			w.attrs(id)["value_id"] = w.walkExpr(n.NamedChild(0), id, scopeID)
		}
		return nil
	case "raise_statement":
		id := w.newNode(KindRaise, n, scopeID, parentID)
		w.linkAll(ins, id, inGuard, inType)
		w.attrs(id)["value_ids"] = w.walkExprList(n, id, scopeID)
		return nil
	case "break_statement":
		id := w.newNode(KindBreak, n, scopeID, parentID)
		w.linkAll(ins, id, inGuard, inType)
		return nil
	case "continue_statement":
		id := w.newNode(KindContinue, n, scopeID, parentID)
		w.linkAll(ins, id, inGuard, inType)
		return nil
	case "pass_statement":
		return ins
	case "assert_statement":
		id := w.newNode(KindAssert, n, scopeID, parentID)
		w.linkAll(ins, id, inGuard, inType)
		w.attrs(id)["value_ids"] = w.walkExprList(n, id, scopeID)
		return ends{id}
	case "delete_statement":
		id := w.newNode(KindDelete, n, scopeID, parentID)
		w.linkAll(ins, id, inGuard, inType)
		w.attrs(id)["value_ids"] = w.walkExprList(n, id, scopeID)
		return ends{id}
	case "import_statement", "import_from_statement":
		id := w.walkImport(n, parentID, scopeID)
		w.linkAll(ins, id, inGuard, inType)
		return ends{id}
	case "expression_statement":
		id := w.walkExpressionStatement(n, parentID, scopeID)
		w.linkAll(ins, id, inGuard, inType)
		return ends{id}
	case "global_statement", "nonlocal_statement":
		id := w.walkGlobalNonlocal(n, parentID, scopeID)
		w.linkAll(ins, id, inGuard, inType)
		return ends{id}
	default:
		id := w.unsupported(n, parentID, scopeID)
		w.linkAll(ins, id, inGuard, inType)
		return ends{id}
	}
}

func (w *walker) unsupported(n *sitter.Node, parentID, scopeID string) string {
	id := w.newNode(KindLiteral, n, scopeID, parentID)
	a := w.attrs(id)
	a["unsupported"] = true
	a["ast_type"] = n.Type()
	return id
}

func (w *walker) walkImport(n *sitter.Node, parentID, scopeID string) string {
	id := w.newNode(KindImport, n, scopeID, parentID)
	a := w.attrs(id)
	a["raw"] = w.text(n)
	if n.Type() == "import_from_statement" {
		if mod := n.ChildByFieldName("module_name"); mod != nil {
			a["module"] = w.text(mod)
		}
	}
	var names, aliases []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "dotted_name", "identifier", "wildcard_import":
			names = append(names, w.text(c))
			aliases = append(aliases, "")
		case "aliased_import":
			orig, alias := c.ChildByFieldName("name"), c.ChildByFieldName("alias")
			if orig != nil {
				names = append(names, w.text(orig))
			} else {
				names = append(names, "")
			}
			if alias != nil {
				aliases = append(aliases, w.text(alias))
			} else {
				aliases = append(aliases, "")
			}
		}
	}
	a["names"], a["aliases"] = names, aliases
	for i, name := range names {
		bind := name
		if aliases[i] != "" {
			bind = aliases[i]
		}
		if bind != "" {
			w.g.AddSymbolDef(bind, SymbolImport, scopeID, id)
		}
	}
	return id
}

func (w *walker) walkGlobalNonlocal(n *sitter.Node, parentID, scopeID string) string {
	id := w.newNode(KindAssign, n, scopeID, parentID)
	a := w.attrs(id)
	a["declares"] = n.Type()
	var names []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		names = append(names, w.text(n.NamedChild(i)))
	}
	a["names"] = names
	for _, name := range names {
		sym := w.g.AddSymbolDef(name, SymbolVar, scopeID, id)
		if n.Type() == "global_statement" {
			sym.IsGlobal = true
		} else {
			sym.IsNonlocal = true
		}
	}
	return id
}

func (w *walker) walkExpressionStatement(n *sitter.Node, parentID, scopeID string) string {
	if n.NamedChildCount() == 0 {
		return w.unsupported(n, parentID, scopeID)
	}
	inner := n.NamedChild(0)
	switch inner.Type() {
	case "assignment":
		return w.walkAssignment(inner, parentID, scopeID)
	case "augmented_assignment":
		return w.walkAugAssign(inner, parentID, scopeID)
	default:
		return w.walkExpr(inner, parentID, scopeID)
	}
}

func (w *walker) walkAssignment(n *sitter.Node, parentID, scopeID string) string {
	id := w.newNode(KindAssign, n, scopeID, parentID)
	left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
	if right != nil {
		w.attrs(id)["value_id"] = w.walkExpr(right, id, scopeID)
	}
	if left != nil {
		w.bindTargets(left, id, scopeID)
		w.attrs(id)["target_text"] = w.text(left)
	}
	return id
}

func (w *walker) walkAugAssign(n *sitter.Node, parentID, scopeID string) string {
	id := w.newNode(KindAssign, n, scopeID, parentID)
	a := w.attrs(id)
	a["augmented"] = true
	if op := n.ChildByFieldName("operator"); op != nil {
		a["op"] = w.text(op)
	}
	left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
	if right != nil {
		a["value_id"] = w.walkExpr(right, id, scopeID)
	}
	if left != nil {
		w.g.AddSymbolUse(w.text(left), SymbolVar, scopeID, id)
		w.bindTargets(left, id, scopeID)
		a["target_text"] = w.text(left)
	}
	return id
}

// bindTargets records symbol definitions for every identifier on the
// left-hand side of an assignment, including tuple/list unpacking targets.
func (w *walker) bindTargets(target *sitter.Node, defID, scopeID string) {
	switch target.Type() {
	case "identifier":
		w.g.AddSymbolDef(w.text(target), SymbolVar, scopeID, defID)
	case "attribute", "subscript":
		w.walkExpr(target, defID, scopeID)
	default:
		for i := 0; i < int(target.NamedChildCount()); i++ {
			w.bindTargets(target.NamedChild(i), defID, scopeID)
		}
	}
}

func (w *walker) walkIf(n *sitter.Node, parentID, scopeID string, ins ends, inType EdgeType, inGuard string) ends {
	id := w.newNode(KindIf, n, scopeID, parentID)
	w.linkAll(ins, id, inGuard, inType)

	cond := n.ChildByFieldName("condition")
	var condID string
	if cond != nil {
		condID = w.walkExpr(cond, id, scopeID)
		w.attrs(id)["condition_id"] = condID
	}

	var out ends
	thenEnds := w.walkBody(n.ChildByFieldName("consequence"), id, scopeID, ends{id}, EdgeTrue, condID)
	out = append(out, thenEnds...)

	sawElse := false
	prevID, prevCond := id, condID
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "elif_clause":
			elifID := w.newNode(KindIf, c, scopeID, id)
			w.linkAll(ends{prevID}, elifID, prevCond, EdgeFalse)
			var elifCondID string
			if ec := c.ChildByFieldName("condition"); ec != nil {
				elifCondID = w.walkExpr(ec, elifID, scopeID)
				w.attrs(elifID)["condition_id"] = elifCondID
			}
			elifEnds := w.walkBody(c.ChildByFieldName("consequence"), elifID, scopeID, ends{elifID}, EdgeTrue, elifCondID)
			out = append(out, elifEnds...)
			prevID, prevCond = elifID, elifCondID
		case "else_clause":
			sawElse = true
			elseEnds := w.walkBody(c.ChildByFieldName("body"), prevID, scopeID, ends{prevID}, EdgeFalse, prevCond)
			out = append(out, elseEnds...)
		}
	}
	if !sawElse {
		out = append(out, prevID)
	}
	return out
}

func (w *walker) walkWhile(n *sitter.Node, parentID, scopeID string, ins ends, inType EdgeType, inGuard string) ends {
	id := w.newNode(KindWhile, n, scopeID, parentID)
	w.linkAll(ins, id, inGuard, inType)
	var condID string
	if cond := n.ChildByFieldName("condition"); cond != nil {
		condID = w.walkExpr(cond, id, scopeID)
		w.attrs(id)["condition_id"] = condID
	}
	bodyEnds := w.walkBody(n.ChildByFieldName("body"), id, scopeID, ends{id}, EdgeTrue, condID)
	w.linkAll(bodyEnds, id, "", EdgeFlow) // loop back to the guard

	out := ends{id} // loop exit: the next statement is linked from the guard by a plain flow edge, not a false edge
	if elseClause := n.ChildByFieldName("alternative"); elseClause != nil {
		out = w.walkBody(elseClause.ChildByFieldName("body"), id, scopeID, ends{id}, EdgeFalse, condID)
	}
	return out
}

func (w *walker) walkFor(n *sitter.Node, parentID, scopeID string, ins ends, inType EdgeType, inGuard string) ends {
	id := w.newNode(KindFor, n, scopeID, parentID)
	w.linkAll(ins, id, inGuard, inType)
	if left := n.ChildByFieldName("left"); left != nil {
		w.bindTargets(left, id, scopeID)
		w.attrs(id)["target_text"] = w.text(left)
	}
	var iterID string
	if right := n.ChildByFieldName("right"); right != nil {
		iterID = w.walkExpr(right, id, scopeID)
		w.attrs(id)["iter_id"] = iterID
	}
	bodyEnds := w.walkBody(n.ChildByFieldName("body"), id, scopeID, ends{id}, EdgeTrue, id)
	w.linkAll(bodyEnds, id, "", EdgeFlow)

	out := ends{id}
	if elseClause := n.ChildByFieldName("alternative"); elseClause != nil {
		out = w.walkBody(elseClause.ChildByFieldName("body"), id, scopeID, ends{id}, EdgeFalse, id)
	}
	return out
}

func (w *walker) walkTry(n *sitter.Node, parentID, scopeID string, ins ends, inType EdgeType, inGuard string) ends {
	id := w.newNode(KindTry, n, scopeID, parentID)
	w.linkAll(ins, id, inGuard, inType)

	bodyEnds := w.walkBody(n.ChildByFieldName("body"), id, scopeID, ends{id}, EdgeFlow, "")

	var out ends
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "except_clause" {
			continue
		}
		handlerEnds := w.walkBody(c, id, scopeID, ends{id}, EdgeException, "")
		out = append(out, handlerEnds...)
	}

	elseEnds := bodyEnds
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "else_clause" {
			elseEnds = w.walkBody(c.ChildByFieldName("body"), id, scopeID, bodyEnds, EdgeFlow, "")
		}
	}
	out = append(out, elseEnds...)

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "finally_clause" {
			out = w.walkBody(c.ChildByFieldName("body"), id, scopeID, out, EdgeFlow, "")
		}
	}
	return out
}

func (w *walker) walkWith(n *sitter.Node, parentID, scopeID string, ins ends, inType EdgeType, inGuard string) ends {
	id := w.newNode(KindWith, n, scopeID, parentID)
	w.linkAll(ins, id, inGuard, inType)
	var valueIDs []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "with_clause" && c.Type() != "with_item" {
			continue
		}
		if val := c.ChildByFieldName("value"); val != nil {
			valueIDs = append(valueIDs, w.walkExpr(val, id, scopeID))
		}
		if alias := c.ChildByFieldName("alias"); alias != nil {
			w.bindTargets(alias, id, scopeID)
		}
	}
	w.attrs(id)["value_ids"] = valueIDs
	return w.walkBody(n.ChildByFieldName("body"), id, scopeID, ends{id}, EdgeFlow, "")
}

func (w *walker) walkMatch(n *sitter.Node, parentID, scopeID string, ins ends, inType EdgeType, inGuard string) ends {
	id := w.newNode(KindMatch, n, scopeID, parentID)
	w.linkAll(ins, id, inGuard, inType)
	if subj := n.ChildByFieldName("subject"); subj != nil {
		w.attrs(id)["subject_id"] = w.walkExpr(subj, id, scopeID)
	}
	var out ends
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "case_clause" {
			continue
		}
		caseEnds := w.walkBody(c.ChildByFieldName("consequence"), id, scopeID, ends{id}, EdgeTrue, id)
		out = append(out, caseEnds...)
	}
	if len(out) == 0 {
		out = ends{id}
	}
	return out
}

func (w *walker) walkFunction(n *sitter.Node, parentID, scopeID string, ins ends, inType EdgeType, inGuard string) ends {
	id := w.newNode(KindFunction, n, scopeID, parentID)
	w.linkAll(ins, id, inGuard, inType)
	name := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = w.text(nameNode)
		w.g.AddSymbolDef(name, SymbolFunction, scopeID, id)
	}
	w.attrs(id)["name"] = name
	w.attrs(id)["is_async"] = n.Type() == "function_definition" && hasAsyncKeyword(n)

	fnScope := w.scope.PushNamed(name)
	if params := n.ChildByFieldName("parameters"); params != nil {
		w.walkParameters(params, id, fnScope)
	}
	w.walkBody(n.ChildByFieldName("body"), id, fnScope, ends{id}, EdgeFlow, "")
	w.scope.Pop()
	return ends{id}
}

func hasAsyncKeyword(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "async" {
			return true
		}
	}
	return false
}

func (w *walker) walkParameters(params *sitter.Node, fnID, fnScope string) {
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "identifier":
			w.g.AddSymbolDef(w.text(p), SymbolParam, fnScope, fnID)
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			if name := p.ChildByFieldName("name"); name != nil {
				w.g.AddSymbolDef(w.text(name), SymbolParam, fnScope, fnID)
			} else if p.NamedChildCount() > 0 && p.NamedChild(0).Type() == "identifier" {
				w.g.AddSymbolDef(w.text(p.NamedChild(0)), SymbolParam, fnScope, fnID)
			}
			if def := p.ChildByFieldName("value"); def != nil {
				w.walkExpr(def, fnID, fnScope)
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			if p.NamedChildCount() > 0 {
				w.g.AddSymbolDef(w.text(p.NamedChild(0)), SymbolParam, fnScope, fnID)
			}
		}
	}
}

func (w *walker) walkClass(n *sitter.Node, parentID, scopeID string, ins ends, inType EdgeType, inGuard string) ends {
	id := w.newNode(KindClass, n, scopeID, parentID)
	w.linkAll(ins, id, inGuard, inType)
	name := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = w.text(nameNode)
		w.g.AddSymbolDef(name, SymbolClass, scopeID, id)
	}
	w.attrs(id)["name"] = name
	if bases := n.ChildByFieldName("superclasses"); bases != nil {
		w.attrs(id)["bases"] = w.text(bases)
	}

	classScope := w.scope.PushNamed(name)
	w.walkBody(n.ChildByFieldName("body"), id, classScope, ends{id}, EdgeFlow, "")
	w.scope.Pop()
	return ends{id}
}

// walkDecorated unrolls each decorator into its own Call node preceding the
// Function/Class node it wraps, matching the order the runtime actually
// evaluates them in (decorators run top-to-bottom, wrapping bottom-up).
func (w *walker) walkDecorated(n *sitter.Node, parentID, scopeID string, ins ends, inType EdgeType, inGuard string) ends {
	cur := ins
	curType, curGuard := inType, inGuard
	var defNode *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "decorator" {
			decID := w.newNode(KindCall, c, scopeID, parentID)
			if c.NamedChildCount() > 0 {
				w.attrs(decID)["callee_id"] = w.walkExpr(c.NamedChild(0), decID, scopeID)
			}
			w.attrs(decID)["is_decorator"] = true
			w.linkAll(cur, decID, curGuard, curType)
			cur, curType, curGuard = ends{decID}, EdgeFlow, ""
			continue
		}
		defNode = c
	}
	if defNode == nil {
		return cur
	}
	return w.walkStatement(defNode, parentID, scopeID, cur, curType, curGuard)
}
