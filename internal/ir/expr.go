package ir

import sitter "github.com/smacker/go-tree-sitter"

// walkExpr recursively builds IR for an expression subtree and returns the
// id of the node representing its value. Nested expression nodes get no
// flow edges; they are referenced from their owning node via attrs (e.g.
// "value_id", "callee_id", "arg_ids"). Only the top node of an expression
// statement is linked into the flow spine, by walkStatement.
func (w *walker) walkExpr(n *sitter.Node, parentID, scopeID string) string {
	switch n.Type() {
	case "call":
		return w.walkCall(n, parentID, scopeID)
	case "identifier":
		id := w.newNode(KindName, n, scopeID, parentID)
		name := w.text(n)
		w.attrs(id)["name"] = name
		w.g.AddSymbolUse(name, SymbolVar, scopeID, id)
		return id
	case "attribute":
		id := w.newNode(KindAttribute, n, scopeID, parentID)
		if obj := n.ChildByFieldName("object"); obj != nil {
			w.attrs(id)["object_id"] = w.walkExpr(obj, id, scopeID)
		}
		if attr := n.ChildByFieldName("attribute"); attr != nil {
			w.attrs(id)["attr"] = w.text(attr)
		}
		return id
	case "subscript":
		id := w.newNode(KindSubscript, n, scopeID, parentID)
		if obj := n.ChildByFieldName("value"); obj != nil {
			w.attrs(id)["object_id"] = w.walkExpr(obj, id, scopeID)
		}
		if sub := n.ChildByFieldName("subscript"); sub != nil {
			w.attrs(id)["index_id"] = w.walkExpr(sub, id, scopeID)
		}
		return id
	case "binary_operator":
		id := w.newNode(KindBinOp, n, scopeID, parentID)
		if op := n.ChildByFieldName("operator"); op != nil {
			w.attrs(id)["op"] = w.text(op)
		}
		if l := n.ChildByFieldName("left"); l != nil {
			w.attrs(id)["left_id"] = w.walkExpr(l, id, scopeID)
		}
		if r := n.ChildByFieldName("right"); r != nil {
			w.attrs(id)["right_id"] = w.walkExpr(r, id, scopeID)
		}
		return id
	case "boolean_operator":
		id := w.newNode(KindBoolOp, n, scopeID, parentID)
		if op := n.ChildByFieldName("operator"); op != nil {
			w.attrs(id)["op"] = w.text(op)
		}
		if l := n.ChildByFieldName("left"); l != nil {
			w.attrs(id)["left_id"] = w.walkExpr(l, id, scopeID)
		}
		if r := n.ChildByFieldName("right"); r != nil {
			w.attrs(id)["right_id"] = w.walkExpr(r, id, scopeID)
		}
		return id
	case "not_operator", "unary_operator":
		id := w.newNode(KindUnaryOp, n, scopeID, parentID)
		if arg := n.ChildByFieldName("argument"); arg != nil {
			w.attrs(id)["operand_id"] = w.walkExpr(arg, id, scopeID)
		} else if n.NamedChildCount() > 0 {
			w.attrs(id)["operand_id"] = w.walkExpr(n.NamedChild(0), id, scopeID)
		}
		if op := n.ChildByFieldName("operator"); op != nil {
			w.attrs(id)["op"] = w.text(op)
		}
		return id
	case "comparison_operator":
		id := w.newNode(KindCompare, n, scopeID, parentID)
		var operandIDs []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			operandIDs = append(operandIDs, w.walkExpr(n.NamedChild(i), id, scopeID))
		}
		w.attrs(id)["operand_ids"] = operandIDs
		return id
	case "lambda":
		id := w.newNode(KindLambda, n, scopeID, parentID)
		lamScope := w.scope.PushNamed("lambda")
		if params := n.ChildByFieldName("parameters"); params != nil {
			w.walkParameters(params, id, lamScope)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			w.attrs(id)["body_id"] = w.walkExpr(body, id, lamScope)
		}
		w.scope.Pop()
		return id
	case "conditional_expression":
		id := w.newNode(KindIfExp, n, scopeID, parentID)
		children := namedChildren(n)
		if len(children) == 3 {
			w.attrs(id)["then_id"] = w.walkExpr(children[0], id, scopeID)
			w.attrs(id)["cond_id"] = w.walkExpr(children[1], id, scopeID)
			w.attrs(id)["else_id"] = w.walkExpr(children[2], id, scopeID)
		}
		return id
	case "named_expression":
		id := w.newNode(KindNamedExpr, n, scopeID, parentID)
		if name := n.ChildByFieldName("name"); name != nil {
			w.bindTargets(name, id, scopeID)
			w.attrs(id)["target_text"] = w.text(name)
		}
		if val := n.ChildByFieldName("value"); val != nil {
			w.attrs(id)["value_id"] = w.walkExpr(val, id, scopeID)
		}
		return id
	case "await":
		id := w.newNode(KindAwait, n, scopeID, parentID)
		if n.NamedChildCount() > 0 {
			w.attrs(id)["operand_id"] = w.walkExpr(n.NamedChild(0), id, scopeID)
		}
		return id
	case "yield":
		id := w.newNode(KindYield, n, scopeID, parentID)
		if n.NamedChildCount() > 0 {
			w.attrs(id)["operand_id"] = w.walkExpr(n.NamedChild(0), id, scopeID)
		}
		return id
	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			return w.walkExpr(n.NamedChild(0), parentID, scopeID)
		}
		return w.unsupported(n, parentID, scopeID)
	case "list", "set", "tuple", "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		return w.walkCollection(n, parentID, scopeID)
	case "dictionary":
		return w.walkDict(n, parentID, scopeID)
	case "string", "concatenated_string":
		id := w.newNode(KindLiteral, n, scopeID, parentID)
		BuildStringLiteralAttrs(w.attrs(id), stringLiteralValue(w, n))
		return id
	case "integer", "float":
		id := w.newNode(KindLiteral, n, scopeID, parentID)
		a := w.attrs(id)
		a["literal_kind"] = n.Type()
		a["value"] = w.text(n)
		return id
	case "true", "false":
		id := w.newNode(KindLiteral, n, scopeID, parentID)
		a := w.attrs(id)
		a["literal_kind"] = "bool"
		a["value"] = n.Type() == "true"
		return id
	case "none":
		id := w.newNode(KindLiteral, n, scopeID, parentID)
		w.attrs(id)["literal_kind"] = "none"
		return id
	case "keyword_argument":
		id := w.newNode(KindAssign, n, scopeID, parentID)
		a := w.attrs(id)
		a["keyword_argument"] = true
		if name := n.ChildByFieldName("name"); name != nil {
			a["target_text"] = w.text(name)
		}
		if val := n.ChildByFieldName("value"); val != nil {
			a["value_id"] = w.walkExpr(val, id, scopeID)
		}
		return id
	case "list_splat", "dictionary_splat":
		id := w.newNode(KindUnaryOp, n, scopeID, parentID)
		a := w.attrs(id)
		a["op"] = n.Type()
		a["keyword_expansion"] = true
		if n.NamedChildCount() > 0 {
			a["operand_id"] = w.walkExpr(n.NamedChild(0), id, scopeID)
		}
		return id
	default:
		return w.unsupported(n, parentID, scopeID)
	}
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// stringLiteralValue returns the raw source text of a Python string (or
// implicit string-concatenation) node: quotes and prefixes are kept and
// escape sequences are not decoded.
func stringLiteralValue(w *walker, n *sitter.Node) string {
	return w.text(n)
}

// walkCall builds a Call node, resolving its callee and argument list.
// Arguments are stored as an attrs["arg_ids"] slice so the alias resolver
// and dynamic-area tagger can inspect the callee without re-walking
// children.
func (w *walker) walkCall(n *sitter.Node, parentID, scopeID string) string {
	id := w.newNode(KindCall, n, scopeID, parentID)
	a := w.attrs(id)
	if fn := n.ChildByFieldName("function"); fn != nil {
		a["callee_id"] = w.walkExpr(fn, id, scopeID)
		a["callee_text"] = w.text(fn)
	}
	var argIDs []string
	hasKeywordExpansion := false
	if args := n.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			arg := args.NamedChild(i)
			if arg.Type() == "dictionary_splat" {
				hasKeywordExpansion = true
			}
			argIDs = append(argIDs, w.walkExpr(arg, id, scopeID))
		}
	}
	a["arg_ids"] = argIDs
	a["has_keyword_expansion"] = hasKeywordExpansion
	return id
}

func (w *walker) walkCollection(n *sitter.Node, parentID, scopeID string) string {
	id := w.newNode(KindLiteral, n, scopeID, parentID)
	a := w.attrs(id)
	a["literal_kind"] = n.Type()

	if isComprehension(n.Type()) {
		compScope := w.scope.PushComprehension()
		var elemIDs []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "for_in_clause" {
				w.walkForInClause(c, id, compScope)
				continue
			}
			if c.Type() == "if_clause" {
				if c.NamedChildCount() > 0 {
					w.walkExpr(c.NamedChild(0), id, compScope)
				}
				continue
			}
			elemIDs = append(elemIDs, w.walkExpr(c, id, compScope))
		}
		a["element_ids"] = elemIDs
		w.scope.Pop()
		return id
	}

	var elemIDs []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		elemIDs = append(elemIDs, w.walkExpr(n.NamedChild(i), id, scopeID))
	}
	a["element_ids"] = elemIDs
	return id
}

func isComprehension(t string) bool {
	switch t {
	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		return true
	}
	return false
}

func (w *walker) walkForInClause(n *sitter.Node, parentID, scopeID string) {
	if left := n.ChildByFieldName("left"); left != nil {
		w.bindTargets(left, parentID, scopeID)
	}
	if right := n.ChildByFieldName("right"); right != nil {
		w.walkExpr(right, parentID, scopeID)
	}
}

func (w *walker) walkDict(n *sitter.Node, parentID, scopeID string) string {
	id := w.newNode(KindLiteral, n, scopeID, parentID)
	a := w.attrs(id)
	a["literal_kind"] = "dictionary"
	var pairIDs []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "pair" {
			pairIDs = append(pairIDs, w.walkExpr(c, id, scopeID))
			continue
		}
		pairID := w.newNode(KindAssign, c, scopeID, id)
		pa := w.attrs(pairID)
		if k := c.ChildByFieldName("key"); k != nil {
			pa["key_id"] = w.walkExpr(k, pairID, scopeID)
		}
		if v := c.ChildByFieldName("value"); v != nil {
			pa["value_id"] = w.walkExpr(v, pairID, scopeID)
		}
		pairIDs = append(pairIDs, pairID)
	}
	a["element_ids"] = pairIDs
	return id
}
