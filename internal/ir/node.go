package ir

import "fmt"

// Kind is the IR node discriminant. Kept as a plain string type so it reads
// directly off the wire in the JSONL graph cache without a lookup table.
type Kind string

const (
	KindModule     Kind = "Module"
	KindFunction   Kind = "Function"
	KindClass      Kind = "Class"
	KindBlock      Kind = "Block"
	KindIf         Kind = "If"
	KindWhile      Kind = "While"
	KindFor        Kind = "For"
	KindTry        Kind = "Try"
	KindWith       Kind = "With"
	KindMatch      Kind = "Match"
	KindReturn     Kind = "Return"
	KindRaise      Kind = "Raise"
	KindBreak      Kind = "Break"
	KindContinue   Kind = "Continue"
	KindAssign     Kind = "Assign"
	KindDelete     Kind = "Delete"
	KindAssert     Kind = "Assert"
	KindImport     Kind = "Import"
	KindCall       Kind = "Call"
	KindName       Kind = "Name"
	KindLiteral    Kind = "Literal"
	KindAttribute  Kind = "Attribute"
	KindSubscript  Kind = "Subscript"
	KindBinOp      Kind = "BinOp"
	KindBoolOp     Kind = "BoolOp"
	KindUnaryOp    Kind = "UnaryOp"
	KindCompare    Kind = "Compare"
	KindLambda     Kind = "Lambda"
	KindIfExp      Kind = "IfExp"
	KindNamedExpr  Kind = "NamedExpr"
	KindAwait      Kind = "Await"
	KindYield      Kind = "Yield"
)

// ModuleScopeID is the root scope every top-level symbol resolves against.
const ModuleScopeID = "scope:module"

// Node is one vertex in the IR graph. Attrs is a heterogeneous bag of
// kind-specific fields (e.g. "name", "callee_id", "value_id", "tags").
type Node struct {
	ID       string         `json:"id"`
	Kind     Kind           `json:"kind"`
	Span     Span           `json:"span"`
	ParentID string         `json:"parent_id,omitempty"`
	ScopeID  string         `json:"scope_id,omitempty"`
	Attrs    map[string]any `json:"attrs"`
}

// NodeID builds the stable "{kind}:{file}:{line}:{col}:{seq}" identifier.
func NodeID(kind Kind, file string, line, col, seq int) string {
	return fmt.Sprintf("%s:%s:%d:%d:%d", kind, file, line, col, seq)
}

// Tags returns the node's "tags" attr as a string slice, or nil.
func (n *Node) Tags() []string {
	raw, ok := n.Attrs["tags"]
	if !ok {
		return nil
	}
	tags, ok := raw.([]string)
	if !ok {
		return nil
	}
	return tags
}

// AddTag appends tag to the node's tag list if not already present.
func (n *Node) AddTag(tag string) {
	existing, _ := n.Attrs["tags"].([]string)
	for _, t := range existing {
		if t == tag {
			return
		}
	}
	n.Attrs["tags"] = append(existing, tag)
}

// HasTag reports whether tag is present on the node.
func (n *Node) HasTag(tag string) bool {
	for _, t := range n.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}
