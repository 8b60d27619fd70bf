package ir

// SymbolKind enumerates the binding kinds tracked by the symbol table.
type SymbolKind string

const (
	SymbolVar      SymbolKind = "var"
	SymbolParam    SymbolKind = "param"
	SymbolImport   SymbolKind = "import"
	SymbolClass    SymbolKind = "class"
	SymbolFunction SymbolKind = "function"
)

// Symbol is uniquely keyed by (ScopeID, Name). Comprehensions introduce a
// nested synthetic scope; bindings made inside a comprehension scope never
// leak into the enclosing one.
type Symbol struct {
	Name       string     `json:"name"`
	Kind       SymbolKind `json:"kind"`
	ScopeID    string     `json:"scope_id"`
	Defs       []string   `json:"defs,omitempty"`
	Uses       []string   `json:"uses,omitempty"`
	IsGlobal   bool       `json:"is_global,omitempty"`
	IsNonlocal bool       `json:"is_nonlocal,omitempty"`
}

// symbolKey is the in-memory lookup key for the symbol table.
type symbolKey struct {
	scopeID string
	name    string
}
