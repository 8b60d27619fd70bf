package taint

import "github.com/nsss/nsss/internal/ir"

// Flow is one tainted source-to-sink path, with full version provenance.
type Flow struct {
	Source   string
	Sink     string
	Path     []string
	Implicit bool
	SinkSpan ir.Span
}
