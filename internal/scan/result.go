package scan

import (
	"github.com/nsss/nsss/internal/baseline"
	"github.com/nsss/nsss/internal/cfg"
	"github.com/nsss/nsss/internal/ir"
	"github.com/nsss/nsss/internal/risk"
	"github.com/nsss/nsss/internal/ssa"
	"github.com/nsss/nsss/internal/taint"
)

// FileResult is the per-file result record handed to reporters. Keys are
// left at their zero value when the corresponding stage was disabled or
// failed; Errors records why.
type FileResult struct {
	File string

	IR    *ir.Graph
	CFG   map[string]*cfg.Graph
	SSA   map[string]*ssa.SSA
	Flows []taint.Flow

	RankerOutput risk.Output
	Routing      risk.Plan

	// Secrets and MaskedCode are populated only by out-of-scope
	// collaborators (a secret scanner, a privacy masker); the core never
	// sets them itself.
	Secrets    []string
	MaskedCode string

	NewFindings     []baseline.Finding
	BaselineSummary baseline.Summary

	Errors []*StageError
}

// Result is the across-file scan result: one FileResult per analyzed file,
// plus whether any new (non-baselined) finding survived — the process
// exit code signal.
type Result struct {
	Files        []FileResult
	HasNewFinding bool
}
