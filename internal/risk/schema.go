// Package risk scores taint flows (the ranker) and decides where each
// finding should be handled next (the router).
package risk

// Level is the five-plus-unknown risk tier a flow is bucketed into.
type Level string

const (
	LevelCritical Level = "CRITICAL"
	LevelHigh     Level = "HIGH"
	LevelMedium   Level = "MEDIUM"
	LevelLow      Level = "LOW"
	LevelSafe     Level = "SAFE"
	LevelUnknown  Level = "UNKNOWN"
)

// Signal is one weighted contribution to a flow's risk score.
type Signal struct {
	Name      string
	Weight    float64
	Score     float64
	Rationale string
}

// Score is the final verdict for one flow (or the file-level rollup).
type Score struct {
	Level        Level
	RiskScore    float64
	Confidence   float64
	IsVulnerable bool
	Summary      string
}

// Item is one ranked taint flow, with the signals that produced its score.
type Item struct {
	CheckID  string
	Path     string
	Line     int
	Column   int
	Risk     Score
	Signals  []Signal
	Metadata map[string]any
}

// Output is the ranker's result for one file: every scored flow plus the
// file-level rollup (the highest-scoring flow's score, or zero value if
// there were no flows).
type Output struct {
	Version string
	Items   []Item
	Overall *Score
}
