package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/nsss/nsss/internal/taint"
)

var defaultSourceSensitivity = map[string]float64{
	"secret": 1.0, "password": 1.0, "token": 0.95, "key": 0.9,
	"credential": 0.9, "private": 0.85, "ssn": 1.0, "credit": 1.0,
	"card": 1.0, "pii": 0.8,
}

var defaultSinkSensitivity = map[string]float64{
	"exec": 1.0, "eval": 1.0, "system": 1.0, "subprocess": 0.95,
	"pickle": 0.85, "yaml.load": 0.85, "sql": 0.8, "query": 0.75,
	"open": 0.6, "write": 0.6, "send": 0.6, "http": 0.6, "request": 0.6,
	"print": 0.4, "sink": 0.4,
}

var defaultSignalWeights = map[string]float64{
	"source_sensitivity": 0.35,
	"sink_sensitivity":   0.25,
	"path_length":        0.25,
	"implicit_flow":      0.15,
}

const maxPathLength = 7

// Ranker scores taint flows against sensitivity tables and normalized
// signal weights. The zero value is not usable; build one with NewRanker.
type Ranker struct {
	sourceSensitivity map[string]float64
	sinkSensitivity   map[string]float64
	weights           map[string]float64
}

// RankerOption configures a Ranker's sensitivity tables or signal weights.
type RankerOption func(*Ranker)

// WithSourceSensitivity overrides the substring-keyed source sensitivity table.
func WithSourceSensitivity(m map[string]float64) RankerOption {
	return func(r *Ranker) { r.sourceSensitivity = m }
}

// WithSinkSensitivity overrides the substring-keyed sink sensitivity table.
func WithSinkSensitivity(m map[string]float64) RankerOption {
	return func(r *Ranker) { r.sinkSensitivity = m }
}

// WithWeights overrides the signal weight table; weights renormalize to sum
// to 1 (falling back to the defaults if the sum is non-positive).
func WithWeights(m map[string]float64) RankerOption {
	return func(r *Ranker) { r.weights = normalizeWeights(m) }
}

// NewRanker builds a Ranker with the default sensitivity tables and weights,
// applying any options on top.
func NewRanker(opts ...RankerOption) *Ranker {
	r := &Ranker{
		sourceSensitivity: defaultSourceSensitivity,
		sinkSensitivity:   defaultSinkSensitivity,
		weights:           normalizeWeights(defaultSignalWeights),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores every flow and computes the file-level rollup.
func (r *Ranker) Rank(flows []taint.Flow) Output {
	items := make([]Item, 0, len(flows))
	for _, flow := range flows {
		items = append(items, r.scoreFlow(flow))
	}
	return Output{Version: "1.0", Items: items, Overall: computeOverall(items)}
}

func (r *Ranker) scoreFlow(flow taint.Flow) Item {
	pathLength := len(flow.Path)
	if pathLength == 0 {
		pathLength = 1
	}

	sourceScore := matchSensitivity(flow.Source, r.sourceSensitivity)
	sinkScore := matchSensitivity(flow.Sink, r.sinkSensitivity)
	pathScore := scorePathLength(pathLength)
	implicitScore := 0.0
	if flow.Implicit {
		implicitScore = 1.0
	}

	signals := []Signal{
		{Name: "source_sensitivity", Weight: r.weights["source_sensitivity"], Score: sourceScore, Rationale: fmt.Sprintf("Matched source %q.", flow.Source)},
		{Name: "sink_sensitivity", Weight: r.weights["sink_sensitivity"], Score: sinkScore, Rationale: fmt.Sprintf("Matched sink %q.", flow.Sink)},
		{Name: "path_length", Weight: r.weights["path_length"], Score: pathScore, Rationale: fmt.Sprintf("Path length %d.", pathLength)},
		{Name: "implicit_flow", Weight: r.weights["implicit_flow"], Score: implicitScore, Rationale: implicitRationale(flow.Implicit)},
	}

	weighted := 0.0
	for _, s := range signals {
		weighted += s.Weight * s.Score
	}
	riskScore := round2(weighted * 100.0)
	confidence := scoreConfidence(pathLength, flow.Implicit)
	level := riskLevel(riskScore)

	score := Score{
		Level:        level,
		RiskScore:    riskScore,
		Confidence:   confidence,
		IsVulnerable: riskScore >= 50.0,
		Summary:      fmt.Sprintf("%s -> %s", flow.Source, flow.Sink),
	}

	metadata := map[string]any{
		"source":      flow.Source,
		"sink":        flow.Sink,
		"path":        flow.Path,
		"path_length": pathLength,
		"implicit":    flow.Implicit,
	}

	return Item{CheckID: "TAINT_FLOW", Risk: score, Signals: signals, Metadata: metadata}
}

func implicitRationale(implicit bool) string {
	if implicit {
		return "Implicit flow detected."
	}
	return "Explicit flow."
}

func scorePathLength(pathLength int) float64 {
	if pathLength <= 2 {
		return 1.0
	}
	if pathLength >= maxPathLength {
		return 0.1
	}
	decay := float64(pathLength-2) / float64(maxPathLength-2)
	return math.Max(0.1, 1.0-decay)
}

func scoreConfidence(pathLength int, implicit bool) float64 {
	base := 0.6
	lengthBonus := math.Min(0.25, 0.05*float64(pathLength))
	implicitBonus := 0.0
	if implicit {
		implicitBonus = 0.05
	}
	return math.Min(1.0, base+lengthBonus+implicitBonus)
}

// matchSensitivity picks the highest-scoring substring match against value
// (lowercased), falling back to a base score of 0.3 with no hits. Table
// iteration is sorted for deterministic output across runs.
func matchSensitivity(value string, table map[string]float64) float64 {
	lower := strings.ToLower(value)
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := 0.3
	for _, key := range keys {
		if strings.Contains(lower, key) {
			if table[key] > best {
				best = table[key]
			}
		}
	}
	return best
}

func riskLevel(score float64) Level {
	switch {
	case score >= 85.0:
		return LevelCritical
	case score >= 70.0:
		return LevelHigh
	case score >= 50.0:
		return LevelMedium
	case score >= 30.0:
		return LevelLow
	default:
		return LevelSafe
	}
}

func computeOverall(items []Item) *Score {
	if len(items) == 0 {
		return nil
	}
	top := items[0]
	for _, it := range items[1:] {
		if it.Risk.RiskScore > top.Risk.RiskScore {
			top = it
		}
	}
	return &Score{
		Level:        top.Risk.Level,
		RiskScore:    top.Risk.RiskScore,
		Confidence:   top.Risk.Confidence,
		IsVulnerable: top.Risk.IsVulnerable,
		Summary:      "Highest risk taint flow.",
	}
}

func normalizeWeights(weights map[string]float64) map[string]float64 {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		weights = defaultSignalWeights
		total = 0
		for _, w := range weights {
			total += w
		}
	}
	out := make(map[string]float64, len(weights))
	for k, w := range weights {
		out[k] = w / total
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
