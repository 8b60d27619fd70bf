package risk

// Target is where a ranked finding gets handled next.
type Target string

const (
	TargetLLM   Target = "LLM"
	TargetRules Target = "RULES"
)

// Decision is the routing verdict for one ranked item (or the file rollup).
type Decision struct {
	Target     Target
	Level      Level
	RiskScore  float64
	Confidence float64
	CheckID    string
	Rationale  string
}

// Plan is the per-item routing output plus the file-level decision mirroring
// the ranker's overall score.
type Plan struct {
	Items   []Decision
	Overall *Decision
}

var defaultLLMLevels = map[Level]bool{LevelCritical: true, LevelHigh: true}

// Router maps a ranked item's level to LLM or RULES handling.
type Router struct {
	llmLevels map[Level]bool
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLLMLevels overrides which risk levels route to the LLM target.
func WithLLMLevels(levels ...Level) RouterOption {
	return func(r *Router) {
		set := make(map[Level]bool, len(levels))
		for _, l := range levels {
			set[l] = true
		}
		r.llmLevels = set
	}
}

// NewRouter builds a Router that routes CRITICAL/HIGH findings to the LLM
// target and everything else to RULES, unless overridden.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{llmLevels: defaultLLMLevels}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route produces a routing plan mirroring the ranker output's per-item and
// overall scores.
func (r *Router) Route(output Output) Plan {
	items := make([]Decision, 0, len(output.Items))
	for _, item := range output.Items {
		items = append(items, r.decide(item.Risk, item.CheckID))
	}
	plan := Plan{Items: items}
	if output.Overall != nil {
		d := r.decide(*output.Overall, "")
		plan.Overall = &d
	}
	return plan
}

func (r *Router) decide(score Score, checkID string) Decision {
	target := TargetRules
	rationale := "Low-risk finding; keep rule-based handling."
	if r.llmLevels[score.Level] {
		target = TargetLLM
		rationale = "High-risk finding; route to LLM."
	}
	return Decision{
		Target:     target,
		Level:      score.Level,
		RiskScore:  score.RiskScore,
		Confidence: score.Confidence,
		CheckID:    checkID,
		Rationale:  rationale,
	}
}
