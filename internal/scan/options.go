// Package scan orchestrates the per-file pipeline (parse → IR → CFG → SSA →
// taint → rank → route → baseline) and drives it across a file set in
// parallel.
package scan

import (
	"github.com/viant/afs"
	"go.uber.org/zap"

	"github.com/nsss/nsss/internal/baseline"
	"github.com/nsss/nsss/internal/persistence"
	"github.com/nsss/nsss/internal/risk"
	"github.com/nsss/nsss/internal/taint"
)

// Options configures an Orchestrator. The zero value is not usable; build
// one with NewOptions and the With* functional options.
type Options struct {
	EmitIR bool
	// StripDocstrings and StripComments are not read by the Orchestrator:
	// ir.Builder always blanks comments and drops docstrings.
	StripDocstrings bool
	StripComments   bool
	TagDynamic      bool
	ResolveAliases  bool
	Concurrency     int
	TaintConfig     *taint.Configuration
	Ranker          *risk.Ranker
	Router          *risk.Router
	Baseline        *baseline.Engine
	Persistence     *persistence.Service
	FS              afs.Service
	Logger          *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Options)

// NewOptions builds the default Options: full pipeline enabled, four
// across-file workers, no taint config (meaning no flows are ever tainted — callers must configure one).
func NewOptions(opts ...Option) *Options {
	o := &Options{
		EmitIR:          true,
		StripDocstrings: true,
		StripComments:   true,
		TagDynamic:      true,
		ResolveAliases:  true,
		Concurrency:     4,
		Ranker:          risk.NewRanker(),
		Router:          risk.NewRouter(),
		Logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithConcurrency sets the across-file worker count.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithTaintConfig sets the source/sink/sanitizer name lists.
func WithTaintConfig(cfg *taint.Configuration) Option {
	return func(o *Options) { o.TaintConfig = cfg }
}

// WithRanker overrides the default Ranker.
func WithRanker(r *risk.Ranker) Option {
	return func(o *Options) { o.Ranker = r }
}

// WithRouter overrides the default Router.
func WithRouter(r *risk.Router) Option {
	return func(o *Options) { o.Router = r }
}

// WithBaseline attaches a baseline store; nil (the default) disables
// baseline filtering and every finding is reported as new.
func WithBaseline(e *baseline.Engine) Option {
	return func(o *Options) { o.Baseline = e }
}

// WithPersistence attaches a graph cache; nil (the default) disables
// caching and every file is re-parsed.
func WithPersistence(p *persistence.Service) Option {
	return func(o *Options) { o.Persistence = p }
}

// WithFS overrides the afs.Service used for source reads.
func WithFS(fs afs.Service) Option {
	return func(o *Options) { o.FS = fs }
}

// WithLogger overrides the logger (zap.NewNop() by default).
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithPipeline sets the IR emission, docstring/comment stripping, tagging
// and alias-resolution flags in one call. EmitIR, TagDynamic and
// ResolveAliases switch their stages on or off; the two stripping flags are
// stored but do not change the pipeline, since ir.Builder always blanks
// comments and drops docstrings.
func WithPipeline(emitIR, stripDocstrings, stripComments, tagDynamic, resolveAliases bool) Option {
	return func(o *Options) {
		o.EmitIR = emitIR
		o.StripDocstrings = stripDocstrings
		o.StripComments = stripComments
		o.TagDynamic = tagDynamic
		o.ResolveAliases = resolveAliases
	}
}
