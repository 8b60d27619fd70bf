package scan

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nsss/nsss/internal/baseline"
	"github.com/nsss/nsss/internal/cfg"
	"github.com/nsss/nsss/internal/ir"
	"github.com/nsss/nsss/internal/ir/alias"
	"github.com/nsss/nsss/internal/ir/dyntag"
	"github.com/nsss/nsss/internal/ssa"
	"github.com/nsss/nsss/internal/taint"
)

// Orchestrator drives the per-file pipeline (parse → IR → CFG → SSA → taint
// → rank → route → baseline) synchronously within a file, and fans out
// across files with a bounded worker pool.
type Orchestrator struct {
	opts *Options
}

// NewOrchestrator builds an Orchestrator from opts (see NewOptions).
func NewOrchestrator(opts *Options) *Orchestrator {
	if opts == nil {
		opts = NewOptions()
	}
	return &Orchestrator{opts: opts}
}

// Run analyzes every file under projectRoot, honoring ctx cancellation
// cooperatively at file boundaries.
func (o *Orchestrator) Run(ctx context.Context, projectRoot string, files []string) (*Result, error) {
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = o.runFile(gctx, projectRoot, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Files: results}
	for _, fr := range results {
		if len(fr.NewFindings) > 0 {
			result.HasNewFinding = true
			break
		}
	}
	return result, nil
}

func (o *Orchestrator) runFile(ctx context.Context, projectRoot, file string) FileResult {
	fr := FileResult{File: file}
	logger := o.opts.Logger.With(zap.String("file", file))

	source, err := o.opts.FS.DownloadWithURL(ctx, file)
	if err != nil {
		fr.Errors = append(fr.Errors, newStageError(StageParse, file, err, true))
		logger.Error("read failed", zap.Error(err))
		return fr
	}

	g, err := ir.NewBuilder().Build(ctx, file, string(source))
	if err != nil {
		fr.Errors = append(fr.Errors, newStageError(StageParse, file, err, true))
		logger.Error("parse failed", zap.Error(err))
		return fr
	}
	logger.Debug("ir built", zap.Int("nodes", len(g.Nodes)), zap.Int("edges", len(g.Edges)))

	if o.opts.TagDynamic {
		dyntag.Tag(g)
	}
	if o.opts.ResolveAliases {
		alias.Resolve(g)
	}

	if o.opts.EmitIR {
		fr.IR = g
	}

	cfgs := o.buildCFG(g, file, logger, &fr)
	if cfgs == nil {
		return o.finishWithoutTaint(ctx, projectRoot, file, g, fr, logger)
	}

	ssas := o.buildSSA(g, cfgs, file, logger, &fr)
	if ssas == nil {
		return o.finishWithoutTaint(ctx, projectRoot, file, g, fr, logger)
	}

	flows := o.runTaint(g, cfgs, ssas, file, logger, &fr)
	fr.Flows = flows

	fr.RankerOutput = o.opts.Ranker.Rank(flows)
	fr.Routing = o.opts.Router.Route(fr.RankerOutput)

	o.applyBaseline(&fr, source)
	o.persist(ctx, projectRoot, file, g, &fr, logger)

	logger.Info("scan complete",
		zap.Int("flows", len(flows)),
		zap.Int("new_findings", len(fr.NewFindings)),
	)
	return fr
}

// finishWithoutTaint handles the CFG/SSA-stage-error path: taint is
// skipped but baseline still runs (against zero findings, since there are
// no external findings wired into this core).
func (o *Orchestrator) finishWithoutTaint(ctx context.Context, projectRoot, file string, g *ir.Graph, fr FileResult, logger *zap.Logger) FileResult {
	o.applyBaseline(&fr, nil)
	o.persist(ctx, projectRoot, file, g, &fr, logger)
	return fr
}

func (o *Orchestrator) buildCFG(g *ir.Graph, file string, logger *zap.Logger, fr *FileResult) (cfgs map[string]*cfg.Graph) {
	defer func() {
		if r := recover(); r != nil {
			fr.Errors = append(fr.Errors, newStageError(StageCFG, file, fmt.Errorf("cfg: %v", r), false))
			logger.Warn("cfg build panicked", zap.Any("recover", r))
			cfgs = nil
		}
	}()
	cfgs = cfg.Build(g)
	fr.CFG = cfgs
	logger.Debug("cfg built", zap.Int("scopes", len(cfgs)))
	return cfgs
}

func (o *Orchestrator) buildSSA(g *ir.Graph, cfgs map[string]*cfg.Graph, file string, logger *zap.Logger, fr *FileResult) (ssas map[string]*ssa.SSA) {
	defer func() {
		if r := recover(); r != nil {
			fr.Errors = append(fr.Errors, newStageError(StageSSA, file, fmt.Errorf("ssa: %v", r), false))
			logger.Warn("ssa build panicked", zap.Any("recover", r))
			ssas = nil
		}
	}()
	ssas = ssa.Build(g, cfgs)
	fr.SSA = ssas
	logger.Debug("ssa built", zap.Int("scopes", len(ssas)))
	return ssas
}

func (o *Orchestrator) runTaint(g *ir.Graph, cfgs map[string]*cfg.Graph, ssas map[string]*ssa.SSA, file string, logger *zap.Logger, fr *FileResult) []taint.Flow {
	if o.opts.TaintConfig == nil {
		return nil
	}
	scopeIDs := make([]string, 0, len(cfgs))
	for scopeID := range cfgs {
		scopeIDs = append(scopeIDs, scopeID)
	}
	sort.Strings(scopeIDs)

	var flows []taint.Flow
	for _, scopeID := range scopeIDs {
		s, ok := ssas[scopeID]
		if !ok {
			continue
		}
		scopeFlows := o.analyzeScopeTaint(g, scopeID, cfgs[scopeID], s, file, logger, fr)
		flows = append(flows, scopeFlows...)
	}
	return flows
}

func (o *Orchestrator) analyzeScopeTaint(g *ir.Graph, scopeID string, cg *cfg.Graph, s *ssa.SSA, file string, logger *zap.Logger, fr *FileResult) (flows []taint.Flow) {
	defer func() {
		if r := recover(); r != nil {
			fr.Errors = append(fr.Errors, newStageError(StageTaint, file, fmt.Errorf("taint: %v", r), false))
			logger.Warn("taint analysis panicked", zap.String("scope", scopeID), zap.Any("recover", r))
			flows = nil
		}
	}()
	return taint.Analyze(g, scopeID, cg, s, o.opts.TaintConfig)
}

func (o *Orchestrator) applyBaseline(fr *FileResult, source []byte) {
	if o.opts.Baseline == nil {
		return
	}
	findings := findingsFromRanker(fr)
	lines := splitLines(source)
	fr.NewFindings = o.opts.Baseline.Filter(findings, fr.File, lines)
	fr.BaselineSummary = o.opts.Baseline.Summary()
}

func (o *Orchestrator) persist(ctx context.Context, projectRoot, file string, g *ir.Graph, fr *FileResult, logger *zap.Logger) {
	if o.opts.Persistence == nil {
		return
	}
	if _, err := o.opts.Persistence.SaveIRGraph(ctx, g, file, projectRoot); err != nil {
		fr.Errors = append(fr.Errors, newStageError(StagePersistence, file, err, false))
		logger.Warn("graph persistence failed", zap.Error(err))
	}
}

// findingsFromRanker zips the ranker's items back up with the flows they
// were scored from (Rank emits one Item per Flow, in order) to recover the
// sink location baseline.Finding needs.
func findingsFromRanker(fr *FileResult) []baseline.Finding {
	items := fr.RankerOutput.Items
	if len(items) != len(fr.Flows) {
		return nil
	}
	findings := make([]baseline.Finding, 0, len(items))
	for i, item := range items {
		flow := fr.Flows[i]
		findings = append(findings, baseline.Finding{
			RuleID:  item.CheckID,
			Line:    flow.SinkSpan.StartLine,
			Column:  flow.SinkSpan.StartCol,
			EndLine: flow.SinkSpan.EndLine,
			Sink:    flow.Sink,
			Source:  flow.Source,
		})
	}
	return findings
}

func splitLines(source []byte) []string {
	if len(source) == 0 {
		return nil
	}
	return strings.Split(string(source), "\n")
}
