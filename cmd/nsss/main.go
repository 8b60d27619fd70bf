// Command nsss is the scanner's CLI entry point. Flag parsing is
// intentionally minimal (stdlib flag only) — configuration loading from a
// file is out of scope; every option here is a thin wrapper over
// internal/scan's functional options.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/viant/afs"

	"github.com/nsss/nsss/internal/baseline"
	"github.com/nsss/nsss/internal/discover"
	"github.com/nsss/nsss/internal/log"
	"github.com/nsss/nsss/internal/persistence"
	"github.com/nsss/nsss/internal/project"
	"github.com/nsss/nsss/internal/scan"
	"github.com/nsss/nsss/internal/taint"
)

func main() {
	root := flag.String("root", ".", "project root or directory to scan")
	concurrency := flag.Int("concurrency", 4, "across-file worker count")
	sources := flag.String("sources", defaultSources, "comma-separated taint source call names")
	sinks := flag.String("sinks", defaultSinks, "comma-separated taint sink call names")
	sanitizers := flag.String("sanitizers", defaultSanitizers, "comma-separated taint sanitizer call names")
	noBaseline := flag.Bool("no-baseline", false, "disable baseline filtering; report every finding as new")
	noCache := flag.Bool("no-cache", false, "disable graph persistence")
	flag.Parse()

	if err := run(*root, *concurrency, *sources, *sinks, *sanitizers, *noBaseline, *noCache); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(root string, concurrency int, sources, sinks, sanitizers string, noBaseline, noCache bool) error {
	logger, err := log.New()
	if err != nil {
		return fmt.Errorf("nsss: logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	fs := afs.New()

	detector := project.New(fs)
	info, err := detector.Detect(ctx, root)
	if err != nil {
		return fmt.Errorf("nsss: project detection: %w", err)
	}

	files, err := discover.Walk(ctx, fs, info.RootPath, discover.Options{})
	if err != nil {
		return fmt.Errorf("nsss: discover: %w", err)
	}

	opts := []scan.Option{
		scan.WithFS(fs),
		scan.WithLogger(logger),
		scan.WithConcurrency(concurrency),
		scan.WithTaintConfig(taint.NewConfiguration(splitCSV(sources), splitCSV(sinks), splitCSV(sanitizers))),
	}
	if !noBaseline {
		opts = append(opts, scan.WithBaseline(baseline.New(fs, info.RootPath, "")))
	}
	if !noCache {
		opts = append(opts, scan.WithPersistence(persistence.NewService(fs, "1.0")))
	}

	orchestrator := scan.NewOrchestrator(scan.NewOptions(opts...))
	result, err := orchestrator.Run(ctx, info.RootPath, files)
	if err != nil {
		return fmt.Errorf("nsss: scan: %w", err)
	}

	if err := printSummary(os.Stdout, result); err != nil {
		return err
	}
	if result.HasNewFinding {
		os.Exit(1)
	}
	return nil
}

type summaryLine struct {
	File        string `json:"file"`
	NewFindings int    `json:"new_findings"`
	Flows       int    `json:"flows"`
	Errors      int    `json:"errors"`
}

func printSummary(w *os.File, result *scan.Result) error {
	enc := json.NewEncoder(w)
	for _, fr := range result.Files {
		line := summaryLine{
			File:        fr.File,
			NewFindings: len(fr.NewFindings),
			Flows:       len(fr.Flows),
			Errors:      len(fr.Errors),
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("nsss: write summary: %w", err)
		}
	}
	return nil
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

const (
	defaultSources    = "input,os.environ,request.args,request.form,request.json,flask.request.args,sys.argv"
	defaultSinks      = "os.system,subprocess.call,subprocess.run,subprocess.Popen,eval,exec,pickle.loads,yaml.load,cursor.execute"
	defaultSanitizers = "shlex.quote,html.escape,markupsafe.escape"
)
