package baseline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
)

// Filename is the default baseline path, relative to the project root.
const Filename = ".nsss/baseline.json"

// Engine is the persistent fingerprint store. Load/Save hold writeMu for
// their duration (a single-writer baseline store), so one Engine can be
// shared by every file in a scan.
type Engine struct {
	fs          afs.Service
	storagePath string
	projectRoot string

	writeMu  sync.Mutex
	entries  map[string]Entry
	observed map[string]bool
	newCount int
	existing int
}

// New constructs an Engine rooted at projectRoot. storagePath defaults to
// Filename under projectRoot if empty or relative.
func New(fs afs.Service, projectRoot, storagePath string) *Engine {
	if storagePath == "" {
		storagePath = Filename
	}
	if !filepath.IsAbs(storagePath) {
		storagePath = filepath.Join(projectRoot, storagePath)
	}
	return &Engine{
		fs:          fs,
		storagePath: storagePath,
		projectRoot: projectRoot,
		entries:     map[string]Entry{},
		observed:    map[string]bool{},
	}
}

// Load reads the baseline file, rebuilding the in-memory fingerprint map. A
// missing, empty, or corrupt file is treated as an empty baseline rather
// than an error — the store always starts usable.
func (e *Engine) Load(ctx context.Context) (Data, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	exists, err := e.fs.Exists(ctx, e.storagePath)
	if err != nil || !exists {
		return e.resetEmpty(), nil
	}
	raw, err := e.fs.DownloadWithURL(ctx, e.storagePath)
	if err != nil || len(raw) == 0 {
		return e.resetEmpty(), nil
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return e.resetEmpty(), nil
	}

	entries := make(map[string]Entry, len(data.Entries))
	for _, entry := range data.Entries {
		entries[entry.Fingerprint] = entry
	}
	e.entries = entries
	return data, nil
}

func (e *Engine) resetEmpty() Data {
	e.entries = map[string]Entry{}
	return e.emptyBaseline()
}

// Save atomically writes entries as the new baseline document.
func (e *Engine) Save(ctx context.Context, entries []Entry) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	data := Data{
		Version:     "1.0",
		GeneratedAt: nowISO(),
		ProjectRoot: e.projectRoot,
		Entries:     entries,
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("baseline: encode %s: %w", e.storagePath, err)
	}
	if err := e.fs.Upload(ctx, e.storagePath, 0644, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("baseline: write %s: %w", e.storagePath, err)
	}

	m := make(map[string]Entry, len(entries))
	for _, entry := range entries {
		m[entry.Fingerprint] = entry
	}
	e.entries = m
	return nil
}

// BuildEntry computes the fingerprinted baseline entry for one finding.
func (e *Engine) BuildEntry(f Finding, filePath string, sourceLines []string) Entry {
	ruleID := f.RuleID
	if strings.TrimSpace(ruleID) == "" {
		ruleID = "UNKNOWN"
	}
	endLine := f.EndLine
	if endLine == 0 {
		endLine = f.Line
	}

	snippet := extractSnippetLines(sourceLines, f.Line, endLine)
	normalized := normalizeSnippet(snippet)
	codeHash := hashHex(normalized)
	normalizedPath := e.normalizeFilePath(filePath)
	fingerprint := buildFingerprint(ruleID, normalizedPath, f.Line, f.Column, f.Sink, f.Source, codeHash)

	return Entry{
		Fingerprint: fingerprint,
		RuleID:      ruleID,
		File:        normalizedPath,
		Line:        f.Line,
		Column:      f.Column,
		Sink:        f.Sink,
		Source:      f.Source,
		CodeHash:    codeHash,
		CreatedAt:   nowISO(),
	}
}

// Filter drops findings already present in the baseline, returning only the
// new ones and updating the observed set used by Summary's resolved count.
func (e *Engine) Filter(findings []Finding, filePath string, sourceLines []string) []Finding {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	var fresh []Finding
	for _, f := range findings {
		entry := e.BuildEntry(f, filePath, sourceLines)
		e.observed[entry.Fingerprint] = true
		if _, known := e.entries[entry.Fingerprint]; known {
			e.existing++
			continue
		}
		e.newCount++
		fresh = append(fresh, f)
	}
	return fresh
}

// Summary reports the end-of-scan new/existing/resolved accounting.
func (e *Engine) Summary() Summary {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	total := len(e.entries)
	observedKnown := 0
	for fp := range e.entries {
		if e.observed[fp] {
			observedKnown++
		}
	}
	resolved := total - observedKnown
	if resolved < 0 {
		resolved = 0
	}
	return Summary{Total: total, New: e.newCount, Existing: e.existing, Resolved: resolved}
}

func (e *Engine) normalizeFilePath(filePath string) string {
	normalized := filePath
	if filepath.IsAbs(filePath) {
		if rel, err := filepath.Rel(e.projectRoot, filePath); err == nil {
			normalized = rel
		}
	}
	return filepath.ToSlash(normalized)
}

func (e *Engine) emptyBaseline() Data {
	return Data{Version: "1.0", GeneratedAt: nowISO(), ProjectRoot: e.projectRoot}
}

func extractSnippetLines(lines []string, start, end int) []string {
	if len(lines) == 0 {
		return nil
	}
	if start < 1 {
		start = 1
	}
	if end < start {
		end = start
	}
	if start > len(lines) {
		return nil
	}
	if end > len(lines) {
		end = len(lines)
	}
	return lines[start-1 : end]
}

func normalizeSnippet(lines []string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimRight(l, " \t\r\n\v\f")
	}
	return strings.Join(out, "\n")
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// buildFingerprint joins the finding's identity fields and hashes the join
// with sha256, rather than keying the baseline on the raw joined string.
func buildFingerprint(ruleID, filePath string, line, column int, sink, source, codeHash string) string {
	joined := fmt.Sprintf("%s|%s|%d|%d|%s|%s|%s", ruleID, filePath, line, column, sink, source, codeHash)
	return hashHex(joined)
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
