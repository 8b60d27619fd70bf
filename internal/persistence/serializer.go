package persistence

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/afs"

	"github.com/nsss/nsss/internal/ir"
)

// Serializer reads and writes one file's IR graph as JSONL: a leading Meta
// record, then one record per node, edge, and symbol.
type Serializer struct {
	Version string
}

// NewSerializer builds a Serializer for the given cache format version.
func NewSerializer(version string) *Serializer {
	if version == "" {
		version = "1.0"
	}
	return &Serializer{Version: version}
}

type nodeRecord struct {
	RecordType string `json:"record_type"`
	ir.Node
}

type edgeRecord struct {
	RecordType string `json:"record_type"`
	ir.Edge
}

type symbolRecord struct {
	RecordType string `json:"record_type"`
	ir.Symbol
}

// Save writes g to outputPath as JSONL, creating the parent directory
// implicitly (afs.Upload creates intermediate path segments).
func (s *Serializer) Save(ctx context.Context, fs afs.Service, g *ir.Graph, outputPath string, opts MetaOptions) (Meta, error) {
	meta := Meta{
		RecordType:  "meta",
		Version:     s.Version,
		Timestamp:   opts.Timestamp,
		ProjectRoot: opts.ProjectRoot,
		CommitHash:  opts.CommitHash,
		FilePath:    opts.FilePath,
	}
	if meta.CommitHash == "" {
		meta.CommitHash = "unknown"
	}

	var buf bytes.Buffer
	if err := writeJSONLine(&buf, meta); err != nil {
		return Meta{}, fmt.Errorf("persistence: encode meta: %w", err)
	}
	for _, n := range g.Nodes {
		if err := writeJSONLine(&buf, nodeRecord{RecordType: "node", Node: n}); err != nil {
			return Meta{}, fmt.Errorf("persistence: encode node %s: %w", n.ID, err)
		}
	}
	for _, e := range g.Edges {
		if err := writeJSONLine(&buf, edgeRecord{RecordType: "edge", Edge: e}); err != nil {
			return Meta{}, fmt.Errorf("persistence: encode edge: %w", err)
		}
	}
	for _, sym := range g.Symbols {
		if err := writeJSONLine(&buf, symbolRecord{RecordType: "symbol", Symbol: sym}); err != nil {
			return Meta{}, fmt.Errorf("persistence: encode symbol %s: %w", sym.Name, err)
		}
	}

	if err := fs.Upload(ctx, outputPath, 0644, bytes.NewReader(buf.Bytes())); err != nil {
		return Meta{}, fmt.Errorf("persistence: write %s: %w", outputPath, err)
	}
	return meta, nil
}

// Load reads a JSONL graph cache back into an ir.Graph, validating that the
// first record is a meta record matching s.Version.
func (s *Serializer) Load(ctx context.Context, fs afs.Service, inputPath string) (*ir.Graph, Meta, error) {
	exists, err := fs.Exists(ctx, inputPath)
	if err != nil || !exists {
		return nil, Meta{}, fmt.Errorf("persistence: graph cache not found: %s", inputPath)
	}
	raw, err := fs.DownloadWithURL(ctx, inputPath)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("persistence: read %s: %w", inputPath, err)
	}

	var meta Meta
	haveMeta := false
	g := ir.NewGraph("")

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		recordType, err := peekRecordType(line)
		if err != nil {
			return nil, Meta{}, fmt.Errorf("persistence: decode line %d: %w", lineNo, err)
		}

		if lineNo == 0 {
			if recordType != "meta" {
				return nil, Meta{}, fmt.Errorf("persistence: first line must be meta, got %q", recordType)
			}
			if err := json.Unmarshal([]byte(line), &meta); err != nil {
				return nil, Meta{}, fmt.Errorf("persistence: decode meta: %w", err)
			}
			if meta.Version != s.Version {
				return nil, Meta{}, fmt.Errorf("persistence: unsupported graph version: %s", meta.Version)
			}
			haveMeta = true
			g.File = meta.FilePath
			lineNo++
			continue
		}

		switch recordType {
		case "node":
			var rec nodeRecord
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				return nil, Meta{}, fmt.Errorf("persistence: decode node on line %d: %w", lineNo, err)
			}
			g.AddNode(rec.Node)
		case "edge":
			var rec edgeRecord
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				return nil, Meta{}, fmt.Errorf("persistence: decode edge on line %d: %w", lineNo, err)
			}
			g.AddEdge(rec.Edge)
		case "symbol":
			var rec symbolRecord
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				return nil, Meta{}, fmt.Errorf("persistence: decode symbol on line %d: %w", lineNo, err)
			}
			g.Symbols = append(g.Symbols, rec.Symbol)
		}
		lineNo++
	}
	if err := scanner.Err(); err != nil {
		return nil, Meta{}, fmt.Errorf("persistence: scan %s: %w", inputPath, err)
	}
	if !haveMeta {
		return nil, Meta{}, fmt.Errorf("persistence: missing graph metadata in %s", inputPath)
	}
	return g, meta, nil
}

func writeJSONLine(buf *bytes.Buffer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(raw)
	buf.WriteByte('\n')
	return nil
}

func peekRecordType(line string) (string, error) {
	var probe struct {
		RecordType string `json:"record_type"`
		Type       string `json:"type"`
	}
	if err := json.Unmarshal([]byte(line), &probe); err != nil {
		return "", err
	}
	if probe.RecordType != "" {
		return probe.RecordType, nil
	}
	return probe.Type, nil
}
