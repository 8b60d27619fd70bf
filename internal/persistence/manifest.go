package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"github.com/viant/afs"
)

// ManifestEntry records the cache state of one source file.
type ManifestEntry struct {
	FilePath  string `json:"file_path"`
	FileHash  string `json:"file_hash"`
	CachePath string `json:"cache_path"`
	UpdatedAt int64  `json:"updated_at"`
}

// Manifest is the on-disk manifest.json document: one entry per source file
// whose graph has been cached, keyed by project-relative path.
type Manifest struct {
	Version   string                    `json:"version"`
	UpdatedAt int64                     `json:"updated_at"`
	Entries   map[string]ManifestEntry  `json:"entries"`
}

// ManifestStore is the single-writer manifest for one project root,
// tracking which cached graphs are still fresh against their source file's
// current content hash.
type ManifestStore struct {
	fs          afs.Service
	projectRoot string
	version     string
	path        string

	mu       sync.Mutex
	manifest Manifest
}

// NewManifestStore builds a store rooted at (absolute) projectRoot and loads
// any existing manifest.json. A missing or corrupt manifest starts empty.
func NewManifestStore(ctx context.Context, fs afs.Service, projectRoot, version string) *ManifestStore {
	if version == "" {
		version = "1.0"
	}
	s := &ManifestStore{
		fs:          fs,
		projectRoot: projectRoot,
		version:     version,
		path:        ManifestPath(projectRoot),
		manifest:    Manifest{Version: version, Entries: map[string]ManifestEntry{}},
	}
	s.load(ctx)
	return s
}

func (s *ManifestStore) load(ctx context.Context) {
	exists, err := s.fs.Exists(ctx, s.path)
	if err != nil || !exists {
		return
	}
	raw, err := s.fs.DownloadWithURL(ctx, s.path)
	if err != nil || len(raw) == 0 {
		return
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	if m.Entries == nil {
		m.Entries = map[string]ManifestEntry{}
	}
	s.manifest = m
}

// Record hashes filePath and upserts its manifest entry, persisting the
// manifest immediately. No-ops (returning false) if filePath cannot be
// hashed (e.g. it no longer exists).
func (s *ManifestStore) Record(ctx context.Context, filePath, cachePath string, now int64) (ManifestEntry, bool) {
	hash, ok := FileHash(ctx, s.fs, filePath)
	if !ok {
		return ManifestEntry{}, false
	}

	normalized := s.normalizeFilePath(filePath)
	entry := ManifestEntry{
		FilePath:  normalized,
		FileHash:  hash,
		CachePath: cachePath,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest.Entries[normalized] = entry
	s.manifest.UpdatedAt = now
	s.persist(ctx)
	return entry, true
}

// IsFresh reports whether filePath's cached graph still matches its current
// content hash.
func (s *ManifestStore) IsFresh(ctx context.Context, filePath string) bool {
	hash, ok := FileHash(ctx, s.fs, filePath)
	if !ok {
		return false
	}
	normalized := s.normalizeFilePath(filePath)

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, found := s.manifest.Entries[normalized]
	return found && entry.FileHash == hash
}

// Entry returns the manifest entry for filePath, if any.
func (s *ManifestStore) Entry(filePath string) (ManifestEntry, bool) {
	normalized := s.normalizeFilePath(filePath)
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, found := s.manifest.Entries[normalized]
	return entry, found
}

func (s *ManifestStore) normalizeFilePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		if rel, err := filepath.Rel(s.projectRoot, filePath); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(filePath)
}

// persist must be called with mu held.
func (s *ManifestStore) persist(ctx context.Context) {
	raw, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return
	}
	_ = s.fs.Upload(ctx, s.path, 0644, bytes.NewReader(raw))
}

func nowUnix() int64 {
	return time.Now().Unix()
}
