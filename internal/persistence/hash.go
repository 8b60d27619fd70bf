// Package persistence caches an IR graph (nodes, edges, symbols) to disk in
// a single slot per project, keyed by a fingerprint of the project root, so
// each save replaces the previous one; a manifest tracks, per file, whether
// the cached entry is still fresh against the file's current content hash.
package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/viant/afs"
)

// GraphCacheFilename and ManifestFilename name the two files kept under
// each project's cache directory.
const (
	GraphCacheFilename = "graph_v1.jsonl"
	ManifestFilename   = "manifest.json"
)

// ProjectHash fingerprints an (absolute) project root into the cache
// directory name, so two projects never collide under a shared cache root.
func ProjectHash(absProjectRoot string) string {
	sum := sha256.Sum256([]byte(absProjectRoot))
	return hex.EncodeToString(sum[:])
}

// CachePath builds the per-project, per-filename cache path:
// {projectRoot}/.nsss/cache/{sha256(projectRoot)}/{filename}.
func CachePath(absProjectRoot, filename string) string {
	return joinURL(absProjectRoot, ".nsss", "cache", ProjectHash(absProjectRoot), filename)
}

// ManifestPath is CachePath for ManifestFilename.
func ManifestPath(absProjectRoot string) string {
	return CachePath(absProjectRoot, ManifestFilename)
}

// FileHash hashes a source file's full contents with SHA-256. Returns
// ("", false) if the file does not exist or cannot be read.
func FileHash(ctx context.Context, fs afs.Service, filePath string) (string, bool) {
	exists, err := fs.Exists(ctx, filePath)
	if err != nil || !exists {
		return "", false
	}
	raw, err := fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), true
}
