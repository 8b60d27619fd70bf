package persistence

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/viant/afs"

	"github.com/nsss/nsss/internal/ir"
)

// Service is the caller-facing entry point: save/load one file's IR graph
// and keep the project's manifest in sync with it. One Service is shared
// across a whole scan (internal/scan's orchestrator runs files in
// parallel), so access to the per-project manifest cache is mutex-guarded.
type Service struct {
	fs         afs.Service
	serializer *Serializer

	mu        sync.Mutex
	manifests map[string]*ManifestStore
}

// NewService builds a Service backed by fs, using the given cache format
// version ("1.0" if empty).
func NewService(fs afs.Service, version string) *Service {
	return &Service{
		fs:         fs,
		serializer: NewSerializer(version),
		manifests:  map[string]*ManifestStore{},
	}
}

// SaveIRGraph writes g's cache entry for filePath under projectRoot and
// records the manifest entry, returning the cache path it wrote to.
func (s *Service) SaveIRGraph(ctx context.Context, g *ir.Graph, filePath, projectRoot string) (string, error) {
	root := absPath(projectRoot)
	cachePath := CachePath(root, GraphCacheFilename)

	commitHash := ReadGitCommitHash(ctx, s.fs, root)
	_, err := s.serializer.Save(ctx, s.fs, g, cachePath, MetaOptions{
		ProjectRoot: root,
		CommitHash:  commitHash,
		FilePath:    filePath,
		Timestamp:   nowUnix(),
	})
	if err != nil {
		return "", err
	}

	if filePath != "" {
		s.manifestFor(ctx, root).Record(ctx, filePath, cachePath, nowUnix())
	}
	return cachePath, nil
}

// LoadIRGraph reads back the cached graph for projectRoot.
func (s *Service) LoadIRGraph(ctx context.Context, projectRoot string) (*ir.Graph, Meta, error) {
	root := absPath(projectRoot)
	cachePath := CachePath(root, GraphCacheFilename)
	return s.serializer.Load(ctx, s.fs, cachePath)
}

// IsFresh reports whether filePath's cached graph is still valid under
// projectRoot's manifest.
func (s *Service) IsFresh(ctx context.Context, filePath, projectRoot string) bool {
	root := absPath(projectRoot)
	return s.manifestFor(ctx, root).IsFresh(ctx, filePath)
}

func (s *Service) manifestFor(ctx context.Context, root string) *ManifestStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.manifests[root]; ok {
		return m
	}
	m := NewManifestStore(ctx, s.fs, root, "1.0")
	s.manifests[root] = m
	return m
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
