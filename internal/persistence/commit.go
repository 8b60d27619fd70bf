package persistence

import (
	"context"
	"strings"

	"github.com/viant/afs"
)

// ReadGitCommitHash resolves the checked-out commit hash from
// {projectRoot}/.git/HEAD, following a symbolic ref one level if present.
// Returns "" if there is no .git directory or the ref cannot be resolved.
func ReadGitCommitHash(ctx context.Context, fs afs.Service, projectRoot string) string {
	headPath := joinURL(projectRoot, ".git", "HEAD")
	exists, err := fs.Exists(ctx, headPath)
	if err != nil || !exists {
		return ""
	}
	raw, err := fs.DownloadWithURL(ctx, headPath)
	if err != nil {
		return ""
	}
	head := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(head, "ref:") {
		return head
	}

	refName := strings.TrimSpace(strings.TrimPrefix(head, "ref:"))
	refPath := joinURL(projectRoot, ".git", refName)
	refExists, err := fs.Exists(ctx, refPath)
	if err != nil || !refExists {
		return ""
	}
	refRaw, err := fs.DownloadWithURL(ctx, refPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(refRaw))
}
