package scan_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/nsss/nsss/internal/baseline"
	"github.com/nsss/nsss/internal/scan"
	"github.com/nsss/nsss/internal/taint"
)

func writeSource(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunProducesTaintedFindingForVulnerableFile(t *testing.T) {
	root := t.TempDir()
	file := writeSource(t, root, "app.py", "cmd = input()\nos.system(cmd)\n")

	engine := baseline.New(afs.New(), root, "")
	_, err := engine.Load(context.Background())
	require.NoError(t, err)

	opts := scan.NewOptions(
		scan.WithFS(afs.New()),
		scan.WithTaintConfig(taint.NewConfiguration([]string{"input"}, []string{"os.system"}, nil)),
		scan.WithBaseline(engine),
		scan.WithConcurrency(2),
	)

	result, err := scan.NewOrchestrator(opts).Run(context.Background(), root, []string{file})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)

	fr := result.Files[0]
	assert.Empty(t, fr.Errors)
	require.Len(t, fr.Flows, 1)
	assert.True(t, result.HasNewFinding)
	assert.Len(t, fr.NewFindings, 1)
}

func TestRunSkipsTaintWhenNoTaintConfigConfigured(t *testing.T) {
	root := t.TempDir()
	file := writeSource(t, root, "app.py", "cmd = input()\nos.system(cmd)\n")

	opts := scan.NewOptions(scan.WithFS(afs.New()))
	result, err := scan.NewOrchestrator(opts).Run(context.Background(), root, []string{file})
	require.NoError(t, err)

	fr := result.Files[0]
	assert.Empty(t, fr.Flows)
	assert.False(t, result.HasNewFinding)
}

func TestRunRecordsStageErrorForUnreadableFile(t *testing.T) {
	root := t.TempDir()
	opts := scan.NewOptions(scan.WithFS(afs.New()))

	result, err := scan.NewOrchestrator(opts).Run(context.Background(), root, []string{filepath.Join(root, "missing.py")})
	require.NoError(t, err)

	fr := result.Files[0]
	require.Len(t, fr.Errors, 1)
	assert.Equal(t, scan.StageParse, fr.Errors[0].Stage)
	assert.True(t, fr.Errors[0].Fatal)
}

func TestRunHandlesMultipleFilesIndependently(t *testing.T) {
	root := t.TempDir()
	safe := writeSource(t, root, "safe.py", "x = 1\n")
	vuln := writeSource(t, root, "vuln.py", "cmd = input()\nos.system(cmd)\n")

	opts := scan.NewOptions(
		scan.WithFS(afs.New()),
		scan.WithTaintConfig(taint.NewConfiguration([]string{"input"}, []string{"os.system"}, nil)),
	)
	result, err := scan.NewOrchestrator(opts).Run(context.Background(), root, []string{safe, vuln})
	require.NoError(t, err)
	require.Len(t, result.Files, 2)

	byFile := map[string]int{}
	for _, fr := range result.Files {
		byFile[fr.File] = len(fr.Flows)
	}
	assert.Equal(t, 0, byFile[safe])
	assert.Equal(t, 1, byFile[vuln])
}
