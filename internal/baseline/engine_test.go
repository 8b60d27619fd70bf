package baseline_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/nsss/nsss/internal/baseline"
)

func TestLoadMissingFileReturnsEmptyBaseline(t *testing.T) {
	root := t.TempDir()
	engine := baseline.New(afs.New(), root, "")

	data, err := engine.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0", data.Version)
	assert.Empty(t, data.Entries)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	engine := baseline.New(afs.New(), root, "")

	finding := baseline.Finding{RuleID: "TAINT_FLOW", Line: 3, Column: 4, Sink: "os.system", Source: "input"}
	entry := engine.BuildEntry(finding, filepath.Join(root, "app.py"), []string{"", "", "", "cmd = input()"})

	require.NoError(t, engine.Save(ctx, []baseline.Entry{entry}))

	reloaded := baseline.New(afs.New(), root, "")
	data, err := reloaded.Load(ctx)
	require.NoError(t, err)
	require.Len(t, data.Entries, 1)
	assert.Equal(t, entry.Fingerprint, data.Entries[0].Fingerprint)
}

func TestFilterDropsAlreadySeenFindings(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	lines := []string{"cmd = input()", "os.system(cmd)"}
	finding := baseline.Finding{RuleID: "TAINT_FLOW", Line: 2, Column: 0, Sink: "os.system", Source: "input"}

	seed := baseline.New(afs.New(), root, "")
	entry := seed.BuildEntry(finding, filepath.Join(root, "app.py"), lines)
	require.NoError(t, seed.Save(ctx, []baseline.Entry{entry}))

	engine := baseline.New(afs.New(), root, "")
	_, err := engine.Load(ctx)
	require.NoError(t, err)

	fresh := engine.Filter([]baseline.Finding{finding}, filepath.Join(root, "app.py"), lines)
	assert.Empty(t, fresh, "a finding already in the baseline should be filtered out")

	summary := engine.Summary()
	assert.Equal(t, 0, summary.New)
	assert.Equal(t, 1, summary.Existing)
}

func TestFilterKeepsNewFindings(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	engine := baseline.New(afs.New(), root, "")
	_, err := engine.Load(ctx)
	require.NoError(t, err)

	finding := baseline.Finding{RuleID: "TAINT_FLOW", Line: 1, Column: 0, Sink: "os.system", Source: "input"}
	fresh := engine.Filter([]baseline.Finding{finding}, filepath.Join(root, "app.py"), []string{"os.system(cmd)"})

	assert.Len(t, fresh, 1)
	assert.Equal(t, 1, engine.Summary().New)
}

func TestBuildEntryFingerprintIsHashedNotRawJoin(t *testing.T) {
	engine := baseline.New(afs.New(), t.TempDir(), "")
	finding := baseline.Finding{RuleID: "TAINT_FLOW", Line: 1, Column: 0, Sink: "os.system", Source: "input"}
	entry := engine.BuildEntry(finding, "app.py", []string{"os.system(cmd)"})

	// Fingerprints are the sha256 hex digest of the joined identity fields,
	// not the raw pipe-joined string itself.
	assert.Len(t, entry.Fingerprint, 64)
	assert.NotContains(t, entry.Fingerprint, "|")
}
