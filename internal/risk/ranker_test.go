package risk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsss/nsss/internal/risk"
	"github.com/nsss/nsss/internal/taint"
)

func TestRankHighSensitivitySourceAndSinkScoresCritical(t *testing.T) {
	ranker := risk.NewRanker()
	output := ranker.Rank([]taint.Flow{
		{Source: "password", Sink: "os.system", Path: []string{"a", "b"}, Implicit: false},
	})

	require.Len(t, output.Items, 1)
	item := output.Items[0]
	assert.Equal(t, risk.LevelCritical, item.Risk.Level)
	assert.True(t, item.Risk.IsVulnerable)
	require.NotNil(t, output.Overall)
	assert.Equal(t, risk.LevelCritical, output.Overall.Level)
}

func TestRankLongPathDecaysScore(t *testing.T) {
	ranker := risk.NewRanker()
	short := ranker.Rank([]taint.Flow{{Source: "input", Sink: "print", Path: []string{"a", "b"}}})
	long := ranker.Rank([]taint.Flow{{Source: "input", Sink: "print", Path: []string{"a", "b", "c", "d", "e", "f", "g"}}})

	assert.Greater(t, short.Items[0].Risk.RiskScore, long.Items[0].Risk.RiskScore)
}

func TestRankImplicitFlowScoresHigherThanExplicitOtherwiseEqual(t *testing.T) {
	ranker := risk.NewRanker()
	explicit := ranker.Rank([]taint.Flow{{Source: "input", Sink: "print", Path: []string{"a", "b"}, Implicit: false}})
	implicit := ranker.Rank([]taint.Flow{{Source: "input", Sink: "print", Path: []string{"a", "b"}, Implicit: true}})

	assert.Greater(t, implicit.Items[0].Risk.RiskScore, explicit.Items[0].Risk.RiskScore)
}

func TestRankNoFlowsProducesNoOverall(t *testing.T) {
	output := risk.NewRanker().Rank(nil)
	assert.Empty(t, output.Items)
	assert.Nil(t, output.Overall)
}

func TestRankUnknownSourceAndSinkFallBackToBaseScore(t *testing.T) {
	ranker := risk.NewRanker()
	output := ranker.Rank([]taint.Flow{{
		Source: "nothing_special", Sink: "also_nothing",
		Path: []string{"a", "b", "c", "d", "e", "f", "g"},
	}})
	// Unrecognized source/sink names fall back to the 0.3 base sensitivity,
	// and a path at maxPathLength decays to its floor score — together that
	// lands below every recognized-risk threshold.
	assert.Equal(t, risk.LevelSafe, output.Items[0].Risk.Level)
}

func TestWithWeightsRenormalizes(t *testing.T) {
	ranker := risk.NewRanker(risk.WithWeights(map[string]float64{"source_sensitivity": 1}))
	output := ranker.Rank([]taint.Flow{{Source: "password", Sink: "print", Path: []string{"a", "b"}}})
	// With only source_sensitivity weighted, the full weight lands on the
	// source score (password -> 1.0), so risk score should hit 100.
	assert.InDelta(t, 100.0, output.Items[0].Risk.RiskScore, 0.01)
}
