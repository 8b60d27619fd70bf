package risk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsss/nsss/internal/risk"
	"github.com/nsss/nsss/internal/taint"
)

func TestRouteCriticalAndHighGoToLLM(t *testing.T) {
	ranker := risk.NewRanker()
	router := risk.NewRouter()

	output := ranker.Rank([]taint.Flow{
		{Source: "password", Sink: "os.system", Path: []string{"a", "b"}}, // CRITICAL
		{Source: "input", Sink: "print", Path: []string{"a", "b"}},        // below HIGH
	})
	plan := router.Route(output)

	require.Len(t, plan.Items, 2)
	assert.Equal(t, risk.TargetLLM, plan.Items[0].Target)
	assert.Equal(t, risk.TargetRules, plan.Items[1].Target)
	require.NotNil(t, plan.Overall)
	assert.Equal(t, risk.TargetLLM, plan.Overall.Target)
}

func TestWithLLMLevelsOverridesRouting(t *testing.T) {
	ranker := risk.NewRanker()
	router := risk.NewRouter(risk.WithLLMLevels(risk.LevelLow))

	output := ranker.Rank([]taint.Flow{{Source: "password", Sink: "os.system", Path: []string{"a", "b"}}})
	plan := router.Route(output)

	assert.Equal(t, risk.TargetRules, plan.Items[0].Target, "CRITICAL is no longer in the configured LLM set")
}

func TestRouteEmptyOutputHasNoOverall(t *testing.T) {
	plan := risk.NewRouter().Route(risk.Output{})
	assert.Empty(t, plan.Items)
	assert.Nil(t, plan.Overall)
}
