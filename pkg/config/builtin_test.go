package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBuiltinConfigHasDefaultModelCost(t *testing.T) {
	cfg := GetBuiltinConfig()

	_, ok := cfg.CostEstimation.ModelCosts["default"]
	assert.True(t, ok, "built-in model_costs must carry a default fallback entry")
}

func TestGetBuiltinConfigAPITimeoutsArePositive(t *testing.T) {
	cfg := GetBuiltinConfig()

	assert.Greater(t, cfg.APITimeouts.GenerateDraft.Seconds(), 0.0)
	assert.Greater(t, cfg.APITimeouts.DownloadPDF.Seconds(), 0.0)
}

func TestGetBuiltinConfigValidationMatchesWordsPerPageDefault(t *testing.T) {
	cfg := GetBuiltinConfig()

	assert.Equal(t, 250, cfg.Validation.WordsPerPage)
	assert.Equal(t, 30, cfg.Validation.TOCChaptersPerPage)
}

func TestGetBuiltinConfigIsIndependentAcrossCalls(t *testing.T) {
	a := GetBuiltinConfig()
	b := GetBuiltinConfig()

	a.CostEstimation.ModelCosts["default"] = ModelCost{InputPerMillion: 999}

	assert.NotEqual(t, a.CostEstimation.ModelCosts["default"], b.CostEstimation.ModelCosts["default"],
		"each call must return independently mutable maps")
}
