package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeModelCostsUserOverridesByKey(t *testing.T) {
	builtin := map[string]ModelCost{
		"default": {InputPerMillion: 1.0, OutputPerMillion: 3.0},
		"gpt-4o":  {InputPerMillion: 2.5, OutputPerMillion: 10.0},
	}
	user := map[string]ModelCost{
		"gpt-4o": {InputPerMillion: 9.9, OutputPerMillion: 9.9},
	}

	merged := mergeModelCosts(builtin, user)

	assert.Equal(t, ModelCost{InputPerMillion: 9.9, OutputPerMillion: 9.9}, merged["gpt-4o"])
	assert.Equal(t, builtin["default"], merged["default"], "entries absent from user config keep the built-in value")
}

func TestMergeTemperatureAgentsAddsNewEntries(t *testing.T) {
	builtin := map[string]float64{"outline": 1.0}
	user := map[string]float64{"draft": 0.7}

	merged := mergeTemperatureAgents(builtin, user)

	assert.Equal(t, 1.0, merged["outline"])
	assert.Equal(t, 0.7, merged["draft"])
}

func TestMergeLinearParamsByMethodOverridesByMethod(t *testing.T) {
	builtin := map[string]LinearParams{"flash": {A: 25, B: 20}}
	user := map[string]LinearParams{"flash": {A: 1, B: 2}}

	merged := mergeLinearParamsByMethod(builtin, user)

	assert.Equal(t, LinearParams{A: 1, B: 2}, merged["flash"])
}
