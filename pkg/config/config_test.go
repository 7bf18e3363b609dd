package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemperatureForAgentPrefersExplicitOverride(t *testing.T) {
	cfg := &Config{Temperature: TemperatureConfig{Agents: map[string]float64{"draft": 0.6}}}

	assert.Equal(t, 0.6, cfg.TemperatureForAgent("draft", "gemini-3-pro-preview"))
}

func TestTemperatureForAgentFallsBackToModelVersionRule(t *testing.T) {
	cfg := &Config{Temperature: TemperatureConfig{Agents: map[string]float64{}}}

	assert.Equal(t, 0.0, cfg.TemperatureForAgent("outline", "gemini-2.5-pro"))
	assert.Equal(t, 1.0, cfg.TemperatureForAgent("outline", "gemini-3-pro-preview"))
}

func TestModelPricingFallsBackToDefault(t *testing.T) {
	cfg := &Config{CostEstimation: CostEstimationConfig{ModelCosts: map[string]ModelCost{
		"default": {InputPerMillion: 1, OutputPerMillion: 3},
	}}}

	assert.Equal(t, ModelCost{InputPerMillion: 1, OutputPerMillion: 3}, cfg.ModelPricing("unknown-model"))
}

func TestModelPricingUsesExactMatchWhenPresent(t *testing.T) {
	cfg := &Config{CostEstimation: CostEstimationConfig{ModelCosts: map[string]ModelCost{
		"default": {InputPerMillion: 1, OutputPerMillion: 3},
		"gpt-4o":  {InputPerMillion: 2.5, OutputPerMillion: 10},
	}}}

	assert.Equal(t, ModelCost{InputPerMillion: 2.5, OutputPerMillion: 10}, cfg.ModelPricing("gpt-4o"))
}
