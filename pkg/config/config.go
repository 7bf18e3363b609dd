package config

import "strings"

// Config is the umbrella configuration object returned by Initialize
// and passed to every subsystem's own Config constructor at wiring
// time in cmd/novelforge/main.go. Grounded on the teacher's own
// umbrella Config in shape (a single object loaded once at startup,
// carrying a configDir for reference and one field per top-level YAML
// section) but holding the novel-generation domain's sections (spec.md
// §6) instead of agent/chain/MCP registries.
type Config struct {
	configDir string

	APITimeouts     APITimeoutsConfig     `yaml:"api_timeouts"`
	Retry           RetryConfig           `yaml:"retry"`
	Validation      ValidationConfig      `yaml:"validation"`
	TimeEstimation  TimeEstimationConfig  `yaml:"time_estimation"`
	CoverGeneration CoverGenerationConfig `yaml:"cover_generation"`
	CostEstimation  CostEstimationConfig  `yaml:"cost_estimation"`
	Temperature     TemperatureConfig     `yaml:"temperature"`
	LiteraryCritic  LiteraryCriticConfig  `yaml:"literary_critic"`
	Storage         StorageConfig         `yaml:"storage"`
	Notify          NotifyConfig          `yaml:"notify"`
}

// Initialize is defined in loader.go

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// TemperatureForAgent resolves an agent's sampling temperature:
// an explicit override from Temperature.Agents first, falling back to
// a model-version rule ("2.5" family → 0.0, "3" family → 1.0),
// grounded on config.py's get_temperature_for_agent.
func (c *Config) TemperatureForAgent(agentName, modelName string) float64 {
	if t, ok := c.Temperature.Agents[agentName]; ok {
		return t
	}
	return temperatureForModelVersion(modelName)
}

func temperatureForModelVersion(modelName string) float64 {
	lower := strings.ToLower(modelName)
	switch {
	case strings.Contains(lower, "2.5"):
		return 0.0
	case strings.Contains(lower, "3"):
		return 1.0
	default:
		return 0.0
	}
}

// ModelPricing resolves a model's per-million-token USD cost,
// grounded on config.py's get_model_pricing: exact name first, then
// falling back to CostEstimation.ModelCosts["default"].
func (c *Config) ModelPricing(modelName string) ModelCost {
	if cost, ok := c.CostEstimation.ModelCosts[modelName]; ok {
		return cost
	}
	return c.CostEstimation.ModelCosts["default"]
}
