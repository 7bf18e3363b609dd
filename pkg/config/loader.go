package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Initialize loads, merges, and validates the novelforge configuration.
// This is the primary entry point for configuration loading, grounded
// on the teacher's own Initialize/load two-step shape (load, then
// validate) collapsed to a single-file YAML source.
//
// Steps performed:
//  1. Read novelforge.yaml from configDir (missing file is not an error — defaults apply)
//  2. Expand environment variables ($VAR / ${VAR})
//  3. Unmarshal into a user-override Config
//  4. Merge built-in defaults underneath the user overrides
//  5. Validate the merged configuration
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized successfully")
	return cfg, nil
}

func load(configDir string) (*Config, error) {
	override, err := loadUserYAML(configDir)
	if err != nil {
		return nil, err
	}

	builtin := GetBuiltinConfig()
	merged := builtin

	if err := mergo.Merge(&merged, override, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge configuration: %w", err)
	}

	// mergo's struct merge replaces whole maps wholesale when the
	// override sets one; re-merge the keyed sections explicitly so an
	// override YAML can add/replace individual entries instead of
	// wiping out the rest of the built-in table.
	merged.CostEstimation.ModelCosts = mergeModelCosts(builtin.CostEstimation.ModelCosts, override.CostEstimation.ModelCosts)
	merged.Temperature.Agents = mergeTemperatureAgents(builtin.Temperature.Agents, override.Temperature.Agents)
	merged.TimeEstimation.LinearParamsByMethod = mergeLinearParamsByMethod(builtin.TimeEstimation.LinearParamsByMethod, override.TimeEstimation.LinearParamsByMethod)

	merged.configDir = configDir
	return &merged, nil
}

// loadUserYAML reads novelforge.yaml from configDir. A missing file
// yields a zero-value Config (i.e. built-in defaults apply unmodified)
// rather than an error, since an operator may rely on defaults alone.
func loadUserYAML(configDir string) (*Config, error) {
	var override Config

	path := filepath.Join(configDir, DefaultConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &override, nil
		}
		return nil, err
	}

	// Expand $VAR / ${VAR} references (e.g. ${GOOGLE_API_KEY}) before
	// parsing, standard shell-style, via the stdlib expander; missing
	// variables expand to empty string and surface through validation.
	data = []byte(os.ExpandEnv(string(data)))

	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, NewLoadError(DefaultConfigFileName, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	return &override, nil
}

func validate(cfg *Config) error {
	return NewValidator(cfg).ValidateAll()
}
