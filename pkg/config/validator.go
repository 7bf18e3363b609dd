package config

import (
	"fmt"
	"os"
)

// Validator validates configuration comprehensively with clear error
// messages, grounded on the teacher's own Validator/ValidateAll shape
// (fail-fast, one method per section) applied to this domain's flat
// section list instead of agent/chain/MCP registries.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at
// the first error).
func (v *Validator) ValidateAll() error {
	if err := v.validateAPITimeouts(); err != nil {
		return fmt.Errorf("api_timeouts validation failed: %w", err)
	}
	if err := v.validateRetry(); err != nil {
		return fmt.Errorf("retry validation failed: %w", err)
	}
	if err := v.validateValidation(); err != nil {
		return fmt.Errorf("validation section validation failed: %w", err)
	}
	if err := v.validateTimeEstimation(); err != nil {
		return fmt.Errorf("time_estimation validation failed: %w", err)
	}
	if err := v.validateCoverGeneration(); err != nil {
		return fmt.Errorf("cover_generation validation failed: %w", err)
	}
	if err := v.validateCostEstimation(); err != nil {
		return fmt.Errorf("cost_estimation validation failed: %w", err)
	}
	if err := v.validateTemperature(); err != nil {
		return fmt.Errorf("temperature validation failed: %w", err)
	}
	if err := v.validateLiteraryCritic(); err != nil {
		return fmt.Errorf("literary_critic validation failed: %w", err)
	}
	if err := v.validateStorage(); err != nil {
		return fmt.Errorf("storage validation failed: %w", err)
	}
	if err := v.validateNotify(); err != nil {
		return fmt.Errorf("notify validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateAPITimeouts() error {
	t := v.cfg.APITimeouts
	for field, d := range map[string]int64{
		"submit_form":        int64(t.SubmitForm),
		"generate_questions": int64(t.GenerateQuestions),
		"submit_answers":     int64(t.SubmitAnswers),
		"generate_draft":     int64(t.GenerateDraft),
		"generate_outline":   int64(t.GenerateOutline),
		"download_pdf":       int64(t.DownloadPDF),
	} {
		if d <= 0 {
			return NewValidationError("api_timeouts", field, fmt.Errorf("must be positive"))
		}
	}
	return nil
}

func (v *Validator) validateRetry() error {
	r := v.cfg.Retry.ChapterGeneration
	if r.MaxRetries < 0 {
		return NewValidationError("retry", "chapter_generation.max_retries", fmt.Errorf("must be non-negative"))
	}
	if r.MinChapterLength < 1 {
		return NewValidationError("retry", "chapter_generation.min_chapter_length", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func (v *Validator) validateValidation() error {
	c := v.cfg.Validation
	if c.WordsPerPage < 1 {
		return NewValidationError("validation", "words_per_page", fmt.Errorf("must be at least 1"))
	}
	if c.TOCChaptersPerPage < 1 {
		return NewValidationError("validation", "toc_chapters_per_page", fmt.Errorf("must be at least 1"))
	}
	if c.MinChapterLength < 1 {
		return NewValidationError("validation", "min_chapter_length", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func (v *Validator) validateTimeEstimation() error {
	te := v.cfg.TimeEstimation
	if te.FallbackSecondsPerChapter <= 0 {
		return NewValidationError("time_estimation", "fallback_seconds_per_chapter", fmt.Errorf("must be positive"))
	}
	if te.MinChaptersForReliableAvg < 1 {
		return NewValidationError("time_estimation", "min_chapters_for_reliable_avg", fmt.Errorf("must be at least 1"))
	}
	for method, p := range te.LinearParamsByMethod {
		if p.A < 0 || p.B < 0 {
			return NewValidationError("time_estimation", fmt.Sprintf("linear_params_by_method.%s", method), fmt.Errorf("coefficients must be non-negative"))
		}
	}
	return nil
}

func (v *Validator) validateCoverGeneration() error {
	cg := v.cfg.CoverGeneration
	if cg.AspectRatio == "" {
		return NewValidationError("cover_generation", "aspect_ratio", fmt.Errorf("required"))
	}
	if cg.PrimaryModel == "" {
		return NewValidationError("cover_generation", "primary_model", fmt.Errorf("required"))
	}
	return nil
}

func (v *Validator) validateCostEstimation() error {
	ce := v.cfg.CostEstimation
	if ce.TokensPerPage < 1 {
		return NewValidationError("cost_estimation", "tokens_per_page", fmt.Errorf("must be at least 1"))
	}
	if _, ok := ce.ModelCosts["default"]; !ok {
		return NewValidationError("cost_estimation", "model_costs", fmt.Errorf("a 'default' fallback entry is required"))
	}
	for name, cost := range ce.ModelCosts {
		if cost.InputPerMillion < 0 || cost.OutputPerMillion < 0 {
			return NewValidationError("cost_estimation", fmt.Sprintf("model_costs.%s", name), fmt.Errorf("per-million costs must be non-negative"))
		}
	}
	if ce.ExchangeRateUSDToEUR <= 0 {
		return NewValidationError("cost_estimation", "exchange_rate_usd_to_eur", fmt.Errorf("must be positive"))
	}
	if ce.ImageGenerationCostUSD < 0 {
		return NewValidationError("cost_estimation", "image_generation_cost", fmt.Errorf("must be non-negative"))
	}
	return nil
}

func (v *Validator) validateTemperature() error {
	for agent, t := range v.cfg.Temperature.Agents {
		if t < 0 || t > 2 {
			return NewValidationError("temperature", fmt.Sprintf("agents.%s", agent), fmt.Errorf("must be between 0 and 2, got %v", t))
		}
	}
	return nil
}

func (v *Validator) validateLiteraryCritic() error {
	lc := v.cfg.LiteraryCritic
	if lc.DefaultModel == "" {
		return NewValidationError("literary_critic", "default_model", fmt.Errorf("required"))
	}
	if lc.Temperature < 0 || lc.Temperature > 2 {
		return NewValidationError("literary_critic", "temperature", fmt.Errorf("must be between 0 and 2"))
	}
	if lc.MaxRetries < 0 {
		return NewValidationError("literary_critic", "max_retries", fmt.Errorf("must be non-negative"))
	}
	return nil
}

func (v *Validator) validateStorage() error {
	s := v.cfg.Storage
	if s.GCSEnabled {
		if s.BucketName == "" {
			return NewValidationError("storage", "bucket_name", fmt.Errorf("required when gcs_enabled is true"))
		}
	} else if s.LocalBaseDir == "" {
		return NewValidationError("storage", "local_base_dir", fmt.Errorf("required when gcs_enabled is false"))
	}
	if s.SignedURLTTL < 0 {
		return NewValidationError("storage", "signed_url_ttl", fmt.Errorf("must be non-negative"))
	}
	return nil
}

func (v *Validator) validateNotify() error {
	n := v.cfg.Notify
	if !n.Enabled {
		return nil
	}
	if n.Channel == "" {
		return NewValidationError("notify", "channel", fmt.Errorf("required when notify is enabled"))
	}
	if n.TokenEnv == "" {
		return NewValidationError("notify", "token_env", fmt.Errorf("required when notify is enabled"))
	}
	if token := os.Getenv(n.TokenEnv); token == "" {
		return NewValidationError("notify", "token_env", fmt.Errorf("environment variable %s is not set", n.TokenEnv))
	}
	return nil
}
