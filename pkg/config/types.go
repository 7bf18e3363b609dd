package config

import "time"

// APITimeoutsConfig bounds how long the core will wait on each
// externally-triggered phase before giving up, per spec.md §6
// "api_timeouts.{phase}" (submit_form, generate_questions, ...).
// Durations are written in YAML as Go duration strings ("30s",
// "500ms"); a bare integer is not read as milliseconds and fails to
// decode.
type APITimeoutsConfig struct {
	SubmitForm        time.Duration `yaml:"submit_form"`
	GenerateQuestions time.Duration `yaml:"generate_questions"`
	SubmitAnswers     time.Duration `yaml:"submit_answers"`
	GenerateDraft     time.Duration `yaml:"generate_draft"`
	GenerateOutline   time.Duration `yaml:"generate_outline"`
	DownloadPDF       time.Duration `yaml:"download_pdf"`
}

// ChapterRetryConfig holds the chapter-generation retry knobs named
// in spec.md §6: "retry.chapter_generation.max_retries" and
// "retry.chapter_generation.min_chapter_length".
type ChapterRetryConfig struct {
	MaxRetries       int `yaml:"max_retries"`
	MinChapterLength int `yaml:"min_chapter_length"`
}

// RetryConfig is the "retry.{phase}" section of spec.md §6. Only
// chapter generation carries retry knobs in the original — questions
// and outline retries are orchestrator-level constants (see
// pkg/orchestrator.Config's QuestionsRetry/OutlineRetry), not
// user-configurable here.
type RetryConfig struct {
	ChapterGeneration ChapterRetryConfig `yaml:"chapter_generation"`
}

// ValidationConfig is spec.md §6's
// "validation.{words_per_page, toc_chapters_per_page, min_chapter_length}".
type ValidationConfig struct {
	WordsPerPage       int `yaml:"words_per_page"`
	TOCChaptersPerPage int `yaml:"toc_chapters_per_page"`
	MinChapterLength   int `yaml:"min_chapter_length"`
}

// LinearParams is a single mode's linear time-estimation coefficients
// (residual_seconds = A*(N-k) + B*(k+1)), grounded on pkg/progress.LinearParams.
type LinearParams struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
}

// TimeEstimationConfig is spec.md §6's
// "time_estimation.{linear_params_by_method, fallback_seconds_per_chapter,
// min_chapters_for_reliable_avg, use_session_avg_if_available}".
type TimeEstimationConfig struct {
	LinearParamsByMethod      map[string]LinearParams `yaml:"linear_params_by_method"`
	FallbackSecondsPerChapter float64                 `yaml:"fallback_seconds_per_chapter"`
	MinChaptersForReliableAvg int                     `yaml:"min_chapters_for_reliable_avg"`
	UseSessionAvgIfAvailable  bool                    `yaml:"use_session_avg_if_available"`
}

// CoverGenerationConfig is spec.md §6's
// "cover_generation.{aspect_ratio, primary_model, fallback_model, image_size}",
// grounded on original_source/backend/app/agent/cover_generator.py's
// aspect_ratio/image_config and its primary/fallback model pair.
type CoverGenerationConfig struct {
	AspectRatio   string `yaml:"aspect_ratio"`
	PrimaryModel  string `yaml:"primary_model"`
	FallbackModel string `yaml:"fallback_model"`
	ImageSize     string `yaml:"image_size"`
}

// ModelCost is the per-million-token USD price for one model,
// grounded on config.py's get_model_pricing.
type ModelCost struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// DraftTokenEstimate/OutlineTokenEstimate/ChapterTokenEstimate/
// CritiqueTokenEstimate mirror config.py's get_token_estimates
// fallback table, used to forward-estimate cost before a call's real
// usage is known.
type DraftTokenEstimate struct {
	InputBase     int `yaml:"input_base"`
	OutputPerPage int `yaml:"output_per_page"`
}

type OutlineTokenEstimate struct {
	InputBase  int `yaml:"input_base"`
	OutputBase int `yaml:"output_base"`
}

type ChapterTokenEstimate struct {
	ContextBase int `yaml:"context_base"`
}

type CritiqueTokenEstimate struct {
	InputMultiplier float64 `yaml:"input_multiplier"`
	OutputBase      int     `yaml:"output_base"`
}

// TokenEstimatesConfig groups the per-phase forward token estimates.
type TokenEstimatesConfig struct {
	Draft    DraftTokenEstimate    `yaml:"draft"`
	Outline  OutlineTokenEstimate  `yaml:"outline"`
	Chapter  ChapterTokenEstimate  `yaml:"chapter"`
	Critique CritiqueTokenEstimate `yaml:"critique"`
}

// CostEstimationConfig is spec.md §6's
// "cost_estimation.{tokens_per_page, model_costs[...], exchange_rate_usd_to_eur,
// token_estimates{...}}", plus the image-generation flat cost and
// display currency config.py also carries alongside it.
type CostEstimationConfig struct {
	TokensPerPage          int                  `yaml:"tokens_per_page"`
	ModelCosts             map[string]ModelCost `yaml:"model_costs"`
	ExchangeRateUSDToEUR   float64              `yaml:"exchange_rate_usd_to_eur"`
	TokenEstimates         TokenEstimatesConfig `yaml:"token_estimates"`
	ImageGenerationCostUSD float64              `yaml:"image_generation_cost"`
	Currency               string               `yaml:"currency"`
}

// TemperatureConfig is spec.md §6's "temperature.agents.{agent_name}",
// grounded on config.py's get_temperature_for_agent: an explicit
// per-agent override, falling back to a model-version rule the
// caller applies itself when an agent has no entry here.
type TemperatureConfig struct {
	Agents map[string]float64 `yaml:"agents"`
}

// LiteraryCriticConfig is spec.md §6's
// "literary_critic.{default_model, fallback_model, temperature,
// max_retries, response_mime_type, system_prompt, user_prompt}".
type LiteraryCriticConfig struct {
	DefaultModel     string  `yaml:"default_model"`
	FallbackModel    string  `yaml:"fallback_model"`
	Temperature      float64 `yaml:"temperature"`
	MaxRetries       int     `yaml:"max_retries"`
	ResponseMimeType string  `yaml:"response_mime_type,omitempty"`
	SystemPrompt     string  `yaml:"system_prompt,omitempty"`
	UserPrompt       string  `yaml:"user_prompt,omitempty"`
}

// StorageConfig carries the BlobStore/GCS environment settings named
// in spec.md §6's Environment list ("optional GCS bucket"), grounded
// on storage_service.py's StorageService.__init__.
type StorageConfig struct {
	GCSEnabled     bool          `yaml:"gcs_enabled"`
	BucketName     string        `yaml:"bucket_name"`
	LocalBaseDir   string        `yaml:"local_base_dir"`
	SignedURLTTL   time.Duration `yaml:"signed_url_ttl"`
	GoogleAccessID string        `yaml:"google_access_id,omitempty"`
	PrivateKeyPath string        `yaml:"private_key_path,omitempty"`
}

// NotifyConfig carries the optional Slack notification settings,
// grounded on the teacher's own system.slack YAML section but
// repurposed from alert-analysis notifications to generation
// lifecycle events (see pkg/notify.SlackConfig).
type NotifyConfig struct {
	Enabled  bool   `yaml:"enabled"`
	TokenEnv string `yaml:"token_env"`
	Channel  string `yaml:"channel"`
}
