package config

import "time"

// GetBuiltinConfig returns the built-in defaults merged underneath any
// user-supplied novelforge.yaml (see loader.go's Initialize). Grounded
// on original_source/backend/app/core/config.py's load_app_config
// fallback literal (used when app.yaml is absent) and its
// get_model_pricing/get_token_estimates/load_literary_critic_config
// fallback tables — the same "ship working defaults, let an operator's
// YAML override only what it sets" contract as the teacher's own
// GetBuiltinConfig for agents/chains/MCP servers.
func GetBuiltinConfig() Config {
	return Config{
		APITimeouts: APITimeoutsConfig{
			SubmitForm:        30 * time.Second,
			GenerateQuestions: 60 * time.Second,
			SubmitAnswers:     30 * time.Second,
			GenerateDraft:     120 * time.Second,
			GenerateOutline:   120 * time.Second,
			DownloadPDF:       300 * time.Second,
		},
		Retry: RetryConfig{
			ChapterGeneration: ChapterRetryConfig{
				MaxRetries:       2,
				MinChapterLength: 50,
			},
		},
		Validation: ValidationConfig{
			WordsPerPage:       250,
			TOCChaptersPerPage: 30,
			MinChapterLength:   50,
		},
		TimeEstimation: TimeEstimationConfig{
			LinearParamsByMethod: map[string]LinearParams{
				"flash": {A: 25, B: 20},
				"pro":   {A: 40, B: 35},
				"ultra": {A: 60, B: 55},
			},
			FallbackSecondsPerChapter: 45,
			MinChaptersForReliableAvg: 3,
			UseSessionAvgIfAvailable:  true,
		},
		CoverGeneration: CoverGenerationConfig{
			AspectRatio:   "2:3",
			PrimaryModel:  "gemini-3-pro-image-preview",
			FallbackModel: "gemini-2.5-flash-image",
			ImageSize:     "2K",
		},
		CostEstimation: CostEstimationConfig{
			TokensPerPage: 350,
			ModelCosts: map[string]ModelCost{
				"default":                {InputPerMillion: 1.0, OutputPerMillion: 3.0},
				"gemini-2.5-flash":       {InputPerMillion: 0.30, OutputPerMillion: 2.50},
				"gemini-2.5-pro":         {InputPerMillion: 1.25, OutputPerMillion: 10.00},
				"gemini-3-flash-preview": {InputPerMillion: 0.40, OutputPerMillion: 3.00},
				"gemini-3-pro-preview":   {InputPerMillion: 2.00, OutputPerMillion: 12.00},
				"gpt-4o":                 {InputPerMillion: 2.50, OutputPerMillion: 10.00},
				"gpt-4o-mini":            {InputPerMillion: 0.15, OutputPerMillion: 0.60},
				"gpt-4-turbo":            {InputPerMillion: 10.00, OutputPerMillion: 30.00},
				"gpt-4":                  {InputPerMillion: 30.00, OutputPerMillion: 60.00},
				"gpt-5.2":                {InputPerMillion: 1.75, OutputPerMillion: 14.00},
				"gpt-5.2-pro":            {InputPerMillion: 3.50, OutputPerMillion: 28.00},
				"gpt-5.2-chat-latest":    {InputPerMillion: 1.25, OutputPerMillion: 10.00},
			},
			ExchangeRateUSDToEUR: 0.92,
			TokenEstimates: TokenEstimatesConfig{
				Draft:    DraftTokenEstimate{InputBase: 800, OutputPerPage: 12},
				Outline:  OutlineTokenEstimate{InputBase: 3000, OutputBase: 2000},
				Chapter:  ChapterTokenEstimate{ContextBase: 8000},
				Critique: CritiqueTokenEstimate{InputMultiplier: 1.2, OutputBase: 1200},
			},
			ImageGenerationCostUSD: 0.02,
			Currency:               "EUR",
		},
		Temperature: TemperatureConfig{
			Agents: map[string]float64{},
		},
		LiteraryCritic: LiteraryCriticConfig{
			DefaultModel:  "gemini-3-pro-preview",
			FallbackModel: "gemini-3-flash-preview",
			Temperature:   0.3,
			MaxRetries:    2,
		},
		Storage: StorageConfig{
			GCSEnabled:   false,
			BucketName:   "narrai-books",
			LocalBaseDir: ".",
			SignedURLTTL: 15 * time.Minute,
		},
		Notify: NotifyConfig{
			Enabled:  false,
			TokenEnv: "SLACK_BOT_TOKEN",
		},
	}
}
