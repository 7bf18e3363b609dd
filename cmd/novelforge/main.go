// novelforge orchestrator server - provides HTTP API and drives
// background book generation tasks.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/novelforge/novelforge/pkg/agent"
	"github.com/novelforge/novelforge/pkg/api"
	"github.com/novelforge/novelforge/pkg/blobstore"
	"github.com/novelforge/novelforge/pkg/config"
	"github.com/novelforge/novelforge/pkg/credit"
	"github.com/novelforge/novelforge/pkg/database"
	"github.com/novelforge/novelforge/pkg/library"
	"github.com/novelforge/novelforge/pkg/llm"
	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/notify"
	"github.com/novelforge/novelforge/pkg/orchestrator"
	"github.com/novelforge/novelforge/pkg/progress"
	"github.com/novelforge/novelforge/pkg/render"
	"github.com/novelforge/novelforge/pkg/sanitize"
	"github.com/novelforge/novelforge/pkg/session"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("could not load %s: %v (continuing with existing environment)", envPath, err)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbClient.Close()
	log.Println("connected to PostgreSQL database")

	templates, err := agent.LoadDefaultTemplates()
	if err != nil {
		log.Fatalf("failed to load agent templates: %v", err)
	}

	gateway, err := newGateway(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize LLM gateway: %v", err)
	}

	blobs, err := blobstore.New(ctx, blobstore.Config{
		GCSEnabled:     cfg.Storage.GCSEnabled,
		BucketName:     cfg.Storage.BucketName,
		LocalBaseDir:   cfg.Storage.LocalBaseDir,
		SignedURLTTL:   cfg.Storage.SignedURLTTL,
		GoogleAccessID: cfg.Storage.GoogleAccessID,
		PrivateKeyPath: cfg.Storage.PrivateKeyPath,
	})
	if err != nil {
		log.Fatalf("failed to initialize blob store: %v", err)
	}

	renderer := render.New(render.DefaultConfig())
	sanitizer := sanitize.New()
	notifier := newNotifier(cfg)

	sessionStore := session.New(dbClient)
	quotas := credit.Quotas{Flash: 10, Pro: 3, Ultra: 1}
	ledger := credit.New(dbClient, quotas)

	progressTracker := progress.Config{
		WordsPerPage:              cfg.Validation.WordsPerPage,
		TOCChaptersPerPage:        cfg.Validation.TOCChaptersPerPage,
		MinChaptersForReliableAvg: cfg.TimeEstimation.MinChaptersForReliableAvg,
		UseSessionAvgIfAvailable:  cfg.TimeEstimation.UseSessionAvgIfAvailable,
		LinearParams:              progressLinearParams(cfg),
	}

	orch := orchestrator.New(
		sessionStore,
		ledger,
		gateway,
		templates,
		blobs,
		renderer,
		notifier,
		sanitizer,
		orchestratorConfig(cfg),
	)

	libraryCfg := library.Config{Progress: progressTracker}
	statsCache := library.NewStatsCache()
	backfiller := library.NewBackfiller(sessionStore, &costEstimator{cfg: cfg}, statsCache, libraryCfg)

	server := api.NewServer(api.Deps{
		Config:       cfg,
		DB:           dbClient,
		Sessions:     sessionStore,
		Credits:      ledger,
		Orchestrator: orch,
		Library:      libraryCfg,
		StatsCache:   statsCache,
		Backfiller:   backfiller,
		Blobs:        blobs,
		Renderer:     renderer,
	})

	log.Printf("starting novelforge, HTTP port %s, config dir %s", httpPort, *configDir)
	if err := server.Start(":" + httpPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server stopped: %v", err)
	}
}

// newGateway wires the Gemini and OpenAI backends behind the uniform
// LLMGateway, grounded on original_source's provider dispatch: Gemini
// is always required (it is the primary family for every agent);
// OpenAI is optional and only wired when OPENAI_API_KEY is set.
func newGateway(ctx context.Context, cfg *config.Config) (*llm.Gateway, error) {
	googleKey := os.Getenv("GOOGLE_API_KEY")
	if googleKey == "" {
		log.Fatalf("GOOGLE_API_KEY is required")
	}
	google, err := llm.NewGeminiBackend(ctx, googleKey)
	if err != nil {
		return nil, err
	}

	var openai llm.Backend
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		openai, err = llm.NewOpenAIBackend(key)
		if err != nil {
			return nil, err
		}
	}

	policy := llm.RetryPolicy{
		MaxRetries: cfg.LiteraryCritic.MaxRetries,
		FallbackModel: map[string]string{
			cfg.CoverGeneration.PrimaryModel: cfg.CoverGeneration.FallbackModel,
			cfg.LiteraryCritic.DefaultModel:  cfg.LiteraryCritic.FallbackModel,
		},
		BackoffMin: time.Second,
	}

	return llm.NewGateway(google, openai, policy), nil
}

func newNotifier(cfg *config.Config) orchestrator.Notifier {
	if !cfg.Notify.Enabled {
		return notify.NewLogNotifier()
	}
	slackCfg := notify.SlackConfig{
		Token:        os.Getenv(cfg.Notify.TokenEnv),
		Channel:      cfg.Notify.Channel,
		DashboardURL: getEnv("DASHBOARD_URL", "http://localhost:5173"),
	}
	if n := notify.NewSlackNotifier(slackCfg); n != nil {
		return n
	}
	return notify.NewLogNotifier()
}

func orchestratorConfig(cfg *config.Config) orchestrator.Config {
	oc := orchestrator.DefaultConfig()
	oc.QuestionsRetry = orchestrator.PhaseRetry{MaxRetries: 2, Sleep: 2 * time.Second}
	oc.OutlineRetry = orchestrator.PhaseRetry{MaxRetries: 2, Sleep: 3 * time.Second}
	oc.Cover = orchestrator.CoverConfig{
		PrimaryModel:  cfg.CoverGeneration.PrimaryModel,
		FallbackModel: cfg.CoverGeneration.FallbackModel,
		AspectRatio:   cfg.CoverGeneration.AspectRatio,
		ImageSize:     cfg.CoverGeneration.ImageSize,
	}
	oc.Critique = orchestrator.CritiqueConfig{
		PrimaryModel:  cfg.LiteraryCritic.DefaultModel,
		FallbackModel: cfg.LiteraryCritic.FallbackModel,
		MaxRetries:    cfg.LiteraryCritic.MaxRetries,
		Temperature:   cfg.LiteraryCritic.Temperature,
	}
	for agentName, t := range cfg.Temperature.Agents {
		switch agentName {
		case "questions":
			oc.QuestionsTemperature = t
		case "draft":
			oc.DraftTemperature = t
		case "outline":
			oc.OutlineTemperature = t
		case "chapter":
			oc.ChapterTemperature = t
		}
	}
	return oc
}

func progressLinearParams(cfg *config.Config) map[model.Mode]progress.LinearParams {
	out := make(map[model.Mode]progress.LinearParams, len(cfg.TimeEstimation.LinearParamsByMethod))
	for method, p := range cfg.TimeEstimation.LinearParamsByMethod {
		out[model.Mode(method)] = progress.LinearParams{A: p.A, B: p.B}
	}
	return out
}

// costEstimator adapts config's post-hoc model pricing table to
// library.CostEstimator, used by the backfill job to recompute
// real_cost_eur for sessions that predate the pricing table: each
// recorded phase's tokens are priced against the model actually used
// for that phase, then summed and converted to EUR.
type costEstimator struct {
	cfg *config.Config
}

func (c *costEstimator) EstimateCost(sess *model.Session) (float64, bool) {
	if sess == nil || len(sess.TokenUsage.Phases) == 0 {
		return 0, false
	}
	var usd float64
	for _, usage := range sess.TokenUsage.Phases {
		if usage == nil || usage.Model == "" {
			continue
		}
		pricing := c.cfg.ModelPricing(usage.Model)
		usd += (float64(usage.InputTokens)/1_000_000)*pricing.InputPerMillion + (float64(usage.OutputTokens)/1_000_000)*pricing.OutputPerMillion
	}
	return usd * c.cfg.CostEstimation.ExchangeRateUSDToEUR, true
}
