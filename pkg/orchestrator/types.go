// Package orchestrator implements C5 GenerationOrchestrator (spec.md
// §4.5): the long-running state machine that drives a Session from a
// validated draft through the autoregressive writing loop to a
// completed book, plus the asynchronous cover and critique
// sub-pipelines and the three preparatory background jobs (questions,
// draft, outline).
//
// Grounded on the teacher's pkg/queue package: WorkerPool's
// session-cancel registry (RegisterSession/UnregisterSession/
// CancelSession) generalizes directly to the one-task-per-session
// invariant, and Worker.pollAndProcess's claim→execute→terminal-status
// shape generalizes to StartGeneration/ResumeGeneration's
// load→run-loop→persist shape — adapted from a DB-polled work queue
// (the teacher claims pending AlertSessions) to directly-invoked
// goroutines (a book generation task is started by one explicit API
// call, not drawn from a shared backlog).
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/novelforge/novelforge/pkg/agent"
	"github.com/novelforge/novelforge/pkg/llm"
	"github.com/novelforge/novelforge/pkg/model"
)

// SessionStore is the subset of C1 the orchestrator depends on.
type SessionStore interface {
	Get(ctx context.Context, sessionID string, userID *string) (*model.Session, error)
	// GetSystem fetches a Session without an ownership check, for the
	// orchestrator's own internal re-fetches once a task is already
	// running detached from the request that started it.
	GetSystem(ctx context.Context, sessionID string) (*model.Session, error)
	UpdateWritingProgress(ctx context.Context, sessionID string, patch model.WritingProgressPatch) error
	PauseWriting(ctx context.Context, sessionID string, step int, section, errMsg string) error
	ResumeWriting(ctx context.Context, sessionID string) error
	UpdateWritingTimes(ctx context.Context, sessionID string, start, end *time.Time) error
	StartChapterTiming(ctx context.Context, sessionID string) error
	EndChapterTiming(ctx context.Context, sessionID string) (float64, error)
	UpdateBookChapter(ctx context.Context, sessionID, title, content string, sectionIndex int) error
	UpdateTokenUsage(ctx context.Context, sessionID string, phase model.PhaseKey, inTokens, outTokens int, modelName string) error
	UpdateCoverImagePath(ctx context.Context, sessionID, path string) error
	UpdateCritique(ctx context.Context, sessionID string, critique model.LiteraryCritique) error
	UpdateCritiqueStatus(ctx context.Context, sessionID string, status model.CritiqueStatus, errMsg *string) error
	SaveGeneratedQuestions(ctx context.Context, sessionID string, questions []model.GeneratedQuestion) error
	UpdateDraft(ctx context.Context, sessionID, text, title string, version *int) error
	UpdateOutline(ctx context.Context, sessionID, text string, allowIfWriting bool) error
	UpdatePhaseProgress(ctx context.Context, sessionID string, phase model.PhaseKey, progress model.PhaseProgress) error
}

// CreditLedger is the subset of C2 the orchestrator depends on.
type CreditLedger interface {
	Consume(ctx context.Context, userID string, mode model.Mode) (bool, model.CreditPool, error)
}

// BlobStore is C8's boundary contract: write an opaque-addressed blob
// and get back the address string stored on the Session.
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// Renderer is C9's boundary contract: produce the full book's PDF
// bytes from a Session (chapters, title, cover if present).
type Renderer interface {
	RenderPDF(ctx context.Context, sess *model.Session) ([]byte, error)
}

// Notifier is C10's boundary contract: fire-and-forget event delivery.
type Notifier interface {
	Notify(ctx context.Context, event string, sessionID string, payload map[string]any)
}

// Sanitizer strips language likely to trigger image-model safety
// rejections from a plot before it becomes a cover prompt (spec.md
// §4.5 item 5).
type Sanitizer interface {
	SanitizePlot(plot string) string
}

// CoverConfig configures the cover-generation stage (spec.md §4.5
// item 5: "primary image model, on any failure attempt the fallback
// image model").
type CoverConfig struct {
	PrimaryModel  string
	FallbackModel string
	AspectRatio   string
	ImageSize     string
}

// CritiqueConfig configures the critique stage's model + retry policy
// (distinct from pkg/llm.Gateway's own per-call retry — this one
// alternates models across parse failures too, per
// generate_literary_critique_from_pdf).
type CritiqueConfig struct {
	PrimaryModel  string
	FallbackModel string
	MaxRetries    int
	Temperature   float64
}

// PhaseRetry is one preparatory phase's retry cadence (spec.md §4.5
// "Background generation for the preparatory phases": "configurable
// per phase (default 2-3) with exponential-flavored sleep").
type PhaseRetry struct {
	MaxRetries int
	Sleep      time.Duration
}

// Config holds every orchestrator-tunable knob; the config-loading
// layer (pkg/config) is responsible for populating this from YAML.
type Config struct {
	MaxConcurrentSessions int

	QuestionsTemperature float64
	DraftTemperature     float64
	OutlineTemperature   float64
	ChapterTemperature   float64

	QuestionsRetry PhaseRetry
	DraftRetry     PhaseRetry
	OutlineRetry   PhaseRetry

	Cover    CoverConfig
	Critique CritiqueConfig
}

// DefaultConfig mirrors original_source's observed defaults: 2 retries
// / 2s sleep for questions, 2 retries / 3s sleep for outline, and no
// retry loop for draft (a single attempt — draft_generator.py never
// wraps its LLM call in a retry loop the way generation_service.py's
// background_generate_questions and background_generate_outline do).
func DefaultConfig() Config {
	return Config{
		MaxConcurrentSessions: 4,
		QuestionsTemperature:  1.0,
		DraftTemperature:      1.0,
		OutlineTemperature:    1.0,
		ChapterTemperature:    1.0,
		QuestionsRetry:        PhaseRetry{MaxRetries: 2, Sleep: 2 * time.Second},
		DraftRetry:            PhaseRetry{MaxRetries: 0, Sleep: 0},
		OutlineRetry:          PhaseRetry{MaxRetries: 2, Sleep: 3 * time.Second},
		Cover: CoverConfig{
			PrimaryModel:  "gemini-3-pro-image-preview",
			FallbackModel: "gemini-2.5-flash-image",
			AspectRatio:   "2:3",
		},
		Critique: CritiqueConfig{
			PrimaryModel:  "gemini-3-pro-preview",
			FallbackModel: "gemini-3-flash-preview",
			MaxRetries:    2,
			Temperature:   0.0,
		},
	}
}

// Orchestrator is C5: it owns the one-task-per-session registry and
// dispatches the state machine's transitions.
type Orchestrator struct {
	store     SessionStore
	credits   CreditLedger
	gateway   *llm.Gateway
	templates agent.Templates
	blobs     BlobStore
	renderer  Renderer
	notifier  Notifier
	sanitizer Sanitizer
	cfg       Config

	mu      sync.Mutex
	active  map[string]context.CancelFunc
	sem     chan struct{}
}

// New constructs an Orchestrator.
func New(store SessionStore, credits CreditLedger, gateway *llm.Gateway, templates agent.Templates, blobs BlobStore, renderer Renderer, notifier Notifier, sanitizer Sanitizer, cfg Config) *Orchestrator {
	if cfg.MaxConcurrentSessions <= 0 {
		cfg.MaxConcurrentSessions = 1
	}
	return &Orchestrator{
		store:     store,
		credits:   credits,
		gateway:   gateway,
		templates: templates,
		blobs:     blobs,
		renderer:  renderer,
		notifier:  notifier,
		sanitizer: sanitizer,
		cfg:       cfg,
		active:    make(map[string]context.CancelFunc),
		sem:       make(chan struct{}, cfg.MaxConcurrentSessions),
	}
}

// register claims the session for this orchestrator instance,
// returning false if a task is already active for it (callers then
// return ErrAlreadyRunning)
// (spec.md §4.5 "Idempotence": "StartGeneration called while one is
// already running... must be rejected or coalesce" -- this
// implementation rejects).
func (o *Orchestrator) register(sessionID string, cancel context.CancelFunc) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.active[sessionID]; exists {
		return false
	}
	o.active[sessionID] = cancel
	return true
}

func (o *Orchestrator) unregister(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, sessionID)
}

// CancelSession triggers cooperative cancellation for an in-flight
// generation task. Returns true if a task was found and cancelled.
func (o *Orchestrator) CancelSession(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cancel, ok := o.active[sessionID]; ok {
		cancel()
		return true
	}
	return false
}

// IsActive reports whether a generation task is currently registered
// for sessionID.
func (o *Orchestrator) IsActive(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.active[sessionID]
	return ok
}
