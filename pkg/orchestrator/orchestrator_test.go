package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelforge/novelforge/pkg/agent"
	"github.com/novelforge/novelforge/pkg/llm"
	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/services"
)

// fakeBackend is a minimal llm.Backend stub so tests can construct a
// real *llm.Gateway without calling out to any provider.
type fakeBackend struct{}

func (fakeBackend) GenerateText(ctx context.Context, systemPrompt, userPrompt, modelName string, temperature float64, responseMIMEType string) (string, llm.TokenUsage, error) {
	return "generated prose", llm.TokenUsage{InputTokens: 10, OutputTokens: 20, Model: modelName}, nil
}
func (fakeBackend) GenerateImage(ctx context.Context, prompt, modelName, aspectRatio, imageSize string) ([]byte, error) {
	return []byte("fake-png"), nil
}
func (fakeBackend) GenerateMultimodal(ctx context.Context, systemPrompt, userPrompt string, parts []llm.Part, modelName string, temperature float64, responseMIMEType string) (string, llm.TokenUsage, error) {
	return "{}", llm.TokenUsage{Model: modelName}, nil
}
func (fakeBackend) ExtractTextFromPDF(ctx context.Context, data []byte, maxChars int) (string, error) {
	return "", nil
}
func (fakeBackend) AcceptsPDF() bool { return false }

func newFakeGateway() *llm.Gateway {
	return llm.NewGateway(fakeBackend{}, nil, llm.RetryPolicy{})
}

// No-op stand-ins for the boundary interfaces, so tests that let
// runGeneration's background goroutine run to completion (which
// fires off the cover and critique sub-pipelines) don't panic on a
// nil interface call.
type noopBlobs struct{}

func (noopBlobs) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	return "mem://" + path, nil
}

type noopRenderer struct{}

func (noopRenderer) RenderPDF(ctx context.Context, sess *model.Session) ([]byte, error) {
	return []byte("%PDF-"), nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, event string, sessionID string, payload map[string]any) {
}

type noopSanitizer struct{}

func (noopSanitizer) SanitizePlot(plot string) string { return plot }

// fakeStore is a minimal in-memory SessionStore for orchestrator tests.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	phases   map[model.PhaseKey]model.PhaseProgress

	pauseErrMsg string
	paused      bool
	resumed     bool
}

func newFakeStore(sess *model.Session) *fakeStore {
	return &fakeStore{
		sessions: map[string]*model.Session{sess.SessionID: sess},
		phases:   map[model.PhaseKey]model.PhaseProgress{},
	}
}

func (f *fakeStore) Get(ctx context.Context, sessionID string, userID *string) (*model.Session, error) {
	return f.GetSystem(ctx, sessionID)
}

func (f *fakeStore) GetSystem(ctx context.Context, sessionID string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, services.ErrNotFound
	}
	return sess, nil
}

func (f *fakeStore) UpdateWritingProgress(ctx context.Context, sessionID string, patch model.WritingProgressPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess := f.sessions[sessionID]
	sess.WritingProgress = &model.WritingProgress{
		CurrentStep:        patch.CurrentStep,
		TotalSteps:         patch.TotalSteps,
		CurrentSectionName: patch.CurrentSectionName,
		IsComplete:         patch.IsComplete,
		IsPaused:           patch.IsPaused,
		Error:              patch.Error,
	}
	return nil
}

func (f *fakeStore) PauseWriting(ctx context.Context, sessionID string, step int, section, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
	f.pauseErrMsg = errMsg
	sess := f.sessions[sessionID]
	sess.WritingProgress.IsPaused = true
	sess.WritingProgress.Error = &errMsg
	return nil
}

func (f *fakeStore) ResumeWriting(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed = true
	f.sessions[sessionID].WritingProgress.IsPaused = false
	return nil
}

func (f *fakeStore) UpdateWritingTimes(ctx context.Context, sessionID string, start, end *time.Time) error {
	return nil
}
func (f *fakeStore) StartChapterTiming(ctx context.Context, sessionID string) error { return nil }
func (f *fakeStore) EndChapterTiming(ctx context.Context, sessionID string) (float64, error) {
	return 0, nil
}
func (f *fakeStore) UpdateBookChapter(ctx context.Context, sessionID, title, content string, sectionIndex int) error {
	return nil
}
func (f *fakeStore) UpdateTokenUsage(ctx context.Context, sessionID string, phase model.PhaseKey, inTokens, outTokens int, modelName string) error {
	return nil
}
func (f *fakeStore) UpdateCoverImagePath(ctx context.Context, sessionID, path string) error {
	return nil
}
func (f *fakeStore) UpdateCritique(ctx context.Context, sessionID string, critique model.LiteraryCritique) error {
	return nil
}
func (f *fakeStore) UpdateCritiqueStatus(ctx context.Context, sessionID string, status model.CritiqueStatus, errMsg *string) error {
	return nil
}
func (f *fakeStore) SaveGeneratedQuestions(ctx context.Context, sessionID string, questions []model.GeneratedQuestion) error {
	return nil
}
func (f *fakeStore) UpdateDraft(ctx context.Context, sessionID, text, title string, version *int) error {
	return nil
}
func (f *fakeStore) UpdateOutline(ctx context.Context, sessionID, text string, allowIfWriting bool) error {
	return nil
}
func (f *fakeStore) UpdatePhaseProgress(ctx context.Context, sessionID string, phase model.PhaseKey, progress model.PhaseProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phases[phase] = progress
	return nil
}

func newOrchestrator(store SessionStore) *Orchestrator {
	return New(store, nil, newFakeGateway(), agent.Templates{}, noopBlobs{}, noopRenderer{}, noopNotifier{}, noopSanitizer{}, DefaultConfig())
}

func TestRegisterUnregisterCancelSession(t *testing.T) {
	o := newOrchestrator(newFakeStore(&model.Session{SessionID: "s1"}))

	_, cancel := context.WithCancel(context.Background())
	require.True(t, o.register("s1", cancel))
	assert.True(t, o.IsActive("s1"))

	// Registering again while active must fail (one task per session).
	_, cancel2 := context.WithCancel(context.Background())
	assert.False(t, o.register("s1", cancel2))
	cancel2()

	assert.True(t, o.CancelSession("s1"))
	assert.False(t, o.CancelSession("unknown"))

	o.unregister("s1")
	assert.False(t, o.IsActive("s1"))
}

func TestResumeGenerationResetsStepOnOutlineMismatch(t *testing.T) {
	sess := &model.Session{
		SessionID: "s1",
		Outline:   model.Outline{CurrentText: "## One\n## Two\n## Three\n"},
		WritingProgress: &model.WritingProgress{
			CurrentStep: 5,
			TotalSteps:  2, // stale: outline now has 3 sections
			IsPaused:    true,
		},
	}
	store := newFakeStore(sess)
	o := newOrchestrator(store)

	err := o.ResumeGeneration(context.Background(), "s1", nil)
	require.NoError(t, err)

	assert.True(t, store.resumed)
	assert.True(t, o.IsActive("s1"))
	o.CancelSession("s1")
}

func TestResumeGenerationRejectsNonPausedSession(t *testing.T) {
	sess := &model.Session{
		SessionID:       "s1",
		Outline:         model.Outline{CurrentText: "## One\n"},
		WritingProgress: &model.WritingProgress{IsPaused: false},
	}
	o := newOrchestrator(newFakeStore(sess))

	err := o.ResumeGeneration(context.Background(), "s1", nil)
	assert.ErrorIs(t, err, services.ErrPrecondition)
}

func TestResumeGenerationRejectsConcurrentResume(t *testing.T) {
	sess := &model.Session{
		SessionID:       "s1",
		Outline:         model.Outline{CurrentText: "## One\n## Two\n"},
		WritingProgress: &model.WritingProgress{IsPaused: true, TotalSteps: 2},
	}
	o := newOrchestrator(newFakeStore(sess))

	_, cancel := context.WithCancel(context.Background())
	require.True(t, o.register("s1", cancel))
	defer cancel()

	err := o.ResumeGeneration(context.Background(), "s1", nil)
	assert.ErrorIs(t, err, services.ErrAlreadyRunning)
}

func TestStartGenerationRequiresValidatedDraftAndOutline(t *testing.T) {
	sess := &model.Session{SessionID: "s1"}
	o := newOrchestrator(newFakeStore(sess))

	err := o.StartGeneration(context.Background(), "s1", nil)
	assert.ErrorIs(t, err, services.ErrPrecondition)

	sess.Draft.Validated = true
	err = o.StartGeneration(context.Background(), "s1", nil)
	assert.ErrorIs(t, err, services.ErrPrecondition)
}

func TestPauseNormalizesCancellation(t *testing.T) {
	store := newFakeStore(&model.Session{
		SessionID:       "s1",
		WritingProgress: &model.WritingProgress{},
	})
	o := newOrchestrator(store)

	o.pause("s1", 0, "Chapter One", fmt.Errorf("cancelled"))
	assert.Equal(t, "cancelled", store.pauseErrMsg)

	o.pause("s1", 0, "Chapter One", fmt.Errorf("boom: rate limited"))
	assert.Equal(t, "boom: rate limited", store.pauseErrMsg)
}

func TestRunPhaseJobRetriesThenSucceeds(t *testing.T) {
	store := newFakeStore(&model.Session{SessionID: "s1"})
	o := newOrchestrator(store)
	o.cfg.QuestionsRetry = PhaseRetry{MaxRetries: 2, Sleep: time.Millisecond}

	attempts := 0
	o.runPhaseJob(context.Background(), "s1", model.PhaseQuestions, o.cfg.QuestionsRetry, func(ctx context.Context) (map[string]any, error) {
		attempts++
		if attempts < 2 {
			return nil, fmt.Errorf("transient failure")
		}
		return map[string]any{"ok": true}, nil
	})

	assert.Equal(t, 2, attempts)
	progress := store.phases[model.PhaseQuestions]
	assert.Equal(t, model.PhaseCompleted, progress.Status)
	assert.Equal(t, map[string]any{"ok": true}, progress.Result)
}

func TestRunPhaseJobExhaustsRetriesAndFails(t *testing.T) {
	store := newFakeStore(&model.Session{SessionID: "s1"})
	o := newOrchestrator(store)
	retry := PhaseRetry{MaxRetries: 1, Sleep: time.Millisecond}

	attempts := 0
	o.runPhaseJob(context.Background(), "s1", model.PhaseDraft, retry, func(ctx context.Context) (map[string]any, error) {
		attempts++
		return nil, fmt.Errorf("permanent failure")
	})

	assert.Equal(t, 2, attempts) // one initial attempt + one retry
	progress := store.phases[model.PhaseDraft]
	assert.Equal(t, model.PhaseFailed, progress.Status)
	require.NotNil(t, progress.Error)
	assert.Equal(t, "permanent failure", *progress.Error)
}

func TestRunPhaseJobNoRetryRunsOnce(t *testing.T) {
	store := newFakeStore(&model.Session{SessionID: "s1"})
	o := newOrchestrator(store)

	attempts := 0
	o.runPhaseJob(context.Background(), "s1", model.PhaseDraft, PhaseRetry{MaxRetries: 0}, func(ctx context.Context) (map[string]any, error) {
		attempts++
		return nil, fmt.Errorf("single shot failure")
	})

	assert.Equal(t, 1, attempts)
	assert.Equal(t, model.PhaseFailed, store.phases[model.PhaseDraft].Status)
}
