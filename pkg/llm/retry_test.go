package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/novelforge/novelforge/pkg/services"
)

// fakeBackend lets tests control GenerateText's per-call outcome by
// the model name it was invoked with.
type fakeBackend struct {
	calls   []string
	failFor map[string]error
}

func (f *fakeBackend) GenerateText(ctx context.Context, systemPrompt, userPrompt, modelName string, temperature float64, responseMIMEType string) (string, TokenUsage, error) {
	f.calls = append(f.calls, modelName)
	if err, ok := f.failFor[modelName]; ok {
		return "", TokenUsage{}, err
	}
	return "ok:" + modelName, TokenUsage{Model: modelName, InputTokens: 1, OutputTokens: 1}, nil
}
func (f *fakeBackend) GenerateImage(ctx context.Context, prompt, modelName, aspectRatio, imageSize string) ([]byte, error) {
	return nil, nil
}
func (f *fakeBackend) GenerateMultimodal(ctx context.Context, systemPrompt, userPrompt string, parts []Part, modelName string, temperature float64, responseMIMEType string) (string, TokenUsage, error) {
	return "", TokenUsage{}, nil
}
func (f *fakeBackend) ExtractTextFromPDF(ctx context.Context, data []byte, maxChars int) (string, error) {
	return "", nil
}
func (f *fakeBackend) AcceptsPDF() bool { return true }

func fastPolicy(maxRetries int, fallback map[string]string) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, FallbackModel: fallback, BackoffMin: time.Millisecond, BackoffMax: 2 * time.Millisecond}
}

func TestGenerateTextSucceedsOnFallbackModel(t *testing.T) {
	backend := &fakeBackend{failFor: map[string]error{"gemini-3-pro-preview": errors.New("503")}}
	gw := NewGateway(backend, nil, fastPolicy(1, map[string]string{"gemini-3-pro-preview": "gemini-3-flash-preview"}))

	text, usage, err := gw.GenerateText(context.Background(), "sys", "user", "gemini-3-pro", 0.5, "")
	require.NoError(t, err)
	require.Equal(t, "ok:gemini-3-flash-preview", text)
	require.Equal(t, "gemini-3-flash-preview", usage.Model)
	require.Equal(t, []string{"gemini-3-pro-preview", "gemini-3-flash-preview"}, backend.calls)
}

func TestGenerateTextExhaustsRetriesAndFails(t *testing.T) {
	backend := &fakeBackend{failFor: map[string]error{
		"gemini-3-pro-preview":   errors.New("503"),
		"gemini-3-flash-preview": errors.New("503"),
	}}
	gw := NewGateway(backend, nil, fastPolicy(1, map[string]string{"gemini-3-pro-preview": "gemini-3-flash-preview"}))

	_, _, err := gw.GenerateText(context.Background(), "sys", "user", "gemini-3-pro", 0.5, "")
	require.Error(t, err)
	require.ErrorIs(t, err, services.ErrLLMFailure)
	var failure *services.LLMFailureError
	require.ErrorAs(t, err, &failure)
	require.Equal(t, "gemini-3-pro-preview", failure.Model)
}
