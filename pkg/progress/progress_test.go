package progress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelforge/novelforge/pkg/model"
)

func TestPageCountRoundsUpWithMinimumOne(t *testing.T) {
	assert.Equal(t, 1, PageCount("", 250))
	assert.Equal(t, 1, PageCount("one two three", 250))

	words := strings.Repeat("word ", 251)
	assert.Equal(t, 2, PageCount(words, 250))

	assert.Equal(t, 1, PageCount("word word word", 0)) // invalid config falls back to 250
}

func TestTotalPagesSumsChaptersCoverAndTOC(t *testing.T) {
	sess := &model.Session{
		BookChapters: []model.BookChapter{
			{Content: strings.Repeat("word ", 250)}, // 1 page
			{Content: strings.Repeat("word ", 500)}, // 2 pages
		},
	}
	cfg := DefaultConfig()

	// 1 (cover) + 1 + 2 (chapters) + ceil(2/30)=1 (toc) = 5
	assert.Equal(t, 5, TotalPages(sess, cfg))
}

func TestResidualEstimateNoWritingProgress(t *testing.T) {
	sess := &model.Session{}
	_, _, ok := ResidualEstimate(sess, DefaultConfig())
	assert.False(t, ok)
}

func TestResidualEstimateNothingRemaining(t *testing.T) {
	sess := &model.Session{
		WritingProgress: &model.WritingProgress{CurrentStep: 10, TotalSteps: 10},
	}
	_, _, ok := ResidualEstimate(sess, DefaultConfig())
	assert.False(t, ok)
}

func TestResidualEstimateUsesSessionAverageWhenReliable(t *testing.T) {
	sess := &model.Session{
		FormData:        model.FormData{LLMModel: "gemini-3-pro-preview"},
		WritingProgress: &model.WritingProgress{CurrentStep: 3, TotalSteps: 10},
		ChapterTimings:  []float64{120, 130, 110}, // avg 120s/chapter, >= MinChaptersForReliableAvg
	}
	minutes, confidence, ok := ResidualEstimate(sess, DefaultConfig())
	require.True(t, ok)
	assert.Equal(t, ConfidenceHigh, confidence)
	// remaining = 10-3 = 7 chapters * 120s / 60 = 14 minutes
	assert.InDelta(t, 14.0, minutes, 0.01)
}

func TestResidualEstimateFallsBackToLinearModel(t *testing.T) {
	sess := &model.Session{
		FormData:        model.FormData{LLMModel: "gemini-3-flash-preview"},
		WritingProgress: &model.WritingProgress{CurrentStep: 1, TotalSteps: 10},
	}
	minutes, confidence, ok := ResidualEstimate(sess, DefaultConfig())
	require.True(t, ok)
	assert.Equal(t, ConfidenceLow, confidence) // k/n = 2/10 < 0.5
	assert.Greater(t, minutes, 0.0)
}

func TestResidualEstimateConfidenceRisesPastHalfway(t *testing.T) {
	sess := &model.Session{
		FormData:        model.FormData{LLMModel: "gemini-3-flash-preview"},
		WritingProgress: &model.WritingProgress{CurrentStep: 8, TotalSteps: 10},
	}
	_, confidence, ok := ResidualEstimate(sess, DefaultConfig())
	require.True(t, ok)
	assert.Equal(t, ConfidenceMedium, confidence) // k/n = 9/10 >= 0.5
}

func TestResidualEstimateCoercesPathologicalTotalSteps(t *testing.T) {
	sess := &model.Session{
		FormData:        model.FormData{LLMModel: "gemini-3-flash-preview"},
		WritingProgress: &model.WritingProgress{CurrentStep: 99, TotalSteps: 0},
	}
	// total_steps <= 0 coerces to {1 step, step 0}; remaining becomes 1
	// rather than negative or a divide-by-zero.
	minutes, _, ok := ResidualEstimate(sess, DefaultConfig())
	require.True(t, ok)
	assert.Greater(t, minutes, 0.0)
}
