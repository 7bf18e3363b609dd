package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelforge/novelforge/pkg/model"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil)
	assert.Equal(t, 0, stats.TotalBooks)
	assert.Nil(t, stats.AverageScore)
}

func TestComputeStatsWeightedTimePerPageNotMeanOfRatios(t *testing.T) {
	// Book A: 60 minutes / 10 pages = 6 min/page.
	// Book B: 10 minutes / 100 pages = 0.1 min/page.
	// Mean-of-ratios would give (6+0.1)/2 = 3.05.
	// Weighted: (60+10)/(10+100) = 70/110 = 0.636...
	entries := []Entry{
		{Mode: "Pro", Status: model.StatusComplete, TotalPages: intPtr(10), WritingTimeMinutes: floatPtr(60)},
		{Mode: "Pro", Status: model.StatusComplete, TotalPages: intPtr(100), WritingTimeMinutes: floatPtr(10)},
	}
	stats := ComputeStats(entries)
	assert.InDelta(t, 0.64, stats.AverageTimePerPageByMode["Pro"], 0.01)
}

func TestComputeStatsScoreDistributionBuckets(t *testing.T) {
	entries := []Entry{
		{Status: model.StatusComplete, CritiqueScore: floatPtr(1.5)},
		{Status: model.StatusComplete, CritiqueScore: floatPtr(5.0)},
		{Status: model.StatusComplete, CritiqueScore: floatPtr(9.9)},
	}
	stats := ComputeStats(entries)
	assert.Equal(t, 1, stats.ScoreDistribution["0-2"])
	assert.Equal(t, 1, stats.ScoreDistribution["4-6"])
	assert.Equal(t, 1, stats.ScoreDistribution["8-10"])
}

func TestComputeStatsCountsCompletedAndInProgress(t *testing.T) {
	entries := []Entry{
		{Status: model.StatusComplete},
		{Status: model.StatusWriting},
		{Status: model.StatusWriting},
	}
	stats := ComputeStats(entries)
	assert.Equal(t, 3, stats.TotalBooks)
	assert.Equal(t, 1, stats.CompletedBooks)
	assert.Equal(t, 2, stats.InProgressBooks)
}

func TestComputeAdvancedStatsBucketsByDayAndBuildsComparison(t *testing.T) {
	day := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Mode: "Pro", Status: model.StatusComplete, CreatedAt: day, CritiqueScore: floatPtr(7)},
		{Mode: "Flash", Status: model.StatusComplete, CreatedAt: day, CritiqueScore: floatPtr(5)},
	}
	adv := ComputeAdvancedStats(entries)
	assert.Equal(t, 2, adv.BooksOverTime["2026-03-05"])
	require.Len(t, adv.ModelComparison, 2)
	assert.Equal(t, "Flash", adv.ModelComparison[0].Mode) // sorted
	assert.Equal(t, "Pro", adv.ModelComparison[1].Mode)
}
