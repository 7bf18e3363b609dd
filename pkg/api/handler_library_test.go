package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/novelforge/novelforge/pkg/library"
)

func TestStatsCacheKey(t *testing.T) {
	assert.Equal(t, "stats:all", statsCacheKey(nil))

	userID := "alice"
	assert.Equal(t, "stats:alice", statsCacheKey(&userID))
}

func TestNewStatsResponse(t *testing.T) {
	avg := 8.5
	stats := library.Stats{
		TotalBooks:                3,
		CompletedBooks:            2,
		InProgressBooks:           1,
		AverageScore:              &avg,
		AveragePages:              210.5,
		AverageWritingTimeMinutes: 42.0,
		BooksByMode:               map[string]int{"pro": 2, "flash": 1},
		BooksByGenre:              map[string]int{"fantasy": 3},
		ScoreDistribution:         map[string]int{"8-9": 2},
		AverageScoreByMode:        map[string]float64{"pro": 8.5},
		AverageWritingTimeByMode:  map[string]float64{"pro": 50.0},
		AverageTimePerPageByMode:  map[string]float64{"pro": 0.2},
		AverageCostByMode:         map[string]float64{"pro": 1.23},
	}

	resp := newStatsResponse(stats)

	assert.Equal(t, stats.TotalBooks, resp.TotalBooks)
	assert.Equal(t, stats.CompletedBooks, resp.CompletedBooks)
	assert.Equal(t, stats.InProgressBooks, resp.InProgressBooks)
	if assert.NotNil(t, resp.AverageScore) {
		assert.Equal(t, avg, *resp.AverageScore)
	}
	assert.Equal(t, stats.BooksByMode, resp.BooksByMode)
	assert.Equal(t, stats.AverageCostByMode, resp.AverageCostByMode)
}

func TestNewAdvancedStatsResponse(t *testing.T) {
	score := 9.1
	cost := 4.5
	adv := library.AdvancedStats{
		BooksOverTime:      map[string]int{"2026-07": 2},
		ScoreTrendOverTime: map[string]float64{"2026-07": 9.0},
		ModelComparison: []library.ModelComparisonEntry{
			{
				Mode:               "pro",
				TotalBooks:         5,
				CompletedBooks:     4,
				AverageScore:       &score,
				AveragePages:       180.0,
				AverageCost:        &cost,
				AverageWritingTime: 30.0,
				AverageTimePerPage: 0.16,
				ScoreRange:         map[string]int{"9-10": 3},
			},
		},
	}

	resp := newAdvancedStatsResponse(adv)

	assert.Equal(t, adv.BooksOverTime, resp.BooksOverTime)
	assert.Equal(t, adv.ScoreTrendOverTime, resp.ScoreTrendOverTime)
	if assert.Len(t, resp.ModelComparison, 1) {
		entry := resp.ModelComparison[0]
		assert.Equal(t, "pro", entry.Mode)
		assert.Equal(t, 5, entry.TotalBooks)
		assert.Equal(t, 4, entry.CompletedBooks)
		if assert.NotNil(t, entry.AverageScore) {
			assert.Equal(t, score, *entry.AverageScore)
		}
		if assert.NotNil(t, entry.AverageCost) {
			assert.Equal(t, cost, *entry.AverageCost)
		}
		assert.Equal(t, adv.ModelComparison[0].ScoreRange, entry.ScoreRange)
	}
}

func TestNewLibraryEntryResponse(t *testing.T) {
	pages := 220
	entry := library.Entry{
		SessionID:     "sess-1",
		Title:         "The Long Road",
		Author:        "J. Doe",
		Mode:          "pro",
		Genre:         "fantasy",
		TotalChapters: 12,
		TotalPages:    &pages,
	}

	resp := newLibraryEntryResponse(entry)

	assert.Equal(t, entry.SessionID, resp.SessionID)
	assert.Equal(t, entry.Title, resp.Title)
	assert.Equal(t, entry.Mode, resp.Mode)
	if assert.NotNil(t, resp.TotalPages) {
		assert.Equal(t, pages, *resp.TotalPages)
	}
}
