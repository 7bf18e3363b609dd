package api

import (
	"context"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/novelforge/novelforge/pkg/library"
	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/session"
)

// listLibraryHandler handles GET /api/v1/library (spec.md §4.7
// LibraryProjector). Entries missing total_pages/estimated_cost on a
// complete session are served as-is; a background backfill (spec.md
// §8 scenario 5) fills them in for subsequent requests.
func (s *Server) listLibraryHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	userID := extractUserID(c)

	sessions, err := s.sessions.List(ctx, userID, session.ListFilters{}, session.ProjectionLight)
	if err != nil {
		return mapServiceError(err)
	}

	entries := make([]LibraryEntryResponse, 0, len(sessions))
	for _, sess := range sessions {
		entry := library.Project(sess, s.libraryCfg)
		if entry.Status == model.StatusComplete && entry.TotalPages == nil {
			go func(sessionID string) {
				if err := s.backfiller.Backfill(context.Background(), sessionID); err != nil {
					slog.Warn("library backfill failed", "session_id", sessionID, "error", err)
				}
			}(sess.SessionID)
		}
		entries = append(entries, newLibraryEntryResponse(entry))
	}

	return c.JSON(http.StatusOK, LibraryListResponse{Entries: entries})
}

// libraryStatsHandler handles GET /api/v1/library/stats, cached with a
// short TTL keyed by the requesting user (spec.md §4.7 "Caching").
func (s *Server) libraryStatsHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	userID := extractUserID(c)
	cacheKey := statsCacheKey(userID)

	if cached, ok := s.statsCache.Get(cacheKey); ok {
		return c.JSON(http.StatusOK, newStatsResponse(cached))
	}

	sessions, err := s.sessions.List(ctx, userID, session.ListFilters{}, session.ProjectionLight)
	if err != nil {
		return mapServiceError(err)
	}
	entries := make([]library.Entry, 0, len(sessions))
	for _, sess := range sessions {
		entries = append(entries, library.Project(sess, s.libraryCfg))
	}

	stats := library.ComputeStats(entries)
	s.statsCache.Set(cacheKey, stats)
	return c.JSON(http.StatusOK, newStatsResponse(stats))
}

// libraryAdvancedStatsHandler handles GET
// /api/v1/library/stats/advanced.
func (s *Server) libraryAdvancedStatsHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	userID := extractUserID(c)
	cacheKey := statsCacheKey(userID)

	if cached, ok := s.statsCache.GetAdvanced(cacheKey); ok {
		return c.JSON(http.StatusOK, newAdvancedStatsResponse(cached))
	}

	sessions, err := s.sessions.List(ctx, userID, session.ListFilters{}, session.ProjectionLight)
	if err != nil {
		return mapServiceError(err)
	}
	entries := make([]library.Entry, 0, len(sessions))
	for _, sess := range sessions {
		entries = append(entries, library.Project(sess, s.libraryCfg))
	}

	advanced := library.ComputeAdvancedStats(entries)
	s.statsCache.SetAdvanced(cacheKey, advanced)
	return c.JSON(http.StatusOK, newAdvancedStatsResponse(advanced))
}

func statsCacheKey(userID *string) string {
	if userID == nil {
		return "stats:all"
	}
	return "stats:" + *userID
}

func newStatsResponse(stats library.Stats) StatsResponse {
	return StatsResponse{
		TotalBooks:                stats.TotalBooks,
		CompletedBooks:            stats.CompletedBooks,
		InProgressBooks:           stats.InProgressBooks,
		AverageScore:              stats.AverageScore,
		AveragePages:              stats.AveragePages,
		AverageWritingTimeMinutes: stats.AverageWritingTimeMinutes,
		BooksByMode:               stats.BooksByMode,
		BooksByGenre:              stats.BooksByGenre,
		ScoreDistribution:         stats.ScoreDistribution,
		AverageScoreByMode:        stats.AverageScoreByMode,
		AverageWritingTimeByMode:  stats.AverageWritingTimeByMode,
		AverageTimePerPageByMode:  stats.AverageTimePerPageByMode,
		AverageCostByMode:         stats.AverageCostByMode,
	}
}

func newAdvancedStatsResponse(adv library.AdvancedStats) AdvancedStatsResponse {
	comparison := make([]ModelComparisonEntryResponse, len(adv.ModelComparison))
	for i, m := range adv.ModelComparison {
		comparison[i] = ModelComparisonEntryResponse{
			Mode: m.Mode, TotalBooks: m.TotalBooks, CompletedBooks: m.CompletedBooks,
			AverageScore: m.AverageScore, AveragePages: m.AveragePages, AverageCost: m.AverageCost,
			AverageWritingTime: m.AverageWritingTime, AverageTimePerPage: m.AverageTimePerPage,
			ScoreRange: m.ScoreRange,
		}
	}
	return AdvancedStatsResponse{
		BooksOverTime: adv.BooksOverTime, ScoreTrendOverTime: adv.ScoreTrendOverTime,
		ModelComparison: comparison,
	}
}
