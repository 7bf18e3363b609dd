package api

import (
	"time"

	"github.com/novelforge/novelforge/pkg/library"
	"github.com/novelforge/novelforge/pkg/model"
)

// SessionResponse wraps a Session with its pure derived status (spec.md
// §3 "no separate status column is the source of truth" — computed
// once here rather than persisted).
type SessionResponse struct {
	*model.Session
	Status model.DerivedStatus `json:"status"`
}

func newSessionResponse(sess *model.Session) *SessionResponse {
	return &SessionResponse{Session: sess, Status: sess.DerivedStatus()}
}

// CancelResponse is returned by POST /api/v1/sessions/:id/generation/cancel.
type CancelResponse struct {
	SessionID string `json:"session_id"`
	Cancelled bool   `json:"cancelled"`
}

// GenerationResponse is returned by the start/resume generation
// endpoints, which kick off a long-running background task rather than
// waiting for it to finish (spec.md §4.5).
type GenerationResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// ResidualEstimateResponse is returned by GET
// /api/v1/sessions/:id/estimate (spec.md §4.6).
type ResidualEstimateResponse struct {
	Minutes    float64 `json:"minutes"`
	Confidence string  `json:"confidence"`
}

// LibraryEntryResponse is one row of GET /api/v1/library (spec.md §4.7).
type LibraryEntryResponse struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Mode      string `json:"mode"`
	Genre     string `json:"genre,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Status    string `json:"status"`

	TotalChapters     int  `json:"total_chapters"`
	CompletedChapters int  `json:"completed_chapters"`
	TotalPages        *int `json:"total_pages,omitempty"`

	CritiqueScore  *float64 `json:"critique_score,omitempty"`
	CritiqueStatus string   `json:"critique_status"`

	PDFFilename    *string `json:"pdf_filename,omitempty"`
	CoverImagePath *string `json:"cover_image_path,omitempty"`

	WritingTimeMinutes *float64 `json:"writing_time_minutes,omitempty"`
	EstimatedCost      *float64 `json:"estimated_cost,omitempty"`

	IsShared     bool    `json:"is_shared,omitempty"`
	SharedByID   *string `json:"shared_by_id,omitempty"`
	SharedByName *string `json:"shared_by_name,omitempty"`
}

func newLibraryEntryResponse(e library.Entry) LibraryEntryResponse {
	return LibraryEntryResponse{
		SessionID:          e.SessionID,
		Title:              e.Title,
		Author:             e.Author,
		Mode:               e.Mode,
		Genre:              e.Genre,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
		Status:             string(e.Status),
		TotalChapters:      e.TotalChapters,
		CompletedChapters:  e.CompletedChapters,
		TotalPages:         e.TotalPages,
		CritiqueScore:      e.CritiqueScore,
		CritiqueStatus:     string(e.CritiqueStatus),
		PDFFilename:        e.PDFFilename,
		CoverImagePath:     e.CoverImagePath,
		WritingTimeMinutes: e.WritingTimeMinutes,
		EstimatedCost:      e.EstimatedCost,
		IsShared:           e.IsShared,
		SharedByID:         e.SharedByID,
		SharedByName:       e.SharedByName,
	}
}

// LibraryListResponse is returned by GET /api/v1/library.
type LibraryListResponse struct {
	Entries []LibraryEntryResponse `json:"entries"`
}

// StatsResponse is returned by GET /api/v1/library/stats (spec.md §4.7
// aggregates).
type StatsResponse struct {
	TotalBooks      int `json:"total_books"`
	CompletedBooks  int `json:"completed_books"`
	InProgressBooks int `json:"in_progress_books"`

	AverageScore              *float64           `json:"average_score,omitempty"`
	AveragePages              float64            `json:"average_pages"`
	AverageWritingTimeMinutes float64            `json:"average_writing_time_minutes"`
	BooksByMode               map[string]int     `json:"books_by_mode"`
	BooksByGenre              map[string]int     `json:"books_by_genre"`
	ScoreDistribution         map[string]int     `json:"score_distribution"`
	AverageScoreByMode        map[string]float64 `json:"average_score_by_mode"`
	AverageWritingTimeByMode  map[string]float64 `json:"average_writing_time_by_mode"`
	AverageTimePerPageByMode  map[string]float64 `json:"average_time_per_page_by_mode"`
	AverageCostByMode         map[string]float64 `json:"average_cost_by_mode,omitempty"`
}

// AdvancedStatsResponse is returned by GET
// /api/v1/library/stats/advanced.
type AdvancedStatsResponse struct {
	BooksOverTime      map[string]int                 `json:"books_over_time"`
	ScoreTrendOverTime map[string]float64             `json:"score_trend_over_time"`
	ModelComparison    []ModelComparisonEntryResponse  `json:"model_comparison"`
}

// ModelComparisonEntryResponse is one row of AdvancedStatsResponse's
// per-mode comparison table.
type ModelComparisonEntryResponse struct {
	Mode               string         `json:"mode"`
	TotalBooks         int            `json:"total_books"`
	CompletedBooks     int            `json:"completed_books"`
	AverageScore       *float64       `json:"average_score,omitempty"`
	AveragePages       float64        `json:"average_pages"`
	AverageCost        *float64       `json:"average_cost,omitempty"`
	AverageWritingTime float64        `json:"average_writing_time"`
	AverageTimePerPage float64        `json:"average_time_per_page"`
	ScoreRange         map[string]int `json:"score_range,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}
