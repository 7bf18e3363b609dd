package model

// LibraryEntry is the lightweight per-session projection C7 builds for
// list views (spec.md §4.7).
type LibraryEntry struct {
	SessionID          string         `json:"session_id"`
	Title              string         `json:"title"`
	Status             DerivedStatus  `json:"status"`
	LLMModeLabel       string         `json:"llm_mode_label"`
	TotalChapters       int           `json:"total_chapters"`
	CompletedChapters    int          `json:"completed_chapters"`
	TotalPages         *int           `json:"total_pages,omitempty"`
	CritiqueScore      *float64       `json:"critique_score,omitempty"`
	PDFPath            *string        `json:"pdf_path,omitempty"`
	EstimatedCostEUR   *float64       `json:"estimated_cost_eur,omitempty"`
	IsShared           bool           `json:"is_shared,omitempty"`
	SharedByID         *string        `json:"shared_by_id,omitempty"`
	SharedByName       *string        `json:"shared_by_name,omitempty"`
}

// LibraryStats is a pure reduction over a set of LibraryEntry/Session
// pairs (spec.md §4.7).
type LibraryStats struct {
	TotalBooks         int                `json:"total_books"`
	CompletedBooks     int                `json:"completed_books"`
	AverageScore       float64            `json:"average_score"`
	ScoreHistogram     map[int]int        `json:"score_histogram"`
	AverageCostPerMode map[string]float64 `json:"average_cost_per_mode"`
	// AveragePagesPerMinute is the weighted average (Σ pages / Σ minutes),
	// not an average of per-book ratios (spec.md §4.7).
	AveragePagesPerMinute map[string]float64 `json:"average_pages_per_minute"`
}

// AdvancedStats adds time-bucketed trend data on top of LibraryStats.
type AdvancedStats struct {
	LibraryStats
	BooksByDay   map[string]int `json:"books_by_day"`
	BooksByMonth map[string]int `json:"books_by_month"`
}
