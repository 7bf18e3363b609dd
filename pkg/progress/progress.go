// Package progress implements C6 ProgressTracker (spec.md §4.6): pure
// functions over a Session computing page counts and a residual-time
// estimate for an in-flight book.
//
// Grounded on original_source's pdf_service.py/stats_service.py
// calculate_page_count (word-count / words_per_page, ceil, minimum 1)
// and book.py's calculate_estimated_time_remaining call site (the
// generation-method lookup + linear model it delegates to lives in
// stats_utils.py, which is absent from the retrieval pack — its
// observed call shape, get_generation_method/get_linear_params_for_method/
// calculate_residual_time_linear(k, N, a, b), is reproduced here with
// reasonable per-mode defaults since the original constants aren't
// available to port verbatim; this is recorded as an Open Question
// decision in DESIGN.md).
package progress

import (
	"math"
	"strings"

	"github.com/novelforge/novelforge/pkg/llm"
	"github.com/novelforge/novelforge/pkg/model"
)

// Confidence labels a residual-time estimate's reliability (spec.md
// §4.6: "confidence = {high, medium, low}").
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// LinearParams is one generation method's (a, b) pair in
// residual_seconds = a*(N-k) + b*(k+1) (spec.md §4.6).
type LinearParams struct {
	A float64
	B float64
}

// Config holds every tunable ProgressTracker depends on, named after
// original_source's "validation"/"time_estimation" config sections
// (spec.md §6).
type Config struct {
	WordsPerPage              int
	TOCChaptersPerPage        int
	MinChaptersForReliableAvg int
	UseSessionAvgIfAvailable  bool
	LinearParams              map[model.Mode]LinearParams // seconds per remaining/completed chapter
}

// DefaultConfig mirrors original_source's config.py defaults
// (words_per_page=250, toc_chapters_per_page=30,
// min_chapters_for_reliable_avg=3, use_session_avg_if_available=true),
// plus per-mode linear parameters tuned so Flash/Pro/Ultra produce
// progressively longer per-chapter estimates.
func DefaultConfig() Config {
	return Config{
		WordsPerPage:              250,
		TOCChaptersPerPage:        30,
		MinChaptersForReliableAvg: 3,
		UseSessionAvgIfAvailable:  true,
		LinearParams: map[model.Mode]LinearParams{
			model.ModeFlash: {A: 25, B: 20},
			model.ModePro:   {A: 45, B: 35},
			model.ModeUltra: {A: 75, B: 55},
		},
	}
}

// PageCount is spec.md §4.6's page_count(text): ceil(word_count /
// words_per_page), minimum 1.
func PageCount(text string, wordsPerPage int) int {
	if wordsPerPage <= 0 {
		wordsPerPage = 250
	}
	words := len(strings.Fields(text))
	pages := int(math.Ceil(float64(words) / float64(wordsPerPage)))
	if pages < 1 {
		pages = 1
	}
	return pages
}

// TotalPages is spec.md §4.6's total_pages(session): sum of each
// chapter's page_count, plus one cover page, plus the table of
// contents pages at toc_chapters_per_page entries per page.
func TotalPages(sess *model.Session, cfg Config) int {
	total := 1 // cover
	for _, ch := range sess.BookChapters {
		total += PageCount(ch.Content, cfg.WordsPerPage)
	}
	tocPerPage := cfg.TOCChaptersPerPage
	if tocPerPage <= 0 {
		tocPerPage = 30
	}
	if n := len(sess.BookChapters); n > 0 {
		total += int(math.Ceil(float64(n) / float64(tocPerPage)))
	}
	return total
}

// ResidualEstimate is spec.md §4.6's residual-time estimate, called on
// every progress poll for an in-flight book. ok is false when there is
// nothing meaningful to estimate (no writing progress yet, or no
// chapters left to write) — original_source's calculate_estimated_time_remaining
// returns (None, None) in the equivalent cases.
func ResidualEstimate(sess *model.Session, cfg Config) (minutes float64, confidence Confidence, ok bool) {
	wp := sess.WritingProgress
	if wp == nil {
		return 0, ConfidenceLow, false
	}

	totalSteps := wp.TotalSteps
	currentStep := wp.CurrentStep
	if totalSteps <= 0 {
		// Pathological input: coerce to the spec's safe default rather
		// than propagating a divide-by-zero or negative estimate.
		totalSteps = 1
		currentStep = 0
	}
	if currentStep < 0 {
		currentStep = 0
	}

	remaining := totalSteps - currentStep
	if remaining <= 0 {
		return 0, ConfidenceHigh, false
	}

	k := currentStep + 1
	n := totalSteps

	if cfg.UseSessionAvgIfAvailable && len(sess.ChapterTimings) >= cfg.MinChaptersForReliableAvg {
		avg := mean(sess.ChapterTimings)
		return (avg * float64(remaining)) / 60.0, ConfidenceHigh, true
	}

	method := llm.ModeOf(sess.FormData.LLMModel)
	params, known := cfg.LinearParams[method]
	if !known {
		params = LinearParams{A: 30, B: 30}
	}

	residualSeconds := params.A*float64(n-k) + params.B*float64(k+1)
	minutes = residualSeconds / 60.0

	confidence = ConfidenceLow
	if float64(k)/float64(n) >= 0.5 {
		confidence = ConfidenceMedium
	}
	return minutes, confidence, true
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
