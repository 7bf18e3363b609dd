// Package library implements C7 LibraryProjector (spec.md §4.7): reads
// Sessions via C1's lightweight projection query and converts each to
// a LibraryEntry for the library listing view, plus the aggregate
// LibraryStats/AdvancedStats reductions and a short-TTL cache over
// them.
//
// Grounded throughout on original_source/backend/app/services/stats_service.py's
// session_to_library_entry, calculate_library_stats, and
// calculate_advanced_stats.
package library

import (
	"strings"
	"time"

	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/progress"
)

// Entry is one row of the library listing (spec.md §4.7).
type Entry struct {
	SessionID string
	Title     string
	Author    string
	// Mode is the display label (Flash/Pro/Ultra), never the raw model
	// id (spec.md §4.7: "llm_model presented as the mode label").
	Mode      string
	Genre     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Status    model.DerivedStatus

	TotalChapters     int
	CompletedChapters int
	TotalPages        *int

	CritiqueScore  *float64
	CritiqueStatus model.CritiqueStatus

	PDFFilename    *string
	CoverImagePath *string

	WritingTimeMinutes *float64
	EstimatedCost      *float64

	IsShared     bool
	SharedByID   *string
	SharedByName *string
}

// Config holds the ProgressTracker config the projector needs to
// backfill a missing total_pages.
type Config struct {
	Progress progress.Config
}

func DefaultConfig() Config {
	return Config{Progress: progress.DefaultConfig()}
}

// ModeLabel converts a raw model id to its display mode (spec.md §4.7),
// grounded on stats_service.py's llm_model_to_mode. Unlike
// llm.ModeOf's credit-tier default-to-Flash behavior, an unrecognized
// model here is reported as "Unknown" rather than silently mapped to a
// tier, since this is user-facing display, not a billing decision.
func ModeLabel(modelName string) string {
	n := strings.ToLower(modelName)
	switch {
	case strings.Contains(n, "ultra"):
		return "Ultra"
	case strings.Contains(n, "flash"):
		return "Flash"
	case strings.Contains(n, "pro"):
		return "Pro"
	default:
		return "Unknown"
	}
}

// ModelAbbreviation is stats_service.py's get_model_abbreviation,
// ported verbatim: a small lookup table for the common models, with a
// generic fallback for anything else.
func ModelAbbreviation(modelName string) string {
	n := strings.ToLower(modelName)
	switch {
	case strings.Contains(n, "gemini-2.5-flash"):
		return "g25f"
	case strings.Contains(n, "gemini-2.5-pro"):
		return "g25p"
	case strings.Contains(n, "gemini-3-flash"):
		return "g3f"
	case strings.Contains(n, "gemini-3-pro"):
		return "g3p"
	default:
		abbr := strings.ReplaceAll(modelName, "gemini-", "g")
		abbr = strings.ReplaceAll(abbr, "-", "")
		abbr = strings.ReplaceAll(abbr, "_", "")
		if len(abbr) > 6 {
			abbr = abbr[:6]
		}
		return abbr
	}
}

// SanitizeTitle is spec.md §6's sanitized_title rule: keep
// alphanumerics/space/-/_, replace spaces with underscores, fall back
// to "Libro_{first-8-of-sessionid}" if nothing survives.
func SanitizeTitle(title, sessionID string) string {
	var sb strings.Builder
	for _, r := range title {
		if r == ' ' || r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	sanitized := strings.TrimSpace(sb.String())
	sanitized = strings.ReplaceAll(sanitized, " ", "_")
	if sanitized == "" {
		id := sessionID
		if len(id) > 8 {
			id = id[:8]
		}
		sanitized = "Libro_" + id
	}
	return sanitized
}

// PDFFilename is spec.md §6's canonical rendered-PDF filename:
// YYYY-MM-DD_{model_abbr}_{sanitized_title}.pdf.
func PDFFilename(createdAt time.Time, modelName, title, sessionID string) string {
	datePrefix := createdAt.Format("2006-01-02")
	abbr := ModelAbbreviation(modelName)
	sanitizedTitle := SanitizeTitle(title, sessionID)
	return datePrefix + "_" + abbr + "_" + sanitizedTitle + ".pdf"
}

// Project converts a Session into a LibraryEntry (spec.md §4.7). It
// never performs IO: total_pages is only backfilled from pre-computed
// writing_progress fields or computed from in-memory book_chapters,
// and the PDF filename is always the expected one — whether it
// actually exists in the configured BlobStore is the caller's concern
// (spec.md: "with local storage, existence is checked").
func Project(sess *model.Session, cfg Config) Entry {
	status := sess.DerivedStatus()

	var totalChapters, completedChapters int
	var totalPages *int
	if wp := sess.WritingProgress; wp != nil {
		totalChapters = wp.TotalSteps
		if wp.CompletedChaptersCnt != nil {
			completedChapters = *wp.CompletedChaptersCnt
		} else {
			completedChapters = wp.CurrentStep
		}
		totalPages = wp.TotalPages
	}
	if completedChapters == 0 && len(sess.BookChapters) > 0 {
		completedChapters = len(sess.BookChapters)
	}
	if totalPages == nil && status == model.StatusComplete && len(sess.BookChapters) > 0 {
		pages := progress.TotalPages(sess, cfg.Progress)
		totalPages = &pages
	}

	var critiqueScore *float64
	if sess.Critique != nil {
		score := sess.Critique.Score
		critiqueScore = &score
	}

	var pdfFilename *string
	if status == model.StatusComplete {
		title := sess.Draft.CurrentTitle
		if title == "" {
			title = "Untitled"
		}
		filename := PDFFilename(sess.CreatedAt, sess.FormData.LLMModel, title, sess.SessionID)
		pdfFilename = &filename
	}

	var writingTimeMinutes *float64
	if wp := sess.WritingProgress; wp != nil && wp.WritingTimeMinutes != nil {
		writingTimeMinutes = wp.WritingTimeMinutes
	} else if sess.WritingStartTime != nil && sess.WritingEndTime != nil {
		minutes := sess.WritingEndTime.Sub(*sess.WritingStartTime).Minutes()
		writingTimeMinutes = &minutes
	}

	title := sess.Draft.CurrentTitle
	if title == "" {
		title = "Untitled"
	}
	author := sess.FormData.UserName
	if author == "" {
		author = "Author"
	}

	return Entry{
		SessionID:          sess.SessionID,
		Title:              title,
		Author:             author,
		Mode:               ModeLabel(sess.FormData.LLMModel),
		Genre:              sess.FormData.Genre,
		CreatedAt:          sess.CreatedAt,
		UpdatedAt:          sess.UpdatedAt,
		Status:             status,
		TotalChapters:      totalChapters,
		CompletedChapters:  completedChapters,
		TotalPages:         totalPages,
		CritiqueScore:      critiqueScore,
		CritiqueStatus:     sess.CritiqueStatus,
		PDFFilename:        pdfFilename,
		CoverImagePath:     sess.CoverImagePath,
		WritingTimeMinutes: writingTimeMinutes,
		EstimatedCost:      sess.RealCostEUR,
	}
}
