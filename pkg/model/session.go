// Package model defines the Session aggregate (spec.md §3) and its
// sub-documents. Fields mirror original_source's SessionData one for
// one so the store's JSON (de)serialization round-trips the same shape
// the original system persisted.
package model

import "time"

// Session is the aggregate root: one per book project.
type Session struct {
	SessionID string  `json:"session_id"`
	UserID    *string `json:"user_id,omitempty"`

	FormData        FormData         `json:"form_data"`
	QuestionAnswers []QuestionAnswer `json:"question_answers"`

	GeneratedQuestions []GeneratedQuestion `json:"generated_questions,omitempty"`
	Draft              Draft               `json:"draft"`
	Outline            Outline             `json:"outline"`
	BookChapters       []BookChapter       `json:"book_chapters,omitempty"`

	CoverImagePath *string           `json:"cover_image_path,omitempty"`
	Critique       *LiteraryCritique `json:"literary_critique,omitempty"`
	CritiqueStatus CritiqueStatus    `json:"critique_status"`
	CritiqueError  *string           `json:"critique_error,omitempty"`

	QuestionsProgress *PhaseProgress   `json:"questions_progress,omitempty"`
	DraftProgress     *PhaseProgress   `json:"draft_progress,omitempty"`
	OutlineProgress   *PhaseProgress   `json:"outline_progress,omitempty"`
	WritingProgress   *WritingProgress `json:"writing_progress,omitempty"`

	WritingStartTime *time.Time `json:"writing_start_time,omitempty"`
	WritingEndTime   *time.Time `json:"writing_end_time,omitempty"`
	ChapterStartTime *time.Time `json:"chapter_start_time,omitempty"`
	ChapterTimings   []float64  `json:"chapter_timings,omitempty"`

	TokenUsage TokenUsage `json:"token_usage"`

	RealCostEUR *float64 `json:"real_cost_eur,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FormData is the user's initial submission.
type FormData struct {
	LLMModel      string `json:"llm_model"`
	Plot          string `json:"plot"`
	Genre         string `json:"genre,omitempty"`
	Subgenre      string `json:"subgenre,omitempty"`
	Style         string `json:"style,omitempty"`
	Author        string `json:"author,omitempty"`
	UserName      string `json:"user_name,omitempty"`
	Theme         string `json:"theme,omitempty"`
	Protagonist   string `json:"protagonist,omitempty"`
	POV           string `json:"pov,omitempty"`
	NarrativeVoice string `json:"narrative_voice,omitempty"`
	Pace          string `json:"pace,omitempty"`
	Realism       string `json:"realism,omitempty"`
}

// QuestionAnswer pairs a preliminary question id with an optional
// answer; an absent answer means the question was skipped.
type QuestionAnswer struct {
	QuestionID string  `json:"question_id"`
	Answer     *string `json:"answer,omitempty"`
}

// GeneratedQuestionType enumerates question UI shapes.
type GeneratedQuestionType string

const (
	QuestionTypeText           GeneratedQuestionType = "text"
	QuestionTypeMultipleChoice GeneratedQuestionType = "multiple_choice"
)

// GeneratedQuestion is a single preliminary question produced by the
// Questions agent runner (C4).
type GeneratedQuestion struct {
	ID      string                `json:"id"`
	Text    string                `json:"text"`
	Type    GeneratedQuestionType `json:"type"`
	Options []string              `json:"options,omitempty"`
}

// Draft holds the validated-plot draft and its revision history.
type Draft struct {
	CurrentText    string         `json:"current_text"`
	CurrentTitle   string         `json:"current_title"`
	CurrentVersion int            `json:"current_version"`
	DraftHistory   []DraftHistory `json:"draft_history,omitempty"`
	Validated      bool           `json:"validated"`
}

// DraftHistory is one prior revision of the draft.
type DraftHistory struct {
	Version int       `json:"version"`
	Text    string    `json:"text"`
	Title   string    `json:"title"`
	At      time.Time `json:"at"`
}

// Outline holds the Markdown outline and its revision counter.
type Outline struct {
	CurrentText    string `json:"current_text"`
	OutlineVersion int    `json:"outline_version"`
}

// BookChapter is one written chapter, keyed by SectionIndex.
type BookChapter struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	SectionIndex int    `json:"section_index"`
}

// CritiqueStatus enumerates the critique pipeline's lifecycle.
type CritiqueStatus string

const (
	CritiqueAbsent    CritiqueStatus = "absent"
	CritiquePending   CritiqueStatus = "pending"
	CritiqueRunning   CritiqueStatus = "running"
	CritiqueCompleted CritiqueStatus = "completed"
	CritiqueFailed    CritiqueStatus = "failed"
)

// LiteraryCritique is the AI critique's structured output.
type LiteraryCritique struct {
	Score   float64  `json:"score"`
	Pros    []string `json:"pros"`
	Cons    []string `json:"cons"`
	Summary string   `json:"summary"`
}

// PhaseStatus enumerates a preparatory phase's lifecycle (spec.md §4.5).
type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseRunning   PhaseStatus = "running"
	PhaseCompleted PhaseStatus = "completed"
	PhaseFailed    PhaseStatus = "failed"
)

// PhaseProgress tracks one preparatory phase (questions/draft/outline).
type PhaseProgress struct {
	Status             PhaseStatus    `json:"status"`
	CurrentStep        int            `json:"current_step"`
	TotalSteps         int            `json:"total_steps"`
	ProgressPercentage float64        `json:"progress_percentage"`
	Result             map[string]any `json:"result,omitempty"`
	Error              *string        `json:"error,omitempty"`
}

// WritingProgress is the writing phase's subdocument; merge-safe
// updates (spec.md §4.1, §8) must preserve any field here not
// explicitly named by the caller's patch.
type WritingProgress struct {
	CurrentStep          int      `json:"current_step"`
	TotalSteps           int      `json:"total_steps"`
	CurrentSectionName   *string  `json:"current_section_name,omitempty"`
	IsComplete           bool     `json:"is_complete"`
	IsPaused             bool     `json:"is_paused"`
	Error                *string  `json:"error,omitempty"`
	TotalPages           *int     `json:"total_pages,omitempty"`
	CompletedChaptersCnt *int     `json:"completed_chapters_count,omitempty"`
	EstimatedCost        *float64 `json:"estimated_cost,omitempty"`
	WritingTimeMinutes   *float64 `json:"writing_time_minutes,omitempty"`
}

// WritingProgressPatch is the typed patch passed to
// SessionStore.UpdateWritingProgress: every pointer field left nil is
// left untouched by the merge-safe updater (spec.md §9's "typed patch"
// design note). CurrentStep/TotalSteps/IsComplete/IsPaused/Error are
// always applied (a nil Error clears it), matching the original's
// unconditional overwrite of those fields; the rest only apply when
// non-nil.
type WritingProgressPatch struct {
	CurrentStep          int
	TotalSteps           int
	CurrentSectionName   *string
	IsComplete           bool
	IsPaused             bool
	Error                *string
	TotalPages           *int
	CompletedChaptersCnt *int
}

// PhaseKey enumerates the phases token usage and progress are tracked
// per (spec.md §3, §4.4).
type PhaseKey string

const (
	PhaseQuestions PhaseKey = "questions"
	PhaseDraft     PhaseKey = "draft"
	PhaseOutline   PhaseKey = "outline"
	PhaseChapters  PhaseKey = "chapters"
	PhaseCritique  PhaseKey = "critique"
)

// TokenUsage accumulates input/output tokens per phase plus a running
// total (spec.md §3).
type TokenUsage struct {
	Phases map[PhaseKey]*PhaseTokenUsage `json:"phases,omitempty"`
	Total  PhaseTokenUsage               `json:"total"`
}

// PhaseTokenUsage is one phase's (or the total's) token counters.
// Calls is only incremented for the draft and chapters phases, matching
// original_source's update_token_usage.
type PhaseTokenUsage struct {
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model,omitempty"`
	Calls        int    `json:"calls,omitempty"`
}

// DerivedStatus is the five-way phase label computed purely from
// WritingProgress and Outline (spec.md §3, §8): "derived status is
// pure" — no separate status column is ever the source of truth.
type DerivedStatus string

const (
	StatusDraft    DerivedStatus = "draft"
	StatusOutline  DerivedStatus = "outline"
	StatusWriting  DerivedStatus = "writing"
	StatusPaused   DerivedStatus = "paused"
	StatusComplete DerivedStatus = "complete"
)

// DerivedStatus computes the session's phase purely from stored fields
// (spec.md §3 "Phase order (derived)", §8 "Derived status is pure").
func (s *Session) DerivedStatus() DerivedStatus {
	wp := s.WritingProgress
	switch {
	case wp != nil && wp.IsComplete:
		return StatusComplete
	case wp != nil && wp.IsPaused:
		return StatusPaused
	case wp != nil:
		return StatusWriting
	case s.Outline.CurrentText != "":
		return StatusOutline
	default:
		return StatusDraft
	}
}
