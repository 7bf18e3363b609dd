package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/services"
)

// touch bumps updated_at; every mutator calls this in the same
// transaction as its own column write.
func touch(ctx context.Context, tx pgx.Tx, sessionID string) error {
	_, err := tx.Exec(ctx, `UPDATE sessions SET updated_at = $2 WHERE session_id = $1`, sessionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: touch session: %v", services.ErrStoreUnavailable, err)
	}
	return nil
}

// UpdateDraft appends the current draft to draft_history and writes
// the new text/title/version, auto-incrementing the version when none
// is supplied (original_source session_store.py:update_draft).
func (s *Store) UpdateDraft(ctx context.Context, sessionID, text, title string, version *int) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		var draft model.Draft
		if err := decodeColumn(ctx, tx, sessionID, "draft", &draft); err != nil {
			return err
		}

		newVersion := draft.CurrentVersion + 1
		if version != nil {
			newVersion = *version
		}
		if draft.CurrentText != "" || draft.CurrentVersion > 0 {
			draft.DraftHistory = append(draft.DraftHistory, model.DraftHistory{
				Version: draft.CurrentVersion,
				Text:    draft.CurrentText,
				Title:   draft.CurrentTitle,
				At:      time.Now().UTC(),
			})
		}
		draft.CurrentText = text
		draft.CurrentTitle = title
		draft.CurrentVersion = newVersion

		raw, err := encodeJSON(draft)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE sessions SET draft = $2 WHERE session_id = $1`, sessionID, raw); err != nil {
			return fmt.Errorf("%w: update draft: %v", services.ErrStoreUnavailable, err)
		}
		return touch(ctx, tx, sessionID)
	})
}

// ValidateDraft marks the current draft validated (precondition for
// outline generation per spec.md §4.4/§8).
func (s *Store) ValidateDraft(ctx context.Context, sessionID string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		var draft model.Draft
		if err := decodeColumn(ctx, tx, sessionID, "draft", &draft); err != nil {
			return err
		}
		if draft.CurrentText == "" {
			return fmt.Errorf("%w: draft must have text before it can be validated", services.ErrValidation)
		}
		draft.Validated = true
		raw, err := encodeJSON(draft)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE sessions SET draft = $2 WHERE session_id = $1`, sessionID, raw); err != nil {
			return fmt.Errorf("%w: validate draft: %v", services.ErrStoreUnavailable, err)
		}
		return touch(ctx, tx, sessionID)
	})
}

// SaveGeneratedQuestions replaces the generated_questions list.
func (s *Store) SaveGeneratedQuestions(ctx context.Context, sessionID string, questions []model.GeneratedQuestion) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		raw, err := encodeJSON(questions)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE sessions SET generated_questions = $2 WHERE session_id = $1`, sessionID, raw); err != nil {
			return fmt.Errorf("%w: save questions: %v", services.ErrStoreUnavailable, err)
		}
		return touch(ctx, tx, sessionID)
	})
}

// UpdateOutline rewrites the outline and bumps outline_version, unless
// writing has started and allowIfWriting is false, in which case it
// fails with ErrOutlineFrozen (spec.md §4.1, §8 "Outline freeze").
func (s *Store) UpdateOutline(ctx context.Context, sessionID, text string, allowIfWriting bool) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		var wp *model.WritingProgress
		if err := decodeColumn(ctx, tx, sessionID, "writing_progress", &wp); err != nil {
			return err
		}
		if wp != nil && !wp.IsComplete && !allowIfWriting {
			return services.ErrOutlineFrozen
		}

		var outline model.Outline
		if err := decodeColumn(ctx, tx, sessionID, "outline", &outline); err != nil {
			return err
		}
		outline.CurrentText = text
		outline.OutlineVersion++

		raw, err := encodeJSON(outline)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE sessions SET outline = $2 WHERE session_id = $1`, sessionID, raw); err != nil {
			return fmt.Errorf("%w: update outline: %v", services.ErrStoreUnavailable, err)
		}
		return touch(ctx, tx, sessionID)
	})
}

// UpdateWritingProgress is the central merge-safe mutator (spec.md
// §4.1): CurrentStep/TotalSteps/IsComplete/IsPaused/Error are always
// overwritten; CurrentSectionName/TotalPages/CompletedChaptersCnt are
// only written when the patch supplies them, preserving any value set by a
// concurrent path (library backfill, cover pipeline) -- matching
// original_source's update_writing_progress exactly, including leaving
// EstimatedCost/WritingTimeMinutes untouched since this mutator never
// names them.
func (s *Store) UpdateWritingProgress(ctx context.Context, sessionID string, patch model.WritingProgressPatch) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		var wp model.WritingProgress
		if err := decodeColumn(ctx, tx, sessionID, "writing_progress", &wp); err != nil {
			return err
		}

		wp.CurrentStep = patch.CurrentStep
		wp.TotalSteps = patch.TotalSteps
		wp.IsComplete = patch.IsComplete
		wp.IsPaused = patch.IsPaused
		wp.Error = patch.Error
		if patch.CurrentSectionName != nil {
			wp.CurrentSectionName = patch.CurrentSectionName
		}
		if patch.TotalPages != nil {
			wp.TotalPages = patch.TotalPages
		}
		if patch.CompletedChaptersCnt != nil {
			wp.CompletedChaptersCnt = patch.CompletedChaptersCnt
		}

		return writeWritingProgress(ctx, tx, sessionID, wp)
	})
}

// writeWritingProgress is the low-level column writer shared by every
// writing_progress mutator below.
func writeWritingProgress(ctx context.Context, tx pgx.Tx, sessionID string, wp model.WritingProgress) error {
	raw, err := encodeJSON(wp)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE sessions SET writing_progress = $2 WHERE session_id = $1`, sessionID, raw); err != nil {
		return fmt.Errorf("%w: update writing progress: %v", services.ErrStoreUnavailable, err)
	}
	return touch(ctx, tx, sessionID)
}

// PauseWriting records a chapter-level failure and marks the session
// resumable (spec.md §4.5 item 2, §8 "Resume invariant").
func (s *Store) PauseWriting(ctx context.Context, sessionID string, step int, section, errMsg string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		var wp model.WritingProgress
		if err := decodeColumn(ctx, tx, sessionID, "writing_progress", &wp); err != nil {
			return err
		}
		wp.CurrentStep = step
		wp.CurrentSectionName = &section
		wp.IsPaused = true
		wp.Error = &errMsg
		return writeWritingProgress(ctx, tx, sessionID, wp)
	})
}

// ResumeWriting clears is_paused and error while preserving step/total/
// section (spec.md §4.1: "resume_writing() (clears is_paused+error,
// preserves rest)").
func (s *Store) ResumeWriting(ctx context.Context, sessionID string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		var wp *model.WritingProgress
		if err := decodeColumn(ctx, tx, sessionID, "writing_progress", &wp); err != nil {
			return err
		}
		if wp == nil || !wp.IsPaused {
			return fmt.Errorf("%w: session is not paused", services.ErrPrecondition)
		}
		wp.IsPaused = false
		wp.Error = nil
		return writeWritingProgress(ctx, tx, sessionID, *wp)
	})
}

// UpdateWritingTimes sets writing_start_time/writing_end_time and, when
// an end time is written and a start time is stored (from this call or
// an earlier one), folds writing_time_minutes into writing_progress
// without clobbering sibling keys (spec.md §4.5 item 4).
func (s *Store) UpdateWritingTimes(ctx context.Context, sessionID string, start, end *time.Time) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE sessions SET writing_start_time = COALESCE($2, writing_start_time), writing_end_time = COALESCE($3, writing_end_time) WHERE session_id = $1`,
			sessionID, start, end); err != nil {
			return fmt.Errorf("%w: update writing times: %v", services.ErrStoreUnavailable, err)
		}
		if end != nil {
			var writingStart *time.Time
			if err := tx.QueryRow(ctx, `SELECT writing_start_time FROM sessions WHERE session_id = $1`, sessionID).Scan(&writingStart); err != nil {
				return fmt.Errorf("%w: read writing start: %v", services.ErrStoreUnavailable, err)
			}
			if writingStart != nil {
				var wp model.WritingProgress
				if err := decodeColumn(ctx, tx, sessionID, "writing_progress", &wp); err != nil {
					return err
				}
				minutes := end.Sub(*writingStart).Minutes()
				wp.WritingTimeMinutes = &minutes
				if err := writeWritingProgress(ctx, tx, sessionID, wp); err != nil {
					return err
				}
			}
		}
		return touch(ctx, tx, sessionID)
	})
}

// StartChapterTiming records chapter_start_time.
func (s *Store) StartChapterTiming(ctx context.Context, sessionID string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `UPDATE sessions SET chapter_start_time = $2 WHERE session_id = $1`, sessionID, now); err != nil {
			return fmt.Errorf("%w: start chapter timing: %v", services.ErrStoreUnavailable, err)
		}
		return touch(ctx, tx, sessionID)
	})
}

// EndChapterTiming appends the elapsed seconds since StartChapterTiming
// to chapter_timings and clears chapter_start_time. Only called on the
// success path: paused chapters are never timed (DESIGN.md resolved
// open question #1).
func (s *Store) EndChapterTiming(ctx context.Context, sessionID string) (float64, error) {
	var seconds float64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		var start *time.Time
		if err := tx.QueryRow(ctx, `SELECT chapter_start_time FROM sessions WHERE session_id = $1`, sessionID).Scan(&start); err != nil {
			return fmt.Errorf("%w: read chapter start: %v", services.ErrStoreUnavailable, err)
		}
		if start == nil {
			return fmt.Errorf("%w: no chapter timing in progress", services.ErrPrecondition)
		}
		seconds = time.Since(*start).Seconds()

		var timings []float64
		if err := decodeColumn(ctx, tx, sessionID, "chapter_timings", &timings); err != nil {
			return err
		}
		timings = append(timings, seconds)
		raw, err := encodeJSON(timings)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE sessions SET chapter_timings = $2, chapter_start_time = NULL WHERE session_id = $1`, sessionID, raw); err != nil {
			return fmt.Errorf("%w: end chapter timing: %v", services.ErrStoreUnavailable, err)
		}
		return touch(ctx, tx, sessionID)
	})
	return seconds, err
}

// UpdateTokenUsage accumulates (never overwrites) input/output tokens
// for a phase and the running total, incrementing Calls only for the
// draft and chapters phases (original_source update_token_usage).
func (s *Store) UpdateTokenUsage(ctx context.Context, sessionID string, phase model.PhaseKey, inTokens, outTokens int, modelName string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		var usage model.TokenUsage
		if err := decodeColumn(ctx, tx, sessionID, "token_usage", &usage); err != nil {
			return err
		}
		if usage.Phases == nil {
			usage.Phases = map[model.PhaseKey]*model.PhaseTokenUsage{}
		}
		p, ok := usage.Phases[phase]
		if !ok {
			p = &model.PhaseTokenUsage{}
			usage.Phases[phase] = p
		}
		p.InputTokens += inTokens
		p.OutputTokens += outTokens
		p.Model = modelName
		if phase == model.PhaseDraft || phase == model.PhaseChapters {
			p.Calls++
		}
		usage.Total.InputTokens += inTokens
		usage.Total.OutputTokens += outTokens

		raw, err := encodeJSON(usage)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE sessions SET token_usage = $2 WHERE session_id = $1`, sessionID, raw); err != nil {
			return fmt.Errorf("%w: update token usage: %v", services.ErrStoreUnavailable, err)
		}
		return touch(ctx, tx, sessionID)
	})
}

// UpdateCoverImagePath writes the opaque BlobStore address of the
// generated cover (spec.md §4.5 item 5).
func (s *Store) UpdateCoverImagePath(ctx context.Context, sessionID, path string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE sessions SET cover_image_path = $2 WHERE session_id = $1`, sessionID, path); err != nil {
			return fmt.Errorf("%w: update cover path: %v", services.ErrStoreUnavailable, err)
		}
		return touch(ctx, tx, sessionID)
	})
}

// UpdateCritique writes the completed critique (never a placeholder on
// failure, spec.md §4.5 item 6).
func (s *Store) UpdateCritique(ctx context.Context, sessionID string, critique model.LiteraryCritique) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		raw, err := encodeJSON(critique)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE sessions SET critique = $2 WHERE session_id = $1`, sessionID, raw); err != nil {
			return fmt.Errorf("%w: update critique: %v", services.ErrStoreUnavailable, err)
		}
		return touch(ctx, tx, sessionID)
	})
}

// UpdateCritiqueStatus sets critique_status (and, on failure,
// critique_error). No placeholder critique is ever written here.
func (s *Store) UpdateCritiqueStatus(ctx context.Context, sessionID string, status model.CritiqueStatus, errMsg *string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE sessions SET critique_status = $2, critique_error = $3 WHERE session_id = $1`,
			sessionID, string(status), errMsg); err != nil {
			return fmt.Errorf("%w: update critique status: %v", services.ErrStoreUnavailable, err)
		}
		return touch(ctx, tx, sessionID)
	})
}

// SetEstimatedCost writes the post-hoc, token-based cost (spec.md §3
// real_cost_eur, §4.7 "never a forward estimate for library view").
func (s *Store) SetEstimatedCost(ctx context.Context, sessionID string, costEUR float64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE sessions SET real_cost_eur = $2 WHERE session_id = $1`, sessionID, costEUR); err != nil {
			return fmt.Errorf("%w: set estimated cost: %v", services.ErrStoreUnavailable, err)
		}
		return touch(ctx, tx, sessionID)
	})
}

// UpdatePhaseProgress writes one of the three preparatory phases'
// progress dicts in place (spec.md §4.5 "Background generation for the
// preparatory phases").
func (s *Store) UpdatePhaseProgress(ctx context.Context, sessionID string, phase model.PhaseKey, progress model.PhaseProgress) error {
	column, err := phaseProgressColumn(phase)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockSession(ctx, tx, sessionID); err != nil {
			return err
		}
		raw, err := encodeJSON(progress)
		if err != nil {
			return err
		}
		query := fmt.Sprintf(`UPDATE sessions SET %s = $2 WHERE session_id = $1`, column)
		if _, err := tx.Exec(ctx, query, sessionID, raw); err != nil {
			return fmt.Errorf("%w: update %s: %v", services.ErrStoreUnavailable, column, err)
		}
		return touch(ctx, tx, sessionID)
	})
}

func phaseProgressColumn(phase model.PhaseKey) (string, error) {
	switch phase {
	case model.PhaseQuestions:
		return "questions_progress", nil
	case model.PhaseDraft:
		return "draft_progress", nil
	case model.PhaseOutline:
		return "outline_progress", nil
	default:
		return "", fmt.Errorf("%w: no progress column for phase %q", services.ErrValidation, phase)
	}
}
