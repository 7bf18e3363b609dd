package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/novelforge/novelforge/pkg/agent"
	"github.com/novelforge/novelforge/pkg/llm"
	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/services"
)

// StartGeneration is spec.md §4.5 transition 1: validates
// draft.validated ∧ outline ≠ ∅, consumes one credit for the session's
// user at mode_of(llm_model), then launches the per-chapter loop in a
// detached goroutine. It returns once the loop has been launched, not
// once the book is complete — the task outlives the calling request.
func (o *Orchestrator) StartGeneration(ctx context.Context, sessionID string, userID *string) error {
	sess, err := o.store.Get(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if !sess.Draft.Validated {
		return fmt.Errorf("%w: draft must be validated before generation can start", services.ErrPrecondition)
	}
	if sess.Outline.CurrentText == "" {
		return fmt.Errorf("%w: outline must be generated before generation can start", services.ErrPrecondition)
	}

	sections, err := agent.ParseOutlineSections(sess.Outline.CurrentText)
	if err != nil {
		return err
	}

	if sess.UserID != nil {
		mode := llm.ModeOf(sess.FormData.LLMModel)
		ok, pool, cerr := o.credits.Consume(ctx, *sess.UserID, mode)
		if cerr != nil {
			return cerr
		}
		if !ok {
			return &services.CreditsExhaustedError{Mode: string(mode), NextResetAt: pool.CreditsResetAt}
		}
	}

	genCtx, cancel := context.WithCancel(context.Background())
	if !o.register(sessionID, cancel) {
		cancel()
		return services.ErrAlreadyRunning
	}

	now := time.Now().UTC()
	if err := o.store.UpdateWritingProgress(ctx, sessionID, model.WritingProgressPatch{
		CurrentStep:        0,
		TotalSteps:         len(sections),
		CurrentSectionName: &sections[0].Title,
		IsComplete:         false,
		IsPaused:           false,
	}); err != nil {
		o.unregister(sessionID)
		cancel()
		return err
	}
	if err := o.store.UpdateWritingTimes(ctx, sessionID, &now, nil); err != nil {
		o.unregister(sessionID)
		cancel()
		return err
	}

	go o.runGeneration(genCtx, sessionID, sections, 0)
	return nil
}

// ResumeGeneration is spec.md §4.5 transition 3: requires
// writing_progress.is_paused, resumes the per-chapter loop at
// current_step, reconstructing the autoregressive context from the
// persisted book_chapters.
func (o *Orchestrator) ResumeGeneration(ctx context.Context, sessionID string, userID *string) error {
	sess, err := o.store.Get(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if sess.WritingProgress == nil || !sess.WritingProgress.IsPaused {
		return fmt.Errorf("%w: session is not paused", services.ErrPrecondition)
	}

	sections, err := agent.ParseOutlineSections(sess.Outline.CurrentText)
	if err != nil {
		return err
	}
	// Reconciliation: if the outline changed shape since the progress
	// was initialized (e.g. an earlier draft/outline revision), the
	// recorded total_steps no longer matches and progress is reset from
	// scratch rather than resumed against a stale total (spec.md §4.5,
	// SPEC_FULL.md §3 item 5 -- original_source's generate_full_book
	// reinitializes writing_progress when section counts disagree).
	startStep := sess.WritingProgress.CurrentStep
	if sess.WritingProgress.TotalSteps != len(sections) {
		slog.Warn("outline section count changed since last run, resetting writing progress",
			"session_id", sessionID, "old_total", sess.WritingProgress.TotalSteps, "new_total", len(sections))
		startStep = 0
	}
	if startStep >= len(sections) {
		startStep = 0
	}

	if err := o.store.ResumeWriting(ctx, sessionID); err != nil {
		return err
	}

	genCtx, cancel := context.WithCancel(context.Background())
	if !o.register(sessionID, cancel) {
		cancel()
		return services.ErrAlreadyRunning
	}

	go o.runGeneration(genCtx, sessionID, sections, startStep)
	return nil
}

// runGeneration is the per-chapter autoregressive loop (spec.md §4.5
// transition 2). On success it proceeds to the cover and critique
// sub-pipelines; on failure at step k it pauses the session and exits.
func (o *Orchestrator) runGeneration(ctx context.Context, sessionID string, sections []agent.Section, startStep int) {
	defer o.unregister(sessionID)

	select {
	case o.sem <- struct{}{}:
		defer func() { <-o.sem }()
	case <-ctx.Done():
		return
	}

	log := slog.With("session_id", sessionID)

	written, err := o.loadWrittenChapters(ctx, sessionID, startStep)
	if err != nil {
		log.Error("failed to load previously written chapters", "error", err)
		o.pause(sessionID, startStep, sectionTitle(sections, startStep), err)
		return
	}

	for k := startStep; k < len(sections); k++ {
		if err := ctx.Err(); err != nil {
			o.pause(sessionID, k, sections[k].Title, fmt.Errorf("cancelled"))
			return
		}

		if err := o.store.UpdateWritingProgress(ctx, sessionID, model.WritingProgressPatch{
			CurrentStep:        k,
			TotalSteps:         len(sections),
			CurrentSectionName: &sections[k].Title,
			IsComplete:         false,
			IsPaused:           false,
		}); err != nil {
			log.Error("failed to update writing progress", "step", k, "error", err)
			o.pause(sessionID, k, sections[k].Title, err)
			return
		}

		if err := o.store.StartChapterTiming(ctx, sessionID); err != nil {
			log.Error("failed to start chapter timing", "step", k, "error", err)
		}

		sess, err := o.store.GetSystem(ctx, sessionID)
		if err != nil {
			o.pause(sessionID, k, sections[k].Title, err)
			return
		}

		text, usage, err := agent.GenerateChapter(ctx, o.gateway, o.templates, sess.FormData, sess.Draft.CurrentText, sections, written, sections[k], sess.FormData.LLMModel, o.cfg.ChapterTemperature)
		if err != nil {
			log.Error("chapter generation failed", "step", k, "section", sections[k].Title, "error", err)
			o.pause(sessionID, k, sections[k].Title, err)
			return
		}

		if err := o.store.UpdateBookChapter(ctx, sessionID, sections[k].Title, text, k); err != nil {
			o.pause(sessionID, k, sections[k].Title, err)
			return
		}
		if _, err := o.store.EndChapterTiming(ctx, sessionID); err != nil {
			log.Warn("failed to end chapter timing", "step", k, "error", err)
		}
		if err := o.store.UpdateTokenUsage(ctx, sessionID, model.PhaseChapters, usage.InputTokens, usage.OutputTokens, usage.Model); err != nil {
			log.Warn("failed to update token usage", "step", k, "error", err)
		}

		written = append(written, agent.WrittenChapter{Title: sections[k].Title, Text: text})
	}

	o.completeWriting(ctx, sessionID, len(sections))
}

func (o *Orchestrator) loadWrittenChapters(ctx context.Context, sessionID string, upTo int) ([]agent.WrittenChapter, error) {
	sess, err := o.store.GetSystem(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	written := make([]agent.WrittenChapter, 0, len(sess.BookChapters))
	for _, ch := range sess.BookChapters {
		if ch.SectionIndex < upTo {
			written = append(written, agent.WrittenChapter{Title: ch.Title, Text: ch.Content})
		}
	}
	return written, nil
}

func sectionTitle(sections []agent.Section, k int) string {
	if k >= 0 && k < len(sections) {
		return sections[k].Title
	}
	return ""
}

// pause records a chapter-level failure (including cooperative
// cancellation, recorded with error "cancelled") and exits the task —
// the session is now resumable (spec.md §4.5 transition 2,
// "Cancellation").
func (o *Orchestrator) pause(sessionID string, step int, section string, cause error) {
	msg := "cancelled"
	if cause != nil && cause.Error() != "cancelled" {
		msg = cause.Error()
	}
	if err := o.store.PauseWriting(context.Background(), sessionID, step, section, msg); err != nil {
		slog.Error("failed to persist pause", "session_id", sessionID, "error", err)
	}
}

// completeWriting is spec.md §4.5 transition 4, followed by the cover
// and critique sub-pipelines (transitions 5-6). completeWriting already
// runs on runGeneration's own background goroutine, so cover and
// critique run here directly rather than via further `go` dispatch;
// critique must run strictly after cover finishes; its PDF render
// requires the cover image path cover stage persists (spec.md §4.5
// item 6 "must succeed now that chapters and cover are set"), matching
// original_source's background_book_generation which awaits cover
// generation before starting critique.
func (o *Orchestrator) completeWriting(ctx context.Context, sessionID string, totalSteps int) {
	now := time.Now().UTC()
	if err := o.store.UpdateWritingProgress(context.Background(), sessionID, model.WritingProgressPatch{
		CurrentStep: totalSteps,
		TotalSteps:  totalSteps,
		IsComplete:  true,
		IsPaused:    false,
	}); err != nil {
		slog.Error("failed to mark writing complete", "session_id", sessionID, "error", err)
		return
	}
	if err := o.store.UpdateWritingTimes(context.Background(), sessionID, nil, &now); err != nil {
		slog.Error("failed to record writing end time", "session_id", sessionID, "error", err)
	}
	if o.notifier != nil {
		o.notifier.Notify(context.Background(), "book_completed", sessionID, nil)
	}

	o.runCoverStage(context.Background(), sessionID)
	o.runCritiqueStage(context.Background(), sessionID)
}
