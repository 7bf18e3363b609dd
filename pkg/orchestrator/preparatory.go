package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/novelforge/novelforge/pkg/agent"
	"github.com/novelforge/novelforge/pkg/model"
)

// RunQuestionsJob is the Questions preparatory background job (spec.md
// §4.5 "Background generation for the preparatory phases"). Grounded
// verbatim on original_source's background_generate_questions: a
// retry loop with a 2s sleep between attempts, writing running →
// completed/failed into questions_progress.
func (o *Orchestrator) RunQuestionsJob(ctx context.Context, sessionID string, form model.FormData) {
	o.runPhaseJob(ctx, sessionID, model.PhaseQuestions, o.cfg.QuestionsRetry, func(ctx context.Context) (map[string]any, error) {
		questions, usage, err := agent.GenerateQuestions(ctx, o.gateway, o.templates, form, form.LLMModel, o.cfg.QuestionsTemperature)
		if err != nil {
			return nil, err
		}
		if err := o.store.SaveGeneratedQuestions(ctx, sessionID, questions); err != nil {
			return nil, err
		}
		if err := o.store.UpdateTokenUsage(ctx, sessionID, model.PhaseQuestions, usage.InputTokens, usage.OutputTokens, usage.Model); err != nil {
			slog.Warn("questions job: failed to update token usage", "session_id", sessionID, "error", err)
		}
		return map[string]any{"questions": questions}, nil
	})
}

// RunDraftJob is the Draft preparatory background job. Grounded
// verbatim on original_source's background_generate_draft: a single
// attempt, no retry loop (unlike questions/outline).
func (o *Orchestrator) RunDraftJob(ctx context.Context, sessionID string, form model.FormData, answers []model.QuestionAnswer, previousDraft, userFeedback string) {
	o.runPhaseJob(ctx, sessionID, model.PhaseDraft, o.cfg.DraftRetry, func(ctx context.Context) (map[string]any, error) {
		result, usage, err := agent.GenerateDraft(ctx, o.gateway, o.templates, form, answers, form.LLMModel, o.cfg.DraftTemperature, previousDraft, userFeedback)
		if err != nil {
			return nil, err
		}
		if err := o.store.UpdateDraft(ctx, sessionID, result.Text, result.Title, nil); err != nil {
			return nil, err
		}
		if err := o.store.UpdateTokenUsage(ctx, sessionID, model.PhaseDraft, usage.InputTokens, usage.OutputTokens, usage.Model); err != nil {
			slog.Warn("draft job: failed to update token usage", "session_id", sessionID, "error", err)
		}
		return map[string]any{"title": result.Title, "text": result.Text}, nil
	})
}

// RunOutlineJob is the Outline preparatory background job. Grounded
// verbatim on original_source's background_generate_outline: a retry
// loop with a 3s sleep between attempts, re-fetching the session each
// attempt so it always works from the latest validated draft.
func (o *Orchestrator) RunOutlineJob(ctx context.Context, sessionID string) {
	o.runPhaseJob(ctx, sessionID, model.PhaseOutline, o.cfg.OutlineRetry, func(ctx context.Context) (map[string]any, error) {
		sess, err := o.store.GetSystem(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		outlineText, usage, err := agent.GenerateOutline(ctx, o.gateway, o.templates, sess.FormData, sess.QuestionAnswers, sess.Draft.CurrentText, sess.Draft.CurrentTitle, sess.FormData.LLMModel, o.cfg.OutlineTemperature)
		if err != nil {
			return nil, err
		}
		if err := o.store.UpdateOutline(ctx, sessionID, outlineText, false); err != nil {
			return nil, err
		}
		if err := o.store.UpdateTokenUsage(ctx, sessionID, model.PhaseOutline, usage.InputTokens, usage.OutputTokens, usage.Model); err != nil {
			slog.Warn("outline job: failed to update token usage", "session_id", sessionID, "error", err)
		}
		return map[string]any{"outline_text": outlineText}, nil
	})
}

// runPhaseJob is the shared retry-with-sleep shape behind all three
// preparatory jobs: running → (completed with result | failed with
// error), retried up to retry.MaxRetries times with retry.Sleep
// between attempts. retry.MaxRetries == 0 runs exactly once, matching
// the draft job's no-retry original.
func (o *Orchestrator) runPhaseJob(ctx context.Context, sessionID string, phase model.PhaseKey, retry PhaseRetry, attempt func(ctx context.Context) (map[string]any, error)) {
	log := slog.With("session_id", sessionID, "phase", phase)
	attempts := retry.MaxRetries + 1

	for i := 0; i < attempts; i++ {
		if err := o.store.UpdatePhaseProgress(ctx, sessionID, phase, model.PhaseProgress{
			Status:             model.PhaseRunning,
			CurrentStep:        0,
			TotalSteps:         1,
			ProgressPercentage: 0,
		}); err != nil {
			log.Error("failed to mark phase running", "error", err)
			return
		}

		result, err := attempt(ctx)
		if err == nil {
			if perr := o.store.UpdatePhaseProgress(ctx, sessionID, phase, model.PhaseProgress{
				Status:             model.PhaseCompleted,
				CurrentStep:        1,
				TotalSteps:         1,
				ProgressPercentage: 100,
				Result:             result,
			}); perr != nil {
				log.Error("failed to mark phase completed", "error", perr)
			}
			return
		}

		log.Warn("phase attempt failed", "attempt", i+1, "of", attempts, "error", err)
		if i < attempts-1 {
			select {
			case <-ctx.Done():
			case <-time.After(retry.Sleep):
			}
			continue
		}

		errMsg := err.Error()
		if perr := o.store.UpdatePhaseProgress(ctx, sessionID, phase, model.PhaseProgress{
			Status: model.PhaseFailed,
			Error:  &errMsg,
		}); perr != nil {
			log.Error("failed to mark phase failed", "error", perr)
		}
	}
}
