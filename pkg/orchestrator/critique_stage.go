package orchestrator

import (
	"context"
	"log/slog"

	"github.com/novelforge/novelforge/pkg/agent"
	"github.com/novelforge/novelforge/pkg/model"
)

// runCritiqueStage is spec.md §4.5 transition 6. Requires the
// rendering boundary to produce the current Session's PDF (which must
// succeed now that chapters and cover are set). No placeholder
// critique is ever written on failure — only the status/error fields
// change.
func (o *Orchestrator) runCritiqueStage(ctx context.Context, sessionID string) {
	log := slog.With("session_id", sessionID)

	if err := o.store.UpdateCritiqueStatus(ctx, sessionID, model.CritiqueRunning, nil); err != nil {
		log.Error("critique stage: failed to mark running", "error", err)
		return
	}

	sess, err := o.store.GetSystem(ctx, sessionID)
	if err != nil {
		o.failCritique(ctx, sessionID, err)
		return
	}

	pdfData, err := o.renderer.RenderPDF(ctx, sess)
	if err != nil {
		o.failCritique(ctx, sessionID, err)
		return
	}

	result, _, err := agent.GenerateCritique(ctx, o.gateway, o.templates, pdfData, o.cfg.Critique.PrimaryModel, o.cfg.Critique.FallbackModel, o.cfg.Critique.MaxRetries, o.cfg.Critique.Temperature)
	if err != nil {
		o.failCritique(ctx, sessionID, err)
		return
	}

	if err := o.store.UpdateCritique(ctx, sessionID, model.LiteraryCritique{
		Score:   result.Score,
		Pros:    result.Pros,
		Cons:    result.Cons,
		Summary: result.Summary,
	}); err != nil {
		log.Error("critique stage: failed to persist critique", "error", err)
		return
	}
	if err := o.store.UpdateCritiqueStatus(ctx, sessionID, model.CritiqueCompleted, nil); err != nil {
		log.Error("critique stage: failed to mark completed", "error", err)
	}
}

func (o *Orchestrator) failCritique(ctx context.Context, sessionID string, cause error) {
	slog.Warn("critique stage failed", "session_id", sessionID, "error", cause)
	msg := cause.Error()
	if err := o.store.UpdateCritiqueStatus(context.Background(), sessionID, model.CritiqueFailed, &msg); err != nil {
		slog.Error("critique stage: failed to record failure status", "session_id", sessionID, "error", err)
	}
}
