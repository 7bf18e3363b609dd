package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
)

// runCoverStage is spec.md §4.5 transition 5. Cover failure is
// non-fatal: both the primary and fallback image model are tried, and
// if both fail the session simply has no cover_image_path — nothing
// else in the pipeline depends on it.
func (o *Orchestrator) runCoverStage(ctx context.Context, sessionID string) {
	log := slog.With("session_id", sessionID)

	sess, err := o.store.GetSystem(ctx, sessionID)
	if err != nil {
		log.Error("cover stage: failed to load session", "error", err)
		return
	}

	plot := sess.FormData.Plot
	if o.sanitizer != nil {
		plot = o.sanitizer.SanitizePlot(plot)
	}
	prompt := fmt.Sprintf("Book cover illustration. %s", plot)

	img, err := o.gateway.GenerateImage(ctx, prompt, o.cfg.Cover.PrimaryModel, o.cfg.Cover.AspectRatio, o.cfg.Cover.ImageSize)
	if err != nil {
		log.Warn("cover stage: primary image model failed, trying fallback", "error", err)
		img, err = o.gateway.GenerateImage(ctx, prompt, o.cfg.Cover.FallbackModel, o.cfg.Cover.AspectRatio, o.cfg.Cover.ImageSize)
		if err != nil {
			log.Warn("cover stage: fallback image model also failed, leaving session without a cover", "error", err)
			return
		}
	}

	path := fmt.Sprintf("covers/%s_cover.png", sessionID)
	address, err := o.blobs.Put(ctx, path, img, "image/png")
	if err != nil {
		log.Warn("cover stage: failed to persist cover image", "error", err)
		return
	}
	if err := o.store.UpdateCoverImagePath(ctx, sessionID, address); err != nil {
		log.Warn("cover stage: failed to record cover path", "error", err)
	}
}
