package library

import (
	"context"
	"log/slog"

	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/progress"
)

// SessionStore is the slice of pkg/session.Store the backfill job
// needs: a privileged read (no ownership check, since this runs as a
// detached background job, same reasoning as orchestrator.GetSystem)
// plus the two merge-safe writers it patches through (spec.md §4.7:
// "writes via update_writing_progress (merge-safe) + set_estimated_cost").
// Defined here, not in pkg/session, so library stays the consumer that
// names its own dependency (accept interfaces, return structs).
type SessionStore interface {
	GetSystem(ctx context.Context, sessionID string) (*model.Session, error)
	UpdateWritingProgress(ctx context.Context, sessionID string, patch model.WritingProgressPatch) error
	SetEstimatedCost(ctx context.Context, sessionID string, costEUR float64) error
}

// CostEstimator computes a Session's real, token-based cost, so the
// backfill job can set it alongside total_pages without needing to
// know about pkg/llm's pricing tables itself. A nil CostEstimator
// skips the cost-backfill half and only patches total_pages.
type CostEstimator interface {
	EstimateCost(sess *model.Session) (float64, bool)
}

// Backfiller runs C7's backfill job (spec.md §4.7: "If complete but
// total_pages is null, a background backfill loads the full Session,
// recomputes, and writes via update_writing_progress + set_estimated_cost").
type Backfiller struct {
	store SessionStore
	cost  CostEstimator
	cache *StatsCache
	cfg   Config
}

func NewBackfiller(store SessionStore, cost CostEstimator, cache *StatsCache, cfg Config) *Backfiller {
	return &Backfiller{store: store, cost: cost, cache: cache, cfg: cfg}
}

// Backfill loads sessionID in full, recomputes total_pages from its
// book_chapters, and persists it (plus the real cost, when a
// CostEstimator is configured) via the merge-safe writers — never by
// replacing the whole Session. It invalidates the stats cache
// afterward (spec.md §4.7: "Backfill jobs explicitly invalidate"),
// regardless of which fields actually changed.
func (b *Backfiller) Backfill(ctx context.Context, sessionID string) error {
	sess, err := b.store.GetSystem(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.DerivedStatus() != model.StatusComplete {
		return nil
	}

	totalPages := progress.TotalPages(sess, b.cfg.Progress)
	patch := model.WritingProgressPatch{TotalPages: &totalPages}
	// CurrentStep/TotalSteps/IsComplete/IsPaused/Error are always
	// overwritten by UpdateWritingProgress (never merge-only), so they
	// must be carried forward from the existing subdocument or this
	// backfill would silently reset an already-complete session's
	// progress fields to their zero values.
	if wp := sess.WritingProgress; wp != nil {
		patch.CurrentStep = wp.CurrentStep
		patch.TotalSteps = wp.TotalSteps
		patch.IsComplete = wp.IsComplete
		patch.IsPaused = wp.IsPaused
		patch.Error = wp.Error
		patch.CurrentSectionName = wp.CurrentSectionName
	}
	if err := b.store.UpdateWritingProgress(ctx, sessionID, patch); err != nil {
		return err
	}

	if b.cost != nil {
		if costEUR, ok := b.cost.EstimateCost(sess); ok {
			if err := b.store.SetEstimatedCost(ctx, sessionID, costEUR); err != nil {
				return err
			}
		}
	}

	if b.cache != nil {
		b.cache.Invalidate("")
	}

	slog.Info("library backfill complete", "session_id", sessionID, "total_pages", totalPages)
	return nil
}
