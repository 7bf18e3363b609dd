// Package notify implements C10's Notifier boundary (spec.md §5:
// "Notifications are fire-and-forget and may be lost without
// affecting correctness"): best-effort event delivery for generation
// lifecycle events (phase started/completed/failed, cover/critique
// outcomes), never able to fail a caller.
//
// Grounded on the teacher's pkg/slack.Service: nil-safe receiver
// (every method is a no-op on a nil *Notifier so a deployment with no
// channel configured needs no conditional at call sites), and
// fail-open delivery (errors are logged, never returned) — the exact
// shape pkg/orchestrator.Notifier's signature already commits to by
// having no error return.
package notify

import (
	"context"
	"log/slog"
)

// LogNotifier is the always-available fallback sink: it writes every
// event to the structured logger. Used standalone when no external
// channel is configured, and as SlackNotifier's own delivery-failure
// record.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: slog.Default().With("component", "notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, event, sessionID string, payload map[string]any) {
	if n == nil {
		return
	}
	n.logger.Info("generation event", "event", event, "session_id", sessionID, "payload", payload)
}
