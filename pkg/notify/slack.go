package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goslack "github.com/slack-go/slack"
)

// SlackConfig mirrors the teacher's slack.ServiceConfig.
type SlackConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// SlackNotifier posts generation lifecycle events to a Slack channel.
// Nil-safe: every method is a no-op on a nil receiver, same contract
// as the teacher's slack.Service, so callers never need a nil check
// of their own at the call site.
type SlackNotifier struct {
	api       *goslack.Client
	channel   string
	dashboard string
	fallback  *LogNotifier
	logger    *slog.Logger
}

// NewSlackNotifier returns nil if Token or Channel is empty (teacher's
// slack.NewService convention) — the resulting nil *SlackNotifier is
// safe to wire directly into pkg/orchestrator.Notifier.
func NewSlackNotifier(cfg SlackConfig) *SlackNotifier {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &SlackNotifier{
		api:       goslack.New(cfg.Token),
		channel:   cfg.Channel,
		dashboard: cfg.DashboardURL,
		fallback:  NewLogNotifier(),
		logger:    slog.Default().With("component", "slack-notify"),
	}
}

// newSlackNotifierWithAPIURL is the test-only constructor pointing at
// a mock server, mirroring slack.NewClientWithAPIURL.
func newSlackNotifierWithAPIURL(cfg SlackConfig, apiURL string) *SlackNotifier {
	return &SlackNotifier{
		api:       goslack.New(cfg.Token, goslack.OptionAPIURL(apiURL)),
		channel:   cfg.Channel,
		dashboard: cfg.DashboardURL,
		fallback:  NewLogNotifier(),
		logger:    slog.Default().With("component", "slack-notify"),
	}
}

// Notify posts a single-line Block Kit message. Fail-open: any error
// is logged (and the event is also recorded via the log fallback) but
// never propagated, matching spec.md §5's "lost without affecting
// correctness".
func (n *SlackNotifier) Notify(ctx context.Context, event, sessionID string, payload map[string]any) {
	if n == nil {
		return
	}

	text := formatMessage(event, sessionID, n.dashboard, payload)
	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, _, err := n.api.PostMessageContext(ctx, n.channel, goslack.MsgOptionBlocks(blocks...)); err != nil {
		n.logger.Warn("slack notify failed, falling back to log", "event", event, "session_id", sessionID, "error", err)
		n.fallback.Notify(ctx, event, sessionID, payload)
	}
}

func formatMessage(event, sessionID, dashboardURL string, payload map[string]any) string {
	msg := fmt.Sprintf("*%s* — session `%s`", event, sessionID)
	if dashboardURL != "" {
		msg += fmt.Sprintf(" — <%s/sessions/%s|View>", dashboardURL, sessionID)
	}
	if len(payload) > 0 {
		msg += fmt.Sprintf("\n%v", payload)
	}
	return msg
}
