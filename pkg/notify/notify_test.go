package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogNotifierWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	n := &LogNotifier{logger: slog.New(slog.NewTextHandler(&buf, nil))}

	n.Notify(context.Background(), "phase.completed", "sess-1", map[string]any{"phase": "outline"})

	out := buf.String()
	assert.Contains(t, out, "generation event")
	assert.Contains(t, out, "phase.completed")
	assert.Contains(t, out, "sess-1")
}

func TestLogNotifierNilReceiverIsNoOp(t *testing.T) {
	var n *LogNotifier
	assert.NotPanics(t, func() {
		n.Notify(context.Background(), "phase.started", "sess-1", nil)
	})
}

func TestNewSlackNotifierReturnsNilWithoutTokenOrChannel(t *testing.T) {
	assert.Nil(t, NewSlackNotifier(SlackConfig{}))
	assert.Nil(t, NewSlackNotifier(SlackConfig{Token: "xoxb-test"}))
	assert.Nil(t, NewSlackNotifier(SlackConfig{Channel: "#novels"}))
}

func TestSlackNotifierNilReceiverIsNoOp(t *testing.T) {
	var n *SlackNotifier
	assert.NotPanics(t, func() {
		n.Notify(context.Background(), "phase.failed", "sess-1", map[string]any{"error": "boom"})
	})
}

func TestFormatMessageIncludesDashboardLinkAndPayload(t *testing.T) {
	msg := formatMessage("phase.completed", "sess-1", "https://dash.example.com", map[string]any{"phase": "outline"})
	assert.Contains(t, msg, "phase.completed")
	assert.Contains(t, msg, "sess-1")
	assert.Contains(t, msg, "https://dash.example.com/sessions/sess-1")
	assert.Contains(t, msg, "outline")
}

func TestFormatMessageOmitsLinkWhenDashboardURLEmpty(t *testing.T) {
	msg := formatMessage("phase.started", "sess-2", "", nil)
	assert.NotContains(t, msg, "View")
}
