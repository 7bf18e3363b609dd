package render

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelforge/novelforge/pkg/model"
)

func TestRenderPDFSkipsOptimizeWhenDisabled(t *testing.T) {
	sess := &model.Session{
		SessionID: "sess-1",
		Draft:     model.Draft{CurrentTitle: "Test Book"},
		BookChapters: []model.BookChapter{
			{Title: "One", Content: "hello world", SectionIndex: 0},
		},
	}

	adapter := New(Config{OptimizeWithPDFCPU: false})
	pdf, err := adapter.RenderPDF(context.Background(), sess)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-1.4\n")))
	assert.Contains(t, string(pdf), "Test Book")
}
