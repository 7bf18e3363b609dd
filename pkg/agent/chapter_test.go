package agent

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/novelforge/novelforge/pkg/model"
)

func TestFormatWriterContextIncludesPreviousChaptersInOrder(t *testing.T) {
	form := model.FormData{Plot: "A detective story."}
	outline := []Section{
		{Title: "The Setup", Level: 2},
		{Title: "The Twist", Level: 2},
	}
	written := []WrittenChapter{
		{Title: "The Setup", Text: "Detective Rossi arrives at the scene."},
	}
	current := Section{Title: "The Twist", Description: "Reveal the culprit.", Level: 2}

	out := formatWriterContext(form, "Extended draft text.", outline, written, current)

	require.Contains(t, out, "PREVIOUSLY WRITTEN CHAPTERS")
	require.Contains(t, out, "Detective Rossi arrives at the scene.")
	require.Contains(t, out, "Extended draft text.")
	require.Contains(t, out, "## Full outline (for reference)")
	require.Contains(t, out, "## Current section to write")
	require.Contains(t, out, "Title: The Twist")
	require.Contains(t, out, "Reveal the culprit.")
	require.Contains(t, out, "start directly with the narration")
}

func TestFormatWriterContextOmitsPreviousChaptersSectionWhenNoneWritten(t *testing.T) {
	form := model.FormData{Plot: "A detective story."}
	outline := []Section{{Title: "The Setup", Level: 2}}
	current := Section{Title: "The Setup", Level: 2}

	out := formatWriterContext(form, "Draft.", outline, nil, current)

	require.NotContains(t, out, "PREVIOUSLY WRITTEN CHAPTERS")
}
