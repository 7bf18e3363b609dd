package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/novelforge/novelforge/pkg/llm"
	"github.com/novelforge/novelforge/pkg/model"
)

// WrittenChapter is one already-generated chapter, carried forward so
// each new chapter can stay consistent with everything before it
// (original_source's writing_progress.chapters).
type WrittenChapter struct {
	Title string
	Text  string
}

// GenerateChapter is the Chapter runner: the autoregressive step that
// writes one section's prose given everything written so far (spec.md
// §4.4, §8 "Autoregressive contract"). It never includes a heading or
// chapter number in its output — the renderer owns structure.
func GenerateChapter(ctx context.Context, gw *llm.Gateway, tmpl Templates, form model.FormData, validatedDraft string, outline []Section, written []WrittenChapter, current Section, modelName string, temperature float64) (string, model.PhaseTokenUsage, error) {
	userPrompt := formatWriterContext(form, validatedDraft, outline, written, current)

	text, usage, err := gw.GenerateText(ctx, tmpl.Chapter, userPrompt, modelName, temperature, "")
	if err != nil {
		return "", usage, err
	}
	return strings.TrimSpace(text), usage, nil
}

// formatWriterContext assembles the autoregressive prompt: form
// context, the validated draft as source of truth, the full outline
// for reference, every previously written chapter in order (so the
// model can stay consistent), then the current section's brief and
// writing instructions. Grounded verbatim on original_source's
// format_writer_context.
func formatWriterContext(form model.FormData, validatedDraft string, outline []Section, written []WrittenChapter, current Section) string {
	var sb strings.Builder

	sb.WriteString("## Novel configuration\n")
	sb.WriteString(formatFormDataBrief(form))

	sb.WriteString("\n## Validated extended draft (source of truth)\n")
	sb.WriteString(validatedDraft)

	sb.WriteString("\n\n## Full outline (for reference)\n")
	for _, s := range outline {
		fmt.Fprintf(&sb, "%s %s\n", strings.Repeat("#", s.Level), s.Title)
	}

	if len(written) > 0 {
		sb.WriteString("\n## PREVIOUSLY WRITTEN CHAPTERS\n")
		sb.WriteString("The following chapters have already been written, in order. Stay consistent with established characters, tone, timeline, and facts. Do not repeat or summarize them — continue the story forward.\n\n")
		for i, ch := range written {
			fmt.Fprintf(&sb, "### Chapter %d: %s\n%s\n\n", i+1, ch.Title, ch.Text)
		}
	}

	sb.WriteString("\n## Current section to write\n")
	fmt.Fprintf(&sb, "Title: %s\n", current.Title)
	if current.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", current.Description)
	}
	sb.WriteString("\nWrite this section's full prose now. Do not include a heading or chapter number — start directly with the narration.\n")

	return sb.String()
}
