package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/novelforge/novelforge/pkg/llm"
	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/services"
)

// Section is one writable unit parsed from the outline (spec.md §4.4,
// §8 "Autoregressive contract"; C5 drives the per-chapter loop off
// these in order).
type Section struct {
	Title       string
	Description string
	Level       int
}

// GenerateOutline is the Outline runner: input is the form, answers,
// and validated draft; output is Markdown with #/##/### headings
// (spec.md §4.4).
func GenerateOutline(ctx context.Context, gw *llm.Gateway, tmpl Templates, form model.FormData, answers []model.QuestionAnswer, validatedDraft, draftTitle, modelName string, temperature float64) (string, model.PhaseTokenUsage, error) {
	userPrompt := fmt.Sprintf(`Generate the novel's complete chapter structure from the following information.

%s

The validated draft above is the source of truth; where it conflicts with the initial form data, follow the draft.`,
		formatInputForOutline(form, answers, validatedDraft, draftTitle))

	text, usage, err := gw.GenerateText(ctx, tmpl.Outline, userPrompt, modelName, temperature, "")
	if err != nil {
		return "", usage, err
	}
	return strings.TrimSpace(text), usage, nil
}

func formatInputForOutline(form model.FormData, answers []model.QuestionAnswer, validatedDraft, draftTitle string) string {
	var sb strings.Builder
	sb.WriteString("## Validated Extended Draft (source of truth)\n")
	if draftTitle != "" {
		fmt.Fprintf(&sb, "Title: %s\n\n", draftTitle)
	}
	sb.WriteString(validatedDraft)
	sb.WriteString("\n\n## Initial Form Data (context only)\n")
	sb.WriteString(formatFormDataBrief(form))
	sb.WriteString(formatQuestionAnswers(answers))
	return sb.String()
}

// titleSkipWords flags an opening H1 that is the document's own title
// (e.g. "Struttura del Romanzo"), not a writable section — it is
// skipped rather than treated as the book's single section
// (original_source: 'struttura'/'indice'/'outline' in the lowercased
// title).
var titleSkipWords = []string{"struttura", "indice", "outline"}

// partMarkers flag a level-2 heading as a "Part" grouping rather than
// a chapter, which flips the fallback order to prefer level-3 headings
// as the writable chapters (original_source: "Parte"/"Part").
var partMarkers = []string{"parte", "part"}

// ParseOutlineSections extracts writable sections from the outline's
// Markdown headings, using the exact fallback order from
// original_source's parse_outline_sections (SPEC_FULL.md §3 item 4):
// prefer level-3 headings if any level-2 heading names a "Part", else
// level-2; if that yields nothing, level-2∪level-3; if still nothing,
// anything deeper than level-1.
func ParseOutlineSections(outlineText string) ([]Section, error) {
	if strings.TrimSpace(outlineText) == "" {
		return nil, fmt.Errorf("%w: outline is empty, generate the structure first", services.ErrValidation)
	}

	var sections []Section
	var current *Section
	var descLines []string
	flushDesc := func() {
		if current != nil {
			current.Description = strings.TrimSpace(strings.Join(descLines, "\n"))
			sections = append(sections, *current)
		}
	}

	for _, rawLine := range strings.Split(outlineText, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			flushDesc()

			level := 0
			for level < len(line) && line[level] == '#' {
				level++
			}
			title := strings.TrimSpace(line[level:])
			if title == "" {
				current = nil
				descLines = nil
				continue
			}

			if level == 1 && len(sections) == 0 && containsAnyFold(title, titleSkipWords) {
				current = nil
				descLines = nil
				continue
			}

			s := Section{Title: title, Level: level}
			current = &s
			descLines = nil
			continue
		}

		if current != nil {
			descLines = append(descLines, line)
		}
	}
	flushDesc()

	hasParts := false
	for _, s := range sections {
		if s.Level == 2 && containsAnyFold(s.Title, partMarkers) {
			hasParts = true
			break
		}
	}

	var filtered []Section
	if hasParts {
		filtered = filterByLevel(sections, 3)
	} else {
		filtered = filterByLevel(sections, 2)
	}
	if len(filtered) == 0 {
		filtered = filterByLevels(sections, 2, 3)
	}
	if len(filtered) == 0 {
		filtered = filterAboveLevel(sections, 1)
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: no writable sections found in the outline (found %d headings total, none at an appropriate level)", services.ErrValidation, len(sections))
	}
	return filtered, nil
}

func containsAnyFold(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func filterByLevel(sections []Section, level int) []Section {
	var out []Section
	for _, s := range sections {
		if s.Level == level {
			out = append(out, s)
		}
	}
	return out
}

func filterByLevels(sections []Section, levels ...int) []Section {
	var out []Section
	for _, s := range sections {
		for _, l := range levels {
			if s.Level == l {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func filterAboveLevel(sections []Section, level int) []Section {
	var out []Section
	for _, s := range sections {
		if s.Level > level {
			out = append(out, s)
		}
	}
	return out
}
