package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/novelforge/novelforge/pkg/llm"
	"github.com/novelforge/novelforge/pkg/model"
)

// DraftResult is the Draft runner's output (spec.md §4.4:
// "(title, draft_text, new_version)").
type DraftResult struct {
	Title string
	Text  string
}

// GenerateDraft is the Draft runner. When previousDraft and
// userFeedback are both non-empty, the prompt asks for a revision that
// preserves everything the feedback didn't name (original_source's
// generate_draft revision branch).
func GenerateDraft(ctx context.Context, gw *llm.Gateway, tmpl Templates, form model.FormData, answers []model.QuestionAnswer, modelName string, temperature float64, previousDraft, userFeedback string) (DraftResult, model.PhaseTokenUsage, error) {
	var userPrompt string
	if previousDraft != "" && userFeedback != "" {
		userPrompt = fmt.Sprintf(`A draft already exists for this novel. The user has requested changes.

Original form data:
%s
%s

Previous draft (revise this version):
%s

User feedback to incorporate:
%s

Produce a new version of the extended draft that incorporates the requested changes while preserving everything not asked to change.`,
			formatFormDataBrief(form), formatQuestionAnswers(answers), previousDraft, userFeedback)
	} else {
		userPrompt = fmt.Sprintf(`Generate an extended, detailed draft of this novel's plot.

%s
%s

Develop the plot in detail, incorporating every specified field and everything that emerged from the answers.`,
			formatFormDataBrief(form), formatQuestionAnswers(answers))
	}

	text, usage, err := gw.GenerateText(ctx, tmpl.Draft, userPrompt, modelName, temperature, "")
	if err != nil {
		return DraftResult{}, usage, err
	}

	title, draftText := parseDraftOutput(text)
	return DraftResult{Title: title, Text: draftText}, usage, nil
}

const defaultDraftTitle = "Untitled"

// parseDraftOutput extracts the "TITOLO:"/"TRAMA:" header pair the
// Draft prompt is instructed to produce, falling back to the first
// Markdown H1, then to defaultDraftTitle (spec.md §4.4; algorithm
// grounded verbatim on original_source's parse_draft_output).
func parseDraftOutput(llmOutput string) (string, string) {
	lines := strings.Split(llmOutput, "\n")
	var title string
	var draftText strings.Builder
	foundTitle := false
	foundTrama := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)

		if !foundTitle && strings.HasPrefix(upper, "TITOLO:") {
			title = strings.TrimSpace(trimmed[len("TITOLO:"):])
			foundTitle = true
			continue
		}

		if !foundTrama && (strings.HasPrefix(upper, "TRAMA:") || upper == "TRAMA") {
			foundTrama = true
			if strings.HasPrefix(upper, "TRAMA:") {
				if remaining := strings.TrimSpace(trimmed[len("TRAMA:"):]); remaining != "" {
					draftText.WriteString(remaining)
					draftText.WriteByte('\n')
				}
			}
			continue
		}

		if foundTrama {
			draftText.WriteString(line)
			draftText.WriteByte('\n')
		}
	}

	if !foundTitle || !foundTrama {
		if !foundTitle {
			for _, line := range lines {
				if strings.HasPrefix(strings.TrimSpace(line), "# ") {
					title = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "# "))
					break
				}
			}
			if title == "" {
				title = defaultDraftTitle
			}
		}
		if !foundTrama {
			return title, strings.TrimSpace(llmOutput)
		}
	}

	return title, strings.TrimSpace(draftText.String())
}

func formatQuestionAnswers(answers []model.QuestionAnswer) string {
	if len(answers) == 0 {
		return "No answers were provided to the preliminary questions."
	}
	var sb strings.Builder
	sb.WriteString("Answers to the preliminary questions:\n")
	for _, qa := range answers {
		if qa.Answer != nil && *qa.Answer != "" {
			fmt.Fprintf(&sb, "- %s: %s\n", qa.QuestionID, *qa.Answer)
		}
	}
	return sb.String()
}
