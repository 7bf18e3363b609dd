package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/novelforge/novelforge/pkg/llm"
	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/services"
)

const maxQuestions = 10

// rawQuestion mirrors the JSON shape the Questions prompt asks for
// (spec.md §4.4: "output = list of preliminary questions (≤ ~10);
// structured, IDs stable").
type rawQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
}

// GenerateQuestions is the Questions runner (spec.md §4.4): input is
// the submitted form, output is a stable-ID list of preliminary
// questions.
func GenerateQuestions(ctx context.Context, gw *llm.Gateway, tmpl Templates, form model.FormData, modelName string, temperature float64) ([]model.GeneratedQuestion, model.PhaseTokenUsage, error) {
	userPrompt := fmt.Sprintf("Form submitted:\n\n%s\n\nGenerate the preliminary questions now.", formatFormDataBrief(form))

	text, usage, err := gw.GenerateText(ctx, tmpl.Questions, userPrompt, modelName, temperature, "application/json")
	if err != nil {
		return nil, usage, err
	}

	questions, err := parseQuestions(text)
	if err != nil {
		return nil, usage, err
	}
	return questions, usage, nil
}

// parseQuestions decodes the JSON array, truncates to maxQuestions,
// and backfills any missing id with a stable positional slug so
// "structured, IDs stable" holds even against a sloppy model response.
func parseQuestions(text string) ([]model.GeneratedQuestion, error) {
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array found in questions response", services.ErrValidation)
	}

	var raw []rawQuestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: parse questions JSON: %v", services.ErrValidation, err)
	}

	if len(raw) > maxQuestions {
		raw = raw[:maxQuestions]
	}

	out := make([]model.GeneratedQuestion, len(raw))
	for i, r := range raw {
		id := r.ID
		if id == "" {
			id = "q" + strconv.Itoa(i+1)
		}
		qType := model.GeneratedQuestionType(r.Type)
		if qType != model.QuestionTypeMultipleChoice {
			qType = model.QuestionTypeText
		}
		out[i] = model.GeneratedQuestion{ID: id, Text: r.Text, Type: qType, Options: r.Options}
	}
	return out, nil
}

func formatFormDataBrief(form model.FormData) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Plot: %s\n", form.Plot)
	for label, value := range map[string]string{
		"Genre": form.Genre, "Subgenre": form.Subgenre, "Style": form.Style,
		"Author reference": form.Author, "Theme": form.Theme,
		"Protagonist": form.Protagonist, "POV": form.POV,
		"Narrative voice": form.NarrativeVoice, "Pace": form.Pace, "Realism": form.Realism,
	} {
		if value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", label, value)
		}
	}
	return sb.String()
}
