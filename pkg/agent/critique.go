package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/novelforge/novelforge/pkg/llm"
	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/services"
)

// CritiqueResult is the Critique runner's output (spec.md §4.4:
// "score, pros, cons, summary").
type CritiqueResult struct {
	Score   float64
	Pros    []string
	Cons    []string
	Summary string
}

// maxPDFChars caps the extracted-text fallback at roughly 400k tokens,
// mirroring original_source's generate_literary_critique_from_pdf cap
// on the openai (text-only) path.
const maxPDFChars = 1_500_000

// GenerateCritique is the Critique runner. It sends the rendered PDF
// directly when the resolved backend accepts PDF input, otherwise
// extracts text first. On failure it retries up to maxRetries times,
// switching to fallbackModel for every attempt after the first
// (original_source: generate_literary_critique_from_pdf's
// use_fallback escalation).
func GenerateCritique(ctx context.Context, gw *llm.Gateway, tmpl Templates, pdfData []byte, primaryModel, fallbackModel string, maxRetries int, temperature float64) (CritiqueResult, model.PhaseTokenUsage, error) {
	var totalUsage model.PhaseTokenUsage
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		modelName := primaryModel
		if attempt > 0 {
			modelName = fallbackModel
		}

		text, usage, err := runCritiqueAttempt(ctx, gw, tmpl, pdfData, modelName, temperature)
		totalUsage.InputTokens += usage.InputTokens
		totalUsage.OutputTokens += usage.OutputTokens
		totalUsage.Calls++
		totalUsage.Model = usage.Model
		if err != nil {
			lastErr = err
			continue
		}

		result, err := parseCritiqueResponse(text)
		if err != nil {
			lastErr = err
			continue
		}
		return result, totalUsage, nil
	}

	return CritiqueResult{}, totalUsage, fmt.Errorf("critique generation exhausted %d attempts: %w", maxRetries+1, lastErr)
}

func runCritiqueAttempt(ctx context.Context, gw *llm.Gateway, tmpl Templates, pdfData []byte, modelName string, temperature float64) (string, model.PhaseTokenUsage, error) {
	acceptsPDF, err := gw.AcceptsPDF(modelName)
	if err != nil {
		return "", model.PhaseTokenUsage{}, err
	}

	if acceptsPDF {
		parts := []llm.Part{{MIMEType: "application/pdf", Bytes: pdfData}}
		return gw.GenerateMultimodal(ctx, tmpl.Critique, "Evaluate the attached novel and respond with the requested JSON object.", parts, modelName, temperature, "application/json")
	}

	extracted, err := gw.ExtractTextFromPDF(ctx, pdfData, maxPDFChars)
	if err != nil {
		return "", model.PhaseTokenUsage{}, err
	}
	userPrompt := fmt.Sprintf("Evaluate the following novel text and respond with the requested JSON object.\n\n%s", extracted)
	return gw.GenerateText(ctx, tmpl.Critique, userPrompt, modelName, temperature, "application/json")
}

type rawCritique struct {
	Score   json.Number `json:"score"`
	Pros    any         `json:"pros"`
	Cons    any         `json:"cons"`
	Summary string      `json:"summary"`
}

var scoreLinePattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

var prosHeadingWords = []string{"pro", "punti di forza", "pregi"}
var consHeadingWords = []string{"contro", "punti di debolezza", "difetti"}
var summaryHeadingWords = []string{"sintesi", "riassunto", "summary"}
var scoreLineWords = []string{"score", "voto", "valutazione"}

// parseCritiqueResponse decodes the JSON object the Critique prompt
// asks for, falling back to a tolerant line-by-line scan when the
// model didn't return valid JSON. Grounded verbatim on
// original_source's parse_critique_response.
func parseCritiqueResponse(text string) (CritiqueResult, error) {
	if start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}'); start >= 0 && end > start {
		var raw rawCritique
		if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err == nil {
			score, _ := raw.Score.Float64()
			return CritiqueResult{
				Score:   clampScore(score),
				Pros:    coercePointsToList(raw.Pros),
				Cons:    coercePointsToList(raw.Cons),
				Summary: raw.Summary,
			}, nil
		}
	}
	return parseCritiqueManually(text)
}

func parseCritiqueManually(text string) (CritiqueResult, error) {
	var result CritiqueResult
	var pros, cons, summary []string
	section := ""
	found := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)

		if containsAnyFold(lower, scoreLineWords) {
			if m := scoreLinePattern.FindString(trimmed); m != "" {
				if v, err := strconv.ParseFloat(m, 64); err == nil {
					result.Score = clampScore(v)
					found = true
				}
			}
			continue
		}
		if containsAnyFold(lower, prosHeadingWords) {
			section = "pros"
			found = true
			continue
		}
		if containsAnyFold(lower, consHeadingWords) {
			section = "cons"
			found = true
			continue
		}
		if containsAnyFold(lower, summaryHeadingWords) {
			section = "summary"
			found = true
			continue
		}

		switch section {
		case "pros":
			pros = append(pros, stripBullet(trimmed))
			found = true
		case "cons":
			cons = append(cons, stripBullet(trimmed))
			found = true
		case "summary":
			summary = append(summary, trimmed)
			found = true
		}
	}

	result.Pros = pros
	result.Cons = cons
	result.Summary = strings.Join(summary, " ")

	if !found {
		result.Summary = strings.TrimSpace(text)
	}
	if result.Summary == "" && len(pros) == 0 && len(cons) == 0 {
		return CritiqueResult{}, fmt.Errorf("%w: could not parse any critique content from the response", services.ErrValidation)
	}
	return result, nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func stripBullet(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "-•* "))
}

// coercePointsToList normalizes a pros/cons field that may arrive as a
// JSON array, a newline-separated string with bullet prefixes, or
// something else entirely (original_source's _coerce_points_to_list).
func coercePointsToList(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		var out []string
		for _, line := range strings.Split(val, "\n") {
			if s := stripBullet(line); s != "" {
				out = append(out, s)
			}
		}
		return out
	case nil:
		return nil
	default:
		return []string{fmt.Sprintf("%v", val)}
	}
}
