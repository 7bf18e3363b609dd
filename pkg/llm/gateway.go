// Package llm implements C3 LLMGateway (spec.md §4.3): a uniform call
// interface over the two provider families the system supports,
// Google (genai) and OpenAI (openai-go), with model normalization,
// token accounting, multimodal PDF input, and retry-with-fallback.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/services"
)

// ModeOf maps a model id to the credit-pool tier it draws from (spec.md
// §4.5 "credits.consume(user, mode_of(llm_model))", GLOSSARY "Mode").
// Unrecognized names default to ModeFlash, the cheapest tier, rather
// than failing a credit check outright.
func ModeOf(modelName string) model.Mode {
	n := strings.ToLower(modelName)
	switch {
	case strings.Contains(n, "ultra"), strings.Contains(n, "opus"):
		return model.ModeUltra
	case strings.Contains(n, "pro"):
		return model.ModePro
	default:
		return model.ModeFlash
	}
}

// Family is one of the two provider families spec.md §4.3 names.
type Family string

const (
	FamilyGoogle Family = "google"
	FamilyOpenAI Family = "openai"
)

// ModelFamily does prefix-based provider detection (spec.md §4.3
// "model_family(name) → {google, openai}").
func ModelFamily(name string) (Family, error) {
	n := strings.ToLower(name)
	switch {
	case strings.HasPrefix(n, "gpt"), strings.HasPrefix(n, "o1"), strings.HasPrefix(n, "o3"):
		return FamilyOpenAI, nil
	case strings.HasPrefix(n, "gemini"), strings.HasPrefix(n, "claude"):
		return FamilyGoogle, nil
	default:
		return "", fmt.Errorf("%w: unrecognized model family for %q", services.ErrValidation, name)
	}
}

// aliasTable is the concrete algorithm behind spec.md §4.3's
// normalize(name), grounded on original_source's map_model_name:
// user-facing aliases collapse to the provider-native id.
var aliasTable = map[string]string{
	"gemini-3-pro":        "gemini-3-pro-preview",
	"gemini-3-flash":      "gemini-3-flash-preview",
	"gemini-2.5-pro":      "gemini-2.5-pro",
	"gemini-2.5-flash":    "gemini-2.5-flash",
	"gpt-5-pro":           "gpt-5.2-pro",
	"gpt-5":               "gpt-5.2",
}

// defaultAlias is the fallback tier for an unrecognized alias
// (original_source: "unrecognized aliases default to the flash tier").
const defaultAlias = "gemini-3-flash-preview"

// Normalize maps a user-facing model alias to its canonical provider id.
func Normalize(name string) string {
	if canonical, ok := aliasTable[strings.ToLower(name)]; ok {
		return canonical
	}
	if _, err := ModelFamily(name); err == nil {
		// Recognized family, unrecognized specific id: pass through
		// unchanged rather than forcing a default (only a wholly
		// unrecognized name falls back).
		return name
	}
	return defaultAlias
}

// Part is one chunk of multimodal input (spec.md §4.3
// generate_multimodal's parts[{mime,bytes}]).
type Part struct {
	MIMEType string
	Bytes    []byte
}

// TokenUsage is a single call's token accounting, convertible into the
// persisted model.PhaseTokenUsage by the caller (pkg/agent).
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	Model        string
}

func (u TokenUsage) ToPhaseTokenUsage() model.PhaseTokenUsage {
	return model.PhaseTokenUsage{InputTokens: u.InputTokens, OutputTokens: u.OutputTokens, Model: u.Model}
}

// Backend is the per-family implementation of the four LLMGateway
// operations (spec.md §4.3).
type Backend interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt, model string, temperature float64, responseMIMEType string) (string, TokenUsage, error)
	GenerateImage(ctx context.Context, prompt, model, aspectRatio, imageSize string) ([]byte, error)
	GenerateMultimodal(ctx context.Context, systemPrompt, userPrompt string, parts []Part, model string, temperature float64, responseMIMEType string) (string, TokenUsage, error)
	ExtractTextFromPDF(ctx context.Context, data []byte, maxChars int) (string, error)
	// AcceptsPDF reports whether this backend's generate_multimodal can
	// take PDF bytes directly, vs. requiring extract_text_from_pdf first
	// (spec.md §9 "provider → {accepts_pdf: bool} capability map").
	AcceptsPDF() bool
}

// Gateway dispatches to the family-appropriate Backend and applies the
// retry-with-fallback-model policy (spec.md §4.3).
type Gateway struct {
	google Backend
	openai Backend
	policy RetryPolicy
}

// NewGateway constructs a Gateway. openai may be nil if no OpenAI API
// key is configured (spec.md §6 "optional OpenAI API key") — calls
// requiring it then fail with ErrValidation rather than a nil deref.
func NewGateway(google, openai Backend, policy RetryPolicy) *Gateway {
	return &Gateway{google: google, openai: openai, policy: policy}
}

func (g *Gateway) backendFor(modelName string) (Backend, Family, error) {
	family, err := ModelFamily(modelName)
	if err != nil {
		return nil, "", err
	}
	switch family {
	case FamilyGoogle:
		return g.google, family, nil
	case FamilyOpenAI:
		if g.openai == nil {
			return nil, family, fmt.Errorf("%w: openai backend not configured", services.ErrValidation)
		}
		return g.openai, family, nil
	default:
		return nil, family, fmt.Errorf("%w: unknown family %q", services.ErrValidation, family)
	}
}

// GenerateText is spec.md §4.3's generate_text, retried with the
// configured fallback model on failure (RetryPolicy).
func (g *Gateway) GenerateText(ctx context.Context, systemPrompt, userPrompt, modelName string, temperature float64, responseMIMEType string) (string, model.PhaseTokenUsage, error) {
	modelName = Normalize(modelName)
	var text string
	var usage TokenUsage
	err := g.withRetry(ctx, modelName, func(ctx context.Context, m string) error {
		backend, _, err := g.backendFor(m)
		if err != nil {
			return err
		}
		text, usage, err = backend.GenerateText(ctx, systemPrompt, userPrompt, m, temperature, responseMIMEType)
		return err
	})
	return text, usage.ToPhaseTokenUsage(), err
}

// GenerateImage is spec.md §4.3's generate_image.
func (g *Gateway) GenerateImage(ctx context.Context, prompt, modelName, aspectRatio, imageSize string) ([]byte, error) {
	modelName = Normalize(modelName)
	var img []byte
	err := g.withRetry(ctx, modelName, func(ctx context.Context, m string) error {
		backend, _, err := g.backendFor(m)
		if err != nil {
			return err
		}
		img, err = backend.GenerateImage(ctx, prompt, m, aspectRatio, imageSize)
		return err
	})
	return img, err
}

// GenerateMultimodal is spec.md §4.3's generate_multimodal. When the
// resolved backend lacks PDF capability, callers should instead
// extract text via ExtractTextFromPDF and call GenerateText; Gateway
// does not silently reroute so the caller can choose the prompt shape.
func (g *Gateway) GenerateMultimodal(ctx context.Context, systemPrompt, userPrompt string, parts []Part, modelName string, temperature float64, responseMIMEType string) (string, model.PhaseTokenUsage, error) {
	modelName = Normalize(modelName)
	var text string
	var usage TokenUsage
	err := g.withRetry(ctx, modelName, func(ctx context.Context, m string) error {
		backend, _, err := g.backendFor(m)
		if err != nil {
			return err
		}
		text, usage, err = backend.GenerateMultimodal(ctx, systemPrompt, userPrompt, parts, m, temperature, responseMIMEType)
		return err
	})
	return text, usage.ToPhaseTokenUsage(), err
}

// ExtractTextFromPDF is spec.md §4.3's extract_text_from_pdf, used on
// the openai path (no native PDF multimodal input).
func (g *Gateway) ExtractTextFromPDF(ctx context.Context, data []byte, maxChars int) (string, error) {
	if g.openai == nil {
		return "", fmt.Errorf("%w: openai backend not configured", services.ErrValidation)
	}
	return g.openai.ExtractTextFromPDF(ctx, data, maxChars)
}

// AcceptsPDF reports the resolved backend's PDF capability for model.
func (g *Gateway) AcceptsPDF(modelName string) (bool, error) {
	backend, _, err := g.backendFor(Normalize(modelName))
	if err != nil {
		return false, err
	}
	return backend.AcceptsPDF(), nil
}
