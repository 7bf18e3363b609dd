package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/novelforge/novelforge/pkg/services"
)

// GeminiBackend implements Backend for the google family (spec.md
// §4.3, §9) via google.golang.org/genai. Client construction and the
// client.Models.* namespace convention are grounded directly on
// theRebelliousNerd-codenerd's internal/embedding/genai.go; this
// package extends that confirmed pattern to text/image/multimodal
// generation, which the pack only exercises through genai's embedding
// surface.
type GeminiBackend struct {
	client *genai.Client
}

// NewGeminiBackend constructs a genai-backed Backend.
func NewGeminiBackend(ctx context.Context, apiKey string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: google api key is required", services.ErrValidation)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiBackend{client: client}, nil
}

func (b *GeminiBackend) AcceptsPDF() bool { return true }

func (b *GeminiBackend) GenerateText(ctx context.Context, systemPrompt, userPrompt, modelName string, temperature float64, responseMIMEType string) (string, TokenUsage, error) {
	contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if responseMIMEType != "" {
		config.ResponseMIMEType = responseMIMEType
	}

	resp, err := b.client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return "", TokenUsage{}, fmt.Errorf("genai generate content: %w", err)
	}
	return extractGeminiText(resp), geminiUsage(resp, modelName), nil
}

func (b *GeminiBackend) GenerateMultimodal(ctx context.Context, systemPrompt, userPrompt string, parts []Part, modelName string, temperature float64, responseMIMEType string) (string, TokenUsage, error) {
	contentParts := []*genai.Part{genai.NewPartFromText(userPrompt)}
	for _, p := range parts {
		contentParts = append(contentParts, genai.NewPartFromBytes(p.Bytes, p.MIMEType))
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: contentParts}}

	config := &genai.GenerateContentConfig{Temperature: genai.Ptr(float32(temperature))}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if responseMIMEType != "" {
		config.ResponseMIMEType = responseMIMEType
	}

	resp, err := b.client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return "", TokenUsage{}, fmt.Errorf("genai generate multimodal content: %w", err)
	}
	return extractGeminiText(resp), geminiUsage(resp, modelName), nil
}

func (b *GeminiBackend) GenerateImage(ctx context.Context, prompt, modelName, aspectRatio, imageSize string) ([]byte, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	if aspectRatio != "" || imageSize != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: aspectRatio}
	}

	resp, err := b.client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return nil, fmt.Errorf("genai generate image: %w", err)
	}

	raw := rawPartsFromResponse(resp)
	if img, ok := FirstImage(raw); ok {
		return img, nil
	}
	return nil, fmt.Errorf("%w: no image data in genai response", services.ErrLLMFailure)
}

// ExtractTextFromPDF is not used on the google path (genai accepts PDF
// bytes directly via GenerateMultimodal); implemented for interface
// completeness and as a diagnostic fallback.
func (b *GeminiBackend) ExtractTextFromPDF(ctx context.Context, data []byte, maxChars int) (string, error) {
	return "", fmt.Errorf("%w: extract_text_from_pdf is not used on the google path (native PDF multimodal)", services.ErrValidation)
}

func extractGeminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	return CoerceToText(rawPartsFromResponse(resp))
}

func geminiUsage(resp *genai.GenerateContentResponse, modelName string) TokenUsage {
	usage := TokenUsage{Model: modelName}
	if resp != nil && resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return usage
}

// rawPartsFromResponse round-trips the SDK's typed Parts through JSON
// into plain maps so decodePart's tolerant, snake/camel-agnostic
// strategies apply uniformly (spec.md §9 design note), rather than
// trusting a single typed accessor that may miss an API response
// variant the struct tags don't cover.
func rawPartsFromResponse(resp *genai.GenerateContentResponse) []map[string]any {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var out []map[string]any
	for _, part := range resp.Candidates[0].Content.Parts {
		data, err := json.Marshal(part)
		if err != nil {
			slog.Warn("failed to marshal genai part for tolerant decode", "error", err)
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}
		out = append(out, raw)
	}
	return out
}
