package llm

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// ResponsePart is the sum type spec.md §9 calls for: "the LLM responses
// arrive as opaque objects... represent as a sum type Text | InlineBlob
// | DataUri and a tolerant decoder that tries a fixed ordered list of
// extraction strategies." Grounded on genai's Part/Blob shapes
// (internal/embedding/genai.go's client.Models.* responses, and the raw
// REST candidate/part shapes in internal/perception/client_gemini.go).
type ResponsePart struct {
	Text       string
	InlineMIME string
	InlineData []byte
	DataURI    string
}

func (p ResponsePart) IsText() bool    { return p.Text != "" }
func (p ResponsePart) IsInline() bool  { return len(p.InlineData) > 0 }
func (p ResponsePart) IsDataURI() bool { return p.DataURI != "" }

var dataURIPattern = regexp.MustCompile(`^data:([^;]+);base64,(.+)$`)

// decodePart applies the fixed ordered extraction strategies against a
// raw, dynamically-shaped response part (a map[string]any, as produced
// by round-tripping an SDK part through JSON so both snake_case and
// camelCase API variants are tolerated uniformly).
func decodePart(raw map[string]any) ResponsePart {
	if text, ok := stringField(raw, "text"); ok && text != "" {
		if m := dataURIPattern.FindStringSubmatch(text); m != nil {
			return ResponsePart{DataURI: text}
		}
		return ResponsePart{Text: text}
	}

	if blob, ok := mapField(raw, "inlineData", "inline_data"); ok {
		mime, _ := stringField(blob, "mimeType", "mime_type")
		if data, ok := stringField(blob, "data"); ok {
			if decoded, err := base64.StdEncoding.DecodeString(data); err == nil {
				return ResponsePart{InlineMIME: mime, InlineData: decoded}
			}
		}
	}

	if data, ok := stringField(raw, "data"); ok {
		if decoded, err := base64.StdEncoding.DecodeString(data); err == nil {
			return ResponsePart{InlineData: decoded}
		}
	}

	return ResponsePart{}
}

// FirstImage scans parts in order and returns the first part carrying
// image bytes, trying inline blob, then bare base64 "data", then a
// base64 data-URI embedded in text (spec.md §4.3 generate_image: "must
// extract from the first part that carries inline image data; multiple
// response shapes... must be tried in order").
func FirstImage(rawParts []map[string]any) ([]byte, bool) {
	for _, raw := range rawParts {
		part := decodePart(raw)
		if part.IsInline() {
			return part.InlineData, true
		}
	}
	for _, raw := range rawParts {
		part := decodePart(raw)
		if part.IsDataURI() {
			m := dataURIPattern.FindStringSubmatch(part.DataURI)
			if decoded, err := base64.StdEncoding.DecodeString(m[2]); err == nil {
				return decoded, true
			}
		}
	}
	return nil, false
}

// CoerceToText concatenates every text-bearing part, in order. Grounded
// on original_source's _coerce_llm_content_to_text, which accepts a
// bare string, a list of parts, or a dict with a "text" key and always
// produces plain text for chapter prose.
func CoerceToText(rawParts []map[string]any) string {
	var sb strings.Builder
	for _, raw := range rawParts {
		part := decodePart(raw)
		if part.IsText() {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func stringField(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

func mapField(m map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if nested, ok := v.(map[string]any); ok {
				return nested, true
			}
		}
	}
	return nil, false
}
