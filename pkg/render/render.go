// Package render implements C9's Rendering boundary (spec.md §4.5
// item 6, §6): "a pluggable PDF/EPUB/DOCX generator over a Session.
// Only the interface is specified here" — this is the one concrete
// PDF-producing adapter behind pkg/orchestrator.Renderer; exact layout
// is explicitly a Non-goal, so the writer in pdfwriter.go favors a
// plain, valid, readable document over any fidelity to a particular
// design.
package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	novelmodel "github.com/novelforge/novelforge/pkg/model"
)

// Config holds the adapter's tunables.
type Config struct {
	// OptimizeWithPDFCPU runs the generated document through pdfcpu's
	// validate+optimize pass before returning it. Best-effort: a
	// failure here is logged and the unoptimized (but still valid)
	// bytes are returned rather than failing the whole render, since
	// the hand-written document is already spec-compliant on its own.
	OptimizeWithPDFCPU bool
}

func DefaultConfig() Config {
	return Config{OptimizeWithPDFCPU: true}
}

// Adapter is the PDF Renderer. Its RenderPDF method alone satisfies
// pkg/orchestrator.Renderer.
type Adapter struct {
	cfg Config
}

func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

// RenderPDF builds the full book (title page, table of contents, one
// or more pages per chapter in section_index order) and returns its
// PDF bytes (spec.md §4.5 item 6: "Call the Rendering boundary to
// produce the PDF of the current Session").
func (a *Adapter) RenderPDF(ctx context.Context, sess *novelmodel.Session) ([]byte, error) {
	title := sess.Draft.CurrentTitle
	author := sess.FormData.UserName
	raw := buildRawPDF(sess, title, author)

	if !a.cfg.OptimizeWithPDFCPU {
		return raw, nil
	}

	optimized, err := optimizeWithPDFCPU(raw)
	if err != nil {
		slog.Warn("pdfcpu optimize failed, returning unoptimized document", "session_id", sess.SessionID, "error", err)
		return raw, nil
	}
	return optimized, nil
}

// optimizeWithPDFCPU runs pdfcpu's validate-then-optimize pass over a
// generated document — the concern pdfcpu's public API actually
// targets (it manipulates/validates existing PDFs rather than
// generating text layout from scratch). Not grounded on any in-pack
// caller (the pack only references pdfcpu in a go.mod, see
// pkg/llm/openai.go's ExtractTextFromPDF note for the same caveat);
// the call shape follows pdfcpu's documented api.Validate/api.Optimize
// functions.
func optimizeWithPDFCPU(raw []byte) ([]byte, error) {
	if err := api.Validate(bytes.NewReader(raw), nil); err != nil {
		return nil, fmt.Errorf("render: validate: %w", err)
	}

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(raw), &out, nil); err != nil {
		return nil, fmt.Errorf("render: optimize: %w", err)
	}
	return out.Bytes(), nil
}
