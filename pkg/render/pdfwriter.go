package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/novelforge/novelforge/pkg/model"
)

// layout is the handful of page-geometry constants this minimal writer
// needs. Exact book layout is explicitly out of scope (spec.md
// Non-goals: "exact layout of rendered books") — this produces a
// plain, readable, valid multi-page PDF, nothing more.
type layout struct {
	pageWidth, pageHeight float64
	marginX, marginY      float64
	fontSize, leading     float64
	charsPerLine          int
	linesPerPage          int
}

func defaultLayout() layout {
	return layout{
		pageWidth: 612, pageHeight: 792, // US Letter
		marginX: 72, marginY: 72,
		fontSize: 11, leading: 15,
		charsPerLine: 90,
		linesPerPage: 45,
	}
}

// buildRawPDF assembles a minimal, spec-compliant PDF byte stream: a
// title page, a table of contents, then one or more pages per
// chapter (in section_index order), using a single embedded Helvetica
// font and plain wrapped text. This hand-rolled object/xref writer
// has no pack grounding — pdfcpu itself has no documented from-scratch
// text-layout API in this version, it targets existing-PDF
// manipulation (merge/validate/optimize), so generation is done here
// and the result is handed to pdfcpu for a validate+optimize pass
// (render.go's optimizeWithPDFCPU) to exercise that library for the
// concern it actually serves.
func buildRawPDF(sess *model.Session, title, author string) []byte {
	lo := defaultLayout()

	chapters := append([]model.BookChapter(nil), sess.BookChapters...)
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].SectionIndex < chapters[j].SectionIndex })

	var pages [][]string // each entry is the wrapped lines for one page
	pages = append(pages, titlePageLines(title, author))
	pages = append(pages, tocPageLines(chapters))
	for _, ch := range chapters {
		pages = append(pages, chapterPages(ch, lo)...)
	}

	return writePDF(pages, lo)
}

func titlePageLines(title, author string) []string {
	if title == "" {
		title = "Untitled"
	}
	if author == "" {
		author = "Unknown"
	}
	return []string{title, "", "by " + author}
}

func tocPageLines(chapters []model.BookChapter) []string {
	lines := []string{"Table of Contents", ""}
	for i, ch := range chapters {
		name := ch.Title
		if name == "" {
			name = fmt.Sprintf("Chapter %d", i+1)
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, name))
	}
	return lines
}

// chapterPages wraps one chapter's title and body into one or more
// pages of at most lo.linesPerPage wrapped lines each.
func chapterPages(ch model.BookChapter, lo layout) [][]string {
	title := ch.Title
	if title == "" {
		title = fmt.Sprintf("Chapter %d", ch.SectionIndex+1)
	}

	var lines []string
	lines = append(lines, title, "")
	lines = append(lines, wrapText(ch.Content, lo.charsPerLine)...)

	var pages [][]string
	for len(lines) > 0 {
		n := lo.linesPerPage
		if n > len(lines) {
			n = len(lines)
		}
		pages = append(pages, lines[:n])
		lines = lines[n:]
	}
	if len(pages) == 0 {
		pages = [][]string{{title}}
	}
	return pages
}

// wrapText performs a naive greedy word-wrap; paragraph boundaries
// (blank lines in the source) are preserved as blank output lines.
func wrapText(text string, width int) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			out = append(out, "")
			continue
		}
		words := strings.Fields(para)
		var line strings.Builder
		for _, w := range words {
			if line.Len() > 0 && line.Len()+1+len(w) > width {
				out = append(out, line.String())
				line.Reset()
			}
			if line.Len() > 0 {
				line.WriteByte(' ')
			}
			line.WriteString(w)
		}
		if line.Len() > 0 {
			out = append(out, line.String())
		}
	}
	return out
}

// writePDF renders pages (each a slice of plain text lines) into a
// minimal valid PDF 1.4 document: one Catalog, one Pages tree, one
// shared Helvetica Font resource, and one Page+content-stream object
// pair per page, followed by a correctly offset xref table and
// trailer.
func writePDF(pages [][]string, lo layout) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	type objOffset struct {
		obj    int
		offset int
	}
	var offsets []objOffset
	record := func(obj int) { offsets = append(offsets, objOffset{obj, buf.Len()}) }

	numPages := len(pages)
	// Object numbering: 1=Catalog, 2=Pages, 3=Font, then for each page
	// i (0-indexed): page obj = 4+2i, content obj = 5+2i.
	catalogObj, pagesObj, fontObj := 1, 2, 3
	pageObjNum := func(i int) int { return 4 + 2*i }
	contentObjNum := func(i int) int { return 5 + 2*i }

	record(catalogObj)
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /Catalog /Pages %d 0 R >>\nendobj\n", catalogObj, pagesObj)

	record(pagesObj)
	var kids strings.Builder
	for i := 0; i < numPages; i++ {
		if i > 0 {
			kids.WriteByte(' ')
		}
		fmt.Fprintf(&kids, "%d 0 R", pageObjNum(i))
	}
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", pagesObj, kids.String(), numPages)

	record(fontObj)
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n", fontObj)

	for i, lines := range pages {
		pObj, cObj := pageObjNum(i), contentObjNum(i)

		record(pObj)
		fmt.Fprintf(&buf,
			"%d 0 obj\n<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %.0f %.0f] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>\nendobj\n",
			pObj, pagesObj, lo.pageWidth, lo.pageHeight, fontObj, cObj)

		content := renderContentStream(lines, lo)
		record(cObj)
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", cObj, len(content), content)
	}

	xrefStart := buf.Len()
	totalObjs := fontObj + 1 + 2*numPages // highest object number + 1
	fmt.Fprintf(&buf, "xref\n0 %d\n", totalObjs)
	buf.WriteString("0000000000 65535 f \n")
	byObj := map[int]int{}
	for _, o := range offsets {
		byObj[o.obj] = o.offset
	}
	for obj := 1; obj < totalObjs; obj++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", byObj[obj])
	}

	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", totalObjs, catalogObj, xrefStart)

	return buf.Bytes()
}

func renderContentStream(lines []string, lo layout) string {
	var sb strings.Builder
	sb.WriteString("BT\n")
	fmt.Fprintf(&sb, "/F1 %.0f Tf\n", lo.fontSize)
	fmt.Fprintf(&sb, "%.0f %.0f Td\n", lo.marginX, lo.pageHeight-lo.marginY)
	fmt.Fprintf(&sb, "%.0f TL\n", lo.leading)
	for i, line := range lines {
		if i > 0 {
			sb.WriteString("T*\n")
		}
		fmt.Fprintf(&sb, "(%s) Tj\n", escapePDFString(line))
	}
	sb.WriteString("ET")
	return sb.String()
}

func escapePDFString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	s = strings.ReplaceAll(s, ")", `\)`)
	return s
}
