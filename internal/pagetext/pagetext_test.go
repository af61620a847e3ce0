package pagetext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/orgmark/internal/geometry"
	"github.com/dgallion1/orgmark/internal/textmatch"
	pdflib "github.com/ledongthuc/pdf"
)

const sampleHOCR = `<!DOCTYPE html>
<html><head><meta http-equiv="Content-Type" content="text/html; charset=utf-8"/></head>
<body>
<div class="ocr_page" title="bbox 0 0 600 800; ppageno 0">
  <p class="ocr_par">
    <span class="ocr_line" title="bbox 10 20 190 40; baseline 0 -5">
      <span class="ocrx_word" title="bbox 10 20 60 40">Alpha</span>
      <span class="ocrx_word" title="bbox 70 20 120 40">Beta</span>
      <span class="ocrx_word" title="bbox 130 20 190 40">Gamma</span>
    </span>
    <span class="ocr_line" title="bbox 10 50 100 70">plain   text line</span>
    <span class="ocr_line">no geometry</span>
  </p>
</div>
<div class="ocr_page" title="bbox 0 0 600 800; ppageno 1">
  <span class="ocr_header" title="bbox 5 5 105 25">Page Two</span>
</div>
</body></html>`

func TestParseHOCR_Lines(t *testing.T) {
	src, err := ParseHOCR([]byte(sampleHOCR))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if src.NumPages() != 2 {
		t.Fatalf("expected 2 pages, got %d", src.NumPages())
	}

	lines, err := src.TextLines(context.Background(), 0)
	if err != nil {
		t.Fatalf("lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines with geometry, got %d", len(lines))
	}
	if lines[0].Text != "Alpha Beta Gamma" {
		t.Errorf("unexpected first line text %q", lines[0].Text)
	}
	want := geometry.Rect{Left: 10, Top: 20, Width: 180, Height: 20}
	if lines[0].BoundingBox != want {
		t.Errorf("expected box %+v, got %+v", want, lines[0].BoundingBox)
	}
	if lines[1].Text != "plain text line" {
		t.Errorf("expected whitespace collapsed, got %q", lines[1].Text)
	}

	page2, _ := src.TextLines(context.Background(), 1)
	if len(page2) != 1 || page2[0].Text != "Page Two" {
		t.Errorf("unexpected page 2 lines: %+v", page2)
	}
}

func TestParseHOCR_SnippetFromLines(t *testing.T) {
	src, err := ParseHOCR([]byte(sampleHOCR))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	lines, _ := src.TextLines(context.Background(), 0)
	got := textmatch.ExtractSnippet(lines, geometry.Rect{Left: 0, Top: 15, Width: 70, Height: 30})
	if got != "Alpha" {
		t.Errorf("expected %q, got %q", "Alpha", got)
	}
}

func TestParseHOCR_Latin1(t *testing.T) {
	doc := []byte("<html><head><meta charset=\"ISO-8859-1\"></head><body>" +
		"<div class='ocr_page'><span class='ocr_line' title='bbox 0 0 50 10'>Caf\xe9</span></div></body></html>")
	src, err := ParseHOCR(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	lines, _ := src.TextLines(context.Background(), 0)
	if len(lines) != 1 || lines[0].Text != "Café" {
		t.Errorf("expected decoded text, got %+v", lines)
	}
}

func TestParseHOCR_NoPages(t *testing.T) {
	if _, err := ParseHOCR([]byte("<html><body><p>hi</p></body></html>")); err == nil {
		t.Error("expected error for document without ocr_page")
	}
}

func TestParseBBox(t *testing.T) {
	box, ok := parseBBox("image foo.png; bbox 100 200 50 260; x_wconf 90")
	if !ok {
		t.Fatal("expected bbox")
	}
	want := geometry.Rect{Left: 50, Top: 200, Width: 50, Height: 60}
	if box != want {
		t.Errorf("expected %+v, got %+v", want, box)
	}
	if _, ok := parseBBox("bbox 1 2 x 4"); ok {
		t.Error("expected malformed bbox to be rejected")
	}
}

func TestStatic_OutOfRange(t *testing.T) {
	s := &Static{Pages: [][]textmatch.TextLine{{}}}
	if _, err := s.TextLines(context.Background(), 1); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("expected ErrPageOutOfRange, got %v", err)
	}
	if _, err := s.TextLines(context.Background(), -1); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("expected ErrPageOutOfRange, got %v", err)
	}
}

func TestOpen_ByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.hocr")
	if err := os.WriteFile(path, []byte(sampleHOCR), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()
	if src.NumPages() != 2 {
		t.Errorf("expected 2 pages, got %d", src.NumPages())
	}

	if _, err := Open(filepath.Join(dir, "doc.docx")); err == nil {
		t.Error("expected unsupported extension error")
	}
	if !IsSupportedExtension("A.PDF") || IsSupportedExtension("a.txt") {
		t.Error("unexpected extension support")
	}
}

func TestGroupLines_BaselineClusteringAndSpacing(t *testing.T) {
	glyphs := []pdflib.Text{
		// Second line, given first to check ordering.
		{FontSize: 10, X: 10, Y: 680, W: 6, S: "B"},
		{FontSize: 10, X: 16, Y: 680, W: 6, S: "y"},
		// First line with a word gap and jittered baseline.
		{FontSize: 10, X: 16, Y: 700.5, W: 6, S: "i"},
		{FontSize: 10, X: 10, Y: 700, W: 6, S: "H"},
		{FontSize: 10, X: 40, Y: 700, W: 6, S: "A"},
	}
	lines := groupLines(glyphs, 800)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text != "Hi A" {
		t.Errorf("expected %q, got %q", "Hi A", lines[0].Text)
	}
	if lines[1].Text != "By" {
		t.Errorf("expected %q, got %q", "By", lines[1].Text)
	}
	first := lines[0].BoundingBox
	if first.Left != 10 || first.Width != 36 || first.Height != 10 {
		t.Errorf("unexpected first line box %+v", first)
	}
	if lines[0].BoundingBox.Top >= lines[1].BoundingBox.Top {
		t.Error("expected first line above second in top-left coordinates")
	}
}

// writePDF builds a one-page PDF whose page inherits mediaBox from the
// page tree, with content drawn in Helvetica.
func writePDF(t *testing.T, mediaBox, content string) string {
	t.Helper()
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox " + mediaBox + " >>",
		"<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "page.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func TestPDFSource_OffsetMediaBox(t *testing.T) {
	path := writePDF(t, "[0 100 612 892]", "BT /F1 12 Tf 72 792 Td (Hello) Tj ET")
	src, err := OpenPDF(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	lines, err := src.TextLines(context.Background(), 0)
	if err != nil {
		t.Fatalf("text lines: %v", err)
	}
	if len(lines) != 1 || lines[0].Text != "Hello" {
		t.Fatalf("unexpected lines %+v", lines)
	}
	// Baseline sits 100 below the top edge at y=892.
	want := 892 - 792 - ascentRatio*12
	if got := lines[0].BoundingBox.Top; math.Abs(got-want) > 1e-9 {
		t.Errorf("expected top %.2f measured from the MediaBox top, got %.2f", want, got)
	}
}
