package pagetext

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dgallion1/orgmark/internal/geometry"
	"github.com/dgallion1/orgmark/internal/textmatch"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// lineClasses are the hOCR classes that carry a single line of text.
var lineClasses = []string{"ocr_line", "ocr_header", "ocr_caption", "ocr_textfloat"}

// HOCRSource serves lines from an hOCR document parsed up front.
type HOCRSource struct {
	pages [][]textmatch.TextLine
}

// OpenHOCR reads and parses an hOCR file.
func OpenHOCR(path string) (*HOCRSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hocr: %w", err)
	}
	return ParseHOCR(data)
}

// ParseHOCR parses hOCR markup. Documents declaring a Latin-1 charset are
// decoded to UTF-8 first.
func ParseHOCR(data []byte) (*HOCRSource, error) {
	if isLatin1(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode latin-1: %w", err)
		}
		data = decoded
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse hocr: %w", err)
	}

	src := &HOCRSource{}
	var findPages func(*html.Node)
	findPages = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "ocr_page") {
			src.pages = append(src.pages, pageLines(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findPages(c)
		}
	}
	findPages(doc)

	if len(src.pages) == 0 {
		return nil, fmt.Errorf("no ocr_page elements found")
	}
	return src, nil
}

func (h *HOCRSource) NumPages() int { return len(h.pages) }

func (h *HOCRSource) TextLines(ctx context.Context, page int) ([]textmatch.TextLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkPage(page, len(h.pages)); err != nil {
		return nil, err
	}
	return h.pages[page], nil
}

func (h *HOCRSource) Close() error { return nil }

func pageLines(page *html.Node) []textmatch.TextLine {
	var lines []textmatch.TextLine
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && isLineElement(n) {
			box, ok := parseBBox(attr(n, "title"))
			text := lineText(n)
			if ok && text != "" {
				lines = append(lines, textmatch.TextLine{Text: text, BoundingBox: box})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(page)
	return lines
}

// lineText joins the line's ocrx_word texts, or its whole text content
// when the line has no word elements.
func lineText(n *html.Node) string {
	var words []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "ocrx_word") {
			if w := strings.TrimSpace(textContent(n)); w != "" {
				words = append(words, w)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	if len(words) == 0 {
		return strings.Join(strings.Fields(textContent(n)), " ")
	}
	return strings.Join(words, " ")
}

// parseBBox reads "bbox x0 y0 x1 y1" from an hOCR title attribute.
func parseBBox(title string) (geometry.Rect, bool) {
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(part)
		if len(fields) < 5 || fields[0] != "bbox" {
			continue
		}
		var v [4]float64
		for i := range v {
			f, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return geometry.Rect{}, false
			}
			v[i] = f
		}
		return geometry.Normalize(v[0], v[2], v[1], v[3]), true
	}
	return geometry.Rect{}, false
}

func isLineElement(n *html.Node) bool {
	for _, c := range lineClasses {
		if hasClass(n, c) {
			return true
		}
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

// isLatin1 looks for an ISO-8859-1 charset declaration near the top of
// the document.
func isLatin1(data []byte) bool {
	head := strings.ToLower(string(data[:min(len(data), 2048)]))
	i := strings.Index(head, "charset=")
	if i < 0 {
		return false
	}
	cs := strings.TrimLeft(head[i+len("charset="):], `"' `)
	return strings.HasPrefix(cs, "iso-8859-1") || strings.HasPrefix(cs, "latin1")
}
