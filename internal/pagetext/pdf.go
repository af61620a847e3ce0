package pagetext

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dgallion1/orgmark/internal/geometry"
	"github.com/dgallion1/orgmark/internal/textmatch"
	pdflib "github.com/ledongthuc/pdf"
)

const (
	// baselineTolerance groups glyphs into one line when their baselines
	// differ by less than this fraction of the font size.
	baselineTolerance = 0.5
	// wordGapRatio is the horizontal gap, relative to font size, treated
	// as a space between glyphs.
	wordGapRatio = 0.15
	// ascentRatio places the line box top above the baseline.
	ascentRatio = 0.8
)

// PDFSource reads text lines from a PDF. Pages are decoded lazily and
// cached; the underlying reader is not safe for concurrent use.
type PDFSource struct {
	mu     sync.Mutex
	f      *os.File
	reader *pdflib.Reader
	cache  map[int][]textmatch.TextLine
}

// OpenPDF opens path and keeps it open until Close.
func OpenPDF(path string) (*PDFSource, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &PDFSource{f: f, reader: reader, cache: make(map[int][]textmatch.TextLine)}, nil
}

func (p *PDFSource) NumPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reader.NumPage()
}

func (p *PDFSource) TextLines(ctx context.Context, page int) ([]textmatch.TextLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := checkPage(page, p.reader.NumPage()); err != nil {
		return nil, err
	}
	if lines, ok := p.cache[page]; ok {
		return lines, nil
	}

	pg := p.reader.Page(page + 1)
	if pg.V.IsNull() {
		p.cache[page] = nil
		return nil, nil
	}
	glyphs, err := pageGlyphs(pg)
	if err != nil {
		return nil, fmt.Errorf("read page %d: %w", page, err)
	}
	lines := groupLines(glyphs, pageTop(pg, glyphs))
	p.cache[page] = lines
	return lines, nil
}

func (p *PDFSource) Close() error {
	return p.f.Close()
}

// pageGlyphs returns the positioned text of a page. The content stream
// decoder panics on some malformed input, which is reported as an error.
func pageGlyphs(pg pdflib.Page) (glyphs []pdflib.Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()
	return pg.Content().Text, nil
}

// pageTop returns the top edge of the MediaBox, following inherited
// values, and falls back to the highest glyph when none is declared. It
// is the origin for flipping y to a top-left system, so boxes not
// starting at y=0 are handled.
func pageTop(pg pdflib.Page, glyphs []pdflib.Text) float64 {
	v := pg.V
	for range 8 {
		if v.IsNull() {
			break
		}
		if box := v.Key("MediaBox"); box.Len() == 4 {
			return math.Max(box.Index(1).Float64(), box.Index(3).Float64())
		}
		v = v.Key("Parent")
	}
	var top float64
	for _, g := range glyphs {
		top = math.Max(top, g.Y+g.FontSize)
	}
	return top
}

type lineGroup struct {
	baseline float64
	fontSize float64
	glyphs   []pdflib.Text
}

// groupLines clusters glyphs by baseline and converts each cluster into a
// line box measured down from top.
func groupLines(glyphs []pdflib.Text, top float64) []textmatch.TextLine {
	sorted := make([]pdflib.Text, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		sorted = append(sorted, g)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var groups []*lineGroup
	for _, g := range sorted {
		if n := len(groups); n > 0 {
			cur := groups[n-1]
			tol := math.Max(cur.fontSize, 1) * baselineTolerance
			if math.Abs(cur.baseline-g.Y) <= tol {
				cur.glyphs = append(cur.glyphs, g)
				cur.fontSize = math.Max(cur.fontSize, g.FontSize)
				continue
			}
		}
		groups = append(groups, &lineGroup{baseline: g.Y, fontSize: g.FontSize, glyphs: []pdflib.Text{g}})
	}

	lines := make([]textmatch.TextLine, 0, len(groups))
	for _, grp := range groups {
		if line, ok := grp.toLine(top); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

func (grp *lineGroup) toLine(top float64) (textmatch.TextLine, bool) {
	sort.SliceStable(grp.glyphs, func(i, j int) bool { return grp.glyphs[i].X < grp.glyphs[j].X })

	var sb strings.Builder
	left, right := math.Inf(1), math.Inf(-1)
	for i, g := range grp.glyphs {
		if i > 0 {
			prev := grp.glyphs[i-1]
			gap := g.X - (prev.X + prev.W)
			if gap > wordGapRatio*math.Max(g.FontSize, 1) &&
				!strings.HasSuffix(sb.String(), " ") && !strings.HasPrefix(g.S, " ") {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(g.S)
		left = math.Min(left, g.X)
		right = math.Max(right, g.X+g.W)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return textmatch.TextLine{}, false
	}
	fs := math.Max(grp.fontSize, 1)
	return textmatch.TextLine{
		Text: text,
		BoundingBox: geometry.Rect{
			Left:   left,
			Top:    top - grp.baseline - ascentRatio*fs,
			Width:  right - left,
			Height: fs,
		},
	}, true
}
