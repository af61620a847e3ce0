// Package textmatch decides which words of a page's text lines fall
// inside a user-drawn rectangle.
package textmatch

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/orgmark/internal/geometry"
)

// inclusionThreshold is the share of a word's estimated width that must
// lie inside the rectangle when its center does not.
const inclusionThreshold = 0.5

// TextLine is one horizontal run of text on a rendered page.
type TextLine struct {
	Text        string        `json:"text"`
	BoundingBox geometry.Rect `json:"boundingBox"`
}

// WordMatch records how a single word was judged.
type WordMatch struct {
	Line         int           `json:"line"`
	Text         string        `json:"text"`
	Span         geometry.Rect `json:"span"`
	CenterInside bool          `json:"center_inside"`
	Overlap      float64       `json:"overlap"`
	Included     bool          `json:"included"`
}

// Result is the outcome of matching a rectangle against a page.
type Result struct {
	Snippet       string      `json:"snippet"`
	Words         []WordMatch `json:"words"`
	LinesTotal    int         `json:"lines_total"`
	LinesKept     int         `json:"lines_kept"`
	WordsIncluded int         `json:"words_included"`
}

// ExtractSnippet returns the words of lines that fall inside rect,
// joined by single spaces. It returns "" when nothing qualifies.
func ExtractSnippet(lines []TextLine, rect geometry.Rect) string {
	return Match(lines, rect).Snippet
}

// Match runs the word inclusion heuristic and keeps a record of every
// word it considered.
//
// Word positions are estimated with a uniform character width derived
// from the line box, with one extra character width between words.
// Stored snippets depend on this estimate, so it must not be swapped for
// real font metrics.
func Match(lines []TextLine, rect geometry.Rect) Result {
	res := Result{LinesTotal: len(lines)}
	var included []string

	for i, line := range lines {
		box := line.BoundingBox
		if !geometry.HorizontalOverlap(box, rect) || !geometry.VerticalOverlap(box, rect) {
			continue
		}
		words := strings.Fields(line.Text)
		if len(words) == 0 {
			continue
		}
		res.LinesKept++

		charWidth := box.Width / float64(max(utf8.RuneCountInString(line.Text), 1))
		pos := box.Left
		for _, word := range words {
			width := float64(utf8.RuneCountInString(word)) * charWidth
			span := geometry.Rect{Left: pos, Top: box.Top, Width: width, Height: box.Height}
			center := pos + width/2

			wm := WordMatch{
				Line:         i,
				Text:         word,
				Span:         span,
				CenterInside: center >= rect.Left && center <= rect.Right(),
				Overlap:      geometry.OverlapFraction(span, rect),
			}
			if math.IsNaN(wm.Overlap) {
				wm.Overlap = 0
			}
			wm.Included = wm.CenterInside || wm.Overlap > inclusionThreshold
			if wm.Included {
				included = append(included, word)
			}
			res.Words = append(res.Words, wm)

			pos += width + charWidth
		}
	}

	res.WordsIncluded = len(included)
	res.Snippet = strings.Join(strings.Fields(strings.Join(included, " ")), " ")
	return res
}
