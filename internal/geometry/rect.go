// Package geometry provides the axis-aligned rectangle used for page
// annotations and text line boxes.
package geometry

import "math"

// Rect is an axis-aligned box in page-local units. Top grows downward.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Normalize builds a Rect from two arbitrary corner points. Width and
// Height are never negative; zero-area results are allowed.
func Normalize(x0, x1, y0, y1 float64) Rect {
	return Rect{
		Left:   math.Min(x0, x1),
		Top:    math.Min(y0, y1),
		Width:  math.Abs(x1 - x0),
		Height: math.Abs(y1 - y0),
	}
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// HorizontalOverlap reports whether a and b share a horizontal span.
// Touching edges do not count. Callers pass the text line as a and the
// annotation as b.
func HorizontalOverlap(a, b Rect) bool {
	return a.Left < b.Left+b.Width && a.Left+a.Width > b.Left
}

// VerticalOverlap is HorizontalOverlap on the vertical axis.
func VerticalOverlap(a, b Rect) bool {
	return a.Top < b.Top+b.Height && a.Top+a.Height > b.Top
}

// OverlapFraction returns the share of word's width that lies inside
// ann horizontally, in [0,1]. A zero-width word yields 0.
func OverlapFraction(word, ann Rect) float64 {
	if word.Width == 0 {
		return 0
	}
	overlap := math.Min(word.Right(), ann.Right()) - math.Max(word.Left, ann.Left)
	if overlap <= 0 {
		return 0
	}
	return overlap / word.Width
}
