package geometry

import "testing"

func TestNormalize_NonNegativeRegardlessOfOrder(t *testing.T) {
	cases := [][4]float64{
		{0, 10, 0, 5},
		{10, 0, 5, 0},
		{-3, 4, 7, -2},
		{4, 4, 9, 9},
	}
	for _, c := range cases {
		r := Normalize(c[0], c[1], c[2], c[3])
		if r.Width < 0 || r.Height < 0 {
			t.Errorf("Normalize(%v) produced negative size: %+v", c, r)
		}
		swapped := Normalize(c[1], c[0], c[3], c[2])
		if r != swapped {
			t.Errorf("Normalize(%v) = %+v, swapped operands gave %+v", c, r, swapped)
		}
	}
}

func TestNormalize_Values(t *testing.T) {
	r := Normalize(30, 10, 40, 25)
	want := Rect{Left: 10, Top: 25, Width: 20, Height: 15}
	if r != want {
		t.Errorf("expected %+v, got %+v", want, r)
	}
	if r.Right() != 30 || r.Bottom() != 40 {
		t.Errorf("expected right/bottom 30/40, got %v/%v", r.Right(), r.Bottom())
	}
}

func TestHorizontalOverlap_TouchingEdgesDoNotCount(t *testing.T) {
	a := Rect{Left: 0, Width: 10}
	b := Rect{Left: 10, Width: 5}
	if HorizontalOverlap(a, b) {
		t.Error("touching edges should not overlap")
	}
	b.Left = 9.5
	if !HorizontalOverlap(a, b) {
		t.Error("expected overlap when boxes intersect")
	}
}

func TestVerticalOverlap(t *testing.T) {
	line := Rect{Top: 100, Height: 12}
	tests := []struct {
		name string
		ann  Rect
		want bool
	}{
		{"above", Rect{Top: 50, Height: 50}, false},
		{"below", Rect{Top: 112, Height: 10}, false},
		{"inside", Rect{Top: 104, Height: 2}, true},
		{"covering", Rect{Top: 0, Height: 500}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerticalOverlap(line, tt.ann); got != tt.want {
				t.Errorf("VerticalOverlap = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOverlapFraction(t *testing.T) {
	ann := Rect{Left: 10, Width: 10}
	tests := []struct {
		name string
		word Rect
		want float64
	}{
		{"fully inside", Rect{Left: 12, Width: 4}, 1},
		{"half", Rect{Left: 15, Width: 10}, 0.5},
		{"disjoint", Rect{Left: 30, Width: 5}, 0},
		{"zero width", Rect{Left: 12, Width: 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverlapFraction(tt.word, ann); got != tt.want {
				t.Errorf("OverlapFraction = %v, want %v", got, tt.want)
			}
		})
	}
}
