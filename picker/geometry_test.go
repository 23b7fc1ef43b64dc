package picker

import "testing"

func TestSelectionRect_Normalize(t *testing.T) {
	s := SelectionRect{StartX: 300, StartY: 250, EndX: 100, EndY: 50}
	r := s.Normalize()
	want := Rect{X: 100, Y: 50, W: 200, H: 200}
	if r != want {
		t.Errorf("Normalize: got %+v, want %+v", r, want)
	}
}

func TestIntersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 100, H: 100}
	b := Rect{X: 50, Y: 50, W: 100, H: 100}
	got := Intersect(a, b)
	want := Rect{X: 50, Y: 50, W: 50, H: 50}
	if got != want {
		t.Errorf("Intersect: got %+v, want %+v", got, want)
	}

	c := Rect{X: 200, Y: 200, W: 10, H: 10}
	if !Intersect(a, c).Empty() {
		t.Error("disjoint rects should have empty intersection")
	}
}

func TestRect_ContainsAndArea(t *testing.T) {
	outer := Rect{X: 0, Y: 0, W: 100, H: 100}
	inner := Rect{X: 10, Y: 10, W: 20, H: 20}
	if !outer.ContainsRect(inner) {
		t.Error("outer should contain inner")
	}
	if inner.ContainsRect(outer) {
		t.Error("inner should not contain outer")
	}
	if got := inner.Area(); got != 400 {
		t.Errorf("Area: got %v, want 400", got)
	}
	if got := (Rect{}).Area(); got != 0 {
		t.Errorf("empty Area: got %v, want 0", got)
	}
	if !outer.ContainsPoint(0, 0) || !outer.ContainsPoint(100, 100) {
		t.Error("edges should count as contained")
	}
	if outer.ContainsPoint(101, 50) {
		t.Error("outside point should not be contained")
	}
}

func TestRect_Expand(t *testing.T) {
	r := Rect{X: 100, Y: 100, W: 10, H: 10}
	e := r.Expand(50)
	want := Rect{X: 50, Y: 50, W: 110, H: 110}
	if e != want {
		t.Errorf("Expand: got %+v, want %+v", e, want)
	}
}

func TestRect_Center(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: 100, H: 60}
	x, y := r.Center()
	if x != 60 || y != 50 {
		t.Errorf("Center: got (%v, %v), want (60, 50)", x, y)
	}
}
