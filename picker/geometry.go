// Package picker is the geometric element-selection engine: point and
// rectangle hit-testing over a laid-out document, common-ancestor
// resolution and containment-based deduplication.
//
// The picker never computes layout itself. Geometry arrives through the
// Layout interface, fed either by live-page sampling (bridge) or by
// hand-built indexes in tests, and all detection runs on the parsed
// tree against those boxes.
package picker

// Rect is an axis-aligned box in viewport coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns the rect's area, 0 for degenerate rects.
func (r Rect) Area() float64 {
	if r.Empty() {
		return 0
	}
	return r.W * r.H
}

// Empty reports whether the rect has no extent.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Center returns the rect's center point.
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// ContainsPoint reports whether (x, y) lies inside the rect.
func (r Rect) ContainsPoint(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// ContainsRect reports whether o lies entirely inside r.
func (r Rect) ContainsRect(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.X+o.W <= r.X+r.W && o.Y+o.H <= r.Y+r.H
}

// Expand grows the rect by d in every direction.
func (r Rect) Expand(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, W: r.W + 2*d, H: r.H + 2*d}
}

// Intersect returns the overlap of two rects, an empty rect when they
// do not touch.
func Intersect(a, b Rect) Rect {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.W, b.X+b.W)
	y2 := min(a.Y+a.H, b.Y+b.H)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// SelectionRect is a raw drag gesture: two corner points in any order.
type SelectionRect struct {
	StartX float64 `json:"start_x"`
	StartY float64 `json:"start_y"`
	EndX   float64 `json:"end_x"`
	EndY   float64 `json:"end_y"`
}

// Normalize orders the corners into a proper rect.
func (s SelectionRect) Normalize() Rect {
	x1, x2 := min(s.StartX, s.EndX), max(s.StartX, s.EndX)
	y1, y2 := min(s.StartY, s.EndY), max(s.StartY, s.EndY)
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}
