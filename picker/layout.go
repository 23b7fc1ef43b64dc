package picker

import (
	"regexp"

	"golang.org/x/net/html"

	"github.com/hazyhaar/dommark/dom"
)

// Layout supplies viewport geometry for a document's elements. Box
// returns the border box in viewport coordinates and false for elements
// that are not rendered.
type Layout interface {
	Viewport() Rect
	Box(n *html.Node) (Rect, bool)
}

// BoxIndex is the map-backed Layout. The bridge fills one from an
// in-page sampling pass; tests build them by hand.
type BoxIndex struct {
	viewport Rect
	boxes    map[*html.Node]Rect
}

// NewBoxIndex builds an empty index with the given viewport.
func NewBoxIndex(viewport Rect) *BoxIndex {
	return &BoxIndex{viewport: viewport, boxes: make(map[*html.Node]Rect)}
}

// SetBox records an element's box.
func (b *BoxIndex) SetBox(n *html.Node, r Rect) {
	b.boxes[n] = r
}

// Viewport returns the sampled viewport rect.
func (b *BoxIndex) Viewport() Rect {
	return b.viewport
}

// Box returns an element's recorded box.
func (b *BoxIndex) Box(n *html.Node) (Rect, bool) {
	r, ok := b.boxes[n]
	return r, ok
}

// Len returns the number of recorded boxes.
func (b *BoxIndex) Len() int {
	return len(b.boxes)
}

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
}

// hasHiddenStyle reports whether an element's inline style hides it.
func hasHiddenStyle(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "style" {
			for _, pat := range hiddenStylePatterns {
				if pat.MatchString(a.Val) {
					return true
				}
			}
		}
	}
	return false
}

// visible reports whether an element takes part in hit-testing: not
// style-hidden, not [hidden], and rendered with a non-degenerate box.
func visible(layout Layout, n *html.Node) bool {
	if hasHiddenStyle(n) || dom.HasAttr(n, "hidden") {
		return false
	}
	box, ok := layout.Box(n)
	return ok && !box.Empty()
}
