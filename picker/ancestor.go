package picker

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/dommark/dom"
)

// CommonAncestor returns the minimal element containing every input:
// body for an empty set, the element itself for a single one, otherwise
// the nearest node on the first element's chain (self included) that
// contains all others. Falls back to body, which only happens for
// elements from different trees.
func (t *Tester) CommonAncestor(doc *html.Node, elems []*html.Node) *html.Node {
	body := dom.Body(doc)
	switch len(elems) {
	case 0:
		return body
	case 1:
		return elems[0]
	}
	for a := elems[0]; a != nil && a.Type == html.ElementNode; a = a.Parent {
		all := true
		for _, e := range elems[1:] {
			if !dom.Contains(a, e) {
				all = false
				break
			}
		}
		if all {
			return a
		}
	}
	return body
}

// Reasonable rejects ancestors that would capture far more than the
// user meant: the root and body, anything too shallow or too deep, and
// anything whose box covers most of the viewport. Elements without a
// recorded box pass the size check on depth alone.
func (t *Tester) Reasonable(layout Layout, n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if n.DataAtom == atom.Body || n.DataAtom == atom.Html {
		return false
	}
	d := Depth(n)
	if d < t.opts.MinDepth || d > t.opts.MaxDepth {
		return false
	}
	box, ok := layout.Box(n)
	if !ok {
		return true
	}
	vp := layout.Viewport()
	if vp.W > 0 && box.W/vp.W > t.opts.MaxViewportRatio {
		return false
	}
	if vp.H > 0 && box.H/vp.H > t.opts.MaxViewportRatio {
		return false
	}
	return true
}

// DedupeByContainment drops every element contained by another member
// of the set, collapsing a raw rectangle hit list to its top-level
// members. Order is preserved.
func DedupeByContainment(elems []*html.Node) []*html.Node {
	var out []*html.Node
	for _, e := range elems {
		contained := false
		for _, other := range elems {
			if other != e && dom.Contains(other, e) {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, e)
		}
	}
	return out
}
