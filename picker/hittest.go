package picker

import (
	"log/slog"
	"sort"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/dommark/dom"
	"github.com/hazyhaar/dommark/highlight"
)

// DefaultSelfSelectors identify the tool's own injected UI. Anything
// matching one of these, or sitting under something that does, is
// invisible to hit-testing.
var DefaultSelfSelectors = []string{
	"[data-dommark-ui]",
	"#dommark-console",
	".dommark-ui",
}

// Options tunes detection. The numeric values are empirically chosen
// heuristics, not correctness guarantees; override per deployment.
type Options struct {
	// TolerancePx expands the selection rect when validating a point
	// candidate's bounding box. Default 50.
	TolerancePx float64
	// MinOverlap is the intersection/element-area ratio a partially
	// covered element needs for rectangle inclusion. Default 0.5.
	MinOverlap float64
	// AreaCap excludes elements larger than this multiple of the
	// selection area, which keeps big ancestor containers from
	// swallowing the selection. Default 3.
	AreaCap float64
	// MinDepth and MaxDepth bound reasonable ancestor depth, counted
	// from body. Defaults 3 and 10.
	MinDepth int
	MaxDepth int
	// MaxViewportRatio rejects ancestors whose box covers more than
	// this share of viewport width or height. Default 0.8.
	MaxViewportRatio float64
	// SelfSelectors override DefaultSelfSelectors.
	SelfSelectors []string

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.TolerancePx == 0 {
		o.TolerancePx = 50
	}
	if o.MinOverlap == 0 {
		o.MinOverlap = 0.5
	}
	if o.AreaCap == 0 {
		o.AreaCap = 3
	}
	if o.MinDepth == 0 {
		o.MinDepth = 3
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = 10
	}
	if o.MaxViewportRatio == 0 {
		o.MaxViewportRatio = 0.8
	}
	if o.SelfSelectors == nil {
		o.SelfSelectors = DefaultSelfSelectors
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Tester runs point, rectangle and hover detection.
type Tester struct {
	opts   Options
	self   []dom.Selector
	logger *slog.Logger
}

// NewTester builds a Tester.
func NewTester(opts Options) *Tester {
	opts.defaults()
	return &Tester{
		opts:   opts,
		self:   dom.ParseSelectors(opts.SelfSelectors),
		logger: opts.Logger,
	}
}

// isSelfOwned reports whether n belongs to the tool's own markup: its
// injected UI by selector ancestry, or a highlight marker.
func (t *Tester) isSelfOwned(n *html.Node) bool {
	if dom.Closest(n, t.self) != nil {
		return true
	}
	for m := n; m != nil; m = m.Parent {
		if highlight.IsMarker(m) {
			return true
		}
	}
	return false
}

// PointDetect resolves a click-sized selection to the topmost element
// at its center, excluding the tool's own UI, then validates that the
// candidate's box lies within the selection expanded by the tolerance.
// Returns nil when nothing qualifies.
func (t *Tester) PointDetect(doc *html.Node, layout Layout, sel SelectionRect) *html.Node {
	rect := sel.Normalize()
	cx, cy := rect.Center()

	var cand *html.Node
	for _, e := range t.stackAt(doc, layout, cx, cy) {
		if t.isSelfOwned(e) {
			continue
		}
		cand = e
		break
	}
	if cand == nil {
		return nil
	}
	box, _ := layout.Box(cand)
	if !rect.Expand(t.opts.TolerancePx).ContainsRect(box) {
		t.logger.Debug("picker: point candidate exceeds tolerance", "tag", cand.Data)
		return nil
	}
	return cand
}

// RectDetect returns every element meaningfully covered by the
// selection: invisible and self-owned elements are skipped; an element
// qualifies when fully contained, or when the selection covers at least
// MinOverlap of it and the element is no larger than AreaCap times the
// selection. Results are ordered leaves-first (descending DOM depth) to
// bias toward specific rather than generic containers.
func (t *Tester) RectDetect(doc *html.Node, layout Layout, sel SelectionRect) []*html.Node {
	rect := sel.Normalize()
	selArea := rect.Area()
	if selArea == 0 {
		return nil
	}

	type hit struct {
		n     *html.Node
		depth int
	}
	var hits []hit
	for _, e := range dom.Elements(doc) {
		if !visible(layout, e) || t.isSelfOwned(e) {
			continue
		}
		box, _ := layout.Box(e)
		if rect.ContainsRect(box) {
			hits = append(hits, hit{e, Depth(e)})
			continue
		}
		overlap := Intersect(rect, box).Area() / box.Area()
		if overlap >= t.opts.MinOverlap && box.Area() <= t.opts.AreaCap*selArea {
			hits = append(hits, hit{e, Depth(e)})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].depth > hits[j].depth
	})
	out := make([]*html.Node, len(hits))
	for i, h := range hits {
		out[i] = h.n
	}
	return out
}

// HoverDetect returns the most specific visible element under the
// cursor, skipping the tool's own layers and the document root/body
// transparently. Nil when only skipped layers sit there.
func (t *Tester) HoverDetect(doc *html.Node, layout Layout, x, y float64) *html.Node {
	for _, e := range t.stackAt(doc, layout, x, y) {
		if t.isSelfOwned(e) {
			continue
		}
		if e.DataAtom == atom.Body || e.DataAtom == atom.Html {
			continue
		}
		return e
	}
	return nil
}

// stackAt builds the z-order stack of visible elements containing the
// point, topmost first. Without live stacking-context data the deepest
// element wins, with later document order breaking ties, which matches
// painting order for untransformed content.
func (t *Tester) stackAt(doc *html.Node, layout Layout, x, y float64) []*html.Node {
	type hit struct {
		n            *html.Node
		depth, order int
	}
	var hits []hit
	for i, e := range dom.Elements(doc) {
		if !visible(layout, e) {
			continue
		}
		box, _ := layout.Box(e)
		if box.ContainsPoint(x, y) {
			hits = append(hits, hit{e, Depth(e), i})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].depth != hits[j].depth {
			return hits[i].depth > hits[j].depth
		}
		return hits[i].order > hits[j].order
	})
	out := make([]*html.Node, len(hits))
	for i, h := range hits {
		out[i] = h.n
	}
	return out
}

// Depth is the ancestor-chain length from n to the body element: body
// itself is 0, its children 1. Nodes outside body count their whole
// chain.
func Depth(n *html.Node) int {
	d := 0
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && cur.DataAtom == atom.Body {
			return d
		}
		d++
	}
	return d
}
