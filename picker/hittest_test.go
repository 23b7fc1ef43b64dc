package picker

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/dommark/dom"
)

const fixtureHTML = `<html><body>
<div id="wrapper">
<section id="panel">
<div id="card">
<p id="para"><span id="leaf">word</span></p>
<ul id="list"><li id="item1">a</li><li id="item2">b</li></ul>
<div id="wide">banner</div>
</div>
</section>
<div id="dommark-console" class="dommark-ui">ui</div>
<div id="ghost" style="display:none">hidden</div>
<mark data-dommark-id="ann_m1">hl</mark>
</div>
</body></html>`

// fixture parses fixtureHTML and attaches a hand-built layout so hit
// testing runs without a live browser.
type fixture struct {
	doc   *html.Node
	index *BoxIndex
	byID  map[string]*html.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(fixtureHTML))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	f := &fixture{
		doc:   doc,
		index: NewBoxIndex(Rect{W: 1000, H: 700}),
		byID:  make(map[string]*html.Node),
	}
	for _, e := range dom.Elements(doc) {
		if id := dom.GetAttr(e, "id"); id != "" {
			f.byID[id] = e
		}
		if e.DataAtom == atom.Mark {
			f.byID["mark"] = e
		}
	}
	boxes := map[string]Rect{
		"wrapper": {X: 0, Y: 0, W: 1000, H: 680},
		"panel":   {X: 100, Y: 100, W: 400, H: 300},
		"card":    {X: 110, Y: 110, W: 300, H: 200},
		"para":    {X: 120, Y: 120, W: 260, H: 60},
		"leaf":    {X: 125, Y: 125, W: 80, H: 20},
		"list":    {X: 120, Y: 200, W: 260, H: 80},
		"item1":   {X: 120, Y: 200, W: 260, H: 20},
		"item2":   {X: 120, Y: 224, W: 260, H: 20},
		"wide":    {X: 0, Y: 600, W: 900, H: 50},

		"dommark-console": {X: 600, Y: 10, W: 300, H: 100},
		"ghost":           {X: 0, Y: 0, W: 50, H: 50},
		"mark":            {X: 700, Y: 300, W: 60, H: 20},
	}
	for id, box := range boxes {
		e, ok := f.byID[id]
		if !ok {
			t.Fatalf("fixture element %q not found", id)
		}
		f.index.SetBox(e, box)
	}
	return f
}

func (f *fixture) node(t *testing.T, id string) *html.Node {
	t.Helper()
	e, ok := f.byID[id]
	if !ok {
		t.Fatalf("no fixture element %q", id)
	}
	return e
}

func ids(nodes []*html.Node) []string {
	var out []string
	for _, n := range nodes {
		if n == nil {
			out = append(out, "<nil>")
			continue
		}
		if id := dom.GetAttr(n, "id"); id != "" {
			out = append(out, id)
		} else {
			out = append(out, n.Data)
		}
	}
	return out
}

func TestPointDetect_PicksDeepestAtCenter(t *testing.T) {
	f := newFixture(t)
	tester := NewTester(Options{})

	// Tiny drag centered inside the leaf span.
	sel := SelectionRect{StartX: 165, StartY: 135, EndX: 166, EndY: 136}
	got := tester.PointDetect(f.doc, f.index, sel)
	if got != f.node(t, "leaf") {
		t.Errorf("PointDetect: got %v, want leaf", ids([]*html.Node{got}))
	}
}

func TestPointDetect_ToleranceRejectsLargeCandidate(t *testing.T) {
	f := newFixture(t)
	tester := NewTester(Options{})

	// (50, 650) lands on the banner, whose 900px-wide box cannot fit
	// inside the click expanded by the tolerance band.
	sel := SelectionRect{StartX: 50, StartY: 650, EndX: 50, EndY: 650}
	if got := tester.PointDetect(f.doc, f.index, sel); got != nil {
		t.Errorf("PointDetect: got %v, want nil", ids([]*html.Node{got}))
	}
}

func TestPointDetect_SkipsOwnUI(t *testing.T) {
	f := newFixture(t)
	tester := NewTester(Options{})

	// Center of the console panel. The console is skipped, and the
	// remaining candidate (wrapper) fails the tolerance check.
	sel := SelectionRect{StartX: 750, StartY: 60, EndX: 750, EndY: 60}
	if got := tester.PointDetect(f.doc, f.index, sel); got != nil {
		t.Errorf("PointDetect over console: got %v, want nil", ids([]*html.Node{got}))
	}
}

func TestPointDetect_OutsideEverything(t *testing.T) {
	f := newFixture(t)
	tester := NewTester(Options{})

	sel := SelectionRect{StartX: 950, StartY: 690, EndX: 950, EndY: 690}
	if got := tester.PointDetect(f.doc, f.index, sel); got != nil {
		t.Errorf("PointDetect outside all boxes: got %v, want nil", ids([]*html.Node{got}))
	}
}

func TestRectDetect_LeavesBeatContainers(t *testing.T) {
	f := newFixture(t)
	tester := NewTester(Options{})

	// Selection hugging the list: the list and its items are fully
	// contained, while card/panel/wrapper overlap too little and the
	// area cap would reject them anyway.
	sel := SelectionRect{StartX: 118, StartY: 198, EndX: 382, EndY: 284}
	got := tester.RectDetect(f.doc, f.index, sel)
	want := []string{"item1", "item2", "list"}
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("RectDetect: got %v, want %v", gotIDs, want)
	}
	for i, id := range want {
		if gotIDs[i] != id {
			t.Errorf("RectDetect[%d]: got %q, want %q (full: %v)", i, gotIDs[i], id, gotIDs)
		}
	}

	// Downstream shaping: containment dedup collapses the items into
	// the list, and the common ancestor of one node is itself.
	kept := DedupeByContainment(got)
	if len(kept) != 1 || kept[0] != f.node(t, "list") {
		t.Errorf("DedupeByContainment: got %v, want [list]", ids(kept))
	}
	if anc := tester.CommonAncestor(f.doc, kept); anc != f.node(t, "list") {
		t.Errorf("CommonAncestor: got %v, want list", ids([]*html.Node{anc}))
	}
}

func TestRectDetect_OverlapThreshold(t *testing.T) {
	f := newFixture(t)
	tester := NewTester(Options{})

	contains := func(nodes []*html.Node, target *html.Node) bool {
		for _, n := range nodes {
			if n == target {
				return true
			}
		}
		return false
	}
	card := f.node(t, "card")

	// Exactly half of the card is covered: ratio 0.5 qualifies.
	sel := SelectionRect{StartX: 110, StartY: 110, EndX: 410, EndY: 210}
	if !contains(tester.RectDetect(f.doc, f.index, sel), card) {
		t.Error("card at overlap ratio 0.5 should be selected")
	}

	// Slightly less than half: below the threshold.
	sel = SelectionRect{StartX: 110, StartY: 110, EndX: 410, EndY: 205}
	if contains(tester.RectDetect(f.doc, f.index, sel), card) {
		t.Error("card below overlap ratio 0.5 should not be selected")
	}
}

func TestRectDetect_SkipsHiddenAndOwnUI(t *testing.T) {
	f := newFixture(t)
	tester := NewTester(Options{})

	sel := SelectionRect{StartX: 0, StartY: 0, EndX: 1000, EndY: 700}
	got := tester.RectDetect(f.doc, f.index, sel)
	wrapperSeen := false
	for _, n := range got {
		switch n {
		case f.node(t, "ghost"):
			t.Error("RectDetect returned a display:none element")
		case f.node(t, "dommark-console"):
			t.Error("RectDetect returned the tool's own console")
		case f.node(t, "mark"):
			t.Error("RectDetect returned a highlight marker")
		case f.node(t, "wrapper"):
			wrapperSeen = true
		}
	}
	if !wrapperSeen {
		t.Error("RectDetect over the whole page should include the wrapper")
	}
}

func TestRectDetect_EmptySelection(t *testing.T) {
	f := newFixture(t)
	tester := NewTester(Options{})

	sel := SelectionRect{StartX: 300, StartY: 300, EndX: 300, EndY: 300}
	if got := tester.RectDetect(f.doc, f.index, sel); got != nil {
		t.Errorf("RectDetect of a zero-area selection: got %v, want nil", ids(got))
	}
}

func TestHoverDetect(t *testing.T) {
	f := newFixture(t)
	tester := NewTester(Options{})

	if got := tester.HoverDetect(f.doc, f.index, 165, 135); got != f.node(t, "leaf") {
		t.Errorf("HoverDetect over leaf: got %v", ids([]*html.Node{got}))
	}

	// The console is transparent to hover; the wrapper under it wins.
	if got := tester.HoverDetect(f.doc, f.index, 750, 60); got != f.node(t, "wrapper") {
		t.Errorf("HoverDetect over console: got %v, want wrapper", ids([]*html.Node{got}))
	}

	// Markers are part of the tool, not the page.
	if got := tester.HoverDetect(f.doc, f.index, 710, 305); got != f.node(t, "wrapper") {
		t.Errorf("HoverDetect over marker: got %v, want wrapper", ids([]*html.Node{got}))
	}

	if got := tester.HoverDetect(f.doc, f.index, 950, 690); got != nil {
		t.Errorf("HoverDetect outside all boxes: got %v, want nil", ids([]*html.Node{got}))
	}
}

func TestDepth(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		id   string
		want int
	}{
		{"wrapper", 1},
		{"panel", 2},
		{"card", 3},
		{"para", 4},
		{"leaf", 5},
	}
	for _, c := range cases {
		if got := Depth(f.node(t, c.id)); got != c.want {
			t.Errorf("Depth(%s): got %d, want %d", c.id, got, c.want)
		}
	}
	if got := Depth(dom.Body(f.doc)); got != 0 {
		t.Errorf("Depth(body): got %d, want 0", got)
	}
}
