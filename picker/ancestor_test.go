package picker

import (
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/dommark/dom"
)

func TestCommonAncestor(t *testing.T) {
	f := newFixture(t)
	tester := NewTester(Options{})
	body := dom.Body(f.doc)

	if got := tester.CommonAncestor(f.doc, nil); got != body {
		t.Errorf("empty set: got %v, want body", ids([]*html.Node{got}))
	}
	leaf := f.node(t, "leaf")
	if got := tester.CommonAncestor(f.doc, []*html.Node{leaf}); got != leaf {
		t.Errorf("single element: got %v, want leaf", ids([]*html.Node{got}))
	}

	cases := []struct {
		a, b, want string
	}{
		{"leaf", "item1", "card"},
		{"para", "list", "card"},
		{"item1", "item2", "list"},
		{"leaf", "dommark-console", "wrapper"},
	}
	for _, c := range cases {
		got := tester.CommonAncestor(f.doc, []*html.Node{f.node(t, c.a), f.node(t, c.b)})
		if got != f.node(t, c.want) {
			t.Errorf("CommonAncestor(%s, %s): got %v, want %s",
				c.a, c.b, ids([]*html.Node{got}), c.want)
		}
	}
}

func TestCommonAncestor_ContainerInSet(t *testing.T) {
	f := newFixture(t)
	tester := NewTester(Options{})

	// When one element contains the other, the container itself is the
	// answer, not its parent.
	got := tester.CommonAncestor(f.doc, []*html.Node{f.node(t, "list"), f.node(t, "item2")})
	if got != f.node(t, "list") {
		t.Errorf("got %v, want list", ids([]*html.Node{got}))
	}
}

func TestCommonAncestor_DetachedFallsBackToBody(t *testing.T) {
	f := newFixture(t)
	tester := NewTester(Options{})

	detached := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	got := tester.CommonAncestor(f.doc, []*html.Node{f.node(t, "leaf"), detached})
	if got != dom.Body(f.doc) {
		t.Errorf("got %v, want body", ids([]*html.Node{got}))
	}
}

func TestReasonable(t *testing.T) {
	f := newFixture(t)
	tester := NewTester(Options{})

	cases := []struct {
		id   string
		want bool
		why  string
	}{
		{"card", true, "depth 3 with a modest box"},
		{"para", true, "depth 4 with a modest box"},
		{"wrapper", false, "depth 1 is too shallow"},
		{"panel", false, "depth 2 is too shallow"},
		{"wide", false, "box covers 90% of viewport width"},
	}
	for _, c := range cases {
		if got := tester.Reasonable(f.index, f.node(t, c.id)); got != c.want {
			t.Errorf("Reasonable(%s): got %v, want %v (%s)", c.id, got, c.want, c.why)
		}
	}

	if tester.Reasonable(f.index, dom.Body(f.doc)) {
		t.Error("body must never be a reasonable ancestor")
	}
	if tester.Reasonable(f.index, nil) {
		t.Error("nil must never be a reasonable ancestor")
	}
}

func TestReasonable_NoBoxPassesOnDepthAlone(t *testing.T) {
	f := newFixture(t)
	tester := NewTester(Options{})

	// An empty index has no box for anyone: the size check is skipped
	// and depth alone decides.
	empty := NewBoxIndex(Rect{W: 1000, H: 700})
	if !tester.Reasonable(empty, f.node(t, "card")) {
		t.Error("depth-3 element without a box should pass")
	}
	if tester.Reasonable(empty, f.node(t, "panel")) {
		t.Error("depth-2 element should fail regardless of box")
	}
}

func TestReasonable_DepthCeiling(t *testing.T) {
	tester := NewTester(Options{})
	index := NewBoxIndex(Rect{W: 1000, H: 700})

	// Synthetic chain: body > div x 11.
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	cur := body
	var at10, at11 *html.Node
	for i := 1; i <= 11; i++ {
		child := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
		cur.AppendChild(child)
		cur = child
		switch i {
		case 10:
			at10 = child
		case 11:
			at11 = child
		}
	}

	if !tester.Reasonable(index, at10) {
		t.Error("depth 10 should still be reasonable")
	}
	if tester.Reasonable(index, at11) {
		t.Error("depth 11 should exceed the ceiling")
	}
}

func TestDedupeByContainment(t *testing.T) {
	f := newFixture(t)

	para := f.node(t, "para")
	leaf := f.node(t, "leaf")
	item1 := f.node(t, "item1")
	item2 := f.node(t, "item2")

	got := DedupeByContainment([]*html.Node{para, leaf})
	if len(got) != 1 || got[0] != para {
		t.Errorf("parent/child: got %v, want [para]", ids(got))
	}

	got = DedupeByContainment([]*html.Node{leaf, para})
	if len(got) != 1 || got[0] != para {
		t.Errorf("child/parent: got %v, want [para]", ids(got))
	}

	got = DedupeByContainment([]*html.Node{item1, item2})
	if len(got) != 2 || got[0] != item1 || got[1] != item2 {
		t.Errorf("siblings: got %v, want [item1 item2]", ids(got))
	}

	if got = DedupeByContainment(nil); len(got) != 0 {
		t.Errorf("empty input: got %v, want empty", ids(got))
	}
}
