package dom

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

var testHTML = `<!DOCTYPE html>
<html>
<head><title>Fixture</title></head>
<body>
<article>
<h1>Title</h1>
<p id="first"><b>Hello</b> World</p>
<p id="second">one two three</p>
<div id="multi"><p>alpha</p><p>beta</p></div>
</article>
</body>
</html>`

func mustParse(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

// findText returns the first text node whose data contains substr.
func findText(root *html.Node, substr string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.TextNode && strings.Contains(n.Data, substr) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

func findByID(t *testing.T, doc *html.Node, id string) *html.Node {
	t.Helper()
	nodes := FindByAttr(doc, "id", id)
	if len(nodes) != 1 {
		t.Fatalf("findByID %q: got %d nodes", id, len(nodes))
	}
	return nodes[0]
}

func TestSplit_CrossElement(t *testing.T) {
	doc := mustParse(t, testHTML)
	hello := findText(doc, "Hello")
	world := findText(doc, " World")

	r, err := NewRange(hello, 0, world, len(" World"))
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}

	slices := Split(r)
	if len(slices) != 2 {
		t.Fatalf("slices: got %d, want 2", len(slices))
	}
	var sb strings.Builder
	for _, s := range slices {
		sb.WriteString(s.Text())
	}
	if got := sb.String(); got != "Hello World" {
		t.Errorf("concatenated text: got %q, want %q", got, "Hello World")
	}
	if got := r.Text(); got != "Hello World" {
		t.Errorf("Range.Text: got %q, want %q", got, "Hello World")
	}
}

func TestSplit_ClipsWithinSingleNode(t *testing.T) {
	doc := mustParse(t, testHTML)
	text := findText(doc, "one two three")

	r, err := NewRange(text, 4, text, 7)
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}
	slices := Split(r)
	if len(slices) != 1 {
		t.Fatalf("slices: got %d, want 1", len(slices))
	}
	if got := slices[0].Text(); got != "two" {
		t.Errorf("slice text: got %q, want %q", got, "two")
	}
	if slices[0].Start != 4 || slices[0].End != 7 {
		t.Errorf("slice offsets: got [%d,%d), want [4,7)", slices[0].Start, slices[0].End)
	}
}

func TestSplit_ElementContainers(t *testing.T) {
	doc := mustParse(t, testHTML)
	multi := findByID(t, doc, "multi")

	r, err := NewRange(multi, 0, multi, 2)
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}
	slices := Split(r)
	if len(slices) != 2 {
		t.Fatalf("slices: got %d, want 2", len(slices))
	}
	if got := r.Text(); got != "alphabeta" {
		t.Errorf("Range.Text: got %q, want %q", got, "alphabeta")
	}
}

func TestSplit_Collapsed(t *testing.T) {
	doc := mustParse(t, testHTML)
	text := findText(doc, "one two three")

	r, err := NewRange(text, 3, text, 3)
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}
	if !r.IsCollapsed() {
		t.Error("range should be collapsed")
	}
	if slices := Split(r); slices != nil {
		t.Errorf("collapsed split: got %d slices, want none", len(slices))
	}
	if got := r.Text(); got != "" {
		t.Errorf("collapsed text: got %q, want empty", got)
	}
}

func TestSplit_FragmentCoverage(t *testing.T) {
	doc := mustParse(t, testHTML)
	title := findText(doc, "Title")
	beta := findText(doc, "beta")

	// Spans the h1, both paragraphs and the nested div.
	r, err := NewRange(title, 2, beta, 2)
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}
	slices := Split(r)
	if len(slices) == 0 {
		t.Fatal("expected slices across multiple nodes")
	}
	var sb strings.Builder
	for i, s := range slices {
		if s.Start == s.End {
			t.Errorf("slice %d is empty", i)
		}
		sb.WriteString(s.Text())
	}
	if got := sb.String(); got != r.Text() {
		t.Errorf("coverage mismatch:\nslices: %q\nrange:  %q", got, r.Text())
	}
}

func TestNewRange_Inverted(t *testing.T) {
	doc := mustParse(t, testHTML)
	text := findText(doc, "one two three")

	if _, err := NewRange(text, 7, text, 4); !errors.Is(err, ErrInverted) {
		t.Errorf("inverted: got %v, want ErrInverted", err)
	}
}

func TestNewRange_Bounds(t *testing.T) {
	doc := mustParse(t, testHTML)
	text := findText(doc, "one two three")

	if _, err := NewRange(text, 0, text, len(text.Data)+1); !errors.Is(err, ErrBounds) {
		t.Errorf("past end: got %v, want ErrBounds", err)
	}
	if _, err := NewRange(text, -1, text, 2); !errors.Is(err, ErrBounds) {
		t.Errorf("negative: got %v, want ErrBounds", err)
	}
}

func TestNewRange_SeparateDocuments(t *testing.T) {
	docA := mustParse(t, testHTML)
	docB := mustParse(t, testHTML)
	a := findText(docA, "Hello")
	b := findText(docB, "World")

	if _, err := NewRange(a, 0, b, 1); !errors.Is(err, ErrDetached) {
		t.Errorf("cross-document: got %v, want ErrDetached", err)
	}
}

func TestLocate(t *testing.T) {
	doc := mustParse(t, `<html><body><p>ab<b>cd</b>ef</p></html>`)
	p := findText(doc, "ab").Parent

	node, local, ok := Locate(p, 2)
	if !ok || node.Data != "cd" || local != 0 {
		t.Errorf("Locate(2): got (%q, %d, %v), want (cd, 0, true)", textData(node), local, ok)
	}
	node, local, ok = Locate(p, 3)
	if !ok || node.Data != "cd" || local != 1 {
		t.Errorf("Locate(3): got (%q, %d, %v), want (cd, 1, true)", textData(node), local, ok)
	}
	// End boundary maps to the tail of the last text node.
	node, local, ok = Locate(p, 6)
	if !ok || node.Data != "ef" || local != 2 {
		t.Errorf("Locate(6): got (%q, %d, %v), want (ef, 2, true)", textData(node), local, ok)
	}
	if _, _, ok := Locate(p, 7); ok {
		t.Error("Locate(7) past end should fail")
	}
}

func textData(n *html.Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.Data
}

func TestTextContent_Verbatim(t *testing.T) {
	doc := mustParse(t, `<html><body><p>  spaced  text  </p></body></html>`)
	p := findText(doc, "spaced").Parent
	if got := TextContent(p); got != "  spaced  text  " {
		t.Errorf("TextContent: got %q, want verbatim whitespace", got)
	}
	if got := TextLength(p); got != len("  spaced  text  ") {
		t.Errorf("TextLength: got %d", got)
	}
}

func TestCommonAncestor(t *testing.T) {
	doc := mustParse(t, testHTML)
	hello := findText(doc, "Hello")
	beta := findText(doc, "beta")

	r, err := NewRange(hello, 0, beta, 1)
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}
	ca := r.CommonAncestor()
	if ca == nil || ca.Type != html.ElementNode || ca.Data != "article" {
		t.Errorf("common ancestor: got %v, want article element", ca)
	}
}
