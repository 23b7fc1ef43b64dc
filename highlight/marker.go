// Package highlight materializes and removes annotation markers in a
// parsed document. An annotation is one logical record rendered as 1..N
// marker elements sharing an id; markers are looked up by that shared id
// at removal time rather than held as direct references, so fragments
// the host page reflows or drops do not dangle.
package highlight

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/dommark/dom"
)

// The marker contract: tag + id attribute + kind-derived class is the
// complete interface the presentation layer needs to find and style
// fragments. Nothing else about markers is promised.
const (
	MarkerTag = "mark"
	IDAttr    = "data-dommark-id"

	classPrefix = "dommark-"
)

// Kind is the annotation flavor, which only affects the marker class.
type Kind string

const (
	KindHighlight Kind = "highlight"
	KindNote      Kind = "note"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindHighlight || k == KindNote
}

// Class returns the CSS class carried by markers of this kind.
func (k Kind) Class() string {
	return classPrefix + string(k)
}

// newMarker builds a detached marker element for the given annotation.
func newMarker(id string, kind Kind) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     MarkerTag,
		DataAtom: atom.Mark,
		Attr: []html.Attribute{
			{Key: IDAttr, Val: id},
			{Key: "class", Val: kind.Class()},
		},
	}
}

// IsMarker reports whether n is a dommark marker element.
func IsMarker(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == MarkerTag && dom.HasAttr(n, IDAttr)
}

// MarkerID returns the annotation id a marker carries, "" for
// non-markers.
func MarkerID(n *html.Node) string {
	if !IsMarker(n) {
		return ""
	}
	return dom.GetAttr(n, IDAttr)
}

// Markers returns all fragments sharing an annotation id, in document
// order.
func Markers(doc *html.Node, id string) []*html.Node {
	if id == "" {
		return nil
	}
	return dom.FindByAttr(doc, IDAttr, id)
}

// AllMarkers returns every dommark marker in the document.
func AllMarkers(doc *html.Node) []*html.Node {
	return dom.FindByAttr(doc, IDAttr, "")
}
