// Package dom provides the tree model the annotation engine works on:
// ranges over parsed golang.org/x/net/html documents, range-to-text-node
// splitting, text offset mapping, structural paths and node normalization.
//
// Text offsets throughout this package are byte offsets into a text
// node's Data. Unlike the usual content extractors, text collection here
// is verbatim: no whitespace trimming or joining, because anchoring
// depends on offsets into the exact stored character data.
package dom

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// OwnerElement resolves n to its owning element: n itself when it is an
// element, otherwise the nearest element ancestor. Returns nil when no
// element encloses n.
func OwnerElement(n *html.Node) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode {
			return n
		}
	}
	return nil
}

// Root returns the topmost ancestor of n (the document node for nodes
// attached to a parsed document).
func Root(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// Contains reports whether n is container or a descendant of container,
// mirroring Node.contains.
func Contains(container, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == container {
			return true
		}
	}
	return false
}

// Connected reports whether n is still attached under doc. Host pages
// mutate concurrently, so mutation paths re-check before touching a node.
func Connected(doc, n *html.Node) bool {
	return doc != nil && n != nil && Contains(doc, n)
}

// Body returns the body element of a parsed document, nil if absent.
func Body(doc *html.Node) *html.Node {
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if doc != nil {
		walk(doc)
	}
	return body
}

// GetAttr returns the value of the named attribute, "" if unset.
func GetAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// HasAttr reports whether the named attribute is present.
func HasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets or replaces the named attribute.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// FindByAttr returns all elements under root carrying the attribute,
// in document order. An empty val matches any value.
func FindByAttr(root *html.Node, key, val string) []*html.Node {
	var matches []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == key && (val == "" || attr.Val == val) {
					matches = append(matches, n)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return matches
}

// Elements returns all element nodes under root in document order,
// including root itself when it is an element.
func Elements(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// Render serializes a node subtree back to HTML.
func Render(n *html.Node) string {
	var buf bytes.Buffer
	html.Render(&buf, n)
	return buf.String()
}

// countChildNodes counts all child nodes, text and comments included.
// Element-container range offsets index into this count.
func countChildNodes(n *html.Node) int {
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		i++
	}
	return i
}
