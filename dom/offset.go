package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// walkText visits every text node under root in document order. The
// callback returns false to stop the walk early.
func walkText(root *html.Node, fn func(*html.Node) bool) {
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.TextNode {
			return fn(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	if root != nil {
		walk(root)
	}
}

// TextContent concatenates the raw data of every text node under root,
// in document order. No trimming: anchoring offsets index into this
// exact string.
func TextContent(root *html.Node) string {
	var sb strings.Builder
	walkText(root, func(t *html.Node) bool {
		sb.WriteString(t.Data)
		return true
	})
	return sb.String()
}

// TextLength returns the total byte length of text under root.
func TextLength(root *html.Node) int {
	n := 0
	walkText(root, func(t *html.Node) bool {
		n += len(t.Data)
		return true
	})
	return n
}

// Locate maps an absolute text offset under root to the text node that
// contains it plus the local offset within that node. An offset equal to
// the total text length resolves to the end of the last text node, so
// range end boundaries map cleanly. Returns false when root has no text
// or the offset is out of bounds.
func Locate(root *html.Node, offset int) (*html.Node, int, bool) {
	if offset < 0 {
		return nil, 0, false
	}
	acc := 0
	var last, found *html.Node
	local := 0
	walkText(root, func(t *html.Node) bool {
		last = t
		if offset < acc+len(t.Data) {
			found = t
			local = offset - acc
			return false
		}
		acc += len(t.Data)
		return true
	})
	if found != nil {
		return found, local, true
	}
	if last != nil && offset == acc {
		return last, len(last.Data), true
	}
	return nil, 0, false
}

// textOffsetAt returns the number of text bytes under root that precede
// the boundary point (container, offset). For a text-node container the
// offset indexes into its data; for an element container it indexes into
// the child node list, DOM style. Returns false when container does not
// sit under root.
func textOffsetAt(root, container *html.Node, offset int) (int, bool) {
	acc := 0
	ok := false
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n == container {
			if n.Type == html.TextNode {
				if offset > len(n.Data) {
					offset = len(n.Data)
				}
				acc += offset
			} else {
				i := 0
				for c := n.FirstChild; c != nil && i < offset; c = c.NextSibling {
					acc += TextLength(c)
					i++
				}
			}
			ok = true
			return false
		}
		if n.Type == html.TextNode {
			acc += len(n.Data)
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	if root != nil {
		walk(root)
	}
	if !ok {
		return 0, false
	}
	return acc, true
}
