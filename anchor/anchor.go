// Package anchor turns ranges into durable location descriptors and
// re-anchors stored descriptors against a current, possibly mutated
// document.
//
// A descriptor is deliberately dual: a structural path (fast, precise,
// brittle under DOM churn) plus a content quote with bounded context
// (slow, survives restructuring). Resolution tries structure first and
// degrades through content matching, so an annotation survives as long
// as its text does.
package anchor

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/hazyhaar/dommark/dom"
)

// ContextChars bounds the prefix/suffix context captured around the
// quote. Context comes from the boundary containers' own text only, not
// the full document, which caps the cost; very short containers yield
// short or empty context and that is accepted.
const ContextChars = 32

// ErrNoText is returned when a range selects no text.
var ErrNoText = errors.New("anchor: range selects no text")

// Context is the content half of a descriptor.
type Context struct {
	Exact  string `json:"exact"`
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
}

// Descriptor locates a selection by structure and by content.
type Descriptor struct {
	Path    string  `json:"path"`
	Context Context `json:"context"`
}

// Build derives a descriptor from a range. The path is the start
// container's owning element (text nodes resolve to their parent), so a
// path always addresses an element. Prefix and suffix are clipped
// rune-safe to ContextChars.
func Build(r *dom.Range) (Descriptor, error) {
	if r == nil {
		return Descriptor{}, ErrNoText
	}
	exact := r.Text()
	if exact == "" {
		return Descriptor{}, ErrNoText
	}
	path := dom.PathOf(r.StartContainer)
	if path == "" {
		return Descriptor{}, errors.New("anchor: start container has no owning element")
	}
	return Descriptor{
		Path: path,
		Context: Context{
			Exact:  exact,
			Prefix: tailRunes(ownTextBefore(r.StartContainer, r.StartOffset), ContextChars),
			Suffix: headRunes(ownTextAfter(r.EndContainer, r.EndOffset), ContextChars),
		},
	}, nil
}

// ownTextBefore returns the container's own text preceding the boundary
// offset. For element containers that is the text of the children in
// front of the offset.
func ownTextBefore(n *html.Node, offset int) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		if offset > len(n.Data) {
			offset = len(n.Data)
		}
		if offset < 0 {
			offset = 0
		}
		return n.Data[:offset]
	}
	var sb strings.Builder
	i := 0
	for c := n.FirstChild; c != nil && i < offset; c = c.NextSibling {
		sb.WriteString(dom.TextContent(c))
		i++
	}
	return sb.String()
}

// ownTextAfter returns the container's own text following the boundary
// offset.
func ownTextAfter(n *html.Node, offset int) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		if offset > len(n.Data) {
			offset = len(n.Data)
		}
		if offset < 0 {
			offset = 0
		}
		return n.Data[offset:]
	}
	var sb strings.Builder
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if i >= offset {
			sb.WriteString(dom.TextContent(c))
		}
		i++
	}
	return sb.String()
}

// tailRunes returns the last n runes of s without splitting sequences.
func tailRunes(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	count := 0
	for i := len(s); i > 0; {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
		count++
		if count == n {
			return s[i:]
		}
	}
	return s
}

// headRunes returns the first n runes of s.
func headRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
