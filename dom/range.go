package dom

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// ErrDetached is returned when range boundaries do not share a document.
var ErrDetached = errors.New("dom: nodes not attached to a common document")

// ErrBounds is returned when a boundary offset is out of range for its
// container.
var ErrBounds = errors.New("dom: offset out of bounds")

// ErrInverted is returned when the start boundary lies after the end.
var ErrInverted = errors.New("dom: range boundaries inverted")

// Range is a contiguous selection between two boundary points in a node
// tree. Containers may be text nodes (offset indexes bytes of Data) or
// elements (offset indexes the child node list), as in a DOM Range.
type Range struct {
	StartContainer *html.Node
	StartOffset    int
	EndContainer   *html.Node
	EndOffset      int
}

// NewRange validates the boundary points and returns a Range. Collapsed
// ranges are legal; inverted ones are not.
func NewRange(start *html.Node, startOffset int, end *html.Node, endOffset int) (*Range, error) {
	if start == nil || end == nil {
		return nil, ErrDetached
	}
	root := Root(start)
	if root != Root(end) {
		return nil, ErrDetached
	}
	if err := checkOffset(start, startOffset); err != nil {
		return nil, err
	}
	if err := checkOffset(end, endOffset); err != nil {
		return nil, err
	}
	so, ok1 := textOffsetAt(root, start, startOffset)
	eo, ok2 := textOffsetAt(root, end, endOffset)
	if !ok1 || !ok2 {
		return nil, ErrDetached
	}
	if so > eo {
		return nil, ErrInverted
	}
	return &Range{
		StartContainer: start,
		StartOffset:    startOffset,
		EndContainer:   end,
		EndOffset:      endOffset,
	}, nil
}

func checkOffset(n *html.Node, offset int) error {
	if offset < 0 {
		return ErrBounds
	}
	if n.Type == html.TextNode {
		if offset > len(n.Data) {
			return ErrBounds
		}
		return nil
	}
	if offset > countChildNodes(n) {
		return ErrBounds
	}
	return nil
}

// IsCollapsed reports whether both boundaries are the same point.
func (r *Range) IsCollapsed() bool {
	return r.StartContainer == r.EndContainer && r.StartOffset == r.EndOffset
}

// CommonAncestor returns the deepest node containing both boundary
// containers, nil when they do not share a tree.
func (r *Range) CommonAncestor() *html.Node {
	seen := map[*html.Node]bool{}
	for n := r.StartContainer; n != nil; n = n.Parent {
		seen[n] = true
	}
	for n := r.EndContainer; n != nil; n = n.Parent {
		if seen[n] {
			return n
		}
	}
	return nil
}

// Text returns the selected text in document order: the concatenation of
// every text-node slice the range covers.
func (r *Range) Text() string {
	var sb strings.Builder
	for _, s := range Split(r) {
		sb.WriteString(s.Node.Data[s.Start:s.End])
	}
	return sb.String()
}
