package highlight

import (
	"errors"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/hazyhaar/dommark/dom"
	"github.com/hazyhaar/dommark/idgen"
)

// ErrEmptyRange is returned for nil or collapsed ranges. Callers treat
// it as a benign no-op, not a failure.
var ErrEmptyRange = errors.New("highlight: empty range")

// ErrNotFound is returned when no marker carries the requested id.
var ErrNotFound = errors.New("highlight: annotation id not found")

// Options configures an Engine.
type Options struct {
	// Logger receives structured engine events. Default slog.Default().
	Logger *slog.Logger

	// IDs mints annotation ids when Apply is called without one.
	// Default idgen.Annotation.
	IDs idgen.Generator
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.IDs == nil {
		o.IDs = idgen.Annotation
	}
}

// Engine wraps, unwraps and clears annotation markers.
type Engine struct {
	logger *slog.Logger
	ids    idgen.Generator
}

// New builds an Engine.
func New(opts Options) *Engine {
	opts.defaults()
	return &Engine{logger: opts.Logger, ids: opts.IDs}
}

// Applied reports the outcome of one Apply call.
type Applied struct {
	ID             string
	Kind           Kind
	Fragments      []*html.Node
	Representative *html.Node
	Skipped        int
	Degraded       bool
}

// Apply renders a range as marker fragments sharing one annotation id.
// The id is minted when empty, before any DOM mutation, so retries can
// reuse it. The range is split into per-text-node slices and each slice
// is wrapped on its own; wrapping one text node at a time means no
// element boundary is ever split or reparented, which a whole-range
// wrap cannot guarantee when the selection crosses partial element
// structure. A slice whose node went away mid-operation is skipped and
// logged; the call is best-effort and returns whatever fragments
// succeeded. Only when no slice produces a fragment does the engine
// fall back to a whole-range wrap at the start boundary, flagged
// Degraded and logged as such.
func (e *Engine) Apply(doc *html.Node, r *dom.Range, kind Kind, id string) (*Applied, error) {
	if r == nil || r.IsCollapsed() {
		return nil, ErrEmptyRange
	}
	if !kind.Valid() {
		kind = KindHighlight
	}
	if id == "" {
		id = e.ids()
	}

	res := &Applied{ID: id, Kind: kind}
	slices := dom.Split(r)
	for _, s := range slices {
		frag, ok := e.wrapSlice(doc, s, id, kind)
		if !ok {
			res.Skipped++
			continue
		}
		res.Fragments = append(res.Fragments, frag)
	}

	if len(res.Fragments) == 0 {
		frag, err := e.wrapWhole(doc, r, id, kind)
		if err != nil {
			return nil, err
		}
		res.Fragments = append(res.Fragments, frag)
		res.Degraded = true
		e.logger.Warn("highlight: degraded whole-range wrap", "id", id, "slices", len(slices), "skipped", res.Skipped)
	}

	res.Representative = res.Fragments[0]
	e.logger.Debug("highlight: applied", "id", id, "fragments", len(res.Fragments), "skipped", res.Skipped)
	return res, nil
}

// wrapSlice replaces one text node with [head text] <marker>slice</marker>
// [tail text]. Returns false when the node cannot be wrapped anymore.
func (e *Engine) wrapSlice(doc *html.Node, s dom.Slice, id string, kind Kind) (*html.Node, bool) {
	node := s.Node
	if node == nil || node.Parent == nil || !dom.Connected(doc, node) {
		e.logger.Warn("highlight: slice node detached, skipping", "id", id)
		return nil, false
	}
	if s.Start < 0 || s.End > len(node.Data) || s.Start >= s.End {
		e.logger.Warn("highlight: slice offsets invalid, skipping", "id", id, "start", s.Start, "end", s.End)
		return nil, false
	}

	parent := node.Parent
	head := node.Data[:s.Start]
	mid := node.Data[s.Start:s.End]
	tail := node.Data[s.End:]

	marker := newMarker(id, kind)
	marker.AppendChild(&html.Node{Type: html.TextNode, Data: mid})

	if head != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: head}, node)
	}
	parent.InsertBefore(marker, node)
	if tail != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: tail}, node)
	}
	parent.RemoveChild(node)
	return marker, true
}

// wrapWhole is the last-resort fallback when splitting produced no
// wrappable text: a marker inserted at the range's start boundary so
// the annotation id still exists in the tree. No text is moved, which
// sidesteps the subtree-reparenting hazard of a naive whole-range wrap.
func (e *Engine) wrapWhole(doc *html.Node, r *dom.Range, id string, kind Kind) (*html.Node, error) {
	start := r.StartContainer
	if start == nil || !dom.Connected(doc, start) {
		return nil, ErrEmptyRange
	}
	marker := newMarker(id, kind)

	if start.Type == html.TextNode {
		parent := start.Parent
		if parent == nil {
			return nil, ErrEmptyRange
		}
		off := r.StartOffset
		if off > len(start.Data) {
			off = len(start.Data)
		}
		head, tail := start.Data[:off], start.Data[off:]
		if head != "" {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: head}, start)
		}
		parent.InsertBefore(marker, start)
		if tail != "" {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: tail}, start)
		}
		parent.RemoveChild(start)
		return marker, nil
	}

	// Element container: insert before the offset-th child (append when
	// the offset points past the last child).
	var before *html.Node
	i := 0
	for c := start.FirstChild; c != nil; c = c.NextSibling {
		if i == r.StartOffset {
			before = c
			break
		}
		i++
	}
	start.InsertBefore(marker, before)
	return marker, nil
}

// Remove unwraps every fragment carrying id, replacing each with an
// equivalent text node, then normalizes the document so repeated
// annotate/unannotate cycles do not accumulate fragmented text nodes.
// Unknown ids are a logged no-op.
func (e *Engine) Remove(doc *html.Node, id string) error {
	markers := Markers(doc, id)
	if len(markers) == 0 {
		e.logger.Warn("highlight: remove of unknown id", "id", id)
		return ErrNotFound
	}
	for _, m := range markers {
		unwrap(m)
	}
	dom.Normalize(doc)
	e.logger.Debug("highlight: removed", "id", id, "fragments", len(markers))
	return nil
}

// Clear unwraps every dommark marker in the document in one pass with a
// single normalize. Returns the number of fragments removed.
func (e *Engine) Clear(doc *html.Node) int {
	markers := AllMarkers(doc)
	for _, m := range markers {
		unwrap(m)
	}
	if len(markers) > 0 {
		dom.Normalize(doc)
	}
	e.logger.Debug("highlight: cleared", "fragments", len(markers))
	return len(markers)
}

// unwrap replaces a marker with its text content.
func unwrap(marker *html.Node) {
	parent := marker.Parent
	if parent == nil {
		return
	}
	if text := dom.TextContent(marker); text != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text}, marker)
	}
	parent.RemoveChild(marker)
}
