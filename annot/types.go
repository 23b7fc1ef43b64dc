package annot

import (
	"github.com/hazyhaar/dommark/anchor"
	"github.com/hazyhaar/dommark/annot/internal/restore"
	"github.com/hazyhaar/dommark/highlight"
)

// Kind is the annotation kind; the vocabulary lives next to the marker
// contract in the highlight package.
type Kind = highlight.Kind

const (
	KindHighlight = highlight.KindHighlight
	KindNote      = highlight.KindNote
)

// Annotation is the persisted record of one highlighted span. The id is
// assigned before any DOM mutation; every marker fragment of the span
// carries it. Quote always equals Context.Exact.
type Annotation struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Quote     string         `json:"quote"`
	Path      string         `json:"path"`
	Context   anchor.Context `json:"context"`
	Note      string         `json:"note,omitempty"`
	CreatedAt int64          `json:"created_at"`
}

// Selection addresses a text span by structural boundary points: each
// path resolves to an element, each offset counts text bytes within
// that element's text content.
type Selection struct {
	StartPath   string `json:"start_path"`
	StartOffset int    `json:"start_offset"`
	EndPath     string `json:"end_path"`
	EndOffset   int    `json:"end_offset"`
	Kind        Kind   `json:"kind,omitempty"`
	Note        string `json:"note,omitempty"`
}

// AnnotateResult reports what a create operation actually rendered.
type AnnotateResult struct {
	Annotation Annotation `json:"annotation"`
	Fragments  int        `json:"fragments"`
	Skipped    int        `json:"skipped,omitempty"`
	Degraded   bool       `json:"degraded,omitempty"`
}

// Pick is a persisted element pick from picker mode. Scope is a glob
// matched against page keys; it defaults to the exact key the pick was
// created on.
type Pick struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	Selector  string `json:"selector"`
	Excerpt   string `json:"excerpt"`
	Scope     string `json:"scope"`
	CreatedAt int64  `json:"created_at"`
}

// PickResult is the outcome of a point or rectangle pick. Group lists
// the structural paths of the deduplicated selection for rectangle
// picks.
type PickResult struct {
	Picked bool     `json:"picked"`
	Pick   *Pick    `json:"pick,omitempty"`
	Group  []string `json:"group,omitempty"`
}

// HoverResult describes the element under the cursor; hover is
// transient and never recorded.
type HoverResult struct {
	Path     string `json:"path"`
	Selector string `json:"selector"`
}

// RestoreReport carries per-annotation outcomes plus the group totals.
type RestoreReport struct {
	Results []restore.Result `json:"results"`
	Stats   restore.Stats    `json:"stats"`
}

// SessionInfo summarizes one open session. ID is the path-safe handle
// transports use; Key is the page identity.
type SessionInfo struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	URL      string `json:"url"`
	Markers  int    `json:"markers"`
	OpenedAt int64  `json:"opened_at"`
}

// LayoutBox is one sampled element box, keyed by structural path, as
// supplied by clients that measured the page themselves.
type LayoutBox struct {
	Path   string  `json:"path"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	W      float64 `json:"w"`
	H      float64 `json:"h"`
	Hidden bool    `json:"hidden,omitempty"`
}
