package anchor

import (
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/dommark/dom"
	"github.com/hazyhaar/dommark/highlight"
)

// ErrUnresolved is returned when every resolution stage has been
// exhausted. Single-stage misses are not errors; only running out of
// fallbacks is.
var ErrUnresolved = errors.New("anchor: descriptor did not resolve")

// Stage identifies which resolution stage produced the outcome.
type Stage string

const (
	// StageSatisfied means markers with the target id already exist;
	// resolution short-circuits with no new range and no DOM mutation.
	StageSatisfied Stage = "satisfied"
	// StageStructural resolved via the structural path.
	StageStructural Stage = "structural"
	// StageContext matched prefix+exact+suffix in the body text.
	StageContext Stage = "context"
	// StageExact matched the bare quote, first occurrence. Ambiguous by
	// design when the text repeats; accepted degraded behavior.
	StageExact Stage = "exact"
	// StageFailed means every stage missed.
	StageFailed Stage = "failed"
)

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	Logger *slog.Logger
}

func (o *ResolverOptions) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Resolver relocates descriptors in a current document through an
// ordered fallback chain of pure stage functions.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver builds a Resolver.
func NewResolver(opts ResolverOptions) *Resolver {
	opts.defaults()
	return &Resolver{logger: opts.Logger}
}

type stage struct {
	name Stage
	fn   func(*html.Node, Descriptor) *dom.Range
}

// stages is the fallback chain, tried in order. Each entry is a pure
// (document, descriptor) → range function; nil means fall through.
var stages = []stage{
	{StageStructural, resolveStructural},
	{StageContext, resolveContext},
	{StageExact, resolveExact},
}

// Resolve relocates a descriptor. When id is non-empty and the document
// already carries markers for it, resolution reports StageSatisfied
// with a nil range: re-running restore must never duplicate highlights.
// Otherwise the chain runs until a stage yields a range; exhaustion
// returns ErrUnresolved with StageFailed. Resolve never mutates the
// document.
func (rv *Resolver) Resolve(doc *html.Node, id string, d Descriptor) (*dom.Range, Stage, error) {
	if id != "" && len(highlight.Markers(doc, id)) > 0 {
		rv.logger.Debug("anchor: already satisfied", "id", id)
		return nil, StageSatisfied, nil
	}
	for _, s := range stages {
		if r := s.fn(doc, d); r != nil {
			rv.logger.Debug("anchor: resolved", "id", id, "stage", string(s.name))
			return r, s.name, nil
		}
	}
	rv.logger.Warn("anchor: resolution exhausted", "id", id, "path", d.Path)
	return nil, StageFailed, ErrUnresolved
}

// resolveStructural follows the structural path and verifies the quote
// inside that element's text.
func resolveStructural(doc *html.Node, d Descriptor) *dom.Range {
	exact := d.Context.Exact
	if exact == "" || d.Path == "" {
		return nil
	}
	el, err := dom.ResolvePath(doc, d.Path)
	if err != nil {
		return nil
	}
	idx := strings.Index(dom.TextContent(el), exact)
	if idx < 0 {
		return nil
	}
	return rangeAt(el, idx, len(exact))
}

// resolveContext searches the body text for prefix+exact+suffix; the
// true start is the match index plus the prefix length.
func resolveContext(doc *html.Node, d Descriptor) *dom.Range {
	exact := d.Context.Exact
	if exact == "" || (d.Context.Prefix == "" && d.Context.Suffix == "") {
		return nil
	}
	body := dom.Body(doc)
	if body == nil {
		return nil
	}
	needle := d.Context.Prefix + exact + d.Context.Suffix
	idx := strings.Index(dom.TextContent(body), needle)
	if idx < 0 {
		return nil
	}
	return rangeAt(body, idx+len(d.Context.Prefix), len(exact))
}

// resolveExact takes the first occurrence of the bare quote.
func resolveExact(doc *html.Node, d Descriptor) *dom.Range {
	exact := d.Context.Exact
	if exact == "" {
		return nil
	}
	body := dom.Body(doc)
	if body == nil {
		return nil
	}
	idx := strings.Index(dom.TextContent(body), exact)
	if idx < 0 {
		return nil
	}
	return rangeAt(body, idx, len(exact))
}

// rangeAt maps an absolute text offset span under root to a concrete
// range via the shared offset primitive.
func rangeAt(root *html.Node, offset, length int) *dom.Range {
	sn, so, ok := dom.Locate(root, offset)
	if !ok {
		return nil
	}
	en, eo, ok := dom.Locate(root, offset+length)
	if !ok {
		return nil
	}
	r, err := dom.NewRange(sn, so, en, eo)
	if err != nil {
		return nil
	}
	return r
}
