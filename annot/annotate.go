package annot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/dommark/anchor"
	"github.com/hazyhaar/dommark/dom"
	"github.com/hazyhaar/dommark/export"
	"github.com/hazyhaar/dommark/highlight"
	"github.com/hazyhaar/dommark/pagekey"
)

// boundary resolves a structural path plus character offset to a text
// node position inside the session document. Caller holds sess.mu.
func (sess *Session) boundary(path string, offset int) (*html.Node, int, error) {
	n, err := dom.ResolvePath(sess.doc, path)
	if err != nil {
		return nil, 0, err
	}
	node, off, ok := dom.Locate(n, offset)
	if !ok {
		return nil, 0, fmt.Errorf("%w: offset %d outside %s", dom.ErrBounds, offset, path)
	}
	return node, off, nil
}

// rangeFor turns a selection into a DOM range. Caller holds sess.mu.
func (sess *Session) rangeFor(sel Selection) (*dom.Range, error) {
	start, so, err := sess.boundary(sel.StartPath, sel.StartOffset)
	if err != nil {
		return nil, err
	}
	end, eo, err := sess.boundary(sel.EndPath, sel.EndOffset)
	if err != nil {
		return nil, err
	}
	return dom.NewRange(start, so, end, eo)
}

func normalizeKind(kind Kind) (Kind, error) {
	if kind == "" {
		return highlight.KindHighlight, nil
	}
	if !kind.Valid() {
		return "", fmt.Errorf("annot: unknown kind %q", kind)
	}
	return kind, nil
}

func decodeAnnotations(payload []byte) ([]Annotation, error) {
	if payload == nil {
		return nil, nil
	}
	var anns []Annotation
	if err := json.Unmarshal(payload, &anns); err != nil {
		return nil, fmt.Errorf("annot: decode collection: %w", err)
	}
	return anns, nil
}

func (s *Service) loadAnnotations(ctx context.Context, key string) ([]Annotation, error) {
	payload, err := s.store.LoadCollection(ctx, pagekey.Annotations(key))
	if err != nil {
		return nil, err
	}
	return decodeAnnotations(payload)
}

// appendAnnotation persists the whole collection with the new entry
// appended, inside a single transaction.
func (s *Service) appendAnnotation(ctx context.Context, key string, ann Annotation) error {
	return s.store.UpdateCollection(ctx, pagekey.Annotations(key), func(payload []byte) ([]byte, error) {
		anns, err := decodeAnnotations(payload)
		if err != nil {
			return nil, err
		}
		return json.Marshal(append(anns, ann))
	})
}

// deleteAnnotation removes one entry by id and reports whether it was
// present. The collection is rewritten even on a miss so the write is
// a no-op rather than an error.
func (s *Service) deleteAnnotation(ctx context.Context, key, id string) (bool, error) {
	found := false
	err := s.store.UpdateCollection(ctx, pagekey.Annotations(key), func(payload []byte) ([]byte, error) {
		anns, err := decodeAnnotations(payload)
		if err != nil {
			return nil, err
		}
		kept := anns[:0]
		for _, ann := range anns {
			if ann.ID == id {
				found = true
				continue
			}
			kept = append(kept, ann)
		}
		if kept == nil {
			kept = []Annotation{}
		}
		return json.Marshal(kept)
	})
	return found, err
}

// Annotate marks the selected range and persists the resulting
// annotation. Collapsed selections are rejected.
func (s *Service) Annotate(ctx context.Context, sess *Session, sel Selection) (*AnnotateResult, error) {
	kind, err := normalizeKind(sel.Kind)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	r, err := sess.rangeFor(sel)
	if err != nil {
		return nil, err
	}
	if r.IsCollapsed() {
		return nil, ErrEmptySelection
	}
	return s.materialize(ctx, sess, r, kind, sel.Note)
}

// AnnotateQuote finds the first occurrence of quote in the document and
// annotates it. The descriptor carries only the exact text, so the
// resolver falls through to its text search stages.
func (s *Service) AnnotateQuote(ctx context.Context, sess *Session, quote string, kind Kind, note string) (*AnnotateResult, error) {
	if quote == "" {
		return nil, ErrEmptySelection
	}
	kind, err := normalizeKind(kind)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	d := anchor.Descriptor{Context: anchor.Context{Exact: quote}}
	r, stage, err := s.resolver.Resolve(sess.doc, "", d)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrQuoteNotFound, quote)
	}
	s.logger.Debug("annot: quote located", "stage", stage, "key", sess.Key)
	return s.materialize(ctx, sess, r, kind, note)
}

// materialize anchors, marks and persists one annotation. Caller holds
// sess.mu. The descriptor is built before the tree is mutated so the
// stored path and context never include marker elements.
func (s *Service) materialize(ctx context.Context, sess *Session, r *dom.Range, kind Kind, note string) (*AnnotateResult, error) {
	desc, err := anchor.Build(r)
	if err != nil {
		if errors.Is(err, anchor.ErrNoText) {
			return nil, ErrEmptySelection
		}
		return nil, err
	}
	applied, err := s.engine.Apply(sess.doc, r, kind, "")
	if err != nil {
		if errors.Is(err, highlight.ErrEmptyRange) {
			return nil, ErrEmptySelection
		}
		return nil, err
	}

	ann := Annotation{
		ID:        applied.ID,
		Kind:      kind,
		Quote:     desc.Context.Exact,
		Path:      desc.Path,
		Context:   desc.Context,
		Note:      note,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.appendAnnotation(ctx, sess.Key, ann); err != nil {
		if rerr := s.engine.Remove(sess.doc, applied.ID); rerr != nil {
			s.logger.Warn("annot: rollback failed", "id", applied.ID, "error", rerr)
		}
		return nil, err
	}

	s.annotated.Add(1)
	s.logger.Info("annot: annotation created",
		"id", ann.ID, "key", sess.Key, "kind", kind,
		"fragments", len(applied.Fragments), "degraded", applied.Degraded)
	s.event(ctx, "info", "annotate", "annotation created", sess.Key, ann.ID)

	return &AnnotateResult{
		Annotation: ann,
		Fragments:  len(applied.Fragments),
		Skipped:    applied.Skipped,
		Degraded:   applied.Degraded,
	}, nil
}

// Remove unmarks and deletes one annotation. Marker and stored entry
// are cleaned up independently; only a miss on both is an error.
func (s *Service) Remove(ctx context.Context, sess *Session, id string) error {
	sess.mu.Lock()
	markerErr := s.engine.Remove(sess.doc, id)
	sess.mu.Unlock()

	stored, err := s.deleteAnnotation(ctx, sess.Key, id)
	if err != nil {
		return err
	}
	if errors.Is(markerErr, highlight.ErrNotFound) && !stored {
		s.logger.Warn("annot: remove miss", "id", id, "key", sess.Key)
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.removed.Add(1)
	s.logger.Info("annot: annotation removed", "id", id, "key", sess.Key)
	s.event(ctx, "info", "annotate", "annotation removed", sess.Key, id)
	return nil
}

// Clear strips every marker from the session document. Stored
// annotations are untouched, so a later restore can re-mark them.
func (s *Service) Clear(ctx context.Context, sess *Session) int {
	sess.mu.Lock()
	n := s.engine.Clear(sess.doc)
	sess.mu.Unlock()

	s.logger.Info("annot: markers cleared", "key", sess.Key, "count", n)
	s.event(ctx, "info", "clear", fmt.Sprintf("cleared %d markers", n), sess.Key, "")
	return n
}

// List returns the stored annotations for the session's page.
func (s *Service) List(ctx context.Context, sess *Session) ([]Annotation, error) {
	anns, err := s.loadAnnotations(ctx, sess.Key)
	if err != nil {
		return nil, err
	}
	if anns == nil {
		anns = []Annotation{}
	}
	return anns, nil
}

// Get returns one stored annotation by id.
func (s *Service) Get(ctx context.Context, sess *Session, id string) (*Annotation, error) {
	anns, err := s.loadAnnotations(ctx, sess.Key)
	if err != nil {
		return nil, err
	}
	for i := range anns {
		if anns[i].ID == id {
			return &anns[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// HTML serializes the session document, markers included.
func (s *Service) HTML(sess *Session) string {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return dom.Render(sess.doc)
}

// Digest renders the session's annotations as a Markdown report.
func (s *Service) Digest(ctx context.Context, sess *Session) (string, error) {
	anns, err := s.loadAnnotations(ctx, sess.Key)
	if err != nil {
		return "", err
	}
	entries := make([]export.Entry, 0, len(anns))
	for _, ann := range anns {
		entries = append(entries, export.Entry{
			ID:    ann.ID,
			Kind:  string(ann.Kind),
			Quote: ann.Quote,
			Note:  ann.Note,
			Path:  ann.Path,
		})
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.exporter.Digest(sess.doc, sess.URL, entries), nil
}
