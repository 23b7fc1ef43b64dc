package annot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/net/html"

	"github.com/hazyhaar/dommark/dom"
	"github.com/hazyhaar/dommark/pagekey"
	"github.com/hazyhaar/dommark/picker"
)

// PickPoint hit-tests a click against the session layout and records
// the chosen element.
func (s *Service) PickPoint(ctx context.Context, sess *Session, sel picker.SelectionRect) (*PickResult, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.layout == nil {
		return nil, ErrNoLayout
	}
	n := s.tester.PointDetect(sess.doc, sess.layout, sel)
	if n == nil {
		return &PickResult{Picked: false}, nil
	}
	p, err := s.recordPick(ctx, sess, n)
	if err != nil {
		return nil, err
	}
	return &PickResult{Picked: true, Pick: p}, nil
}

// PickRect hit-tests a drag rectangle. Contained elements collapse to
// their deepest common ancestor when that ancestor is a reasonable
// container; otherwise the deepest hit wins. The full group is
// reported alongside the recorded pick.
func (s *Service) PickRect(ctx context.Context, sess *Session, sel picker.SelectionRect) (*PickResult, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.layout == nil {
		return nil, ErrNoLayout
	}
	hits := s.tester.RectDetect(sess.doc, sess.layout, sel)
	if len(hits) == 0 {
		return &PickResult{Picked: false}, nil
	}
	group := picker.DedupeByContainment(hits)
	target := s.tester.CommonAncestor(sess.doc, group)
	if target == nil || !s.tester.Reasonable(sess.layout, target) {
		target = group[0]
	}
	p, err := s.recordPick(ctx, sess, target)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(group))
	for _, n := range group {
		paths = append(paths, dom.PathOf(n))
	}
	return &PickResult{Picked: true, Pick: p, Group: paths}, nil
}

// PickHover names the element under the cursor without recording it.
func (s *Service) PickHover(sess *Session, x, y float64) (*HoverResult, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.layout == nil {
		return nil, ErrNoLayout
	}
	n := s.tester.HoverDetect(sess.doc, sess.layout, x, y)
	if n == nil {
		return &HoverResult{}, nil
	}
	return &HoverResult{Path: dom.PathOf(n), Selector: elementSummary(n)}, nil
}

// recordPick persists one picked element under the session's page key.
// Caller holds sess.mu.
func (s *Service) recordPick(ctx context.Context, sess *Session, n *html.Node) (*Pick, error) {
	p := Pick{
		ID:        s.pickIDs(),
		Path:      dom.PathOf(n),
		Selector:  elementSummary(n),
		Excerpt:   s.exporter.Excerpt(n),
		Scope:     sess.Key,
		CreatedAt: time.Now().UnixMilli(),
	}
	err := s.store.UpdateCollection(ctx, pagekey.Picks(sess.Key), func(payload []byte) ([]byte, error) {
		picks, err := decodePicks(payload)
		if err != nil {
			return nil, err
		}
		return json.Marshal(append(picks, p))
	})
	if err != nil {
		return nil, err
	}
	s.picked.Add(1)
	s.logger.Info("annot: pick recorded", "id", p.ID, "key", sess.Key, "selector", p.Selector)
	s.event(ctx, "info", "pick", "pick recorded", sess.Key, "")
	return &p, nil
}

func decodePicks(payload []byte) ([]Pick, error) {
	if payload == nil {
		return nil, nil
	}
	var picks []Pick
	if err := json.Unmarshal(payload, &picks); err != nil {
		return nil, fmt.Errorf("annot: decode picks: %w", err)
	}
	return picks, nil
}

// PicksFor gathers every recorded pick whose scope covers the page.
// A scope is either a literal page key or a glob pattern, so a pick
// recorded with scope "example.com/docs/*" applies to the whole
// section. ref may be a page key or a URL.
func (s *Service) PicksFor(ctx context.Context, ref string) ([]Pick, error) {
	key := ref
	if k, err := pagekey.FromURL(ref); err == nil {
		key = k
	}

	names, err := s.store.CollectionNames(ctx, pagekey.Picks("*"))
	if err != nil {
		return nil, err
	}
	globs := make(map[string]glob.Glob)
	matched := []Pick{}
	for _, name := range names {
		payload, err := s.store.LoadCollection(ctx, name)
		if err != nil {
			return nil, err
		}
		picks, err := decodePicks(payload)
		if err != nil {
			return nil, err
		}
		for _, p := range picks {
			if p.Scope == key {
				matched = append(matched, p)
				continue
			}
			g, ok := globs[p.Scope]
			if !ok {
				g, err = glob.Compile(p.Scope)
				if err != nil {
					s.logger.Debug("annot: bad pick scope", "scope", p.Scope, "error", err)
					continue
				}
				globs[p.Scope] = g
			}
			if g.Match(key) {
				matched = append(matched, p)
			}
		}
	}
	return matched, nil
}

// elementSummary writes a short CSS-flavoured name for an element,
// like "p#intro.lead".
func elementSummary(n *html.Node) string {
	var b strings.Builder
	b.WriteString(n.Data)
	if id := dom.GetAttr(n, "id"); id != "" {
		b.WriteString("#")
		b.WriteString(id)
	}
	for _, class := range strings.Fields(dom.GetAttr(n, "class")) {
		b.WriteString(".")
		b.WriteString(class)
	}
	return b.String()
}
