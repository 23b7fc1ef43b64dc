package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"golang.org/x/net/html"

	"github.com/hazyhaar/dommark/dom"
	"github.com/hazyhaar/dommark/picker"
)

// Tab wraps a Rod page for one annotated document.
type Tab struct {
	Page    *rod.Page
	PageURL string
	manager *Manager
}

// Open creates a tab and navigates it to the URL. With Stealth enabled
// the tab goes through the stealth page factory. Navigation and the
// load wait share the configured NavTimeout; a slow load is logged and
// tolerated so heavy pages can still be annotated.
func (m *Manager) Open(ctx context.Context, pageURL string) (*Tab, error) {
	b := m.Browser()
	if b == nil {
		return nil, fmt.Errorf("bridge: no active browser")
	}

	var page *rod.Page
	var err error
	if m.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("bridge: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("bridge: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		m.cfg.Logger.Warn("bridge: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page, PageURL: pageURL, manager: m}, nil
}

// Snapshot serialises the live DOM as outer HTML.
func (t *Tab) Snapshot(ctx context.Context) ([]byte, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("bridge: snapshot: %w", err)
	}
	return []byte(res.Value.Str()), nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}

// sampleScript walks the live DOM and reports every element's border box
// in viewport coordinates. Steps are spelled exactly like dom.PathOf
// writes them: html and body bare, everything else tag[i] with the
// 1-based position among the parent's element children.
const sampleScript = `() => {
	const out = [];
	const walk = (el, path) => {
		const r = el.getBoundingClientRect();
		const cs = getComputedStyle(el);
		out.push({
			path: path,
			x: r.x, y: r.y, w: r.width, h: r.height,
			hidden: cs.display === 'none' || cs.visibility === 'hidden'
		});
		let i = 0;
		for (const child of el.children) {
			i++;
			const tag = child.tagName.toLowerCase();
			const step = (tag === 'html' || tag === 'body') ? tag : tag + '[' + i + ']';
			walk(child, path + '/' + step);
		}
	};
	walk(document.documentElement, '/html');
	return JSON.stringify({
		viewport: {x: 0, y: 0, w: window.innerWidth, h: window.innerHeight},
		boxes: out
	});
}`

type sampledBox struct {
	Path   string  `json:"path"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	W      float64 `json:"w"`
	H      float64 `json:"h"`
	Hidden bool    `json:"hidden"`
}

type sampledLayout struct {
	Viewport picker.Rect  `json:"viewport"`
	Boxes    []sampledBox `json:"boxes"`
}

// SampleLayout runs the in-page geometry walk and resolves the result
// against doc, the parsed snapshot of the same page. Hidden elements
// get no box. Paths that no longer resolve are dropped: the live DOM
// may have drifted since the snapshot, and a partial layout still
// serves hit-testing.
func (t *Tab) SampleLayout(ctx context.Context, doc *html.Node) (*picker.BoxIndex, error) {
	res, err := t.Page.Context(ctx).Eval(sampleScript)
	if err != nil {
		return nil, fmt.Errorf("bridge: sample layout: %w", err)
	}

	var sampled sampledLayout
	if err := json.Unmarshal([]byte(res.Value.Str()), &sampled); err != nil {
		return nil, fmt.Errorf("bridge: sample layout: decode: %w", err)
	}

	index := picker.NewBoxIndex(sampled.Viewport)
	dropped := 0
	for _, b := range sampled.Boxes {
		if b.Hidden {
			continue
		}
		n, err := dom.ResolvePath(doc, b.Path)
		if err != nil {
			dropped++
			continue
		}
		index.SetBox(n, picker.Rect{X: b.X, Y: b.Y, W: b.W, H: b.H})
	}
	if dropped > 0 {
		t.manager.cfg.Logger.Debug("bridge: layout paths dropped",
			"url", t.PageURL, "dropped", dropped, "kept", index.Len())
	}
	return index, nil
}
