package annot

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/dommark/annot/internal/store"
	"github.com/hazyhaar/dommark/bridge"
	"github.com/hazyhaar/dommark/dom"
	"github.com/hazyhaar/dommark/highlight"
	"github.com/hazyhaar/dommark/pagekey"
	"github.com/hazyhaar/dommark/picker"
)

// Session binds one page: the parsed document, optional layout
// geometry, and a mutex serializing all tree access. The context is
// cancelled on close, which stops any restore loops still polling.
type Session struct {
	ID       string
	Key      string
	URL      string
	OpenedAt time.Time

	mu     sync.Mutex
	doc    *html.Node
	layout picker.Layout
	tab    *bridge.Tab

	ctx    context.Context
	cancel context.CancelFunc
}

func (s *Service) newSession(key, pageURL string, doc *html.Node) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:       s.sessIDs(),
		Key:      key,
		URL:      pageURL,
		OpenedAt: time.Now(),
		doc:      doc,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Info snapshots the session for listings.
func (sess *Session) Info() *SessionInfo {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return &SessionInfo{
		ID:       sess.ID,
		Key:      sess.Key,
		URL:      sess.URL,
		Markers:  len(highlight.AllMarkers(sess.doc)),
		OpenedAt: sess.OpenedAt.UnixMilli(),
	}
}

// SetLayout supplies hit-testing geometry measured elsewhere.
func (sess *Session) SetLayout(l picker.Layout) {
	sess.mu.Lock()
	sess.layout = l
	sess.mu.Unlock()
}

// LoadLayout fills the session's geometry from sampled boxes keyed by
// structural path. Hidden entries and paths that no longer resolve are
// dropped. Returns the number of boxes kept.
func (sess *Session) LoadLayout(viewport picker.Rect, boxes []LayoutBox) int {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	index := picker.NewBoxIndex(viewport)
	for _, b := range boxes {
		if b.Hidden {
			continue
		}
		n, err := dom.ResolvePath(sess.doc, b.Path)
		if err != nil {
			continue
		}
		index.SetBox(n, picker.Rect{X: b.X, Y: b.Y, W: b.W, H: b.H})
	}
	sess.layout = index
	return index.Len()
}

// close cancels restore loops and releases the live tab.
func (sess *Session) close() {
	sess.cancel()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.tab != nil {
		sess.tab.Close()
		sess.tab = nil
	}
}

// OpenSession parses raw HTML into a session for the page and archives
// the snapshot. An existing session for the same page key is replaced.
func (s *Service) OpenSession(ctx context.Context, pageURL string, rawHTML []byte) (*Session, error) {
	key, err := pagekey.FromURL(pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("annot: parse html: %w", err)
	}
	if err := s.store.InsertSnapshot(ctx, &store.Snapshot{
		ID: s.newID(), PageKey: key, URL: pageURL, HTML: rawHTML,
	}); err != nil {
		return nil, fmt.Errorf("annot: archive snapshot: %w", err)
	}
	return s.install(s.newSession(key, pageURL, doc)), nil
}

// OpenStored rebuilds a session from the latest archived snapshot.
func (s *Service) OpenStored(ctx context.Context, pageURL string) (*Session, error) {
	key, err := pagekey.FromURL(pageURL)
	if err != nil {
		return nil, err
	}
	snap, err := s.store.LatestSnapshot(ctx, key)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, key)
	}
	doc, err := html.Parse(bytes.NewReader(snap.HTML))
	if err != nil {
		return nil, fmt.Errorf("annot: parse stored html: %w", err)
	}
	return s.install(s.newSession(key, snap.URL, doc)), nil
}

// OpenLive navigates a browser tab to the URL, snapshots its DOM and
// samples element geometry for picker mode. The tab stays attached to
// the session until close.
func (s *Service) OpenLive(ctx context.Context, pageURL string) (*Session, error) {
	if s.bridge == nil {
		return nil, ErrNoBridge
	}
	key, err := pagekey.FromURL(pageURL)
	if err != nil {
		return nil, err
	}
	tab, err := s.bridge.Open(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	raw, err := tab.Snapshot(ctx)
	if err != nil {
		tab.Close()
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		tab.Close()
		return nil, fmt.Errorf("annot: parse live html: %w", err)
	}
	layout, lerr := tab.SampleLayout(ctx, doc)
	if lerr != nil {
		s.logger.Warn("annot: layout sampling failed, picker disabled for session",
			"url", pageURL, "error", lerr)
	}
	if err := s.store.InsertSnapshot(ctx, &store.Snapshot{
		ID: s.newID(), PageKey: key, URL: pageURL, HTML: raw,
	}); err != nil {
		s.logger.Warn("annot: archive snapshot failed", "error", err)
	}

	sess := s.newSession(key, pageURL, doc)
	sess.tab = tab
	if layout != nil {
		sess.layout = layout
	}
	return s.install(sess), nil
}

// openByMode opens a session from inline HTML, the live browser, or the
// latest stored snapshot. Empty mode infers: html when a document is
// supplied, live when a bridge is up, stored otherwise.
func (s *Service) openByMode(ctx context.Context, pageURL, rawHTML, mode string) (*Session, error) {
	if mode == "" {
		switch {
		case rawHTML != "":
			mode = "html"
		case s.bridge != nil:
			mode = "live"
		default:
			mode = "stored"
		}
	}
	switch mode {
	case "html":
		if rawHTML == "" {
			return nil, fmt.Errorf("annot: html mode needs a document")
		}
		return s.OpenSession(ctx, pageURL, []byte(rawHTML))
	case "live":
		return s.OpenLive(ctx, pageURL)
	case "stored":
		return s.OpenStored(ctx, pageURL)
	default:
		return nil, fmt.Errorf("annot: unknown open mode %q", mode)
	}
}

// install registers the session, replacing and closing any previous
// session for the same page key.
func (s *Service) install(sess *Session) *Session {
	s.mu.Lock()
	old := s.sessions[sess.Key]
	s.sessions[sess.Key] = sess
	s.byID[sess.ID] = sess
	if old != nil {
		delete(s.byID, old.ID)
	}
	s.mu.Unlock()

	if old != nil {
		old.close()
		s.logger.Debug("annot: session replaced", "key", sess.Key)
	}
	s.logger.Info("annot: session opened", "id", sess.ID, "key", sess.Key)
	return sess
}

// Session resolves a session by id, page key, or URL.
func (s *Service) Session(ref string) (*Session, error) {
	s.mu.RLock()
	sess := s.byID[ref]
	if sess == nil {
		sess = s.sessions[ref]
	}
	s.mu.RUnlock()
	if sess != nil {
		return sess, nil
	}
	if key, err := pagekey.FromURL(ref); err == nil {
		s.mu.RLock()
		sess = s.sessions[key]
		s.mu.RUnlock()
		if sess != nil {
			return sess, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, ref)
}

// Sessions lists open sessions ordered by page key.
func (s *Service) Sessions() []*SessionInfo {
	s.mu.RLock()
	open := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.RUnlock()

	infos := make([]*SessionInfo, 0, len(open))
	for _, sess := range open {
		infos = append(infos, sess.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos
}

// CloseSession closes one session and forgets it.
func (s *Service) CloseSession(ref string) error {
	sess, err := s.Session(ref)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.sessions[sess.Key] == sess {
		delete(s.sessions, sess.Key)
	}
	delete(s.byID, sess.ID)
	s.mu.Unlock()

	sess.close()
	s.logger.Info("annot: session closed", "id", sess.ID, "key", sess.Key)
	return nil
}
