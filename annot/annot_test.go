package annot

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/dommark/annot/internal/restore"
	"github.com/hazyhaar/dommark/highlight"
	"github.com/hazyhaar/dommark/pagekey"
	"github.com/hazyhaar/dommark/picker"
)

const testURL = "https://example.com/docs/page"

const testPage = `<!DOCTYPE html>
<html><head><title>Fixture</title></head>
<body>
<div id="page">
<section id="content">
<article id="main">
<p id="intro">The quick brown fox jumps over the lazy dog.</p>
<p id="second">Pack my box with five dozen liquor jugs.</p>
</article>
</section>
</div>
</body>
</html>`

const (
	pathArticle = "/html/body/div[1]/section[1]/article[1]"
	pathIntro   = pathArticle + "/p[1]"
	pathSecond  = pathArticle + "/p[2]"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := Config{DBPath: filepath.Join(t.TempDir(), "dommark.db")}
	cfg.Restore.Interval = 5 * time.Millisecond
	cfg.Restore.Attempts = 3
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func openTestSession(t *testing.T, s *Service) *Session {
	t.Helper()
	sess, err := s.OpenSession(context.Background(), testURL, []byte(testPage))
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return sess
}

// loadTestLayout installs the standing pick geometry: the article is a
// plausible container, the two paragraphs sit inside it, and two bogus
// boxes (stale path, hidden element) must be dropped.
func loadTestLayout(t *testing.T, sess *Session) {
	t.Helper()
	kept := sess.LoadLayout(picker.Rect{W: 1000, H: 800}, []LayoutBox{
		{Path: pathArticle, X: 100, Y: 100, W: 400, H: 200},
		{Path: pathIntro, X: 110, Y: 110, W: 80, H: 20},
		{Path: pathSecond, X: 110, Y: 160, W: 80, H: 20},
		{Path: "/html/body/div[9]/p[1]", X: 0, Y: 0, W: 10, H: 10},
		{Path: pathArticle, X: 0, Y: 0, W: 10, H: 10, Hidden: true},
	})
	if kept != 3 {
		t.Fatalf("layout boxes kept: got %d, want 3", kept)
	}
}

func TestOpenSession_KeyAndLookup(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)

	if sess.Key != "https://example.com/docs/page" {
		t.Fatalf("page key: got %q", sess.Key)
	}
	if !strings.HasPrefix(sess.ID, "sess_") {
		t.Fatalf("session id: got %q, want sess_ prefix", sess.ID)
	}

	for _, ref := range []string{sess.ID, sess.Key, "https://EXAMPLE.com/docs/page?utm=x#frag"} {
		got, err := s.Session(ref)
		if err != nil {
			t.Fatalf("lookup %q: %v", ref, err)
		}
		if got != sess {
			t.Fatalf("lookup %q resolved a different session", ref)
		}
	}

	if _, err := s.Session("https://example.com/elsewhere"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("miss: got %v, want ErrSessionNotFound", err)
	}
}

func TestOpenSession_ReplacesPrevious(t *testing.T) {
	s := newTestService(t)
	first := openTestSession(t, s)
	second := openTestSession(t, s)

	if got := s.Sessions(); len(got) != 1 {
		t.Fatalf("sessions: got %d, want 1", len(got))
	}
	if _, err := s.Session(first.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("stale id still resolves: %v", err)
	}
	if got, err := s.Session(second.ID); err != nil || got != second {
		t.Fatalf("new id lookup: %v", err)
	}
}

func TestSessions_SortedByKey(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	if _, err := s.OpenSession(ctx, "https://zzz.example.com/a", []byte(testPage)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.OpenSession(ctx, "https://aaa.example.com/b", []byte(testPage)); err != nil {
		t.Fatal(err)
	}

	infos := s.Sessions()
	if len(infos) != 2 {
		t.Fatalf("sessions: got %d, want 2", len(infos))
	}
	if infos[0].Key > infos[1].Key {
		t.Fatalf("sessions not sorted: %q before %q", infos[0].Key, infos[1].Key)
	}
}

func TestCloseSession(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)

	if err := s.CloseSession(sess.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.Session(sess.Key); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("closed session still resolves: %v", err)
	}
	if err := s.CloseSession(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("double close: got %v, want ErrSessionNotFound", err)
	}
}

func TestAnnotate_SelectionWithinOneNode(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)
	ctx := context.Background()

	res, err := s.Annotate(ctx, sess, Selection{
		StartPath: pathIntro, StartOffset: 4,
		EndPath: pathIntro, EndOffset: 19,
	})
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if res.Annotation.Quote != "quick brown fox" {
		t.Errorf("quote: got %q", res.Annotation.Quote)
	}
	if res.Annotation.Path != pathIntro {
		t.Errorf("path: got %q", res.Annotation.Path)
	}
	if res.Fragments != 1 || res.Degraded {
		t.Errorf("fragments=%d degraded=%v, want 1/false", res.Fragments, res.Degraded)
	}

	doc := s.HTML(sess)
	if !strings.Contains(doc, `data-dommark-id="`+res.Annotation.ID+`"`) {
		t.Errorf("marker missing from rendered document")
	}
	if !strings.Contains(doc, `class="dommark-highlight"`) {
		t.Errorf("marker class missing from rendered document")
	}

	anns, err := s.List(ctx, sess)
	if err != nil {
		t.Fatal(err)
	}
	if len(anns) != 1 || anns[0].ID != res.Annotation.ID {
		t.Fatalf("list: got %+v", anns)
	}
}

func TestAnnotate_CrossElementFragments(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)

	res, err := s.Annotate(context.Background(), sess, Selection{
		StartPath: pathIntro, StartOffset: 16,
		EndPath: pathSecond, EndOffset: 4,
		Kind: highlight.KindNote, Note: "spans two paragraphs",
	})
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if res.Fragments != 3 {
		t.Errorf("fragments: got %d, want 3 (tail, whitespace, head)", res.Fragments)
	}
	if !strings.HasPrefix(res.Annotation.Quote, "fox jumps") || !strings.HasSuffix(res.Annotation.Quote, "Pack") {
		t.Errorf("quote: got %q", res.Annotation.Quote)
	}
	if res.Annotation.Kind != highlight.KindNote || res.Annotation.Note != "spans two paragraphs" {
		t.Errorf("kind/note: got %q %q", res.Annotation.Kind, res.Annotation.Note)
	}
	if got := strings.Count(s.HTML(sess), `class="dommark-note"`); got != 3 {
		t.Errorf("rendered note fragments: got %d, want 3", got)
	}
}

func TestAnnotate_Errors(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)
	ctx := context.Background()

	_, err := s.Annotate(ctx, sess, Selection{
		StartPath: pathIntro, StartOffset: 4,
		EndPath: pathIntro, EndOffset: 4,
	})
	if !errors.Is(err, ErrEmptySelection) {
		t.Errorf("collapsed: got %v, want ErrEmptySelection", err)
	}

	_, err = s.Annotate(ctx, sess, Selection{
		StartPath: "/html/body/div[9]", StartOffset: 0,
		EndPath: pathIntro, EndOffset: 4,
	})
	if err == nil {
		t.Error("bad path: want error")
	}

	_, err = s.Annotate(ctx, sess, Selection{
		StartPath: pathIntro, StartOffset: 0,
		EndPath: pathIntro, EndOffset: 4,
		Kind: "banner",
	})
	if err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Errorf("bad kind: got %v", err)
	}
}

func TestAnnotateQuote(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)
	ctx := context.Background()

	res, err := s.AnnotateQuote(ctx, sess, "lazy dog", "", "")
	if err != nil {
		t.Fatalf("annotate quote: %v", err)
	}
	if res.Annotation.Quote != "lazy dog" || res.Annotation.Kind != highlight.KindHighlight {
		t.Errorf("annotation: got %+v", res.Annotation)
	}
	if res.Annotation.Path != pathIntro {
		t.Errorf("path: got %q, want %q", res.Annotation.Path, pathIntro)
	}

	if _, err := s.AnnotateQuote(ctx, sess, "not on this page", "", ""); !errors.Is(err, ErrQuoteNotFound) {
		t.Errorf("missing quote: got %v, want ErrQuoteNotFound", err)
	}
	if _, err := s.AnnotateQuote(ctx, sess, "", "", ""); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("empty quote: got %v, want ErrEmptySelection", err)
	}
}

func TestRemove(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)
	ctx := context.Background()

	res, err := s.AnnotateQuote(ctx, sess, "five dozen", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, sess, res.Annotation.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if doc := s.HTML(sess); strings.Contains(doc, "data-dommark-id") {
		t.Error("marker survived removal")
	}
	anns, err := s.List(ctx, sess)
	if err != nil {
		t.Fatal(err)
	}
	if len(anns) != 0 {
		t.Fatalf("list after remove: got %d entries", len(anns))
	}

	if err := s.Remove(ctx, sess, res.Annotation.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove: got %v, want ErrNotFound", err)
	}
}

func TestClear_KeepsStoredAnnotations(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)
	ctx := context.Background()

	if _, err := s.AnnotateQuote(ctx, sess, "quick brown fox", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AnnotateQuote(ctx, sess, "liquor jugs", "", ""); err != nil {
		t.Fatal(err)
	}

	if n := s.Clear(ctx, sess); n != 2 {
		t.Fatalf("cleared: got %d, want 2", n)
	}
	if doc := s.HTML(sess); strings.Contains(doc, "data-dommark-id") {
		t.Error("markers survived clear")
	}
	anns, err := s.List(ctx, sess)
	if err != nil {
		t.Fatal(err)
	}
	if len(anns) != 2 {
		t.Fatalf("stored annotations after clear: got %d, want 2", len(anns))
	}
}

func TestGet(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)
	ctx := context.Background()

	res, err := s.AnnotateQuote(ctx, sess, "lazy dog", "", "remember this")
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, sess, res.Annotation.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Note != "remember this" {
		t.Errorf("note: got %q", got.Note)
	}
	if _, err := s.Get(ctx, sess, "ann_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}
}

func TestRestore_RoundTripThroughStoredSnapshot(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)
	ctx := context.Background()

	res, err := s.AnnotateQuote(ctx, sess, "quick brown fox", "", "")
	if err != nil {
		t.Fatal(err)
	}

	// The snapshot was archived at open time, before the annotation, so
	// the reloaded document starts without markers.
	reloaded, err := s.OpenStored(ctx, testURL)
	if err != nil {
		t.Fatalf("open stored: %v", err)
	}
	if strings.Contains(s.HTML(reloaded), "data-dommark-id") {
		t.Fatal("stored snapshot unexpectedly carries markers")
	}

	report, err := s.Restore(ctx, reloaded)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if report.Stats.Restored != 1 || report.Stats.TimedOut != 0 {
		t.Fatalf("stats: got %+v", report.Stats)
	}
	if !strings.Contains(s.HTML(reloaded), `data-dommark-id="`+res.Annotation.ID+`"`) {
		t.Error("restored marker missing")
	}

	again, err := s.Restore(ctx, reloaded)
	if err != nil {
		t.Fatal(err)
	}
	if again.Stats.AlreadyDone != 1 || again.Stats.Restored != 0 {
		t.Fatalf("second restore stats: got %+v", again.Stats)
	}
	if got := len(highlight.Markers(reloaded.doc, res.Annotation.ID)); got != 1 {
		t.Fatalf("marker count after double restore: got %d, want 1", got)
	}
}

func TestRestore_TimesOutWhenQuoteNeverAppears(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)
	ctx := context.Background()

	if _, err := s.AnnotateQuote(ctx, sess, "quick brown fox", "", ""); err != nil {
		t.Fatal(err)
	}

	replaced, err := s.OpenSession(ctx, testURL,
		[]byte(`<html><body><p>Completely different content.</p></body></html>`))
	if err != nil {
		t.Fatal(err)
	}

	report, err := s.Restore(ctx, replaced)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if report.Stats.TimedOut != 1 {
		t.Fatalf("stats: got %+v, want timed_out=1", report.Stats)
	}
	if len(report.Results) != 1 || report.Results[0].Status != restore.StatusTimedOut {
		t.Fatalf("results: got %+v", report.Results)
	}
	if report.Results[0].Attempts != 3 {
		t.Errorf("attempts: got %d, want 3", report.Results[0].Attempts)
	}

	events, err := s.Events(ctx, replaced.Key, 10)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, ev := range events {
		if ev.Source == "restore" && ev.Message == "restore timed out" {
			found = true
		}
	}
	if !found {
		t.Error("timeout event not recorded")
	}
}

func TestOpenStored_NoSnapshot(t *testing.T) {
	s := newTestService(t)
	if _, err := s.OpenStored(context.Background(), "https://example.com/never-seen"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("got %v, want ErrNoSnapshot", err)
	}
}

func TestOpenLive_WithoutBridge(t *testing.T) {
	s := newTestService(t)
	if _, err := s.OpenLive(context.Background(), testURL); !errors.Is(err, ErrNoBridge) {
		t.Fatalf("got %v, want ErrNoBridge", err)
	}
}

func TestPickPoint(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)
	loadTestLayout(t, sess)
	ctx := context.Background()

	res, err := s.PickPoint(ctx, sess, picker.SelectionRect{StartX: 150, StartY: 120, EndX: 150, EndY: 120})
	if err != nil {
		t.Fatalf("pick point: %v", err)
	}
	if !res.Picked || res.Pick == nil {
		t.Fatalf("result: got %+v", res)
	}
	if res.Pick.Path != pathIntro {
		t.Errorf("path: got %q, want %q", res.Pick.Path, pathIntro)
	}
	if res.Pick.Selector != "p#intro" {
		t.Errorf("selector: got %q", res.Pick.Selector)
	}
	if res.Pick.Scope != sess.Key {
		t.Errorf("scope: got %q", res.Pick.Scope)
	}

	picks, err := s.PicksFor(ctx, sess.Key)
	if err != nil {
		t.Fatal(err)
	}
	if len(picks) != 1 || picks[0].ID != res.Pick.ID {
		t.Fatalf("picks: got %+v", picks)
	}
}

func TestPickPoint_MissAndNoLayout(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)
	ctx := context.Background()

	if _, err := s.PickPoint(ctx, sess, picker.SelectionRect{StartX: 1, StartY: 1, EndX: 1, EndY: 1}); !errors.Is(err, ErrNoLayout) {
		t.Fatalf("no layout: got %v, want ErrNoLayout", err)
	}

	loadTestLayout(t, sess)
	res, err := s.PickPoint(ctx, sess, picker.SelectionRect{StartX: 900, StartY: 700, EndX: 900, EndY: 700})
	if err != nil {
		t.Fatal(err)
	}
	if res.Picked {
		t.Fatalf("point outside everything picked %+v", res.Pick)
	}
}

func TestPickRect_CollapsesToCommonAncestor(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)
	loadTestLayout(t, sess)

	res, err := s.PickRect(context.Background(), sess, picker.SelectionRect{
		StartX: 105, StartY: 105, EndX: 205, EndY: 185,
	})
	if err != nil {
		t.Fatalf("pick rect: %v", err)
	}
	if !res.Picked || res.Pick == nil {
		t.Fatalf("result: got %+v", res)
	}
	if res.Pick.Path != pathArticle {
		t.Errorf("path: got %q, want article %q", res.Pick.Path, pathArticle)
	}
	if len(res.Group) != 2 {
		t.Fatalf("group: got %v, want both paragraphs", res.Group)
	}
}

func TestPickHover(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)
	loadTestLayout(t, sess)

	res, err := s.PickHover(sess, 150, 120)
	if err != nil {
		t.Fatalf("hover: %v", err)
	}
	if res.Selector != "p#intro" || res.Path != pathIntro {
		t.Errorf("hover: got %+v", res)
	}

	empty, err := s.PickHover(sess, 900, 700)
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || empty.Path != "" {
		t.Errorf("hover miss: got %+v", empty)
	}
}

func TestPicksFor_GlobScopes(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	seed := func(scope string) {
		payload, err := json.Marshal([]Pick{{ID: "pick_" + scope, Path: "/html/body", Scope: scope}})
		if err != nil {
			t.Fatal(err)
		}
		if err := s.store.SaveCollection(ctx, pagekey.Picks(scope), payload); err != nil {
			t.Fatal(err)
		}
	}
	seed("https://example.com/*")
	seed("https://other.org/*")

	picks, err := s.PicksFor(ctx, testURL)
	if err != nil {
		t.Fatal(err)
	}
	if len(picks) != 1 || picks[0].Scope != "https://example.com/*" {
		t.Fatalf("picks: got %+v, want only the example.com glob", picks)
	}
}

func TestStats(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)
	ctx := context.Background()

	res, err := s.AnnotateQuote(ctx, sess, "lazy dog", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, sess, res.Annotation.ID); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Sessions != 1 {
		t.Errorf("sessions: got %d, want 1", stats.Sessions)
	}
	if stats.Annotated != 1 || stats.Removed != 1 {
		t.Errorf("counters: got %+v", stats)
	}
	if stats.Store == nil || stats.Store.Snapshots != 1 {
		t.Errorf("store stats: got %+v", stats.Store)
	}
}

func TestDigest(t *testing.T) {
	s := newTestService(t)
	sess := openTestSession(t, s)
	ctx := context.Background()

	if _, err := s.AnnotateQuote(ctx, sess, "quick brown fox", "highlight", "classic pangram"); err != nil {
		t.Fatal(err)
	}

	md, err := s.Digest(ctx, sess)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	for _, want := range []string{
		"# Annotations for " + testURL,
		"quick brown fox",
		"Note: classic pangram",
		pathIntro,
	} {
		if !strings.Contains(md, want) {
			t.Errorf("digest missing %q\n%s", want, md)
		}
	}
}
