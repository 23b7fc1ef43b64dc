// CLAUDE:SUMMARY Service orchestrator: owns store, engines and bridge; aggregates stats; records events.
// Package annot is the dommark service layer. A Service owns the SQLite
// store, the highlight engine, the anchor resolver, the hit-tester and
// the optional browser bridge. Sessions bind parsed documents to page
// keys and serialize all tree mutation; every entry point maps to one
// HTTP route and one MCP tool.
package annot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hazyhaar/dommark/anchor"
	"github.com/hazyhaar/dommark/annot/internal/store"
	"github.com/hazyhaar/dommark/bridge"
	"github.com/hazyhaar/dommark/export"
	"github.com/hazyhaar/dommark/highlight"
	"github.com/hazyhaar/dommark/idgen"
	"github.com/hazyhaar/dommark/picker"
)

// Service is the annotation engine's orchestrator.
type Service struct {
	cfg      Config
	logger   *slog.Logger
	store    *store.Store
	newID    func() string
	pickIDs  idgen.Generator
	sessIDs  idgen.Generator
	engine   *highlight.Engine
	resolver *anchor.Resolver
	tester   *picker.Tester
	exporter *export.Exporter
	bridge   *bridge.Manager

	mu       sync.RWMutex
	sessions map[string]*Session // by page key
	byID     map[string]*Session

	annotated atomic.Int64
	removed   atomic.Int64
	restored  atomic.Int64
	picked    atomic.Int64
}

// New creates the Service and opens its store. Call Start before use.
func New(cfg Config, logger *slog.Logger) (*Service, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("annot: open store: %w", err)
	}
	s := &Service{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		newID:    idgen.New,
		pickIDs:  idgen.Pick,
		sessIDs:  idgen.Prefixed("sess_", idgen.NanoID(8)),
		engine:   highlight.New(highlight.Options{Logger: logger}),
		resolver: anchor.NewResolver(anchor.ResolverOptions{Logger: logger}),
		tester:   picker.NewTester(cfg.pickerOptions()),
		exporter: export.New(),
		sessions: make(map[string]*Session),
		byID:     make(map[string]*Session),
	}
	if cfg.Browser.Enabled {
		s.bridge = bridge.NewManager(bridge.Config{
			AttachURL:  cfg.Browser.AttachURL,
			Headless:   cfg.Browser.Headless,
			Stealth:    cfg.Browser.Stealth,
			NavTimeout: cfg.Browser.NavTimeout,
			Logger:     logger,
		})
	}
	return s, nil
}

func (c Config) pickerOptions() picker.Options {
	return picker.Options{
		TolerancePx:      c.Picker.TolerancePx,
		MinOverlap:       c.Picker.MinOverlap,
		AreaCap:          c.Picker.AreaCap,
		MinDepth:         c.Picker.MinDepth,
		MaxDepth:         c.Picker.MaxDepth,
		MaxViewportRatio: c.Picker.MaxViewportRatio,
	}
}

// Start warms the browser bridge when one is configured.
func (s *Service) Start(ctx context.Context) error {
	if s.bridge != nil {
		if err := s.bridge.Start(ctx); err != nil {
			return err
		}
	}
	s.logger.Info("annot: started", "db", s.cfg.DBPath, "browser", s.bridge != nil)
	return nil
}

// Close tears down every session, the bridge and the store.
func (s *Service) Close() error {
	s.mu.Lock()
	open := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.sessions = make(map[string]*Session)
	s.byID = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range open {
		sess.close()
	}
	if s.bridge != nil {
		s.bridge.Close()
	}
	return s.store.Close()
}

// Stats aggregates service counters with store totals.
type Stats struct {
	Sessions  int          `json:"sessions"`
	Annotated int64        `json:"annotations_created"`
	Removed   int64        `json:"annotations_removed"`
	Restored  int64        `json:"annotations_restored"`
	Picked    int64        `json:"picks_recorded"`
	Store     *store.Stats `json:"store"`
}

// Stats reports counters since start plus store row totals.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	return &Stats{
		Sessions:  n,
		Annotated: s.annotated.Load(),
		Removed:   s.removed.Load(),
		Restored:  s.restored.Load(),
		Picked:    s.picked.Load(),
		Store:     st,
	}, nil
}

// Events returns the recent audit trail, optionally filtered to one
// page key.
func (s *Service) Events(ctx context.Context, pageKey string, limit int) ([]*store.Event, error) {
	if pageKey != "" {
		return s.store.EventsFor(ctx, pageKey, limit)
	}
	return s.store.RecentEvents(ctx, limit)
}

// event appends to the audit trail; failures are logged, never fatal.
func (s *Service) event(ctx context.Context, level, source, message, pageKey, annID string) {
	err := s.store.RecordEvent(ctx, &store.Event{
		Level:        level,
		Source:       source,
		Message:      message,
		PageKey:      pageKey,
		AnnotationID: annID,
	})
	if err != nil {
		s.logger.Warn("annot: record event failed", "error", err)
	}
}
