// CLAUDE:SUMMARY Manages the live-browser connection: launch or attach Chrome via Rod, open stealth tabs, shut down cleanly.
// Package bridge connects annotation sessions to a live Chrome page.
// A Manager launches a local Chrome (or attaches to a running one over
// its DevTools websocket) and hands out Tabs; a Tab snapshots the page
// HTML and samples element geometry for hit-testing.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config configures the browser bridge.
type Config struct {
	// AttachURL is the DevTools websocket URL of a running Chrome.
	// Empty = launch a local Chrome via launcher.
	AttachURL string

	// Headless launches Chrome without a window. Ignored when attaching.
	Headless bool

	// Stealth opens tabs through the stealth page factory so annotated
	// sites see an ordinary browser.
	Stealth bool

	// NavTimeout bounds navigation plus load wait per tab. Default: 30s.
	NavTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the Chrome connection.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a browser Manager. Call Start to connect.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome or attaches to a remote instance.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("bridge: manager is closed")
	}
	if m.browser != nil {
		return nil
	}

	log := m.cfg.Logger
	var wsURL string

	if m.cfg.AttachURL != "" {
		wsURL = m.cfg.AttachURL
		log.Info("bridge: attaching to remote chrome", "url", wsURL)
	} else {
		l := launcher.New().Headless(m.cfg.Headless)
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("bridge: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("bridge: launched local chrome", "url", wsURL, "headless", m.cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("bridge: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("bridge: ignore cert errors failed", "error", err)
	}

	m.browser = b
	return nil
}

// Browser returns the current Rod browser handle, nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Close shuts down Chrome (when locally launched) and releases the
// connection. Safe to call twice.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}
