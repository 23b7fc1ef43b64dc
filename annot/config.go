// CLAUDE:SUMMARY Configuration structs (http, mcp, restore, picker, browser) and YAML loader for the annotation service.
package annot

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	DBPath   string        `yaml:"db_path"`
	LogLevel string        `yaml:"log_level"`
	HTTP     HTTPConfig    `yaml:"http"`
	MCP      MCPConfig     `yaml:"mcp"`
	Restore  RestoreConfig `yaml:"restore"`
	Picker   PickerConfig  `yaml:"picker"`
	Browser  BrowserConfig `yaml:"browser"`
}

// HTTPConfig controls the JSON API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// MCPConfig selects the MCP transport.
type MCPConfig struct {
	Transport string `yaml:"transport"` // "stdio", "quic", "off"
	Addr      string `yaml:"addr"`      // quic listen address
}

// RestoreConfig tunes the per-annotation polling loops.
type RestoreConfig struct {
	Interval time.Duration `yaml:"interval"`
	Attempts int           `yaml:"attempts"`
}

// PickerConfig overrides hit-testing heuristics. Zero values keep the
// picker defaults.
type PickerConfig struct {
	TolerancePx      float64 `yaml:"tolerance_px"`
	MinOverlap       float64 `yaml:"min_overlap"`
	AreaCap          float64 `yaml:"area_cap"`
	MinDepth         int     `yaml:"min_depth"`
	MaxDepth         int     `yaml:"max_depth"`
	MaxViewportRatio float64 `yaml:"max_viewport_ratio"`
}

// BrowserConfig controls the live-page bridge.
type BrowserConfig struct {
	Enabled    bool          `yaml:"enabled"`
	AttachURL  string        `yaml:"attach_url"` // existing DevTools endpoint; empty launches a browser
	Headless   bool          `yaml:"headless"`
	Stealth    bool          `yaml:"stealth"`
	NavTimeout time.Duration `yaml:"nav_timeout"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "dommark.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:7095"
	}
	if c.MCP.Transport == "" {
		c.MCP.Transport = "stdio"
	}
	if c.MCP.Addr == "" {
		c.MCP.Addr = "127.0.0.1:7096"
	}
	if c.Restore.Interval <= 0 {
		c.Restore.Interval = 500 * time.Millisecond
	}
	if c.Restore.Attempts <= 0 {
		c.Restore.Attempts = 20
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 30 * time.Second
	}
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	c := Config{}
	c.defaults()
	return c
}

// LoadConfigFile reads a YAML config file. Omitted fields take the
// built-in defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.defaults()
	return cfg, nil
}
