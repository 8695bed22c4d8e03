// Package config loads and saves sage configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/sage/config.yaml
//   - Data:   ~/.local/share/sage/ (session database)
//   - State:  ~/.local/state/sage/ (exports)
//
// SAGE_API_URL overrides api.base_url.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/sage/pkg/connector"
	"github.com/vanderheijden86/sage/pkg/interact"
	"github.com/vanderheijden86/sage/pkg/layout"

	"gopkg.in/yaml.v3"
)

const appName = "sage"

// APIURLEnv overrides the backend base URL.
const APIURLEnv = "SAGE_API_URL"

// APIConfig points at the roadmap backend.
type APIConfig struct {
	BaseURL        string `yaml:"base_url,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

// LayoutConfig selects the layout strategy and node geometry.
type LayoutConfig struct {
	Strategy string          `yaml:"strategy,omitempty"` // hierarchical, serpentine
	Geometry layout.Geometry `yaml:"geometry,omitempty"`
}

// ConnectorConfig selects how edges are drawn.
type ConnectorConfig struct {
	Style string `yaml:"style,omitempty"` // pipe, curve
}

// ZoomConfig bounds the canvas scale.
type ZoomConfig struct {
	Min     float64 `yaml:"min,omitempty"`
	Max     float64 `yaml:"max,omitempty"`
	Step    float64 `yaml:"step,omitempty"`
	Initial float64 `yaml:"initial,omitempty"`
}

// InteractionConfig tunes pointer handling.
type InteractionConfig struct {
	DragThreshold float64 `yaml:"drag_threshold,omitempty"` // screen pixels
}

// SessionConfig locates the local session database.
type SessionConfig struct {
	Path string `yaml:"path,omitempty"`
}

// UIConfig holds terminal preferences.
type UIConfig struct {
	DefaultPage string `yaml:"default_page,omitempty"` // browse, generate, mine
	ShowSidebar *bool  `yaml:"show_sidebar,omitempty"`
}

// ServerConfig configures `sage --serve`.
type ServerConfig struct {
	Listen         string   `yaml:"listen,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	API         APIConfig         `yaml:"api,omitempty"`
	Layout      LayoutConfig      `yaml:"layout,omitempty"`
	Connector   ConnectorConfig   `yaml:"connector,omitempty"`
	Zoom        ZoomConfig        `yaml:"zoom,omitempty"`
	Interaction InteractionConfig `yaml:"interaction,omitempty"`
	Session     SessionConfig     `yaml:"session,omitempty"`
	UI          UIConfig          `yaml:"ui,omitempty"`
	Server      ServerConfig      `yaml:"server,omitempty"`
}

// Pages accepted by ui.default_page.
var Pages = []string{"browse", "generate", "mine"}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:        "http://localhost:5000/api",
			TimeoutSeconds: 30,
		},
		Layout: LayoutConfig{
			Strategy: string(layout.Hierarchical),
			Geometry: layout.DefaultGeometry(),
		},
		Connector: ConnectorConfig{Style: string(connector.Pipe)},
		Zoom: ZoomConfig{
			Min:     interact.DefaultMinZoom,
			Max:     interact.DefaultMaxZoom,
			Step:    interact.DefaultZoomStep,
			Initial: 1,
		},
		Interaction: InteractionConfig{DragThreshold: interact.DefaultDragThreshold},
		UI:          UIConfig{DefaultPage: "browse"},
		Server: ServerConfig{
			Listen:         "127.0.0.1:8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

// ConfigDir returns the XDG config directory for sage.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for sage.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the XDG state directory for sage.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", ".local", "state")
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. A missing file yields
// DefaultConfig. Values are validated; out-of-range settings are replaced
// and reported in the returned error, which leaves cfg usable.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(expandHome(path))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.Session.Path = expandHome(cfg.Session.Path)
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(APIURLEnv)); v != "" {
		c.API.BaseURL = v
	}
}

// Validate repairs invalid values in place, falling back to defaults, and
// returns every problem found joined into one error.
func (c *Config) Validate() error {
	def := DefaultConfig()
	var errs []error

	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = def.API.TimeoutSeconds
	}

	if s, err := layout.ParseStrategy(c.Layout.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("layout.strategy: %w", err))
		c.Layout.Strategy = def.Layout.Strategy
	} else {
		c.Layout.Strategy = string(s)
	}
	c.Layout.Geometry = c.Layout.Geometry.Normalized()

	if s, err := connector.ParseStyle(c.Connector.Style); err != nil {
		errs = append(errs, fmt.Errorf("connector.style: %w", err))
		c.Connector.Style = def.Connector.Style
	} else {
		c.Connector.Style = string(s)
	}

	z := &c.Zoom
	if math.IsNaN(z.Min) || math.IsNaN(z.Max) || z.Min <= 0 || z.Max <= 0 || z.Min > z.Max {
		if z.Min != 0 || z.Max != 0 {
			errs = append(errs, fmt.Errorf("zoom: invalid range [%g, %g]", z.Min, z.Max))
		}
		z.Min, z.Max = def.Zoom.Min, def.Zoom.Max
	}
	if math.IsNaN(z.Step) || z.Step <= 0 {
		z.Step = def.Zoom.Step
	}
	if math.IsNaN(z.Initial) || z.Initial <= 0 {
		z.Initial = def.Zoom.Initial
	}
	if z.Initial < z.Min {
		z.Initial = z.Min
	} else if z.Initial > z.Max {
		z.Initial = z.Max
	}

	if math.IsNaN(c.Interaction.DragThreshold) || c.Interaction.DragThreshold <= 0 {
		c.Interaction.DragThreshold = def.Interaction.DragThreshold
	}

	if !validPage(c.UI.DefaultPage) {
		if c.UI.DefaultPage != "" {
			errs = append(errs, fmt.Errorf("ui.default_page: unknown page %q", c.UI.DefaultPage))
		}
		c.UI.DefaultPage = def.UI.DefaultPage
	}
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	return errors.Join(errs...)
}

func validPage(p string) bool {
	for _, v := range Pages {
		if p == v {
			return true
		}
	}
	return false
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	path = expandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// LayoutEngine builds the configured layout engine.
func (c Config) LayoutEngine() *layout.Engine {
	s, err := layout.ParseStrategy(c.Layout.Strategy)
	if err != nil {
		s = layout.Hierarchical
	}
	return layout.New(s, c.Layout.Geometry)
}

// Router builds the configured connector router.
func (c Config) Router() *connector.Router {
	s, err := connector.ParseStyle(c.Connector.Style)
	if err != nil {
		s = connector.Pipe
	}
	return connector.NewRouter(s, c.Layout.Geometry)
}

// NewZoom builds a zoom holder from the configured bounds.
func (c Config) NewZoom() *interact.Zoom {
	return interact.NewZoom(c.Zoom.Min, c.Zoom.Max, c.Zoom.Step, c.Zoom.Initial)
}

// ControllerOptions bundles everything a roadmap view's controller needs.
func (c Config) ControllerOptions() interact.Options {
	return interact.Options{
		Geometry:      c.Layout.Geometry,
		Router:        c.Router(),
		Zoom:          c.NewZoom(),
		DragThreshold: c.Interaction.DragThreshold,
	}
}

// SidebarVisible reports the sidebar preference, defaulting to shown.
func (c Config) SidebarVisible() bool {
	return c.UI.ShowSidebar == nil || *c.UI.ShowSidebar
}

// SessionPath returns the configured session database, or "" for the
// default location.
func (c Config) SessionPath() string { return c.Session.Path }

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
