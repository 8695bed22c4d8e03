// Package hooks runs user commands around roadmap exports.
//
// Hooks live in hooks.yaml next to config.yaml (~/.config/sage/hooks.yaml):
//
//	hooks:
//	  pre-export:
//	    - name: lint
//	      command: test -d "$HOME/roadmaps"
//	  post-export:
//	    - name: publish
//	      command: cp "$SAGE_EXPORT_PATH" "$HOME/roadmaps/"
//	      timeout: 10s
//
// A failing pre-export hook cancels the export unless on_error is
// "continue"; post-export failures are recorded and ignored unless on_error
// is "fail".
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanderheijden86/sage/pkg/config"
	"github.com/vanderheijden86/sage/pkg/export"
	"github.com/vanderheijden86/sage/pkg/progress"

	"gopkg.in/yaml.v3"
)

// FileName is the hooks file inside the config directory.
const FileName = "hooks.yaml"

// Phase is when a hook runs relative to the export.
type Phase string

const (
	PreExport  Phase = "pre-export"
	PostExport Phase = "post-export"
)

// On-error policies.
const (
	OnErrorFail     = "fail"
	OnErrorContinue = "continue"
)

// DefaultTimeout bounds a hook without an explicit timeout.
const DefaultTimeout = 30 * time.Second

// Hook is one configured command.
type Hook struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Timeout time.Duration     `yaml:"timeout,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	OnError string            `yaml:"on_error,omitempty"`
}

// UnmarshalYAML accepts timeouts as durations ("5s") or bare seconds (30).
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout,omitempty"`
		Env     map[string]string `yaml:"env,omitempty"`
		OnError string            `yaml:"on_error,omitempty"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*h = Hook{Name: raw.Name, Command: raw.Command, Env: raw.Env, OnError: raw.OnError}
	if raw.Timeout == "" {
		return nil
	}
	if d, err := time.ParseDuration(raw.Timeout); err == nil {
		h.Timeout = d
		return nil
	}
	var seconds float64
	if _, err := fmt.Sscanf(raw.Timeout, "%g", &seconds); err != nil || seconds < 0 {
		return fmt.Errorf("invalid timeout %q", raw.Timeout)
	}
	h.Timeout = time.Duration(seconds * float64(time.Second))
	return nil
}

// Config is the parsed hooks file.
type Config struct {
	Hooks ByPhase `yaml:"hooks"`
}

// ByPhase groups hooks by phase, in run order.
type ByPhase struct {
	PreExport  []Hook `yaml:"pre-export,omitempty"`
	PostExport []Hook `yaml:"post-export,omitempty"`
}

// Empty reports whether no hooks are configured.
func (c *Config) Empty() bool {
	return c == nil || len(c.Hooks.PreExport)+len(c.Hooks.PostExport) == 0
}

// For returns the hooks of one phase.
func (c *Config) For(phase Phase) []Hook {
	if c == nil {
		return nil
	}
	switch phase {
	case PreExport:
		return c.Hooks.PreExport
	case PostExport:
		return c.Hooks.PostExport
	}
	return nil
}

// DefaultPath returns hooks.yaml in the sage config directory.
func DefaultPath() string {
	dir := config.ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, FileName)
}

// Load reads and normalizes a hooks file. A missing file is an empty
// Config. Hooks without a command are dropped and reported in warnings.
func Load(path string) (*Config, []string, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading hooks: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	var warnings []string
	cfg.Hooks.PreExport = normalize(cfg.Hooks.PreExport, PreExport, &warnings)
	cfg.Hooks.PostExport = normalize(cfg.Hooks.PostExport, PostExport, &warnings)
	return cfg, warnings, nil
}

func normalize(hooks []Hook, phase Phase, warnings *[]string) []Hook {
	var out []Hook
	for i, h := range hooks {
		if strings.TrimSpace(h.Command) == "" {
			*warnings = append(*warnings, fmt.Sprintf("%s hook %d has no command; skipped", phase, i+1))
			continue
		}
		if h.Timeout <= 0 {
			h.Timeout = DefaultTimeout
		}
		switch h.OnError {
		case OnErrorFail, OnErrorContinue:
		case "":
			h.OnError = OnErrorContinue
			if phase == PreExport {
				h.OnError = OnErrorFail
			}
		default:
			*warnings = append(*warnings, fmt.Sprintf("%s hook %d: unknown on_error %q, using %q", phase, i+1, h.OnError, OnErrorFail))
			h.OnError = OnErrorFail
		}
		if h.Name == "" {
			h.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		out = append(out, h)
	}
	return out
}

// ExportContext describes the export to the hook through SAGE_* variables.
type ExportContext struct {
	Path      string
	Format    string
	Roadmap   string // slug, id or title
	Title     string
	Nodes     int
	Completed int
	Timestamp time.Time
}

// NewExportContext summarizes an export.Options.
func NewExportContext(opts export.Options) ExportContext {
	ec := ExportContext{Path: opts.Path, Timestamp: time.Now()}
	if f, err := export.FormatFor(opts.Path, opts.Format); err == nil {
		ec.Format = f
	}
	r := opts.Roadmap
	if r == nil {
		return ec
	}
	ec.Title = r.Title
	switch {
	case r.Slug != "":
		ec.Roadmap = r.Slug
	case r.ID != "":
		ec.Roadmap = r.ID
	default:
		ec.Roadmap = r.Title
	}
	ec.Nodes = len(r.Nodes)
	if opts.Status != nil {
		for _, n := range r.Nodes {
			if opts.Status(n.ID) == progress.Done {
				ec.Completed++
			}
		}
	} else {
		idx := r.Index()
		for _, id := range r.Completed {
			if _, ok := idx[id]; ok {
				ec.Completed++
			}
		}
	}
	return ec
}

// Env renders the context as environment entries.
func (c ExportContext) Env() []string {
	return []string{
		"SAGE_EXPORT_PATH=" + c.Path,
		"SAGE_EXPORT_FORMAT=" + c.Format,
		"SAGE_ROADMAP=" + c.Roadmap,
		"SAGE_ROADMAP_TITLE=" + c.Title,
		fmt.Sprintf("SAGE_NODE_COUNT=%d", c.Nodes),
		fmt.Sprintf("SAGE_COMPLETED_COUNT=%d", c.Completed),
		"SAGE_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}
