// Package loader reads roadmaps from local YAML or JSON files.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/sage/pkg/model"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format is a roadmap file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// DefaultMaxFileSize caps how much of a file is read (10MB).
const DefaultMaxFileSize = 10 << 20

// ErrTooLarge is returned for files over the size cap.
var ErrTooLarge = errors.New("roadmap file too large")

// ParseOptions configures parsing.
type ParseOptions struct {
	// WarningHandler receives non-fatal problems such as connections to
	// missing nodes. If nil, warnings are dropped.
	WarningHandler func(string)

	// MaxSize caps the input in bytes. If 0, uses DefaultMaxFileSize.
	MaxSize int64
}

func (o ParseOptions) warn(format string, args ...any) {
	if o.WarningHandler != nil {
		o.WarningHandler(fmt.Sprintf(format, args...))
	}
}

// FormatFor picks the encoding from a file extension. Unknown extensions
// are read as YAML, which also accepts JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// LoadFile reads a roadmap from path.
func LoadFile(path string) (*model.Roadmap, error) {
	return LoadFileWithOptions(path, ParseOptions{})
}

// LoadFileWithOptions reads a roadmap from path with custom options.
func LoadFileWithOptions(path string, opts ParseOptions) (*model.Roadmap, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no roadmap found at %s", path)
		}
		return nil, fmt.Errorf("failed to open roadmap file: %w", err)
	}
	defer f.Close()

	r, err := Parse(f, FormatFor(path), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if r.Title == "" {
		r.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return r, nil
}

// envelope accepts the backend's {"roadmap": {...}} response shape as well
// as a bare roadmap.
type envelope struct {
	Roadmap *model.Roadmap `json:"roadmap" yaml:"roadmap"`
}

// Parse decodes a roadmap. Node ids must be present and unique; categories
// are normalized and connections to missing nodes are kept but reported.
func Parse(r io.Reader, format Format, opts ParseOptions) (*model.Roadmap, error) {
	limit := opts.MaxSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading roadmap: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (limit %d bytes)", ErrTooLarge, limit)
	}
	data = stripBOM(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("roadmap file is empty")
	}

	var env envelope
	var rm model.Roadmap
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decoding JSON: %w", err)
		}
		if env.Roadmap == nil {
			if err := json.Unmarshal(data, &rm); err != nil {
				return nil, fmt.Errorf("decoding JSON: %w", err)
			}
		}
	default:
		if err := yaml.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decoding YAML: %w", err)
		}
		if env.Roadmap == nil {
			if err := yaml.Unmarshal(data, &rm); err != nil {
				return nil, fmt.Errorf("decoding YAML: %w", err)
			}
		}
	}
	if env.Roadmap != nil {
		rm = *env.Roadmap
	}

	if err := rm.Validate(); err != nil {
		return nil, err
	}
	for _, n := range rm.Nodes {
		if strings.TrimSpace(n.Title) == "" {
			opts.warn("node %q has no title", n.ID)
		}
		if n.Category != "" && !n.Category.IsValid() {
			opts.warn("node %q: unknown type %q, treating as required", n.ID, n.Category)
		}
	}
	if valid := rm.ValidEdges(); len(valid) != len(rm.Edges) {
		opts.warn("%d connection(s) reference missing nodes or repeat and will not be drawn", len(rm.Edges)-len(valid))
	}
	rm.Normalize()
	return &rm, nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present.
func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
}
