package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/sage/pkg/model"
)

const yamlRoadmap = `
title: Go Developer
nodes:
  - id: basics
    title: Basics
    type: required
    topics: [Syntax, Types]
  - id: concurrency
    title: Concurrency
    type: weird
connections:
  - from: basics
    to: concurrency
  - from: basics
    to: ghost
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	var warnings []string
	path := writeFile(t, "go.yaml", yamlRoadmap)
	rm, err := LoadFileWithOptions(path, ParseOptions{WarningHandler: func(s string) { warnings = append(warnings, s) }})
	if err != nil {
		t.Fatal(err)
	}
	if rm.Title != "Go Developer" || len(rm.Nodes) != 2 || len(rm.Edges) != 2 {
		t.Fatalf("got %+v", rm)
	}
	if rm.Nodes[1].Category != model.CategoryRequired {
		t.Errorf("unknown type not normalized: %q", rm.Nodes[1].Category)
	}
	if len(warnings) != 2 {
		t.Errorf("warnings = %q, want unknown type and dangling edge", warnings)
	}
}

func TestLoadJSONEnvelope(t *testing.T) {
	body := "\xEF\xBB\xBF" + `{"roadmap": {"id": "r1", "nodes": [{"id": "a", "title": "A"}], "connections": [], "completed_nodes": ["a", "zzz"]}}`
	rm, err := LoadFile(writeFile(t, "saved-roadmap.json", body))
	if err != nil {
		t.Fatal(err)
	}
	if rm.ID != "r1" || rm.Title != "saved-roadmap" {
		t.Errorf("ID=%q Title=%q", rm.ID, rm.Title)
	}
	if len(rm.Completed) != 1 {
		t.Errorf("unknown completed id kept: %v", rm.Completed)
	}
}

func TestLoadBareJSON(t *testing.T) {
	rm, err := LoadFile(writeFile(t, "r.json", `{"title": "T", "nodes": [{"id": "a", "title": "A", "x": 10, "y": 20}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if rm.Nodes[0].X != 10 || rm.Nodes[0].Y != 20 {
		t.Errorf("positions lost: %+v", rm.Nodes[0])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		format  Format
		want    string
	}{
		{"empty", "  \n", FormatYAML, "empty"},
		{"bad json", "{", FormatJSON, "decoding JSON"},
		{"bad yaml", "nodes: [", FormatYAML, "decoding YAML"},
		{"duplicate", "nodes:\n  - id: a\n  - id: a\n", FormatYAML, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.content), tt.format, ParseOptions{})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestParseSizeLimit(t *testing.T) {
	_, err := Parse(strings.NewReader(yamlRoadmap), FormatYAML, ParseOptions{MaxSize: 10})
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "no roadmap found") {
		t.Errorf("err = %v", err)
	}
}

func TestFormatFor(t *testing.T) {
	if FormatFor("a.JSON") != FormatJSON || FormatFor("a.yml") != FormatYAML || FormatFor("a") != FormatYAML {
		t.Error("FormatFor misclassified")
	}
}
