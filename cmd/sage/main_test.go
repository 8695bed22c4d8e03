package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/sage/internal/datasource"
	"github.com/vanderheijden86/sage/pkg/catalog"
	"github.com/vanderheijden86/sage/pkg/config"
	"github.com/vanderheijden86/sage/pkg/testutil"
)

func TestParseFlags_Validation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"topic", []string{"--topic", "react"}, ""},
		{"saved needs id", []string{"--saved"}, "require --id"},
		{"ai with id", []string{"--ai", "--id", "abc"}, ""},
		{"file and serve", []string{"--file", "x.yaml", "--serve"}, "cannot be combined"},
		{"stray argument", []string{"react"}, "unexpected argument"},
		{"unknown flag", []string{"--bogus"}, "bogus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRoadmapQuery(t *testing.T) {
	f, err := parseFlags([]string{"--ai", "--id", "gen-1"})
	if err != nil {
		t.Fatal(err)
	}
	q, err := f.roadmapQuery()
	if err != nil {
		t.Fatal(err)
	}
	if q != datasource.AIQuery("gen-1") {
		t.Errorf("query = %+v", q)
	}

	f, _ = parseFlags([]string{"--query", "?saved=true&id=42", "--topic", "ignored"})
	q, err = f.roadmapQuery()
	if err != nil {
		t.Fatal(err)
	}
	if q != datasource.SavedQuery("42") {
		t.Errorf("--query should win over --topic, got %+v", q)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	f := flags{layout: "serpentine", connector: "curve", listen: ":9999", offline: true}
	if err := f.applyOverrides(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Layout.Strategy != "serpentine" || cfg.Connector.Style != "curve" {
		t.Errorf("layout/connector = %q/%q", cfg.Layout.Strategy, cfg.Connector.Style)
	}
	if cfg.Server.Listen != ":9999" {
		t.Errorf("listen = %q", cfg.Server.Listen)
	}
	if cfg.API.BaseURL != "" {
		t.Errorf("--offline should clear the backend URL, got %q", cfg.API.BaseURL)
	}
	if newClient(cfg, nil, nil) != nil {
		t.Error("no client expected without a backend URL")
	}

	bad := flags{layout: "radial"}
	if err := bad.applyOverrides(&cfg); err == nil {
		t.Error("expected error for unknown layout")
	}
}

func TestPrintCatalog(t *testing.T) {
	var buf bytes.Buffer
	if err := printCatalog(&buf, catalog.Default(), "data"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "data-scientist") {
		t.Errorf("missing data-scientist:\n%s", out)
	}
	if strings.Contains(out, "react") {
		t.Errorf("react is not a data roadmap:\n%s", out)
	}

	if err := printCatalog(&buf, catalog.Default(), "cooking"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestExportRoadmap(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	for _, name := range []string{"chain.svg", "chain.png", "chain.md"} {
		path := filepath.Join(dir, name)
		r := testutil.NewDefault().Chain(4)
		if err := exportRoadmap(context.Background(), cfg, nil, r, path, ""); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}

	if err := exportRoadmap(context.Background(), cfg, nil, testutil.NewDefault().Chain(2), filepath.Join(dir, "x.svg"), "pdf"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
