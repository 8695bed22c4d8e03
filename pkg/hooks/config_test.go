package hooks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeHooks(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, warnings, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if !cfg.Empty() || len(warnings) != 0 {
		t.Errorf("cfg=%+v warnings=%v", cfg, warnings)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeHooks(t, `
hooks:
  pre-export:
    - name: validate
      command: echo validating
      timeout: 5s
    - command: "   "
  post-export:
    - command: echo done
      timeout: 2
      env:
        CUSTOM_VAR: value
    - name: odd
      command: "true"
      on_error: retry
`)
	cfg, warnings, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	pre := cfg.For(PreExport)
	if len(pre) != 1 {
		t.Fatalf("empty command should be dropped, got %d pre hooks", len(pre))
	}
	if pre[0].Timeout != 5*time.Second || pre[0].OnError != OnErrorFail {
		t.Errorf("pre hook = %+v", pre[0])
	}

	post := cfg.For(PostExport)
	if len(post) != 2 {
		t.Fatalf("post hooks = %d", len(post))
	}
	if post[0].Name != "post-export-1" || post[0].Timeout != 2*time.Second || post[0].OnError != OnErrorContinue {
		t.Errorf("post hook = %+v", post[0])
	}
	if post[0].Env["CUSTOM_VAR"] != "value" {
		t.Errorf("env = %v", post[0].Env)
	}
	if post[1].OnError != OnErrorFail {
		t.Errorf("unknown on_error should fall back to fail, got %q", post[1].OnError)
	}
	if len(warnings) != 2 {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	path := writeHooks(t, "hooks:\n  pre-export:\n    - command: echo\n      timeout: soon\n")
	_, _, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "invalid timeout") {
		t.Fatalf("err = %v", err)
	}
}

func TestDefaultPathUsesConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultPath(); got != filepath.Join("/tmp/xdg", "sage", FileName) {
		t.Errorf("DefaultPath = %q", got)
	}
}
