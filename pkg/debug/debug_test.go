package debug

import (
	"bytes"
	"strings"
	"testing"
)

func TestLog_WritesOnlyWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(false)
	Log("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("disabled logger wrote %q", buf.String())
	}

	SetEnabled(true)
	defer SetEnabled(false)
	Log("visible %d", 2)
	Section("load")
	if !strings.Contains(buf.String(), "visible 2") {
		t.Errorf("missing message in %q", buf.String())
	}
	if !strings.Contains(buf.String(), "=== load ===") {
		t.Errorf("missing section in %q", buf.String())
	}
	if !strings.HasPrefix(buf.String(), prefix) {
		t.Errorf("missing prefix in %q", buf.String())
	}
}

func TestLogger_SilentWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(false)
	Logger().Printf("nothing")
	if buf.Len() != 0 {
		t.Errorf("silent logger wrote %q", buf.String())
	}
}

func TestAssert_Panics(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(true)
	defer SetEnabled(false)

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Assert(false, "boom")
}
