package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const roadmapV1 = `title: Go
nodes:
  - id: basics
    title: Basics
`

const roadmapV2 = `title: Go
nodes:
  - id: basics
    title: Basics
  - id: concurrency
    title: Concurrency
connections:
  - from: basics
    to: concurrency
`

func writeRoadmap(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roadmap.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func startWatcher(t *testing.T, path string, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(path, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
}

func TestDebouncer_RunsLatest(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var got atomic.Int32
	d.Trigger(func() { got.Store(1) })
	d.Trigger(func() { got.Store(2) })
	time.Sleep(100 * time.Millisecond)
	if got.Load() != 2 {
		t.Errorf("expected the last triggered function to run, got %d", got.Load())
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	d.Cancel()
	time.Sleep(100 * time.Millisecond)
	if called.Load() {
		t.Error("canceled function ran")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	if d := NewDebouncer(0); d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected %v, got %v", DefaultDebounceDuration, d.Duration())
	}
	if d := NewDebouncer(-time.Second); d.Duration() != DefaultDebounceDuration {
		t.Errorf("negative duration: expected %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	path := writeRoadmap(t, roadmapV1)
	var changed atomic.Bool
	startWatcher(t, path,
		WithDebounce(30*time.Millisecond),
		WithOnChange(func() { changed.Store(true) }),
	)

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte(roadmapV2), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "change callback", changed.Load)
}

func TestWatcher_Polling(t *testing.T) {
	path := writeRoadmap(t, roadmapV1)
	w := startWatcher(t, path,
		WithForcePoll(true),
		WithDebounce(10*time.Millisecond),
		WithPollInterval(25*time.Millisecond),
	)
	if !w.IsPolling() {
		t.Fatal("expected polling mode")
	}

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte(roadmapV2), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.Changed():
	case <-time.After(3 * time.Second):
		t.Fatal("polling did not report the change")
	}
}

func TestWatcher_EnvForcePoll(t *testing.T) {
	t.Setenv(ForcePollEnv, "yes")
	w := startWatcher(t, writeRoadmap(t, roadmapV1))
	if !w.IsPolling() {
		t.Fatalf("expected polling when %s is set", ForcePollEnv)
	}
}

func TestWatcher_RemoteFilesystemPolls(t *testing.T) {
	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(string) FilesystemType { return FSTypeNFS }
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	w := startWatcher(t, writeRoadmap(t, roadmapV1), WithPollInterval(25*time.Millisecond))
	if !w.IsPolling() {
		t.Fatal("expected polling on a network filesystem")
	}
	if got := w.FilesystemType(); got != FSTypeNFS {
		t.Fatalf("expected %v, got %v", FSTypeNFS, got)
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	path := writeRoadmap(t, roadmapV1)
	var (
		mu  sync.Mutex
		got error
	)
	startWatcher(t, path,
		WithForcePoll(true),
		WithPollInterval(25*time.Millisecond),
		WithOnError(func(err error) {
			mu.Lock()
			got = err
			mu.Unlock()
		}),
	)

	time.Sleep(50 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "removal error", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return errors.Is(got, ErrFileRemoved)
	})
}

func TestWatcher_MissingFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.yaml")
	w := startWatcher(t, path, WithForcePoll(true), WithPollInterval(25*time.Millisecond), WithDebounce(10*time.Millisecond))

	if err := os.WriteFile(path, []byte(roadmapV1), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.Changed():
	case <-time.After(3 * time.Second):
		t.Fatal("creation was not reported")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	w, err := New(writeRoadmap(t, roadmapV1))
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("started before Start")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !w.IsStarted() {
		t.Error("not started after Start")
	}
	if err := w.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	w.Stop()
	if w.IsStarted() {
		t.Error("still started after Stop")
	}
	w.Stop()
}

func TestWatcher_PathAndInterval(t *testing.T) {
	path := writeRoadmap(t, roadmapV1)
	w, err := New(path, WithPollInterval(500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	abs, _ := filepath.Abs(path)
	if w.Path() != abs {
		t.Errorf("expected %s, got %s", abs, w.Path())
	}
	if w.PollInterval() != 500*time.Millisecond {
		t.Errorf("unexpected poll interval %v", w.PollInterval())
	}

	w, _ = New(path, WithPollInterval(0))
	if w.PollInterval() != DefaultPollInterval {
		t.Errorf("zero interval should keep the default, got %v", w.PollInterval())
	}
}

func TestFilesystemType_String(t *testing.T) {
	tests := []struct {
		fs   FilesystemType
		want string
	}{
		{FSTypeUnknown, "unknown"},
		{FSTypeLocal, "local"},
		{FSTypeNFS, "nfs"},
		{FSTypeSMB, "smb"},
		{FSTypeSSHFS, "sshfs"},
		{FSTypeFUSE, "fuse"},
		{FilesystemType(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.fs.String(); got != tc.want {
			t.Errorf("FilesystemType(%d).String() = %q, want %q", tc.fs, got, tc.want)
		}
	}
}

func TestIsRemoteFilesystem(t *testing.T) {
	for _, fs := range []FilesystemType{FSTypeNFS, FSTypeSMB, FSTypeSSHFS, FSTypeFUSE} {
		if !isRemoteFilesystem(fs) {
			t.Errorf("%v should poll", fs)
		}
	}
	for _, fs := range []FilesystemType{FSTypeUnknown, FSTypeLocal} {
		if isRemoteFilesystem(fs) {
			t.Errorf("%v should not poll", fs)
		}
	}
}

func TestEnvBool(t *testing.T) {
	tests := map[string]bool{
		"1": true, "true": true, "TRUE": true, "yes": true, "Y": true, "on": true, " on ": true,
		"0": false, "false": false, "no": false, "": false, "maybe": false,
	}
	for value, want := range tests {
		t.Run(value, func(t *testing.T) {
			t.Setenv("SAGE_TEST_BOOL", value)
			if got := envBool("SAGE_TEST_BOOL"); got != want {
				t.Errorf("envBool(%q) = %v, want %v", value, got, want)
			}
		})
	}
}

func TestDetectFilesystemType(t *testing.T) {
	if got := DetectFilesystemType(""); got != FSTypeUnknown {
		t.Errorf("empty path: got %v", got)
	}
	dir := t.TempDir()
	// Missing files are classified by their directory.
	if a, b := DetectFilesystemType(filepath.Join(dir, "nope", "x.yaml")), DetectFilesystemType(dir); a != b {
		t.Errorf("missing path classified %v, its directory %v", a, b)
	}
}

func TestReloader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadmap.yaml")
	body := roadmapV2 + "  - from: basics\n    to: ghost\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := NewReloader(path)
	if err != nil {
		t.Fatal(err)
	}
	u := r.Load()
	if u.Err != nil {
		t.Fatal(u.Err)
	}
	if len(u.Roadmap.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(u.Roadmap.Nodes))
	}
	if len(u.Warnings) != 1 || !strings.Contains(u.Warnings[0], "missing nodes") {
		t.Errorf("expected a dangling connection warning, got %v", u.Warnings)
	}
}

func TestReloader_DeliversUpdates(t *testing.T) {
	path := writeRoadmap(t, roadmapV1)
	r, err := NewReloader(path,
		WithForcePoll(true),
		WithPollInterval(25*time.Millisecond),
		WithDebounce(10*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte(roadmapV2), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case u := <-r.Updates():
		if u.Err != nil {
			t.Fatal(u.Err)
		}
		if len(u.Roadmap.Nodes) != 2 {
			t.Errorf("expected the reloaded roadmap, got %d nodes", len(u.Roadmap.Nodes))
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no update")
	}

	if err := os.WriteFile(path, []byte("nodes: [}"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case u := <-r.Updates():
		if u.Err == nil {
			t.Error("expected a parse error")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no update for the broken file")
	}

	cancel()
	waitFor(t, "updates to close", func() bool {
		select {
		case _, ok := <-r.Updates():
			return !ok
		default:
			return false
		}
	})
}
