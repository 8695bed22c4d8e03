// Package watcher follows a roadmap file on disk and reloads it when an
// editor saves it.
//
// fsnotify is used where the filesystem delivers events. Network and FUSE
// mounts, or SAGE_FORCE_POLL=1, switch to stat polling.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is how often polling mode stats the file.
const DefaultPollInterval = 2 * time.Second

// ForcePollEnv forces polling when set to a truthy value.
const ForcePollEnv = "SAGE_FORCE_POLL"

var (
	ErrFileRemoved    = errors.New("roadmap file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a change is reported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithPollInterval sets the polling period.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithOnChange registers a callback run after each debounced change.
func WithOnChange(fn func()) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithOnError registers a callback for watch errors.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// WithForcePoll skips fsnotify.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// stamp is what polling compares between ticks.
type stamp struct {
	mtime time.Time
	size  int64
}

func (s stamp) exists() bool { return !s.mtime.IsZero() }

func statStamp(path string) (stamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return stamp{}, err
	}
	return stamp{mtime: info.ModTime(), size: info.Size()}, nil
}

// Watcher reports changes to a single file.
type Watcher struct {
	path         string
	debounce     time.Duration
	pollInterval time.Duration
	forcePoll    bool
	onChange     func()
	onError      func(error)

	mu        sync.RWMutex
	running   bool
	polling   bool
	fsType    FilesystemType
	last      stamp
	cancel    context.CancelFunc
	notify    *fsnotify.Watcher
	debouncer *Debouncer
	changed   chan struct{}
}

// New creates a Watcher for path. Nothing is watched until Start.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:         abs,
		debounce:     DefaultDebounceDuration,
		pollInterval: DefaultPollInterval,
		changed:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounce)
	return w, nil
}

// Start begins watching. The watch ends when ctx is canceled or Stop is
// called. A file that does not exist yet is not an error; its creation is
// reported as a change.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrAlreadyStarted
	}

	st, err := statStamp(w.path)
	if err != nil && os.IsPermission(err) {
		return ErrPermission
	}
	w.last = st

	w.fsType = DetectFilesystemType(w.path)
	w.polling = w.forcePoll || envBool(ForcePollEnv) || isRemoteFilesystem(w.fsType)

	ctx, w.cancel = context.WithCancel(ctx)
	if !w.polling {
		if nw, err := w.openNotify(); err == nil {
			w.notify = nw
			go w.runNotify(ctx, nw)
		} else {
			w.polling = true
		}
	}
	if w.polling {
		go w.runPoll(ctx)
	}
	w.running = true
	return nil
}

// openNotify watches the parent directory so atomic rename-over saves are
// seen.
func (w *Watcher) openNotify() (*fsnotify.Watcher, error) {
	nw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := nw.Add(filepath.Dir(w.path)); err != nil {
		nw.Close()
		return nil, err
	}
	return nw, nil
}

// Stop ends the watch. Changed is left open so a receiver blocked on it is
// not woken with a spurious change.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.cancel()
	if w.notify != nil {
		w.notify.Close()
		w.notify = nil
	}
	w.debouncer.Cancel()
	w.running = false
}

// IsPolling reports whether the watch runs on stat polling.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.polling
}

// IsStarted reports whether the watch is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Changed receives once per debounced change. Changes that arrive while a
// previous one is unread are merged.
func (w *Watcher) Changed() <-chan struct{} { return w.changed }

// Path returns the absolute watched path.
func (w *Watcher) Path() string { return w.path }

// FilesystemType returns the classification made by Start.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// PollInterval returns the polling period.
func (w *Watcher) PollInterval() time.Duration { return w.pollInterval }

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

func (w *Watcher) runNotify(ctx context.Context, nw *fsnotify.Watcher) {
	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-nw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			switch {
			case ev.Has(fsnotify.Remove):
				w.fail(ErrFileRemoved)
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create), ev.Has(fsnotify.Rename):
				w.debouncer.Trigger(w.fire)
			}
		case err, ok := <-nw.Errors:
			if !ok {
				return
			}
			w.fail(err)
		}
	}
}

func (w *Watcher) runPoll(ctx context.Context) {
	t := time.NewTicker(w.pollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		st, err := statStamp(w.path)
		w.mu.Lock()
		prev := w.last
		if err == nil {
			w.last = st
		} else if os.IsNotExist(err) {
			w.last = stamp{}
		}
		w.mu.Unlock()

		switch {
		case os.IsNotExist(err):
			if prev.exists() {
				w.fail(ErrFileRemoved)
			}
		case os.IsPermission(err):
			w.fail(ErrPermission)
		case err != nil:
			w.fail(err)
		case st.mtime.After(prev.mtime) || st.size != prev.size:
			w.debouncer.Trigger(w.fire)
		}
	}
}

func (w *Watcher) fail(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}

func (w *Watcher) fire() {
	if !w.IsStarted() {
		return
	}
	if w.onChange != nil {
		w.onChange()
	}
	select {
	case w.changed <- struct{}{}:
	default:
	}
}
