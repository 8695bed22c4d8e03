package watcher

import (
	"context"
	"sync"

	"github.com/vanderheijden86/sage/pkg/loader"
	"github.com/vanderheijden86/sage/pkg/model"
)

// Update is the outcome of one reload. Exactly one of Roadmap and Err is set.
type Update struct {
	Roadmap  *model.Roadmap
	Warnings []string
	Err      error
}

// Reloader parses a roadmap file after every change a Watcher reports.
type Reloader struct {
	w       *Watcher
	mu      sync.Mutex
	closed  bool
	updates chan Update
}

// NewReloader watches path. Watch errors such as removal are delivered as
// updates too.
func NewReloader(path string, opts ...Option) (*Reloader, error) {
	r := &Reloader{updates: make(chan Update, 1)}
	opts = append(opts, WithOnError(func(err error) { r.push(Update{Err: err}) }))
	w, err := New(path, opts...)
	if err != nil {
		return nil, err
	}
	r.w = w
	return r, nil
}

// Load parses the file once, without waiting for a change.
func (r *Reloader) Load() Update {
	var u Update
	rm, err := loader.LoadFileWithOptions(r.w.Path(), loader.ParseOptions{
		WarningHandler: func(msg string) { u.Warnings = append(u.Warnings, msg) },
	})
	if err != nil {
		return Update{Err: err}
	}
	u.Roadmap = rm
	return u
}

// Start watches until ctx is canceled. Updates is closed when the watch ends.
func (r *Reloader) Start(ctx context.Context) error {
	if err := r.w.Start(ctx); err != nil {
		return err
	}
	go func() {
		defer r.close()
		defer r.w.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.w.Changed():
				r.push(r.Load())
			}
		}
	}()
	return nil
}

// Updates delivers reload results. Only the newest unread update is kept.
func (r *Reloader) Updates() <-chan Update { return r.updates }

// Watcher exposes the underlying watcher.
func (r *Reloader) Watcher() *Watcher { return r.w }

func (r *Reloader) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.updates)
	}
}

// push replaces any unread update with u.
func (r *Reloader) push(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case <-r.updates:
	default:
	}
	r.updates <- u
}
