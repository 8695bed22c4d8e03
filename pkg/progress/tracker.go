// Package progress tracks which nodes of a roadmap the learner has finished.
//
// Updates are optimistic: the local set changes immediately and persistence
// runs in the background without retry. A failed write is logged and
// reported through the error hook; the local state is kept.
package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"sync"

	"github.com/vanderheijden86/sage/pkg/debug"
	"github.com/vanderheijden86/sage/pkg/model"
)

// ErrUnknownNode is returned when toggling an id that is not on the roadmap.
var ErrUnknownNode = errors.New("unknown node")

// Persister stores a single node's completion state.
type Persister interface {
	UpdateNodeProgress(ctx context.Context, roadmapID, nodeID string, completed bool) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, roadmapID, nodeID string, completed bool) error

// UpdateNodeProgress calls f.
func (f PersisterFunc) UpdateNodeProgress(ctx context.Context, roadmapID, nodeID string, completed bool) error {
	return f(ctx, roadmapID, nodeID, completed)
}

// Multi writes to every persister in turn and joins their errors.
func Multi(ps ...Persister) Persister {
	return PersisterFunc(func(ctx context.Context, roadmapID, nodeID string, completed bool) error {
		var errs []error
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.UpdateNodeProgress(ctx, roadmapID, nodeID, completed); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Status is a node's visual completion state.
type Status int

const (
	Pending Status = iota
	InProgress
	Done
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return "in-progress"
	case Done:
		return "done"
	default:
		return "pending"
	}
}

// Key returns the id progress is stored under: the roadmap's id, or its
// catalog slug for roadmaps that have no id.
func Key(r *model.Roadmap) string {
	if r == nil {
		return ""
	}
	if r.ID != "" {
		return r.ID
	}
	if r.Slug != "" {
		return "topic:" + r.Slug
	}
	return ""
}

// Tracker holds the completed set of one roadmap view.
type Tracker struct {
	mu    sync.Mutex
	key   string
	order []string
	known map[string]bool
	done  map[string]bool

	persister Persister
	logger    *log.Logger
	onError   func(nodeID string, err error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Tracker seeded with r.Completed, ignoring ids not on the
// roadmap. Background writes are bound to ctx; Close cancels them. p may be
// nil for a view that is never persisted.
func New(ctx context.Context, r *model.Roadmap, p Persister) *Tracker {
	if r == nil {
		r = &model.Roadmap{}
	}
	ctx, cancel := context.WithCancel(ctx)
	t := &Tracker{
		key:       Key(r),
		known:     make(map[string]bool, len(r.Nodes)),
		done:      make(map[string]bool, len(r.Completed)),
		persister: p,
		logger:    log.New(io.Discard, "", 0),
		onError:   func(string, error) {},
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, n := range r.Nodes {
		if t.known[n.ID] {
			continue
		}
		t.known[n.ID] = true
		t.order = append(t.order, n.ID)
	}
	for _, id := range r.Completed {
		if t.known[id] {
			t.done[id] = true
		}
	}
	return t
}

// SetLogger sets where persistence failures are logged.
func (t *Tracker) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	t.mu.Lock()
	t.logger = l
	t.mu.Unlock()
}

// OnError registers a hook for persistence failures. It runs on the
// background goroutine and is not called after Close.
func (t *Tracker) OnError(fn func(nodeID string, err error)) {
	if fn == nil {
		fn = func(string, error) {}
	}
	t.mu.Lock()
	t.onError = fn
	t.mu.Unlock()
}

// Key returns the storage key of the tracked roadmap.
func (t *Tracker) Key() string { return t.key }

// Toggle flips a node's completion and returns the new state.
func (t *Tracker) Toggle(id string) (bool, error) {
	t.mu.Lock()
	if !t.known[id] {
		t.mu.Unlock()
		return false, fmt.Errorf("toggle %q: %w", id, ErrUnknownNode)
	}
	completed := !t.done[id]
	t.setLocked(id, completed)
	t.mu.Unlock()

	t.persist(id, completed)
	return completed, nil
}

// Set marks a node complete or incomplete. Setting the current state is a
// no-op and is not persisted.
func (t *Tracker) Set(id string, completed bool) error {
	t.mu.Lock()
	if !t.known[id] {
		t.mu.Unlock()
		return fmt.Errorf("set %q: %w", id, ErrUnknownNode)
	}
	if t.done[id] == completed {
		t.mu.Unlock()
		return nil
	}
	t.setLocked(id, completed)
	t.mu.Unlock()

	t.persist(id, completed)
	return nil
}

func (t *Tracker) setLocked(id string, completed bool) {
	if completed {
		t.done[id] = true
	} else {
		delete(t.done, id)
	}
}

func (t *Tracker) persist(id string, completed bool) {
	if t.persister == nil || t.key == "" || t.ctx.Err() != nil {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		err := t.persister.UpdateNodeProgress(t.ctx, t.key, id, completed)
		if err == nil {
			return
		}
		if t.ctx.Err() != nil {
			// The view is gone; nobody is left to tell.
			return
		}
		t.mu.Lock()
		logger, hook := t.logger, t.onError
		t.mu.Unlock()
		logger.Printf("progress: saving %s/%s failed: %v", t.key, id, err)
		debug.Log("progress: saving %s/%s failed: %v", t.key, id, err)
		hook(id, err)
	}()
}

// IsDone reports whether a node is complete.
func (t *Tracker) IsDone(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done[id]
}

// Status returns a node's visual state.
func (t *Tracker) Status(id string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done[id] {
		return Done
	}
	if id != "" && id == t.inProgressLocked() {
		return InProgress
	}
	return Pending
}

// InProgress returns the first incomplete node whose predecessor in display
// order is complete, or "" when there is none.
func (t *Tracker) InProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inProgressLocked()
}

func (t *Tracker) inProgressLocked() string {
	for i := 1; i < len(t.order); i++ {
		if !t.done[t.order[i]] && t.done[t.order[i-1]] {
			return t.order[i]
		}
	}
	return ""
}

// Completed returns completed ids in display order.
func (t *Tracker) Completed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.done))
	for _, id := range t.order {
		if t.done[id] {
			out = append(out, id)
		}
	}
	return out
}

// Counts returns completed and total node counts.
func (t *Tracker) Counts() (done, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.done), len(t.order)
}

// Percent returns completion rounded to a whole percent.
func (t *Tracker) Percent() int {
	done, total := t.Counts()
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// Wait blocks until every background write has finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Close cancels background writes. Results arriving afterwards are dropped.
func (t *Tracker) Close() {
	t.cancel()
}
