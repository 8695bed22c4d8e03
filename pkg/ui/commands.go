package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vanderheijden86/sage/internal/datasource"
	"github.com/vanderheijden86/sage/pkg/api"
	"github.com/vanderheijden86/sage/pkg/debug"
	"github.com/vanderheijden86/sage/pkg/export"
	"github.com/vanderheijden86/sage/pkg/generate"
	"github.com/vanderheijden86/sage/pkg/hooks"
	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/search"
	"github.com/vanderheijden86/sage/pkg/session"
	"github.com/vanderheijden86/sage/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

// Every async result carries the view generation it was started under.
// Navigating bumps the generation, so results for a page that is no longer
// shown are dropped instead of overwriting the current one.

type browseLoadedMsg struct {
	gen     uint64
	listing *datasource.Listing
	err     error
}

type roadmapLoadedMsg struct {
	gen      uint64
	resolved *datasource.Resolved
	err      error
}

type generatedMsg struct {
	gen     uint64
	id      string
	roadmap *model.Roadmap
	offline bool
	err     error
}

type authDoneMsg struct {
	gen  uint64
	user *model.User
	err  error
}

type loggedOutMsg struct{ err error }

type resourcesMsg struct {
	gen    uint64
	nodeID string
	result search.Result
	err    error
}

type exportedMsg struct {
	path    string
	summary string // hook results, empty without hooks
	err     error
}

type progressFailedMsg struct {
	key    string
	nodeID string
	err    error
}

type unauthorizedMsg struct{}

type fileReloadedMsg struct{ update watcher.Update }

type clearStatusMsg struct{ seq int }

// Bus carries messages produced outside the program loop, such as failed
// background progress writes and session expiry, into Update.
type Bus struct {
	ch chan tea.Msg
}

// NewBus creates a Bus.
func NewBus() *Bus {
	return &Bus{ch: make(chan tea.Msg, 32)}
}

// Send queues msg. When the queue is full the message is dropped.
func (b *Bus) Send(msg tea.Msg) {
	if b == nil {
		return
	}
	select {
	case b.ch <- msg:
	default:
		debug.Log("ui: bus full, dropping %T", msg)
	}
}

// Unauthorized is an api.WithOnUnauthorized hook.
func (b *Bus) Unauthorized() { b.Send(unauthorizedMsg{}) }

// wait delivers the next queued message.
func (b *Bus) wait() tea.Cmd {
	if b == nil {
		return nil
	}
	return func() tea.Msg { return <-b.ch }
}

func browseCmd(ctx context.Context, gen uint64, r *datasource.Resolver, category string) tea.Cmd {
	return func() tea.Msg {
		l, err := r.Browse(ctx, category)
		return browseLoadedMsg{gen: gen, listing: l, err: err}
	}
}

func resolveCmd(ctx context.Context, gen uint64, r *datasource.Resolver, q datasource.Query) tea.Cmd {
	return func() tea.Msg {
		res, err := r.Resolve(ctx, q)
		return roadmapLoadedMsg{gen: gen, resolved: res, err: err}
	}
}

// generateCmd asks the backend for a roadmap. A network failure, or no
// backend at all, falls back to the offline generator. The result is cached
// in the session store either way.
func generateCmd(ctx context.Context, gen uint64, client *api.Client, store *session.Store, req generate.Request) tea.Cmd {
	return func() tea.Msg {
		rm, offline, err := client.GenerateOrOffline(ctx, req)
		if err != nil {
			return generatedMsg{gen: gen, err: err}
		}
		id := rm.ID
		if store != nil {
			if id, err = store.CacheGenerated(rm); err != nil {
				return generatedMsg{gen: gen, err: fmt.Errorf("caching roadmap: %w", err)}
			}
		}
		return generatedMsg{gen: gen, id: id, roadmap: rm, offline: offline}
	}
}

func loginCmd(ctx context.Context, gen uint64, client *api.Client, req api.LoginRequest) tea.Cmd {
	return func() tea.Msg {
		u, err := client.Login(ctx, req)
		return authDoneMsg{gen: gen, user: u, err: err}
	}
}

func registerCmd(ctx context.Context, gen uint64, client *api.Client, req api.RegisterRequest) tea.Cmd {
	return func() tea.Msg {
		u, err := client.Register(ctx, req)
		return authDoneMsg{gen: gen, user: u, err: err}
	}
}

func logoutCmd(ctx context.Context, client *api.Client) tea.Cmd {
	return func() tea.Msg {
		return loggedOutMsg{err: client.Logout(ctx)}
	}
}

func searchCmd(ctx context.Context, gen uint64, s *search.Searcher, nodeID, topic string) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Search(ctx, topic)
		return resourcesMsg{gen: gen, nodeID: nodeID, result: res, err: err}
	}
}

// exportCmd writes a snapshot, running any configured export hooks around it.
func exportCmd(ctx context.Context, opts export.Options, cfg *hooks.Config) tea.Cmd {
	return func() tea.Msg {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return exportedMsg{err: err}
		}
		if cfg.Empty() {
			return exportedMsg{path: opts.Path, err: export.Save(opts)}
		}
		ex := hooks.NewExecutor(cfg, hooks.NewExportContext(opts))
		err := ex.Around(ctx, func() error { return export.Save(opts) })
		return exportedMsg{path: opts.Path, summary: ex.Summary(), err: err}
	}
}

// watchFileCmd waits for the next reload of a --file roadmap.
func watchFileCmd(r *watcher.Reloader) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-r.Updates()
		if !ok {
			return nil
		}
		return fileReloadedMsg{update: u}
	}
}

func clearStatusCmd(seq int) tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} })
}

// errorText turns an error into the message shown in the status line.
func errorText(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
