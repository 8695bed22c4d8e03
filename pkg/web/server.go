// Package web serves the roadmap pages over HTTP for `sage --serve`: the
// browse page, roadmap pages with an inline SVG canvas and completion
// toggles, AI generation, login, and a small JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vanderheijden86/sage/internal/datasource"
	"github.com/vanderheijden86/sage/pkg/api"
	"github.com/vanderheijden86/sage/pkg/config"
	"github.com/vanderheijden86/sage/pkg/progress"
	"github.com/vanderheijden86/sage/pkg/search"
	"github.com/vanderheijden86/sage/pkg/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

//go:embed templates
var assets embed.FS

// Options wires the server to its data sources. Only Resolver is required.
type Options struct {
	Config   config.Config
	Resolver *datasource.Resolver
	// Client is nil when running without a backend; login is then disabled
	// and generation is always offline.
	Client   *api.Client
	Store    *session.Store
	Searcher *search.Searcher
	Logger   *log.Logger
	// RequestLog receives one line per request. Nil disables it.
	RequestLog io.Writer
}

// Server is the HTTP front end.
type Server struct {
	opts   Options
	tmpl   *template.Template
	router chi.Router
	logger *log.Logger

	// expired is raised by the API client's 401 hook and consumed by the
	// next page request, which redirects to the login page.
	expired atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	trackers map[string]*progress.Tracker
}

// New creates a Server and builds its routes.
func New(opts Options) (*Server, error) {
	if opts.Resolver == nil {
		opts.Resolver = datasource.NewResolver(nil, nil, nil)
	}
	if opts.Searcher == nil {
		var src search.Source
		if opts.Client != nil {
			src = opts.Client
		}
		opts.Searcher = search.New(src)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}

	tmpl, err := template.New("sage").
		Funcs(template.FuncMap{"percent": percentLabel}).
		ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:     opts,
		tmpl:     tmpl,
		logger:   opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		trackers: make(map[string]*progress.Tracker),
	}
	s.router = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.opts.RequestLog != nil {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  log.New(s.opts.RequestLog, "", log.LstdFlags),
			NoColor: true,
		}))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := s.opts.Config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.sessionGuard)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/static/sage.css", s.handleCSS)

	r.Get("/", s.handleBrowse)
	r.Get("/mine", s.handleMine)

	r.Get("/roadmap", s.handleRoadmap)
	r.Get("/roadmap.svg", s.handleSnapshot("svg"))
	r.Get("/roadmap.png", s.handleSnapshot("png"))
	r.Get("/roadmap.md", s.handleSnapshot("md"))
	r.Post("/roadmap/progress", s.handleProgress)

	r.Get("/generate", s.handleGenerateForm)
	r.Post("/generate", s.handleGenerate)

	r.Get("/login", s.handleAuthForm(false))
	r.Post("/login", s.handleAuth(false))
	r.Get("/register", s.handleAuthForm(true))
	r.Post("/register", s.handleAuth(true))
	r.Post("/logout", s.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Get("/browse", s.handleAPIBrowse)
		r.Get("/roadmap", s.handleAPIRoadmap)
		r.Get("/resources", s.handleAPIResources)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Unauthorized is an api.WithOnUnauthorized hook. Cached completion state
// belongs to the expired session, so it is dropped along with any writes
// still in flight.
func (s *Server) Unauthorized() {
	s.expired.Store(true)
	for _, t := range s.dropTrackers() {
		t.Close()
	}
}

// sessionGuard sends the first request after a session expiry to the login
// page.
func (s *Server) sessionGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		exempt := p == "/healthz" || strings.HasPrefix(p, "/static/") ||
			strings.HasPrefix(p, "/login") || strings.HasPrefix(p, "/register")
		if !exempt && s.redirectIfExpired(w, r) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) redirectIfExpired(w http.ResponseWriter, r *http.Request) bool {
	if !s.expired.CompareAndSwap(true, false) {
		return false
	}
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": api.ErrUnauthorized.Error()})
		return true
	}
	http.Redirect(w, r, "/login?expired=1", http.StatusSeeOther)
	return true
}

// tracker returns the shared completion tracker for a roadmap, creating it
// on first use. Trackers outlive requests so toggles stay visible while
// their background writes are in flight.
func (s *Server) tracker(res *datasource.Resolved) *progress.Tracker {
	key := progress.Key(res.Roadmap)
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.trackers[key]; ok {
		return t
	}
	t := progress.New(s.ctx, res.Roadmap, res.Persister)
	t.SetLogger(s.logger)
	t.OnError(func(nodeID string, err error) {
		if errors.Is(err, api.ErrUnauthorized) {
			s.Unauthorized()
		}
	})
	s.trackers[key] = t
	return t
}

// dropTrackers empties the tracker cache and returns what it held. The
// next request for a roadmap resolves its completion state again.
func (s *Server) dropTrackers() []*progress.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*progress.Tracker, 0, len(s.trackers))
	for _, t := range s.trackers {
		out = append(out, t)
	}
	s.trackers = make(map[string]*progress.Tracker)
	return out
}

// flushTrackers drops the cache after letting pending writes finish under
// the current session.
func (s *Server) flushTrackers() {
	for _, t := range s.dropTrackers() {
		t.Wait()
		t.Close()
	}
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.opts.Config.Server.Listen
	if addr == "" {
		addr = config.DefaultConfig().Server.Listen
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Printf("serving on http://%s", addr)

	select {
	case err := <-errc:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdown)
		s.Close()
		return err
	}
}

// Close waits for pending progress writes and releases the trackers.
func (s *Server) Close() {
	s.flushTrackers()
	s.cancel()
}
