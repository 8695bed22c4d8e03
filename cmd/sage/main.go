package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/vanderheijden86/sage/internal/datasource"
	"github.com/vanderheijden86/sage/pkg/api"
	"github.com/vanderheijden86/sage/pkg/catalog"
	"github.com/vanderheijden86/sage/pkg/config"
	"github.com/vanderheijden86/sage/pkg/connector"
	"github.com/vanderheijden86/sage/pkg/debug"
	"github.com/vanderheijden86/sage/pkg/export"
	"github.com/vanderheijden86/sage/pkg/hooks"
	"github.com/vanderheijden86/sage/pkg/layout"
	"github.com/vanderheijden86/sage/pkg/loader"
	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/search"
	"github.com/vanderheijden86/sage/pkg/session"
	"github.com/vanderheijden86/sage/pkg/ui"
	"github.com/vanderheijden86/sage/pkg/version"
	"github.com/vanderheijden86/sage/pkg/watcher"
	"github.com/vanderheijden86/sage/pkg/web"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// flags holds everything parsed from the command line.
type flags struct {
	configPath string
	file       string
	exportPath string
	format     string
	serve      bool
	listen     string
	list       bool
	category   string
	offline    bool
	noHooks    bool
	debugLog   string

	topic string
	saved bool
	ai    bool
	id    string
	query string

	layout    string
	connector string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("sage", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&f.configPath, "config", "", "Config file (default: ~/.config/sage/config.yaml)")
	fs.StringVar(&f.file, "file", "", "Open a local roadmap file (YAML or JSON) and reload it on change")
	fs.StringVar(&f.exportPath, "export", "", "Write the roadmap to a .svg, .png or .md file and exit")
	fs.StringVar(&f.format, "format", "", "Export format: svg, png or md (default: from --export extension)")
	fs.BoolVar(&f.serve, "serve", false, "Serve the web interface instead of the TUI")
	fs.StringVar(&f.listen, "listen", "", "Address for --serve (default: server.listen)")
	fs.BoolVar(&f.list, "list", false, "Print the catalog roadmaps and exit")
	fs.StringVar(&f.category, "category", catalog.AllCategory, "Category for --list: all, frontend, backend, fullstack, devops, data")
	fs.BoolVar(&f.offline, "offline", false, "Do not contact the backend")
	fs.BoolVar(&f.noHooks, "no-hooks", false, "Skip export hooks from hooks.yaml")
	fs.StringVar(&f.debugLog, "debug-log", "", "Write debug output to this file (implies SAGE_DEBUG)")
	fs.StringVar(&f.topic, "topic", "", "Open a catalog roadmap by slug")
	fs.BoolVar(&f.saved, "saved", false, "Open a saved roadmap (requires --id)")
	fs.BoolVar(&f.ai, "ai", false, "Open a generated roadmap (requires --id)")
	fs.StringVar(&f.id, "id", "", "Roadmap id for --saved or --ai")
	fs.StringVar(&f.query, "query", "", "Roadmap query string, e.g. \"topic=react\" or \"ai=true&id=...\"")
	fs.StringVar(&f.layout, "layout", "", "Layout strategy: hierarchical or serpentine")
	fs.StringVar(&f.connector, "connector", "", "Connector style: pipe or curve")
	help := fs.Bool("help", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if *help {
		fs.SetOutput(os.Stdout)
		fmt.Println("Usage: sage [options]")
		fmt.Println("\nBrowse, generate and track career roadmaps.")
		fs.PrintDefaults()
		os.Exit(0)
	}
	if *showVersion {
		fmt.Printf("sage %s\n", version.Version)
		os.Exit(0)
	}
	if fs.NArg() > 0 {
		return f, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if (f.saved || f.ai) && f.id == "" {
		return f, errors.New("--saved and --ai require --id")
	}
	if f.file != "" && f.serve {
		return f, errors.New("--file cannot be combined with --serve")
	}
	return f, nil
}

// roadmapQuery builds the startup query from --query or the individual
// source flags.
func (f flags) roadmapQuery() (datasource.Query, error) {
	if f.query != "" {
		return datasource.ParseQuery(f.query)
	}
	q := datasource.Query{Topic: strings.TrimSpace(f.topic), Saved: f.saved, AI: f.ai, ID: f.id}
	return q, nil
}

// applyOverrides folds --layout and --connector into cfg.
func (f flags) applyOverrides(cfg *config.Config) error {
	if f.layout != "" {
		s, err := layout.ParseStrategy(f.layout)
		if err != nil {
			return err
		}
		cfg.Layout.Strategy = string(s)
	}
	if f.connector != "" {
		s, err := connector.ParseStyle(f.connector)
		if err != nil {
			return err
		}
		cfg.Connector.Style = string(s)
	}
	if f.listen != "" {
		cfg.Server.Listen = f.listen
	}
	if f.offline {
		cfg.API.BaseURL = ""
	}
	return nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\nRun 'sage --help' for usage.\n", err)
		os.Exit(2)
	}
	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	if f.debugLog != "" {
		out, err := os.OpenFile(f.debugLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening debug log: %w", err)
		}
		defer out.Close()
		debug.SetOutput(out)
		debug.SetEnabled(true)
	}

	var cfg config.Config
	var cfgErr error
	if f.configPath != "" {
		cfg, cfgErr = config.LoadFrom(f.configPath)
	} else {
		cfg, cfgErr = config.Load()
	}
	if cfgErr != nil {
		// Non-fatal: invalid values were already replaced with defaults.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", cfgErr)
	}
	if err := f.applyOverrides(&cfg); err != nil {
		return err
	}
	debug.Section("sage " + version.Version)
	debug.Dump("config", cfg)

	if f.list {
		return printCatalog(os.Stdout, catalog.Default(), f.category)
	}

	q, err := f.roadmapQuery()
	if err != nil {
		return err
	}

	var hookCfg *hooks.Config
	if !f.noHooks {
		loaded, warnings, err := hooks.Load(hooks.DefaultPath())
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}
		hookCfg = loaded
	}

	if f.file != "" && f.exportPath != "" {
		r, err := loader.LoadFileWithOptions(f.file, loader.ParseOptions{
			WarningHandler: func(msg string) { fmt.Fprintf(os.Stderr, "Warning: %s\n", msg) },
		})
		if err != nil {
			return err
		}
		return exportRoadmap(context.Background(), cfg, hookCfg, r, f.exportPath, f.format)
	}

	storePath := cfg.SessionPath()
	if storePath == "" {
		storePath = session.DefaultPath()
	}
	store, err := session.Open(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case f.serve:
		return serve(ctx, cfg, store)
	case f.exportPath != "":
		if q.IsZero() {
			return errors.New("--export needs --file, --topic, --query or --saved/--ai with --id")
		}
		client := newClient(cfg, store, nil)
		res, err := newResolver(client, store).Resolve(ctx, q)
		if err != nil {
			return err
		}
		for _, skipped := range res.Skipped {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", skipped)
		}
		if res.NotFound() {
			return fmt.Errorf("roadmap not found: %s", q)
		}
		return exportRoadmap(ctx, cfg, hookCfg, res.Roadmap, f.exportPath, f.format)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the TUI needs a terminal; use --export, --list or --serve")
	}
	return runTUI(ctx, cfg, store, hookCfg, q, f.file)
}

// newClient returns nil when no backend is configured.
func newClient(cfg config.Config, store *session.Store, onUnauthorized func()) *api.Client {
	if cfg.API.BaseURL == "" {
		return nil
	}
	opts := []api.Option{api.WithCredentials(store)}
	if cfg.API.TimeoutSeconds > 0 {
		opts = append(opts, api.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		}))
	}
	if onUnauthorized != nil {
		opts = append(opts, api.WithOnUnauthorized(onUnauthorized))
	}
	return api.New(cfg.API.BaseURL, opts...)
}

// newResolver keeps the Remote interface nil when there is no client, so the
// resolver skips backend sources instead of calling a nil pointer.
func newResolver(client *api.Client, store *session.Store) *datasource.Resolver {
	var remote datasource.Remote
	if client != nil {
		remote = client
	}
	r := datasource.NewResolver(catalog.Default(), remote, store)
	if debug.Enabled() {
		r.SetLogger(debug.Logger())
	}
	return r
}

func newSearcher(client *api.Client) *search.Searcher {
	var src search.Source
	if client != nil {
		src = client
	}
	return search.New(src)
}

func runTUI(ctx context.Context, cfg config.Config, store *session.Store, hookCfg *hooks.Config, q datasource.Query, file string) error {
	bus := ui.NewBus()
	client := newClient(cfg, store, bus.Unauthorized)

	opts := ui.Options{
		Config:   cfg,
		Resolver: newResolver(client, store),
		Client:   client,
		Store:    store,
		Searcher: newSearcher(client),
		Bus:      bus,
		Query:    q,
		Hooks:    hookCfg,
	}

	if file != "" {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		rl, err := watcher.NewReloader(abs)
		if err != nil {
			return err
		}
		first := rl.Load()
		if first.Err != nil {
			return first.Err
		}
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := rl.Start(watchCtx); err != nil {
			// Live reload is optional; the roadmap is already loaded.
			debug.Log("file watch disabled: %v", err)
		} else {
			opts.Reloader = rl
		}
		opts.Roadmap = first.Roadmap
	}

	m := ui.New(opts)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if fm, ok := final.(ui.Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func serve(ctx context.Context, cfg config.Config, store *session.Store) error {
	logger := log.New(os.Stderr, "sage: ", log.LstdFlags)

	// The server is created after the client, so the hook forwards through
	// a variable set once the server exists.
	var srv *web.Server
	client := newClient(cfg, store, func() {
		if srv != nil {
			srv.Unauthorized()
		}
	})

	var err error
	srv, err = web.New(web.Options{
		Config:     cfg,
		Resolver:   newResolver(client, store),
		Client:     client,
		Store:      store,
		Searcher:   newSearcher(client),
		Logger:     logger,
		RequestLog: os.Stderr,
	})
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}

// exportRoadmap lays out r with the configured strategy and writes it,
// running export hooks around the write.
func exportRoadmap(ctx context.Context, cfg config.Config, hookCfg *hooks.Config, r *model.Roadmap, path, format string) error {
	engine := cfg.LayoutEngine()
	result := engine.Apply(r)
	if result.FellBack {
		fmt.Fprintf(os.Stderr, "Warning: %s layout failed, used %s\n", engine.Strategy(), result.Strategy)
	}
	opts := export.Options{
		Path:     path,
		Format:   format,
		Roadmap:  r,
		Geometry: engine.Geometry(),
		Paths:    cfg.Router().Route(r),
		Subtitle: fmt.Sprintf("%s layout", result.Strategy),
	}
	if hookCfg.Empty() {
		if err := export.Save(opts); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	}

	ex := hooks.NewExecutor(hookCfg, hooks.NewExportContext(opts))
	err := ex.Around(ctx, func() error { return export.Save(opts) })
	for _, res := range ex.Results() {
		if res.Stdout != "" {
			fmt.Printf("[%s] %s\n", res.Hook.Name, res.Stdout)
		}
	}
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%s)\n", path, ex.Summary())
	return nil
}

func printCatalog(w io.Writer, cat *catalog.Catalog, category string) error {
	if category == "" {
		category = catalog.AllCategory
	}
	known := false
	for _, c := range cat.Categories() {
		if c.Slug == category {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown category %q", category)
	}
	for _, g := range cat.GroupByCategory(cat.Summaries(category)) {
		fmt.Fprintf(w, "%s\n", g.Title)
		for _, s := range g.Items {
			fmt.Fprintf(w, "  %-20s %s\n", s.Slug, s.Title)
		}
	}
	return nil
}
