// Package ui is the terminal front end: browse page, roadmap canvas with
// detail panel and topic list, AI generation and login forms, framed by the
// CareerSage header and footer.
package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanderheijden86/sage/internal/datasource"
	"github.com/vanderheijden86/sage/pkg/api"
	"github.com/vanderheijden86/sage/pkg/catalog"
	"github.com/vanderheijden86/sage/pkg/config"
	"github.com/vanderheijden86/sage/pkg/debug"
	"github.com/vanderheijden86/sage/pkg/hooks"
	"github.com/vanderheijden86/sage/pkg/interact"
	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/search"
	"github.com/vanderheijden86/sage/pkg/session"
	"github.com/vanderheijden86/sage/pkg/watcher"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

type page int

const (
	pageBrowse page = iota
	pageMine
	pageRoadmap
	pageGenerate
	pageLogin
)

func (p page) String() string {
	switch p {
	case pageMine:
		return "mine"
	case pageRoadmap:
		return "roadmap"
	case pageGenerate:
		return "generate"
	case pageLogin:
		return "login"
	default:
		return "browse"
	}
}

func parsePage(s string) page {
	switch s {
	case "mine":
		return pageMine
	case "generate":
		return pageGenerate
	default:
		return pageBrowse
	}
}

// Chrome heights in rows.
const (
	headerRows = 2
	footerRows = 1
	statusRows = 1
	helpRows   = 1
	titleRows  = 2
)

const (
	brand         = "CareerSage"
	copyright     = "© 2025 CareerSage. All rights reserved."
	expiredBanner = "Your session has expired. Please log in again."
)

const closeGrace = 3 * time.Second

// Options wires the model to its data sources. Only Resolver is required.
type Options struct {
	Config   config.Config
	Resolver *datasource.Resolver
	// Client is nil when running without a backend.
	Client   *api.Client
	Store    *session.Store
	Searcher *search.Searcher
	Bus      *Bus

	// Query opens a roadmap at startup.
	Query datasource.Query
	// Roadmap and Reloader are set in local file mode.
	Roadmap  *model.Roadmap
	Reloader *watcher.Reloader

	// ExportDir receives `e` exports. Empty uses the XDG state directory.
	ExportDir string
	// Hooks run around each export. Nil runs none.
	Hooks *hooks.Config
}

// Model is the application state. Everything async reports back through
// messages tagged with gen; see commands.go.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options

	theme Theme
	keys  keyMap
	help  help.Model
	spin  spinner.Model
	list  list.Model

	width, height int

	page     page
	returnTo page
	gen      uint64
	loading  bool
	showHelp bool

	status    string
	statusErr bool
	statusSeq int
	banner    string

	user       *model.User
	listing    *datasource.Listing
	categories []catalog.Category
	category   int

	pendingQuery datasource.Query
	view         *roadmapView
	genForm      *generateForm
	auth         *authForm
}

// New creates the model.
func New(opts Options) Model {
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
	if opts.ExportDir == "" {
		opts.ExportDir = filepath.Join(config.StateDir(), "exports")
	}
	ctx, cancel := context.WithCancel(context.Background())

	theme := DefaultTheme(lipgloss.DefaultRenderer())
	l := list.New(nil, EntryDelegate{Theme: theme}, 80, 20)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.DisableQuitKeybindings()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = theme.Brand

	m := Model{
		ctx:        ctx,
		cancel:     cancel,
		opts:       opts,
		theme:      theme,
		keys:       defaultKeys(),
		help:       help.New(),
		spin:       sp,
		list:       l,
		width:      100,
		height:     30,
		categories: opts.Resolver.Catalog().Categories(),
		page:       parsePage(opts.Config.UI.DefaultPage),
	}
	if opts.Store != nil {
		m.user = opts.Store.User()
	}
	return m
}

// Init starts the first page.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, m.opts.Bus.wait()}
	switch {
	case m.opts.Roadmap != nil:
		cmds = append(cmds, func() tea.Msg {
			return roadmapLoadedMsg{gen: 0, resolved: &datasource.Resolved{
				Source:  datasource.SourceFile,
				Roadmap: m.opts.Roadmap,
			}}
		})
		if m.opts.Reloader != nil {
			cmds = append(cmds, watchFileCmd(m.opts.Reloader))
		}
	case !m.opts.Query.IsZero():
		q := m.opts.Query
		cmds = append(cmds, func() tea.Msg { return openQueryMsg{query: q} })
	default:
		p := m.page
		cmds = append(cmds, func() tea.Msg { return navigateMsg{page: p} })
	}
	return tea.Batch(cmds...)
}

type openQueryMsg struct{ query datasource.Query }

type navigateMsg struct{ page page }

// Close gives pending completion writes of the open roadmap a few seconds
// to land, then releases the view and cancels in-flight requests.
func (m Model) Close() {
	if m.view != nil && m.view.tracker != nil {
		done := make(chan struct{})
		go func() {
			m.view.tracker.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(closeGrace):
		}
	}
	m.view.close()
	m.cancel()
}

func (m Model) loggedIn() bool { return m.user != nil }

func (m Model) currentCategory() string {
	if m.category < 0 || m.category >= len(m.categories) {
		return catalog.AllCategory
	}
	return m.categories[m.category].Slug
}

// leave bumps the view generation and drops page state that must not
// outlive the page.
func (m *Model) leave() {
	m.gen++
	m.loading = false
	if m.page == pageRoadmap && m.view != nil {
		m.view.close()
		m.view = nil
	}
}

func (m *Model) goTo(p page) tea.Cmd {
	if p != pageLogin && p != pageGenerate {
		m.returnTo = p
	}
	m.leave()
	m.page = p
	debug.Log("ui: page %s (gen %d)", p, m.gen)

	switch p {
	case pageBrowse, pageMine:
		m.loading = true
		m.resize()
		return browseCmd(m.ctx, m.gen, m.opts.Resolver, m.currentCategory())
	case pageGenerate:
		m.genForm = newGenerateForm(m.width)
		return m.genForm.form.Init()
	case pageLogin:
		return nil
	}
	return nil
}

func (m *Model) openAuth(mode authMode) tea.Cmd {
	if m.opts.Client == nil {
		return m.setStatus("No backend configured; login is unavailable.", true)
	}
	cmd := m.goTo(pageLogin)
	m.auth = newAuthForm(mode, m.width)
	return tea.Batch(cmd, m.auth.form.Init())
}

func (m *Model) openQuery(q datasource.Query) tea.Cmd {
	m.leave()
	m.page = pageRoadmap
	m.pendingQuery = q
	m.loading = true
	debug.Log("ui: open %s (gen %d)", q, m.gen)
	return resolveCmd(m.ctx, m.gen, m.opts.Resolver, q)
}

func (m *Model) setStatus(s string, isErr bool) tea.Cmd {
	m.status, m.statusErr = s, isErr
	m.statusSeq++
	return clearStatusCmd(m.statusSeq)
}

func (m *Model) resize() {
	m.help.Width = m.width
	h := m.height - headerRows - footerRows - statusRows - helpRows - 1
	m.list.SetSize(m.width, max(h, 3))
	if m.view != nil && m.view.ctrl.SelectedNode() != nil {
		_, _, _, ch := m.canvasRect()
		m.view.refreshPanel(panelWidth, ch)
	}
}

// canvasRect is the canvas position and size in terminal cells.
func (m Model) canvasRect() (x, y, w, h int) {
	y = headerRows + titleRows
	h = m.height - y - statusRows - helpRows - footerRows
	w = m.width
	if m.view != nil && m.view.showSidebar {
		x = sidebarWidth
		w -= sidebarWidth
	}
	if m.view != nil && (m.view.ctrl.SelectedNode() != nil || m.view.showFAQ) {
		w -= panelWidth
	}
	return x, y, max(w, 0), max(h, 0)
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Forms need every message type, not just keys, to advance fields.
	if (m.page == pageGenerate || m.page == pageLogin) && !isAsyncResult(msg) {
		if km, ok := msg.(tea.KeyMsg); ok {
			switch km.String() {
			case "ctrl+c":
				m.Close()
				return m, tea.Quit
			case "esc":
				return m, m.goTo(m.returnTo)
			}
		}
		if _, ok := msg.(tea.WindowSizeMsg); !ok {
			return m.updateForm(msg)
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)

	case navigateMsg:
		cmds = append(cmds, m.goTo(msg.page))

	case openQueryMsg:
		cmds = append(cmds, m.openQuery(msg.query))

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}

	case browseLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			cmds = append(cmds, m.setStatus(errorText(msg.err), true))
			break
		}
		m.listing = msg.listing
		m.refreshList()
		if msg.listing.Offline {
			cmds = append(cmds, m.setStatus("Backend unavailable, showing built-in roadmaps.", true))
		}

	case roadmapLoadedMsg:
		if msg.gen != m.gen {
			debug.Log("ui: dropping stale roadmap result (gen %d, now %d)", msg.gen, m.gen)
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			cmds = append(cmds, m.setStatus(errorText(msg.err), true))
			break
		}
		m.showRoadmap(msg.resolved)

	case fileReloadedMsg:
		cmds = append(cmds, watchFileCmd(m.opts.Reloader))
		if msg.update.Err != nil {
			cmds = append(cmds, m.setStatus("Reload failed: "+msg.update.Err.Error(), true))
			break
		}
		if m.page != pageRoadmap {
			break
		}
		m.leave()
		m.pendingQuery = datasource.Query{}
		m.showRoadmap(&datasource.Resolved{Source: datasource.SourceFile, Roadmap: msg.update.Roadmap})
		status := "Reloaded " + msg.update.Roadmap.Title
		if n := len(msg.update.Warnings); n > 0 {
			status += fmt.Sprintf(" (%d warning(s))", n)
		}
		cmds = append(cmds, m.setStatus(status, false))

	case generatedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			cmds = append(cmds, m.setStatus(errorText(msg.err), true))
			break
		}
		if msg.offline {
			cmds = append(cmds, m.setStatus("Backend unreachable, generated an offline roadmap.", true))
		}
		if m.opts.Store != nil {
			cmds = append(cmds, m.openQuery(datasource.AIQuery(msg.id)))
			break
		}
		m.leave()
		m.pendingQuery = datasource.AIQuery(msg.id)
		m.showRoadmap(&datasource.Resolved{Source: datasource.SourceAI, Roadmap: msg.roadmap})

	case authDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			mode := authLogin
			if m.auth != nil {
				mode = m.auth.mode
			}
			m.auth = newAuthForm(mode, m.width)
			cmds = append(cmds, m.auth.form.Init(), m.setStatus(errorText(msg.err), true))
			break
		}
		m.user = msg.user
		m.banner = ""
		cmds = append(cmds, m.goTo(m.returnTo), m.setStatus("Welcome, "+msg.user.FirstName()+"!", false))

	case loggedOutMsg:
		m.user = nil
		if msg.err != nil {
			debug.Log("ui: logout: %v", msg.err)
		}
		cmds = append(cmds, m.setStatus("Logged out.", false))
		if m.page == pageMine || m.page == pageBrowse {
			cmds = append(cmds, m.goTo(m.page))
		}

	case unauthorizedMsg:
		m.user = nil
		m.banner = expiredBanner
		cmds = append(cmds, m.opts.Bus.wait())
		if m.page != pageLogin && m.opts.Client != nil {
			debug.Log("ui: session expired on %s page", m.page)
			cmds = append(cmds, m.openAuth(authLogin))
		}

	case progressFailedMsg:
		cmds = append(cmds, m.opts.Bus.wait())
		if m.view != nil && m.view.tracker.Key() == msg.key {
			title := msg.nodeID
			if n := m.view.roadmap.Node(msg.nodeID); n != nil {
				title = n.Title
			}
			cmds = append(cmds, m.setStatus(fmt.Sprintf("Couldn't save progress for %q: %s", title, errorText(msg.err)), true))
		}

	case resourcesMsg:
		if msg.gen != m.gen || m.view == nil {
			return m, nil
		}
		v := m.view
		v.pending = ""
		v.searched[msg.nodeID] = true
		if msg.err != nil {
			cmds = append(cmds, m.setStatus(errorText(msg.err), true))
			break
		}
		v.found[msg.nodeID] = msg.result.Resources
		if msg.result.Fallback {
			cmds = append(cmds, m.setStatus("Resource search unavailable, showing search links.", true))
		}
		_, _, _, ch := m.canvasRect()
		v.refreshPanel(panelWidth, ch)

	case exportedMsg:
		if msg.err != nil {
			cmds = append(cmds, m.setStatus("Export failed: "+msg.err.Error(), true))
		} else {
			status := "Exported " + msg.path
			if msg.summary != "" {
				status += " · " + msg.summary
			}
			cmds = append(cmds, m.setStatus(status, false))
		}

	case tea.MouseMsg:
		if m.page == pageRoadmap && m.view != nil {
			cmds = append(cmds, m.handleMouse(msg))
		} else if m.page == pageBrowse || m.page == pageMine {
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))
	}

	return m, tea.Batch(cmds...)
}

// showRoadmap replaces the open view with a freshly laid out one.
func (m *Model) showRoadmap(res *datasource.Resolved) {
	m.page = pageRoadmap
	m.view.close()
	bus := m.opts.Bus
	m.view = newRoadmapView(m.ctx, m.opts.Config, res, m.pendingQuery, func(key, nodeID string, err error) {
		bus.Send(progressFailedMsg{key: key, nodeID: nodeID, err: err})
	})
	if res.NotFound() {
		m.view.showSidebar = false
	}
	m.resize()
}

func isAsyncResult(msg tea.Msg) bool {
	switch msg.(type) {
	case browseLoadedMsg, roadmapLoadedMsg, generatedMsg, authDoneMsg, loggedOutMsg,
		unauthorizedMsg, progressFailedMsg, resourcesMsg, exportedMsg, fileReloadedMsg,
		clearStatusMsg, spinner.TickMsg, navigateMsg, openQueryMsg:
		return true
	}
	return false
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	var form *huh.Form
	switch {
	case m.page == pageGenerate && m.genForm != nil:
		form = m.genForm.form
	case m.page == pageLogin && m.auth != nil:
		form = m.auth.form
	default:
		return m, nil
	}
	if m.loading {
		return m, nil
	}

	next, cmd := form.Update(msg)
	if f, ok := next.(*huh.Form); ok {
		form = f
	}
	switch form.State {
	case huh.StateAborted:
		return m, m.goTo(m.returnTo)
	case huh.StateCompleted:
		m.loading = true
		if m.page == pageGenerate {
			return m, generateCmd(m.ctx, m.gen, m.opts.Client, m.opts.Store, m.genForm.Request())
		}
		if m.auth.mode == authRegister {
			return m, registerCmd(m.ctx, m.gen, m.opts.Client, m.auth.registerRequest())
		}
		return m, loginCmd(m.ctx, m.gen, m.opts.Client, m.auth.loginRequest())
	}
	return m, cmd
}

func (m *Model) refreshList() {
	var entries []EntryItem
	if m.page == pageMine {
		entries = mineItems(m.listing)
	} else {
		entries = officialItems(m.listing)
	}
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = e
	}
	m.list.SetItems(items)
	m.list.ResetSelected()
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		m.Close()
		return tea.Quit
	}

	filtering := (m.page == pageBrowse || m.page == pageMine) && m.list.FilterState() == list.Filtering
	if !filtering {
		switch {
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
			return nil
		case key.Matches(msg, m.keys.Browse):
			return m.goTo(pageBrowse)
		case key.Matches(msg, m.keys.Mine):
			return m.goTo(pageMine)
		case key.Matches(msg, m.keys.Generate):
			return m.goTo(pageGenerate)
		case key.Matches(msg, m.keys.Login) && !m.loggedIn():
			return m.openAuth(authLogin)
		case key.Matches(msg, m.keys.Register) && !m.loggedIn():
			return m.openAuth(authRegister)
		case key.Matches(msg, m.keys.Logout) && m.loggedIn() && m.opts.Client != nil:
			return logoutCmd(m.ctx, m.opts.Client)
		}
	}

	switch m.page {
	case pageBrowse, pageMine:
		return m.handleBrowseKey(msg, filtering)
	case pageRoadmap:
		return m.handleRoadmapKey(msg)
	}
	return nil
}

func (m *Model) handleBrowseKey(msg tea.KeyMsg, filtering bool) tea.Cmd {
	if !filtering {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Close()
			return tea.Quit
		case key.Matches(msg, m.keys.Open):
			if it, ok := m.list.SelectedItem().(EntryItem); ok {
				return m.openQuery(it.Entry.Query)
			}
			return nil
		case key.Matches(msg, m.keys.Category) && m.page == pageBrowse:
			if len(m.categories) > 0 {
				m.category = (m.category + 1) % len(m.categories)
			}
			return m.goTo(pageBrowse)
		case key.Matches(msg, m.keys.Refresh):
			return m.goTo(m.page)
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

func (m *Model) handleRoadmapKey(msg tea.KeyMsg) tea.Cmd {
	v := m.view
	if v == nil {
		if key.Matches(msg, m.keys.Back) {
			return m.goTo(m.returnTo)
		}
		return nil
	}
	_, _, _, ch := m.canvasRect()
	pan := cellWidth * 4

	switch {
	case key.Matches(msg, m.keys.Back):
		switch {
		case v.ctrl.SelectedNode() != nil:
			v.ctrl.ClosePanel()
		case v.showFAQ:
			v.showFAQ = false
		default:
			return m.goTo(m.returnTo)
		}
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return tea.Quit
	case key.Matches(msg, m.keys.Up):
		v.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		v.moveCursor(1)
	case key.Matches(msg, m.keys.Open):
		if n := v.cursorNode(); n != nil {
			v.showFAQ = false
			v.ctrl.OpenPanel(n.ID)
			v.refreshPanel(panelWidth, ch)
		}
	case key.Matches(msg, m.keys.Toggle):
		return m.toggleCompletion()
	case key.Matches(msg, m.keys.ZoomIn):
		v.ctrl.ZoomIn()
	case key.Matches(msg, m.keys.ZoomOut):
		v.ctrl.ZoomOut()
	case key.Matches(msg, m.keys.ZoomReset):
		v.ctrl.ZoomReset()
	case key.Matches(msg, m.keys.PanLeft):
		v.ctrl.PanBy(pan, 0)
	case key.Matches(msg, m.keys.PanRight):
		v.ctrl.PanBy(-pan, 0)
	case key.Matches(msg, m.keys.PanUp):
		v.ctrl.PanBy(0, cellHeight*2)
	case key.Matches(msg, m.keys.PanDown):
		v.ctrl.PanBy(0, -cellHeight*2)
	case key.Matches(msg, m.keys.Layout):
		res := v.cycleLayout()
		status := "Layout: " + string(res.Strategy)
		if res.FellBack {
			status += " (graph has cycles, using serpentine)"
		}
		return m.setStatus(status, false)
	case key.Matches(msg, m.keys.Connector):
		return m.setStatus("Connectors: "+string(v.cycleConnector()), false)
	case key.Matches(msg, m.keys.Export):
		if v.roadmap.IsEmpty() {
			return m.setStatus("Nothing to export.", true)
		}
		path := filepath.Join(m.opts.ExportDir, v.exportName()+".svg")
		return exportCmd(m.ctx, v.exportOptions(path), m.opts.Hooks)
	case key.Matches(msg, m.keys.Sidebar):
		v.showSidebar = !v.showSidebar
		m.resize()
	case key.Matches(msg, m.keys.FAQ):
		v.ctrl.ClosePanel()
		v.showFAQ = !v.showFAQ
	case key.Matches(msg, m.keys.Search):
		n := v.ctrl.SelectedNode()
		if n == nil {
			n = v.cursorNode()
		}
		if n == nil || v.pending != "" {
			return nil
		}
		v.ctrl.OpenPanel(n.ID)
		v.pending = n.ID
		v.refreshPanel(panelWidth, ch)
		return searchCmd(m.ctx, m.gen, m.opts.Searcher, n.ID, n.Title)
	case key.Matches(msg, m.keys.Copy):
		link := v.resourceLink()
		if link == "" {
			return nil
		}
		if err := clipboard.WriteAll(link); err != nil {
			return m.setStatus("Clipboard unavailable: "+err.Error(), true)
		}
		return m.setStatus("Copied "+link, false)
	default:
		if v.ctrl.SelectedNode() != nil {
			switch msg.String() {
			case "pgup", "pgdown", "ctrl+u", "ctrl+d":
				var cmd tea.Cmd
				v.panel, cmd = v.panel.Update(msg)
				return cmd
			}
		}
	}
	return nil
}

// toggleCompletion flips the node in the detail panel, or the topic under
// the cursor. The change is shown at once; persistence happens in the
// background and failures arrive as progressFailedMsg.
func (m *Model) toggleCompletion() tea.Cmd {
	v := m.view
	n := v.ctrl.SelectedNode()
	if n == nil {
		n = v.cursorNode()
	}
	if n == nil {
		return nil
	}
	done, err := v.tracker.Toggle(n.ID)
	if err != nil {
		return m.setStatus(err.Error(), true)
	}
	if v.ctrl.SelectedNode() != nil {
		_, _, _, ch := m.canvasRect()
		v.refreshPanel(panelWidth, ch)
	}
	if done {
		return m.setStatus(fmt.Sprintf("Completed %q · %s", n.Title, v.summaryLine()), false)
	}
	return m.setStatus(fmt.Sprintf("Marked %q as not done · %s", n.Title, v.summaryLine()), false)
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	v := m.view
	cx, cy, cw, ch := m.canvasRect()

	if v.showSidebar && msg.X < sidebarWidth && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		row := msg.Y - headerRows - titleRows - 1
		if row >= 0 && row < len(v.roadmap.Nodes) {
			v.cursor = row
			v.ctrl.OpenPanel(v.roadmap.Nodes[row].ID)
			v.refreshPanel(panelWidth, ch)
		}
		return nil
	}

	inside := msg.X >= cx && msg.X < cx+cw && msg.Y >= cy && msg.Y < cy+ch
	p := cellToPoint(msg.X-cx, msg.Y-cy)

	switch {
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown:
		if !inside {
			return nil
		}
		dy := cellHeight * 3
		if msg.Button == tea.MouseButtonWheelUp {
			dy = -dy
		}
		v.ctrl.Wheel(dy, msg.Ctrl)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if inside {
			v.ctrl.PointerDown(p)
		}
	case msg.Action == tea.MouseActionMotion:
		v.ctrl.PointerMove(p)
	case msg.Action == tea.MouseActionRelease:
		ev := v.ctrl.PointerUp(p)
		if ev.Kind == interact.EventClick {
			v.showFAQ = false
			v.focusNode(ev.NodeID)
			_, _, _, ch = m.canvasRect()
			v.refreshPanel(panelWidth, ch)
		}
	}
	return nil
}

// View renders the whole screen.
func (m Model) View() string {
	var body string
	switch m.page {
	case pageRoadmap:
		body = m.viewRoadmap()
	case pageGenerate:
		body = m.viewForm("Create with AI", "Tell us what you want to learn and we'll build a personalized roadmap.", m.genFormView())
	case pageLogin:
		body = m.viewForm(m.authTitle(), "", m.authFormView())
	default:
		body = m.viewBrowse()
	}

	bodyHeight := m.height - headerRows - footerRows - statusRows - helpRows
	body = lipgloss.NewStyle().Height(max(bodyHeight, 1)).MaxHeight(max(bodyHeight, 1)).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewHeader(),
		body,
		m.viewStatus(),
		m.help.View(m.keys.forPage(m.page, m.loggedIn())),
		m.theme.Footer.Render(copyright),
	)
}

func (m Model) genFormView() string {
	if m.genForm == nil {
		return ""
	}
	return m.genForm.form.View()
}

func (m Model) authFormView() string {
	if m.auth == nil {
		return ""
	}
	return m.auth.form.View()
}

func (m Model) authTitle() string {
	if m.auth != nil {
		return m.auth.mode.String()
	}
	return "Login"
}

func (m Model) viewHeader() string {
	t := m.theme
	nav := []struct {
		label string
		on    bool
	}{
		{"Official Roadmaps", m.page == pageBrowse},
		{"My Roadmaps", m.page == pageMine},
		{"Create with AI", m.page == pageGenerate},
	}
	left := t.Brand.Render(brand) + "  "
	for _, n := range nav {
		if n.on {
			left += t.NavOn.Render(n.label)
		} else {
			left += t.NavItem.Render(n.label)
		}
	}

	var right string
	if m.user != nil {
		right = t.NavOn.Render(m.user.FirstName()) + t.NavItem.Render("Logout")
	} else {
		right = t.NavItem.Render("Login") + t.NavItem.Render("Register")
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	line := left + strings.Repeat(" ", max(gap, 1)) + right
	return t.Header.Width(m.width).Render(line)
}

func (m Model) viewStatus() string {
	switch {
	case m.loading:
		return m.spin.View() + " " + m.theme.Status.Render("Loading...")
	case m.status != "" && m.statusErr:
		return m.theme.Error.Render(m.status)
	case m.status != "":
		return m.theme.Status.Render(m.status)
	}
	return ""
}

func (m Model) viewBrowse() string {
	t := m.theme
	var head string
	if m.page == pageBrowse {
		var tabs []string
		for i, c := range m.categories {
			if i == m.category {
				tabs = append(tabs, t.NavOn.Render(c.Title))
			} else {
				tabs = append(tabs, t.NavItem.Render(c.Title))
			}
		}
		head = strings.Join(tabs, "")
	} else {
		head = t.Title.Render("My Roadmaps")
	}

	if m.page == pageMine && !m.loading && len(m.list.Items()) == 0 {
		msg := "You have no saved roadmaps yet. Press 3 to create one with AI."
		if !m.loggedIn() {
			msg = "Log in (L) to see your saved roadmaps, or press 3 to create one with AI."
		}
		return head + "\n" + t.MutedTxt.Render(msg)
	}
	return head + "\n" + m.list.View()
}

func (m Model) viewForm(title, subtitle, form string) string {
	t := m.theme
	var sb strings.Builder
	if m.banner != "" && m.page == pageLogin {
		sb.WriteString(t.Banner.Render(m.banner))
		sb.WriteString("\n\n")
	}
	sb.WriteString(t.Title.Render(title))
	sb.WriteString("\n")
	if subtitle != "" {
		sb.WriteString(t.MutedTxt.Render(subtitle))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	if m.loading {
		sb.WriteString(m.spin.View() + " Working...")
	} else {
		sb.WriteString(form)
	}
	return sb.String()
}

func (m Model) viewRoadmap() string {
	t := m.theme
	v := m.view
	if v == nil {
		return t.MutedTxt.Render("Loading roadmap...")
	}
	r := v.roadmap

	title := t.Title.Render(r.Title)
	if r.Description != "" {
		title += " " + t.MutedTxt.Render("· "+r.Description)
	}
	title = lipgloss.NewStyle().MaxWidth(m.width).Render(title)
	sub := t.Status.Render(v.summaryLine() + " · " + v.viewLine())
	if v.source == datasource.SourceAI || r.AIGenerated {
		sub += " " + t.Brand.Render("AI")
	}

	if v.source == datasource.SourceNotFound {
		return title + "\n\n" + t.MutedTxt.Render("Press 1 to browse the official roadmaps.")
	}

	_, _, cw, ch := m.canvasRect()
	var cols []string
	if v.showSidebar {
		cols = append(cols, lipgloss.NewStyle().Width(sidebarWidth).Height(ch).MaxHeight(ch).Render(v.renderSidebar(t, ch)))
	}
	cols = append(cols, renderCanvas(canvasScene{
		ctrl:     v.ctrl,
		status:   v.status,
		selected: v.ctrl.Selected(),
	}, t, cw, ch))

	switch {
	case v.ctrl.SelectedNode() != nil:
		cols = append(cols, t.Panel.Width(panelWidth-2).Height(ch-2).Render(v.panel.View()))
	case v.showFAQ:
		faq := v.faqContent(panelWidth - 4)
		cols = append(cols, t.Panel.Width(panelWidth-2).Height(ch-2).MaxHeight(ch).Render(faq))
	}

	return title + "\n" + sub + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}
