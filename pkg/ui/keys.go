package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap lists every binding. Page-specific bindings are enabled and
// disabled as the page changes so the help footer only shows what works.
type keyMap struct {
	Browse   key.Binding
	Mine     key.Binding
	Generate key.Binding
	Login    key.Binding
	Register key.Binding
	Logout   key.Binding
	Help     key.Binding
	Quit     key.Binding
	Back     key.Binding

	Open     key.Binding
	Category key.Binding
	Refresh  key.Binding

	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	ZoomReset key.Binding
	PanLeft   key.Binding
	PanRight  key.Binding
	PanUp     key.Binding
	PanDown   key.Binding
	Layout    key.Binding
	Connector key.Binding
	Export    key.Binding
	Sidebar   key.Binding
	FAQ       key.Binding
	Search    key.Binding
	Copy      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Browse:   key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "official roadmaps")),
		Mine:     key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "my roadmaps")),
		Generate: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "create with AI")),
		Login:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "login")),
		Register: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "register")),
		Logout:   key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "logout")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),

		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Category: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next category")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),

		Up:        key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "prev topic")),
		Down:      key.NewBinding(key.WithKeys("j"), key.WithHelp("j", "next topic")),
		Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle done")),
		ZoomIn:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
		ZoomReset: key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset zoom")),
		PanLeft:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "pan")),
		PanRight:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "pan")),
		PanUp:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "pan")),
		PanDown:   key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "pan")),
		Layout:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "cycle layout")),
		Connector: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cycle connectors")),
		Export:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export svg")),
		Sidebar:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "topics")),
		FAQ:       key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "FAQ")),
		Search:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "search resources")),
		Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy link")),
	}
}

// pageKeys is the help.KeyMap for one page.
type pageKeys struct {
	short []key.Binding
	full  [][]key.Binding
}

func (p pageKeys) ShortHelp() []key.Binding  { return p.short }
func (p pageKeys) FullHelp() [][]key.Binding { return p.full }

func (k keyMap) forPage(p page, loggedIn bool) pageKeys {
	account := []key.Binding{k.Login, k.Register}
	if loggedIn {
		account = []key.Binding{k.Logout}
	}
	nav := append([]key.Binding{k.Browse, k.Mine, k.Generate}, account...)

	switch p {
	case pageRoadmap:
		canvas := []key.Binding{k.ZoomIn, k.ZoomOut, k.ZoomReset, k.PanLeft, k.PanRight, k.PanUp, k.PanDown}
		topics := []key.Binding{k.Up, k.Down, k.Open, k.Toggle, k.Search, k.Copy, k.Sidebar, k.FAQ}
		view := []key.Binding{k.Layout, k.Connector, k.Export, k.Back, k.Help}
		return pageKeys{
			short: []key.Binding{k.Toggle, k.Open, k.ZoomIn, k.ZoomOut, k.Layout, k.Back, k.Help},
			full:  [][]key.Binding{topics, canvas, view, nav},
		}
	case pageBrowse, pageMine:
		list := []key.Binding{k.Open, k.Category, k.Refresh, k.Quit, k.Help}
		return pageKeys{
			short: []key.Binding{k.Open, k.Category, k.Generate, k.Quit, k.Help},
			full:  [][]key.Binding{list, nav},
		}
	default:
		return pageKeys{
			short: []key.Binding{k.Back},
			full:  [][]key.Binding{{k.Back}},
		}
	}
}
