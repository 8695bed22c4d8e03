package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

// EntryDelegate renders browse entries, with a section heading above the
// first entry of each group.
type EntryDelegate struct {
	Theme Theme
}

func (d EntryDelegate) Height() int { return 3 }

func (d EntryDelegate) Spacing() int { return 0 }

func (d EntryDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d EntryDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	it, ok := listItem.(EntryItem)
	if !ok {
		return
	}
	t := d.Theme
	width := m.Width() - 4
	if width < 20 {
		width = 20
	}

	heading := ""
	if it.First {
		heading = t.MutedTxt.Render(runewidth.Truncate("── "+it.Group+" ", width, ""))
	}
	title := runewidth.Truncate(it.Title(), width, "…")
	desc := runewidth.Truncate(it.Description(), width, "…")

	if index == m.Index() {
		title = t.Selected.Render(title)
		desc = t.Selected.UnsetBold().Foreground(t.Subtext).Render(desc)
	} else {
		title = "  " + t.Title.Render(title)
		desc = "  " + t.Status.Render(desc)
	}
	fmt.Fprintf(w, "%s\n%s\n%s", heading, title, desc)
}
