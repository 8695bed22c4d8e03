package ui

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/sage/internal/datasource"
)

// EntryItem wraps a browse entry to implement list.Item.
type EntryItem struct {
	Entry datasource.Entry
	// Group is the section title shown before the first item of a section.
	Group string
	First bool
}

func (i EntryItem) Title() string { return i.Entry.Title }

func (i EntryItem) Description() string {
	if i.Entry.Query.Saved && i.Entry.Percent > 0 {
		return fmt.Sprintf("%s • %d%% complete", i.Entry.Description, i.Entry.Percent)
	}
	return i.Entry.Description
}

func (i EntryItem) FilterValue() string {
	var sb strings.Builder
	sb.WriteString(i.Entry.Title)
	sb.WriteString(" ")
	sb.WriteString(i.Entry.Description)
	sb.WriteString(" ")
	sb.WriteString(i.Entry.Category)
	sb.WriteString(" ")
	sb.WriteString(i.Group)
	return sb.String()
}

// officialItems flattens the grouped official listing.
func officialItems(l *datasource.Listing) []EntryItem {
	if l == nil {
		return nil
	}
	var items []EntryItem
	for _, g := range l.Groups {
		for i, s := range g.Items {
			items = append(items, EntryItem{
				Entry: datasource.Entry{Summary: s, Query: datasource.EntryQuery(s)},
				Group: g.Title,
				First: i == 0,
			})
		}
	}
	return items
}

// mineItems lists saved roadmaps followed by cached AI generations.
func mineItems(l *datasource.Listing) []EntryItem {
	if l == nil {
		return nil
	}
	var items []EntryItem
	for i, e := range l.Mine {
		items = append(items, EntryItem{Entry: e, Group: "Saved roadmaps", First: i == 0})
	}
	for i, e := range l.Generated {
		items = append(items, EntryItem{Entry: e, Group: "Generated with AI", First: i == 0})
	}
	return items
}
