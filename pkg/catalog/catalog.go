// Package catalog serves the predefined roadmaps compiled into the binary.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/vanderheijden86/sage/pkg/model"

	"gopkg.in/yaml.v3"
)

//go:embed roadmaps.yaml
var embedded []byte

// AllCategory is the browse filter that matches every roadmap.
const AllCategory = "all"

// Category is a browse filter.
type Category struct {
	Slug  string `yaml:"slug"`
	Title string `yaml:"title"`
}

type entry struct {
	model.Roadmap `yaml:",inline"`
	Summary       string `yaml:"summary"`
}

type document struct {
	Categories []Category `yaml:"categories"`
	NotFound   struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
	} `yaml:"not_found"`
	Roadmaps []entry `yaml:"roadmaps"`
}

// Catalog is an immutable set of roadmaps keyed by slug. Lookups return
// copies, so callers may lay out and mutate them freely.
type Catalog struct {
	categories []Category
	entries    []entry
	bySlug     map[string]int
	notFound   model.Roadmap
}

// Parse builds a Catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	c := &Catalog{
		categories: doc.Categories,
		bySlug:     make(map[string]int, len(doc.Roadmaps)),
		notFound: model.Roadmap{
			Title:       doc.NotFound.Title,
			Description: doc.NotFound.Description,
			Nodes:       []model.Node{},
			Edges:       []model.Edge{},
		},
	}
	if c.notFound.Title == "" {
		c.notFound.Title = "Roadmap Not Found"
	}
	for i, e := range doc.Roadmaps {
		if e.Slug == "" {
			return nil, fmt.Errorf("catalog entry %d has no slug", i)
		}
		if _, dup := c.bySlug[e.Slug]; dup {
			return nil, fmt.Errorf("catalog slug %q is defined twice", e.Slug)
		}
		if err := e.Roadmap.Validate(); err != nil {
			return nil, fmt.Errorf("catalog roadmap %q: %w", e.Slug, err)
		}
		e.Roadmap.Normalize()
		c.bySlug[e.Slug] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return Parse(embedded)
})

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		// The embedded file is covered by tests; failing here is a build defect.
		panic(err)
	}
	return c
}

// Lookup returns a copy of the roadmap for slug.
func (c *Catalog) Lookup(slug string) (*model.Roadmap, bool) {
	i, ok := c.bySlug[strings.TrimSpace(slug)]
	if !ok {
		return nil, false
	}
	return c.entries[i].Roadmap.Clone(), true
}

// Resolve returns the roadmap for slug, or the not-found placeholder.
func (c *Catalog) Resolve(slug string) *model.Roadmap {
	if r, ok := c.Lookup(slug); ok {
		return r
	}
	return c.NotFound()
}

// NotFound returns the placeholder shown for unknown slugs. It has no nodes.
func (c *Catalog) NotFound() *model.Roadmap {
	return c.notFound.Clone()
}

// Categories returns the browse filters, starting with All.
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

// CategoryTitle returns the display title of a category slug.
func (c *Catalog) CategoryTitle(slug string) string {
	for _, cat := range c.categories {
		if cat.Slug == slug {
			return cat.Title
		}
	}
	if slug == "" {
		return "General"
	}
	return strings.ToUpper(slug[:1]) + slug[1:]
}

// Summaries lists catalog roadmaps in the given category ("" or "all" for
// every roadmap), in catalog order.
func (c *Catalog) Summaries(category string) []model.Summary {
	var out []model.Summary
	for _, e := range c.entries {
		if category != "" && category != AllCategory && e.Category != category {
			continue
		}
		out = append(out, model.Summary{
			Slug:        e.Slug,
			Title:       e.Title,
			Description: e.Summary,
			Category:    e.Category,
		})
	}
	return out
}

// Group is one category section of the browse page.
type Group struct {
	Category string
	Title    string
	Items    []model.Summary
}

// GroupByCategory buckets summaries by category. Known categories come first
// in filter order; unknown ones follow in order of first appearance.
func (c *Catalog) GroupByCategory(items []model.Summary) []Group {
	buckets := make(map[string][]model.Summary)
	var order []string
	for _, it := range items {
		cat := it.Category
		if cat == "" {
			cat = "general"
		}
		if _, seen := buckets[cat]; !seen {
			order = append(order, cat)
		}
		buckets[cat] = append(buckets[cat], it)
	}

	var groups []Group
	used := make(map[string]bool)
	for _, cat := range c.categories {
		if items, ok := buckets[cat.Slug]; ok {
			groups = append(groups, Group{Category: cat.Slug, Title: cat.Title, Items: items})
			used[cat.Slug] = true
		}
	}
	for _, cat := range order {
		if used[cat] {
			continue
		}
		groups = append(groups, Group{Category: cat, Title: c.CategoryTitle(cat), Items: buckets[cat]})
	}
	return groups
}
