package datasource

import (
	"context"

	"github.com/vanderheijden86/sage/pkg/catalog"
	"github.com/vanderheijden86/sage/pkg/debug"
	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/session"

	"golang.org/x/sync/errgroup"
)

// Entry is one clickable row of the browse page.
type Entry struct {
	model.Summary
	Query Query
	// Percent is set for saved roadmaps that report progress.
	Percent int
}

// Listing is everything the browse page shows.
type Listing struct {
	Category string
	Groups   []catalog.Group
	// Offline is set when the official listing came from the catalog
	// because the backend failed.
	Offline bool
	Mine    []Entry
	// Generated lists cached AI generations, newest first.
	Generated []Entry
	Warnings  []error
}

// Browse loads the official listing, the user's saved roadmaps and the
// local generation history concurrently. Failures degrade the listing and
// are reported in Warnings; Browse only returns an error when ctx is done.
func (r *Resolver) Browse(ctx context.Context, category string) (*Listing, error) {
	if category == "" {
		category = catalog.AllCategory
	}
	out := &Listing{Category: category}

	var (
		official                      []model.Summary
		mine                          []model.Roadmap
		history                       []session.Generation
		officialErr, mineErr, histErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	if r.remote != nil {
		g.Go(func() error {
			official, officialErr = r.remote.ListRoadmaps(gctx, category)
			return nil
		})
		if r.remote.LoggedIn() {
			g.Go(func() error {
				mine, mineErr = r.remote.UserRoadmaps(gctx)
				return nil
			})
		}
	}
	if r.local != nil {
		g.Go(func() error {
			history, histErr = r.local.History()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.remote == nil || officialErr != nil || len(official) == 0 {
		if officialErr != nil {
			r.logger.Printf("datasource: official listing: %v", officialErr)
			debug.Log("datasource: official listing failed, using catalog: %v", officialErr)
			out.Warnings = append(out.Warnings, officialErr)
		}
		official = r.catalog.Summaries(category)
		out.Offline = r.remote != nil
	}
	out.Groups = r.catalog.GroupByCategory(official)

	if mineErr != nil {
		r.logger.Printf("datasource: user roadmaps: %v", mineErr)
		out.Warnings = append(out.Warnings, mineErr)
	}
	for _, rm := range mine {
		out.Mine = append(out.Mine, Entry{
			Summary: model.Summary{ID: rm.ID, Title: rm.Title, Description: rm.Description, Category: rm.Category},
			Query:   SavedQuery(rm.ID),
			Percent: rm.Progress,
		})
	}

	if histErr != nil {
		r.logger.Printf("datasource: generation history: %v", histErr)
		out.Warnings = append(out.Warnings, histErr)
	}
	for _, h := range history {
		out.Generated = append(out.Generated, Entry{
			Summary: model.Summary{ID: h.ID, Title: h.Title, Description: h.Topic},
			Query:   AIQuery(h.ID),
		})
	}
	return out, nil
}

// EntryQuery returns the query that opens a catalog or backend summary.
// Official summaries open by slug; those without one open by saved id.
func EntryQuery(s model.Summary) Query {
	if s.Slug != "" {
		return TopicQuery(s.Slug)
	}
	return SavedQuery(s.ID)
}
