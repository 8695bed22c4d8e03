package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/vanderheijden86/sage/pkg/catalog"
	"github.com/vanderheijden86/sage/pkg/debug"
	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/progress"
	"github.com/vanderheijden86/sage/pkg/session"
)

// Remote is the part of the backend client the resolver and browse loader
// need.
type Remote interface {
	UserRoadmap(ctx context.Context, id string) (*model.Roadmap, error)
	ListRoadmaps(ctx context.Context, category string) ([]model.Summary, error)
	UserRoadmaps(ctx context.Context) ([]model.Roadmap, error)
	LoggedIn() bool
	progress.Persister
}

// Local is the part of the session store the resolver and browse loader
// need.
type Local interface {
	Generated(id string) (*model.Roadmap, error)
	History() ([]session.Generation, error)
	Completed(roadmapKey string) ([]string, error)
	progress.Persister
}

// Resolved is the outcome of resolving a Query.
type Resolved struct {
	Source  SourceType
	Roadmap *model.Roadmap
	// Persister receives completion changes for this roadmap.
	Persister progress.Persister
	// Skipped holds the reason each higher-priority source was passed over.
	Skipped []error
}

// NotFound reports whether resolution ended at the placeholder.
func (r *Resolved) NotFound() bool { return r.Source == SourceNotFound }

// Resolver turns queries into roadmaps. Remote and Local may be nil; the
// sources that need them are then skipped.
type Resolver struct {
	catalog *catalog.Catalog
	remote  Remote
	local   Local
	logger  *log.Logger
}

// NewResolver creates a Resolver. A nil catalog uses catalog.Default().
func NewResolver(cat *catalog.Catalog, remote Remote, local Local) *Resolver {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Resolver{
		catalog: cat,
		remote:  remote,
		local:   local,
		logger:  log.New(io.Discard, "", 0),
	}
}

// SetLogger sets where fall-through warnings go.
func (r *Resolver) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	r.logger = l
}

// Catalog returns the catalog the resolver reads topics from.
func (r *Resolver) Catalog() *catalog.Catalog { return r.catalog }

// Errors explaining why a source was skipped.
var (
	ErrNoRemote = errors.New("no backend configured")
	ErrNoLocal  = errors.New("no local store configured")
	ErrNotFound = errors.New("roadmap not found")
)

// Resolve tries the query's sources in priority order and returns the first
// that yields a roadmap. It only fails when ctx is done; every other
// failure falls through, ending at the not-found placeholder.
func (r *Resolver) Resolve(ctx context.Context, q Query) (*Resolved, error) {
	defer debug.LogEnterExit("resolve " + q.String())()
	res := &Resolved{}
	for _, src := range q.Candidates() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rm, persister, err := r.load(ctx, src, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			err = fmt.Errorf("%s source: %w", src, err)
			r.logger.Printf("datasource: %v", err)
			debug.Log("datasource: falling through: %v", err)
			res.Skipped = append(res.Skipped, err)
			continue
		}
		res.Source = src
		res.Roadmap = rm
		res.Persister = persister
		return res, nil
	}
	// SourceNotFound never fails, so this is unreachable in practice.
	res.Source = SourceNotFound
	res.Roadmap = r.catalog.NotFound()
	return res, nil
}

func (r *Resolver) load(ctx context.Context, src SourceType, q Query) (*model.Roadmap, progress.Persister, error) {
	switch src {
	case SourceSaved:
		if r.remote == nil {
			return nil, nil, ErrNoRemote
		}
		rm, err := r.remote.UserRoadmap(ctx, q.ID)
		if err != nil {
			return nil, nil, err
		}
		if rm.ID == "" {
			rm.ID = q.ID
		}
		return rm, r.remote, nil

	case SourceAI:
		if r.local == nil {
			return nil, nil, ErrNoLocal
		}
		rm, err := r.local.Generated(q.ID)
		if err != nil {
			return nil, nil, err
		}
		r.withLocalProgress(rm)
		return rm, r.local, nil

	case SourceTopic:
		rm, ok := r.catalog.Lookup(q.Topic)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, q.Topic)
		}
		r.withLocalProgress(rm)
		return rm, r.localPersister(), nil

	default:
		return r.catalog.NotFound(), nil, nil
	}
}

func (r *Resolver) localPersister() progress.Persister {
	if r.local == nil {
		return nil
	}
	return r.local
}

// withLocalProgress fills Completed from the session store for roadmaps
// that have no backend record.
func (r *Resolver) withLocalProgress(rm *model.Roadmap) {
	if r.local == nil {
		return
	}
	done, err := r.local.Completed(progress.Key(rm))
	if err != nil {
		r.logger.Printf("datasource: reading local progress: %v", err)
		return
	}
	rm.Completed = done
	rm.Normalize()
}
