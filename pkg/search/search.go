// Package search augments a roadmap node with learning resources from the
// backend's web search and curated suggestions.
package search

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/vanderheijden86/sage/pkg/debug"
	"github.com/vanderheijden86/sage/pkg/metrics"
	"github.com/vanderheijden86/sage/pkg/model"

	"github.com/mattn/go-runewidth"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxResults caps a merged result list.
const DefaultMaxResults = 6

const snippetWidth = 150

// Source is where resources come from.
type Source interface {
	SearchResources(ctx context.Context, skill string) ([]model.Resource, error)
	SuggestResources(ctx context.Context, topic, level string) ([]model.Resource, error)
}

// Result is one search.
type Result struct {
	Topic     string
	Resources []model.Resource
	// Fallback is set when both backend calls failed and Resources are
	// generic search links.
	Fallback bool
	Errors   []error
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithMaxResults sets the result cap. Values below 1 are ignored.
func WithMaxResults(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.max = n
		}
	}
}

// WithLevel sets the skill level sent with suggestion requests.
func WithLevel(level string) Option {
	return func(s *Searcher) { s.level = level }
}

// Searcher runs resource searches and remembers successful ones per topic.
type Searcher struct {
	src   Source
	max   int
	level string

	mu    sync.RWMutex
	cache map[string]Result
}

// New creates a Searcher. A nil src always yields fallback links.
func New(src Source, opts ...Option) *Searcher {
	s := &Searcher{
		src:   src,
		max:   DefaultMaxResults,
		level: "beginner",
		cache: make(map[string]Result),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search queries web search and suggestions concurrently, merges them in
// that order without repeating a URL, and falls back to generic search
// links when both fail. It only returns an error when ctx is done.
func (s *Searcher) Search(ctx context.Context, topic string) (Result, error) {
	defer metrics.Timer(metrics.ResourceSearch)()

	topic = strings.TrimSpace(topic)
	key := strings.ToLower(topic)
	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	res := Result{Topic: topic}
	var found, suggested []model.Resource
	var searchErr, suggestErr error

	if s.src != nil && topic != "" {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			found, searchErr = s.src.SearchResources(gctx, topic)
			return nil
		})
		g.Go(func() error {
			suggested, suggestErr = s.src.SuggestResources(gctx, topic, s.level)
			return nil
		})
		_ = g.Wait()
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	for _, err := range []error{searchErr, suggestErr} {
		if err != nil {
			debug.Log("search: %q: %v", topic, err)
			res.Errors = append(res.Errors, err)
		}
	}

	res.Resources = Merge(s.max, found, suggested)
	if len(res.Resources) == 0 && (s.src == nil || searchErr != nil && suggestErr != nil) {
		res.Resources = Fallback(topic)
		res.Fallback = true
		return res, nil
	}

	if len(res.Errors) == 0 {
		s.mu.Lock()
		s.cache[key] = res
		s.mu.Unlock()
	}
	return res, nil
}

// Merge concatenates lists, drops entries without a URL or with a URL seen
// before, normalizes types and snippets, and stops at max.
func Merge(max int, lists ...[]model.Resource) []model.Resource {
	seen := make(map[string]bool)
	var out []model.Resource
	for _, list := range lists {
		for _, r := range list {
			if max > 0 && len(out) >= max {
				return out
			}
			k := urlKey(r.URL)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			r.Type = NormalizeType(r.Type, r.URL)
			r.Snippet = runewidth.Truncate(strings.TrimSpace(r.Snippet), snippetWidth, "…")
			if strings.TrimSpace(r.Title) == "" {
				r.Title = r.URL
			}
			out = append(out, r)
		}
	}
	return out
}

func urlKey(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	return strings.ToLower(u.Host) + strings.TrimRight(u.EscapedPath(), "/") + "?" + u.RawQuery
}

// Classify guesses a resource type from its URL.
func Classify(raw string) model.ResourceType {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"), strings.Contains(lower, "vimeo.com"):
		return model.ResourceVideo
	case strings.Contains(lower, "docs."), strings.Contains(lower, "documentation"),
		strings.Contains(lower, "developer."), strings.Contains(lower, "/docs"),
		strings.Contains(lower, "github.com"):
		return model.ResourceDocs
	default:
		return model.ResourceArticle
	}
}

// NormalizeType maps backend type labels onto the known resource types,
// classifying by URL when the label is empty or unknown.
func NormalizeType(t model.ResourceType, rawURL string) model.ResourceType {
	switch strings.ToLower(string(t)) {
	case "video":
		return model.ResourceVideo
	case "docs", "documentation", "reference":
		return model.ResourceDocs
	case "course", "interactive":
		return model.ResourceCourse
	case "book":
		return model.ResourceBook
	case "article", "blog", "tutorial":
		return model.ResourceArticle
	default:
		return Classify(rawURL)
	}
}

var unsafeQuery = regexp.MustCompile(`[^a-zA-Z0-9 ]`)

// Fallback returns generic search links for a skill: a tutorial search, a
// documentation search and a video search.
func Fallback(skill string) []model.Resource {
	q := strings.Join(strings.Fields(unsafeQuery.ReplaceAllString(skill, "")), "+")
	return []model.Resource{
		{
			Title:   "Search Google for " + skill,
			URL:     "https://www.google.com/search?q=" + q + "+tutorial",
			Snippet: "Find tutorials and guides for " + skill,
			Type:    model.ResourceArticle,
		},
		{
			Title:   skill + " documentation",
			URL:     "https://www.google.com/search?q=" + q + "+documentation",
			Snippet: "Official documentation and references for " + skill,
			Type:    model.ResourceDocs,
		},
		{
			Title:   skill + " on YouTube",
			URL:     "https://www.youtube.com/results?search_query=" + q + "+tutorial",
			Snippet: "Video tutorials for " + skill,
			Type:    model.ResourceVideo,
		},
	}
}

// Forget drops every remembered result.
func (s *Searcher) Forget() {
	s.mu.Lock()
	s.cache = make(map[string]Result)
	s.mu.Unlock()
}
