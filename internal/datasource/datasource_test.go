package datasource

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vanderheijden86/sage/pkg/api"
	"github.com/vanderheijden86/sage/pkg/catalog"
	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/progress"
	"github.com/vanderheijden86/sage/pkg/session"
)

type fakeRemote struct {
	mu        sync.Mutex
	roadmaps  map[string]*model.Roadmap
	listing   []model.Summary
	listErr   error
	mine      []model.Roadmap
	loggedIn  bool
	userCalls int
	updates   []string
}

func (f *fakeRemote) UserRoadmap(ctx context.Context, id string) (*model.Roadmap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls++
	if rm, ok := f.roadmaps[id]; ok {
		return rm.Clone(), nil
	}
	return nil, &api.Error{Status: 404, Message: "Roadmap not found"}
}

func (f *fakeRemote) ListRoadmaps(ctx context.Context, category string) ([]model.Summary, error) {
	return f.listing, f.listErr
}

func (f *fakeRemote) UserRoadmaps(ctx context.Context) ([]model.Roadmap, error) {
	return f.mine, nil
}

func (f *fakeRemote) LoggedIn() bool { return f.loggedIn }

func (f *fakeRemote) UpdateNodeProgress(ctx context.Context, roadmapID, nodeID string, completed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, roadmapID+"/"+nodeID)
	return nil
}

func memStore(t *testing.T) *session.Store {
	t.Helper()
	s, err := session.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		raw  string
		want Query
		srcs []SourceType
	}{
		{"?topic=frontend-beginner", Query{Topic: "frontend-beginner"}, []SourceType{SourceTopic, SourceNotFound}},
		{"saved=true&id=42", Query{Saved: true, ID: "42"}, []SourceType{SourceSaved, SourceNotFound}},
		{"ai=true&id=abc", Query{AI: true, ID: "abc"}, []SourceType{SourceAI, SourceNotFound}},
		{"saved=true", Query{Saved: true}, []SourceType{SourceNotFound}},
		{"saved=true&id=1&topic=x", Query{Saved: true, ID: "1", Topic: "x"}, []SourceType{SourceSaved, SourceTopic, SourceNotFound}},
		{"", Query{}, []SourceType{SourceNotFound}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			q, err := ParseQuery(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if q != tt.want {
				t.Errorf("ParseQuery = %+v, want %+v", q, tt.want)
			}
			got := q.Candidates()
			if len(got) != len(tt.srcs) {
				t.Fatalf("Candidates = %v, want %v", got, tt.srcs)
			}
			for i := range got {
				if got[i] != tt.srcs[i] {
					t.Errorf("Candidates[%d] = %s, want %s", i, got[i], tt.srcs[i])
				}
			}
		})
	}
}

func TestQueryRoundTrip(t *testing.T) {
	q := SavedQuery("a b")
	back, err := ParseQuery(q.String())
	if err != nil || back != q {
		t.Errorf("round trip %q -> %+v (%v)", q.String(), back, err)
	}
	if SourceSaved.Priority() <= SourceAI.Priority() || SourceAI.Priority() <= SourceTopic.Priority() {
		t.Error("priorities out of order")
	}
}

func TestResolveTopic(t *testing.T) {
	r := NewResolver(nil, nil, nil)
	res, err := r.Resolve(context.Background(), TopicQuery("frontend-beginner"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceTopic || res.Roadmap.Title != "Frontend Developer" {
		t.Fatalf("got %s %q", res.Source, res.Roadmap.Title)
	}
	if len(res.Roadmap.Nodes) < 80 {
		t.Errorf("frontend roadmap has %d nodes, want at least 80", len(res.Roadmap.Nodes))
	}
}

func TestResolveUnknownTopic(t *testing.T) {
	r := NewResolver(nil, nil, nil)
	res, err := r.Resolve(context.Background(), TopicQuery("nonexistent-slug"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.NotFound() || res.Roadmap.Title != "Roadmap Not Found" || len(res.Roadmap.Nodes) != 0 {
		t.Fatalf("got %s %q with %d nodes", res.Source, res.Roadmap.Title, len(res.Roadmap.Nodes))
	}
	if len(res.Skipped) != 1 || !errors.Is(res.Skipped[0], ErrNotFound) {
		t.Errorf("Skipped = %v", res.Skipped)
	}
}

func TestResolveSaved(t *testing.T) {
	remote := &fakeRemote{roadmaps: map[string]*model.Roadmap{
		"42": {Title: "Mine", Nodes: []model.Node{{ID: "a"}, {ID: "b"}}, Completed: []string{"a"}},
	}}
	r := NewResolver(nil, remote, nil)
	res, err := r.Resolve(context.Background(), SavedQuery("42"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceSaved || res.Roadmap.ID != "42" || len(res.Roadmap.Completed) != 1 {
		t.Fatalf("got %+v", res)
	}

	tr := progress.New(context.Background(), res.Roadmap, res.Persister)
	if _, err := tr.Toggle("b"); err != nil {
		t.Fatal(err)
	}
	tr.Wait()
	if len(remote.updates) != 1 || remote.updates[0] != "42/b" {
		t.Errorf("updates = %v", remote.updates)
	}
}

func TestResolveSavedFallsThrough(t *testing.T) {
	remote := &fakeRemote{}
	store := memStore(t)
	if _, err := store.CacheGenerated(&model.Roadmap{ID: "gen", Title: "Gen", Nodes: []model.Node{{ID: "x"}}}); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(nil, remote, store)

	q := Query{Saved: true, AI: true, ID: "gen"}
	res, err := r.Resolve(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceAI || res.Roadmap.Title != "Gen" {
		t.Fatalf("got %s %q", res.Source, res.Roadmap.Title)
	}
	if remote.userCalls != 1 || len(res.Skipped) != 1 {
		t.Errorf("saved source not tried first: calls=%d skipped=%v", remote.userCalls, res.Skipped)
	}

	res, err = r.Resolve(context.Background(), Query{Saved: true, ID: "missing", Topic: "backend"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceTopic {
		t.Errorf("got %s, want topic fallback", res.Source)
	}
}

func TestResolveAIMismatchedID(t *testing.T) {
	store := memStore(t)
	if _, err := store.CacheGenerated(&model.Roadmap{ID: "one", Nodes: []model.Node{{ID: "x"}}}); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(nil, nil, store)
	res, err := r.Resolve(context.Background(), AIQuery("two"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.NotFound() || !errors.Is(res.Skipped[0], session.ErrNoCachedRoadmap) {
		t.Errorf("got %s, skipped %v", res.Source, res.Skipped)
	}
}

func TestResolveTopicRestoresLocalProgress(t *testing.T) {
	store := memStore(t)
	ctx := context.Background()
	if err := store.UpdateNodeProgress(ctx, "topic:frontend-beginner", "internet", true); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateNodeProgress(ctx, "topic:frontend-beginner", "not-a-node", true); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(nil, nil, store)
	res, err := r.Resolve(ctx, TopicQuery("frontend-beginner"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Roadmap.Completed) != 1 || res.Roadmap.Completed[0] != "internet" {
		t.Errorf("Completed = %v", res.Roadmap.Completed)
	}
	if res.Persister == nil {
		t.Error("catalog roadmap has no persister")
	}
}

func TestResolveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewResolver(nil, nil, nil).Resolve(ctx, TopicQuery("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestBrowseFallsBackToCatalog(t *testing.T) {
	remote := &fakeRemote{listErr: &api.Error{Status: 0, Message: api.NetworkErrorMessage}, loggedIn: true,
		mine: []model.Roadmap{{ID: "m1", Title: "Mine", Progress: 40}}}
	store := memStore(t)
	if _, err := store.CacheGenerated(&model.Roadmap{Title: "Gen", Nodes: []model.Node{{ID: "x"}},
		Params: &model.GenerationParams{Topic: "Go"}}); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(nil, remote, store)
	l, err := r.Browse(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if !l.Offline || len(l.Warnings) != 1 {
		t.Errorf("Offline=%v Warnings=%v", l.Offline, l.Warnings)
	}
	total := 0
	for _, g := range l.Groups {
		total += len(g.Items)
	}
	if want := len(catalog.Default().Summaries("")); total != want {
		t.Errorf("listed %d roadmaps, want %d", total, want)
	}
	if len(l.Mine) != 1 || l.Mine[0].Query != SavedQuery("m1") || l.Mine[0].Percent != 40 {
		t.Errorf("Mine = %+v", l.Mine)
	}
	if len(l.Generated) != 1 || !l.Generated[0].Query.AI || l.Generated[0].Description != "Go" {
		t.Errorf("Generated = %+v", l.Generated)
	}
}

func TestBrowseUsesBackendListing(t *testing.T) {
	remote := &fakeRemote{listing: []model.Summary{{Slug: "x", Title: "X", Category: "devops"}}}
	l, err := NewResolver(nil, remote, nil).Browse(context.Background(), "devops")
	if err != nil {
		t.Fatal(err)
	}
	if l.Offline || len(l.Groups) != 1 || l.Groups[0].Items[0].Slug != "x" {
		t.Errorf("Listing = %+v", l)
	}
	if l.Mine != nil {
		t.Error("user roadmaps loaded while logged out")
	}
	if EntryQuery(l.Groups[0].Items[0]) != TopicQuery("x") {
		t.Error("official entry does not open by slug")
	}
}
