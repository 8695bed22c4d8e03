package search

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/vanderheijden86/sage/pkg/model"
)

type fakeSource struct {
	found, suggested       []model.Resource
	searchErr, suggestErr  error
	searchCalls, suggCalls atomic.Int32
}

func (f *fakeSource) SearchResources(ctx context.Context, skill string) ([]model.Resource, error) {
	f.searchCalls.Add(1)
	return f.found, f.searchErr
}

func (f *fakeSource) SuggestResources(ctx context.Context, topic, level string) ([]model.Resource, error) {
	f.suggCalls.Add(1)
	return f.suggested, f.suggestErr
}

func TestSearchMergesAndDedups(t *testing.T) {
	src := &fakeSource{
		found: []model.Resource{
			{Title: "MDN", URL: "https://developer.mozilla.org/en-US/docs/Web/CSS"},
			{Title: "Video", URL: "https://www.youtube.com/watch?v=1"},
		},
		suggested: []model.Resource{
			{Title: "MDN again", URL: "https://developer.mozilla.org/en-US/docs/Web/CSS/"},
			{Title: "CSS-Tricks", URL: "https://css-tricks.com/", Type: "blog"},
		},
	}
	res, err := New(src).Search(context.Background(), "CSS")
	if err != nil {
		t.Fatal(err)
	}
	if res.Fallback || len(res.Errors) != 0 {
		t.Fatalf("unexpected fallback: %+v", res)
	}
	if len(res.Resources) != 3 {
		t.Fatalf("got %d resources, want 3: %+v", len(res.Resources), res.Resources)
	}
	want := []model.ResourceType{model.ResourceDocs, model.ResourceVideo, model.ResourceArticle}
	for i, r := range res.Resources {
		if r.Type != want[i] {
			t.Errorf("resource %d (%s) type = %s, want %s", i, r.URL, r.Type, want[i])
		}
	}
}

func TestSearchOneSideFails(t *testing.T) {
	src := &fakeSource{
		searchErr: errors.New("ddg down"),
		suggested: []model.Resource{{Title: "freeCodeCamp", URL: "https://www.freecodecamp.org/", Type: "course"}},
	}
	s := New(src)
	res, err := s.Search(context.Background(), "html")
	if err != nil {
		t.Fatal(err)
	}
	if res.Fallback || len(res.Resources) != 1 || len(res.Errors) != 1 {
		t.Fatalf("got %+v", res)
	}
	// Partial results are not remembered.
	if _, err := s.Search(context.Background(), "html"); err != nil {
		t.Fatal(err)
	}
	if src.searchCalls.Load() != 2 {
		t.Errorf("search called %d times, want 2", src.searchCalls.Load())
	}
}

func TestSearchFallback(t *testing.T) {
	src := &fakeSource{searchErr: errors.New("a"), suggestErr: errors.New("b")}
	res, err := New(src).Search(context.Background(), "Node.js")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Fallback || len(res.Resources) != 3 || len(res.Errors) != 2 {
		t.Fatalf("got %+v", res)
	}
	if !strings.Contains(res.Resources[0].URL, "q=Nodejs+tutorial") {
		t.Errorf("unsafe characters kept: %s", res.Resources[0].URL)
	}
	if res.Resources[2].Type != model.ResourceVideo {
		t.Errorf("video fallback typed %s", res.Resources[2].Type)
	}
}

func TestSearchNilSource(t *testing.T) {
	res, err := New(nil).Search(context.Background(), "Go")
	if err != nil || !res.Fallback {
		t.Fatalf("got %+v, %v", res, err)
	}
}

func TestSearchCachesSuccess(t *testing.T) {
	src := &fakeSource{found: []model.Resource{{Title: "a", URL: "https://a.dev"}}}
	s := New(src)
	for range 3 {
		if _, err := s.Search(context.Background(), " Go "); err != nil {
			t.Fatal(err)
		}
	}
	if src.searchCalls.Load() != 1 {
		t.Errorf("search called %d times, want 1", src.searchCalls.Load())
	}
	s.Forget()
	_, _ = s.Search(context.Background(), "go")
	if src.searchCalls.Load() != 2 {
		t.Errorf("Forget did not drop the cache")
	}
}

func TestSearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(&fakeSource{}).Search(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestMergeCap(t *testing.T) {
	var list []model.Resource
	for _, u := range []string{"https://a", "https://b", "https://c", "", "https://d"} {
		list = append(list, model.Resource{URL: u})
	}
	got := Merge(3, list)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Title != "https://a" {
		t.Errorf("empty title not replaced: %q", got[0].Title)
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]model.ResourceType{
		"https://youtu.be/x":                 model.ResourceVideo,
		"https://vimeo.com/1":                model.ResourceVideo,
		"https://docs.python.org/3/":         model.ResourceDocs,
		"https://github.com/golang/go":       model.ResourceDocs,
		"https://go.dev/docs/tutorial":       model.ResourceDocs,
		"https://css-tricks.com/flexbox":     model.ResourceArticle,
		"https://example.com/documentation/": model.ResourceDocs,
	}
	for u, want := range tests {
		if got := Classify(u); got != want {
			t.Errorf("Classify(%q) = %s, want %s", u, got, want)
		}
	}
}

func TestNormalizeType(t *testing.T) {
	if got := NormalizeType("documentation", ""); got != model.ResourceDocs {
		t.Errorf("documentation -> %s", got)
	}
	if got := NormalizeType("interactive", ""); got != model.ResourceCourse {
		t.Errorf("interactive -> %s", got)
	}
	if got := NormalizeType("", "https://www.youtube.com/x"); got != model.ResourceVideo {
		t.Errorf("empty youtube -> %s", got)
	}
}
