package web

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/vanderheijden86/sage/internal/datasource"
	"github.com/vanderheijden86/sage/pkg/api"
	"github.com/vanderheijden86/sage/pkg/connector"
	"github.com/vanderheijden86/sage/pkg/debug"
	"github.com/vanderheijden86/sage/pkg/export"
	"github.com/vanderheijden86/sage/pkg/generate"
	"github.com/vanderheijden86/sage/pkg/layout"
	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/progress"

	json "github.com/goccy/go-json"
)

const expiredBanner = "Your session has expired. Please log in again."

// errNoBackend is shown when login is attempted without a backend.
var errNoBackend = errors.New("no backend configured; login is unavailable")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Log("web: encoding response: %v", err)
	}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Printf("web: template %s: %v", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleCSS(w http.ResponseWriter, r *http.Request) {
	css, err := assets.ReadFile("templates/sage.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(css)
}

func (s *Server) layout(title, active string) layoutData {
	d := layoutData{Title: title}
	for _, n := range []navLink{
		{Label: "Official Roadmaps", Href: "/"},
		{Label: "My Roadmaps", Href: "/mine"},
		{Label: "Create with AI", Href: "/generate"},
	} {
		n.Active = n.Href == active
		d.Nav = append(d.Nav, n)
	}
	if s.opts.Store != nil {
		if u := s.opts.Store.User(); u != nil {
			d.User = u.FirstName()
		}
	}
	return d
}

func errorMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// Browse.

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	listing, err := s.opts.Resolver.Browse(r.Context(), category)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if s.redirectIfExpired(w, r) {
		return
	}

	page := browsePage{layoutData: s.layout("", "/"), Offline: listing.Offline}
	for _, c := range s.opts.Resolver.Catalog().Categories() {
		page.Categories = append(page.Categories, navLink{
			Label:  c.Title,
			Href:   "/?category=" + url.QueryEscape(c.Slug),
			Active: c.Slug == listing.Category,
		})
	}
	for _, g := range listing.Groups {
		gv := groupView{Title: g.Title}
		for _, sum := range g.Items {
			gv.Entries = append(gv.Entries, entryView{
				Title:       sum.Title,
				Description: sum.Description,
				Href:        roadmapHref(datasource.EntryQuery(sum)),
			})
		}
		page.Groups = append(page.Groups, gv)
	}
	s.render(w, http.StatusOK, "browse", page)
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	listing, err := s.opts.Resolver.Browse(r.Context(), "")
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if s.redirectIfExpired(w, r) {
		return
	}
	page := minePage{
		layoutData: s.layout("My Roadmaps", "/mine"),
		LoggedIn:   s.opts.Client != nil && s.opts.Client.LoggedIn(),
		Saved:      entryViews(listing.Mine),
		Generated:  entryViews(listing.Generated),
	}
	s.render(w, http.StatusOK, "mine", page)
}

func (s *Server) handleAPIBrowse(w http.ResponseWriter, r *http.Request) {
	listing, err := s.opts.Resolver.Browse(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	type group struct {
		Title    string          `json:"title"`
		Roadmaps []model.Summary `json:"roadmaps"`
	}
	out := struct {
		Category string  `json:"category"`
		Offline  bool    `json:"offline,omitempty"`
		Groups   []group `json:"groups"`
	}{Category: listing.Category, Offline: listing.Offline}
	for _, g := range listing.Groups {
		out.Groups = append(out.Groups, group{Title: g.Title, Roadmaps: g.Items})
	}
	writeJSON(w, http.StatusOK, out)
}

// Roadmaps.

// arranged is a resolved roadmap laid out for one request.
type arranged struct {
	res     *datasource.Resolved
	base    url.Values
	engine  *layout.Engine
	result  layout.Result
	router  *connector.Router
	paths   []connector.Path
	tracker *progress.Tracker
}

// arrange resolves the query in r and lays it out. The layout and connector
// parameters override the configured defaults.
func (s *Server) arrange(r *http.Request) (*arranged, error) {
	params := r.URL.Query()
	q := datasource.FromValues(params)
	if q.IsZero() {
		return nil, errBadRequest("missing roadmap query")
	}

	engine := s.opts.Config.LayoutEngine()
	router := s.opts.Config.Router()
	base := q.Values()
	if v := params.Get("layout"); v != "" {
		st, err := layout.ParseStrategy(v)
		if err != nil {
			return nil, errBadRequest(err.Error())
		}
		engine = engine.WithStrategy(st)
		base.Set("layout", string(st))
	}
	if v := params.Get("connector"); v != "" {
		st, err := connector.ParseStyle(v)
		if err != nil {
			return nil, errBadRequest(err.Error())
		}
		router = router.WithStyle(st)
		base.Set("connector", string(st))
	}

	res, err := s.opts.Resolver.Resolve(r.Context(), q)
	if err != nil {
		return nil, err
	}
	a := &arranged{res: res, base: base, engine: engine, router: router}
	a.result = engine.Apply(res.Roadmap)
	a.paths = router.Route(res.Roadmap)
	a.tracker = s.tracker(res)
	return a, nil
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

func errBadRequest(msg string) error { return badRequest(msg) }

func statusFor(err error) int {
	var br badRequest
	if errors.As(err, &br) {
		return http.StatusBadRequest
	}
	return http.StatusServiceUnavailable
}

func (a *arranged) exportOptions() export.Options {
	return export.Options{
		Roadmap:  a.res.Roadmap,
		Geometry: a.engine.Geometry(),
		Paths:    a.paths,
		Status:   a.tracker.Status,
		Subtitle: fmt.Sprintf("%d%% complete · %s layout", a.tracker.Percent(), a.result.Strategy),
	}
}

func (s *Server) handleRoadmap(w http.ResponseWriter, r *http.Request) {
	a, err := s.arrange(r)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if s.redirectIfExpired(w, r) {
		return
	}
	s.renderRoadmap(w, a, r.URL.Query().Get("node"))
}

func (s *Server) renderRoadmap(w http.ResponseWriter, a *arranged, selected string) {
	rv := newRoadmapView(a.res, a.base, a.result, string(a.router.Style()), a.tracker)
	page := roadmapPage{
		layoutData:     s.layout(rv.Title, ""),
		Roadmap:        rv,
		NextLayout:     string(a.engine.Strategy().Next()),
		NextConnector:  string(a.router.Style().Next()),
		ProgressAction: withPath("/roadmap/progress", a.base, "", ""),
		SVGHref:        withPath("/roadmap.svg", a.base, "", ""),
		PNGHref:        withPath("/roadmap.png", a.base, "", ""),
		MarkdownHref:   withPath("/roadmap.md", a.base, "", ""),
	}
	page.LayoutHref = withParam(a.base, "layout", page.NextLayout)
	page.ConnectorHref = withParam(a.base, "connector", page.NextConnector)
	if a.res.Source == datasource.SourceAI {
		page.Banner = a.res.Roadmap.Description
	}
	for i := range rv.Nodes {
		if rv.Nodes[i].ID == selected {
			page.Selected = &rv.Nodes[i]
		}
	}

	var svg bytes.Buffer
	if err := export.RenderSVG(&svg, a.exportOptions()); err != nil {
		s.logger.Printf("web: rendering canvas: %v", err)
	}
	page.SVG = template.HTML(inlineSVG(svg.String()))

	s.render(w, http.StatusOK, "roadmap", page)
}

// inlineSVG drops the XML prolog so the document can sit inside HTML.
func inlineSVG(doc string) string {
	if i := strings.Index(doc, "<svg"); i > 0 {
		return doc[i:]
	}
	return doc
}

func (s *Server) handleSnapshot(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := s.arrange(r)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		opts := a.exportOptions()
		var buf bytes.Buffer
		switch format {
		case "png":
			w.Header().Set("Content-Type", "image/png")
			err = export.RenderPNG(&buf, opts)
		case "md":
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			err = export.RenderMarkdown(&buf, opts)
		default:
			w.Header().Set("Content-Type", "image/svg+xml")
			err = export.RenderSVG(&buf, opts)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = buf.WriteTo(w)
	}
}

func (s *Server) handleAPIRoadmap(w http.ResponseWriter, r *http.Request) {
	a, err := s.arrange(r)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	if s.redirectIfExpired(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, newRoadmapView(a.res, a.base, a.result, string(a.router.Style()), a.tracker))
}

// handleProgress toggles one node. The new state is answered at once; the
// write to the roadmap's store happens in the background.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a, err := s.arrange(r)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	id := r.PostForm.Get("node")
	done, err := a.tracker.Toggle(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		completed, total := a.tracker.Counts()
		writeJSON(w, http.StatusOK, map[string]any{
			"node":    id,
			"done":    done,
			"status":  a.tracker.Status(id).String(),
			"percent": a.tracker.Percent(),
			"count":   completed,
			"total":   total,
		})
		return
	}
	http.Redirect(w, r, withParam(a.base, "node", id), http.StatusSeeOther)
}

func (s *Server) handleAPIResources(w http.ResponseWriter, r *http.Request) {
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	if topic == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing topic"})
		return
	}
	res, err := s.opts.Searcher.Search(r.Context(), topic)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Topic     string         `json:"topic"`
		Resources []resourceView `json:"resources"`
		Fallback  bool           `json:"fallback,omitempty"`
	}{res.Topic, resourceViews(res.Resources), res.Fallback})
}

// Generation.

func (s *Server) generateForm(values url.Values, errMsg string) formPage {
	p := formPage{
		layoutData: s.layout("Create with AI", "/generate"),
		Values:     values,
		Levels:     generate.Levels,
		Goals:      generate.CareerGoals,
	}
	p.Error = errMsg
	return p
}

func (s *Server) handleGenerateForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "generate", s.generateForm(url.Values{}, ""))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f := r.PostForm
	var skills []string
	for _, sk := range strings.Split(f.Get("skills"), ",") {
		if sk = strings.TrimSpace(sk); sk != "" {
			skills = append(skills, sk)
		}
	}
	req := generate.Request{
		Topic:           f.Get("topic"),
		Skills:          skills,
		ExperienceLevel: f.Get("experience_level"),
		CareerGoal:      f.Get("career_goal"),
	}.Normalized()

	rm, offline, err := s.opts.Client.GenerateOrOffline(r.Context(), req)
	if s.redirectIfExpired(w, r) {
		return
	}
	if err != nil {
		s.render(w, http.StatusUnprocessableEntity, "generate", s.generateForm(f, errorMessage(err)))
		return
	}
	if offline {
		s.logger.Printf("web: generated %q offline", req.Topic)
	}

	if s.opts.Store == nil {
		res := &datasource.Resolved{Source: datasource.SourceAI, Roadmap: rm}
		a := &arranged{res: res, base: datasource.AIQuery(rm.ID).Values(), engine: s.opts.Config.LayoutEngine(), router: s.opts.Config.Router()}
		a.result = a.engine.Apply(rm)
		a.paths = a.router.Route(rm)
		a.tracker = s.tracker(res)
		s.renderRoadmap(w, a, "")
		return
	}
	id, err := s.opts.Store.CacheGenerated(rm)
	if err != nil {
		s.render(w, http.StatusInternalServerError, "generate", s.generateForm(f, "Could not save the roadmap: "+err.Error()))
		return
	}
	http.Redirect(w, r, roadmapHref(datasource.AIQuery(id)), http.StatusSeeOther)
}

// Accounts.

func (s *Server) authPage(register bool, values url.Values) formPage {
	title := "Login"
	if register {
		title = "Register"
	}
	return formPage{layoutData: s.layout(title, ""), Values: values}
}

func (s *Server) handleAuthForm(register bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := s.authPage(register, url.Values{})
		if r.URL.Query().Get("expired") != "" {
			p.Banner = expiredBanner
		}
		if s.opts.Client == nil {
			p.Error = errNoBackend.Error()
		}
		s.render(w, http.StatusOK, "login", p)
	}
}

func (s *Server) handleAuth(register bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f := r.PostForm
		if s.opts.Client == nil {
			p := s.authPage(register, f)
			p.Error = errNoBackend.Error()
			s.render(w, http.StatusServiceUnavailable, "login", p)
			return
		}

		// A new account must not inherit the previous one's completion state.
		s.flushTrackers()
		var err error
		email := strings.TrimSpace(f.Get("email"))
		if register {
			_, err = s.opts.Client.Register(r.Context(), api.RegisterRequest{
				Name:     strings.TrimSpace(f.Get("name")),
				Email:    email,
				Password: f.Get("password"),
			})
		} else {
			_, err = s.opts.Client.Login(r.Context(), api.LoginRequest{Email: email, Password: f.Get("password")})
		}
		if err != nil {
			p := s.authPage(register, url.Values{"name": {f.Get("name")}, "email": {email}})
			p.Error = errorMessage(err)
			s.render(w, http.StatusUnauthorized, "login", p)
			return
		}
		s.expired.Store(false)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.flushTrackers()
	if s.opts.Client != nil {
		if err := s.opts.Client.Logout(r.Context()); err != nil {
			s.logger.Printf("web: logout: %v", err)
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
