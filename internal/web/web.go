// Package web renders the server-side pages. Forms post to the JSON API from the
// bundled page scripts; the pages themselves only read.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"
	"github.com/wolfeidau/jokko/internal/conversations"
	"github.com/wolfeidau/jokko/internal/login"
	"github.com/wolfeidau/jokko/internal/organizations"
	"github.com/wolfeidau/jokko/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	authEntryPoint      = "ui/pages/auth.ts"
	dashboardEntryPoint = "ui/pages/dashboard.ts"
)

// Scripts resolves the script URLs a page entry point needs.
type Scripts interface {
	Scripts(entryPoint string) ([]string, error)
}

type Deps struct {
	Gateway       login.Gateway
	Users         store.UserStore
	Organizations *organizations.Service
	Conversations *conversations.Service
	// Assets may be nil, pages are then rendered without scripts.
	Assets Scripts
}

type Site struct {
	deps  Deps
	pages map[string]*template.Template
}

var pageNames = []string{
	"home.html",
	"login.html",
	"register.html",
	"forgot_password.html",
	"reset_password.html",
	"dashboard.html",
	"conversations.html",
	"conversation.html",
	"not_found.html",
}

func New(deps Deps) (*Site, error) {
	if deps.Gateway == nil {
		return nil, errors.New("gateway is required")
	}

	funcs := template.FuncMap{
		"datetime": func(t time.Time) string { return t.Local().Format("2 Jan 2006 15:04") },
		"subject": func(s *string) string {
			if s == nil || *s == "" {
				return "(no subject)"
			}
			return *s
		},
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Site{deps: deps, pages: pages}, nil
}

// Handler returns the page routes behind the route guard.
func (s *Site) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.static("home.html", "Jokko", authEntryPoint))
	mux.HandleFunc("GET "+login.LoginPath, s.static("login.html", "Sign in", authEntryPoint))
	mux.HandleFunc("GET "+login.RegisterPath, s.static("register.html", "Create an account", authEntryPoint))
	mux.HandleFunc("GET /forgot-password", s.static("forgot_password.html", "Forgot password", authEntryPoint))
	mux.HandleFunc("GET /reset-password", s.resetPassword)

	mux.HandleFunc("GET "+login.DashboardPath, s.dashboard)
	mux.HandleFunc("GET "+conversations.ListPath, s.conversationList)
	mux.HandleFunc("GET "+conversations.ListPath+"/{id}", s.conversation)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.notFound(w, r)
	})

	return login.RouteGuard(s.deps.Gateway)(mux)
}

type page struct {
	Title   string
	Scripts []string
	Data    any
}

func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, name, title, entryPoint string, data any) {
	var scripts []string
	if s.deps.Assets != nil && entryPoint != "" {
		var err error
		scripts, err = s.deps.Assets.Scripts(entryPoint)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Str("entrypoint", entryPoint).Msg("Failed to load scripts")
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := s.pages[name].ExecuteTemplate(w, "layout", page{Title: title, Scripts: scripts, Data: data}); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("Failed to render template")
	}
}

func (s *Site) static(name, title, entryPoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, name, title, entryPoint, nil)
	}
}

func (s *Site) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "not_found.html", "Not found", "", nil)
}

func (s *Site) serverError(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("Page failed")
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (s *Site) resetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	s.render(w, r, http.StatusOK, "reset_password.html", "Reset password", authEntryPoint, struct {
		HasToken bool
	}{HasToken: token != ""})
}
