// Package api serves the JSON endpoints used by the browser.
package api

import (
	"context"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/wolfeidau/jokko/internal/cleanup"
	"github.com/wolfeidau/jokko/internal/conversations"
	"github.com/wolfeidau/jokko/internal/login"
	"github.com/wolfeidau/jokko/internal/objectstore"
	"github.com/wolfeidau/jokko/internal/organizations"
	"github.com/wolfeidau/jokko/internal/passwordreset"
	"github.com/wolfeidau/jokko/internal/ratelimit"
	"github.com/wolfeidau/jokko/internal/revalidate"
	"github.com/wolfeidau/jokko/internal/signup"
	"github.com/wolfeidau/jokko/internal/store"
)

const (
	Prefix     = "/api/"
	EventsPath = "/api/events"
)

// Deps are the services behind the endpoints. Uploads, Cleanup, AuthLimiter and
// HealthCheck are optional; their routes are skipped or relaxed when nil.
type Deps struct {
	Credentials   *login.Credentials
	Users         store.UserStore
	Signup        *signup.Service
	PasswordReset *passwordreset.Service
	Organizations *organizations.Service
	Conversations *conversations.Service
	Events        *revalidate.Broker

	Uploads     *objectstore.Client
	Cleanup     *cleanup.Service
	AuthLimiter *ratelimit.Limiter
	HealthCheck func(ctx context.Context) error
}

type Server struct {
	deps Deps
}

func New(deps Deps) *Server {
	return &Server{deps: deps}
}

// Handler returns the API routes plus /healthz. Responses other than the event
// stream are gzip compressed when the client accepts it.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)

	compressed := gzhttp.GzipHandler(mux)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == EventsPath {
			mux.ServeHTTP(w, r)
			return
		}
		compressed.ServeHTTP(w, r)
	})
}

// Register adds every route to mux.
func (s *Server) Register(mux *http.ServeMux) {
	requireSession := login.RequireSession(s.deps.Credentials)
	limited := func(h http.HandlerFunc) http.Handler {
		if s.deps.AuthLimiter == nil {
			return h
		}
		return s.deps.AuthLimiter.Middleware(h)
	}
	authed := func(h http.HandlerFunc) http.Handler {
		return requireSession(h)
	}

	mux.HandleFunc("GET /healthz", s.healthz)

	mux.HandleFunc("POST /api/signup", s.signup)
	mux.Handle("POST /api/auth/sign-in/email", limited(s.signIn))
	mux.HandleFunc("POST /api/auth/sign-out", s.signOut)
	mux.Handle("GET /api/auth/session", authed(s.session))
	mux.Handle("POST /api/auth/forgot-password", limited(s.forgotPassword))
	mux.HandleFunc("POST /api/auth/reset-password", s.resetPassword)

	mux.Handle("GET /api/organizations", authed(s.listOrganizations))

	mux.Handle("GET /api/conversations", authed(s.listConversations))
	mux.Handle("POST /api/conversations", authed(s.createConversation))
	mux.Handle("GET /api/conversations/{id}", authed(s.getConversation))
	mux.Handle("POST /api/conversations/{id}/messages", authed(s.sendMessage))
	mux.Handle("POST /api/conversations/{id}/archive", authed(s.archiveConversation))
	mux.Handle("DELETE /api/messages/{id}", authed(s.deleteMessage))

	mux.Handle("GET "+EventsPath, requireSession(s.deps.Events.Handler()))

	if s.deps.Uploads != nil {
		mux.Handle("POST /api/uploads", authed(s.createUpload))
	}
	if s.deps.Cleanup != nil {
		mux.HandleFunc("POST /api/test/cleanup", s.testCleanup)
	}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthCheck != nil {
		if err := s.deps.HealthCheck(r.Context()); err != nil {
			logger(r).Error().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
