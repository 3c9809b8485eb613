package login

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"
)

type contextKey string

const sessionContextKey contextKey = "session"

const (
	LoginPath     = "/login"
	RegisterPath  = "/register"
	DashboardPath = "/dashboard"
)

// WithSession returns a copy of ctx carrying the session.
func WithSession(ctx context.Context, session *SessionData) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext extracts the session data from the request context.
// This should be called from handlers wrapped by RequireSession or RouteGuard.
func SessionFromContext(ctx context.Context) (*SessionData, bool) {
	session, ok := ctx.Value(sessionContextKey).(*SessionData)
	return session, ok
}

// RequireSession rejects requests without a valid session with a 401 JSON body.
func RequireSession(gw Gateway) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := gw.GetSession(r)
			if err != nil {
				if !errors.Is(err, ErrInvalidSession) && !errors.Is(err, ErrExpiredSession) {
					hlog.FromRequest(r).Error().Err(err).Msg("Session lookup failed")
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RouteGuard redirects anonymous visitors away from the dashboard and signed-in
// users away from the login and register pages. Other paths pass through.
func RouteGuard(gw Gateway) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			dashboard := isDashboardPath(path)
			authPage := path == LoginPath || path == RegisterPath

			if !dashboard && !authPage {
				next.ServeHTTP(w, r)
				return
			}

			session, err := gw.GetSession(r)
			authenticated := err == nil

			switch {
			case dashboard && !authenticated:
				hlog.FromRequest(r).Debug().Str("path", path).Msg("No session, redirecting to login")
				http.Redirect(w, r, LoginPath, http.StatusFound)
			case authPage && authenticated:
				http.Redirect(w, r, DashboardPath, http.StatusFound)
			case authenticated:
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func isDashboardPath(path string) bool {
	return path == DashboardPath || strings.HasPrefix(path, DashboardPath+"/")
}
