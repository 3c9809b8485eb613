package api

import (
	"net/http"

	"github.com/wolfeidau/jokko/internal/login"
	"github.com/wolfeidau/jokko/internal/signup"
)

type identityResponse struct {
	User         *userJSON         `json:"user"`
	Session      *sessionJSON      `json:"session,omitempty"`
	Organization *organizationJSON `json:"organization,omitempty"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req signup.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.deps.Signup.Signup(r.Context(), req, login.MetaFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.deps.Credentials.SetSessionCookie(w, res.Identity)

	writeJSON(w, http.StatusOK, identityResponse{
		User:         toUser(res.Identity.User),
		Session:      &sessionJSON{ID: res.Identity.Session.SessionID, ExpiresAt: res.Identity.ExpiresAt},
		Organization: toOrganization(res.Organization),
	})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.deps.Credentials.SignIn(r.Context(), req.Email, req.Password, login.MetaFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.deps.Credentials.SetSessionCookie(w, id)

	writeJSON(w, http.StatusOK, struct {
		User    *userJSON    `json:"user"`
		Session *sessionJSON `json:"session"`
	}{
		User:    toUser(id.User),
		Session: &sessionJSON{ID: id.Session.SessionID, ExpiresAt: id.ExpiresAt},
	})
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Credentials.SignOut(r); err != nil {
		writeError(w, r, err)
		return
	}
	s.deps.Credentials.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)

	user, err := s.deps.Users.Get(r.Context(), session.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		User    *userJSON    `json:"user"`
		Session *sessionJSON `json:"session"`
	}{
		User:    toUser(user),
		Session: &sessionJSON{ID: session.SessionID, ExpiresAt: session.ExpiresAt},
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// forgotPassword always answers the same way for known and unknown emails.
func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.deps.PasswordReset.RequestReset(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{
		Success: true,
		Message: "If an account exists with this email, you will receive a password reset link.",
	})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.deps.PasswordReset.Redeem(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Password has been reset successfully"})
}

func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)

	orgs, err := s.deps.Organizations.List(r.Context(), session.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]membershipJSON, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, membershipJSON{ID: o.ID, Name: o.Name, Slug: o.Slug, Role: o.Role})
	}

	writeJSON(w, http.StatusOK, map[string][]membershipJSON{"organizations": out})
}

type cleanupRequest struct {
	Email string `json:"email"`
}

func (s *Server) testCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	report, err := s.deps.Cleanup.ByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger(r).Info().Str("email", req.Email).Int("organizations", report.OrganizationsDeleted).Msg("Test user cleaned up")
	writeJSON(w, http.StatusOK, report)
}
