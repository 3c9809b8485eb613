package web

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/wolfeidau/jokko/internal/conversations"
	"github.com/wolfeidau/jokko/internal/login"
	"github.com/wolfeidau/jokko/internal/models"
)

func (s *Site) currentUser(r *http.Request) (*models.User, error) {
	session, ok := login.SessionFromContext(r.Context())
	if !ok {
		return nil, login.ErrInvalidSession
	}
	return s.deps.Users.Get(r.Context(), session.UserID)
}

func (s *Site) dashboard(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	orgs, err := s.deps.Organizations.List(r.Context(), user.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "dashboard.html", "Dashboard", dashboardEntryPoint, struct {
		User          *models.User
		Organizations []*models.OrganizationMembership
	}{User: user, Organizations: orgs})
}

func (s *Site) conversationList(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	list, err := s.deps.Conversations.List(r.Context(), user.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "conversations.html", "Conversations", dashboardEntryPoint, struct {
		User          *models.User
		Conversations []*models.Conversation
	}{User: user, Conversations: list})
}

func (s *Site) conversation(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.notFound(w, r)
		return
	}

	c, err := s.deps.Conversations.Get(r.Context(), user.ID, id)
	if errors.Is(err, conversations.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "conversation.html", "Conversation", dashboardEntryPoint, struct {
		User         *models.User
		Conversation *models.Conversation
	}{User: user, Conversation: c})
}
