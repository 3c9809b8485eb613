package api

import (
	"net/http"

	"github.com/wolfeidau/jokko/internal/conversations"
)

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)

	list, err := s.deps.Conversations.List(r.Context(), session.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]*conversationJSON, 0, len(list))
	for _, c := range list {
		out = append(out, toConversation(c))
	}
	writeJSON(w, http.StatusOK, out)
}

type createConversationRequest struct {
	ContactID string  `json:"contactId"`
	Subject   *string `json:"subject"`
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)

	var req createConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := s.deps.Conversations.Create(r.Context(), session.UserID, req.ContactID, req.Subject)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConversation(c))
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)

	// an id that can't parse names no conversation
	id, err := pathID(r, "conversationId")
	if err != nil {
		writeError(w, r, conversations.ErrNotFound)
		return
	}

	c, err := s.deps.Conversations.Get(r.Context(), session.UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toConversation(c))
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// sendMessage returns 201 with the stored message, or 502 carrying the message
// in its error state when delivery fails.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)

	id, err := pathID(r, "conversationId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := s.deps.Conversations.SendMessage(r.Context(), session.UserID, id, req.Text)
	if err != nil {
		if msg != nil {
			logger(r).Warn().Err(err).Str("message_id", msg.ID.String()).Msg("Message delivery failed")
			writeJSON(w, http.StatusBadGateway, struct {
				Error   string       `json:"error"`
				Message *messageJSON `json:"message"`
			}{Error: conversations.ErrSendFailed.Error(), Message: toMessage(msg)})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessage(msg))
}

func (s *Server) archiveConversation(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)

	id, err := pathID(r, "conversationId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.deps.Conversations.Archive(r.Context(), session.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)

	id, err := pathID(r, "messageId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.deps.Conversations.DeleteMessage(r.Context(), session.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
