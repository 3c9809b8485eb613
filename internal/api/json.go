package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/wolfeidau/jokko/internal/cleanup"
	"github.com/wolfeidau/jokko/internal/conversations"
	"github.com/wolfeidau/jokko/internal/login"
	"github.com/wolfeidau/jokko/internal/passwordreset"
	"github.com/wolfeidau/jokko/internal/signup"
	"github.com/wolfeidau/jokko/internal/store"
	"github.com/wolfeidau/jokko/internal/validate"
)

const maxBodyBytes = 1 << 20

var (
	errBadJSON   = errors.New("invalid request body")
	errForbidden = errors.New("forbidden")
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func logger(r *http.Request) *zerolog.Logger {
	return hlog.FromRequest(r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errBadJSON
		}
		return fmt.Errorf("%w: %w", errBadJSON, err)
	}
	return nil
}

func pathID(r *http.Request, field string) (uuid.UUID, error) {
	return validate.UUID(field, r.PathValue("id"))
}

func mustSession(r *http.Request) *login.SessionData {
	session, _ := login.SessionFromContext(r.Context())
	return session
}

// writeError maps domain errors to status codes. Unknown errors are logged and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if verr, ok := validate.AsError(err); ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error(), Field: verr.Field})
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, errBadJSON),
		errors.Is(err, signup.ErrMissingFields),
		errors.Is(err, passwordreset.ErrEmailRequired),
		errors.Is(err, passwordreset.ErrMissingFields),
		errors.Is(err, passwordreset.ErrInvalidToken),
		errors.Is(err, cleanup.ErrEmailRequired):
		status, message = http.StatusBadRequest, rootMessage(err)
	case errors.Is(err, login.ErrEmailTaken):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, login.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, login.ErrInvalidSession), errors.Is(err, login.ErrExpiredSession):
		status, message = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errForbidden), errors.Is(err, conversations.ErrForbidden):
		status, message = http.StatusForbidden, rootMessage(err)
	case errors.Is(err, conversations.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, store.ErrUserNotFound):
		status, message = http.StatusNotFound, "user not found"
	case errors.Is(err, conversations.ErrSendFailed):
		status, message = http.StatusBadGateway, conversations.ErrSendFailed.Error()
	case errors.Is(err, passwordreset.ErrSendFailed):
		message = passwordreset.ErrSendFailed.Error()
	}

	if status >= http.StatusInternalServerError {
		logger(r).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}

	writeJSON(w, status, errorBody{Error: message})
}

// rootMessage reports the sentinel's text without wrapped details.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		errBadJSON, signup.ErrMissingFields, passwordreset.ErrEmailRequired,
		passwordreset.ErrMissingFields, passwordreset.ErrInvalidToken, cleanup.ErrEmailRequired,
		errForbidden, conversations.ErrForbidden,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
