// Package validate holds the field checks shared by the HTTP handlers and services.
package validate

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/net/idna"
)

// Error describes a single invalid input field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Fail returns a validation error for field.
func Fail(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts a validation error from err's chain.
func AsError(err error) (*Error, bool) {
	var verr *Error
	ok := errors.As(err, &verr)
	return verr, ok
}

// Length checks that value holds between min and max characters. A max of zero means unbounded.
func Length(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min {
		if min == 1 {
			return Fail(field, "is required")
		}
		return Fail(field, "must be at least %d characters", min)
	}
	if max > 0 && n > max {
		return Fail(field, "must be at most %d characters", max)
	}
	return nil
}

// UUID parses value as a UUID.
func UUID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, Fail(field, "must be a valid identifier")
	}
	return id, nil
}

// NormalizeEmail trims and lower-cases the address and converts the domain to its ASCII form.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	if ascii, err := idna.Lookup.ToASCII(domain); err == nil {
		domain = ascii
	}
	return local + "@" + domain
}

// Email validates a bare address (no display name) and returns its normalized form.
func Email(field, value string) (string, error) {
	normalized := NormalizeEmail(value)
	if normalized == "" {
		return "", Fail(field, "is required")
	}

	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized || addr.Name != "" {
		return "", Fail(field, "must be a valid email address")
	}

	_, domain, _ := strings.Cut(normalized, "@")
	if _, err := idna.Lookup.ToASCII(domain); err != nil || !strings.Contains(domain, ".") {
		return "", Fail(field, "must be a valid email address")
	}

	return normalized, nil
}
