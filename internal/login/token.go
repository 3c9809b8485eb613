package login

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "jokko"

// signSessionToken returns the cookie value for a server-side session.
func (c *Credentials) signSessionToken(sessionID, userID uuid.UUID, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   userID.String(),
		ID:        sessionID.String(),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.SessionSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// parseSessionToken verifies the signature and expiry and returns the session and user IDs.
func (c *Credentials) parseSessionToken(value string) (sessionID, userID uuid.UUID, err error) {
	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(value, &claims,
		func(t *jwt.Token) (any, error) { return c.cfg.SessionSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	sessionID, err = uuid.Parse(claims.ID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid session id claim: %w", err)
	}
	userID, err = uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid subject claim: %w", err)
	}

	return sessionID, userID, nil
}
