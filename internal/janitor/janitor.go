// Package janitor purges expired sessions and spent password reset tokens.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/store"
	"github.com/wolfeidau/jokko/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Stores struct {
	Sessions       store.SessionStore
	PasswordResets store.PasswordResetStore
}

type Report struct {
	Sessions int
	Tokens   int
}

type Janitor struct {
	stores Stores
	now    func() time.Time
}

func New(stores Stores) *Janitor {
	return &Janitor{stores: stores, now: time.Now}
}

// Purge removes expired sessions and reset tokens that are used or expired.
func (j *Janitor) Purge(ctx context.Context) (Report, error) {
	var report Report

	sessions, err := j.stores.Sessions.DeleteExpired(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to purge sessions: %w", err)
	}
	report.Sessions = sessions

	tokens, err := j.stores.PasswordResets.DeleteExpired(ctx, j.now())
	if err != nil {
		return report, fmt.Errorf("failed to purge reset tokens: %w", err)
	}
	report.Tokens = tokens

	purged := telemetry.GetMetrics().ExpiredRecordsPurged
	purged.Add(ctx, int64(sessions), metric.WithAttributes(attribute.String("kind", "session")))
	purged.Add(ctx, int64(tokens), metric.WithAttributes(attribute.String("kind", "password_reset")))

	log.Info().Int("sessions", sessions).Int("tokens", tokens).Msg("Purged expired records")

	return report, nil
}
