package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/jokko"
)

// Metrics holds the OpenTelemetry instruments recorded by the application services.
type Metrics struct {
	// Identity
	SignupsTotal                metric.Int64Counter
	SignupOrganizationFailures  metric.Int64Counter
	SignInsTotal                metric.Int64Counter
	SignInFailuresTotal         metric.Int64Counter
	PasswordResetsRequested     metric.Int64Counter
	PasswordResetsRedeemed      metric.Int64Counter
	PasswordResetRedeemFailures metric.Int64Counter

	// Messaging
	MessagesSentTotal   metric.Int64Counter
	MessagesFailedTotal metric.Int64Counter
	ActiveEventStreams  metric.Int64UpDownCounter

	// Housekeeping
	ExpiredRecordsPurged metric.Int64Counter
	RateLimitedTotal     metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Instruments bind to whatever meter provider is global at first call; without
// InitTelemetry that is the no-op provider.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.SignupsTotal, _ = meter.Int64Counter(
		"jokko.signups.total",
		metric.WithDescription("Total number of completed signups"),
		metric.WithUnit("{signup}"),
	)

	m.SignupOrganizationFailures, _ = meter.Int64Counter(
		"jokko.signup.organization_failures",
		metric.WithDescription("Signups where the user was created but the organization was not"),
		metric.WithUnit("{signup}"),
	)

	m.SignInsTotal, _ = meter.Int64Counter(
		"jokko.signins.total",
		metric.WithDescription("Total number of successful sign ins"),
		metric.WithUnit("{signin}"),
	)

	m.SignInFailuresTotal, _ = meter.Int64Counter(
		"jokko.signins.failures.total",
		metric.WithDescription("Total number of rejected sign in attempts"),
		metric.WithUnit("{signin}"),
	)

	m.PasswordResetsRequested, _ = meter.Int64Counter(
		"jokko.password_resets.requested",
		metric.WithDescription("Reset emails sent to registered users"),
		metric.WithUnit("{request}"),
	)

	m.PasswordResetsRedeemed, _ = meter.Int64Counter(
		"jokko.password_resets.redeemed",
		metric.WithDescription("Reset tokens successfully redeemed"),
		metric.WithUnit("{token}"),
	)

	m.PasswordResetRedeemFailures, _ = meter.Int64Counter(
		"jokko.password_resets.redeem_failures",
		metric.WithDescription("Reset attempts with an unknown, used or expired token"),
		metric.WithUnit("{token}"),
	)

	m.MessagesSentTotal, _ = meter.Int64Counter(
		"jokko.messages.sent",
		metric.WithDescription("Messages handed to the outbound sender successfully"),
		metric.WithUnit("{message}"),
	)

	m.MessagesFailedTotal, _ = meter.Int64Counter(
		"jokko.messages.failed",
		metric.WithDescription("Messages the outbound sender rejected"),
		metric.WithUnit("{message}"),
	)

	m.ActiveEventStreams, _ = meter.Int64UpDownCounter(
		"jokko.events.streams.active",
		metric.WithDescription("Number of connected revalidation event streams"),
		metric.WithUnit("{stream}"),
	)

	m.ExpiredRecordsPurged, _ = meter.Int64Counter(
		"jokko.janitor.purged.total",
		metric.WithDescription("Expired sessions and reset tokens removed by the janitor"),
		metric.WithUnit("{record}"),
	)

	m.RateLimitedTotal, _ = meter.Int64Counter(
		"jokko.http.rate_limited.total",
		metric.WithDescription("Requests rejected by the rate limiter"),
		metric.WithUnit("{request}"),
	)

	return m
}
