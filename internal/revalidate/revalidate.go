// Package revalidate tells connected browsers which dashboard views changed.
package revalidate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/login"
	"github.com/wolfeidau/jokko/internal/telemetry"
)

const (
	streamBuffer      = 32
	keepAliveInterval = 25 * time.Second
)

// Event names a view whose data is stale.
type Event struct {
	Path string `json:"path"`
}

// Publisher is what services use to announce changes.
type Publisher interface {
	Publish(userID uuid.UUID, paths ...string)
}

// Broker fans revalidation events out to each user's open streams.
type Broker struct {
	mu      sync.Mutex
	streams map[uuid.UUID][]chan Event
}

var _ Publisher = (*Broker)(nil)

func NewBroker() *Broker {
	return &Broker{streams: make(map[uuid.UUID][]chan Event)}
}

// Subscribe registers a stream for userID that stays open until ctx is done.
func (b *Broker) Subscribe(ctx context.Context, userID uuid.UUID) <-chan Event {
	ch := make(chan Event, streamBuffer)

	b.mu.Lock()
	b.streams[userID] = append(b.streams[userID], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()

		b.mu.Lock()
		defer b.mu.Unlock()

		streams := b.streams[userID]
		for i, s := range streams {
			if s == ch {
				b.streams[userID] = append(streams[:i], streams[i+1:]...)
				break
			}
		}
		if len(b.streams[userID]) == 0 {
			delete(b.streams, userID)
		}
		close(ch)
	}()

	return ch
}

// Publish never blocks; a stream whose buffer is full misses the event.
func (b *Broker) Publish(userID uuid.UUID, paths ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.streams[userID] {
		for _, p := range paths {
			select {
			case ch <- Event{Path: p}:
			default:
				log.Warn().Str("user_id", userID.String()).Str("path", p).Msg("Revalidation stream full, dropping event")
			}
		}
	}
}

// Subscribers returns the number of open streams for userID.
func (b *Broker) Subscribers(userID uuid.UUID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.streams[userID])
}

// Handler serves Server-Sent Events for the session user. It must be wrapped by login.RequireSession.
func (b *Broker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := login.SessionFromContext(r.Context())
		if !ok {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}

		rc := http.NewResponseController(w)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("Streaming not supported")
			return
		}

		ctx := r.Context()
		events := b.Subscribe(ctx, session.UserID)

		active := telemetry.GetMetrics().ActiveEventStreams
		active.Add(ctx, 1)
		defer active.Add(context.WithoutCancel(ctx), -1)

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				data, _ := json.Marshal(evt)
				if _, err := fmt.Fprintf(w, "event: revalidate\ndata: %s\n\n", data); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	})
}
