package revalidate

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/jokko/internal/login"
)

func TestBrokerPublish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewBroker()
	alice := uuid.Must(uuid.NewV7())
	bob := uuid.Must(uuid.NewV7())

	events := b.Subscribe(ctx, alice)
	require.Equal(t, 1, b.Subscribers(alice))

	b.Publish(bob, "/dashboard/conversations")
	b.Publish(alice, "/dashboard/conversations/1", "/dashboard/conversations")

	require.Equal(t, Event{Path: "/dashboard/conversations/1"}, <-events)
	require.Equal(t, Event{Path: "/dashboard/conversations"}, <-events)

	select {
	case evt := <-events:
		t.Fatalf("unexpected event %v", evt)
	default:
	}

	cancel()
	require.Eventually(t, func() bool { return b.Subscribers(alice) == 0 }, time.Second, 10*time.Millisecond)

	_, ok := <-events
	require.False(t, ok)
}

func TestBrokerDropsWhenFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBroker()
	user := uuid.Must(uuid.NewV7())
	events := b.Subscribe(ctx, user)

	for range streamBuffer + 10 {
		b.Publish(user, "/dashboard")
	}
	require.Len(t, events, streamBuffer)
}

type fixedGateway struct {
	session *login.SessionData
}

func (g fixedGateway) CreateIdentity(ctx context.Context, in login.NewIdentity) (*login.Identity, error) {
	return nil, nil
}

func (g fixedGateway) GetSession(r *http.Request) (*login.SessionData, error) {
	return g.session, nil
}

func TestHandlerStreamsEvents(t *testing.T) {
	b := NewBroker()
	user := uuid.Must(uuid.NewV7())

	h := login.RequireSession(fixedGateway{session: &login.SessionData{UserID: user}})(b.Handler())
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return b.Subscribers(user) == 1 }, time.Second, 10*time.Millisecond)
	b.Publish(user, "/dashboard/conversations")

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	require.Equal(t, []string{"event: revalidate", `data: {"path":"/dashboard/conversations"}`}, lines)
}

func TestHandlerRequiresSession(t *testing.T) {
	rec := httptest.NewRecorder()
	NewBroker().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
