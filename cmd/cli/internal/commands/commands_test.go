package commands

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/jokko/internal/mail"
)

type memoryObjects struct {
	objects   map[string][]byte
	corrupt   bool
	healthErr error
}

func (m *memoryObjects) HealthCheck(ctx context.Context) error { return m.healthErr }

func (m *memoryObjects) Upload(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if m.corrupt {
		data[0] ^= 0xff
	}
	m.objects[key] = data
	return nil
}

func (m *memoryObjects) Download(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (m *memoryObjects) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://bucket.example.com/" + key + "?X-Amz-Expires=300", nil
}

func (m *memoryObjects) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()

	store := &memoryObjects{objects: map[string][]byte{}}
	res, err := roundTrip(ctx, store, 64, false)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.key, "healthcheck/"))
	require.Contains(t, res.downloadURL, res.key)
	require.Empty(t, store.objects)

	_, err = roundTrip(ctx, store, 64, true)
	require.NoError(t, err)
	require.Len(t, store.objects, 1)

	_, err = roundTrip(ctx, &memoryObjects{objects: map[string][]byte{}, corrupt: true}, 64, false)
	require.ErrorContains(t, err, "differs")

	_, err = roundTrip(ctx, &memoryObjects{healthErr: errors.New("403 forbidden")}, 64, false)
	require.ErrorContains(t, err, "not reachable")

	_, err = roundTrip(ctx, store, 0, false)
	require.Error(t, err)
}

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (r *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func TestSendTestEmail(t *testing.T) {
	mailer := &recordingMailer{}

	msg, err := sendTestEmail(context.Background(), mailer, "ops@example.com", "https://jokko.example.com")
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	require.Equal(t, "ops@example.com", msg.To)
	require.Contains(t, msg.Text, "https://jokko.example.com/reset-password?token=test-")

	_, err = sendTestEmail(context.Background(), &recordingMailer{err: errors.New("throttled")}, "ops@example.com", "http://localhost")
	require.ErrorContains(t, err, "failed to send email")
}
