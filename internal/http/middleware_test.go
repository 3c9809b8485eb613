package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "192.0.2.10:51234",
			expected:   "192.0.2.10",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:443",
			expected:   "2001:db8::1",
		},
		{
			name:       "forwarded header ignored without trust",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1"},
			remoteAddr: "192.0.2.10:51234",
			expected:   "192.0.2.10",
		},
		{
			name:       "first forwarded address when trusted",
			trustProxy: true,
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1  ,  198.51.100.1"},
			remoteAddr: "192.0.2.10:51234",
			expected:   "203.0.113.1",
		},
		{
			name:       "forwarded takes preference over real ip",
			trustProxy: true,
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1", "X-Real-IP": "198.51.100.7"},
			remoteAddr: "192.0.2.10:51234",
			expected:   "203.0.113.1",
		},
		{
			name:       "real ip when trusted",
			trustProxy: true,
			headers:    map[string]string{"X-Real-IP": "198.51.100.7"},
			remoteAddr: "192.0.2.10:51234",
			expected:   "198.51.100.7",
		},
		{
			name:       "garbage forwarded header falls back",
			trustProxy: true,
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			remoteAddr: "192.0.2.10:51234",
			expected:   "192.0.2.10",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.0.2.10",
			expected:   "192.0.2.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			require.Equal(t, tt.expected, ExtractClientIP(r, tt.trustProxy))
		})
	}
}

func TestClientIPMiddleware(t *testing.T) {
	var captured string
	handler := ClientIPMiddleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = ClientIPFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.1")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "203.0.113.1", captured)
}

func TestChainOrderAndSecurityHeaders(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mark("a"), mark("b"), SecurityHeaders)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, "a,b,handler", strings.Join(order, ","))
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
