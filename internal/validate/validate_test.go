package validate

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "jean@example.com", want: "jean@example.com"},
		{in: "  Jean.Dupont@Example.COM ", want: "jean.dupont@example.com"},
		{in: "user@bücher.de", want: "user@xn--bcher-kva.de"},
		{in: "", wantErr: true},
		{in: "not-an-email", wantErr: true},
		{in: "Jean <jean@example.com>", wantErr: true},
		{in: "jean@localhost", wantErr: true},
		{in: "jean@@example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Email("email", tt.in)
			if tt.wantErr {
				verr, ok := AsError(err)
				require.True(t, ok)
				require.Equal(t, "email", verr.Field)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLength(t *testing.T) {
	require.NoError(t, Length("password", "12345678", 8, 0))
	require.EqualError(t, Length("password", "1234567", 8, 0), "password: must be at least 8 characters")
	require.EqualError(t, Length("text", "", 1, 4096), "text: is required")
	require.EqualError(t, Length("text", strings.Repeat("é", 4097), 1, 4096), "text: must be at most 4096 characters")
	require.NoError(t, Length("text", strings.Repeat("é", 4096), 1, 4096))
}

func TestUUID(t *testing.T) {
	_, err := UUID("contactId", "not-a-uuid")
	require.Error(t, err)

	id, err := UUID("contactId", "0190c2a4-6b6f-7c1e-9a51-2f1d3c4b5a69")
	require.NoError(t, err)
	require.Equal(t, "0190c2a4-6b6f-7c1e-9a51-2f1d3c4b5a69", id.String())
}

func TestAsErrorWrapped(t *testing.T) {
	err := fmt.Errorf("signup: %w", Fail("name", "is required"))
	verr, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, "name", verr.Field)

	_, ok = AsError(errors.New("other"))
	require.False(t, ok)
}
