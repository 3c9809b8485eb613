package slug

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "Acme Inc.", want: "acme-inc"},
		{name: "ampersand", in: "Tech & Solutions", want: "tech-solutions"},
		{name: "symbols", in: "Test@#$%Company", want: "testcompany"},
		{name: "accents are dropped", in: "Société Française", want: "socit-franaise"},
		{name: "separator runs", in: "  My__Great -- Org  ", want: "my-great-org"},
		{name: "leading and trailing hyphens", in: "---abc---", want: "abc"},
		{name: "digits", in: "Cloud 9", want: "cloud-9"},
		{name: "only symbols", in: "@@@", want: ""},
		{name: "empty", in: "", want: ""},
		{name: "tabs and newlines", in: "a\tb\nc", want: "a-b-c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	inputs := []string{"Acme Inc.", "Société Française", "  --x__y--  ", "Test@#$%Company", "DevHub"}
	for _, in := range inputs {
		once := Slugify(in)
		require.Equal(t, once, Slugify(once), "input %q", in)
		require.Regexp(t, `^([a-z0-9]+(-[a-z0-9]+)*)?$`, once)
	}
}

func TestGenerateUnique(t *testing.T) {
	pattern := regexp.MustCompile(`^acme-inc-[a-z0-9]{6}$`)

	seen := make(map[string]struct{})
	for range 100 {
		s := GenerateUnique("acme-inc")
		require.Regexp(t, pattern, s)
		seen[s] = struct{}{}
	}
	// 36^6 possibilities, collisions in 100 draws are practically impossible
	require.Greater(t, len(seen), 95)

	require.Regexp(t, `^-[a-z0-9]{6}$`, GenerateUnique(""))
}
