// Package slug derives URL-safe identifiers from organization names.
package slug

import (
	"crypto/rand"
	"strings"
	"unicode"
)

const (
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffixLength   = 6
)

// Slugify lower-cases name, drops every character other than ASCII letters, digits,
// whitespace, '_' and '-', collapses separator runs into a single '-' and trims
// leading and trailing hyphens. Non-ASCII letters are dropped, not transliterated.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '-' || r == '_' || unicode.IsSpace(r):
			pendingSep = true
		}
	}

	return b.String()
}

// GenerateUnique appends '-' and six random characters from [a-z0-9] to base.
func GenerateUnique(base string) string {
	buf := make([]byte, suffixLength)
	_, _ = rand.Read(buf) // never returns an error
	for i, v := range buf {
		buf[i] = suffixAlphabet[int(v)%len(suffixAlphabet)]
	}
	return base + "-" + string(buf)
}
