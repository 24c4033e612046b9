package slug

import (
	"crypto/rand"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLabelLength is the DNS limit for a single hostname label.
const MaxLabelLength = 63

// Option configures slug generation.
type Option func(*config)

type config struct {
	maxLength    int
	suffixLength int
}

// MaxLength truncates the slug to n characters. Zero means no limit.
func MaxLength(n int) Option {
	return func(c *config) { c.maxLength = n }
}

// WithSuffix appends a random lowercase alphanumeric suffix of length n,
// used to retry onboarding after a slug collision.
func WithSuffix(n int) Option {
	return func(c *config) { c.suffixLength = n }
}

// Make turns s into a lowercase ASCII slug of letters, digits and single hyphens.
// Accented Latin letters lose their marks; other characters become separators.
func Make(s string, opts ...Option) string {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	var b strings.Builder
	b.Grow(len(s))
	lastWasSep := true

	for _, r := range fold(s) {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastWasSep = false
			continue
		}
		if !lastWasSep {
			b.WriteByte('-')
			lastWasSep = true
		}
	}
	result := strings.Trim(b.String(), "-")

	if cfg.suffixLength > 0 {
		suffix := randomSuffix(cfg.suffixLength)
		if cfg.maxLength > 0 {
			result = truncate(result, cfg.maxLength-len(suffix)-1)
		}
		if result == "" {
			return suffix
		}
		return result + "-" + suffix
	}

	if cfg.maxLength > 0 {
		result = truncate(result, cfg.maxLength)
	}
	return result
}

// Label returns a slug usable as a subdomain label.
func Label(s string, opts ...Option) string {
	return Make(s, append([]Option{MaxLength(MaxLabelLength)}, opts...)...)
}

// ValidLabel reports whether s is already a well-formed subdomain label.
func ValidLabel(s string) bool {
	if s == "" || len(s) > MaxLabelLength || s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-' {
			return false
		}
	}
	return true
}

// fold strips combining marks after canonical decomposition, so "é" becomes "e".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) > n {
		s = s[:n]
	}
	return strings.TrimRight(s, "-")
}

func randomSuffix(n int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}
