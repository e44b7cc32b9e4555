// Package sanitize neutralizes untrusted submission fields before they are
// embedded in gallery markup. None of its functions fail: malformed input
// resolves to a safe default.
package sanitize

import (
	"net/url"
	"strings"
)

// FallbackURL replaces any URL that is unparseable or not http(s).
const FallbackURL = "#"

// Normalized submission statuses, used as CSS class names.
const (
	StatusApproved = "approved"
	StatusPending  = "pending"
	StatusRejected = "rejected"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// EscapeHTML replaces the five reserved characters with character references.
// The result is safe in text content and in quoted attribute values.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// EscapeURL validates s as an absolute http or https URL and percent-encodes
// it the way encodeURI would. Anything else yields FallbackURL.
func EscapeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return FallbackURL
	}
	u, err := url.Parse(s)
	if err != nil {
		return FallbackURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return FallbackURL
	}
	if u.Host == "" {
		return FallbackURL
	}
	return encodeURI(s)
}

// NormalizeStatus lower-cases status and maps anything outside the known set
// to StatusPending.
func NormalizeStatus(status string) string {
	switch s := strings.ToLower(status); s {
	case StatusApproved, StatusPending, StatusRejected:
		return s
	default:
		return StatusPending
	}
}

const upperhex = "0123456789ABCDEF"

// encodeURI percent-encodes every byte outside the encodeURI reserved and
// unreserved sets. Well-formed %XX escapes already present are kept as is.
func encodeURI(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteString(s[i : i+3])
			i += 2
		case keepInURI(c):
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
		}
	}
	return b.String()
}

func keepInURI(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'();/?:@&=+$,#", c) >= 0
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
