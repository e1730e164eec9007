package blobapi

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims surrounding whitespace and converts a container or
// blob name to NFC, so names typed on macOS (NFD) match names created
// elsewhere.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// escapeSegment normalizes a single path segment and percent-encodes it.
func escapeSegment(name string) string {
	return url.PathEscape(NormalizeName(name))
}

// joinPath builds an API path from a route and escaped name segments.
func joinPath(route string, names ...string) string {
	var b strings.Builder

	b.WriteString(route)

	for _, n := range names {
		b.WriteByte('/')
		b.WriteString(escapeSegment(n))
	}

	return b.String()
}
