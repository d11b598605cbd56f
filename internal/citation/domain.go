package citation

import (
	"regexp"
	"strings"
)

var schemePrefix = regexp.MustCompile(`^[a-z][a-z0-9+.\-]*://`)

// NormalizeDomain reduces a URL or domain to a bare lowercase hostname:
// scheme, path, query, fragment and leading "www." are removed.
// It accepts any string and is idempotent.
func NormalizeDomain(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = schemePrefix.ReplaceAllString(s, "")
	if i := strings.IndexAny(s, "/#?"); i >= 0 {
		s = s[:i]
	}
	for {
		s = strings.TrimSpace(s)
		if !strings.HasPrefix(s, "www.") {
			return s
		}
		s = s[len("www."):]
	}
}

// DomainsMatch reports whether a and b denote the same site. After
// normalization they match when equal or when one contains the other, so
// "blog.example.com" matches "example.com". Empty domains never match, not
// even each other, so an unset brand domain cannot match every reference.
func DomainsMatch(a, b string) bool {
	na, nb := NormalizeDomain(a), NormalizeDomain(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}
