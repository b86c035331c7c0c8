package domain

import (
	"net/url"
	"regexp"
	"strings"
)

var tldPattern = regexp.MustCompile(`\.[a-zA-Z]{2,}$`)

// Normalize canonicalizes a raw URL or hostname into a cache-key domain:
// hostname only, lowercased, no trailing dots, no leading "www." segment.
// It never fails; unparseable input comes back trimmed but otherwise verbatim.
// Empty or whitespace-only input normalizes to "".
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	host := trimmed
	if strings.Contains(trimmed, "://") {
		if u, err := url.Parse(trimmed); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	} else {
		// Bare hostname candidate: borrow the URL parser by pretending
		// the input had an https scheme.
		if u, err := url.Parse("https://" + trimmed); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	}

	host = strings.ToLower(host)
	host = strings.TrimRight(host, ".")
	host = strings.TrimPrefix(host, "www.")

	return host
}

// HasRegistrableTLD is the cheap pre-flight check for manual scan input:
// the normalized domain must end in a letter-based suffix (".xx" or longer).
// The scan boundary remains the ultimate validation authority.
func HasRegistrableTLD(domain string) bool {
	return tldPattern.MatchString(domain)
}
