package util

import "strings"

// HostMatchesPattern reports whether host matches an allow/block pattern:
// an exact hostname, or "*.suffix" matching suffix itself or any subdomain
// of it.
func HostMatchesPattern(host, pattern string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	pattern = strings.ToLower(strings.TrimSpace(pattern))

	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:] // keep leading dot, e.g. ".example.com"
		base := pattern[2:]   // "example.com"
		return host == base || strings.HasSuffix(host, suffix)
	}
	return host == pattern
}

// HostMatchesAny reports whether host matches any of patterns.
func HostMatchesAny(host string, patterns []string) bool {
	for _, p := range patterns {
		if HostMatchesPattern(host, p) {
			return true
		}
	}
	return false
}
