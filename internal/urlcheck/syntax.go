package urlcheck

import "net/url"

// IsValidURL reports whether s parses as an absolute URL with both a scheme
// and a host. It performs no network access and is used as a fast pre-filter:
// strings failing this check are removed like unreachable URLs but never
// reach the network checker or its statistics.
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// Domain returns the authority component of rawURL, or an empty string when
// it cannot be parsed. Statistics are keyed by the domain of the original,
// pre-redirect URL.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
