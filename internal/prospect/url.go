package prospect

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var reProfilePath = regexp.MustCompile(`^/in/([a-zA-Z0-9\-]+)/?$`)

// ValidateURL reports whether raw is a profile URL this engine can act on.
func ValidateURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	host := strings.ToLower(u.Host)
	if host != "linkedin.com" && host != "www.linkedin.com" {
		return false
	}
	return reProfilePath.MatchString(u.Path)
}

// NormalizeURL strips query/fragment noise and the trailing slash so the
// same profile always maps to the same identity key.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !ValidateURL(s) {
		return "", fmt.Errorf("not a profile URL: %q", raw)
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	return "https://linkedin.com" + strings.TrimSuffix(u.Path, "/"), nil
}

// ProfileID extracts the handle portion of a profile URL ("/in/<handle>").
func ProfileID(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	m := reProfilePath.FindStringSubmatch(u.Path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SplitName splits a display name into first/last components.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
