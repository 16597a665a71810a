package transport

import (
	"fmt"
	"net/url"
	"strings"
)

const StreamPath = "/ws/stream"

// StreamURL maps an http(s) API base to its ws(s) streaming endpoint.
func StreamURL(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + StreamPath
	u.RawQuery = ""
	u.Fragment = ""
	if sessionID != "" {
		q := url.Values{}
		q.Set("session", sessionID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// SessionFromURL returns the session query parameter, if any.
func SessionFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("session")
}
