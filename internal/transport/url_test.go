package transport

import (
	"errors"
	"testing"
)

func TestStreamURL(t *testing.T) {
	cases := []struct {
		base    string
		session string
		want    string
	}{
		{"https://api.example.com", "", "wss://api.example.com/ws/stream"},
		{"http://localhost:8000", "", "ws://localhost:8000/ws/stream"},
		{"https://api.example.com/", "abc", "wss://api.example.com/ws/stream?session=abc"},
		{"https://api.example.com/v1", "abc", "wss://api.example.com/v1/ws/stream?session=abc"},
		{"http://localhost:8000", "a b&c", "ws://localhost:8000/ws/stream?session=a+b%26c"},
	}
	for _, tc := range cases {
		got, err := StreamURL(tc.base, tc.session)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.base, err)
		}
		if got != tc.want {
			t.Fatalf("%s/%q: expected %s, got %s", tc.base, tc.session, tc.want, got)
		}
	}
}

func TestStreamURL_Invalid(t *testing.T) {
	for _, base := range []string{"ftp://example.com", "://bad", "https://", "example.com"} {
		if _, err := StreamURL(base, ""); !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("%s: expected ErrInvalidURL, got %v", base, err)
		}
	}
}

func TestSessionFromURL(t *testing.T) {
	if got := SessionFromURL("wss://x/ws/stream?session=abc"); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
	if got := SessionFromURL("wss://x/ws/stream"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
