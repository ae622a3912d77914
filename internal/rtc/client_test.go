package rtc

import (
	"context"
	"net/url"
	"testing"
)

func TestJoinURL(t *testing.T) {
	tests := []struct {
		raw    string
		scheme string
	}{
		{"ws://127.0.0.1:7880/rtc", "ws"},
		{"wss://hub.example.com/rtc", "wss"},
		{"http://localhost:7880/rtc", "ws"},
		{"https://hub.example.com/rtc?token=abc", "wss"},
	}
	for _, tt := range tests {
		got, err := joinURL(tt.raw, "cafe & bar", "viewer-1")
		if err != nil {
			t.Fatalf("joinURL(%q): %v", tt.raw, err)
		}
		u, err := url.Parse(got)
		if err != nil {
			t.Fatalf("parse %q: %v", got, err)
		}
		if u.Scheme != tt.scheme {
			t.Errorf("joinURL(%q) scheme = %s, want %s", tt.raw, u.Scheme, tt.scheme)
		}
		if q := u.Query(); q.Get("room") != "cafe & bar" || q.Get("identity") != "viewer-1" {
			t.Errorf("joinURL(%q) query = %v", tt.raw, q)
		}
	}

	if _, err := joinURL("ftp://example.com", "cafe", "me"); err == nil {
		t.Fatal("expected unsupported scheme error")
	}
}

func TestDialRequiresRoom(t *testing.T) {
	if _, err := Dial(context.Background(), ClientOptions{URL: "ws://127.0.0.1:1/rtc"}); err == nil {
		t.Fatal("expected error without room")
	}
}
