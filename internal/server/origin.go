package server

import (
	"net/url"
	"strings"
)

// Browser viewers on the same machine are always accepted, whatever their port.
var loopbackHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

func isLoopbackOrigin(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return loopbackHosts[strings.ToLower(u.Hostname())]
}

// NewOriginPolicy returns an origin check that accepts loopback origins plus
// every entry of extra, compared case-insensitively as scheme://host[:port].
func NewOriginPolicy(extra []string) func(origin string) bool {
	allowed := make(map[string]bool, len(extra))
	for _, origin := range extra {
		origin = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(origin), "/"))
		if origin != "" {
			allowed[origin] = true
		}
	}

	return func(origin string) bool {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		return isLoopbackOrigin(u) || allowed[strings.ToLower(u.Scheme+"://"+u.Host)]
	}
}
