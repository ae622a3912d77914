package version

import (
	"fmt"
	"strings"
)

// Set at build time with -ldflags "-X github.com/brewbean/livecup/internal/version.version=...".
var version = "dev"

// String returns the build version for the current binary.
func String() string {
	return version
}

// ForTesting overrides the version string and returns a cleanup function
// that restores the original value. Must not be called concurrently.
func ForTesting(v string) func() {
	original := version
	version = v
	return func() { version = original }
}

func isDev(v string) bool {
	return v == "" || v == "dev"
}

// releaseLine reduces a version such as "v0.3.1-5-gabc123" to "0.3".
// Frames only change between minor releases, so patch builds interoperate.
func releaseLine(v string) string {
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	parts := strings.SplitN(v, ".", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, ".")
}

// FormatVersion ensures a "v" prefix. Dev builds are returned as-is.
func FormatVersion(v string) string {
	if isDev(v) || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// CheckHubMismatch returns a warning when the relay hub runs a different
// release line than this binary, and "" otherwise. Dev builds never warn.
func CheckHubMismatch(hubVersion string) string {
	if isDev(version) || isDev(hubVersion) {
		return ""
	}
	if releaseLine(version) == releaseLine(hubVersion) {
		return ""
	}
	return fmt.Sprintf("WARNING: livecup %s connected to hub %s; frame formats may differ",
		FormatVersion(version), FormatVersion(hubVersion))
}
