// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// OpenTube is the canonical application identifier used for filesystem paths and CLI branding.
	OpenTube = "opentube"

	// Version is the current application semantic version string.
	Version = "0.3.0"

	// UserAgent is the default HTTP User-Agent string used for requests against the video platform.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Build metadata, overridden at link time via -ldflags.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)

// Logo is the banner shown above the root command help.
const Logo = `                        _         _
  ___  _ __   ___ _ __ | |_ _   _| |__   ___
 / _ \| '_ \ / _ \ '_ \| __| | | | '_ \ / _ \
| (_) | |_) |  __/ | | | |_| |_| | |_) |  __/
 \___/| .__/ \___|_| |_|\__|\__,_|_.__/ \___|
      |_|`
