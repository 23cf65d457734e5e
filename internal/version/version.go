// Package version exposes build metadata stamped in via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders a single-line build banner.
func String() string {
	return fmt.Sprintf("murmur %s (commit=%s, date=%s, go=%s)", Version, Commit, Date, runtime.Version())
}
