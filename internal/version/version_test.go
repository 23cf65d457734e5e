package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	tests := []struct {
		name                  string
		version, commit, date string
		want                  string
	}{
		{
			name:    "unstamped build",
			version: "dev", commit: "none", date: "unknown",
			want: "murmur dev (commit=none, date=unknown, go=" + runtime.Version() + ")",
		},
		{
			name:    "release build",
			version: "0.4.0", commit: "9f2c1ab", date: "2026-10-01",
			want: "murmur 0.4.0 (commit=9f2c1ab, date=2026-10-01, go=" + runtime.Version() + ")",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stamp(t, tc.version, tc.commit, tc.date)
			require.Equal(t, tc.want, String())
		})
	}
}

// stamp sets the -ldflags variables for one test and restores them after.
func stamp(t *testing.T, version, commit, date string) {
	t.Helper()
	prev := [3]string{Version, Commit, Date}
	t.Cleanup(func() { Version, Commit, Date = prev[0], prev[1], prev[2] })
	Version, Commit, Date = version, commit, date
}
