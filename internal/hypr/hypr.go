// Package hypr wraps the hyprctl calls murmur needs: focused window and
// monitor lookup, paste shortcuts and on-screen notifications.
package hypr

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Version identifies the running compositor build.
type Version struct {
	Tag    string `json:"tag"`
	Commit string `json:"commit"`
}

// QueryVersion reports the running Hyprland version. It fails when hyprctl is
// missing or no compositor instance is reachable.
func QueryVersion(ctx context.Context) (Version, error) {
	var version Version
	if err := queryJSON(ctx, "version", &version); err != nil {
		return Version{}, err
	}
	version.Tag = strings.TrimSpace(version.Tag)
	version.Commit = strings.TrimSpace(version.Commit)
	return version, nil
}

func runHyprctl(ctx context.Context, args ...string) error {
	_, err := runHyprctlOutput(ctx, args...)
	return err
}

func runHyprctlOutput(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "hyprctl", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return out, nil
}
