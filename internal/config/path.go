package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ConfigEnv overrides the config location when --config is not given.
const ConfigEnv = "MURMUR_CONFIG"

// ResolvePath picks the config.jsonc location: --config, then $MURMUR_CONFIG,
// then $XDG_CONFIG_HOME/murmur, then ~/.config/murmur. A leading ~/ in an
// explicit location expands to the user's home.
func ResolvePath(explicit string) (string, error) {
	for _, candidate := range []string{explicit, os.Getenv(ConfigEnv)} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return anchorPath(candidate, ".")
		}
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "murmur", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(home, ".config", "murmur", "config.jsonc"), nil
}
