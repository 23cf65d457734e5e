package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
// File paths inside the config resolve against the config file's directory.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath, Config: Default()}
	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = append(loaded.Warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		})
		return loaded, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	cfg, warnings, err := Parse(string(content), loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}
	if err := anchorPaths(&cfg, filepath.Dir(resolvedPath)); err != nil {
		return Loaded{}, fmt.Errorf("resolve paths in %q: %w", resolvedPath, err)
	}

	loaded.Config = cfg
	loaded.Warnings = warnings
	loaded.Exists = true
	return loaded, nil
}

// anchorPaths expands ~/ and makes relative file settings absolute under dir.
// Empty settings keep their built-in defaults.
func anchorPaths(cfg *Config, dir string) error {
	for _, path := range []*string{
		&cfg.Commands.Path,
		&cfg.State.Path,
		&cfg.Indicator.SoundStartFile,
		&cfg.Indicator.SoundStopFile,
		&cfg.Indicator.SoundCompleteFile,
		&cfg.Indicator.SoundCancelFile,
	} {
		resolved, err := anchorPath(*path, dir)
		if err != nil {
			return err
		}
		*path = resolved
	}
	return nil
}

func anchorPath(path, dir string) (string, error) {
	path = strings.TrimSpace(path)
	switch {
	case path == "", filepath.IsAbs(path):
		return path, nil
	case path == "~" || strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", path, err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	default:
		return filepath.Join(dir, path), nil
	}
}
