package state

import (
	"fmt"
	"strings"
	"time"
)

// Options selects and configures a backend.
type Options struct {
	Backend  string
	Path     string
	RedisURL string
	RedisKey string
	TTL      time.Duration
}

// Open builds the configured store. The file backend is the default.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", "file":
		return NewFileStore(opts.Path)
	case "redis":
		return NewRedisStore(opts.RedisURL, WithKey(opts.RedisKey), WithTTL(opts.TTL))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
