package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// SocketName is the owner socket file under XDG_RUNTIME_DIR.
const SocketName = "murmur.sock"

// ErrAlreadyRunning is returned by Acquire when a live owner holds the socket.
var ErrAlreadyRunning = errors.New("murmur session already running")

// RuntimeSocketPath returns the owner socket path. MURMUR_SOCKET overrides it.
func RuntimeSocketPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv("MURMUR_SOCKET")); override != "" {
		return override, nil
	}
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, SocketName), nil
}

// Acquire listens on path as the turn owner. A socket left by a dead owner is
// removed and rescue is run before retrying.
func Acquire(
	ctx context.Context,
	path string,
	ownerTimeout time.Duration,
	retries int,
	rescue func(context.Context) error,
) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := range retries + 1 {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return listener, nil
		}

		if !isAddrInUse(err) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}

		alive, aliveErr := Alive(ctx, path, ownerTimeout)
		if alive {
			return nil, ErrAlreadyRunning
		}
		if aliveErr != nil {
			return nil, fmt.Errorf("check existing socket %s: %w", path, aliveErr)
		}

		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, removeErr)
		}

		if rescue != nil {
			_ = rescue(ctx)
		}

		if attempt < retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(25*(attempt+1)) * time.Millisecond):
			}
		}
	}

	return nil, fmt.Errorf("failed to acquire socket %s after %d retries", path, retries)
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
