package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"time"
)

// Send opens a unix-socket request/response roundtrip with a deadline.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}
	return roundTrip(conn, req)
}

// Forward hands command to the turn owner listening on path. handled is
// false when no owner is listening, so the caller may take ownership itself.
// A response with OK unset comes back as an error carrying its message.
func Forward(ctx context.Context, path string, command string, timeout time.Duration) (resp Response, handled bool, err error) {
	resp, err = Send(ctx, path, Request{Command: command}, timeout)
	switch {
	case err == nil && resp.OK:
		return resp, true, nil
	case err == nil:
		return resp, true, errors.New(resp.Error)
	case ownerAbsent(err):
		return Response{}, false, nil
	default:
		return Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
	}
}

// Alive reports whether a responsive owner is listening on path.
func Alive(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Send(ctx, path, Request{Command: CommandStatus}, timeout)
	switch {
	case err == nil:
		return true, nil
	case ownerAbsent(err):
		return false, nil
	default:
		return false, fmt.Errorf("check socket owner: %w", err)
	}
}

func roundTrip(conn net.Conn, req Request) (Response, error) {
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// ownerAbsent reports dial failures that mean nobody owns the socket: the
// file is gone or the listener has exited.
func ownerAbsent(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		strings.Contains(err.Error(), "no such file or directory")
}
