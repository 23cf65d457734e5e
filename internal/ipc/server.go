package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	// requestTimeout bounds how long a client may take to send its request line.
	requestTimeout = 2 * time.Second
	// maxRequestBytes caps one request line; commands are single words.
	maxRequestBytes = 4096
)

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve accepts unix-socket clients until context cancellation or listener
// close, answering each connection's single request. In-flight connections
// finish before Serve returns.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Go(func() {
			defer conn.Close()
			_ = conn.SetDeadline(time.Now().Add(requestTimeout))
			_ = json.NewEncoder(conn).Encode(serveConn(ctx, conn, handler))
		})
	}
}

// serveConn reads one request line and hands the normalized command to
// handler. Malformed requests are answered without reaching it.
func serveConn(ctx context.Context, conn io.Reader, handler Handler) Response {
	line, err := bufio.NewReader(io.LimitReader(conn, maxRequestBytes)).ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) >= maxRequestBytes {
			return Response{Error: fmt.Sprintf("read request: exceeds %d bytes", maxRequestBytes)}
		}
		return Response{Error: fmt.Sprintf("read request: %v", err)}
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Response{Error: fmt.Sprintf("decode request: %v", err)}
	}
	req.Command = strings.ToLower(strings.TrimSpace(req.Command))
	if req.Command == "" {
		return Response{Error: "decode request: missing command"}
	}
	return handler.Handle(ctx, req)
}
