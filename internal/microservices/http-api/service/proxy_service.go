package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	tcp "houdinihub/internal/microservices/tcp"
)

const readBufferSize = 8192

var (
	// ErrUnavailable means the socket server could not be reached.
	ErrUnavailable = errors.New("socket server unavailable")
	// ErrTimeout means the exchange did not complete in time.
	ErrTimeout = errors.New("timeout while communicating with the socket server")
)

// ProxyService performs one request/response exchange against the
// socket server per call. It is stateless: every call dials a fresh
// connection and closes it after the reply, no pooling or reuse.
type ProxyService struct {
	addr      string
	timeout   time.Duration
	maxBuffer int
	logger    *slog.Logger
}

// NewProxyService creates a proxy client for the socket server at addr.
func NewProxyService(addr string, timeout time.Duration, maxBuffer int) *ProxyService {
	return &ProxyService{
		addr:      addr,
		timeout:   timeout,
		maxBuffer: maxBuffer,
		logger:    slog.Default(),
	}
}

// SendCommand writes one framed command and reads the reply using the
// same incremental JSON-completeness technique the server uses.
func (s *ProxyService) SendCommand(cmdType string, params map[string]any) (map[string]any, error) {
	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(map[string]any{
		"type":   cmdType,
		"params": params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}

	conn, err := net.DialTimeout("tcp", s.addr, s.timeout)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, fmt.Errorf("%w: connect to %s timed out", ErrTimeout, s.addr)
		}
		return nil, fmt.Errorf("%w: cannot connect to %s: %v", ErrUnavailable, s.addr, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(s.timeout))

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("%w: write to %s failed: %v", ErrUnavailable, s.addr, err)
	}

	s.logger.Info("command_forwarded",
		"addr", s.addr,
		"command_type", cmdType,
	)

	acc := tcp.NewFrameAccumulator(s.maxBuffer)
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil, fmt.Errorf("%w: no complete response within %s", ErrTimeout, s.timeout)
			}
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("connection closed before a complete response (%d bytes buffered)", acc.Len())
			}
			return nil, fmt.Errorf("%w: read from %s failed: %v", ErrUnavailable, s.addr, err)
		}

		res := acc.Feed(buf[:n])
		switch res.Outcome {
		case tcp.FeedMessage:
			obj, ok := res.Message.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("invalid response from socket server: expected JSON object")
			}
			return obj, nil
		case tcp.FeedMalformed:
			return nil, fmt.Errorf("invalid response from socket server: %v", res.Err)
		default:
			// Incomplete (or whitespace so far), keep reading.
		}
	}
}
