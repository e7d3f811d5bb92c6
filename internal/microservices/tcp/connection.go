package tcp

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const readBufferSize = 8192

// CommandExecutor dispatches one decoded command to its handler and
// returns the normalized response map. The registry behind it is
// read-only after construction, so one executor is safely shared by
// every connection worker.
type CommandExecutor interface {
	Execute(cmdType string, params map[string]any) map[string]any
	ListCommands() []string
}

// ClientConnection owns one accepted connection: it pulls bytes, drives
// the frame accumulator, dispatches complete commands and writes back
// exactly one reply per request. Nothing here is shared with other
// connections except the server's running flag.
type ClientConnection struct {
	ID       string // unique identifier for log correlation
	conn     net.Conn
	writer   *bufio.Writer
	acc      *FrameAccumulator
	executor CommandExecutor
	limiter  *rate.Limiter // rate limiter on parsed requests
	logger   *slog.Logger
	running  *atomic.Bool // owned by the server, read-only here

	closeOnce sync.Once
}

// NewClientConnection wraps an accepted connection.
func NewClientConnection(conn net.Conn, executor CommandExecutor, running *atomic.Bool, maxBuffer int, logger *slog.Logger) *ClientConnection {
	return &ClientConnection{
		ID:       uuid.NewString(),
		conn:     conn,
		writer:   bufio.NewWriter(conn),
		acc:      NewFrameAccumulator(maxBuffer),
		executor: executor,
		limiter:  rate.NewLimiter(rate.Limit(10), 20), // 10 req/sec, burst of 20
		logger:   logger,
		running:  running,
	}
}

// Listen runs the connection's read-dispatch-write cycle until the peer
// disconnects or the server shuts down. Requests on one connection are
// strictly ordered: the next read never starts before the previous
// reply is written.
func (c *ClientConnection) Listen() {
	defer c.Close()

	c.logger.Info("client_handler_started",
		"client_id", c.ID,
		"remote_addr", c.conn.RemoteAddr().String(),
	)

	// No read deadline: a slow peer only ties up its own goroutine.
	buf := make([]byte, readBufferSize)
	for c.running.Load() {
		n, err := c.conn.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.logger.Info("client_disconnected", "client_id", c.ID)
				return
			}
			if isClosedConnError(err) {
				return
			}
			c.logger.Error("client_read_error",
				"client_id", c.ID,
				"error", err.Error(),
			)
			return
		}
		if n == 0 {
			c.logger.Info("client_disconnected", "client_id", c.ID)
			return
		}

		res := c.acc.Feed(buf[:n])
		switch res.Outcome {
		case FeedIncomplete:
			// Partial document, keep reading.
			continue

		case FeedEmpty:
			c.logger.Warn("empty_request_received", "client_id", c.ID)
			if !c.sendError("Empty request received from client") {
				return
			}

		case FeedMalformed:
			c.logger.Warn("invalid_json_received",
				"client_id", c.ID,
				"error", res.Err.Error(),
			)
			if !c.sendError("Invalid JSON received: " + res.Err.Error()) {
				return
			}

		case FeedMessage:
			if !c.dispatch(res.Message) {
				return
			}
		}
	}
}

// dispatch shape-checks one complete message, runs it through the
// executor and writes the reply. Returns false when the connection is
// no longer writable.
func (c *ClientConnection) dispatch(msg any) bool {
	cmd, err := ParseCommand(msg)
	if err != nil {
		c.logger.Warn("invalid_command_shape",
			"client_id", c.ID,
			"error", err.Error(),
		)
		return c.sendError(err.Error())
	}

	if !c.limiter.Allow() {
		c.logger.Warn("rate_limit_exceeded", "client_id", c.ID)
		return c.sendError("Rate limit exceeded")
	}

	c.logger.Info("command_received",
		"client_id", c.ID,
		"command_type", cmd.Type,
	)

	response := c.executor.Execute(cmd.Type, cmd.Params)
	return c.send(response)
}

// send serializes the response and writes it to the connection in full.
func (c *ClientConnection) send(response map[string]any) bool {
	payload, err := json.Marshal(response)
	if err != nil {
		// The executor normalizes responses to a serializable
		// shape, so this only fires for locally built maps.
		c.logger.Error("response_marshal_failed",
			"client_id", c.ID,
			"error", err.Error(),
		)
		payload = []byte(`{"status":"error","message":"Server generated a non-serializable response"}`)
	}

	if _, err := c.writer.Write(payload); err != nil {
		c.logger.Error("response_write_failed",
			"client_id", c.ID,
			"error", err.Error(),
		)
		return false
	}
	if err := c.writer.Flush(); err != nil {
		c.logger.Error("response_flush_failed",
			"client_id", c.ID,
			"error", err.Error(),
		)
		return false
	}
	return true
}

func (c *ClientConnection) sendError(message string) bool {
	return c.send(map[string]any{
		"status":  "error",
		"message": message,
	})
}

// Close shuts the socket exactly once. Closing an already-broken socket
// must never fail the caller, so the error is swallowed.
func (c *ClientConnection) Close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
		c.logger.Info("client_handler_stopped", "client_id", c.ID)
	})
}

// isClosedConnError reports whether err means the socket was closed
// under us, which is expected during shutdown.
// On Windows: "wsarecv: An established connection was aborted ..."
// On Linux: "use of closed network connection"
func isClosedConnError(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "closed network connection") ||
		strings.Contains(msg, "connection was aborted") ||
		strings.Contains(msg, "forcibly closed") ||
		strings.Contains(msg, "connection reset by peer")
}
