package tcp

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const (
	acceptDeadline = 1 * time.Second        // how often the accept loop re-checks running
	acceptBackoff  = 500 * time.Millisecond // pause after a transient accept error
	stopTimeout    = 3 * time.Second        // bounded join of the accept loop on Stop
)

// SocketServer owns the listening socket and spawns one ClientConnection
// goroutine per accepted connection. Start and Stop are idempotent.
type SocketServer struct {
	Addr string
	// executor is shared read-only across all connection workers
	executor CommandExecutor
	// maxBuffer caps each connection's accumulation buffer
	maxBuffer int
	logger    *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	running  atomic.Bool
	loopDone chan struct{}
}

// NewServer creates a server for addr ("host:port"). Port 0 picks a
// free port; BoundAddr reports the actual one after Start.
func NewServer(addr string, executor CommandExecutor, maxBuffer int) *SocketServer {
	return &SocketServer{
		Addr:      addr,
		executor:  executor,
		maxBuffer: maxBuffer,
		logger:    slog.Default(),
	}
}

// Start binds the listening socket and launches the accept loop on its
// own goroutine. Calling Start on a running server is a no-op. A
// bind/listen failure is returned to the caller, not fatal to the
// process.
func (s *SocketServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		s.logger.Info("server_already_running", "addr", s.Addr)
		return nil
	}

	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		s.logger.Error("server_listen_failed",
			"addr", s.Addr,
			"error", err.Error(),
		)
		return fmt.Errorf("failed to start socket server on %s: %w", s.Addr, err)
	}

	s.listener = listener
	s.loopDone = make(chan struct{})
	s.running.Store(true)

	go s.acceptLoop(listener, s.loopDone)

	s.logger.Info("server_started", "addr", listener.Addr().String())
	return nil
}

// Stop signals shutdown, closes the listener so the accept loop
// unblocks, and joins the loop with a bounded wait. Calling Stop on a
// stopped server is a no-op.
func (s *SocketServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return
	}
	s.running.Store(false)

	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}

	select {
	case <-s.loopDone:
	case <-time.After(stopTimeout):
		s.logger.Warn("server_stop_timeout")
	}

	s.logger.Info("server_stopped", "addr", s.Addr)
}

// IsRunning reports whether the accept loop is live.
func (s *SocketServer) IsRunning() bool {
	return s.running.Load()
}

// BoundAddr returns the address the listener is actually bound to, or
// "" when the server is not running.
func (s *SocketServer) BoundAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *SocketServer) acceptLoop(listener net.Listener, done chan struct{}) {
	defer close(done)
	s.logger.Info("accept_loop_started")

	for s.running.Load() {
		// Bounded wait so the running flag is observed promptly
		// on shutdown instead of blocking in Accept forever.
		if tl, ok := listener.(*net.TCPListener); ok {
			_ = tl.SetDeadline(time.Now().Add(acceptDeadline))
		}

		conn, err := listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if !s.running.Load() || isClosedConnError(err) {
				break
			}
			// Transient accept errors are never fatal to the
			// server as a whole.
			s.logger.Error("accept_error", "error", err.Error())
			time.Sleep(acceptBackoff)
			continue
		}

		s.logger.Info("client_connected", "remote_addr", conn.RemoteAddr().String())

		// One worker per connection; workers are independent and
		// are not joined on shutdown.
		client := NewClientConnection(conn, s.executor, &s.running, s.maxBuffer, s.logger)
		go client.Listen()
	}

	s.logger.Info("accept_loop_stopped")
}
