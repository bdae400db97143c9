// Package socket serves the bridge request surface over a Unix domain
// socket. Each connection carries one length-prefixed JSON request and gets
// one framed response back.
package socket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/rpc"
	"github.com/ArcheWizard/Password-Manager/pkg/framex"
)

const readTimeout = 30 * time.Second

// Server accepts bridge connections on a Unix domain socket. The socket file
// is owner-only; any stale file from a previous run is removed before
// binding.
type Server struct {
	Path       string
	Dispatcher *rpc.Dispatcher
	Logger     *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
	closed   chan struct{}
	stopOnce sync.Once
}

func NewServer(path string, dispatcher *rpc.Dispatcher, logger *slog.Logger) *Server {
	return &Server{
		Path:       path,
		Dispatcher: dispatcher,
		Logger:     logger,
		closed:     make(chan struct{}),
	}
}

// Start binds the socket and begins accepting connections in the
// background. Call Stop to shut down.
func (s *Server) Start() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale socket file: %w", err)
	}

	listener, err := net.Listen("unix", s.Path)
	if err != nil {
		return fmt.Errorf("failed to bind socket: %w", err)
	}
	if err := os.Chmod(s.Path, 0o600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to restrict socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop(listener)

	s.Logger.Info("domain socket listening", "path", s.Path)
	return nil
}

func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			s.Logger.Error("socket accept failed", "error", err)
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// handleConn serves one request/response exchange. Malformed or oversized
// frames drop the connection; nothing partial is ever processed.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	var req rpc.Request
	if err := framex.ReadMessage(conn, &req); err != nil {
		var tooLarge framex.ErrMessageTooLarge
		if errors.As(err, &tooLarge) {
			s.Logger.Warn("rejected oversized socket frame", "length", tooLarge.Length)
		} else {
			s.Logger.Warn("failed to read socket request", "error", err)
		}
		return
	}

	resp := s.Dispatcher.Dispatch(context.Background(), req)

	if err := framex.WriteMessage(conn, resp); err != nil {
		s.Logger.Warn("failed to write socket response", "error", err)
	}
}

// Stop closes the listener, waits for in-flight workers with a bounded
// grace period, and removes the socket file.
func (s *Server) Stop(grace time.Duration) error {
	s.stopOnce.Do(func() { close(s.closed) })

	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	if listener != nil {
		if err := listener.Close(); err != nil {
			s.Logger.Error("failed to close socket listener", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		s.Logger.Warn("socket workers did not finish within grace period")
	}

	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove socket file: %w", err)
	}

	s.Logger.Info("domain socket stopped", "path", s.Path)
	return nil
}
