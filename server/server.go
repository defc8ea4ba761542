// File: server/server.go
// Package server is the orchestrator: it owns the listener, the two
// bounded pools, and the accept loop that spawns one goroutine per
// connection, and drives each through handshake, handler construction,
// and the read loop.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brinewave/ws/api"
	"github.com/brinewave/ws/pool"
	"github.com/brinewave/ws/protocol"
)

// Server accepts connections and drives each one through the
// handshake and read-loop lifecycle against a HandlerFactory.
type Server struct {
	cfg     *Config
	control *controlAdapter

	bufferPool    api.BufferPool
	handshakePool *pool.Generic[[]byte]

	listener net.Listener

	wg sync.WaitGroup

	closing chan struct{}
	once    sync.Once
}

// New constructs a Server from cfg (nil uses DefaultConfig), applying
// opts, and binds its listener.
func New(cfg *Config, opts ...Option) (*Server, error) {
	ignoreSIGPIPE()

	if cfg == nil {
		cfg = DefaultConfig()
	}
	for _, opt := range opts {
		opt(cfg)
	}

	bufferPool := pool.NewBufferPool(cfg.LargeBufferPoolCount, cfg.LargeBufferSize)
	handshakePool := pool.NewGeneric(cfg.HandshakePoolCount, func() []byte {
		return make([]byte, cfg.HandshakeMaxSize)
	})

	var ln net.Listener
	var err error
	if cfg.UnixPath != "" {
		ln, err = net.Listen("unix", cfg.UnixPath)
	} else {
		ln, err = net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Address, cfg.Port))
	}
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	return &Server{
		cfg:           cfg,
		control:       newControlAdapter(cfg, bufferPool, handshakePool),
		bufferPool:    bufferPool,
		handshakePool: handshakePool,
		listener:      ln,
		closing:       make(chan struct{}),
	}, nil
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Control exposes runtime configuration and metrics.
func (s *Server) Control() api.Control { return s.control }

// Debug exposes the same adapter's introspection surface.
func (s *Server) Debug() api.Debug { return s.control }

// Serve runs the accept loop until Shutdown is called or the
// listener fails, spawning one goroutine per accepted connection.
func (s *Server) Serve(factory api.HandlerFactory) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closing:
				return nil
			default:
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				log.Printf("ws: accept error: %v", err)
				continue
			}
		}

		setNoDelay(conn)

		atomic.AddInt64(&s.control.activeConns, 1)
		atomic.AddInt64(&s.control.totalAccepts, 1)

		s.wg.Add(1)
		go s.serveConn(conn, factory)
	}
}

func (s *Server) serveConn(conn net.Conn, factory api.HandlerFactory) {
	status := api.SessionConnecting
	s.control.enterSession(status)

	defer s.wg.Done()
	defer func() {
		conn.Close()
		atomic.AddInt64(&s.control.activeConns, -1)
		s.control.leaveSession(status)
	}()

	moveTo := func(next api.SessionStatus) {
		s.control.leaveSession(status)
		status = next
		s.control.enterSession(status)
	}

	scratch, err := s.handshakePool.Acquire(context.Background(), s.cfg.PoolAcquireTimeout)
	if err != nil {
		s.control.IncHandshakeFailure()
		return
	}
	req, err := protocol.ReadRequest(conn, scratch, s.cfg.HandshakeTimeout, s.cfg.MaxHeaders)
	s.handshakePool.Release(scratch)
	if err != nil {
		s.control.IncHandshakeFailure()
		protocol.WriteErrorReply(conn, err)
		return
	}

	reader := protocol.NewReader(s.bufferPool, s.cfg.BufferSize, s.cfg.MaxMessageSize)
	wsConn := protocol.NewConnection(conn, s.bufferPool, reader, s.cfg.HandlePing, s.cfg.HandlePong, s.cfg.HandleClose, s.control)

	handler, err := factory.Init(context.Background(), &req.HandshakeRequest, wsConn)
	if err != nil {
		s.control.IncHandshakeFailure()
		protocol.WriteErrorReply(conn, api.ErrHandshakeInvalid)
		return
	}

	subprotocol := protocol.NegotiateSubprotocol(req.Subprotocols, s.cfg.Subprotocols)
	if err := protocol.WriteUpgradeReply(conn, req, subprotocol); err != nil {
		s.control.IncHandshakeFailure()
		return
	}
	moveTo(api.SessionActive)

	if ai, ok := handler.(api.AfterInit); ok {
		if err := ai.AfterInit(); err != nil {
			handler.Close()
			return
		}
	}

	wsConn.Serve(handler)
	moveTo(api.SessionClosing)
	handler.Close()
}

// Shutdown stops accepting new connections and waits, bounded by ctx,
// for every in-flight connection to end. It does not close those
// connections itself.
func (s *Server) Shutdown(ctx context.Context) error {
	s.once.Do(func() { close(s.closing) })
	s.listener.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ api.GracefulShutdown = (*shutdownAdapter)(nil)

// defaultShutdownDrain bounds shutdownAdapter's wait for in-flight
// connections, for callers that go through the context-free
// api.GracefulShutdown contract instead of Server.Shutdown(ctx)
// directly.
const defaultShutdownDrain = 30 * time.Second

// shutdownAdapter adapts Server.Shutdown(ctx) to api.GracefulShutdown's
// context-free Shutdown() error.
type shutdownAdapter struct{ s *Server }

// Shutdown satisfies api.GracefulShutdown.
func (a shutdownAdapter) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownDrain)
	defer cancel()
	return a.s.Shutdown(ctx)
}

// AsGracefulShutdown adapts s to api.GracefulShutdown for callers that
// only know that contract.
func (s *Server) AsGracefulShutdown() api.GracefulShutdown { return shutdownAdapter{s: s} }
