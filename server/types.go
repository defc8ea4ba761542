// File: server/types.go
// Package server wires the Buffer Provider, handshake-state pool, and
// accept loop into a runnable orchestrator.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "time"

// Config holds every server-side tunable the orchestrator exposes.
type Config struct {
	// Address is the TCP bind address; ignored when UnixPath is set.
	Address string
	// Port is the TCP port; ignored when UnixPath is set.
	Port int
	// UnixPath binds a Unix domain socket instead of TCP. Mutually
	// exclusive with Address/Port; disables TCP_NODELAY (no-op on
	// Unix sockets).
	UnixPath string

	// BufferSize is the per-connection static read buffer.
	BufferSize int
	// MaxMessageSize is the maximum accepted reassembled message size.
	MaxMessageSize int64
	// MaxHeaders bounds the handshake request's header-line count.
	MaxHeaders int

	// HandshakeMaxSize bounds the accumulated opening-handshake request.
	HandshakeMaxSize int
	// HandshakePoolCount sizes the bounded handshake-scratch-buffer pool.
	HandshakePoolCount int
	// HandshakeTimeout bounds how long a single handshake may take;
	// zero means no deadline.
	HandshakeTimeout time.Duration

	// LargeBufferPoolCount sizes the Buffer Provider's free-list.
	LargeBufferPoolCount int
	// LargeBufferSize is the Buffer Provider's uniform slot size.
	LargeBufferSize int

	// HandlePing/HandlePong/HandleClose: when false (the default), the
	// core answers pings and closes itself and drops pongs, instead of
	// invoking the handler.
	HandlePing  bool
	HandlePong  bool
	HandleClose bool

	// Subprotocols lists the subprotocol names this server accepts,
	// in order of preference; the first one the client also offers is
	// echoed back in the 101 reply. Empty means no subprotocol support.
	Subprotocols []string

	// PoolAcquireTimeout bounds how long Acquire on the handshake pool
	// may block before the connection is dropped. The large-buffer pool
	// never blocks: it falls back to a heap allocation at once.
	PoolAcquireTimeout time.Duration
}

// DefaultConfig returns sensible defaults for every Config field.
func DefaultConfig() *Config {
	return &Config{
		Address: "127.0.0.1",
		Port:    9223,

		BufferSize:     4096,
		MaxMessageSize: 65536,
		MaxHeaders:     64,

		HandshakeMaxSize:   1024,
		HandshakePoolCount: 50,
		HandshakeTimeout:   10 * time.Second,

		LargeBufferPoolCount: 32,
		LargeBufferSize:      32768,

		PoolAcquireTimeout: 5 * time.Second,
	}
}
