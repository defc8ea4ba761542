// File: server/options.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "time"

// Option customizes a Config built from DefaultConfig.
type Option func(*Config)

// WithAddress sets the TCP bind address and port.
func WithAddress(address string, port int) Option {
	return func(c *Config) {
		c.Address = address
		c.Port = port
	}
}

// WithUnixSocket binds path instead of TCP.
func WithUnixSocket(path string) Option {
	return func(c *Config) { c.UnixPath = path }
}

// WithBufferSize overrides the per-connection static read buffer size.
func WithBufferSize(n int) Option {
	return func(c *Config) { c.BufferSize = n }
}

// WithMaxMessageSize overrides the maximum reassembled message size.
func WithMaxMessageSize(n int64) Option {
	return func(c *Config) { c.MaxMessageSize = n }
}

// WithHandshakePool overrides the handshake-scratch-buffer pool's
// size and per-slot capacity.
func WithHandshakePool(count, maxSize int) Option {
	return func(c *Config) {
		c.HandshakePoolCount = count
		c.HandshakeMaxSize = maxSize
	}
}

// WithHandshakeTimeout overrides the handshake deadline.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) { c.HandshakeTimeout = d }
}

// WithLargeBufferPool overrides the Buffer Provider's free-list size
// and uniform slot size.
func WithLargeBufferPool(count, size int) Option {
	return func(c *Config) {
		c.LargeBufferPoolCount = count
		c.LargeBufferSize = size
	}
}

// WithPolicy overrides the handle_ping/handle_pong/handle_close flags.
func WithPolicy(handlePing, handlePong, handleClose bool) Option {
	return func(c *Config) {
		c.HandlePing = handlePing
		c.HandlePong = handlePong
		c.HandleClose = handleClose
	}
}

// WithSubprotocols sets the accepted subprotocol list, most preferred
// first.
func WithSubprotocols(protocols ...string) Option {
	return func(c *Config) { c.Subprotocols = protocols }
}
