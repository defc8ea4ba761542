//go:build !windows

// File: server/sockopt_unix.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TCP_NODELAY via a raw setsockopt call against golang.org/x/sys/unix
// instead of the stdlib TCPConn.SetNoDelay helper.

package server

import (
	"net"
	"os/signal"

	"golang.org/x/sys/unix"
)

// ignoreSIGPIPE ignores SIGPIPE process-wide, so writing to a peer
// that already closed its half of the connection surfaces as a plain
// write error on that one connection's goroutine instead of killing
// the whole process.
func ignoreSIGPIPE() {
	signal.Ignore(unix.SIGPIPE)
}

func setNoDelay(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
}
