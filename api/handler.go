// File: api/handler.go
// Package api defines the user-supplied handler contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "context"

// MessageType enumerates the logical message kinds a Handler receives.
type MessageType int

const (
	Text MessageType = iota
	Binary
	Ping
	Pong
	Close
)

func (t MessageType) String() string {
	switch t {
	case Text:
		return "text"
	case Binary:
		return "binary"
	case Ping:
		return "ping"
	case Pong:
		return "pong"
	case Close:
		return "close"
	default:
		return "unknown"
	}
}

// Message is one reassembled logical application message. Payload is
// only valid until the handler returns; a handler that needs to keep
// it must copy.
type Message struct {
	Type    MessageType
	Payload []byte
}

// Conn is the subset of Connection the handler contract depends on,
// kept here to avoid an api -> protocol import cycle.
type Conn interface {
	WriteText(payload []byte) error
	WriteBinary(payload []byte) error
	WritePing(payload []byte) error
	WritePong(payload []byte) error
	WriteClose() error
	WriteCloseWithCode(code uint16) error
	RequestClose()
}

// Handler is the capability set the orchestrator requires of a
// connection's application-level handler. A concrete type satisfies
// Handler by implementing Handle and Close; Init is invoked by the
// factory (see HandlerFactory) rather than on Handler itself, since
// construction happens before a Handler value exists.
type Handler interface {
	// Handle is invoked for every data message, and for ping/pong/close
	// when the corresponding policy flag is enabled.
	Handle(msg Message) error

	// Close runs once on read-loop exit, regardless of cause.
	Close()
}

// AfterInit is an optional capability: a Handler whose construction
// needs a step that runs once, after Init but before the read loop
// starts processing frames. The orchestrator discovers this by a type
// assertion.
type AfterInit interface {
	AfterInit() error
}

// HandlerFactory constructs a Handler for one accepted connection
// after a successful handshake. Returning an error rejects the
// connection with a 400-class close.
type HandlerFactory interface {
	Init(ctx context.Context, request *HandshakeRequest, conn Conn) (Handler, error)
}

// HandshakeRequest is the minimal parsed-request view handed to
// HandlerFactory.Init; protocol.Request satisfies this by embedding.
type HandshakeRequest struct {
	Method       string
	Path         string
	Header       map[string][]string
	Subprotocols []string
}
