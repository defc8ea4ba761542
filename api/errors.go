// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-ws library.

package api

import "fmt"

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeTimeout
	ErrCodeNotSupported
	ErrCodeInternal
	ErrCodeProtocol
	ErrCodeTooLarge
	ErrCodeHandshakeInvalid
	ErrCodeHandshakeTimeout
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Is reports whether target is the package-level sentinel sharing e's
// Code, so errors.Is(err, ErrProtocolError) still matches a *Error
// produced deeper in the call stack (e.g. a protocol-package sentinel
// carrying the same ErrCodeProtocol) even though it isn't the same
// pointer as the generic sentinel below.
func (e *Error) Is(target error) bool {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return target == ErrInvalidArgument
	case ErrCodeTimeout:
		return target == ErrOperationTimeout
	case ErrCodeNotSupported:
		return target == ErrNotSupported
	case ErrCodeProtocol:
		return target == ErrProtocolError
	case ErrCodeTooLarge:
		return target == ErrTooLarge
	case ErrCodeHandshakeInvalid:
		return target == ErrHandshakeInvalid
	case ErrCodeHandshakeTimeout:
		return target == ErrHandshakeTimeout
	default:
		return false
	}
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithContext returns a copy of e with key/value merged into its
// context, leaving e itself untouched; a shared package-level
// sentinel must never be mutated by a caller attaching context.
func (e *Error) WithContext(key string, value any) *Error {
	ctx := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &Error{Code: e.Code, Message: e.Message, Context: ctx}
}

// Common errors used across the library, each a *Error carrying a
// stable ErrorCode: a caller can match the sentinel directly with
// errors.Is or, after errors.As, switch on Code without string
// matching.
var (
	ErrInvalidArgument  = NewError(ErrCodeInvalidArgument, "invalid argument")
	ErrOperationTimeout = NewError(ErrCodeTimeout, "operation timeout")
	ErrNotSupported     = NewError(ErrCodeNotSupported, "operation not supported")

	// ErrProtocolError covers every RFC 6455 violation the frame reader
	// reports: reserved bits set, an unknown opcode, an oversized or
	// fragmented control frame, nested non-control fragmentation, or an
	// unmasked client frame. Each ends the connection; the read loop
	// sends a CLOSE 1002 reply first only for reserved bits and an
	// oversized control frame. An invalid close code or non-UTF-8 close
	// reason is answered with CLOSE 1002 directly and is not returned as
	// an error.
	ErrProtocolError = NewError(ErrCodeProtocol, "websocket protocol error")

	// ErrTooLarge is returned when a message (or the handshake
	// request) would exceed its configured size limit.
	ErrTooLarge = NewError(ErrCodeTooLarge, "message exceeds configured size limit")

	// ErrHandshakeInvalid marks a malformed or non-conforming upgrade
	// request.
	ErrHandshakeInvalid = NewError(ErrCodeHandshakeInvalid, "invalid websocket handshake")

	// ErrHandshakeTimeout marks a handshake that did not complete
	// within handshake_timeout_ms.
	ErrHandshakeTimeout = NewError(ErrCodeHandshakeTimeout, "websocket handshake timed out")
)
