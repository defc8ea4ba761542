// File: protocol/errors.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import "github.com/brinewave/ws/api"

// Protocol-level error values. Each violation is a distinct *api.Error
// sharing api.ErrCodeProtocol (ErrTooLarge carries
// api.ErrCodeTooLarge instead), so a caller can match the exact value
// directly or, via api.Error's Is method, match the generic
// api.ErrProtocolError (or api.ErrTooLarge) sentinel with errors.Is
// without this package
// needing to wrap anything with %w.
var (
	ErrProtocolError  = api.NewError(api.ErrCodeProtocol, "generic protocol violation")
	ErrReservedFlags  = api.NewError(api.ErrCodeProtocol, "reserved bit set")
	ErrLargeControl   = api.NewError(api.ErrCodeProtocol, "control frame payload exceeds 125 bytes")
	ErrUnmaskedFrame  = api.NewError(api.ErrCodeProtocol, "client frame not masked")
	ErrNestedFragment = api.NewError(api.ErrCodeProtocol, "data frame received while a fragmented message is in progress")

	ErrTooLarge = api.NewError(api.ErrCodeTooLarge, "message exceeds configured size limit")
)
