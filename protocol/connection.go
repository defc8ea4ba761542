// File: protocol/connection.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection owns one accepted stream's write surface and drives its
// read loop in a single blocking goroutine, one per connection.

package protocol

import (
	"encoding/binary"
	"errors"
	"net"
	"unicode/utf8"

	"github.com/brinewave/ws/api"
)

// Connection implements api.Conn and drives one accepted stream's
// read loop against a Handler.
type Connection struct {
	conn     net.Conn
	provider api.BufferPool
	reader   *Reader

	handlePing  bool
	handlePong  bool
	handleClose bool

	closed bool

	emptyPong []byte

	metrics api.MetricsSink
}

// NewConnection wraps conn for handshake-complete use: reading frames
// via reader and replying per the handle_ping/handle_pong/handle_close
// policy flags. metrics may be nil; when non-nil it is fed a
// count and byte total for every message read (a fragmented message
// counts once) and every frame written on this connection.
func NewConnection(conn net.Conn, provider api.BufferPool, reader *Reader, handlePing, handlePong, handleClose bool, metrics api.MetricsSink) *Connection {
	return &Connection{
		conn:        conn,
		provider:    provider,
		reader:      reader,
		handlePing:  handlePing,
		handlePong:  handlePong,
		handleClose: handleClose,
		emptyPong:   encodeFrame(OpcodePong, nil),
		metrics:     metrics,
	}
}

var _ api.Conn = (*Connection)(nil)

// WriteText sends a single unfragmented text frame.
func (c *Connection) WriteText(payload []byte) error { return c.writeFrame(OpcodeText, payload) }

// WriteBinary sends a single unfragmented binary frame.
func (c *Connection) WriteBinary(payload []byte) error { return c.writeFrame(OpcodeBinary, payload) }

// WritePing sends a ping frame carrying payload.
func (c *Connection) WritePing(payload []byte) error { return c.writeFrame(OpcodePing, payload) }

// WritePong sends a pong frame carrying payload.
func (c *Connection) WritePong(payload []byte) error { return c.writeFrame(OpcodePong, payload) }

// WriteClose sends a normal (code 1000) close frame.
func (c *Connection) WriteClose() error { return c.WriteCloseWithCode(uint16(CloseNormal)) }

// WriteCloseWithCode sends a close frame carrying a 2-byte
// big-endian status code.
func (c *Connection) WriteCloseWithCode(code uint16) error {
	var payload [2]byte
	binary.BigEndian.PutUint16(payload[:], code)
	return c.writeFrame(OpcodeClose, payload[:])
}

// WriteFrame emits a server frame for opcode with fin set and the
// reserved bits clear. Server frames are never masked.
func (c *Connection) WriteFrame(opcode Opcode, payload []byte) error {
	return c.writeFrame(opcode, payload)
}

// WriteFramed writes already-framed bytes as-is.
func (c *Connection) WriteFramed(prebuilt []byte) error {
	_, err := c.conn.Write(prebuilt)
	if err == nil && c.metrics != nil {
		c.metrics.AddFrameOut(len(prebuilt))
	}
	return err
}

// RequestClose sets the closed flag the read loop checks after every
// dispatched data message. Only the owning goroutine ever calls this
// (from within a Handle callback), so it needs no synchronization.
func (c *Connection) RequestClose() { c.closed = true }

func (c *Connection) writeFrame(opcode Opcode, payload []byte) error {
	var hdr [10]byte
	n := encodeHeader(hdr[:], opcode, true, len(payload))
	if _, err := c.conn.Write(hdr[:n]); err != nil {
		return err
	}
	total := n
	if len(payload) > 0 {
		if _, err := c.conn.Write(payload); err != nil {
			return err
		}
		total += len(payload)
	}
	if c.metrics != nil {
		c.metrics.AddFrameOut(total)
	}
	return nil
}

// WriteBuffer returns a growing write-buffer for opcode, backed by the
// connection's buffer provider.
func (c *Connection) WriteBuffer(opcode Opcode) (*WriteBuffer, error) {
	buf, err := c.provider.AllocPooledOr(512)
	if err != nil {
		return nil, err
	}
	return &WriteBuffer{conn: c, opcode: opcode, buf: buf}, nil
}

// WriteBuffer accumulates bytes into a provider-leased buffer that
// grows by new = new + new/2 + 8 (saturating) as needed, emitting one
// frame on Flush.
type WriteBuffer struct {
	conn   *Connection
	opcode Opcode
	buf    api.Buffer
	len    int
}

// Write appends p, growing the backing buffer if necessary.
func (w *WriteBuffer) Write(p []byte) (int, error) {
	if w.len+len(p) > len(w.buf.Bytes()) {
		grown, err := w.conn.provider.Grow(w.buf, w.len, growCapacity(len(w.buf.Bytes()), w.len+len(p)))
		if err != nil {
			return 0, err
		}
		w.buf = grown
	}
	n := copy(w.buf.Bytes()[w.len:], p)
	w.len += n
	return n, nil
}

// Flush emits one frame carrying the accumulated bytes and releases
// the backing buffer.
func (w *WriteBuffer) Flush() error {
	defer w.conn.provider.Free(w.buf)
	return w.conn.writeFrame(w.opcode, w.buf.Bytes()[:w.len])
}

func growCapacity(cur, target int) int {
	for cur < target {
		next := cur + cur/2 + 8
		if next <= cur {
			return target
		}
		cur = next
	}
	return cur
}

// Serve runs the read loop: repeatedly read a message and dispatch it
// to handler per the handle_ping/handle_pong/handle_close policy
// flags, until the handler requests close, a data-message handler
// returns an error, or the stream/protocol fails.
func (c *Connection) Serve(handler api.Handler) error {
	for {
		msg, err := c.reader.ReadMessage(c.conn)
		if err != nil {
			if errors.Is(err, ErrLargeControl) || errors.Is(err, ErrReservedFlags) {
				c.WriteCloseWithCode(uint16(CloseProtocolError))
			}
			return err
		}
		if c.metrics != nil {
			c.metrics.AddFrameIn(len(msg.Payload))
		}

		switch msg.Type {
		case api.Text, api.Binary:
			herr := handler.Handle(msg)
			c.reader.Handled()
			if herr != nil {
				return herr
			}
			if c.closed {
				return nil
			}

		case api.Pong:
			var herr error
			if c.handlePong {
				herr = handler.Handle(msg)
			}
			c.reader.Handled()
			if herr != nil {
				return herr
			}

		case api.Ping:
			var herr error
			if c.handlePing {
				herr = handler.Handle(msg)
			} else {
				herr = c.replyPong(msg.Payload)
			}
			c.reader.Handled()
			if herr != nil {
				return herr
			}

		case api.Close:
			if c.handleClose {
				herr := handler.Handle(msg)
				c.reader.Handled()
				return herr
			}
			herr := c.replyToClose(msg.Payload)
			c.reader.Handled()
			return herr
		}
	}
}

func (c *Connection) replyPong(payload []byte) error {
	if len(payload) == 0 {
		return c.WriteFramed(c.emptyPong)
	}
	return c.writeFrame(OpcodePong, payload)
}

// replyToClose validates an inbound close frame's payload (length,
// code range, UTF-8 reason) and always replies before the caller
// returns from the read loop.
func (c *Connection) replyToClose(payload []byte) error {
	l := len(payload)
	switch {
	case l == 0:
		return c.WriteCloseWithCode(uint16(CloseNormal))
	case l == 1:
		return c.WriteCloseWithCode(uint16(CloseProtocolError))
	default:
		code := binary.BigEndian.Uint16(payload[:2])
		if !validCloseCode(code) {
			return c.WriteCloseWithCode(uint16(CloseProtocolError))
		}
		if l > 2 && !utf8.Valid(payload[2:]) {
			return c.WriteCloseWithCode(uint16(CloseProtocolError))
		}
		return c.WriteCloseWithCode(uint16(CloseNormal))
	}
}
