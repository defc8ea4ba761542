// File: protocol/reader.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The frame reader: turns a byte stream into reassembled application
// messages, using an explicit static-buffer cursor pair (start/pos)
// plus an overflow large buffer leased from a BufferPool once a
// message outgrows the static buffer.

package protocol

import (
	"io"

	"github.com/brinewave/ws/api"
)

// maxControlFramePayload is RFC 6455's control-frame payload ceiling.
const maxControlFramePayload = 125

// Reader assembles RFC 6455 frames read from a single connection's
// stream into api.Message values. It is not safe for concurrent use;
// each connection owns exactly one Reader.
type Reader struct {
	provider api.BufferPool

	static []byte
	start  int // read cursor: offset of the next unconsumed byte
	pos    int // write cursor: offset one past the last buffered byte

	// msgLen is the length of the in-progress message's payload,
	// held contiguously at static[0:msgLen] whenever large == nil.
	// It is the reserved region fill must never compact over.
	msgLen int

	large    api.Buffer // non-nil once the in-progress message has spilled
	largeLen int

	fragmented     bool
	fragmentedType Opcode

	// completed/completedLarge record what the most recently returned
	// data message used, so Handled knows what to release without
	// disturbing a still-in-progress fragmented message when the
	// message just delivered was an interleaved control frame.
	completed      bool
	completedLarge bool

	ctrlScratch [maxControlFramePayload]byte

	maxSize int64
}

// NewReader builds a Reader with a bufferSize-byte static buffer,
// rejecting any message whose accumulated size exceeds maxSize.
func NewReader(provider api.BufferPool, bufferSize int, maxSize int64) *Reader {
	return &Reader{
		provider: provider,
		static:   make([]byte, bufferSize),
		maxSize:  maxSize,
	}
}

// ReadMessage blocks on stream until one logical application message
// (a control frame, an unfragmented data message, or a fully
// reassembled fragmented message) is available, or an error occurs.
// The caller must call Handled after it is done with the returned
// message's Payload and before the next call to ReadMessage.
func (r *Reader) ReadMessage(stream io.Reader) (api.Message, error) {
	for {
		h, err := r.readHeader(stream)
		if err != nil {
			return api.Message{}, err
		}
		if err := h.validate(); err != nil {
			return api.Message{}, err
		}

		if h.Opcode.IsControl() {
			payload, err := r.readControlPayload(stream, h)
			if err != nil {
				return api.Message{}, err
			}
			return api.Message{Type: controlMessageType(h.Opcode), Payload: payload}, nil
		}

		if !r.fragmented && h.Opcode == OpcodeContinuation {
			return api.Message{}, ErrProtocolError
		}
		if r.fragmented && h.Opcode != OpcodeContinuation {
			return api.Message{}, ErrNestedFragment
		}

		prospective := int64(r.msgLen) + h.PayloadLen
		if r.large != nil {
			prospective = int64(r.largeLen) + h.PayloadLen
		}
		if prospective > r.maxSize {
			return api.Message{}, ErrTooLarge
		}

		if err := r.appendDataPayload(stream, h); err != nil {
			return api.Message{}, err
		}

		if !r.fragmented {
			if h.Fin {
				return r.deliverData(dataMessageType(h.Opcode)), nil
			}
			r.fragmented = true
			r.fragmentedType = h.Opcode
			continue
		}

		if h.Fin {
			r.fragmented = false
			return r.deliverData(dataMessageType(r.fragmentedType)), nil
		}
	}
}

// Handled releases any large buffer backing the most recently
// delivered message and, once a fragmented sequence has fully
// completed, resets the static buffer's reserved region so the next
// message starts at offset 0. It is a no-op after an interleaved
// control-frame delivery, which never touches this bookkeeping.
func (r *Reader) Handled() {
	if !r.completed {
		return
	}
	if r.completedLarge {
		r.provider.Free(r.large)
		r.large = nil
		r.largeLen = 0
	}
	r.msgLen = 0
	r.completed = false
	r.completedLarge = false
}

func (r *Reader) deliverData(t api.MessageType) api.Message {
	r.completed = true
	if r.large != nil {
		r.completedLarge = true
		return api.Message{Type: t, Payload: r.large.Bytes()[:r.largeLen]}
	}
	return api.Message{Type: t, Payload: r.static[:r.msgLen]}
}

func dataMessageType(o Opcode) api.MessageType {
	if o == OpcodeBinary {
		return api.Binary
	}
	return api.Text
}

func controlMessageType(o Opcode) api.MessageType {
	switch o {
	case OpcodePing:
		return api.Ping
	case OpcodePong:
		return api.Pong
	default:
		return api.Close
	}
}

// readHeader fills the static buffer with exactly as many bytes as
// the frame header needs (discovered from the first two bytes) and
// decodes it, advancing start past the consumed header bytes.
func (r *Reader) readHeader(stream io.Reader) (header, error) {
	if err := r.fill(stream, 2); err != nil {
		return header{}, err
	}
	total := headerLen(r.static[r.start : r.start+2])
	if err := r.fill(stream, total); err != nil {
		return header{}, err
	}
	h, n, ok := decodeHeader(r.static[r.start:r.pos])
	if !ok || n != total {
		return header{}, errIncompleteHeader
	}
	r.start += n
	return h, nil
}

// readControlPayload copies a control frame's payload (<=125 bytes)
// out of the static buffer into a dedicated scratch array, so its
// lifetime never depends on static buffer compaction or on any
// outer fragmented message's reserved region.
func (r *Reader) readControlPayload(stream io.Reader, h header) ([]byte, error) {
	n := int(h.PayloadLen)
	if err := r.fill(stream, n); err != nil {
		return nil, err
	}
	if h.Masked {
		unmask(r.static[r.start:r.start+n], h.MaskKey)
	}
	copy(r.ctrlScratch[:n], r.static[r.start:r.start+n])
	r.start += n
	return r.ctrlScratch[:n], nil
}

// appendDataPayload reads one data/continuation frame's payload and
// appends it to the message in progress, spilling to a large buffer
// the moment the accumulated message no longer fits the static
// buffer from offset 0.
func (r *Reader) appendDataPayload(stream io.Reader, h header) error {
	n := int(h.PayloadLen)

	if r.large != nil {
		return r.appendToLarge(stream, n, h.MaskKey, h.Masked)
	}

	if r.msgLen+n > len(r.static) {
		if err := r.spillToLarge(r.msgLen + n); err != nil {
			return err
		}
		return r.appendToLarge(stream, n, h.MaskKey, h.Masked)
	}

	if err := r.fill(stream, n); err != nil {
		return err
	}
	if h.Masked {
		unmask(r.static[r.start:r.start+n], h.MaskKey)
	}
	// Close the gap the just-consumed header left between this
	// frame's payload and the message bytes accumulated so far, so
	// the message stays contiguous from offset 0.
	copy(r.static[r.msgLen:r.msgLen+n], r.static[r.start:r.start+n])
	r.start += n
	r.msgLen += n
	return nil
}

func (r *Reader) appendToLarge(stream io.Reader, n int, key [4]byte, masked bool) error {
	needCap := r.largeLen + n
	if needCap > len(r.large.Bytes()) {
		grown, err := r.provider.Grow(r.large, r.largeLen, needCap)
		if err != nil {
			return err
		}
		r.large = grown
	}
	dst := r.large.Bytes()[r.largeLen : r.largeLen+n]
	if err := r.readRaw(stream, dst); err != nil {
		return err
	}
	if masked {
		unmask(dst, key)
	}
	r.largeLen += n
	return nil
}

// readRaw fills dst by first draining already-buffered static bytes,
// then reading any remainder straight from stream, bypassing the
// static buffer for whatever doesn't fit it.
func (r *Reader) readRaw(stream io.Reader, dst []byte) error {
	n := copy(dst, r.static[r.start:r.pos])
	r.start += n
	if n >= len(dst) {
		return nil
	}
	_, err := io.ReadFull(stream, dst[n:])
	return err
}

// spillToLarge moves the msgLen bytes accumulated so far in the
// static buffer into a freshly leased buffer of at least minCapacity
// bytes, then compacts the static buffer's now-unreserved scratch
// region down to offset 0.
func (r *Reader) spillToLarge(minCapacity int) error {
	buf, err := r.provider.AllocPooledOr(minCapacity)
	if err != nil {
		return err
	}
	copy(buf.Bytes(), r.static[:r.msgLen])
	r.large = buf
	r.largeLen = r.msgLen

	copy(r.static, r.static[r.msgLen:r.pos])
	r.pos -= r.msgLen
	r.start -= r.msgLen
	r.msgLen = 0
	return nil
}

// fill ensures at least need unconsumed bytes are buffered in
// static[start:pos], compacting the scratch region down against the
// reserved [0:msgLen) prefix and reading more from stream as needed.
// If a large buffer already backs the in-progress message, msgLen is
// always 0 and compaction targets offset 0 directly.
func (r *Reader) fill(stream io.Reader, need int) error {
	for r.pos-r.start < need {
		room := len(r.static) - r.start
		if room < need {
			copy(r.static[r.msgLen:], r.static[r.start:r.pos])
			r.pos = r.msgLen + (r.pos - r.start)
			r.start = r.msgLen
			if len(r.static)-r.start < need {
				return ErrTooLarge
			}
			continue
		}
		n, err := stream.Read(r.static[r.pos:])
		if n > 0 {
			r.pos += n
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrNoProgress
		}
	}
	return nil
}
