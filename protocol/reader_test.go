// File: protocol/reader_test.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"bytes"
	"testing"

	"github.com/brinewave/ws/api"
	"github.com/brinewave/ws/pool"
)

// maskedFrame builds a single client-to-server frame with its payload
// masked under key, mirroring what a conforming client sends.
func maskedFrame(opcode Opcode, fin bool, payload []byte, key [4]byte) []byte {
	var hdr [14]byte
	n := encodeClientFrameHeader(hdr[:], opcode, fin, true, key, len(payload))
	masked := append([]byte(nil), payload...)
	unmask(masked, key)
	return append(hdr[:n:n], masked...)
}

func newTestReader(bufferSize int, maxSize int64) (*Reader, *pool.BufferPool) {
	bp := pool.NewBufferPool(4, 1024)
	return NewReader(bp, bufferSize, maxSize), bp
}

var testKey = [4]byte{0x12, 0x34, 0x56, 0x78}

func TestReaderSingleTextMessage(t *testing.T) {
	r, _ := newTestReader(256, 65536)
	payload := []byte("over 9000!")
	stream := bytes.NewReader(maskedFrame(OpcodeText, true, payload, testKey))

	msg, err := r.ReadMessage(stream)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if msg.Type != api.Text {
		t.Fatalf("Type = %v, want Text", msg.Type)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("Payload = %q, want %q", msg.Payload, payload)
	}
	r.Handled()
}

func TestReaderMessageExactlyFillsStaticBuffer(t *testing.T) {
	const bufferSize = 256
	headerBytes := 6 // 2-byte base header + 4-byte mask key, payload < 126
	payloadLen := bufferSize - headerBytes
	r, _ := newTestReader(bufferSize, 65536)
	payload := bytes.Repeat([]byte{0x5A}, payloadLen)
	stream := bytes.NewReader(maskedFrame(OpcodeBinary, true, payload, testKey))

	msg, err := r.ReadMessage(stream)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatal("payload mismatch for buffer_size - header_bytes message")
	}
	r.Handled()
}

func TestReaderMessageOneByteOverStaticBufferSpillsToLarge(t *testing.T) {
	const bufferSize = 256
	headerBytes := 6
	payloadLen := bufferSize - headerBytes + 1
	r, bp := newTestReader(bufferSize, 65536)
	payload := bytes.Repeat([]byte{0x5A}, payloadLen)
	stream := bytes.NewReader(maskedFrame(OpcodeBinary, true, payload, testKey))

	msg, err := r.ReadMessage(stream)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatal("payload mismatch for straddling message")
	}
	r.Handled()

	stats := bp.Stats()
	if stats.TotalAcquire != stats.TotalRelease {
		t.Fatalf("large buffer leaked: acquired %d, released %d", stats.TotalAcquire, stats.TotalRelease)
	}
}

func TestReaderBackToBackMessagesRequireCompaction(t *testing.T) {
	const bufferSize = 64
	r, _ := newTestReader(bufferSize, 65536)
	first := bytes.Repeat([]byte{0x01}, 40)
	second := bytes.Repeat([]byte{0x02}, 40)

	var wire bytes.Buffer
	wire.Write(maskedFrame(OpcodeText, true, first, testKey))
	wire.Write(maskedFrame(OpcodeText, true, second, testKey))

	msg1, err := r.ReadMessage(&wire)
	if err != nil {
		t.Fatalf("ReadMessage 1: %v", err)
	}
	if !bytes.Equal(msg1.Payload, first) {
		t.Fatal("first message payload mismatch")
	}
	r.Handled()

	msg2, err := r.ReadMessage(&wire)
	if err != nil {
		t.Fatalf("ReadMessage 2: %v", err)
	}
	if !bytes.Equal(msg2.Payload, second) {
		t.Fatal("second message payload mismatch after compaction")
	}
	r.Handled()
}

func TestReaderFragmentedMessageWithInterleavedPings(t *testing.T) {
	r, _ := newTestReader(256, 65536)
	part1, part2, part3 := []byte("one "), []byte("two "), []byte("three")
	pingPayload1 := []byte("ping-a")
	pingPayload2 := []byte("ping-b")

	var wire bytes.Buffer
	wire.Write(maskedFrame(OpcodeText, false, part1, testKey))
	wire.Write(maskedFrame(OpcodePing, true, pingPayload1, testKey))
	wire.Write(maskedFrame(OpcodeContinuation, false, part2, testKey))
	wire.Write(maskedFrame(OpcodePing, true, pingPayload2, testKey))
	wire.Write(maskedFrame(OpcodeContinuation, true, part3, testKey))

	var order []api.MessageType
	var payloads [][]byte
	for i := 0; i < 3; i++ {
		msg, err := r.ReadMessage(&wire)
		if err != nil {
			t.Fatalf("ReadMessage %d: %v", i, err)
		}
		order = append(order, msg.Type)
		payloads = append(payloads, append([]byte(nil), msg.Payload...))
		r.Handled()
	}

	if order[0] != api.Ping || order[1] != api.Ping || order[2] != api.Text {
		t.Fatalf("delivery order = %v, want [Ping Ping Text]", order)
	}
	if !bytes.Equal(payloads[0], pingPayload1) || !bytes.Equal(payloads[1], pingPayload2) {
		t.Fatal("interleaved ping payloads mismatch")
	}
	want := append(append(append([]byte(nil), part1...), part2...), part3...)
	if !bytes.Equal(payloads[2], want) {
		t.Fatalf("reassembled fragmented text = %q, want %q", payloads[2], want)
	}
}

func TestReaderEmptyFragmentedMessage(t *testing.T) {
	r, _ := newTestReader(256, 65536)

	var wire bytes.Buffer
	wire.Write(maskedFrame(OpcodeText, false, nil, testKey))
	wire.Write(maskedFrame(OpcodeContinuation, false, nil, testKey))
	wire.Write(maskedFrame(OpcodeContinuation, true, nil, testKey))

	msg, err := r.ReadMessage(&wire)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if msg.Type != api.Text {
		t.Fatalf("Type = %v, want Text", msg.Type)
	}
	if len(msg.Payload) != 0 {
		t.Fatalf("Payload = %q, want empty", msg.Payload)
	}
	r.Handled()
}

func TestReaderControlFramePayloadEcho(t *testing.T) {
	r, _ := newTestReader(256, 65536)
	payload := bytes.Repeat([]byte{'z'}, 125)
	stream := bytes.NewReader(maskedFrame(OpcodePing, true, payload, testKey))

	msg, err := r.ReadMessage(stream)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if msg.Type != api.Ping {
		t.Fatalf("Type = %v, want Ping", msg.Type)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatal("125-byte ping payload mismatch")
	}
	r.Handled()
}

func TestReaderOversizedControlFrameErrors(t *testing.T) {
	r, _ := newTestReader(256, 65536)
	payload := bytes.Repeat([]byte{'z'}, 126)
	stream := bytes.NewReader(maskedFrame(OpcodePing, true, payload, testKey))

	_, err := r.ReadMessage(stream)
	if err == nil {
		t.Fatal("ReadMessage accepted a 126-byte control frame")
	}
}

func TestReaderNestedFragmentationErrors(t *testing.T) {
	r, _ := newTestReader(256, 65536)
	var wire bytes.Buffer
	wire.Write(maskedFrame(OpcodeText, false, []byte("a"), testKey))
	wire.Write(maskedFrame(OpcodeBinary, false, []byte("b"), testKey))

	// ReadMessage keeps reading past the non-final fragment, so the
	// nested data frame fails the very first call.
	_, err := r.ReadMessage(&wire)
	if err == nil {
		t.Fatal("ReadMessage accepted a new data message while fragmented")
	}
	if err != ErrNestedFragment {
		t.Fatalf("err = %v, want ErrNestedFragment", err)
	}
}

func TestReaderContinuationWithoutFragmentErrors(t *testing.T) {
	r, _ := newTestReader(256, 65536)
	stream := bytes.NewReader(maskedFrame(OpcodeContinuation, true, []byte("x"), testKey))
	if _, err := r.ReadMessage(stream); err == nil {
		t.Fatal("ReadMessage accepted a continuation frame with no message in progress")
	}
}

func TestReaderMessageExceedingMaxSizeErrors(t *testing.T) {
	r, _ := newTestReader(256, 32)
	payload := bytes.Repeat([]byte{0x01}, 64)
	stream := bytes.NewReader(maskedFrame(OpcodeBinary, true, payload, testKey))
	if _, err := r.ReadMessage(stream); err == nil {
		t.Fatal("ReadMessage accepted a message larger than maxSize")
	}
}
