// File: api/errors_test.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"errors"
	"testing"
)

func TestMessageTypeString(t *testing.T) {
	cases := map[MessageType]string{
		Text:             "text",
		Binary:           "binary",
		Ping:             "ping",
		Pong:             "pong",
		Close:            "close",
		MessageType(999): "unknown",
	}
	for mt, want := range cases {
		if got := mt.String(); got != want {
			t.Errorf("MessageType(%d).String() = %q, want %q", mt, got, want)
		}
	}
}

func TestErrorWithContext(t *testing.T) {
	err := NewError(ErrCodeProtocol, "bad frame").WithContext("opcode", 3)
	if err.Code != ErrCodeProtocol {
		t.Fatalf("Code = %v, want ErrCodeProtocol", err.Code)
	}
	if err.Context["opcode"] != 3 {
		t.Fatalf("Context[opcode] = %v, want 3", err.Context["opcode"])
	}
	if err.Error() == "bad frame" {
		t.Fatal("Error() did not include context")
	}
}

func TestErrorWithContextDoesNotMutateReceiver(t *testing.T) {
	base := NewError(ErrCodeNotSupported, "not supported")
	derived := base.WithContext("field", "config")
	if len(base.Context) != 0 {
		t.Fatalf("WithContext mutated the receiver's context: %v", base.Context)
	}
	if derived.Context["field"] != "config" {
		t.Fatalf("derived.Context[field] = %v, want config", derived.Context["field"])
	}
}

func TestErrorWithoutContext(t *testing.T) {
	err := NewError(ErrCodeNotSupported, "missing")
	if err.Error() != "missing" {
		t.Fatalf("Error() = %q, want %q", err.Error(), "missing")
	}
}

func TestProtocolErrorSentinelsAreDistinguishable(t *testing.T) {
	wrapped := errors.New("wrapped: " + ErrProtocolError.Error())
	if errors.Is(wrapped, ErrProtocolError) {
		t.Fatal("errors.New does not wrap, so errors.Is must not match")
	}
	if !errors.Is(ErrProtocolError, ErrProtocolError) {
		t.Fatal("a sentinel must match itself via errors.Is")
	}
}

func TestErrorIsMatchesSentinelByCode(t *testing.T) {
	// A *Error sharing ErrCodeProtocol with the package sentinel, but
	// not the same pointer, must still satisfy errors.Is against the
	// sentinel via Error.Is.
	specific := NewError(ErrCodeProtocol, "a more specific protocol violation")
	if !errors.Is(specific, ErrProtocolError) {
		t.Fatal("errors.Is did not match a same-Code *Error against the generic sentinel")
	}
	if errors.Is(specific, ErrTooLarge) {
		t.Fatal("errors.Is matched a *Error against a sentinel with a different Code")
	}
}

func TestErrorAsExtractsCode(t *testing.T) {
	var err error = ErrHandshakeInvalid
	var target *Error
	if !errors.As(err, &target) {
		t.Fatal("errors.As did not extract *Error from a sentinel")
	}
	if target.Code != ErrCodeHandshakeInvalid {
		t.Fatalf("Code = %v, want ErrCodeHandshakeInvalid", target.Code)
	}
}
