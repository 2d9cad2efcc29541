// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestEnvelopeBytes(t *testing.T) {
	e := Envelope{Length: 4, Position: 0x0102030405060708}
	want := []byte{0x00, 0x00, 0x00, 0x04, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	got := e.Encode()
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode() = % x, want % x", got, want)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	e := Envelope{Length: 12345, Position: 987654321}
	b := e.Encode()
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != e {
		t.Fatalf("Decode(Encode(e)) = %+v, want %+v", got, e)
	}
	if !bytes.Equal(got.Encode(), b) {
		t.Fatalf("re-encoding did not reproduce original bytes")
	}
}

func TestEnvelopeRejectsZeroLength(t *testing.T) {
	e := Envelope{Length: 0, Position: 0}
	if _, err := Decode(e.Encode()); !errors.Is(err, ErrZeroLength) {
		t.Fatalf("err = %v, want ErrZeroLength", err)
	}
}

func TestEnvelopeRejectsOverlongLength(t *testing.T) {
	e := Envelope{Length: MaxPayloadLength, Position: 0}
	if _, err := Decode(e.Encode()); !errors.Is(err, ErrLengthTooLong) {
		t.Fatalf("err = %v, want ErrLengthTooLong", err)
	}
}

func TestDecodeRejectsWrongSize(t *testing.T) {
	if _, err := Decode(make([]byte, 11)); err == nil {
		t.Fatalf("expected error for short buffer")
	}
}
