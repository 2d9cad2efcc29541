// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wire implements the otpchat wire protocol: the handshake and
// the 12-byte frame envelope. Both are pure encode/decode over byte
// slices, independent of any socket or terminal — see spec.md §9
// ("framing must be unit-testable without a terminal").
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// EnvelopeSize is the fixed size, in bytes, of the cleartext envelope
// prefixing every frame: a big-endian u32 length followed by a
// big-endian u64 stream position.
const EnvelopeSize = 12

// MaxPayloadLength is the exclusive upper bound on a frame's payload
// length (spec.md §3: "> 0, < 2^31").
const MaxPayloadLength = 1 << 31

var (
	ErrZeroLength    = errors.New("wire: envelope payload length is zero")
	ErrLengthTooLong = errors.New("wire: envelope payload length >= 2^31")
)

// Envelope is the 12-byte header prefixing every encrypted frame:
// Length is the ciphertext payload's length, and Position is the
// sender's local-pad head at the moment of sending (equivalently, the
// head at which the receiver must begin decrypting from its matching
// remote pad). The envelope itself travels in cleartext.
type Envelope struct {
	Length   uint32
	Position uint64
}

// wireHeader mirrors the teacher's comPacketHeader/packetHeader shape:
// a plain struct encoded with binary.Write into a bytes.Buffer.
type wireHeader struct {
	Length   uint32
	Position uint64
}

// Encode renders e as its 12-byte wire representation. Does not
// validate e.Length; callers constructing an outbound envelope are
// expected to have already checked it against MaxPayloadLength.
func (e Envelope) Encode() []byte {
	var buf bytes.Buffer
	buf.Grow(EnvelopeSize)
	// binary.Write never fails against a bytes.Buffer.
	_ = binary.Write(&buf, binary.BigEndian, wireHeader{Length: e.Length, Position: e.Position})
	return buf.Bytes()
}

// Decode parses b (which must be exactly EnvelopeSize bytes) into an
// Envelope and validates the length constraints from spec.md §3:
// 0 < length < 2^31. It does NOT validate Position against a pad's
// current head or size — that check requires pad state and is done by
// the reactor's framing layer (spec.md §4.E), which can distinguish
// "regressed head" from "overruns pad size" for error reporting.
func Decode(b []byte) (Envelope, error) {
	if len(b) != EnvelopeSize {
		return Envelope{}, fmt.Errorf("wire: envelope must be %d bytes, got %d", EnvelopeSize, len(b))
	}
	var hdr wireHeader
	if err := binary.Read(bytes.NewReader(b), binary.BigEndian, &hdr); err != nil {
		return Envelope{}, fmt.Errorf("wire: decode envelope: %w", err)
	}
	e := Envelope{Length: hdr.Length, Position: hdr.Position}
	if e.Length == 0 {
		return e, ErrZeroLength
	}
	if e.Length >= MaxPayloadLength {
		return e, ErrLengthTooLong
	}
	return e, nil
}
