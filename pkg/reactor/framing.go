// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reactor

import (
	"errors"
	"fmt"

	"github.com/otpchat/otpchat/pkg/codec"
	"github.com/otpchat/otpchat/pkg/pad"
	"github.com/otpchat/otpchat/pkg/wire"
)

// ErrFramingProtocol marks any fatal framing violation from spec.md
// §4.E / §7: zero or overlong length, a regressing head, or a head+
// length that overruns the remote pad's size.
var ErrFramingProtocol = errors.New("reactor: framing protocol error")

// PartialFrame is a growable buffer with a progress count, used for
// both the inbound and outbound direction. Its semantic state (for
// the inbound direction) is: "envelope pending" while
// len(Buf) == wire.EnvelopeSize && Progress < wire.EnvelopeSize,
// "envelope complete, payload pending" once Buf has grown past
// EnvelopeSize, and "frame complete" once Progress == len(Buf).
type PartialFrame struct {
	Buf      []byte
	Progress int
}

// NewInboundFrame starts a fresh inbound buffer sized for the envelope.
func NewInboundFrame() *PartialFrame {
	return &PartialFrame{Buf: make([]byte, wire.EnvelopeSize)}
}

// Remaining returns the unfilled tail of Buf, the bytes this frame
// still needs.
func (f *PartialFrame) Remaining() []byte {
	return f.Buf[f.Progress:]
}

// Advance records n newly-filled bytes.
func (f *PartialFrame) Advance(n int) {
	f.Progress += n
}

// Complete reports whether every byte of Buf has been filled.
func (f *PartialFrame) Complete() bool {
	return f.Progress == len(f.Buf)
}

// EnvelopePending reports whether the 12-byte envelope itself is still
// being read.
func (f *PartialFrame) EnvelopePending() bool {
	return len(f.Buf) == wire.EnvelopeSize && f.Progress < wire.EnvelopeSize
}

// BeginSend allocates a buffer of EnvelopeSize+len(plaintext), writes
// the envelope (length, and the local pad's head at this instant),
// copies plaintext into the payload region, then runs the codec over
// the payload region in place (which advances the local pad's head).
// Grounded on spec.md §4.E and the teacher's communication.go Send.
func BeginSend(local *pad.Pad, plaintext []byte) (*PartialFrame, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("reactor: %w: empty payload", ErrFramingProtocol)
	}
	if uint64(len(plaintext)) >= wire.MaxPayloadLength {
		return nil, fmt.Errorf("reactor: %w: payload too long", ErrFramingProtocol)
	}

	env := wire.Envelope{Length: uint32(len(plaintext)), Position: local.Head()}
	buf := make([]byte, wire.EnvelopeSize+len(plaintext))
	copy(buf, env.Encode())
	copy(buf[wire.EnvelopeSize:], plaintext)

	if err := codec.XorInPlace(local, buf[wire.EnvelopeSize:]); err != nil {
		return nil, err
	}
	return &PartialFrame{Buf: buf}, nil
}

// DecodeEnvelopeAndGrow is called once an inbound PartialFrame's first
// EnvelopeSize bytes are complete. It parses length+position, validates
// position against remote's current head and size, seeks remote to
// position, and grows the frame to hold the full payload.
func DecodeEnvelopeAndGrow(f *PartialFrame, remote *pad.Pad) error {
	env, err := wire.Decode(f.Buf[:wire.EnvelopeSize])
	if err != nil {
		return fmt.Errorf("reactor: %w: %v", ErrFramingProtocol, err)
	}
	if env.Position < remote.Head() {
		return fmt.Errorf("reactor: %w: head regressed", ErrFramingProtocol)
	}
	if env.Position+uint64(env.Length) > remote.Size() {
		return fmt.Errorf("reactor: %w: frame overruns pad", ErrFramingProtocol)
	}
	if err := remote.Seek(env.Position); err != nil {
		return fmt.Errorf("reactor: %w: %v", ErrFramingProtocol, err)
	}

	grown := make([]byte, wire.EnvelopeSize+int(env.Length))
	copy(grown, f.Buf)
	f.Buf = grown
	return nil
}

// FinishReceive runs the codec over the payload region (advancing
// remote's head) and returns the recovered plaintext. Only valid once
// the frame is Complete().
func FinishReceive(f *PartialFrame, remote *pad.Pad) ([]byte, error) {
	payload := append([]byte(nil), f.Buf[wire.EnvelopeSize:]...)
	if err := codec.XorInPlace(remote, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
