// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/otpchat/otpchat/pkg/pad"
)

// HandshakeMagic is the 8-byte ASCII magic that opens a handshake.
const HandshakeMagic = "OTPCHAT0"

const (
	phase1Size = 8 + pad.IDSize // magic + local pad id
	phase2Size = 1              // accept/reject byte
)

// Result is the outcome of a handshake attempt.
type Result int

const (
	// ResultSuccess means both sides accepted the other's pad id; the
	// selected remote pad is now bound to the session.
	ResultSuccess Result = iota
	// ResultMagicMismatch means the peer's protocol magic did not match.
	ResultMagicMismatch
	// ResultRemoteRejected means we accepted the peer's pad but the
	// peer rejected ours.
	ResultRemoteRejected
	// ResultLocalRejected means we rejected the peer's pad.
	ResultLocalRejected
	// ResultTimeout means the handshake did not complete within budget.
	ResultTimeout
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultMagicMismatch:
		return "protocol magic mismatch"
	case ResultRemoteRejected:
		return "local pad rejected by remote"
	case ResultLocalRejected:
		return "remote pad rejected locally"
	case ResultTimeout:
		return "timed out"
	default:
		return "unknown handshake result"
	}
}

var ErrHandshakeIO = errors.New("wire: handshake I/O error")

// Exchanger is the minimal bidirectional, bounded-wait transport the
// handshake needs. pkg/endpoint.Endpoint implements it; tests use an
// in-memory fake so the handshake's logic is verifiable without a
// socket (spec.md §9).
type Exchanger interface {
	// Exchange sends send and receives into recv (which must already
	// be sized to the expected reply), blocking until both transfers
	// complete or timeout elapses. Returns a non-nil error on a fatal
	// transport error or when the timeout elapses first.
	Exchange(send []byte, recv []byte, timeout time.Duration) error
}

// Do runs the two-phase handshake described in spec.md §4.D over x,
// using store to decide whether to accept the peer's pad id. It
// returns the handshake result and, on success, the remote pad that
// was selected (bound to the session by the caller). Any Exchange
// failure, a timeout or a transport error alike, is returned as a
// non-nil error together with ResultTimeout.
func Do(x Exchanger, store *pad.Store, timeout time.Duration) (Result, *pad.Pad, error) {
	deadline := time.Now().Add(timeout)

	send1 := make([]byte, phase1Size)
	copy(send1, HandshakeMagic)
	localID := store.Local.ID()
	copy(send1[8:], localID[:])

	recv1 := make([]byte, phase1Size)
	if err := x.Exchange(send1, recv1, time.Until(deadline)); err != nil {
		return ResultTimeout, nil, fmt.Errorf("wire: handshake phase 1: %w", err)
	}

	if !bytes.Equal(recv1[:8], []byte(HandshakeMagic)) {
		return ResultMagicMismatch, nil, nil
	}
	var peerID pad.ID
	copy(peerID[:], recv1[8:])
	selected := store.Find(peerID)

	send2 := []byte{0}
	if selected != nil {
		send2[0] = 1
	}
	recv2 := make([]byte, phase2Size)
	if err := x.Exchange(send2, recv2, time.Until(deadline)); err != nil {
		return ResultTimeout, nil, fmt.Errorf("wire: handshake phase 2: %w", err)
	}

	weAccepted := send2[0] == 1
	theyAccepted := recv2[0] == 1

	switch {
	case weAccepted && theyAccepted:
		return ResultSuccess, selected, nil
	case weAccepted && !theyAccepted:
		return ResultRemoteRejected, nil, nil
	default:
		return ResultLocalRejected, nil, nil
	}
}
