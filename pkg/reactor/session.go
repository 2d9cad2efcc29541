// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reactor drives the per-peer session state machine and the
// single-threaded readiness-multiplexed event loop on top of
// pkg/endpoint, pkg/wire, and pkg/codec. Grounded on
// original_source/src/chat.c (chat_state, the main loop) and the
// teacher's pkg/core/session.go (Session/ControlSession struct shape).
package reactor

import (
	"github.com/otpchat/otpchat/pkg/endpoint"
	"github.com/otpchat/otpchat/pkg/pad"
)

// State is one of the three session states from spec.md §4.F.
type State int

const (
	NotConnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case NotConnected:
		return "NOT_CONNECTED"
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Session is the per-peer state: endpoint, state, selected remote-pad
// reference (non-owning — the PadStore owns the Pad), and the
// inbound/outbound partial frame buffers.
type Session struct {
	Endpoint *endpoint.Endpoint
	State    State
	Remote   *pad.Pad

	Inbound  *PartialFrame
	Outbound *PartialFrame

	// BytesSent/BytesReceived are cumulative counts of bytes written to
	// and read from the peer socket, envelopes included. pkg/metrics
	// keeps its own counters and does not read these.
	BytesSent     uint64
	BytesReceived uint64
}

// NewSession returns a Session in NotConnected with no endpoint bound.
func NewSession() *Session {
	return &Session{State: NotConnected, Inbound: NewInboundFrame()}
}

// Reset tears a session back down to NotConnected: closes the endpoint
// if present, drops the remote-pad binding, and discards any partial
// frames. Does not close the remote pad itself — the PadStore owns
// pad lifetimes.
func (s *Session) Reset() {
	if s.Endpoint != nil {
		s.Endpoint.Close()
		s.Endpoint = nil
	}
	s.State = NotConnected
	s.Remote = nil
	s.Inbound = NewInboundFrame()
	s.Outbound = nil
}
