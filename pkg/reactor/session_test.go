// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reactor

import "testing"

func TestNewSessionStartsNotConnected(t *testing.T) {
	s := NewSession()
	if s.State != NotConnected {
		t.Fatalf("new session state = %s, want %s", s.State, NotConnected)
	}
	if s.Endpoint != nil {
		t.Fatalf("new session has a bound endpoint")
	}
	if s.Inbound == nil || !s.Inbound.EnvelopePending() {
		t.Fatalf("new session inbound frame should be pending an envelope")
	}
}

func TestSessionResetReturnsToNotConnected(t *testing.T) {
	s := NewSession()
	s.State = Connected
	s.BytesSent = 42
	s.Outbound = &PartialFrame{Buf: make([]byte, 4)}

	s.Reset()

	if s.State != NotConnected {
		t.Fatalf("state after reset = %s, want %s", s.State, NotConnected)
	}
	if s.Remote != nil {
		t.Fatalf("remote pad binding should be cleared on reset")
	}
	if s.Outbound != nil {
		t.Fatalf("outbound frame should be cleared on reset")
	}
	if !s.Inbound.EnvelopePending() {
		t.Fatalf("inbound frame should be fresh after reset")
	}
	// Reset does not clear cumulative byte counters; they are
	// process-lifetime metrics, not per-connection state.
	if s.BytesSent != 42 {
		t.Fatalf("BytesSent = %d, want unchanged 42", s.BytesSent)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		NotConnected: "NOT_CONNECTED",
		Connecting:   "CONNECTING",
		Connected:    "CONNECTED",
		State(99):    "UNKNOWN",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
