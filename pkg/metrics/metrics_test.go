// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metrics

import (
	"strings"
	"testing"
)

func TestWriteTextReflectsRecordedCounters(t *testing.T) {
	m := New()
	m.RecordSend(5)
	m.RecordReceive(3)
	m.RecordHandshake(true)
	m.RecordHandshake(false)
	m.SetConnected(true)

	var b strings.Builder
	if err := m.WriteText(&b); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := b.String()

	for _, want := range []string{
		"otpchat_messages_sent_total 1",
		"otpchat_messages_received_total 1",
		"otpchat_ciphertext_bytes_sent_total 5",
		"otpchat_ciphertext_bytes_received_total 3",
		"otpchat_handshakes_succeeded_total 1",
		"otpchat_handshakes_failed_total 1",
		"otpchat_connected 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q; got:\n%s", want, out)
		}
	}
}

func TestSetConnectedFalse(t *testing.T) {
	m := New()
	m.SetConnected(true)
	m.SetConnected(false)

	var b strings.Builder
	if err := m.WriteText(&b); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if !strings.Contains(b.String(), "otpchat_connected 0") {
		t.Errorf("expected otpchat_connected 0, got:\n%s", b.String())
	}
}
