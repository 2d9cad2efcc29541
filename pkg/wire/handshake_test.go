// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/otpchat/otpchat/pkg/pad"
)

// overwriteID rewrites an on-disk pad's id field directly, so tests can
// construct two stores that recognize each other's pads without a
// real pad-sharing step.
func overwriteID(t *testing.T, path string, id pad.ID) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteAt(id[:], 16); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
}

// pairedExchanger connects two in-memory handshake participants
// directly, without a socket, per spec.md §9.
type pairedExchanger struct {
	peer *pairedExchanger
	in   chan []byte
}

func newPair() (*pairedExchanger, *pairedExchanger) {
	a := &pairedExchanger{in: make(chan []byte, 4)}
	b := &pairedExchanger{in: make(chan []byte, 4)}
	a.peer = b
	b.peer = a
	return a, b
}

func (e *pairedExchanger) Exchange(send []byte, recv []byte, timeout time.Duration) error {
	e.peer.in <- append([]byte(nil), send...)
	select {
	case got := <-e.in:
		copy(recv, got)
		return nil
	case <-time.After(timeout):
		return errTimeout
	}
}

var errTimeout = &timeoutError{}

type timeoutError struct{}

func (*timeoutError) Error() string { return "timed out" }

// makePadWithID creates a pad at path, then rewrites its id so tests
// can control whether two stores recognize each other.
func makePadWithID(t *testing.T, path string, id pad.ID, size uint64) {
	t.Helper()
	p, err := pad.Create(path, size)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	p.Close()
	overwriteID(t, path, id)
}

func TestHandshakeSymmetry(t *testing.T) {
	dir := t.TempDir()
	aLocalPath := filepath.Join(dir, "a-local.pad")
	if _, err := pad.Create(aLocalPath, 100); err != nil {
		t.Fatalf("Create: %v", err)
	}
	aLocal, err := pad.Open(aLocalPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	aLocalID := aLocal.ID()
	aLocal.Close()

	bLocalPath := filepath.Join(dir, "b-local.pad")
	if _, err := pad.Create(bLocalPath, 100); err != nil {
		t.Fatalf("Create: %v", err)
	}
	bLocal, err := pad.Open(bLocalPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	bLocalID := bLocal.ID()
	bLocal.Close()

	// A's store: local = aLocal, remote = a copy of bLocal's id.
	aStore := pad.NewStore()
	if err := aStore.OpenLocal(aLocalPath); err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	aRemotePath := filepath.Join(dir, "a-remote.pad")
	makePadWithID(t, aRemotePath, bLocalID, 100)
	if err := aStore.OpenRemote(aRemotePath); err != nil {
		t.Fatalf("OpenRemote: %v", err)
	}

	// B's store: local = bLocal, remote = a copy of aLocal's id.
	bStore := pad.NewStore()
	if err := bStore.OpenLocal(bLocalPath); err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	bRemotePath := filepath.Join(dir, "b-remote.pad")
	makePadWithID(t, bRemotePath, aLocalID, 100)
	if err := bStore.OpenRemote(bRemotePath); err != nil {
		t.Fatalf("OpenRemote: %v", err)
	}

	ea, eb := newPair()
	type outcome struct {
		res      Result
		selected *pad.Pad
		err      error
	}
	results := make(chan outcome, 2)
	go func() {
		r, p, err := Do(ea, aStore, time.Second)
		results <- outcome{r, p, err}
	}()
	go func() {
		r, p, err := Do(eb, bStore, time.Second)
		results <- outcome{r, p, err}
	}()

	o1 := <-results
	o2 := <-results
	for _, o := range []outcome{o1, o2} {
		if o.err != nil {
			t.Fatalf("Do: %v", o.err)
		}
		if o.res != ResultSuccess {
			t.Fatalf("result = %v, want ResultSuccess", o.res)
		}
		if o.selected == nil {
			t.Fatalf("selected pad is nil")
		}
	}
}

func TestHandshakeAsymmetry(t *testing.T) {
	dir := t.TempDir()
	// A's local pad id X; A holds no remote pad.
	aLocalPath := filepath.Join(dir, "a-local.pad")
	if _, err := pad.Create(aLocalPath, 100); err != nil {
		t.Fatalf("Create: %v", err)
	}
	aStore := pad.NewStore()
	if err := aStore.OpenLocal(aLocalPath); err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}

	// B's local pad id Y; B holds a remote pad matching A's local id X.
	bLocalPath := filepath.Join(dir, "b-local.pad")
	if _, err := pad.Create(bLocalPath, 100); err != nil {
		t.Fatalf("Create: %v", err)
	}
	bStore := pad.NewStore()
	if err := bStore.OpenLocal(bLocalPath); err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	aLocal, err := pad.Open(aLocalPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	aLocalID := aLocal.ID()
	aLocal.Close()
	bRemotePath := filepath.Join(dir, "b-remote.pad")
	makePadWithID(t, bRemotePath, aLocalID, 100)
	if err := bStore.OpenRemote(bRemotePath); err != nil {
		t.Fatalf("OpenRemote: %v", err)
	}

	ea, eb := newPair()
	type outcome struct {
		res Result
		err error
	}
	results := make(chan outcome, 2)
	go func() {
		r, _, err := Do(ea, aStore, time.Second)
		results <- outcome{r, err}
	}()
	go func() {
		r, _, err := Do(eb, bStore, time.Second)
		results <- outcome{r, err}
	}()

	o1 := <-results
	o2 := <-results
	// A has no matching remote pad: A rejects -> ResultLocalRejected.
	// B has a matching remote pad and accepted A's pad, but A rejected
	// B's: B sees ResultRemoteRejected.
	seenLocalRejected := false
	seenRemoteRejected := false
	for _, o := range []outcome{o1, o2} {
		if o.err != nil {
			t.Fatalf("Do: %v", o.err)
		}
		switch o.res {
		case ResultLocalRejected:
			seenLocalRejected = true
		case ResultRemoteRejected:
			seenRemoteRejected = true
		default:
			t.Fatalf("unexpected result %v", o.res)
		}
	}
	if !seenLocalRejected || !seenRemoteRejected {
		t.Fatalf("expected one LocalRejected and one RemoteRejected, got %v, %v", o1.res, o2.res)
	}
}
