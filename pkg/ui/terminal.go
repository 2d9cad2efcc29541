// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package ui

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/otpchat/otpchat/pkg/message"
)

// Terminal is a minimal raw-mode line editor implementing
// pkg/reactor.UI. It echoes typed bytes itself (raw mode disables the
// kernel tty echo), supports backspace and Ctrl-C, and hands the
// reactor one completed line at a time. Grounded on the teacher's
// pkg/cmdutil/resolver.go (not carried into this repository) and its
// term.ReadPassword/term.MakeRaw usage —
// same library, adapted from one-shot password entry to a persistent
// raw-mode input loop.
type Terminal struct {
	fd       int
	oldState *term.State
	out      *os.File
	running  bool
	buf      []byte
	pending  bytes.Buffer // bytes read but not yet consumed into buf
}

// NewTerminal puts stdin into raw, non-blocking mode and returns a
// Terminal ready to be polled by the reactor.
func NewTerminal() (*Terminal, error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("ui: make raw: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		term.Restore(fd, oldState)
		return nil, fmt.Errorf("ui: set non-blocking: %w", err)
	}
	return &Terminal{fd: fd, oldState: oldState, out: os.Stdout, running: true}, nil
}

// Fd implements pkg/reactor.UI.
func (t *Terminal) Fd() int { return t.fd }

// Running implements pkg/reactor.UI.
func (t *Terminal) Running() bool { return t.running }

// Stop flips the running flag so the reactor's loop exits on its next
// check, per spec.md §4.G step 9.
func (t *Terminal) Stop() { t.running = false }

// Push implements pkg/reactor.UI.
func (t *Terminal) Push(m message.Message) {
	Println(t.out, m)
}

// Redraw implements pkg/reactor.UI. This terminal keeps no persistent
// on-screen state (no scrollback pane, no status bar), so there is
// nothing to redraw beyond a fresh prompt.
func (t *Terminal) Redraw() {
	fmt.Fprint(t.out, "\r> ")
}

// ReadLine implements pkg/reactor.UI. It performs one non-blocking
// read of whatever bytes are currently available and accumulates them
// into the in-progress line; bytes following a completed line within
// the same read are held back as the new in-progress line's start to
// avoid a blocking re-read, but — per this terminal's explicitly
// minimal, out-of-scope remit — only one completed line is surfaced
// per call, and any further already-buffered lines wait for the
// reactor's next ReadLine call rather than being drained in a loop
// here.
func (t *Terminal) ReadLine() (string, bool, error) {
	if t.pending.Len() == 0 {
		tmp := make([]byte, 256)
		n, err := unix.Read(t.fd, tmp)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return "", false, nil
			}
			return "", false, fmt.Errorf("ui: read: %w", err)
		}
		if n == 0 {
			t.running = false
			return "", false, nil
		}
		t.pending.Write(tmp[:n])
	}

	for t.pending.Len() > 0 {
		b, _ := t.pending.ReadByte()
		switch b {
		case '\r', '\n':
			line := string(t.buf)
			t.buf = t.buf[:0]
			fmt.Fprint(t.out, "\r\n")
			return line, true, nil
		case 3: // Ctrl-C
			t.running = false
			return "", false, nil
		case 127, '\b':
			if len(t.buf) > 0 {
				t.buf = t.buf[:len(t.buf)-1]
				fmt.Fprint(t.out, "\b \b")
			}
		default:
			t.buf = append(t.buf, b)
			t.out.Write([]byte{b})
		}
	}
	return "", false, nil
}

// Close restores the terminal's original mode.
func (t *Terminal) Close() error {
	return term.Restore(t.fd, t.oldState)
}
