// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package reactor

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/otpchat/otpchat/pkg/endpoint"
	"github.com/otpchat/otpchat/pkg/message"
	"github.com/otpchat/otpchat/pkg/metrics"
	"github.com/otpchat/otpchat/pkg/pad"
	"github.com/otpchat/otpchat/pkg/wire"
)

// UI is the thin, out-of-scope collaborator the reactor drives.
// Rendering, scrolling, and input editing live entirely on the other
// side of this interface (spec.md §1).
type UI interface {
	// Fd is the file descriptor the reactor polls for input readiness
	// (typically stdin, fd 0).
	Fd() int
	// Running reports whether the process should keep looping.
	Running() bool
	// ReadLine consumes one fully-available line of input, if any.
	// ok is false if no full line is ready yet.
	ReadLine() (line string, ok bool, err error)
	// Push delivers a message (status, local echo, or remote receipt)
	// for display.
	Push(message.Message)
	// Redraw is called after an interrupted wait or a state change
	// that the UI should reflect immediately.
	Redraw()
}

// CommandFunc dispatches a "/"-prefixed line of user input. It is
// supplied by the out-of-scope slash-command collaborator (spec.md
// §6); the reactor only recognizes that a line beginning with "/" is a
// command, not what any particular command does.
type CommandFunc func(r *Reactor, line string)

// Reactor is the single-threaded readiness-multiplexing loop that
// drives the session state machine. Grounded on
// original_source/src/chat.c's event loop and the teacher's
// not-quite-io.ReadWriter Communication pattern in communication.go.
type Reactor struct {
	Store            *pad.Store
	UI               UI
	Session          *Session
	Listener         *endpoint.Endpoint
	HandshakeTimeout time.Duration
	Command          CommandFunc

	// Metrics is optional; when set, the reactor records message,
	// byte, handshake, and connectedness counters into it as it runs
	// (SPEC_FULL.md §11's prometheus wiring).
	Metrics *metrics.Metrics

	// pendingAddr records the address most recently passed to
	// BeginConnect; it is not cleared when the session leaves
	// CONNECTING.
	pendingAddr endpoint.Address
}

// NewReactor returns a Reactor in NotConnected with no listener.
func NewReactor(store *pad.Store, ui UI, cmd CommandFunc) *Reactor {
	return &Reactor{
		Store:            store,
		UI:               ui,
		Session:          NewSession(),
		HandshakeTimeout: 2000 * time.Millisecond,
		Command:          cmd,
	}
}

// BeginConnect transitions NotConnected -> Connecting by starting an
// asynchronous connect to addr.
func (r *Reactor) BeginConnect(addr endpoint.Address) error {
	if r.Session.State != NotConnected {
		return fmt.Errorf("reactor: cannot connect while %s", r.Session.State)
	}
	ep, err := endpoint.Connect(addr)
	if err != nil {
		return err
	}
	r.Session.Endpoint = ep
	r.Session.State = Connecting
	r.pendingAddr = addr
	return nil
}

// BeginListen opens (or reopens) a listener on port. A listener is
// independent of session state: it may coexist with NotConnected, it
// is closed when the session reaches Connected (spec.md §4.F), and it
// is only polled for accepts while NotConnected.
func (r *Reactor) BeginListen(port uint16) error {
	r.EndListen()
	ep, err := endpoint.Listen(port)
	if err != nil {
		return err
	}
	r.Listener = ep
	return nil
}

// EndListen closes the listener, if any.
func (r *Reactor) EndListen() {
	if r.Listener != nil {
		r.Listener.Close()
		r.Listener = nil
	}
}

// Disconnect closes the peer socket and returns to NotConnected.
func (r *Reactor) Disconnect() {
	r.Session.Reset()
	r.recordConnected(false)
}

func (r *Reactor) recordHandshake(ok bool) {
	if r.Metrics != nil {
		r.Metrics.RecordHandshake(ok)
	}
}

func (r *Reactor) recordConnected(connected bool) {
	if r.Metrics != nil {
		r.Metrics.SetConnected(connected)
	}
}

// BeginSend encrypts plaintext with the local pad and queues it as the
// session's outbound partial frame. Fails if the prior outbound buffer
// has not fully drained (spec.md §5: strict per-session FIFO).
func (r *Reactor) BeginSend(plaintext []byte) error {
	if r.Session.State != Connected {
		return fmt.Errorf("reactor: cannot send while %s", r.Session.State)
	}
	if r.Session.Outbound != nil && !r.Session.Outbound.Complete() {
		return errors.New("reactor: previous outbound frame has not drained")
	}
	frame, err := BeginSend(r.Store.Local, plaintext)
	if err != nil {
		return err
	}
	r.Session.Outbound = frame
	if r.Metrics != nil {
		r.Metrics.RecordSend(len(plaintext))
	}
	return nil
}

// Run executes the reactor loop until the UI's Running() becomes
// false. Each iteration follows spec.md §4.G: build read/write sets,
// wait indefinitely, dispatch events in any order (handlers act on
// disjoint state), then check for a dropped CONNECTED peer.
func (r *Reactor) Run() error {
	for r.UI.Running() {
		readFds, writeFds := r.buildSets()
		events, err := Poll(readFds, writeFds)
		if err != nil {
			if err == unix.EINTR {
				r.UI.Redraw()
				continue
			}
			return fmt.Errorf("reactor: poll: %w", err)
		}
		r.dispatch(events)
		r.checkPeerError()
	}
	return nil
}

func (r *Reactor) buildSets() (readFds, writeFds []int) {
	readFds = append(readFds, r.UI.Fd())
	if r.Session.State == Connected {
		readFds = append(readFds, r.Session.Endpoint.Fd())
	}
	if r.Session.State == NotConnected && r.Listener != nil {
		readFds = append(readFds, r.Listener.Fd())
	}
	if r.Session.Endpoint != nil {
		if r.Session.State == Connecting {
			writeFds = append(writeFds, r.Session.Endpoint.Fd())
		} else if r.Session.State == Connected && r.Session.Outbound != nil && !r.Session.Outbound.Complete() {
			writeFds = append(writeFds, r.Session.Endpoint.Fd())
		}
	}
	return
}

func (r *Reactor) dispatch(events []Readiness) {
	for _, ev := range events {
		switch {
		case r.UI.Fd() == ev.Fd && ev.Readable:
			r.handleInput()
		case r.Listener != nil && r.Listener.Fd() == ev.Fd && ev.Readable:
			r.handleAccept()
		case r.Session.Endpoint != nil && r.Session.Endpoint.Fd() == ev.Fd:
			if ev.Readable && r.Session.State == Connected {
				r.handlePeerReadable()
			}
			if ev.Writable && r.Session.State == Connecting {
				r.handleConnectWritable()
			} else if ev.Writable && r.Session.State == Connected {
				r.handlePeerWritable()
			}
		}
	}
}

func (r *Reactor) handleInput() {
	for {
		line, ok, err := r.UI.ReadLine()
		if err != nil || !ok {
			return
		}
		if len(line) > 0 && line[0] == '/' {
			if r.Command != nil {
				r.Command(r, line)
			}
			continue
		}
		if line == "" {
			continue
		}
		if err := r.BeginSend([]byte(line)); err != nil {
			if errors.Is(err, pad.ErrExhausted) {
				r.UI.Push(message.NewStatus("Out of local key data!"))
				r.Disconnect()
			} else {
				r.UI.Push(message.NewStatus("%v", err))
			}
			continue
		}
		r.UI.Push(message.Message{Origin: message.Local, Time: time.Now(), Text: line})
	}
}

func (r *Reactor) handleAccept() {
	child, err := r.Listener.Accept()
	if err != nil {
		if err == endpoint.ErrWouldBlock {
			return
		}
		r.UI.Push(message.NewStatus("Accept failed: %v", err))
		return
	}
	result, selected, err := wire.Do(child, r.Store, r.HandshakeTimeout)
	if err != nil {
		r.recordHandshake(false)
		r.UI.Push(message.NewStatus("Handshake error: %v", err))
		child.Close()
		return
	}
	if result != wire.ResultSuccess {
		r.recordHandshake(false)
		r.UI.Push(message.NewStatus("Handshake rejected incoming peer: %s", result))
		child.Close()
		return
	}
	r.Session.Endpoint = child
	r.Session.Remote = selected
	r.Session.State = Connected
	r.EndListen()
	r.recordHandshake(true)
	r.recordConnected(true)
	r.UI.Push(message.NewStatus("Connected (pad %s)", selected.ID().Fingerprint()))
}

func (r *Reactor) handleConnectWritable() {
	if err := r.Session.Endpoint.Error(); err != nil {
		r.UI.Push(message.NewStatus("Connect failed: %v", err))
		r.Disconnect()
		return
	}
	result, selected, err := wire.Do(r.Session.Endpoint, r.Store, r.HandshakeTimeout)
	if err != nil {
		r.recordHandshake(false)
		r.UI.Push(message.NewStatus("Handshake error: %v", err))
		r.Disconnect()
		return
	}
	if result != wire.ResultSuccess {
		r.recordHandshake(false)
		r.UI.Push(message.NewStatus("Handshake failed: %s", result))
		r.Disconnect()
		return
	}
	r.Session.Remote = selected
	r.Session.State = Connected
	r.EndListen()
	r.recordHandshake(true)
	r.recordConnected(true)
	r.UI.Push(message.NewStatus("Connected (pad %s)", selected.ID().Fingerprint()))
}

func (r *Reactor) handlePeerReadable() {
	f := r.Session.Inbound
	n, err := r.Session.Endpoint.Recv(f.Remaining())
	if err != nil && err != endpoint.ErrWouldBlock {
		r.UI.Push(message.NewStatus("Receive error: %v", err))
		r.Disconnect()
		return
	}
	if err == endpoint.ErrWouldBlock {
		return
	}
	if n == 0 {
		r.UI.Push(message.NewStatus("Remote disconnected"))
		r.Disconnect()
		return
	}
	f.Advance(n)
	r.Session.BytesReceived += uint64(n)

	if f.EnvelopePending() && f.Complete() {
		if err := DecodeEnvelopeAndGrow(f, r.Session.Remote); err != nil {
			r.UI.Push(message.NewStatus("Framing error: %v", err))
			r.Disconnect()
			return
		}
	}
	if !f.EnvelopePending() && f.Complete() {
		plaintext, err := FinishReceive(f, r.Session.Remote)
		if err != nil {
			if errors.Is(err, pad.ErrExhausted) {
				r.UI.Push(message.NewStatus("Out of remote key data!"))
			} else {
				r.UI.Push(message.NewStatus("Decrypt error: %v", err))
			}
			r.Disconnect()
			return
		}
		if r.Metrics != nil {
			r.Metrics.RecordReceive(len(plaintext))
		}
		r.UI.Push(message.Message{Origin: message.Remote, Time: time.Now(), Text: string(plaintext)})
		r.Session.Inbound = NewInboundFrame()
	}
}

func (r *Reactor) handlePeerWritable() {
	f := r.Session.Outbound
	if f == nil || f.Complete() {
		return
	}
	n, err := r.Session.Endpoint.Send(f.Remaining())
	if err != nil && err != endpoint.ErrWouldBlock {
		r.UI.Push(message.NewStatus("Send error: %v", err))
		r.Disconnect()
		return
	}
	f.Advance(n)
	r.Session.BytesSent += uint64(n)
}

func (r *Reactor) checkPeerError() {
	if r.Session.State != Connected || r.Session.Endpoint == nil {
		return
	}
	if err := r.Session.Endpoint.Error(); err != nil {
		r.UI.Push(message.NewStatus("Remote disconnected: %v", err))
		r.Disconnect()
	}
}
