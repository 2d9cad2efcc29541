// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package endpoint

import (
	"errors"
	"time"
)

// ErrWouldBlock is returned by Send/Recv when the non-blocking socket
// has no data or buffer space available right now — not a fatal
// condition, just "try again once the reactor sees readiness".
var ErrWouldBlock = errors.New("endpoint: would block")

// ErrTimeout is returned by Exchange when the budget expires before
// both buffers are fully transferred.
var ErrTimeout = errors.New("endpoint: exchange timed out")

// ErrClosed is returned by operations on an endpoint that has already
// observed peer-close (Recv returning 0) or been explicitly Closed.
var ErrClosed = errors.New("endpoint: use of closed endpoint")

// Endpoint is a non-blocking stream socket. The zero value is not
// usable; construct one with Connect, Listen, or Accept.
type Endpoint struct {
	fd     int
	closed bool
}

// Fd returns the endpoint's raw file descriptor, for use with a
// poller. Only valid while the endpoint is open.
func (e *Endpoint) Fd() int { return e.fd }

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
