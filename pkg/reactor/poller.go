// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package reactor

import (
	"golang.org/x/sys/unix"
)

// Readiness is the outcome of waiting on one file descriptor.
type Readiness struct {
	Fd       int
	Readable bool
	Writable bool
}

// Poll waits indefinitely (timeout -1) on the given read- and
// write-interest sets, exactly as spec.md §4.G step 2 describes:
// "Wait indefinitely. If wait returns interrupted, redraw the UI
// collaborator and continue; any other error is fatal." Callers
// distinguish EINTR via the returned error being unix.EINTR.
func Poll(readFds, writeFds []int) ([]Readiness, error) {
	interest := make(map[int]*unix.PollFd)
	order := make([]int, 0, len(readFds)+len(writeFds))

	get := func(fd int) *unix.PollFd {
		if p, ok := interest[fd]; ok {
			return p
		}
		p := &unix.PollFd{Fd: int32(fd)}
		interest[fd] = p
		order = append(order, fd)
		return p
	}
	for _, fd := range readFds {
		get(fd).Events |= unix.POLLIN
	}
	for _, fd := range writeFds {
		get(fd).Events |= unix.POLLOUT
	}

	pfds := make([]unix.PollFd, len(order))
	for i, fd := range order {
		pfds[i] = *interest[fd]
	}

	if _, err := unix.Poll(pfds, -1); err != nil {
		return nil, err
	}

	var out []Readiness
	for _, pfd := range pfds {
		if pfd.Revents == 0 {
			continue
		}
		out = append(out, Readiness{
			Fd:       int(pfd.Fd),
			Readable: pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0,
			Writable: pfd.Revents&unix.POLLOUT != 0,
		})
	}
	return out, nil
}
