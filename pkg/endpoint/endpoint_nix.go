// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package endpoint

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func setNonblocking(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("endpoint: set non-blocking: %w", err)
	}
	return nil
}

// resolveHost uses the stdlib's net.DefaultResolver to turn a hostname
// into an IP, supporting both IPv4 and IPv6 records.
func resolveHost(host string) (net.IP, error) {
	if host == "" {
		return net.IPv4zero, nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	ips, err := net.DefaultResolver.LookupIPAddr(context.Background(), host)
	if err != nil {
		return nil, fmt.Errorf("endpoint: resolve %q: %w", host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("endpoint: resolve %q: no addresses", host)
	}
	return ips[0].IP, nil
}

func sockaddrFor(ip net.IP, port uint16) (unix.Sockaddr, int, error) {
	if ip4 := ip.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: int(port)}
		copy(sa.Addr[:], ip4)
		return sa, unix.AF_INET, nil
	}
	ip16 := ip.To16()
	if ip16 == nil {
		return nil, 0, fmt.Errorf("endpoint: not a valid IPv4/IPv6 address: %v", ip)
	}
	sa := &unix.SockaddrInet6{Port: int(port)}
	copy(sa.Addr[:], ip16)
	return sa, unix.AF_INET6, nil
}

// Connect resolves addr (supporting IPv4 and IPv6 via the OS resolver),
// creates a non-blocking stream socket, and initiates a connect.
// Returns immediately; a pending (in-progress) connect is not an
// error — the caller must observe write-readiness and then probe
// Error().
func Connect(addr Address) (*Endpoint, error) {
	ip, err := resolveHost(addr.Host)
	if err != nil {
		return nil, err
	}
	sa, family, err := sockaddrFor(ip, addr.Port)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("endpoint: socket: %w", err)
	}
	if err := setNonblocking(fd); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Connect(fd, sa); err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return nil, fmt.Errorf("endpoint: connect %s: %w", addr, err)
	}
	return &Endpoint{fd: fd}, nil
}

// Listen resolves a passive (bind-all) address, sets SO_REUSEADDR,
// binds, and listens with backlog 5.
func Listen(port uint16) (*Endpoint, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("endpoint: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("endpoint: SO_REUSEADDR: %w", err)
	}
	if err := setNonblocking(fd); err != nil {
		unix.Close(fd)
		return nil, err
	}
	sa := &unix.SockaddrInet4{Port: int(port)}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("endpoint: bind :%d: %w", port, err)
	}
	if err := unix.Listen(fd, 5); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("endpoint: listen :%d: %w", port, err)
	}
	return &Endpoint{fd: fd}, nil
}

// Accept produces a non-blocking child endpoint from a listener.
// Returns ErrWouldBlock if no connection is pending.
func (e *Endpoint) Accept() (*Endpoint, error) {
	nfd, _, err := unix.Accept4(e.fd, unix.SOCK_NONBLOCK)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, ErrWouldBlock
		}
		return nil, fmt.Errorf("endpoint: accept: %w", err)
	}
	return &Endpoint{fd: nfd}, nil
}

// Error peeks the socket-level pending error, treating an in-progress
// connect as success (no error). Used by the reactor to detect connect
// failures and broken peers.
func (e *Endpoint) Error() error {
	errno, err := unix.GetsockoptInt(e.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return fmt.Errorf("endpoint: SO_ERROR probe: %w", err)
	}
	if errno == 0 || syscall.Errno(errno) == unix.EINPROGRESS {
		return nil
	}
	return syscall.Errno(errno)
}

// Send is non-blocking. 0 bytes with a nil error never happens for
// Send (unlike Recv); ErrWouldBlock means the socket buffer is full.
func (e *Endpoint) Send(data []byte) (int, error) {
	if e.closed {
		return 0, ErrClosed
	}
	n, err := unix.Write(e.fd, data)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, ErrWouldBlock
		}
		return 0, fmt.Errorf("endpoint: send: %w", err)
	}
	return n, nil
}

// Recv is non-blocking. A return of (0, nil) means the peer closed the
// connection in an orderly way or a fatal error occurred and the
// endpoint has been marked invalid; the caller must tear the session
// down. ErrWouldBlock means no data is available right now.
func (e *Endpoint) Recv(buf []byte) (int, error) {
	if e.closed {
		return 0, ErrClosed
	}
	n, err := unix.Read(e.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, ErrWouldBlock
		}
		// A fatal recv error is treated the same as orderly close by
		// the reactor: the endpoint is closed and marked invalid.
		e.closed = true
		return 0, nil
	}
	if n == 0 {
		e.closed = true
	}
	return n, nil
}

// GetAddress returns the endpoint's remote peer address, for logging.
func (e *Endpoint) GetAddress() (Address, error) {
	sa, err := unix.Getpeername(e.fd)
	if err != nil {
		return Address{}, fmt.Errorf("endpoint: getpeername: %w", err)
	}
	return addressFromSockaddr(sa)
}

func addressFromSockaddr(sa unix.Sockaddr) (Address, error) {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		ip := net.IP(v.Addr[:])
		return Address{Host: ip.String(), Port: uint16(v.Port)}, nil
	case *unix.SockaddrInet6:
		ip := net.IP(v.Addr[:])
		return Address{Host: ip.String(), Port: uint16(v.Port)}, nil
	default:
		return Address{}, fmt.Errorf("endpoint: unsupported sockaddr type %T", sa)
	}
}

// Close releases the underlying file descriptor.
func (e *Endpoint) Close() error {
	e.closed = true
	if err := unix.Close(e.fd); err != nil {
		return fmt.Errorf("endpoint: close: %w", err)
	}
	return nil
}

// Exchange runs a bidirectional pump until both send and recv buffers
// are fully transferred or the budget expires. Each wait-slot
// decrements the remaining budget by the elapsed wall-time; EINTR is
// retried without resetting the budget. Implements wire.Exchanger.
func (e *Endpoint) Exchange(send []byte, recv []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	sent, received := 0, 0

	for sent < len(send) || received < len(recv) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}

		var pfd unix.PollFd
		pfd.Fd = int32(e.fd)
		if sent < len(send) {
			pfd.Events |= unix.POLLOUT
		}
		if received < len(recv) {
			pfd.Events |= unix.POLLIN
		}

		n, err := unix.Poll([]unix.PollFd{pfd}, int(minDuration(remaining, time.Second).Milliseconds())+1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("endpoint: exchange poll: %w", err)
		}
		if n == 0 {
			continue // budget re-checked at loop top
		}

		if pfd.Revents&(unix.POLLOUT) != 0 && sent < len(send) {
			w, err := e.Send(send[sent:])
			if err != nil && err != ErrWouldBlock {
				return fmt.Errorf("endpoint: exchange send: %w", err)
			}
			sent += w
		}
		if pfd.Revents&(unix.POLLIN) != 0 && received < len(recv) {
			r, err := e.Recv(recv[received:])
			if err != nil && err != ErrWouldBlock {
				return fmt.Errorf("endpoint: exchange recv: %w", err)
			}
			if r == 0 && e.closed {
				return fmt.Errorf("endpoint: exchange: %w", ErrClosed)
			}
			received += r
		}
		if pfd.Revents&(unix.POLLHUP|unix.POLLERR) != 0 {
			return fmt.Errorf("endpoint: exchange: %w", ErrClosed)
		}
	}
	return nil
}
