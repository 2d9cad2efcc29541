// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package endpoint wraps a non-blocking TCP stream socket: connect,
// listen, accept, send, recv, and error-probe, plus a bounded
// bidirectional pump used only by the handshake. Grounded on
// original_source/src/net.c (§4.C) and adapted, at the syscall-wrapper
// level, from the teacher's pkg/drive raw ioctl/fd handling.
package endpoint

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the otpchat default listen/connect port.
const DefaultPort = 14137

// Address is a resolved or to-be-resolved peer address.
type Address struct {
	Host string
	Port uint16
}

func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// ParseAddress parses text of the form "host:port", "host" (port
// defaults to DefaultPort), or a bare numeric port (host defaults to
// "" — all interfaces, for listen-only use). Grounded on
// original_source/src/address.c's parse_address.
func ParseAddress(text string) (Address, error) {
	if text == "" {
		return Address{Host: "", Port: DefaultPort}, nil
	}
	if port, err := strconv.ParseUint(text, 10, 16); err == nil {
		if port == 0 {
			return Address{}, fmt.Errorf("endpoint: port must be 1-65535, got %d", port)
		}
		return Address{Host: "", Port: uint16(port)}, nil
	}

	host, portStr, err := net.SplitHostPort(text)
	if err != nil {
		// No colon (or unparsable); treat the whole string as a host
		// with the default port, mirroring the original's grammar.
		if !strings.Contains(text, ":") {
			return Address{Host: text, Port: DefaultPort}, nil
		}
		return Address{}, fmt.Errorf("endpoint: malformed address %q: %w", text, err)
	}
	if portStr == "" {
		return Address{Host: host, Port: DefaultPort}, nil
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return Address{}, fmt.Errorf("endpoint: malformed port in %q", text)
	}
	return Address{Host: host, Port: uint16(port)}, nil
}
