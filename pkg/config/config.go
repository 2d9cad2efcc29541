// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the defaults and derived addressing logic for
// the otpchat CLI surface described in spec.md §6, grounded on the
// teacher's cmd/gosedctl/cmd.go flag-tag conventions.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/otpchat/otpchat/pkg/endpoint"
)

// DefaultPort is the listen/connect port used when none is given.
const DefaultPort = endpoint.DefaultPort

// DefaultHandshakeTimeoutMS is the handshake's whole-phase budget,
// per spec.md §4.D.
const DefaultHandshakeTimeoutMS = 2000

// Mode is the chat-startup mode derived from the trailing CLI
// argument, per spec.md §6's CLI surface rule.
type Mode int

const (
	// ModeListen starts with a listener open and no outgoing connect.
	ModeListen Mode = iota
	// ModeConnect starts by dialing a peer immediately.
	ModeConnect
)

// ResolveStartupArg interprets the trailing `[<host>[:<port>]|<port>]`
// CLI argument exactly as spec.md §6 specifies: an empty argument
// means listen-only on DefaultPort; a bare value that parses as a
// valid port 1-65535 means listen-only on that port; anything else
// (host or host:port) means connect mode, with a missing port
// defaulting to DefaultPort.
func ResolveStartupArg(arg string) (Mode, endpoint.Address, error) {
	if arg == "" {
		return ModeListen, endpoint.Address{Port: DefaultPort}, nil
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > 65535 {
			return 0, endpoint.Address{}, fmt.Errorf("config: port %d out of range 1-65535", n)
		}
		return ModeListen, endpoint.Address{Port: uint16(n)}, nil
	}
	addr, err := endpoint.ParseAddress(arg)
	if err != nil {
		return 0, endpoint.Address{}, err
	}
	return ModeConnect, addr, nil
}

// SplitHostPort is a small helper shared by the "/connect" slash
// command, which accepts the same `host[:port]` grammar as the CLI's
// trailing argument but never the bare-port listen shorthand.
func SplitHostPort(arg string) (endpoint.Address, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return endpoint.Address{}, fmt.Errorf("config: empty address")
	}
	if _, err := strconv.ParseUint(arg, 10, 16); err == nil {
		return endpoint.Address{}, fmt.Errorf("config: %q is a bare port, want host[:port]", arg)
	}
	return endpoint.ParseAddress(arg)
}
