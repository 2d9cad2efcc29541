// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"strconv"
	"strings"

	"github.com/otpchat/otpchat/pkg/config"
	"github.com/otpchat/otpchat/pkg/endpoint"
	"github.com/otpchat/otpchat/pkg/message"
	"github.com/otpchat/otpchat/pkg/metrics"
	"github.com/otpchat/otpchat/pkg/reactor"
)

// commandFunc matches reactor.CommandFunc's signature but with the
// split argv already provided by newDispatcher, mirroring
// original_source/src/command.c's str_to_argv + per-command table.
type commandFunc func(r *reactor.Reactor, args []string) error

// malformed is a sentinel matching the original's "return 2" (argc
// mismatch / bad argument), translated to a STATUS message by
// newDispatcher rather than an integer code.
type malformed struct{ reason string }

func (m malformed) Error() string { return m.reason }

// newCommandTable builds the dispatch table. "stats" closes over m
// since it is the one command that needs a collaborator beyond the
// Reactor itself (SPEC_FULL.md §12's supplemented feature).
func newCommandTable(m *metrics.Metrics) map[string]commandFunc {
	return map[string]commandFunc{
		"connect":    cmdConnect,
		"disconnect": cmdDisconnect,
		"listen":     cmdListen,
		"endlisten":  cmdEndlisten,
		"quit":       cmdQuit,
		"stats": func(r *reactor.Reactor, args []string) error {
			if len(args) != 0 {
				return malformed{"stats takes no arguments"}
			}
			var b strings.Builder
			if err := m.WriteText(&b); err != nil {
				return err
			}
			for _, line := range strings.Split(strings.TrimRight(b.String(), "\n"), "\n") {
				r.UI.Push(message.NewStatus("%s", line))
			}
			return nil
		},
	}
}

func cmdConnect(r *reactor.Reactor, args []string) error {
	if len(args) != 1 {
		return malformed{"connect takes exactly one host[:port] argument"}
	}
	addr, err := config.SplitHostPort(args[0])
	if err != nil {
		return malformed{err.Error()}
	}
	if err := r.BeginConnect(addr); err != nil {
		r.UI.Push(message.NewStatus("%v", err))
	}
	return nil
}

func cmdDisconnect(r *reactor.Reactor, args []string) error {
	if len(args) != 0 {
		return malformed{"disconnect takes no arguments"}
	}
	r.Disconnect()
	return nil
}

func cmdListen(r *reactor.Reactor, args []string) error {
	port := uint16(endpoint.DefaultPort)
	if len(args) == 1 {
		n, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil || n == 0 {
			return malformed{"listen port must be 1-65535"}
		}
		port = uint16(n)
	} else if len(args) != 0 {
		return malformed{"listen takes at most one port argument"}
	}
	if err := r.BeginListen(port); err != nil {
		r.UI.Push(message.NewStatus("%v", err))
	}
	return nil
}

func cmdEndlisten(r *reactor.Reactor, args []string) error {
	if len(args) != 0 {
		return malformed{"endlisten takes no arguments"}
	}
	r.EndListen()
	return nil
}

func cmdQuit(r *reactor.Reactor, args []string) error {
	if len(args) != 0 {
		return malformed{"quit takes no arguments"}
	}
	if stoppable, ok := r.UI.(interface{ Stop() }); ok {
		stoppable.Stop()
	}
	return nil
}

// splitArgs mirrors original_source/src/command.c's str_to_argv:
// whitespace-separated tokens, empty runs collapsed, no quoting.
func splitArgs(line string) []string {
	return strings.Fields(line)
}

// newDispatcher returns the reactor.CommandFunc bound into
// reactor.NewReactor. It mirrors command_handle's three outcomes:
// unrecognized command, malformed arguments, or a successful dispatch.
func newDispatcher(m *metrics.Metrics) reactor.CommandFunc {
	table := newCommandTable(m)
	return func(r *reactor.Reactor, line string) {
		fields := splitArgs(strings.TrimPrefix(line, "/"))
		if len(fields) == 0 {
			return
		}
		fn, ok := table[fields[0]]
		if !ok {
			r.UI.Push(message.NewStatus("Unrecognized command %q", fields[0]))
			return
		}
		if err := fn(r, fields[1:]); err != nil {
			if _, ok := err.(malformed); ok {
				r.UI.Push(message.NewStatus("Malformed command %q", line))
				return
			}
			r.UI.Push(message.NewStatus("%v", err))
		}
	}
}
