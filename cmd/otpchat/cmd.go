// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otpchat/otpchat/pkg/config"
	"github.com/otpchat/otpchat/pkg/endpoint"
	"github.com/otpchat/otpchat/pkg/message"
	"github.com/otpchat/otpchat/pkg/metrics"
	"github.com/otpchat/otpchat/pkg/pad"
	"github.com/otpchat/otpchat/pkg/reactor"
	"github.com/otpchat/otpchat/pkg/ui"
)

// context is the kong run-context, following the teacher's
// cmd/gosedctl/cmd.go naming even though, unlike gosedctl, this
// program needs no shared run-time state across commands.
type context struct{}

// chatCmd is the default command: open the local and remote pads and
// enter the reactor loop, per spec.md §6's CLI surface.
type chatCmd struct {
	LocalPad  string `arg:"" type:"accessiblefile" help:"Path to this side's local (send) pad"`
	RemotePad string `arg:"" type:"accessiblefile" help:"Path to this side's remote (receive) pad"`
	Target    string `arg:"" optional:"" help:"[<host>[:<port>]|<port>]; bare port listens, host[:port] connects, omitted listens on the default port"`

	HandshakeTimeoutMS int    `name:"handshake-timeout-ms" default:"${handshake_timeout_ms}" help:"Handshake whole-phase budget in milliseconds"`
	NoSyncEachTake     bool   `name:"no-sync-each-take" help:"Disable per-Take head fsync (see SPEC_FULL.md §13); unsafe across crashes"`
	MetricsAddr        string `name:"metrics-addr" help:"If set, serve Prometheus metrics (promhttp) on this address, e.g. :9400"`
	Debug              bool   `help:"Dump the resolved configuration with go-spew before starting"`
}

// generateCmd creates a new pad file, replacing the distilled spec's
// "--generate" flag with a kong subcommand (SPEC_FULL.md §10) — same
// behavior, more idiomatic for this CLI library.
type generateCmd struct {
	Size int64  `arg:"" help:"Keystream size in bytes"`
	Path string `arg:"" help:"Path of the new pad file"`
}

var cli struct {
	Chat     chatCmd     `cmd:"" default:"1" help:"Enter an interactive chat session"`
	Generate generateCmd `cmd:"" help:"Generate a new pad file of a given size"`
}

func (g *generateCmd) Run(ctx *context) error {
	if g.Size <= 0 {
		return fmt.Errorf("otpchat: pad size must be positive")
	}
	p, err := pad.Create(g.Path, uint64(g.Size))
	if err != nil {
		return err
	}
	log.Printf("Generated pad %s (%d bytes, id %s)", g.Path, g.Size, p.ID())
	return p.Close()
}

func (c *chatCmd) Run(ctx *context) error {
	if c.Debug {
		spew.Config.Indent = "  "
		spew.Dump(c)
	}

	store := pad.NewStore()
	if err := store.OpenLocal(c.LocalPad); err != nil {
		return fmt.Errorf("otpchat: unable to open %s: %w", c.LocalPad, err)
	}
	if err := store.OpenRemote(c.RemotePad); err != nil {
		return fmt.Errorf("otpchat: unable to open %s: %w", c.RemotePad, err)
	}
	defer store.Close()

	if c.NoSyncEachTake {
		store.Local.SyncEachTake = false
		for _, r := range store.Remotes() {
			r.SyncEachTake = false
		}
	}

	m := metrics.New()
	if c.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: c.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server: %v", err)
			}
		}()
		log.Printf("Serving metrics on %s/metrics", c.MetricsAddr)
	}

	term, err := ui.NewTerminal()
	if err != nil {
		return fmt.Errorf("otpchat: %w", err)
	}
	defer term.Close()

	r := reactor.NewReactor(store, term, newDispatcher(m))
	r.HandshakeTimeout = time.Duration(c.HandshakeTimeoutMS) * time.Millisecond
	r.Metrics = m

	mode, addr, err := config.ResolveStartupArg(c.Target)
	if err != nil {
		return fmt.Errorf("otpchat: %w", err)
	}
	switch mode {
	case config.ModeListen:
		if err := r.BeginListen(addr.Port); err != nil {
			return fmt.Errorf("otpchat: %w", err)
		}
		term.Push(message.NewStatus("Listening on port %d", addr.Port))
	case config.ModeConnect:
		if addr.Port == 0 {
			addr.Port = endpoint.DefaultPort
		}
		if err := r.BeginConnect(addr); err != nil {
			return fmt.Errorf("otpchat: %w", err)
		}
		term.Push(message.NewStatus("Connecting to %s", addr))
	}

	return r.Run()
}
