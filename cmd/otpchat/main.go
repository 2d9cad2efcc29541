// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/otpchat/otpchat/pkg/cmdutil"
	"github.com/otpchat/otpchat/pkg/config"
)

const (
	programName = "otpchat"
	programDesc = "Two-party one-time-pad chat"
)

func main() {
	ctx := kong.Parse(&cli,
		kong.Name(programName),
		kong.Description(programDesc),
		kong.UsageOnError(),
		kong.NamedMapper("accessiblefile", cmdutil.AccessibleFileMapper()),
		kong.Vars{
			"handshake_timeout_ms": strconv.Itoa(config.DefaultHandshakeTimeoutMS),
		},
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	err := ctx.Run(&context{})
	ctx.FatalIfErrorf(err)
}
