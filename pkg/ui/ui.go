// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ui is the thin terminal collaborator named out-of-scope by
// spec.md §1 ("rendering, scrolling, multibyte cursor movement, color
// pairs"). It contributes no core engineering: just enough of a
// line-oriented front end to drive pkg/reactor.Reactor from a real
// terminal.
package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/otpchat/otpchat/pkg/message"
)

// Format renders a single message the way the teacher's CLI tools
// render status lines with the stdlib log package's timestamp prefix
// convention, adapted to the message's origin name (STATUS, LOCAL or
// REMOTE) instead of a package name.
func Format(m message.Message) string {
	return fmt.Sprintf("%s [%s] %s", m.Time.Format(time.TimeOnly), m.Origin, m.Text)
}

// Println writes one formatted message line to w, terminated with
// CRLF so it displays correctly while the terminal is in raw mode.
func Println(w io.Writer, m message.Message) {
	fmt.Fprintf(w, "%s\r\n", Format(m))
}
