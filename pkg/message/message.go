// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package message defines the locally displayed chat message tuple.
// Grounded on original_source/src/message.c and message.h.
package message

import (
	"fmt"
	"time"
)

// Origin identifies who produced a Message.
type Origin int

const (
	// Status is reserved for locally generated informational lines
	// (connection state changes, command errors, pad exhaustion, ...).
	Status Origin = iota
	// Local is a message the user sent.
	Local
	// Remote is a message received (and decrypted) from the peer.
	Remote
)

func (o Origin) String() string {
	switch o {
	case Status:
		return "STATUS"
	case Local:
		return "LOCAL"
	case Remote:
		return "REMOTE"
	default:
		return "UNKNOWN"
	}
}

// Message is (origin, timestamp, text).
type Message struct {
	Origin Origin
	Time   time.Time
	Text   string
}

// NewStatus builds a formatted STATUS message, mirroring
// original_source/src/chat.c's chat_push_status varargs helper.
func NewStatus(format string, args ...interface{}) Message {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	return Message{Origin: Status, Time: time.Now(), Text: text}
}
