// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package codec implements the one-time-pad XOR operation shared by
// encryption and decryption.
package codec

import (
	"github.com/otpchat/otpchat/pkg/pad"
)

// XorInPlace takes len(buffer) sequential bytes from p (advancing its
// head) and XORs them into buffer in place. Encryption and decryption
// are the same operation; the asymmetry lives entirely in which pad
// (local vs remote) the caller supplies.
//
// If p cannot supply the full count, XorInPlace returns
// pad.ErrExhausted; p's head still reflects whatever bytes were
// actually consumed, and the caller must treat the session as
// unrecoverable — reusing any of that pad's remaining keystream after
// a partial XOR would violate the one-time-pad's no-reuse invariant.
func XorInPlace(p *pad.Pad, buffer []byte) error {
	keystream, err := p.Take(uint64(len(buffer)))
	for i := range keystream {
		buffer[i] ^= keystream[i]
	}
	if err != nil {
		return err
	}
	return nil
}
