// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pad

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// IDSize is the size in bytes of a pad's persistent identity.
const IDSize = 16

// ID is a pad's persistent identity, stored raw at prelude offset 16.
type ID [IDSize]byte

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Fingerprint returns a short, human-checkable digest of the id, for
// display in status messages and logs only. It never appears on the
// wire and has no bearing on protocol correctness.
func (id ID) Fingerprint() string {
	sum := blake2b.Sum256(id[:])
	return hex.EncodeToString(sum[:6])
}
