// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pad

import (
	"errors"
	"fmt"
)

var ErrDuplicateID = errors.New("pad: duplicate pad id in store")

// Store is exactly one local pad plus an ordered set of remote pads.
// The PadStore owns every pad file handle it holds.
type Store struct {
	Local   *Pad
	remotes []*Pad
}

// NewStore returns an empty store; pads are admitted with OpenLocal and
// OpenRemote.
func NewStore() *Store {
	return &Store{}
}

// OpenLocal opens path as the store's local pad, whose fresh bytes
// encrypt outbound payloads. Replaces any previously opened local pad
// (the caller is responsible for closing it first if that matters).
// Fails if the pad's id duplicates one already held as a remote pad —
// pad ids must be unique across the whole store, not just within the
// remote set, since using the same keystream as both local and remote
// pad would reuse it the moment a message round-trips.
func (s *Store) OpenLocal(path string) error {
	p, err := Open(path)
	if err != nil {
		return err
	}
	for _, r := range s.remotes {
		if r.id == p.id {
			p.Close()
			return fmt.Errorf("pad: %s: %w", path, ErrDuplicateID)
		}
	}
	s.Local = p
	return nil
}

// OpenRemote opens path and admits it as one of the store's remote
// pads, whose fresh bytes decrypt inbound payloads from the peer that
// selects this pad's id during the handshake. May be called multiple
// times to admit several remote pads. Fails if the pad's id duplicates
// one already held, including the store's local pad.
func (s *Store) OpenRemote(path string) error {
	p, err := Open(path)
	if err != nil {
		return err
	}
	if s.Local != nil && s.Local.id == p.id {
		p.Close()
		return fmt.Errorf("pad: %s: %w", path, ErrDuplicateID)
	}
	for _, r := range s.remotes {
		if r.id == p.id {
			p.Close()
			return fmt.Errorf("pad: %s: %w", path, ErrDuplicateID)
		}
	}
	s.remotes = append(s.remotes, p)
	return nil
}

// Find performs a linear scan (remote-pad sets are expected to be
// small) for a remote pad matching id. Returns nil if none matches.
func (s *Store) Find(id ID) *Pad {
	for _, r := range s.remotes {
		if r.id == id {
			return r
		}
	}
	return nil
}

// Remotes returns the store's remote pads, in admission order.
func (s *Store) Remotes() []*Pad {
	return s.remotes
}

// Close closes every pad held by the store (local and all remotes),
// writing each head back to disk. Returns the first error encountered,
// after attempting to close every pad.
func (s *Store) Close() error {
	var first error
	if s.Local != nil {
		if err := s.Local.Close(); err != nil && first == nil {
			first = err
		}
		s.Local = nil
	}
	for _, r := range s.remotes {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.remotes = nil
	return first
}
