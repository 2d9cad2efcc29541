// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pad implements the on-disk one-time-pad file format and the
// sequential, head-tracked keystream engine built on top of it.
package pad

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// On-disk layout (bit-exact, see spec.md §4.A / §6):
//
//	offset  size  field       encoding
//	0       8     magic       ASCII "OTPCHAT0"
//	8       8     head        u64 little-endian
//	16      16    id          raw bytes
//	32      N     keystream   raw random bytes
const (
	Magic        = "OTPCHAT0"
	magicOffset  = 0
	headOffset   = 8
	idOffset     = 16
	PreludeSize  = 32
	genBufSize   = 4096
)

var (
	ErrBadMagic         = errors.New("pad: bad magic")
	ErrTruncatedPrelude = errors.New("pad: truncated prelude")
	ErrHeadOutOfRange   = errors.New("pad: head exceeds pad size")
	ErrExhausted        = errors.New("pad: exhausted")
	ErrHeadRegressed    = errors.New("pad: seek to a head before the current head")
)

// Pad is a single pad file: a persistent id, a persistent consumption
// head, the total keystream size, and an open file handle positioned at
// prelude_size + head.
type Pad struct {
	f    *os.File
	id   ID
	head uint64
	size uint64

	// SyncEachTake, when true, rewrites and fsyncs the on-disk head
	// after every Take, not only on Close. See SPEC_FULL.md §13 (open
	// question: head durability). Defaults to true.
	SyncEachTake bool
}

// ID returns the pad's persistent identity.
func (p *Pad) ID() ID { return p.id }

// Head returns the number of keystream bytes already consumed.
func (p *Pad) Head() uint64 { return p.head }

// Size returns the total keystream size in bytes.
func (p *Pad) Size() uint64 { return p.size }

// Remaining returns the number of unconsumed keystream bytes.
func (p *Pad) Remaining() uint64 { return p.size - p.head }

// Open reads the 32-byte prelude, validates the magic, decodes the
// head and id, discovers the pad's keystream size by seeking to the
// end of the file, and positions the cursor at prelude_size + head.
func Open(path string) (*Pad, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("pad: open %s: %w", path, err)
	}

	prelude := make([]byte, PreludeSize)
	if _, err := io.ReadFull(f, prelude); err != nil {
		f.Close()
		return nil, fmt.Errorf("pad: read prelude %s: %w", path, ErrTruncatedPrelude)
	}
	if string(prelude[magicOffset:magicOffset+len(Magic)]) != Magic {
		f.Close()
		return nil, fmt.Errorf("pad: %s: %w", path, ErrBadMagic)
	}
	head := binary.LittleEndian.Uint64(prelude[headOffset : headOffset+8])

	var id ID
	copy(id[:], prelude[idOffset:idOffset+IDSize])

	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pad: seek end %s: %w", path, err)
	}
	size := uint64(end) - PreludeSize

	if head > size {
		f.Close()
		return nil, fmt.Errorf("pad: %s: %w", path, ErrHeadOutOfRange)
	}
	if _, err := f.Seek(int64(PreludeSize+head), io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("pad: seek head %s: %w", path, err)
	}

	return &Pad{f: f, id: id, head: head, size: size, SyncEachTake: true}, nil
}

// Create writes a fresh prelude (magic, head=0, a random id) followed
// by exactly size bytes drawn from a cryptographic entropy source. On
// partial entropy read the call fails and no pad is returned; a
// prelude-only file is never left as the final state (the file is
// removed on failure).
func Create(path string, size uint64) (*Pad, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("pad: create %s: %w", path, err)
	}

	var id ID
	if _, err := io.ReadFull(rand.Reader, id[:]); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("pad: generate id: %w", err)
	}

	prelude := make([]byte, PreludeSize)
	copy(prelude[magicOffset:], Magic)
	binary.LittleEndian.PutUint64(prelude[headOffset:], 0)
	copy(prelude[idOffset:], id[:])
	if _, err := f.Write(prelude); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("pad: write prelude %s: %w", path, err)
	}

	buf := make([]byte, genBufSize)
	var written uint64
	for written < size {
		n := uint64(genBufSize)
		if rem := size - written; rem < n {
			n = rem
		}
		if _, err := io.ReadFull(rand.Reader, buf[:n]); err != nil {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("pad: generate keystream: %w", err)
		}
		if _, err := f.Write(buf[:n]); err != nil {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("pad: write keystream %s: %w", path, err)
		}
		written += n
	}
	if _, err := f.Seek(PreludeSize, io.SeekStart); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("pad: seek to keystream %s: %w", path, err)
	}

	return &Pad{f: f, id: id, head: 0, size: size, SyncEachTake: true}, nil
}

// Close writes the current head back to the prelude, then releases the
// file handle. MUST be called for orderly shutdown; crash without Close
// loses any head advancement since the last Close or SyncEachTake write.
func (p *Pad) Close() error {
	if p.f == nil {
		return nil
	}
	err := p.writeHead()
	cerr := p.f.Close()
	p.f = nil
	if err != nil {
		return err
	}
	return cerr
}

func (p *Pad) writeHead() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], p.head)
	if _, err := p.f.WriteAt(buf[:], headOffset); err != nil {
		return fmt.Errorf("pad: write head: %w", err)
	}
	return nil
}

// Seek moves the file cursor and updates the in-memory head. For
// inbound use only: a received envelope's stream position tells the
// receiver where in the remote pad to resume decryption. A new_head
// less than the current head is rejected — rewinding would re-derive
// already-issued keystream and must be treated as a protocol error by
// the caller (see spec.md §7, §9).
func (p *Pad) Seek(newHead uint64) error {
	if newHead < p.head {
		return ErrHeadRegressed
	}
	if newHead > p.size {
		return ErrHeadOutOfRange
	}
	if _, err := p.f.Seek(int64(PreludeSize+newHead), io.SeekStart); err != nil {
		return fmt.Errorf("pad: seek: %w", err)
	}
	p.head = newHead
	return nil
}

// Take reads exactly n sequential bytes and advances the head by n. If
// fewer than n bytes are available, it returns ErrExhausted; the head
// still reflects whatever partial amount was actually read — callers
// MUST treat the pad (and its session) as unusable from that point on,
// since any subsequent Take would hand out keystream not backed by a
// full read and risks misalignment with the peer.
func (p *Pad) Take(n uint64) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(p.f, buf)
	p.head += uint64(read)
	if p.SyncEachTake && read > 0 {
		if werr := p.writeHead(); werr == nil {
			p.f.Sync()
		}
	}
	if err != nil || uint64(read) != n {
		return buf[:read], ErrExhausted
	}
	return buf, nil
}
