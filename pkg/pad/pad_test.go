// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pad

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCreateOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pad")

	p, err := Create(path, 1000)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := p.ID()
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p2, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p2.Close()
	if p2.ID() != id {
		t.Fatalf("id mismatch: got %s want %s", p2.ID(), id)
	}
	if p2.Head() != 0 {
		t.Fatalf("head = %d, want 0", p2.Head())
	}
	if p2.Size() != 1000 {
		t.Fatalf("size = %d, want 1000", p2.Size())
	}
}

func TestCloseWithoutOperationsPreservesHead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pad")
	p, err := Create(path, 100)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p2, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := p2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p3, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p3.Close()
	if p3.Head() != 0 {
		t.Fatalf("head = %d, want 0", p3.Head())
	}
}

func TestTakeSequenceAdvancesHead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pad")
	p, err := Create(path, 100)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer p.Close()

	full, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	keystream := make([]byte, 100)
	n, err := full.f.Read(keystream)
	if err != nil || n != 100 {
		t.Fatalf("reading reference keystream: n=%d err=%v", n, err)
	}
	full.Close()

	sizes := []uint64{10, 5, 37}
	var got []byte
	var total uint64
	for _, n := range sizes {
		b, err := p.Take(n)
		if err != nil {
			t.Fatalf("Take(%d): %v", n, err)
		}
		got = append(got, b...)
		total += n
	}
	if p.Head() != total {
		t.Fatalf("head = %d, want %d", p.Head(), total)
	}
	if !bytes.Equal(got, keystream[:total]) {
		t.Fatalf("returned bytes do not match original keystream segment")
	}
}

func TestTakeExhaustion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pad")
	p, err := Create(path, 3)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer p.Close()

	if _, err := p.Take(4); !errors.Is(err, ErrExhausted) {
		t.Fatalf("Take(4) err = %v, want ErrExhausted", err)
	}
	if p.Head() != 3 {
		t.Fatalf("head after exhausted Take = %d, want 3 (partial consumption reflected)", p.Head())
	}
}

func TestOpenBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pad")
	p, err := Create(path, 10)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	p.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	data[0] = '1'
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Open(path); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("Open err = %v, want ErrBadMagic", err)
	}
}

func TestHeadPersistenceAcrossClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pad")
	p, err := Create(path, 200)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := p.Take(100); err != nil {
		t.Fatalf("Take: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p2, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p2.Close()
	if p2.Head() != 100 {
		t.Fatalf("head = %d, want 100", p2.Head())
	}
	if _, err := p2.Take(1); err != nil {
		t.Fatalf("Take(1): %v", err)
	}
	if p2.Head() != 101 {
		t.Fatalf("head = %d, want 101", p2.Head())
	}
}

func TestSeekRejectsRegression(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pad")
	p, err := Create(path, 100)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer p.Close()

	if err := p.Seek(50); err != nil {
		t.Fatalf("Seek(50): %v", err)
	}
	if err := p.Seek(10); !errors.Is(err, ErrHeadRegressed) {
		t.Fatalf("Seek(10) err = %v, want ErrHeadRegressed", err)
	}
}
