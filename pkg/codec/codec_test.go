// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/otpchat/otpchat/pkg/pad"
)

func TestXorInPlaceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pad")
	if _, err := pad.Create(path, 1000); err != nil {
		t.Fatalf("Create: %v", err)
	}

	sender, err := pad.Open(path)
	if err != nil {
		t.Fatalf("Open (sender): %v", err)
	}
	defer sender.Close()
	receiver, err := pad.Open(path)
	if err != nil {
		t.Fatalf("Open (receiver): %v", err)
	}
	defer receiver.Close()

	plaintext := []byte("hello, one-time pad")
	ciphertext := append([]byte(nil), plaintext...)
	if err := XorInPlace(sender, ciphertext); err != nil {
		t.Fatalf("XorInPlace (encrypt): %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Fatalf("ciphertext equals plaintext, keystream not applied")
	}

	recovered := append([]byte(nil), ciphertext...)
	if err := XorInPlace(receiver, recovered); err != nil {
		t.Fatalf("XorInPlace (decrypt): %v", err)
	}
	if !bytes.Equal(recovered, plaintext) {
		t.Fatalf("recovered = %q, want %q", recovered, plaintext)
	}
}

func TestXorInPlaceExhaustion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pad")
	p, err := pad.Create(path, 3)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer p.Close()

	buf := []byte("abcd")
	if err := XorInPlace(p, buf); !errors.Is(err, pad.ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if p.Head() != 3 {
		t.Fatalf("head = %d, want 3", p.Head())
	}
}
