// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Fuzz tests for ClientHello parsing.
//
//   - go test -run='Fuzz' -v                      # seed corpus only
//   - go test -short -run='Fuzz'                  # skip fuzz tests
//   - go test -fuzz=FuzzParse -fuzztime=30s       # fuzz one target locally
//
// The seed corpus is defined inline via f.Add() calls.

package clienthello

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// skipFuzzInShortMode skips fuzz tests if -short flag is set.
func skipFuzzInShortMode(t testing.TB) {
	if testing.Short() {
		t.Skip("skipping fuzz test in short mode")
	}
}

func fuzzSeed(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// FuzzParse checks that Parse never panics and that an accepted view is
// stable: its bytes parse again to the same view and every accessor works on
// it.
func FuzzParse(f *testing.F) {
	skipFuzzInShortMode(f)

	f.Add(fuzzSeed(rfc8448ClientHelloHex))
	f.Add(fuzzSeed(rfc8448ClientHelloHex)[:45])
	f.Add(fuzzSeed(rfc8448TruncatedHandshakeHex)[4:])
	f.Add([]byte{0x03, 0x03})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		ch, err := Parse(data)
		if err != nil {
			if _, ok := AlertFor(err); !ok {
				t.Fatalf("AlertFor(%v) reported no alert", err)
			}
			return
		}
		again, err := Parse(ch.Bytes())
		if err != nil {
			t.Fatalf("Parse(Bytes()) error = %v", err)
		}
		if !bytes.Equal(again.Bytes(), ch.Bytes()) {
			t.Fatalf("Parse(Bytes()) is not a fixed point")
		}
		_ = ch.Version()
		_ = ch.Random()
		_ = ch.SessionID()
		_ = ch.CipherSuites()
		_ = ch.CompressionMethods()
		_, _ = ch.Extensions()
		_, _ = ch.SupportedVersions()
		_, _ = ch.KeyShares()
		_, _ = ch.OfferedPSKs()
		_ = ch.Handshake()
		_, _ = ch.Record()
	})
}

// FuzzParseTruncated checks the binder-less parser and AddBinders on
// whatever it accepts.
func FuzzParseTruncated(f *testing.F) {
	skipFuzzInShortMode(f)

	f.Add(fuzzSeed(rfc8448TruncatedHandshakeHex)[4:])
	f.Add(fuzzSeed(rfc8448ClientHelloHex))

	f.Fuzz(func(t *testing.T, data []byte) {
		ch, err := ParseTruncated(data)
		if err != nil || !ch.Truncated() {
			return
		}
		if psk, err := ch.OfferedPSKs(); err == nil && psk.Binders != nil {
			t.Fatalf("OfferedPSKs() on a truncated view has binders %x", psk.Binders)
		}
		if len(ch.Handshake()) != 4+ch.Len() {
			t.Fatalf("len(Handshake()) = %d, want %d", len(ch.Handshake()), 4+ch.Len())
		}
		_, _ = ch.AddBinders(make([]byte, ch.MissingBytes()))
	})
}

// FuzzFromRecord checks record and handshake framing.
func FuzzFromRecord(f *testing.F) {
	skipFuzzInShortMode(f)

	ch, err := Parse(fuzzSeed(rfc8448ClientHelloHex))
	if err != nil {
		f.Fatal(err)
	}
	rec, err := ch.InitRecord()
	if err != nil {
		f.Fatal(err)
	}
	f.Add(rec)
	f.Add(rec[:5])
	f.Add([]byte{0x16, 0x03, 0x01, 0x00, 0x04, 0x01, 0x00, 0x00, 0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		ch, err := FromRecord(data)
		if err != nil {
			return
		}
		out, err := ch.InitRecord()
		if err != nil {
			if ch.Truncated() {
				return
			}
			t.Fatalf("InitRecord() error = %v", err)
		}
		back, err := FromRecord(out)
		if err != nil || !bytes.Equal(back.Bytes(), ch.Bytes()) {
			t.Fatalf("FromRecord(InitRecord()) = %v; want the same body", err)
		}
	})
}
