// Copyright 2024 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/refraction-networking/clienthello"
	cherrors "github.com/refraction-networking/clienthello/errors"
)

func testHello(t *testing.T) *clienthello.ClientHello {
	t.Helper()
	cfg := clienthello.DefaultConfig()
	cfg.ServerNames = []string{"capture.example"}
	cfg.Rand = bytes.NewReader(bytes.Repeat([]byte{0x5a}, 4096))
	ch, err := clienthello.Compose(cfg)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	return ch
}

func testRecord(t *testing.T, ch *clienthello.ClientHello) []byte {
	t.Helper()
	rec, err := ch.Record()
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	return rec
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadInputHex(t *testing.T) {
	ch := testHello(t)
	var dump strings.Builder
	for i, b := range ch.Bytes() {
		if i > 0 && i%16 == 0 {
			dump.WriteString("\n")
		}
		dump.WriteString(hex.EncodeToString([]byte{b}) + ":")
	}
	got, err := readInput(writeTemp(t, "hello.hex", []byte(dump.String())))
	if err != nil {
		t.Fatalf("readInput() error = %v", err)
	}
	if !bytes.Equal(got, ch.Bytes()) {
		t.Errorf("readInput() = %x, want %x", got, ch.Bytes())
	}
}

func TestReadInputCompressed(t *testing.T) {
	rec := testRecord(t, testHello(t))
	for _, kind := range []string{"zstd", "brotli", "zlib", "none"} {
		t.Run(kind, func(t *testing.T) {
			var buf bytes.Buffer
			w, ext, err := compressor(kind, &buf)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := w.Write(rec); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}
			got, err := readInput(writeTemp(t, "hello.bin"+ext, buf.Bytes()))
			if err != nil {
				t.Fatalf("readInput() error = %v", err)
			}
			if !bytes.Equal(got, rec) {
				t.Errorf("readInput() = %x, want %x", got, rec)
			}
		})
	}
	if _, _, err := compressor("lzma", io.Discard); err == nil {
		t.Error("compressor(lzma) succeeded")
	}
}

func TestDecodeHexRejectsJSON(t *testing.T) {
	if _, ok := decodeHex([]byte(`{"cipher_suites": ["0x1301"]}`)); ok {
		t.Error("decodeHex accepted a JSON document")
	}
	if _, ok := decodeHex([]byte{0x16, 0x03, 0x01}); ok {
		t.Error("decodeHex accepted binary input")
	}
}

func TestParseFramed(t *testing.T) {
	ch := testHello(t)
	inputs := map[string][]byte{
		"body":      ch.Bytes(),
		"handshake": ch.Handshake(),
		"record":    testRecord(t, ch),
	}
	for framing, data := range inputs {
		for _, mode := range []string{"auto", framing} {
			got, err := parseFramed(data, mode)
			if err != nil {
				t.Errorf("parseFramed(%s, %q) error = %v", framing, mode, err)
				continue
			}
			if !bytes.Equal(got.Bytes(), ch.Bytes()) {
				t.Errorf("parseFramed(%s, %q) parsed a different body", framing, mode)
			}
		}
	}
	if _, err := parseFramed(ch.Bytes(), "sideways"); err == nil {
		t.Error("parseFramed accepted an unknown framing")
	}
}

func TestComposeHello(t *testing.T) {
	ch, err := composeHello("firefox_145_windows_11", "", "example.com")
	if err != nil {
		t.Fatalf("composeHello(profile) error = %v", err)
	}
	if names, err := ch.ServerNames(); err != nil || names[0] != "example.com" {
		t.Errorf("ServerNames() = %v, %v", names, err)
	}
	if _, err := composeHello("no_such_browser", "", ""); err == nil {
		t.Error("composeHello accepted an unknown profile")
	}

	dump, err := json.Marshal(testHello(t))
	if err != nil {
		t.Fatal(err)
	}
	again, err := composeHello("", writeTemp(t, "hello.json", dump), "")
	if err != nil {
		t.Fatalf("composeHello(config) error = %v", err)
	}
	if !bytes.Equal(again.Bytes(), testHello(t).Bytes()) {
		t.Error("composeHello(config of a dump) differs from the dumped message")
	}
}

func TestWriteHello(t *testing.T) {
	ch := testHello(t)
	var out bytes.Buffer
	if err := writeHello(&out, ch, "handshake"); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != hex.EncodeToString(ch.Handshake()) {
		t.Errorf("writeHello(handshake) = %s", got)
	}

	out.Reset()
	if err := writeHello(&out, ch, "json"); err != nil {
		t.Fatal(err)
	}
	var cfg clienthello.Config
	if err := json.Unmarshal(out.Bytes(), &cfg); err != nil {
		t.Errorf("writeHello(json) output does not decode as a Config: %v", err)
	}
	if err := writeHello(&out, ch, "yaml"); err == nil {
		t.Error("writeHello accepted an unknown format")
	}
}

func TestReadRecord(t *testing.T) {
	rec := testRecord(t, testHello(t))
	got, err := readRecord(bytes.NewReader(rec))
	if err != nil {
		t.Fatalf("readRecord() error = %v", err)
	}
	if !bytes.Equal(got, rec) {
		t.Errorf("readRecord() = %x, want %x", got, rec)
	}

	if _, err := readRecord(bytes.NewReader(nil)); !errors.Is(err, io.EOF) {
		t.Errorf("readRecord(empty) error = %v, want io.EOF", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"application data", append([]byte{0x17}, rec[1:]...)},
		{"short header", rec[:3]},
		{"short payload", rec[:len(rec)-1]},
		{"tiny record", []byte{0x16, 0x03, 0x01, 0x00, 0x04, 0x01, 0x00, 0x00, 0x00}},
		{"not a ClientHello", append(append([]byte{}, rec[:5]...), append([]byte{0x02}, rec[6:]...)...)},
	}
	for _, tt := range tests {
		if _, err := readRecord(bytes.NewReader(tt.data)); err == nil {
			t.Errorf("%s: readRecord() succeeded", tt.name)
		}
	}
}

func TestCaptureStoreSave(t *testing.T) {
	dir := t.TempDir()
	store, err := newCaptureStore(dir, "zstd", true)
	if err != nil {
		t.Fatal(err)
	}
	ch := testHello(t)
	saved, err := store.save(cherrors.ContextWithID(context.Background(), 7), ch)
	if err != nil || !saved {
		t.Fatalf("save() = %v, %v", saved, err)
	}
	if saved, err := store.save(cherrors.ContextWithID(context.Background(), 8), ch); err != nil || saved {
		t.Errorf("save(duplicate) = %v, %v; want skipped", saved, err)
	}

	dump, err := os.ReadFile(filepath.Join(dir, "000007-capture.example.json"))
	if err != nil {
		t.Fatal(err)
	}
	var cfg clienthello.Config
	if err := json.Unmarshal(dump, &cfg); err != nil {
		t.Fatalf("saved JSON does not decode: %v", err)
	}
	raw, err := readInput(filepath.Join(dir, "000007-capture.example.bin.zst"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, testRecord(t, ch)) {
		t.Error("saved raw capture differs from the record")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"example.com", "example.com"},
		{"../../etc/passwd", "etcpasswd"},
		{".hidden", "hidden"},
		{"trailing.", "trailing"},
		{"xn--mnchen-3ya.de", "xn--mnchen-3ya.de"},
		{"a/b\\c d", "abcd"},
		{strings.Repeat("a", 99), strings.Repeat("a", maxNameLength)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in, maxNameLength); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestServe(t *testing.T) {
	dir := t.TempDir()
	store, err := newCaptureStore(dir, "none", false)
	if err != nil {
		t.Fatal(err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln, store) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Write(testRecord(t, testHello(t))); err != nil {
		t.Fatal(err)
	}
	// The server closes the connection once the capture is saved.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	io.Copy(io.Discard, conn)
	conn.Close()

	// A malformed ClientHello is answered with a fatal alert.
	bad, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	rec := testRecord(t, testHello(t))
	rec[5+4] = 0x02 // legacy_version 0x0203
	bad.Write(rec)
	bad.SetReadDeadline(time.Now().Add(5 * time.Second))
	reply, _ := io.ReadAll(bad)
	bad.Close()
	if len(reply) != 7 || reply[0] != recordTypeAlert || reply[5] != 2 || reply[6] != byte(clienthello.AlertProtocolVersion) {
		t.Errorf("reply to a bad ClientHello = %x, want a fatal protocol_version alert", reply)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("serve() error = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("capture directory has %d files, want a JSON dump and a raw record", len(entries))
	}
}

func TestListProfiles(t *testing.T) {
	var out bytes.Buffer
	if err := listProfiles(&out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "chrome_142_windows_11") {
		t.Errorf("listProfiles() output lacks chrome_142_windows_11:\n%s", out.String())
	}
}
