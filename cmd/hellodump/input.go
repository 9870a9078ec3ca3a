// Copyright 2024 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// maxInputSize bounds what readInput accepts after decompression. A
// ClientHello handshake message is at most 2^24 bytes.
const maxInputSize = 1<<24 + 4 + 5

// readInput reads path, or stdin for "" and "-", decompressing by file
// extension and decoding hex when the content is hex.
func readInput(path string) ([]byte, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	dec, err := decompressor(filepath.Ext(path), r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer dec.Close()

	data, err := io.ReadAll(io.LimitReader(dec, maxInputSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(data) > maxInputSize {
		return nil, fmt.Errorf("%s: input exceeds %d bytes", path, maxInputSize)
	}
	if raw, ok := decodeHex(data); ok {
		return raw, nil
	}
	return data, nil
}

// decodeHex decodes data if it is entirely hex digits, whitespace and
// colons, as tcpdump and Wireshark print bytes.
func decodeHex(data []byte) ([]byte, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.HasPrefix(trimmed, []byte("{")) {
		return nil, false
	}
	digits := bytes.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ':' {
			return -1
		}
		return r
	}, trimmed)
	raw, err := hex.DecodeString(string(digits))
	if err != nil {
		return nil, false
	}
	return raw, true
}

// decompressor wraps r by file extension. Unknown extensions pass through.
func decompressor(ext string, r io.Reader) (io.ReadCloser, error) {
	switch ext {
	case ".br":
		return io.NopCloser(brotli.NewReader(r)), nil
	case ".zst":
		rc, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd reader: %w", err)
		}
		return rc.IOReadCloser(), nil
	case ".zz":
		rc, err := zlib.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open zlib reader: %w", err)
		}
		return rc, nil
	}
	return io.NopCloser(r), nil
}

// compressor returns a writer compressing into w and the file extension
// decompressor recognizes for it.
func compressor(kind string, w io.Writer) (io.WriteCloser, string, error) {
	switch kind {
	case "zstd":
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return nil, "", err
		}
		return enc, ".zst", nil
	case "brotli":
		return brotli.NewWriterLevel(w, brotli.BestCompression), ".br", nil
	case "zlib":
		return zlib.NewWriter(w), ".zz", nil
	case "none", "":
		return nopWriteCloser{w}, "", nil
	}
	return nil, "", fmt.Errorf("unknown compression %q", kind)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
