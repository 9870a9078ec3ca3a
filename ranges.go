// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	"golang.org/x/crypto/cryptobyte"
)

// fieldRange is the half-open byte range [start, end) of one top-level
// ClientHello field within the backing buffer. For vectors it covers the
// contents only, not the length prefix.
type fieldRange struct {
	start, end int
}

func (r *fieldRange) len() int { return r.end - r.start }

// slice returns the field's bytes, capped so that appends cannot reach into
// the following field.
func (r *fieldRange) slice(b []byte) []byte {
	end := r.end
	if end > len(b) {
		end = len(b)
	}
	return b[r.start:end:end]
}

// fieldResolver computes the range of each variable-position field. Each
// range is a function of the previous field's end plus one locally read
// length prefix; results are memoized so a field is read at most once.
type fieldResolver struct {
	buf []byte

	// partial lets the extensions block end past the buffer. It is set for
	// the binder-less form of a PSK ClientHello.
	partial bool

	sessionID   *fieldRange
	ciphers     *fieldRange
	compression *fieldRange
	extensions  *fieldRange
}

func (r *fieldResolver) sessionIDRange() (*fieldRange, error) {
	if r.sessionID != nil {
		return r.sessionID, nil
	}
	if len(r.buf) <= sessionIDLenOffset {
		return nil, malformed("legacy_session_id: buffer ends at ", len(r.buf))
	}
	n := int(r.buf[sessionIDLenOffset])
	fr := &fieldRange{start: sessionIDOffset, end: sessionIDOffset + n}
	if fr.end > len(r.buf) {
		return nil, malformed("legacy_session_id: length ", n, " overruns buffer")
	}
	r.sessionID = fr
	return fr, nil
}

func (r *fieldResolver) ciphersRange() (*fieldRange, error) {
	if r.ciphers != nil {
		return r.ciphers, nil
	}
	sid, err := r.sessionIDRange()
	if err != nil {
		return nil, err
	}
	n, ok := r.uint16At(sid.end)
	if !ok {
		return nil, malformed("cipher_suites: missing length")
	}
	if n < 2 || n%2 != 0 {
		return nil, malformed("cipher_suites: length ", n)
	}
	fr := &fieldRange{start: sid.end + 2, end: sid.end + 2 + n}
	if fr.end > len(r.buf) {
		return nil, malformed("cipher_suites: length ", n, " overruns buffer")
	}
	r.ciphers = fr
	return fr, nil
}

// compressionRange covers the length byte and the methods that follow it.
// Once sanitize has accepted the view that is exactly two bytes.
func (r *fieldResolver) compressionRange() (*fieldRange, error) {
	if r.compression != nil {
		return r.compression, nil
	}
	c, err := r.ciphersRange()
	if err != nil {
		return nil, err
	}
	if c.end >= len(r.buf) {
		return nil, malformed("legacy_compression_methods: missing length")
	}
	n := int(r.buf[c.end])
	fr := &fieldRange{start: c.end, end: c.end + 1 + n}
	if fr.end > len(r.buf) {
		return nil, malformed("legacy_compression_methods: length ", n, " overruns buffer")
	}
	r.compression = fr
	return fr, nil
}

// extensionsRange covers the extensions block without its length prefix. A
// buffer that ends right after the compression methods is a hello without
// extensions and resolves to an empty range.
func (r *fieldResolver) extensionsRange() (*fieldRange, error) {
	if r.extensions != nil {
		return r.extensions, nil
	}
	comp, err := r.compressionRange()
	if err != nil {
		return nil, err
	}
	if comp.end == len(r.buf) {
		r.extensions = &fieldRange{start: comp.end, end: comp.end}
		return r.extensions, nil
	}
	n, ok := r.uint16At(comp.end)
	if !ok {
		return nil, malformed("extensions: missing length")
	}
	fr := &fieldRange{start: comp.end + 2, end: comp.end + 2 + n}
	if fr.end > len(r.buf) && !r.partial {
		return nil, malformed("extensions: length ", n, " overruns buffer by ", fr.end-len(r.buf))
	}
	r.extensions = fr
	return fr, nil
}

func (r *fieldResolver) uint16At(off int) (int, bool) {
	s := cryptobyte.String(r.buf[off:])
	var v uint16
	if !s.ReadUint16(&v) {
		return 0, false
	}
	return int(v), true
}

// resolveAll fills every memo in field order.
func (r *fieldResolver) resolveAll() error {
	_, err := r.extensionsRange()
	return err
}

// missing returns how many declared bytes of the extensions block are not
// present in the buffer.
func (r *fieldResolver) missing() int {
	if r.extensions == nil || r.extensions.end <= len(r.buf) {
		return 0
	}
	return r.extensions.end - len(r.buf)
}
