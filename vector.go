// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	cherrors "github.com/refraction-networking/clienthello/errors"
	"golang.org/x/crypto/cryptobyte"
)

// vectorSpec describes a TLS presentation-language vector: the width of its
// length prefix and the byte-length bounds its grammar allows.
type vectorSpec struct {
	name     string
	prefix   int // 1, 2 or 3 bytes
	min, max int
}

// Vector bounds from RFC 8446 Section 4 and the extension RFCs.
var (
	vecSessionID    = vectorSpec{"legacy_session_id", 1, 0, maxSessionIDLen}
	vecCipherSuites = vectorSpec{"cipher_suites", 2, 2, 1<<16 - 2}
	vecCompression  = vectorSpec{"legacy_compression_methods", 1, 1, 1<<8 - 1}
	vecExtensions   = vectorSpec{"extensions", 2, 8, 1<<16 - 1}

	vecServerNameList = vectorSpec{"server_name_list", 2, 1, 1<<16 - 1}
	vecHostName       = vectorSpec{"host_name", 2, 1, 1<<16 - 1}
	vecNamedGroupList = vectorSpec{"named_group_list", 2, 2, 1<<16 - 1}
	vecSignatureAlgs  = vectorSpec{"supported_signature_algorithms", 2, 2, 1<<16 - 2}
	vecVersions       = vectorSpec{"versions", 1, 2, 254}
	vecKEModes        = vectorSpec{"ke_modes", 1, 1, 1<<8 - 1}
	vecClientShares   = vectorSpec{"client_shares", 2, 0, 1<<16 - 1}
	vecKeyExchange    = vectorSpec{"key_exchange", 2, 1, 1<<16 - 1}
	vecProtocolNames  = vectorSpec{"protocol_name_list", 2, 2, 1<<16 - 1}
	vecProtocolName   = vectorSpec{"protocol_name", 1, 1, 1<<8 - 1}
	vecCookie         = vectorSpec{"cookie", 2, 1, 1<<16 - 1}
	vecIdentities     = vectorSpec{"identities", 2, 7, 1<<16 - 1}
	vecIdentity       = vectorSpec{"identity", 2, 1, 1<<16 - 1}
	vecBinders        = vectorSpec{"binders", 2, 33, 1<<16 - 1}
	vecBinder         = vectorSpec{"binder", 1, 32, 255}
)

// check returns an ErrInvalidBounds error if n is outside the vector's bounds.
func (v vectorSpec) check(n int) error {
	if n < v.min || n > v.max {
		return cherrors.New("clienthello: ", v.name, " length ", n, " outside [", v.min, ", ", v.max, "]").Base(ErrInvalidBounds).AtWarning()
	}
	return nil
}

// addVector serializes body into a child builder, checks its length against
// v and writes it to b behind a length prefix of the vector's width. A bound
// violation is recorded with SetError so the enclosing Bytes call fails and
// no partial output escapes.
func addVector(b *cryptobyte.Builder, v vectorSpec, body cryptobyte.BuilderContinuation) {
	var child cryptobyte.Builder
	body(&child)
	data, err := child.Bytes()
	if err != nil {
		b.SetError(err)
		return
	}
	if err := v.check(len(data)); err != nil {
		b.SetError(err)
		return
	}
	addPrefixed(b, v.prefix, data)
}

func addPrefixed(b *cryptobyte.Builder, prefix int, data []byte) {
	add := func(b *cryptobyte.Builder) { b.AddBytes(data) }
	switch prefix {
	case 1:
		b.AddUint8LengthPrefixed(add)
	case 2:
		b.AddUint16LengthPrefixed(add)
	case 3:
		b.AddUint24LengthPrefixed(add)
	default:
		panic("clienthello: unsupported vector prefix width")
	}
}

// readVector reads a length-prefixed vector of the given spec from s,
// enforcing its bounds. It reports false on a short read or a bound
// violation.
func readVector(s *cryptobyte.String, v vectorSpec, out *cryptobyte.String) bool {
	var ok bool
	switch v.prefix {
	case 1:
		ok = s.ReadUint8LengthPrefixed(out)
	case 2:
		ok = s.ReadUint16LengthPrefixed(out)
	case 3:
		ok = s.ReadUint24LengthPrefixed(out)
	}
	return ok && len(*out) >= v.min && len(*out) <= v.max
}

// malformed wraps ErrMalformedLength with a description of what failed to
// decode.
func malformed(what ...interface{}) error {
	return cherrors.New(append([]interface{}{"clienthello: malformed "}, what...)...).Base(ErrMalformedLength).AtWarning()
}
