// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	cherrors "github.com/refraction-networking/clienthello/errors"
)

// Error kinds returned by this package. Every error produced by a parse,
// compose or framing operation wraps exactly one of these, so callers match
// with errors.Is and map to an alert with AlertFor.
var (
	// ErrMalformedLength reports a length prefix that points past the end of
	// the buffer or breaks a field's size constraint.
	ErrMalformedLength = cherrors.Kind("clienthello: malformed length")

	// ErrMissingExtension is returned by accessors for an absent extension.
	ErrMissingExtension = cherrors.Kind("clienthello: missing extension")

	// ErrProtocolVersionRejected reports a legacy_version below SSL 3.0.
	ErrProtocolVersionRejected = cherrors.Kind("clienthello: protocol version rejected")

	// ErrUnexpectedMessage reports a structural violation: an oversized
	// session id, a compression list that is not exactly one byte, or a
	// handshake/record envelope that does not carry a ClientHello.
	ErrUnexpectedMessage = cherrors.Kind("clienthello: unexpected message")

	// ErrInvalidBounds reports a vector whose encoded length is outside the
	// [min, max] its grammar allows.
	ErrInvalidBounds = cherrors.Kind("clienthello: vector length out of bounds")

	// ErrEmptyCipherList is returned when composing without cipher suites.
	ErrEmptyCipherList = cherrors.Kind("clienthello: empty cipher suite list").AtError()

	// ErrTruncated is returned when framing a view whose binders have not
	// been appended yet.
	ErrTruncated = cherrors.Kind("clienthello: message is missing its binders").AtError()
)
