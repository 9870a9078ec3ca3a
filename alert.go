// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	"errors"
	"strconv"
)

// Alert is a TLS alert description. See RFC 8446, Section 6.
type Alert uint8

const (
	AlertUnexpectedMessage Alert = 10
	AlertIllegalParameter  Alert = 47
	AlertDecodeError       Alert = 50
	AlertProtocolVersion   Alert = 70
	AlertInternalError     Alert = 80
	AlertMissingExtension  Alert = 109
)

var alertText = map[Alert]string{
	AlertUnexpectedMessage: "unexpected message",
	AlertIllegalParameter:  "illegal parameter",
	AlertDecodeError:       "error decoding message",
	AlertProtocolVersion:   "protocol version not supported",
	AlertInternalError:     "internal error",
	AlertMissingExtension:  "missing extension",
}

func (a Alert) String() string {
	if s, ok := alertText[a]; ok {
		return "tls: " + s
	}
	return "tls: alert(" + strconv.Itoa(int(a)) + ")"
}

func (a Alert) Error() string {
	return a.String()
}

// AlertFor returns the alert a peer would send for err. Errors from this
// package map to the description their kind implies; anything else, and
// composer-side failures, map to internal_error. It reports false for a nil
// error.
func AlertFor(err error) (Alert, bool) {
	switch {
	case err == nil:
		return 0, false
	case errors.Is(err, ErrMalformedLength):
		return AlertDecodeError, true
	case errors.Is(err, ErrMissingExtension):
		return AlertMissingExtension, true
	case errors.Is(err, ErrProtocolVersionRejected):
		return AlertProtocolVersion, true
	case errors.Is(err, ErrUnexpectedMessage):
		return AlertUnexpectedMessage, true
	default:
		var a Alert
		if errors.As(err, &a) {
			return a, true
		}
		return AlertInternalError, true
	}
}
