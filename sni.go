// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	"fmt"
	"net/netip"
	"strings"

	"golang.org/x/net/idna"
)

// Hostname limits from RFC 1035, Section 2.3.4.
const (
	MaxSNIHostnameLength = 253
	MaxSNILabelLength    = 63
)

// SNIValidationError describes a host name that cannot be sent in
// server_name.
type SNIValidationError struct {
	Hostname string
	Reason   string
	Label    string // offending label, if any
}

// Unwrap makes a rejected name match ErrInvalidBounds.
func (e *SNIValidationError) Unwrap() error { return ErrInvalidBounds }

func (e *SNIValidationError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("clienthello: invalid server name %q: %s (label %q)", e.Hostname, e.Reason, e.Label)
	}
	return fmt.Sprintf("clienthello: invalid server name %q: %s", e.Hostname, e.Reason)
}

// NormalizeSNI lowercases hostname, strips one trailing dot and converts an
// internationalized name to its A-label form. Names IDNA rejects are returned
// lowercased and otherwise unchanged for ValidateSNI to report.
func NormalizeSNI(hostname string) string {
	if hostname == "" {
		return hostname
	}
	hostname = strings.TrimSuffix(strings.ToLower(hostname), ".")
	ascii, err := idna.Lookup.ToASCII(hostname)
	if err != nil {
		return hostname
	}
	return ascii
}

// ValidateSNI reports whether hostname is a DNS host name acceptable in a
// server_name extension (RFC 6066, Section 3): LDH labels of 1 to 63 bytes,
// 253 bytes in total, no literal IP address, no trailing dot. Single-label
// names are allowed.
func ValidateSNI(hostname string) error {
	if hostname == "" {
		return &SNIValidationError{Hostname: hostname, Reason: "empty"}
	}
	if strings.HasSuffix(hostname, ".") {
		return &SNIValidationError{Hostname: hostname, Reason: "trailing dot"}
	}
	if len(hostname) > MaxSNIHostnameLength {
		return &SNIValidationError{Hostname: hostname, Reason: fmt.Sprintf("%d bytes, limit %d", len(hostname), MaxSNIHostnameLength)}
	}
	if isIPLiteral(hostname) {
		return &SNIValidationError{Hostname: hostname, Reason: "literal IP address"}
	}
	for _, label := range strings.Split(hostname, ".") {
		if reason := checkSNILabel(label); reason != "" {
			return &SNIValidationError{Hostname: hostname, Reason: reason, Label: label}
		}
	}
	return nil
}

func checkSNILabel(label string) string {
	switch {
	case label == "":
		return "empty label"
	case len(label) > MaxSNILabelLength:
		return fmt.Sprintf("label of %d bytes, limit %d", len(label), MaxSNILabelLength)
	case label[0] == '-' || label[len(label)-1] == '-':
		return "label starts or ends with a hyphen"
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
			return fmt.Sprintf("invalid character %q at %d", c, i)
		}
	}
	return ""
}

func isIPLiteral(s string) bool {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	_, err := netip.ParseAddr(s)
	return err == nil
}

// normalizeServerNames applies NormalizeSNI and ValidateSNI to every name.
func normalizeServerNames(names []string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		n := NormalizeSNI(name)
		if err := ValidateSNI(n); err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
