// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateSNI_ValidHostnames(t *testing.T) {
	validHostnames := []string{
		"example.com",
		"www.example.com",
		"test-site.example.com",
		"123.example.com",          // numeric label
		"xn--nxasmq5b.example.com", // A-label
		"a.co",
		"server", // single label
		strings.Repeat("a", 63) + ".com",
	}

	for _, hostname := range validHostnames {
		t.Run(hostname, func(t *testing.T) {
			if err := ValidateSNI(hostname); err != nil {
				t.Errorf("ValidateSNI(%q) = %v, want nil", hostname, err)
			}
		})
	}
}

func TestValidateSNI_InvalidHostnames(t *testing.T) {
	testCases := []struct {
		hostname string
		reason   string
	}{
		{"", "empty hostname"},
		{"example.com.", "trailing dot"},
		{"-example.com", "label starts with hyphen"},
		{"example-.com", "label ends with hyphen"},
		{"example..com", "empty label"},
		{".example.com", "empty first label"},
		{"exam ple.com", "space in hostname"},
		{"192.168.1.1", "IPv4 address"},
		{"[2001:db8::1]", "IPv6 address"},
		{"::1", "IPv6 loopback"},
		{strings.Repeat("a", 64) + ".com", "label exceeds 63 bytes"},
		{strings.Repeat("a.", 127) + "com", "hostname exceeds 253 bytes"},
		{"example_site.com", "underscore in hostname"},
		{"example@site.com", "@ in hostname"},
	}

	for _, tc := range testCases {
		t.Run(tc.reason, func(t *testing.T) {
			err := ValidateSNI(tc.hostname)
			var sniErr *SNIValidationError
			if !errors.As(err, &sniErr) {
				t.Fatalf("ValidateSNI(%q) = %v, want *SNIValidationError", tc.hostname, err)
			}
			if sniErr.Hostname != tc.hostname {
				t.Errorf("SNIValidationError.Hostname = %q, want %q", sniErr.Hostname, tc.hostname)
			}
		})
	}
}

func TestNormalizeSNI(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"Example.COM", "example.com"},
		{"example.com.", "example.com"},
		{"münchen.de", "xn--mnchen-3ya.de"},
		{"EXAMPLE_SITE.com", "example_site.com"},
		{"", ""},
	}
	for _, tc := range testCases {
		if got := NormalizeSNI(tc.input); got != tc.want {
			t.Errorf("NormalizeSNI(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSNIValidationError(t *testing.T) {
	err := ValidateSNI("bad_host.example")
	var sniErr *SNIValidationError
	if !errors.As(err, &sniErr) {
		t.Fatalf("ValidateSNI() = %v, want *SNIValidationError", err)
	}
	if sniErr.Label != "bad_host" {
		t.Errorf("Label = %q, want bad_host", sniErr.Label)
	}
	if msg := err.Error(); !strings.Contains(msg, "bad_host.example") || !strings.Contains(msg, "label") {
		t.Errorf("Error() = %q, want hostname and label mentioned", msg)
	}
}

func TestIsIPLiteral(t *testing.T) {
	testCases := map[string]bool{
		"10.0.0.1":      true,
		"2001:db8::1":   true,
		"[2001:db8::1]": true,
		"example.com":   false,
		"1.2.3.example": false,
		"fe80::1%eth0":  true,
	}
	for input, want := range testCases {
		if got := isIPLiteral(input); got != want {
			t.Errorf("isIPLiteral(%q) = %v, want %v", input, got, want)
		}
	}
}
