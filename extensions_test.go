// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestExtensionEncoding(t *testing.T) {
	tests := []struct {
		name string
		ext  TLSExtension
		want string
	}{
		{"server_name", &SNIExtension{ServerNames: []string{"server"}}, "0000000b0009000006736572766572"},
		{"server_name without names", &SNIExtension{}, "00000000"},
		{"supported_groups", &SupportedCurvesExtension{Curves: []CurveID{X25519, CurveP256}}, "000a00060004001d0017"},
		{"signature_algorithms", &SignatureAlgorithmsExtension{SupportedSignatureAlgorithms: []SignatureScheme{ECDSAWithP256AndSHA256}}, "000d000400020403"},
		{"alpn", &ALPNExtension{AlpnProtocols: []string{"h2", "http/1.1"}}, "0010000e000c02683208687474702f312e31"},
		{"padding", &PaddingExtension{PaddingLen: 3}, "00150003000000"},
		{"record_size_limit", &RecordSizeLimitExtension{Limit: 0x4001}, "001c00024001"},
		{"early_data", &EarlyDataExtension{}, "002a0000"},
		{"supported_versions", &SupportedVersionsExtension{Versions: []uint16{VersionTLS13, VersionTLS12}}, "002b00050403040303"},
		{"cookie", &CookieExtension{Cookie: []byte{1, 2, 3}}, "002c00050003010203"},
		{"psk_key_exchange_modes", &PSKKeyExchangeModesExtension{Modes: []uint8{PSKModeDHE}}, "002d00020101"},
		{"key_share", &KeyShareExtension{KeyShares: []KeyShare{{Group: X25519, Data: []byte{0xaa, 0xbb}}}}, "003300080006001d0002aabb"},
		{"empty key_share", &KeyShareExtension{KeyShares: []KeyShare{}}, "003300020000"},
		{"generic", &GenericExtension{Id: 0xfe0d, Data: []byte{9}}, "fe0d000109"},
		{"pre_shared_key", &PreSharedKeyExtension{
			Identities: []PskIdentity{{Label: []byte{1, 2}, ObfuscatedTicketAge: 7}},
			Binders:    [][]byte{bytes.Repeat([]byte{0xcc}, 32)},
		}, "0029002d000800020102000000070021" + "20" + "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := mustHex(t, tt.want)
			if got := tt.ext.Len(); got != len(want) {
				t.Errorf("Len() = %d, want %d", got, len(want))
			}
			buf := make([]byte, tt.ext.Len())
			n, err := tt.ext.Read(buf)
			if err != io.EOF {
				t.Fatalf("Read() error = %v, want io.EOF", err)
			}
			if !bytes.Equal(buf[:n], want) {
				t.Errorf("Read() = %x, want %x", buf[:n], want)
			}
		})
	}
}

func TestExtensionReadShortBuffer(t *testing.T) {
	e := &SupportedVersionsExtension{Versions: []uint16{VersionTLS13}}
	if _, err := e.Read(make([]byte, e.Len()-1)); err != io.ErrShortBuffer {
		t.Errorf("Read() error = %v, want io.ErrShortBuffer", err)
	}
}

func TestExtensionEncodingBounds(t *testing.T) {
	tests := []struct {
		name string
		ext  TLSExtension
	}{
		{"record_size_limit below 64", &RecordSizeLimitExtension{Limit: 63}},
		{"empty supported_versions", &SupportedVersionsExtension{Versions: []uint16{}}},
		{"empty protocol name", &ALPNExtension{AlpnProtocols: []string{""}}},
		{"empty key_exchange", &KeyShareExtension{KeyShares: []KeyShare{{Group: X25519}}}},
		{"short binder", &PreSharedKeyExtension{Identities: []PskIdentity{{Label: []byte{1}}}, Binders: [][]byte{make([]byte, 31)}}},
		{"empty cookie", &CookieExtension{Cookie: []byte{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.ext.Read(make([]byte, 1024))
			if !errors.Is(err, ErrInvalidBounds) {
				t.Errorf("Read() error = %v, want ErrInvalidBounds", err)
			}
		})
	}
}

func TestExtensionDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		id   uint16
		data string
	}{
		{"server_name list overrun", extensionServerName, "000a0000"},
		{"server_name trailing byte", extensionServerName, "0009000006736572766572ff"},
		{"supported_groups odd", extensionSupportedCurves, "0003001d00"},
		{"supported_groups empty", extensionSupportedCurves, "0000"},
		{"signature_algorithms odd", extensionSignatureAlgorithms, "0003040305"},
		{"alpn empty name", extensionALPN, "00020000"},
		{"record_size_limit short", extensionRecordSizeLimit, "40"},
		{"early_data payload", extensionEarlyData, "00"},
		{"supported_versions odd", extensionSupportedVersions, "03030403"},
		{"supported_versions empty", extensionSupportedVersions, "00"},
		{"cookie empty", extensionCookie, "0000"},
		{"psk modes empty", extensionPSKModes, "00"},
		{"key_share entry overrun", extensionKeyShare, "0006001d0020aabb"},
		{"pre_shared_key without binders", extensionPreSharedKey, "00080002010200000007"},
		{"pre_shared_key binder count", extensionPreSharedKey, "000800020102000000070000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeExtension(tt.id, mustHex(t, tt.data)); !errors.Is(err, ErrMalformedLength) {
				t.Errorf("decodeExtension() error = %v, want ErrMalformedLength", err)
			}
		})
	}
}

func TestPreSharedKeyBinderCountMismatch(t *testing.T) {
	e := &PreSharedKeyExtension{
		Identities: []PskIdentity{{Label: []byte{1, 2}, ObfuscatedTicketAge: 7}},
		Binders:    [][]byte{make([]byte, 32), make([]byte, 32)},
	}
	raw := make([]byte, e.Len())
	if _, err := e.Read(raw); err != io.EOF {
		t.Fatalf("Read() error = %v", err)
	}
	if _, err := decodeExtension(extensionPreSharedKey, raw[4:]); !errors.Is(err, ErrMalformedLength) {
		t.Errorf("decodeExtension() error = %v, want ErrMalformedLength", err)
	}
}

func TestExtensionFromID(t *testing.T) {
	for id := range extensionTable {
		ext := ExtensionFromID(id)
		if ext == nil {
			t.Errorf("ExtensionFromID(%d) = nil", id)
			continue
		}
		if ext.ExtensionType() != id {
			t.Errorf("ExtensionFromID(%d).ExtensionType() = %d", id, ext.ExtensionType())
		}
	}
	if ext := ExtensionFromID(0xfe0d); ext != nil {
		t.Errorf("ExtensionFromID(0xfe0d) = %T, want nil", ext)
	}
}

func TestKeyShareDecodeBorrows(t *testing.T) {
	payload := mustHex(t, "0006001d0002aabb")
	ext, err := decodeExtension(extensionKeyShare, payload)
	if err != nil {
		t.Fatal(err)
	}
	shares := ext.(*KeyShareExtension).KeyShares
	payload[6] = 0x11
	if shares[0].Data[0] != 0x11 {
		t.Errorf("key share data was copied, want it borrowed from the message")
	}
}

// sessionTicketExtension is an extension defined outside the package.
type sessionTicketExtension struct {
	ticket []byte
	badID  bool
}

func (e *sessionTicketExtension) ExtensionType() uint16 { return 35 }

func (e *sessionTicketExtension) Len() int { return 4 + len(e.ticket) }

func (e *sessionTicketExtension) Read(b []byte) (int, error) {
	id := byte(35)
	if e.badID {
		id = 36
	}
	b[0], b[1], b[2], b[3] = 0, id, 0, byte(len(e.ticket))
	return 4 + copy(b[4:], e.ticket), io.EOF
}

func TestForeignExtension(t *testing.T) {
	ch, err := Compose(&Config{Rand: fixedRand(), Extra: []TLSExtension{&sessionTicketExtension{ticket: []byte{1, 2, 3}}}})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	ext, err := ch.Extension(35)
	if err != nil {
		t.Fatalf("Extension(35) error = %v", err)
	}
	if g, ok := ext.(*GenericExtension); !ok || !bytes.Equal(g.Data, []byte{1, 2, 3}) {
		t.Errorf("Extension(35) = %#v, want generic {010203}", ext)
	}

	_, err = Compose(&Config{Extra: []TLSExtension{&sessionTicketExtension{ticket: []byte{1}, badID: true}}})
	if !errors.Is(err, ErrMalformedLength) {
		t.Errorf("Compose() with a mislabeled extension error = %v, want ErrMalformedLength", err)
	}
}

func TestPaddingStyles(t *testing.T) {
	tests := []struct {
		name     string
		pad      func(int) (int, bool)
		unpadded int
		want     int
		wantPad  bool
	}{
		{"boring below window", BoringPaddingStyle, 255, 0, false},
		{"boring in window", BoringPaddingStyle, 256, 252, true},
		{"boring near top", BoringPaddingStyle, 508, 1, true},
		{"boring above window", BoringPaddingStyle, 512, 0, false},
		{"pad to 517", AlwaysPadToLen(517), 300, 213, true},
		{"pad to 517 already long", AlwaysPadToLen(517), 517, 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.pad(tt.unpadded)
		if got != tt.want || ok != tt.wantPad {
			t.Errorf("%s: padding(%d) = %d, %v; want %d, %v", tt.name, tt.unpadded, got, ok, tt.want, tt.wantPad)
		}
	}
}
