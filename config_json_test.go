// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestConfigUnmarshalJSON(t *testing.T) {
	const input = `{
		"legacy_version": "TLS 1.2",
		"random": "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff",
		"session_id": "",
		"cipher_suites": ["TLS_AES_128_GCM_SHA256", "0x1303", "4866"],
		"compression_methods": "00",
		"server_names": ["example.com"],
		"supported_versions": ["TLS 1.3", "tls 1.2"],
		"psk_key_exchange_modes": ["psk_dhe_ke"],
		"supported_groups": ["x25519", "secp256r1", "0x11ec"],
		"signature_algorithms": ["ecdsa_secp256r1_sha256", "rsa_pss_rsae_sha256"],
		"key_shares": [{"group": "x25519", "key_exchange": "aa bb cc"}],
		"alpn_protocols": ["h2"],
		"cookie": "c0:ff:ee",
		"record_size_limit": 16385,
		"early_data": true,
		"padding": "boringssl",
		"psk_identities": [{"identity": "0102030405", "obfuscated_ticket_age": 42}],
		"psk_binder_lengths": [48],
		"extra_extensions": [{"name": "renegotiation_info", "data": "00"}, {"name": "0xfe0d", "data": ""}],
		"extension_order": ["server_name", "renegotiation_info"]
	}`
	var cfg Config
	if err := json.Unmarshal([]byte(input), &cfg); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if cfg.LegacyVersion != VersionTLS12 {
		t.Errorf("LegacyVersion = %#04x, want 0x0303", cfg.LegacyVersion)
	}
	if len(cfg.Random) != 32 || cfg.Random[1] != 0x11 {
		t.Errorf("Random = %x", cfg.Random)
	}
	if cfg.SessionID == nil || len(cfg.SessionID) != 0 {
		t.Errorf("SessionID = %#v, want empty and non-nil", cfg.SessionID)
	}
	wantSuites := []uint16{TLS_AES_128_GCM_SHA256, TLS_CHACHA20_POLY1305_SHA256, TLS_AES_256_GCM_SHA384}
	if !equalSlices(cfg.CipherSuites, wantSuites) {
		t.Errorf("CipherSuites = %04x, want %04x", cfg.CipherSuites, wantSuites)
	}
	if !bytes.Equal(cfg.CompressionMethods, []byte{0}) {
		t.Errorf("CompressionMethods = %v, want [0]", cfg.CompressionMethods)
	}
	if !equalSlices(cfg.SupportedVersions, []uint16{VersionTLS13, VersionTLS12}) {
		t.Errorf("SupportedVersions = %04x", cfg.SupportedVersions)
	}
	if !bytes.Equal(cfg.PSKModes, []uint8{PSKModeDHE}) {
		t.Errorf("PSKModes = %v, want [1]", cfg.PSKModes)
	}
	if !equalSlices(cfg.SupportedGroups, []CurveID{X25519, CurveP256, X25519MLKEM768}) {
		t.Errorf("SupportedGroups = %v", cfg.SupportedGroups)
	}
	if !equalSlices(cfg.SignatureAlgorithms, []SignatureScheme{ECDSAWithP256AndSHA256, PSSWithSHA256}) {
		t.Errorf("SignatureAlgorithms = %v", cfg.SignatureAlgorithms)
	}
	if cfg.KeyShareGroups != nil {
		t.Errorf("KeyShareGroups = %v, want nil", cfg.KeyShareGroups)
	}
	if len(cfg.KeyShares) != 1 || cfg.KeyShares[0].Group != X25519 || !bytes.Equal(cfg.KeyShares[0].Data, []byte{0xaa, 0xbb, 0xcc}) {
		t.Errorf("KeyShares = %v", cfg.KeyShares)
	}
	if !bytes.Equal(cfg.Cookie, []byte{0xc0, 0xff, 0xee}) {
		t.Errorf("Cookie = %x, want c0ffee", cfg.Cookie)
	}
	if cfg.RecordSizeLimit != 16385 || !cfg.EarlyData {
		t.Errorf("RecordSizeLimit = %d, EarlyData = %v", cfg.RecordSizeLimit, cfg.EarlyData)
	}
	if cfg.Padding == nil {
		t.Errorf("Padding = nil, want BoringPaddingStyle")
	} else if n, ok := cfg.Padding(300); n != 208 || !ok {
		t.Errorf("Padding(300) = %d, %v; want 208, true", n, ok)
	}
	if len(cfg.PSKIdentities) != 1 || cfg.PSKIdentities[0].ObfuscatedTicketAge != 42 || !equalSlices(cfg.PSKBinderLengths, []int{48}) {
		t.Errorf("PSKIdentities = %v, PSKBinderLengths = %v", cfg.PSKIdentities, cfg.PSKBinderLengths)
	}
	if len(cfg.Extra) != 2 || cfg.Extra[0].ExtensionType() != extensionRenegotiationInfo || cfg.Extra[1].ExtensionType() != 0xfe0d {
		t.Errorf("Extra = %v", cfg.Extra)
	}
	if !equalSlices(cfg.ExtensionOrder, []uint16{extensionServerName, extensionRenegotiationInfo}) {
		t.Errorf("ExtensionOrder = %v", cfg.ExtensionOrder)
	}

	cfg.Rand = fixedRand()
	if _, err := Compose(&cfg); err != nil {
		t.Errorf("Compose(decoded config) error = %v", err)
	}
}

func TestConfigUnmarshalJSONDefaults(t *testing.T) {
	var cfg Config
	if err := json.Unmarshal([]byte(`{"supported_groups": [], "padding": 517}`), &cfg); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if cfg.CipherSuites != nil || cfg.SessionID != nil || cfg.SupportedVersions != nil {
		t.Errorf("absent fields decoded as non-nil: %+v", cfg)
	}
	if cfg.SupportedGroups == nil || len(cfg.SupportedGroups) != 0 {
		t.Errorf("SupportedGroups = %#v, want empty and non-nil", cfg.SupportedGroups)
	}
	if n, ok := cfg.Padding(300); n != 213 || !ok {
		t.Errorf("Padding(300) = %d, %v; want 213, true", n, ok)
	}
}

func TestConfigUnmarshalJSONErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown group", `{"supported_groups": ["curve9000"]}`},
		{"unknown cipher suite", `{"cipher_suites": ["TLS_FAKE"]}`},
		{"psk mode out of range", `{"psk_key_exchange_modes": ["0x100"]}`},
		{"unknown version", `{"supported_versions": ["TLS 2.0"]}`},
		{"unknown extension", `{"extension_order": ["no_such_extension"]}`},
		{"unknown padding style", `{"padding": "chrome"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			if err := json.Unmarshal([]byte(tt.input), &cfg); !errors.Is(err, ErrInvalidBounds) {
				t.Errorf("json.Unmarshal() error = %v, want ErrInvalidBounds", err)
			}
		})
	}

	var cfg Config
	if err := json.Unmarshal([]byte(`{"random": "zz"}`), &cfg); err == nil {
		t.Errorf("json.Unmarshal() accepted a non-hex random")
	}
}

func TestConfigFromRFC8448(t *testing.T) {
	raw := mustHex(t, rfc8448ClientHelloHex)
	ch, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := ConfigFrom(ch)
	if err != nil {
		t.Fatalf("ConfigFrom() error = %v", err)
	}
	again, err := Compose(cfg)
	if err != nil {
		t.Fatalf("Compose(ConfigFrom()) error = %v", err)
	}
	if !bytes.Equal(again.Bytes(), raw) {
		t.Errorf("Compose(ConfigFrom()) =\n%x\nwant\n%x", again.Bytes(), raw)
	}
}

func TestConfigFromResumption(t *testing.T) {
	msg := mustHex(t, rfc8448TruncatedHandshakeHex)
	binders := mustHex(t, rfc8448BindersHex)
	truncated, err := FromHandshake(msg)
	if err != nil {
		t.Fatal(err)
	}
	full, err := truncated.AddBinders(binders)
	if err != nil {
		t.Fatal(err)
	}

	for name, ch := range map[string]*ClientHello{"truncated": truncated, "complete": full} {
		cfg, err := ConfigFrom(ch)
		if err != nil {
			t.Fatalf("%s: ConfigFrom() error = %v", name, err)
		}
		again, n, err := ComposeTruncated(cfg)
		if err != nil {
			t.Fatalf("%s: ComposeTruncated(ConfigFrom()) error = %v", name, err)
		}
		if n != 35 || !bytes.Equal(again.Bytes(), msg[4:]) {
			t.Errorf("%s: ComposeTruncated(ConfigFrom()) differs from the RFC 8448 message", name)
		}
	}
}

// A truncated view pads to the length of the complete message, so the
// recomposed hello keeps the captured padding once binders are appended.
func TestMarshalJSONTruncatedPadding(t *testing.T) {
	truncated, err := FromHandshake(mustHex(t, rfc8448TruncatedHandshakeHex))
	if err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(truncated)
	if err != nil {
		t.Fatal(err)
	}
	var fields struct {
		Padding int `json:"padding"`
	}
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatal(err)
	}
	if fields.Padding != 512 {
		t.Errorf("padding = %d, want 512 (4 + %d + %d pending)", fields.Padding, truncated.Len(), truncated.MissingBytes())
	}
}

func TestClientHelloMarshalJSON(t *testing.T) {
	ch, err := Parse(mustHex(t, rfc8448ClientHelloHex))
	if err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(ch)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatal(err)
	}
	if got := fields["legacy_version"]; got != "TLS 1.2" {
		t.Errorf("legacy_version = %v, want TLS 1.2", got)
	}
	if got := fields["server_names"].([]any); len(got) != 1 || got[0] != "server" {
		t.Errorf("server_names = %v, want [server]", got)
	}
	if got := fields["key_share_groups"].([]any); len(got) != 0 {
		t.Errorf("key_share_groups = %v, want []", got)
	}
	if got := fields["supported_groups"].([]any); got[0] != "x25519" {
		t.Errorf("supported_groups[0] = %v, want x25519", got[0])
	}
}
