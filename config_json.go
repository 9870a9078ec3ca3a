// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	cherrors "github.com/refraction-networking/clienthello/errors"
	"github.com/refraction-networking/utls/dicttls"
)

// configJSON is the wire form of Config. Lists use IANA names; a field left
// out takes its default and an empty list suppresses the extension, as in
// Config.
type configJSON struct {
	LegacyVersion       string            `json:"legacy_version"`
	Random              hexBytes          `json:"random"`
	SessionID           hexBytes          `json:"session_id"`
	CipherSuites        []string          `json:"cipher_suites"`
	CompressionMethods  hexBytes          `json:"compression_methods"`
	ServerNames         []string          `json:"server_names"`
	SupportedVersions   []string          `json:"supported_versions"`
	PSKModes            []string          `json:"psk_key_exchange_modes"`
	SupportedGroups     []string          `json:"supported_groups"`
	SignatureAlgorithms []string          `json:"signature_algorithms"`
	KeyShareGroups      []string          `json:"key_share_groups"`
	KeyShares           []keyShareJSON    `json:"key_shares"`
	ALPNProtocols       []string          `json:"alpn_protocols"`
	Cookie              hexBytes          `json:"cookie"`
	RecordSizeLimit     uint16            `json:"record_size_limit"`
	EarlyData           bool              `json:"early_data"`
	Padding             json.RawMessage   `json:"padding"`
	PSKIdentities       []pskIdentityJSON `json:"psk_identities"`
	PSKBinderLengths    []int             `json:"psk_binder_lengths"`
	Extra               []genericExtJSON  `json:"extra_extensions"`
	ExtensionOrder      []string          `json:"extension_order"`
}

type keyShareJSON struct {
	Group       string   `json:"group"`
	KeyExchange hexBytes `json:"key_exchange"`
}

type pskIdentityJSON struct {
	Identity            hexBytes `json:"identity"`
	ObfuscatedTicketAge uint32   `json:"obfuscated_ticket_age"`
}

type genericExtJSON struct {
	Name string   `json:"name"`
	Data hexBytes `json:"data"`
}

// hexBytes is a byte string written as hex. Whitespace and colons are
// ignored so captures can be pasted as printed by packet tools.
type hexBytes []byte

func (h *hexBytes) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':', '\n', '\t':
			return -1
		}
		return r
	}, s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return cherrors.New("clienthello: bad hex string").Base(err)
	}
	*h = b
	return nil
}

func (h hexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

// UnmarshalJSON reads a Config from its JSON form:
//
//	{
//	  "cipher_suites": ["TLS_AES_128_GCM_SHA256", "0x1303"],
//	  "compression_methods": "00",
//	  "supported_versions": ["TLS 1.3", "TLS 1.2"],
//	  "supported_groups": ["x25519", "secp256r1"],
//	  "signature_algorithms": ["ecdsa_secp256r1_sha256", "rsa_pss_rsae_sha256"],
//	  "psk_key_exchange_modes": ["psk_dhe_ke"],
//	  "server_names": ["example.com"],
//	  "padding": "boringssl",
//	  "extra_extensions": [{"name": "renegotiation_info", "data": "00"}],
//	  "extension_order": ["server_name", "renegotiation_info"]
//	}
//
// Names come from the IANA registries; a number in decimal or 0x-prefixed
// hex is accepted wherever a name is. "padding" is "boringssl" or the
// handshake length to pad to. Byte strings are hex.
func (c *Config) UnmarshalJSON(data []byte) error {
	var j configJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	var cfg Config
	var err error

	if j.LegacyVersion != "" {
		if cfg.LegacyVersion, err = parseVersion(j.LegacyVersion); err != nil {
			return err
		}
	}
	cfg.Random = j.Random
	cfg.SessionID = j.SessionID
	if cfg.CipherSuites, err = lookupAll(j.CipherSuites, "cipher suite", dicttls.DictCipherSuiteNameIndexed, identity[uint16]); err != nil {
		return err
	}
	cfg.CompressionMethods = j.CompressionMethods
	cfg.ServerNames = j.ServerNames
	if j.SupportedVersions != nil {
		cfg.SupportedVersions = make([]uint16, 0, len(j.SupportedVersions))
		for _, name := range j.SupportedVersions {
			v, err := parseVersion(name)
			if err != nil {
				return err
			}
			cfg.SupportedVersions = append(cfg.SupportedVersions, v)
		}
	}
	if cfg.PSKModes, err = lookupAll(j.PSKModes, "psk key exchange mode", dicttls.DictPSKKeyExchangeModeNameIndexed, identity[uint8]); err != nil {
		return err
	}
	if cfg.SupportedGroups, err = lookupAll(j.SupportedGroups, "named group", dicttls.DictSupportedGroupsNameIndexed, toCurveID); err != nil {
		return err
	}
	if cfg.SignatureAlgorithms, err = lookupAll(j.SignatureAlgorithms, "signature scheme", dicttls.DictSignatureSchemeNameIndexed, toSignatureScheme); err != nil {
		return err
	}
	if cfg.KeyShareGroups, err = lookupAll(j.KeyShareGroups, "named group", dicttls.DictSupportedGroupsNameIndexed, toCurveID); err != nil {
		return err
	}
	if j.KeyShares != nil {
		cfg.KeyShares = make([]KeyShare, 0, len(j.KeyShares))
		for _, ks := range j.KeyShares {
			group, err := lookupName(ks.Group, "named group", dicttls.DictSupportedGroupsNameIndexed)
			if err != nil {
				return err
			}
			cfg.KeyShares = append(cfg.KeyShares, KeyShare{Group: CurveID(group), Data: ks.KeyExchange})
		}
	}
	cfg.ALPNProtocols = j.ALPNProtocols
	cfg.Cookie = j.Cookie
	cfg.RecordSizeLimit = j.RecordSizeLimit
	cfg.EarlyData = j.EarlyData
	if cfg.Padding, err = parsePadding(j.Padding); err != nil {
		return err
	}
	for _, id := range j.PSKIdentities {
		cfg.PSKIdentities = append(cfg.PSKIdentities, PskIdentity{Label: id.Identity, ObfuscatedTicketAge: id.ObfuscatedTicketAge})
	}
	cfg.PSKBinderLengths = j.PSKBinderLengths
	for _, e := range j.Extra {
		id, err := lookupName(e.Name, "extension", dicttls.DictExtTypeNameIndexed)
		if err != nil {
			return err
		}
		cfg.Extra = append(cfg.Extra, &GenericExtension{Id: id, Data: e.Data})
	}
	if cfg.ExtensionOrder, err = lookupAll(j.ExtensionOrder, "extension", dicttls.DictExtTypeNameIndexed, identity[uint16]); err != nil {
		return err
	}

	*c = cfg
	return nil
}

// parseVersion accepts "TLS 1.0" through "TLS 1.3", "SSLv3" and numbers.
func parseVersion(s string) (uint16, error) {
	for _, v := range []uint16{VersionSSL30, VersionTLS10, VersionTLS11, VersionTLS12, VersionTLS13} {
		if strings.EqualFold(s, VersionName(v)) {
			return v, nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, cherrors.New("clienthello: unknown protocol version ", strconv.Quote(s)).Base(ErrInvalidBounds).AtWarning()
	}
	return uint16(n), nil
}

// parsePadding reads "boringssl" or a target handshake length.
func parsePadding(raw json.RawMessage) (func(int) (int, bool), error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var style string
	if err := json.Unmarshal(raw, &style); err == nil {
		switch strings.ToLower(style) {
		case "boringssl", "boring":
			return BoringPaddingStyle, nil
		case "", "none":
			return nil, nil
		}
		return nil, cherrors.New("clienthello: unknown padding style ", strconv.Quote(style)).Base(ErrInvalidBounds).AtWarning()
	}
	var padTo int
	if err := json.Unmarshal(raw, &padTo); err != nil {
		return nil, cherrors.New("clienthello: padding must be a style name or a length").Base(err)
	}
	return AlwaysPadToLen(padTo), nil
}

// lookupName resolves an IANA name, or a decimal or 0x-prefixed number, to
// its code point.
func lookupName[V uint8 | uint16](name, kind string, byName map[string]V) (V, error) {
	if v, ok := byName[name]; ok {
		return v, nil
	}
	n, err := strconv.ParseUint(name, 0, 16)
	if err != nil || uint64(V(n)) != n {
		return 0, cherrors.New("clienthello: unknown ", kind, " ", strconv.Quote(name)).Base(ErrInvalidBounds).AtWarning()
	}
	return V(n), nil
}

// lookupAll maps a list of names, keeping nil as nil and empty as empty.
func lookupAll[V uint8 | uint16, T any](names []string, kind string, byName map[string]V, conv func(V) T) ([]T, error) {
	if names == nil {
		return nil, nil
	}
	out := make([]T, 0, len(names))
	for _, name := range names {
		v, err := lookupName(name, kind, byName)
		if err != nil {
			return nil, err
		}
		out = append(out, conv(v))
	}
	return out, nil
}

func identity[V any](v V) V { return v }

func toCurveID(v uint16) CurveID { return CurveID(v) }

func toSignatureScheme(v uint16) SignatureScheme { return SignatureScheme(v) }
