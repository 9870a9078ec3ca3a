// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	"fmt"

	"github.com/refraction-networking/utls/dicttls"
)

const (
	VersionTLS10 = 0x0301
	VersionTLS11 = 0x0302
	VersionTLS12 = 0x0303
	VersionTLS13 = 0x0304

	// VersionSSL30 is the lowest legacy_version a ClientHello may carry.
	VersionSSL30 = 0x0300
)

// VersionName returns the name for the provided TLS version number
// (e.g. "TLS 1.3"), or a fallback representation of the value.
func VersionName(version uint16) string {
	switch version {
	case VersionSSL30:
		return "SSLv3"
	case VersionTLS10:
		return "TLS 1.0"
	case VersionTLS11:
		return "TLS 1.1"
	case VersionTLS12:
		return "TLS 1.2"
	case VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("0x%04X", version)
	}
}

const (
	maxPlaintext    = 16384 // maximum record fragment length
	recordHeaderLen = 5
	handshakeHeader = 4

	randomLen       = 32
	maxSessionIDLen = 32

	// Offsets fixed by the ClientHello grammar.
	randomOffset       = 2
	sessionIDLenOffset = randomOffset + randomLen
	sessionIDOffset    = sessionIDLenOffset + 1
)

const (
	recordTypeHandshake uint8 = 22
	typeClientHello     uint8 = 1
	compressionNone     uint8 = 0
)

// TLS extension numbers.
const (
	extensionServerName          uint16 = 0
	extensionSupportedCurves     uint16 = 10 // supported_groups in TLS 1.3, see RFC 8446, Section 4.2.7
	extensionSignatureAlgorithms uint16 = 13
	extensionALPN                uint16 = 16
	extensionPadding             uint16 = 21 // RFC 7685
	extensionRecordSizeLimit     uint16 = 28 // RFC 8449
	extensionSessionTicket       uint16 = 35
	extensionPreSharedKey        uint16 = 41
	extensionEarlyData           uint16 = 42
	extensionSupportedVersions   uint16 = 43
	extensionCookie              uint16 = 44
	extensionPSKModes            uint16 = 45
	extensionKeyShare            uint16 = 51
	extensionRenegotiationInfo   uint16 = 0xff01
)

// TLS 1.3 cipher suites.
const (
	TLS_AES_128_GCM_SHA256       uint16 = 0x1301
	TLS_AES_256_GCM_SHA384       uint16 = 0x1302
	TLS_CHACHA20_POLY1305_SHA256 uint16 = 0x1303
)

// CurveID is the type of a TLS identifier for a key exchange mechanism. See
// https://www.iana.org/assignments/tls-parameters/tls-parameters.xml#tls-parameters-8.
// In TLS 1.3 the registry is called NamedGroup, see RFC 8446, Section 4.2.7.
type CurveID uint16

const (
	CurveP256 CurveID = 23
	CurveP384 CurveID = 24
	CurveP521 CurveID = 25
	X25519    CurveID = 29
	X448      CurveID = 30

	FFDHE2048 CurveID = 256
	FFDHE3072 CurveID = 257
	FFDHE4096 CurveID = 258
	FFDHE6144 CurveID = 259
	FFDHE8192 CurveID = 260

	SecP256r1MLKEM768  CurveID = 4587
	X25519MLKEM768     CurveID = 4588
	SecP384r1MLKEM1024 CurveID = 4589
)

func (c CurveID) String() string {
	if name, ok := groupNames[uint16(c)]; ok {
		return name
	}
	return fmt.Sprintf("CurveID(%d)", uint16(c))
}

// SignatureScheme identifies a signature algorithm supported by TLS. See
// RFC 8446, Section 4.2.3.
type SignatureScheme uint16

const (
	// RSASSA-PKCS1-v1_5 algorithms.
	PKCS1WithSHA256 SignatureScheme = 0x0401
	PKCS1WithSHA384 SignatureScheme = 0x0501
	PKCS1WithSHA512 SignatureScheme = 0x0601

	// RSASSA-PSS algorithms with public key OID rsaEncryption.
	PSSWithSHA256 SignatureScheme = 0x0804
	PSSWithSHA384 SignatureScheme = 0x0805
	PSSWithSHA512 SignatureScheme = 0x0806

	// RSASSA-PSS algorithms with public key OID RSASSA-PSS.
	PSSPSSWithSHA256 SignatureScheme = 0x0809
	PSSPSSWithSHA384 SignatureScheme = 0x080a
	PSSPSSWithSHA512 SignatureScheme = 0x080b

	// ECDSA algorithms. Only constrained to a specific curve in TLS 1.3.
	ECDSAWithP256AndSHA256 SignatureScheme = 0x0403
	ECDSAWithP384AndSHA384 SignatureScheme = 0x0503
	ECDSAWithP521AndSHA512 SignatureScheme = 0x0603

	Ed25519 SignatureScheme = 0x0807

	// Legacy signature and hash algorithms for TLS 1.2.
	PKCS1WithSHA1 SignatureScheme = 0x0201
	ECDSAWithSHA1 SignatureScheme = 0x0203
)

func (s SignatureScheme) String() string {
	if name, ok := signatureSchemeNames[uint16(s)]; ok {
		return name
	}
	return fmt.Sprintf("SignatureScheme(0x%04x)", uint16(s))
}

// TLS 1.3 PSK Key Exchange Modes. See RFC 8446, Section 4.2.9.
const (
	PSKModePlain uint8 = 0
	PSKModeDHE   uint8 = 1
)

// KeyShare is a TLS 1.3 Key Share. See RFC 8446, Section 4.2.8.
type KeyShare struct {
	Group CurveID
	Data  []byte
}

// ExtensionName returns the IANA name of an extension type, or a numeric
// fallback for unassigned values.
func ExtensionName(id uint16) string {
	if name, ok := extensionNames[id]; ok {
		return name
	}
	return fmt.Sprintf("extension(%d)", id)
}

// CipherSuiteName returns the IANA name of a cipher suite.
func CipherSuiteName(id uint16) string {
	if name, ok := cipherSuiteNames[id]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", id)
}

// PSKModeName returns the IANA name of a PSK key exchange mode.
func PSKModeName(mode uint8) string {
	if name, ok := pskModeNames[mode]; ok {
		return name
	}
	return fmt.Sprintf("psk_mode(%d)", mode)
}

var (
	cipherSuiteNames     = invertNames(dicttls.DictCipherSuiteNameIndexed)
	groupNames           = invertNames(dicttls.DictSupportedGroupsNameIndexed)
	signatureSchemeNames = invertNames(dicttls.DictSignatureSchemeNameIndexed)
	extensionNames       = invertNames(dicttls.DictExtTypeNameIndexed)
	pskModeNames         = invertNames(dicttls.DictPSKKeyExchangeModeNameIndexed)
)

// invertNames builds value->name from the name-indexed IANA tables. When a
// value has aliases the shortest name wins, ties broken lexically.
func invertNames[V comparable](byName map[string]V) map[V]string {
	out := make(map[V]string, len(byName))
	for name, v := range byName {
		if cur, ok := out[v]; ok && (len(cur) < len(name) || (len(cur) == len(name) && cur < name)) {
			continue
		}
		out[v] = name
	}
	return out
}

// expectedKeyShareSize returns the public key size for a group, or -1 when
// the size is unknown.
func expectedKeyShareSize(group CurveID) int {
	switch group {
	case X25519:
		return 32
	case X448:
		return 56
	case CurveP256:
		return 65
	case CurveP384:
		return 97
	case CurveP521:
		return 133
	case X25519MLKEM768:
		return 1184 + 32
	case SecP256r1MLKEM768:
		return 65 + 1184
	case SecP384r1MLKEM1024:
		return 97 + 1568
	case FFDHE2048:
		return 256
	case FFDHE3072:
		return 384
	case FFDHE4096:
		return 512
	case FFDHE6144:
		return 768
	case FFDHE8192:
		return 1024
	default:
		return -1
	}
}
