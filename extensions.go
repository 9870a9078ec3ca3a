// Copyright 2017 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	"io"

	"golang.org/x/crypto/cryptobyte"
)

// TLSExtension is one entry of a ClientHello's extensions block.
type TLSExtension interface {
	// ExtensionType returns the 16-bit extension type tag.
	ExtensionType() uint16

	Len() int // includes header

	// Read serializes the extension, header included, into p.
	// It returns io.EOF once the whole extension has been written.
	Read(p []byte) (n int, err error) // implements io.Reader
}

// TLSExtensionWriter is an interface allowing a TLS extension to be
// reconstructed from its extension_data bytes.
type TLSExtensionWriter interface {
	TLSExtension

	// Write decodes extension_data (the payload without type and length).
	//
	// The implementation MUST NOT silently drop data if consumed less than len(b) bytes,
	// instead, it MUST return an error.
	Write(b []byte) (n int, err error)
}

// payloadBuilder is implemented by the extensions of this package. It writes
// extension_data, applying the vector bounds of the extension's grammar.
type payloadBuilder interface {
	buildPayload(b *cryptobyte.Builder)
}

// extensionTable maps each extension type with a structured decoder to a
// constructor for it. Types not listed here decode to *GenericExtension.
var extensionTable = map[uint16]func() TLSExtensionWriter{
	extensionServerName:          func() TLSExtensionWriter { return &SNIExtension{} },
	extensionSupportedCurves:     func() TLSExtensionWriter { return &SupportedCurvesExtension{} },
	extensionSignatureAlgorithms: func() TLSExtensionWriter { return &SignatureAlgorithmsExtension{} },
	extensionALPN:                func() TLSExtensionWriter { return &ALPNExtension{} },
	extensionPadding:             func() TLSExtensionWriter { return &PaddingExtension{} },
	extensionRecordSizeLimit:     func() TLSExtensionWriter { return &RecordSizeLimitExtension{} },
	extensionPreSharedKey:        func() TLSExtensionWriter { return &PreSharedKeyExtension{} },
	extensionEarlyData:           func() TLSExtensionWriter { return &EarlyDataExtension{} },
	extensionSupportedVersions:   func() TLSExtensionWriter { return &SupportedVersionsExtension{} },
	extensionCookie:              func() TLSExtensionWriter { return &CookieExtension{} },
	extensionPSKModes:            func() TLSExtensionWriter { return &PSKKeyExchangeModesExtension{} },
	extensionKeyShare:            func() TLSExtensionWriter { return &KeyShareExtension{} },
}

// ExtensionFromID returns an empty decoder for the given extension type, or
// nil if the type has no structured decoder.
func ExtensionFromID(id uint16) TLSExtensionWriter {
	if newExt, ok := extensionTable[id]; ok {
		return newExt()
	}
	return nil
}

// decodeExtension interprets one extension payload. Unknown types are passed
// through as *GenericExtension with data borrowed unchanged. An empty
// server_name payload is the degenerate form some servers echo and decodes to
// an SNIExtension without names.
func decodeExtension(id uint16, data []byte) (TLSExtension, error) {
	if id == extensionServerName && len(data) == 0 {
		return &SNIExtension{}, nil
	}
	ext := ExtensionFromID(id)
	if ext == nil {
		return &GenericExtension{Id: id, Data: data}, nil
	}
	if _, err := ext.Write(data); err != nil {
		return nil, err
	}
	return ext, nil
}

// addExtension writes type, length and payload of e to b.
func addExtension(b *cryptobyte.Builder, e TLSExtension) {
	if pb, ok := e.(payloadBuilder); ok {
		b.AddUint16(e.ExtensionType())
		addVector(b, vectorSpec{ExtensionName(e.ExtensionType()), 2, 0, 1<<16 - 1}, pb.buildPayload)
		return
	}
	// Extensions from outside this package serialize themselves.
	raw := make([]byte, e.Len())
	n, err := e.Read(raw)
	if err != nil && err != io.EOF {
		b.SetError(err)
		return
	}
	raw = raw[:n]
	s := cryptobyte.String(raw)
	var id uint16
	var data cryptobyte.String
	if !s.ReadUint16(&id) || !s.ReadUint16LengthPrefixed(&data) || !s.Empty() || id != e.ExtensionType() {
		b.SetError(malformed(ExtensionName(e.ExtensionType()), " extension: Read produced an invalid header"))
		return
	}
	b.AddBytes(raw)
}

func marshalExtension(e TLSExtension) ([]byte, error) {
	var b cryptobyte.Builder
	addExtension(&b, e)
	return b.Bytes()
}

// readExtension implements Read for the extensions of this package.
func readExtension(e TLSExtension, p []byte) (int, error) {
	raw, err := marshalExtension(e)
	if err != nil {
		return 0, err
	}
	if len(p) < len(raw) {
		return 0, io.ErrShortBuffer
	}
	return copy(p, raw), io.EOF
}

// SNIExtension implements server_name (0)
type SNIExtension struct {
	ServerNames []string
}

func (e *SNIExtension) ExtensionType() uint16 { return extensionServerName }

func (e *SNIExtension) Len() int {
	if len(e.ServerNames) == 0 {
		return 4
	}
	l := 4 + 2
	for _, name := range e.ServerNames {
		l += 1 + 2 + len(name)
	}
	return l
}

func (e *SNIExtension) Read(b []byte) (int, error) {
	return readExtension(e, b)
}

func (e *SNIExtension) buildPayload(b *cryptobyte.Builder) {
	if len(e.ServerNames) == 0 {
		return
	}
	// RFC 6066, Section 3
	addVector(b, vecServerNameList, func(b *cryptobyte.Builder) {
		for _, name := range e.ServerNames {
			b.AddUint8(0) // host_name
			addVector(b, vecHostName, func(b *cryptobyte.Builder) {
				b.AddBytes([]byte(name))
			})
		}
	})
}

// Write decodes a server_name_list. Entries of a name_type other than
// host_name are skipped.
func (e *SNIExtension) Write(b []byte) (int, error) {
	extData := cryptobyte.String(b)
	var nameList cryptobyte.String
	if !readVector(&extData, vecServerNameList, &nameList) || !extData.Empty() {
		return 0, malformed("server_name extension")
	}
	var names []string
	for !nameList.Empty() {
		var nameType uint8
		var serverName cryptobyte.String
		if !nameList.ReadUint8(&nameType) || !readVector(&nameList, vecHostName, &serverName) {
			return 0, malformed("server_name extension entry")
		}
		if nameType != 0 {
			continue
		}
		names = append(names, string(serverName))
	}
	e.ServerNames = names
	return len(b), nil
}

// SupportedCurvesExtension implements supported_groups (renamed from
// "elliptic_curves") (10)
type SupportedCurvesExtension struct {
	Curves []CurveID
}

func (e *SupportedCurvesExtension) ExtensionType() uint16 { return extensionSupportedCurves }

func (e *SupportedCurvesExtension) Len() int {
	return 4 + 2 + 2*len(e.Curves)
}

func (e *SupportedCurvesExtension) Read(b []byte) (int, error) {
	return readExtension(e, b)
}

func (e *SupportedCurvesExtension) buildPayload(b *cryptobyte.Builder) {
	// RFC 8446, Section 4.2.7
	addVector(b, vecNamedGroupList, func(b *cryptobyte.Builder) {
		for _, curve := range e.Curves {
			b.AddUint16(uint16(curve))
		}
	})
}

func (e *SupportedCurvesExtension) Write(b []byte) (int, error) {
	extData := cryptobyte.String(b)
	var curvesBytes cryptobyte.String
	if !readVector(&extData, vecNamedGroupList, &curvesBytes) || !extData.Empty() || len(curvesBytes)%2 != 0 {
		return 0, malformed("supported_groups extension")
	}
	curves := make([]CurveID, 0, len(curvesBytes)/2)
	for !curvesBytes.Empty() {
		var curve uint16
		curvesBytes.ReadUint16(&curve)
		curves = append(curves, CurveID(curve))
	}
	e.Curves = curves
	return len(b), nil
}

// SignatureAlgorithmsExtension implements signature_algorithms (13)
type SignatureAlgorithmsExtension struct {
	SupportedSignatureAlgorithms []SignatureScheme
}

func (e *SignatureAlgorithmsExtension) ExtensionType() uint16 { return extensionSignatureAlgorithms }

func (e *SignatureAlgorithmsExtension) Len() int {
	return 4 + 2 + 2*len(e.SupportedSignatureAlgorithms)
}

func (e *SignatureAlgorithmsExtension) Read(b []byte) (int, error) {
	return readExtension(e, b)
}

func (e *SignatureAlgorithmsExtension) buildPayload(b *cryptobyte.Builder) {
	// RFC 8446, Section 4.2.3
	addVector(b, vecSignatureAlgs, func(b *cryptobyte.Builder) {
		for _, sigAndHash := range e.SupportedSignatureAlgorithms {
			b.AddUint16(uint16(sigAndHash))
		}
	})
}

func (e *SignatureAlgorithmsExtension) Write(b []byte) (int, error) {
	extData := cryptobyte.String(b)
	var sigAndAlgs cryptobyte.String
	if !readVector(&extData, vecSignatureAlgs, &sigAndAlgs) || !extData.Empty() || len(sigAndAlgs)%2 != 0 {
		return 0, malformed("signature_algorithms extension")
	}
	schemes := make([]SignatureScheme, 0, len(sigAndAlgs)/2)
	for !sigAndAlgs.Empty() {
		var sigAndAlg uint16
		sigAndAlgs.ReadUint16(&sigAndAlg)
		schemes = append(schemes, SignatureScheme(sigAndAlg))
	}
	e.SupportedSignatureAlgorithms = schemes
	return len(b), nil
}

// ALPNExtension implements application_layer_protocol_negotiation (16)
type ALPNExtension struct {
	AlpnProtocols []string
}

func (e *ALPNExtension) ExtensionType() uint16 { return extensionALPN }

func (e *ALPNExtension) Len() int {
	l := 4 + 2
	for _, s := range e.AlpnProtocols {
		l += 1 + len(s)
	}
	return l
}

func (e *ALPNExtension) Read(b []byte) (int, error) {
	return readExtension(e, b)
}

func (e *ALPNExtension) buildPayload(b *cryptobyte.Builder) {
	// RFC 7301, Section 3.1
	addVector(b, vecProtocolNames, func(b *cryptobyte.Builder) {
		for _, proto := range e.AlpnProtocols {
			addVector(b, vecProtocolName, func(b *cryptobyte.Builder) {
				b.AddBytes([]byte(proto))
			})
		}
	})
}

func (e *ALPNExtension) Write(b []byte) (int, error) {
	extData := cryptobyte.String(b)
	var protoList cryptobyte.String
	if !readVector(&extData, vecProtocolNames, &protoList) || !extData.Empty() {
		return 0, malformed("application_layer_protocol_negotiation extension")
	}
	var alpnProtocols []string
	for !protoList.Empty() {
		var proto cryptobyte.String
		if !readVector(&protoList, vecProtocolName, &proto) {
			return 0, malformed("application_layer_protocol_negotiation protocol name")
		}
		alpnProtocols = append(alpnProtocols, string(proto))
	}
	e.AlpnProtocols = alpnProtocols
	return len(b), nil
}

// PaddingExtension implements padding (21). The payload is PaddingLen zero
// bytes.
type PaddingExtension struct {
	PaddingLen int
}

func (e *PaddingExtension) ExtensionType() uint16 { return extensionPadding }

func (e *PaddingExtension) Len() int {
	return 4 + e.PaddingLen
}

func (e *PaddingExtension) Read(b []byte) (int, error) {
	return readExtension(e, b)
}

func (e *PaddingExtension) buildPayload(b *cryptobyte.Builder) {
	// https://tools.ietf.org/html/rfc7685
	b.AddBytes(make([]byte, e.PaddingLen))
}

func (e *PaddingExtension) Write(b []byte) (int, error) {
	e.PaddingLen = len(b)
	return len(b), nil
}

// BoringPaddingStyle pads a ClientHello whose handshake message is between
// 256 and 511 bytes long up to 512 bytes. unpaddedLen includes the 4-byte
// handshake header.
//
// https://github.com/google/boringssl/blob/7d7554b6b3c79e707e25521e61e066ce2b996e4c/ssl/t1_lib.c#L2803
func BoringPaddingStyle(unpaddedLen int) (int, bool) {
	if unpaddedLen > 0xff && unpaddedLen < 0x200 {
		paddingLen := 0x200 - unpaddedLen
		if paddingLen >= 4+1 {
			paddingLen -= 4
		} else {
			paddingLen = 1
		}
		return paddingLen, true
	}
	return 0, false
}

// AlwaysPadToLen pads every ClientHello shorter than padToLen up to it, for
// reproducing captures that do not follow BoringSSL's rule.
func AlwaysPadToLen(padToLen int) func(int) (int, bool) {
	return func(unpaddedLen int) (int, bool) {
		if unpaddedLen < padToLen {
			paddingLen := padToLen - unpaddedLen
			if paddingLen >= 4+1 {
				paddingLen -= 4
			} else {
				paddingLen = 1
			}
			return paddingLen, true
		}
		return 0, false
	}
}

// RecordSizeLimitExtension implements record_size_limit (28)
// See RFC 8449.
type RecordSizeLimitExtension struct {
	Limit uint16
}

func (e *RecordSizeLimitExtension) ExtensionType() uint16 { return extensionRecordSizeLimit }

func (e *RecordSizeLimitExtension) Len() int {
	return 4 + 2
}

func (e *RecordSizeLimitExtension) Read(b []byte) (int, error) {
	return readExtension(e, b)
}

func (e *RecordSizeLimitExtension) buildPayload(b *cryptobyte.Builder) {
	if e.Limit < 64 {
		b.SetError(vectorSpec{"record_size_limit", 2, 64, 1<<16 - 1}.check(int(e.Limit)))
		return
	}
	b.AddUint16(e.Limit)
}

func (e *RecordSizeLimitExtension) Write(b []byte) (int, error) {
	extData := cryptobyte.String(b)
	if !extData.ReadUint16(&e.Limit) || !extData.Empty() {
		return 0, malformed("record_size_limit extension")
	}
	return len(b), nil
}

// EarlyDataExtension implements early_data (42). In a ClientHello its
// payload is empty.
type EarlyDataExtension struct{}

func (e *EarlyDataExtension) ExtensionType() uint16 { return extensionEarlyData }

func (e *EarlyDataExtension) Len() int {
	return 4
}

func (e *EarlyDataExtension) Read(b []byte) (int, error) {
	return readExtension(e, b)
}

func (e *EarlyDataExtension) buildPayload(*cryptobyte.Builder) {}

func (e *EarlyDataExtension) Write(b []byte) (int, error) {
	if len(b) != 0 {
		return 0, malformed("early_data extension: ", len(b), " unexpected bytes")
	}
	return 0, nil
}

// SupportedVersionsExtension implements supported_versions (43)
type SupportedVersionsExtension struct {
	Versions []uint16
}

func (e *SupportedVersionsExtension) ExtensionType() uint16 { return extensionSupportedVersions }

func (e *SupportedVersionsExtension) Len() int {
	return 4 + 1 + 2*len(e.Versions)
}

func (e *SupportedVersionsExtension) Read(b []byte) (int, error) {
	return readExtension(e, b)
}

func (e *SupportedVersionsExtension) buildPayload(b *cryptobyte.Builder) {
	// RFC 8446, Section 4.2.1
	addVector(b, vecVersions, func(b *cryptobyte.Builder) {
		for _, v := range e.Versions {
			b.AddUint16(v)
		}
	})
}

func (e *SupportedVersionsExtension) Write(b []byte) (int, error) {
	extData := cryptobyte.String(b)
	var versList cryptobyte.String
	if !readVector(&extData, vecVersions, &versList) || !extData.Empty() || len(versList)%2 != 0 {
		return 0, malformed("supported_versions extension")
	}
	versions := make([]uint16, 0, len(versList)/2)
	for !versList.Empty() {
		var vers uint16
		versList.ReadUint16(&vers)
		versions = append(versions, vers)
	}
	e.Versions = versions
	return len(b), nil
}

// CookieExtension implements cookie (44)
type CookieExtension struct {
	Cookie []byte
}

func (e *CookieExtension) ExtensionType() uint16 { return extensionCookie }

func (e *CookieExtension) Len() int {
	return 4 + 2 + len(e.Cookie)
}

func (e *CookieExtension) Read(b []byte) (int, error) {
	return readExtension(e, b)
}

func (e *CookieExtension) buildPayload(b *cryptobyte.Builder) {
	// RFC 8446, Section 4.2.2
	addVector(b, vecCookie, func(b *cryptobyte.Builder) {
		b.AddBytes(e.Cookie)
	})
}

func (e *CookieExtension) Write(b []byte) (int, error) {
	extData := cryptobyte.String(b)
	var cookie cryptobyte.String
	if !readVector(&extData, vecCookie, &cookie) || !extData.Empty() {
		return 0, malformed("cookie extension")
	}
	e.Cookie = cookie
	return len(b), nil
}

// PSKKeyExchangeModesExtension implements psk_key_exchange_modes (45)
type PSKKeyExchangeModesExtension struct {
	Modes []uint8
}

func (e *PSKKeyExchangeModesExtension) ExtensionType() uint16 { return extensionPSKModes }

func (e *PSKKeyExchangeModesExtension) Len() int {
	return 4 + 1 + len(e.Modes)
}

func (e *PSKKeyExchangeModesExtension) Read(b []byte) (int, error) {
	return readExtension(e, b)
}

func (e *PSKKeyExchangeModesExtension) buildPayload(b *cryptobyte.Builder) {
	// RFC 8446, Section 4.2.9
	addVector(b, vecKEModes, func(b *cryptobyte.Builder) {
		b.AddBytes(e.Modes)
	})
}

func (e *PSKKeyExchangeModesExtension) Write(b []byte) (int, error) {
	extData := cryptobyte.String(b)
	var modes cryptobyte.String
	if !readVector(&extData, vecKEModes, &modes) || !extData.Empty() {
		return 0, malformed("psk_key_exchange_modes extension")
	}
	e.Modes = modes
	return len(b), nil
}

// KeyShareExtension implements key_share (51) in its ClientHello form.
type KeyShareExtension struct {
	KeyShares []KeyShare
}

func (e *KeyShareExtension) ExtensionType() uint16 { return extensionKeyShare }

func (e *KeyShareExtension) Len() int {
	return 4 + 2 + e.keySharesLen()
}

func (e *KeyShareExtension) keySharesLen() int {
	extLen := 0
	for _, ks := range e.KeyShares {
		extLen += 4 + len(ks.Data)
	}
	return extLen
}

func (e *KeyShareExtension) Read(b []byte) (int, error) {
	return readExtension(e, b)
}

func (e *KeyShareExtension) buildPayload(b *cryptobyte.Builder) {
	// RFC 8446, Section 4.2.8
	addVector(b, vecClientShares, func(b *cryptobyte.Builder) {
		for _, ks := range e.KeyShares {
			b.AddUint16(uint16(ks.Group))
			addVector(b, vecKeyExchange, func(b *cryptobyte.Builder) {
				b.AddBytes(ks.Data)
			})
		}
	})
}

// Write decodes client_shares. Key exchange data is borrowed from b.
func (e *KeyShareExtension) Write(b []byte) (int, error) {
	extData := cryptobyte.String(b)
	var clientShares cryptobyte.String
	if !readVector(&extData, vecClientShares, &clientShares) || !extData.Empty() {
		return 0, malformed("key_share extension")
	}
	keyShares := []KeyShare{}
	for !clientShares.Empty() {
		var group uint16
		var data cryptobyte.String
		if !clientShares.ReadUint16(&group) || !readVector(&clientShares, vecKeyExchange, &data) {
			return 0, malformed("key_share entry")
		}
		keyShares = append(keyShares, KeyShare{Group: CurveID(group), Data: data})
	}
	e.KeyShares = keyShares
	return len(b), nil
}

// GenericExtension is an extension this package has no structured decoder
// for. Its payload is kept verbatim.
type GenericExtension struct {
	Id   uint16
	Data []byte
}

func (e *GenericExtension) ExtensionType() uint16 { return e.Id }

func (e *GenericExtension) Len() int {
	return 4 + len(e.Data)
}

func (e *GenericExtension) Read(b []byte) (int, error) {
	return readExtension(e, b)
}

func (e *GenericExtension) buildPayload(b *cryptobyte.Builder) {
	b.AddBytes(e.Data)
}

func (e *GenericExtension) Write(b []byte) (int, error) {
	e.Data = b
	return len(b), nil
}
