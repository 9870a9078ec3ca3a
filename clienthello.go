// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package clienthello models the TLS 1.3 ClientHello message (RFC 8446,
// Section 4.1.2). A ClientHello is an immutable view over one serialized
// handshake body; fields are located by chaining length prefixes and
// extensions are decoded on first use. Compose builds a well-formed message
// from a Config, including the binder-less form a PSK client signs before
// appending its binders.
package clienthello

import (
	"context"
	"maps"
	"sync"

	cherrors "github.com/refraction-networking/clienthello/errors"
	"golang.org/x/crypto/cryptobyte"
)

// ClientHello is a read-only view over a serialized ClientHello body, the
// handshake message without its 4-byte header. It borrows the buffer it was
// built from; callers must not modify that buffer while the view is in use.
//
// A ClientHello is safe for concurrent use.
type ClientHello struct {
	raw    []byte
	fields fieldResolver

	// missing counts bytes declared by the extensions length but absent
	// from raw. Only the binder-less PSK form has missing > 0.
	missing int

	overrides *Overrides

	extOnce  sync.Once
	exts     map[uint16]TLSExtension
	extOrder []uint16
	extErr   error
}

// Overrides carries the values a ClientHello was composed from that are not
// properties of the wire bytes: the full group preference, the key shares
// with the data the composer generated, the first server name before
// encoding, and the offered application protocols. Parsed views have none.
type Overrides struct {
	Groups        []CurveID
	KeyShares     []KeyShare
	ServerName    string
	ALPNProtocols []string
}

// Parse returns a view over b, which must hold a complete ClientHello body.
// Bytes past the end of the extensions block are dropped, so b may be the
// start of a record carrying more than one message.
func Parse(b []byte) (*ClientHello, error) {
	return sanitize(b, false)
}

// ParseTruncated is Parse for the binder-less form of a PSK ClientHello:
// the extensions block may end short of its declared length, provided the
// last extension is pre_shared_key and everything up to and including its
// identities list is present. A complete body is accepted as well.
func ParseTruncated(b []byte) (*ClientHello, error) {
	return sanitize(b, true)
}

// sanitize validates the fixed structure of b and resolves every field
// range. Validation failures abort construction.
func sanitize(b []byte, partial bool) (*ClientHello, error) {
	s := cryptobyte.String(b)
	var version uint16
	if !s.ReadUint16(&version) {
		return nil, malformed("legacy_version: buffer holds ", len(b), " bytes")
	}
	if version < VersionSSL30 {
		return nil, cherrors.New("clienthello: legacy_version ", VersionName(version), " below SSLv3").Base(ErrProtocolVersionRejected).AtWarning()
	}
	if len(b) <= sessionIDLenOffset {
		return nil, malformed("legacy_session_id: buffer holds ", len(b), " bytes")
	}
	if n := b[sessionIDLenOffset]; n > maxSessionIDLen {
		return nil, cherrors.New("clienthello: legacy_session_id of ", n, " bytes").Base(ErrUnexpectedMessage).AtWarning()
	}

	fields := fieldResolver{buf: b, partial: partial}
	c, err := fields.ciphersRange()
	if err != nil {
		return nil, err
	}
	if c.end < len(b) && b[c.end] != 1 {
		return nil, cherrors.New("clienthello: ", b[c.end], " compression methods").Base(ErrUnexpectedMessage).AtWarning()
	}
	if err := fields.resolveAll(); err != nil {
		return nil, err
	}

	ch := &ClientHello{missing: fields.missing()}
	end := fields.extensions.end - ch.missing
	ch.raw = b[:end:end]
	fields.buf = ch.raw
	ch.fields = fields

	if ch.missing > 0 {
		// Reject now anything but a pre_shared_key cut after its identities.
		entries, err := splitExtensions(fields.extensions.slice(ch.raw), ch.missing)
		if err != nil {
			return nil, err
		}
		last := entries[len(entries)-1]
		if _, err := new(PreSharedKeyExtension).writeTruncated(last.data); err != nil {
			return nil, err
		}
	}

	if cherrors.DebugLoggingEnabled {
		cherrors.LogDebug(context.Background(), "clienthello: parsed ", len(ch.raw), " bytes (", ch.missing, " pending), dropped ", len(b)-len(ch.raw), " trailing")
	}
	return ch, nil
}

// FromHandshake parses a handshake message: msg_type, a 24-bit length and
// the body. A body shorter than its declared length is taken as the
// binder-less PSK form.
func FromHandshake(msg []byte) (*ClientHello, error) {
	s := cryptobyte.String(msg)
	var msgType uint8
	var n uint32
	if !s.ReadUint8(&msgType) || !s.ReadUint24(&n) {
		return nil, malformed("handshake header: message holds ", len(msg), " bytes")
	}
	if msgType != typeClientHello {
		return nil, cherrors.New("clienthello: handshake type ", msgType, " is not a ClientHello").Base(ErrUnexpectedMessage).AtWarning()
	}
	body := []byte(s)
	if len(body) < int(n) {
		ch, err := ParseTruncated(body)
		if err != nil {
			return nil, err
		}
		if ch.Len()+ch.MissingBytes() != int(n) {
			return nil, malformed("handshake length ", n, ", body declares ", ch.Len()+ch.MissingBytes())
		}
		return ch, nil
	}
	ch, err := Parse(body[:n])
	if err != nil {
		return nil, err
	}
	if ch.Len() != int(n) {
		return nil, malformed("handshake length ", n, ", ClientHello ends at ", ch.Len())
	}
	return ch, nil
}

// FromRecord parses a TLS plaintext record whose fragment starts with a
// ClientHello handshake message. The record version is not checked.
func FromRecord(rec []byte) (*ClientHello, error) {
	s := cryptobyte.String(rec)
	var contentType uint8
	var version uint16
	var fragment cryptobyte.String
	if !s.ReadUint8(&contentType) || !s.ReadUint16(&version) || !s.ReadUint16LengthPrefixed(&fragment) {
		return nil, malformed("record header or fragment: record holds ", len(rec), " bytes")
	}
	if contentType != recordTypeHandshake {
		return nil, cherrors.New("clienthello: record content type ", contentType, " is not handshake").Base(ErrUnexpectedMessage).AtWarning()
	}
	if len(fragment) > maxPlaintext {
		return nil, malformed("record fragment of ", len(fragment), " bytes")
	}
	return FromHandshake(fragment)
}

// Version returns legacy_version.
func (ch *ClientHello) Version() uint16 {
	return uint16(ch.raw[0])<<8 | uint16(ch.raw[1])
}

// LegacyVersion is an alias for Version.
func (ch *ClientHello) LegacyVersion() uint16 { return ch.Version() }

// Random returns the 32-byte random.
func (ch *ClientHello) Random() []byte {
	return ch.raw[randomOffset : randomOffset+randomLen : randomOffset+randomLen]
}

// SessionID returns legacy_session_id, empty when its length byte is zero.
func (ch *ClientHello) SessionID() []byte {
	return ch.fields.sessionID.slice(ch.raw)
}

// LegacySessionID is an alias for SessionID.
func (ch *ClientHello) LegacySessionID() []byte { return ch.SessionID() }

// CipherSuites returns the offered cipher suites in order.
func (ch *ClientHello) CipherSuites() []uint16 {
	s := cryptobyte.String(ch.fields.ciphers.slice(ch.raw))
	suites := make([]uint16, 0, len(s)/2)
	for !s.Empty() {
		var suite uint16
		s.ReadUint16(&suite)
		suites = append(suites, suite)
	}
	return suites
}

// CompressionMethods returns legacy_compression_methods without its length
// byte.
func (ch *ClientHello) CompressionMethods() []byte {
	r := ch.fields.compression
	return ch.raw[r.start+1 : r.end : r.end]
}

// Bytes returns the serialized body. For a truncated view it ends where the
// binders are to be appended.
func (ch *ClientHello) Bytes() []byte { return ch.raw[:len(ch.raw):len(ch.raw)] }

// Len returns len(Bytes()).
func (ch *ClientHello) Len() int { return len(ch.raw) }

// Truncated reports whether the view is the binder-less form of a PSK
// ClientHello.
func (ch *ClientHello) Truncated() bool { return ch.missing > 0 }

// MissingBytes returns the size of the binders vector the message declares
// but does not carry yet, or 0.
func (ch *ClientHello) MissingBytes() int { return ch.missing }

// Overrides returns the composition values of a view produced by Compose,
// or nil for a parsed view. The result must not be modified.
func (ch *ClientHello) Overrides() *Overrides { return ch.overrides }

// Extensions returns the decoded extensions keyed by type. When a type
// occurs more than once the later occurrence wins. The map is a copy; the
// extensions in it are shared and must not be modified.
func (ch *ClientHello) Extensions() (map[uint16]TLSExtension, error) {
	ch.extOnce.Do(ch.decodeExtensions)
	if ch.extErr != nil {
		return nil, ch.extErr
	}
	return maps.Clone(ch.exts), nil
}

// ExtensionOrder returns the extension types in wire order, duplicates
// included.
func (ch *ClientHello) ExtensionOrder() ([]uint16, error) {
	ch.extOnce.Do(ch.decodeExtensions)
	if ch.extErr != nil {
		return nil, ch.extErr
	}
	return append([]uint16(nil), ch.extOrder...), nil
}

// Extension returns the decoded extension of the given type, or an error
// wrapping ErrMissingExtension.
func (ch *ClientHello) Extension(id uint16) (TLSExtension, error) {
	ch.extOnce.Do(ch.decodeExtensions)
	if ch.extErr != nil {
		return nil, ch.extErr
	}
	ext, ok := ch.exts[id]
	if !ok {
		return nil, cherrors.New("clienthello: no ", ExtensionName(id), " extension").Base(ErrMissingExtension).AtInfo()
	}
	return ext, nil
}

func (ch *ClientHello) decodeExtensions() {
	entries, err := splitExtensions(ch.fields.extensions.slice(ch.raw), ch.missing)
	if err != nil {
		ch.extErr = err
		return
	}
	exts := make(map[uint16]TLSExtension, len(entries))
	order := make([]uint16, 0, len(entries))
	for _, entry := range entries {
		var ext TLSExtension
		if entry.truncated {
			psk := &PreSharedKeyExtension{}
			_, err = psk.writeTruncated(entry.data)
			ext = psk
		} else {
			ext, err = decodeExtension(entry.id, entry.data)
		}
		if err != nil {
			ch.extErr = err
			return
		}
		if _, dup := exts[entry.id]; dup && cherrors.ShouldLog(cherrors.SeverityWarning) {
			cherrors.LogWarning(context.Background(), "clienthello: duplicate ", ExtensionName(entry.id), " extension, keeping the later one")
		}
		exts[entry.id] = ext
		order = append(order, entry.id)
	}
	ch.exts, ch.extOrder = exts, order
}

// extensionEntry is one (type, payload) pair of the extensions block.
type extensionEntry struct {
	id        uint16
	data      []byte
	truncated bool
}

// splitExtensions cuts an extensions block into its entries. When missing is
// positive the block must end inside a final pre_shared_key entry that is
// short by exactly that many bytes.
func splitExtensions(block []byte, missing int) ([]extensionEntry, error) {
	s := cryptobyte.String(block)
	var entries []extensionEntry
	for !s.Empty() {
		var id, n uint16
		if !s.ReadUint16(&id) || !s.ReadUint16(&n) {
			return nil, malformed("extension header: ", len(s), " bytes left")
		}
		if int(n) > len(s) {
			if missing == 0 || id != extensionPreSharedKey || int(n)-len(s) != missing {
				return nil, malformed(ExtensionName(id), " extension: length ", n, " with ", len(s), " bytes left")
			}
			entries = append(entries, extensionEntry{id: id, data: s, truncated: true})
			return entries, nil
		}
		var data []byte
		s.ReadBytes(&data, int(n))
		entries = append(entries, extensionEntry{id: id, data: data})
	}
	if missing > 0 {
		return nil, malformed("truncated ClientHello: block ends outside pre_shared_key")
	}
	return entries, nil
}

// extensionAs looks up one extension and asserts its decoded type.
func extensionAs[T TLSExtension](ch *ClientHello, id uint16) (T, error) {
	var zero T
	ext, err := ch.Extension(id)
	if err != nil {
		return zero, err
	}
	t, ok := ext.(T)
	if !ok {
		return zero, malformed(ExtensionName(id), " extension decoded as ", ext)
	}
	return t, nil
}

// SupportedVersions returns the supported_versions list.
func (ch *ClientHello) SupportedVersions() ([]uint16, error) {
	e, err := extensionAs[*SupportedVersionsExtension](ch, extensionSupportedVersions)
	if err != nil {
		return nil, err
	}
	return e.Versions, nil
}

// PSKKeyExchangeModes returns the psk_key_exchange_modes list.
func (ch *ClientHello) PSKKeyExchangeModes() ([]uint8, error) {
	e, err := extensionAs[*PSKKeyExchangeModesExtension](ch, extensionPSKModes)
	if err != nil {
		return nil, err
	}
	return e.Modes, nil
}

// SupportedGroups returns the supported_groups list.
func (ch *ClientHello) SupportedGroups() ([]CurveID, error) {
	e, err := extensionAs[*SupportedCurvesExtension](ch, extensionSupportedCurves)
	if err != nil {
		return nil, err
	}
	return e.Curves, nil
}

// SignatureAlgorithms returns the signature_algorithms list.
func (ch *ClientHello) SignatureAlgorithms() ([]SignatureScheme, error) {
	e, err := extensionAs[*SignatureAlgorithmsExtension](ch, extensionSignatureAlgorithms)
	if err != nil {
		return nil, err
	}
	return e.SupportedSignatureAlgorithms, nil
}

// ServerNames returns the host names of the server_name extension. An
// extension with an empty payload yields no names and no error.
func (ch *ClientHello) ServerNames() ([]string, error) {
	e, err := extensionAs[*SNIExtension](ch, extensionServerName)
	if err != nil {
		return nil, err
	}
	return e.ServerNames, nil
}

// OfferedPSKs returns the pre_shared_key extension. On a truncated view its
// Binders are nil.
func (ch *ClientHello) OfferedPSKs() (*PreSharedKeyExtension, error) {
	return extensionAs[*PreSharedKeyExtension](ch, extensionPreSharedKey)
}

// KeyShares returns the client_shares of the key_share extension.
func (ch *ClientHello) KeyShares() ([]KeyShare, error) {
	e, err := extensionAs[*KeyShareExtension](ch, extensionKeyShare)
	if err != nil {
		return nil, err
	}
	return e.KeyShares, nil
}

// ALPNProtocols returns the application_layer_protocol_negotiation list.
func (ch *ClientHello) ALPNProtocols() ([]string, error) {
	e, err := extensionAs[*ALPNExtension](ch, extensionALPN)
	if err != nil {
		return nil, err
	}
	return e.AlpnProtocols, nil
}

// Cookie returns the cookie echoed from a HelloRetryRequest.
func (ch *ClientHello) Cookie() ([]byte, error) {
	e, err := extensionAs[*CookieExtension](ch, extensionCookie)
	if err != nil {
		return nil, err
	}
	return e.Cookie, nil
}

// RecordSizeLimit returns the record_size_limit value.
func (ch *ClientHello) RecordSizeLimit() (uint16, error) {
	e, err := extensionAs[*RecordSizeLimitExtension](ch, extensionRecordSizeLimit)
	if err != nil {
		return 0, err
	}
	return e.Limit, nil
}

// Groups returns the key exchange groups of the message: the composer's
// group preference when the view came from Compose, otherwise the groups of
// the key_share entries.
func (ch *ClientHello) Groups() ([]CurveID, error) {
	if ch.overrides != nil && ch.overrides.Groups != nil {
		return ch.overrides.Groups, nil
	}
	shares, err := ch.KeyShares()
	if err != nil {
		return nil, err
	}
	groups := make([]CurveID, len(shares))
	for i, ks := range shares {
		groups[i] = ks.Group
	}
	return groups, nil
}

// AddBinders returns a new view over Bytes() followed by binders, the
// encoded binders vector of a truncated view. binders must be exactly
// MissingBytes() long. ch is left unchanged.
func (ch *ClientHello) AddBinders(binders []byte) (*ClientHello, error) {
	if len(binders) != ch.missing {
		return nil, malformed("binders: got ", len(binders), " bytes, message declares ", ch.missing)
	}
	buf := make([]byte, 0, len(ch.raw)+len(binders))
	buf = append(buf, ch.raw...)
	buf = append(buf, binders...)
	out, err := sanitize(buf, false)
	if err != nil {
		return nil, err
	}
	out.overrides = ch.overrides
	return out, nil
}

// Handshake returns the handshake message: msg_type client_hello, a 24-bit
// length and the body. The length of a truncated view counts the pending
// binders, which is the form PSK binders are computed over.
func (ch *ClientHello) Handshake() []byte {
	var b cryptobyte.Builder
	b.AddUint8(typeClientHello)
	b.AddUint24(uint32(len(ch.raw) + ch.missing))
	b.AddBytes(ch.raw)
	return b.BytesOrPanic()
}

// Record wraps the handshake message in a handshake record with
// legacy_record_version TLS 1.2, the form for any ClientHello after the
// first.
func (ch *ClientHello) Record() ([]byte, error) {
	return ch.record(VersionTLS12)
}

// InitRecord wraps the handshake message in a handshake record with
// legacy_record_version TLS 1.0, the form for the initial ClientHello.
func (ch *ClientHello) InitRecord() ([]byte, error) {
	return ch.record(VersionTLS10)
}

func (ch *ClientHello) record(version uint16) ([]byte, error) {
	if ch.Truncated() {
		return nil, cherrors.New("clienthello: cannot frame a record, ", ch.missing, " binder bytes pending").Base(ErrTruncated)
	}
	hs := ch.Handshake()
	if len(hs) > maxPlaintext {
		return nil, cherrors.New("clienthello: handshake of ", len(hs), " bytes exceeds one record").Base(ErrInvalidBounds).AtWarning()
	}
	var b cryptobyte.Builder
	b.AddUint8(recordTypeHandshake)
	b.AddUint16(version)
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(hs)
	})
	return b.Bytes()
}
