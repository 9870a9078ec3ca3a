// Copyright 2024 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package profiles holds ClientHello layouts captured from real browsers and
// turns them into clienthello.Config values.
package profiles

import (
	"crypto/rand"
	"io"
	mathrand "math/rand/v2"
	"slices"

	"github.com/refraction-networking/clienthello"
	cherrors "github.com/refraction-networking/clienthello/errors"
	"golang.org/x/crypto/cryptobyte"
)

// Profile is one captured browser ClientHello.
type Profile struct {
	ID       string // e.g. "chrome_142_windows_11"
	Browser  string
	Version  int
	Platform string

	Hello Hello
}

// Hello is the captured layout. ExtensionOrder lists extension types in the
// order the browser sent them, GREASE excluded. Extensions clienthello does
// not build itself are sent with the payload the browser sends.
type Hello struct {
	CipherSuites         []uint16
	ExtensionOrder       []uint16
	SupportedGroups      []clienthello.CurveID
	SignatureAlgorithms  []clienthello.SignatureScheme
	DelegatedCredentials []clienthello.SignatureScheme
	SupportedVersions    []uint16
	KeyShareGroups       []clienthello.CurveID
	ALPNProtocols        []string
	ALPSProtocols        []string // application_settings, old and new code points
	CertCompression      []uint16
	RecordSizeLimit      uint16

	// GREASE adds RFC 8701 values to cipher_suites, supported_groups and
	// supported_versions, and a GREASE extension first and last.
	GREASE bool

	// ShuffleExtensions permutes the extensions on every Config call.
	ShuffleExtensions bool
}

// Extension types the captured profiles send.
const (
	extServerName           uint16 = 0x0000
	extStatusRequest        uint16 = 0x0005
	extSupportedGroups      uint16 = 0x000a
	extECPointFormats       uint16 = 0x000b
	extSignatureAlgorithms  uint16 = 0x000d
	extALPN                 uint16 = 0x0010
	extSCT                  uint16 = 0x0012
	extPadding              uint16 = 0x0015
	extExtendedMasterSecret uint16 = 0x0017
	extCompressCertificate  uint16 = 0x001b
	extRecordSizeLimit      uint16 = 0x001c
	extDelegatedCredentials uint16 = 0x0022
	extSessionTicket        uint16 = 0x0023
	extPreSharedKey         uint16 = 0x0029
	extSupportedVersions    uint16 = 0x002b
	extPSKModes             uint16 = 0x002d
	extKeyShare             uint16 = 0x0033
	extALPSOld              uint16 = 0x4469
	extALPS                 uint16 = 0x44cd
	extECH                  uint16 = 0xfe0d
	extRenegotiationInfo    uint16 = 0xff01
)

// Config returns a fresh Config that composes to the profile's ClientHello
// for serverName; an empty serverName leaves server_name out. GREASE
// values, the GREASE ECH payload and the extension permutation are drawn
// from rnd, crypto/rand when nil. pre_shared_key is left out: it needs a
// session ticket, which the caller sets through PSKIdentities.
func (p *Profile) Config(serverName string, rnd io.Reader) (*clienthello.Config, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	h := &p.Hello
	cfg := &clienthello.Config{
		LegacyVersion:       clienthello.VersionTLS12,
		CipherSuites:        slices.Clone(h.CipherSuites),
		CompressionMethods:  []uint8{0},
		SupportedVersions:   []uint16{},
		PSKModes:            []uint8{},
		SupportedGroups:     []clienthello.CurveID{},
		SignatureAlgorithms: []clienthello.SignatureScheme{},
		KeyShareGroups:      []clienthello.CurveID{},
		Rand:                rnd,
	}

	order := make([]uint16, 0, len(h.ExtensionOrder)+2)
	for _, id := range h.ExtensionOrder {
		switch id {
		case extServerName:
			if serverName == "" {
				continue
			}
			cfg.ServerNames = []string{serverName}
		case extSupportedGroups:
			cfg.SupportedGroups = slices.Clone(h.SupportedGroups)
		case extSignatureAlgorithms:
			cfg.SignatureAlgorithms = slices.Clone(h.SignatureAlgorithms)
		case extSupportedVersions:
			cfg.SupportedVersions = slices.Clone(h.SupportedVersions)
		case extPSKModes:
			cfg.PSKModes = []uint8{clienthello.PSKModeDHE}
		case extKeyShare:
			cfg.KeyShareGroups = slices.Clone(h.KeyShareGroups)
		case extALPN:
			if len(h.ALPNProtocols) == 0 {
				continue
			}
			cfg.ALPNProtocols = slices.Clone(h.ALPNProtocols)
		case extRecordSizeLimit:
			if h.RecordSizeLimit == 0 {
				continue
			}
			cfg.RecordSizeLimit = h.RecordSizeLimit
		case extPadding:
			cfg.Padding = clienthello.BoringPaddingStyle
			continue
		case extPreSharedKey:
			continue
		default:
			data, ok, err := h.payload(id, rnd)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			cfg.Extra = append(cfg.Extra, &clienthello.GenericExtension{Id: id, Data: data})
		}
		order = append(order, id)
	}

	if h.ShuffleExtensions {
		r, err := newShuffler(rnd)
		if err != nil {
			return nil, err
		}
		r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	if h.GREASE {
		var seed [5]byte
		if _, err := io.ReadFull(rnd, seed[:]); err != nil {
			return nil, cherrors.New("profiles: reading GREASE seed").Base(err).AtError()
		}
		cfg.CipherSuites = slices.Insert(cfg.CipherSuites, 0, greaseValue(seed[0]))
		if len(cfg.SupportedGroups) > 0 {
			cfg.SupportedGroups = slices.Insert(cfg.SupportedGroups, 0, clienthello.CurveID(greaseValue(seed[1])))
		}
		if len(cfg.SupportedVersions) > 0 {
			cfg.SupportedVersions = slices.Insert(cfg.SupportedVersions, 0, greaseValue(seed[2]))
		}
		first, last := greaseValue(seed[3]), greaseValue(seed[4])
		if first == last {
			last ^= 0x1010
		}
		// The first GREASE extension is empty, the last carries one zero byte.
		cfg.Extra = append(cfg.Extra,
			&clienthello.GenericExtension{Id: first, Data: []byte{}},
			&clienthello.GenericExtension{Id: last, Data: []byte{0}},
		)
		order = slices.Insert(order, 0, first)
		order = append(order, last)
	}

	cfg.ExtensionOrder = order
	return cfg, nil
}

// payload returns the body of an extension sent as a GenericExtension. ok is
// false when the profile has nothing to put in it.
func (h *Hello) payload(id uint16, rnd io.Reader) (data []byte, ok bool, err error) {
	var b cryptobyte.Builder
	switch id {
	case extExtendedMasterSecret, extSCT, extSessionTicket:
		return []byte{}, true, nil
	case extRenegotiationInfo:
		return []byte{0}, true, nil
	case extECPointFormats:
		return []byte{1, 0}, true, nil // uncompressed
	case extStatusRequest:
		return []byte{1, 0, 0, 0, 0}, true, nil // OCSP, no responder ids or extensions
	case extCompressCertificate:
		if len(h.CertCompression) == 0 {
			return nil, false, nil
		}
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
			for _, alg := range h.CertCompression {
				b.AddUint16(alg)
			}
		})
	case extDelegatedCredentials:
		if len(h.DelegatedCredentials) == 0 {
			return nil, false, nil
		}
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			for _, s := range h.DelegatedCredentials {
				b.AddUint16(uint16(s))
			}
		})
	case extALPS, extALPSOld:
		if len(h.ALPSProtocols) == 0 {
			return nil, false, nil
		}
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			for _, proto := range h.ALPSProtocols {
				b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
					b.AddBytes([]byte(proto))
				})
			}
		})
	case extECH:
		ech, err := greaseECH(rnd)
		return ech, err == nil, err
	default:
		return nil, false, cherrors.New("profiles: no payload known for extension ", clienthello.ExtensionName(id)).Base(clienthello.ErrInvalidBounds).AtWarning()
	}
	data, err = b.Bytes()
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// greaseValue maps a random byte to one of the sixteen 0x?a?a values.
func greaseValue(b byte) uint16 {
	v := uint16(b&0xf0 | 0x0a)
	return v<<8 | v
}

// echGREASEInnerLens are the inner ClientHello sizes a GREASE ECH payload
// pretends to encrypt.
var echGREASEInnerLens = []int{128, 160, 192, 224}

const (
	hpkeKDFHKDFSHA256 = 0x0001
	hpkeAEADAES128GCM = 0x0001
	aesGCMOverhead    = 16
	x25519EncLen      = 32
)

// greaseECH builds an outer encrypted_client_hello, as a client without an
// ECH config sends: random config id, enc and payload.
func greaseECH(rnd io.Reader) ([]byte, error) {
	var pick [2]byte
	if _, err := io.ReadFull(rnd, pick[:]); err != nil {
		return nil, cherrors.New("profiles: reading ECH GREASE").Base(err).AtError()
	}
	n := echGREASEInnerLens[int(pick[1])%len(echGREASEInnerLens)] + aesGCMOverhead
	buf := make([]byte, x25519EncLen+n)
	if _, err := io.ReadFull(rnd, buf); err != nil {
		return nil, cherrors.New("profiles: reading ECH GREASE").Base(err).AtError()
	}

	var b cryptobyte.Builder
	b.AddUint8(0) // outer
	b.AddUint16(hpkeKDFHKDFSHA256)
	b.AddUint16(hpkeAEADAES128GCM)
	b.AddUint8(pick[0])
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(buf[:x25519EncLen])
	})
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(buf[x25519EncLen:])
	})
	return b.Bytes()
}

func newShuffler(rnd io.Reader) (*mathrand.Rand, error) {
	var seed [32]byte
	if _, err := io.ReadFull(rnd, seed[:]); err != nil {
		return nil, cherrors.New("profiles: reading shuffle seed").Base(err).AtError()
	}
	return mathrand.New(mathrand.NewChaCha8(seed)), nil
}

// All returns all captured profiles.
func All() []*Profile {
	return []*Profile{
		Chrome138Android,
		Chrome142Windows11,
		Firefox132Windows11,
		Firefox145Android,
		Firefox145Macos,
		Firefox145Windows11,
		Opera93Android,
		Opera124Macos,
		Safari17Macos,
		Safari18Ios,
		Yandex25Android,
	}
}

// Chrome profiles
func Chrome() []*Profile {
	return []*Profile{
		Chrome138Android,
		Chrome142Windows11,
	}
}

// Firefox profiles
func Firefox() []*Profile {
	return []*Profile{
		Firefox132Windows11,
		Firefox145Android,
		Firefox145Macos,
		Firefox145Windows11,
	}
}

// Safari profiles
func Safari() []*Profile {
	return []*Profile{
		Safari17Macos,
		Safari18Ios,
	}
}

// Android returns the profiles captured on Android.
func Android() []*Profile {
	var out []*Profile
	for _, p := range All() {
		if p.Platform == "android" {
			out = append(out, p)
		}
	}
	return out
}

// IDs returns the IDs of all profiles.
func IDs() []string {
	all := All()
	ids := make([]string, len(all))
	for i, p := range all {
		ids[i] = p.ID
	}
	return ids
}

// ByID returns the profile with the given ID.
func ByID(id string) (*Profile, bool) {
	for _, p := range All() {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}
