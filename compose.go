// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	"cmp"
	"context"
	"crypto/rand"
	"io"
	"slices"

	cherrors "github.com/refraction-networking/clienthello/errors"
	"golang.org/x/crypto/cryptobyte"
)

// Config holds the semantic values a ClientHello is composed from. A nil
// field takes its default; an explicitly empty, non-nil list suppresses the
// extension it feeds. A Config is read, never modified, by Compose.
type Config struct {
	// LegacyVersion defaults to TLS 1.2 (0x0303).
	LegacyVersion uint16

	// Random must be 32 bytes; nil draws it from Rand.
	Random []byte

	// SessionID is legacy_session_id. nil draws 32 bytes from Rand, the
	// middlebox compatibility mode of RFC 8446, Appendix D.4; an empty
	// non-nil slice sends an empty session id.
	SessionID []byte

	CipherSuites       []uint16
	CompressionMethods []uint8

	// ServerNames feeds server_name. Names are normalized with NormalizeSNI
	// and must pass ValidateSNI. Empty omits the extension.
	ServerNames []string

	SupportedVersions   []uint16
	PSKModes            []uint8
	SupportedGroups     []CurveID
	SignatureAlgorithms []SignatureScheme

	// KeyShareGroups lists the groups to send key shares for. Placeholder
	// key_exchange values of each group's public key size are drawn from
	// Rand. Ignored when KeyShares is set.
	KeyShareGroups []CurveID

	// KeyShares are sent verbatim. A non-nil empty slice sends an empty
	// client_shares list, as a client expecting a HelloRetryRequest does.
	KeyShares []KeyShare

	ALPNProtocols   []string
	Cookie          []byte
	RecordSizeLimit uint16 // 0 omits record_size_limit
	EarlyData       bool

	// Padding, if set, is called with the length of the unpadded handshake
	// message, header included, and returns the padding payload size. See
	// BoringPaddingStyle.
	Padding func(unpaddedLen int) (paddingLen int, willPad bool)

	// PSKIdentities adds a pre_shared_key extension, always last.
	PSKIdentities []PskIdentity
	// PSKBinderLengths gives the size of each identity's binder, 32 (a
	// SHA-256 HMAC) when nil.
	PSKBinderLengths []int

	// Extra extensions follow the built-in ones.
	Extra []TLSExtension

	// ExtensionOrder moves the listed extension types to the front, in the
	// order given. Unlisted extensions keep their default relative order.
	// padding and pre_shared_key cannot be moved.
	ExtensionOrder []uint16

	// Rand is the randomness source; crypto/rand.Reader when nil.
	Rand io.Reader
}

var (
	defaultCipherSuites = []uint16{
		TLS_AES_128_GCM_SHA256,
		TLS_AES_256_GCM_SHA384,
		TLS_CHACHA20_POLY1305_SHA256,
	}
	defaultSupportedVersions = []uint16{VersionTLS12, VersionTLS13}
	defaultPSKModes          = []uint8{PSKModeDHE}
	defaultGroups            = []CurveID{X25519, CurveP256, CurveP384, CurveP521, X448}
	defaultSignatureSchemes  = []SignatureScheme{
		ECDSAWithP256AndSHA256,
		ECDSAWithP384AndSHA384,
		ECDSAWithP521AndSHA512,
		PSSWithSHA256,
		PSSWithSHA384,
		PSSWithSHA512,
		PSSPSSWithSHA256,
		PSSPSSWithSHA384,
		PSSPSSWithSHA512,
	}
)

const defaultBinderLen = 32

// DefaultConfig returns a Config with every default spelled out. Random and
// SessionID stay nil and are drawn at composition time.
func DefaultConfig() *Config {
	return &Config{
		LegacyVersion:       VersionTLS12,
		CipherSuites:        slices.Clone(defaultCipherSuites),
		CompressionMethods:  []uint8{compressionNone},
		SupportedVersions:   slices.Clone(defaultSupportedVersions),
		PSKModes:            slices.Clone(defaultPSKModes),
		SupportedGroups:     slices.Clone(defaultGroups),
		SignatureAlgorithms: slices.Clone(defaultSignatureSchemes),
		KeyShareGroups:      slices.Clone(defaultGroups),
	}
}

func orDefault[T any](v, def []T) []T {
	if v == nil {
		return def
	}
	return v
}

// Validate checks the fields that can be checked without composing and
// returns every problem found.
func (c *Config) Validate() error {
	var errs []error
	if c.LegacyVersion != 0 && c.LegacyVersion < VersionSSL30 {
		errs = append(errs, cherrors.New("clienthello: LegacyVersion ", VersionName(c.LegacyVersion)).Base(ErrProtocolVersionRejected).AtWarning())
	}
	if c.Random != nil && len(c.Random) != randomLen {
		errs = append(errs, vectorSpec{"random", 0, randomLen, randomLen}.check(len(c.Random)))
	}
	if err := vecSessionID.check(len(c.SessionID)); err != nil {
		errs = append(errs, err)
	}
	if c.CipherSuites != nil && len(c.CipherSuites) == 0 {
		errs = append(errs, cherrors.New("clienthello: CipherSuites is empty").Base(ErrEmptyCipherList).AtWarning())
	}
	if c.CompressionMethods != nil && len(c.CompressionMethods) != 1 {
		errs = append(errs, cherrors.New("clienthello: ", len(c.CompressionMethods), " compression methods, TLS 1.3 sends exactly one").Base(ErrInvalidBounds).AtWarning())
	}
	for _, name := range c.ServerNames {
		if err := ValidateSNI(NormalizeSNI(name)); err != nil {
			errs = append(errs, err)
		}
	}
	for _, ks := range c.KeyShares {
		if err := vecKeyExchange.check(len(ks.Data)); err != nil {
			errs = append(errs, cherrors.New("clienthello: key share for ", ks.Group).Base(err))
		}
	}
	if c.RecordSizeLimit != 0 && c.RecordSizeLimit < 64 {
		errs = append(errs, vectorSpec{"record_size_limit", 2, 64, 1<<16 - 1}.check(int(c.RecordSizeLimit)))
	}
	if c.PSKBinderLengths != nil && len(c.PSKBinderLengths) != len(c.PSKIdentities) {
		errs = append(errs, cherrors.New("clienthello: ", len(c.PSKBinderLengths), " binder lengths for ", len(c.PSKIdentities), " identities").Base(ErrInvalidBounds).AtWarning())
	}
	for _, n := range c.PSKBinderLengths {
		if err := vecBinder.check(n); err != nil {
			errs = append(errs, err)
		}
	}
	return cherrors.Combine(errs...)
}

// Compose builds a ClientHello from cfg, nil meaning DefaultConfig(). The
// bytes are parsed back through Parse, so a composed view and a parsed one
// are indistinguishable except for Overrides. With PSKIdentities set the
// binders are zero-filled placeholders; see ComposeTruncated for the form
// binders are computed over.
func Compose(cfg *Config) (*ClientHello, error) {
	raw, ov, _, err := cfg.marshal()
	if err != nil {
		return nil, err
	}
	ch, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	ch.overrides = ov
	return ch, nil
}

// ComposeTruncated builds the binder-less form of a PSK ClientHello: every
// length, up to the handshake header, counts the binders, but the binders
// vector itself is left off. It returns the view and the size of the binders
// vector Finalize must supply.
func ComposeTruncated(cfg *Config) (*ClientHello, int, error) {
	if cfg == nil || len(cfg.PSKIdentities) == 0 {
		return nil, 0, cherrors.New("clienthello: truncated form needs PSKIdentities").Base(vecIdentities.check(0))
	}
	raw, ov, binders, err := cfg.marshal()
	if err != nil {
		return nil, 0, err
	}
	ch, err := ParseTruncated(raw[:len(raw)-binders])
	if err != nil {
		return nil, 0, err
	}
	ch.overrides = ov
	return ch, binders, nil
}

// helloParts is the resolved content of one ClientHello.
type helloParts struct {
	version     uint16
	random      []byte
	sessionID   []byte
	suites      []uint16
	compression []uint8
	extensions  []TLSExtension
}

// marshal serializes the ClientHello body. It returns the composition
// overrides and the size of the trailing binders vector (0 without PSK).
func (c *Config) marshal() ([]byte, *Overrides, int, error) {
	if c == nil {
		c = DefaultConfig()
	}
	if err := c.Validate(); err != nil {
		return nil, nil, 0, err
	}
	rnd := c.Rand
	if rnd == nil {
		rnd = rand.Reader
	}

	p := helloParts{
		version:     c.LegacyVersion,
		random:      c.Random,
		sessionID:   c.SessionID,
		suites:      orDefault(c.CipherSuites, defaultCipherSuites),
		compression: orDefault(c.CompressionMethods, []uint8{compressionNone}),
	}
	if p.version == 0 {
		p.version = VersionTLS12
	}
	if p.random == nil {
		p.random = make([]byte, randomLen)
		if _, err := io.ReadFull(rnd, p.random); err != nil {
			return nil, nil, 0, cherrors.New("clienthello: reading random").Base(err).AtError()
		}
	}
	if p.sessionID == nil {
		p.sessionID = make([]byte, maxSessionIDLen)
		if _, err := io.ReadFull(rnd, p.sessionID); err != nil {
			return nil, nil, 0, cherrors.New("clienthello: reading session id").Base(err).AtError()
		}
	}

	exts, ov, err := c.buildExtensions(rnd)
	if err != nil {
		return nil, nil, 0, err
	}
	var psk *PreSharedKeyExtension
	binders := 0
	if len(c.PSKIdentities) > 0 {
		psk = &PreSharedKeyExtension{Identities: c.PSKIdentities}
		lengths := c.PSKBinderLengths
		if lengths == nil {
			lengths = make([]int, len(c.PSKIdentities))
			for i := range lengths {
				lengths[i] = defaultBinderLen
			}
		}
		for _, n := range lengths {
			psk.Binders = append(psk.Binders, make([]byte, n))
		}
		binders = bindersLen(lengths)
	}

	p.extensions = withTail(exts, nil, psk)
	raw, err := p.marshal()
	if err != nil {
		return nil, nil, 0, err
	}
	if c.Padding != nil {
		if n, ok := c.Padding(handshakeHeader + len(raw)); ok {
			p.extensions = withTail(exts, &PaddingExtension{PaddingLen: n}, psk)
			if raw, err = p.marshal(); err != nil {
				return nil, nil, 0, err
			}
		}
	}

	if cherrors.DebugLoggingEnabled {
		cherrors.LogDebug(context.Background(), "clienthello: composed ", len(raw), " bytes with ", len(p.extensions), " extensions")
	}
	return raw, ov, binders, nil
}

// withTail appends padding and pre_shared_key, in that order, when present.
func withTail(exts []TLSExtension, padding *PaddingExtension, psk *PreSharedKeyExtension) []TLSExtension {
	out := make([]TLSExtension, 0, len(exts)+2)
	out = append(out, exts...)
	if padding != nil {
		out = append(out, padding)
	}
	if psk != nil {
		out = append(out, psk)
	}
	return out
}

func (p *helloParts) marshal() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint16(p.version)
	b.AddBytes(p.random)
	addVector(&b, vecSessionID, func(b *cryptobyte.Builder) {
		b.AddBytes(p.sessionID)
	})
	addVector(&b, vecCipherSuites, func(b *cryptobyte.Builder) {
		for _, suite := range p.suites {
			b.AddUint16(suite)
		}
	})
	addVector(&b, vecCompression, func(b *cryptobyte.Builder) {
		b.AddBytes(p.compression)
	})
	if len(p.extensions) > 0 {
		addVector(&b, vecExtensions, func(b *cryptobyte.Builder) {
			for _, ext := range p.extensions {
				addExtension(b, ext)
			}
		})
	}
	return b.Bytes()
}

// buildExtensions produces every extension except padding and
// pre_shared_key, in default order and then reordered by ExtensionOrder.
func (c *Config) buildExtensions(rnd io.Reader) ([]TLSExtension, *Overrides, error) {
	ov := &Overrides{ALPNProtocols: c.ALPNProtocols}
	var exts []TLSExtension

	if len(c.ServerNames) > 0 {
		names, err := normalizeServerNames(c.ServerNames)
		if err != nil {
			return nil, nil, err
		}
		ov.ServerName = names[0]
		exts = append(exts, &SNIExtension{ServerNames: names})
	}
	if groups := orDefault(c.SupportedGroups, defaultGroups); len(groups) > 0 {
		exts = append(exts, &SupportedCurvesExtension{Curves: groups})
	}
	if schemes := orDefault(c.SignatureAlgorithms, defaultSignatureSchemes); len(schemes) > 0 {
		exts = append(exts, &SignatureAlgorithmsExtension{SupportedSignatureAlgorithms: schemes})
	}
	if versions := orDefault(c.SupportedVersions, defaultSupportedVersions); len(versions) > 0 {
		exts = append(exts, &SupportedVersionsExtension{Versions: versions})
	}
	if modes := orDefault(c.PSKModes, defaultPSKModes); len(modes) > 0 {
		exts = append(exts, &PSKKeyExchangeModesExtension{Modes: modes})
	}
	shares, err := c.keyShares(rnd)
	if err != nil {
		return nil, nil, err
	}
	if shares != nil {
		ov.KeyShares = shares
		ov.Groups = make([]CurveID, len(shares))
		for i, ks := range shares {
			ov.Groups[i] = ks.Group
		}
		exts = append(exts, &KeyShareExtension{KeyShares: shares})
	}
	if len(c.ALPNProtocols) > 0 {
		exts = append(exts, &ALPNExtension{AlpnProtocols: c.ALPNProtocols})
	}
	if len(c.Cookie) > 0 {
		exts = append(exts, &CookieExtension{Cookie: c.Cookie})
	}
	if c.RecordSizeLimit != 0 {
		exts = append(exts, &RecordSizeLimitExtension{Limit: c.RecordSizeLimit})
	}
	if c.EarlyData {
		exts = append(exts, &EarlyDataExtension{})
	}
	for _, e := range c.Extra {
		switch e.ExtensionType() {
		case extensionPadding, extensionPreSharedKey:
			return nil, nil, cherrors.New("clienthello: ", ExtensionName(e.ExtensionType()), " cannot be an extra extension").Base(ErrInvalidBounds).AtWarning()
		}
		exts = append(exts, e)
	}

	if len(c.ExtensionOrder) > 0 {
		rank := func(e TLSExtension) int {
			if i := slices.Index(c.ExtensionOrder, e.ExtensionType()); i >= 0 {
				return i
			}
			return len(c.ExtensionOrder)
		}
		slices.SortStableFunc(exts, func(a, b TLSExtension) int {
			return cmp.Compare(rank(a), rank(b))
		})
	}
	return exts, ov, nil
}

// keyShares returns the explicit KeyShares or placeholders for
// KeyShareGroups. A nil result omits key_share.
func (c *Config) keyShares(rnd io.Reader) ([]KeyShare, error) {
	if c.KeyShares != nil {
		return c.KeyShares, nil
	}
	groups := orDefault(c.KeyShareGroups, defaultGroups)
	if len(groups) == 0 {
		return nil, nil
	}
	shares := make([]KeyShare, 0, len(groups))
	for _, group := range groups {
		size := expectedKeyShareSize(group)
		if size <= 0 {
			return nil, cherrors.New("clienthello: no key_exchange size known for ", group, ", set KeyShares").Base(ErrInvalidBounds).AtWarning()
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(rnd, data); err != nil {
			return nil, cherrors.New("clienthello: reading key share for ", group).Base(err).AtError()
		}
		switch group {
		case CurveP256, CurveP384, CurveP521, SecP256r1MLKEM768, SecP384r1MLKEM1024:
			data[0] = 4 // uncompressed point
		}
		shares = append(shares, KeyShare{Group: group, Data: data})
	}
	return shares, nil
}
