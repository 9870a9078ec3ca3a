// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON writes the view in the JSON form Config.UnmarshalJSON reads.
// Every extension the message lacks is written as an empty list, so the
// output composes back to the same message: same fields, same extension
// order, padding to the same length. Binders are not carried; a composed
// copy has zero-filled binders of the same sizes.
func (ch *ClientHello) MarshalJSON() ([]byte, error) {
	exts, err := ch.Extensions()
	if err != nil {
		return nil, err
	}
	order, err := ch.ExtensionOrder()
	if err != nil {
		return nil, err
	}

	j := configJSON{
		LegacyVersion:       VersionName(ch.Version()),
		Random:              ch.Random(),
		SessionID:           ch.SessionID(),
		CompressionMethods:  ch.CompressionMethods(),
		SupportedVersions:   []string{},
		PSKModes:            []string{},
		SupportedGroups:     []string{},
		SignatureAlgorithms: []string{},
		KeyShareGroups:      []string{},
	}
	for _, suite := range ch.CipherSuites() {
		j.CipherSuites = append(j.CipherSuites, CipherSuiteName(suite))
	}

	for _, id := range order {
		switch e := exts[id].(type) {
		case *SNIExtension:
			if len(e.ServerNames) == 0 {
				j.Extra = append(j.Extra, genericExtJSON{Name: nameOr(extensionNames, id), Data: []byte{}})
			} else {
				j.ServerNames = e.ServerNames
			}
		case *SupportedVersionsExtension:
			j.SupportedVersions = mapNames(e.Versions, VersionName)
		case *PSKKeyExchangeModesExtension:
			j.PSKModes = mapNames(e.Modes, func(m uint8) string { return nameOr(pskModeNames, m) })
		case *SupportedCurvesExtension:
			j.SupportedGroups = mapNames(e.Curves, curveName)
		case *SignatureAlgorithmsExtension:
			j.SignatureAlgorithms = mapNames(e.SupportedSignatureAlgorithms, func(s SignatureScheme) string {
				return nameOr(signatureSchemeNames, uint16(s))
			})
		case *KeyShareExtension:
			j.KeyShares = make([]keyShareJSON, 0, len(e.KeyShares))
			for _, ks := range e.KeyShares {
				j.KeyShares = append(j.KeyShares, keyShareJSON{Group: curveName(ks.Group), KeyExchange: ks.Data})
			}
		case *ALPNExtension:
			j.ALPNProtocols = e.AlpnProtocols
		case *CookieExtension:
			j.Cookie = e.Cookie
		case *RecordSizeLimitExtension:
			j.RecordSizeLimit = e.Limit
		case *EarlyDataExtension:
			j.EarlyData = true
		case *PaddingExtension:
			// The target is the complete message, pending binders included.
			j.Padding = json.RawMessage(fmt.Sprint(handshakeHeader + ch.Len() + ch.MissingBytes()))
			continue
		case *PreSharedKeyExtension:
			j.PSKIdentities, j.PSKBinderLengths = ch.pskJSON(e)
			continue
		case *GenericExtension:
			j.Extra = append(j.Extra, genericExtJSON{Name: nameOr(extensionNames, id), Data: e.Data})
		}
		j.ExtensionOrder = append(j.ExtensionOrder, nameOr(extensionNames, id))
	}
	return json.Marshal(j)
}

func (ch *ClientHello) pskJSON(e *PreSharedKeyExtension) ([]pskIdentityJSON, []int) {
	ids := make([]pskIdentityJSON, len(e.Identities))
	for i, id := range e.Identities {
		ids[i] = pskIdentityJSON{Identity: id.Label, ObfuscatedTicketAge: id.ObfuscatedTicketAge}
	}
	switch {
	case e.Binders != nil:
		lengths := make([]int, len(e.Binders))
		for i, b := range e.Binders {
			lengths[i] = len(b)
		}
		return ids, lengths
	case len(e.Identities) == 1:
		// Binders vector of a truncated view: u16 length, u8 length, binder.
		return ids, []int{ch.missing - 3}
	}
	return ids, nil
}

// ConfigFrom returns a Config that composes to the same message as ch,
// binders aside. See ClientHello.MarshalJSON.
func ConfigFrom(ch *ClientHello) (*Config, error) {
	data, err := ch.MarshalJSON()
	if err != nil {
		return nil, err
	}
	cfg := new(Config)
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// nameOr returns the IANA name of v, or v as 0x-prefixed hex, which
// Config.UnmarshalJSON reads back either way.
func nameOr[V uint8 | uint16](names map[V]string, v V) string {
	if name, ok := names[v]; ok {
		return name
	}
	return fmt.Sprintf("0x%04x", uint16(v))
}

func curveName(c CurveID) string { return nameOr(groupNames, uint16(c)) }

func mapNames[T any](in []T, name func(T) string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, name(v))
	}
	return out
}
