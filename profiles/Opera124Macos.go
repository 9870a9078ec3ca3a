// Copyright 2024 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profiles

import "github.com/refraction-networking/clienthello"

// Opera124Macos is Opera 124 on macOS.
var Opera124Macos = &Profile{
	ID:       "opera_124_macos",
	Browser:  "opera",
	Version:  124,
	Platform: "macos",

	Hello: Hello{
		CipherSuites: []uint16{
			0x1301, 0x1302, 0x1303, 0xc02b, 0xc02f, 0xc02c, 0xc030, 0xcca9,
			0xcca8, 0xc013, 0xc014, 0x009c, 0x009d, 0x002f, 0x0035,
		},

		ExtensionOrder: []uint16{
			0x000b, 0xfe0d, 0x001b, 0x0000, 0x0017, 0x0010, 0x000d, 0x0033,
			0x44cd, 0x0012, 0x000a, 0x0023, 0x0005, 0x002b, 0x002d, 0xff01,
		},

		SupportedGroups: []clienthello.CurveID{
			clienthello.X25519MLKEM768, clienthello.X25519, clienthello.CurveP256,
			clienthello.CurveP384,
		},

		SignatureAlgorithms: []clienthello.SignatureScheme{
			clienthello.ECDSAWithP256AndSHA256,
			clienthello.PSSWithSHA256,
			clienthello.PKCS1WithSHA256,
			clienthello.ECDSAWithP384AndSHA384,
			clienthello.PSSWithSHA384,
			clienthello.PKCS1WithSHA384,
			clienthello.PSSWithSHA512,
			clienthello.PKCS1WithSHA512,
		},

		SupportedVersions: []uint16{clienthello.VersionTLS13, clienthello.VersionTLS12},
		KeyShareGroups:    []clienthello.CurveID{clienthello.X25519MLKEM768, clienthello.X25519},
		ALPNProtocols:     []string{"h2", "http/1.1"},
		ALPSProtocols:     []string{"h2"},
		CertCompression:   []uint16{0x0002},
		GREASE:            true,
		ShuffleExtensions: true,
	},
}
