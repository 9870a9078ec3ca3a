// Copyright 2024 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profiles

import "github.com/refraction-networking/clienthello"

// Safari18Ios is Safari 18 on iOS.
var Safari18Ios = &Profile{
	ID:       "safari_18_ios",
	Browser:  "safari",
	Version:  18,
	Platform: "ios",

	Hello: Hello{
		CipherSuites: []uint16{
			0x1301, 0x1302, 0x1303, 0xc02c, 0xc02b, 0xcca9, 0xc030, 0xc02f,
			0xcca8, 0xc00a, 0xc009, 0xc014, 0xc013, 0x009d, 0x009c, 0x0035,
			0x002f, 0xc008, 0xc012, 0x000a,
		},

		ExtensionOrder: []uint16{
			0x0000, 0x0017, 0xff01, 0x000a, 0x000b, 0x0010, 0x0005, 0x000d,
			0x0012, 0x0033, 0x002d, 0x002b, 0x001b, 0x0015,
		},

		SupportedGroups: []clienthello.CurveID{
			clienthello.X25519, clienthello.CurveP256, clienthello.CurveP384,
			clienthello.CurveP521,
		},

		SignatureAlgorithms: []clienthello.SignatureScheme{
			clienthello.ECDSAWithP256AndSHA256,
			clienthello.PSSWithSHA256,
			clienthello.PKCS1WithSHA256,
			clienthello.ECDSAWithP384AndSHA384,
			clienthello.PSSWithSHA384,
			clienthello.PSSWithSHA384,
			clienthello.PKCS1WithSHA384,
			clienthello.PSSWithSHA512,
			clienthello.PKCS1WithSHA512,
			clienthello.PKCS1WithSHA1,
		},

		SupportedVersions: []uint16{clienthello.VersionTLS13, clienthello.VersionTLS12, clienthello.VersionTLS11, clienthello.VersionTLS10},
		KeyShareGroups:    []clienthello.CurveID{clienthello.X25519},
		ALPNProtocols:     []string{"h2", "http/1.1"},
		CertCompression:   []uint16{0x0001},
		GREASE:            true,
	},
}
