// Copyright 2024 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profiles

import "github.com/refraction-networking/clienthello"

// Firefox145Android is Firefox 145 on Android.
var Firefox145Android = &Profile{
	ID:       "firefox_145_android",
	Browser:  "firefox",
	Version:  145,
	Platform: "android",

	Hello: Hello{
		CipherSuites: []uint16{
			0x1301, 0x1303, 0x1302, 0xc02b, 0xc02f, 0xcca9, 0xcca8, 0xc02c,
			0xc030, 0xc00a, 0xc009, 0xc013, 0xc014, 0x009c, 0x009d, 0x002f,
			0x0035,
		},

		ExtensionOrder: []uint16{
			0x0000, 0x0017, 0xff01, 0x000a, 0x000b, 0x0023, 0x0010, 0x0005,
			0x0022, 0x0033, 0x002b, 0x000d, 0x002d, 0x001c, 0x001b, 0xfe0d,
		},

		SupportedGroups: []clienthello.CurveID{
			clienthello.X25519MLKEM768, clienthello.X25519, clienthello.CurveP256,
			clienthello.CurveP384, clienthello.CurveP521, clienthello.FFDHE2048,
			clienthello.FFDHE3072,
		},

		SignatureAlgorithms: []clienthello.SignatureScheme{
			clienthello.ECDSAWithP256AndSHA256,
			clienthello.ECDSAWithP384AndSHA384,
			clienthello.ECDSAWithP521AndSHA512,
			clienthello.PSSWithSHA256,
			clienthello.PSSWithSHA384,
			clienthello.PSSWithSHA512,
			clienthello.PKCS1WithSHA256,
			clienthello.PKCS1WithSHA384,
			clienthello.PKCS1WithSHA512,
			clienthello.ECDSAWithSHA1,
			clienthello.PKCS1WithSHA1,
		},

		DelegatedCredentials: []clienthello.SignatureScheme{
			clienthello.ECDSAWithP256AndSHA256,
			clienthello.ECDSAWithP384AndSHA384,
			clienthello.ECDSAWithP521AndSHA512,
			clienthello.ECDSAWithSHA1,
		},

		SupportedVersions: []uint16{clienthello.VersionTLS13, clienthello.VersionTLS12},
		KeyShareGroups:    []clienthello.CurveID{clienthello.X25519MLKEM768, clienthello.X25519, clienthello.CurveP256},
		ALPNProtocols:     []string{"h2", "http/1.1"},
		CertCompression:   []uint16{0x0001, 0x0002, 0x0003},
		RecordSizeLimit:   0x4001,
	},
}
