// Copyright 2024 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"time"

	cherrors "github.com/refraction-networking/clienthello/errors"
)

// TicketAgeJitter perturbs the ticket age behind obfuscated_ticket_age by
// up to Max either way, the size of ordinary client/server clock drift, so
// successive resumptions with one ticket do not advance in lockstep with
// the wall clock.
type TicketAgeJitter struct {
	// Max bounds the jitter, which is uniform in [-Max, +Max]. Zero or
	// less disables it. Browsers drift by 50 to 500ms.
	Max time.Duration

	// Rand is the jitter source; crypto/rand.Reader when nil.
	Rand io.Reader
}

// ObfuscatedTicketAge is ObfuscatedTicketAge with the age jittered. An age
// jittered below zero is sent as zero.
func (j TicketAgeJitter) ObfuscatedTicketAge(ageAdd uint32, received, now time.Time) (uint32, error) {
	age := now.Sub(received).Milliseconds()
	if maxMs := j.Max.Milliseconds(); maxMs > 0 {
		rnd := j.Rand
		if rnd == nil {
			rnd = rand.Reader
		}
		var buf [4]byte
		if _, err := io.ReadFull(rnd, buf[:]); err != nil {
			return 0, cherrors.New("clienthello: reading ticket age jitter").Base(err).AtError()
		}
		age += int64(binary.BigEndian.Uint32(buf[:])%uint32(2*maxMs+1)) - maxMs
	}
	if age < 0 {
		age = 0
	}
	return uint32(age) + ageAdd, nil
}
