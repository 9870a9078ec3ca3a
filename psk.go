// Copyright 2025 uTLS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clienthello

import (
	"time"

	"golang.org/x/crypto/cryptobyte"
)

// PskIdentity is one entry of the identities list of a pre_shared_key
// extension. See RFC 8446, Section 4.2.11.
type PskIdentity struct {
	Label               []byte
	ObfuscatedTicketAge uint32
}

// PreSharedKeyExtension implements pre_shared_key (41) in its ClientHello
// form (OfferedPsks). It must be the last extension of the message.
//
// With Binders nil the extension is in its truncated form and serializes
// the identities only. A view of a truncated ClientHello decodes to that
// form: the binders vector is declared by the enclosing lengths but not yet
// present.
type PreSharedKeyExtension struct {
	Identities []PskIdentity
	Binders    [][]byte
}

func (e *PreSharedKeyExtension) ExtensionType() uint16 { return extensionPreSharedKey }

func (e *PreSharedKeyExtension) Len() int {
	if e.Binders == nil {
		return 4 + e.identitiesLen()
	}
	return 4 + e.identitiesLen() + bindersLen(e.binderLengths())
}

func (e *PreSharedKeyExtension) identitiesLen() int {
	l := 2
	for _, id := range e.Identities {
		l += 2 + len(id.Label) + 4
	}
	return l
}

func (e *PreSharedKeyExtension) binderLengths() []int {
	lengths := make([]int, len(e.Binders))
	for i, binder := range e.Binders {
		lengths[i] = len(binder)
	}
	return lengths
}

func (e *PreSharedKeyExtension) Read(b []byte) (int, error) {
	return readExtension(e, b)
}

func (e *PreSharedKeyExtension) buildPayload(b *cryptobyte.Builder) {
	e.addIdentities(b)
	if e.Binders != nil {
		addBinders(b, e.Binders)
	}
}

func (e *PreSharedKeyExtension) addIdentities(b *cryptobyte.Builder) {
	addVector(b, vecIdentities, func(b *cryptobyte.Builder) {
		for _, id := range e.Identities {
			addVector(b, vecIdentity, func(b *cryptobyte.Builder) {
				b.AddBytes(id.Label)
			})
			b.AddUint32(id.ObfuscatedTicketAge)
		}
	})
}

func (e *PreSharedKeyExtension) Write(b []byte) (int, error) {
	extData := cryptobyte.String(b)
	if err := e.readIdentities(&extData); err != nil {
		return 0, err
	}
	var binderList cryptobyte.String
	if !readVector(&extData, vecBinders, &binderList) || !extData.Empty() {
		return 0, malformed("pre_shared_key binders")
	}
	var binders [][]byte
	for !binderList.Empty() {
		var binder cryptobyte.String
		if !readVector(&binderList, vecBinder, &binder) {
			return 0, malformed("pre_shared_key binder entry")
		}
		binders = append(binders, binder)
	}
	if len(binders) != len(e.Identities) {
		return 0, malformed("pre_shared_key: ", len(e.Identities), " identities but ", len(binders), " binders")
	}
	e.Binders = binders
	return len(b), nil
}

// writeTruncated decodes the binder-less form, where the payload ends right
// after the identities list.
func (e *PreSharedKeyExtension) writeTruncated(b []byte) (int, error) {
	extData := cryptobyte.String(b)
	if err := e.readIdentities(&extData); err != nil {
		return 0, err
	}
	if !extData.Empty() {
		return 0, malformed("truncated pre_shared_key: ", len(extData), " bytes after identities")
	}
	e.Binders = nil
	return len(b), nil
}

func (e *PreSharedKeyExtension) readIdentities(s *cryptobyte.String) error {
	var identities cryptobyte.String
	if !readVector(s, vecIdentities, &identities) {
		return malformed("pre_shared_key identities")
	}
	var ids []PskIdentity
	for !identities.Empty() {
		var id PskIdentity
		var label cryptobyte.String
		if !readVector(&identities, vecIdentity, &label) || !identities.ReadUint32(&id.ObfuscatedTicketAge) {
			return malformed("pre_shared_key identity")
		}
		id.Label = label
		ids = append(ids, id)
	}
	e.Identities = ids
	return nil
}

func addBinders(b *cryptobyte.Builder, binders [][]byte) {
	addVector(b, vecBinders, func(b *cryptobyte.Builder) {
		for _, binder := range binders {
			addVector(b, vecBinder, func(b *cryptobyte.Builder) {
				b.AddBytes(binder)
			})
		}
	})
}

// bindersLen returns the encoded size of a binders vector, length prefix
// included, holding binders of the given sizes.
func bindersLen(lengths []int) int {
	l := 2
	for _, n := range lengths {
		l += 1 + n
	}
	return l
}

// EncodeBinders serializes binders as the PskBinderEntry vector that
// completes a truncated ClientHello.
func EncodeBinders(binders [][]byte) ([]byte, error) {
	var b cryptobyte.Builder
	addBinders(&b, binders)
	return b.Bytes()
}

// Finalize completes a truncated ClientHello with externally computed
// binders. The encoded binders must fill exactly the bytes the truncated
// message declared for them.
func Finalize(truncated *ClientHello, binders [][]byte) (*ClientHello, error) {
	if !truncated.Truncated() {
		return nil, malformed("finalize: ClientHello already carries its binders")
	}
	encoded, err := EncodeBinders(binders)
	if err != nil {
		return nil, err
	}
	if len(encoded) != truncated.MissingBytes() {
		return nil, malformed("finalize: binders encode to ", len(encoded), " bytes, message declares ", truncated.MissingBytes())
	}
	return truncated.AddBinders(encoded)
}

// ObfuscatedTicketAge returns the obfuscated_ticket_age for a ticket
// received at received and offered at now: the age in milliseconds plus
// ageAdd, modulo 2^32. See RFC 8446, Section 4.2.11.1.
func ObfuscatedTicketAge(ageAdd uint32, received, now time.Time) uint32 {
	age := now.Sub(received).Milliseconds()
	if age < 0 {
		age = 0
	}
	return uint32(age) + ageAdd
}
