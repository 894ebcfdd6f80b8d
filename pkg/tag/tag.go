// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keychain.
//
// go-keychain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package tag implements the authorization tag/value model: a 32-bit
// Tag whose top bits encode its ValueType, and typed Values that
// serialize to a fixed, self-describing wire layout.
package tag

import (
	"encoding/binary"

	"github.com/basilisk-security/keystore/pkg/status"
)

// ValueType identifies the payload shape carried by a Tag.
type ValueType uint32

const (
	Invalid ValueType = iota
	Enum
	EnumRep
	UInt
	UIntRep
	ULong
	Date
	Bool
	Bignum
	Bytes
)

func (vt ValueType) String() string {
	switch vt {
	case Enum:
		return "ENUM"
	case EnumRep:
		return "ENUM_REP"
	case UInt:
		return "UINT"
	case UIntRep:
		return "UINT_REP"
	case ULong:
		return "ULONG"
	case Date:
		return "DATE"
	case Bool:
		return "BOOL"
	case Bignum:
		return "BIGNUM"
	case Bytes:
		return "BYTES"
	default:
		return "INVALID"
	}
}

// Repeatable reports whether entries carrying this tag may legally
// appear more than once in an authorization set.
func (vt ValueType) Repeatable() bool {
	switch vt {
	case EnumRep, UIntRep, Bytes:
		// BYTES is not formally "REP" in spec §3.1's enumeration, but
		// TAG_ASSOCIATED_DATA (a BYTES tag) is pushed multiple times
		// per spec §4.6's AES/GCM rules, so it must tolerate repeats.
		return true
	default:
		return false
	}
}

// Tag packs a ValueType into the top 4 bits and a 28-bit identifier
// into the low bits, following the same tag-encoding scheme as the
// reference Keymaster implementation's KM_TAG_* constants.
type Tag uint32

const (
	idMask   = 0x0FFFFFFF
	typeShift = 28
)

// New constructs a Tag from a ValueType and a numeric identifier.
// The identifier is masked to 28 bits.
func New(vt ValueType, id uint32) Tag {
	return Tag(uint32(vt)<<typeShift | (id & idMask))
}

// Type returns the ValueType encoded in the tag's top bits.
func (t Tag) Type() ValueType { return ValueType(uint32(t) >> typeShift) }

// ID returns the tag's 28-bit numeric identifier.
func (t Tag) ID() uint32 { return uint32(t) & idMask }

// TypeOf is a pure function returning the ValueType of a Tag, matching
// spec §4.1's TypeOf(tag) requirement.
func TypeOf(t Tag) ValueType { return t.Type() }

func (t Tag) Uint32() uint32 { return uint32(t) }

func FromUint32(v uint32) Tag { return Tag(v) }

// Bytes serializes the tag alone as a fixed 4-byte big-endian value.
func (t Tag) Bytes() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(t))
	return b
}

// ParseTag reads the leading 4-byte tag from b, returning
// status.ErrInvalidInputLength if b is too short.
func ParseTag(b []byte) (Tag, error) {
	if len(b) < 4 {
		return 0, status.ErrInvalidInputLength
	}
	return Tag(binary.BigEndian.Uint32(b)), nil
}

// Well-known tags used throughout the engine. Numeric IDs are stable
// across the package; new tags must never reuse an existing ID.
var (
	Algorithm          = New(Enum, 1)
	KeySize            = New(UInt, 2)
	BlockMode          = New(EnumRep, 3)
	Digest             = New(EnumRep, 4)
	Padding            = New(EnumRep, 5)
	CallerNonce        = New(Bool, 6)
	MinMACLength       = New(UInt, 7)
	ECCurve            = New(Enum, 8)
	RSAPublicExponent  = New(ULong, 9)
	Purpose            = New(EnumRep, 10)
	Origin             = New(Enum, 11)
	CreationDatetime   = New(Date, 12)
	Nonce              = New(Bytes, 13)
	MACLength          = New(UInt, 14)
	AEADTag            = New(Bytes, 15)
	AssociatedData     = New(Bytes, 16)
	Exportable         = New(Bool, 17)
)
