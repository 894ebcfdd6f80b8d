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

package tag

import (
	"bytes"
	"time"
)

// Value holds one typed payload. Only the field matching Type is
// meaningful; the rest are zero. BIGNUM and BYTES payloads are held
// directly here in memory — the offset/length wire encoding described
// in spec §4.1 is a serialization detail owned by the authset package,
// not part of Value's in-memory representation.
type Value struct {
	Type  ValueType
	U32   uint32
	U64   uint64
	Ms    int64 // DATE, milliseconds since Unix epoch
	Bytes []byte
}

func EnumValue(v uint32) Value    { return Value{Type: Enum, U32: v} }
func EnumRepValue(v uint32) Value { return Value{Type: EnumRep, U32: v} }
func UintValue(v uint32) Value    { return Value{Type: UInt, U32: v} }
func UintRepValue(v uint32) Value { return Value{Type: UIntRep, U32: v} }
func ULongValue(v uint64) Value   { return Value{Type: ULong, U64: v} }

// DateValue stores t truncated to millisecond resolution, per spec
// §3.1's "DATE (ms since epoch)".
func DateValue(t time.Time) Value {
	return Value{Type: Date, Ms: t.UnixMilli()}
}

// BoolValue represents a presence-only tag: its mere existence in an
// authorization set means true. There is no "false" BOOL entry.
func BoolValue() Value { return Value{Type: Bool} }

func BignumValue(b []byte) Value {
	cp := append([]byte(nil), b...)
	return Value{Type: Bignum, Bytes: cp}
}

func BytesValue(b []byte) Value {
	cp := append([]byte(nil), b...)
	return Value{Type: Bytes, Bytes: cp}
}

// Time reinterprets a DATE value's millisecond field as a time.Time.
func (v Value) Time() time.Time { return time.UnixMilli(v.Ms) }

// Equal performs type-aware comparison, per spec §3.2's "equality is
// multiset equality over typed values".
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case Enum, EnumRep, UInt, UIntRep:
		return v.U32 == other.U32
	case ULong:
		return v.U64 == other.U64
	case Date:
		return v.Ms == other.Ms
	case Bool:
		return true // presence-only; both sides exist by construction
	case Bignum, Bytes:
		return bytes.Equal(v.Bytes, other.Bytes)
	default:
		return false
	}
}

// FixedPayloadSize returns the size in bytes of the value's serialized
// payload for types with a size independent of runtime content
// (everything except BIGNUM/BYTES, whose payload is a fixed 8-byte
// length+offset pair regardless of the referenced content's length).
func (vt ValueType) FixedPayloadSize() int {
	switch vt {
	case Enum, EnumRep, UInt, UIntRep:
		return 4
	case ULong, Date:
		return 8
	case Bool:
		return 0
	case Bignum, Bytes:
		return 8 // 4-byte length + 4-byte offset
	default:
		return 0
	}
}
