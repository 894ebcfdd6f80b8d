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

// Package authset implements the ordered Authorization Set: an
// insertion-ordered sequence of typed Tag/Value entries with a stable
// binary wire format, used both as the parameter list for key
// generation/operation requests and as the two partitions (hardware-
// and software-enforced) sealed inside a Key Blob.
package authset

import (
	"encoding/binary"

	"github.com/basilisk-security/keystore/pkg/tag"
)

// Entry is one Tag/Value pair as stored in a Set, in insertion order.
type Entry struct {
	Tag   tag.Tag
	Value tag.Value
}

// Set is an insertion-ordered, possibly-repeating collection of typed
// tag/value entries. The zero value is an empty, usable set.
type Set struct {
	entries []Entry
}

// New returns an empty Set.
func New() *Set { return &Set{} }

// Len reports the number of entries currently held.
func (s *Set) Len() int { return len(s.entries) }

// Entries returns the entries in insertion order. The returned slice
// must not be mutated by the caller.
func (s *Set) Entries() []Entry { return s.entries }

// Push appends one Tag/Value entry. Non-repeatable tags may legally
// appear more than once here — Push performs no dedup or validation;
// callers that must reject duplicate non-repeatable tags do so before
// calling Push (see keys package's parameter validation).
func (s *Set) Push(t tag.Tag, v tag.Value) {
	s.entries = append(s.entries, Entry{Tag: t, Value: v})
}

// Contains reports whether t appears at least once in the set.
func (s *Set) Contains(t tag.Tag) bool {
	for _, e := range s.entries {
		if e.Tag == t {
			return true
		}
	}
	return false
}

// ContainsValue reports whether the exact Tag/Value pair appears in
// the set, using Value.Equal for type-aware comparison.
func (s *Set) ContainsValue(t tag.Tag, v tag.Value) bool {
	for _, e := range s.entries {
		if e.Tag == t && e.Value.Equal(v) {
			return true
		}
	}
	return false
}

// GetTagValue returns the first value stored under t, in insertion
// order, and reports whether one was found. Callers needing every
// occurrence of a repeatable tag should use All instead.
func (s *Set) GetTagValue(t tag.Tag) (tag.Value, bool) {
	for _, e := range s.entries {
		if e.Tag == t {
			return e.Value, true
		}
	}
	return tag.Value{}, false
}

// All returns every value stored under t, in insertion order.
func (s *Set) All(t tag.Tag) []tag.Value {
	var out []tag.Value
	for _, e := range s.entries {
		if e.Tag == t {
			out = append(out, e.Value)
		}
	}
	return out
}

// UnionWith appends every entry of other to s, in other's insertion
// order, after every existing entry of s. It does not deduplicate:
// the result may hold repeated entries for non-repeatable tags if the
// two inputs already overlapped, matching the reference model's
// "concatenate, don't merge" union semantics.
func (s *Set) UnionWith(other *Set) {
	if other == nil {
		return
	}
	s.entries = append(s.entries, other.entries...)
}

// Clone returns a copy of s whose entry list is independent of s;
// BIGNUM/BYTES payload slices are shared with s, not copied.
func (s *Set) Clone() *Set {
	cp := &Set{entries: make([]Entry, len(s.entries))}
	copy(cp.entries, s.entries)
	return cp
}

// Serialize encodes the set to its stable wire format:
//
//	u32 entry_count
//	entry_count * { u32 tag, fixed-width payload }
//	u32 blob_bytes_length
//	blob_bytes
//
// Fixed-width payloads are 4 bytes for ENUM/ENUM_REP/UINT/UINT_REP,
// 8 bytes for ULONG/DATE, 0 bytes for BOOL, and 8 bytes (4-byte
// length + 4-byte offset into blob_bytes) for BIGNUM/BYTES. This
// layout keeps the entry table itself constant-stride per entry type
// while variable-length payloads accumulate once in a trailing blob,
// so Serialize(Deserialize(b)) reproduces b exactly.
func (s *Set) Serialize() []byte {
	var blob []byte
	table := make([]byte, 0, len(s.entries)*12)

	for _, e := range s.entries {
		var tagBuf [4]byte
		binary.BigEndian.PutUint32(tagBuf[:], e.Tag.Uint32())
		table = append(table, tagBuf[:]...)

		switch e.Value.Type.FixedPayloadSize() {
		case 4:
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], e.Value.U32)
			table = append(table, b[:]...)
		case 8:
			if e.Value.Type == tag.Bignum || e.Value.Type == tag.Bytes {
				var lenOff [8]byte
				binary.BigEndian.PutUint32(lenOff[0:4], uint32(len(e.Value.Bytes)))
				binary.BigEndian.PutUint32(lenOff[4:8], uint32(len(blob)))
				table = append(table, lenOff[:]...)
				blob = append(blob, e.Value.Bytes...)
			} else {
				var b [8]byte
				u64 := e.Value.U64
				if e.Value.Type == tag.Date {
					u64 = uint64(e.Value.Ms)
				}
				binary.BigEndian.PutUint64(b[:], u64)
				table = append(table, b[:]...)
			}
		default:
			// BOOL: presence-only, no payload bytes.
		}
	}

	out := make([]byte, 0, 4+len(table)+4+len(blob))
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(s.entries)))
	out = append(out, countBuf[:]...)
	out = append(out, table...)
	var blobLenBuf [4]byte
	binary.BigEndian.PutUint32(blobLenBuf[:], uint32(len(blob)))
	out = append(out, blobLenBuf[:]...)
	out = append(out, blob...)
	return out
}

// Deserialize decodes a Set from its Serialize wire format, returning
// ErrTruncated if b is too short at any point and ErrMalformed if a
// BIGNUM/BYTES offset/length pair references bytes outside the blob.
func Deserialize(b []byte) (*Set, error) {
	if len(b) < 4 {
		return nil, ErrTruncated
	}
	count := binary.BigEndian.Uint32(b[0:4])
	pos := 4

	type pending struct {
		t      tag.Tag
		vt     tag.ValueType
		u32    uint32
		u64    uint64
		length uint32
		offset uint32
	}
	rows := make([]pending, 0, count)

	for i := uint32(0); i < count; i++ {
		if pos+4 > len(b) {
			return nil, ErrTruncated
		}
		t := tag.FromUint32(binary.BigEndian.Uint32(b[pos : pos+4]))
		pos += 4
		vt := t.Type()

		switch vt.FixedPayloadSize() {
		case 4:
			if pos+4 > len(b) {
				return nil, ErrTruncated
			}
			rows = append(rows, pending{t: t, vt: vt, u32: binary.BigEndian.Uint32(b[pos : pos+4])})
			pos += 4
		case 8:
			if pos+8 > len(b) {
				return nil, ErrTruncated
			}
			if vt == tag.Bignum || vt == tag.Bytes {
				length := binary.BigEndian.Uint32(b[pos : pos+4])
				offset := binary.BigEndian.Uint32(b[pos+4 : pos+8])
				rows = append(rows, pending{t: t, vt: vt, length: length, offset: offset})
			} else {
				rows = append(rows, pending{t: t, vt: vt, u64: binary.BigEndian.Uint64(b[pos : pos+8])})
			}
			pos += 8
		default:
			rows = append(rows, pending{t: t, vt: vt})
		}
	}

	if pos+4 > len(b) {
		return nil, ErrTruncated
	}
	blobLen := binary.BigEndian.Uint32(b[pos : pos+4])
	pos += 4
	if pos+int(blobLen) > len(b) {
		return nil, ErrTruncated
	}
	blob := b[pos : pos+int(blobLen)]
	pos += int(blobLen)

	s := New()
	for _, r := range rows {
		switch r.vt.FixedPayloadSize() {
		case 4:
			s.Push(r.t, tag.Value{Type: r.vt, U32: r.u32})
		case 8:
			if r.vt == tag.Bignum || r.vt == tag.Bytes {
				end := uint64(r.offset) + uint64(r.length)
				if end > uint64(len(blob)) {
					return nil, ErrMalformed
				}
				payload := append([]byte(nil), blob[r.offset:end]...)
				s.Push(r.t, tag.Value{Type: r.vt, Bytes: payload})
			} else if r.vt == tag.Date {
				s.Push(r.t, tag.Value{Type: r.vt, Ms: int64(r.u64)})
			} else {
				s.Push(r.t, tag.Value{Type: r.vt, U64: r.u64})
			}
		default:
			s.Push(r.t, tag.Value{Type: r.vt})
		}
	}
	return s, nil
}
