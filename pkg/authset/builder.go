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

package authset

import (
	"time"

	"github.com/basilisk-security/keystore/pkg/tag"
)

// Builder accumulates parameters fluently before handing a finished
// Set to key generation or an operation Begin call. It performs no
// validation of its own — the keys and operation packages validate
// the finished Set against their per-algorithm parameter matrices.
type Builder struct {
	set *Set
}

func NewBuilder() *Builder { return &Builder{set: New()} }

func (b *Builder) Algorithm(alg uint32) *Builder {
	b.set.Push(tag.Algorithm, tag.EnumValue(alg))
	return b
}

func (b *Builder) KeySize(bits uint32) *Builder {
	b.set.Push(tag.KeySize, tag.UintValue(bits))
	return b
}

func (b *Builder) Purpose(p uint32) *Builder {
	b.set.Push(tag.Purpose, tag.EnumRepValue(p))
	return b
}

func (b *Builder) Digest(d uint32) *Builder {
	b.set.Push(tag.Digest, tag.EnumRepValue(d))
	return b
}

func (b *Builder) Padding(p uint32) *Builder {
	b.set.Push(tag.Padding, tag.EnumRepValue(p))
	return b
}

func (b *Builder) BlockMode(m uint32) *Builder {
	b.set.Push(tag.BlockMode, tag.EnumRepValue(m))
	return b
}

func (b *Builder) ECCurve(c uint32) *Builder {
	b.set.Push(tag.ECCurve, tag.EnumValue(c))
	return b
}

func (b *Builder) RSAPublicExponent(e uint64) *Builder {
	b.set.Push(tag.RSAPublicExponent, tag.ULongValue(e))
	return b
}

func (b *Builder) MinMACLength(bits uint32) *Builder {
	b.set.Push(tag.MinMACLength, tag.UintValue(bits))
	return b
}

func (b *Builder) MACLength(bits uint32) *Builder {
	b.set.Push(tag.MACLength, tag.UintValue(bits))
	return b
}

func (b *Builder) CallerNonce() *Builder {
	b.set.Push(tag.CallerNonce, tag.BoolValue())
	return b
}

func (b *Builder) Exportable() *Builder {
	b.set.Push(tag.Exportable, tag.BoolValue())
	return b
}

func (b *Builder) CreatedAt(t time.Time) *Builder {
	b.set.Push(tag.CreationDatetime, tag.DateValue(t))
	return b
}

func (b *Builder) Nonce(n []byte) *Builder {
	b.set.Push(tag.Nonce, tag.BytesValue(n))
	return b
}

func (b *Builder) AssociatedData(ad []byte) *Builder {
	b.set.Push(tag.AssociatedData, tag.BytesValue(ad))
	return b
}

// Build returns the accumulated Set. The Builder remains usable
// afterward; further calls keep appending to the same underlying Set.
func (b *Builder) Build() *Set { return b.set }
