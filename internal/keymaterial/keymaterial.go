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

// Package keymaterial provides secure in-memory handling of raw key
// material: symmetric key bytes, RSA/EC private key components, and
// HMAC keys held outside of a crypto.PrivateKey value.
//
// Material is copied on the way in and out, and can be securely zeroed
// once no longer needed.
package keymaterial

import (
	"crypto/subtle"
	"errors"
)

var (
	// ErrEmpty is returned when zero-length material is provided.
	ErrEmpty = errors.New("keymaterial: material cannot be empty")

	// ErrCleared is returned when material has already been zeroed.
	ErrCleared = errors.New("keymaterial: material has been cleared")
)

// Secret holds raw key bytes in memory, with support for constant-time
// zeroing when the material is no longer needed.
type Secret struct {
	b []byte
}

// New copies material into a new Secret. Returns ErrEmpty for a
// zero-length input, since an empty key is never valid key material.
func New(material []byte) (*Secret, error) {
	if len(material) == 0 {
		return nil, ErrEmpty
	}
	b := make([]byte, len(material))
	copy(b, material)
	return &Secret{b: b}, nil
}

// Bytes returns a copy of the held material, or nil and ErrCleared if
// Clear has already been called.
func (s *Secret) Bytes() ([]byte, error) {
	if s.b == nil {
		return nil, ErrCleared
	}
	out := make([]byte, len(s.b))
	copy(out, s.b)
	return out, nil
}

// Len returns the length of the held material, or 0 once cleared.
func (s *Secret) Len() int { return len(s.b) }

// Clear overwrites the held material with zeros and releases it. It is
// safe to call more than once.
func (s *Secret) Clear() {
	if s.b == nil {
		return
	}
	subtle.ConstantTimeCopy(1, s.b, make([]byte, len(s.b)))
	s.b = nil
}

// Equal compares two secrets in constant time. Returns ErrCleared if
// either side has already been zeroed.
func Equal(a, b *Secret) (bool, error) {
	aBytes, err := a.Bytes()
	if err != nil {
		return false, err
	}
	defer subtle.ConstantTimeCopy(1, aBytes, make([]byte, len(aBytes)))

	bBytes, err := b.Bytes()
	if err != nil {
		return false, err
	}
	defer subtle.ConstantTimeCopy(1, bBytes, make([]byte, len(bBytes)))

	if len(aBytes) != len(bBytes) {
		return false, nil
	}
	return subtle.ConstantTimeCompare(aBytes, bBytes) == 1, nil
}
