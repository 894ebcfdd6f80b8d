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

// Package blob implements the Key Blob codec: an authenticated
// container sealing raw key material under a process-global master
// key, alongside the hardware- and software-enforced authorization
// sets that describe the key's permitted use.
//
// A native blob has the wire layout:
//
//	format byte ('N')
//	version byte
//	u32 hw_enforced_length, hw_enforced bytes (authset.Serialize output)
//	u32 sw_enforced_length, sw_enforced bytes (authset.Serialize output)
//	12-byte GCM nonce
//	ciphertext || 16-byte GCM tag
//
// AEAD associated data is hw_enforced || sw_enforced, so tampering
// with either auth set is detected the same way tampering with the
// ciphertext is: Unseal fails closed with ErrInvalidKeyBlob.
package blob

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/basilisk-security/keystore/pkg/authset"
)

const (
	formatNative = 'N'
	version1     = 1
	nonceSize    = 12
)

// Unsealed is the result of a successful Unseal: both auth sets and
// the recovered raw key material. Callers must not retain RawMaterial
// beyond the operation that requested it.
type Unsealed struct {
	HWEnforced  *authset.Set
	SWEnforced  *authset.Set
	RawMaterial []byte
}

// Seal produces a native key blob binding rawKeyMaterial to hw and sw
// under masterKey, an AES-256 key. AAD is the concatenation of both
// auth sets' serialized bytes, so either being altered post-seal
// invalidates the blob.
func Seal(masterKey []byte, hw, sw *authset.Set, rawKeyMaterial []byte) ([]byte, error) {
	gcm, err := newGCM(masterKey)
	if err != nil {
		return nil, err
	}

	hwBytes := hw.Serialize()
	swBytes := sw.Serialize()

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	aad := append(append([]byte(nil), hwBytes...), swBytes...)
	ciphertext := gcm.Seal(nil, nonce, rawKeyMaterial, aad)

	out := make([]byte, 0, 2+4+len(hwBytes)+4+len(swBytes)+nonceSize+len(ciphertext))
	out = append(out, formatNative, version1)
	out = appendLenPrefixed(out, hwBytes)
	out = appendLenPrefixed(out, swBytes)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// Unseal parses and authenticates a native key blob, returning
// ErrInvalidKeyBlob on any parse or authentication failure so callers
// cannot distinguish "corrupted" from "tampered" — both fail closed.
// Callers must dispatch legacy blobs (see IsLegacy) before calling
// Unseal; a legacy sentinel byte here is treated as an unknown format.
func Unseal(masterKey []byte, b []byte) (*Unsealed, error) {
	gcm, err := newGCM(masterKey)
	if err != nil {
		return nil, err
	}

	if len(b) < 2 || b[0] != formatNative || b[1] != version1 {
		return nil, ErrInvalidKeyBlob
	}
	pos := 2

	hwBytes, pos, err := readLenPrefixed(b, pos)
	if err != nil {
		return nil, err
	}
	swBytes, pos, err := readLenPrefixed(b, pos)
	if err != nil {
		return nil, err
	}

	if pos+nonceSize > len(b) {
		return nil, ErrInvalidKeyBlob
	}
	nonce := b[pos : pos+nonceSize]
	pos += nonceSize
	ciphertext := b[pos:]

	aad := append(append([]byte(nil), hwBytes...), swBytes...)
	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrInvalidKeyBlob
	}

	hw, err := authset.Deserialize(hwBytes)
	if err != nil {
		return nil, ErrInvalidKeyBlob
	}
	sw, err := authset.Deserialize(swBytes)
	if err != nil {
		return nil, ErrInvalidKeyBlob
	}

	return &Unsealed{HWEnforced: hw, SWEnforced: sw, RawMaterial: plaintext}, nil
}

func newGCM(masterKey []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func appendLenPrefixed(out, data []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	out = append(out, lenBuf[:]...)
	return append(out, data...)
}

func readLenPrefixed(b []byte, pos int) ([]byte, int, error) {
	if pos+4 > len(b) {
		return nil, 0, ErrInvalidKeyBlob
	}
	n := binary.BigEndian.Uint32(b[pos : pos+4])
	pos += 4
	if pos+int(n) > len(b) {
		return nil, 0, ErrInvalidKeyBlob
	}
	return b[pos : pos+int(n)], pos + int(n), nil
}
