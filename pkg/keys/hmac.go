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

package keys

import (
	"crypto/rand"

	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/tag"
)

// HMACKey wraps raw HMAC key bytes alongside its authorization set.
type HMACKey struct {
	raw  []byte
	auth *authset.Set
}

func (k *HMACKey) Algorithm() Algorithm           { return AlgorithmHMAC }
func (k *HMACKey) AuthorizationSet() *authset.Set { return k.auth }
func (k *HMACKey) SupportsPurpose(p Purpose) bool { return containsPurpose(k.auth, p) }

func (k *HMACKey) Material() ([]byte, error) {
	out := make([]byte, len(k.raw))
	copy(out, k.raw)
	return out, nil
}

func validHMACDigest(d Digest) bool {
	switch d {
	case DigestSHA1, DigestSHA224, DigestSHA256, DigestSHA384, DigestSHA512:
		return true
	default:
		return false
	}
}

// validateHMACParams enforces spec §4.4's HMAC rules: a single
// digest algorithm from the SHA-1/SHA-2 family, and a MIN_MAC_LENGTH
// that does not exceed the digest's own output size.
func validateHMACParams(params *authset.Set) (digest Digest, err error) {
	alg, ok := params.GetTagValue(tag.Algorithm)
	if !ok || Algorithm(alg.U32) != AlgorithmHMAC {
		return 0, ErrUnsupportedAlgorithm
	}

	digests := params.All(tag.Digest)
	if len(digests) != 1 {
		return 0, ErrUnsupportedDigest
	}
	digest = Digest(digests[0].U32)
	if !validHMACDigest(digest) {
		return 0, ErrUnsupportedDigest
	}

	if minVal, ok := params.GetTagValue(tag.MinMACLength); ok {
		if minVal.U32%8 != 0 || int(minVal.U32) > digestBits(digest) {
			return 0, ErrUnsupportedMACLength
		}
	}

	return digest, nil
}

// GenerateHMAC generates a random HMAC key sized to the chosen
// digest's block size equivalent (its output size in bytes, a
// conservative but common default absent an explicit TAG_KEY_SIZE).
func GenerateHMAC(params *authset.Set) (*HMACKey, error) {
	digest, err := validateHMACParams(params)
	if err != nil {
		return nil, err
	}

	keyBytes := digestBits(digest) / 8
	if ksVal, ok := params.GetTagValue(tag.KeySize); ok {
		if ksVal.U32%8 != 0 || ksVal.U32 == 0 {
			return nil, ErrUnsupportedKeySize
		}
		keyBytes = int(ksVal.U32 / 8)
	}

	raw := make([]byte, keyBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}

	auth := params.Clone()
	stampProvenance(auth, OriginGenerated)
	return &HMACKey{raw: raw, auth: auth}, nil
}

// ImportHMAC wraps caller-supplied raw key bytes.
func ImportHMAC(params *authset.Set, rawKey []byte) (*HMACKey, error) {
	if _, err := validateHMACParams(params); err != nil {
		return nil, err
	}
	if len(rawKey) == 0 {
		return nil, ErrInvalidArgument
	}

	raw := make([]byte, len(rawKey))
	copy(raw, rawKey)

	auth := params.Clone()
	stampProvenance(auth, OriginImported)
	return &HMACKey{raw: raw, auth: auth}, nil
}

// RehydrateHMAC reconstructs an HMAC key from material and an
// authorization set recovered from an already-sealed blob, without
// the digest/MAC length checks ImportHMAC performs against
// caller-asserted parameters and without restamping provenance the
// set already carries.
func RehydrateHMAC(params *authset.Set, rawKey []byte) (*HMACKey, error) {
	raw := make([]byte, len(rawKey))
	copy(raw, rawKey)
	return &HMACKey{raw: raw, auth: params}, nil
}
