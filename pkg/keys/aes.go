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

// AESKey wraps raw AES symmetric key bytes alongside its authorization
// set. Unlike RSA/ECDSA, Material returns the raw key, not a PKCS#8
// encoding — there is no ASN.1 structure for a bare symmetric key.
type AESKey struct {
	raw  []byte
	auth *authset.Set
}

func (k *AESKey) Algorithm() Algorithm             { return AlgorithmAES }
func (k *AESKey) AuthorizationSet() *authset.Set   { return k.auth }
func (k *AESKey) SupportsPurpose(p Purpose) bool   { return containsPurpose(k.auth, p) }

func (k *AESKey) Material() ([]byte, error) {
	out := make([]byte, len(k.raw))
	copy(out, k.raw)
	return out, nil
}

func validAESKeySize(bits uint32) bool {
	switch bits {
	case 128, 192, 256:
		return true
	default:
		return false
	}
}

// validateAESParams enforces spec §4.4's AES rules: key size in
// {128,192,256}, block mode one of ECB/CBC/CTR/GCM, and GCM/CTR
// callers must select PaddingNone (stream-like modes never pad).
func validateAESParams(params *authset.Set) (keySizeBits uint32, err error) {
	alg, ok := params.GetTagValue(tag.Algorithm)
	if !ok || Algorithm(alg.U32) != AlgorithmAES {
		return 0, ErrUnsupportedAlgorithm
	}

	ksVal, ok := params.GetTagValue(tag.KeySize)
	if !ok || !validAESKeySize(ksVal.U32) {
		return 0, ErrUnsupportedKeySize
	}
	keySizeBits = ksVal.U32

	modes := params.All(tag.BlockMode)
	if len(modes) == 0 {
		return 0, ErrUnsupportedBlockMode
	}
	for _, m := range modes {
		mode := BlockMode(m.U32)
		switch mode {
		case BlockModeECB, BlockModeCBC, BlockModeCTR, BlockModeGCM:
		default:
			return 0, ErrUnsupportedBlockMode
		}
		if mode == BlockModeGCM || mode == BlockModeCTR {
			for _, p := range params.All(tag.Padding) {
				if Padding(p.U32) != PaddingNone {
					return 0, ErrUnsupportedPaddingMode
				}
			}
		}
	}
	for _, p := range params.All(tag.Padding) {
		switch Padding(p.U32) {
		case PaddingNone, PaddingPKCS7:
		default:
			return 0, ErrUnsupportedPaddingMode
		}
	}

	return keySizeBits, nil
}

// GenerateAES generates a random AES key of the requested size.
func GenerateAES(params *authset.Set) (*AESKey, error) {
	keySizeBits, err := validateAESParams(params)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, keySizeBits/8)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}

	auth := params.Clone()
	stampProvenance(auth, OriginGenerated)
	return &AESKey{raw: raw, auth: auth}, nil
}

// ImportAES wraps caller-supplied raw key bytes, verifying their
// length matches the caller-asserted TAG_KEY_SIZE.
func ImportAES(params *authset.Set, rawKey []byte) (*AESKey, error) {
	keySizeBits, err := validateAESParams(params)
	if err != nil {
		return nil, err
	}
	if len(rawKey)*8 != int(keySizeBits) {
		return nil, ErrImportParameterMismatch
	}

	raw := make([]byte, len(rawKey))
	copy(raw, rawKey)

	auth := params.Clone()
	stampProvenance(auth, OriginImported)
	return &AESKey{raw: raw, auth: auth}, nil
}

// RehydrateAES reconstructs an AES key from material and an
// authorization set recovered from an already-sealed blob, without
// the key size check ImportAES performs against caller-asserted
// parameters and without restamping provenance the set already
// carries.
func RehydrateAES(params *authset.Set, rawKey []byte) (*AESKey, error) {
	raw := make([]byte, len(rawKey))
	copy(raw, rawKey)
	return &AESKey{raw: raw, auth: params}, nil
}
