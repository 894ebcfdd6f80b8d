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

// Package keys implements the polymorphic Key objects (spec §3.5,
// §4.4): RSA, ECDSA, AES, and HMAC variants, each carrying its own
// authorization set copy and a per-algorithm factory that validates
// generation/import parameters and stamps provenance.
package keys

import (
	"time"

	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/tag"
)

// Algorithm identifies a key's cryptographic family.
type Algorithm uint32

const (
	AlgorithmRSA Algorithm = iota + 1
	AlgorithmECDSA
	AlgorithmAES
	AlgorithmHMAC
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmRSA:
		return "RSA"
	case AlgorithmECDSA:
		return "ECDSA"
	case AlgorithmAES:
		return "AES"
	case AlgorithmHMAC:
		return "HMAC"
	default:
		return "UNKNOWN"
	}
}

// Purpose identifies what an operation intends to do with a key.
type Purpose uint32

const (
	PurposeEncrypt Purpose = iota
	PurposeDecrypt
	PurposeSign
	PurposeVerify
)

func (p Purpose) String() string {
	switch p {
	case PurposeEncrypt:
		return "ENCRYPT"
	case PurposeDecrypt:
		return "DECRYPT"
	case PurposeSign:
		return "SIGN"
	case PurposeVerify:
		return "VERIFY"
	default:
		return "UNKNOWN"
	}
}

// Digest identifies a hash algorithm usable for signing or HMAC.
type Digest uint32

const (
	DigestNone Digest = iota
	DigestMD5
	DigestSHA1
	DigestSHA224
	DigestSHA256
	DigestSHA384
	DigestSHA512
)

// Padding identifies an RSA padding scheme, or a symmetric-cipher
// padding mode.
type Padding uint32

const (
	PaddingNone Padding = iota
	PaddingRSAOAEP
	PaddingRSAPSS
	PaddingRSAPKCS1v15Encrypt
	PaddingRSAPKCS1v15Sign
	PaddingPKCS7
)

// BlockMode identifies an AES chaining mode.
type BlockMode uint32

const (
	BlockModeECB BlockMode = iota + 1
	BlockModeCBC
	BlockModeCTR
	BlockModeGCM
)

// Origin records how a key's material came to exist.
type Origin uint32

const (
	OriginGenerated Origin = iota
	OriginImported
)

// Key is the capability surface every algorithm-specific key variant
// implements. AuthorizationSet returns the key's own copy of its
// authorizations (both hardware- and software-enforced entries
// flattened together) — factories consult it when validating whether
// an operation's caller-supplied parameters are permitted.
type Key interface {
	Algorithm() Algorithm
	AuthorizationSet() *authset.Set
	SupportsPurpose(p Purpose) bool

	// Material returns the raw, unencrypted key bytes suitable for
	// sealing into a Key Blob (pkg/blob). RSA/ECDSA keys return a
	// PKCS#8 DER encoding; AES/HMAC keys return raw symmetric bytes.
	Material() ([]byte, error)
}

// stampProvenance pushes ORIGIN and CREATION_DATETIME into set,
// matching spec §4.4's "sets provenance tags automatically" rule.
func stampProvenance(set *authset.Set, origin Origin) {
	set.Push(tag.Origin, tag.EnumValue(uint32(origin)))
	set.Push(tag.CreationDatetime, tag.DateValue(time.Now()))
}

// purposesFromSet extracts every TAG_PURPOSE entry from set.
func purposesFromSet(set *authset.Set) []Purpose {
	var out []Purpose
	for _, v := range set.All(tag.Purpose) {
		out = append(out, Purpose(v.U32))
	}
	return out
}

func containsPurpose(set *authset.Set, p Purpose) bool {
	for _, got := range purposesFromSet(set) {
		if got == p {
			return true
		}
	}
	return false
}
