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
	"crypto/rsa"

	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/encoding"
	"github.com/basilisk-security/keystore/pkg/tag"
)

// digestBits reports the output size in bits of a Digest, or 0 for
// DigestNone (not a real digest).
func digestBits(d Digest) int {
	switch d {
	case DigestMD5:
		return 128
	case DigestSHA1:
		return 160
	case DigestSHA224:
		return 224
	case DigestSHA256:
		return 256
	case DigestSHA384:
		return 384
	case DigestSHA512:
		return 512
	default:
		return 0
	}
}

// RSAKey wraps an RSA private key alongside its authorization set.
type RSAKey struct {
	priv *rsa.PrivateKey
	auth *authset.Set
}

func (k *RSAKey) Algorithm() Algorithm             { return AlgorithmRSA }
func (k *RSAKey) AuthorizationSet() *authset.Set   { return k.auth }
func (k *RSAKey) SupportsPurpose(p Purpose) bool   { return containsPurpose(k.auth, p) }
func (k *RSAKey) PrivateKey() *rsa.PrivateKey      { return k.priv }
func (k *RSAKey) PublicKey() *rsa.PublicKey        { return &k.priv.PublicKey }

func (k *RSAKey) Material() ([]byte, error) {
	return encoding.EncodePKCS8(k.priv, nil)
}

// validateRSAParams checks a proposed authorization set for RSA key
// generation against spec §4.4's normative rules: key size floors
// relative to chosen digest+padding, and required tag presence.
func validateRSAParams(params *authset.Set) (keySizeBits uint32, exponent uint64, err error) {
	alg, ok := params.GetTagValue(tag.Algorithm)
	if !ok || Algorithm(alg.U32) != AlgorithmRSA {
		return 0, 0, ErrUnsupportedAlgorithm
	}

	ksVal, ok := params.GetTagValue(tag.KeySize)
	if !ok {
		return 0, 0, ErrUnsupportedKeySize
	}
	keySizeBits = ksVal.U32
	if keySizeBits < 512 || keySizeBits%8 != 0 {
		return 0, 0, ErrUnsupportedKeySize
	}

	exponent = 65537
	if expVal, ok := params.GetTagValue(tag.RSAPublicExponent); ok {
		exponent = expVal.U64
	}

	for _, purpose := range purposesFromSet(params) {
		switch purpose {
		case PurposeSign:
			if err := checkRSASignFloor(params, keySizeBits); err != nil {
				return 0, 0, err
			}
		case PurposeEncrypt, PurposeDecrypt:
			if err := checkRSAPaddingSupported(params); err != nil {
				return 0, 0, err
			}
		}
	}

	return keySizeBits, exponent, nil
}

func checkRSAPaddingSupported(params *authset.Set) error {
	for _, p := range params.All(tag.Padding) {
		switch Padding(p.U32) {
		case PaddingRSAOAEP, PaddingRSAPKCS1v15Encrypt:
		default:
			return ErrUnsupportedPaddingMode
		}
	}
	return nil
}

// checkRSASignFloor enforces: PSS requires keySize >= digest_bits +
// 8*10; PKCS#1 v1.5 sign requires keySize >= digest_bits + 8*30.
func checkRSASignFloor(params *authset.Set, keySizeBits uint32) error {
	for _, p := range params.All(tag.Padding) {
		padding := Padding(p.U32)
		if padding != PaddingRSAPSS && padding != PaddingRSAPKCS1v15Sign {
			continue
		}
		for _, d := range params.All(tag.Digest) {
			bits := digestBits(Digest(d.U32))
			if bits == 0 {
				continue
			}
			var floor uint32
			switch padding {
			case PaddingRSAPSS:
				floor = uint32(bits) + 8*10
			case PaddingRSAPKCS1v15Sign:
				floor = uint32(bits) + 8*30
			}
			if keySizeBits < floor {
				return ErrUnsupportedKeySize
			}
		}
	}
	return nil
}

// GenerateRSA generates a new RSA key satisfying params, stamping
// ORIGIN=GENERATED and CREATION_DATETIME into the returned key's
// authorization set.
func GenerateRSA(params *authset.Set) (*RSAKey, error) {
	keySizeBits, exponent, err := validateRSAParams(params)
	if err != nil {
		return nil, err
	}
	if exponent > 0xFFFFFFFF || exponent < 3 {
		return nil, ErrInvalidArgument
	}

	priv, err := rsa.GenerateKey(rand.Reader, int(keySizeBits))
	if err != nil {
		return nil, err
	}
	if exponent != 65537 {
		priv.PublicKey.E = int(exponent)
	}

	auth := params.Clone()
	stampProvenance(auth, OriginGenerated)
	return &RSAKey{priv: priv, auth: auth}, nil
}

// ImportRSA parses a PKCS#8-encoded RSA private key (DER or PEM-armored)
// and verifies it matches the caller-asserted key size and public
// exponent in params, failing with ErrImportParameterMismatch on any
// discrepancy.
func ImportRSA(params *authset.Set, pkcs8Data []byte) (*RSAKey, error) {
	if _, _, err := validateRSAParams(params); err != nil {
		return nil, err
	}

	parsed, err := encoding.DecodePKCS8Auto(pkcs8Data, nil)
	if err != nil {
		return nil, ErrUnsupportedKeyFormat
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrUnsupportedKeyFormat
	}

	if ksVal, ok := params.GetTagValue(tag.KeySize); ok {
		if int(ksVal.U32) != priv.N.BitLen() {
			return nil, ErrImportParameterMismatch
		}
	}
	if expVal, ok := params.GetTagValue(tag.RSAPublicExponent); ok {
		if int64(expVal.U64) != int64(priv.PublicKey.E) {
			return nil, ErrImportParameterMismatch
		}
	}

	auth := params.Clone()
	stampProvenance(auth, OriginImported)
	return &RSAKey{priv: priv, auth: auth}, nil
}

// RehydrateRSA reconstructs an RSA key from material and an
// authorization set recovered from an already-sealed blob. Unlike
// ImportRSA, params is trusted as-is: it was generated or validated
// once already, when the blob was first sealed, so this skips the
// caller-asserted key size/exponent checks and does not stamp fresh
// provenance over the ORIGIN/CREATION_DATETIME pair the set already
// carries.
func RehydrateRSA(params *authset.Set, pkcs8Data []byte) (*RSAKey, error) {
	parsed, err := encoding.DecodePKCS8Auto(pkcs8Data, nil)
	if err != nil {
		return nil, ErrUnsupportedKeyFormat
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrUnsupportedKeyFormat
	}
	return &RSAKey{priv: priv, auth: params}, nil
}
