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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"

	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/encoding"
	"github.com/basilisk-security/keystore/pkg/tag"
)

// ECCurve identifies a permitted NIST curve by its field size in bits,
// matching the TAG_KEY_SIZE convention used for the equivalent RSA tag.
type ECCurve uint32

const (
	ECCurveP224 ECCurve = 224
	ECCurveP256 ECCurve = 256
	ECCurveP384 ECCurve = 384
	ECCurveP521 ECCurve = 521
)

func curveFor(c ECCurve) (elliptic.Curve, bool) {
	switch c {
	case ECCurveP224:
		return elliptic.P224(), true
	case ECCurveP256:
		return elliptic.P256(), true
	case ECCurveP384:
		return elliptic.P384(), true
	case ECCurveP521:
		return elliptic.P521(), true
	default:
		return nil, false
	}
}

// ECDSAKey wraps an ECDSA private key alongside its authorization set.
type ECDSAKey struct {
	priv *ecdsa.PrivateKey
	auth *authset.Set
}

func (k *ECDSAKey) Algorithm() Algorithm           { return AlgorithmECDSA }
func (k *ECDSAKey) AuthorizationSet() *authset.Set { return k.auth }
func (k *ECDSAKey) SupportsPurpose(p Purpose) bool { return containsPurpose(k.auth, p) }
func (k *ECDSAKey) PrivateKey() *ecdsa.PrivateKey  { return k.priv }
func (k *ECDSAKey) PublicKey() *ecdsa.PublicKey    { return &k.priv.PublicKey }

func (k *ECDSAKey) Material() ([]byte, error) {
	return encoding.EncodePKCS8(k.priv, nil)
}

func validateECDSAParams(params *authset.Set) (ECCurve, error) {
	alg, ok := params.GetTagValue(tag.Algorithm)
	if !ok || Algorithm(alg.U32) != AlgorithmECDSA {
		return 0, ErrUnsupportedAlgorithm
	}
	curveVal, ok := params.GetTagValue(tag.ECCurve)
	if !ok {
		return 0, ErrUnsupportedKeySize
	}
	curve := ECCurve(curveVal.U32)
	if _, ok := curveFor(curve); !ok {
		return 0, ErrUnsupportedKeySize
	}
	return curve, nil
}

// GenerateECDSA generates an ECDSA key over one of the permitted
// curves (224/256/384/521 bits), failing ErrUnsupportedKeySize for
// any other curve per spec §4.4.
func GenerateECDSA(params *authset.Set) (*ECDSAKey, error) {
	curve, err := validateECDSAParams(params)
	if err != nil {
		return nil, err
	}
	ellCurve, _ := curveFor(curve)

	priv, err := ecdsa.GenerateKey(ellCurve, rand.Reader)
	if err != nil {
		return nil, err
	}

	auth := params.Clone()
	stampProvenance(auth, OriginGenerated)
	return &ECDSAKey{priv: priv, auth: auth}, nil
}

// ImportECDSA parses a PKCS#8-encoded ECDSA private key (DER or
// PEM-armored) and verifies its curve matches the caller-asserted
// TAG_EC_CURVE.
func ImportECDSA(params *authset.Set, pkcs8Data []byte) (*ECDSAKey, error) {
	curve, err := validateECDSAParams(params)
	if err != nil {
		return nil, err
	}

	parsed, err := encoding.DecodePKCS8Auto(pkcs8Data, nil)
	if err != nil {
		return nil, ErrUnsupportedKeyFormat
	}
	priv, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, ErrUnsupportedKeyFormat
	}

	if ECCurve(priv.Curve.Params().BitSize) != curve {
		return nil, ErrImportParameterMismatch
	}

	auth := params.Clone()
	stampProvenance(auth, OriginImported)
	return &ECDSAKey{priv: priv, auth: auth}, nil
}

// RehydrateECDSA reconstructs an ECDSA key from material and an
// authorization set recovered from an already-sealed blob. params is
// trusted as-is, so this skips the curve mismatch check ImportECDSA
// performs against caller-asserted parameters and does not stamp
// fresh provenance over the set's existing ORIGIN/CREATION_DATETIME.
func RehydrateECDSA(params *authset.Set, pkcs8Data []byte) (*ECDSAKey, error) {
	parsed, err := encoding.DecodePKCS8Auto(pkcs8Data, nil)
	if err != nil {
		return nil, ErrUnsupportedKeyFormat
	}
	priv, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, ErrUnsupportedKeyFormat
	}
	return &ECDSAKey{priv: priv, auth: params}, nil
}
