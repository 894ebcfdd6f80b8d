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

package operation

import (
	"crypto/ecdsa"
	"crypto/rand"

	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/keys"
)

// ecdsaOp implements Op for ECDSA sign/verify. Like RSA, ECDSA is
// single-shot: Update buffers, Finish drives the primitive.
type ecdsaOp struct {
	key     *keys.ECDSAKey
	purpose keys.Purpose
	digest  keys.Digest
	buf     []byte
}

// BeginECDSA validates params for an ECDSA operation. Only sign and
// verify are meaningful purposes for this algorithm.
func BeginECDSA(key *keys.ECDSAKey, purpose keys.Purpose, params *authset.Set) (Op, *authset.Set, error) {
	if purpose != keys.PurposeSign && purpose != keys.PurposeVerify {
		return nil, nil, ErrIncompatiblePurpose
	}
	if !key.SupportsPurpose(purpose) {
		return nil, nil, ErrIncompatiblePurpose
	}

	digest := singleDigest(params)
	if digest != keys.DigestNone {
		if _, err := cryptoHash(digest); err != nil {
			return nil, nil, ErrUnsupportedDigest
		}
	}
	if !keyAuthorizesDigest(key.AuthorizationSet(), digest) {
		return nil, nil, ErrIncompatibleDigest
	}

	return &ecdsaOp{key: key, purpose: purpose, digest: digest}, nil, nil
}

func (o *ecdsaOp) Purpose() keys.Purpose { return o.purpose }

func (o *ecdsaOp) Update(input []byte, _ *authset.Set) ([]byte, error) {
	o.buf = append(o.buf, input...)
	return nil, nil
}

func curveOrderBytes(priv *ecdsa.PrivateKey) int {
	return (priv.Curve.Params().N.BitLen() + 7) / 8
}

// fitToCurveOrder truncates or zero-pads msg to size bytes, matching
// the raw-message ECDSA convention when no digest is applied.
func fitToCurveOrder(msg []byte, size int) []byte {
	if len(msg) >= size {
		return msg[:size]
	}
	return leftPadTo(msg, size)
}

func (o *ecdsaOp) digestMessage(message []byte, size int) ([]byte, error) {
	if o.digest == keys.DigestNone {
		return fitToCurveOrder(message, size), nil
	}
	return digestOf(o.digest, message)
}

func (o *ecdsaOp) Finish(final []byte, sig []byte, _ *authset.Set) ([]byte, *authset.Set, error) {
	message := append(o.buf, final...)
	priv := o.key.PrivateKey()
	size := curveOrderBytes(priv)

	hashed, err := o.digestMessage(message, size)
	if err != nil {
		return nil, nil, err
	}

	switch o.purpose {
	case keys.PurposeSign:
		out, err := ecdsa.SignASN1(rand.Reader, priv, hashed)
		return out, nil, err
	case keys.PurposeVerify:
		if !ecdsa.VerifyASN1(o.key.PublicKey(), hashed, sig) {
			return nil, nil, ErrVerificationFailed
		}
		return nil, nil, nil
	default:
		return nil, nil, ErrIncompatiblePurpose
	}
}
