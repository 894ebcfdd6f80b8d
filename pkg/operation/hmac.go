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
	"crypto/hmac"
	"crypto/subtle"

	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/keys"
	"github.com/basilisk-security/keystore/pkg/tag"
)

// hmacOp implements Op for HMAC sign/verify. The MAC length supplied
// at Begin is authoritative for the operation's lifetime (spec §9,
// open question 1) — a value pushed again at Finish is ignored.
type hmacOp struct {
	key       *keys.HMACKey
	purpose   keys.Purpose
	digest    keys.Digest
	macLenBytes int
	mac       []byte // message bytes buffered by Update; the MAC is computed over them at Finish
}

// BeginHMAC validates params for an HMAC operation: the first digest
// in params (further digest entries are not examined) must be a
// supported hash the key authorizes, and the MAC length must be
// byte-aligned and not exceed the digest's own output width.
func BeginHMAC(key *keys.HMACKey, purpose keys.Purpose, params *authset.Set) (Op, *authset.Set, error) {
	if purpose != keys.PurposeSign && purpose != keys.PurposeVerify {
		return nil, nil, ErrIncompatiblePurpose
	}
	if !key.SupportsPurpose(purpose) {
		return nil, nil, ErrIncompatiblePurpose
	}

	digest := singleDigest(params)
	if _, err := cryptoHash(digest); err != nil {
		return nil, nil, ErrUnsupportedDigest
	}
	if !keyAuthorizesDigest(key.AuthorizationSet(), digest) {
		return nil, nil, ErrIncompatibleDigest
	}

	h, _ := cryptoHash(digest)
	digestBits := h.Size() * 8

	macLenBits := digestBits
	if v, ok := params.GetTagValue(tag.MACLength); ok {
		macLenBits = int(v.U32)
	}
	if macLenBits%8 != 0 || macLenBits <= 0 || macLenBits > digestBits {
		return nil, nil, ErrUnsupportedMACLength
	}
	if minVal, ok := key.AuthorizationSet().GetTagValue(tag.MinMACLength); ok {
		if macLenBits < int(minVal.U32) {
			return nil, nil, ErrUnsupportedMACLength
		}
	}

	return &hmacOp{key: key, purpose: purpose, digest: digest, macLenBytes: macLenBits / 8}, nil, nil
}

func (o *hmacOp) Purpose() keys.Purpose { return o.purpose }

func (o *hmacOp) Update(input []byte, _ *authset.Set) ([]byte, error) {
	o.mac = append(o.mac, input...)
	return nil, nil
}

func (o *hmacOp) computeMAC(message []byte) ([]byte, error) {
	h, err := cryptoHash(o.digest)
	if err != nil {
		return nil, err
	}
	rawKey, err := o.key.Material()
	if err != nil {
		return nil, err
	}
	mac := hmac.New(h.New, rawKey)
	mac.Write(message)
	return mac.Sum(nil)[:o.macLenBytes], nil
}

func (o *hmacOp) Finish(final []byte, sig []byte, _ *authset.Set) ([]byte, *authset.Set, error) {
	message := append(o.mac, final...)
	computed, err := o.computeMAC(message)
	if err != nil {
		return nil, nil, err
	}

	switch o.purpose {
	case keys.PurposeSign:
		return computed, nil, nil
	case keys.PurposeVerify:
		if len(sig) != len(computed) || subtle.ConstantTimeCompare(sig, computed) != 1 {
			return nil, nil, ErrVerificationFailed
		}
		return nil, nil, nil
	default:
		return nil, nil, ErrIncompatiblePurpose
	}
}
