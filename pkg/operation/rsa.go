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
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"math/big"

	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/crypto/wrapping"
	"github.com/basilisk-security/keystore/pkg/keys"
)

// oaepAlgorithmFor maps a Digest to the wrapping package's OAEP
// algorithm identifier. Only SHA-1 and SHA-256 back RSAES-OAEP here,
// matching pkg/crypto/wrapping's supported set.
func oaepAlgorithmFor(d keys.Digest) (wrapping.Algorithm, error) {
	switch d {
	case keys.DigestNone, keys.DigestSHA1:
		return wrapping.RSAESOAEPSHA1, nil
	case keys.DigestSHA256:
		return wrapping.RSAESOAEPSHA256, nil
	default:
		return "", ErrUnsupportedDigest
	}
}

// rsaOp implements Op for all four RSA purposes. RSA has no
// meaningful notion of streaming: Update only buffers, and the
// entire primitive runs at Finish.
type rsaOp struct {
	key     *keys.RSAKey
	purpose keys.Purpose
	digest  keys.Digest
	padding keys.Padding
	buf     []byte
}

// BeginRSA validates params against key's authorizations (spec
// §4.6's RSA validation matrix) and returns a ready-to-drive
// operation.
func BeginRSA(key *keys.RSAKey, purpose keys.Purpose, params *authset.Set) (Op, *authset.Set, error) {
	if !key.SupportsPurpose(purpose) {
		return nil, nil, ErrIncompatiblePurpose
	}

	digest := singleDigest(params)
	padding := singlePadding(params)

	if digest != keys.DigestNone {
		if _, err := cryptoHash(digest); err != nil {
			return nil, nil, ErrUnsupportedDigest
		}
	}
	if !keyAuthorizesDigest(key.AuthorizationSet(), digest) {
		return nil, nil, ErrIncompatibleDigest
	}

	switch purpose {
	case keys.PurposeSign, keys.PurposeVerify:
		switch padding {
		case keys.PaddingNone, keys.PaddingRSAPSS, keys.PaddingRSAPKCS1v15Sign:
		default:
			return nil, nil, ErrUnsupportedPaddingMode
		}
		if padding == keys.PaddingNone && digest != keys.DigestNone {
			return nil, nil, ErrIncompatibleDigest
		}
		if padding == keys.PaddingRSAPSS && digest == keys.DigestNone {
			return nil, nil, ErrUnsupportedDigest
		}
	case keys.PurposeEncrypt, keys.PurposeDecrypt:
		switch padding {
		case keys.PaddingNone, keys.PaddingRSAOAEP, keys.PaddingRSAPKCS1v15Encrypt:
		default:
			return nil, nil, ErrUnsupportedPaddingMode
		}
	default:
		return nil, nil, ErrIncompatiblePurpose
	}
	if !keyAuthorizesPadding(key.AuthorizationSet(), padding) {
		return nil, nil, ErrIncompatiblePadding
	}

	return &rsaOp{key: key, purpose: purpose, digest: digest, padding: padding}, nil, nil
}

func (o *rsaOp) Purpose() keys.Purpose { return o.purpose }

func (o *rsaOp) Update(input []byte, _ *authset.Set) ([]byte, error) {
	o.buf = append(o.buf, input...)
	return nil, nil
}

func modulusBytes(pub *rsa.PublicKey) int {
	return (pub.N.BitLen() + 7) / 8
}

func leftPadTo(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}

func (o *rsaOp) hashedMessage(message []byte) (crypto.Hash, []byte, error) {
	if o.digest == keys.DigestNone {
		return 0, message, nil
	}
	h, err := cryptoHash(o.digest)
	if err != nil {
		return 0, nil, err
	}
	hashed, err := digestOf(o.digest, message)
	return h, hashed, err
}

func (o *rsaOp) Finish(final []byte, sig []byte, _ *authset.Set) ([]byte, *authset.Set, error) {
	message := append(o.buf, final...)
	priv := o.key.PrivateKey()
	pub := o.key.PublicKey()
	modBytes := modulusBytes(pub)

	var out []byte
	var err error
	switch o.purpose {
	case keys.PurposeSign:
		out, err = o.sign(priv, modBytes, message)
	case keys.PurposeVerify:
		out, err = o.verify(pub, modBytes, message, sig)
	case keys.PurposeEncrypt:
		out, err = o.encrypt(pub, modBytes, message)
	case keys.PurposeDecrypt:
		out, err = o.decrypt(priv, modBytes, message)
	default:
		err = ErrIncompatiblePurpose
	}
	return out, nil, err
}

func (o *rsaOp) sign(priv *rsa.PrivateKey, modBytes int, message []byte) ([]byte, error) {
	switch o.padding {
	case keys.PaddingNone:
		if len(message) != modBytes {
			return nil, ErrInvalidInputLength
		}
		m := new(big.Int).SetBytes(message)
		if m.Cmp(priv.N) >= 0 {
			return nil, ErrInvalidInputLength
		}
		c := new(big.Int).Exp(m, priv.D, priv.N)
		return leftPadTo(c.Bytes(), modBytes), nil
	case keys.PaddingRSAPKCS1v15Sign:
		h, hashed, err := o.hashedMessage(message)
		if err != nil {
			return nil, err
		}
		return rsa.SignPKCS1v15(rand.Reader, priv, h, hashed)
	case keys.PaddingRSAPSS:
		h, hashed, err := o.hashedMessage(message)
		if err != nil {
			return nil, err
		}
		return rsa.SignPSS(rand.Reader, priv, h, hashed, nil)
	default:
		return nil, ErrUnsupportedPaddingMode
	}
}

func (o *rsaOp) verify(pub *rsa.PublicKey, modBytes int, message, sig []byte) ([]byte, error) {
	switch o.padding {
	case keys.PaddingNone:
		if len(sig) != modBytes || len(message) != modBytes {
			return nil, ErrVerificationFailed
		}
		s := new(big.Int).SetBytes(sig)
		if s.Cmp(pub.N) >= 0 {
			return nil, ErrVerificationFailed
		}
		e := big.NewInt(int64(pub.E))
		c := new(big.Int).Exp(s, e, pub.N)
		got := leftPadTo(c.Bytes(), modBytes)
		if subtle.ConstantTimeCompare(got, message) != 1 {
			return nil, ErrVerificationFailed
		}
		return nil, nil
	case keys.PaddingRSAPKCS1v15Sign:
		h, hashed, err := o.hashedMessage(message)
		if err != nil {
			return nil, err
		}
		if err := rsa.VerifyPKCS1v15(pub, h, hashed, sig); err != nil {
			return nil, ErrVerificationFailed
		}
		return nil, nil
	case keys.PaddingRSAPSS:
		h, hashed, err := o.hashedMessage(message)
		if err != nil {
			return nil, err
		}
		if err := rsa.VerifyPSS(pub, h, hashed, sig, nil); err != nil {
			return nil, ErrVerificationFailed
		}
		return nil, nil
	default:
		return nil, ErrUnsupportedPaddingMode
	}
}

func (o *rsaOp) encrypt(pub *rsa.PublicKey, modBytes int, message []byte) ([]byte, error) {
	switch o.padding {
	case keys.PaddingNone:
		if len(message) != modBytes {
			return nil, ErrInvalidInputLength
		}
		m := new(big.Int).SetBytes(message)
		if m.Cmp(pub.N) >= 0 {
			return nil, ErrInvalidInputLength
		}
		c := new(big.Int).Exp(m, big.NewInt(int64(pub.E)), pub.N)
		return leftPadTo(c.Bytes(), modBytes), nil
	case keys.PaddingRSAOAEP:
		alg, err := oaepAlgorithmFor(o.digest)
		if err != nil {
			return nil, err
		}
		return wrapping.WrapRSAOAEP(message, pub, alg)
	case keys.PaddingRSAPKCS1v15Encrypt:
		return wrapping.WrapRSAPKCS1v15(message, pub)
	default:
		return nil, ErrUnsupportedPaddingMode
	}
}

func (o *rsaOp) decrypt(priv *rsa.PrivateKey, modBytes int, message []byte) ([]byte, error) {
	switch o.padding {
	case keys.PaddingNone:
		if len(message) != modBytes {
			return nil, ErrInvalidInputLength
		}
		c := new(big.Int).SetBytes(message)
		if c.Cmp(priv.N) >= 0 {
			return nil, ErrInvalidInputLength
		}
		m := new(big.Int).Exp(c, priv.D, priv.N)
		return leftPadTo(m.Bytes(), modBytes), nil
	case keys.PaddingRSAOAEP:
		alg, err := oaepAlgorithmFor(o.digest)
		if err != nil {
			return nil, err
		}
		pt, err := wrapping.UnwrapRSAOAEP(message, priv, alg)
		if err != nil {
			return nil, ErrInvalidArgument
		}
		return pt, nil
	case keys.PaddingRSAPKCS1v15Encrypt:
		pt, err := wrapping.UnwrapRSAPKCS1v15(message, priv)
		if err != nil {
			return nil, ErrInvalidArgument
		}
		return pt, nil
	default:
		return nil, ErrUnsupportedPaddingMode
	}
}
