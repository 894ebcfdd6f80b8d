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

// Package wrapping implements the RSA encryption padding schemes an
// RSA key configured for ENCRYPT/DECRYPT can use: OAEP (SHA-1 or
// SHA-256) and PKCS#1 v1.5. Both operate directly on the plaintext or
// ciphertext supplied by an operation's Update/Finish calls — there is
// no hybrid AES envelope here, since operation-level data lengths are
// bounded by what a single RSA modulus can hold, unlike a general key-
// wrapping use case.
package wrapping

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
)

// Algorithm identifies an RSA encryption padding scheme.
type Algorithm string

const (
	RSAESOAEPSHA1   Algorithm = "RSAES_OAEP_SHA_1"
	RSAESOAEPSHA256 Algorithm = "RSAES_OAEP_SHA_256"
	RSAESPKCS1v15   Algorithm = "RSAES_PKCS1_V1_5"
)

func oaepHash(algorithm Algorithm) (hash.Hash, error) {
	switch algorithm {
	case RSAESOAEPSHA1:
		return sha1.New(), nil
	case RSAESOAEPSHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported OAEP wrapping algorithm: %s", algorithm)
	}
}

// WrapRSAOAEP encrypts keyMaterial (or any plaintext bounded by the
// modulus size minus padding overhead) with RSA-OAEP.
func WrapRSAOAEP(keyMaterial []byte, publicKey *rsa.PublicKey, algorithm Algorithm) ([]byte, error) {
	if len(keyMaterial) == 0 {
		return nil, fmt.Errorf("key material cannot be nil or empty")
	}
	if publicKey == nil {
		return nil, fmt.Errorf("public key cannot be nil")
	}
	hashFunc, err := oaepHash(algorithm)
	if err != nil {
		return nil, err
	}
	wrapped, err := rsa.EncryptOAEP(hashFunc, rand.Reader, publicKey, keyMaterial, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap key material with RSA-OAEP: %w", err)
	}
	return wrapped, nil
}

// UnwrapRSAOAEP decrypts data previously produced by WrapRSAOAEP.
func UnwrapRSAOAEP(wrappedKey []byte, privateKey *rsa.PrivateKey, algorithm Algorithm) ([]byte, error) {
	if len(wrappedKey) == 0 {
		return nil, fmt.Errorf("wrapped key cannot be nil or empty")
	}
	if privateKey == nil {
		return nil, fmt.Errorf("private key cannot be nil")
	}
	hashFunc, err := oaepHash(algorithm)
	if err != nil {
		return nil, err
	}
	unwrapped, err := rsa.DecryptOAEP(hashFunc, rand.Reader, privateKey, wrappedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap key material with RSA-OAEP: %w", err)
	}
	return unwrapped, nil
}

// WrapRSAPKCS1v15 encrypts data with RSAES-PKCS1-v1_5, for keys whose
// authorization set specifies PKCS1 padding instead of OAEP.
func WrapRSAPKCS1v15(data []byte, publicKey *rsa.PublicKey) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("data cannot be nil or empty")
	}
	if publicKey == nil {
		return nil, fmt.Errorf("public key cannot be nil")
	}
	wrapped, err := rsa.EncryptPKCS1v15(rand.Reader, publicKey, data)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt with RSAES-PKCS1-v1_5: %w", err)
	}
	return wrapped, nil
}

// UnwrapRSAPKCS1v15 decrypts data previously produced by
// WrapRSAPKCS1v15.
func UnwrapRSAPKCS1v15(wrapped []byte, privateKey *rsa.PrivateKey) ([]byte, error) {
	if len(wrapped) == 0 {
		return nil, fmt.Errorf("wrapped data cannot be nil or empty")
	}
	if privateKey == nil {
		return nil, fmt.Errorf("private key cannot be nil")
	}
	plaintext, err := rsa.DecryptPKCS1v15(rand.Reader, privateKey, wrapped)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt RSAES-PKCS1-v1_5 ciphertext: %w", err)
	}
	return plaintext, nil
}

// GetHashForAlgorithm returns the crypto.Hash identifier backing an
// OAEP wrapping algorithm.
func GetHashForAlgorithm(algorithm Algorithm) (crypto.Hash, error) {
	switch algorithm {
	case RSAESOAEPSHA1:
		return crypto.SHA1, nil
	case RSAESOAEPSHA256:
		return crypto.SHA256, nil
	default:
		return 0, fmt.Errorf("unsupported wrapping algorithm: %s", algorithm)
	}
}
