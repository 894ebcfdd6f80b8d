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
	"crypto/x509"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/encoding"
	"github.com/basilisk-security/keystore/pkg/tag"
)

func rsaSignParams(keyBits uint32, padding Padding, digest Digest) *authset.Set {
	return authset.NewBuilder().
		Algorithm(uint32(AlgorithmRSA)).
		KeySize(keyBits).
		Purpose(uint32(PurposeSign)).
		Purpose(uint32(PurposeVerify)).
		Padding(uint32(padding)).
		Digest(uint32(digest)).
		Build()
}

func rsaEncryptParams(keyBits uint32, padding Padding) *authset.Set {
	return authset.NewBuilder().
		Algorithm(uint32(AlgorithmRSA)).
		KeySize(keyBits).
		Purpose(uint32(PurposeEncrypt)).
		Purpose(uint32(PurposeDecrypt)).
		Padding(uint32(padding)).
		Build()
}

func TestGenerateRSA_Success(t *testing.T) {
	params := rsaEncryptParams(2048, PaddingRSAOAEP)
	key, err := GenerateRSA(params)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmRSA, key.Algorithm())
	assert.Equal(t, 2048, key.PrivateKey().N.BitLen())
	assert.True(t, key.SupportsPurpose(PurposeEncrypt))
	assert.False(t, key.SupportsPurpose(PurposeSign))
}

func TestGenerateRSA_StampsProvenance(t *testing.T) {
	key, err := GenerateRSA(rsaEncryptParams(2048, PaddingRSAOAEP))
	require.NoError(t, err)

	origin, ok := key.AuthorizationSet().GetTagValue(tag.Origin)
	require.True(t, ok)
	assert.Equal(t, uint32(OriginGenerated), origin.U32)

	_, ok = key.AuthorizationSet().GetTagValue(tag.CreationDatetime)
	assert.True(t, ok)
}

func TestGenerateRSA_WrongAlgorithmFails(t *testing.T) {
	params := authset.NewBuilder().Algorithm(uint32(AlgorithmECDSA)).KeySize(2048).Build()
	_, err := GenerateRSA(params)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestGenerateRSA_MissingKeySizeFails(t *testing.T) {
	params := authset.NewBuilder().Algorithm(uint32(AlgorithmRSA)).Build()
	_, err := GenerateRSA(params)
	assert.ErrorIs(t, err, ErrUnsupportedKeySize)
}

func TestGenerateRSA_PSSKeySizeFloor(t *testing.T) {
	// SHA-512 needs keySize >= 512 + 80 = 592 bits for PSS.
	_, err := GenerateRSA(rsaSignParams(512, PaddingRSAPSS, DigestSHA512))
	assert.ErrorIs(t, err, ErrUnsupportedKeySize)

	key, err := GenerateRSA(rsaSignParams(1024, PaddingRSAPSS, DigestSHA512))
	require.NoError(t, err)
	assert.NotNil(t, key)
}

func TestGenerateRSA_PKCS1v15SignKeySizeFloor(t *testing.T) {
	// SHA-256 needs keySize >= 256 + 240 = 496 bits for PKCS#1 v1.5 signing.
	_, err := GenerateRSA(rsaSignParams(496-8, PaddingRSAPKCS1v15Sign, DigestSHA256))
	assert.ErrorIs(t, err, ErrUnsupportedKeySize)

	key, err := GenerateRSA(rsaSignParams(1024, PaddingRSAPKCS1v15Sign, DigestSHA256))
	require.NoError(t, err)
	assert.NotNil(t, key)
}

func TestGenerateRSA_EncryptPaddingWhitelist(t *testing.T) {
	_, err := GenerateRSA(rsaEncryptParams(2048, PaddingRSAPSS))
	assert.ErrorIs(t, err, ErrUnsupportedPaddingMode)
}

func TestGenerateRSA_EncryptAllowsOAEPAndPKCS1v15(t *testing.T) {
	_, err := GenerateRSA(rsaEncryptParams(2048, PaddingRSAOAEP))
	assert.NoError(t, err)

	_, err = GenerateRSA(rsaEncryptParams(2048, PaddingRSAPKCS1v15Encrypt))
	assert.NoError(t, err)
}

func TestImportRSA_Success(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := encoding.EncodePKCS8(priv, nil)
	require.NoError(t, err)

	params := rsaEncryptParams(2048, PaddingRSAOAEP)
	key, err := ImportRSA(params, der)
	require.NoError(t, err)
	assert.Equal(t, priv.N, key.PrivateKey().N)

	origin, ok := key.AuthorizationSet().GetTagValue(tag.Origin)
	require.True(t, ok)
	assert.Equal(t, uint32(OriginImported), origin.U32)
}

func TestImportRSA_KeySizeMismatchFails(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := encoding.EncodePKCS8(priv, nil)
	require.NoError(t, err)

	params := rsaEncryptParams(4096, PaddingRSAOAEP)
	_, err = ImportRSA(params, der)
	assert.ErrorIs(t, err, ErrImportParameterMismatch)
}

func TestImportRSA_ExponentMismatchFails(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := encoding.EncodePKCS8(priv, nil)
	require.NoError(t, err)

	params := authset.NewBuilder().
		Algorithm(uint32(AlgorithmRSA)).
		KeySize(2048).
		Purpose(uint32(PurposeEncrypt)).
		Padding(uint32(PaddingRSAOAEP)).
		RSAPublicExponent(3).
		Build()
	_, err = ImportRSA(params, der)
	assert.ErrorIs(t, err, ErrImportParameterMismatch)
}

func TestImportRSA_AcceptsPEMArmoredKey(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemData, err := encoding.EncodePrivateKeyPEM(priv, x509.RSA, nil)
	require.NoError(t, err)

	params := rsaEncryptParams(2048, PaddingRSAOAEP)
	key, err := ImportRSA(params, pemData)
	require.NoError(t, err)
	assert.Equal(t, priv.N, key.PrivateKey().N)
}

func TestImportRSA_MalformedDERFails(t *testing.T) {
	params := rsaEncryptParams(2048, PaddingRSAOAEP)
	_, err := ImportRSA(params, []byte("not a valid key"))
	assert.True(t, errors.Is(err, ErrUnsupportedKeyFormat) || err != nil)
}

func TestGenerateRSA_CustomExponent(t *testing.T) {
	params := authset.NewBuilder().
		Algorithm(uint32(AlgorithmRSA)).
		KeySize(2048).
		Purpose(uint32(PurposeEncrypt)).
		Padding(uint32(PaddingRSAOAEP)).
		RSAPublicExponent(65537).
		Build()
	key, err := GenerateRSA(params)
	require.NoError(t, err)
	assert.Equal(t, 65537, key.PublicKey().E)
}

func TestRSAKey_MaterialRoundTrip(t *testing.T) {
	key, err := GenerateRSA(rsaEncryptParams(2048, PaddingRSAOAEP))
	require.NoError(t, err)

	material, err := key.Material()
	require.NoError(t, err)

	decoded, err := encoding.DecodePKCS8(material, nil)
	require.NoError(t, err)
	priv, ok := decoded.(*rsa.PrivateKey)
	require.True(t, ok)
	assert.Equal(t, key.PrivateKey().N, priv.N)
}
