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
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/keys"
	"github.com/basilisk-security/keystore/pkg/tag"
)

const (
	aesBlockSize  = 16
	gcmNonceSize  = 12
	defaultTagLen = 128
)

// aesOp implements Op for all four AES block modes. ECB/CBC/GCM
// buffer their entire input and run the primitive at Finish; CTR is
// a true stream cipher and encrypts/decrypts each Update chunk
// immediately, per spec §4.6's "allows incremental arbitrary-sized
// update chunks" rule.
type aesOp struct {
	block    cipher.Block
	material []byte
	purpose  keys.Purpose
	mode     keys.BlockMode
	padding  keys.Padding
	nonce    []byte
	tagBits  uint32

	dataBuf     []byte
	aadBuf      []byte
	sawData     bool
	ctrStream   cipher.Stream
	ctrStarted  bool
}

func singleNonce(params *authset.Set) ([]byte, bool) {
	v, ok := params.GetTagValue(tag.Nonce)
	if !ok {
		return nil, false
	}
	return v.Bytes, true
}

func keyPermitsCallerNonce(keyAuth *authset.Set) bool {
	_, ok := keyAuth.GetTagValue(tag.CallerNonce)
	return ok
}

// resolveNonce implements spec §4.5's "honor or reject caller-supplied
// nonces" rule: a caller-supplied nonce of the wrong size is rejected
// outright; one supplied without CALLER_NONCE authorization is
// rejected; absence generates a fresh random nonce of the correct
// size and signals the caller via generated=true so it can be
// returned as a Begin output parameter.
func resolveNonce(keyAuth, params *authset.Set, size int) (nonce []byte, generated bool, err error) {
	if callerNonce, ok := singleNonce(params); ok {
		if !keyPermitsCallerNonce(keyAuth) {
			return nil, false, ErrCallerNonceProhibited
		}
		if len(callerNonce) != size {
			return nil, false, ErrInvalidNonce
		}
		return callerNonce, false, nil
	}
	nonce = make([]byte, size)
	if _, err := rand.Read(nonce); err != nil {
		return nil, false, err
	}
	return nonce, true, nil
}

// BeginAES validates params against key's authorizations (spec
// §4.6's AES validation matrix) and returns a ready-to-drive
// operation plus any generated output parameters (a fresh nonce).
func BeginAES(key *keys.AESKey, purpose keys.Purpose, params *authset.Set) (Op, *authset.Set, error) {
	if purpose != keys.PurposeEncrypt && purpose != keys.PurposeDecrypt {
		return nil, nil, ErrIncompatiblePurpose
	}
	if !key.SupportsPurpose(purpose) {
		return nil, nil, ErrIncompatiblePurpose
	}

	mode, ok := singleBlockMode(params)
	if !ok {
		return nil, nil, ErrUnsupportedBlockMode
	}
	switch mode {
	case keys.BlockModeECB, keys.BlockModeCBC, keys.BlockModeCTR, keys.BlockModeGCM:
	default:
		return nil, nil, ErrUnsupportedBlockMode
	}
	if !keyAuthorizesBlockMode(key.AuthorizationSet(), mode) {
		return nil, nil, ErrUnsupportedBlockMode
	}

	padding := singlePadding(params)
	switch mode {
	case keys.BlockModeECB, keys.BlockModeCBC:
		if padding != keys.PaddingNone && padding != keys.PaddingPKCS7 {
			return nil, nil, ErrUnsupportedPaddingMode
		}
	case keys.BlockModeCTR, keys.BlockModeGCM:
		if padding != keys.PaddingNone {
			return nil, nil, ErrIncompatiblePadding
		}
	}
	if !keyAuthorizesPadding(key.AuthorizationSet(), padding) {
		return nil, nil, ErrIncompatiblePadding
	}

	material, err := key.Material()
	if err != nil {
		return nil, nil, err
	}
	block, err := aes.NewCipher(material)
	if err != nil {
		return nil, nil, err
	}

	op := &aesOp{block: block, material: material, purpose: purpose, mode: mode, padding: padding}
	var outParams *authset.Set

	switch mode {
	case keys.BlockModeECB:
		if _, hasNonce := singleNonce(params); hasNonce {
			return nil, nil, ErrInvalidNonce
		}
	case keys.BlockModeCBC, keys.BlockModeCTR:
		nonce, generated, err := resolveNonce(key.AuthorizationSet(), params, aesBlockSize)
		if err != nil {
			return nil, nil, err
		}
		op.nonce = nonce
		if generated {
			outParams = authset.New()
			outParams.Push(tag.Nonce, tag.BytesValue(nonce))
		}
	case keys.BlockModeGCM:
		nonce, generated, err := resolveNonce(key.AuthorizationSet(), params, gcmNonceSize)
		if err != nil {
			return nil, nil, err
		}
		op.nonce = nonce
		if generated {
			outParams = authset.New()
			outParams.Push(tag.Nonce, tag.BytesValue(nonce))
		}
		op.tagBits = defaultTagLen
		if v, ok := params.GetTagValue(tag.MACLength); ok {
			op.tagBits = v.U32
		}
		if op.tagBits%8 != 0 || op.tagBits < 96 || op.tagBits > 128 {
			return nil, nil, ErrUnsupportedMACLength
		}
	}

	return op, outParams, nil
}

func (o *aesOp) Purpose() keys.Purpose { return o.purpose }

func (o *aesOp) Update(input []byte, params *authset.Set) ([]byte, error) {
	switch o.mode {
	case keys.BlockModeGCM:
		for _, ad := range params.All(tag.AssociatedData) {
			if o.sawData {
				return nil, ErrInvalidArgument
			}
			o.aadBuf = append(o.aadBuf, ad.Bytes...)
		}
		if len(input) > 0 {
			o.sawData = true
			o.dataBuf = append(o.dataBuf, input...)
		}
		return nil, nil
	case keys.BlockModeCTR:
		if !o.ctrStarted {
			o.ctrStream = cipher.NewCTR(o.block, o.nonce)
			o.ctrStarted = true
		}
		out := make([]byte, len(input))
		o.ctrStream.XORKeyStream(out, input)
		return out, nil
	default: // ECB, CBC
		o.dataBuf = append(o.dataBuf, input...)
		return nil, nil
	}
}

func (o *aesOp) Finish(final []byte, sig []byte, params *authset.Set) ([]byte, *authset.Set, error) {
	switch o.mode {
	case keys.BlockModeECB:
		return o.finishECB(final)
	case keys.BlockModeCBC:
		return o.finishCBC(final)
	case keys.BlockModeCTR:
		return o.finishCTR(final)
	case keys.BlockModeGCM:
		return o.finishGCM(final, sig, params)
	default:
		return nil, nil, ErrUnsupportedBlockMode
	}
}

func (o *aesOp) finishECB(final []byte) ([]byte, *authset.Set, error) {
	data := append(o.dataBuf, final...)
	bs := o.block.BlockSize()

	if o.purpose == keys.PurposeEncrypt {
		if o.padding == keys.PaddingPKCS7 {
			data = pkcs7Pad(data, bs)
		} else if len(data)%bs != 0 {
			return nil, nil, ErrInvalidInputLength
		}
		out := make([]byte, len(data))
		for i := 0; i < len(data); i += bs {
			o.block.Encrypt(out[i:i+bs], data[i:i+bs])
		}
		return out, nil, nil
	}

	if len(data)%bs != 0 {
		return nil, nil, ErrInvalidInputLength
	}
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += bs {
		o.block.Decrypt(out[i:i+bs], data[i:i+bs])
	}
	if o.padding == keys.PaddingPKCS7 {
		stripped, err := pkcs7Unpad(out, bs)
		return stripped, nil, err
	}
	return out, nil, nil
}

func (o *aesOp) finishCBC(final []byte) ([]byte, *authset.Set, error) {
	data := append(o.dataBuf, final...)
	bs := o.block.BlockSize()

	if o.purpose == keys.PurposeEncrypt {
		if o.padding == keys.PaddingPKCS7 {
			data = pkcs7Pad(data, bs)
		} else if len(data)%bs != 0 {
			return nil, nil, ErrInvalidInputLength
		}
		out := make([]byte, len(data))
		cipher.NewCBCEncrypter(o.block, o.nonce).CryptBlocks(out, data)
		return out, nil, nil
	}

	if len(data)%bs != 0 {
		return nil, nil, ErrInvalidInputLength
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(o.block, o.nonce).CryptBlocks(out, data)
	if o.padding == keys.PaddingPKCS7 {
		stripped, err := pkcs7Unpad(out, bs)
		return stripped, nil, err
	}
	return out, nil, nil
}

func (o *aesOp) finishCTR(final []byte) ([]byte, *authset.Set, error) {
	if !o.ctrStarted {
		o.ctrStream = cipher.NewCTR(o.block, o.nonce)
		o.ctrStarted = true
	}
	out := make([]byte, len(final))
	o.ctrStream.XORKeyStream(out, final)
	return out, nil, nil
}

func (o *aesOp) finishGCM(final []byte, sig []byte, params *authset.Set) ([]byte, *authset.Set, error) {
	for _, ad := range params.All(tag.AssociatedData) {
		if o.sawData {
			return nil, nil, ErrInvalidArgument
		}
		o.aadBuf = append(o.aadBuf, ad.Bytes...)
	}
	data := append(o.dataBuf, final...)

	aesgcm, err := cipher.NewGCMWithTagSize(o.block, int(o.tagBits/8))
	if err != nil {
		return nil, nil, err
	}

	if o.purpose == keys.PurposeEncrypt {
		if err := checkGCMNonce(o.material, o.nonce); err != nil {
			return nil, nil, err
		}
		if err := checkGCMBytesBudget(o.material, len(data)); err != nil {
			return nil, nil, err
		}
		sealed := aesgcm.Seal(nil, o.nonce, data, o.aadBuf)
		tagStart := len(sealed) - aesgcm.Overhead()
		ciphertext, aeadTag := sealed[:tagStart], sealed[tagStart:]
		out := authset.New()
		out.Push(tag.AEADTag, tag.BytesValue(aeadTag))
		return ciphertext, out, nil
	}

	tagVal, ok := params.GetTagValue(tag.AEADTag)
	if !ok {
		return nil, nil, ErrVerificationFailed
	}
	sealed := append(append([]byte{}, data...), tagVal.Bytes...)
	pt, err := aesgcm.Open(nil, o.nonce, sealed, o.aadBuf)
	if err != nil {
		return nil, nil, ErrVerificationFailed
	}
	return pt, nil, nil
}
