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

package engine

import (
	"context"
	"time"

	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/blob"
	"github.com/basilisk-security/keystore/pkg/encoding"
	"github.com/basilisk-security/keystore/pkg/keys"
	"github.com/basilisk-security/keystore/pkg/metrics"
	"github.com/basilisk-security/keystore/pkg/status"
	"github.com/basilisk-security/keystore/pkg/tag"
)

// GenerateKey generates a fresh key under the algorithm named in
// params' ALGORITHM tag and seals it into a native blob under the
// engine's master key. hwEnforced carries the tags this engine treats
// as fixed at generation time (spec §4.2); swEnforced carries the
// remainder.
func (e *Engine) GenerateKey(ctx context.Context, callerToken string, hwEnforced, swEnforced *authset.Set) (keyBlob []byte, err error) {
	backend := classNative
	err = e.withCommand(ctx, metrics.OpGenerateKey, callerToken, &backend, func() error {
		combined := hwEnforced.Clone()
		combined.UnionWith(swEnforced)

		key, genErr := generateByAlgorithm(combined)
		if genErr != nil {
			return genErr
		}
		material, matErr := key.Material()
		if matErr != nil {
			return matErr
		}

		masterKeyBytes, mkErr := e.masterKey.Bytes()
		if mkErr != nil {
			return status.ErrUnknownError
		}
		defer zero(masterKeyBytes)

		sealed, sealErr := blob.Seal(masterKeyBytes, sealedHWSet(hwEnforced, keys.OriginGenerated), swEnforced, material)
		if sealErr != nil {
			return sealErr
		}
		keyBlob = sealed
		return nil
	})
	return keyBlob, err
}

// sealedHWSet returns the hw_enforced set a blob is sealed under: the
// caller's fixed-at-generation tags plus the provenance this engine
// itself attaches (spec §4.2's ORIGIN/CREATION_DATETIME), never the
// mutable sw_enforced side.
func sealedHWSet(hwEnforced *authset.Set, origin keys.Origin) *authset.Set {
	hw := hwEnforced.Clone()
	hw.Push(tag.Origin, tag.EnumValue(uint32(origin)))
	hw.Push(tag.CreationDatetime, tag.DateValue(time.Now()))
	return hw
}

func generateByAlgorithm(params *authset.Set) (keys.Key, error) {
	algVal, ok := params.GetTagValue(tag.Algorithm)
	if !ok {
		return nil, status.ErrUnsupportedAlgorithm
	}
	switch keys.Algorithm(algVal.U32) {
	case keys.AlgorithmRSA:
		return keys.GenerateRSA(params)
	case keys.AlgorithmECDSA:
		return keys.GenerateECDSA(params)
	case keys.AlgorithmAES:
		return keys.GenerateAES(params)
	case keys.AlgorithmHMAC:
		return keys.GenerateHMAC(params)
	default:
		return nil, status.ErrUnsupportedAlgorithm
	}
}

// ImportKey imports caller-supplied key material under the algorithm
// named in params' ALGORITHM tag: PKCS#8 DER for RSA/EC, raw bytes for
// AES/HMAC, per spec §4.7's import-format rule.
func (e *Engine) ImportKey(ctx context.Context, callerToken string, hwEnforced, swEnforced *authset.Set, keyData []byte) (keyBlob []byte, err error) {
	backend := classNative
	err = e.withCommand(ctx, metrics.OpImportKey, callerToken, &backend, func() error {
		combined := hwEnforced.Clone()
		combined.UnionWith(swEnforced)

		key, impErr := importByAlgorithm(combined, keyData)
		if impErr != nil {
			return impErr
		}
		material, matErr := key.Material()
		if matErr != nil {
			return matErr
		}

		masterKeyBytes, mkErr := e.masterKey.Bytes()
		if mkErr != nil {
			return status.ErrUnknownError
		}
		defer zero(masterKeyBytes)

		sealed, sealErr := blob.Seal(masterKeyBytes, sealedHWSet(hwEnforced, keys.OriginImported), swEnforced, material)
		if sealErr != nil {
			return sealErr
		}
		keyBlob = sealed
		return nil
	})
	return keyBlob, err
}

func importByAlgorithm(params *authset.Set, keyData []byte) (keys.Key, error) {
	algVal, ok := params.GetTagValue(tag.Algorithm)
	if !ok {
		return nil, status.ErrUnsupportedAlgorithm
	}
	switch keys.Algorithm(algVal.U32) {
	case keys.AlgorithmRSA:
		return keys.ImportRSA(params, keyData)
	case keys.AlgorithmECDSA:
		return keys.ImportECDSA(params, keyData)
	case keys.AlgorithmAES:
		return keys.ImportAES(params, keyData)
	case keys.AlgorithmHMAC:
		return keys.ImportHMAC(params, keyData)
	default:
		return nil, status.ErrUnsupportedAlgorithm
	}
}

// ExportKey returns keyBlob's public key encoded as X.509
// SubjectPublicKeyInfo. Symmetric algorithms have no public
// representation and always fail with UNSUPPORTED_KEY_FORMAT, per spec
// §4.7.
func (e *Engine) ExportKey(ctx context.Context, callerToken string, keyBlob []byte) (exported []byte, err error) {
	backend := classNative
	err = e.withCommand(ctx, metrics.OpExportKey, callerToken, &backend, func() error {
		result, openErr := e.openBlob(keyBlob)
		if openErr != nil {
			return openErr
		}
		backend = result.class
		if result.class == classLegacyMirror {
			return status.ErrUnsupportedKeyFormat
		}

		key, keyErr := keyFromUnsealed(result.unsealed)
		if keyErr != nil {
			return keyErr
		}

		var pub any
		switch k := key.(type) {
		case *keys.RSAKey:
			pub = k.PublicKey()
		case *keys.ECDSAKey:
			pub = k.PublicKey()
		default:
			return status.ErrUnsupportedKeyFormat
		}

		der, encErr := encoding.EncodePublicKeyPKIX(pub)
		if encErr != nil {
			return encErr
		}
		exported = der
		return nil
	})
	return exported, err
}
