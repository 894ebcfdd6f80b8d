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

	"github.com/basilisk-security/keystore/pkg/keys"
	"github.com/basilisk-security/keystore/pkg/metrics"
	"github.com/basilisk-security/keystore/pkg/validation"
)

// GetSupportedAlgorithms reports the fixed algorithm set this engine
// implements (spec §3.1's closed ALGORITHM enum), writing to out.
func (e *Engine) GetSupportedAlgorithms(ctx context.Context, callerToken string, out *[]string) error {
	backend := classNative
	return e.withCommand(ctx, metrics.OpGetSupported, callerToken, &backend, func() error {
		if err := validation.RequireOutPointer("out", out); err != nil {
			return err
		}
		*out = []string{
			keys.AlgorithmRSA.String(),
			keys.AlgorithmECDSA.String(),
			keys.AlgorithmAES.String(),
			keys.AlgorithmHMAC.String(),
		}
		return nil
	})
}

// GetSupportedBlockModes reports the fixed BLOCK_MODE enum (spec §3.1):
// ECB, CBC, CTR, GCM.
func (e *Engine) GetSupportedBlockModes(ctx context.Context, callerToken string, out *[]string) error {
	backend := classNative
	return e.withCommand(ctx, metrics.OpGetSupported, callerToken, &backend, func() error {
		if err := validation.RequireOutPointer("out", out); err != nil {
			return err
		}
		*out = []string{"ECB", "CBC", "CTR", "GCM"}
		return nil
	})
}

// GetSupportedPaddingModes reports the fixed PADDING enum (spec §3.1).
func (e *Engine) GetSupportedPaddingModes(ctx context.Context, callerToken string, out *[]string) error {
	backend := classNative
	return e.withCommand(ctx, metrics.OpGetSupported, callerToken, &backend, func() error {
		if err := validation.RequireOutPointer("out", out); err != nil {
			return err
		}
		*out = []string{
			"NONE",
			"RSA_OAEP",
			"RSA_PSS",
			"RSA_PKCS1_1_5_ENCRYPT",
			"RSA_PKCS1_1_5_SIGN",
			"PKCS7",
		}
		return nil
	})
}

// GetSupportedDigests reports the fixed DIGEST enum (spec §3.1).
func (e *Engine) GetSupportedDigests(ctx context.Context, callerToken string, out *[]string) error {
	backend := classNative
	return e.withCommand(ctx, metrics.OpGetSupported, callerToken, &backend, func() error {
		if err := validation.RequireOutPointer("out", out); err != nil {
			return err
		}
		*out = []string{"NONE", "MD5", "SHA1", "SHA224", "SHA256", "SHA384", "SHA512"}
		return nil
	})
}

// GetSupportedImportFormats reports the import formats accepted by
// ImportKey per algorithm class: PKCS8 for asymmetric
// private keys, RAW for symmetric key bytes.
func (e *Engine) GetSupportedImportFormats(ctx context.Context, callerToken string, out *[]string) error {
	backend := classNative
	return e.withCommand(ctx, metrics.OpGetSupported, callerToken, &backend, func() error {
		if err := validation.RequireOutPointer("out", out); err != nil {
			return err
		}
		*out = []string{"PKCS8", "RAW"}
		return nil
	})
}

// GetSupportedExportFormats reports the export formats ExportKey can
// produce: X.509 SubjectPublicKeyInfo for asymmetric public keys.
// Symmetric algorithms have no export format.
func (e *Engine) GetSupportedExportFormats(ctx context.Context, callerToken string, out *[]string) error {
	backend := classNative
	return e.withCommand(ctx, metrics.OpGetSupported, callerToken, &backend, func() error {
		if err := validation.RequireOutPointer("out", out); err != nil {
			return err
		}
		*out = []string{"X509"}
		return nil
	})
}
