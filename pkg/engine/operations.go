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

	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/keys"
	"github.com/basilisk-security/keystore/pkg/metrics"
	"github.com/basilisk-security/keystore/pkg/operation"
)

// Begin classifies keyBlob and starts an operation against it,
// registering either a native operation.Op or, for a 'Q'-sentinel
// blob, a delegated legacy.MirrorOp into the same operation.Table so
// both share one handle namespace.
func (e *Engine) Begin(ctx context.Context, callerToken string, keyBlob []byte, purpose keys.Purpose, params *authset.Set) (handle uint64, outParams *authset.Set, err error) {
	backend := classNative
	err = e.withCommand(ctx, metrics.OpBegin, callerToken, &backend, func() error {
		result, openErr := e.openBlob(keyBlob)
		if openErr != nil {
			return openErr
		}
		backend = result.class

		if result.class == classLegacyMirror {
			mirrorOp, mirrorParams, beginErr := e.legacyAdapter.BeginMirror(result.keyRef, purpose, params)
			if beginErr != nil {
				return beginErr
			}
			h, tableErr := e.table.Begin(mirrorOp)
			if tableErr != nil {
				return tableErr
			}
			handle = h
			outParams = mirrorParams
			return nil
		}

		key, keyErr := keyFromUnsealed(result.unsealed)
		if keyErr != nil {
			return keyErr
		}
		op, opParams, beginErr := operation.BeginOperation(key, purpose, params)
		if beginErr != nil {
			return beginErr
		}
		h, tableErr := e.table.Begin(op)
		if tableErr != nil {
			return tableErr
		}
		handle = h
		outParams = opParams
		return nil
	})
	return handle, outParams, err
}

// Update feeds input into the operation identified by handle.
func (e *Engine) Update(ctx context.Context, callerToken string, handle uint64, input []byte, params *authset.Set) (output []byte, err error) {
	backend := classNative
	err = e.withCommand(ctx, metrics.OpUpdate, callerToken, &backend, func() error {
		out, updateErr := e.table.Update(handle, input, params)
		if updateErr != nil {
			return updateErr
		}
		output = out
		return nil
	})
	return output, err
}

// Finish consumes the final input (and, for VERIFY, the caller-supplied
// signature) and releases handle.
func (e *Engine) Finish(ctx context.Context, callerToken string, handle uint64, final, sig []byte, params *authset.Set) (output []byte, outParams *authset.Set, err error) {
	backend := classNative
	err = e.withCommand(ctx, metrics.OpFinish, callerToken, &backend, func() error {
		out, op, finishErr := e.table.Finish(handle, final, sig, params)
		if finishErr != nil {
			return finishErr
		}
		output = out
		outParams = op
		return nil
	})
	return output, outParams, err
}

// Abort releases handle without producing output.
func (e *Engine) Abort(ctx context.Context, callerToken string, handle uint64) error {
	backend := classNative
	return e.withCommand(ctx, metrics.OpAbort, callerToken, &backend, func() error {
		if err := e.table.Abort(handle); err != nil {
			return err
		}
		return nil
	})
}
