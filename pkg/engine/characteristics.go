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
	"github.com/basilisk-security/keystore/pkg/metrics"
)

// Characteristics splits a key's authorization tags by enforcement
// tier, mirroring the hw_enforced/sw_enforced split a native or
// migrated blob carries (spec §4.2). A mirrored 'Q' blob's hw_enforced
// set reflects whatever policy the subordinate committed at generation
// time; this engine never edits it.
type Characteristics struct {
	HWEnforced *authset.Set
	SWEnforced *authset.Set
}

// GetCharacteristics classifies keyBlob and returns its authorization
// tags without starting an operation, per spec §4.7. It is the one
// facade command that opens a 'Q'-sentinel blob without delegating a
// primitive call, so it never moves DelegatedCalls.
func (e *Engine) GetCharacteristics(ctx context.Context, callerToken string, keyBlob []byte) (chars *Characteristics, err error) {
	backend := classNative
	err = e.withCommand(ctx, metrics.OpGetCharacteristics, callerToken, &backend, func() error {
		result, openErr := e.openBlob(keyBlob)
		if openErr != nil {
			return openErr
		}
		backend = result.class
		chars = &Characteristics{
			HWEnforced: result.unsealed.HWEnforced,
			SWEnforced: result.unsealed.SWEnforced,
		}
		return nil
	})
	return chars, err
}
