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

// Package legacy implements the adapter that classifies pre-existing
// key blobs against the engine-native format (spec §4.8): a software
// legacy blob is migrated in place, while a hardware-mirror blob has
// every primitive call delegated to a subordinate backend.
package legacy

import (
	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/keys"
)

// Subordinate is a hardware-mirror backend that a 'Q'-sentinel blob
// delegates its primitive operations to, instead of driving
// pkg/operation's own state machine against unsealed key material.
// Its shape mirrors pkg/operation.Op's Begin/Update/Finish split
// exactly, so a MirrorOp built from it satisfies operation.Op and can
// be registered in the same operation.Table as native operations.
//
// subHandle is an opaque token the subordinate assigns at Begin and
// expects back on every subsequent call against that operation; the
// engine never interprets its contents.
type Subordinate interface {
	Begin(keyRef []byte, purpose keys.Purpose, params *authset.Set) (subHandle []byte, outParams *authset.Set, err error)
	Update(subHandle []byte, input []byte, params *authset.Set) ([]byte, error)
	Finish(subHandle []byte, final []byte, sig []byte, params *authset.Set) ([]byte, *authset.Set, error)
}
