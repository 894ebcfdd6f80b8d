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

package legacy

import (
	"sync/atomic"

	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/blob"
	"github.com/basilisk-security/keystore/pkg/keys"
	"github.com/basilisk-security/keystore/pkg/metrics"
	"github.com/basilisk-security/keystore/pkg/status"
)

// Adapter classifies non-native blobs and either migrates them in
// place or routes their primitive calls to a Subordinate, per spec
// §4.8. cipher decodes the shared legacy OCB envelope both sentinel
// bytes use; subordinate is nil when no hardware-mirror backend is
// configured, in which case 'Q' blobs fail closed.
type Adapter struct {
	cipher         blob.LegacyCipher
	subordinate    Subordinate
	delegatedCalls atomic.Int64
}

// NewAdapter constructs an Adapter. subordinate may be nil if only
// software-legacy migration is needed.
func NewAdapter(cipher blob.LegacyCipher, subordinate Subordinate) *Adapter {
	return &Adapter{cipher: cipher, subordinate: subordinate}
}

// DelegatedCalls reports how many Begin/Update/Finish calls have been
// routed to the subordinate backend so far, per spec §4.8's "this
// count is observable for testing" requirement.
func (a *Adapter) DelegatedCalls() int64 {
	return a.delegatedCalls.Load()
}

// MigrateSoftware decrypts a 'P'-sentinel blob's OCB payload and
// re-seals it under masterKey as a native blob, without touching
// DelegatedCalls — migration is not delegation.
func (a *Adapter) MigrateSoftware(masterKey, legacyBlob []byte) (nativeBlob []byte, unsealed *blob.Unsealed, err error) {
	if a.cipher == nil {
		return nil, nil, status.ErrInvalidKeyBlob
	}
	unsealed, err = a.cipher.OpenLegacy(masterKey, legacyBlob)
	if err != nil {
		return nil, nil, status.ErrInvalidKeyBlob
	}
	nativeBlob, err = blob.Seal(masterKey, unsealed.HWEnforced, unsealed.SWEnforced, unsealed.RawMaterial)
	if err != nil {
		return nil, nil, err
	}
	return nativeBlob, unsealed, nil
}

// OpenMirror decrypts a 'Q'-sentinel blob's envelope, recovering its
// policy auth sets and the opaque subordinate key reference carried in
// RawMaterial. It does not itself delegate anything, so callers using
// it only to populate GetCharacteristics never move DelegatedCalls.
func (a *Adapter) OpenMirror(masterKey, legacyBlob []byte) (*blob.Unsealed, error) {
	if a.cipher == nil {
		return nil, status.ErrInvalidKeyBlob
	}
	unsealed, err := a.cipher.OpenLegacy(masterKey, legacyBlob)
	if err != nil {
		return nil, status.ErrInvalidKeyBlob
	}
	return unsealed, nil
}

// BeginMirror starts a delegated operation against keyRef, incrementing
// DelegatedCalls and recording the delegation for metrics regardless of
// the subordinate's own outcome — the call was still routed.
func (a *Adapter) BeginMirror(keyRef []byte, purpose keys.Purpose, params *authset.Set) (*MirrorOp, *authset.Set, error) {
	if a.subordinate == nil {
		return nil, nil, status.ErrUnknownError
	}
	subHandle, outParams, err := a.subordinate.Begin(keyRef, purpose, params)
	a.delegatedCalls.Add(1)
	metrics.RecordLegacyDelegation()
	if err != nil {
		return nil, nil, err
	}
	return &MirrorOp{adapter: a, subHandle: subHandle, purpose: purpose}, outParams, nil
}
