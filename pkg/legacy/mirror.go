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
	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/keys"
	"github.com/basilisk-security/keystore/pkg/metrics"
)

// MirrorOp implements pkg/operation.Op by forwarding every Update and
// Finish call to the Adapter's subordinate, so the engine can register
// a delegated operation in the same operation.Table as a native one.
type MirrorOp struct {
	adapter   *Adapter
	subHandle []byte
	purpose   keys.Purpose
}

func (m *MirrorOp) Purpose() keys.Purpose { return m.purpose }

func (m *MirrorOp) Update(input []byte, params *authset.Set) ([]byte, error) {
	out, err := m.adapter.subordinate.Update(m.subHandle, input, params)
	m.adapter.delegatedCalls.Add(1)
	metrics.RecordLegacyDelegation()
	return out, err
}

func (m *MirrorOp) Finish(final []byte, sig []byte, params *authset.Set) ([]byte, *authset.Set, error) {
	out, outParams, err := m.adapter.subordinate.Finish(m.subHandle, final, sig, params)
	m.adapter.delegatedCalls.Add(1)
	metrics.RecordLegacyDelegation()
	return out, outParams, err
}
