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
	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/keys"
	"github.com/basilisk-security/keystore/pkg/status"
)

// BeginOperation dispatches to the per-algorithm factory matching
// key's concrete type, implementing spec §4.6's operation factory
// selection.
func BeginOperation(key keys.Key, purpose keys.Purpose, params *authset.Set) (Op, *authset.Set, error) {
	switch k := key.(type) {
	case *keys.RSAKey:
		return BeginRSA(k, purpose, params)
	case *keys.ECDSAKey:
		return BeginECDSA(k, purpose, params)
	case *keys.AESKey:
		return BeginAES(k, purpose, params)
	case *keys.HMACKey:
		return BeginHMAC(k, purpose, params)
	default:
		return nil, nil, status.ErrUnsupportedAlgorithm
	}
}
