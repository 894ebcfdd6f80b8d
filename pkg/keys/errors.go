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

import "github.com/basilisk-security/keystore/pkg/status"

// Errors returned by this package can be compared using errors.Is()
// against the sentinels in pkg/status.
var (
	ErrUnsupportedAlgorithm    = status.ErrUnsupportedAlgorithm
	ErrUnsupportedKeySize      = status.ErrUnsupportedKeySize
	ErrUnsupportedBlockMode    = status.ErrUnsupportedBlockMode
	ErrUnsupportedPaddingMode  = status.ErrUnsupportedPaddingMode
	ErrUnsupportedDigest       = status.ErrUnsupportedDigest
	ErrUnsupportedMACLength    = status.ErrUnsupportedMACLength
	ErrUnsupportedKeyFormat    = status.ErrUnsupportedKeyFormat
	ErrIncompatiblePurpose     = status.ErrIncompatiblePurpose
	ErrInvalidArgument         = status.ErrInvalidArgument
	ErrImportParameterMismatch = status.ErrImportParameterMismatch
)
