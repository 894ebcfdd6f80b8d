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

package blob

// Legacy sentinel bytes. A blob beginning with one of these predates
// the native AES-GCM format above and must be classified before any
// other parsing is attempted — the sentinel and the native format
// byte share the same leading position, so callers must check
// IsLegacy first.
const (
	SentinelSoftwareLegacy byte = 'P' // migrate in place: decrypt, re-seal as native
	SentinelHardwareMirror byte = 'Q' // delegate to a subordinate backend
)

// IsLegacy reports whether b begins with a recognized legacy sentinel
// byte, returning that sentinel when true.
func IsLegacy(b []byte) (sentinel byte, ok bool) {
	if len(b) == 0 {
		return 0, false
	}
	switch b[0] {
	case SentinelSoftwareLegacy, SentinelHardwareMirror:
		return b[0], true
	default:
		return 0, false
	}
}

// LegacyCipher decrypts the OCB-based payload carried by a software-
// legacy ('P') blob, returning the raw key material it protects along
// with the hardware/software auth sets recovered from the legacy
// envelope. It is defined as an interface so a real OCB implementation
// can be substituted without this package depending on OCB directly —
// OCB is a legacy compatibility concern, not part of this engine's own
// cryptographic surface.
type LegacyCipher interface {
	OpenLegacy(masterKey []byte, raw []byte) (*Unsealed, error)
}
