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
	"github.com/basilisk-security/keystore/pkg/tag"
)

// keyAuthorizesDigest reports whether keyAuth constrains the digests
// an operation may pick and, if so, whether d is one of them. A key
// with no TAG_DIGEST entries at all imposes no restriction (e.g. an
// AES key never carries one).
func keyAuthorizesDigest(keyAuth *authset.Set, d keys.Digest) bool {
	allowed := keyAuth.All(tag.Digest)
	if len(allowed) == 0 {
		return true
	}
	for _, v := range allowed {
		if keys.Digest(v.U32) == d {
			return true
		}
	}
	return false
}

// keyAuthorizesPadding mirrors keyAuthorizesDigest for TAG_PADDING.
func keyAuthorizesPadding(keyAuth *authset.Set, p keys.Padding) bool {
	allowed := keyAuth.All(tag.Padding)
	if len(allowed) == 0 {
		return true
	}
	for _, v := range allowed {
		if keys.Padding(v.U32) == p {
			return true
		}
	}
	return false
}

// singleDigest extracts exactly one TAG_DIGEST value from params,
// defaulting to DigestNone if absent.
func singleDigest(params *authset.Set) keys.Digest {
	if v, ok := params.GetTagValue(tag.Digest); ok {
		return keys.Digest(v.U32)
	}
	return keys.DigestNone
}

// singlePadding extracts exactly one TAG_PADDING value from params.
func singlePadding(params *authset.Set) keys.Padding {
	if v, ok := params.GetTagValue(tag.Padding); ok {
		return keys.Padding(v.U32)
	}
	return keys.PaddingNone
}

// singleBlockMode extracts exactly one TAG_BLOCK_MODE value from params.
func singleBlockMode(params *authset.Set) (keys.BlockMode, bool) {
	v, ok := params.GetTagValue(tag.BlockMode)
	if !ok {
		return 0, false
	}
	return keys.BlockMode(v.U32), true
}

// keyAuthorizesBlockMode mirrors keyAuthorizesDigest for TAG_BLOCK_MODE.
func keyAuthorizesBlockMode(keyAuth *authset.Set, m keys.BlockMode) bool {
	allowed := keyAuth.All(tag.BlockMode)
	if len(allowed) == 0 {
		return true
	}
	for _, v := range allowed {
		if keys.BlockMode(v.U32) == m {
			return true
		}
	}
	return false
}
