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
	"crypto"
	_ "crypto/md5"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"

	"github.com/basilisk-security/keystore/pkg/keys"
)

// cryptoHash maps a Digest to its standard library crypto.Hash,
// registering the underlying implementation via blank import so
// callers can call New()/Sum() without importing the concrete
// package themselves.
func cryptoHash(d keys.Digest) (crypto.Hash, error) {
	switch d {
	case keys.DigestMD5:
		return crypto.MD5, nil
	case keys.DigestSHA1:
		return crypto.SHA1, nil
	case keys.DigestSHA224:
		return crypto.SHA224, nil
	case keys.DigestSHA256:
		return crypto.SHA256, nil
	case keys.DigestSHA384:
		return crypto.SHA384, nil
	case keys.DigestSHA512:
		return crypto.SHA512, nil
	default:
		return 0, ErrUnsupportedDigest
	}
}

func digestOf(d keys.Digest, data []byte) ([]byte, error) {
	h, err := cryptoHash(d)
	if err != nil {
		return nil, err
	}
	hasher := h.New()
	hasher.Write(data)
	return hasher.Sum(nil), nil
}
