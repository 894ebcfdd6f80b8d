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
	"crypto/sha256"
	"sync"
	"time"

	"github.com/basilisk-security/keystore/pkg/crypto/aead"
)

// keyTrackers holds the nonce-reuse and byte-usage trackers for a single
// AES-GCM key, keyed by a fingerprint of the raw key material so that two
// operation instances against the same key share reuse history.
type keyTrackers struct {
	nonces *aead.NonceTracker
	bytes  *aead.BytesTracker
}

var (
	gcmTrackersMu sync.Mutex
	gcmTrackers   = map[[32]byte]*keyTrackers{}
)

func trackersForKey(material []byte) *keyTrackers {
	fp := sha256.Sum256(material)

	gcmTrackersMu.Lock()
	defer gcmTrackersMu.Unlock()

	kt, ok := gcmTrackers[fp]
	if !ok {
		kt = &keyTrackers{
			nonces: aead.NewNonceTracker(true),
			bytes:  aead.NewBytesTracker(true, aead.DefaultBytesTrackingLimit),
		}
		gcmTrackers[fp] = kt
	}
	return kt
}

// checkGCMNonce rejects a nonce already used for encryption under this key,
// per NIST SP 800-38D's catastrophic-reuse warning for AES-GCM. Decrypt
// operations are exempt: the nonce was already committed at encrypt time.
func checkGCMNonce(material, nonce []byte) error {
	kt := trackersForKey(material)
	if err := kt.nonces.CheckAndRecordNonce(nonce); err != nil {
		return ErrInvalidNonce
	}
	return nil
}

// checkGCMBytesBudget enforces the per-key encrypted-byte ceiling recommended
// by NIST SP 800-38D for AES-GCM. Exceeding it is not in the closed error
// taxonomy's small set of named conditions, so it surfaces as UNKNOWN_ERROR,
// mirroring the taxonomy's rule for unclassifiable primitive-layer failures.
func checkGCMBytesBudget(material []byte, numBytes int) error {
	kt := trackersForKey(material)
	if err := kt.bytes.CheckAndIncrementBytes(int64(numBytes)); err != nil {
		// errors.Is(err, aead.ErrBytesLimitExceeded) holds for every
		// error this call can return; UNKNOWN_ERROR is still correct
		// since usage-limit exceeded has no dedicated code in the
		// closed taxonomy.
		return ErrUnknownError
	}
	return nil
}

// forgetKeyTrackers drops tracking state for a key, used by tests that
// reuse the same raw key material across cases and would otherwise trip
// nonce-reuse rejection against unrelated prior test runs.
func forgetKeyTrackers(material []byte) {
	fp := sha256.Sum256(material)
	gcmTrackersMu.Lock()
	defer gcmTrackersMu.Unlock()
	delete(gcmTrackers, fp)
}

// GCMHealthSnapshot summarizes AES-GCM tracker state across every key this
// package has serviced, for the engine's readiness surface.
type GCMHealthSnapshot struct {
	TrackedKeys   int
	TrackedNonces int
	KeysNearLimit int
}

// GCMHealth prunes nonce records older than maxAge and reports a usage
// snapshot as of the sweep. The engine calls this from its readiness check,
// so each health poll doubles as the tracker's garbage-collection cadence —
// there is no separate background sweep goroutine to manage.
func GCMHealth(maxAge time.Duration) GCMHealthSnapshot {
	gcmTrackersMu.Lock()
	defer gcmTrackersMu.Unlock()

	snap := GCMHealthSnapshot{TrackedKeys: len(gcmTrackers)}
	for _, kt := range gcmTrackers {
		kt.nonces.PruneOlderThan(maxAge)
		snap.TrackedNonces += kt.nonces.Count()
		if kt.bytes.ShouldWarnUser() {
			snap.KeysNearLimit++
		}
	}
	return snap
}
