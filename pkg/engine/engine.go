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

// Package engine implements the keystore engine facade (spec §4.7):
// the command surface every caller drives, wrapping key generation,
// import/export, and the Begin/Update/Finish/Abort operation
// lifecycle with the ambient concerns — logging, metrics, rate
// limiting, and readiness — that wrap every call.
package engine

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/basilisk-security/keystore/internal/config"
	"github.com/basilisk-security/keystore/internal/keymaterial"
	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/blob"
	"github.com/basilisk-security/keystore/pkg/correlation"
	"github.com/basilisk-security/keystore/pkg/health"
	"github.com/basilisk-security/keystore/pkg/keys"
	"github.com/basilisk-security/keystore/pkg/legacy"
	"github.com/basilisk-security/keystore/pkg/logging"
	"github.com/basilisk-security/keystore/pkg/metrics"
	"github.com/basilisk-security/keystore/pkg/operation"
	"github.com/basilisk-security/keystore/pkg/ratelimit"
	"github.com/basilisk-security/keystore/pkg/status"
	"github.com/basilisk-security/keystore/pkg/tag"
)

// gcmNonceRetention bounds how long the AES-GCM nonce tracker keeps a
// record after use before the readiness check's sweep prunes it.
const gcmNonceRetention = 24 * time.Hour

// Engine is the keystore engine facade. It owns the process-global
// master key, the operation table, and the ambient concerns wrapping
// every command.
type Engine struct {
	masterKey     *keymaterial.Secret
	table         *operation.Table
	legacyAdapter *legacy.Adapter
	legacyEnabled bool

	limiter *ratelimit.Limiter
	health  *health.Checker
	logger  *logging.Logger

	maxOperations int
}

// New constructs an Engine from cfg. subordinate and cipher configure
// the legacy adapter (spec §4.8) and may both be nil, in which case a
// blob carrying a legacy sentinel byte fails closed with
// INVALID_KEY_BLOB rather than being serviced.
func New(cfg *config.Config, subordinate legacy.Subordinate, cipher blob.LegacyCipher) (*Engine, error) {
	masterKeyBytes, err := deriveMasterKey(cfg.Engine.MasterKeySource)
	if err != nil {
		return nil, err
	}
	secret, err := keymaterial.New(masterKeyBytes)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Enabled:           cfg.RateLimit.Enabled,
		RequestsPerMinute: int(cfg.RateLimit.RequestsPerSecond * 60),
		Burst:             cfg.RateLimit.Burst,
	})

	e := &Engine{
		masterKey:     secret,
		table:         operation.NewTable(cfg.Engine.MaxOperations),
		legacyAdapter: legacy.NewAdapter(cipher, subordinate),
		legacyEnabled: cfg.Engine.LegacyAdapterEnabled,
		limiter:       limiter,
		health:        health.NewChecker(),
		logger:        logging.NewLogger(cfg.Logging.Level == "debug"),
		maxOperations: cfg.Engine.MaxOperations,
	}

	e.health.RegisterCheck("operation_table", health.NewUsageCheck(
		"operation_table",
		cfg.Health.DegradedThreshold,
		func() (used, capacity int) { return e.table.Len(), e.maxOperations },
	))
	e.health.RegisterCheck("aead_key_usage", func(ctx context.Context) health.CheckResult {
		snap := operation.GCMHealth(gcmNonceRetention)
		st := health.StatusHealthy
		if snap.KeysNearLimit > 0 {
			st = health.StatusDegraded
		}
		return health.CheckResult{
			Name:   "aead_key_usage",
			Status: st,
			Message: fmt.Sprintf("%d/%d AES-GCM keys near NIST SP 800-38D usage limit, %d nonces tracked",
				snap.KeysNearLimit, snap.TrackedKeys, snap.TrackedNonces),
		}
	})
	e.health.MarkStarted()

	return e, nil
}

// deriveMasterKey implements EngineConfig.MasterKeySource: "random"
// generates a fresh AES-256 key at startup, "env" decodes 32
// base64-encoded bytes from KEYSTORE_MASTER_KEY.
func deriveMasterKey(source string) ([]byte, error) {
	switch source {
	case "env":
		encoded := os.Getenv("KEYSTORE_MASTER_KEY")
		if encoded == "" {
			return nil, fmt.Errorf("keystore: KEYSTORE_MASTER_KEY not set for master_key_source=env")
		}
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("keystore: invalid KEYSTORE_MASTER_KEY: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("keystore: KEYSTORE_MASTER_KEY must decode to 32 bytes, got %d", len(key))
		}
		return key, nil
	default: // "random"
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		return key, nil
	}
}

// Ready reports the engine's readiness, aggregating all registered checks.
func (e *Engine) Ready(ctx context.Context) health.Status {
	return health.AggregateStatus(e.health.Ready(ctx))
}

// classification labels which path serviced a blob, for metrics.
type classification struct {
	backend string
}

var (
	classNative        = classification{backend: metrics.BackendNative}
	classLegacyMigrate = classification{backend: metrics.BackendLegacyMigrate}
	classLegacyMirror  = classification{backend: metrics.BackendLegacyMirror}
)

// unsealResult carries everything downstream commands need after a
// blob has been classified and opened, regardless of which path
// produced it.
type unsealResult struct {
	class      classification
	unsealed   *blob.Unsealed
	nativeBlob []byte // re-sealed form, populated only for a migrated 'P' blob
	keyRef     []byte // opaque subordinate key reference, populated only for a 'Q' blob
}

// openBlob classifies and opens keyBlob, dispatching to the legacy
// adapter before attempting the native codec, per spec §4.8's
// "classifies incoming blobs" rule: a legacy sentinel must be checked
// before any other parsing is attempted.
func (e *Engine) openBlob(keyBlob []byte) (*unsealResult, error) {
	if sentinel, ok := blob.IsLegacy(keyBlob); ok {
		if !e.legacyEnabled {
			return nil, status.ErrInvalidKeyBlob
		}
		masterKeyBytes, err := e.masterKey.Bytes()
		if err != nil {
			return nil, status.ErrUnknownError
		}
		defer zero(masterKeyBytes)

		switch sentinel {
		case blob.SentinelSoftwareLegacy:
			nativeBlob, unsealed, err := e.legacyAdapter.MigrateSoftware(masterKeyBytes, keyBlob)
			if err != nil {
				return nil, err
			}
			return &unsealResult{class: classLegacyMigrate, unsealed: unsealed, nativeBlob: nativeBlob}, nil
		case blob.SentinelHardwareMirror:
			unsealed, err := e.legacyAdapter.OpenMirror(masterKeyBytes, keyBlob)
			if err != nil {
				return nil, err
			}
			return &unsealResult{class: classLegacyMirror, unsealed: unsealed, keyRef: unsealed.RawMaterial}, nil
		}
	}

	masterKeyBytes, err := e.masterKey.Bytes()
	if err != nil {
		return nil, status.ErrUnknownError
	}
	defer zero(masterKeyBytes)

	unsealed, err := blob.Unseal(masterKeyBytes, keyBlob)
	if err != nil {
		return nil, err
	}
	return &unsealResult{class: classNative, unsealed: unsealed}, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// combinedAuthSet unions hw and sw entries the way pkg/keys factories
// expect a single params set: hardware-enforced entries first, then
// software-enforced.
func combinedAuthSet(u *blob.Unsealed) *authset.Set {
	combined := u.HWEnforced.Clone()
	combined.UnionWith(u.SWEnforced)
	return combined
}

// keyFromUnsealed reconstructs a concrete keys.Key from raw material
// and its combined authorization set, dispatching on the ALGORITHM tag
// the way pkg/operation.BeginOperation dispatches on Go's concrete
// type — the two dispatches mirror each other since a Key's runtime
// type is exactly what its ALGORITHM tag names.
//
// This rehydrates an already-sealed key, not a fresh import: params
// comes from the blob's own hw_enforced/sw_enforced sets, already
// carrying the ORIGIN/CREATION_DATETIME pair recorded when the key was
// first generated or imported. It calls the keys.Rehydrate* factories
// rather than keys.Import*, so a Begin or ExportKey call against a
// long-lived blob doesn't re-run caller-asserted parameter validation
// or push a second, redundant provenance stamp onto the set.
func keyFromUnsealed(u *blob.Unsealed) (keys.Key, error) {
	params := combinedAuthSet(u)
	algVal, ok := params.GetTagValue(tag.Algorithm)
	if !ok {
		return nil, status.ErrUnsupportedAlgorithm
	}

	switch keys.Algorithm(algVal.U32) {
	case keys.AlgorithmRSA:
		return keys.RehydrateRSA(params, u.RawMaterial)
	case keys.AlgorithmECDSA:
		return keys.RehydrateECDSA(params, u.RawMaterial)
	case keys.AlgorithmAES:
		return keys.RehydrateAES(params, u.RawMaterial)
	case keys.AlgorithmHMAC:
		return keys.RehydrateHMAC(params, u.RawMaterial)
	default:
		return nil, status.ErrUnsupportedAlgorithm
	}
}

// withCommand wraps fn with the ambient concerns spec §4.7's expansion
// requires: correlation ID propagation, debug logging, rate limiting,
// and per-command metrics labeled by outcome.
// backend is a pointer so fn can narrow the classification once it has
// classified the blob it was handed (openBlob), letting metrics carry
// the actual backend that served the command rather than a guess made
// before the blob was even opened.
func (e *Engine) withCommand(ctx context.Context, op, callerToken string, backend *classification, fn func() error) error {
	ctx = correlation.WithCorrelationID(ctx, correlation.GetOrGenerate(ctx))
	e.logger.Command(op, correlation.GetCorrelationID(ctx))

	if err := e.limiter.Wait(ctx, callerToken); err != nil {
		return status.ErrUnknownError
	}

	start := time.Now()
	err := fn()
	duration := time.Since(start).Seconds()

	code := status.Of(err)
	st := metrics.StatusSuccess
	if err != nil {
		st = metrics.StatusError
		metrics.RecordError(op, backend.backend, string(code))
	}
	metrics.RecordOperation(op, backend.backend, st, duration)
	return err
}
