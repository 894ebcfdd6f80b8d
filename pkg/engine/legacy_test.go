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

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/blob"
	"github.com/basilisk-security/keystore/pkg/keys"
	"github.com/basilisk-security/keystore/pkg/tag"
)

// fakeLegacyCipher decodes a trivial fixture: it ignores the envelope
// framing entirely and returns a fixed Unsealed regardless of sentinel.
type fakeLegacyCipher struct {
	unsealed *blob.Unsealed
}

func (f *fakeLegacyCipher) OpenLegacy(masterKey []byte, raw []byte) (*blob.Unsealed, error) {
	return f.unsealed, nil
}

type fakeSubordinate struct {
	beginCalls, updateCalls, finishCalls int
}

func (f *fakeSubordinate) Begin(keyRef []byte, purpose keys.Purpose, params *authset.Set) ([]byte, *authset.Set, error) {
	f.beginCalls++
	return []byte("sub-handle"), authset.New(), nil
}

func (f *fakeSubordinate) Update(subHandle []byte, input []byte, params *authset.Set) ([]byte, error) {
	f.updateCalls++
	return input, nil
}

func (f *fakeSubordinate) Finish(subHandle []byte, final []byte, sig []byte, params *authset.Set) ([]byte, *authset.Set, error) {
	f.finishCalls++
	return append([]byte("mirrored:"), final...), authset.New(), nil
}

func softwareLegacyFixture() *blob.Unsealed {
	hw := authset.New()
	hw.Push(tag.Algorithm, tag.EnumValue(uint32(keys.AlgorithmAES)))
	hw.Push(tag.KeySize, tag.UintValue(256))
	hw.Push(tag.Purpose, tag.EnumRepValue(uint32(keys.PurposeEncrypt)))
	hw.Push(tag.Purpose, tag.EnumRepValue(uint32(keys.PurposeDecrypt)))
	hw.Push(tag.BlockMode, tag.EnumRepValue(uint32(keys.BlockModeGCM)))
	hw.Push(tag.CallerNonce, tag.BoolValue())
	sw := authset.New()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	return &blob.Unsealed{HWEnforced: hw, SWEnforced: sw, RawMaterial: raw}
}

func mirrorFixture() *blob.Unsealed {
	hw := authset.New()
	hw.Push(tag.Algorithm, tag.EnumValue(uint32(keys.AlgorithmRSA)))
	sw := authset.New()
	return &blob.Unsealed{HWEnforced: hw, SWEnforced: sw, RawMaterial: []byte("subordinate-key-ref")}
}

func TestEngine_LegacySoftwareBlob_MigratesAndDoesNotDelegate(t *testing.T) {
	cfg := testConfig()
	cipher := &fakeLegacyCipher{unsealed: softwareLegacyFixture()}
	e, err := New(cfg, nil, cipher)
	require.NoError(t, err)

	legacyBlob := []byte{'P', 0, 1, 2, 3}
	chars, err := e.GetCharacteristics(context.Background(), "caller-1", legacyBlob)
	require.NoError(t, err)
	assert.True(t, chars.HWEnforced.Contains(tag.Algorithm))
	assert.EqualValues(t, 0, e.legacyAdapter.DelegatedCalls())

	nonce := make([]byte, 12)
	beginParams := authset.NewBuilder().BlockMode(uint32(keys.BlockModeGCM)).Nonce(nonce).Build()
	handle, _, err := e.Begin(context.Background(), "caller-1", legacyBlob, keys.PurposeEncrypt, beginParams)
	require.NoError(t, err)

	ciphertext, _, err := e.Finish(context.Background(), "caller-1", handle, []byte("migrated payload"), nil, authset.New())
	require.NoError(t, err)
	assert.NotEmpty(t, ciphertext)
	assert.EqualValues(t, 0, e.legacyAdapter.DelegatedCalls())
}

func TestEngine_LegacyMirrorBlob_DelegatesEveryPrimitiveCall(t *testing.T) {
	cfg := testConfig()
	cipher := &fakeLegacyCipher{unsealed: mirrorFixture()}
	sub := &fakeSubordinate{}
	e, err := New(cfg, sub, cipher)
	require.NoError(t, err)

	legacyBlob := []byte{'Q', 0, 1, 2, 3}

	chars, err := e.GetCharacteristics(context.Background(), "caller-1", legacyBlob)
	require.NoError(t, err)
	assert.True(t, chars.HWEnforced.Contains(tag.Algorithm))
	assert.EqualValues(t, 0, e.legacyAdapter.DelegatedCalls())

	handle, _, err := e.Begin(context.Background(), "caller-1", legacyBlob, keys.PurposeSign, authset.New())
	require.NoError(t, err)
	assert.EqualValues(t, 1, e.legacyAdapter.DelegatedCalls())

	_, err = e.Update(context.Background(), "caller-1", handle, []byte("chunk"), authset.New())
	require.NoError(t, err)
	assert.EqualValues(t, 2, e.legacyAdapter.DelegatedCalls())

	out, _, err := e.Finish(context.Background(), "caller-1", handle, []byte("final"), nil, authset.New())
	require.NoError(t, err)
	assert.Equal(t, "mirrored:final", string(out))
	assert.EqualValues(t, 3, e.legacyAdapter.DelegatedCalls())

	assert.Equal(t, 1, sub.beginCalls)
	assert.Equal(t, 1, sub.updateCalls)
	assert.Equal(t, 1, sub.finishCalls)
}

func TestEngine_LegacyDisabled_FailsClosedOnLegacyBlob(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.LegacyAdapterEnabled = false
	e, err := New(cfg, nil, &fakeLegacyCipher{unsealed: softwareLegacyFixture()})
	require.NoError(t, err)

	_, err = e.GetCharacteristics(context.Background(), "caller-1", []byte{'P', 0})
	assert.ErrorIs(t, err, ErrInvalidKeyBlob)
}
