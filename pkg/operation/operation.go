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

// Package operation implements the cryptographic operation state
// machine (spec §4.5): Begin/Update/Finish/Abort against a handle
// table, and the per-algorithm operation factories of spec §4.6.
package operation

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/basilisk-security/keystore/pkg/authset"
	"github.com/basilisk-security/keystore/pkg/keys"
)

// State is a position in the READY->ACTIVE->DONE state machine.
// Operations are only ever observed externally in ACTIVE (between
// Begin and Finish/Abort) or DONE (handle released); READY exists
// only conceptually, before a handle is allocated.
type State int

const (
	StateActive State = iota
	StateDone
)

// Op is the capability every algorithm-specific operation type
// implements. Update and Finish operate on already-validated,
// already-unsealed key material; parameter validation happens once,
// in the per-algorithm Begin path, matching spec §4.6's "operation
// factories" split between one-time setup and repeated Update calls.
type Op interface {
	Purpose() keys.Purpose
	Update(input []byte, params *authset.Set) (output []byte, err error)

	// Finish consumes final_input. sig carries the caller-supplied
	// signature for a VERIFY operation; it is ignored by every other
	// purpose. outParams carries generated output like TAG_AEAD_TAG on
	// an AEAD encrypt; it is nil whenever an operation has nothing to
	// report back.
	Finish(final []byte, sig []byte, params *authset.Set) (output []byte, outParams *authset.Set, err error)
}

// entry pairs an Op with the mutex that serializes calls against its
// handle, per spec §5: "No operation's Update may run concurrently
// with another call against the same handle."
type entry struct {
	mu    sync.Mutex
	op    Op
	state State
}

// Table is the process-wide handle -> Operation mapping described in
// spec §5. Lookup, insertion, and removal are guarded by a single
// mutex; the critical section only ever touches the map itself, so
// cross-handle Update/Finish calls proceed in parallel once each has
// acquired its own entry's mutex.
type Table struct {
	mu      sync.Mutex
	entries map[uint64]*entry
	max     int
}

// NewTable constructs a handle table that rejects Begin once maxOps
// operations are simultaneously in flight, per spec §5's "maximum
// number of concurrent operations ... must be finite" resource bound.
func NewTable(maxOps int) *Table {
	return &Table{entries: make(map[uint64]*entry), max: maxOps}
}

// Len reports the number of currently active operations.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// begin allocates a fresh, collision-free 64-bit handle and registers
// op under it, failing ErrTooManyOperations if the table is at
// capacity.
func (t *Table) begin(op Op) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) >= t.max {
		return 0, ErrTooManyOperations
	}

	for {
		handle, err := randomHandle()
		if err != nil {
			return 0, err
		}
		if _, exists := t.entries[handle]; exists {
			continue
		}
		t.entries[handle] = &entry{op: op, state: StateActive}
		return handle, nil
	}
}

func randomHandle() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// withEntry locks the handle's entry for the duration of fn, failing
// ErrInvalidOperationHandle for an unknown or already-DONE handle.
func (t *Table) withEntry(handle uint64, fn func(*entry) ([]byte, *authset.Set, error)) ([]byte, *authset.Set, error) {
	t.mu.Lock()
	e, ok := t.entries[handle]
	t.mu.Unlock()
	if !ok {
		return nil, nil, ErrInvalidOperationHandle
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDone {
		return nil, nil, ErrInvalidOperationHandle
	}
	return fn(e)
}

// release marks handle DONE and removes it from the table. Safe to
// call from inside withEntry's fn, since the table mutex and the
// entry mutex are distinct locks.
func (t *Table) release(handle uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, handle)
}

// Update advances the operation identified by handle.
func (t *Table) Update(handle uint64, input []byte, params *authset.Set) ([]byte, error) {
	out, _, err := t.withEntry(handle, func(e *entry) ([]byte, *authset.Set, error) {
		out, err := e.op.Update(input, params)
		if err != nil {
			e.state = StateDone
			t.release(handle)
		}
		return out, nil, err
	})
	return out, err
}

// Finish completes the operation identified by handle and releases
// it regardless of outcome, per spec §4.5.
func (t *Table) Finish(handle uint64, final []byte, sig []byte, params *authset.Set) ([]byte, *authset.Set, error) {
	out, outParams, err := t.withEntry(handle, func(e *entry) ([]byte, *authset.Set, error) {
		e.state = StateDone
		return e.op.Finish(final, sig, params)
	})
	t.release(handle)
	return out, outParams, err
}

// Abort releases handle without emitting output. A second Abort on
// the same handle fails ErrInvalidOperationHandle.
func (t *Table) Abort(handle uint64) error {
	_, _, err := t.withEntry(handle, func(e *entry) ([]byte, *authset.Set, error) {
		e.state = StateDone
		return nil, nil, nil
	})
	if err != nil {
		return err
	}
	t.release(handle)
	return nil
}

// Begin registers op under a fresh handle.
func (t *Table) Begin(op Op) (uint64, error) {
	return t.begin(op)
}
