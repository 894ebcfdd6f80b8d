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

// Package validation provides the engine facade's non-null argument
// checking. Every facade command validates its caller-supplied
// out-pointers before doing any work; a null out-pointer for a
// collection-style result fails OUTPUT_PARAMETER_NULL rather than
// panicking or silently discarding the result.
package validation

import (
	"reflect"
	"strings"

	"github.com/basilisk-security/keystore/pkg/status"
)

// RequireOutPointer fails with status.ErrOutputParameterNull if ptr is
// nil. name labels the parameter at the call site only; the returned
// error is the bare sentinel and does not carry it.
func RequireOutPointer(name string, ptr interface{}) error {
	if ptr == nil || isNilPointer(ptr) {
		return status.ErrOutputParameterNull
	}
	return nil
}

// RequireOutPointers checks a batch of named out-pointers in map
// iteration order (which is unspecified) and returns
// status.ErrOutputParameterNull if any of them is nil, as one call
// instead of chaining individual RequireOutPointer checks.
func RequireOutPointers(named map[string]interface{}) error {
	for _, ptr := range named {
		if err := RequireOutPointer("", ptr); err != nil {
			return err
		}
	}
	return nil
}

// isNilPointer reports whether ptr holds a typed nil, e.g. a nil
// *authset.Set boxed in an interface{}. A plain `ptr == nil` check
// only catches an untyped nil interface, not a nil pointer of a
// concrete type passed through an interface{} parameter.
func isNilPointer(ptr interface{}) bool {
	v := reflect.ValueOf(ptr)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// SanitizeForLog sanitizes a string for safe logging (prevents log injection).
func SanitizeForLog(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)

	if len(s) > 1000 {
		s = s[:1000] + "...[truncated]"
	}

	return s
}
