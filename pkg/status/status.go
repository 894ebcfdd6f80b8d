// Package status defines the closed set of result codes returned across
// the keystore engine's command surface. Every exported sentinel here
// implements error, so callers compare outcomes with errors.Is the same
// way they would against any other package's error variables; internal
// packages wrap these with fmt.Errorf("%s: %w", ...) for context without
// changing what errors.Is sees.
package status

import "errors"

// Code identifies one outcome from the closed taxonomy in spec §6.2.
// It exists alongside the sentinel error variables below so tests and
// logs can print a stable short name instead of a wrapped error string.
type Code string

const (
	CodeOK                         Code = "OK"
	CodeUnsupportedPurpose         Code = "UNSUPPORTED_PURPOSE"
	CodeUnsupportedAlgorithm       Code = "UNSUPPORTED_ALGORITHM"
	CodeUnsupportedKeySize         Code = "UNSUPPORTED_KEY_SIZE"
	CodeUnsupportedBlockMode       Code = "UNSUPPORTED_BLOCK_MODE"
	CodeUnsupportedPaddingMode     Code = "UNSUPPORTED_PADDING_MODE"
	CodeUnsupportedDigest          Code = "UNSUPPORTED_DIGEST"
	CodeUnsupportedMACLength       Code = "UNSUPPORTED_MAC_LENGTH"
	CodeUnsupportedKeyFormat       Code = "UNSUPPORTED_KEY_FORMAT"
	CodeIncompatibleDigest         Code = "INCOMPATIBLE_DIGEST"
	CodeIncompatiblePaddingMode    Code = "INCOMPATIBLE_PADDING_MODE"
	CodeIncompatiblePurpose        Code = "INCOMPATIBLE_PURPOSE"
	CodeInvalidInputLength         Code = "INVALID_INPUT_LENGTH"
	CodeInvalidArgument            Code = "INVALID_ARGUMENT"
	CodeInvalidNonce               Code = "INVALID_NONCE"
	CodeCallerNonceProhibited      Code = "CALLER_NONCE_PROHIBITED"
	CodeInvalidOperationHandle     Code = "INVALID_OPERATION_HANDLE"
	CodeInvalidKeyBlob             Code = "INVALID_KEY_BLOB"
	CodeImportParameterMismatch    Code = "IMPORT_PARAMETER_MISMATCH"
	CodeVerificationFailed         Code = "VERIFICATION_FAILED"
	CodeOutputParameterNull        Code = "OUTPUT_PARAMETER_NULL"
	CodeTooManyOperations          Code = "TOO_MANY_OPERATIONS"
	CodeUnknownError               Code = "UNKNOWN_ERROR"
	CodeInvalidTag                 Code = "INVALID_TAG"
)

// Sentinel errors, one per Code above except CodeOK. Compare with
// errors.Is; do not compare error strings directly.
var (
	ErrUnsupportedPurpose      = errors.New("keystore: unsupported purpose")
	ErrUnsupportedAlgorithm    = errors.New("keystore: unsupported algorithm")
	ErrUnsupportedKeySize      = errors.New("keystore: unsupported key size")
	ErrUnsupportedBlockMode    = errors.New("keystore: unsupported block mode")
	ErrUnsupportedPaddingMode  = errors.New("keystore: unsupported padding mode")
	ErrUnsupportedDigest       = errors.New("keystore: unsupported digest")
	ErrUnsupportedMACLength    = errors.New("keystore: unsupported MAC length")
	ErrUnsupportedKeyFormat    = errors.New("keystore: unsupported key format")
	ErrIncompatibleDigest      = errors.New("keystore: incompatible digest")
	ErrIncompatiblePaddingMode = errors.New("keystore: incompatible padding mode")
	ErrIncompatiblePurpose     = errors.New("keystore: incompatible purpose")
	ErrInvalidInputLength      = errors.New("keystore: invalid input length")
	ErrInvalidArgument         = errors.New("keystore: invalid argument")
	ErrInvalidNonce            = errors.New("keystore: invalid nonce")
	ErrCallerNonceProhibited   = errors.New("keystore: caller nonce prohibited")
	ErrInvalidOperationHandle  = errors.New("keystore: invalid operation handle")
	ErrInvalidKeyBlob          = errors.New("keystore: invalid key blob")
	ErrImportParameterMismatch = errors.New("keystore: import parameter mismatch")
	ErrVerificationFailed      = errors.New("keystore: verification failed")
	ErrOutputParameterNull     = errors.New("keystore: output parameter null")
	ErrTooManyOperations       = errors.New("keystore: too many operations")
	ErrUnknownError            = errors.New("keystore: unknown error")
	ErrInvalidTag              = errors.New("keystore: invalid tag")
)

var byCode = map[Code]error{
	CodeUnsupportedPurpose:      ErrUnsupportedPurpose,
	CodeUnsupportedAlgorithm:    ErrUnsupportedAlgorithm,
	CodeUnsupportedKeySize:      ErrUnsupportedKeySize,
	CodeUnsupportedBlockMode:    ErrUnsupportedBlockMode,
	CodeUnsupportedPaddingMode:  ErrUnsupportedPaddingMode,
	CodeUnsupportedDigest:       ErrUnsupportedDigest,
	CodeUnsupportedMACLength:    ErrUnsupportedMACLength,
	CodeUnsupportedKeyFormat:    ErrUnsupportedKeyFormat,
	CodeIncompatibleDigest:      ErrIncompatibleDigest,
	CodeIncompatiblePaddingMode: ErrIncompatiblePaddingMode,
	CodeIncompatiblePurpose:     ErrIncompatiblePurpose,
	CodeInvalidInputLength:      ErrInvalidInputLength,
	CodeInvalidArgument:         ErrInvalidArgument,
	CodeInvalidNonce:            ErrInvalidNonce,
	CodeCallerNonceProhibited:   ErrCallerNonceProhibited,
	CodeInvalidOperationHandle:  ErrInvalidOperationHandle,
	CodeInvalidKeyBlob:          ErrInvalidKeyBlob,
	CodeImportParameterMismatch: ErrImportParameterMismatch,
	CodeVerificationFailed:      ErrVerificationFailed,
	CodeOutputParameterNull:     ErrOutputParameterNull,
	CodeTooManyOperations:       ErrTooManyOperations,
	CodeUnknownError:            ErrUnknownError,
	CodeInvalidTag:              ErrInvalidTag,
}

var byError = func() map[error]Code {
	m := make(map[error]Code, len(byCode))
	for c, err := range byCode {
		m[err] = c
	}
	return m
}()

// Of maps err onto the closed taxonomy by walking its error chain
// against the known sentinels. A nil error maps to CodeOK; an error
// that matches none of the sentinels maps to CodeUnknownError, mirroring
// spec §7's rule that unclassifiable primitive-layer failures surface
// as UNKNOWN_ERROR rather than propagate raw.
func Of(err error) Code {
	if err == nil {
		return CodeOK
	}
	for sentinel, code := range byError {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknownError
}

// Error returns the canonical sentinel for a Code, or ErrUnknownError
// if the code is not recognized.
func (c Code) Error() error {
	if err, ok := byCode[c]; ok {
		return err
	}
	return ErrUnknownError
}

func (c Code) String() string { return string(c) }
