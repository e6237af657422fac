package account

import (
	"fmt"
	"strings"
)

// ErrorKind classifies why a call against an account was rejected
type ErrorKind string

const (
	KindDecode                      ErrorKind = "decode_error"
	KindUnsupportedKeyType          ErrorKind = "unsupported_key_type"
	KindSignatureVerificationFailed ErrorKind = "signature_verification_failed"
	KindInvalidNonce                ErrorKind = "invalid_nonce"
)

// Stages at which a decode failure can occur
const (
	StageEnvelope  = "envelope"
	StageAuthInfo  = "auth_info"
	StageBody      = "body"
	StageSignDoc   = "sign_doc"
	StagePublicKey = "public_key"
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrDecode                      = &Error{Kind: KindDecode}
	ErrUnsupportedKeyType          = &Error{Kind: KindUnsupportedKeyType}
	ErrSignatureVerificationFailed = &Error{Kind: KindSignatureVerificationFailed}
	ErrInvalidNonce                = &Error{Kind: KindInvalidNonce}
)

// Error is a terminal rejection of a call. Fields beyond Kind are set only
// when they apply to the kind.
type Error struct {
	Kind ErrorKind

	// Stage names the structure that failed to decode (KindDecode)
	Stage string

	// AlgorithmID is the offending key type (KindUnsupportedKeyType,
	// KindSignatureVerificationFailed)
	AlgorithmID string

	// Expected and Declared sequences (KindInvalidNonce)
	Expected uint64
	Declared uint64

	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	switch e.Kind {
	case KindDecode:
		if e.Stage != "" {
			fmt.Fprintf(&sb, " (%s)", e.Stage)
		}
	case KindUnsupportedKeyType, KindSignatureVerificationFailed:
		if e.AlgorithmID != "" {
			fmt.Fprintf(&sb, " (algorithm %q)", e.AlgorithmID)
		}
	case KindInvalidNonce:
		fmt.Fprintf(&sb, ": expected sequence %d, got %d", e.Expected, e.Declared)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

func decodeError(stage string, err error) *Error {
	return &Error{Kind: KindDecode, Stage: stage, Err: err}
}

func unsupportedKeyType(algorithmID string) *Error {
	return &Error{Kind: KindUnsupportedKeyType, AlgorithmID: algorithmID}
}

func signatureVerificationFailed(algorithmID string, err error) *Error {
	return &Error{Kind: KindSignatureVerificationFailed, AlgorithmID: algorithmID, Err: err}
}

func invalidNonce(expected, declared uint64) *Error {
	return &Error{Kind: KindInvalidNonce, Expected: expected, Declared: declared}
}
