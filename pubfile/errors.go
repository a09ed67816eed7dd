package pubfile

import (
	"errors"

	"github.com/zcyzhu/node-guardtime/hashalg"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	KindInvalidArgument        Kind = "InvalidArgument"
	KindInvalidFormat          Kind = "InvalidFormat"
	KindUnsupportedFormat      Kind = "UnsupportedFormat"
	KindUntrustedHashAlgorithm Kind = "UntrustedHashAlgorithm"
	KindCryptoFailure          Kind = "CryptoFailure"
	KindOutOfMemory            Kind = "OutOfMemory"
	KindInvalidSignature       Kind = "InvalidSignature"
	KindTrustPointNotFound     Kind = "TrustPointNotFound"
	KindUnknown                Kind = "UnknownError"
)

// Error is the package's structured error type.
//
// RuleID is a stable identifier (e.g., PUBFILE-HDR-003, PUBFILE-CELL-002)
// naming the violated layout rule or failed check.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of a structured error, KindUnknown for any other
// non-nil error, and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return KindUnknown
	}
	return e.Kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}

// IsTrustPointNotFound reports whether a lookup failed only because no
// publication matches the requested time. Callers typically fall back to
// a newer publications file in that case.
func IsTrustPointNotFound(err error) bool {
	return IsKind(err, KindTrustPointNotFound)
}

// imprintKind classifies an imprint failure from the hashalg package.
func imprintKind(err error) Kind {
	if errors.Is(err, hashalg.ErrUnsupported) {
		return KindUntrustedHashAlgorithm
	}
	return KindInvalidFormat
}
