package core

import (
	"errors"
	"fmt"
)

// Kind classifies why the gate refused or could not evaluate a request.
type Kind string

const (
	// KindCredentialMissing means the request carried no usable bearer
	// credential: header absent, a non-bearer scheme, or an empty token.
	KindCredentialMissing Kind = "credential_missing"

	// KindMalformedToken means the credential is not structurally a JWT,
	// or its header names no key to verify against.
	KindMalformedToken Kind = "malformed_token"

	// KindKeyNotFound means no entry in the trust anchor's key set
	// matches the token's key ID.
	KindKeyNotFound Kind = "key_not_found"

	// KindKeySetUnavailable means the key set could not be fetched or
	// the document was not well-formed.
	KindKeySetUnavailable Kind = "key_set_unavailable"

	// KindKeySetEmpty means the key set was fetched but yielded no
	// usable keys.
	KindKeySetEmpty Kind = "key_set_empty"

	// KindInvalidSignature means cryptographic verification failed,
	// including tokens signed with an algorithm other than the
	// configured one.
	KindInvalidSignature Kind = "invalid_signature"

	// KindTokenExpired means the token is outside its validity window,
	// or carries no usable expiry at all.
	KindTokenExpired Kind = "token_expired"

	// KindIssuerMismatch means the token was issued by a party other
	// than the trusted issuer.
	KindIssuerMismatch Kind = "issuer_mismatch"

	// KindInternal covers unexpected evaluation errors.
	KindInternal Kind = "internal"
)

// Transient reports whether the failure is an infrastructure problem
// rather than a defect of the presented credential. Transient failures
// surface with a server-class status so callers know a retry can succeed.
func (k Kind) Transient() bool {
	switch k {
	case KindKeySetUnavailable, KindKeySetEmpty, KindInternal:
		return true
	}
	return false
}

// Failure is the error value gate components report refusals with. It
// wraps the underlying cause so callers can errors.Is/As through it.
type Failure struct {
	Kind Kind
	Err  error
}

func NewFailure(kind Kind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// Failf is shorthand for NewFailure with a formatted cause. The format
// supports %w.
func Failf(kind Kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf extracts the failure kind from an error chain. Errors carrying
// no Failure classify as KindInternal.
func KindOf(err error) Kind {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}
	return KindInternal
}
