package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind_Transient(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		// infrastructure problems, a retry can succeed
		{KindKeySetUnavailable, true},
		{KindKeySetEmpty, true},
		{KindInternal, true},

		// defects of the presented credential
		{KindCredentialMissing, false},
		{KindMalformedToken, false},
		{KindKeyNotFound, false},
		{KindInvalidSignature, false},
		{KindTokenExpired, false},
		{KindIssuerMismatch, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Transient(); got != tt.want {
				t.Errorf("Transient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "Direct Failure",
			err:  NewFailure(KindTokenExpired, errors.New("exp in the past")),
			want: KindTokenExpired,
		},
		{
			name: "Wrapped Failure",
			err:  fmt.Errorf("evaluating token: %w", Failf(KindKeyNotFound, "no key %q", "abc")),
			want: KindKeyNotFound,
		},
		{
			name: "Plain Error",
			err:  errors.New("something else entirely"),
			want: KindInternal,
		},
		{
			name: "Nil Error",
			err:  nil,
			want: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFailf_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Failf(KindKeySetUnavailable, "fetching key set: %w", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is() should find the wrapped cause")
	}

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("errors.As() should find the Failure")
	}
	if failure.Kind != KindKeySetUnavailable {
		t.Errorf("Kind = %v, want %v", failure.Kind, KindKeySetUnavailable)
	}
}

func TestFailure_Error(t *testing.T) {
	err := NewFailure(KindIssuerMismatch, errors.New("issued by someone else"))
	want := "issuer_mismatch: issued by someone else"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := NewFailure(KindInternal, nil)
	if bare.Error() != "internal" {
		t.Errorf("Error() without cause = %q, want %q", bare.Error(), "internal")
	}
}
