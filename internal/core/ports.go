package core

import (
	"context"
	"crypto"
)

// KeyResolver turns a token key ID into a public verification key from
// the trust anchor's current key set.
// Implementations: fetch-per-lookup Source, TTL CachingSource.
type KeyResolver interface {
	// ResolveKey returns the public key whose key set entry matches kid
	// exactly. It reports *Failure values with kind KindKeyNotFound,
	// KindKeySetUnavailable or KindKeySetEmpty.
	ResolveKey(ctx context.Context, kid string) (crypto.PublicKey, error)
}

// TokenValidator checks a raw bearer token end to end: structure,
// signature, validity window, issuer.
type TokenValidator interface {
	// Validate returns the token's claims on success, or a *Failure
	// describing the first check that did not hold.
	Validate(ctx context.Context, raw string) (Claims, error)
}

// Recorder persists one Event per gate decision.
type Recorder interface {
	Record(event Event) error
	Close() error
}
