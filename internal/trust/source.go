package trust

import (
	"context"
	"crypto"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/mkuran/gatewarden/internal/core"
)

// ResolveKey finds the key set entry whose key ID equals kid and
// reconstructs its public key. Matching is exact and case-sensitive;
// there is no fallback to a "default" key. A matching entry whose
// material cannot be reconstructed counts as not found.
func ResolveKey(set jwk.Set, kid string) (crypto.PublicKey, error) {
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, core.Failf(core.KindKeyNotFound, "no key with id %q in key set", kid)
	}

	var raw any
	if err := key.Raw(&raw); err != nil {
		return nil, core.Failf(core.KindKeyNotFound, "key %q is not usable: %w", kid, err)
	}
	return raw, nil
}

// Source resolves verification keys by fetching a fresh key set for
// every lookup, the gate's default. Wrap it in a CachingSource to reuse
// snapshots between evaluations.
type Source struct {
	fetcher *Fetcher
}

func NewSource(fetcher *Fetcher) *Source {
	return &Source{fetcher: fetcher}
}

var _ core.KeyResolver = (*Source)(nil)

// ResolveKey implements core.KeyResolver.
func (s *Source) ResolveKey(ctx context.Context, kid string) (crypto.PublicKey, error) {
	set, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return ResolveKey(set, kid)
}
