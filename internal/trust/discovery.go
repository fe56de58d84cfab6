package trust

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// DiscoverKeySetURL reads the issuer's OIDC discovery document and
// returns its advertised jwks_uri. Used at startup only; per-request
// evaluation never touches the discovery endpoint.
func DiscoverKeySetURL(ctx context.Context, issuer string) (string, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return "", fmt.Errorf("discovering issuer %q: %w", issuer, err)
	}

	var metadata struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&metadata); err != nil {
		return "", fmt.Errorf("reading discovery document: %w", err)
	}
	if metadata.JWKSURI == "" {
		return "", fmt.Errorf("issuer %q advertises no jwks_uri", issuer)
	}
	return metadata.JWKSURI, nil
}
