package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/mkuran/gatewarden/internal/core"
)

// Validator checks bearer tokens against a single trusted issuer. The
// accepted signature algorithm comes from configuration; the token
// header only ever names which key to look up, never how to verify.
type Validator struct {
	keys      core.KeyResolver
	issuer    string
	algorithm string
	audience  string
	now       func() time.Time
}

// Option tweaks a Validator.
type Option func(*Validator)

// WithAudience additionally requires the token's "aud" claim to contain
// the given audience.
func WithAudience(audience string) Option {
	return func(v *Validator) { v.audience = audience }
}

// WithClock overrides the time source used for validity window checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// NewValidator builds a Validator that resolves verification keys
// through keys and accepts only tokens signed with algorithm and issued
// by issuer.
func NewValidator(keys core.KeyResolver, issuer, algorithm string, opts ...Option) *Validator {
	v := &Validator{
		keys:      keys,
		issuer:    issuer,
		algorithm: algorithm,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var _ core.TokenValidator = (*Validator)(nil)

// Validate implements core.TokenValidator. Checks run in a fixed order:
// structural decode, key resolution, signature, validity window, issuer,
// audience. The first failed check decides the reported kind.
func (v *Validator) Validate(ctx context.Context, raw string) (core.Claims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, v.keyfunc(ctx),
		jwt.WithValidMethods([]string{v.algorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, v.classify(err)
	}

	if err := v.checkIssuer(claims); err != nil {
		return nil, err
	}
	if err := v.checkAudience(claims); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Debug().
		Str("subject", core.Claims(claims).Subject()).
		Msg("token.validated")

	return core.Claims(claims), nil
}

// keyfunc looks up the verification key named by the token's kid header.
// It runs after the algorithm allow-list check, so tokens declaring any
// other algorithm never reach the key set.
func (v *Validator) keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, core.Failf(core.KindMalformedToken, "token header names no key id")
		}
		return v.keys.ResolveKey(ctx, kid)
	}
}

// classify maps golang-jwt parse errors onto the failure taxonomy.
// Failures reported by the key resolver (or the keyfunc itself) pass
// through unchanged.
func (v *Validator) classify(err error) error {
	var failure *core.Failure
	if errors.As(err, &failure) {
		return failure
	}

	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return core.Failf(core.KindMalformedToken, "decoding token: %w", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return core.Failf(core.KindInvalidSignature, "verifying signature: %w", err)
	case errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return core.Failf(core.KindTokenExpired, "checking validity window: %w", err)
	default:
		return core.Failf(core.KindInvalidSignature, "verifying token: %w", err)
	}
}

func (v *Validator) checkIssuer(claims jwt.MapClaims) error {
	issuer, err := claims.GetIssuer()
	if err != nil || issuer == "" {
		return core.Failf(core.KindIssuerMismatch, "token carries no issuer claim")
	}
	if issuer != v.issuer {
		return core.Failf(core.KindIssuerMismatch,
			"token issued by %q, trusted issuer is %q", issuer, v.issuer)
	}
	return nil
}

func (v *Validator) checkAudience(claims jwt.MapClaims) error {
	if v.audience == "" {
		return nil
	}
	audiences, err := claims.GetAudience()
	if err != nil {
		return core.Failf(core.KindIssuerMismatch, "reading token audience: %w", err)
	}
	for _, audience := range audiences {
		if audience == v.audience {
			return nil
		}
	}
	return core.Failf(core.KindIssuerMismatch, "token audience does not include %q", v.audience)
}

// KeyID returns the key ID named in the token's header without verifying
// anything about the token. Diagnostics only.
func KeyID(raw string) string {
	parser := jwt.NewParser()
	t, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return ""
	}
	kid, _ := t.Header["kid"].(string)
	return kid
}
