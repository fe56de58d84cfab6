package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/viper"
)

// Viper keys for environment and flag overrides. With the GATEWARDEN env
// prefix bound, "cache.ttl" becomes GATEWARDEN_CACHE_TTL and so on.
const (
	IssuerKey           = "issuer"
	KeySetURLKey        = "key_set_url"
	DiscoverKeySetKey   = "discover_key_set"
	AlgorithmKey        = "algorithm"
	AudienceKey         = "audience"
	PrincipalClaimKey   = "principal_claim"
	DefaultPrincipalKey = "default_principal"
	FetchTimeoutKey     = "fetch_timeout"
	CacheEnabledKey     = "cache.enabled"
	CacheTTLKey         = "cache.ttl"
	AuditTypeKey        = "audit.type"
	AuditPathKey        = "audit.path"
	ListenKey           = "listen"
)

// WellKnownKeySetPath is where issuers conventionally publish their JWKS
// document.
const WellKnownKeySetPath = "/.well-known/jwks.json"

const (
	defaultAlgorithm      = "RS256"
	defaultPrincipal      = "user"
	defaultPrincipalClaim = "sub"
	defaultFetchTimeout   = 10 * time.Second
	defaultCacheTTL       = 5 * time.Minute
	defaultListen         = ":8080"
)

// Settings is everything the gate needs to evaluate requests. It is
// built once at startup and injected explicitly; nothing consults
// ambient globals at evaluation time.
type Settings struct {
	// Issuer is the trusted token issuer, e.g. the full URL of a
	// Cognito user pool. Only tokens whose "iss" claim equals exactly
	// this string are accepted.
	Issuer string `yaml:"issuer"`

	// KeySetURL overrides where the issuer's JWKS document is fetched
	// from. Empty derives "{issuer}/.well-known/jwks.json".
	KeySetURL string `yaml:"key_set_url"`

	// DiscoverKeySet resolves the key set URL from the issuer's OIDC
	// discovery document at startup instead of the well-known path.
	DiscoverKeySet bool `yaml:"discover_key_set"`

	// Algorithm is the only signature algorithm accepted for incoming
	// tokens. The token header never gets a vote.
	Algorithm string `yaml:"algorithm"`

	// Audience, when set, must be contained in the token's "aud" claim.
	Audience string `yaml:"audience"`

	// PrincipalClaim names the claim used as the principal of allowed
	// requests.
	PrincipalClaim string `yaml:"principal_claim"`

	// DefaultPrincipal is used when the principal claim is absent, and
	// for every denial.
	DefaultPrincipal string `yaml:"default_principal"`

	// FetchTimeout bounds a single key set fetch.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// Cache controls key set snapshot reuse between evaluations.
	Cache CacheSettings `yaml:"cache"`

	// Audit selects the decision event sink.
	Audit AuditSettings `yaml:"audit"`

	// Listen is the dev harness bind address.
	Listen string `yaml:"listen"`
}

// CacheSettings controls key set snapshot reuse. Disabled, every
// evaluation fetches a fresh key set.
type CacheSettings struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// AuditSettings selects and configures the decision event sink.
type AuditSettings struct {
	// Type is one of "log", "file", "memory" or "noop".
	Type string `yaml:"type"`

	// Config captures sink-specific fields, e.g. "path" for type
	// "file".
	Config map[string]any `yaml:",inline"`
}

// Default returns Settings with every optional field at its default.
func Default() Settings {
	return Settings{
		Algorithm:        defaultAlgorithm,
		PrincipalClaim:   defaultPrincipalClaim,
		DefaultPrincipal: defaultPrincipal,
		FetchTimeout:     defaultFetchTimeout,
		Cache:            CacheSettings{TTL: defaultCacheTTL},
		Audit:            AuditSettings{Type: "log"},
		Listen:           defaultListen,
	}
}

// Load reads Settings from the YAML file at path (skipped when path is
// empty), applies environment overrides and validates the result.
func Load(path string) (*Settings, error) {
	settings := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnv(&settings)

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &settings, nil
}

// FromEnv builds Settings purely from GATEWARDEN_* environment
// variables, the configuration surface of the Lambda deployment.
func FromEnv() (*Settings, error) {
	return Load("")
}

// applyEnv lets viper-bound values (env, flags) override file values.
func applyEnv(s *Settings) {
	if v := viper.GetString(IssuerKey); v != "" {
		s.Issuer = v
	}
	if v := viper.GetString(KeySetURLKey); v != "" {
		s.KeySetURL = v
	}
	if viper.IsSet(DiscoverKeySetKey) {
		s.DiscoverKeySet = viper.GetBool(DiscoverKeySetKey)
	}
	if v := viper.GetString(AlgorithmKey); v != "" {
		s.Algorithm = v
	}
	if v := viper.GetString(AudienceKey); v != "" {
		s.Audience = v
	}
	if v := viper.GetString(PrincipalClaimKey); v != "" {
		s.PrincipalClaim = v
	}
	if v := viper.GetString(DefaultPrincipalKey); v != "" {
		s.DefaultPrincipal = v
	}
	if v := viper.GetDuration(FetchTimeoutKey); v > 0 {
		s.FetchTimeout = v
	}
	if viper.IsSet(CacheEnabledKey) {
		s.Cache.Enabled = viper.GetBool(CacheEnabledKey)
	}
	if v := viper.GetDuration(CacheTTLKey); v > 0 {
		s.Cache.TTL = v
	}
	if v := viper.GetString(AuditTypeKey); v != "" {
		s.Audit.Type = v
	}
	if v := viper.GetString(AuditPathKey); v != "" {
		if s.Audit.Config == nil {
			s.Audit.Config = map[string]any{}
		}
		s.Audit.Config["path"] = v
	}
	if v := viper.GetString(ListenKey); v != "" {
		s.Listen = v
	}
}

var supportedAlgorithms = map[string]struct{}{
	"RS256": {}, "RS384": {}, "RS512": {},
	"PS256": {}, "PS384": {}, "PS512": {},
	"ES256": {}, "ES384": {}, "ES512": {},
}

func (s *Settings) Validate() error {
	if s.Issuer == "" {
		return fmt.Errorf("issuer is required")
	}
	issuer, err := url.Parse(s.Issuer)
	if err != nil {
		return fmt.Errorf("issuer is not a valid URL: %w", err)
	}
	if issuer.Scheme != "https" && issuer.Scheme != "http" {
		return fmt.Errorf("issuer must be an http(s) URL, got %q", s.Issuer)
	}
	if _, ok := supportedAlgorithms[s.Algorithm]; !ok {
		return fmt.Errorf("unsupported signature algorithm %q", s.Algorithm)
	}
	if s.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}
	if s.Cache.Enabled && s.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when the cache is enabled")
	}
	switch s.Audit.Type {
	case "", "log", "file", "memory", "noop":
	default:
		return fmt.Errorf("unknown audit type %q", s.Audit.Type)
	}
	return nil
}

// ResolvedKeySetURL returns the JWKS URL to fetch when discovery is
// disabled: the explicit override, or the issuer's well-known path.
func (s *Settings) ResolvedKeySetURL() string {
	if s.KeySetURL != "" {
		return s.KeySetURL
	}
	return strings.TrimRight(s.Issuer, "/") + WellKnownKeySetPath
}
