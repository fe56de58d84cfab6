package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/mkuran/gatewarden/internal/audit"
	"github.com/mkuran/gatewarden/internal/config"
	"github.com/mkuran/gatewarden/internal/core"
	"github.com/mkuran/gatewarden/internal/gate"
	"github.com/mkuran/gatewarden/internal/policy"
	"github.com/mkuran/gatewarden/internal/token"
	"github.com/mkuran/gatewarden/internal/trust"
	"github.com/mkuran/gatewarden/pkg/client"
)

var f = NewFactory()

type Factory struct {
	// RemoteAddr is the address of the Gatewarden harness to connect to.
	RemoteAddr string

	// ConfigPath is the gate configuration file. When empty, settings
	// come from GATEWARDEN_* environment variables alone.
	ConfigPath string
}

func NewFactory() *Factory {
	return &Factory{}
}

// GetClient returns an HTTP client for remote operations.
func (f *Factory) GetClient() (*client.Client, error) {
	server := f.RemoteAddr // prio 1: command-line flag
	if server == "" {
		server = viper.GetString(AddrKey) // prio 2: config/env
	}
	if server == "" {
		return nil, fmt.Errorf("server address not configured (use --server or set GATEWARDEN_ADDR)")
	}
	return client.New(server), nil
}

func (f *Factory) LoadSettings() (*config.Settings, error) {
	return config.Load(f.ConfigPath)
}

// Built is a fully wired gate plus the handles callers still need after
// assembly.
type Built struct {
	Settings *config.Settings
	Gate     *gate.Gate
	Fetcher  *trust.Fetcher
	Recorder core.Recorder

	// Memory is non-nil when the audit sink is the memory recorder.
	Memory *audit.MemoryRecorder
}

// Close releases the audit recorder.
func (b *Built) Close() error {
	return b.Recorder.Close()
}

// BuildGate assembles the evaluation pipeline from the gate settings:
// key set fetcher (with optional discovery and caching), token validator,
// decision builder and audit recorder.
func (f *Factory) BuildGate(ctx context.Context) (*Built, error) {
	settings, err := f.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("loading gate settings: %w", err)
	}

	keySetURL := settings.ResolvedKeySetURL()
	if settings.DiscoverKeySet {
		keySetURL, err = trust.DiscoverKeySetURL(ctx, settings.Issuer)
		if err != nil {
			return nil, fmt.Errorf("discovering key set URL: %w", err)
		}
	}

	fetcher := trust.NewFetcher(keySetURL, settings.FetchTimeout, nil)

	var resolver core.KeyResolver = trust.NewSource(fetcher)
	if settings.Cache.Enabled {
		resolver = trust.NewCachingSource(fetcher, settings.Cache.TTL)
	}

	var opts []token.Option
	if settings.Audience != "" {
		opts = append(opts, token.WithAudience(settings.Audience))
	}
	validator := token.NewValidator(resolver, settings.Issuer, settings.Algorithm, opts...)

	recorder, err := audit.Build(settings.Audit)
	if err != nil {
		return nil, fmt.Errorf("building audit recorder: %w", err)
	}
	memory, _ := recorder.(*audit.MemoryRecorder)

	decisions := policy.NewBuilder(settings.PrincipalClaim, settings.DefaultPrincipal)

	return &Built{
		Settings: settings,
		Gate:     gate.New(validator, decisions, recorder),
		Fetcher:  fetcher,
		Recorder: recorder,
		Memory:   memory,
	}, nil
}
