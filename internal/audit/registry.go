package audit

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"

	"github.com/mkuran/gatewarden/internal/config"
	"github.com/mkuran/gatewarden/internal/core"
)

// FileRecorderConfig is the sink-specific configuration for type "file".
type FileRecorderConfig struct {
	Path string `mapstructure:"path"`
}

// MemoryRecorderConfig is the sink-specific configuration for type
// "memory".
type MemoryRecorderConfig struct {
	// Max is how many events to keep before dropping the oldest.
	Max int `mapstructure:"max"`
}

// Build constructs the decision event recorder selected by cfg. An empty
// type means the default log recorder.
func Build(cfg config.AuditSettings) (core.Recorder, error) {
	switch cfg.Type {
	case "", "log":
		return NewLogRecorder(log.Logger), nil

	case "file":
		var conf FileRecorderConfig
		if err := decode(cfg.Config, &conf); err != nil {
			return nil, fmt.Errorf("decoding config for file recorder: %w", err)
		}
		if conf.Path == "" {
			return nil, fmt.Errorf("audit type \"file\" requires a path")
		}
		return NewFileRecorder(conf.Path)

	case "memory":
		var conf MemoryRecorderConfig
		if err := decode(cfg.Config, &conf); err != nil {
			return nil, fmt.Errorf("decoding config for memory recorder: %w", err)
		}
		return NewMemoryRecorder(conf.Max), nil

	case "noop":
		return NewNoopRecorder(), nil

	default:
		return nil, fmt.Errorf("unknown audit type %q", cfg.Type)
	}
}

func decode(raw map[string]any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   result,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	return decoder.Decode(raw)
}
