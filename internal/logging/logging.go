package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Viper keys the global logger is configured from.
const (
	LevelKey   = "log.level"
	FormatKey  = "log.format"
	NoColorKey = "log.no_color"
)

// Options describes how the global logger should behave.
// A nil Options is resolved from viper, so bound flags and
// GATEWARDEN_LOG_* environment variables apply.
type Options struct {
	// Level is one of trace, debug, info, warn, error.
	Level string

	// Format is "console" for human-readable output or "json" for
	// machine-readable lines (what CloudWatch expects from the Lambda).
	Format string

	// NoColor disables ANSI colors in console format.
	NoColor bool
}

// InitDefault installs a plain console logger so output emitted before
// flag parsing is still readable.
func InitDefault() {
	log.Logger = build(Options{Level: "info", Format: "console"})
}

// Init installs the global logger described by opts.
func Init(opts *Options) {
	if opts == nil {
		opts = &Options{
			Level:   viper.GetString(LevelKey),
			Format:  viper.GetString(FormatKey),
			NoColor: viper.GetBool(NoColorKey),
		}
	}
	log.Logger = build(*opts)
}

func build(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	switch strings.ToLower(opts.Format) {
	case "json":
		logger = zerolog.New(os.Stderr)
	default:
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    opts.NoColor,
		})
	}

	return logger.Level(level).With().Timestamp().Logger()
}
