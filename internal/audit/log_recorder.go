package audit

import (
	"github.com/rs/zerolog"

	"github.com/mkuran/gatewarden/internal/core"
)

// LogRecorder writes decision events as structured log lines. It is the
// default sink: on Lambda, stdout and stderr land in CloudWatch, which
// is where decision records are expected.
type LogRecorder struct {
	logger zerolog.Logger
}

func NewLogRecorder(logger zerolog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (l *LogRecorder) Record(event core.Event) error {
	l.logger.Info().
		Str("id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Str("effect", event.Effect).
		Str("failure_kind", string(event.FailureKind)).
		Str("principal", event.Principal).
		Str("resource", event.Resource).
		Str("key_id", event.KeyID).
		Str("error", event.Error).
		Msg("decision.recorded")
	return nil
}

func (l *LogRecorder) Close() error {
	// nothing to flush
	return nil
}
