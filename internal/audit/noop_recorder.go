package audit

import "github.com/mkuran/gatewarden/internal/core"

// NoopRecorder is a recorder that does nothing.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) Record(event core.Event) error {
	// noop
	return nil
}

func (n *NoopRecorder) Close() error {
	// nothing to close
	return nil
}
