package audit

import (
	"sync"

	"github.com/mkuran/gatewarden/internal/core"
)

var _ core.Recorder = (*MemoryRecorder)(nil)

// MemoryRecorder keeps the most recent decision events in memory. It
// backs the dev harness events endpoint and tests.
type MemoryRecorder struct {
	mu     sync.Mutex
	max    int
	events []core.Event
}

// NewMemoryRecorder keeps up to max events, oldest dropped first. A
// non-positive max keeps 256.
func NewMemoryRecorder(max int) *MemoryRecorder {
	if max <= 0 {
		max = 256
	}
	return &MemoryRecorder{
		max:    max,
		events: make([]core.Event, 0),
	}
}

func (m *MemoryRecorder) Record(event core.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)
	if len(m.events) > m.max {
		m.events = m.events[len(m.events)-m.max:]
	}
	return nil
}

// Recent returns up to limit events, most recent last.
func (m *MemoryRecorder) Recent(limit int) []core.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.events) {
		limit = len(m.events)
	}
	start := len(m.events) - limit
	events := make([]core.Event, limit)
	copy(events, m.events[start:])

	return events
}

func (m *MemoryRecorder) Close() error {
	return nil // nothing to close :)
}
