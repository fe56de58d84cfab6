package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/mkuran/gatewarden/internal/core"
)

// FileRecorder appends decision events to a file in JSON Lines format.
// Writes are serialized; the file is created owner-only since events
// carry principals and resource ARNs.
type FileRecorder struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening audit file: %w", err)
	}
	return &FileRecorder{
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

func (f *FileRecorder) Record(event core.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.encoder.Encode(event); err != nil {
		return fmt.Errorf("writing decision event: %w", err)
	}
	return nil
}

func (f *FileRecorder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
