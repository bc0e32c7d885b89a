package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore persists feedback as JSON lines in a local file. Thread-safe
// for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore that writes to the given path. The file
// is created on first save if it does not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save appends a feedback record to the file.
func (fs *FileStore) Save(_ context.Context, rec Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("feedback: marshal: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("feedback: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("feedback: write: %w", err)
	}
	return nil
}
