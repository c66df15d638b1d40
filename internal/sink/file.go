package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink writes the transcript to a file, truncating it on open.
type FileSink struct {
	mu     sync.Mutex
	f      *os.File
	path   string
	closed bool
}

// NewFile creates (or truncates) path and its parent directory.
func NewFile(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	return &FileSink{f: f, path: path}, nil
}

// Path returns the file location.
func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.f.Write(p)
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}
