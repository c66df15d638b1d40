// Package sink delivers the live markdown transcript to its display surface.
package sink

import (
	"errors"
	"io"
	"strings"
	"sync"
)

// Sink receives transcript text as it is produced. Close must be safe to call
// more than once.
type Sink interface {
	io.Writer
	Close() error
}

// Kind is the display surface selected by the output_viewer setting.
type Kind int

const (
	KindTerminal Kind = iota
	KindTUI
	KindNone
	KindViewer
)

func (k Kind) String() string {
	switch k {
	case KindTUI:
		return "tui"
	case KindNone:
		return "none"
	case KindViewer:
		return "viewer"
	default:
		return "terminal"
	}
}

// ParseViewer maps an output_viewer value onto a Kind. For KindViewer the
// returned argv is the external command line.
func ParseViewer(setting string) (Kind, []string) {
	switch v := strings.TrimSpace(setting); strings.ToLower(v) {
	case "", "terminal", "stdout":
		return KindTerminal, nil
	case "tui":
		return KindTUI, nil
	case "none", "off":
		return KindNone, nil
	default:
		return KindViewer, strings.Fields(v)
	}
}

// writerSink writes to a stream it does not own.
type writerSink struct {
	w io.Writer
}

// NewWriter wraps w, typically stdout. Close is a no-op.
func NewWriter(w io.Writer) Sink {
	return writerSink{w: w}
}

func (s writerSink) Write(p []byte) (int, error) { return s.w.Write(p) }
func (writerSink) Close() error                 { return nil }

// Discard drops everything.
func Discard() Sink {
	return writerSink{w: io.Discard}
}

// teeSink forwards every write to all members in order.
type teeSink struct {
	mu     sync.Mutex
	sinks  []Sink
	closed bool
}

// Tee combines sinks. A write error from any member is returned after all
// members have been written to.
func Tee(sinks ...Sink) Sink {
	return &teeSink{sinks: sinks}
}

func (t *teeSink) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for _, s := range t.sinks {
		if _, err := s.Write(p); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *teeSink) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	var errs []error
	for _, s := range t.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
