package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

// ViewerSink pipes the transcript into an external viewer's stdin.
type ViewerSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	broken bool
	done   chan struct{}
	err    error
}

// StartViewer launches argv with its stdin connected to the sink. The
// viewer inherits stdout and stderr.
func StartViewer(argv []string, logger *zap.Logger) (*ViewerSink, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty viewer command")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("viewer stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting viewer %q: %w", argv[0], err)
	}
	logger.Debug("viewer started", zap.Strings("argv", argv), zap.Int("pid", cmd.Process.Pid))

	return &ViewerSink{
		cmd:    cmd,
		stdin:  stdin,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

func (v *ViewerSink) Write(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return 0, os.ErrClosed
	}
	if v.broken {
		return len(p), nil
	}
	n, err := v.stdin.Write(p)
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) {
		// The viewer went away; the rest of the pipeline carries on.
		v.broken = true
		v.logger.Debug("viewer closed its input", zap.Error(err))
		return len(p), nil
	}
	return n, err
}

// Close returns immediately. Closing the viewer's stdin and reaping the
// process happen on a detached goroutine that closes Done when finished.
func (v *ViewerSink) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.mu.Unlock()

	go func() {
		defer close(v.done)
		if err := v.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			v.logger.Debug("closing viewer stdin", zap.Error(err))
		}
		if err := v.cmd.Wait(); err != nil {
			v.err = err
			v.logger.Debug("viewer exited", zap.Error(err))
		}
	}()
	return nil
}

// Done is closed once the viewer process has exited after Close.
func (v *ViewerSink) Done() <-chan struct{} { return v.done }

// Err reports the viewer's exit error. Only valid after Done is closed.
func (v *ViewerSink) Err() error { return v.err }
