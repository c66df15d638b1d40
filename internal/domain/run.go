package domain

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunDone        RunStatus = "done"
	RunFailed      RunStatus = "failed"
	RunInterrupted RunStatus = "interrupted"
)

// Run is one invocation of a template against the API, kept in history.
type Run struct {
	ID          string
	Template    string
	Model       string
	Input       string
	Prompt      string
	Response    string
	DisplayText string
	Status      RunStatus
	Error       string
	Duration    time.Duration
	CreatedAt   time.Time
}

// NewRun starts a run record with a fresh ID.
func NewRun(template, model, input string) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Template:  template,
		Model:     model,
		Input:     input,
		CreatedAt: time.Now().UTC(),
	}
}

// Finish records the outcome. A nil err marks the run done.
func (r *Run) Finish(response, display string, err error, elapsed time.Duration) {
	r.Response = response
	r.DisplayText = display
	r.Duration = elapsed
	switch {
	case err == nil:
		r.Status = RunDone
		r.Error = ""
	default:
		r.Status = RunFailed
		r.Error = err.Error()
	}
}

// Interrupt marks the run as cut short with whatever output arrived.
func (r *Run) Interrupt(partial string, elapsed time.Duration) {
	r.Response = partial
	r.DisplayText = partial
	r.Duration = elapsed
	r.Status = RunInterrupted
	r.Error = ""
}

// DisplayID returns the first 8 characters of the ID.
func (r *Run) DisplayID() string {
	if len(r.ID) >= 8 {
		return r.ID[:8]
	}
	return r.ID
}

// Summary returns the first line of s trimmed to n runes, for tables.
func Summary(s string, n int) string {
	for i, c := range s {
		if c == '\n' || c == '\r' {
			s = s[:i]
			break
		}
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
