package testutil

import (
	"time"

	"github.com/CJHwong/gems.sh/internal/domain"
	"github.com/google/uuid"
)

// Run options
type RunOption func(*domain.Run)

func WithStatus(s domain.RunStatus) RunOption {
	return func(r *domain.Run) {
		r.Status = s
	}
}

func WithCreatedAt(t time.Time) RunOption {
	return func(r *domain.Run) {
		r.CreatedAt = t
	}
}

func WithID(id string) RunOption {
	return func(r *domain.Run) {
		r.ID = id
	}
}

func WithResponse(raw, display string) RunOption {
	return func(r *domain.Run) {
		r.Response = raw
		r.DisplayText = display
	}
}

// NewTestRun returns a completed run for template with sensible defaults.
func NewTestRun(template string, opts ...RunOption) *domain.Run {
	r := &domain.Run{
		ID:          uuid.New().String(),
		Template:    template,
		Model:       "llama3.2",
		Input:       "hello world",
		Prompt:      "Summarize: hello world",
		Response:    "Hi there",
		DisplayText: "Hi there",
		Status:      domain.RunDone,
		Duration:    1500 * time.Millisecond,
		CreatedAt:   time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
