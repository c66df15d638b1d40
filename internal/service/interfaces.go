package service

import (
	"context"
	"io"

	"github.com/CJHwong/gems.sh/internal/domain"
	"github.com/CJHwong/gems.sh/internal/response"
)

// Streamer is the part of llm.LLMClient the ask flow needs.
type Streamer interface {
	Stream(ctx context.Context, model, prompt string, sink io.Writer) (string, error)
}

type AskRequest struct {
	Template  string // empty selects default_prompt_template
	Model     string // command-line override
	Input     string
	Verbose   bool
	NoCopy    bool
	NoHistory bool
}

type AskResult struct {
	Run            *domain.Run
	Response       response.Result
	TranscriptPath string
	Interrupted    bool
}

type AskService interface {
	// Ask runs input through a template and streams the reply to the
	// display sink. Partial output stays visible when it fails.
	Ask(ctx context.Context, req AskRequest) (*AskResult, error)
}

type HistoryService interface {
	Record(ctx context.Context, run *domain.Run) error
	Recent(ctx context.Context, limit int) ([]*domain.Run, error)
	Show(ctx context.Context, id string) (*domain.Run, error)
}
