package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/CJHwong/gems.sh/internal/config"
	"github.com/CJHwong/gems.sh/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"config", config.ErrUnreadable, 1},
		{"timeout", &llm.NetworkError{Code: llm.CodeTimeout, Err: llm.ErrTimeout}, 28},
		{"wrapped refused", fmt.Errorf("detecting language: %w", &llm.NetworkError{Code: llm.CodeConnect}), 7},
		{"out of range code", &llm.NetworkError{Code: 300}, 1},
		{"api", &llm.APIError{Status: 500, Kind: llm.KindServerError}, 1},
		{"interrupted", fmt.Errorf("request canceled: %w", context.Canceled), ExitInterrupted},
		{"other", errors.New("x"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
