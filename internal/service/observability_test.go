package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogUseCaseObserver(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	obs := NewLogUseCaseObserver(zap.New(core))

	obs.ObserveUseCase(context.Background(), UseCaseEvent{
		Name:     "ask",
		Duration: 1500 * time.Millisecond,
		Success:  true,
		Fields:   map[string]any{"model": "llama3.2"},
	})
	obs.ObserveUseCase(context.Background(), UseCaseEvent{
		Name: "history.record",
		Err:  errors.New("disk full"),
	})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "service_use_case", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "ask", ctx["use_case"])
	assert.Equal(t, int64(1500), ctx["duration_ms"])
	assert.Equal(t, "llama3.2", ctx["model"])
	assert.Equal(t, "disk full", entries[1].ContextMap()["error"])
}

func TestUseCaseObserverOrNoop(t *testing.T) {
	assert.IsType(t, NoopUseCaseObserver{}, useCaseObserverOrNoop(nil))
	assert.IsType(t, NoopUseCaseObserver{}, NewLogUseCaseObserver(nil))
}
