package llm

import (
	"go.uber.org/zap"
)

// LLMCallEvent records metadata about a single API call.
type LLMCallEvent struct {
	Op        string // "stream", "complete", "models"
	Model     string
	LatencyMs int64
	Chars     int
	Success   bool
	ErrorCode string
}

// Observer receives events about API calls.
type Observer interface {
	OnCallComplete(event LLMCallEvent)
}

// LogObserver writes call events to a zap logger at debug level.
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver creates an Observer that logs events to logger.
func NewLogObserver(logger *zap.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnCallComplete(event LLMCallEvent) {
	fields := []zap.Field{
		zap.String("op", event.Op),
		zap.String("model", event.Model),
		zap.Int64("latency_ms", event.LatencyMs),
		zap.Int("chars", event.Chars),
	}
	if !event.Success {
		o.logger.Debug("llm_call failed", append(fields, zap.String("error_code", event.ErrorCode))...)
		return
	}
	o.logger.Debug("llm_call", fields...)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(LLMCallEvent) {}
