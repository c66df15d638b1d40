package llm

import (
	"strings"
	"time"

	"github.com/CJHwong/gems.sh/internal/config"
)

// Temperature is sent with every chat completion request.
const Temperature = 1.0

// Config holds the client settings for an OpenAI-compatible endpoint.
type Config struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration // whole call, including the streamed body
	ConnectTimeout  time.Duration // TCP connect only, kept shorter than Timeout
	ReasoningEffort string
}

// DefaultConfig returns a Config pointing at a local server.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:11434/v1",
		Timeout:        60 * time.Second,
		ConnectTimeout: 5 * time.Second,
	}
}

// ConfigFromSettings maps the configuration document onto a client Config.
func ConfigFromSettings(s config.Settings) Config {
	cfg := DefaultConfig()
	if s.APIBaseURL != "" {
		cfg.BaseURL = strings.TrimRight(s.APIBaseURL, "/")
	}
	cfg.APIKey = s.APIKey
	if s.Timeout > 0 {
		cfg.Timeout = time.Duration(s.Timeout) * time.Second
	}
	if cfg.ConnectTimeout >= cfg.Timeout {
		cfg.ConnectTimeout = cfg.Timeout / 2
	}
	cfg.ReasoningEffort = s.ReasoningEffort
	return cfg
}
