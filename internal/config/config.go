package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrUnreadable indicates the configuration file exists but could not be read
// or decoded.
var ErrUnreadable = errors.New("configuration unreadable")

// FieldError reports a single missing or invalid configuration field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration.%s is required", e.Field)
	}
	return fmt.Sprintf("configuration.%s %s", e.Field, e.Reason)
}

// Settings is the `configuration` section of the document.
type Settings struct {
	APIBaseURL             string `yaml:"api_base_url"`
	APIKey                 string `yaml:"api_key,omitempty"`
	Timeout                int    `yaml:"timeout"`
	DefaultModel           string `yaml:"default_model"`
	LanguageDetectionModel string `yaml:"language_detection_model"`
	DefaultPromptTemplate  string `yaml:"default_prompt_template"`
	ReasoningEffort        string `yaml:"reasoning_effort,omitempty"`
	OutputViewer           string `yaml:"output_viewer,omitempty"`
	OutputFile             string `yaml:"output_file,omitempty"`
	HistoryDB              string `yaml:"history_db,omitempty"`
}

// TemplateEntry is one item of the `prompt_templates` section. Properties is
// kept as a raw node because it may be a mapping or a legacy key=value string.
type TemplateEntry struct {
	Template   string    `yaml:"template"`
	Properties yaml.Node `yaml:"properties,omitempty"`
}

// Config is the full configuration document.
type Config struct {
	Settings  Settings                 `yaml:"configuration"`
	Templates map[string]TemplateEntry `yaml:"prompt_templates"`

	// Path the document was loaded from; empty for in-memory configs.
	Path string `yaml:"-"`
}

// DefaultPath returns $GEMS_CONFIG or ~/.config/gems/config.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv("GEMS_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "gems", "config.yaml"), nil
}

// Load reads the YAML document at path, overlays environment overrides
// (including a .env file next to it) and validates required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	cfg.Path = path

	// A missing .env is normal.
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a configuration document without validating it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GEMS_API_KEY"); v != "" {
		c.Settings.APIKey = v
	}
	if v := os.Getenv("GEMS_API_BASE_URL"); v != "" {
		c.Settings.APIBaseURL = v
	}
	if v := os.Getenv("GEMS_DB"); v != "" {
		c.Settings.HistoryDB = v
	}
}

// Validate returns every missing required field joined into one error.
func (c *Config) Validate() error {
	s := c.Settings
	var errs []error
	required := []struct {
		field string
		value string
	}{
		{"api_base_url", s.APIBaseURL},
		{"default_model", s.DefaultModel},
		{"language_detection_model", s.LanguageDetectionModel},
		{"default_prompt_template", s.DefaultPromptTemplate},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, &FieldError{Field: r.field})
		}
	}
	switch {
	case s.Timeout == 0:
		errs = append(errs, &FieldError{Field: "timeout"})
	case s.Timeout < 0:
		errs = append(errs, &FieldError{Field: "timeout", Reason: "must be a positive number of seconds"})
	}
	return errors.Join(errs...)
}

// ResolvePath expands a leading ~/ against the user's home directory.
func ResolvePath(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// TranscriptPath returns where the markdown transcript is written:
// output_file when set, otherwise gems/last.md under the user cache dir.
func (c *Config) TranscriptPath() (string, error) {
	if p := strings.TrimSpace(c.Settings.OutputFile); p != "" {
		return ResolvePath(p), nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "gems", "last.md"), nil
}

// HistoryPath returns the SQLite history location and whether history is
// enabled. The default sits next to the config file.
func (c *Config) HistoryPath() (string, bool) {
	switch p := strings.TrimSpace(c.Settings.HistoryDB); strings.ToLower(p) {
	case "off", "none", "false":
		return "", false
	case "":
		if c.Path == "" {
			return "", false
		}
		return filepath.Join(filepath.Dir(c.Path), "history.db"), true
	default:
		return ResolvePath(p), true
	}
}
