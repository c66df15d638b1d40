package prompt

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/CJHwong/gems.sh/internal/template"
	"go.uber.org/zap"
)

// detectInstruction asks the detection model for the bare language name.
const detectInstruction = "Identify the language of the following text. " +
	"Reply with only the language name in English, nothing else.\n\nText:\n"

// Caller performs a classified API call. llm.LLMClient satisfies it.
type Caller interface {
	Call(ctx context.Context, model, prompt string, sink io.Writer, stream bool) (string, error)
}

// Composer builds the final prompt for a template.
type Composer struct {
	detector      Caller
	detectorModel string
	logger        *zap.Logger
}

// NewComposer creates a Composer. detector may be nil when no template
// enables language detection.
func NewComposer(detector Caller, detectorModel string, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{detector: detector, detectorModel: detectorModel, logger: logger}
}

// Compose merges the template body with input and prepends the JSON and
// language instructions the properties ask for.
func (c *Composer) Compose(ctx context.Context, tmpl template.Template, input string, props template.Properties) (string, error) {
	out := Substitute(tmpl, input)

	if props.JSONSchema != "" {
		out = JSONInstruction(props.JSONSchema) + "\n\n" + out
	}

	lang := props.OutputLanguage
	if props.DetectLanguage {
		detected, err := c.DetectLanguage(ctx, input)
		if err != nil {
			return "", fmt.Errorf("detecting language: %w", err)
		}
		lang = detected
	}
	if lang != "" {
		out = LanguageInstruction(lang) + "\n" + out
	}
	return out, nil
}

// Substitute replaces every placeholder with input in a single pass, so input
// that looks like a placeholder is not expanded again. A body without a
// placeholder gets the input appended after a space.
func Substitute(tmpl template.Template, input string) string {
	if tmpl.HasPlaceholder() {
		return strings.ReplaceAll(tmpl.Body, template.Placeholder, input)
	}
	return tmpl.Body + " " + input
}

// JSONInstruction demands a JSON-only reply matching schema.
func JSONInstruction(schema string) string {
	return "Respond only with valid JSON that matches this schema, with no other text:\n" + schema
}

// LanguageInstruction tells the model the input language and to keep it.
func LanguageInstruction(lang string) string {
	return fmt.Sprintf("The input is written in %s. Write your response in %s.", lang, lang)
}

// DetectLanguage asks the detection model for the language of input and
// returns the first line of its reply, trimmed.
func (c *Composer) DetectLanguage(ctx context.Context, input string) (string, error) {
	if c.detector == nil {
		return "", fmt.Errorf("no language detector configured")
	}
	reply, err := c.detector.Call(ctx, c.detectorModel, detectInstruction+input, nil, false)
	if err != nil {
		return "", err
	}
	lang := firstLine(reply)
	c.logger.Debug("detected language", zap.String("language", lang), zap.String("model", c.detectorModel))
	return lang, nil
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, " \t\r\n")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
