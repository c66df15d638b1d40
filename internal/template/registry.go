package template

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/CJHwong/gems.sh/internal/config"
	"go.uber.org/zap"
)

// Placeholder is replaced with the user's input when a prompt is composed.
const Placeholder = "{{input}}"

// PassthroughName is the built-in identity template.
const PassthroughName = "Passthrough"

var (
	// ErrNoTemplates indicates the configuration defines no usable templates.
	ErrNoTemplates = errors.New("no prompt templates configured")

	// ErrInvalidProperties indicates a template's properties could not be decoded.
	ErrInvalidProperties = errors.New("invalid template properties")
)

// Template is a named prompt skeleton.
type Template struct {
	Name string
	Body string
}

// HasPlaceholder reports whether the body contains the input placeholder.
func (t Template) HasPlaceholder() bool {
	return strings.Contains(t.Body, Placeholder)
}

// NotFoundError is returned by Registry.Get for an unknown template name.
type NotFoundError struct {
	Name  string
	Known []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template %q not found (available: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Entry pairs a template with its properties.
type Entry struct {
	Template   Template
	Properties Properties
}

// Registry is an immutable set of templates built once at startup.
type Registry struct {
	entries map[string]Entry
	names   []string
}

// NewRegistry builds a registry from explicit entries. The Passthrough
// template is always present unless overridden.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{entries: map[string]Entry{
		PassthroughName: {Template: Template{Name: PassthroughName, Body: Placeholder}},
	}}
	for _, e := range entries {
		r.entries[e.Template.Name] = e
	}
	r.names = make([]string, 0, len(r.entries))
	for name := range r.entries {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// Load builds the registry from a parsed configuration. Templates with an
// empty body are skipped.
func Load(cfg *config.Config, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries := make([]Entry, 0, len(cfg.Templates))
	for name, te := range cfg.Templates {
		if strings.TrimSpace(te.Template) == "" {
			logger.Debug("skipping template without body", zap.String("template", name))
			continue
		}
		props, err := DecodeProperties(&te.Properties)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidProperties, name, err)
		}
		if props.JSONField != "" && props.JSONSchema == "" {
			logger.Debug("json_field ignored without json_schema", zap.String("template", name))
		}
		entries = append(entries, Entry{Template: Template{Name: name, Body: te.Template}, Properties: props})
	}
	if len(entries) == 0 {
		return nil, ErrNoTemplates
	}
	return NewRegistry(entries...), nil
}

// Get returns the named template and its properties.
func (r *Registry) Get(name string) (Template, Properties, error) {
	e, ok := r.entries[name]
	if !ok {
		return Template{}, Properties{}, &NotFoundError{Name: name, Known: r.Names()}
	}
	return e.Template, e.Properties, nil
}

// Names returns all template names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of templates, including the built-in.
func (r *Registry) Len() int {
	return len(r.entries)
}
