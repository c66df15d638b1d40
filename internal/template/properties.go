package template

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Properties holds the per-template behaviour flags.
type Properties struct {
	DetectLanguage bool
	OutputLanguage string
	// JSONSchema is opaque text handed to the model. It is never validated
	// before prompting.
	JSONSchema string
	JSONField  string
	Model      string
}

// WantsExtraction reports whether the reply should be narrowed to JSONField.
// A field without a schema is ignored.
func (p Properties) WantsExtraction() bool {
	return p.JSONSchema != "" && p.JSONField != ""
}

// GetProperty scans a legacy whitespace-delimited key=value blob. The first
// occurrence of key= wins. json_schema values run from the first '{' to its
// balancing '}' so embedded spaces and nested objects survive.
func GetProperty(blob, key, def string) (string, bool) {
	needle := key + "="
	start := -1
	for from := 0; from <= len(blob)-len(needle); {
		i := strings.Index(blob[from:], needle)
		if i < 0 {
			break
		}
		i += from
		if i == 0 || isSpace(blob[i-1]) {
			start = i + len(needle)
			break
		}
		from = i + 1
	}
	if start < 0 {
		return def, false
	}

	rest := blob[start:]
	if key == "json_schema" {
		if open := strings.IndexByte(rest, '{'); open >= 0 {
			return balancedBraces(rest[open:]), true
		}
	}
	if end := strings.IndexFunc(rest, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }); end >= 0 {
		return rest[:end], true
	}
	return rest, true
}

// balancedBraces returns s up to and including the brace that closes s[0].
// Unbalanced input yields all of s.
func balancedBraces(s string) string {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return s
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// ParseProperties decodes a legacy property blob into typed Properties.
func ParseProperties(blob string) Properties {
	var p Properties
	if v, ok := GetProperty(blob, "detect_language", "false"); ok {
		p.DetectLanguage = strings.EqualFold(v, "true")
	}
	p.OutputLanguage, _ = GetProperty(blob, "output_language", "")
	p.JSONSchema, _ = GetProperty(blob, "json_schema", "")
	p.JSONField, _ = GetProperty(blob, "json_field", "")
	p.Model, _ = GetProperty(blob, "model", "")
	return p
}

// DecodeProperties reads a template's properties node. Both a YAML mapping and
// a legacy key=value string are accepted.
func DecodeProperties(node *yaml.Node) (Properties, error) {
	if node == nil || node.Kind == 0 {
		return Properties{}, nil
	}
	if node.Kind == yaml.ScalarNode {
		if node.Tag == "!!null" {
			return Properties{}, nil
		}
		return ParseProperties(node.Value), nil
	}
	if node.Kind != yaml.MappingNode {
		return Properties{}, fmt.Errorf("properties must be a mapping or a string, got %s", kindName(node.Kind))
	}

	var p Properties
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		var err error
		switch key {
		case "detect_language":
			err = val.Decode(&p.DetectLanguage)
		case "output_language":
			err = val.Decode(&p.OutputLanguage)
		case "json_field":
			err = val.Decode(&p.JSONField)
		case "model":
			err = val.Decode(&p.Model)
		case "json_schema":
			if val.Kind == yaml.ScalarNode {
				p.JSONSchema = val.Value
				continue
			}
			p.JSONSchema, err = nodeToJSON(val)
		}
		if err != nil {
			return Properties{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	return p, nil
}

// nodeToJSON renders a YAML node as compact JSON, keeping mapping key order.
func nodeToJSON(n *yaml.Node) (string, error) {
	var b strings.Builder
	if err := writeJSON(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeJSON(b *strings.Builder, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			b.WriteString("null")
			return nil
		}
		return writeJSON(b, n.Content[0])
	case yaml.AliasNode:
		return writeJSON(b, n.Alias)
	case yaml.MappingNode:
		b.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				b.WriteByte(',')
			}
			k, _ := json.Marshal(n.Content[i].Value)
			b.Write(k)
			b.WriteByte(':')
			if err := writeJSON(b, n.Content[i+1]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case yaml.SequenceNode:
		b.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeJSON(b, c); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b.Write(out)
	}
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return fmt.Sprintf("kind %d", k)
	}
}
