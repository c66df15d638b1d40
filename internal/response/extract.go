package response

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fencedJSON matches the first ```json block, compact or multi-line.
var fencedJSON = regexp.MustCompile("(?s)```json[ \\t]*\\r?\\n?(.*?)```")

// IsolateJSON narrows a model reply to its JSON payload. In order: the body of
// the first ```json fence, the whole reply when it is valid JSON, the first
// balanced {...} object. When none apply the reply is returned unchanged.
func IsolateJSON(raw string) string {
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return trimmed
	}
	if block := extractJSONBlock(raw); block != "" {
		return block
	}
	return raw
}

// lexState tracks whether a byte sits inside a JSON string literal.
type lexState struct {
	inString bool
	escaped  bool
}

// step consumes c and reports whether it is structural: outside any string
// literal and not itself a quote.
func (l *lexState) step(c byte) bool {
	switch {
	case l.escaped:
		l.escaped = false
	case l.inString && c == '\\':
		l.escaped = true
	case c == '"':
		l.inString = !l.inString
	case !l.inString:
		return true
	}
	return false
}

// extractJSONBlock returns the first balanced {...} block in s, or "".
func extractJSONBlock(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	var lex lexState
	depth := 0
	for i := start; i < len(s); i++ {
		if !lex.step(s[i]) {
			continue
		}
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// decodeJSON decodes text keeping numbers as written. Text that fails to
// decode gets one retry with comments stripped and ".5" style numbers fixed.
func decodeJSON(text string) (any, error) {
	v, err := decodeNumber(text)
	if err == nil {
		return v, nil
	}
	if repaired := normalizeLeadingDecimalNumbers(stripJSONComments(text)); repaired != text {
		if v, rerr := decodeNumber(repaired); rerr == nil {
			return v, nil
		}
	}
	return nil, err
}

func decodeNumber(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// stripJSONComments removes // and /* */ comments outside string values. An
// unterminated block comment runs to the end of s.
func stripJSONComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var lex lexState
	for i := 0; i < len(s); i++ {
		c := s[i]
		if lex.step(c) && c == '/' && i+1 < len(s) {
			switch s[i+1] {
			case '/':
				for i+1 < len(s) && s[i+1] != '\n' {
					i++
				}
				continue
			case '*':
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return b.String()
				}
				i += end + 3
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// normalizeLeadingDecimalNumbers rewrites ".8" and "-.3" to "0.8" and "-0.3"
// outside string values.
func normalizeLeadingDecimalNumbers(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	var lex lexState
	for i := 0; i < len(s); i++ {
		c := s[i]
		if lex.step(c) && c == '.' && i+1 < len(s) && isDigit(s[i+1]) && afterNumericBoundary(s[:i]) {
			b.WriteByte('0')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// afterNumericBoundary reports whether a number may start after prefix.
func afterNumericBoundary(prefix string) bool {
	prefix = strings.TrimRight(prefix, " \t\r\n")
	if prefix == "" {
		return true
	}
	switch prefix[len(prefix)-1] {
	case ':', ',', '[', '{', '-':
		return true
	default:
		return false
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
