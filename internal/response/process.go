package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrExtraction marks a reply whose configured field could not be extracted.
var ErrExtraction = errors.New("extraction failed")

// Result is the outcome of post-processing one reply.
type Result struct {
	Raw         string
	JSON        string // isolated JSON text, empty when extraction did not run
	Value       any
	DisplayText string
	Extracted   bool
	Err         error // why extraction failed; never fatal
}

// Process extracts field from the reply when both schema and field are set.
// On any failure DisplayText falls back to the raw reply and Err says why.
func Process(raw, schema, field string) Result {
	res := Result{Raw: raw, DisplayText: raw}
	if schema == "" || field == "" {
		return res
	}

	res.JSON = IsolateJSON(raw)
	doc, err := decodeJSON(res.JSON)
	if err != nil {
		res.Err = fmt.Errorf("%w: decoding json: %v", ErrExtraction, err)
		return res
	}

	v, ok := Lookup(doc, field)
	switch {
	case !ok:
		res.Err = fmt.Errorf("%w: field %q not found", ErrExtraction, field)
		return res
	case isEmpty(v):
		res.Err = fmt.Errorf("%w: field %q is empty", ErrExtraction, field)
		return res
	}

	res.Value = v
	res.DisplayText = Render(v)
	res.Extracted = true
	return res
}

// Lookup resolves field against a decoded document. An exact top-level key
// wins; otherwise the name is treated as a dotted path, where numeric
// segments index arrays.
func Lookup(doc any, field string) (any, bool) {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, false
	}
	if v, ok := m[field]; ok {
		return v, true
	}
	if !strings.Contains(field, ".") {
		return nil, false
	}

	cur := doc
	for _, part := range strings.Split(field, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	}
	return false
}

// Render turns an extracted value into display text. Arrays become "* "
// bullet lines; arrays of objects use title and description. Objects are
// indented JSON with sorted keys. Scalars render as written.
func Render(v any) string {
	switch x := v.(type) {
	case []any:
		lines := make([]string, 0, len(x))
		for _, elem := range x {
			lines = append(lines, "* "+bulletText(elem))
		}
		return strings.Join(lines, "\n")
	case map[string]any:
		out, err := json.MarshalIndent(x, "", "  ")
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(out)
	default:
		return scalarText(v)
	}
}

// bulletText renders one array element. An object without a title shows its
// description, and one with neither shows its compact JSON.
func bulletText(elem any) string {
	obj, ok := elem.(map[string]any)
	if !ok {
		return scalarText(elem)
	}
	title := fieldText(obj, "title")
	desc := fieldText(obj, "description")
	switch {
	case title != "" && desc != "":
		return title + ": " + desc
	case title != "":
		return title
	case desc != "":
		return desc
	default:
		return compactJSON(obj)
	}
}

func fieldText(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return ""
	}
	return scalarText(v)
}

func scalarText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return "null"
	default:
		return compactJSON(x)
	}
}

func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
