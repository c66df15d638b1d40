package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// compactFence matches a ```json{...}``` block written on one line.
var compactFence = regexp.MustCompile("```json[ \\t]*(\\{.*?\\})[ \\t]*```")

// Reformat expands every single-line ```json{...}``` block into an indented
// multi-line fence. Blocks that do not parse are left alone, as are lines
// inside multi-line fences.
//
// Detection is line based: a multi-line fence around compact JSON counts as
// already formatted.
func Reformat(text string) string {
	lines := strings.Split(text, "\n")
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if inFence {
			if strings.HasPrefix(trimmed, "```") {
				inFence = false
			}
			continue
		}
		if compactFence.MatchString(line) {
			lines[i] = compactFence.ReplaceAllStringFunc(line, expandFence)
			continue
		}
		if strings.HasPrefix(trimmed, "```") {
			inFence = true
		}
	}
	return strings.Join(lines, "\n")
}

func expandFence(block string) string {
	m := compactFence.FindStringSubmatch(block)
	if m == nil {
		return block
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(m[1]), "", "  "); err != nil {
		return block
	}
	return "```json\n" + buf.String() + "\n```"
}

// ReformatFile rewrites path in place when Reformat changes its content.
func ReformatFile(path string) (changed bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	out := Reformat(string(data))
	if out == string(data) {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
