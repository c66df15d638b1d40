package sink

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Report writes the markdown transcript sections in order: optional verbose
// preamble, result header, live content, optional extracted field, and a
// completion marker or error banner.
type Report struct {
	w       io.Writer
	verbose bool
	err     error
}

// NewReport writes to w. verbose enables the preamble.
func NewReport(w io.Writer, verbose bool) *Report {
	return &Report{w: w, verbose: verbose}
}

// Err returns the first write error.
func (r *Report) Err() error { return r.err }

func (r *Report) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

// Preamble writes the run metadata, input and final prompt as collapsible
// blocks. It is a no-op unless verbose.
func (r *Report) Preamble(runID, templateName, model, input, prompt string) {
	if !r.verbose {
		return
	}
	r.printf("_Run `%s` · template `%s` · model `%s`_\n\n", runID, templateName, model)
	r.printf("<details>\n<summary>Input</summary>\n\n%s\n\n</details>\n\n", fence(input))
	r.printf("<details>\n<summary>Prompt</summary>\n\n%s\n\n</details>\n\n", fence(prompt))
}

// ResultHeader opens the live content section.
func (r *Report) ResultHeader() {
	r.printf("## Result\n\n")
}

// Extracted writes the extracted field section.
func (r *Report) Extracted(field, text string) {
	r.printf("\n\n## Extracted: %s\n\n%s\n", field, text)
}

// Done writes the completion marker.
func (r *Report) Done(elapsed time.Duration) {
	r.printf("\n\n---\n_Done in %s_\n", elapsed.Round(100*time.Millisecond))
}

// Failed writes a visible error banner after any partial content.
func (r *Report) Failed(err error) {
	r.printf("\n\n> **Error:** %s\n", oneLine(err.Error()))
}

// Interrupted marks a transcript cut short by the user.
func (r *Report) Interrupted() {
	r.printf("\n\n> **Interrupted:** partial output above.\n")
}

// fence wraps s in a code fence long enough not to collide with backticks
// inside it.
func fence(s string) string {
	ticks := "```"
	for strings.Contains(s, ticks) {
		ticks += "`"
	}
	return ticks + "\n" + s + "\n" + ticks
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
