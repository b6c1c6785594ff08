// Package output renders command results as plain text, markdown, or
// JSON, auto-detecting the best mode from the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Mode selects the output format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Renderer writes command output in a chosen mode.
type Renderer struct {
	out  io.Writer
	err  io.Writer
	mode Mode
}

// NewRenderer creates a renderer. Mode auto resolves to text when the
// output writer is a terminal and markdown otherwise.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	switch mode {
	case ModeText, ModeMarkdown, ModeJSON:
	default:
		mode = ModeAuto
	}
	return &Renderer{out: out, err: errOut, mode: mode}
}

// EffectiveMode returns the resolved output mode.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if f, ok := r.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return ModeText
	}
	return ModeMarkdown
}

// Out returns the underlying output writer.
func (r *Renderer) Out() io.Writer {
	return r.out
}

// Println writes a plain line to the output.
func (r *Renderer) Println(text string) {
	fmt.Fprintln(r.out, text)
}

// Printf writes formatted text to the output.
func (r *Renderer) Printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// Header writes a section heading at the given level.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		fmt.Fprintf(r.out, "%s %s\n", strings.Repeat("#", level), text)
		return
	}
	fmt.Fprintln(r.out, text)
	if level <= 1 {
		fmt.Fprintln(r.out, strings.Repeat("=", len(text)))
	}
}

// Success writes a success line.
func (r *Renderer) Success(text string) {
	if r.EffectiveMode() == ModeMarkdown {
		fmt.Fprintf(r.out, "**%s**\n", text)
		return
	}
	fmt.Fprintf(r.out, "✓ %s\n", text)
}

// Warning writes a warning line to the error writer.
func (r *Renderer) Warning(text string) {
	fmt.Fprintf(r.err, "! %s\n", text)
}

// Error writes an error line to the error writer.
func (r *Renderer) Error(text string) {
	fmt.Fprintf(r.err, "✗ %s\n", text)
}

// StatusLine writes a name with a status marker and an optional note.
// Recognized statuses: success, failed, warn; anything else renders as-is.
func (r *Renderer) StatusLine(name, status, note string) {
	marker := status
	if r.EffectiveMode() != ModeJSON {
		switch status {
		case "success":
			marker = "✓"
		case "failed":
			marker = "✗"
		case "warn":
			marker = "!"
		}
	}
	if note != "" {
		fmt.Fprintf(r.out, "  %s %s (%s)\n", marker, name, note)
		return
	}
	fmt.Fprintf(r.out, "  %s %s\n", marker, name)
}

// JSON writes the value as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RunEvent is one JSON-lines progress event emitted by run --json.
type RunEvent struct {
	Event       string   `json:"event"`
	Timestamp   string   `json:"timestamp"`
	RunID       string   `json:"run_id,omitempty"`
	Sessions    []string `json:"sessions,omitempty"`
	Session     string   `json:"session,omitempty"`
	Status      string   `json:"status,omitempty"`
	Rows        int64    `json:"rows,omitempty"`
	IngestMS    int64    `json:"ingest_ms,omitempty"`
	ProcessMS   int64    `json:"process_ms,omitempty"`
	Error       string   `json:"error,omitempty"`
	Total       int      `json:"total,omitempty"`
	Successful  int      `json:"successful,omitempty"`
	Failed      int      `json:"failed,omitempty"`
	TotalMS     int64    `json:"total_ms,omitempty"`
	Environment string   `json:"environment,omitempty"`
}
