package probe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Transcript writes the human-readable run log.
type Transcript struct {
	w       io.Writer
	success *color.Color
	failure *color.Color
	heading *color.Color
}

// NewTranscript writes to w, colouring markers only when colored is set.
func NewTranscript(w io.Writer, colored bool) *Transcript {
	t := &Transcript{
		w:       w,
		success: color.New(color.FgGreen, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
		heading: color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{t.success, t.failure, t.heading} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return t
}

// Printf writes one line.
func (t *Transcript) Printf(format string, args ...any) {
	fmt.Fprintf(t.w, format+"\n", args...)
}

// Heading writes "=== title ===", preceded by a blank line when spaced is set.
func (t *Transcript) Heading(title string, spaced bool) {
	if spaced {
		fmt.Fprintln(t.w)
	}
	t.heading.Fprintf(t.w, "=== %s ===", title)
	fmt.Fprintln(t.w)
}

// Success writes a ✅ marker line.
func (t *Transcript) Success(msg string) {
	t.success.Fprint(t.w, "✅ "+msg)
	fmt.Fprintln(t.w)
}

// Failure writes a ❌ marker line.
func (t *Transcript) Failure(msg string) {
	t.failure.Fprint(t.w, "❌ "+msg)
	fmt.Fprintln(t.w)
}

// JSON writes label followed by raw indented by two spaces. Keys keep the
// order the server sent and numbers are printed exactly as received.
func (t *Transcript) JSON(label string, raw []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		t.Printf("%s: %s", label, raw)
		return
	}
	t.Printf("%s: %s", label, buf.Bytes())
}
