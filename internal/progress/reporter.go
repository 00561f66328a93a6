// Package progress reports ingestion progress on the terminal.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter provides progress feedback during a batch of work.
type Reporter interface {
	Start(total int, label string)
	Update(current int, message string)
	Finish(summary string)
}

// NewReporter returns a CIReporter when the CI environment variable is set
// and a TerminalReporter otherwise. Both write to stderr so stdout stays
// clean for command output.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{Out: os.Stderr}
	}
	return &TerminalReporter{Out: os.Stderr}
}

// TerminalReporter displays a progress bar.
type TerminalReporter struct {
	Out io.Writer
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int, label string) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.Out),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, message string) {
	if r.bar != nil {
		if message != "" {
			r.bar.Describe(message)
		}
		_ = r.bar.Set(current)
	}
}

func (r *TerminalReporter) Finish(summary string) {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
	if summary != "" {
		fmt.Fprintln(r.Out, summary)
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	Out   io.Writer
	total int
}

func (r *CIReporter) Start(total int, label string) {
	r.total = total
	fmt.Fprintf(r.Out, "%s (%d)\n", label, total)
}

func (r *CIReporter) Update(current int, message string) {
	fmt.Fprintf(r.Out, "[%d/%d] %s\n", current, r.total, message)
}

func (r *CIReporter) Finish(summary string) {
	if summary != "" {
		fmt.Fprintln(r.Out, summary)
	}
}

// Nop discards all progress.
type Nop struct{}

func (Nop) Start(int, string)  {}
func (Nop) Update(int, string) {}
func (Nop) Finish(string)      {}

// Func adapts r to the func(done, total int) callback used by embedding
// batches. The reporter is started on the first call.
func Func(r Reporter, label string) func(done, total int) {
	started := false
	return func(done, total int) {
		if !started {
			r.Start(total, label)
			started = true
		}
		r.Update(done, "")
		if done == total {
			r.Finish("")
			started = false
		}
	}
}
