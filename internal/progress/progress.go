// Package progress renders CLI feedback around the acquisition pipeline.
// Editors drive this tool and parse its stdout for the rendered binary
// descriptor, so everything decorative (spinner, debug, warnings) writes to
// stderr and only PersistentPrintf reaches stdout.
package progress

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
)

const (
	spinnerDelay   = 100 * time.Millisecond
	spinnerCharSet = 14
	spinnerColor   = "green"
	ansiRed        = "\x1b[31m"
	ansiYellow     = "\x1b[33m"
	ansiReset      = "\x1b[0m"
)

// Progress is the single printer behind both human and editor-driven runs.
type Progress struct {
	verbose bool
	quiet   bool
	spin    *spinner.Spinner
}

// New creates a Progress printer. The spinner only runs in the default mode;
// verbose trades it for plain lines and quiet drops progress entirely.
func New(verbose, quiet bool) *Progress {
	p := &Progress{verbose: verbose, quiet: quiet}
	if verbose || quiet {
		return p
	}
	p.spin = spinner.New(spinner.CharSets[spinnerCharSet], spinnerDelay, spinner.WithWriter(os.Stderr))
	_ = p.spin.Color(spinnerColor)
	p.spin.Start()
	return p
}

// Printf reports transient pipeline state: it retargets the spinner suffix,
// or logs a line in verbose mode. Quiet runs swallow it.
func (p *Progress) Printf(format string, args ...any) {
	switch {
	case p.verbose:
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	case p.spin != nil:
		p.spin.Suffix = fmt.Sprintf(" "+format, args...)
	}
}

// PersistentPrintf writes a line to stdout that survives spinner redraws.
// This is the only output editors should parse.
func (p *Progress) PersistentPrintf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if p.spin != nil {
		p.spin.Stop()
		fmt.Println(line) //nolint:forbidigo
		p.spin.Restart()
		return
	}
	fmt.Println(line) //nolint:forbidigo
}

// Warnf prints a warning marker to stderr. Warnings survive quiet mode:
// a degraded install (missing dotnet, stale mirror) must stay visible.
func (p *Progress) Warnf(format string, args ...any) {
	p.stderrLine(fmt.Sprintf("%s⚠%s %s", ansiYellow, ansiReset, fmt.Sprintf(format, args...)))
}

// Errorf prints an error marker to stderr.
func (p *Progress) Errorf(format string, args ...any) {
	p.stderrLine(fmt.Sprintf("%s✗%s %s", ansiRed, ansiReset, fmt.Sprintf(format, args...)))
}

// Debugf prints a debug line in verbose mode.
func (p *Progress) Debugf(format string, args ...any) {
	if p.verbose {
		fmt.Fprintf(os.Stderr, "🚧 Debug: "+format+"\n", args...)
	}
}

// DebugSincef prints a debug line with the elapsed time since start.
func (p *Progress) DebugSincef(start time.Time, format string, args ...any) {
	if p.verbose {
		elapsed := time.Since(start).Round(time.Millisecond)
		fmt.Fprintf(os.Stderr, "⏱️ Debug Timing ("+elapsed.String()+"): "+format+"\n", args...)
	}
}

// Write lets the standard log package feed through the spinner without
// tearing the terminal line.
func (p *Progress) Write(payload []byte) (int, error) {
	message := strings.TrimRight(string(payload), "\n")
	if message != "" {
		p.stderrLine(message)
	}
	return len(payload), nil
}

// Close stops the spinner if it is running.
func (p *Progress) Close() {
	if p.spin != nil {
		p.spin.Stop()
	}
}

func (p *Progress) stderrLine(line string) {
	if p.spin != nil {
		p.spin.Stop()
		fmt.Fprintln(os.Stderr, line)
		p.spin.Restart()
		return
	}
	fmt.Fprintln(os.Stderr, line)
}
