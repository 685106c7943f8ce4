package infra

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/greeddj/go-roslyn/internal/roslyn/output"
)

// Infra holds runtime dependencies such as IO, HTTP, and subprocess hooks.
// Exec and LookPath are replaceable so tests never spawn real processes.
type Infra struct {
	Output   output.Printer
	HTTP     *http.Client
	Now      func() time.Time
	TempDir  func() string
	LookPath func(file string) (string, error)
	Exec     func(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// New builds Infra with default helpers for time, temp paths, and subprocesses.
func New(out output.Printer, httpClient *http.Client) *Infra {
	return &Infra{
		Output:   out,
		HTTP:     httpClient,
		Now:      time.Now,
		TempDir:  os.TempDir,
		LookPath: exec.LookPath,
		Exec:     runCommand,
	}
}

// runCommand executes a subprocess and returns its combined output.
func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	//nolint:gosec // name and args are fixed tool invocations, not user input.
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	return cmd.CombinedOutput()
}
