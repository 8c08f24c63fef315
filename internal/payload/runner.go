package payload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/visualscripts/loader/internal/infrastructure"
)

// Runner executes a fetched payload script. This is the loader's trust
// boundary: implementations decide how (and how much) the payload is
// contained.
type Runner interface {
	Run(ctx context.Context, script []byte) error
}

// ExecRunner runs the payload through an external interpreter. The script
// is written to a temp file, the file path is appended to the configured
// argv, and the process inherits the loader's stdio.
type ExecRunner struct {
	command []string
	workDir string
	stdout  io.Writer
	stderr  io.Writer
}

// NewExecRunner creates a runner invoking the given interpreter argv.
func NewExecRunner(command []string, workDir string) *ExecRunner {
	return &ExecRunner{
		command: command,
		workDir: workDir,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

// SetOutput redirects the payload process output, used by tests.
func (r *ExecRunner) SetOutput(stdout, stderr io.Writer) {
	r.stdout = stdout
	r.stderr = stderr
}

// Run writes the script to a temp file and executes it. The temp file is
// removed when the payload process exits.
func (r *ExecRunner) Run(ctx context.Context, script []byte) error {
	if len(r.command) == 0 {
		return fmt.Errorf("no runner command configured")
	}

	logger := infrastructure.LoggerWithContext(ctx)

	file, err := os.CreateTemp("", "payload-*.lua")
	if err != nil {
		return fmt.Errorf("failed to create payload file: %w", err)
	}
	scriptPath := file.Name()
	defer os.Remove(scriptPath)

	if _, err := file.Write(script); err != nil {
		file.Close()
		return fmt.Errorf("failed to write payload file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close payload file: %w", err)
	}

	argv := append(append([]string{}, r.command...), scriptPath)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.workDir
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	cmd.Stdin = os.Stdin

	logger.Info("executing payload",
		slog.String("interpreter", filepath.Base(argv[0])),
		slog.Int("size", len(script)),
	)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("payload execution failed: %w", err)
	}
	return nil
}
