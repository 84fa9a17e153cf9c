package taskrunner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// Executor runs external commands
type Executor interface {
	Run(ctx context.Context, cmd Command) error
}

// OSExecutor runs commands as child processes, streaming their output
type OSExecutor struct {
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
}

// NewOSExecutor creates an executor writing child output to stdout and stderr.
// Nil writers default to the process's own.
func NewOSExecutor(stdout, stderr io.Writer, logger *zap.Logger) *OSExecutor {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OSExecutor{stdout: stdout, stderr: stderr, logger: logger}
}

// Run starts cmd and waits for it. A non-zero exit becomes *ExitError;
// cancelling ctx kills the process.
func (e *OSExecutor) Run(ctx context.Context, cmd Command) error {
	if cmd.Name == "" {
		return errors.New("empty command")
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdout = e.stdout
	c.Stderr = e.stderr

	e.logger.Debug("Running command", zap.String("command", cmd.String()), zap.String("dir", cmd.Dir))
	err := c.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", cmd.Name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: cmd.String(), Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("running %s: %w", cmd.Name, err)
}
