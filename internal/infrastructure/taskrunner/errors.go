package taskrunner

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTarget is returned when a requested or depended-on target is not registered
	ErrUnknownTarget = errors.New("unknown target")

	// ErrDuplicateTarget is returned when two targets share a name
	ErrDuplicateTarget = errors.New("duplicate target")

	// ErrDependencyCycle is returned when targets depend on each other
	ErrDependencyCycle = errors.New("dependency cycle")

	// ErrNoVirtualEnv aborts a build started outside an isolated package environment
	ErrNoVirtualEnv = errors.New("not in a virtual environment")
)

// ExitError reports a command that ran and exited with a non-zero status
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
}

// TargetError wraps the failure of one target
type TargetError struct {
	Target string
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target %s: %v", e.Target, e.Err)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}

// ExitCode maps err to a process exit status: 0 for nil, the tool's status
// for an ExitError, 2 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 2
}
