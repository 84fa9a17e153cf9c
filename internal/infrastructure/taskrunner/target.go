// Package taskrunner runs named build targets in dependency order.
package taskrunner

import (
	"context"
	"os"
	"strings"
	"time"
)

// Status represents the state of a target within one run
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusRunning  Status = "RUNNING"
	StatusSuccess  Status = "SUCCESS"
	StatusFailed   Status = "FAILED"
	StatusUpToDate Status = "UP_TO_DATE"
)

// Command is an external program invocation
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// NewCommand builds a command from an argv slice
func NewCommand(argv ...string) Command {
	if len(argv) == 0 {
		return Command{}
	}
	return Command{Name: argv[0], Args: append([]string(nil), argv[1:]...)}
}

// String renders the command the way a shell would show it
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, p := range append([]string{c.Name}, c.Args...) {
		if p == "" || strings.ContainsAny(p, " \t\"'") {
			p = "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

// Action is the native work of a target
type Action func(ctx context.Context) error

// Target is a named unit of work with dependencies.
// Commands run first through the runner's Executor, then Action.
type Target struct {
	Name        string
	Description string
	Deps        []string
	// Output makes this a file target: it is skipped while the file exists
	// and is non-empty.
	Output   string
	Commands []Command
	Action   Action
}

// upToDate reports whether the target's output file already exists
func (t *Target) upToDate() bool {
	if t.Output == "" {
		return false
	}
	info, err := os.Stat(t.Output)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Execution records the outcome of one target in a run
type Execution struct {
	Target      string
	Status      Status
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Start marks the execution as running
func (e *Execution) Start() {
	now := time.Now()
	e.Status = StatusRunning
	e.StartedAt = &now
	e.Error = ""
}

// Complete marks the execution as successful
func (e *Execution) Complete() {
	now := time.Now()
	e.Status = StatusSuccess
	e.CompletedAt = &now
}

// Fail marks the execution as failed
func (e *Execution) Fail(err string) {
	now := time.Now()
	e.Status = StatusFailed
	e.CompletedAt = &now
	e.Error = err
}

// Duration returns how long the target ran
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(*e.StartedAt)
}
