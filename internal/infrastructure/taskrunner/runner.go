package taskrunner

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Runner executes planned targets one at a time
type Runner struct {
	graph      *Graph
	executor   Executor
	logger     *zap.Logger
	out        io.Writer
	dryRun     bool
	alwaysMake bool
	history    []*Execution
}

// RunnerOption is a functional option for configuring Runner
type RunnerOption func(*Runner)

// WithDryRun prints the plan and its commands without running anything
func WithDryRun(enabled bool) RunnerOption {
	return func(r *Runner) {
		r.dryRun = enabled
	}
}

// WithAlwaysMake runs file targets even when their output exists
func WithAlwaysMake(enabled bool) RunnerOption {
	return func(r *Runner) {
		r.alwaysMake = enabled
	}
}

// WithOutput sets where dry-run listings are written
func WithOutput(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.out = w
	}
}

// NewRunner creates a runner over graph
func NewRunner(graph *Graph, executor Executor, logger *zap.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		graph:    graph,
		executor: executor,
		logger:   logger,
		out:      io.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run plans names and executes the plan sequentially. It stops at the first
// failure, so no target runs after one of its dependencies failed.
func (r *Runner) Run(ctx context.Context, names ...string) error {
	plan, err := r.graph.Plan(names...)
	if err != nil {
		return err
	}

	r.history = make([]*Execution, 0, len(plan))
	for _, t := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runTarget(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// History returns the executions of the last Run in order
func (r *Runner) History() []*Execution {
	return r.history
}

func (r *Runner) runTarget(ctx context.Context, t *Target) error {
	record := &Execution{Target: t.Name, Status: StatusPending}
	r.history = append(r.history, record)

	if !r.alwaysMake && t.upToDate() {
		record.Status = StatusUpToDate
		r.logger.Info("Target up to date", zap.String("target", t.Name), zap.String("output", t.Output))
		if r.dryRun {
			fmt.Fprintf(r.out, "%s: up to date (%s)\n", t.Name, t.Output)
		}
		return nil
	}

	if r.dryRun {
		r.describe(t)
		record.Complete()
		return nil
	}

	record.Start()
	r.logger.Info("Running target", zap.String("target", t.Name))

	err := r.execute(ctx, t)
	if err != nil {
		record.Fail(err.Error())
		r.logger.Error("Target failed",
			zap.String("target", t.Name),
			zap.Duration("duration", record.Duration()),
			zap.Error(err),
		)
		return &TargetError{Target: t.Name, Err: err}
	}

	record.Complete()
	r.logger.Info("Target completed",
		zap.String("target", t.Name),
		zap.Duration("duration", record.Duration()),
	)
	return nil
}

func (r *Runner) execute(ctx context.Context, t *Target) error {
	for _, cmd := range t.Commands {
		if err := r.executor.Run(ctx, cmd); err != nil {
			return err
		}
	}
	if t.Action != nil {
		return t.Action(ctx)
	}
	return nil
}

func (r *Runner) describe(t *Target) {
	if t.Description != "" {
		fmt.Fprintf(r.out, "%s: %s\n", t.Name, t.Description)
	} else {
		fmt.Fprintf(r.out, "%s:\n", t.Name)
	}
	for _, cmd := range t.Commands {
		fmt.Fprintf(r.out, "\t%s\n", cmd)
	}
}
