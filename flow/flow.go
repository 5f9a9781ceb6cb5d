//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of cupofmud.
//
// cupofmud is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// cupofmud is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with cupofmud. If not, see https://www.gnu.org/licenses/.

package flow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aaronlmathis/cupofmud/core"
)

// Package flow runs a fixed list of tasks as one unit with a retry policy
// and terminal-state hooks.
//
// A run is retried as a whole: every attempt starts again from the first
// task. Exactly one of the four hook lists fires when the run ends.

// Flow is an immutable, ready-to-run task list. Build one with NewFlow.
type Flow struct {
	name    string
	tasks   []Task
	retry   RetryConfig
	hooks   map[StateType][]Hook
	logger  *zap.Logger
	metrics *Metrics
}

// Builder assembles a Flow.
type Builder struct {
	flow  *Flow
	names map[string]bool
	err   error
}

// NewFlow starts a flow named name with the default retry policy and no hooks.
func NewFlow(name string) *Builder {
	return &Builder{
		flow: &Flow{
			name:   name,
			retry:  DefaultRetryConfig(),
			hooks:  make(map[StateType][]Hook),
			logger: zap.NewNop(),
		},
		names: make(map[string]bool),
	}
}

// AddTask appends a task. Task names must be unique within a flow.
func (b *Builder) AddTask(task Task) *Builder {
	if task == nil {
		b.setErr(errors.New("nil task"))
		return b
	}
	if b.names[task.Name()] {
		b.setErr(fmt.Errorf("duplicate task name %q", task.Name()))
		return b
	}
	b.names[task.Name()] = true
	b.flow.tasks = append(b.flow.tasks, task)
	return b
}

// WithRetries allows up to maxAttempts attempts with a fixed delay between them.
func (b *Builder) WithRetries(maxAttempts int, delay time.Duration) *Builder {
	b.flow.retry = RetryConfig{
		MaxAttempts: maxAttempts,
		Strategy:    &FixedBackoff{FixedDelay: delay},
	}
	return b
}

// WithRetryConfig replaces the retry policy.
func (b *Builder) WithRetryConfig(config RetryConfig) *Builder {
	b.flow.retry = config
	return b
}

// OnCompletion adds a hook for the Completed state.
func (b *Builder) OnCompletion(h Hook) *Builder { return b.on(Completed, h) }

// OnFailure adds a hook for the Failed state.
func (b *Builder) OnFailure(h Hook) *Builder { return b.on(Failed, h) }

// OnCancellation adds a hook for the Cancelled state.
func (b *Builder) OnCancellation(h Hook) *Builder { return b.on(Cancelled, h) }

// OnCrashed adds a hook for the Crashed state.
func (b *Builder) OnCrashed(h Hook) *Builder { return b.on(Crashed, h) }

// WithHooks adds every non-nil hook of h.
func (b *Builder) WithHooks(h Hooks) *Builder {
	return b.on(Completed, h.OnCompletion).
		on(Failed, h.OnFailure).
		on(Cancelled, h.OnCancellation).
		on(Crashed, h.OnCrashed)
}

// WithLogger sets the logger for attempt and task lines.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	if logger != nil {
		b.flow.logger = logger
	}
	return b
}

// WithMetrics records runs, attempts and task rows in m.
func (b *Builder) WithMetrics(m *Metrics) *Builder {
	b.flow.metrics = m
	return b
}

// Build validates and returns the flow.
func (b *Builder) Build() (*Flow, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.flow.name == "" {
		return nil, errors.New("flow name is required")
	}
	if len(b.flow.tasks) == 0 {
		return nil, fmt.Errorf("flow %s has no tasks", b.flow.name)
	}
	if b.flow.retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("flow %s: max attempts must be at least 1, got %d", b.flow.name, b.flow.retry.MaxAttempts)
	}
	return b.flow, nil
}

func (b *Builder) on(t StateType, h Hook) *Builder {
	if h != nil {
		b.flow.hooks[t] = append(b.flow.hooks[t], h)
	}
	return b
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Name returns the flow name.
func (f *Flow) Name() string {
	return f.name
}

// Tasks returns the task names in execution order.
func (f *Flow) Tasks() []string {
	names := make([]string, len(f.tasks))
	for i, t := range f.tasks {
		names[i] = t.Name()
	}
	return names
}

// RetryConfig returns the retry policy.
func (f *Flow) RetryConfig() RetryConfig {
	return f.retry
}

// Execute runs the flow with input as the first task's table. It always
// returns a finished run; the outcome is in run.State.
func (f *Flow) Execute(ctx context.Context, input *core.Table) *Run {
	run := &Run{
		ID:        uuid.New(),
		Flow:      f.name,
		StartTime: time.Now(),
	}
	log := f.logger.With(zap.String("flow", f.name), zap.Stringer("run_id", run.ID))
	log.Info("flow run started", zap.Int("max_attempts", f.retry.MaxAttempts))

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return f.finish(ctx, run, newState(Cancelled, "Flow run cancelled: "+err.Error(), err))
		}

		run.Attempts = attempt
		out, err := f.runAttempt(ctx, log, run, attempt, input)
		if err == nil {
			f.metrics.observeAttempt(f.name, "success")
			run.Output = out
			return f.finish(ctx, run, newState(Completed, "All tasks completed", nil))
		}

		var panicErr *PanicError
		if errors.As(err, &panicErr) {
			f.metrics.observeAttempt(f.name, "crashed")
			return f.finish(ctx, run, newState(Crashed, panicErr.Error(), err))
		}
		if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.Canceled) {
			f.metrics.observeAttempt(f.name, "cancelled")
			return f.finish(ctx, run, newState(Cancelled, "Flow run cancelled: "+err.Error(), err))
		}
		f.metrics.observeAttempt(f.name, "failed")

		if attempt >= f.retry.MaxAttempts || !f.retry.ShouldRetry(err) {
			return f.finish(ctx, run, newState(Failed, err.Error(), err))
		}

		delay := f.retry.GetDelay(attempt)
		log.Warn("flow attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.retry.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return f.finish(ctx, run, newState(Cancelled, "Flow run cancelled during retry delay", ctx.Err()))
		case <-timer.C:
		}
	}
}

// runAttempt runs every task once, in order.
func (f *Flow) runAttempt(ctx context.Context, log *zap.Logger, run *Run, attempt int, input *core.Table) (*core.Table, error) {
	run.TaskResults = make([]TaskResultMetadata, 0, len(f.tasks))
	table := input

	for _, task := range f.tasks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := TaskResultMetadata{
			Task:      task.Name(),
			StartTime: time.Now(),
			RowsIn:    int64(table.Len()),
			Attempt:   attempt,
		}
		output, err := executeTask(ctx, task, TaskInput{Table: table, RunID: run.ID, Attempt: attempt})
		result.EndTime = time.Now()

		if err != nil {
			result.Error = err
			run.TaskResults = append(run.TaskResults, result)
			log.Debug("task failed",
				zap.String("task", task.Name()),
				zap.Int("attempt", attempt),
				zap.Duration("duration", result.Duration()),
				zap.Error(err))
			return nil, fmt.Errorf("task %s: %w", task.Name(), err)
		}

		result.Success = true
		result.RowsOut = int64(output.Table.Len())
		run.TaskResults = append(run.TaskResults, result)
		f.metrics.observeTask(f.name, result)
		log.Debug("task finished",
			zap.String("task", task.Name()),
			zap.Int("attempt", attempt),
			zap.Int64("rows_in", result.RowsIn),
			zap.Int64("rows_out", result.RowsOut),
			zap.Duration("duration", result.Duration()))

		table = output.Table
	}
	return table, nil
}

// executeTask runs one task, turning a panic into a *PanicError.
func executeTask(ctx context.Context, task Task, input TaskInput) (output TaskOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Task: task.Name(), Value: r, Stack: debug.Stack()}
		}
	}()
	return task.Execute(ctx, input)
}

// finish records the terminal state and fires its hooks.
func (f *Flow) finish(ctx context.Context, run *Run, state State) *Run {
	run.State = state
	run.EndTime = time.Now()
	f.metrics.observeRun(run)

	hookCtx := context.WithoutCancel(ctx)
	for _, h := range f.hooks[state.Type] {
		f.callHook(hookCtx, h, run, state)
	}
	return run
}

func (f *Flow) callHook(ctx context.Context, h Hook, run *Run, state State) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("flow hook panicked",
				zap.String("flow", f.name),
				zap.String("state", state.Name),
				zap.Any("panic", r))
		}
	}()
	h(ctx, f, run, state)
}
