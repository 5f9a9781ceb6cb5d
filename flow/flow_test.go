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
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aaronlmathis/cupofmud/core"
)

// hookRecorder counts hook invocations per state.
type hookRecorder struct {
	mu     sync.Mutex
	states []StateType
	runs   []*Run
}

func (h *hookRecorder) hook(ctx context.Context, f *Flow, run *Run, state State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, state.Type)
	h.runs = append(h.runs, run)
}

func (h *hookRecorder) hooks() Hooks {
	return Hooks{OnCompletion: h.hook, OnFailure: h.hook, OnCancellation: h.hook, OnCrashed: h.hook}
}

func rowsTable(n int) *core.Table {
	table := core.NewTable([]string{"n"})
	for i := 0; i < n; i++ {
		table.Append(core.Record{"n": int64(i)})
	}
	return table
}

func TestBuilder_Validation(t *testing.T) {
	noop := NewTask("noop", func(ctx context.Context, tb *core.Table) (*core.Table, error) { return tb, nil })

	_, err := NewFlow("empty").Build()
	assert.Error(t, err, "no tasks")

	_, err = NewFlow("").AddTask(noop).Build()
	assert.Error(t, err, "no name")

	_, err = NewFlow("dup").AddTask(noop).AddTask(noop).Build()
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewFlow("zero").AddTask(noop).WithRetries(0, 0).Build()
	assert.Error(t, err)

	f, err := NewFlow("ok").AddTask(noop).Build()
	require.NoError(t, err)
	assert.Equal(t, 3, f.RetryConfig().MaxAttempts)
	assert.Equal(t, 2*time.Second, f.RetryConfig().GetDelay(1))
	assert.Equal(t, []string{"noop"}, f.Tasks())
}

func TestExecute_Completed(t *testing.T) {
	rec := &hookRecorder{}
	var order []string
	step := func(name string, rows int) Task {
		return NewTask(name, func(ctx context.Context, in *core.Table) (*core.Table, error) {
			order = append(order, name)
			return rowsTable(rows), nil
		})
	}

	f, err := NewFlow("etl").
		AddTask(step("extract", 5)).
		AddTask(step("transform", 4)).
		AddTask(step("load", 4)).
		WithHooks(rec.hooks()).
		Build()
	require.NoError(t, err)

	run := f.Execute(context.Background(), nil)
	assert.Equal(t, Completed, run.State.Type)
	assert.Equal(t, "Completed", run.State.Name)
	assert.NoError(t, run.Err())
	assert.Equal(t, 1, run.Attempts)
	assert.Equal(t, []string{"extract", "transform", "load"}, order)
	assert.Equal(t, []StateType{Completed}, rec.states)
	assert.Equal(t, 4, run.Output.Len())
	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.False(t, run.EndTime.Before(run.StartTime))

	require.Len(t, run.TaskResults, 3)
	assert.Equal(t, int64(0), run.TaskResults[0].RowsIn)
	assert.Equal(t, int64(5), run.TaskResults[0].RowsOut)
	assert.Equal(t, int64(5), run.TaskResults[1].RowsIn)
	assert.True(t, run.TaskResults[2].Success)
}

func TestExecute_PassesTableBetweenTasks(t *testing.T) {
	var seen *core.Table
	first := NewTask("first", func(ctx context.Context, in *core.Table) (*core.Table, error) {
		return rowsTable(2), nil
	})
	second := NewTask("second", func(ctx context.Context, in *core.Table) (*core.Table, error) {
		seen = in
		return in, nil
	})

	input := rowsTable(7)
	f, err := NewFlow("pass").AddTask(first).AddTask(second).Build()
	require.NoError(t, err)

	run := f.Execute(context.Background(), input)
	require.Equal(t, Completed, run.State.Type)
	assert.Equal(t, 2, seen.Len())
	assert.Equal(t, int64(7), run.TaskResults[0].RowsIn)
}

func TestExecute_FailsAfterMaxAttempts(t *testing.T) {
	rec := &hookRecorder{}
	calls := 0
	boom := errors.New("boom")
	failing := NewTask("flaky", func(ctx context.Context, in *core.Table) (*core.Table, error) {
		calls++
		return nil, boom
	})

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	f, err := NewFlow("retry").
		AddTask(failing).
		WithRetries(3, time.Millisecond).
		WithHooks(rec.hooks()).
		WithMetrics(metrics).
		Build()
	require.NoError(t, err)

	run := f.Execute(context.Background(), nil)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, run.Attempts)
	assert.Equal(t, Failed, run.State.Type)
	assert.ErrorIs(t, run.Err(), boom)
	assert.Contains(t, run.State.Message, "boom")
	assert.Equal(t, []StateType{Failed}, rec.states, "exactly one failure hook")

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Attempts.WithLabelValues("retry", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Runs.WithLabelValues("retry", "Failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Runs.WithLabelValues("retry", "Completed")))
}

func TestExecute_SucceedsOnRetry(t *testing.T) {
	rec := &hookRecorder{}
	calls := 0
	flaky := NewTask("flaky", func(ctx context.Context, in *core.Table) (*core.Table, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient")
		}
		return rowsTable(1), nil
	})

	f, err := NewFlow("eventual").AddTask(flaky).WithRetries(3, 0).WithHooks(rec.hooks()).Build()
	require.NoError(t, err)

	run := f.Execute(context.Background(), nil)
	assert.Equal(t, Completed, run.State.Type)
	assert.Equal(t, 3, run.Attempts)
	assert.Equal(t, []StateType{Completed}, rec.states)
}

func TestExecute_RetryIf(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	task := NewTask("t", func(ctx context.Context, in *core.Table) (*core.Table, error) {
		calls++
		return nil, permanent
	})

	f, err := NewFlow("selective").AddTask(task).WithRetryConfig(RetryConfig{
		MaxAttempts: 3,
		Strategy:    &NoBackoff{},
		RetryIf:     func(err error) bool { return !errors.Is(err, permanent) },
	}).Build()
	require.NoError(t, err)

	run := f.Execute(context.Background(), nil)
	assert.Equal(t, Failed, run.State.Type)
	assert.Equal(t, 1, calls)
}

func TestExecute_Crashed(t *testing.T) {
	rec := &hookRecorder{}
	calls := 0
	panicky := NewTask("panicky", func(ctx context.Context, in *core.Table) (*core.Table, error) {
		calls++
		panic("nil map")
	})

	f, err := NewFlow("crash").AddTask(panicky).WithRetries(3, 0).WithHooks(rec.hooks()).Build()
	require.NoError(t, err)

	run := f.Execute(context.Background(), nil)
	assert.Equal(t, Crashed, run.State.Type)
	assert.Equal(t, 1, calls, "a crash is not retried")
	assert.Equal(t, []StateType{Crashed}, rec.states)

	var panicErr *PanicError
	require.True(t, errors.As(run.Err(), &panicErr))
	assert.Equal(t, "panicky", panicErr.Task)
	assert.NotEmpty(t, panicErr.Stack)
}

func TestExecute_CancelledBeforeStart(t *testing.T) {
	rec := &hookRecorder{}
	calls := 0
	task := NewTask("t", func(ctx context.Context, in *core.Table) (*core.Table, error) {
		calls++
		return nil, nil
	})

	f, err := NewFlow("cancel").AddTask(task).WithHooks(rec.hooks()).Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := f.Execute(ctx, nil)
	assert.Equal(t, Cancelled, run.State.Type)
	assert.Equal(t, 0, calls)
	assert.Equal(t, []StateType{Cancelled}, rec.states)
}

func TestExecute_CancelledDuringTask(t *testing.T) {
	rec := &hookRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	task := NewTask("slow", func(ctx context.Context, in *core.Table) (*core.Table, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})

	f, err := NewFlow("cancel").AddTask(task).WithRetries(3, 0).WithHooks(rec.hooks()).Build()
	require.NoError(t, err)

	run := f.Execute(ctx, nil)
	assert.Equal(t, Cancelled, run.State.Type)
	assert.Equal(t, 1, run.Attempts)
	assert.Equal(t, []StateType{Cancelled}, rec.states)
}

func TestExecute_CancelledDuringRetryDelay(t *testing.T) {
	rec := &hookRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	task := NewTask("t", func(ctx context.Context, in *core.Table) (*core.Table, error) {
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		return nil, errors.New("fail")
	})

	f, err := NewFlow("cancel").AddTask(task).WithRetries(3, time.Hour).WithHooks(rec.hooks()).Build()
	require.NoError(t, err)

	start := time.Now()
	run := f.Execute(ctx, nil)
	assert.Less(t, time.Since(start), time.Minute)
	assert.Equal(t, Cancelled, run.State.Type)
	assert.Equal(t, []StateType{Cancelled}, rec.states)
}

func TestExecute_HookContextNotCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var hookErr error
	task := NewTask("t", func(ctx context.Context, in *core.Table) (*core.Table, error) { return nil, nil })
	f, err := NewFlow("cleanup").AddTask(task).OnCancellation(func(ctx context.Context, f *Flow, run *Run, state State) {
		hookErr = ctx.Err()
	}).Build()
	require.NoError(t, err)

	f.Execute(ctx, nil)
	assert.NoError(t, hookErr)
}

func TestExecute_HookPanicIsContained(t *testing.T) {
	rec := &hookRecorder{}
	task := NewTask("t", func(ctx context.Context, in *core.Table) (*core.Table, error) { return nil, nil })
	f, err := NewFlow("hooks").AddTask(task).
		OnCompletion(func(ctx context.Context, f *Flow, run *Run, state State) { panic("hook bug") }).
		OnCompletion(rec.hook).
		Build()
	require.NoError(t, err)

	run := f.Execute(context.Background(), nil)
	assert.Equal(t, Completed, run.State.Type)
	assert.Equal(t, []StateType{Completed}, rec.states)
}

func TestLogHooks_OneLinePerState(t *testing.T) {
	obsCore, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(obsCore)

	boom := errors.New("boom")
	task := NewTask("t", func(ctx context.Context, in *core.Table) (*core.Table, error) { return nil, boom })
	f, err := NewFlow("logged").AddTask(task).WithRetries(1, 0).WithHooks(LogHooks(logger)).Build()
	require.NoError(t, err)

	f.Execute(context.Background(), nil)

	entries := logs.FilterMessage("flow failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "logged", fields["flow"])
	assert.Equal(t, "Failed", fields["state"])
	assert.Contains(t, fields["message"], "boom")
	assert.Contains(t, fields, "run_time")
	assert.Equal(t, 1, logs.Len(), "only the hook logs at info and above")
}

func TestBackoffStrategies(t *testing.T) {
	exp := &ExponentialBackoff{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, exp.Delay(1))
	assert.Equal(t, 2*time.Second, exp.Delay(2))
	assert.Equal(t, 5*time.Second, exp.Delay(10))

	lin := &LinearBackoff{BaseDelay: time.Second, MaxDelay: 3 * time.Second}
	assert.Equal(t, 2*time.Second, lin.Delay(2))
	assert.Equal(t, 3*time.Second, lin.Delay(9))

	assert.Equal(t, time.Duration(0), (&NoBackoff{}).Delay(3))

	jit := &JitteredBackoff{BaseDelay: time.Second, MaxDelay: time.Minute, Jitter: 0.5}
	d := jit.Delay(1)
	assert.GreaterOrEqual(t, d, 750*time.Millisecond)
	assert.LessOrEqual(t, d, 1250*time.Millisecond)

	rc := RetryConfig{Backoff: 3 * time.Second}
	assert.Equal(t, 3*time.Second, rc.GetDelay(1))
	assert.False(t, rc.ShouldRetry(context.Canceled))
	assert.True(t, rc.ShouldRetry(errors.New("x")))
}

func TestNewBackoff(t *testing.T) {
	tests := []struct {
		kind     string
		attempt  int
		expected time.Duration
	}{
		{BackoffFixed, 3, time.Second},
		{"", 3, time.Second},
		{BackoffExponential, 3, 4 * time.Second},
		{"Exponential", 9, 10 * time.Second},
		{BackoffLinear, 3, 3 * time.Second},
		{BackoffNone, 3, 0},
	}
	for _, tt := range tests {
		strategy, err := NewBackoff(tt.kind, time.Second, 10*time.Second)
		require.NoError(t, err, tt.kind)
		assert.Equal(t, tt.expected, strategy.Delay(tt.attempt), tt.kind)
	}

	jit, err := NewBackoff(BackoffJittered, time.Second, 0)
	require.NoError(t, err)
	assert.IsType(t, &JitteredBackoff{}, jit)

	uncapped, err := NewBackoff(BackoffExponential, time.Second, 0)
	require.NoError(t, err)
	assert.Equal(t, 8*time.Second, uncapped.Delay(4))
	assert.Positive(t, uncapped.Delay(100))

	_, err = NewBackoff("fibonacci", time.Second, 0)
	assert.ErrorContains(t, err, `unknown backoff "fibonacci"`)
}
