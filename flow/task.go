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
	"time"

	"github.com/google/uuid"

	"github.com/aaronlmathis/cupofmud/core"
)

// Task is one step of a flow. Tasks run in order; each receives the table the
// previous task returned.
type Task interface {
	Name() string
	Execute(ctx context.Context, input TaskInput) (TaskOutput, error)
}

// TaskInput represents input data for task execution
type TaskInput struct {
	Table   *core.Table // Output of the previous task, nil for the first task
	RunID   uuid.UUID
	Attempt int
}

// TaskOutput represents output data from task execution
type TaskOutput struct {
	Table    *core.Table
	Metadata TaskResultMetadata
}

// TaskResultMetadata holds execution result metadata
type TaskResultMetadata struct {
	Task      string
	StartTime time.Time
	EndTime   time.Time
	RowsIn    int64
	RowsOut   int64
	Success   bool
	Error     error
	Attempt   int
}

// Duration returns how long the task ran.
func (m TaskResultMetadata) Duration() time.Duration {
	return m.EndTime.Sub(m.StartTime)
}

// TableFunc transforms a table. It is the body of a task built with NewTask.
type TableFunc func(ctx context.Context, table *core.Table) (*core.Table, error)

type funcTask struct {
	name string
	fn   TableFunc
}

// NewTask wraps fn as a Task.
func NewTask(name string, fn TableFunc) Task {
	return &funcTask{name: name, fn: fn}
}

func (t *funcTask) Name() string { return t.name }

func (t *funcTask) Execute(ctx context.Context, input TaskInput) (TaskOutput, error) {
	out, err := t.fn(ctx, input.Table)
	return TaskOutput{Table: out}, err
}
