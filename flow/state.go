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
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aaronlmathis/cupofmud/core"
)

// StateType is the terminal state of a flow run.
type StateType int

const (
	Completed StateType = iota
	Failed
	Cancelled
	Crashed
)

func (s StateType) String() string {
	switch s {
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	case Crashed:
		return "Crashed"
	default:
		return fmt.Sprintf("StateType(%d)", int(s))
	}
}

// State describes how a run ended.
type State struct {
	Type    StateType
	Name    string
	Message string
	Err     error // Nil for Completed
}

func newState(t StateType, message string, err error) State {
	return State{Type: t, Name: t.String(), Message: message, Err: err}
}

// PanicError is the error of a Crashed run.
type PanicError struct {
	Task  string
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.Task, e.Value)
}

// Run is one execution of a flow, across all of its attempts.
type Run struct {
	ID          uuid.UUID
	Flow        string
	StartTime   time.Time
	EndTime     time.Time
	Attempts    int
	TaskResults []TaskResultMetadata // Results of the last attempt, in task order
	Output      *core.Table          // Table returned by the last task on success
	State       State
}

// RunTime returns the wall time of the run so far, or in total once it ended.
func (r *Run) RunTime() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// Err returns the error the run ended with, if any.
func (r *Run) Err() error {
	return r.State.Err
}
