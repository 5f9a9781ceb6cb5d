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

	"go.uber.org/zap"
)

// Hook is called once when a run reaches a terminal state.
type Hook func(ctx context.Context, f *Flow, run *Run, state State)

// Hooks groups one hook per terminal state. Nil entries are skipped.
type Hooks struct {
	OnCompletion   Hook
	OnFailure      Hook
	OnCancellation Hook
	OnCrashed      Hook
}

// LogHooks returns hooks that each write a single log line describing the
// terminal state.
func LogHooks(logger *zap.Logger) Hooks {
	fields := func(f *Flow, run *Run, state State) []zap.Field {
		return []zap.Field{
			zap.String("flow", f.Name()),
			zap.Stringer("run_id", run.ID),
			zap.String("state", state.Name),
			zap.String("message", state.Message),
			zap.Duration("run_time", run.RunTime()),
			zap.Int("attempts", run.Attempts),
		}
	}

	return Hooks{
		OnCompletion: func(ctx context.Context, f *Flow, run *Run, state State) {
			logger.Info("flow completed", fields(f, run, state)...)
		},
		OnFailure: func(ctx context.Context, f *Flow, run *Run, state State) {
			logger.Error("flow failed", append(fields(f, run, state), zap.Error(state.Err))...)
		},
		OnCancellation: func(ctx context.Context, f *Flow, run *Run, state State) {
			logger.Info("flow cancelled, cleaning up", fields(f, run, state)...)
		},
		OnCrashed: func(ctx context.Context, f *Flow, run *Run, state State) {
			logger.Error("flow crashed", append(fields(f, run, state), zap.Error(state.Err))...)
		},
	}
}
