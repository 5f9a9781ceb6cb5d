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

package coffee

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aaronlmathis/cupofmud/core"
	"github.com/aaronlmathis/cupofmud/flow"
	"github.com/aaronlmathis/cupofmud/location"
	"github.com/aaronlmathis/cupofmud/writers"
)

// Task names of the coffee flow, in execution order.
const (
	ExtractTask   = "extract"
	TransformTask = "transform"
	LoadTask      = "load"
	PublishTask   = "publish"
)

// PostgresTarget names the table the curated rows are mirrored into.
type PostgresTarget struct {
	DSN   string
	Table string
}

// FlowOptions configures NewFlow.
type FlowOptions struct {
	Name      string
	Input     location.Location
	Output    location.Location
	Load      LoadOptions
	Retry     flow.RetryConfig
	Simulator *FailureSimulator // Nil or zero probability disables fault injection
	Postgres  *PostgresTarget   // Nil disables the publish task
	Logger    *zap.Logger
	Metrics   *flow.Metrics
	Hooks     []flow.Hooks // Added after the log hooks
}

// NewFlow assembles the coffee ETL flow:
// extract, transform, simulate_failure, load and optionally publish.
func NewFlow(opts FlowOptions) (*flow.Flow, error) {
	if opts.Input == nil || opts.Output == nil {
		return nil, errors.New("input and output locations are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := flow.NewFlow(opts.Name).
		WithRetryConfig(opts.Retry).
		WithLogger(logger).
		WithMetrics(opts.Metrics).
		WithHooks(flow.LogHooks(logger)).
		OnCancellation(cleanupHook(opts.Output, logger))
	for _, h := range opts.Hooks {
		b.WithHooks(h)
	}

	b.AddTask(flow.NewTask(ExtractTask, func(ctx context.Context, _ *core.Table) (*core.Table, error) {
		src, err := opts.Input.Open(ctx)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", opts.Input, err)
		}
		table, stats, err := extract(ctx, src)
		if err != nil {
			return nil, err
		}
		if len(stats.IgnoredColumns) > 0 {
			logger.Debug("ignored undeclared input columns", zap.Strings("columns", stats.IgnoredColumns))
		}
		return table, nil
	}))

	b.AddTask(flow.NewTask(TransformTask, Transform))

	if opts.Simulator != nil && opts.Simulator.Probability > 0 {
		b.AddTask(opts.Simulator)
	}

	b.AddTask(flow.NewTask(LoadTask, func(ctx context.Context, table *core.Table) (*core.Table, error) {
		if err := Load(ctx, table, opts.Output, opts.Load); err != nil {
			return nil, err
		}
		return table, nil
	}))

	if opts.Postgres != nil {
		target := *opts.Postgres
		b.AddTask(flow.NewTask(PublishTask, func(ctx context.Context, table *core.Table) (*core.Table, error) {
			if err := PublishPostgres(ctx, table, target); err != nil {
				return nil, err
			}
			return table, nil
		}))
	}

	return b.Build()
}

// cleanupHook removes staged files left behind by a cancelled load.
func cleanupHook(output location.Location, logger *zap.Logger) flow.Hook {
	return func(ctx context.Context, f *flow.Flow, run *flow.Run, state flow.State) {
		removed, err := CleanupStaged(output.StagingDir())
		if err != nil {
			logger.Warn("staged file cleanup incomplete", zap.Stringer("run_id", run.ID), zap.Error(err))
			return
		}
		logger.Debug("staged files removed", zap.Stringer("run_id", run.ID), zap.Int("count", removed))
	}
}

// PublishPostgres replaces the contents of target.Table with the curated rows.
func PublishPostgres(ctx context.Context, table *core.Table, target PostgresTarget) error {
	w, err := writers.NewPostgresWriter(
		writers.WithPostgresDSN(target.DSN),
		writers.WithTableName(target.Table),
		writers.WithPostgresSchema(OutputSchema.Arrow(nil)),
		writers.WithCreateTable(true),
		writers.WithTruncateTable(true),
	)
	if err != nil {
		return err
	}
	if err := writers.WriteTable(ctx, w, table); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
