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

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/aaronlmathis/cupofmud/coffee"
	"github.com/aaronlmathis/cupofmud/config"
	"github.com/aaronlmathis/cupofmud/flow"
	"github.com/aaronlmathis/cupofmud/location"
	"github.com/aaronlmathis/cupofmud/logging"
	"github.com/aaronlmathis/cupofmud/writers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, logger.Logger)
	stop()
	logger.Close()
	os.Exit(code)
}

// run executes one flow run and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) int {
	input, output, err := resolveLocations(ctx, cfg)
	if err != nil {
		logger.Error("failed to resolve locations", zap.Error(err))
		return 1
	}

	compression, err := writers.ParseCompression(cfg.Writer.Compression)
	if err != nil {
		logger.Error("invalid compression", zap.Error(err))
		return 1
	}

	retry, err := cfg.Flow.RetryConfig()
	if err != nil {
		logger.Error("invalid retry policy", zap.Error(err))
		return 1
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := flow.NewMetrics(reg)

	opts := coffee.FlowOptions{
		Name:   cfg.Flow.Name,
		Input:  input,
		Output: output,
		Load: coffee.LoadOptions{
			Format:       cfg.Format,
			Compression:  compression,
			RowGroupSize: cfg.Writer.RowGroupSize,
			Metadata: map[string]string{
				"flow":   cfg.Flow.Name,
				"source": input.String(),
			},
		},
		Retry:     retry,
		Simulator: coffee.NewFailureSimulator(cfg.Flow.FailureRate, cfg.Flow.Seed),
		Logger:    logger,
		Metrics:   metrics,
	}
	if cfg.Postgres.DSN != "" {
		opts.Postgres = &coffee.PostgresTarget{DSN: cfg.Postgres.DSN, Table: cfg.Postgres.Table}
	}

	f, err := coffee.NewFlow(opts)
	if err != nil {
		logger.Error("failed to build flow", zap.Error(err))
		return 1
	}

	logger.Info("starting flow",
		zap.String("flow", f.Name()),
		zap.String("input", input.String()),
		zap.String("output", output.String()),
		zap.Strings("tasks", f.Tasks()),
		zap.Float64("failure_rate", cfg.Flow.FailureRate))

	r := f.Execute(ctx, nil)

	if cfg.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsTextfile, reg); err != nil {
			logger.Warn("failed to write metrics textfile", zap.String("path", cfg.MetricsTextfile), zap.Error(err))
		}
	}

	if r.State.Type != flow.Completed {
		return 1
	}
	return 0
}

// resolveLocations parses the input and output URIs. An S3 client is only
// built when one of them names an S3 object.
func resolveLocations(ctx context.Context, cfg *config.Config) (location.Location, location.Location, error) {
	var client location.S3API
	if location.IsS3(cfg.Input) || location.IsS3(cfg.Output) {
		c, err := location.NewS3Client(ctx, location.S3Options{
			Region:         cfg.S3.Region,
			Profile:        cfg.S3.Profile,
			EndpointURL:    cfg.S3.Endpoint,
			ForcePathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		client = c
	}

	input, err := location.Parse(cfg.Input, client)
	if err != nil {
		return nil, nil, fmt.Errorf("input: %w", err)
	}
	output, err := location.Parse(cfg.Output, client)
	if err != nil {
		return nil, nil, fmt.Errorf("output: %w", err)
	}
	return input, output, nil
}
