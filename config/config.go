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

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/aaronlmathis/cupofmud/coffee"
	"github.com/aaronlmathis/cupofmud/flow"
	"github.com/aaronlmathis/cupofmud/writers"
)

// Prefix is prepended to every environment variable name.
const Prefix = "cupofmud"

// Output formats.
const (
	FormatParquet = coffee.FormatParquet
	FormatArrow   = coffee.FormatArrow
)

// Config holds all application configuration.
type Config struct {
	Input           string `envconfig:"INPUT" default:"./data/df_arabica_clean.csv"`
	Output          string `envconfig:"OUTPUT"` // Derived from Input when empty
	Format          string `envconfig:"FORMAT" default:"parquet"`
	MetricsTextfile string `envconfig:"METRICS_TEXTFILE"`

	Flow     FlowConfig
	Writer   WriterConfig
	S3       S3Config
	Postgres PostgresConfig
	Log      LogConfig
}

// FlowConfig holds flow runner configuration.
type FlowConfig struct {
	Name        string        `envconfig:"NAME" default:"cup-of-mud"`
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"3"` // Total attempts; 4 gives three retries
	RetryDelay  time.Duration `envconfig:"RETRY_DELAY" default:"2s"`
	Backoff     string        `envconfig:"BACKOFF" default:"fixed"`
	MaxDelay    time.Duration `envconfig:"MAX_DELAY" default:"30s"` // Caps exponential, linear and jittered backoff
	FailureRate float64       `envconfig:"FAILURE_RATE" default:"0.5"`
	Seed        int64         `envconfig:"SEED" default:"0"` // 0 seeds from the clock
}

// WriterConfig holds columnar writer configuration.
type WriterConfig struct {
	Compression  string `envconfig:"COMPRESSION" default:"snappy"`
	RowGroupSize int64  `envconfig:"ROW_GROUP_SIZE" default:"10000"`
}

// S3Config holds object storage configuration, used for s3:// locations.
type S3Config struct {
	Region    string `envconfig:"REGION"`
	Profile   string `envconfig:"PROFILE"`
	Endpoint  string `envconfig:"ENDPOINT"`
	PathStyle bool   `envconfig:"PATH_STYLE" default:"false"`
}

// PostgresConfig holds the optional relational mirror configuration.
type PostgresConfig struct {
	DSN   string `envconfig:"DSN"`
	Table string `envconfig:"TABLE" default:"arabica_curated"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info"`
	Development bool   `envconfig:"DEV" default:"false"`
}

// Load loads configuration from CUPOFMUD_* environment variables, derives the
// output location and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.applyDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	cfg := &Config{
		Input:  "./data/df_arabica_clean.csv",
		Format: FormatParquet,
		Flow: FlowConfig{
			Name:        "cup-of-mud",
			MaxAttempts: 3,
			RetryDelay:  2 * time.Second,
			Backoff:     flow.BackoffFixed,
			MaxDelay:    30 * time.Second,
			FailureRate: 0.5,
		},
		Writer: WriterConfig{
			Compression:  "snappy",
			RowGroupSize: 10000,
		},
		Postgres: PostgresConfig{
			Table: "arabica_curated",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
	cfg.applyDerived()
	return cfg
}

// RetryConfig returns the flow retry policy.
func (f FlowConfig) RetryConfig() (flow.RetryConfig, error) {
	strategy, err := flow.NewBackoff(f.Backoff, f.RetryDelay, f.MaxDelay)
	if err != nil {
		return flow.RetryConfig{}, err
	}
	return flow.RetryConfig{MaxAttempts: f.MaxAttempts, Strategy: strategy}, nil
}

// OutputExtension returns the file extension of the configured format.
func (c *Config) OutputExtension() string {
	if strings.EqualFold(c.Format, FormatArrow) {
		return ".arrow"
	}
	return ".parquet"
}

func (c *Config) applyDerived() {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Output == "" && c.Input != "" {
		c.Output = c.Input + c.OutputExtension()
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Input == "" {
		errs = append(errs, errors.New("input location is required"))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output location is required"))
	}
	if c.Output != "" && c.Output == c.Input {
		errs = append(errs, errors.New("output must differ from input"))
	}
	if c.Format != FormatParquet && c.Format != FormatArrow {
		errs = append(errs, fmt.Errorf("unknown format %q: want %s or %s", c.Format, FormatParquet, FormatArrow))
	}
	if c.Flow.Name == "" {
		errs = append(errs, errors.New("flow name is required"))
	}
	if c.Flow.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be at least 1, got %d", c.Flow.MaxAttempts))
	}
	if c.Flow.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry delay must not be negative, got %s", c.Flow.RetryDelay))
	}
	if _, err := flow.NewBackoff(c.Flow.Backoff, c.Flow.RetryDelay, c.Flow.MaxDelay); err != nil {
		errs = append(errs, err)
	}
	if c.Flow.FailureRate < 0 || c.Flow.FailureRate > 1 {
		errs = append(errs, fmt.Errorf("failure rate must be within [0, 1], got %g", c.Flow.FailureRate))
	}
	if _, err := writers.ParseCompression(c.Writer.Compression); err != nil {
		errs = append(errs, err)
	}
	if c.Writer.RowGroupSize <= 0 {
		errs = append(errs, fmt.Errorf("row group size must be positive, got %d", c.Writer.RowGroupSize))
	}
	if c.Postgres.DSN != "" && c.Postgres.Table == "" {
		errs = append(errs, errors.New("postgres table is required when a DSN is set"))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
