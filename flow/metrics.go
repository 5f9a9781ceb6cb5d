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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the flow runner.
type Metrics struct {
	Runs        *prometheus.CounterVec
	Attempts    *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	TaskRows    *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cupofmud_flow_runs_total",
				Help: "Flow runs by terminal state",
			},
			[]string{"flow", "state"},
		),
		Attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cupofmud_flow_attempts_total",
				Help: "Flow attempts by outcome",
			},
			[]string{"flow", "outcome"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cupofmud_flow_run_duration_seconds",
				Help:    "Wall time of flow runs across all attempts",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~163s
			},
			[]string{"flow"},
		),
		TaskRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cupofmud_task_rows",
				Help: "Rows returned by the last successful execution of each task",
			},
			[]string{"flow", "task"},
		),
	}
}

func (m *Metrics) observeAttempt(flow, outcome string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(flow, outcome).Inc()
}

func (m *Metrics) observeTask(flow string, result TaskResultMetadata) {
	if m == nil || !result.Success {
		return
	}
	m.TaskRows.WithLabelValues(flow, result.Task).Set(float64(result.RowsOut))
}

func (m *Metrics) observeRun(run *Run) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(run.Flow, run.State.Name).Inc()
	m.RunDuration.WithLabelValues(run.Flow).Observe(run.RunTime().Seconds())
}
