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
	"math/rand"

	"github.com/aaronlmathis/cupofmud/core"
	"github.com/aaronlmathis/cupofmud/flow"
)

// SimulatedFailureTask is the name of the fault injection task.
const SimulatedFailureTask = "simulate_failure"

// FailureSimulator fails a flow attempt with a fixed probability. It passes
// its input table through unchanged otherwise.
type FailureSimulator struct {
	Probability float64
	Roll        func() float64 // Draws from [0, 1)
}

// NewFailureSimulator returns a simulator drawing from a source seeded with
// seed. A zero seed uses the global source.
func NewFailureSimulator(probability float64, seed int64) *FailureSimulator {
	roll := rand.Float64
	if seed != 0 {
		roll = rand.New(rand.NewSource(seed)).Float64
	}
	return &FailureSimulator{Probability: probability, Roll: roll}
}

// Name implements flow.Task.
func (s *FailureSimulator) Name() string { return SimulatedFailureTask }

// Execute implements flow.Task.
func (s *FailureSimulator) Execute(ctx context.Context, input flow.TaskInput) (flow.TaskOutput, error) {
	if s.Probability > 0 {
		if roll := s.Roll(); roll < s.Probability {
			return flow.TaskOutput{}, &core.SimulatedFailure{Probability: s.Probability, Roll: roll}
		}
	}
	return flow.TaskOutput{Table: input.Table}, nil
}
