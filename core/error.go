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

package core

import "fmt"

// Package core defines the error taxonomy of the coffee ETL flow.
//
// Each stage fails with its own structured error type so the flow runner and
// callers can tell them apart with errors.As.

// SchemaMismatchError reports input that does not conform to the declared
// schema: a missing or duplicated column, a malformed row, or a value that
// cannot be coerced to its declared type.
type SchemaMismatchError struct {
	Column string // Column at fault, empty for row-level problems
	Row    int    // 1-based data row, 0 for header problems
	Value  string // Offending raw value, if any
	Err    error  // Underlying error
}

// Error returns the error string for SchemaMismatchError.
func (e *SchemaMismatchError) Error() string {
	switch {
	case e.Row == 0 && e.Column != "":
		return fmt.Sprintf("schema mismatch: column %q: %v", e.Column, e.Err)
	case e.Row == 0:
		return fmt.Sprintf("schema mismatch: %v", e.Err)
	case e.Column == "":
		return fmt.Sprintf("schema mismatch: row %d: %v", e.Row, e.Err)
	default:
		return fmt.Sprintf("schema mismatch: row %d column %q value %q: %v", e.Row, e.Column, e.Value, e.Err)
	}
}

// Unwrap returns the underlying error for SchemaMismatchError.
func (e *SchemaMismatchError) Unwrap() error {
	return e.Err
}

// ValueCoercionError reports a value that a transformation could not convert,
// e.g. a bag weight that is not of the form "<number> kg".
type ValueCoercionError struct {
	Column string
	Row    int // 1-based row within the table being transformed
	Value  interface{}
	Err    error
}

// Error returns the error string for ValueCoercionError.
func (e *ValueCoercionError) Error() string {
	return fmt.Sprintf("value coercion: row %d column %q value %v: %v", e.Row, e.Column, e.Value, e.Err)
}

// Unwrap returns the underlying error for ValueCoercionError.
func (e *ValueCoercionError) Unwrap() error {
	return e.Err
}

// IOWriteError reports a failure while producing the output artifact.
type IOWriteError struct {
	Op   string // Operation that failed (e.g., "stage", "encode", "publish")
	Path string // Destination being written
	Err  error
}

// Error returns the error string for IOWriteError.
func (e *IOWriteError) Error() string {
	return fmt.Sprintf("io write %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for IOWriteError.
func (e *IOWriteError) Unwrap() error {
	return e.Err
}

// SimulatedFailure is the deliberate fault injected to exercise retries and
// failure hooks. It is not produced by any real stage.
type SimulatedFailure struct {
	Probability float64 // Configured failure probability
	Roll        float64 // Value drawn for this attempt
}

// Error returns the error string for SimulatedFailure.
func (e *SimulatedFailure) Error() string {
	return fmt.Sprintf("simulated failure: rolled %.3f below %.3f; this tests the retries and failure handler", e.Roll, e.Probability)
}
