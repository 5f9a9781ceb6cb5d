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

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_ColumnAndEqual(t *testing.T) {
	a := NewTable([]string{"ID", "Company"})
	a.Append(Record{"ID": int64(1), "Company": "X"})
	a.Append(Record{"ID": int64(2), "Company": nil})

	assert.Equal(t, 2, a.Len())
	assert.True(t, a.HasColumn("Company"))
	assert.False(t, a.HasColumn("company"))

	ids, err := a.Column("ID")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(2)}, ids)

	_, err = a.Column("missing")
	assert.Error(t, err)

	b := NewTable([]string{"ID", "Company"})
	b.Append(Record{"ID": int64(1), "Company": "X"})
	b.Append(Record{"ID": int64(2), "Company": nil})
	assert.True(t, a.Equal(b))

	b.Rows[1]["Company"] = "Y"
	assert.False(t, a.Equal(b))

	c := NewTable([]string{"Company", "ID"})
	c.Rows = a.Rows
	assert.False(t, a.Equal(c), "column order is part of equality")

	var nilTable *Table
	assert.Equal(t, 0, nilTable.Len())
}

func TestNewTable_CopiesColumns(t *testing.T) {
	cols := []string{"a", "b"}
	tbl := NewTable(cols)
	cols[0] = "z"
	assert.Equal(t, []string{"a", "b"}, tbl.Columns)
}

func TestRecord_Clone(t *testing.T) {
	r := Record{"a": 1}
	c := r.Clone()
	c["a"] = 2
	assert.Equal(t, 1, r["a"])
}

func TestErrorTaxonomy_Unwrap(t *testing.T) {
	base := io.ErrUnexpectedEOF

	var schemaErr *SchemaMismatchError
	err := fmt.Errorf("extract: %w", &SchemaMismatchError{Column: "ID", Row: 3, Value: "abc", Err: base})
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "ID", schemaErr.Column)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), `row 3 column "ID" value "abc"`)

	assert.Contains(t, (&SchemaMismatchError{Column: "Body", Err: base}).Error(), `column "Body"`)
	assert.Contains(t, (&SchemaMismatchError{Row: 7, Err: base}).Error(), "row 7")

	var coercionErr *ValueCoercionError
	err = fmt.Errorf("transform: %w", &ValueCoercionError{Column: "Bag Weight", Row: 1, Value: "2 lbs", Err: base})
	require.True(t, errors.As(err, &coercionErr))
	assert.Equal(t, "2 lbs", coercionErr.Value)

	var writeErr *IOWriteError
	err = fmt.Errorf("load: %w", &IOWriteError{Op: "publish", Path: "/x.parquet", Err: base})
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, "publish", writeErr.Op)

	var simulated *SimulatedFailure
	err = fmt.Errorf("flow: %w", &SimulatedFailure{Probability: 0.5, Roll: 0.1})
	require.True(t, errors.As(err, &simulated))
	assert.Contains(t, err.Error(), "simulated failure")
}
